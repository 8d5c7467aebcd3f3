package realtime

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(
		&Contributor{},
		&IngestionRecord{},
		&TripOccurrence{},
		&TripUpdate{},
		&StopTimeUpdate{},
		&IngestionLink{},
	)
}

// WithinTx runs fn against a transactional repository. All per-entity writes
// of one feed happen inside a single transaction so a mid-feed failure rolls
// back atomically; the audit record is persisted separately.
func (r *Repository) WithinTx(ctx context.Context, fn func(tx *Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repository{db: tx})
	})
}

func (r *Repository) GetContributor(ctx context.Context, id string) (*Contributor, error) {
	var contributor Contributor
	result := r.db.WithContext(ctx).First(&contributor, "id = ?", id)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return &contributor, result.Error
}

func (r *Repository) ListContributors(ctx context.Context) ([]Contributor, error) {
	var contributors []Contributor
	err := r.db.WithContext(ctx).Order("id").Find(&contributors).Error
	return contributors, err
}

func (r *Repository) UpsertContributor(ctx context.Context, contributor *Contributor) error {
	now := time.Now().UTC()
	contributor.UpdatedAt = now
	if contributor.CreatedAt.IsZero() {
		contributor.CreatedAt = now
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"connector_type", "active", "settings", "updated_at"}),
	}).Create(contributor).Error
}

// EnsureOccurrence finds or creates the persisted row for a resolved
// occurrence.
func (r *Repository) EnsureOccurrence(ctx context.Context, occ *Occurrence) (*TripOccurrence, error) {
	var row TripOccurrence
	err := r.db.WithContext(ctx).
		First(&row, "trip_id = ? AND start_at = ?", occ.Pattern.TripID, occ.StartAt).Error
	if err == nil {
		return &row, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	row = TripOccurrence{
		ID:        uuid.New().String(),
		TripID:    occ.Pattern.TripID,
		StartAt:   occ.StartAt,
		Timezone:  occ.Pattern.Timezone,
		CreatedAt: time.Now().UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// TripUpdateForOccurrence returns the live trip update for an occurrence with
// its stop rows in positional order, or nil when none exists.
func (r *Repository) TripUpdateForOccurrence(ctx context.Context, occurrenceID string) (*TripUpdate, error) {
	var update TripUpdate
	err := r.db.WithContext(ctx).
		Preload("StopTimes", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		First(&update, "occurrence_id = ?", occurrenceID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &update, nil
}

// ReplaceTripUpdate creates the occurrence's trip update or overwrites the
// existing one wholesale: the old stop rows are dropped and the freshly
// merged list takes their place.
func (r *Repository) ReplaceTripUpdate(ctx context.Context, existing *TripUpdate, occurrenceID, contributorID, effect string, stops []StopTimeUpdate) (*TripUpdate, error) {
	now := time.Now().UTC()

	update := existing
	if update == nil {
		update = &TripUpdate{
			ID:            uuid.New().String(),
			OccurrenceID:  occurrenceID,
			ContributorID: contributorID,
			Effect:        effect,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := r.db.WithContext(ctx).Create(update).Error; err != nil {
			return nil, err
		}
	} else {
		if err := r.db.WithContext(ctx).
			Where("trip_update_id = ?", update.ID).
			Delete(&StopTimeUpdate{}).Error; err != nil {
			return nil, err
		}
		update.Effect = effect
		update.ContributorID = contributorID
		update.UpdatedAt = now
		if err := r.db.WithContext(ctx).Model(&TripUpdate{}).
			Where("id = ?", update.ID).
			Updates(map[string]interface{}{
				"effect":         effect,
				"contributor_id": contributorID,
				"updated_at":     now,
			}).Error; err != nil {
			return nil, err
		}
	}

	for i := range stops {
		stops[i].ID = uuid.New().String()
		stops[i].TripUpdateID = update.ID
	}
	if err := r.db.WithContext(ctx).Create(&stops).Error; err != nil {
		return nil, err
	}
	update.StopTimes = stops

	return update, nil
}

func (r *Repository) CreateRecord(ctx context.Context, record *IngestionRecord) error {
	now := time.Now().UTC()
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	record.CreatedAt = now
	record.UpdatedAt = now
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *Repository) LatestRecord(ctx context.Context, contributorID, connector string) (*IngestionRecord, error) {
	var record IngestionRecord
	err := r.db.WithContext(ctx).
		Where("contributor_id = ? AND connector_type = ?", contributorID, connector).
		Order("created_at DESC").
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// CoalesceFailure records a KO attempt for errors raised outside normal
// entity processing (decode failures, collaborator outages). When the most
// recent record for the contributor+connector pair is still KO with the exact
// same detail, only its updated_at advances; any different detail, or a prior
// success, inserts a fresh row. The check is against the single most recent
// record, with no time bound.
func (r *Repository) CoalesceFailure(ctx context.Context, contributorID, connector string, raw []byte, detail string) (*IngestionRecord, error) {
	latest, err := r.LatestRecord(ctx, contributorID, connector)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	if latest != nil && latest.Status == StatusKO && latest.Error != nil && *latest.Error == detail {
		latest.UpdatedAt = time.Now().UTC()
		err := r.db.WithContext(ctx).Model(&IngestionRecord{}).
			Where("id = ?", latest.ID).
			Update("updated_at", latest.UpdatedAt).Error
		return latest, err
	}

	record := &IngestionRecord{
		ContributorID: contributorID,
		ConnectorType: connector,
		Raw:           raw,
		Status:        StatusKO,
		Error:         &detail,
	}
	if err := r.CreateRecord(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// LinkRecord appends join rows tying a record to the trip updates it touched.
func (r *Repository) LinkRecord(ctx context.Context, recordID string, tripUpdateIDs []string) error {
	if len(tripUpdateIDs) == 0 {
		return nil
	}
	now := time.Now().UTC()
	links := make([]IngestionLink, 0, len(tripUpdateIDs))
	for _, id := range tripUpdateIDs {
		links = append(links, IngestionLink{
			IngestionRecordID: recordID,
			TripUpdateID:      id,
			CreatedAt:         now,
		})
	}
	return r.db.WithContext(ctx).Create(&links).Error
}

// LinksForTripUpdate returns the record ids that have ever touched a trip
// update, oldest first.
func (r *Repository) LinksForTripUpdate(ctx context.Context, tripUpdateID string) ([]IngestionLink, error) {
	var links []IngestionLink
	err := r.db.WithContext(ctx).
		Where("trip_update_id = ?", tripUpdateID).
		Order("created_at").
		Find(&links).Error
	return links, err
}

// PurgeTripUpdates removes trip updates, their stop rows, their join rows and
// their occurrences for occurrences starting before the cutoff. Ingestion
// records are deliberately untouched: the audit trail outlives the
// operational state.
func (r *Repository) PurgeTripUpdates(ctx context.Context, cutoff time.Time) (int64, error) {
	var purged int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		occurrences := func() *gorm.DB {
			return tx.Model(&TripOccurrence{}).Select("id").Where("start_at < ?", cutoff)
		}
		updates := func() *gorm.DB {
			return tx.Model(&TripUpdate{}).Select("id").Where("occurrence_id IN (?)", occurrences())
		}

		if err := tx.Where("trip_update_id IN (?)", updates()).Delete(&StopTimeUpdate{}).Error; err != nil {
			return err
		}
		if err := tx.Where("trip_update_id IN (?)", updates()).Delete(&IngestionLink{}).Error; err != nil {
			return err
		}
		result := tx.Where("occurrence_id IN (?)", occurrences()).Delete(&TripUpdate{})
		if result.Error != nil {
			return result.Error
		}
		purged = result.RowsAffected
		return tx.Where("start_at < ?", cutoff).Delete(&TripOccurrence{}).Error
	})
	return purged, err
}

// PurgeIngestionRecords removes records (and their join rows) older than the
// cutoff for one connector type.
func (r *Repository) PurgeIngestionRecords(ctx context.Context, cutoff time.Time, connector string) (int64, error) {
	var purged int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		records := tx.Model(&IngestionRecord{}).Select("id").
			Where("connector_type = ? AND created_at < ?", connector, cutoff)

		if err := tx.Where("ingestion_record_id IN (?)", records).Delete(&IngestionLink{}).Error; err != nil {
			return err
		}
		result := tx.Where("connector_type = ? AND created_at < ?", connector, cutoff).
			Delete(&IngestionRecord{})
		if result.Error != nil {
			return result.Error
		}
		purged = result.RowsAffected
		return nil
	})
	return purged, err
}
