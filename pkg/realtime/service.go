package realtime

import (
	"context"
	"fmt"
	"time"

	"github.com/openmobility/tripflow/pkg/common/logger"
	"github.com/openmobility/tripflow/pkg/observability/metrics"
)

// Connector translates between a wire feed format and the neutral model.
type Connector interface {
	Decode(raw []byte) (*Feed, error)
	Encode(updates []*TripUpdate) ([]byte, error)
}

// Notifier carries accepted, re-encoded trip updates downstream.
type Notifier interface {
	PublishFeed(ctx context.Context, contributorID string, payload []byte) error
}

// IngestResult is the feed-level outcome surfaced to the caller.
type IngestResult struct {
	RecordID  string    `json:"record_id"`
	Status    string    `json:"status"`
	Error     *string   `json:"error,omitempty"`
	Accepted  int       `json:"accepted"`
	Rejected  int       `json:"rejected"`
	Skipped   int       `json:"skipped"`
	Unchanged int       `json:"unchanged"`
	Timestamp time.Time `json:"timestamp"`
}

// Service is the top-level ingestion coordinator: it decodes a delivery,
// drives every entity through the reconciliation engine inside one
// transaction, persists exactly one audit record per attempt and maintains
// the dedup fingerprint.
type Service struct {
	repo      *Repository
	engine    *Engine
	connector Connector
	cache     FingerprintCache
	notifier  Notifier
}

func NewService(repo *Repository, engine *Engine, connector Connector, cache FingerprintCache, notifier Notifier) *Service {
	return &Service{
		repo:      repo,
		engine:    engine,
		connector: connector,
		cache:     cache,
		notifier:  notifier,
	}
}

// Ingest processes one raw feed delivery for a contributor.
//
// Outcomes and their persistence:
//   - empty payload, unknown or inactive contributor: error to the caller,
//     nothing persisted;
//   - recognized redelivery (fingerprint matches the last processed feed):
//     coalesced KO record, no reprocessing;
//   - decode failure: coalesced KO record, fingerprint remembered (the
//     payload itself is broken, redelivery would fail identically);
//   - collaborator failure: coalesced KO record, fingerprint forgotten so the
//     same payload may be retried;
//   - processed feed: one fresh record, OK iff at least one entity was
//     accepted, KO otherwise with the most relevant reason.
func (s *Service) Ingest(ctx context.Context, contributorID string, raw []byte) (*IngestResult, error) {
	if len(raw) == 0 {
		return nil, ValidationError{reason: errEmptyPayload}
	}

	contributor, err := s.repo.GetContributor(ctx, contributorID)
	if err != nil {
		if err == ErrNotFound {
			return nil, ErrUnknownContributor
		}
		return nil, ExternalError{Op: "loading contributor", Err: err}
	}
	if !contributor.Active {
		return nil, ValidationError{reason: errInactiveContributor}
	}

	if record, err := s.recognizeRedelivery(ctx, contributor, raw); err != nil {
		return nil, err
	} else if record != nil {
		metrics.ObserveFeed(false)
		return resultFromRecord(record), nil
	}

	feed, err := s.connector.Decode(raw)
	if err != nil {
		decodeErr := DecodeError{reason: err}
		record, recErr := s.repo.CoalesceFailure(ctx, contributor.ID, contributor.ConnectorType, raw, decodeErr.Error())
		if recErr != nil {
			return nil, ExternalError{Op: "recording decode failure", Err: recErr}
		}
		s.rememberFingerprint(ctx, contributor.ID, raw)
		metrics.ObserveFeed(false)
		return resultFromRecord(record), decodeErr
	}

	var results []EntityResult
	txErr := s.repo.WithinTx(ctx, func(tx *Repository) error {
		results = results[:0]
		for _, entity := range feed.Entities {
			res, err := s.engine.Reconcile(ctx, tx, contributor, entity, feed)
			if err != nil {
				return err
			}
			results = append(results, res)
		}
		return nil
	})
	if txErr != nil {
		record, recErr := s.repo.CoalesceFailure(ctx, contributor.ID, contributor.ConnectorType, raw, txErr.Error())
		if recErr != nil {
			logger.Log.WithError(recErr).Error("failed to record external failure")
		}
		s.forgetFingerprint(ctx, contributor.ID)
		metrics.ObserveFeed(false)
		if record != nil {
			return resultFromRecord(record), wrapExternal(txErr)
		}
		return nil, wrapExternal(txErr)
	}

	var accepted, rejected, skipped, unchanged int
	var acceptedUpdates []*TripUpdate
	for i := range results {
		switch results[i].Outcome {
		case OutcomeAccepted:
			accepted++
			acceptedUpdates = append(acceptedUpdates, results[i].TripUpdate)
		case OutcomeRejectedAlignment:
			rejected++
			logger.Log.WithFields(map[string]interface{}{
				"contributor": contributor.ID,
				"trip":        results[i].TripCode,
				"detail":      results[i].Detail,
			}).Warn("trip entity rejected by stop alignment")
		case OutcomeSkippedNoCirculation:
			skipped++
		case OutcomeNoChange:
			unchanged++
		}
	}

	status := StatusOK
	var detail *string
	if accepted == 0 {
		status = StatusKO
		var msg string
		if unchanged > 0 {
			msg = "no new information for this feed"
		} else {
			msg = fmt.Sprintf("no information for this feed with timestamp: %d", feed.Timestamp.Unix())
		}
		detail = &msg
	}

	record := &IngestionRecord{
		ContributorID: contributor.ID,
		ConnectorType: contributor.ConnectorType,
		Raw:           raw,
		Status:        status,
		Error:         detail,
	}
	if err := s.repo.CreateRecord(ctx, record); err != nil {
		s.forgetFingerprint(ctx, contributor.ID)
		return nil, ExternalError{Op: "persisting ingestion record", Err: err}
	}

	updateIDs := make([]string, 0, len(acceptedUpdates))
	for _, u := range acceptedUpdates {
		updateIDs = append(updateIDs, u.ID)
	}
	if err := s.repo.LinkRecord(ctx, record.ID, updateIDs); err != nil {
		logger.Log.WithError(err).Error("failed to link ingestion record to trip updates")
	}

	s.rememberFingerprint(ctx, contributor.ID, raw)
	metrics.ObserveFeed(status == StatusOK)
	metrics.ObserveEntityOutcomes(accepted, rejected, skipped, unchanged)

	if accepted > 0 && s.notifier != nil {
		s.publish(ctx, contributor.ID, acceptedUpdates)
	}

	result := resultFromRecord(record)
	result.Accepted = accepted
	result.Rejected = rejected
	result.Skipped = skipped
	result.Unchanged = unchanged
	return result, nil
}

// recognizeRedelivery short-circuits a payload whose fingerprint matches the
// contributor's last processed feed. The cache is best-effort: a duplicate
// slipping past it is still caught by the per-entity NO_CHANGE diff.
func (s *Service) recognizeRedelivery(ctx context.Context, contributor *Contributor, raw []byte) (*IngestionRecord, error) {
	if s.cache == nil {
		return nil, nil
	}
	current, err := s.cache.Current(ctx, contributor.ID)
	if err != nil {
		logger.Log.WithError(err).WithField("contributor", contributor.ID).
			Warn("failed to read feed fingerprint")
		return nil, nil
	}
	if current == "" || current != Fingerprint(raw) {
		return nil, nil
	}

	record, err := s.repo.CoalesceFailure(ctx, contributor.ID, contributor.ConnectorType, raw,
		"no new information for this feed")
	if err != nil {
		return nil, ExternalError{Op: "persisting ingestion record", Err: err}
	}
	return record, nil
}

func (s *Service) publish(ctx context.Context, contributorID string, updates []*TripUpdate) {
	payload, err := s.connector.Encode(updates)
	if err != nil {
		logger.Log.WithError(err).WithField("contributor", contributorID).
			Error("failed to re-encode accepted trip updates")
		return
	}
	if err := s.notifier.PublishFeed(ctx, contributorID, payload); err != nil {
		logger.Log.WithError(err).WithField("contributor", contributorID).
			Error("failed to publish accepted trip updates")
	}
}

func (s *Service) rememberFingerprint(ctx context.Context, contributorID string, raw []byte) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Remember(ctx, contributorID, Fingerprint(raw)); err != nil {
		logger.Log.WithError(err).WithField("contributor", contributorID).
			Warn("failed to update feed fingerprint")
	}
}

func (s *Service) forgetFingerprint(ctx context.Context, contributorID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Forget(ctx, contributorID); err != nil {
		logger.Log.WithError(err).WithField("contributor", contributorID).
			Warn("failed to clear feed fingerprint")
	}
}

// Status returns the most recent ingestion record for a contributor, or nil
// when nothing has been ingested yet.
func (s *Service) Status(ctx context.Context, contributorID string) (*IngestionRecord, error) {
	contributor, err := s.repo.GetContributor(ctx, contributorID)
	if err != nil {
		if err == ErrNotFound {
			return nil, ErrUnknownContributor
		}
		return nil, err
	}
	record, err := s.repo.LatestRecord(ctx, contributor.ID, contributor.ConnectorType)
	if err == ErrNotFound {
		return nil, nil
	}
	return record, err
}

// Contributors lists the registered contributors.
func (s *Service) Contributors(ctx context.Context) ([]Contributor, error) {
	return s.repo.ListContributors(ctx)
}

func resultFromRecord(record *IngestionRecord) *IngestResult {
	return &IngestResult{
		RecordID:  record.ID,
		Status:    record.Status,
		Error:     record.Error,
		Timestamp: record.UpdatedAt,
	}
}

func wrapExternal(err error) error {
	if IsExternalError(err) {
		return err
	}
	return ExternalError{Op: "processing feed", Err: err}
}
