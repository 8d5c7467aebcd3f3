package realtime

import (
	"context"
	"time"

	"github.com/openmobility/tripflow/pkg/common/logger"
	"github.com/openmobility/tripflow/pkg/observability/metrics"
)

// PurgeTripUpdates removes merged trip state older than the retention window.
// Ingestion records survive; only their links to the removed updates go.
func (s *Service) PurgeTripUpdates(ctx context.Context, retentionDays int) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)
	purged, err := s.repo.PurgeTripUpdates(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	metrics.ObservePurge(purged, 0)
	return purged, nil
}

// PurgeIngestionRecords removes audit rows of one connector older than the
// retention window.
func (s *Service) PurgeIngestionRecords(ctx context.Context, retentionDays int, connector string) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)
	purged, err := s.repo.PurgeIngestionRecords(ctx, cutoff, connector)
	if err != nil {
		return 0, err
	}
	metrics.ObservePurge(0, purged)
	return purged, nil
}

// RunSweeper purges on a fixed interval until the context is cancelled.
func (s *Service) RunSweeper(ctx context.Context, interval time.Duration, tripRetentionDays, recordRetentionDays int) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updates, err := s.PurgeTripUpdates(ctx, tripRetentionDays)
			if err != nil {
				logger.Log.WithError(err).Error("trip update sweep failed")
			}
			records, err := s.PurgeIngestionRecords(ctx, recordRetentionDays, ConnectorGTFSRT)
			if err != nil {
				logger.Log.WithError(err).Error("ingestion record sweep failed")
			}
			logger.Log.WithFields(map[string]interface{}{
				"trip_updates":      updates,
				"ingestion_records": records,
			}).Info("retention sweep completed")
		}
	}
}
