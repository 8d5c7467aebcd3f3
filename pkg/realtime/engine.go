package realtime

import (
	"context"
)

// Outcome is the terminal state of one feed entity.
type Outcome string

const (
	OutcomeAccepted             Outcome = "ACCEPTED"
	OutcomeRejectedAlignment    Outcome = "REJECTED_ALIGNMENT"
	OutcomeSkippedNoCirculation Outcome = "SKIPPED_NO_CIRCULATION"
	OutcomeNoChange             Outcome = "NO_CHANGE"
)

// EntityResult is what reconciling one feed entity produced. TripUpdate is
// set only for ACCEPTED; Detail explains rejections.
type EntityResult struct {
	TripCode   string
	Outcome    Outcome
	TripUpdate *TripUpdate
	Detail     string
}

// Engine reconciles one feed entity against the schedule and the persisted
// state: resolve circulation, align stops, merge times, classify, then decide
// whether anything new must be stored.
type Engine struct {
	resolver *Resolver
}

func NewEngine(resolver *Resolver) *Engine {
	return &Engine{resolver: resolver}
}

// Reconcile runs the per-entity state machine. Per-entity failures are
// reported through the outcome and never abort sibling entities; a non-nil
// error means a collaborator failed and the whole feed must roll back.
func (e *Engine) Reconcile(ctx context.Context, repo *Repository, contributor *Contributor, entity TripEntity, feed *Feed) (EntityResult, error) {
	result := EntityResult{TripCode: entity.TripCode}

	occ, err := e.resolver.Resolve(ctx, entity.TripCode, feed.Timestamp)
	if err != nil {
		return result, err
	}
	if occ == nil {
		result.Outcome = OutcomeSkippedNoCirculation
		return result, nil
	}

	alignment, err := AlignStopUpdates(occ.Pattern.Stops, entity.StopUpdates)
	if err != nil {
		result.Outcome = OutcomeRejectedAlignment
		result.Detail = err.Error()
		return result, nil
	}

	stops := MergeStopTimes(occ, alignment)
	effect := ClassifyEffect(stops)

	occurrence, err := repo.EnsureOccurrence(ctx, occ)
	if err != nil {
		return result, ExternalError{Op: "persisting trip occurrence", Err: err}
	}

	existing, err := repo.TripUpdateForOccurrence(ctx, occurrence.ID)
	if err != nil {
		return result, ExternalError{Op: "loading trip update", Err: err}
	}

	if existing != nil && existing.Effect == effect && sameStopTimes(existing.StopTimes, stops) {
		result.Outcome = OutcomeNoChange
		return result, nil
	}

	update, err := repo.ReplaceTripUpdate(ctx, existing, occurrence.ID, contributor.ID, effect, stops)
	if err != nil {
		return result, ExternalError{Op: "persisting trip update", Err: err}
	}
	update.Occurrence = occurrence

	result.Outcome = OutcomeAccepted
	result.TripUpdate = update
	return result, nil
}

// sameStopTimes compares two ordered stop sequences field by field.
func sameStopTimes(a, b []StopTimeUpdate) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Same(b[i]) {
			return false
		}
	}
	return true
}
