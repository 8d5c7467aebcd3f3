package realtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/openmobility/tripflow/pkg/schedule"
)

// Occurrence is a trip pattern pinned to a concrete service day. ServiceDate
// is midnight of that day in the operating timezone; StartAt is the first
// stop's absolute start in UTC.
type Occurrence struct {
	Pattern     *schedule.TripPattern
	ServiceDate time.Time
	StartAt     time.Time
}

// StopTime returns the scheduled absolute arrival and departure (UTC) of the
// stop at position i.
func (o *Occurrence) StopTime(i int) (arrival, departure time.Time) {
	stop := o.Pattern.Stops[i]
	return o.ServiceDate.Add(stop.Arrival).UTC(), o.ServiceDate.Add(stop.Departure).UTC()
}

// Resolver decides which calendar-day occurrence a feed entity refers to.
// Feeds are timestamped in absolute time while schedules are local
// time-of-day offsets, and trips may run past local midnight, so the same
// instant can plausibly belong to two service days.
type Resolver struct {
	finder       schedule.Finder
	windowBefore time.Duration
	windowAfter  time.Duration
}

func NewResolver(finder schedule.Finder, windowBefore, windowAfter time.Duration) *Resolver {
	return &Resolver{
		finder:       finder,
		windowBefore: windowBefore,
		windowAfter:  windowAfter,
	}
}

// Resolve returns the occurrence the feed refers to, or nil when no service
// day plausibly matches (the entity is then silently out of scope). Errors
// are collaborator failures.
//
// Candidate starts are computed from midnight of each window bound's local
// calendar date plus the trip's first scheduled stop offset. A candidate is
// kept only when its start falls inside the window; when both bounds yield
// one, the later date wins, since a trip starting exactly at a bound is the
// common case for midnight trips observed just after UTC midnight.
func (r *Resolver) Resolve(ctx context.Context, tripCode string, feedTS time.Time) (*Occurrence, error) {
	pattern, err := r.finder.FindPattern(ctx, tripCode)
	if err != nil {
		if errors.Is(err, schedule.ErrTripNotFound) {
			return nil, nil
		}
		return nil, ExternalError{Op: "resolving trip pattern", Err: err}
	}

	loc, err := time.LoadLocation(pattern.Timezone)
	if err != nil {
		return nil, ExternalError{Op: "loading trip timezone", Err: fmt.Errorf("%q: %w", pattern.Timezone, err)}
	}

	local := feedTS.In(loc)
	since := local.Add(-r.windowBefore)
	until := local.Add(r.windowAfter)
	first := pattern.FirstStopOffset()

	// Later calendar date first.
	for _, bound := range []time.Time{until, since} {
		serviceDate := time.Date(bound.Year(), bound.Month(), bound.Day(), 0, 0, 0, 0, loc)
		start := serviceDate.Add(first)
		if start.Before(since) || start.After(until) {
			continue
		}
		return &Occurrence{
			Pattern:     pattern,
			ServiceDate: serviceDate,
			StartAt:     start.UTC(),
		}, nil
	}

	return nil, nil
}
