package realtime

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/openmobility/tripflow/pkg/schedule"
)

type stubFinder struct {
	patterns map[string]*schedule.TripPattern
	err      error
}

func (f *stubFinder) FindPattern(ctx context.Context, tripCode string) (*schedule.TripPattern, error) {
	if f.err != nil {
		return nil, f.err
	}
	pattern, ok := f.patterns[tripCode]
	if !ok {
		return nil, schedule.ErrTripNotFound
	}
	return pattern, nil
}

func pattern(tripID, tz string, firstDeparture time.Duration) *schedule.TripPattern {
	return &schedule.TripPattern{
		TripID:   tripID,
		Code:     tripID,
		Timezone: tz,
		Stops: []schedule.ScheduledStop{
			{StopID: "S1", Arrival: firstDeparture, Departure: firstDeparture},
			{StopID: "S2", Arrival: firstDeparture + 30*time.Minute, Departure: firstDeparture + 30*time.Minute},
		},
	}
}

func newTestResolver(patterns ...*schedule.TripPattern) *Resolver {
	byCode := make(map[string]*schedule.TripPattern)
	for _, p := range patterns {
		byCode[p.Code] = p
	}
	return NewResolver(&stubFinder{patterns: byCode}, 4*time.Hour, 3*time.Hour)
}

func TestResolveSameDay(t *testing.T) {
	resolver := newTestResolver(pattern("trip-1", "UTC", 15*time.Hour))

	feedTS := time.Date(2026, 8, 28, 15, 0, 0, 0, time.UTC)
	occ, err := resolver.Resolve(context.Background(), "trip-1", feedTS)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if occ == nil {
		t.Fatal("expected an occurrence")
	}
	want := time.Date(2026, 8, 28, 15, 0, 0, 0, time.UTC)
	if !occ.StartAt.Equal(want) {
		t.Fatalf("expected start %v, got %v", want, occ.StartAt)
	}
	if !occ.ServiceDate.Equal(time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected service date %v", occ.ServiceDate)
	}
}

func TestResolveLocalMidnightTrip(t *testing.T) {
	// A 01:00 local trip observed at 23:17 UTC the previous calendar day.
	// The local clock already reads 01:17 on the 28th, so the upper window
	// bound lands on the 28th and the candidate start falls in the window.
	resolver := newTestResolver(pattern("night-1", "Europe/Paris", time.Hour))

	feedTS := time.Date(2026, 8, 27, 23, 17, 0, 0, time.UTC)
	occ, err := resolver.Resolve(context.Background(), "night-1", feedTS)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if occ == nil {
		t.Fatal("expected an occurrence")
	}

	paris, _ := time.LoadLocation("Europe/Paris")
	wantService := time.Date(2026, 8, 28, 0, 0, 0, 0, paris)
	if !occ.ServiceDate.Equal(wantService) {
		t.Fatalf("expected service date %v, got %v", wantService, occ.ServiceDate)
	}
	if !occ.StartAt.Equal(wantService.Add(time.Hour).UTC()) {
		t.Fatalf("unexpected start %v", occ.StartAt)
	}
}

func TestResolvePastMidnightOffset(t *testing.T) {
	// Schedules express a 01:30 leg of an evening trip as a 25h30m offset
	// from the service day's midnight. Observed at 01:00 local, the lower
	// window bound reaches back to the previous calendar day, whose
	// candidate start (previous midnight + 25h30m = 01:30 today) is in
	// the window.
	resolver := newTestResolver(pattern("late-1", "Europe/Paris", 25*time.Hour+30*time.Minute))

	paris, _ := time.LoadLocation("Europe/Paris")
	feedTS := time.Date(2026, 8, 28, 1, 0, 0, 0, paris)
	occ, err := resolver.Resolve(context.Background(), "late-1", feedTS)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if occ == nil {
		t.Fatal("expected an occurrence")
	}

	wantService := time.Date(2026, 8, 27, 0, 0, 0, 0, paris)
	if !occ.ServiceDate.Equal(wantService) {
		t.Fatalf("expected service date %v, got %v", wantService, occ.ServiceDate)
	}
	if !occ.StartAt.Equal(wantService.Add(25*time.Hour + 30*time.Minute).UTC()) {
		t.Fatalf("unexpected start %v", occ.StartAt)
	}
}

func TestResolveOutOfWindow(t *testing.T) {
	// A 10:00 trip observed at 20:58 is long gone: both window bounds fall
	// on the same calendar day and its candidate start precedes the window.
	resolver := newTestResolver(pattern("day-1", "Europe/Paris", 10*time.Hour))

	paris, _ := time.LoadLocation("Europe/Paris")
	feedTS := time.Date(2026, 8, 28, 20, 58, 0, 0, paris)
	occ, err := resolver.Resolve(context.Background(), "day-1", feedTS)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if occ != nil {
		t.Fatalf("expected no occurrence, got start %v", occ.StartAt)
	}
}

func TestResolveUnknownTripIsOutOfScope(t *testing.T) {
	resolver := newTestResolver()

	occ, err := resolver.Resolve(context.Background(), "ghost", time.Now())
	if err != nil {
		t.Fatalf("expected unknown trip to be silently out of scope, got %v", err)
	}
	if occ != nil {
		t.Fatal("expected no occurrence for an unknown trip")
	}
}

func TestResolveFinderFailureIsExternal(t *testing.T) {
	resolver := NewResolver(&stubFinder{err: errors.New("schedule service down")}, 4*time.Hour, 3*time.Hour)

	_, err := resolver.Resolve(context.Background(), "trip-1", time.Now())
	if err == nil || !IsExternalError(err) {
		t.Fatalf("expected an external error, got %v", err)
	}
}
