package realtime

import (
	"testing"
	"time"

	"github.com/openmobility/tripflow/pkg/schedule"
)

func testOccurrence() *Occurrence {
	serviceDate := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	return &Occurrence{
		Pattern: &schedule.TripPattern{
			TripID:   "trip-1",
			Timezone: "UTC",
			Stops: []schedule.ScheduledStop{
				{StopID: "S1", Arrival: 10 * time.Hour, Departure: 10 * time.Hour},
				{StopID: "S2", Arrival: 10*time.Hour + 30*time.Minute, Departure: 10*time.Hour + 32*time.Minute},
			},
		},
		ServiceDate: serviceDate,
		StartAt:     serviceDate.Add(10 * time.Hour),
	}
}

func fullAlignment(records []StopUpdateRecord) *Alignment {
	slots := make([]*StopUpdateRecord, len(records))
	for i := range records {
		slots[i] = &records[i]
	}
	return &Alignment{Offset: 0, Slots: slots}
}

func durationPtr(d time.Duration) *time.Duration { return &d }

func TestMergeArrivalDelayInheritedByDeparture(t *testing.T) {
	occ := testOccurrence()
	records := []StopUpdateRecord{
		{StopCode: "S1", Sequence: 1},
		{StopCode: "S2", Sequence: 2, ArrivalDelay: durationPtr(time.Minute)},
	}

	stops := MergeStopTimes(occ, fullAlignment(records))
	if len(stops) != 2 {
		t.Fatalf("expected 2 stops, got %d", len(stops))
	}

	second := stops[1]
	if second.ArrivalStatus != EventUpdate || second.ArrivalDelay != 60 {
		t.Fatalf("expected explicit 60s arrival update, got %s/%d", second.ArrivalStatus, second.ArrivalDelay)
	}
	wantArrival := occ.ServiceDate.Add(10*time.Hour + 31*time.Minute)
	if !second.Arrival.Equal(wantArrival) {
		t.Fatalf("expected arrival %v, got %v", wantArrival, second.Arrival)
	}

	// The departure had no explicit delay; it inherits the arrival's value
	// for consistency but stays unmarked.
	if second.DepartureStatus != EventNone {
		t.Fatalf("expected inherited departure to stay %q, got %q", EventNone, second.DepartureStatus)
	}
	if second.DepartureDelay != 60 {
		t.Fatalf("expected inherited departure delay 60, got %d", second.DepartureDelay)
	}
	wantDeparture := occ.ServiceDate.Add(10*time.Hour + 33*time.Minute)
	if !second.Departure.Equal(wantDeparture) {
		t.Fatalf("expected departure %v, got %v", wantDeparture, second.Departure)
	}
}

func TestMergeExplicitZeroDelayIsNotAnUpdate(t *testing.T) {
	occ := testOccurrence()
	records := []StopUpdateRecord{
		{StopCode: "S1", Sequence: 1, ArrivalDelay: durationPtr(0), DepartureDelay: durationPtr(0)},
		{StopCode: "S2", Sequence: 2, ArrivalDelay: durationPtr(0), DepartureDelay: durationPtr(0)},
	}

	stops := MergeStopTimes(occ, fullAlignment(records))
	for _, stop := range stops {
		if stop.ArrivalStatus != EventNone || stop.DepartureStatus != EventNone {
			t.Fatalf("expected zero delays to leave status %q at position %d", EventNone, stop.Position)
		}
		if stop.ArrivalDelay != 0 || stop.DepartureDelay != 0 {
			t.Fatalf("expected zero delays at position %d", stop.Position)
		}
	}
	arrival, _ := occ.StopTime(1)
	if !stops[1].Arrival.Equal(arrival) {
		t.Fatal("expected scheduled arrival to be unchanged by an explicit zero delay")
	}
}

func TestMergePositionsWithoutRecordsKeepSchedule(t *testing.T) {
	occ := testOccurrence()
	records := []StopUpdateRecord{
		{StopCode: "S2", Sequence: 2, DepartureDelay: durationPtr(2 * time.Minute)},
	}
	slots := make([]*StopUpdateRecord, 2)
	slots[1] = &records[0]

	stops := MergeStopTimes(occ, &Alignment{Offset: 1, Slots: slots})

	first := stops[0]
	if first.ArrivalStatus != EventNone || first.DepartureStatus != EventNone {
		t.Fatal("expected untouched position to carry no realtime state")
	}
	arrival, departure := occ.StopTime(0)
	if !first.Arrival.Equal(arrival) || !first.Departure.Equal(departure) {
		t.Fatal("expected untouched position to keep scheduled times")
	}
	if stops[1].DepartureStatus != EventUpdate || stops[1].DepartureDelay != 120 {
		t.Fatalf("expected explicit 120s departure update, got %s/%d",
			stops[1].DepartureStatus, stops[1].DepartureDelay)
	}
}

func TestMergeNegativeDelay(t *testing.T) {
	occ := testOccurrence()
	records := []StopUpdateRecord{
		{StopCode: "S1", Sequence: 1},
		{StopCode: "S2", Sequence: 2, ArrivalDelay: durationPtr(-2 * time.Minute), DepartureDelay: durationPtr(-2 * time.Minute)},
	}

	stops := MergeStopTimes(occ, fullAlignment(records))
	second := stops[1]
	if second.ArrivalStatus != EventUpdate || second.ArrivalDelay != -120 {
		t.Fatalf("expected early running to be an update, got %s/%d", second.ArrivalStatus, second.ArrivalDelay)
	}
	wantArrival := occ.ServiceDate.Add(10*time.Hour + 28*time.Minute)
	if !second.Arrival.Equal(wantArrival) {
		t.Fatalf("expected arrival %v, got %v", wantArrival, second.Arrival)
	}
}

func TestMergeCarriesMessage(t *testing.T) {
	occ := testOccurrence()
	msg := "holding for connection"
	records := []StopUpdateRecord{
		{StopCode: "S1", Sequence: 1},
		{StopCode: "S2", Sequence: 2, ArrivalDelay: durationPtr(time.Minute), Message: &msg},
	}

	stops := MergeStopTimes(occ, fullAlignment(records))
	if stops[1].Message == nil || *stops[1].Message != msg {
		t.Fatal("expected the stop message to be carried through")
	}
	if stops[0].Message != nil {
		t.Fatal("expected no message on the untouched stop")
	}
}
