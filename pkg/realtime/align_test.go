package realtime

import (
	"testing"

	"github.com/openmobility/tripflow/pkg/schedule"
)

func scheduledStops(codes ...string) []schedule.ScheduledStop {
	stops := make([]schedule.ScheduledStop, 0, len(codes))
	for _, code := range codes {
		stops = append(stops, schedule.ScheduledStop{StopID: "id-" + code, Code: code})
	}
	return stops
}

func TestAlignFullOverlap(t *testing.T) {
	stops := scheduledStops("A", "B", "C")
	records := []StopUpdateRecord{
		{StopCode: "A", Sequence: 1},
		{StopCode: "B", Sequence: 2},
		{StopCode: "C", Sequence: 3},
	}

	alignment, err := AlignStopUpdates(stops, records)
	if err != nil {
		t.Fatalf("alignment failed: %v", err)
	}
	if alignment.Offset != 0 {
		t.Fatalf("expected offset 0, got %d", alignment.Offset)
	}
	for i := range stops {
		if alignment.Slots[i] == nil {
			t.Fatalf("expected slot %d to carry a record", i)
		}
	}
}

func TestAlignTailOnLoopingRoute(t *testing.T) {
	// B is served twice; a partial feed naming B must land on the second
	// visit because only the tail positions can match.
	stops := scheduledStops("A", "B", "C", "B", "D")
	records := []StopUpdateRecord{
		{StopCode: "B", Sequence: 4},
		{StopCode: "D", Sequence: 5},
	}

	alignment, err := AlignStopUpdates(stops, records)
	if err != nil {
		t.Fatalf("alignment failed: %v", err)
	}
	if alignment.Offset != 3 {
		t.Fatalf("expected offset 3, got %d", alignment.Offset)
	}
	for i := 0; i < 3; i++ {
		if alignment.Slots[i] != nil {
			t.Fatalf("expected no record at position %d", i)
		}
	}
	if alignment.Slots[3] == nil || alignment.Slots[3].StopCode != "B" {
		t.Fatal("expected second visit of B at position 3")
	}
	if alignment.Slots[4] == nil || alignment.Slots[4].StopCode != "D" {
		t.Fatal("expected D at position 4")
	}
}

func TestAlignRejectsMoreRecordsThanStops(t *testing.T) {
	stops := scheduledStops("A", "B")
	records := []StopUpdateRecord{
		{StopCode: "A", Sequence: 1},
		{StopCode: "B", Sequence: 2},
		{StopCode: "C", Sequence: 3},
	}

	if _, err := AlignStopUpdates(stops, records); err == nil {
		t.Fatal("expected rejection when the feed has more records than scheduled stops")
	}
}

func TestAlignRejectsPositionalMismatch(t *testing.T) {
	stops := scheduledStops("A", "B", "C")
	records := []StopUpdateRecord{
		{StopCode: "B", Sequence: 2},
		{StopCode: "X", Sequence: 3},
	}

	if _, err := AlignStopUpdates(stops, records); err == nil {
		t.Fatal("expected rejection on identifier mismatch within the overlap")
	}
}

func TestAlignRejectsNonIncreasingSequence(t *testing.T) {
	stops := scheduledStops("A", "B", "C")
	records := []StopUpdateRecord{
		{StopCode: "B", Sequence: 3},
		{StopCode: "C", Sequence: 3},
	}

	if _, err := AlignStopUpdates(stops, records); err == nil {
		t.Fatal("expected rejection on non-increasing stop sequence")
	}
}

func TestAlignFallsBackToStopIDWhenNoCode(t *testing.T) {
	stops := []schedule.ScheduledStop{{StopID: "S1"}, {StopID: "S2"}}
	records := []StopUpdateRecord{{StopCode: "S2", Sequence: 2}}

	alignment, err := AlignStopUpdates(stops, records)
	if err != nil {
		t.Fatalf("alignment failed: %v", err)
	}
	if alignment.Offset != 1 {
		t.Fatalf("expected offset 1, got %d", alignment.Offset)
	}
}
