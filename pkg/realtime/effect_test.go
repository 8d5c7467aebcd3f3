package realtime

import "testing"

func TestClassifyEffectWithDelay(t *testing.T) {
	stops := []StopTimeUpdate{
		{Position: 0},
		{Position: 1, DepartureDelay: 300, DepartureStatus: EventUpdate},
	}
	if effect := ClassifyEffect(stops); effect != EffectSignificantDelays {
		t.Fatalf("expected %s, got %s", EffectSignificantDelays, effect)
	}
}

func TestClassifyEffectAllZero(t *testing.T) {
	stops := []StopTimeUpdate{{Position: 0}, {Position: 1}}
	if effect := ClassifyEffect(stops); effect != EffectUnknown {
		t.Fatalf("expected %s, got %s", EffectUnknown, effect)
	}
}

func TestClassifyEffectEarlyRunning(t *testing.T) {
	stops := []StopTimeUpdate{{Position: 0, ArrivalDelay: -60, ArrivalStatus: EventUpdate}}
	if effect := ClassifyEffect(stops); effect != EffectSignificantDelays {
		t.Fatalf("expected %s, got %s", EffectSignificantDelays, effect)
	}
}
