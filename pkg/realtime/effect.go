package realtime

// ClassifyEffect labels a trip from its final merged stop state. Any non-zero
// arrival or departure delay anywhere makes the trip significantly delayed;
// a feed restating only zero delays leaves the trip unremarkable.
func ClassifyEffect(stops []StopTimeUpdate) string {
	for _, stop := range stops {
		if stop.ArrivalDelay != 0 || stop.DepartureDelay != 0 {
			return EffectSignificantDelays
		}
	}
	return EffectUnknown
}
