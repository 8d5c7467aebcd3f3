package realtime

import "time"

// MergeStopTimes derives the full ordered per-stop state from an alignment
// and the occurrence's schedule. The output depends only on those inputs:
// a trip update is always rebuilt wholesale from the latest feed, never
// merged with previously persisted state.
func MergeStopTimes(occ *Occurrence, alignment *Alignment) []StopTimeUpdate {
	stops := make([]StopTimeUpdate, 0, len(occ.Pattern.Stops))

	for i, scheduled := range occ.Pattern.Stops {
		arrival, departure := occ.StopTime(i)
		stop := StopTimeUpdate{
			Position:        i,
			StopID:          scheduled.StopID,
			ArrivalStatus:   EventNone,
			Arrival:         arrival,
			DepartureStatus: EventNone,
			Departure:       departure,
		}

		if record := alignment.Slots[i]; record != nil {
			stop.ArrivalStatus, stop.ArrivalDelay, stop.Arrival =
				mergeEvent(arrival, record.ArrivalDelay, record.DepartureDelay)
			stop.DepartureStatus, stop.DepartureDelay, stop.Departure =
				mergeEvent(departure, record.DepartureDelay, record.ArrivalDelay)
			stop.Message = record.Message
		}

		stops = append(stops, stop)
	}

	return stops
}

// mergeEvent computes one arrival or departure. An explicit delay shifts the
// scheduled time and flags the event updated when non-zero. A missing delay
// inherits the sibling event's value so the stop's times stay consistent, but
// the status remains "none": no explicit information was given even though a
// derived value is shown.
func mergeEvent(scheduled time.Time, explicit, sibling *time.Duration) (status string, delaySeconds int64, at time.Time) {
	var delay time.Duration
	switch {
	case explicit != nil:
		delay = *explicit
		if delay != 0 {
			status = EventUpdate
		} else {
			status = EventNone
		}
	case sibling != nil:
		delay = *sibling
		status = EventNone
	default:
		status = EventNone
	}

	return status, int64(delay / time.Second), scheduled.Add(delay)
}
