package schedule

import "time"

// ScheduledStop is one stop of a trip pattern. Times are offsets from
// midnight of the service day in the trip's operating timezone; offsets may
// exceed 24h for legs running past local midnight.
type ScheduledStop struct {
	StopID    string        `json:"stop_id"`
	Code      string        `json:"code,omitempty"`
	Arrival   time.Duration `json:"-"`
	Departure time.Duration `json:"-"`
}

// FeedCode returns the identifier this stop carries in realtime feeds.
// Contributors without a dedicated code space reuse the internal id.
func (s ScheduledStop) FeedCode() string {
	if s.Code != "" {
		return s.Code
	}
	return s.StopID
}

// TripPattern is the scheduled shape of a trip as served by the schedule
// service: internal identifiers, operating timezone and the ordered stops.
// It is date-free; picking a concrete service day is the resolver's job.
type TripPattern struct {
	TripID   string
	Code     string
	Timezone string
	Stops    []ScheduledStop
}

// FirstStopOffset is the scheduled departure offset of the first stop,
// used to compute candidate circulation starts.
func (p *TripPattern) FirstStopOffset() time.Duration {
	if len(p.Stops) == 0 {
		return 0
	}
	return p.Stops[0].Departure
}
