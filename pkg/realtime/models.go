package realtime

import (
	"time"

	"gorm.io/datatypes"
)

const (
	StatusOK = "OK"
	StatusKO = "KO"
)

const (
	// EventNone marks an arrival/departure that carries no explicit realtime
	// information, even when a derived value is shown for time-consistency.
	EventNone = "none"
	// EventUpdate marks an arrival/departure with an explicit non-zero delay.
	EventUpdate = "update"
)

const (
	EffectSignificantDelays = "SIGNIFICANT_DELAYS"
	EffectUnknown           = "UNKNOWN_EFFECT"
)

// ConnectorGTFSRT is the only wire connector currently supported.
const ConnectorGTFSRT = "gtfs-rt"

// Contributor is one registered realtime data source.
type Contributor struct {
	ID            string            `json:"id" gorm:"primaryKey;column:id"`
	ConnectorType string            `json:"connector_type" gorm:"column:connector_type"`
	Active        bool              `json:"active" gorm:"column:active"`
	Settings      datatypes.JSONMap `json:"settings,omitempty" gorm:"column:settings"`
	CreatedAt     time.Time         `json:"created_at" gorm:"column:created_at"`
	UpdatedAt     time.Time         `json:"updated_at" gorm:"column:updated_at"`
}

func (Contributor) TableName() string {
	return "contributors"
}

// IngestionRecord is the audit row for one feed-ingestion attempt. The raw
// payload is immutable; only the coalescing rule for repeated identical
// failures touches an existing row, and then only its timestamp.
type IngestionRecord struct {
	ID            string    `json:"id" gorm:"primaryKey;column:id"`
	ContributorID string    `json:"contributor_id" gorm:"column:contributor_id;index:idx_ingestion_contributor"`
	ConnectorType string    `json:"connector_type" gorm:"column:connector_type;index:idx_ingestion_contributor"`
	Raw           []byte    `json:"-" gorm:"column:raw"`
	Status        string    `json:"status" gorm:"column:status"`
	Error         *string   `json:"error,omitempty" gorm:"column:error"`
	CreatedAt     time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt     time.Time `json:"updated_at" gorm:"column:updated_at"`
}

func (IngestionRecord) TableName() string {
	return "ingestion_records"
}

// TripOccurrence is one calendar-day running of a scheduled trip. StartAt is
// the resolved absolute start in UTC; the pair (trip id, start) is unique.
type TripOccurrence struct {
	ID        string    `json:"id" gorm:"primaryKey;column:id"`
	TripID    string    `json:"trip_id" gorm:"column:trip_id;uniqueIndex:idx_occurrence_trip_start"`
	StartAt   time.Time `json:"start_at" gorm:"column:start_at;uniqueIndex:idx_occurrence_trip_start"`
	Timezone  string    `json:"timezone" gorm:"column:timezone"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at"`
}

func (TripOccurrence) TableName() string {
	return "trip_occurrences"
}

// TripUpdate is the current merged realtime state of one occurrence. At most
// one live row exists per occurrence; accepted re-ingestions replace its stop
// list wholesale.
type TripUpdate struct {
	ID            string           `json:"id" gorm:"primaryKey;column:id"`
	OccurrenceID  string           `json:"occurrence_id" gorm:"column:occurrence_id;uniqueIndex"`
	Occurrence    *TripOccurrence  `json:"occurrence,omitempty" gorm:"foreignKey:OccurrenceID"`
	ContributorID string           `json:"contributor_id" gorm:"column:contributor_id"`
	Effect        string           `json:"effect" gorm:"column:effect"`
	StopTimes     []StopTimeUpdate `json:"stop_times" gorm:"foreignKey:TripUpdateID"`
	CreatedAt     time.Time        `json:"created_at" gorm:"column:created_at"`
	UpdatedAt     time.Time        `json:"updated_at" gorm:"column:updated_at"`
}

func (TripUpdate) TableName() string {
	return "trip_updates"
}

// StopTimeUpdate is the merged per-stop state. Position mirrors the
// occurrence's scheduled stop order; looping routes serve the same stop id at
// several positions, so position, not id, is the correlation key.
type StopTimeUpdate struct {
	ID           string `json:"id" gorm:"primaryKey;column:id"`
	TripUpdateID string `json:"-" gorm:"column:trip_update_id;index"`
	Position     int    `json:"position" gorm:"column:position"`
	StopID       string `json:"stop_id" gorm:"column:stop_id"`

	ArrivalStatus string    `json:"arrival_status" gorm:"column:arrival_status"`
	ArrivalDelay  int64     `json:"arrival_delay" gorm:"column:arrival_delay"`
	Arrival       time.Time `json:"arrival" gorm:"column:arrival"`

	DepartureStatus string    `json:"departure_status" gorm:"column:departure_status"`
	DepartureDelay  int64     `json:"departure_delay" gorm:"column:departure_delay"`
	Departure       time.Time `json:"departure" gorm:"column:departure"`

	Message *string `json:"message,omitempty" gorm:"column:message"`
}

func (StopTimeUpdate) TableName() string {
	return "stop_time_updates"
}

// Same compares the realtime content of two stop rows, ignoring row identity.
func (s StopTimeUpdate) Same(o StopTimeUpdate) bool {
	if s.Position != o.Position || s.StopID != o.StopID {
		return false
	}
	if s.ArrivalStatus != o.ArrivalStatus || s.ArrivalDelay != o.ArrivalDelay || !s.Arrival.Equal(o.Arrival) {
		return false
	}
	if s.DepartureStatus != o.DepartureStatus || s.DepartureDelay != o.DepartureDelay || !s.Departure.Equal(o.Departure) {
		return false
	}
	if (s.Message == nil) != (o.Message == nil) {
		return false
	}
	if s.Message != nil && *s.Message != *o.Message {
		return false
	}
	return true
}

// IngestionLink ties an ingestion record to a trip update it touched. The
// relation is append-only history with its own lifecycle: trip-update purges
// remove links but keep the records, and record purges the reverse.
type IngestionLink struct {
	IngestionRecordID string    `json:"ingestion_record_id" gorm:"primaryKey;column:ingestion_record_id"`
	TripUpdateID      string    `json:"trip_update_id" gorm:"primaryKey;column:trip_update_id"`
	CreatedAt         time.Time `json:"created_at" gorm:"column:created_at"`
}

func (IngestionLink) TableName() string {
	return "ingestion_trip_updates"
}

// Feed is a decoded realtime delivery: a header timestamp plus per-trip
// entities. Connectors produce it from their wire format.
type Feed struct {
	Timestamp time.Time
	Entities  []TripEntity
}

// TripEntity is one trip's partial stop-update list as delivered by a feed.
type TripEntity struct {
	TripCode    string
	StopUpdates []StopUpdateRecord
}

// StopUpdateRecord is a single per-stop feed record. Nil delays mean the feed
// did not supply the field; an explicit zero is meaningful and distinct.
type StopUpdateRecord struct {
	StopCode       string
	Sequence       uint32
	ArrivalDelay   *time.Duration
	DepartureDelay *time.Duration
	Message        *string
}
