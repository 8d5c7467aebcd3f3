package gtfsrt

import (
	"errors"
	"fmt"
	"time"

	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"

	"github.com/openmobility/tripflow/pkg/realtime"
)

// Connector is the GTFS-RT wire codec. It decodes trip-update feeds into the
// neutral model and re-encodes merged state for downstream consumers.
type Connector struct{}

func NewConnector() *Connector {
	return &Connector{}
}

// Decode parses a binary GTFS-RT feed message.
//
// Proto2 optionality matters here: a stop event's delay is a pointer field,
// and an explicit zero is preserved as distinct from an absent delay. Only
// FULL_DATASET feeds are accepted; every delivery describes the complete
// current state of its trips.
func (c *Connector) Decode(raw []byte) (*realtime.Feed, error) {
	var message gtfs.FeedMessage
	if err := proto.Unmarshal(raw, &message); err != nil {
		return nil, err
	}

	header := message.GetHeader()
	if header == nil {
		return nil, errors.New("feed has no header")
	}
	if header.GetIncrementality() != gtfs.FeedHeader_FULL_DATASET {
		return nil, fmt.Errorf("unsupported incrementality: %s", header.GetIncrementality())
	}
	if header.GetTimestamp() == 0 {
		return nil, errors.New("feed has no timestamp")
	}

	feed := &realtime.Feed{
		Timestamp: time.Unix(int64(header.GetTimestamp()), 0).UTC(),
	}

	for _, entity := range message.GetEntity() {
		update := entity.GetTripUpdate()
		if update == nil {
			continue
		}
		tripCode := update.GetTrip().GetTripId()
		if tripCode == "" {
			continue
		}

		trip := realtime.TripEntity{TripCode: tripCode}
		for _, stu := range update.GetStopTimeUpdate() {
			record := realtime.StopUpdateRecord{
				StopCode: stu.GetStopId(),
				Sequence: stu.GetStopSequence(),
			}
			if arrival := stu.GetArrival(); arrival != nil && arrival.Delay != nil {
				d := time.Duration(*arrival.Delay) * time.Second
				record.ArrivalDelay = &d
			}
			if departure := stu.GetDeparture(); departure != nil && departure.Delay != nil {
				d := time.Duration(*departure.Delay) * time.Second
				record.DepartureDelay = &d
			}
			trip.StopUpdates = append(trip.StopUpdates, record)
		}
		feed.Entities = append(feed.Entities, trip)
	}

	return feed, nil
}
