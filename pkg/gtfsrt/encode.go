package gtfsrt

import (
	"fmt"
	"time"

	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"

	"github.com/openmobility/tripflow/pkg/realtime"
)

// Encode renders merged trip updates back to a binary GTFS-RT feed message.
// Trip descriptors carry the occurrence start date and time in UTC so that
// consumers can tell apart same-trip runs on consecutive service days.
func (c *Connector) Encode(updates []*realtime.TripUpdate) ([]byte, error) {
	entities := make([]*gtfs.FeedEntity, 0, len(updates))
	for _, update := range updates {
		if update.Occurrence == nil {
			return nil, fmt.Errorf("trip update %s has no occurrence", update.ID)
		}
		start := update.Occurrence.StartAt.UTC()

		stops := make([]*gtfs.TripUpdate_StopTimeUpdate, 0, len(update.StopTimes))
		for i := range update.StopTimes {
			st := &update.StopTimes[i]
			stops = append(stops, &gtfs.TripUpdate_StopTimeUpdate{
				StopSequence: proto.Uint32(uint32(st.Position + 1)),
				StopId:       proto.String(st.StopID),
				Arrival:      stopEvent(st.Arrival, st.ArrivalDelay),
				Departure:    stopEvent(st.Departure, st.DepartureDelay),
			})
		}

		entities = append(entities, &gtfs.FeedEntity{
			Id: proto.String(update.Occurrence.TripID),
			TripUpdate: &gtfs.TripUpdate{
				Trip: &gtfs.TripDescriptor{
					TripId:    proto.String(update.Occurrence.TripID),
					StartDate: proto.String(start.Format("20060102")),
					StartTime: proto.String(start.Format("15:04:05")),
				},
				StopTimeUpdate: stops,
			},
		})
	}

	message := &gtfs.FeedMessage{
		Header: &gtfs.FeedHeader{
			GtfsRealtimeVersion: proto.String("2.0"),
			Incrementality:      gtfs.FeedHeader_FULL_DATASET.Enum(),
			Timestamp:           proto.Uint64(uint64(time.Now().Unix())),
		},
		Entity: entities,
	}
	return proto.Marshal(message)
}

func stopEvent(at time.Time, delaySeconds int64) *gtfs.TripUpdate_StopTimeEvent {
	return &gtfs.TripUpdate_StopTimeEvent{
		Delay: proto.Int32(int32(delaySeconds)),
		Time:  proto.Int64(at.Unix()),
	}
}
