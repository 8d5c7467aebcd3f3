package metrics

import (
	"fmt"
	"net/http"
	"sync/atomic"
)

var (
	feedsOK           atomic.Int64
	feedsKO           atomic.Int64
	entitiesAccepted  atomic.Int64
	entitiesRejected  atomic.Int64
	entitiesSkipped   atomic.Int64
	entitiesUnchanged atomic.Int64
	tripUpdatesPurged atomic.Int64
	recordsPurged     atomic.Int64
)

func ObserveFeed(ok bool) {
	if ok {
		feedsOK.Add(1)
	} else {
		feedsKO.Add(1)
	}
}

func ObserveEntityOutcomes(accepted, rejected, skipped, unchanged int) {
	entitiesAccepted.Add(int64(accepted))
	entitiesRejected.Add(int64(rejected))
	entitiesSkipped.Add(int64(skipped))
	entitiesUnchanged.Add(int64(unchanged))
}

func ObservePurge(tripUpdates, records int64) {
	tripUpdatesPurged.Add(tripUpdates)
	recordsPurged.Add(records)
}

func WritePrometheus(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	fmt.Fprintf(w, "# HELP tripflow_feeds_ok_total Number of ingested feeds recorded with status OK.\n")
	fmt.Fprintf(w, "# TYPE tripflow_feeds_ok_total counter\n")
	fmt.Fprintf(w, "tripflow_feeds_ok_total %d\n", feedsOK.Load())

	fmt.Fprintf(w, "# HELP tripflow_feeds_ko_total Number of ingested feeds recorded with status KO.\n")
	fmt.Fprintf(w, "# TYPE tripflow_feeds_ko_total counter\n")
	fmt.Fprintf(w, "tripflow_feeds_ko_total %d\n", feedsKO.Load())

	fmt.Fprintf(w, "# HELP tripflow_entities_accepted_total Number of feed entities that created or replaced a trip update.\n")
	fmt.Fprintf(w, "# TYPE tripflow_entities_accepted_total counter\n")
	fmt.Fprintf(w, "tripflow_entities_accepted_total %d\n", entitiesAccepted.Load())

	fmt.Fprintf(w, "# HELP tripflow_entities_rejected_total Number of feed entities rejected by stop alignment.\n")
	fmt.Fprintf(w, "# TYPE tripflow_entities_rejected_total counter\n")
	fmt.Fprintf(w, "tripflow_entities_rejected_total %d\n", entitiesRejected.Load())

	fmt.Fprintf(w, "# HELP tripflow_entities_skipped_total Number of feed entities with no applicable circulation.\n")
	fmt.Fprintf(w, "# TYPE tripflow_entities_skipped_total counter\n")
	fmt.Fprintf(w, "tripflow_entities_skipped_total %d\n", entitiesSkipped.Load())

	fmt.Fprintf(w, "# HELP tripflow_entities_unchanged_total Number of feed entities whose merged state matched the persisted state.\n")
	fmt.Fprintf(w, "# TYPE tripflow_entities_unchanged_total counter\n")
	fmt.Fprintf(w, "tripflow_entities_unchanged_total %d\n", entitiesUnchanged.Load())

	fmt.Fprintf(w, "# HELP tripflow_trip_updates_purged_total Number of trip updates removed by the retention sweep.\n")
	fmt.Fprintf(w, "# TYPE tripflow_trip_updates_purged_total counter\n")
	fmt.Fprintf(w, "tripflow_trip_updates_purged_total %d\n", tripUpdatesPurged.Load())

	fmt.Fprintf(w, "# HELP tripflow_ingestion_records_purged_total Number of ingestion records removed by the retention sweep.\n")
	fmt.Fprintf(w, "# TYPE tripflow_ingestion_records_purged_total counter\n")
	fmt.Fprintf(w, "tripflow_ingestion_records_purged_total %d\n", recordsPurged.Load())
}
