package realtime

import (
	"fmt"

	"github.com/openmobility/tripflow/pkg/schedule"
)

// Alignment matches a feed's partial stop list to the tail of an occurrence's
// full stop list. Slots has one entry per scheduled position; positions before
// Offset carry nil (no realtime information).
type Alignment struct {
	Offset int
	Slots  []*StopUpdateRecord
}

// AlignStopUpdates aligns M ordered feed records against N ordered scheduled
// stops at offset k = N - M, verified by exact positional identifier equality
// over the whole overlap. Identifier lookup alone cannot disambiguate looping
// routes that serve a stop twice, so only positions are trusted; any mismatch
// anywhere voids the trip's whole update.
func AlignStopUpdates(stops []schedule.ScheduledStop, records []StopUpdateRecord) (*Alignment, error) {
	n, m := len(stops), len(records)
	if m > n {
		return nil, fmt.Errorf("feed has %d stop updates for %d scheduled stops", m, n)
	}

	for i := 1; i < m; i++ {
		if records[i].Sequence <= records[i-1].Sequence {
			return nil, fmt.Errorf("stop sequence not strictly increasing at record %d", i)
		}
	}

	offset := n - m
	for i := 0; i < m; i++ {
		want := stops[offset+i].FeedCode()
		if records[i].StopCode != want {
			return nil, fmt.Errorf("stop %q at position %d does not match scheduled stop %q",
				records[i].StopCode, offset+i, want)
		}
	}

	alignment := &Alignment{
		Offset: offset,
		Slots:  make([]*StopUpdateRecord, n),
	}
	for i := 0; i < m; i++ {
		alignment.Slots[offset+i] = &records[i]
	}

	return alignment, nil
}
