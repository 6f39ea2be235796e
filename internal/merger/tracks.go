package merger

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/leafo/midimerge/internal/midifile"
)

// TimedEvent is an event placed on the absolute timeline of its source track
type TimedEvent struct {
	Tick  uint64 // absolute tick within the source track
	Track int    // index of the source track
	Index int    // position of the event within the source track
	Event midifile.Event
}

// Stats describes what a merge did
type Stats struct {
	InputTracks       int    `json:"inputTracks"`
	InputEvents       int    `json:"inputEvents"`
	OutputEvents      int    `json:"outputEvents"`
	DroppedEndOfTrack int    `json:"droppedEndOfTrack"`
	EndTick           uint64 `json:"endTick"`
}

// Flatten places every event of every track on an absolute timeline.
// Events keep their source track and position so ties can be broken.
func Flatten(tracks []midifile.Track) []TimedEvent {
	total := 0
	for _, track := range tracks {
		total += len(track)
	}

	events := make([]TimedEvent, 0, total)
	for trackIndex, track := range tracks {
		var tick uint64
		for i, event := range track {
			tick += uint64(event.Delta)
			events = append(events, TimedEvent{
				Tick:  tick,
				Track: trackIndex,
				Index: i,
				Event: event,
			})
		}
	}

	return events
}

// Sort orders events by absolute tick, then source track, then position
// within the track. The key is unique per event so the order does not
// depend on sort stability.
func Sort(events []TimedEvent) {
	slices.SortFunc(events, func(a, b TimedEvent) int {
		return cmp.Or(
			cmp.Compare(a.Tick, b.Tick),
			cmp.Compare(a.Track, b.Track),
			cmp.Compare(a.Index, b.Index),
		)
	})
}

// MergeTracks collapses tracks into a single track in absolute time order
// with delta times recomputed. End-of-track markers are removed from the
// stream and one is placed last, at the later of the final event and the
// latest marker.
func MergeTracks(tracks []midifile.Track) (midifile.Track, Stats, error) {
	events := Flatten(tracks)
	Sort(events)

	stats := Stats{
		InputTracks: len(tracks),
		InputEvents: len(events),
	}

	merged := make(midifile.Track, 0, len(events))
	var lastTick uint64
	var endOfTrack *TimedEvent
	markers := 0

	for i := range events {
		timed := &events[i]

		if timed.Event.IsEndOfTrack() {
			markers++
			if endOfTrack == nil || timed.Tick >= endOfTrack.Tick {
				endOfTrack = timed
			}
			continue
		}

		event, err := rebase(timed, lastTick)
		if err != nil {
			return nil, stats, err
		}
		merged = append(merged, event)
		lastTick = timed.Tick
	}

	if endOfTrack != nil {
		endOfTrack.Tick = max(endOfTrack.Tick, lastTick)

		event, err := rebase(endOfTrack, lastTick)
		if err != nil {
			return nil, stats, err
		}
		merged = append(merged, event)
		lastTick = endOfTrack.Tick
		stats.DroppedEndOfTrack = markers - 1
	}

	stats.OutputEvents = len(merged)
	stats.EndTick = lastTick

	return merged, stats, nil
}

// rebase returns the event with its delta measured from lastTick
func rebase(timed *TimedEvent, lastTick uint64) (midifile.Event, error) {
	delta := timed.Tick - lastTick
	if delta > math.MaxUint32 {
		return midifile.Event{}, fmt.Errorf("%w: track %d event %d is %d ticks after the previous event",
			midifile.ErrEncodeOverflow, timed.Track, timed.Index, delta)
	}

	event := timed.Event
	event.Delta = uint32(delta)
	return event, nil
}

// MergeFile replaces the tracks of f with their merge. Format and division
// are left untouched.
func MergeFile(f *midifile.File) (Stats, error) {
	if !f.SharedTimeline() {
		return Stats{}, fmt.Errorf("%w: format %d tracks are independent sequences", midifile.ErrUnmergeableFormat, f.Format)
	}

	merged, stats, err := MergeTracks(f.Tracks)
	if err != nil {
		return stats, err
	}

	f.Tracks = []midifile.Track{merged}
	return stats, nil
}
