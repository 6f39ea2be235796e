package main

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"sort"

	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/leafo/midimerge/internal/merger"
	"github.com/leafo/midimerge/internal/midifile"
)

// report describes a merge: the input as parsed and the merged track, with
// messages decoded by gomidi
type report struct {
	Input  midiSummary  `json:"input"`
	Output midiSummary  `json:"output"`
	Stats  merger.Stats `json:"stats"`
}

type midiSummary struct {
	File       string         `json:"file"`
	Format     uint16         `json:"format"`
	TimeFormat string         `json:"timeFormat"`
	Tracks     []trackSummary `json:"tracks"`
}

type trackSummary struct {
	Name           string           `json:"name,omitempty"`
	Events         int              `json:"events"`
	Notes          int              `json:"notes"`
	ControlChanges int              `json:"controlChanges"`
	ProgramChanges int              `json:"programChanges"`
	EndTick        uint64           `json:"endTick"`
	Seconds        float64          `json:"seconds"`
	Channels       []uint8          `json:"channels,omitempty"`
	Instruments    map[uint8]string `json:"instruments,omitempty"`
}

// describeProgram names the instrument a program change selects
func describeProgram(ch, program uint8) string {
	if ch == 9 {
		return fmt.Sprintf("Percussion (kit %d)", program)
	}
	return fmt.Sprintf("%s (%s)", getGMInstrument(program), getGMFamily(program))
}

// tempoChange is a tempo meta event at an absolute tick
type tempoChange struct {
	Tick uint64
	BPM  float64
}

func buildReport(inputPath, outputPath string, result *merger.Result) *report {
	output := &midifile.File{
		Format:   result.Format,
		Division: result.Division,
		Tracks:   []midifile.Track{result.Track},
	}

	return &report{
		Input:  summarizeMidi(inputPath, result.Input),
		Output: summarizeMidi(outputPath, output),
		Stats:  result.Stats,
	}
}

// smfMessage returns the event as a gomidi message. Only channel and meta
// events are handed over; system and sysex events have nothing to summarize.
func smfMessage(event midifile.Event) (smf.Message, bool) {
	switch event.Kind {
	case midifile.KindChannel, midifile.KindMeta:
		return smf.Message(event.Bytes()), true
	}
	return nil, false
}

func summarizeMidi(filename string, file *midifile.File) midiSummary {
	summary := midiSummary{
		File:       filename,
		Format:     file.Format,
		TimeFormat: file.Division.String(),
	}

	tempoMap := extractTempoMap(file.Tracks)

	for _, track := range file.Tracks {
		ts := trackSummary{
			Name:   getTrackName(track),
			Events: len(track),
		}

		channels := make(map[uint8]bool)
		instruments := make(map[uint8]string)

		var currentTime uint64
		for _, event := range track {
			currentTime += uint64(event.Delta)

			msg, ok := smfMessage(event)
			if !ok {
				continue
			}

			var ch, key, vel uint8

			if msg.GetNoteOn(&ch, &key, &vel) {
				ts.Notes++
				channels[ch] = true
			} else if msg.GetNoteOff(&ch, &key, &vel) {
				channels[ch] = true
			} else if msg.GetControlChange(&ch, &key, &vel) {
				ts.ControlChanges++
				channels[ch] = true
			} else if msg.GetProgramChange(&ch, &vel) {
				ts.ProgramChanges++
				channels[ch] = true
				instruments[ch] = describeProgram(ch, vel)
			}
		}

		ts.EndTick = currentTime
		ts.Seconds = ticksToSeconds(currentTime, tempoMap, file.Division)
		if len(channels) > 0 {
			ts.Channels = slices.Sorted(maps.Keys(channels))
		}
		if len(instruments) > 0 {
			ts.Instruments = instruments
		}

		summary.Tracks = append(summary.Tracks, ts)
	}

	return summary
}

func printMidiInfo(w io.Writer, st styles, summary midiSummary) {
	fmt.Fprintln(w, st.heading.Render("MIDI File: "+summary.File))
	fmt.Fprintf(w, "Format: %d\n", summary.Format)
	fmt.Fprintf(w, "Time format: %s\n", summary.TimeFormat)
	fmt.Fprintf(w, "Number of tracks: %d\n", len(summary.Tracks))
	fmt.Fprintln(w)

	for i, track := range summary.Tracks {
		if track.Name != "" {
			fmt.Fprintf(w, "Track %d: %s\n", i, track.Name)
		} else {
			fmt.Fprintf(w, "Track %d:\n", i)
		}
		fmt.Fprintf(w, "  Number of events: %d\n", track.Events)

		if track.Events == 0 {
			fmt.Fprintln(w, "  (empty track)")
			continue
		}

		fmt.Fprintf(w, "  Duration: %d ticks (%.2f seconds)\n", track.EndTick, track.Seconds)
		fmt.Fprintf(w, "  Note events: %d\n", track.Notes)
		fmt.Fprintf(w, "  Control change events: %d\n", track.ControlChanges)
		fmt.Fprintf(w, "  Program change events: %d\n", track.ProgramChanges)

		if len(track.Channels) > 0 {
			fmt.Fprintf(w, "  Channels used: ")
			for j, ch := range track.Channels {
				if j > 0 {
					fmt.Fprintf(w, ", ")
				}
				fmt.Fprintf(w, "%d", ch)
			}
			fmt.Fprintln(w)
		}

		if len(track.Instruments) > 0 {
			fmt.Fprintln(w, "  Instruments:")
			for _, ch := range slices.Sorted(maps.Keys(track.Instruments)) {
				fmt.Fprintf(w, "    Channel %d: %s\n", ch, track.Instruments[ch])
			}
		}

		fmt.Fprintln(w)
	}
}

func getTrackName(track midifile.Track) string {
	for _, event := range track {
		if event.Kind != midifile.KindMeta {
			continue
		}
		msg, _ := smfMessage(event)

		var trackName string
		if msg.GetMetaTrackName(&trackName) {
			return trackName
		}

		var text string
		if msg.GetMetaText(&text) {
			return text
		}
	}
	return ""
}

// extractTempoMap collects tempo changes from all tracks, sorted by time
func extractTempoMap(tracks []midifile.Track) []tempoChange {
	var tempoMap []tempoChange

	for _, track := range tracks {
		var currentTime uint64

		for _, event := range track {
			currentTime += uint64(event.Delta)

			if event.Kind != midifile.KindMeta {
				continue
			}
			msg, _ := smfMessage(event)

			var bpm float64
			if msg.GetMetaTempo(&bpm) && bpm > 0 {
				tempoMap = append(tempoMap, tempoChange{Tick: currentTime, BPM: bpm})
			}
		}
	}

	sort.SliceStable(tempoMap, func(i, j int) bool {
		return tempoMap[i].Tick < tempoMap[j].Tick
	})

	return tempoMap
}

// ticksToSeconds converts an absolute tick to seconds, following tempo
// changes for metric divisions and assuming 120 BPM until the first one
func ticksToSeconds(tick uint64, tempoMap []tempoChange, division midifile.Division) float64 {
	if division.IsSMPTE() {
		fps, ticksPerFrame := division.SMPTE()
		return float64(tick) / (float64(fps) * float64(ticksPerFrame))
	}

	ticksPerQuarter := float64(division.TicksPerQuarter())
	if ticksPerQuarter == 0 {
		return 0
	}

	var seconds float64
	var lastTick uint64
	bpm := 120.0

	for _, tempo := range tempoMap {
		if tempo.Tick >= tick {
			break
		}
		seconds += float64(tempo.Tick-lastTick) / ticksPerQuarter * 60 / bpm
		lastTick = tempo.Tick
		bpm = tempo.BPM
	}

	seconds += float64(tick-lastTick) / ticksPerQuarter * 60 / bpm
	return seconds
}

// dumpTrack lists the merged track one event per line
func dumpTrack(w io.Writer, result *merger.Result) {
	var tick uint64
	for _, event := range result.Track {
		tick += uint64(event.Delta)
		fmt.Fprintf(w, "%10d  +%-8d %s\n", tick, event.Delta, describeEvent(event))
	}
}

func describeEvent(event midifile.Event) string {
	if msg, ok := smfMessage(event); ok {
		return msg.String()
	}
	return event.String()
}
