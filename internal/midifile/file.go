// Package midifile reads and writes Standard MIDI Files (SMF).
//
// A file is parsed from a byte buffer into a File holding the header
// fields and one Track per MTrk chunk. Each Track is the list of events in
// the order stored, with delta times relative to the previous event in the
// same track. Event payloads are kept opaque: the package understands the
// status-byte layout well enough to find event boundaries and re-encode
// them, and recognizes the end-of-track meta event, nothing more.
//
// Basic Usage:
//
//	file, err := midifile.Parse(data)
//	if err != nil {
//		return err
//	}
//	fmt.Printf("format %d, %d tracks, %s\n", file.Format, len(file.Tracks), file.Division)
//
//	var buf bytes.Buffer
//	w := midifile.Writer{RunningStatus: true}
//	if err := w.Write(&buf, file); err != nil {
//		return err
//	}
//
// File Format:
//
// An SMF is a sequence of chunks, each an ASCII tag followed by a
// big-endian 32-bit length:
//   - MThd: format, track count and time division (always 6 bytes)
//   - MTrk: a stream of (delta-time VLQ, event) pairs
//
// Chunks with other tags are skipped when reading.
package midifile

import "fmt"

const (
	headerTag  = "MThd"
	trackTag   = "MTrk"
	headerSize = 6

	chunkHeaderSize = 8
)

// Division is the time division field of the MThd chunk, kept exactly as
// stored.
type Division uint16

// IsSMPTE reports whether the division is an SMPTE frame rate rather than
// ticks per quarter note
func (d Division) IsSMPTE() bool {
	return d&0x8000 != 0
}

// TicksPerQuarter returns the ticks per quarter note, or 0 for SMPTE divisions
func (d Division) TicksPerQuarter() uint16 {
	if d.IsSMPTE() {
		return 0
	}
	return uint16(d)
}

// SMPTE returns the frames per second and ticks per frame, or 0, 0 for
// metric divisions
func (d Division) SMPTE() (uint8, uint8) {
	if !d.IsSMPTE() {
		return 0, 0
	}
	// frames per second is stored as a negative 8-bit value
	fps := uint8(-int8(d >> 8))
	return fps, uint8(d & 0xFF)
}

// Valid reports whether the division describes a positive resolution
func (d Division) Valid() bool {
	if d.IsSMPTE() {
		fps, ticks := d.SMPTE()
		return fps != 0 && ticks != 0
	}
	return d != 0
}

func (d Division) String() string {
	if d.IsSMPTE() {
		fps, ticks := d.SMPTE()
		return fmt.Sprintf("%d frames per second, %d ticks per frame", fps, ticks)
	}
	return fmt.Sprintf("%d ticks per quarter note", uint16(d))
}

// Track is the ordered list of events of one MTrk chunk
type Track []Event

// EndTick returns the absolute tick of the last event in the track
func (t Track) EndTick() uint64 {
	var tick uint64
	for _, ev := range t {
		tick += uint64(ev.Delta)
	}
	return tick
}

// Closed reports whether the track ends with an end-of-track event
func (t Track) Closed() bool {
	return len(t) > 0 && t[len(t)-1].IsEndOfTrack()
}

// File is a parsed Standard MIDI File
type File struct {
	Format   uint16   // 0 single track, 1 simultaneous tracks, 2 independent sequences
	Division Division // ticks per quarter note or SMPTE timing, never altered
	Tracks   []Track
}

// EventCount returns the number of events across all tracks
func (f *File) EventCount() int {
	count := 0
	for _, track := range f.Tracks {
		count += len(track)
	}
	return count
}

// SharedTimeline reports whether the tracks of the file play against one
// timeline, which is what makes them mergeable
func (f *File) SharedTimeline() bool {
	return f.Format == 0 || f.Format == 1
}
