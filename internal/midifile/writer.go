package midifile

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Writer serializes a File back to SMF bytes
type Writer struct {
	// RunningStatus omits repeated channel status bytes
	RunningStatus bool
}

// Write encodes f and writes it to out
func (w Writer) Write(out io.Writer, f *File) error {
	data, err := w.Encode(f)
	if err != nil {
		return err
	}

	_, err = out.Write(data)
	return err
}

// Encode returns the complete SMF encoding of f. The header is written
// with the format and division of f and a track count equal to the number
// of tracks it holds.
func (w Writer) Encode(f *File) ([]byte, error) {
	if len(f.Tracks) > math.MaxUint16 {
		return nil, fmt.Errorf("%w: %d tracks, limited to %d", ErrEncodeOverflow, len(f.Tracks), math.MaxUint16)
	}

	out := make([]byte, 0, chunkHeaderSize+headerSize+f.EventCount()*4)
	out = append(out, headerTag...)
	out = binary.BigEndian.AppendUint32(out, headerSize)
	out = binary.BigEndian.AppendUint16(out, f.Format)
	out = binary.BigEndian.AppendUint16(out, uint16(len(f.Tracks)))
	out = binary.BigEndian.AppendUint16(out, uint16(f.Division))

	for i, track := range f.Tracks {
		var err error
		out, err = w.appendTrack(out, track)
		if err != nil {
			return nil, fmt.Errorf("track %d: %w", i, err)
		}
	}

	return out, nil
}

// EncodeTrack returns the MTrk chunk for a single track
func (w Writer) EncodeTrack(track Track) ([]byte, error) {
	return w.appendTrack(nil, track)
}

func (w Writer) appendTrack(out []byte, track Track) ([]byte, error) {
	start := len(out)
	out = append(out, trackTag...)
	// length is patched once the body is known
	out = append(out, 0, 0, 0, 0)

	var running byte
	runningPtr := (*byte)(nil)
	if w.RunningStatus {
		runningPtr = &running
	}

	for i, event := range track {
		if event.Delta > MaxVLQ {
			return nil, fmt.Errorf("%w: event %d delta time %d exceeds %d", ErrEncodeOverflow, i, event.Delta, MaxVLQ)
		}
		if (event.Kind == KindMeta || event.Kind == KindSysEx) && uint64(len(event.Data)) > MaxVLQ {
			return nil, fmt.Errorf("%w: event %d payload of %d bytes exceeds %d", ErrEncodeOverflow, i, len(event.Data), MaxVLQ)
		}

		out = AppendVLQ(out, event.Delta)
		out = event.appendTo(out, runningPtr)
	}

	if !track.Closed() {
		out = AppendVLQ(out, 0)
		out = EndOfTrack(0).appendTo(out, runningPtr)
	}

	bodyLen := uint64(len(out) - start - chunkHeaderSize)
	if bodyLen > math.MaxUint32 {
		return nil, fmt.Errorf("%w: track body of %d bytes exceeds chunk length field", ErrEncodeOverflow, bodyLen)
	}
	binary.BigEndian.PutUint32(out[start+4:start+chunkHeaderSize], uint32(bodyLen))

	return out, nil
}
