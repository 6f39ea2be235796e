package midifile

import (
	"bytes"
	"errors"
	"testing"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

func TestEncodeReproducesInput(t *testing.T) {
	data := smfBytes(1, 2, 480,
		chunk("MTrk",
			0x00, 0xFF, 0x03, 0x05, 0x50, 0x69, 0x61, 0x6E, 0x6F, // Track name: "Piano"
			0x00, 0xF0, 0x03, 0x43, 0x12, 0xF7, // Sysex
			0x00, 0x90, 0x3C, 0x64, // Note on
			0x83, 0x60, 0x80, 0x3C, 0x00, // Note off
			0x00, 0xFF, 0x2F, 0x00, // End of track
		),
		chunk("MTrk",
			0x81, 0x70, 0xB1, 0x07, 0x64, // Control change
			0x00, 0xE1, 0x00, 0x40, // Pitch bend
			0x00, 0xFF, 0x2F, 0x00, // End of track
		),
	)

	file, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	encoded, err := Writer{}.Encode(file)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	if !bytes.Equal(encoded, data) {
		t.Errorf("Encoded file differs from input\nexpected % X\ngot      % X", data, encoded)
	}
}

func TestEncodeRunningStatus(t *testing.T) {
	track := Track{
		ChannelEvent(0, 0x90, 0x3C, 0x64),
		ChannelEvent(0, 0x90, 0x40, 0x64),
		ChannelEvent(0, 0x90, 0x43, 0x64),
		MetaEvent(240, 0x01, []byte("hi")),
		ChannelEvent(0, 0x90, 0x3C, 0x00),
		EndOfTrack(0),
	}

	plain, err := Writer{}.EncodeTrack(track)
	if err != nil {
		t.Fatalf("EncodeTrack failed: %v", err)
	}
	compact, err := Writer{RunningStatus: true}.EncodeTrack(track)
	if err != nil {
		t.Fatalf("EncodeTrack with running status failed: %v", err)
	}

	// two repeated note on statuses are dropped; the one after the meta event is kept
	if len(plain)-len(compact) != 2 {
		t.Errorf("Expected running status to save 2 bytes, plain %d compact %d", len(plain), len(compact))
	}

	expectedBody := []byte{
		0x00, 0x90, 0x3C, 0x64,
		0x00, 0x40, 0x64,
		0x00, 0x43, 0x64,
		0x81, 0x70, 0xFF, 0x01, 0x02, 0x68, 0x69,
		0x00, 0x90, 0x3C, 0x00,
		0x00, 0xFF, 0x2F, 0x00,
	}
	if !bytes.Equal(compact[8:], expectedBody) {
		t.Errorf("Expected body % X, got % X", expectedBody, compact[8:])
	}

	file, err := Parse(smfBytes(0, 1, 480, compact))
	if err != nil {
		t.Fatalf("Parse of running status output failed: %v", err)
	}
	if len(file.Tracks[0]) != len(track) {
		t.Fatalf("Expected %d events after re-parse, got %d", len(track), len(file.Tracks[0]))
	}
	for i, ev := range file.Tracks[0] {
		if ev.Delta != track[i].Delta || ev.Status != track[i].Status || !bytes.Equal(ev.Data, track[i].Data) {
			t.Errorf("Event %d: expected %v, got %v", i, track[i], ev)
		}
	}
}

func TestEncodeAppendsEndOfTrack(t *testing.T) {
	file := &File{
		Format:   0,
		Division: 480,
		Tracks:   []Track{{ChannelEvent(0, 0x90, 0x3C, 0x64), ChannelEvent(480, 0x80, 0x3C, 0x00)}},
	}

	encoded, err := Writer{}.Encode(file)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	parsed, err := Parse(encoded)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(parsed.Tracks[0]) != 3 || !parsed.Tracks[0].Closed() {
		t.Errorf("Expected 3 events ending in end of track, got %d", len(parsed.Tracks[0]))
	}
}

func TestEncodeHeader(t *testing.T) {
	file := &File{Format: 1, Division: 0xE728, Tracks: []Track{{EndOfTrack(0)}}}

	encoded, err := Writer{}.Encode(file)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	expected := []byte{
		0x4D, 0x54, 0x68, 0x64, // MThd
		0x00, 0x00, 0x00, 0x06, // Header length
		0x00, 0x01, // Format 1
		0x00, 0x01, // One track
		0xE7, 0x28, // SMPTE division kept as is
		0x4D, 0x54, 0x72, 0x6B, // MTrk
		0x00, 0x00, 0x00, 0x04, // Track length
		0x00, 0xFF, 0x2F, 0x00, // End of track
	}
	if !bytes.Equal(encoded, expected) {
		t.Errorf("Expected % X, got % X", expected, encoded)
	}
}

func TestEncodeOverflow(t *testing.T) {
	file := &File{
		Format:   1,
		Division: 480,
		Tracks:   []Track{{ChannelEvent(MaxVLQ+1, 0x90, 0x3C, 0x64), EndOfTrack(0)}},
	}

	_, err := Writer{}.Encode(file)
	if !errors.Is(err, ErrEncodeOverflow) {
		t.Errorf("Expected ErrEncodeOverflow, got %v", err)
	}

	file.Tracks[0][0].Delta = MaxVLQ
	if _, err := (Writer{}).Encode(file); err != nil {
		t.Errorf("Delta of exactly %d should encode, got %v", MaxVLQ, err)
	}
}

func TestWriteToWriter(t *testing.T) {
	file := &File{Format: 0, Division: 96, Tracks: []Track{{EndOfTrack(0)}}}

	var buf bytes.Buffer
	if err := (Writer{}).Write(&buf, file); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if buf.Len() != 14+8+4 {
		t.Errorf("Expected 26 bytes, got %d", buf.Len())
	}
}

// Output must be readable by an independent SMF implementation
func TestEncodeReadableByGomidi(t *testing.T) {
	file := &File{
		Format:   1,
		Division: 960,
		Tracks: []Track{{
			MetaEvent(0, 0x03, []byte("Lead")),
			ChannelEvent(0, 0xC2, 0x18),
			ChannelEvent(0, 0x92, 0x3C, 0x64),
			ChannelEvent(0, 0x92, 0x43, 0x50),
			ChannelEvent(960, 0x82, 0x3C, 0x00),
			ChannelEvent(0, 0x82, 0x43, 0x00),
			EndOfTrack(0),
		}},
	}

	for _, running := range []bool{false, true} {
		encoded, err := Writer{RunningStatus: running}.Encode(file)
		if err != nil {
			t.Fatalf("Encode failed: %v", err)
		}

		smfData, err := smf.ReadFrom(bytes.NewReader(encoded))
		if err != nil {
			t.Fatalf("gomidi could not read output (running status %v): %v", running, err)
		}

		if tf, ok := smfData.TimeFormat.(smf.MetricTicks); !ok || tf != 960 {
			t.Errorf("Expected 960 metric ticks, got %v", smfData.TimeFormat)
		}
		if len(smfData.Tracks) != 1 {
			t.Fatalf("Expected 1 track, got %d", len(smfData.Tracks))
		}

		track := smfData.Tracks[0]
		if len(track) != len(file.Tracks[0]) {
			t.Fatalf("Expected %d events, got %d", len(file.Tracks[0]), len(track))
		}

		var name string
		if !track[0].Message.GetMetaTrackName(&name) || name != "Lead" {
			t.Errorf("Expected track name 'Lead', got %v", track[0].Message)
		}

		var ch, key, vel uint8
		if !track[3].Message.GetNoteOn(&ch, &key, &vel) || ch != 2 || key != 0x43 || vel != 0x50 {
			t.Errorf("Expected note on ch 2 key 67 vel 80, got %v", track[3].Message)
		}
		if track[4].Delta != 960 {
			t.Errorf("Expected delta 960, got %d", track[4].Delta)
		}
	}
}

// Files written by gomidi parse into the same events
func TestParseGomidiOutput(t *testing.T) {
	s := smf.NewSMF1()
	s.TimeFormat = smf.MetricTicks(480)

	conductor := smf.Track{}
	conductor = append(conductor, smf.Event{Delta: 0, Message: smf.MetaTempo(120.0)})
	conductor = append(conductor, smf.Event{Delta: 0, Message: smf.MetaTimeSig(4, 4, 24, 8)})
	conductor = append(conductor, smf.Event{Delta: 1920, Message: smf.EOT})
	s.Add(conductor)

	notes := smf.Track{}
	notes = append(notes, smf.Event{Delta: 0, Message: smf.Message(midi.ProgramChange(1, 33))})
	notes = append(notes, smf.Event{Delta: 0, Message: smf.Message(midi.NoteOn(1, 40, 90))})
	notes = append(notes, smf.Event{Delta: 480, Message: smf.Message(midi.NoteOn(1, 40, 0))})
	notes = append(notes, smf.Event{Delta: 0, Message: smf.Message(midi.NoteOn(1, 43, 90))})
	notes = append(notes, smf.Event{Delta: 480, Message: smf.Message(midi.NoteOff(1, 43))})
	notes = append(notes, smf.Event{Delta: 0, Message: smf.EOT})
	s.Add(notes)

	var buf bytes.Buffer
	if _, err := s.WriteTo(&buf); err != nil {
		t.Fatalf("gomidi WriteTo failed: %v", err)
	}

	file, err := Parse(buf.Bytes())
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if file.Format != 1 || file.Division != 480 {
		t.Errorf("Expected format 1 at 480 ticks, got format %d at %s", file.Format, file.Division)
	}
	if len(file.Tracks) != 2 {
		t.Fatalf("Expected 2 tracks, got %d", len(file.Tracks))
	}
	if len(file.Tracks[0]) != 3 || len(file.Tracks[1]) != 6 {
		t.Fatalf("Expected 3 and 6 events, got %d and %d", len(file.Tracks[0]), len(file.Tracks[1]))
	}
	if file.Tracks[0].EndTick() != 1920 || file.Tracks[1].EndTick() != 960 {
		t.Errorf("Expected end ticks 1920 and 960, got %d and %d", file.Tracks[0].EndTick(), file.Tracks[1].EndTick())
	}

	noteOn := file.Tracks[1][1]
	if noteOn.Status != 0x91 || !bytes.Equal(noteOn.Data, []byte{40, 90}) {
		t.Errorf("Expected note on 0x91 [28 5A], got %v", noteOn)
	}
	if tempo := file.Tracks[0][0]; tempo.MetaType != 0x51 || !bytes.Equal(tempo.Data, []byte{0x07, 0xA1, 0x20}) {
		t.Errorf("Expected tempo 500000us, got %v", tempo)
	}
}
