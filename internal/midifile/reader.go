package midifile

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Read reads a complete SMF from r and parses it
func Read(r io.Reader) (*File, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse parses the SMF held in data. Event payloads in the returned File
// share memory with data.
func Parse(data []byte) (*File, error) {
	if len(data) < chunkHeaderSize+headerSize {
		return nil, fmt.Errorf("%w: file is %d bytes, need at least %d", ErrInvalidHeader, len(data), chunkHeaderSize+headerSize)
	}

	if tag := string(data[0:4]); tag != headerTag {
		return nil, fmt.Errorf("%w: expected %s chunk, found %q", ErrInvalidHeader, headerTag, tag)
	}

	if length := binary.BigEndian.Uint32(data[4:8]); length != headerSize {
		return nil, fmt.Errorf("%w: header length is %d, must be %d", ErrInvalidHeader, length, headerSize)
	}

	file := &File{
		Format:   binary.BigEndian.Uint16(data[8:10]),
		Division: Division(binary.BigEndian.Uint16(data[12:14])),
	}
	trackCount := int(binary.BigEndian.Uint16(data[10:12]))

	if file.Format > 2 {
		return nil, fmt.Errorf("%w: unsupported format %d", ErrInvalidHeader, file.Format)
	}

	if !file.Division.Valid() {
		return nil, fmt.Errorf("%w: invalid time division 0x%04X", ErrInvalidHeader, uint16(file.Division))
	}

	file.Tracks = make([]Track, 0, trackCount)
	pos := chunkHeaderSize + headerSize

	for len(file.Tracks) < trackCount {
		index := len(file.Tracks)

		if len(data)-pos < chunkHeaderSize {
			return nil, fmt.Errorf("%w: track %d: file ends at offset %d, %d of %d tracks read",
				ErrTruncatedTrack, index, len(data), index, trackCount)
		}

		tag := string(data[pos : pos+4])
		length := uint64(binary.BigEndian.Uint32(data[pos+4 : pos+8]))
		pos += chunkHeaderSize

		if available := uint64(len(data) - pos); length > available {
			return nil, fmt.Errorf("%w: track %d: chunk declares %d bytes, only %d remain",
				ErrTruncatedTrack, index, length, available)
		}

		body := data[pos : pos+int(length)]
		pos += int(length)

		// skip alien chunks
		if tag != trackTag {
			continue
		}

		track, err := parseTrack(body)
		if err != nil {
			return nil, fmt.Errorf("track %d: %w", index, err)
		}

		file.Tracks = append(file.Tracks, track)
	}

	return file, nil
}

// parseTrack decodes the events of one MTrk chunk body. The body must end
// exactly with its end-of-track event; a body that runs out before one means
// the declared chunk length is too short.
func parseTrack(body []byte) (Track, error) {
	// guess roughly 3 bytes per event
	track := make(Track, 0, len(body)/3)
	var running byte
	pos := 0

	for pos < len(body) {
		delta, n, err := DecodeVLQ(body, pos)
		if err != nil {
			return nil, vlqError(err, "delta time", pos)
		}
		pos += n

		event, n, err := parseEvent(body, pos, &running)
		if err != nil {
			return nil, err
		}
		pos += n

		event.Delta = delta
		track = append(track, event)

		if event.IsEndOfTrack() {
			if pos != len(body) {
				return nil, fmt.Errorf("%w: %d bytes after end of track at offset %d", ErrTruncatedTrack, len(body)-pos, pos)
			}
			return track, nil
		}
	}

	return nil, fmt.Errorf("%w: chunk ends after %d events without an end of track", ErrTruncatedTrack, len(track))
}

// parseEvent decodes the event starting at pos, returning it with the
// number of bytes used. running holds the running status and is updated.
func parseEvent(body []byte, pos int, running *byte) (Event, int, error) {
	if pos >= len(body) {
		return Event{}, 0, fmt.Errorf("%w: chunk ends after delta time at offset %d", ErrTruncatedTrack, pos)
	}

	status := body[pos]
	n := 1

	if status < 0x80 {
		if *running == 0 {
			return Event{}, 0, fmt.Errorf("%w: data byte 0x%02X at offset %d with no running status", ErrUnknownStatus, status, pos)
		}
		status = *running
		n = 0
	}

	switch {
	case status == statusMeta:
		*running = 0

		if pos+n >= len(body) {
			return Event{}, 0, fmt.Errorf("%w: meta event at offset %d has no type", ErrTruncatedTrack, pos)
		}
		metaType := body[pos+n]
		n++

		payload, m, err := readPayload(body, pos+n, "meta event")
		if err != nil {
			return Event{}, 0, err
		}
		return Event{Kind: KindMeta, Status: statusMeta, MetaType: metaType, Data: payload}, n + m, nil

	case status == statusSysEx || status == statusSysExEscape:
		*running = 0

		payload, m, err := readPayload(body, pos+n, "sysex event")
		if err != nil {
			return Event{}, 0, err
		}
		return Event{Kind: KindSysEx, Status: status, Data: payload}, n + m, nil
	}

	size, ok := dataLength(status)
	if !ok {
		return Event{}, 0, fmt.Errorf("%w: status byte 0x%02X at offset %d", ErrUnknownStatus, status, pos)
	}

	kind := KindChannel
	if status >= 0xF0 {
		kind = KindSystem
		if !isRealTime(status) {
			*running = 0
		}
	} else {
		*running = status
	}

	start := pos + n
	end := start + size
	if end > len(body) {
		return Event{}, 0, fmt.Errorf("%w: message 0x%02X at offset %d needs %d data bytes, %d remain",
			ErrTruncatedTrack, status, pos, size, len(body)-start)
	}

	return Event{Kind: kind, Status: status, Data: body[start:end:end]}, n + size, nil
}

// readPayload reads a VLQ length followed by that many bytes
func readPayload(body []byte, pos int, what string) ([]byte, int, error) {
	length, n, err := DecodeVLQ(body, pos)
	if err != nil {
		return nil, 0, vlqError(err, what+" length", pos)
	}

	start := pos + n
	if uint64(length) > uint64(len(body)-start) {
		return nil, 0, fmt.Errorf("%w: %s at offset %d declares %d bytes, %d remain",
			ErrTruncatedTrack, what, pos, length, len(body)-start)
	}

	end := start + int(length)
	return body[start:end:end], n + int(length), nil
}

func vlqError(err error, what string, pos int) error {
	if errors.Is(err, errVLQIncomplete) {
		return fmt.Errorf("%w: %s at offset %d runs past end of chunk", ErrTruncatedTrack, what, pos)
	}
	return fmt.Errorf("%s at offset %d: %w", what, pos, err)
}
