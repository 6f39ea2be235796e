package midifile

import "fmt"

const (
	statusMeta        = 0xFF
	statusSysEx       = 0xF0
	statusSysExEscape = 0xF7

	// MetaEndOfTrack is the meta event type closing every track
	MetaEndOfTrack = 0x2F
)

// Kind discriminates the event categories of a track
type Kind uint8

const (
	KindChannel Kind = iota // channel voice and mode messages (0x80-0xEF)
	KindSystem              // system common and real-time messages
	KindMeta                // 0xFF meta events
	KindSysEx               // 0xF0 and 0xF7 escapes
)

func (k Kind) String() string {
	switch k {
	case KindChannel:
		return "channel"
	case KindSystem:
		return "system"
	case KindMeta:
		return "meta"
	case KindSysEx:
		return "sysex"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Event is a single track event. Data holds the data bytes for channel and
// system messages, and the payload without its length prefix for meta and
// sysex events.
type Event struct {
	Delta    uint32
	Kind     Kind
	Status   byte
	MetaType byte // meta events only
	Data     []byte
}

// ChannelEvent builds a channel message event
func ChannelEvent(delta uint32, status byte, data ...byte) Event {
	return Event{Delta: delta, Kind: KindChannel, Status: status, Data: data}
}

// MetaEvent builds a meta event of the given type
func MetaEvent(delta uint32, metaType byte, payload []byte) Event {
	return Event{Delta: delta, Kind: KindMeta, Status: statusMeta, MetaType: metaType, Data: payload}
}

// EndOfTrack builds the end-of-track meta event
func EndOfTrack(delta uint32) Event {
	return MetaEvent(delta, MetaEndOfTrack, nil)
}

// IsEndOfTrack reports whether the event is the end-of-track meta event
func (e Event) IsEndOfTrack() bool {
	return e.Kind == KindMeta && e.MetaType == MetaEndOfTrack
}

// Bytes returns the full encoding of the event without its delta time and
// without running status
func (e Event) Bytes() []byte {
	return e.appendTo(nil, nil)
}

// appendTo encodes the event onto dst. When running is non-nil it holds the
// status of the previous channel message and the status byte is omitted if
// it repeats.
func (e Event) appendTo(dst []byte, running *byte) []byte {
	switch e.Kind {
	case KindMeta:
		dst = append(dst, statusMeta, e.MetaType)
		dst = AppendVLQ(dst, uint32(len(e.Data)))
		dst = append(dst, e.Data...)
		clearRunning(running)
	case KindSysEx:
		dst = append(dst, e.Status)
		dst = AppendVLQ(dst, uint32(len(e.Data)))
		dst = append(dst, e.Data...)
		clearRunning(running)
	case KindSystem:
		dst = append(dst, e.Status)
		dst = append(dst, e.Data...)
		if !isRealTime(e.Status) {
			clearRunning(running)
		}
	default:
		if running == nil || *running != e.Status {
			dst = append(dst, e.Status)
		}
		if running != nil {
			*running = e.Status
		}
		dst = append(dst, e.Data...)
	}
	return dst
}

func (e Event) String() string {
	switch e.Kind {
	case KindMeta:
		return fmt.Sprintf("meta 0x%02X len %d", e.MetaType, len(e.Data))
	case KindSysEx:
		return fmt.Sprintf("sysex 0x%02X len %d", e.Status, len(e.Data))
	}
	return fmt.Sprintf("%s 0x%02X % X", e.Kind, e.Status, e.Data)
}

func clearRunning(running *byte) {
	if running != nil {
		*running = 0
	}
}

func isRealTime(status byte) bool {
	return status >= 0xF8
}

// dataLength returns the number of data bytes following a channel or
// system status byte. ok is false for statuses with no defined layout.
func dataLength(status byte) (n int, ok bool) {
	switch status & 0xF0 {
	case 0x80, 0x90, 0xA0, 0xB0, 0xE0:
		return 2, true
	case 0xC0, 0xD0:
		return 1, true
	}

	switch status {
	case 0xF1, 0xF3:
		return 1, true
	case 0xF2:
		return 2, true
	case 0xF6, 0xF8, 0xFA, 0xFB, 0xFC, 0xFE:
		return 0, true
	}

	return 0, false
}
