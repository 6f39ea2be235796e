package midifile

import "fmt"

const (
	// MaxVLQ is the largest value a four byte variable-length quantity holds
	MaxVLQ = 0x0FFFFFFF

	maxVLQBytes = 4
)

// errVLQIncomplete marks a quantity cut off by the end of the data, which
// the reader reports as a truncated track rather than a malformed value.
var errVLQIncomplete = fmt.Errorf("%w: data ends before final byte", ErrMalformedVLQ)

// DecodeVLQ reads a variable-length quantity starting at offset.
// It returns the value and the number of bytes consumed. On error the
// consumed count says how far the decoder got. Quantities longer than four
// bytes are malformed even when the value would fit in 32 bits, since the
// writer could never emit them.
func DecodeVLQ(data []byte, offset int) (uint32, int, error) {
	var value uint32
	n := 0

	for n < maxVLQBytes {
		if offset+n >= len(data) {
			return 0, n, errVLQIncomplete
		}

		b := data[offset+n]
		n++
		value = value<<7 | uint32(b&0x7F)

		if b&0x80 == 0 {
			return value, n, nil
		}
	}

	return 0, n, fmt.Errorf("%w: continuation bit set on byte %d at offset %d", ErrMalformedVLQ, maxVLQBytes, offset)
}

// EncodeVLQ returns the minimal encoding of value. Values above MaxVLQ are
// encoded in five bytes, which no SMF reader accepts; callers writing
// files check the range first.
func EncodeVLQ(value uint32) []byte {
	return AppendVLQ(nil, value)
}

// AppendVLQ appends the minimal encoding of value to dst
func AppendVLQ(dst []byte, value uint32) []byte {
	var buf [5]byte
	pos := len(buf) - 1

	buf[pos] = byte(value & 0x7F)
	value >>= 7

	for value > 0 {
		pos--
		buf[pos] = byte(value&0x7F) | 0x80
		value >>= 7
	}

	return append(dst, buf[pos:]...)
}

// VLQLen returns how many bytes EncodeVLQ would produce for value
func VLQLen(value uint32) int {
	n := 1
	for value >>= 7; value > 0; value >>= 7 {
		n++
	}
	return n
}
