package midifile

import "errors"

var (
	// ErrInvalidHeader is returned when the MThd chunk is missing or malformed
	ErrInvalidHeader = errors.New("invalid header")
	// ErrTruncatedTrack is returned when a track chunk's declared length
	// does not match the events it contains
	ErrTruncatedTrack = errors.New("truncated track")
	// ErrUnknownStatus is returned for a status byte outside all recognized
	// ranges, or a data byte with no running status to apply
	ErrUnknownStatus = errors.New("unknown status")
	// ErrMalformedVLQ is returned for a variable-length quantity that never
	// terminates or does not fit in 32 bits
	ErrMalformedVLQ = errors.New("malformed variable-length quantity")
	// ErrEncodeOverflow is returned when a value cannot be written as a VLQ
	ErrEncodeOverflow = errors.New("encode overflow")
	// ErrUnmergeableFormat is returned for files whose tracks do not share a
	// single timeline (format 2)
	ErrUnmergeableFormat = errors.New("unmergeable format")
)
