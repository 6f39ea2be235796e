package midifile

import (
	"bytes"
	"errors"
	"math/bits"
	"testing"
)

var vlqCases = []struct {
	value   uint32
	encoded []byte
}{
	{0x00000000, []byte{0x00}},
	{0x00000040, []byte{0x40}},
	{0x0000007F, []byte{0x7F}},
	{0x00000080, []byte{0x81, 0x00}},
	{0x00002000, []byte{0xC0, 0x00}},
	{0x00003FFF, []byte{0xFF, 0x7F}},
	{0x00004000, []byte{0x81, 0x80, 0x00}},
	{0x001FFFFF, []byte{0xFF, 0xFF, 0x7F}},
	{0x00200000, []byte{0x81, 0x80, 0x80, 0x00}},
	{0x08000000, []byte{0xC0, 0x80, 0x80, 0x00}},
	{0x0FFFFFFF, []byte{0xFF, 0xFF, 0xFF, 0x7F}},
}

func TestEncodeVLQ(t *testing.T) {
	for _, tc := range vlqCases {
		got := EncodeVLQ(tc.value)
		if !bytes.Equal(got, tc.encoded) {
			t.Errorf("EncodeVLQ(0x%X): expected % X, got % X", tc.value, tc.encoded, got)
		}
		if VLQLen(tc.value) != len(tc.encoded) {
			t.Errorf("VLQLen(0x%X): expected %d, got %d", tc.value, len(tc.encoded), VLQLen(tc.value))
		}
	}
}

func TestDecodeVLQ(t *testing.T) {
	for _, tc := range vlqCases {
		// place the quantity after a prefix to exercise the offset
		data := append([]byte{0xAA, 0xBB}, tc.encoded...)
		data = append(data, 0x90)

		value, n, err := DecodeVLQ(data, 2)
		if err != nil {
			t.Errorf("DecodeVLQ(% X): unexpected error: %v", tc.encoded, err)
			continue
		}
		if value != tc.value {
			t.Errorf("DecodeVLQ(% X): expected 0x%X, got 0x%X", tc.encoded, tc.value, value)
		}
		if n != len(tc.encoded) {
			t.Errorf("DecodeVLQ(% X): expected %d bytes consumed, got %d", tc.encoded, len(tc.encoded), n)
		}
	}
}

func TestVLQRoundTrip(t *testing.T) {
	check := func(v uint32) {
		encoded := EncodeVLQ(v)

		minimal := (bits.Len32(v) + 6) / 7
		if minimal == 0 {
			minimal = 1
		}
		if len(encoded) != minimal {
			t.Fatalf("EncodeVLQ(0x%X) used %d bytes, minimal is %d", v, len(encoded), minimal)
		}

		value, n, err := DecodeVLQ(encoded, 0)
		if err != nil {
			t.Fatalf("DecodeVLQ(EncodeVLQ(0x%X)) failed: %v", v, err)
		}
		if value != v || n != len(encoded) {
			t.Fatalf("round trip of 0x%X gave (0x%X, %d), expected (0x%X, %d)", v, value, n, v, len(encoded))
		}
	}

	for shift := 0; shift < 28; shift++ {
		edge := uint32(1) << shift
		check(edge - 1)
		check(edge)
		check(edge + 1)
	}

	for v := uint32(0); v <= MaxVLQ; v += 7919 {
		check(v)
	}
	check(MaxVLQ)
}

func TestDecodeVLQErrors(t *testing.T) {
	tests := []struct {
		name       string
		data       []byte
		incomplete bool
	}{
		{"empty", []byte{}, true},
		{"missing final byte", []byte{0x81}, true},
		{"three continuation bytes", []byte{0xFF, 0xFF, 0xFF}, true},
		{"five byte quantity", []byte{0x80, 0x80, 0x80, 0x80, 0x00}, false},
		{"32 bit value in five bytes", []byte{0x8F, 0xFF, 0xFF, 0xFF, 0x7F}, false},
		{"exceeds 32 bits", []byte{0xFF, 0xFF, 0xFF, 0xFF, 0x7F}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := DecodeVLQ(tt.data, 0)
			if !errors.Is(err, ErrMalformedVLQ) {
				t.Fatalf("Expected ErrMalformedVLQ, got %v", err)
			}
			if errors.Is(err, errVLQIncomplete) != tt.incomplete {
				t.Errorf("Expected incomplete=%v, got error %v", tt.incomplete, err)
			}
		})
	}
}

func TestAppendVLQ(t *testing.T) {
	dst := []byte{0x00, 0xFF}
	dst = AppendVLQ(dst, 480)

	expected := []byte{0x00, 0xFF, 0x83, 0x60}
	if !bytes.Equal(dst, expected) {
		t.Errorf("Expected % X, got % X", expected, dst)
	}
}
