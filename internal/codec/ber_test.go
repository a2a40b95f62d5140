package codec

import (
	"bytes"
	"testing"
)

func TestLengthRoundTrip(t *testing.T) {
	values := []uint64{
		0, 1, 0x7f, 0x80, 0xff, 0x100, 0x1234, 0xffff, 0x10000,
		0xffffff, 0xdeadbeef, 1 << 32, 1 << 56, 0xffffffffffffffff,
	}
	for _, v := range values {
		enc := encodeLength(v)
		got, consumed := decodeLength(enc)
		if got != v || consumed != len(enc) {
			t.Fatalf("round trip of %#x: got (%#x, %d), want (%#x, %d)", v, got, consumed, v, len(enc))
		}
		if uint64(len(enc)) != encodedLengthSize(v) {
			t.Fatalf("encodedLengthSize(%#x) = %d, want %d", v, encodedLengthSize(v), len(enc))
		}
	}
}

func TestEncodeLengthForms(t *testing.T) {
	tests := []struct {
		value uint64
		want  []byte
	}{
		{0x00, []byte{0x00}},
		{0x7f, []byte{0x7f}},
		{0x80, []byte{0x81, 0x80}},
		{0xff, []byte{0x81, 0xff}},
		{0x100, []byte{0x82, 0x01, 0x00}},
		{0x1234, []byte{0x82, 0x12, 0x34}},
		{0x123456, []byte{0x83, 0x12, 0x34, 0x56}},
	}
	for _, tt := range tests {
		if got := encodeLength(tt.value); !bytes.Equal(got, tt.want) {
			t.Errorf("encodeLength(%#x) = % x, want % x", tt.value, got, tt.want)
		}
	}
}

func TestDecodeLengthMalformed(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
	}{
		{"empty", nil},
		{"length_of_length_too_large", []byte{0x89, 1, 2, 3, 4, 5, 6, 7, 8, 9}},
		{"truncated_long_form", []byte{0x82, 0x01}},
		{"long_form_without_value_bytes", []byte{0x84}},
		{"indefinite_form", []byte{0x80}},
	}
	for _, tt := range tests {
		v, consumed := decodeLength(tt.input)
		if v != 0 || consumed != 0 {
			t.Errorf("%s: decodeLength(% x) = (%d, %d), want (0, 0)", tt.name, tt.input, v, consumed)
		}
	}
}
