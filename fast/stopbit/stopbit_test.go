// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package stopbit

import (
	"bytes"
	"testing"
)

func encodeBuf(t *testing.T, f func(ByteSink) error) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := f(&buf); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func TestEncodeUnsigned(t *testing.T) {
	cases := []struct {
		u    uint64
		want []byte
	}{
		{0, []byte{0x80}},
		{1, []byte{0x81}},
		{127, []byte{0xff}},
		{128, []byte{0x01, 0x80}},
		{942755, []byte{0x39, 0x45, 0xa3}},
	}
	for _, c := range cases {
		got := encodeBuf(t, func(s ByteSink) error { return EncodeUnsigned(s, c.u) })
		if !bytes.Equal(got, c.want) {
			t.Errorf("EncodeUnsigned(%d) = % x, want % x", c.u, got, c.want)
		}
		if len(got) != SizeOfUnsigned(c.u) {
			t.Errorf("SizeOfUnsigned(%d) = %d, want %d", c.u, SizeOfUnsigned(c.u), len(got))
		}
	}
}

func TestEncodeSigned(t *testing.T) {
	cases := []struct {
		v    int64
		want []byte
	}{
		{0, []byte{0x80}},
		{-1, []byte{0xff}},
		{63, []byte{0xbf}},
		{64, []byte{0x00, 0xc0}},
		{-65, []byte{0x7f, 0xbf}},
		{-8, []byte{0xf8}},
	}
	for _, c := range cases {
		got := encodeBuf(t, func(s ByteSink) error { return EncodeSigned(s, c.v) })
		if !bytes.Equal(got, c.want) {
			t.Errorf("EncodeSigned(%d) = % x, want % x", c.v, got, c.want)
		}
		if len(got) != SizeOfSigned(c.v) {
			t.Errorf("SizeOfSigned(%d) = %d, want %d", c.v, SizeOfSigned(c.v), len(got))
		}
	}
}

func TestEncodeString(t *testing.T) {
	cases := []struct {
		s    string
		want []byte
	}{
		{"", []byte{0x00, 0x80}},
		{"a", []byte{0xe1}},
		{"AB", []byte{0x41, 0xc2}},
	}
	for _, c := range cases {
		got := encodeBuf(t, func(s ByteSink) error { return EncodeString(s, []byte(c.s)) })
		if !bytes.Equal(got, c.want) {
			t.Errorf("EncodeString(%q) = % x, want % x", c.s, got, c.want)
		}
	}
}

func TestNullMarker(t *testing.T) {
	got := encodeBuf(t, NullMarker)
	if !bytes.Equal(got, []byte{0x80}) {
		t.Errorf("NullMarker() = % x, want 80", got)
	}
}

type fixedCapSink struct {
	buf []byte
	cap int
}

func (f *fixedCapSink) Write(p []byte) (int, error) {
	if len(f.buf)+len(p) > f.cap {
		return 0, ErrCapacityExceeded
	}
	f.buf = append(f.buf, p...)
	return len(p), nil
}

func TestEncodeUnsignedCapacityExceeded(t *testing.T) {
	sink := &fixedCapSink{cap: 1}
	if err := EncodeUnsigned(sink, 942755); err != ErrCapacityExceeded {
		t.Fatalf("expected ErrCapacityExceeded, got %v", err)
	}
}
