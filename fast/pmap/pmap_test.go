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

package pmap

import (
	"bytes"
	"testing"
)

// fakeRegion is a minimal Region backed by a plain slice, standing in
// for fast.Stream in these package-local tests.
type fakeRegion struct {
	buf []byte
}

func (r *fakeRegion) Reserve(n int) int {
	off := len(r.buf)
	r.buf = append(r.buf, make([]byte, n)...)
	return off
}

func (r *fakeRegion) Overwrite(off int, p []byte) {
	copy(r.buf[off:off+len(p)], p)
}

func (r *fakeRegion) Trim(off, n int) {
	r.buf = append(r.buf[:off], r.buf[off+n:]...)
}

func (r *fakeRegion) Len() int { return len(r.buf) }

func TestCommitSingleByteAllSet(t *testing.T) {
	r := &fakeRegion{}
	e := New(r, 2, false)
	e.SetNextBit(true)
	e.SetNextBit(true)
	e.Commit()
	if !bytes.Equal(r.buf, []byte{0xe0}) {
		t.Fatalf("got % x, want e0", r.buf)
	}
}

func TestCommitTrimsTrailingZeroBytes(t *testing.T) {
	r := &fakeRegion{}
	e := New(r, 14, false) // reserves 2 bytes
	e.SetNextBit(true)
	for i := 0; i < 13; i++ {
		e.SetNextBit(false)
	}
	e.Commit()
	if !bytes.Equal(r.buf, []byte{0xc0}) {
		t.Fatalf("got % x, want c0 (trimmed to one byte)", r.buf)
	}
}

func TestCommitShiftsTrailingPayload(t *testing.T) {
	r := &fakeRegion{}
	e := New(r, 14, false)
	e.SetNextBit(true)
	for i := 0; i < 13; i++ {
		e.SetNextBit(false)
	}
	r.buf = append(r.buf, 0xAA, 0xBB) // payload written after the reserved pmap region
	e.Commit()
	if !bytes.Equal(r.buf, []byte{0xc0, 0xAA, 0xBB}) {
		t.Fatalf("got % x, want c0 aa bb", r.buf)
	}
}

func TestCommitOverlongKeepsReservedWidth(t *testing.T) {
	r := &fakeRegion{}
	e := New(r, 14, true)
	e.SetNextBit(true)
	for i := 0; i < 13; i++ {
		e.SetNextBit(false)
	}
	e.Commit()
	if !bytes.Equal(r.buf, []byte{0x40, 0x80}) {
		t.Fatalf("got % x, want 40 80 (overlong, 2 reserved bytes kept)", r.buf)
	}
}

func TestCommitTwoByteMap(t *testing.T) {
	r := &fakeRegion{}
	e := New(r, 9, false)
	bits := []bool{true, false, true, false, false, false, false, false, true}
	for _, b := range bits {
		e.SetNextBit(b)
	}
	e.Commit()
	// byte0: bits 0..6 = 1010000, byte1: bit7=0,bit8=1 plus stop bit
	if !bytes.Equal(r.buf, []byte{0x50, 0xa0}) {
		t.Fatalf("got % x, want 50 a0", r.buf)
	}
}
