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

package fast

// Stream is the single concrete type that satisfies both
// stopbit.ByteSink (field-by-field byte output) and pmap.Region
// (reserve/overwrite/trim of a presence-map byte range). Keeping both
// roles on one growable buffer is what lets pmap.Encoder reserve space
// ahead of the fields it covers and backfill it once their bits are
// known, the same reserve-then-term technique ion.Buffer uses for
// struct length descriptors.
type Stream struct {
	buf []byte
}

// NewStream returns an empty Stream with hint bytes of initial
// capacity.
func NewStream(hint int) *Stream {
	return &Stream{buf: make([]byte, 0, hint)}
}

func (s *Stream) grow(n int) []byte {
	off := len(s.buf)
	if cap(s.buf)-off >= n {
		s.buf = s.buf[:off+n]
	} else {
		nb := make([]byte, off+n, n+(2*off))
		copy(nb, s.buf)
		s.buf = nb
	}
	return s.buf[off:]
}

// Write implements stopbit.ByteSink.
func (s *Stream) Write(p []byte) (int, error) {
	copy(s.grow(len(p)), p)
	return len(p), nil
}

// Reserve implements pmap.Region.
func (s *Stream) Reserve(n int) int {
	off := len(s.buf)
	s.grow(n)
	return off
}

// Overwrite implements pmap.Region.
func (s *Stream) Overwrite(off int, p []byte) {
	copy(s.buf[off:off+len(p)], p)
}

// Trim implements pmap.Region: removes n bytes at off, shifting the
// remainder of the buffer left, mirroring ion.Buffer.term's shrink
// path when a reserved length descriptor turns out to be narrower than
// guessed.
func (s *Stream) Trim(off, n int) {
	copy(s.buf[off:], s.buf[off+n:])
	s.buf = s.buf[:len(s.buf)-n]
}

// Len implements pmap.Region.
func (s *Stream) Len() int { return len(s.buf) }

// Bytes returns the stream's contents so far.
func (s *Stream) Bytes() []byte { return s.buf }

// Reset empties the stream, keeping its backing array, so an Encoder
// can reuse one Stream across many Encode calls.
func (s *Stream) Reset() { s.buf = s.buf[:0] }

// WriteTo copies the stream's contents into a Sink.
func (s *Stream) WriteTo(dst Sink) error {
	_, err := dst.Write(s.buf)
	return err
}
