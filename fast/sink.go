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

import (
	"github.com/fastwire/fastenc/fast/stopbit"
	"github.com/klauspost/compress/s2"
)

// Sink is anything an Encoder can write a finished wire segment into.
type Sink interface {
	Write(p []byte) (n int, err error)
}

// FixedSink writes into a caller-supplied fixed-size buffer and
// reports stopbit.ErrCapacityExceeded once it is full, instead of
// growing. Useful for callers that pre-allocate a network send buffer
// per message.
type FixedSink struct {
	buf []byte
	n   int
}

// NewFixedSink wraps buf; writes beyond len(buf) fail.
func NewFixedSink(buf []byte) *FixedSink {
	return &FixedSink{buf: buf}
}

func (f *FixedSink) Write(p []byte) (int, error) {
	if f.n+len(p) > len(f.buf) {
		return 0, stopbit.ErrCapacityExceeded
	}
	copy(f.buf[f.n:], p)
	f.n += len(p)
	return len(p), nil
}

// Bytes returns the portion of the buffer written so far.
func (f *FixedSink) Bytes() []byte { return f.buf[:f.n] }

// Reset rewinds the sink to the beginning of its buffer without
// reallocating.
func (f *FixedSink) Reset() { f.n = 0 }

// GrowableSink is a Sink backed by a slice that grows by doubling,
// grounded on ion.Buffer.grow.
type GrowableSink struct {
	buf []byte
}

// NewGrowableSink returns an empty growable sink with hint bytes of
// initial capacity.
func NewGrowableSink(hint int) *GrowableSink {
	return &GrowableSink{buf: make([]byte, 0, hint)}
}

func (g *GrowableSink) grow(n int) []byte {
	off := len(g.buf)
	if cap(g.buf)-off >= n {
		g.buf = g.buf[:off+n]
	} else {
		nb := make([]byte, off+n, n+(2*off))
		copy(nb, g.buf)
		g.buf = nb
	}
	return g.buf[off:]
}

func (g *GrowableSink) Write(p []byte) (int, error) {
	copy(g.grow(len(p)), p)
	return len(p), nil
}

// Bytes returns the accumulated contents.
func (g *GrowableSink) Bytes() []byte { return g.buf }

// Reset empties the sink, keeping its backing array.
func (g *GrowableSink) Reset() { g.buf = g.buf[:0] }

// CompressedSink wraps a Sink and S2-compresses everything written to
// it once Flush is called, for callers streaming many small FAST
// messages over a bandwidth-constrained transport.
type CompressedSink struct {
	under   Sink
	pending []byte
}

// NewCompressedSink wraps under; writes are buffered until Flush.
func NewCompressedSink(under Sink) *CompressedSink {
	return &CompressedSink{under: under}
}

func (c *CompressedSink) Write(p []byte) (int, error) {
	c.pending = append(c.pending, p...)
	return len(p), nil
}

// Flush S2-compresses everything buffered since the last Flush and
// writes the compressed block (plus its length prefix) to the
// underlying sink.
func (c *CompressedSink) Flush() error {
	if len(c.pending) == 0 {
		return nil
	}
	compressed := s2.Encode(nil, c.pending)
	var lenbuf [binaryUvarintMaxLen]byte
	n := putUvarint(lenbuf[:], uint64(len(compressed)))
	if _, err := c.under.Write(lenbuf[:n]); err != nil {
		return err
	}
	if _, err := c.under.Write(compressed); err != nil {
		return err
	}
	c.pending = c.pending[:0]
	return nil
}

const binaryUvarintMaxLen = 10

func putUvarint(buf []byte, x uint64) int {
	i := 0
	for x >= 0x80 {
		buf[i] = byte(x) | 0x80
		x >>= 7
		i++
	}
	buf[i] = byte(x)
	return i + 1
}
