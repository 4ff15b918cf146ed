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

// Package stopbit implements the FAST stop-bit byte encoding used for
// integers and strings: 7 payload bits per byte, most-significant
// byte first, with the high bit of the final byte set to mark the end
// of the field.
package stopbit

import "errors"

// ErrCapacityExceeded is returned by a ByteSink when it cannot accept
// any more bytes.
var ErrCapacityExceeded = errors.New("stopbit: sink capacity exceeded")

// ByteSink receives encoded field bytes; one field may arrive in more
// than one Write call. Implementations may buffer, grow, or reject once
// full; see fast.FixedSink and fast.GrowableSink for the two concrete
// adapters this module ships.
type ByteSink interface {
	Write(p []byte) (n int, err error)
}

// SizeOfUnsigned returns the number of stop-bit bytes needed to encode
// the nullable-biased unsigned value u (the caller has already applied
// the +1 null bias if applicable).
func SizeOfUnsigned(u uint64) int {
	n := 1
	for u >= 0x80 {
		u >>= 7
		n++
	}
	return n
}

// SizeOfSigned returns the number of stop-bit bytes needed to encode
// the nullable-biased signed value v.
func SizeOfSigned(v int64) int {
	n := 1
	for {
		top := v >> 6
		if top == 0 || top == -1 {
			return n
		}
		v >>= 7
		n++
	}
}

// EncodeUnsigned writes u as a stop-bit unsigned integer: 7 bits per
// byte, most significant group first, high bit set on the last byte.
// Callers encoding a nullable field must apply the +1 bias to u before
// calling this (0 is reserved to mean null at the value layer, not
// here).
func EncodeUnsigned(dst ByteSink, u uint64) error {
	var buf [10]byte
	n := SizeOfUnsigned(u)
	off := n - 1
	buf[off] = byte(u&0x7f) | 0x80
	for off > 0 {
		off--
		u >>= 7
		buf[off] = byte(u & 0x7f)
	}
	_, err := dst.Write(buf[:n])
	return err
}

// EncodeSigned writes v as a stop-bit two's-complement signed integer.
// Each byte carries 7 bits of the two's-complement representation;
// encoding stops once the remaining sign-extension bits are redundant
// with the sign bit of the last emitted group (bit 6).
func EncodeSigned(dst ByteSink, v int64) error {
	var buf [10]byte
	n := SizeOfSigned(v)
	off := n - 1
	buf[off] = byte(v&0x7f) | 0x80
	for off > 0 {
		off--
		v >>= 7
		buf[off] = byte(v & 0x7f)
	}
	_, err := dst.Write(buf[:n])
	return err
}

// EncodeString writes the bytes of a present ASCII field, stop-bit
// terminated on the last byte. A zero-length string is its own
// reserved case: a single 0x00 leading byte (so it cannot be confused
// with the null sentinel) followed by the 0x80 stop byte. Callers that
// need to write the null sentinel itself (a bare 0x80, no leading
// 0x00) use NullMarker instead of EncodeString.
func EncodeString(dst ByteSink, s []byte) error {
	if len(s) == 0 {
		_, err := dst.Write([]byte{0x00, 0x80})
		return err
	}
	buf := make([]byte, len(s))
	copy(buf, s)
	buf[len(buf)-1] |= 0x80
	_, err := dst.Write(buf)
	return err
}

// NullMarker writes the single-byte null sentinel (0x80) used for an
// absent nullable scalar, string, or string-delta tail.
func NullMarker(dst ByteSink) error {
	_, err := dst.Write([]byte{0x80})
	return err
}
