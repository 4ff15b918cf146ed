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
	"fmt"

	"github.com/fastwire/fastenc/fast/pmap"
	"github.com/fastwire/fastenc/fast/stopbit"
)

// encodeContext carries the per-Encode-call state an operator needs to
// read/write the stream, report errors with a field path, and know
// which template it is encoding for.
type encodeContext struct {
	stream     *Stream
	templateID uint32
	path       []string
}

func (c *encodeContext) pushPath(name string) func() {
	c.path = append(c.path, name)
	return func() { c.path = c.path[:len(c.path)-1] }
}

func (c *encodeContext) d6(err error) error {
	return newDynamicError(D6, c.templateID, append([]string(nil), c.path...), err)
}

// encodeField dispatches a single scalar FieldInstruction (never Group
// or Sequence — see encodeFields in visitor.go for those) to the
// operator implementation matching fi.Type and fi.Operator, writing
// its pmap bit (if any) and its value bytes to ctx.stream.
func encodeField(ctx *encodeContext, fi *FieldInstruction, cell *Cell, v Value, pm *pmap.Encoder) error {
	pop := ctx.pushPath(fi.Name)
	defer pop()

	switch fi.Type {
	case Uint32, Uint64:
		return encodeUnsignedField(ctx, fi, cell, v, pm)
	case Int32, Int64:
		return encodeSignedField(ctx, fi, cell, v, pm)
	case Decimal:
		return encodeDecimalField(ctx, fi, cell, v, pm)
	case ASCIIString, UnicodeString, ByteVector:
		return encodeStringField(ctx, fi, cell, v, pm)
	default:
		return fmt.Errorf("fast: field %q: unsupported scalar type %s", fi.Name, fi.Type)
	}
}

// nullableUnsignedBias and nullableSignedBias implement spec's
// nullable-integer bias: +1 for non-negative values (reserving the
// all-zero stop-bit encoding, 0x80, for null), +0 for negative values
// (which can never collide with the null encoding since they are
// already below zero).
func nullableUnsignedBias(u uint64, nullable bool) uint64 {
	if nullable {
		return u + 1
	}
	return u
}

func nullableSignedBias(i int64, nullable bool) int64 {
	if nullable && i >= 0 {
		return i + 1
	}
	return i
}

func writeUnsigned(ctx *encodeContext, u uint64, nullable bool) error {
	return stopbit.EncodeUnsigned(ctx.stream, nullableUnsignedBias(u, nullable))
}

func writeSigned(ctx *encodeContext, i int64, nullable bool) error {
	return stopbit.EncodeSigned(ctx.stream, nullableSignedBias(i, nullable))
}

func writeNull(ctx *encodeContext) error {
	return stopbit.NullMarker(ctx.stream)
}
