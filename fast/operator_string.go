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
	"bytes"
	"fmt"

	"github.com/fastwire/fastenc/fast/pmap"
	"github.com/fastwire/fastenc/fast/stopbit"
	"github.com/fastwire/fastenc/fast/utf8rune"
)

// writeStringPayload writes a present string value in the wire format
// its ScalarType uses: ASCII strings are stop-bit terminated on their
// last byte; unicode and byte-vector fields are length-prefixed with a
// nullable uint32 followed by the raw bytes.
func writeStringPayload(ctx *encodeContext, fi *FieldInstruction, s []byte, nullable bool) error {
	if fi.Type == ASCIIString {
		return stopbit.EncodeString(ctx.stream, s)
	}
	if fi.Type == UnicodeString && !utf8rune.Valid(s) {
		return fmt.Errorf("fast: field %q: invalid UTF-8 in unicode string value", fi.Name)
	}
	if err := writeUnsigned(ctx, uint64(len(s)), nullable); err != nil {
		return err
	}
	_, err := ctx.stream.Write(s)
	return err
}

func stringEqual(a, b []byte) bool { return bytes.Equal(a, b) }

func encodeStringField(ctx *encodeContext, fi *FieldInstruction, cell *Cell, v Value, pm *pmap.Encoder) error {
	nullable := fi.Presence == Optional
	switch fi.Operator {
	case OpNone:
		if v.IsAbsent() {
			if !nullable {
				return fmt.Errorf("fast: mandatory field %q is absent", fi.Name)
			}
			return writeNull(ctx)
		}
		return writeStringPayload(ctx, fi, v.Str, nullable)

	case OpConstant:
		if nullable {
			bit := pm.NextIndex()
			pm.SetNextBit(false)
			if v.IsAbsent() {
				return nil
			}
			if !stringEqual(v.Str, fi.Initial.Str) {
				return fmt.Errorf("fast: field %q: constant value mismatch", fi.Name)
			}
			pm.SetBit(bit, true)
			return nil
		}
		if !stringEqual(v.Str, fi.Initial.Str) {
			return fmt.Errorf("fast: field %q: constant value mismatch", fi.Name)
		}
		return nil

	case OpDefault:
		bit := pm.NextIndex()
		pm.SetNextBit(false)
		if nullable && v.IsAbsent() {
			if fi.HasInitial {
				return fmt.Errorf("fast: field %q: optional default omits only when no initial value is configured", fi.Name)
			}
			return nil
		}
		if !nullable && fi.HasInitial && stringEqual(v.Str, fi.Initial.Str) {
			return nil
		}
		pm.SetBit(bit, true)
		return writeStringPayload(ctx, fi, v.Str, nullable)

	case OpCopy:
		return encodeStringCopy(ctx, fi, cell, v, pm, nullable)

	case OpTail:
		if fi.Type != ASCIIString {
			return fmt.Errorf("fast: field %q: tail operator only supported for ascii strings", fi.Name)
		}
		return encodeStringTail(ctx, fi, cell, v, pm, nullable)

	case OpDelta:
		if fi.Type != ASCIIString && fi.Type != UnicodeString {
			return fmt.Errorf("fast: field %q: delta operator only supported for ascii and unicode strings", fi.Name)
		}
		return encodeStringDelta(ctx, fi, cell, v, nullable)

	default:
		return fmt.Errorf("fast: field %q: operator %s not supported for %s", fi.Name, fi.Operator, fi.Type)
	}
}

func encodeStringCopy(ctx *encodeContext, fi *FieldInstruction, cell *Cell, v Value, pm *pmap.Encoder, nullable bool) error {
	bit := pm.NextIndex()
	pm.SetNextBit(false)

	switch {
	case cell.isUndefined():
		if !nullable && fi.HasInitial && stringEqual(v.Str, fi.Initial.Str) {
			cell.assignString(v.Str)
			return nil
		}
		if nullable && v.IsAbsent() {
			if fi.HasInitial {
				pm.SetBit(bit, true)
				return writeNull(ctx)
			}
			cell.setEmpty()
			return nil
		}
		if nullable && fi.HasInitial && stringEqual(v.Str, fi.Initial.Str) {
			cell.assignString(v.Str)
			return nil
		}
		pm.SetBit(bit, true)
		cell.assignString(v.Str)
		if v.IsAbsent() {
			return writeNull(ctx)
		}
		return writeStringPayload(ctx, fi, v.Str, nullable)

	case cell.isAssigned():
		if !v.IsAbsent() && cell.kind == KindString && cell.equalString(v.Str) {
			return nil
		}
		pm.SetBit(bit, true)
		if v.IsAbsent() {
			cell.setEmpty()
			return writeNull(ctx)
		}
		cell.assignString(v.Str)
		return writeStringPayload(ctx, fi, v.Str, nullable)

	default: // empty
		if !nullable {
			return ctx.d6(fmt.Errorf("field %q: mandatory copy with empty previous value", fi.Name))
		}
		if v.IsAbsent() {
			return nil
		}
		pm.SetBit(bit, true)
		cell.assignString(v.Str)
		return writeStringPayload(ctx, fi, v.Str, nullable)
	}
}

func stringBase(fi *FieldInstruction, cell *Cell) []byte {
	if cell != nil && cell.isAssigned() && cell.kind == KindString {
		return cell.str
	}
	if fi.HasInitial {
		return fi.Initial.Str
	}
	return nil
}

func longestCommonPrefix(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}

func longestCommonSuffix(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[len(a)-1-i] == b[len(b)-1-i] {
		i++
	}
	return i
}

// encodeStringTail implements the tail operator: the transmitted
// "tail" is current's suffix after the longest prefix it shares with
// base, so the bytes sent are exactly the part that differs.
func encodeStringTail(ctx *encodeContext, fi *FieldInstruction, cell *Cell, v Value, pm *pmap.Encoder, nullable bool) error {
	bit := pm.NextIndex()
	pm.SetNextBit(false)

	if cell.isUndefined() && fi.HasInitial && !v.IsAbsent() && stringEqual(v.Str, fi.Initial.Str) {
		cell.assignString(v.Str)
		return nil
	}
	if cell.isUndefined() && v.IsAbsent() && !fi.HasInitial {
		cell.setEmpty()
		return nil
	}

	base := stringBase(fi, cell)

	if v.IsAbsent() {
		if cell.isEmpty() {
			return nil
		}
		pm.SetBit(bit, true)
		cell.setEmpty()
		return writeNull(ctx)
	}

	p := longestCommonPrefix(v.Str, base)
	tail := v.Str[p:]
	if len(tail) == 0 && cell.isAssigned() && cell.equalString(v.Str) {
		return nil
	}
	pm.SetBit(bit, true)
	cell.assignString(v.Str)
	return writeStringPayload(ctx, fi, tail, nullable)
}

// encodeStringDelta implements the string delta operator: an
// (subtraction_length, tail) pair where a non-negative length strips
// that many trailing bytes from base before appending tail, and a
// negative length strips |length|-1 leading bytes from base before
// prepending tail. The encoder picks whichever of a common-prefix or
// common-suffix match discards more of current into the matched
// region of base, minimizing the transmitted tail.
func encodeStringDelta(ctx *encodeContext, fi *FieldInstruction, cell *Cell, v Value, nullable bool) error {
	if v.IsAbsent() {
		return writeNull(ctx)
	}
	if fi.Type == UnicodeString && !utf8rune.Valid(v.Str) {
		return fmt.Errorf("fast: field %q: invalid UTF-8 in unicode string value", fi.Name)
	}
	base := stringBase(fi, cell)
	current := v.Str

	p := longestCommonPrefix(current, base)
	s := longestCommonSuffix(current, base)

	var length int64
	var tail []byte
	if p >= s {
		length = int64(len(base) - p)
		tail = current[p:]
	} else {
		length = -int64(len(base) - s + 1)
		tail = current[:len(current)-s]
	}

	if err := writeSigned(ctx, length, nullable); err != nil {
		return err
	}
	if err := writeDeltaTail(ctx, fi, tail); err != nil {
		return err
	}
	cell.assignString(current)
	return nil
}

// writeDeltaTail writes a delta operator's tail payload: an ascii tail
// is stop-bit terminated like any other ascii value, but a unicode
// tail is length-prefixed with a plain (non-nullable) unsigned integer
// followed by its raw bytes — the tail has no independent null state
// once the subtraction length above has signaled the delta is present.
func writeDeltaTail(ctx *encodeContext, fi *FieldInstruction, tail []byte) error {
	if fi.Type == ASCIIString {
		return stopbit.EncodeString(ctx.stream, tail)
	}
	if err := writeUnsigned(ctx, uint64(len(tail)), false); err != nil {
		return err
	}
	_, err := ctx.stream.Write(tail)
	return err
}
