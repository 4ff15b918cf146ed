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
)

// countPmapBits returns how many of fields' immediate fields consume a
// bit in the presence map that covers this scope. A Group's own
// children get their own nested scope with their own presence map, but
// an optional Group still consumes one bit of the enclosing scope to
// signal whether it is present at all (spec §4.5). A Sequence's row
// contents likewise get their own per-row scope, but the Sequence
// field itself represents the length field of that repeating group,
// and the length field's own operator can still consume a bit of the
// enclosing scope like any other field.
func countPmapBits(fields []*FieldInstruction) int {
	n := 0
	for _, fi := range fields {
		switch {
		case fi.Type == Group:
			if fi.Presence == Optional {
				n++
			}
		case fi.usesPmapBit():
			n++
		}
	}
	return n
}

// encodeFields visits one presence-map scope that always carries a
// pmap region, even when none of its fields consume a bit: a
// standalone one-pmap segment, or a nested scope that encodeNestedFields
// found to need bits. Encoder.Encode does not use it; the top-level
// segment opens its own pmap with the extra template-id bit and calls
// walkFields directly. It opens a pmap.Encoder sized for this scope,
// walks the fields in template order dispatching scalars to
// encodeField and recursing into nested Group/Sequence scopes, then
// commits the pmap.
func encodeFields(ctx *encodeContext, fields []*FieldInstruction, values []Value, cells []*Cell, allowOverlong bool) error {
	if len(values) != len(fields) {
		return fmt.Errorf("fast: expected %d fields, got %d values", len(fields), len(values))
	}
	pm := pmap.New(ctx.stream, countPmapBits(fields), allowOverlong)
	if err := walkFields(ctx, fields, values, cells, pm, allowOverlong); err != nil {
		return err
	}
	pm.Commit()
	return nil
}

// encodeNestedFields visits a Group's own fields or one row of a
// Sequence's element fields: scopes that, unlike a message segment,
// open a pmap only "if the group's segment_pmap_size > 0" (spec §4.5).
// When none of the fields consume a bit, no pmap region is reserved
// at all — not even the minimal one-byte stop-bit-only region
// encodeFields would otherwise emit.
func encodeNestedFields(ctx *encodeContext, fields []*FieldInstruction, values []Value, cells []*Cell, allowOverlong bool) error {
	if len(values) != len(fields) {
		return fmt.Errorf("fast: expected %d fields, got %d values", len(fields), len(values))
	}
	if countPmapBits(fields) == 0 {
		return walkFields(ctx, fields, values, cells, nil, allowOverlong)
	}
	return encodeFields(ctx, fields, values, cells, allowOverlong)
}

// walkFields dispatches every field in fields to visitOne in
// declaration order, sharing one pmap (which may be nil, when the
// scope needs none at all).
func walkFields(ctx *encodeContext, fields []*FieldInstruction, values []Value, cells []*Cell, pm *pmap.Encoder, allowOverlong bool) error {
	for i, fi := range fields {
		if err := visitOne(ctx, fi, values[i], cells, pm, allowOverlong); err != nil {
			return err
		}
	}
	return nil
}

func visitOne(ctx *encodeContext, fi *FieldInstruction, v Value, cells []*Cell, pm *pmap.Encoder, allowOverlong bool) error {
	switch fi.Type {
	case Group:
		return visitGroup(ctx, fi, v, cells, pm, allowOverlong)
	case Sequence:
		return visitSequence(ctx, fi, v, cells, pm, allowOverlong)
	default:
		var cell *Cell
		if fi.cellIndex >= 0 && fi.cellIndex < len(cells) {
			cell = cells[fi.cellIndex]
		}
		return encodeField(ctx, fi, cell, v, pm)
	}
}

// visitGroup implements spec §4.5's Group rule: an optional group
// consumes one bit of the *enclosing* pmap signaling presence, and an
// absent optional group contributes nothing further. A mandatory group
// is always present and never touches the enclosing pmap. Either way,
// a present group opens its own nested pmap scope for its children.
func visitGroup(ctx *encodeContext, fi *FieldInstruction, v Value, cells []*Cell, pm *pmap.Encoder, allowOverlong bool) error {
	pop := ctx.pushPath(fi.Name)
	defer pop()
	if v.Kind != KindGroup && v.Kind != KindAbsent {
		return fmt.Errorf("fast: field %q: expected a group value", fi.Name)
	}

	if fi.Presence == Optional {
		bit := pm.NextIndex()
		pm.SetNextBit(false)
		if v.IsAbsent() {
			return nil
		}
		pm.SetBit(bit, true)
	} else if v.IsAbsent() {
		return fmt.Errorf("fast: mandatory group %q is absent", fi.Name)
	}

	return encodeNestedFields(ctx, fi.Fields, v.Fields, cells, allowOverlong)
}

// visitSequence writes the sequence's row count as an unsigned field
// (sharing the enclosing scope's presence map, the way the standard
// treats a sequence's length as an ordinary field instruction), then
// recurses into each row with its own nested presence-map scope. Every
// row shares the same per-column dictionary cells, so copy/increment/
// delta/tail operators on sequence columns track state across rows —
// the usual "running" dictionary behavior for repeating groups.
func visitSequence(ctx *encodeContext, fi *FieldInstruction, v Value, cells []*Cell, pm *pmap.Encoder, allowOverlong bool) error {
	pop := ctx.pushPath(fi.Name)
	defer pop()

	var cell *Cell
	if fi.cellIndex >= 0 && fi.cellIndex < len(cells) {
		cell = cells[fi.cellIndex]
	}

	if v.IsAbsent() {
		lengthFI := &FieldInstruction{Name: fi.Name, Type: Uint32, Presence: fi.Presence, Operator: fi.Operator, HasInitial: fi.HasInitial, Initial: fi.Initial}
		return encodeUnsignedField(ctx, lengthFI, cell, Absent(), pm)
	}
	if v.Kind != KindSequence {
		return fmt.Errorf("fast: field %q: expected a sequence value", fi.Name)
	}

	lengthFI := &FieldInstruction{Name: fi.Name, Type: Uint32, Presence: fi.Presence, Operator: fi.Operator, HasInitial: fi.HasInitial, Initial: fi.Initial}
	if err := encodeUnsignedField(ctx, lengthFI, cell, UintValue(uint64(len(v.Fields))), pm); err != nil {
		return err
	}

	for i, row := range v.Fields {
		pop := ctx.pushPath(fmt.Sprintf("%s[%d]", fi.Name, i))
		if row.Kind != KindGroup {
			pop()
			return fmt.Errorf("fast: field %q: row %d is not a group value", fi.Name, i)
		}
		if err := encodeNestedFields(ctx, fi.Fields, row.Fields, cells, allowOverlong); err != nil {
			pop()
			return err
		}
		pop()
	}
	return nil
}
