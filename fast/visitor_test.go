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
	"testing"
)

// TestVisitOptionalGroupAbsent checks that an absent optional group
// contributes exactly one zero pmap bit to the enclosing scope and
// recurses no further (no nested pmap, no child bytes).
func TestVisitOptionalGroupAbsent(t *testing.T) {
	group := &FieldInstruction{
		Name: "Extra", Type: Group, Presence: Optional,
		Fields: []*FieldInstruction{
			{Name: "Note", Type: ASCIIString, Presence: Mandatory, Operator: OpNone},
		},
	}
	top := []*FieldInstruction{group}
	stream := NewStream(16)
	ctx := &encodeContext{stream: stream}
	if err := encodeFields(ctx, top, []Value{Absent()}, nil, false); err != nil {
		t.Fatalf("encodeFields: %v", err)
	}
	// One pmap bit reserved, unset -> minimal single byte, stop bit only.
	if got := stream.Bytes(); !bytes.Equal(got, []byte{0x80}) {
		t.Fatalf("got % x, want 80", got)
	}
}

// TestVisitOptionalGroupPresent checks the enclosing bit is set and,
// since the group's own fields need no pmap bit, its child field
// follows directly with no nested pmap region at all.
func TestVisitOptionalGroupPresent(t *testing.T) {
	group := &FieldInstruction{
		Name: "Extra", Type: Group, Presence: Optional,
		Fields: []*FieldInstruction{
			{Name: "Note", Type: ASCIIString, Presence: Mandatory, Operator: OpNone},
		},
	}
	top := []*FieldInstruction{group}
	stream := NewStream(16)
	ctx := &encodeContext{stream: stream}
	v := GroupValue([]Value{StringValue([]byte("hi"))})
	if err := encodeFields(ctx, top, []Value{v}, nil, false); err != nil {
		t.Fatalf("encodeFields: %v", err)
	}
	// outer pmap: bit=1 -> 0xC0. The group's own fields need no pmap
	// bit (Note is none-operator), so no nested pmap byte appears at
	// all. "hi" ascii: 'h'=0x68, 'i' with stop bit = 0xE9.
	want := []byte{0xC0, 0x68, 0xE9}
	if got := stream.Bytes(); !bytes.Equal(got, want) {
		t.Fatalf("got % x, want % x", got, want)
	}
}

// TestVisitMandatoryGroupConsumesNoEnclosingBit checks a mandatory
// group never touches the enclosing pmap, and that its own scope opens
// no pmap region either when none of its fields need one.
func TestVisitMandatoryGroupConsumesNoEnclosingBit(t *testing.T) {
	group := &FieldInstruction{
		Name: "Extra", Type: Group, Presence: Mandatory,
		Fields: []*FieldInstruction{
			{Name: "Note", Type: ASCIIString, Presence: Mandatory, Operator: OpNone},
		},
	}
	top := []*FieldInstruction{group}
	stream := NewStream(16)
	ctx := &encodeContext{stream: stream}
	v := GroupValue([]Value{StringValue([]byte(""))})
	if err := encodeFields(ctx, top, []Value{v}, nil, false); err != nil {
		t.Fatalf("encodeFields: %v", err)
	}
	// outer pmap: 0 bits -> 0x80. The group's own fields need no pmap
	// bit either (Note is none-operator), so no nested pmap byte
	// appears. empty ascii: 00 80.
	want := []byte{0x80, 0x00, 0x80}
	if got := stream.Bytes(); !bytes.Equal(got, want) {
		t.Fatalf("got % x, want % x", got, want)
	}
}

// TestVisitGroupOpensNestedPmapWhenFieldsNeedOne checks the converse
// of TestVisitMandatoryGroupConsumesNoEnclosingBit: a group whose own
// fields do consume pmap bits still opens its own nested pmap region.
func TestVisitGroupOpensNestedPmapWhenFieldsNeedOne(t *testing.T) {
	group := &FieldInstruction{
		Name: "Extra", Type: Group, Presence: Mandatory,
		Fields: []*FieldInstruction{
			{Name: "Code", Type: Uint32, Presence: Mandatory, Operator: OpCopy, HasInitial: true, Initial: UintValue(1)},
		},
	}
	top := []*FieldInstruction{group}
	var cells []*Cell
	if err := validateAndBind(top, &cells); err != nil {
		t.Fatalf("validateAndBind: %v", err)
	}
	stream := NewStream(16)
	ctx := &encodeContext{stream: stream}
	v := GroupValue([]Value{UintValue(1)})
	if err := encodeFields(ctx, top, []Value{v}, cells, false); err != nil {
		t.Fatalf("encodeFields: %v", err)
	}
	// outer pmap: 0 bits (mandatory group contributes none) -> 0x80.
	// inner pmap: 1 bit, previous undefined but current matches
	// initial -> bit=0 -> 0x80. No value bytes follow.
	want := []byte{0x80, 0x80}
	if got := stream.Bytes(); !bytes.Equal(got, want) {
		t.Fatalf("got % x, want % x", got, want)
	}
}

// TestVisitSequenceSharesDictionaryAcrossRows encodes a two-row
// sequence whose element field uses the increment operator, and checks
// that each row's encoding depends on the previous row's previous-value
// state (running dictionary), matching visitSequence's documented
// behavior.
func TestVisitSequenceSharesDictionaryAcrossRows(t *testing.T) {
	elemField := &FieldInstruction{Name: "Seq", Type: Uint32, Presence: Mandatory, Operator: OpIncrement}
	seq := &FieldInstruction{
		Name: "Rows", Type: Sequence, Presence: Mandatory, Operator: OpNone,
		Fields: []*FieldInstruction{elemField},
	}
	top := []*FieldInstruction{seq}

	var cells []*Cell
	if err := validateAndBind(top, &cells); err != nil {
		t.Fatalf("validateAndBind: %v", err)
	}
	if len(cells) != 1 {
		t.Fatalf("expected 1 cell, got %d", len(cells))
	}

	rows := SequenceValue([]Value{
		GroupValue([]Value{UintValue(1)}),
		GroupValue([]Value{UintValue(2)}),
		GroupValue([]Value{UintValue(4)}),
	})

	stream := NewStream(32)
	ctx := &encodeContext{stream: stream}
	if err := encodeFields(ctx, top, []Value{rows}, cells, false); err != nil {
		t.Fatalf("encodeFields: %v", err)
	}

	// Row 0: previous undefined, no initial -> transmitted explicitly (bit=1, value 1).
	// Row 1: previous=1, current=2 -> matches previous+1 -> bit=0, nothing.
	// Row 2: previous=2, current=4 -> doesn't match previous+1=3 -> bit=1, value 4.
	if !cells[0].isAssigned() || cells[0].u != 4 {
		t.Fatalf("final previous value = %v, want assigned=4", cells[0])
	}
	// Sanity: stream is non-empty and starts with the outer segment pmap
	// byte plus the sequence length field's wire bytes.
	if len(stream.Bytes()) == 0 {
		t.Fatal("expected non-empty wire output")
	}
}

// TestVisitSequenceAbsent checks an absent optional sequence whose
// length field has no operator only writes its length field as
// null/absent without visiting any rows.
func TestVisitSequenceAbsent(t *testing.T) {
	elemField := &FieldInstruction{Name: "Seq", Type: Uint32, Presence: Mandatory, Operator: OpNone}
	seq := &FieldInstruction{
		Name: "Rows", Type: Sequence, Presence: Optional, Operator: OpNone,
		Fields: []*FieldInstruction{elemField},
	}
	top := []*FieldInstruction{seq}
	stream := NewStream(16)
	ctx := &encodeContext{stream: stream}
	if err := encodeFields(ctx, top, []Value{Absent()}, nil, false); err != nil {
		t.Fatalf("encodeFields: %v", err)
	}
	// outer pmap: 0 bits (OpNone length field contributes none) -> 0x80.
	// length field none/optional/absent -> null marker 0x80.
	want := []byte{0x80, 0x80}
	if got := stream.Bytes(); !bytes.Equal(got, want) {
		t.Fatalf("got % x, want % x", got, want)
	}
}
