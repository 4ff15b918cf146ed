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
	"errors"
	"testing"
)

func quoteTemplate() *Template {
	return &Template{
		ID:   42,
		Name: "Quote",
		Fields: []*FieldInstruction{
			{Name: "Symbol", Type: ASCIIString, Presence: Mandatory, Operator: OpNone},
			{Name: "Price", Type: Uint32, Presence: Mandatory, Operator: OpNone},
		},
	}
}

func TestEncoderTemplateWithID(t *testing.T) {
	enc := New()
	stream := NewStream(8)
	if err := enc.TemplateWithID(stream, 42); err != nil {
		t.Fatalf("TemplateWithID: %v", err)
	}
	// 42 as a plain (non-nullable) stop-bit unsigned integer: 0xAA.
	want := []byte{0xAA}
	if got := stream.Bytes(); !bytes.Equal(got, want) {
		t.Fatalf("got % x, want % x", got, want)
	}
}

func TestEncoderEncodeUnknownTemplateRaisesD9(t *testing.T) {
	enc := New()
	sink := NewGrowableSink(16)
	err := enc.Encode(sink, 99, nil, false)
	var dynErr *DynamicError
	if !errors.As(err, &dynErr) {
		t.Fatalf("want DynamicError, got %v", err)
	}
	if dynErr.Code != D9 {
		t.Fatalf("want D9, got %s", dynErr.Code)
	}
	if dynErr.TemplateID != 99 {
		t.Fatalf("want template id 99 in error, got %d", dynErr.TemplateID)
	}
}

func TestEncoderEncodeRoundTripsWirePreamble(t *testing.T) {
	enc := New()
	if err := enc.Include(quoteTemplate()); err != nil {
		t.Fatalf("Include: %v", err)
	}
	sink := NewGrowableSink(16)
	values := []Value{StringValue([]byte("X")), UintValue(5)}
	if err := enc.Encode(sink, 42, values, false); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	// Quote is the only registered template, so Include already preset
	// active_message_id to 42: the segment pmap's template-id bit is 0
	// and no id preamble is written. pmap (1 bit, unset) -> 0x80, "X"
	// ascii with stop bit -> 0xD8, Price=5 plain unsigned -> 0x85.
	want := []byte{0x80, 0xD8, 0x85}
	if got := sink.Bytes(); !bytes.Equal(got, want) {
		t.Fatalf("got % x, want % x", got, want)
	}
}

func TestEncoderEncodeFieldCountMismatch(t *testing.T) {
	enc := New()
	enc.Include(quoteTemplate())
	sink := NewGrowableSink(16)
	err := enc.Encode(sink, 42, []Value{StringValue([]byte("X"))}, false)
	if err == nil {
		t.Fatal("expected an error for a short value list")
	}
}

func TestEncoderReusesStreamAcrossCalls(t *testing.T) {
	enc := New()
	enc.Include(quoteTemplate())

	sinkA := NewGrowableSink(16)
	if err := enc.Encode(sinkA, 42, []Value{StringValue([]byte("X")), UintValue(5)}, false); err != nil {
		t.Fatalf("first Encode: %v", err)
	}
	sinkB := NewGrowableSink(16)
	if err := enc.Encode(sinkB, 42, []Value{StringValue([]byte("Y")), UintValue(6)}, false); err != nil {
		t.Fatalf("second Encode: %v", err)
	}
	if bytes.Equal(sinkA.Bytes(), sinkB.Bytes()) {
		t.Fatal("two different messages should not encode identically")
	}
	// The Encoder's internal stream must have been reset, not appended
	// to; active_message_id stays 42 across calls so neither message
	// carries an id preamble.
	want := []byte{0x80, 0xD9, 0x86}
	if got := sinkB.Bytes(); !bytes.Equal(got, want) {
		t.Fatalf("got % x, want % x", got, want)
	}
}

func TestEncoderSendsTemplateIDOnlyWhenActiveIDChanges(t *testing.T) {
	enc := New()
	enc.Include(quoteTemplate())
	enc.Include(&Template{
		ID:   43,
		Name: "Trade",
		Fields: []*FieldInstruction{
			{Name: "Size", Type: Uint32, Presence: Mandatory, Operator: OpNone},
		},
	})

	sinkA := NewGrowableSink(16)
	if err := enc.Encode(sinkA, 42, []Value{StringValue([]byte("X")), UintValue(5)}, false); err != nil {
		t.Fatalf("first Encode: %v", err)
	}
	// Two registered templates: the second Include cleared the
	// active_message_id preset from the first, so the first message for
	// 42 must announce its id: pmap (bit0=1)
	// -> 0xC0, id 42 -> 0xAA, "X" -> 0xD8, Price=5 -> 0x85.
	want := []byte{0xC0, 0xAA, 0xD8, 0x85}
	if got := sinkA.Bytes(); !bytes.Equal(got, want) {
		t.Fatalf("got % x, want % x", got, want)
	}

	sinkB := NewGrowableSink(16)
	if err := enc.Encode(sinkB, 42, []Value{StringValue([]byte("Y")), UintValue(6)}, false); err != nil {
		t.Fatalf("second Encode: %v", err)
	}
	// Same id as last time -> no preamble: pmap (bit0=0) -> 0x80.
	want2 := []byte{0x80, 0xD9, 0x86}
	if got := sinkB.Bytes(); !bytes.Equal(got, want2) {
		t.Fatalf("got % x, want % x", got, want2)
	}

	sinkC := NewGrowableSink(16)
	if err := enc.Encode(sinkC, 43, []Value{UintValue(7)}, false); err != nil {
		t.Fatalf("third Encode: %v", err)
	}
	// Switching to template 43 -> id bit set again, id 43 -> 0xAB.
	want3 := []byte{0xC0, 0xAB, 0x87}
	if got := sinkC.Bytes(); !bytes.Equal(got, want3) {
		t.Fatalf("got % x, want % x", got, want3)
	}
}
