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

import "fmt"

// ScalarType names the wire representation a FieldInstruction uses.
// Group and Sequence are structural, not scalar, but share the enum so
// a FieldInstruction can be described with a single field.
type ScalarType int

const (
	Uint32 ScalarType = iota
	Int32
	Uint64
	Int64
	Decimal
	ASCIIString
	UnicodeString
	ByteVector
	Group
	Sequence
)

func (t ScalarType) String() string {
	switch t {
	case Uint32:
		return "uint32"
	case Int32:
		return "int32"
	case Uint64:
		return "uint64"
	case Int64:
		return "int64"
	case Decimal:
		return "decimal"
	case ASCIIString:
		return "ascii"
	case UnicodeString:
		return "unicode"
	case ByteVector:
		return "bytevector"
	case Group:
		return "group"
	case Sequence:
		return "sequence"
	default:
		return fmt.Sprintf("ScalarType(%d)", int(t))
	}
}

func (t ScalarType) isUnsigned() bool { return t == Uint32 || t == Uint64 }
func (t ScalarType) isSigned() bool   { return t == Int32 || t == Int64 }
func (t ScalarType) isInteger() bool  { return t.isUnsigned() || t.isSigned() }
func (t ScalarType) isString() bool {
	return t == ASCIIString || t == UnicodeString || t == ByteVector
}

// Operator names a FAST field-presence/encoding operator.
type Operator int

const (
	OpNone Operator = iota
	OpConstant
	OpDefault
	OpCopy
	OpIncrement
	OpDelta
	OpTail
)

func (o Operator) String() string {
	switch o {
	case OpNone:
		return "none"
	case OpConstant:
		return "constant"
	case OpDefault:
		return "default"
	case OpCopy:
		return "copy"
	case OpIncrement:
		return "increment"
	case OpDelta:
		return "delta"
	case OpTail:
		return "tail"
	default:
		return fmt.Sprintf("Operator(%d)", int(o))
	}
}

// Presence names whether a field may be absent (null) on the wire.
type Presence int

const (
	Mandatory Presence = iota
	Optional
)

// FieldInstruction describes one field of a Template: its wire type,
// presence, operator, optional initial value, and — for Group and
// Sequence fields — the nested instructions it governs.
type FieldInstruction struct {
	Name      string
	Type      ScalarType
	Presence  Presence
	Operator  Operator
	HasInitial bool
	Initial   Value

	// Fields holds the child instructions of a Group, or the
	// per-element instructions of a Sequence's repeating group.
	Fields []*FieldInstruction

	// cellIndex is assigned by Repository.Include and indexes into
	// the owning Template's previous-value dictionary, or is -1 when the
	// field has no cell. A Group field doesn't consume a cell itself;
	// its children do. A Sequence field consumes one for its length
	// field only when that field's operator is copy, increment, delta,
	// or tail.
	cellIndex int
}

// usesPmapBit reports whether this instruction consumes one bit of its
// enclosing message or group's presence map.
func (fi *FieldInstruction) usesPmapBit() bool {
	switch fi.Operator {
	case OpNone, OpDelta:
		return false
	case OpConstant:
		return fi.Presence == Optional
	case OpDefault, OpCopy, OpIncrement, OpTail:
		return true
	default:
		return false
	}
}

// Template is a named, numbered FAST message description: an ordered
// list of field instructions, the top-level fields of a message.
type Template struct {
	ID     uint32
	Name   string
	Fields []*FieldInstruction

	// Reset mirrors the standard's per-template reset attribute: every
	// Encode against this template clears its dictionary first, the
	// same as passing forceReset explicitly.
	Reset bool
}

// Description groups the templates of one template-description
// document: the narrow interface the (out of scope) XML template
// loader would satisfy. Repository.Include takes one *Template at a
// time, and fast/fastfixture's YAML loader returns a []*Template, not
// a Description.
type Description struct {
	Templates []*Template
}
