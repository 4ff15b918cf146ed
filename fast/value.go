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

// ValueKind tags the payload carried by a Value, analogous to
// ion.Datum's internal type switch.
type ValueKind int

const (
	KindAbsent ValueKind = iota
	KindUint
	KindInt
	KindDecimal
	KindString
	KindGroup
	KindSequence
)

// DecimalValue is a FAST decimal: mantissa * 10^exponent.
type DecimalValue struct {
	Exponent int32
	Mantissa int64
}

// Value is the tagged union the visitor walks: one instance per field
// (or per group, or per sequence) of a message tree being encoded.
type Value struct {
	Kind ValueKind
	U    uint64
	I    int64
	Dec  DecimalValue
	Str  []byte

	// Fields holds, in template-declaration order, the child values of
	// a Group, or — for a Sequence — the per-row Group values.
	Fields []Value
}

// Absent is the null/missing value for an optional field.
func Absent() Value { return Value{Kind: KindAbsent} }

// UintValue wraps an unsigned integer.
func UintValue(u uint64) Value { return Value{Kind: KindUint, U: u} }

// IntValue wraps a signed integer.
func IntValue(i int64) Value { return Value{Kind: KindInt, I: i} }

// DecValue wraps a decimal.
func DecValue(mantissa int64, exponent int32) Value {
	return Value{Kind: KindDecimal, Dec: DecimalValue{Mantissa: mantissa, Exponent: exponent}}
}

// StringValue wraps ASCII, unicode, or byte-vector content.
func StringValue(s []byte) Value { return Value{Kind: KindString, Str: s} }

// GroupValue wraps the child values of a Group field, in the order its
// Template's Fields declares them.
func GroupValue(fields []Value) Value { return Value{Kind: KindGroup, Fields: fields} }

// SequenceValue wraps the rows of a Sequence field; each row is itself
// expected to be a KindGroup Value.
func SequenceValue(rows []Value) Value { return Value{Kind: KindSequence, Fields: rows} }

// IsAbsent reports whether v represents a null/omitted field.
func (v Value) IsAbsent() bool { return v.Kind == KindAbsent }
