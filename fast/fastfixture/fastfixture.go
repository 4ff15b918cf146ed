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

// Package fastfixture loads a small YAML document describing FAST
// templates and one message value into the in-memory types fast.
// Repository and fast.Encoder operate on. It is a test and demo
// convenience, not the out-of-scope real XML template loader: the
// document shape below is this module's own, not FAST's standard
// template description format.
package fastfixture

import (
	"fmt"

	"sigs.k8s.io/yaml"

	"github.com/fastwire/fastenc/fast"
	"github.com/fastwire/fastenc/fast/utf8rune"
)

// FieldDoc is the YAML shape of one field instruction.
type FieldDoc struct {
	Name       string     `json:"name"`
	Type       string     `json:"type"`
	Presence   string     `json:"presence,omitempty"`
	Operator   string     `json:"operator,omitempty"`
	Initial    *ValueDoc  `json:"initial,omitempty"`
	Fields     []FieldDoc `json:"fields,omitempty"`
}

// TemplateDoc is the YAML shape of one template.
type TemplateDoc struct {
	ID     uint32     `json:"id"`
	Name   string     `json:"name"`
	Fields []FieldDoc `json:"fields"`
}

// ValueDoc is the YAML shape of a scalar or nested value, used both
// for a field's initial value and for a message's field values.
type ValueDoc struct {
	Uint     *uint64    `json:"uint,omitempty"`
	Int      *int64     `json:"int,omitempty"`
	Mantissa *int64     `json:"mantissa,omitempty"`
	Exponent *int32     `json:"exponent,omitempty"`
	Str      *string    `json:"str,omitempty"`
	Absent   bool       `json:"absent,omitempty"`
	Fields   []ValueDoc `json:"fields,omitempty"`
	Rows     []ValueDoc `json:"rows,omitempty"`
}

// Document is the top-level YAML fixture shape: a set of templates
// plus one message to encode against one of them.
type Document struct {
	TemplateDocs []TemplateDoc `json:"templates"`
	TemplateID   uint32        `json:"templateId"`
	Message      []ValueDoc    `json:"message"`
}

// Load parses a YAML fixture document.
func Load(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("fastfixture: %w", err)
	}
	return &doc, nil
}

// Templates converts every TemplateDoc into a *fast.Template.
func (d *Document) Templates() ([]*fast.Template, error) {
	out := make([]*fast.Template, 0, len(d.TemplateDocs))
	for _, td := range d.TemplateDocs {
		fields, err := convertFields(td.Fields)
		if err != nil {
			return nil, fmt.Errorf("fastfixture: template %q: %w", td.Name, err)
		}
		out = append(out, &fast.Template{ID: td.ID, Name: td.Name, Fields: fields})
	}
	return out, nil
}

func convertFields(docs []FieldDoc) ([]*fast.FieldInstruction, error) {
	out := make([]*fast.FieldInstruction, 0, len(docs))
	for _, fd := range docs {
		fi, err := convertField(fd)
		if err != nil {
			return nil, err
		}
		out = append(out, fi)
	}
	return out, nil
}

func convertField(fd FieldDoc) (*fast.FieldInstruction, error) {
	typ, err := parseType(fd.Type)
	if err != nil {
		return nil, fmt.Errorf("field %q: %w", fd.Name, err)
	}
	presence := fast.Mandatory
	if fd.Presence == "optional" {
		presence = fast.Optional
	}
	op, err := parseOperator(fd.Operator)
	if err != nil {
		return nil, fmt.Errorf("field %q: %w", fd.Name, err)
	}
	fi := &fast.FieldInstruction{Name: fd.Name, Type: typ, Presence: presence, Operator: op}
	if fd.Initial != nil {
		v, err := convertValue(*fd.Initial, typ)
		if err != nil {
			return nil, fmt.Errorf("field %q: initial: %w", fd.Name, err)
		}
		fi.HasInitial = true
		fi.Initial = v
	}
	if typ == fast.Group || typ == fast.Sequence {
		fields, err := convertFields(fd.Fields)
		if err != nil {
			return nil, err
		}
		fi.Fields = fields
	}
	return fi, nil
}

func parseType(s string) (fast.ScalarType, error) {
	switch s {
	case "uint32":
		return fast.Uint32, nil
	case "int32":
		return fast.Int32, nil
	case "uint64":
		return fast.Uint64, nil
	case "int64":
		return fast.Int64, nil
	case "decimal":
		return fast.Decimal, nil
	case "ascii":
		return fast.ASCIIString, nil
	case "unicode":
		return fast.UnicodeString, nil
	case "bytevector":
		return fast.ByteVector, nil
	case "group":
		return fast.Group, nil
	case "sequence":
		return fast.Sequence, nil
	default:
		return 0, fmt.Errorf("unknown type %q", s)
	}
}

func parseOperator(s string) (fast.Operator, error) {
	switch s {
	case "", "none":
		return fast.OpNone, nil
	case "constant":
		return fast.OpConstant, nil
	case "default":
		return fast.OpDefault, nil
	case "copy":
		return fast.OpCopy, nil
	case "increment":
		return fast.OpIncrement, nil
	case "delta":
		return fast.OpDelta, nil
	case "tail":
		return fast.OpTail, nil
	default:
		return 0, fmt.Errorf("unknown operator %q", s)
	}
}

func convertValue(vd ValueDoc, typ fast.ScalarType) (fast.Value, error) {
	if vd.Absent {
		return fast.Absent(), nil
	}
	switch typ {
	case fast.Uint32, fast.Uint64:
		if vd.Uint == nil {
			return fast.Value{}, fmt.Errorf("expected uint value")
		}
		return fast.UintValue(*vd.Uint), nil
	case fast.Int32, fast.Int64:
		if vd.Int == nil {
			return fast.Value{}, fmt.Errorf("expected int value")
		}
		return fast.IntValue(*vd.Int), nil
	case fast.Decimal:
		if vd.Mantissa == nil || vd.Exponent == nil {
			return fast.Value{}, fmt.Errorf("expected mantissa/exponent")
		}
		return fast.DecValue(*vd.Mantissa, *vd.Exponent), nil
	case fast.ASCIIString, fast.UnicodeString, fast.ByteVector:
		if vd.Str == nil {
			return fast.Value{}, fmt.Errorf("expected str value")
		}
		if typ == fast.UnicodeString && !utf8rune.Valid([]byte(*vd.Str)) {
			return fast.Value{}, fmt.Errorf("invalid UTF-8 in unicode value")
		}
		return fast.StringValue([]byte(*vd.Str)), nil
	case fast.Group:
		children := make([]fast.Value, 0, len(vd.Fields))
		for _, c := range vd.Fields {
			cv, err := convertValue(c, guessType(c))
			if err != nil {
				return fast.Value{}, err
			}
			children = append(children, cv)
		}
		return fast.GroupValue(children), nil
	case fast.Sequence:
		rows := make([]fast.Value, 0, len(vd.Rows))
		for _, r := range vd.Rows {
			rv, err := convertValue(r, fast.Group)
			if err != nil {
				return fast.Value{}, err
			}
			rows = append(rows, rv)
		}
		return fast.SequenceValue(rows), nil
	default:
		return fast.Value{}, fmt.Errorf("unsupported type for value conversion")
	}
}

// guessType infers a child value's scalar type from which ValueDoc
// field is populated, used only for Group children where the fixture
// format doesn't repeat the field's declared type.
func guessType(vd ValueDoc) fast.ScalarType {
	switch {
	case vd.Uint != nil:
		return fast.Uint64
	case vd.Int != nil:
		return fast.Int64
	case vd.Mantissa != nil:
		return fast.Decimal
	case vd.Str != nil:
		return fast.ASCIIString
	case len(vd.Fields) > 0:
		return fast.Group
	case len(vd.Rows) > 0:
		return fast.Sequence
	default:
		return fast.ASCIIString
	}
}

// MessageValues converts the document's top-level message field values
// against tpl's field declarations, to get each scalar's declared type
// right (rather than guessing, as Group children must).
func (d *Document) MessageValues(tpl *fast.Template) ([]fast.Value, error) {
	if len(d.Message) != len(tpl.Fields) {
		return nil, fmt.Errorf("fastfixture: message has %d fields, template %q wants %d", len(d.Message), tpl.Name, len(tpl.Fields))
	}
	out := make([]fast.Value, 0, len(d.Message))
	for i, vd := range d.Message {
		v, err := convertValue(vd, tpl.Fields[i].Type)
		if err != nil {
			return nil, fmt.Errorf("fastfixture: message field %q: %w", tpl.Fields[i].Name, err)
		}
		out = append(out, v)
	}
	return out, nil
}
