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

	"github.com/google/uuid"
)

// TypeError describes a Value whose Kind does not match the scalar
// type a FieldInstruction declares. The operators in this package do
// not check a Value's Kind and never return it.
type TypeError struct {
	Wanted, Found ScalarType
	Func, Field   string
}

func (t *TypeError) Error() string {
	const (
		fn    = "fast.%s: "
		field = "field %q: "
		msg   = "found type %s, wanted type %s"
	)
	if t.Func == "" {
		if t.Field == "" {
			return fmt.Sprintf(msg, t.Found, t.Wanted)
		}
		return fmt.Sprintf(field+msg, t.Field, t.Found, t.Wanted)
	}
	if t.Field == "" {
		return fmt.Sprintf(fn+msg, t.Func, t.Found, t.Wanted)
	}
	return fmt.Sprintf(fn+field+msg, t.Func, t.Field, t.Found, t.Wanted)
}

func bad(got, want ScalarType, fn, field string) error {
	return &TypeError{Wanted: want, Found: got, Func: fn, Field: field}
}

// ErrorCode names a FAST dynamic error class.
type ErrorCode string

const (
	// D6 is raised when a mandatory copy or increment field is encoded
	// while its previous value is in state "empty". The tail operator
	// never raises it.
	D6 ErrorCode = "D6"
	// D9 is raised when Encoder.Encode is asked to use a template id
	// that was never registered with Include.
	D9 ErrorCode = "D9"
	// ErrCodeOverflow names the error class for a delta or increment
	// result outside the field's integer width. The operators in this
	// package do not check for overflow and never return it.
	ErrCodeOverflow ErrorCode = "R1"
	// ErrCodeCapacity is raised by Encoder.Encode when the destination
	// Sink rejects the segment with stopbit.ErrCapacityExceeded.
	ErrCodeCapacity ErrorCode = "R9"
)

// DynamicError is returned for failures that depend on the runtime
// state of a message being encoded, as opposed to a static template
// configuration mistake (those are returned as plain wrapped errors
// from Repository.Include instead).
type DynamicError struct {
	Code          ErrorCode
	TemplateID    uint32
	FieldPath     []string
	CorrelationID uuid.UUID
	Err           error
}

func (e *DynamicError) Error() string {
	return fmt.Sprintf("fast: [%s] template %d field %s (id=%s): %v",
		e.Code, e.TemplateID, pathString(e.FieldPath), e.CorrelationID, e.Err)
}

func (e *DynamicError) Unwrap() error { return e.Err }

func pathString(path []string) string {
	if len(path) == 0 {
		return "<root>"
	}
	out := path[0]
	for _, p := range path[1:] {
		out += "." + p
	}
	return out
}

func newDynamicError(code ErrorCode, templateID uint32, path []string, err error) *DynamicError {
	return &DynamicError{
		Code:          code,
		TemplateID:    templateID,
		FieldPath:     path,
		CorrelationID: uuid.New(),
		Err:           err,
	}
}
