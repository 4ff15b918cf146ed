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
	"errors"
	"fmt"

	"github.com/fastwire/fastenc/fast/pmap"
	"github.com/fastwire/fastenc/fast/stopbit"
)

// Encoder is the facade a caller drives: register templates with
// Include, then call Encode once per outgoing message. It owns a
// Repository (and therefore the previous-value dictionaries every
// stateful operator reads and updates across calls), a reusable
// Stream buffer, and the active_message_id state that lets a segment
// omit its template-id bytes when the id hasn't changed since the
// last message.
type Encoder struct {
	repo          *Repository
	stream        *Stream
	allowOverlong bool

	// activeMessageID is the template id the decoder is assumed to
	// already know from the previous segment; -1 is the boot sentinel
	// meaning no id has been sent yet.
	activeMessageID int64
}

// Option configures an Encoder at construction time.
type Option func(*Encoder)

// WithAllowOverlongPmap makes every presence map this Encoder writes
// keep its full reserved width instead of shrinking to the minimum
// number of bytes the set bits require. Some FAST consumers expect a
// stable pmap width per template; this trades a few redundant zero
// bytes per message for that guarantee.
func WithAllowOverlongPmap(allow bool) Option {
	return func(e *Encoder) { e.allowOverlong = allow }
}

// WithStreamHint sets the initial capacity of the Encoder's reusable
// output buffer.
func WithStreamHint(n int) Option {
	return func(e *Encoder) { e.stream = NewStream(n) }
}

// New returns an Encoder with an empty Repository and active_message_id
// unset (-1).
func New(opts ...Option) *Encoder {
	e := &Encoder{repo: NewRepository(), stream: NewStream(256), activeMessageID: -1}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Include registers a template the Encoder can later Encode messages
// against. If this leaves the Repository with exactly one registered
// template (Repository.UniqueEntry), active_message_id is preset to
// that template's id, so a single-template stream never has to spend
// a bit announcing an id the decoder already knows. Otherwise
// active_message_id is reset to -1, so the next segment announces its
// template id.
func (e *Encoder) Include(tpl *Template) error {
	if err := e.repo.Include(tpl); err != nil {
		return err
	}
	if unique, ok := e.repo.UniqueEntry(); ok {
		e.activeMessageID = int64(unique.ID)
	} else {
		e.activeMessageID = -1
	}
	return nil
}

// Repository exposes the underlying Repository, for callers that need
// Snapshot/Restore or ResetDictionary directly.
func (e *Encoder) Repository() *Repository { return e.repo }

// Encode serializes one message against the template registered under
// templateID and writes the result to dst: a segment pmap (whose first
// bit signals whether a template-id preamble follows), the preamble
// itself when needed, then the field payload — see spec §4.6's
// encode_segment and §6's wire format
// (pmap_bytes || [template_id?] || field_payload*).
//
// forceReset mirrors encode_segment's force_reset parameter: true
// clears templateID's previous-value dictionary before encoding, as
// does registering templateID with Template.Reset set.
//
// fields must align 1:1 with the registered template's top-level
// FieldInstructions, in the same order.
func (e *Encoder) Encode(dst Sink, templateID uint32, fields []Value, forceReset bool) error {
	tpl, ok := e.repo.Find(templateID)
	if !ok {
		return newDynamicError(D9, templateID, nil, fmt.Errorf("unknown template id %d", templateID))
	}
	if len(fields) != len(tpl.Fields) {
		return fmt.Errorf("fast: expected %d fields, got %d values", len(tpl.Fields), len(fields))
	}
	if forceReset || tpl.Reset {
		e.repo.ResetDictionary(templateID)
	}

	e.stream.Reset()
	needTemplateID := e.activeMessageID != int64(templateID)
	pm := pmap.New(e.stream, 1+countPmapBits(tpl.Fields), e.allowOverlong)
	pm.SetNextBit(needTemplateID)
	if needTemplateID {
		if err := e.TemplateWithID(e.stream, templateID); err != nil {
			return err
		}
		e.activeMessageID = int64(templateID)
	}

	ctx := &encodeContext{stream: e.stream, templateID: templateID}
	if err := walkFields(ctx, tpl.Fields, fields, e.repo.cellsFor(templateID), pm, e.allowOverlong); err != nil {
		return err
	}
	pm.Commit()
	if err := e.stream.WriteTo(dst); err != nil {
		if errors.Is(err, stopbit.ErrCapacityExceeded) {
			return newDynamicError(ErrCodeCapacity, templateID, nil, err)
		}
		return err
	}
	return nil
}

// TemplateWithID writes the template-id preamble FAST messages use to
// tell a decoder which template governs the bytes that follow: a
// single nullable-free unsigned integer carrying the numeric id. It is
// exposed separately from Encode so a caller building its own framing
// (for example, a segment that groups several same-template messages
// under one shared id) can omit or relocate it.
func (e *Encoder) TemplateWithID(dst stopbit.ByteSink, templateID uint32) error {
	return stopbit.EncodeUnsigned(dst, uint64(templateID))
}
