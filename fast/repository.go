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

	"golang.org/x/crypto/blake2b"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// boundTemplate pairs a Template with the flat previous-value
// dictionary its stateful fields (copy/increment/delta/tail) were
// assigned at Include time. The dictionary is scoped per template,
// the simplest of the scopes the FAST standard allows, matching the
// common case the mFAST test fixtures exercise (see DESIGN.md).
type boundTemplate struct {
	tpl   *Template
	cells []*Cell
}

// Repository holds every Template an Encoder can emit, keyed by
// template id, plus each template's previous-value dictionary —
// analogous to ion.Symtab's interned-string table, but keyed by
// numeric template id instead of symbol text.
type Repository struct {
	byID map[uint32]*boundTemplate
}

// NewRepository returns an empty Repository.
func NewRepository() *Repository {
	return &Repository{byID: make(map[uint32]*boundTemplate)}
}

// Include registers tpl, recursively allocating a previous-value cell
// for every copy/increment/delta/tail field in its tree (including
// nested groups, sequence element templates, and a sequence's own
// length field). It is a static configuration error to Include two
// templates with the same id; no other check is made on the
// instructions here.
func (r *Repository) Include(tpl *Template) error {
	if _, exists := r.byID[tpl.ID]; exists {
		return fmt.Errorf("fast: template id %d already registered", tpl.ID)
	}
	var cells []*Cell
	if err := validateAndBind(tpl.Fields, &cells); err != nil {
		return fmt.Errorf("fast: template %q (id %d): %w", tpl.Name, tpl.ID, err)
	}
	r.byID[tpl.ID] = &boundTemplate{tpl: tpl, cells: cells}
	return nil
}

func validateAndBind(fields []*FieldInstruction, cells *[]*Cell) error {
	for _, fi := range fields {
		switch fi.Type {
		case Group:
			fi.cellIndex = -1
			if err := validateAndBind(fi.Fields, cells); err != nil {
				return err
			}
			continue
		case Sequence:
			// The Sequence itself falls through below: its length
			// field gets a cell only when its operator is stateful.
			if err := validateAndBind(fi.Fields, cells); err != nil {
				return err
			}
		}
		switch fi.Operator {
		case OpCopy, OpIncrement, OpDelta, OpTail:
			// A mandatory field with no initial value and an empty
			// dictionary entry is only an error once a real Encode
			// call actually needs it (D6); nothing to check here.
			fi.cellIndex = len(*cells)
			*cells = append(*cells, &Cell{})
		default:
			fi.cellIndex = -1
		}
	}
	return nil
}

// Find returns the template registered under id, if any.
func (r *Repository) Find(id uint32) (*Template, bool) {
	bt, ok := r.byID[id]
	if !ok {
		return nil, false
	}
	return bt.tpl, true
}

func (r *Repository) cellsFor(id uint32) []*Cell {
	bt, ok := r.byID[id]
	if !ok {
		return nil
	}
	return bt.cells
}

// ResetDictionary clears the previous-value state of every stateful
// field in the template registered under id, as if it had never been
// encoded, mirroring ion.Symtab.clear's role of returning a shared
// structure to its startup state between independent uses.
func (r *Repository) ResetDictionary(id uint32) {
	bt, ok := r.byID[id]
	if !ok {
		return
	}
	for _, c := range bt.cells {
		c.reset()
	}
}

// ResetAll resets the dictionary of every registered template.
func (r *Repository) ResetAll() {
	for id := range r.byID {
		r.ResetDictionary(id)
	}
}

// UniqueEntry returns the sole registered template, if exactly one has
// been Included, so an Encoder can seed active_message_id for a
// single-template stream (spec §6's include semantics).
func (r *Repository) UniqueEntry() (*Template, bool) {
	if len(r.byID) != 1 {
		return nil, false
	}
	for _, bt := range r.byID {
		return bt.tpl, true
	}
	return nil, false
}

// TemplateIDs returns the ids of every registered template, in no
// particular order (golang.org/x/exp/maps.Keys, as ion/symtab.go uses
// elsewhere in the teacher for its own id-set snapshots).
func (r *Repository) TemplateIDs() []uint32 {
	return maps.Keys(r.byID)
}

// Snapshot is a point-in-time, deep copy of every registered
// template's previous-value dictionary plus a blake2b-256 fingerprint
// of that state, letting a caller cheaply confirm Restore brought the
// Repository back to exactly this point — the concrete mechanism for
// the "snapshot before encoding, restore on error" transactional
// pattern this module's concurrency model describes but does not
// mandate.
type Snapshot struct {
	byID        map[uint32][]Cell
	fingerprint [32]byte
}

// Snapshot captures the current dictionary state of every template.
func (r *Repository) Snapshot() *Snapshot {
	snap := &Snapshot{byID: make(map[uint32][]Cell, len(r.byID))}
	h, _ := blake2b.New256(nil)
	ids := r.TemplateIDs()
	slices.Sort(ids)
	for _, id := range ids {
		bt := r.byID[id]
		cp := make([]Cell, len(bt.cells))
		for i, c := range bt.cells {
			cp[i] = *c
			cp[i].str = slices.Clone(c.str)
			fmt.Fprintf(h, "%d:%d:%d:%d:%d:%d:%d:%d:%x;", id, i, c.state, c.kind, c.u, c.i, c.dec.Exponent, c.dec.Mantissa, c.str)
		}
		snap.byID[id] = cp
	}
	copy(snap.fingerprint[:], h.Sum(nil))
	return snap
}

// Restore puts every registered template's dictionary back to the
// state captured in snap. It returns an error if snap was taken from
// a Repository with a different set of template ids.
func (r *Repository) Restore(snap *Snapshot) error {
	have := r.TemplateIDs()
	want := maps.Keys(snap.byID)
	slices.Sort(have)
	slices.Sort(want)
	if !slices.Equal(have, want) {
		return fmt.Errorf("fast: snapshot covers a different set of template ids than this repository")
	}
	for id, cp := range snap.byID {
		bt := r.byID[id]
		if len(bt.cells) != len(cp) {
			return fmt.Errorf("fast: snapshot template %d does not match repository shape", id)
		}
		for i := range cp {
			*bt.cells[i] = cp[i]
			bt.cells[i].str = slices.Clone(cp[i].str)
		}
	}
	return nil
}

// Fingerprint exposes the snapshot's content hash for callers that
// want to compare two snapshots without holding both in memory.
func (s *Snapshot) Fingerprint() [32]byte { return s.fingerprint }
