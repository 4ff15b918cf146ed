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

func encodeSignedField(ctx *encodeContext, fi *FieldInstruction, cell *Cell, v Value, pm *pmap.Encoder) error {
	nullable := fi.Presence == Optional
	switch fi.Operator {
	case OpNone:
		if v.IsAbsent() {
			if !nullable {
				return fmt.Errorf("fast: mandatory field %q is absent", fi.Name)
			}
			return writeNull(ctx)
		}
		return writeSigned(ctx, v.I, nullable)

	case OpConstant:
		if nullable {
			bit := pm.NextIndex()
			pm.SetNextBit(false)
			if v.IsAbsent() {
				return nil
			}
			if v.I != fi.Initial.I {
				return fmt.Errorf("fast: field %q: constant value must equal %d", fi.Name, fi.Initial.I)
			}
			pm.SetBit(bit, true)
			return nil
		}
		if v.I != fi.Initial.I {
			return fmt.Errorf("fast: field %q: constant value must equal %d", fi.Name, fi.Initial.I)
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
		if !nullable && fi.HasInitial && v.I == fi.Initial.I {
			return nil
		}
		pm.SetBit(bit, true)
		return writeSigned(ctx, v.I, nullable)

	case OpCopy:
		return encodeSignedCopy(ctx, fi, cell, v, pm, nullable)

	case OpIncrement:
		return encodeSignedIncrement(ctx, fi, cell, v, pm, nullable)

	case OpDelta:
		return encodeSignedDelta(ctx, fi, cell, v, nullable)

	default:
		return fmt.Errorf("fast: field %q: operator %s not supported for %s", fi.Name, fi.Operator, fi.Type)
	}
}

func encodeSignedCopy(ctx *encodeContext, fi *FieldInstruction, cell *Cell, v Value, pm *pmap.Encoder, nullable bool) error {
	bit := pm.NextIndex()
	pm.SetNextBit(false)

	switch {
	case cell.isUndefined():
		if !nullable && fi.HasInitial && v.I == fi.Initial.I {
			cell.assignInt(v.I)
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
		if nullable && fi.HasInitial && v.I == fi.Initial.I {
			cell.assignInt(v.I)
			return nil
		}
		pm.SetBit(bit, true)
		cell.assignInt(v.I)
		if v.IsAbsent() {
			return writeNull(ctx)
		}
		return writeSigned(ctx, v.I, nullable)

	case cell.isAssigned():
		if !v.IsAbsent() && cell.kind == KindInt && cell.i == v.I {
			return nil
		}
		pm.SetBit(bit, true)
		if v.IsAbsent() {
			cell.setEmpty()
			return writeNull(ctx)
		}
		cell.assignInt(v.I)
		return writeSigned(ctx, v.I, nullable)

	default: // empty
		if !nullable {
			return ctx.d6(fmt.Errorf("field %q: mandatory copy with empty previous value", fi.Name))
		}
		if v.IsAbsent() {
			return nil
		}
		pm.SetBit(bit, true)
		cell.assignInt(v.I)
		return writeSigned(ctx, v.I, nullable)
	}
}

func encodeSignedIncrement(ctx *encodeContext, fi *FieldInstruction, cell *Cell, v Value, pm *pmap.Encoder, nullable bool) error {
	bit := pm.NextIndex()
	pm.SetNextBit(false)

	switch {
	case cell.isUndefined():
		if !nullable && fi.HasInitial && v.I == fi.Initial.I {
			cell.assignInt(v.I)
			return nil
		}
		if nullable && v.IsAbsent() && !fi.HasInitial {
			cell.setEmpty()
			return nil
		}
		pm.SetBit(bit, true)
		if v.IsAbsent() {
			cell.setEmpty()
			return writeNull(ctx)
		}
		cell.assignInt(v.I)
		return writeSigned(ctx, v.I, nullable)

	case cell.isAssigned():
		if !v.IsAbsent() && cell.kind == KindInt && v.I == cell.i+1 {
			cell.assignInt(v.I)
			return nil
		}
		pm.SetBit(bit, true)
		if v.IsAbsent() {
			cell.setEmpty()
			return writeNull(ctx)
		}
		cell.assignInt(v.I)
		return writeSigned(ctx, v.I, nullable)

	default: // empty
		if !nullable {
			return ctx.d6(fmt.Errorf("field %q: mandatory increment with empty previous value", fi.Name))
		}
		if v.IsAbsent() {
			return nil
		}
		pm.SetBit(bit, true)
		cell.assignInt(v.I)
		return writeSigned(ctx, v.I, nullable)
	}
}

func signedBase(fi *FieldInstruction, cell *Cell) int64 {
	if cell != nil && cell.isAssigned() && cell.kind == KindInt {
		return cell.i
	}
	if fi.HasInitial {
		return fi.Initial.I
	}
	return 0
}

func encodeSignedDelta(ctx *encodeContext, fi *FieldInstruction, cell *Cell, v Value, nullable bool) error {
	if v.IsAbsent() {
		return writeNull(ctx)
	}
	base := signedBase(fi, cell)
	delta := v.I - base
	if err := writeSigned(ctx, delta, nullable); err != nil {
		return err
	}
	cell.assignInt(v.I)
	return nil
}
