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

func encodeUnsignedField(ctx *encodeContext, fi *FieldInstruction, cell *Cell, v Value, pm *pmap.Encoder) error {
	nullable := fi.Presence == Optional
	switch fi.Operator {
	case OpNone:
		if v.IsAbsent() {
			if !nullable {
				return fmt.Errorf("fast: mandatory field %q is absent", fi.Name)
			}
			return writeNull(ctx)
		}
		return writeUnsigned(ctx, v.U, nullable)

	case OpConstant:
		if nullable {
			bit := pm.NextIndex()
			pm.SetNextBit(false)
			if v.IsAbsent() {
				return nil
			}
			if v.U != fi.Initial.U {
				return fmt.Errorf("fast: field %q: constant value must equal %d", fi.Name, fi.Initial.U)
			}
			pm.SetBit(bit, true)
			return nil
		}
		if v.U != fi.Initial.U {
			return fmt.Errorf("fast: field %q: constant value must equal %d", fi.Name, fi.Initial.U)
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
		if !nullable && fi.HasInitial && v.U == fi.Initial.U {
			return nil
		}
		pm.SetBit(bit, true)
		return writeUnsigned(ctx, v.U, nullable)

	case OpCopy:
		return encodeUnsignedCopy(ctx, fi, cell, v, pm, nullable)

	case OpIncrement:
		return encodeUnsignedIncrement(ctx, fi, cell, v, pm, nullable)

	case OpDelta:
		return encodeUnsignedDelta(ctx, fi, cell, v, nullable)

	default:
		return fmt.Errorf("fast: field %q: operator %s not supported for %s", fi.Name, fi.Operator, fi.Type)
	}
}

func encodeUnsignedCopy(ctx *encodeContext, fi *FieldInstruction, cell *Cell, v Value, pm *pmap.Encoder, nullable bool) error {
	bit := pm.NextIndex()
	pm.SetNextBit(false)

	switch {
	case cell.isUndefined():
		if !nullable && v.U == fi.Initial.U && fi.HasInitial {
			cell.assignUint(v.U)
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
		if nullable && fi.HasInitial && v.U == fi.Initial.U {
			cell.assignUint(v.U)
			return nil
		}
		pm.SetBit(bit, true)
		cell.assignUint(v.U)
		if v.IsAbsent() {
			return writeNull(ctx)
		}
		return writeUnsigned(ctx, v.U, nullable)

	case cell.isAssigned():
		if !v.IsAbsent() && cell.kind == KindUint && cell.u == v.U {
			return nil
		}
		pm.SetBit(bit, true)
		if v.IsAbsent() {
			cell.setEmpty()
			return writeNull(ctx)
		}
		cell.assignUint(v.U)
		return writeUnsigned(ctx, v.U, nullable)

	default: // empty
		if !nullable {
			return ctx.d6(fmt.Errorf("field %q: mandatory copy with empty previous value", fi.Name))
		}
		if v.IsAbsent() {
			return nil
		}
		pm.SetBit(bit, true)
		cell.assignUint(v.U)
		return writeUnsigned(ctx, v.U, nullable)
	}
}

func encodeUnsignedIncrement(ctx *encodeContext, fi *FieldInstruction, cell *Cell, v Value, pm *pmap.Encoder, nullable bool) error {
	bit := pm.NextIndex()
	pm.SetNextBit(false)

	switch {
	case cell.isUndefined():
		if !nullable && fi.HasInitial && v.U == fi.Initial.U {
			cell.assignUint(v.U)
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
		cell.assignUint(v.U)
		return writeUnsigned(ctx, v.U, nullable)

	case cell.isAssigned():
		if !v.IsAbsent() && cell.kind == KindUint && v.U == cell.u+1 {
			cell.assignUint(v.U)
			return nil
		}
		pm.SetBit(bit, true)
		if v.IsAbsent() {
			cell.setEmpty()
			return writeNull(ctx)
		}
		cell.assignUint(v.U)
		return writeUnsigned(ctx, v.U, nullable)

	default: // empty
		if !nullable {
			return ctx.d6(fmt.Errorf("field %q: mandatory increment with empty previous value", fi.Name))
		}
		if v.IsAbsent() {
			return nil
		}
		pm.SetBit(bit, true)
		cell.assignUint(v.U)
		return writeUnsigned(ctx, v.U, nullable)
	}
}

func unsignedBase(fi *FieldInstruction, cell *Cell) uint64 {
	if cell != nil && cell.isAssigned() && cell.kind == KindUint {
		return cell.u
	}
	if fi.HasInitial {
		return fi.Initial.U
	}
	return 0
}

func encodeUnsignedDelta(ctx *encodeContext, fi *FieldInstruction, cell *Cell, v Value, nullable bool) error {
	if v.IsAbsent() {
		return writeNull(ctx)
	}
	base := unsignedBase(fi, cell)
	delta := int64(v.U) - int64(base)
	if err := writeSigned(ctx, delta, nullable); err != nil {
		return err
	}
	cell.assignUint(v.U)
	return nil
}
