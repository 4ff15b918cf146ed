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

func decimalEqual(a, b DecimalValue) bool {
	return a.Exponent == b.Exponent && a.Mantissa == b.Mantissa
}

func encodeDecimalField(ctx *encodeContext, fi *FieldInstruction, cell *Cell, v Value, pm *pmap.Encoder) error {
	nullable := fi.Presence == Optional
	switch fi.Operator {
	case OpNone:
		if v.IsAbsent() {
			if !nullable {
				return fmt.Errorf("fast: mandatory field %q is absent", fi.Name)
			}
			return writeNull(ctx)
		}
		return writeDecimal(ctx, v.Dec, nullable)

	case OpConstant:
		if nullable {
			bit := pm.NextIndex()
			pm.SetNextBit(false)
			if v.IsAbsent() {
				return nil
			}
			if !decimalEqual(v.Dec, fi.Initial.Dec) {
				return fmt.Errorf("fast: field %q: constant value mismatch", fi.Name)
			}
			pm.SetBit(bit, true)
			return nil
		}
		if !decimalEqual(v.Dec, fi.Initial.Dec) {
			return fmt.Errorf("fast: field %q: constant value mismatch", fi.Name)
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
		if !nullable && fi.HasInitial && decimalEqual(v.Dec, fi.Initial.Dec) {
			return nil
		}
		pm.SetBit(bit, true)
		return writeDecimal(ctx, v.Dec, nullable)

	case OpCopy:
		return encodeDecimalCopy(ctx, fi, cell, v, pm, nullable)

	case OpDelta:
		return encodeDecimalDelta(ctx, fi, cell, v, nullable)

	default:
		return fmt.Errorf("fast: field %q: operator %s not supported for decimal", fi.Name, fi.Operator)
	}
}

func writeDecimal(ctx *encodeContext, d DecimalValue, nullable bool) error {
	if err := writeSigned(ctx, int64(d.Exponent), nullable); err != nil {
		return err
	}
	return writeSigned(ctx, d.Mantissa, false)
}

func encodeDecimalCopy(ctx *encodeContext, fi *FieldInstruction, cell *Cell, v Value, pm *pmap.Encoder, nullable bool) error {
	bit := pm.NextIndex()
	pm.SetNextBit(false)

	switch {
	case cell.isUndefined():
		if !nullable && fi.HasInitial && decimalEqual(v.Dec, fi.Initial.Dec) {
			cell.assignDecimal(v.Dec)
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
		if nullable && fi.HasInitial && decimalEqual(v.Dec, fi.Initial.Dec) {
			cell.assignDecimal(v.Dec)
			return nil
		}
		pm.SetBit(bit, true)
		cell.assignDecimal(v.Dec)
		if v.IsAbsent() {
			return writeNull(ctx)
		}
		return writeDecimal(ctx, v.Dec, nullable)

	case cell.isAssigned():
		if !v.IsAbsent() && cell.kind == KindDecimal && decimalEqual(cell.dec, v.Dec) {
			return nil
		}
		pm.SetBit(bit, true)
		if v.IsAbsent() {
			cell.setEmpty()
			return writeNull(ctx)
		}
		cell.assignDecimal(v.Dec)
		return writeDecimal(ctx, v.Dec, nullable)

	default: // empty
		if !nullable {
			return ctx.d6(fmt.Errorf("field %q: mandatory copy with empty previous value", fi.Name))
		}
		if v.IsAbsent() {
			return nil
		}
		pm.SetBit(bit, true)
		cell.assignDecimal(v.Dec)
		return writeDecimal(ctx, v.Dec, nullable)
	}
}

func decimalBase(fi *FieldInstruction, cell *Cell) DecimalValue {
	if cell != nil && cell.isAssigned() && cell.kind == KindDecimal {
		return cell.dec
	}
	if fi.HasInitial {
		return fi.Initial.Dec
	}
	return DecimalValue{}
}

func encodeDecimalDelta(ctx *encodeContext, fi *FieldInstruction, cell *Cell, v Value, nullable bool) error {
	if v.IsAbsent() {
		return writeNull(ctx)
	}
	base := decimalBase(fi, cell)
	expDelta := int64(v.Dec.Exponent) - int64(base.Exponent)
	mantDelta := v.Dec.Mantissa - base.Mantissa
	if err := writeSigned(ctx, expDelta, nullable); err != nil {
		return err
	}
	if err := writeSigned(ctx, mantDelta, false); err != nil {
		return err
	}
	cell.assignDecimal(v.Dec)
	return nil
}
