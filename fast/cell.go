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

import "github.com/dchest/siphash"

// cellState is the three-state previous-value lifecycle every
// stateful operator (copy, increment, delta, tail) tracks per field,
// per spec.
type cellState int

const (
	cellUndefined cellState = iota
	cellAssigned
	cellEmpty
)

// Cell is one slot of a Template's previous-value dictionary: the
// runtime state backing a single field instruction across repeated
// Encode calls on the same Repository.
type Cell struct {
	state cellState
	kind  ValueKind
	u     uint64
	i     int64
	dec   DecimalValue
	str   []byte

	hashValid bool
	hash      uint64
}

// reset returns the cell to its startup state (previous value
// undefined), used by Repository.ResetDictionary.
func (c *Cell) reset() {
	c.state = cellUndefined
	c.kind = KindAbsent
	c.str = c.str[:0]
	c.hashValid = false
}

func (c *Cell) isUndefined() bool { return c.state == cellUndefined }
func (c *Cell) isAssigned() bool  { return c.state == cellAssigned }
func (c *Cell) isEmpty() bool     { return c.state == cellEmpty }

func (c *Cell) setEmpty() {
	c.state = cellEmpty
	c.kind = KindAbsent
	c.hashValid = false
}

func (c *Cell) assignUint(u uint64) {
	c.state = cellAssigned
	c.kind = KindUint
	c.u = u
	c.hashValid = false
}

func (c *Cell) assignInt(i int64) {
	c.state = cellAssigned
	c.kind = KindInt
	c.i = i
	c.hashValid = false
}

func (c *Cell) assignDecimal(d DecimalValue) {
	c.state = cellAssigned
	c.kind = KindDecimal
	c.dec = d
	c.hashValid = false
}

func (c *Cell) assignString(s []byte) {
	c.state = cellAssigned
	c.kind = KindString
	c.str = append(c.str[:0], s...)
	c.hashValid = false
}

// siphashKey is a fixed, arbitrary 64-bit seed used purely to give the
// content-hash fast path a stable key; it is never exposed and plays
// no cryptographic role.
const siphashKey uint64 = 0x66617374656e6331

func (c *Cell) hashOf() uint64 {
	if !c.hashValid {
		c.hash = siphash.Hash(0, siphashKey, c.str)
		c.hashValid = true
	}
	return c.hash
}

// equalString reports whether c's previous string value equals s,
// short-circuiting on a cheap hash comparison before falling back to a
// byte-for-byte check — useful once tail/delta/copy fields carry long
// strings across many Encode calls.
func (c *Cell) equalString(s []byte) bool {
	if len(c.str) != len(s) {
		return false
	}
	if len(s) == 0 {
		return true
	}
	h := siphash.Hash(0, siphashKey, s)
	if h != c.hashOf() {
		return false
	}
	return string(c.str) == string(s)
}
