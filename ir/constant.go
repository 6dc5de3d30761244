package ir

import (
	"math"

	"tlog.app/go/errors"
)

// ConstValue holds one constant component. Narrow values occupy the low
// bits; the rest are zero.
type ConstValue uint64

func ConstUint(v uint64, bitSize uint8) ConstValue {
	switch bitSize {
	case 8:
		return ConstValue(uint8(v))
	case 16:
		return ConstValue(uint16(v))
	case 32:
		return ConstValue(uint32(v))
	case 64:
		return ConstValue(v)
	}

	panic(badWidth(bitSize))
}

func ConstInt(v int64, bitSize uint8) ConstValue { return ConstUint(uint64(v), bitSize) }

func ConstFloat(v float64, bitSize uint8) ConstValue {
	switch bitSize {
	case 32:
		return ConstValue(math.Float32bits(float32(v)))
	case 64:
		return ConstValue(math.Float64bits(v))
	}

	panic(badWidth(bitSize))
}

// ConstBool returns all ones of the given width for true.
func ConstBool(v bool, bitSize uint8) ConstValue {
	if !v {
		return 0
	}
	return ConstUint(math.MaxUint64, bitSize)
}

func (c ConstValue) I8() int8     { return int8(c) }
func (c ConstValue) U8() uint8    { return uint8(c) }
func (c ConstValue) I16() int16   { return int16(c) }
func (c ConstValue) U16() uint16  { return uint16(c) }
func (c ConstValue) I32() int32   { return int32(c) }
func (c ConstValue) U32() uint32  { return uint32(c) }
func (c ConstValue) I64() int64   { return int64(c) }
func (c ConstValue) U64() uint64  { return uint64(c) }
func (c ConstValue) F32() float32 { return math.Float32frombits(uint32(c)) }
func (c ConstValue) F64() float64 { return math.Float64frombits(uint64(c)) }
func (c ConstValue) Bool() bool   { return c != 0 }

// Int sign-extends the low bitSize bits. It panics on widths other than
// 8, 16, 32 and 64.
func (c ConstValue) Int(bitSize uint8) int64 {
	switch bitSize {
	case 8:
		return int64(c.I8())
	case 16:
		return int64(c.I16())
	case 32:
		return int64(c.I32())
	case 64:
		return c.I64()
	}

	panic(badWidth(bitSize))
}

// Uint zero-extends the low bitSize bits. It panics on widths other than
// 8, 16, 32 and 64.
func (c ConstValue) Uint(bitSize uint8) uint64 {
	switch bitSize {
	case 8:
		return uint64(c.U8())
	case 16:
		return uint64(c.U16())
	case 32:
		return uint64(c.U32())
	case 64:
		return c.U64()
	}

	panic(badWidth(bitSize))
}

func validConstWidth(bitSize uint8) bool {
	switch bitSize {
	case 8, 16, 32, 64:
		return true
	}
	return false
}

func badWidth(bitSize uint8) error {
	return errors.New("ir: unsupported constant bit size %d", bitSize)
}

// LoadConst defines a constant vector.
type LoadConst struct {
	instr Instr

	dest   Def
	values []ConstValue
}

func (c *LoadConst) Instr() *Instr { return &c.instr }
func (c *LoadConst) Def() *Def     { return &c.dest }

// Values returns one value per component. The slice is owned by the
// instruction and must not be modified.
func (c *LoadConst) Values() []ConstValue { return c.values }

// CompAsInt returns component comp sign-extended from the def width.
func (c *LoadConst) CompAsInt(comp uint8) int64 {
	assert(comp < c.dest.numComponents, "component %d out of range %d", comp, c.dest.numComponents)
	return c.values[comp].Int(c.dest.bitSize)
}

// CompAsUint returns component comp zero-extended from the def width.
func (c *LoadConst) CompAsUint(comp uint8) uint64 {
	assert(comp < c.dest.numComponents, "component %d out of range %d", comp, c.dest.numComponents)
	return c.values[comp].Uint(c.dest.bitSize)
}
