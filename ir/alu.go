package ir

import (
	"iter"
	"math/bits"
	"strconv"
)

// ALUType describes the interpretation of an ALU operand: a base type in
// the high and low bits and a bit size in between. A zero bit size means
// the operand takes the size of the instruction.
type ALUType uint8

const (
	TypeInvalid ALUType = 0
	TypeInt     ALUType = 2
	TypeUint    ALUType = 4
	TypeBool    ALUType = 6
	TypeFloat   ALUType = 128

	TypeBool1   = TypeBool | 1
	TypeBool8   = TypeBool | 8
	TypeBool16  = TypeBool | 16
	TypeBool32  = TypeBool | 32
	TypeInt8    = TypeInt | 8
	TypeInt16   = TypeInt | 16
	TypeInt32   = TypeInt | 32
	TypeInt64   = TypeInt | 64
	TypeUint8   = TypeUint | 8
	TypeUint16  = TypeUint | 16
	TypeUint32  = TypeUint | 32
	TypeUint64  = TypeUint | 64
	TypeFloat16 = TypeFloat | 16
	TypeFloat32 = TypeFloat | 32
	TypeFloat64 = TypeFloat | 64
)

const (
	aluTypeSizeMask ALUType = 1 | 8 | 16 | 32 | 64
	aluTypeBaseMask ALUType = TypeInt | TypeUint | TypeBool | TypeFloat
)

// NewALUType combines a base type with a bit size.
// bitSize must be one of 1, 8, 16, 32 or 64.
func NewALUType(base ALUType, bitSize uint8) ALUType {
	assert(base.IsBaseType(), "%v is not a base type", base)
	assert(bits.OnesCount8(bitSize) == 1, "bit size %d is not a power of two", bitSize)
	assert(ALUType(bitSize)&aluTypeSizeMask == ALUType(bitSize), "unsupported bit size %d", bitSize)

	return base | ALUType(bitSize)
}

// BitSize returns the explicit size or 0 for a sized-by-instruction type.
func (t ALUType) BitSize() uint8 { return uint8(t & aluTypeSizeMask) }

// BaseType strips the bit size.
func (t ALUType) BaseType() ALUType { return t & aluTypeBaseMask }

// IsBaseType reports whether t is one of the four unsized base types.
func (t ALUType) IsBaseType() bool {
	switch t {
	case TypeInt, TypeUint, TypeBool, TypeFloat:
		return true
	}
	return false
}

func (t ALUType) String() string {
	var name string

	switch t.BaseType() {
	case TypeInt:
		name = "int"
	case TypeUint:
		name = "uint"
	case TypeBool:
		name = "bool"
	case TypeFloat:
		name = "float"
	default:
		return "invalid"
	}

	if s := t.BitSize(); s != 0 {
		name += strconv.Itoa(int(s))
	}
	return name
}

// AlgebraicProperty flags.
type AlgebraicProperty uint8

const (
	Commutative AlgebraicProperty = 1 << iota
	Associative
	SelectionOp
)

// OpInfo is the static description of an ALU operation.
type OpInfo struct {
	Name       string
	NumInputs  uint8
	OutputSize uint8 // 0: per-component, as wide as the destination
	OutputType ALUType
	InputSizes [4]uint8 // 0: per-component
	InputTypes [4]ALUType
	Algebraic  AlgebraicProperty
}

// Op is an ALU operation code.
type Op uint16

const (
	OpMov Op = iota
	OpFneg
	OpIneg
	OpFabs
	OpIabs
	OpFsat
	OpFsign
	OpFfloor
	OpFceil
	OpFfract
	OpFsqrt
	OpFrsq
	OpFrcp
	OpFexp2
	OpFlog2
	OpFsin
	OpFcos
	OpInot

	OpF2i32
	OpF2u32
	OpI2f32
	OpU2f32
	OpB2f32
	OpB2i32
	OpF2f16
	OpF2f32

	OpFadd
	OpIadd
	OpFsub
	OpIsub
	OpFmul
	OpImul
	OpFdiv
	OpIdiv
	OpUdiv
	OpFmin
	OpFmax
	OpImin
	OpImax
	OpUmin
	OpUmax
	OpIand
	OpIor
	OpIxor
	OpIshl
	OpIshr
	OpUshr

	OpFlt
	OpFge
	OpFeq
	OpFneu
	OpIlt
	OpIge
	OpIeq
	OpIne
	OpUlt
	OpUge

	OpFfma
	OpBcsel
	OpFlrp

	OpVec2
	OpVec3
	OpVec4
	OpFdot2
	OpFdot3
	OpFdot4

	numOps
)

const (
	ca = Commutative | Associative
)

var opInfos = [numOps]OpInfo{
	OpMov:    unop("mov", TypeUint, TypeUint),
	OpFneg:   unop("fneg", TypeFloat, TypeFloat),
	OpIneg:   unop("ineg", TypeInt, TypeInt),
	OpFabs:   unop("fabs", TypeFloat, TypeFloat),
	OpIabs:   unop("iabs", TypeInt, TypeInt),
	OpFsat:   unop("fsat", TypeFloat, TypeFloat),
	OpFsign:  unop("fsign", TypeFloat, TypeFloat),
	OpFfloor: unop("ffloor", TypeFloat, TypeFloat),
	OpFceil:  unop("fceil", TypeFloat, TypeFloat),
	OpFfract: unop("ffract", TypeFloat, TypeFloat),
	OpFsqrt:  unop("fsqrt", TypeFloat, TypeFloat),
	OpFrsq:   unop("frsq", TypeFloat, TypeFloat),
	OpFrcp:   unop("frcp", TypeFloat, TypeFloat),
	OpFexp2:  unop("fexp2", TypeFloat, TypeFloat),
	OpFlog2:  unop("flog2", TypeFloat, TypeFloat),
	OpFsin:   unop("fsin", TypeFloat, TypeFloat),
	OpFcos:   unop("fcos", TypeFloat, TypeFloat),
	OpInot:   unop("inot", TypeInt, TypeInt),

	OpF2i32: unop("f2i32", TypeInt32, TypeFloat),
	OpF2u32: unop("f2u32", TypeUint32, TypeFloat),
	OpI2f32: unop("i2f32", TypeFloat32, TypeInt),
	OpU2f32: unop("u2f32", TypeFloat32, TypeUint),
	OpB2f32: unop("b2f32", TypeFloat32, TypeBool),
	OpB2i32: unop("b2i32", TypeInt32, TypeBool),
	OpF2f16: unop("f2f16", TypeFloat16, TypeFloat),
	OpF2f32: unop("f2f32", TypeFloat32, TypeFloat),

	OpFadd: binop("fadd", TypeFloat, TypeFloat, ca),
	OpIadd: binop("iadd", TypeInt, TypeInt, ca),
	OpFsub: binop("fsub", TypeFloat, TypeFloat, 0),
	OpIsub: binop("isub", TypeInt, TypeInt, 0),
	OpFmul: binop("fmul", TypeFloat, TypeFloat, ca),
	OpImul: binop("imul", TypeInt, TypeInt, ca),
	OpFdiv: binop("fdiv", TypeFloat, TypeFloat, 0),
	OpIdiv: binop("idiv", TypeInt, TypeInt, 0),
	OpUdiv: binop("udiv", TypeUint, TypeUint, 0),
	OpFmin: binop("fmin", TypeFloat, TypeFloat, ca),
	OpFmax: binop("fmax", TypeFloat, TypeFloat, ca),
	OpImin: binop("imin", TypeInt, TypeInt, ca),
	OpImax: binop("imax", TypeInt, TypeInt, ca),
	OpUmin: binop("umin", TypeUint, TypeUint, ca),
	OpUmax: binop("umax", TypeUint, TypeUint, ca),
	OpIand: binop("iand", TypeUint, TypeUint, ca),
	OpIor:  binop("ior", TypeUint, TypeUint, ca),
	OpIxor: binop("ixor", TypeUint, TypeUint, ca),
	OpIshl: shiftop("ishl", TypeInt),
	OpIshr: shiftop("ishr", TypeInt),
	OpUshr: shiftop("ushr", TypeUint),

	OpFlt:  binop("flt", TypeBool1, TypeFloat, 0),
	OpFge:  binop("fge", TypeBool1, TypeFloat, 0),
	OpFeq:  binop("feq", TypeBool1, TypeFloat, Commutative),
	OpFneu: binop("fneu", TypeBool1, TypeFloat, Commutative),
	OpIlt:  binop("ilt", TypeBool1, TypeInt, 0),
	OpIge:  binop("ige", TypeBool1, TypeInt, 0),
	OpIeq:  binop("ieq", TypeBool1, TypeInt, Commutative),
	OpIne:  binop("ine", TypeBool1, TypeInt, Commutative),
	OpUlt:  binop("ult", TypeBool1, TypeUint, 0),
	OpUge:  binop("uge", TypeBool1, TypeUint, 0),

	OpFfma:  triop("ffma", TypeFloat, [3]ALUType{TypeFloat, TypeFloat, TypeFloat}, 0),
	OpBcsel: triop("bcsel", TypeUint, [3]ALUType{TypeBool1, TypeUint, TypeUint}, SelectionOp),
	OpFlrp:  triop("flrp", TypeFloat, [3]ALUType{TypeFloat, TypeFloat, TypeFloat}, 0),

	OpVec2: vecop("vec2", 2),
	OpVec3: vecop("vec3", 3),
	OpVec4: vecop("vec4", 4),

	OpFdot2: dotop("fdot2", 2),
	OpFdot3: dotop("fdot3", 3),
	OpFdot4: dotop("fdot4", 4),
}

func unop(name string, out, in ALUType) OpInfo {
	return OpInfo{Name: name, NumInputs: 1, OutputType: out, InputTypes: [4]ALUType{in}}
}

func binop(name string, out, in ALUType, alg AlgebraicProperty) OpInfo {
	return OpInfo{Name: name, NumInputs: 2, OutputType: out, InputTypes: [4]ALUType{in, in}, Algebraic: alg}
}

func shiftop(name string, t ALUType) OpInfo {
	return OpInfo{Name: name, NumInputs: 2, OutputType: t, InputTypes: [4]ALUType{t, TypeUint32}}
}

func triop(name string, out ALUType, in [3]ALUType, alg AlgebraicProperty) OpInfo {
	return OpInfo{Name: name, NumInputs: 3, OutputType: out, InputTypes: [4]ALUType{in[0], in[1], in[2]}, Algebraic: alg}
}

func vecop(name string, n uint8) OpInfo {
	info := OpInfo{Name: name, NumInputs: n, OutputSize: n, OutputType: TypeUint}

	for i := range n {
		info.InputSizes[i] = 1
		info.InputTypes[i] = TypeUint
	}
	return info
}

func dotop(name string, n uint8) OpInfo {
	return OpInfo{
		Name:       name,
		NumInputs:  2,
		OutputSize: 1,
		OutputType: TypeFloat,
		InputSizes: [4]uint8{n, n},
		InputTypes: [4]ALUType{TypeFloat, TypeFloat},
		Algebraic:  Commutative,
	}
}

// Info returns the static description of op. It panics on unknown ops.
func (op Op) Info() *OpInfo {
	assert(op < numOps, "unknown alu op %d", op)
	return &opInfos[op]
}

func (op Op) String() string {
	if op < numOps {
		return opInfos[op].Name
	}
	return "op(" + strconv.Itoa(int(op)) + ")"
}

// ParseOp looks an op up by name.
func ParseOp(name string) (Op, bool) {
	for i := range opInfos {
		if opInfos[i].Name == name {
			return Op(i), true
		}
	}
	return 0, false
}

// Alu is an arithmetic or logic instruction.
type Alu struct {
	instr Instr

	op    Op
	exact bool
	dest  Def
	srcs  []AluSrc
}

func (a *Alu) Instr() *Instr { return &a.instr }
func (a *Alu) Op() Op        { return a.op }
func (a *Alu) Info() *OpInfo { return a.op.Info() }

// Exact reports whether the instruction must not be reassociated or
// otherwise transformed in ways that change its result.
func (a *Alu) Exact() bool { return a.exact }
func (a *Alu) Def() *Def   { return &a.dest }

// Src returns source i. It panics if i is not below the op's input count.
func (a *Alu) Src(i int) *AluSrc {
	assert(i < int(a.Info().NumInputs), "%v has %d sources, asked for %d", a.op, a.Info().NumInputs, i)
	return &a.srcs[i]
}

// Srcs iterates over the sources with their positions.
func (a *Alu) Srcs() iter.Seq2[int, *AluSrc] {
	return func(yield func(int, *AluSrc) bool) {
		for i := range a.srcs {
			if !yield(i, &a.srcs[i]) {
				return
			}
		}
	}
}

// SrcComponents returns the number of components source i reads.
func (a *Alu) SrcComponents(i int) uint8 {
	if s := a.Info().InputSizes[i]; s > 0 {
		return s
	}
	return a.dest.numComponents
}

// AluSrc is an ALU source with a component swizzle.
type AluSrc struct {
	src     Src
	swizzle [16]uint8
}

func (s *AluSrc) Src() *Src { return &s.src }

// Swizzle maps each read component to a component of the source def.
func (s *AluSrc) Swizzle() [16]uint8 { return s.swizzle }

// BitSize is the width of the source def.
func (s *AluSrc) BitSize() uint8 { return s.src.Def().bitSize }

// CompAsInt reads component comp of a constant source through the swizzle.
func (s *AluSrc) CompAsInt(comp uint8) (int64, bool) {
	return s.src.Def().CompAsInt(s.swizzle[comp])
}

// CompAsUint reads component comp of a constant source through the swizzle.
func (s *AluSrc) CompAsUint(comp uint8) (uint64, bool) {
	return s.src.Def().CompAsUint(s.swizzle[comp])
}
