package ir

import (
	"strconv"
	"strings"
)

// Scope is a synchronization scope.
type Scope uint32

const (
	ScopeNone Scope = iota
	ScopeInvocation
	ScopeSubgroup
	ScopeShaderCall
	ScopeWorkgroup
	ScopeQueueFamily
	ScopeDevice
)

var scopeNames = []string{"none", "invocation", "subgroup", "shader_call", "workgroup", "queue_family", "device"}

func (s Scope) String() string { return enumString(scopeNames, uint32(s)) }

// MemorySemantics is a set of memory ordering flags.
type MemorySemantics uint32

const (
	SemanticsAcquire MemorySemantics = 1 << iota
	SemanticsRelease
	SemanticsMakeAvailable
	SemanticsMakeVisible
)

var semanticsNames = []string{"acquire", "release", "make_available", "make_visible"}

func (s MemorySemantics) String() string { return flagString(semanticsNames, uint32(s)) }

// AtomicOp is the operation of an atomic intrinsic.
type AtomicOp uint32

const (
	AtomicIadd AtomicOp = iota
	AtomicImin
	AtomicUmin
	AtomicImax
	AtomicUmax
	AtomicIand
	AtomicIor
	AtomicIxor
	AtomicXchg
	AtomicCmpxchg
	AtomicFadd
	AtomicFmin
	AtomicFmax
)

var atomicNames = []string{"iadd", "imin", "umin", "imax", "umax", "iand", "ior", "ixor", "xchg", "cmpxchg", "fadd", "fmin", "fmax"}

func (a AtomicOp) String() string { return enumString(atomicNames, uint32(a)) }

// SamplerDim is the dimensionality of an image or texture.
type SamplerDim uint32

const (
	Dim1D SamplerDim = iota
	Dim2D
	Dim3D
	DimCube
	DimRect
	DimBuf
	DimMS
	DimSubpass
)

var dimNames = []string{"1d", "2d", "3d", "cube", "rect", "buf", "ms", "subpass"}

func (d SamplerDim) String() string { return enumString(dimNames, uint32(d)) }

// ParseSamplerDim is the inverse of SamplerDim.String.
func ParseSamplerDim(s string) (SamplerDim, bool) {
	v, ok := enumParse(dimNames, s)
	return SamplerDim(v), ok
}

// AccessQualifier is a set of memory access flags.
type AccessQualifier uint32

const (
	AccessCoherent AccessQualifier = 1 << iota
	AccessVolatile
	AccessRestrict
	AccessNonWriteable
	AccessNonReadable
	AccessCanReorder
)

var accessNames = []string{"coherent", "volatile", "restrict", "non_writeable", "non_readable", "can_reorder"}

func (a AccessQualifier) String() string { return flagString(accessNames, uint32(a)) }

// RoundingMode of a conversion.
type RoundingMode uint32

const (
	RoundUndef RoundingMode = iota
	RoundRTNE
	RoundRU
	RoundRD
	RoundRTZ
)

var roundingNames = []string{"undef", "rtne", "ru", "rd", "rtz"}

func (r RoundingMode) String() string { return enumString(roundingNames, uint32(r)) }

// MatrixLayout of a cooperative matrix in memory.
type MatrixLayout uint32

const (
	LayoutInherited MatrixLayout = iota
	LayoutColumnMajor
	LayoutRowMajor
)

var layoutNames = []string{"inherited", "column_major", "row_major"}

func (l MatrixLayout) String() string { return enumString(layoutNames, uint32(l)) }

// InterpMode is the interpolation qualifier of an input.
type InterpMode uint32

const (
	InterpNone InterpMode = iota
	InterpSmooth
	InterpFlat
	InterpNoPerspective
	InterpExplicit
)

var interpNames = []string{"none", "smooth", "flat", "noperspective", "explicit"}

func (m InterpMode) String() string { return enumString(interpNames, uint32(m)) }

// Format is an image texel format.
type Format uint32

const (
	FormatNone Format = iota
	FormatR32Float
	FormatR32Uint
	FormatR32Sint
	FormatR32G32Float
	FormatR8G8B8A8Unorm
	FormatR16G16B16A16Float
	FormatR32G32B32A32Float
)

var formatNames = []string{"none", "r32_float", "r32_uint", "r32_sint", "r32g32_float", "r8g8b8a8_unorm", "r16g16b16a16_float", "r32g32b32a32_float"}

func (f Format) String() string { return enumString(formatNames, uint32(f)) }

// ParseALUType parses names like "float32", "uint" or "bool1".
func ParseALUType(s string) (ALUType, bool) {
	for _, base := range []ALUType{TypeInt, TypeUint, TypeBool, TypeFloat} {
		name := base.String()

		rest, ok := strings.CutPrefix(s, name)
		if !ok {
			continue
		}

		if rest == "" {
			return base, true
		}

		n, err := strconv.ParseUint(rest, 10, 8)
		if err != nil || n == 0 || ALUType(n)&aluTypeSizeMask != ALUType(n) || n&(n-1) != 0 {
			return 0, false
		}
		return base | ALUType(n), true
	}
	return 0, false
}

func enumString(names []string, v uint32) string {
	if int(v) < len(names) {
		return names[v]
	}
	return strconv.FormatUint(uint64(v), 10)
}

func enumParse(names []string, s string) (uint32, bool) {
	for i, n := range names {
		if n == s {
			return uint32(i), true
		}
	}
	return 0, false
}

func flagString(names []string, v uint32) string {
	if v == 0 {
		return "none"
	}

	var b strings.Builder

	for i, n := range names {
		if v&(1<<i) == 0 {
			continue
		}

		if b.Len() != 0 {
			b.WriteByte('|')
		}

		b.WriteString(n)
		v &^= 1 << i
	}

	if v != 0 {
		if b.Len() != 0 {
			b.WriteByte('|')
		}

		b.WriteString("0x" + strconv.FormatUint(uint64(v), 16))
	}
	return b.String()
}

func flagParse(names []string, s string) (uint32, bool) {
	if s == "none" {
		return 0, true
	}

	var v uint32

	for _, part := range strings.Split(s, "|") {
		bit, ok := enumParse(names, part)
		if !ok {
			return 0, false
		}

		v |= 1 << bit
	}
	return v, true
}
