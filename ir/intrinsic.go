package ir

import (
	"iter"
	"math/bits"
	"strconv"
)

const (
	maxIntrinsicSrcs = 11
	maxConstIndices  = 8
)

// IndexName names a constant index an intrinsic may carry.
type IndexName uint8

const (
	IndexBase IndexName = iota
	IndexWriteMask
	IndexStreamID
	IndexRangeBase
	IndexRange
	IndexComponent
	IndexInterpMode
	IndexReductionOp
	IndexClusterSize
	IndexImageDim
	IndexImageArray
	IndexFormat
	IndexAccess
	IndexAlignMul
	IndexAlignOffset
	IndexExecutionScope
	IndexMemoryScope
	IndexMemorySemantics
	IndexMemoryModes
	IndexFlags
	IndexAtomicOp
	IndexSrcType
	IndexDestType
	IndexRoundingMode
	IndexSaturate
	IndexMatrixLayout
	IndexNumMatrices

	numIndexNames
)

var indexNames = [numIndexNames]string{
	IndexBase:            "base",
	IndexWriteMask:       "write_mask",
	IndexStreamID:        "stream_id",
	IndexRangeBase:       "range_base",
	IndexRange:           "range",
	IndexComponent:       "component",
	IndexInterpMode:      "interp_mode",
	IndexReductionOp:     "reduction_op",
	IndexClusterSize:     "cluster_size",
	IndexImageDim:        "image_dim",
	IndexImageArray:      "image_array",
	IndexFormat:          "format",
	IndexAccess:          "access",
	IndexAlignMul:        "align_mul",
	IndexAlignOffset:     "align_offset",
	IndexExecutionScope:  "execution_scope",
	IndexMemoryScope:     "memory_scope",
	IndexMemorySemantics: "memory_semantics",
	IndexMemoryModes:     "memory_modes",
	IndexFlags:           "flags",
	IndexAtomicOp:        "atomic_op",
	IndexSrcType:         "src_type",
	IndexDestType:        "dest_type",
	IndexRoundingMode:    "rounding_mode",
	IndexSaturate:        "saturate",
	IndexMatrixLayout:    "matrix_layout",
	IndexNumMatrices:     "num_matrices",
}

func (n IndexName) String() string {
	if n < numIndexNames {
		return indexNames[n]
	}
	return "index(" + strconv.Itoa(int(n)) + ")"
}

// ParseIndexName is the inverse of IndexName.String.
func ParseIndexName(s string) (IndexName, bool) {
	for i, n := range indexNames {
		if n == s {
			return IndexName(i), true
		}
	}
	return 0, false
}

// FormatValue renders an index value symbolically where the index has a
// symbolic domain.
func (n IndexName) FormatValue(v int32) string {
	u := uint32(v)

	switch n {
	case IndexInterpMode:
		return InterpMode(u).String()
	case IndexReductionOp:
		return Op(u).String()
	case IndexImageDim:
		return SamplerDim(u).String()
	case IndexImageArray, IndexSaturate:
		return strconv.FormatBool(u != 0)
	case IndexFormat:
		return Format(u).String()
	case IndexAccess:
		return AccessQualifier(u).String()
	case IndexExecutionScope, IndexMemoryScope:
		return Scope(u).String()
	case IndexMemorySemantics:
		return MemorySemantics(u).String()
	case IndexMemoryModes:
		return VariableMode(u).String()
	case IndexAtomicOp:
		return AtomicOp(u).String()
	case IndexSrcType, IndexDestType:
		return ALUType(u).String()
	case IndexRoundingMode:
		return RoundingMode(u).String()
	case IndexMatrixLayout:
		return MatrixLayout(u).String()
	case IndexWriteMask:
		return "0x" + strconv.FormatUint(uint64(u), 16)
	}
	return strconv.FormatInt(int64(v), 10)
}

// ParseValue accepts either an integer or the symbolic form FormatValue
// produces.
func (n IndexName) ParseValue(s string) (int32, bool) {
	if v, err := strconv.ParseInt(s, 0, 64); err == nil {
		return int32(v), true
	}

	var (
		v  uint32
		ok bool
	)

	switch n {
	case IndexInterpMode:
		v, ok = enumParse(interpNames, s)
	case IndexReductionOp:
		var op Op
		op, ok = ParseOp(s)
		v = uint32(op)
	case IndexImageDim:
		v, ok = enumParse(dimNames, s)
	case IndexImageArray, IndexSaturate:
		var b bool
		b, ok = parseBool(s)
		v = b2u(b)
	case IndexFormat:
		v, ok = enumParse(formatNames, s)
	case IndexAccess:
		v, ok = flagParse(accessNames, s)
	case IndexExecutionScope, IndexMemoryScope:
		v, ok = enumParse(scopeNames, s)
	case IndexMemorySemantics:
		v, ok = flagParse(semanticsNames, s)
	case IndexMemoryModes:
		v, ok = flagParse(modeNames[:], s)
	case IndexAtomicOp:
		v, ok = enumParse(atomicNames, s)
	case IndexSrcType, IndexDestType:
		var t ALUType
		t, ok = ParseALUType(s)
		v = uint32(t)
	case IndexRoundingMode:
		v, ok = enumParse(roundingNames, s)
	case IndexMatrixLayout:
		v, ok = enumParse(layoutNames, s)
	}
	return int32(v), ok
}

func parseBool(s string) (bool, bool) {
	b, err := strconv.ParseBool(s)
	return b, err == nil
}

func b2u(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

// IntrinsicFlags describe intrinsic side effects.
type IntrinsicFlags uint8

const (
	IntrinsicCanEliminate IntrinsicFlags = 1 << iota
	IntrinsicCanReorder
	IntrinsicStore
)

// IntrinsicInfo is the static description of an intrinsic.
type IntrinsicInfo struct {
	Name    string
	NumSrcs uint8
	// SrcComponents per source; 0 means the instruction's NumComponents.
	SrcComponents [maxIntrinsicSrcs]uint8
	HasDest       bool
	// DestComponents is fixed width of the destination; 0 means the
	// instruction's NumComponents.
	DestComponents uint8
	NumIndices     uint8
	Indices        [maxConstIndices]IndexName
	// IndexMap maps an index name to its slot plus one; 0 means absent.
	IndexMap [numIndexNames]uint8
	Flags    IntrinsicFlags
}

// HasIndex reports whether intrinsics of this kind carry index n.
func (info *IntrinsicInfo) HasIndex(n IndexName) bool {
	return n < numIndexNames && info.IndexMap[n] != 0
}

// IntrinsicOp is an intrinsic operation code.
type IntrinsicOp uint16

const (
	IntrinsicLoadInput IntrinsicOp = iota
	IntrinsicLoadInterpolatedInput
	IntrinsicLoadBarycentricPixel
	IntrinsicStoreOutput
	IntrinsicLoadUniform
	IntrinsicLoadUBO
	IntrinsicLoadSSBO
	IntrinsicStoreSSBO
	IntrinsicLoadShared
	IntrinsicStoreShared
	IntrinsicLoadGlobal
	IntrinsicStoreGlobal
	IntrinsicLoadPushConstant
	IntrinsicLoadScratch
	IntrinsicStoreScratch
	IntrinsicSSBOAtomic
	IntrinsicSharedAtomic
	IntrinsicGlobalAtomic
	IntrinsicImageLoad
	IntrinsicImageStore
	IntrinsicImageAtomic
	IntrinsicBarrier
	IntrinsicReduce
	IntrinsicInclusiveScan
	IntrinsicExclusiveScan
	IntrinsicEmitVertex
	IntrinsicEndPrimitive
	IntrinsicLoadLocalInvocationID
	IntrinsicLoadWorkgroupID
	IntrinsicLoadFragCoord
	IntrinsicDemote
	IntrinsicTerminate
	IntrinsicConvertALUTypes
	IntrinsicCmatLoad
	IntrinsicCmatMulAdd
	IntrinsicTraceRay

	numIntrinsics
)

const (
	pure   = IntrinsicCanEliminate | IntrinsicCanReorder
	noDest = -1
)

var intrinsicInfos = [numIntrinsics]IntrinsicInfo{
	IntrinsicLoadInput:             intrinsic("load_input", []uint8{1}, 0, pure, IndexBase, IndexRange, IndexComponent, IndexDestType),
	IntrinsicLoadInterpolatedInput: intrinsic("load_interpolated_input", []uint8{2, 1}, 0, pure, IndexBase, IndexComponent, IndexDestType),
	IntrinsicLoadBarycentricPixel:  intrinsic("load_barycentric_pixel", nil, 2, pure, IndexInterpMode),
	IntrinsicStoreOutput:           intrinsic("store_output", []uint8{0, 1}, noDest, IntrinsicStore, IndexBase, IndexRange, IndexWriteMask, IndexComponent, IndexSrcType),
	IntrinsicLoadUniform:           intrinsic("load_uniform", []uint8{1}, 0, pure, IndexBase, IndexRange, IndexDestType),
	IntrinsicLoadUBO:               intrinsic("load_ubo", []uint8{1, 1}, 0, pure, IndexAccess, IndexAlignMul, IndexAlignOffset, IndexRangeBase, IndexRange),
	IntrinsicLoadSSBO:              intrinsic("load_ssbo", []uint8{1, 1}, 0, IntrinsicCanEliminate, IndexAccess, IndexAlignMul, IndexAlignOffset),
	IntrinsicStoreSSBO:             intrinsic("store_ssbo", []uint8{0, 1, 1}, noDest, IntrinsicStore, IndexWriteMask, IndexAccess, IndexAlignMul, IndexAlignOffset),
	IntrinsicLoadShared:            intrinsic("load_shared", []uint8{1}, 0, IntrinsicCanEliminate, IndexBase, IndexAlignMul, IndexAlignOffset),
	IntrinsicStoreShared:           intrinsic("store_shared", []uint8{0, 1}, noDest, IntrinsicStore, IndexBase, IndexWriteMask, IndexAlignMul, IndexAlignOffset),
	IntrinsicLoadGlobal:            intrinsic("load_global", []uint8{1}, 0, IntrinsicCanEliminate, IndexAccess, IndexAlignMul, IndexAlignOffset),
	IntrinsicStoreGlobal:           intrinsic("store_global", []uint8{0, 1}, noDest, IntrinsicStore, IndexWriteMask, IndexAccess, IndexAlignMul, IndexAlignOffset),
	IntrinsicLoadPushConstant:      intrinsic("load_push_constant", []uint8{1}, 0, pure, IndexBase, IndexRange),
	IntrinsicLoadScratch:           intrinsic("load_scratch", []uint8{1}, 0, IntrinsicCanEliminate, IndexAlignMul, IndexAlignOffset),
	IntrinsicStoreScratch:          intrinsic("store_scratch", []uint8{0, 1}, noDest, IntrinsicStore, IndexAlignMul, IndexAlignOffset, IndexWriteMask),
	IntrinsicSSBOAtomic:            intrinsic("ssbo_atomic", []uint8{1, 1, 1}, 1, 0, IndexAccess, IndexAtomicOp),
	IntrinsicSharedAtomic:          intrinsic("shared_atomic", []uint8{1, 1}, 1, 0, IndexBase, IndexAtomicOp),
	IntrinsicGlobalAtomic:          intrinsic("global_atomic", []uint8{1, 1}, 1, 0, IndexAtomicOp),
	IntrinsicImageLoad:             intrinsic("image_load", []uint8{1, 4, 1, 1}, 0, IntrinsicCanEliminate, IndexImageDim, IndexImageArray, IndexFormat, IndexAccess, IndexDestType),
	IntrinsicImageStore:            intrinsic("image_store", []uint8{1, 4, 1, 0, 1}, noDest, IntrinsicStore, IndexImageDim, IndexImageArray, IndexFormat, IndexAccess, IndexSrcType),
	IntrinsicImageAtomic:           intrinsic("image_atomic", []uint8{1, 4, 1, 1}, 1, 0, IndexImageDim, IndexImageArray, IndexFormat, IndexAccess, IndexAtomicOp),
	IntrinsicBarrier:               intrinsic("barrier", nil, noDest, 0, IndexExecutionScope, IndexMemoryScope, IndexMemorySemantics, IndexMemoryModes),
	IntrinsicReduce:                intrinsic("reduce", []uint8{0}, 0, IntrinsicCanEliminate, IndexReductionOp, IndexClusterSize),
	IntrinsicInclusiveScan:         intrinsic("inclusive_scan", []uint8{0}, 0, IntrinsicCanEliminate, IndexReductionOp),
	IntrinsicExclusiveScan:         intrinsic("exclusive_scan", []uint8{0}, 0, IntrinsicCanEliminate, IndexReductionOp),
	IntrinsicEmitVertex:            intrinsic("emit_vertex", nil, noDest, 0, IndexStreamID),
	IntrinsicEndPrimitive:          intrinsic("end_primitive", nil, noDest, 0, IndexStreamID),
	IntrinsicLoadLocalInvocationID: intrinsic("load_local_invocation_id", nil, 3, pure),
	IntrinsicLoadWorkgroupID:       intrinsic("load_workgroup_id", nil, 3, pure),
	IntrinsicLoadFragCoord:         intrinsic("load_frag_coord", nil, 4, pure),
	IntrinsicDemote:                intrinsic("demote", nil, noDest, 0),
	IntrinsicTerminate:             intrinsic("terminate", nil, noDest, 0),
	IntrinsicConvertALUTypes:       intrinsic("convert_alu_types", []uint8{0}, 0, pure, IndexSrcType, IndexDestType, IndexRoundingMode, IndexSaturate),
	IntrinsicCmatLoad:              intrinsic("cmat_load", []uint8{1, 1}, 0, IntrinsicCanEliminate, IndexMatrixLayout, IndexNumMatrices),
	IntrinsicCmatMulAdd:            intrinsic("cmat_muladd", []uint8{0, 0, 0}, 0, pure, IndexSaturate),
	IntrinsicTraceRay:              intrinsic("trace_ray", []uint8{1, 1, 1, 1, 1, 1, 3, 1, 3, 1, 1}, noDest, 0, IndexFlags),
}

func intrinsic(name string, srcs []uint8, dest int, flags IntrinsicFlags, indices ...IndexName) IntrinsicInfo {
	info := IntrinsicInfo{
		Name:       name,
		NumSrcs:    uint8(len(srcs)),
		HasDest:    dest != noDest,
		NumIndices: uint8(len(indices)),
		Flags:      flags,
	}

	copy(info.SrcComponents[:], srcs)

	if dest > 0 {
		info.DestComponents = uint8(dest)
	}

	for i, n := range indices {
		info.Indices[i] = n
		info.IndexMap[n] = uint8(i + 1)
	}
	return info
}

// Info returns the static description of op. It panics on unknown ops.
func (op IntrinsicOp) Info() *IntrinsicInfo {
	assert(op < numIntrinsics, "unknown intrinsic %d", op)
	return &intrinsicInfos[op]
}

func (op IntrinsicOp) String() string {
	if op < numIntrinsics {
		return intrinsicInfos[op].Name
	}
	return "intrinsic(" + strconv.Itoa(int(op)) + ")"
}

// ParseIntrinsicOp looks an intrinsic up by name.
func ParseIntrinsicOp(name string) (IntrinsicOp, bool) {
	for i := range intrinsicInfos {
		if intrinsicInfos[i].Name == name {
			return IntrinsicOp(i), true
		}
	}
	return 0, false
}

// Intrinsic is an operation with side effects or access to state outside
// the SSA graph.
type Intrinsic struct {
	instr Instr

	op            IntrinsicOp
	numComponents uint8
	dest          Def
	srcs          []Src
	constIndex    [maxConstIndices]int32
}

func (i *Intrinsic) Instr() *Instr        { return &i.instr }
func (i *Intrinsic) Op() IntrinsicOp      { return i.op }
func (i *Intrinsic) Info() *IntrinsicInfo { return i.op.Info() }
func (i *Intrinsic) NumComponents() uint8 { return i.numComponents }

// Def returns the destination, or nil if the intrinsic has none.
func (i *Intrinsic) Def() *Def { return i.intrinsicDef() }

func (i *Intrinsic) intrinsicDef() *Def {
	if !i.Info().HasDest {
		return nil
	}
	return &i.dest
}

// Src returns source idx. It panics if idx is not below NumSrcs.
func (i *Intrinsic) Src(idx int) *Src {
	assert(idx < int(i.Info().NumSrcs), "%v has %d sources, asked for %d", i.op, i.Info().NumSrcs, idx)
	return &i.srcs[idx]
}

// Srcs iterates over the sources with their positions.
func (i *Intrinsic) Srcs() iter.Seq2[int, *Src] {
	return func(yield func(int, *Src) bool) {
		for idx := range i.srcs {
			if !yield(idx, &i.srcs[idx]) {
				return
			}
		}
	}
}

// SrcComponents returns the number of components source idx reads.
func (i *Intrinsic) SrcComponents(idx int) uint8 {
	if c := i.Info().SrcComponents[idx]; c != 0 {
		return c
	}
	return i.numComponents
}

// ConstIndex returns the raw value of index name. It panics if intrinsics
// of this kind do not carry it.
func (i *Intrinsic) ConstIndex(name IndexName) uint32 {
	info := i.Info()
	assert(info.HasIndex(name), "%v has no %v index", i.op, name)

	return uint32(i.constIndex[info.IndexMap[name]-1])
}

func (i *Intrinsic) Base() int32                      { return int32(i.ConstIndex(IndexBase)) }
func (i *Intrinsic) RangeBase() int32                 { return int32(i.ConstIndex(IndexRangeBase)) }
func (i *Intrinsic) Range() int32                     { return int32(i.ConstIndex(IndexRange)) }
func (i *Intrinsic) WriteMask() uint32                { return i.ConstIndex(IndexWriteMask) }
func (i *Intrinsic) StreamID() uint32                 { return i.ConstIndex(IndexStreamID) }
func (i *Intrinsic) Component() uint32                { return i.ConstIndex(IndexComponent) }
func (i *Intrinsic) InterpMode() InterpMode           { return InterpMode(i.ConstIndex(IndexInterpMode)) }
func (i *Intrinsic) ReductionOp() Op                  { return Op(i.ConstIndex(IndexReductionOp)) }
func (i *Intrinsic) ClusterSize() uint32              { return i.ConstIndex(IndexClusterSize) }
func (i *Intrinsic) ImageDim() SamplerDim             { return SamplerDim(i.ConstIndex(IndexImageDim)) }
func (i *Intrinsic) ImageArray() bool                 { return i.ConstIndex(IndexImageArray) != 0 }
func (i *Intrinsic) Format() Format                   { return Format(i.ConstIndex(IndexFormat)) }
func (i *Intrinsic) Access() AccessQualifier          { return AccessQualifier(i.ConstIndex(IndexAccess)) }
func (i *Intrinsic) AlignMul() uint32                 { return i.ConstIndex(IndexAlignMul) }
func (i *Intrinsic) AlignOffset() uint32              { return i.ConstIndex(IndexAlignOffset) }
func (i *Intrinsic) ExecutionScope() Scope            { return Scope(i.ConstIndex(IndexExecutionScope)) }
func (i *Intrinsic) MemoryScope() Scope               { return Scope(i.ConstIndex(IndexMemoryScope)) }
func (i *Intrinsic) MemorySemantics() MemorySemantics { return MemorySemantics(i.ConstIndex(IndexMemorySemantics)) }
func (i *Intrinsic) MemoryModes() VariableMode        { return VariableMode(i.ConstIndex(IndexMemoryModes)) }
func (i *Intrinsic) Flags() uint32                    { return i.ConstIndex(IndexFlags) }
func (i *Intrinsic) AtomicOp() AtomicOp               { return AtomicOp(i.ConstIndex(IndexAtomicOp)) }
func (i *Intrinsic) SrcType() ALUType                 { return ALUType(i.ConstIndex(IndexSrcType)) }
func (i *Intrinsic) DestType() ALUType                { return ALUType(i.ConstIndex(IndexDestType)) }
func (i *Intrinsic) RoundingMode() RoundingMode       { return RoundingMode(i.ConstIndex(IndexRoundingMode)) }
func (i *Intrinsic) Saturate() bool                   { return i.ConstIndex(IndexSaturate) != 0 }
func (i *Intrinsic) MatrixLayout() MatrixLayout       { return MatrixLayout(i.ConstIndex(IndexMatrixLayout)) }
func (i *Intrinsic) NumMatrices() uint8               { return uint8(i.ConstIndex(IndexNumMatrices)) }

// Align is the largest power of two the access address is known to be a
// multiple of.
func (i *Intrinsic) Align() uint32 {
	mul, off := i.AlignMul(), i.AlignOffset()
	assert(off < mul, "align offset %d is not below align mul %d", off, mul)

	if off > 0 {
		return 1 << bits.TrailingZeros32(off)
	}
	return mul
}
