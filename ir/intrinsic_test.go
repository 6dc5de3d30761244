package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadSSBO(b *Builder, mul, off int32) *Intrinsic {
	return b.Intrinsic(IntrinsicDesc{
		Op:            IntrinsicLoadSSBO,
		NumComponents: 4,
		Srcs:          []*Def{b.Imm(0, 32), b.Imm(16, 32)},
		Indices: map[IndexName]int32{
			IndexAccess:      int32(AccessRestrict | AccessNonWriteable),
			IndexAlignMul:    mul,
			IndexAlignOffset: off,
		},
	})
}

func TestIntrinsic_Align(t *testing.T) {
	b, _ := newTestBuilder(t)

	for _, tc := range []struct {
		mul, off int32
		align    uint32
	}{
		{16, 4, 4},
		{16, 0, 16},
		{16, 12, 4},
		{16, 8, 8},
		{4, 2, 2},
		{1, 0, 1},
	} {
		in := loadSSBO(b, tc.mul, tc.off)
		assert.Equal(t, tc.align, in.Align(), "mul %d off %d", tc.mul, tc.off)
	}

	in := loadSSBO(b, 16, 16)
	assert.Panics(t, func() { in.Align() })
}

func TestIntrinsic_ConstIndex(t *testing.T) {
	b, _ := newTestBuilder(t)

	in := loadSSBO(b, 8, 0)

	assert.Equal(t, uint32(8), in.ConstIndex(IndexAlignMul))
	assert.Equal(t, AccessRestrict|AccessNonWriteable, in.Access())
	assert.Equal(t, "restrict|non_writeable", in.Access().String())

	assert.Panics(t, func() { in.Base() }, "load_ssbo has no base")
	assert.Panics(t, func() { in.ConstIndex(numIndexNames) })

	assert.Panics(t, func() {
		b.Intrinsic(IntrinsicDesc{Op: IntrinsicBarrier, Indices: map[IndexName]int32{IndexBase: 1}})
	})
}

func TestIntrinsic_TypedAccessors(t *testing.T) {
	b, _ := newTestBuilder(t)

	bar := b.Intrinsic(IntrinsicDesc{Op: IntrinsicBarrier, Indices: map[IndexName]int32{
		IndexExecutionScope:  int32(ScopeWorkgroup),
		IndexMemoryScope:     int32(ScopeDevice),
		IndexMemorySemantics: int32(SemanticsAcquire | SemanticsRelease),
		IndexMemoryModes:     int32(ModeSSBO | ModeShared),
	}})

	assert.Equal(t, ScopeWorkgroup, bar.ExecutionScope())
	assert.Equal(t, ScopeDevice, bar.MemoryScope())
	assert.Equal(t, SemanticsAcquire|SemanticsRelease, bar.MemorySemantics())
	assert.Equal(t, ModeSSBO|ModeShared, bar.MemoryModes())
	assert.Nil(t, bar.Def())

	x := b.Imm(1, 32)

	conv := b.Intrinsic(IntrinsicDesc{Op: IntrinsicConvertALUTypes, Srcs: []*Def{x}, BitSize: 16, Indices: map[IndexName]int32{
		IndexSrcType:      int32(TypeInt32),
		IndexDestType:     int32(TypeFloat16),
		IndexRoundingMode: int32(RoundRTZ),
		IndexSaturate:     1,
	}})

	assert.Equal(t, TypeInt32, conv.SrcType())
	assert.Equal(t, TypeFloat16, conv.DestType())
	assert.Equal(t, RoundRTZ, conv.RoundingMode())
	assert.True(t, conv.Saturate())
	assert.Equal(t, uint8(16), conv.Def().BitSize())

	red := b.Intrinsic(IntrinsicDesc{Op: IntrinsicReduce, Srcs: []*Def{x}, Indices: map[IndexName]int32{
		IndexReductionOp: int32(OpIadd),
		IndexClusterSize: 4,
	}})

	assert.Equal(t, OpIadd, red.ReductionOp())
	assert.Equal(t, uint32(4), red.ClusterSize())

	img := b.Intrinsic(IntrinsicDesc{
		Op:   IntrinsicImageAtomic,
		Srcs: []*Def{x, b.Undef(4, 32), x, x},
		Indices: map[IndexName]int32{
			IndexImageDim:   int32(Dim3D),
			IndexImageArray: 1,
			IndexFormat:     int32(FormatR32Uint),
			IndexAtomicOp:   int32(AtomicUmax),
		},
	})

	assert.Equal(t, Dim3D, img.ImageDim())
	assert.True(t, img.ImageArray())
	assert.Equal(t, FormatR32Uint, img.Format())
	assert.Equal(t, AtomicUmax, img.AtomicOp())
	assert.Equal(t, uint8(1), img.Def().NumComponents())

	cm := b.Intrinsic(IntrinsicDesc{Op: IntrinsicCmatLoad, Srcs: []*Def{x, x}, NumComponents: 8, Indices: map[IndexName]int32{
		IndexMatrixLayout: int32(LayoutRowMajor),
		IndexNumMatrices:  2,
	}})

	assert.Equal(t, LayoutRowMajor, cm.MatrixLayout())
	assert.Equal(t, uint8(2), cm.NumMatrices())
	assert.Equal(t, uint8(8), cm.Def().NumComponents())

	emit := b.Intrinsic(IntrinsicDesc{Op: IntrinsicEmitVertex, Indices: map[IndexName]int32{IndexStreamID: 1}})
	assert.Equal(t, uint32(1), emit.StreamID())

	in := b.Intrinsic(IntrinsicDesc{Op: IntrinsicLoadInput, Srcs: []*Def{x}, NumComponents: 3, Indices: map[IndexName]int32{
		IndexBase:      -2,
		IndexRange:     4,
		IndexComponent: 1,
	}})

	assert.Equal(t, int32(-2), in.Base())
	assert.Equal(t, int32(4), in.Range())
	assert.Equal(t, uint32(1), in.Component())
	assert.Equal(t, uint8(3), in.Def().NumComponents())

	bary := b.Intrinsic(IntrinsicDesc{Op: IntrinsicLoadBarycentricPixel, Indices: map[IndexName]int32{IndexInterpMode: int32(InterpSmooth)}})
	assert.Equal(t, InterpSmooth, bary.InterpMode())
	assert.Equal(t, uint8(2), bary.Def().NumComponents())

	ubo := b.Intrinsic(IntrinsicDesc{Op: IntrinsicLoadUBO, Srcs: []*Def{x, x}, Indices: map[IndexName]int32{
		IndexRangeBase:   64,
		IndexRange:       32,
		IndexAlignMul:    4,
		IndexAlignOffset: 0,
	}})

	assert.Equal(t, int32(64), ubo.RangeBase())
	assert.Equal(t, uint32(4), ubo.AlignMul())

	ray := b.Intrinsic(IntrinsicDesc{
		Op:      IntrinsicTraceRay,
		Srcs:    []*Def{x, x, x, x, x, x, b.Undef(3, 32), x, b.Undef(3, 32), x, x},
		Indices: map[IndexName]int32{IndexFlags: 0x5},
	})

	assert.Equal(t, uint32(0x5), ray.Flags())
	assert.Equal(t, uint8(3), ray.SrcComponents(6))
}

func TestIntrinsic_Srcs(t *testing.T) {
	b, _ := newTestBuilder(t)

	v := b.Undef(4, 32)
	off := b.Imm(0, 32)

	st := b.Intrinsic(IntrinsicDesc{Op: IntrinsicStoreOutput, Srcs: []*Def{v, off}})

	assert.Equal(t, uint8(4), st.NumComponents(), "taken from the value source")
	assert.Equal(t, uint8(4), st.SrcComponents(0))
	assert.Equal(t, uint8(1), st.SrcComponents(1))
	assert.Same(t, off, st.Src(1).Def())
	assert.Same(t, st.Instr(), st.Src(0).ParentInstr())
	assert.Panics(t, func() { st.Src(2) })

	n := 0
	for i, s := range st.Srcs() {
		assert.Same(t, st.Src(i), s)
		n++
	}

	assert.Equal(t, 2, n)

	assert.Panics(t, func() { b.Intrinsic(IntrinsicDesc{Op: IntrinsicStoreOutput, Srcs: []*Def{v}}) })
}

func TestIntrinsicInfo_Table(t *testing.T) {
	seen := map[string]bool{}

	for op := IntrinsicOp(0); op < numIntrinsics; op++ {
		info := op.Info()

		require.NotEmpty(t, info.Name, "intrinsic %d", op)
		assert.False(t, seen[info.Name], "duplicate %v", info.Name)
		seen[info.Name] = true

		present := 0
		for name := IndexName(0); name < numIndexNames; name++ {
			if info.HasIndex(name) {
				present++
				assert.Equal(t, name, info.Indices[info.IndexMap[name]-1], "%v %v", op, name)
			}
		}

		assert.Equal(t, int(info.NumIndices), present, "%v", op)

		got, ok := ParseIntrinsicOp(info.Name)
		assert.True(t, ok)
		assert.Equal(t, op, got)
	}

	assert.True(t, IntrinsicStoreSSBO.Info().Flags&IntrinsicStore != 0)
	assert.False(t, IntrinsicStoreSSBO.Info().HasDest)
	assert.Equal(t, uint8(3), IntrinsicLoadWorkgroupID.Info().DestComponents)
}

func TestIndexName_Values(t *testing.T) {
	for _, tc := range []struct {
		name IndexName
		text string
		v    int32
	}{
		{IndexBase, "-4", -4},
		{IndexWriteMask, "0x5", 5},
		{IndexAtomicOp, "cmpxchg", int32(AtomicCmpxchg)},
		{IndexDestType, "float32", int32(TypeFloat32)},
		{IndexMemoryModes, "ssbo|global", int32(ModeSSBO | ModeGlobal)},
		{IndexAccess, "coherent|volatile", int32(AccessCoherent | AccessVolatile)},
		{IndexImageArray, "true", 1},
		{IndexReductionOp, "imax", int32(OpImax)},
		{IndexExecutionScope, "subgroup", int32(ScopeSubgroup)},
		{IndexImageDim, "cube", int32(DimCube)},
	} {
		v, ok := tc.name.ParseValue(tc.text)
		assert.True(t, ok, "%v %q", tc.name, tc.text)
		assert.Equal(t, tc.v, v, "%v %q", tc.name, tc.text)
		assert.Equal(t, tc.text, tc.name.FormatValue(v), "%v", tc.name)
	}

	_, ok := IndexAtomicOp.ParseValue("nope")
	assert.False(t, ok)

	for name := IndexName(0); name < numIndexNames; name++ {
		got, ok := ParseIndexName(name.String())
		assert.True(t, ok)
		assert.Equal(t, name, got)
	}
}
