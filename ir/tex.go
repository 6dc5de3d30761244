package ir

import (
	"iter"
)

// TexOp is the kind of a texture instruction.
type TexOp uint8

const (
	TexSample TexOp = iota
	TexSampleBias
	TexSampleLod
	TexSampleGrad
	TexFetch
	TexFetchMS
	TexSize
	TexQueryLevels
	TexGather
	TexLod
)

var texOpNames = []string{"tex", "txb", "txl", "txd", "txf", "txf_ms", "txs", "query_levels", "tg4", "lod"}

func (op TexOp) String() string { return enumString(texOpNames, uint32(op)) }

// ParseTexOp is the inverse of TexOp.String.
func ParseTexOp(s string) (TexOp, bool) {
	v, ok := enumParse(texOpNames, s)
	return TexOp(v), ok
}

// TexSrcType is the role of a texture source.
type TexSrcType uint8

const (
	TexSrcCoord TexSrcType = iota
	TexSrcProjector
	TexSrcComparator
	TexSrcOffset
	TexSrcBias
	TexSrcLod
	TexSrcMSIndex
	TexSrcDdx
	TexSrcDdy
	TexSrcTextureOffset
	TexSrcSamplerOffset
)

var texSrcNames = []string{"coord", "projector", "comparator", "offset", "bias", "lod", "ms_index", "ddx", "ddy", "texture_offset", "sampler_offset"}

func (t TexSrcType) String() string { return enumString(texSrcNames, uint32(t)) }

// ParseTexSrcType is the inverse of TexSrcType.String.
func ParseTexSrcType(s string) (TexSrcType, bool) {
	v, ok := enumParse(texSrcNames, s)
	return TexSrcType(v), ok
}

// Tex is a texture sample, fetch or query.
type Tex struct {
	instr Instr

	op              TexOp
	samplerDim      SamplerDim
	destType        ALUType
	coordComponents uint8
	isArray         bool
	isShadow        bool
	textureIndex    uint32
	samplerIndex    uint32
	component       uint8

	dest Def
	srcs []TexSrc
}

// TexSrc is a texture source tagged with its role.
type TexSrc struct {
	src Src
	typ TexSrcType
}

func (s *TexSrc) Src() *Src        { return &s.src }
func (s *TexSrc) Type() TexSrcType { return s.typ }

func (t *Tex) Instr() *Instr          { return &t.instr }
func (t *Tex) Op() TexOp              { return t.op }
func (t *Tex) SamplerDim() SamplerDim { return t.samplerDim }
func (t *Tex) DestType() ALUType      { return t.destType }
func (t *Tex) CoordComponents() uint8 { return t.coordComponents }
func (t *Tex) IsArray() bool          { return t.isArray }
func (t *Tex) IsShadow() bool         { return t.isShadow }
func (t *Tex) TextureIndex() uint32   { return t.textureIndex }
func (t *Tex) SamplerIndex() uint32   { return t.samplerIndex }
func (t *Tex) Def() *Def              { return &t.dest }

// Component is the channel a gather reads.
func (t *Tex) Component() uint8 { return t.component }

// NumSrcs is the number of sources.
func (t *Tex) NumSrcs() int { return len(t.srcs) }

// Src returns source i. It panics if i is out of range.
func (t *Tex) Src(i int) *TexSrc {
	assert(i < len(t.srcs), "%v has %d sources, asked for %d", t.op, len(t.srcs), i)
	return &t.srcs[i]
}

// Srcs iterates over the sources with their positions.
func (t *Tex) Srcs() iter.Seq2[int, *TexSrc] {
	return func(yield func(int, *TexSrc) bool) {
		for i := range t.srcs {
			if !yield(i, &t.srcs[i]) {
				return
			}
		}
	}
}

// SrcIndex returns the position of the source with the given role, or -1.
func (t *Tex) SrcIndex(typ TexSrcType) int {
	for i := range t.srcs {
		if t.srcs[i].typ == typ {
			return i
		}
	}
	return -1
}
