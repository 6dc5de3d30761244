package ir

import (
	"iter"

	"tlog.app/go/errors"
	"tlog.app/go/loc"

	"github.com/gogpu/nirview/internal/exec"
)

// Builder populates a Shader. Instructions are appended to the current
// block; PushIf, PushElse, PopIf, PushLoop and PopLoop move the cursor
// through the structured control flow tree.
//
// A Builder must not be used while the shader is being traversed.
type Builder struct {
	shader *Shader

	trackSites bool
	exact      bool

	impl   *FunctionImpl
	cursor *exec.List[CFNode]
	parent *CFNode
	block  *Block
	frames []frame
}

type frame struct {
	construct *CFNode

	cursor *exec.List[CFNode]
	parent *CFNode
	after  *Block
	inElse bool
}

// VariableInfo describes a shader-level variable.
type VariableInfo struct {
	Name     string
	Mode     VariableMode
	Location int32
	DescSet  uint32
	Binding  uint32
}

// AluSrcDesc is an ALU operand. A nil Swizzle reads components in order.
type AluSrcDesc struct {
	Def     *Def
	Swizzle []uint8
}

// IntrinsicDesc describes an intrinsic to build.
// Zero NumComponents is taken from the first source sized by the
// instruction, zero BitSize means 32.
type IntrinsicDesc struct {
	Op            IntrinsicOp
	NumComponents uint8
	BitSize       uint8
	Srcs          []*Def
	Indices       map[IndexName]int32
}

// TexSrcDesc is a texture operand.
type TexSrcDesc struct {
	Type TexSrcType
	Def  *Def
}

// TexDesc describes a texture instruction to build.
// Zero NumComponents means 4.
type TexDesc struct {
	Op            TexOp
	SamplerDim    SamplerDim
	DestType      ALUType
	IsArray       bool
	IsShadow      bool
	TextureIndex  uint32
	SamplerIndex  uint32
	Component     uint8
	NumComponents uint8
	Srcs          []TexSrcDesc
}

// NewBuilder returns a builder appending to s.
func NewBuilder(s *Shader) *Builder {
	return &Builder{shader: s}
}

// Shader returns the shader being built.
func (b *Builder) Shader() *Shader { return b.shader }

// TrackSites makes the builder record the caller of every instruction
// constructor. See Instr.From.
func (b *Builder) TrackSites(on bool) { b.trackSites = on }

// SetExact marks subsequently built ALU instructions exact.
func (b *Builder) SetExact(on bool) { b.exact = on }

// Block returns the block instructions are appended to.
func (b *Builder) Block() *Block {
	assert(b.block != nil, "no function body is being built")
	return b.block
}

// AddVariable appends a shader-level variable.
func (b *Builder) AddVariable(info VariableInfo) *Variable {
	v := &Variable{
		name:     info.Name,
		mode:     info.Mode,
		location: info.Location,
		descSet:  info.DescSet,
		binding:  info.Binding,
	}

	variableLink.PushTail(&b.shader.variables, v)

	return v
}

// AddFunction appends a function declaration without a body.
func (b *Builder) AddFunction(name string, numParams uint32, entrypoint bool) *Function {
	f := &Function{
		shader:     b.shader,
		name:       name,
		numParams:  numParams,
		entrypoint: entrypoint,
	}

	functionLink.PushTail(&b.shader.functions, f)

	return f
}

// BeginImpl starts the body of f and positions the cursor in its start block.
func (b *Builder) BeginImpl(f *Function) *FunctionImpl {
	assert(b.impl == nil, "function %q is still being built", b.implName())
	assert(f.impl == nil, "function %q already has a body", f.name)

	fi := &FunctionImpl{function: f}
	fi.cf.data = fi
	f.impl = fi

	fi.endBlock = &Block{}
	fi.endBlock.cf.data = fi.endBlock
	fi.endBlock.cf.parent = &fi.cf

	b.impl = fi
	b.cursor = &fi.body
	b.parent = &fi.cf
	b.block = b.pushBlock()

	return fi
}

// EndImpl finishes the current body: it indexes blocks, instructions and
// computes the control flow graph.
func (b *Builder) EndImpl() *FunctionImpl {
	fi := b.impl
	assert(fi != nil, "no function body is being built")
	assert(len(b.frames) == 0, "%d control flow constructs left open", len(b.frames))

	reindex(fi)
	linkBlocks(fi)

	b.impl, b.cursor, b.parent, b.block = nil, nil, nil, nil

	return fi
}

func (b *Builder) implName() string {
	if b.impl == nil {
		return ""
	}
	return b.impl.function.name
}

// PushIf opens an If on cond and positions the cursor in its then branch.
func (b *Builder) PushIf(cond *Def) *If {
	assert(cond.numComponents == 1, "if condition must be a scalar, got %d components", cond.numComponents)

	i := &If{}
	i.cf.data = i
	b.pushNode(&i.cf)

	i.condition.parentIf = i
	bindSrc(&i.condition, cond, nil)

	after := b.pushBlock()

	b.frames = append(b.frames, frame{
		construct: &i.cf,
		cursor:    b.cursor,
		parent:    b.parent,
		after:     after,
	})

	b.cursor = &i.thenList
	b.parent = &i.cf
	b.block = b.pushBlock()

	return i
}

// PushElse moves the cursor to the else branch of the innermost If.
func (b *Builder) PushElse() {
	f := b.topIf()
	assert(!f.inElse, "else branch already started")

	i, _ := f.construct.AsIf()
	f.inElse = true

	b.cursor = &i.elseList
	b.block = b.pushBlock()
}

// PopIf closes the innermost If and moves the cursor to the block after it.
func (b *Builder) PopIf() *If {
	f := b.topIf()
	i, _ := f.construct.AsIf()

	if !f.inElse {
		b.cursor = &i.elseList
		b.pushBlock()
	}

	b.pop()

	return i
}

// PushLoop opens a Loop and positions the cursor in its header block.
func (b *Builder) PushLoop() *Loop {
	l := &Loop{}
	l.cf.data = l
	b.pushNode(&l.cf)

	after := b.pushBlock()

	b.frames = append(b.frames, frame{
		construct: &l.cf,
		cursor:    b.cursor,
		parent:    b.parent,
		after:     after,
	})

	b.cursor = &l.body
	b.parent = &l.cf
	b.block = b.pushBlock()

	return l
}

// PopLoop closes the innermost Loop and moves the cursor to the block after it.
func (b *Builder) PopLoop() *Loop {
	assert(len(b.frames) != 0, "no open loop")

	l, ok := b.frames[len(b.frames)-1].construct.AsLoop()
	assert(ok, "innermost construct is not a loop")

	b.pop()

	return l
}

func (b *Builder) topIf() *frame {
	assert(len(b.frames) != 0, "no open if")

	f := &b.frames[len(b.frames)-1]
	assert(f.construct.Type() == CFNodeIf, "innermost construct is a %v, not an if", f.construct.Type())

	return f
}

func (b *Builder) pop() {
	f := b.frames[len(b.frames)-1]
	b.frames = b.frames[:len(b.frames)-1]

	b.cursor = f.cursor
	b.parent = f.parent
	b.block = f.after
}

func (b *Builder) pushNode(n *CFNode) {
	assert(b.impl != nil, "no function body is being built")

	n.parent = b.parent
	cfLink.PushTail(b.cursor, n)
}

func (b *Builder) pushBlock() *Block {
	blk := &Block{}
	blk.cf.data = blk
	b.pushNode(&blk.cf)

	return blk
}

// site returns the location of the caller of a public constructor.
func (b *Builder) site() loc.PC {
	if !b.trackSites {
		return 0
	}
	return loc.Caller(2)
}

func (b *Builder) insert(i *Instr, data instrData, from loc.PC) {
	blk := b.Block()

	if last := blk.LastInstr(); last != nil {
		assert(last.Type() != InstrJump, "block already ends with a jump")
	}

	i.data = data
	i.block = blk
	i.from = from

	instrLink.PushTail(&blk.instrs, i)
}

func (b *Builder) initDef(d *Def, parent *Instr, numComponents, bitSize uint8) {
	assert(numComponents >= 1 && numComponents <= 16, "bad component count %d", numComponents)
	assert(bitSize == 1 || validConstWidth(bitSize), "bad bit size %d", bitSize)

	d.parent = parent
	d.numComponents = numComponents
	d.bitSize = bitSize
	d.index = b.impl.ssaAlloc
	b.impl.ssaAlloc++
}

func bindSrc(s *Src, d *Def, parent *Instr) {
	assert(d != nil, "source bound to nil def")

	s.ssa = d
	s.parent = parent
	useLink.PushTail(&d.uses, s)
}

// Alu builds an ALU instruction reading srcs in component order.
func (b *Builder) Alu(op Op, srcs ...*Def) *Def {
	descs := make([]AluSrcDesc, len(srcs))
	for i, d := range srcs {
		descs[i].Def = d
	}
	return b.aluSwizzled(op, descs, b.site())
}

// AluSwizzled builds an ALU instruction with explicit source swizzles.
// The destination width of a per-component op is the widest swizzle.
func (b *Builder) AluSwizzled(op Op, srcs ...AluSrcDesc) *Def {
	return b.aluSwizzled(op, srcs, b.site())
}

func (b *Builder) aluSwizzled(op Op, srcs []AluSrcDesc, from loc.PC) *Def {
	info := op.Info()
	assert(len(srcs) == int(info.NumInputs), "%v takes %d sources, got %d", op, info.NumInputs, len(srcs))

	comps := info.OutputSize
	bitSize := info.OutputType.BitSize()

	for i, s := range srcs {
		if info.InputSizes[i] != 0 {
			continue
		}

		if w := readWidth(s); comps == 0 || info.OutputSize == 0 && w > comps {
			comps = w
		}

		if bitSize == 0 && info.InputTypes[i].BitSize() == 0 {
			bitSize = s.Def.bitSize
		}
	}

	if comps == 0 {
		comps = 1
	}

	if bitSize == 0 {
		bitSize = srcs[0].Def.bitSize
	}

	a := &Alu{op: op, exact: b.exact, srcs: make([]AluSrc, len(srcs))}

	for i, s := range srcs {
		assert(len(s.Swizzle) <= 16, "swizzle too long")

		n := s.Def.numComponents
		for c := range a.srcs[i].swizzle {
			a.srcs[i].swizzle[c] = uint8(min(c, int(n)-1))
		}

		for c, sw := range s.Swizzle {
			assert(sw < n, "swizzle component %d out of range %d", sw, n)
			a.srcs[i].swizzle[c] = sw
		}

		bindSrc(&a.srcs[i].src, s.Def, &a.instr)
	}

	b.initDef(&a.dest, &a.instr, comps, bitSize)
	b.insert(&a.instr, a, from)

	return &a.dest
}

func readWidth(s AluSrcDesc) uint8 {
	if s.Swizzle != nil {
		return uint8(len(s.Swizzle))
	}
	return s.Def.numComponents
}

// LoadConst builds a constant vector. bitSize must be 8, 16, 32 or 64.
func (b *Builder) LoadConst(bitSize uint8, values ...ConstValue) *Def {
	return b.loadConst(bitSize, values, b.site())
}

// Imm builds a scalar integer constant.
func (b *Builder) Imm(v uint64, bitSize uint8) *Def {
	return b.loadConst(bitSize, []ConstValue{ConstUint(v, bitSize)}, b.site())
}

func (b *Builder) loadConst(bitSize uint8, values []ConstValue, from loc.PC) *Def {
	assert(validConstWidth(bitSize), "unsupported constant bit size %d", bitSize)

	c := &LoadConst{values: append([]ConstValue(nil), values...)}

	b.initDef(&c.dest, &c.instr, uint8(len(values)), bitSize)
	b.insert(&c.instr, c, from)

	return &c.dest
}

// Undef builds an undefined value.
func (b *Builder) Undef(numComponents, bitSize uint8) *Def {
	u := &Undef{}

	b.initDef(&u.dest, &u.instr, numComponents, bitSize)
	b.insert(&u.instr, u, b.site())

	return &u.dest
}

// Intrinsic builds an intrinsic. Its Def is nil for intrinsics without a
// destination.
func (b *Builder) Intrinsic(desc IntrinsicDesc) *Intrinsic {
	info := desc.Op.Info()
	assert(len(desc.Srcs) == int(info.NumSrcs), "%v takes %d sources, got %d", desc.Op, info.NumSrcs, len(desc.Srcs))

	in := &Intrinsic{op: desc.Op, numComponents: desc.NumComponents, srcs: make([]Src, len(desc.Srcs))}

	if in.numComponents == 0 {
		for i, d := range desc.Srcs {
			if info.SrcComponents[i] == 0 {
				in.numComponents = d.numComponents
				break
			}
		}
	}

	if in.numComponents == 0 {
		in.numComponents = max(1, info.DestComponents)
	}

	for name, v := range desc.Indices {
		assert(info.HasIndex(name), "%v has no %v index", desc.Op, name)
		in.constIndex[info.IndexMap[name]-1] = v
	}

	for i, d := range desc.Srcs {
		bindSrc(&in.srcs[i], d, &in.instr)
	}

	if info.HasDest {
		comps := info.DestComponents
		if comps == 0 {
			comps = in.numComponents
		}

		bitSize := desc.BitSize
		if bitSize == 0 {
			bitSize = 32
		}

		b.initDef(&in.dest, &in.instr, comps, bitSize)
	}

	b.insert(&in.instr, in, b.site())

	return in
}

// Tex builds a texture instruction.
func (b *Builder) Tex(desc TexDesc) *Tex {
	t := &Tex{
		op:           desc.Op,
		samplerDim:   desc.SamplerDim,
		destType:     desc.DestType,
		isArray:      desc.IsArray,
		isShadow:     desc.IsShadow,
		textureIndex: desc.TextureIndex,
		samplerIndex: desc.SamplerIndex,
		component:    desc.Component,
		srcs:         make([]TexSrc, len(desc.Srcs)),
	}

	for i, s := range desc.Srcs {
		t.srcs[i].typ = s.Type
		bindSrc(&t.srcs[i].src, s.Def, &t.instr)

		if s.Type == TexSrcCoord {
			t.coordComponents = s.Def.numComponents
		}
	}

	comps := desc.NumComponents
	if comps == 0 {
		comps = 4
	}

	bitSize := desc.DestType.BitSize()
	if bitSize == 0 {
		bitSize = 32
	}

	b.initDef(&t.dest, &t.instr, comps, bitSize)
	b.insert(&t.instr, t, b.site())

	return t
}

// Jump ends the current block with a structured jump.
// Break and continue must be inside a loop.
func (b *Builder) Jump(typ JumpType) *Jump {
	assert(typ.Structured(), "%v jumps cannot be built in structured control flow", typ)

	if typ == JumpBreak || typ == JumpContinue {
		assert(b.innermostLoop() != nil, "%v outside of a loop", typ)
	}

	j := &Jump{typ: typ}
	b.insert(&j.instr, j, b.site())

	return j
}

func (b *Builder) innermostLoop() *CFNode {
	for i := len(b.frames) - 1; i >= 0; i-- {
		if b.frames[i].construct.Type() == CFNodeLoop {
			return b.frames[i].construct
		}
	}
	return nil
}

// Phi adds a phi to blk after any phis already there. Sources are added
// with AddPhiSrc, possibly after the predecessors are built.
func (b *Builder) Phi(blk *Block, numComponents, bitSize uint8) *Phi {
	assert(b.impl != nil, "no function body is being built")

	p := &Phi{}
	p.instr.data = p
	p.instr.block = blk

	p.instr.from = b.site()

	b.initDef(&p.dest, &p.instr, numComponents, bitSize)

	var lastPhi *Instr
	for q := range blk.Phis() {
		lastPhi = &q.instr
	}

	if lastPhi == nil {
		instrLink.PushHead(&blk.instrs, &p.instr)
	} else {
		instrLink.InsertAfter(lastPhi, &p.instr)
	}
	return p
}

// AddPhiSrc adds the value src flowing in from pred.
func (b *Builder) AddPhiSrc(p *Phi, pred *Block, src *Def) *PhiSrc {
	assert(p.SrcFrom(pred) == nil, "phi already has a source from block %d", pred.index)

	s := &PhiSrc{pred: pred}
	bindSrc(&s.src, src, &p.instr)
	phiSrcLink.PushTail(&p.srcs, s)

	return s
}

// RemoveInstr unlinks i from its block and drops its uses.
// Jumps cannot be removed, nor instructions whose value is still used.
func (b *Builder) RemoveInstr(i *Instr) {
	assert(i.Type() != InstrJump, "jumps cannot be removed")

	if d := i.Def(); d != nil {
		assert(!d.HasUses(), "def %d is still used", d.index)
	}

	for s := range instrSrcs(i) {
		useLink.Remove(s)
	}

	fi := i.Block().Impl()

	instrLink.Remove(i)
	i.block = nil

	reindex(fi)
}

// MoveInstrAfter moves i right after at, possibly into another block of
// the same function.
func (b *Builder) MoveInstrAfter(i, at *Instr) {
	assert(i != at, "cannot move an instruction after itself")
	assert(i.Type() != InstrJump && at.Type() != InstrJump, "jumps cannot be moved or followed")
	assert(i.Type() != InstrPhi, "phis cannot be moved")

	fi := i.Block().Impl()
	assert(at.Block().Impl() == fi, "instructions are in different functions")

	if at.Type() == InstrPhi {
		next := at.Next()
		assert(next == nil || next.Type() != InstrPhi, "cannot move between phis")
	}

	instrLink.Remove(i)
	instrLink.InsertAfter(at, i)
	i.block = at.block

	reindex(fi)
}

// instrSrcs iterates over every Src owned by i.
func instrSrcs(i *Instr) iter.Seq[*Src] {
	return func(yield func(*Src) bool) {
		switch v := i.data.(type) {
		case *Alu:
			for k := range v.srcs {
				if !yield(&v.srcs[k].src) {
					return
				}
			}
		case *Intrinsic:
			for k := range v.srcs {
				if !yield(&v.srcs[k]) {
					return
				}
			}
		case *Tex:
			for k := range v.srcs {
				if !yield(&v.srcs[k].src) {
					return
				}
			}
		case *Jump:
			if v.typ == JumpGotoIf {
				yield(&v.condition)
			}
		case *Phi:
			for s := range v.Srcs() {
				if !yield(&s.src) {
					return
				}
			}
		}
	}
}

func reindex(fi *FunctionImpl) {
	var nb, ni uint32

	for blk := range fi.Blocks() {
		blk.index = nb
		nb++

		for i := range blk.Instrs() {
			i.index = ni
			ni++
		}
	}

	fi.numBlocks = nb
}

// linkBlocks computes successors and predecessors from the structure.
func linkBlocks(fi *FunctionImpl) {
	for blk := range fi.Blocks() {
		blk.successors = [2]*Block{}
		blk.predecessors = blk.predecessors[:0]
	}

	for blk := range fi.Blocks() {
		if blk == fi.endBlock {
			continue
		}

		blk.successors = successorsOf(fi, blk)

		for _, s := range blk.successors {
			if s != nil {
				s.predecessors = append(s.predecessors, blk)
			}
		}
	}
}

func successorsOf(fi *FunctionImpl, blk *Block) [2]*Block {
	if last := blk.LastInstr(); last != nil {
		if j, ok := last.AsJump(); ok {
			switch j.typ {
			case JumpReturn, JumpHalt:
				return [2]*Block{fi.endBlock}
			case JumpBreak:
				return [2]*Block{enclosingLoop(blk).FollowingBlock()}
			case JumpContinue:
				return [2]*Block{enclosingLoop(blk).FirstBlock()}
			case JumpGoto:
				return [2]*Block{j.target}
			case JumpGotoIf:
				return [2]*Block{j.target, j.elseTarget}
			}
		}
	}

	if next := blk.cf.Next(); next != nil {
		switch v := next.data.(type) {
		case *If:
			return [2]*Block{v.FirstThenBlock(), v.FirstElseBlock()}
		case *Loop:
			return [2]*Block{v.FirstBlock()}
		}

		assert(false, "block %d is followed by a %v", blk.index, next.Type())
	}

	switch v := blk.Parent().data.(type) {
	case *If:
		return [2]*Block{v.FollowingBlock()}
	case *Loop:
		return [2]*Block{v.FirstBlock()}
	}
	return [2]*Block{fi.endBlock}
}

func enclosingLoop(blk *Block) *Loop {
	for n := blk.cf.parent; n != nil; n = n.parent {
		if l, ok := n.AsLoop(); ok {
			return l
		}
	}

	panic(errors.New("ir: block %d: jump outside of a loop", blk.index))
}
