package ir

import (
	"iter"

	"tlog.app/go/loc"

	"github.com/gogpu/nirview/internal/exec"
)

// InstrType is the discriminant of an instruction.
type InstrType uint8

const (
	InstrAlu InstrType = iota
	InstrJump
	InstrTex
	InstrIntrinsic
	InstrLoadConst
	InstrUndef
	InstrPhi
)

var instrTypeNames = [...]string{
	InstrAlu:       "alu",
	InstrJump:      "jump",
	InstrTex:       "tex",
	InstrIntrinsic: "intrinsic",
	InstrLoadConst: "load_const",
	InstrUndef:     "undef",
	InstrPhi:       "phi",
}

func (t InstrType) String() string {
	if int(t) < len(instrTypeNames) {
		return instrTypeNames[t]
	}
	return "unknown"
}

// Instr is the header shared by every instruction. The concrete
// instruction embeds it and is reached through the As* methods.
type Instr struct {
	node exec.Node

	block *Block
	index uint32
	data  instrData

	from loc.PC
}

// instrData is implemented by the instruction variants.
type instrData interface {
	instrType() InstrType
	def() *Def
}

func (*Alu) instrType() InstrType       { return InstrAlu }
func (*Jump) instrType() InstrType      { return InstrJump }
func (*Tex) instrType() InstrType       { return InstrTex }
func (*Intrinsic) instrType() InstrType { return InstrIntrinsic }
func (*LoadConst) instrType() InstrType { return InstrLoadConst }
func (*Undef) instrType() InstrType     { return InstrUndef }
func (*Phi) instrType() InstrType       { return InstrPhi }

func (a *Alu) def() *Def       { return &a.dest }
func (*Jump) def() *Def        { return nil }
func (t *Tex) def() *Def       { return &t.dest }
func (i *Intrinsic) def() *Def { return i.intrinsicDef() }
func (c *LoadConst) def() *Def { return &c.dest }
func (u *Undef) def() *Def     { return &u.dest }
func (p *Phi) def() *Def       { return &p.dest }

// Type returns the instruction discriminant.
func (i *Instr) Type() InstrType { return i.data.instrType() }

// Block returns the block containing the instruction.
func (i *Instr) Block() *Block {
	assert(i.block != nil, "instruction is not in a block")
	return i.block
}

// Index is the position of the instruction in program order within its
// function. It is assigned when the function body is finished.
func (i *Instr) Index() uint32 { return i.index }

// Def returns the value the instruction defines, or nil if it defines none.
func (i *Instr) Def() *Def { return i.data.def() }

// Next returns the following instruction in the block, or nil.
func (i *Instr) Next() *Instr {
	it := instrLink.IterAt(i, false)
	return it.Next()
}

// Prev returns the preceding instruction in the block, or nil.
func (i *Instr) Prev() *Instr {
	it := instrLink.IterAt(i, true)
	return it.Next()
}

// From is the location the instruction was built at. It is zero unless the
// builder tracked creation sites.
func (i *Instr) From() loc.PC { return i.from }

func (i *Instr) AsAlu() (*Alu, bool) {
	v, ok := i.data.(*Alu)
	return v, ok
}

func (i *Instr) AsJump() (*Jump, bool) {
	v, ok := i.data.(*Jump)
	return v, ok
}

func (i *Instr) AsTex() (*Tex, bool) {
	v, ok := i.data.(*Tex)
	return v, ok
}

func (i *Instr) AsIntrinsic() (*Intrinsic, bool) {
	v, ok := i.data.(*Intrinsic)
	return v, ok
}

func (i *Instr) AsLoadConst() (*LoadConst, bool) {
	v, ok := i.data.(*LoadConst)
	return v, ok
}

func (i *Instr) AsUndef() (*Undef, bool) {
	v, ok := i.data.(*Undef)
	return v, ok
}

func (i *Instr) AsPhi() (*Phi, bool) {
	v, ok := i.data.(*Phi)
	return v, ok
}

// JumpType is the kind of a jump.
type JumpType uint8

const (
	JumpReturn JumpType = iota
	JumpHalt
	JumpBreak
	JumpContinue
	JumpGoto
	JumpGotoIf
)

var jumpTypeNames = [...]string{
	JumpReturn:   "return",
	JumpHalt:     "halt",
	JumpBreak:    "break",
	JumpContinue: "continue",
	JumpGoto:     "goto",
	JumpGotoIf:   "goto_if",
}

func (t JumpType) String() string {
	if int(t) < len(jumpTypeNames) {
		return jumpTypeNames[t]
	}
	return "unknown"
}

// ParseJumpType is the inverse of JumpType.String.
func ParseJumpType(name string) (JumpType, bool) {
	for i, n := range jumpTypeNames {
		if n == name {
			return JumpType(i), true
		}
	}
	return 0, false
}

// Structured reports whether the jump is expressible in the structured
// control flow tree.
func (t JumpType) Structured() bool { return t <= JumpContinue }

// Jump transfers control. It is always the last instruction of a block.
type Jump struct {
	instr Instr

	typ        JumpType
	target     *Block
	elseTarget *Block
	condition  Src
}

func (j *Jump) Instr() *Instr  { return &j.instr }
func (j *Jump) Type() JumpType { return j.typ }

// Target is the destination of a goto, nil for structured jumps.
func (j *Jump) Target() *Block { return j.target }

// ElseTarget is the destination of a goto_if when the condition is false.
func (j *Jump) ElseTarget() *Block { return j.elseTarget }

// Condition returns the goto_if condition, or nil for other jumps.
func (j *Jump) Condition() *Src {
	if j.typ != JumpGotoIf {
		return nil
	}
	return &j.condition
}

// Undef defines a value with no particular contents.
type Undef struct {
	instr Instr

	dest Def
}

func (u *Undef) Instr() *Instr { return &u.instr }
func (u *Undef) Def() *Def     { return &u.dest }

// Phi selects a value depending on the predecessor control came from.
// Phis are always grouped at the head of a block.
type Phi struct {
	instr Instr

	dest Def
	srcs exec.List[PhiSrc]
}

func (p *Phi) Instr() *Instr { return &p.instr }
func (p *Phi) Def() *Def     { return &p.dest }

// Srcs iterates over the phi sources, one per predecessor.
func (p *Phi) Srcs() iter.Seq[*PhiSrc] { return phiSrcLink.All(&p.srcs) }

// SrcFrom returns the source for predecessor pred, or nil.
func (p *Phi) SrcFrom(pred *Block) *PhiSrc {
	for s := range p.Srcs() {
		if s.pred == pred {
			return s
		}
	}
	return nil
}

// PhiSrc is one incoming value of a phi.
type PhiSrc struct {
	node exec.Node

	pred *Block
	src  Src
}

// Pred returns the predecessor block the value comes from.
func (s *PhiSrc) Pred() *Block {
	assert(s.pred != nil, "phi source without a predecessor")
	return s.pred
}

// Src returns the incoming value.
func (s *PhiSrc) Src() *Src { return &s.src }
