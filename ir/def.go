package ir

import (
	"iter"

	"github.com/gogpu/nirview/internal/exec"
)

// Def is an SSA value. It is owned by the instruction defining it.
type Def struct {
	parent        *Instr
	index         uint32
	bitSize       uint8
	numComponents uint8

	uses exec.List[Src]
}

// Index is unique among the defs of a function body.
func (d *Def) Index() uint32 { return d.index }

// BitSize is the width of one component.
func (d *Def) BitSize() uint8 { return d.bitSize }

// NumComponents is the vector width.
func (d *Def) NumComponents() uint8 { return d.numComponents }

// ParentInstr returns the defining instruction.
func (d *Def) ParentInstr() *Instr {
	assert(d.parent != nil, "def %d has no parent instruction", d.index)
	return d.parent
}

// AsLoadConst returns the defining load_const, if that is what defines d.
func (d *Def) AsLoadConst() (*LoadConst, bool) {
	return d.ParentInstr().AsLoadConst()
}

// IsConst reports whether d is defined by a load_const.
func (d *Def) IsConst() bool {
	_, ok := d.AsLoadConst()
	return ok
}

// CompAsInt returns component comp sign-extended from the def width,
// or false if d is not a constant.
func (d *Def) CompAsInt(comp uint8) (int64, bool) {
	c, ok := d.AsLoadConst()
	if !ok {
		return 0, false
	}
	return c.CompAsInt(comp), true
}

// CompAsUint returns component comp zero-extended from the def width,
// or false if d is not a constant.
func (d *Def) CompAsUint(comp uint8) (uint64, bool) {
	c, ok := d.AsLoadConst()
	if !ok {
		return 0, false
	}
	return c.CompAsUint(comp), true
}

// AsInt is CompAsInt for a scalar def.
func (d *Def) AsInt() (int64, bool) {
	assert(d.numComponents == 1, "def %d is not a scalar", d.index)
	return d.CompAsInt(0)
}

// AsUint is CompAsUint for a scalar def.
func (d *Def) AsUint() (uint64, bool) {
	assert(d.numComponents == 1, "def %d is not a scalar", d.index)
	return d.CompAsUint(0)
}

// IsZero reports whether d is a scalar constant zero.
func (d *Def) IsZero() bool {
	if d.numComponents != 1 {
		return false
	}

	v, ok := d.AsUint()
	return ok && v == 0
}

// Uses iterates over every Src reading d, if-conditions included.
func (d *Def) Uses() iter.Seq[*Src] { return useLink.All(&d.uses) }

// HasUses reports whether anything reads d.
func (d *Def) HasUses() bool { return !d.uses.IsEmpty() }

// ComponentsRead returns the mask of components read by any use.
func (d *Def) ComponentsRead() uint32 {
	full := uint32(1)<<d.numComponents - 1

	var read uint32

	for s := range d.Uses() {
		read |= s.componentsRead(full)

		if read == full {
			break
		}
	}
	return read
}

// AllUsesAreFsat reports whether every use is an fsat ALU instruction.
// A def without uses satisfies this trivially.
func (d *Def) AllUsesAreFsat() bool {
	for s := range d.Uses() {
		if s.IsIf() {
			return false
		}

		a, ok := s.parent.AsAlu()
		if !ok || a.op != OpFsat {
			return false
		}
	}
	return true
}

// Src is a use of a Def by an instruction or by an if-condition.
type Src struct {
	use exec.Node

	ssa      *Def
	parent   *Instr
	parentIf *If
}

// Def returns the value read.
func (s *Src) Def() *Def {
	assert(s.ssa != nil, "source is not bound to a def")
	return s.ssa
}

// ParentInstr returns the reading instruction, or nil for an if-condition.
func (s *Src) ParentInstr() *Instr { return s.parent }

// ParentIf returns the If whose condition s is, or nil.
func (s *Src) ParentIf() *If { return s.parentIf }

// IsIf reports whether s is an if-condition.
func (s *Src) IsIf() bool { return s.parentIf != nil }

func (s *Src) componentsRead(full uint32) uint32 {
	if s.IsIf() {
		return 1
	}

	switch v := s.parent.data.(type) {
	case *Alu:
		for i := range v.srcs {
			if &v.srcs[i].src != s {
				continue
			}

			var mask uint32
			for c := range v.SrcComponents(i) {
				mask |= 1 << v.srcs[i].swizzle[c]
			}
			return mask
		}
	case *Intrinsic:
		if v.Info().Flags&IntrinsicStore != 0 && len(v.srcs) > 0 && &v.srcs[0] == s && v.Info().HasIndex(IndexWriteMask) {
			return v.WriteMask()
		}
	}
	return full
}
