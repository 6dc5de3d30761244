package ir

import (
	"fmt"
	"path/filepath"

	"tlog.app/go/errors"
	"tlog.app/go/loc"

	"github.com/gogpu/nirview/internal/exec"
)

// ValidationError represents a validation error.
type ValidationError struct {
	Message string
	// Optional context
	Function string
	Block    int
	Instr    int
	From     loc.PC
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	msg := e.Message

	if e.From != 0 {
		_, file, line := e.From.NameFileLine()
		msg = fmt.Sprintf("%s (built at %s:%d)", msg, filepath.Base(file), line)
	}

	switch {
	case e.Function == "":
		return msg
	case e.Instr >= 0:
		return fmt.Sprintf("in function %s, block %d, instr %d: %s", e.Function, e.Block, e.Instr, msg)
	case e.Block >= 0:
		return fmt.Sprintf("in function %s, block %d: %s", e.Function, e.Block, msg)
	}
	return fmt.Sprintf("in function %s: %s", e.Function, msg)
}

// Validator checks the structural invariants traversal relies on.
// It is a debugging aid and is never run on a traversal path.
type Validator struct {
	shader *Shader
	errors []ValidationError

	function string
	impl     *FunctionImpl
	uses     map[*Src]*Def
}

// Validate walks the whole shader.
// Returns validation errors if any, or nil if the shader is well formed.
func Validate(s *Shader) ([]ValidationError, error) {
	if s == nil {
		return nil, errors.New("shader is nil")
	}

	v := &Validator{shader: s}

	v.ValidateShader()

	if len(v.errors) > 0 {
		return v.errors, nil
	}
	return nil, nil
}

// ValidateShader validates variables and every function.
func (v *Validator) ValidateShader() {
	v.checkList("variable", &v.shader.variables)

	if !v.checkList("function", &v.shader.functions) {
		return
	}

	for f := range v.shader.Functions() {
		v.validateFunction(f)
	}
}

func (v *Validator) validateFunction(f *Function) {
	v.function = f.name
	defer func() { v.function, v.impl, v.uses = "", nil, nil }()

	if f.shader != v.shader {
		v.addErrorInFunction("function does not point back to its shader")
	}

	fi := f.impl
	if fi == nil {
		return
	}

	v.impl = fi

	if fi.function != f {
		v.addErrorInFunction("function body does not point back to its function")
	}

	if fi.endBlock == nil {
		v.addErrorInFunction("function body has no end block")
		return
	}

	if fi.endBlock.cf.parent != &fi.cf {
		v.addErrorInFunction("end block parent is not the function body")
	}

	if !v.validateCFList(&fi.body, &fi.cf) {
		return
	}

	v.collectUses(fi)

	var n uint32

	for blk := range fi.Blocks() {
		if blk.index != n {
			v.addErrorInBlock(blk, fmt.Sprintf("block index is %d, expected %d", blk.index, n))
		}

		n++

		v.validateBlock(blk)
	}

	if n != fi.numBlocks {
		v.addErrorInFunction(fmt.Sprintf("function has %d blocks, recorded %d", n, fi.numBlocks))
	}

	if s := fi.endBlock.successors; s[0] != nil || s[1] != nil {
		v.addErrorInBlock(fi.endBlock, "end block has successors")
	}

	if !fi.endBlock.IsEmpty() {
		v.addErrorInBlock(fi.endBlock, "end block has instructions")
	}
}

// validateCFList checks the list itself and everything nested in it.
// It reports false if the tree is too broken to walk further.
func (v *Validator) validateCFList(l *exec.List[CFNode], parent *CFNode) bool {
	if !v.checkList("control flow", l) {
		return false
	}

	if l.IsEmpty() {
		v.addErrorInFunction(fmt.Sprintf("empty %v body", parent.Type()))
		return false
	}

	ok := true
	prevBlock := false
	first := true

	for n := range cfLink.All(l) {
		if n.parent != parent {
			v.addErrorInFunction(fmt.Sprintf("%v node has wrong parent", n.Type()))
		}

		switch d := n.data.(type) {
		case *Block:
			if !first && prevBlock {
				v.addErrorInBlock(d, "two adjacent blocks")
			}

			prevBlock = true
		case *If:
			if first || !prevBlock {
				v.addErrorInFunction("if is not preceded by a block")
			}

			prevBlock = false

			v.validateIfCondition(d)

			ok = v.validateCFList(&d.thenList, n) && ok
			ok = v.validateCFList(&d.elseList, n) && ok
		case *Loop:
			if first || !prevBlock {
				v.addErrorInFunction("loop is not preceded by a block")
			}

			prevBlock = false

			ok = v.validateCFList(&d.body, n) && ok
		default:
			v.addErrorInFunction(fmt.Sprintf("%v node inside a list", n.Type()))
			return false
		}

		first = false
	}

	if !prevBlock {
		v.addErrorInFunction(fmt.Sprintf("%v body does not end with a block", parent.Type()))
	}
	return ok
}

func (v *Validator) validateIfCondition(i *If) {
	c := &i.condition

	switch {
	case c.ssa == nil:
		v.addErrorInFunction("if condition is not bound")
	case c.parentIf != i || c.parent != nil:
		v.addErrorInFunction("if condition has wrong parent")
	case c.ssa.numComponents != 1:
		v.addErrorInFunction(fmt.Sprintf("if condition has %d components", c.ssa.numComponents))
	}
}

func (v *Validator) collectUses(fi *FunctionImpl) {
	v.uses = make(map[*Src]*Def)

	for blk := range fi.Blocks() {
		for i := range blk.Instrs() {
			d := i.Def()
			if d == nil {
				continue
			}

			if _, err := d.uses.Check(); err != nil {
				v.addErrorInInstr(i, "use list: "+err.Error())
				continue
			}

			for s := range d.Uses() {
				v.uses[s] = d
			}
		}
	}
}

func (v *Validator) validateBlock(blk *Block) {
	if !v.checkList("instruction", &blk.instrs) {
		return
	}

	inPhis := true

	for i := range blk.Instrs() {
		if i.block != blk {
			v.addErrorInInstr(i, "instruction does not point back to its block")
		}

		isPhi := i.Type() == InstrPhi
		if isPhi && !inPhis {
			v.addErrorInInstr(i, "phi after a non-phi instruction")
		}

		inPhis = inPhis && isPhi

		if i.Type() == InstrJump && i.Next() != nil {
			v.addErrorInInstr(i, "jump is not the last instruction")
		}

		v.validateInstr(i)
	}

	v.validateEdges(blk)
}

func (v *Validator) validateInstr(i *Instr) {
	if d := i.Def(); d != nil {
		if d.parent != i {
			v.addErrorInInstr(i, "def does not point back to its instruction")
		}

		if d.index >= v.impl.ssaAlloc {
			v.addErrorInInstr(i, fmt.Sprintf("def index %d is out of range %d", d.index, v.impl.ssaAlloc))
		}
	}

	for s := range instrSrcs(i) {
		switch {
		case s.ssa == nil:
			v.addErrorInInstr(i, "source is not bound")
		case s.parent != i:
			v.addErrorInInstr(i, "source does not point back to its instruction")
		case v.uses[s] != s.ssa:
			v.addErrorInInstr(i, fmt.Sprintf("source is missing from the use list of def %d", s.ssa.index))
		}
	}

	switch d := i.data.(type) {
	case *Alu:
		if len(d.srcs) != int(d.Info().NumInputs) {
			v.addErrorInInstr(i, fmt.Sprintf("%v has %d sources, expected %d", d.op, len(d.srcs), d.Info().NumInputs))
		}
	case *Intrinsic:
		if len(d.srcs) != int(d.Info().NumSrcs) {
			v.addErrorInInstr(i, fmt.Sprintf("%v has %d sources, expected %d", d.op, len(d.srcs), d.Info().NumSrcs))
		}
	case *LoadConst:
		if !validConstWidth(d.dest.bitSize) {
			v.addErrorInInstr(i, fmt.Sprintf("constant has unsupported bit size %d", d.dest.bitSize))
		}

		if len(d.values) != int(d.dest.numComponents) {
			v.addErrorInInstr(i, fmt.Sprintf("constant has %d values for %d components", len(d.values), d.dest.numComponents))
		}
	case *Phi:
		v.validatePhi(i, d)
	}
}

func (v *Validator) validatePhi(i *Instr, p *Phi) {
	if !v.checkList("phi source", &p.srcs) {
		return
	}

	blk := i.block
	n := 0

	for s := range p.Srcs() {
		n++

		if s.pred == nil || !blk.HasPredecessor(s.pred) {
			v.addErrorInInstr(i, "phi source is not from a predecessor")
		}
	}

	if n != blk.NumPredecessors() {
		v.addErrorInInstr(i, fmt.Sprintf("phi has %d sources for %d predecessors", n, blk.NumPredecessors()))
	}
}

func (v *Validator) validateEdges(blk *Block) {
	if blk != v.impl.endBlock && blk.successors[0] == nil {
		v.addErrorInBlock(blk, "block has no successor")
	}

	for _, s := range blk.successors {
		if s != nil && !s.HasPredecessor(blk) {
			v.addErrorInBlock(blk, fmt.Sprintf("successor %d does not list this block as a predecessor", s.index))
		}
	}

	for p := range blk.Predecessors() {
		if p.successors[0] != blk && p.successors[1] != blk {
			v.addErrorInBlock(blk, fmt.Sprintf("predecessor %d does not list this block as a successor", p.index))
		}
	}
}

type checker interface {
	Check() (int, error)
}

func (v *Validator) checkList(what string, l checker) bool {
	if _, err := l.Check(); err != nil {
		v.addErrorInFunction(what + " list: " + err.Error())
		return false
	}
	return true
}

func (v *Validator) addError(msg string) {
	v.errors = append(v.errors, ValidationError{
		Message: msg,
		Block:   -1,
		Instr:   -1,
	})
}

func (v *Validator) addErrorInFunction(msg string) {
	if v.function == "" {
		v.addError(msg)
		return
	}

	v.errors = append(v.errors, ValidationError{
		Message:  msg,
		Function: v.function,
		Block:    -1,
		Instr:    -1,
	})
}

func (v *Validator) addErrorInBlock(blk *Block, msg string) {
	v.errors = append(v.errors, ValidationError{
		Message:  msg,
		Function: v.function,
		Block:    int(blk.index),
		Instr:    -1,
	})
}

func (v *Validator) addErrorInInstr(i *Instr, msg string) {
	blk := -1
	if i.block != nil {
		blk = int(i.block.index)
	}

	v.errors = append(v.errors, ValidationError{
		Message:  msg,
		Function: v.function,
		Block:    blk,
		Instr:    int(i.index),
		From:     i.from,
	})
}
