package ir

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validationMessages(t *testing.T, s *Shader) []string {
	t.Helper()

	errs, err := Validate(s)
	require.NoError(t, err)

	var msgs []string
	for _, e := range errs {
		msgs = append(msgs, e.Error())
	}

	return msgs
}

func assertReported(t *testing.T, s *Shader, substr string) {
	t.Helper()

	msgs := validationMessages(t, s)

	for _, m := range msgs {
		if strings.Contains(m, substr) {
			return
		}
	}

	t.Errorf("expected a validation error containing %q, got %q", substr, msgs)
}

func TestValidate_Valid(t *testing.T) {
	fi, _, _, _ := buildNested(t)
	requireValid(t, fi.Function().Shader())

	fi, _ = buildEveryKind(t)
	assert.Empty(t, validationMessages(t, fi.Function().Shader()), "phi without predecessors has no sources")
}

func TestValidate_NilShader(t *testing.T) {
	_, err := Validate(nil)
	assert.Error(t, err)
}

func TestValidate_WrongParent(t *testing.T) {
	fi, outer, _, _ := buildNested(t)

	outer.FirstElseBlock().cf.parent = fi.CFNode()

	assertReported(t, fi.Function().Shader(), "wrong parent")
}

func TestValidate_BrokenList(t *testing.T) {
	b, f := newTestBuilder(t)
	b.Imm(1, 32)
	b.Imm(2, 32)
	fi := b.EndImpl()

	first := fi.StartBlock().FirstInstr()
	first.node.next.prev = nil

	assertReported(t, f.Shader(), "instruction list")
}

func TestValidate_InstrBlockPointer(t *testing.T) {
	b, f := newTestBuilder(t)
	x := b.Imm(1, 32)
	fi := b.EndImpl()

	x.ParentInstr().block = fi.EndBlock()

	assertReported(t, f.Shader(), "does not point back to its block")
}

func TestValidate_AdjacentBlocks(t *testing.T) {
	b, f := newTestBuilder(t)
	fi := b.EndImpl()

	extra := &Block{}
	extra.cf.data = extra
	extra.cf.parent = fi.CFNode()
	cfLink.PushTail(&fi.body, &extra.cf)

	assertReported(t, f.Shader(), "two adjacent blocks")
}

func TestValidate_JumpNotLast(t *testing.T) {
	b, f := newTestBuilder(t)
	x := b.Imm(1, 32)
	j := b.Jump(JumpReturn)
	fi := b.EndImpl()

	instrLink.Remove(j.Instr())
	instrLink.InsertBefore(x.ParentInstr(), j.Instr())
	reindex(fi)

	assertReported(t, f.Shader(), "jump is not the last instruction")
}

func TestValidate_PhiAfterInstr(t *testing.T) {
	b, f := newTestBuilder(t)
	x := b.Imm(1, 32)
	p := b.Phi(b.Block(), 1, 32)
	b.EndImpl()

	instrLink.Remove(p.Instr())
	instrLink.InsertAfter(x.ParentInstr(), p.Instr())

	assertReported(t, f.Shader(), "phi after a non-phi")
}

func TestValidate_MissingUse(t *testing.T) {
	b, f := newTestBuilder(t)
	x := b.Imm(1, 32)
	y := b.Alu(OpIneg, x)
	b.EndImpl()

	a, _ := y.ParentInstr().AsAlu()
	useLink.Remove(a.Src(0).Src())

	assertReported(t, f.Shader(), "missing from the use list")
}

func TestValidate_EdgeSymmetry(t *testing.T) {
	fi, outer, _, _ := buildNested(t)

	after := outer.FollowingBlock()
	after.predecessors = after.predecessors[:1]

	assertReported(t, fi.Function().Shader(), "does not list this block as a predecessor")
}

func TestValidate_PhiSources(t *testing.T) {
	b, f := newTestBuilder(t)

	i := b.PushIf(cond(b))
	x := b.Imm(1, 32)
	b.PopIf()

	p := b.Phi(b.Block(), 1, 32)
	b.AddPhiSrc(p, i.LastThenBlock(), x)
	b.AddPhiSrc(p, f.Impl().StartBlock(), x)

	b.EndImpl()

	assertReported(t, f.Shader(), "not from a predecessor")
}

func TestValidate_ConstBitSize(t *testing.T) {
	b, f := newTestBuilder(t)
	x := b.Imm(1, 32)
	b.EndImpl()

	c, _ := x.AsLoadConst()
	c.dest.bitSize = 1

	msgs := validationMessages(t, f.Shader())
	require.NotEmpty(t, msgs)
	assert.Contains(t, msgs[0], "unsupported bit size 1")
	assert.Contains(t, msgs[0], "in function main, block 0, instr 0")
}

func TestValidate_SrcCount(t *testing.T) {
	b, f := newTestBuilder(t)
	x := b.Imm(1, 32)
	y := b.Alu(OpIadd, x, x)
	b.EndImpl()

	a, _ := y.ParentInstr().AsAlu()
	a.srcs = a.srcs[:1]

	assertReported(t, f.Shader(), "iadd has 1 sources, expected 2")
}

func TestValidationError_Error(t *testing.T) {
	assert.Equal(t, "bad", ValidationError{Message: "bad", Block: -1, Instr: -1}.Error())
	assert.Equal(t, "in function f: bad", ValidationError{Message: "bad", Function: "f", Block: -1, Instr: -1}.Error())
	assert.Equal(t, "in function f, block 2: bad", ValidationError{Message: "bad", Function: "f", Block: 2, Instr: -1}.Error())
	assert.Equal(t, "in function f, block 2, instr 7: bad", ValidationError{Message: "bad", Function: "f", Block: 2, Instr: 7}.Error())
}

func TestValidate_ReportsBuildSite(t *testing.T) {
	b, f := newTestBuilder(t)
	b.TrackSites(true)
	x := b.Imm(1, 32)
	b.EndImpl()

	c, _ := x.AsLoadConst()
	c.values = nil

	assertReported(t, f.Shader(), "validate_test.go:")
}
