package ir

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildNested builds
//
//	b0; if { b1; if { b2 } else { b3 }; b4 } else { b5 }; b6; loop { b7 }; b8
func buildNested(t testing.TB) (*FunctionImpl, *If, *If, *Loop) {
	b, _ := newTestBuilder(t)

	outer := b.PushIf(cond(b))
	inner := b.PushIf(cond(b))
	b.PushElse()
	b.PopIf()
	b.PushElse()
	b.PopIf()

	l := b.PushLoop()
	b.Jump(JumpBreak)
	b.PopLoop()

	return b.EndImpl(), outer, inner, l
}

func TestCFNode_ExactlyOneKind(t *testing.T) {
	fi, _, _, _ := buildNested(t)

	var visit func(n *CFNode)
	visit = func(n *CFNode) {
		_, isBlock := n.AsBlock()
		i, isIf := n.AsIf()
		l, isLoop := n.AsLoop()
		_, isImpl := n.AsFunctionImpl()

		kinds := 0
		for _, ok := range []bool{isBlock, isIf, isLoop, isImpl} {
			if ok {
				kinds++
			}
		}

		assert.Equal(t, 1, kinds)
		assert.False(t, isImpl, "function root inside a list")

		switch {
		case isBlock:
			assert.Equal(t, CFNodeBlock, n.Type())
		case isIf:
			assert.Equal(t, CFNodeIf, n.Type())

			for c := range i.ThenList() {
				assert.Same(t, n, c.Parent())
				visit(c)
			}

			for c := range i.ElseList() {
				assert.Same(t, n, c.Parent())
				visit(c)
			}
		case isLoop:
			assert.Equal(t, CFNodeLoop, n.Type())

			for c := range l.Body() {
				assert.Same(t, n, c.Parent())
				visit(c)
			}
		}
	}

	for n := range fi.Body() {
		assert.Same(t, fi.CFNode(), n.Parent())
		visit(n)
	}

	assert.Equal(t, CFNodeFunction, fi.CFNode().Type())
	assert.Nil(t, fi.CFNode().Parent())
}

func TestIf_Nesting(t *testing.T) {
	fi, outer, inner, l := buildNested(t)
	bl := blocksOf(fi)
	require.Len(t, bl, 10)

	assert.Same(t, bl[1], outer.FirstThenBlock())
	assert.Same(t, bl[4], outer.LastThenBlock())
	assert.Same(t, bl[5], outer.FirstElseBlock())
	assert.Same(t, bl[5], outer.LastElseBlock())
	assert.Same(t, bl[6], outer.FollowingBlock())

	assert.Same(t, bl[2], inner.FirstThenBlock())
	assert.Same(t, bl[3], inner.FirstElseBlock())
	assert.Same(t, bl[4], inner.FollowingBlock())
	assert.Same(t, outer.CFNode(), inner.CFNode().Parent())

	assert.Same(t, bl[7], l.FirstBlock())
	assert.Same(t, bl[8], l.FollowingBlock())
	assert.Same(t, bl[9], fi.EndBlock())

	assert.Same(t, outer, bl[0].FollowingIf())
	assert.Same(t, inner, bl[1].FollowingIf())
	assert.Nil(t, bl[0].FollowingLoop())
	assert.Same(t, l, bl[6].FollowingLoop())
	assert.Nil(t, bl[6].FollowingIf())
	assert.Nil(t, bl[8].FollowingIf())
	assert.Nil(t, bl[8].FollowingLoop())

	cond := outer.Condition()
	assert.True(t, cond.IsIf())
	assert.Same(t, outer, cond.ParentIf())
	assert.Nil(t, cond.ParentInstr())
}

func TestCFNode_Siblings(t *testing.T) {
	fi, outer, _, l := buildNested(t)
	bl := blocksOf(fi)

	// b0, outer, b6, loop, b8
	assert.Nil(t, bl[0].CFNode().Prev())
	assert.Same(t, outer.CFNode(), bl[0].CFNode().Next())
	assert.Same(t, bl[0].CFNode(), outer.CFNode().Prev())
	assert.Same(t, outer.CFNode(), bl[6].CFNode().Prev(), "mid-list reverse query")
	assert.Same(t, l.CFNode(), bl[6].CFNode().Next())
	assert.Same(t, l.CFNode(), bl[8].CFNode().Prev())
	assert.Nil(t, bl[8].CFNode().Next())

	assert.Nil(t, bl[5].CFNode().Next(), "sole node in the else list")
	assert.Nil(t, bl[5].CFNode().Prev())

	assert.Nil(t, fi.EndBlock().CFNode().Next(), "end block is not in a list")
	assert.Nil(t, fi.EndBlock().CFNode().Prev())
}

func TestFunctionImpl_BlocksRev(t *testing.T) {
	fi, _, _, _ := buildNested(t)

	fwd := blocksOf(fi)
	rev := slices.Collect(fi.BlocksRev())

	slices.Reverse(rev)
	assert.Equal(t, fwd, rev)
}

func TestBlock_ParentAndImpl(t *testing.T) {
	fi, outer, inner, l := buildNested(t)

	assert.Same(t, outer.CFNode(), inner.FirstThenBlock().Parent().Parent())
	assert.Same(t, l.CFNode(), l.FirstBlock().Parent())
	assert.Same(t, fi.CFNode(), fi.StartBlock().Parent())
	assert.Same(t, fi.CFNode(), fi.EndBlock().Parent())

	for blk := range fi.Blocks() {
		assert.Same(t, fi, blk.Impl())
	}

	assert.Same(t, fi.Function().Impl(), fi)
}

func TestBlock_NotABlockPanics(t *testing.T) {
	_, outer, _, _ := buildNested(t)

	assert.Panics(t, func() { mustBlock(outer.CFNode()) })
	assert.Panics(t, func() { mustBlock(nil) })
	assert.Panics(t, func() { (&Block{}).Parent() })
}

func TestShader_Iteration(t *testing.T) {
	s := NewShader(StageFragment, "frag")
	b := NewBuilder(s)

	b.AddVariable(VariableInfo{Name: "color", Mode: ModeShaderOut, Location: 0})
	b.AddVariable(VariableInfo{Name: "tex", Mode: ModeUniform, DescSet: 1, Binding: 2})

	helper := b.AddFunction("helper", 2, false)
	main := b.AddFunction("main", 0, true)

	b.BeginImpl(main)
	b.EndImpl()

	assert.Equal(t, []*Function{helper, main}, slices.Collect(s.Functions()))
	assert.Same(t, main, s.Entrypoint())
	assert.Nil(t, helper.Impl())
	assert.NotNil(t, main.Impl())
	assert.Equal(t, uint32(2), helper.NumParams())
	assert.Same(t, s, main.Shader())

	var names []string
	for v := range s.Variables() {
		names = append(names, v.Name())
	}

	assert.Equal(t, []string{"color", "tex"}, names)
	assert.Equal(t, "fragment", s.Stage().String())

	requireValid(t, s)
}

func TestEnum_Strings(t *testing.T) {
	for _, stage := range []ShaderStage{StageVertex, StageFragment, StageCompute} {
		got, ok := ParseShaderStage(stage.String())
		assert.True(t, ok)
		assert.Equal(t, stage, got)
	}

	assert.Equal(t, "shader_in|ssbo", (ModeShaderIn | ModeSSBO).String())
	assert.Equal(t, "none", VariableMode(0).String())

	m, ok := ParseVariableMode("push_const")
	assert.True(t, ok)
	assert.Equal(t, ModePushConst, m)

	_, ok = ParseVariableMode("nope")
	assert.False(t, ok)
}
