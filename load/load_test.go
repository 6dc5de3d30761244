package load

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/nirview/ir"
)

const fragYAML = `
name: frag
stage: fragment
variables:
  - {name: color, mode: shader_out, location: 1}
  - {name: data, mode: ssbo|global, set: 2, binding: 3}
functions:
  - name: main
    entrypoint: true
    body:
      - label: entry
        block:
          - {def: v, const: [1.0, 2.0], bit_size: 32}
          - {def: zero, const: [0]}
          - {def: c, alu: flt, srcs: [v.y, v.x]}
      - if:
          cond: c
          then:
            - label: then
              block:
                - {def: a, alu: fadd, srcs: [v.yx, v], exact: true}
          else:
            - label: else
              block:
                - {def: b, alu: fmul, srcs: [v, v]}
      - block:
          - {def: p, phi: [{pred: then, src: a}, {pred: else, src: b}], components: 2}
          - {intrinsic: store_output, srcs: [p, zero], indices: {write_mask: 3, src_type: float32, base: 1}}
`

func requireValid(t testing.TB, s *ir.Shader) {
	t.Helper()

	errs, err := ir.Validate(s)
	require.NoError(t, err)

	for _, e := range errs {
		t.Errorf("validation: %v", e)
	}
}

func mainImpl(t testing.TB, s *ir.Shader) *ir.FunctionImpl {
	t.Helper()

	for f := range s.Functions() {
		if f.Name() == "main" {
			require.NotNil(t, f.Impl())
			return f.Impl()
		}
	}

	t.Fatalf("no main function")

	return nil
}

func TestParse_Frag(t *testing.T) {
	s, err := Parse([]byte(fragYAML))
	require.NoError(t, err)
	requireValid(t, s)

	assert.Equal(t, "frag", s.Name())
	assert.Equal(t, ir.StageFragment, s.Stage())

	var vars []*ir.Variable
	for v := range s.Variables() {
		vars = append(vars, v)
	}

	require.Len(t, vars, 2)
	assert.Equal(t, ir.ModeShaderOut, vars[0].Mode())
	assert.Equal(t, int32(1), vars[0].Location())
	assert.Equal(t, ir.ModeSSBO|ir.ModeGlobal, vars[1].Mode())
	assert.Equal(t, uint32(2), vars[1].DescriptorSet())
	assert.Equal(t, uint32(3), vars[1].Binding())

	fi := mainImpl(t, s)
	assert.Equal(t, uint32(5), fi.NumBlocks())

	var kinds []ir.CFNodeType
	for n := range fi.Body() {
		kinds = append(kinds, n.Type())
	}

	assert.Equal(t, []ir.CFNodeType{ir.CFNodeBlock, ir.CFNodeIf, ir.CFNodeBlock}, kinds)

	after := slices.Collect(fi.EndBlock().Predecessors())
	require.Len(t, after, 1)

	var instrs []*ir.Instr
	for i := range after[0].Instrs() {
		instrs = append(instrs, i)
	}

	require.Len(t, instrs, 2)

	p, ok := instrs[0].AsPhi()
	require.True(t, ok)
	assert.Equal(t, uint8(2), p.Def().NumComponents())

	n := 0
	for range p.Srcs() {
		n++
	}

	assert.Equal(t, 2, n)

	in, ok := instrs[1].AsIntrinsic()
	require.True(t, ok)
	assert.Equal(t, ir.IntrinsicStoreOutput, in.Op())
	assert.Equal(t, uint32(3), in.WriteMask())
	assert.Equal(t, ir.TypeFloat32, in.SrcType())
	assert.Equal(t, int32(1), in.Base())
	assert.Equal(t, uint8(2), in.NumComponents())
}

func TestParse_Swizzle(t *testing.T) {
	s, err := Parse([]byte(fragYAML))
	require.NoError(t, err)

	fi := mainImpl(t, s)
	start := fi.StartBlock()

	last := start.LastInstr()
	a, ok := last.AsAlu()
	require.True(t, ok)

	assert.Equal(t, ir.OpFlt, a.Op())
	assert.Equal(t, uint8(1), a.Src(0).Swizzle()[0])
	assert.Equal(t, uint8(0), a.Src(1).Swizzle()[0])

	i, ok := start.FollowingIf()
	require.True(t, ok)

	add, ok := i.FirstThenBlock().FirstInstr().AsAlu()
	require.True(t, ok)
	assert.True(t, add.Exact())
	assert.Equal(t, uint8(2), add.Def().NumComponents())
	sw := add.Src(0).Swizzle()
	assert.Equal(t, []uint8{1, 0}, sw[:2])
}

func TestParse_LoopPhi(t *testing.T) {
	s, err := Parse([]byte(`
name: count
stage: compute
functions:
  - name: main
    entrypoint: true
    body:
      - label: entry
        block:
          - {def: zero, const: [0]}
          - {def: one, const: [1]}
          - {def: n, const: [10]}
      - loop:
          - label: head
            block:
              - {def: i, phi: [{pred: entry, src: zero}, {pred: body, src: next}]}
              - {def: done, alu: ige, srcs: [i, n]}
          - if:
              cond: done
              then:
                - block:
                    - {jump: break}
          - label: body
            block:
              - {def: next, alu: iadd, srcs: [i, one]}
      - block:
          - {jump: return}
`))
	require.NoError(t, err)
	requireValid(t, s)

	fi := mainImpl(t, s)

	var loop *ir.Loop
	for n := range fi.Body() {
		if l, ok := n.AsLoop(); ok {
			loop = l
		}
	}

	require.NotNil(t, loop)

	head := loop.FirstBlock()
	assert.Equal(t, 2, head.NumPredecessors())
	assert.True(t, head.HasPredecessor(fi.StartBlock()))
	assert.True(t, head.HasPredecessor(loop.LastBlock()))

	p, ok := head.FirstInstr().AsPhi()
	require.True(t, ok)
	assert.NotNil(t, p.SrcFrom(loop.LastBlock()))

	next := loop.FollowingBlock()
	j, ok := next.LastInstr().AsJump()
	require.True(t, ok)
	assert.Equal(t, ir.JumpReturn, j.Type())
}

func TestParse_Constants(t *testing.T) {
	s, err := Parse([]byte(`
name: consts
stage: vertex
functions:
  - name: main
    body:
      - block:
          - {def: b, const: [true, false], bit_size: 8}
          - {def: i, const: [-1], bit_size: 16}
          - {def: h, const: [0xffffffffffffffff], bit_size: 64}
          - {def: f, const: [0.5], bit_size: 64}
          - {def: u, undef: true, components: 3, bit_size: 16}
`))
	require.NoError(t, err)

	var defs []*ir.Def
	for i := range mainImpl(t, s).StartBlock().Instrs() {
		defs = append(defs, i.Def())
	}

	require.Len(t, defs, 5)

	v, ok := defs[0].CompAsUint(0)
	assert.True(t, ok)
	assert.Equal(t, uint64(0xff), v)

	v, ok = defs[0].CompAsUint(1)
	assert.True(t, ok)
	assert.Equal(t, uint64(0), v)

	iv, ok := defs[1].AsInt()
	assert.True(t, ok)
	assert.Equal(t, int64(-1), iv)

	v, ok = defs[2].AsUint()
	assert.True(t, ok)
	assert.Equal(t, uint64(0xffffffffffffffff), v)

	c, ok := defs[3].AsLoadConst()
	require.True(t, ok)
	assert.Equal(t, 0.5, c.Values()[0].F64())

	assert.False(t, defs[4].IsConst())
	assert.Equal(t, uint8(3), defs[4].NumComponents())
	assert.Equal(t, uint8(16), defs[4].BitSize())
}

func TestParse_Tex(t *testing.T) {
	s, err := Parse([]byte(`
name: tex
stage: fragment
functions:
  - name: main
    body:
      - block:
          - {def: uv, undef: true, components: 3}
          - {def: lod, const: [0.0]}
          - def: t
            tex: {op: txl, dim: 2d, array: true, texture: 4, sampler: 5, srcs: [{type: coord, src: uv}, {type: lod, src: lod}]}
`))
	require.NoError(t, err)

	tex, ok := mainImpl(t, s).StartBlock().LastInstr().AsTex()
	require.True(t, ok)

	assert.Equal(t, ir.TexSampleLod, tex.Op())
	assert.Equal(t, ir.Dim2D, tex.SamplerDim())
	assert.True(t, tex.IsArray())
	assert.Equal(t, uint8(3), tex.CoordComponents())
	assert.Equal(t, uint32(4), tex.TextureIndex())
	assert.Equal(t, uint32(5), tex.SamplerIndex())
	assert.Equal(t, ir.TypeFloat32, tex.DestType())
	assert.Equal(t, 1, tex.SrcIndex(ir.TexSrcLod))
}

func TestParse_Errors(t *testing.T) {
	const head = "name: x\nstage: compute\nfunctions:\n  - name: main\n    body:\n"

	tests := []struct {
		name string
		body string
		want string
	}{
		{"unknown alu", "      - block: [{def: a, alu: frob, srcs: []}]\n", `unknown alu op: "frob"`},
		{"undefined", "      - block: [{def: a, alu: fneg, srcs: [nope]}]\n", `undefined value "nope"`},
		{"arity", "      - block: [{def: z, const: [0]}, {def: a, alu: fadd, srcs: [z]}]\n", "takes 2 sources, got 1"},
		{"swizzle", "      - block: [{def: z, const: [0]}, {def: a, alu: fneg, srcs: [z.y]}]\n", `bad swizzle "y" for 1 components`},
		{"redefinition", "      - block: [{def: z, const: [0]}, {def: z, const: [1]}]\n", `redefinition of "z"`},
		{"no value", "      - block: [{def: z, jump: return}]\n", `defines no value for "z"`},
		{"no op", "      - block: [{def: z}]\n", "instruction has no operation"},
		{"two kinds", "      - block: []\n        loop: []\n", "item must be exactly one of block, if or loop"},
		{"index", "      - block: [{def: z, const: [0]}, {intrinsic: store_output, srcs: [z, z], indices: {binding: 1}}]\n", `has no index "binding"`},
		{"phi block", "      - block: [{def: z, const: [0]}, {def: p, phi: [{pred: nowhere, src: z}]}]\n", `phi: unknown block "nowhere"`},
		{"float bits", "      - block: [{def: z, const: [1.5], bit_size: 16}]\n", "float constant needs 32 or 64 bits"},
		{"const bits", "      - block: [{def: z, const: [1], bit_size: 1}]\n", "unsupported constant bit size: 1"},
		{"jump not last", "      - block: [{jump: return}, {def: z, const: [0]}]\n", "build"},
		{"break outside loop", "      - block: [{jump: break}]\n", "build"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(head + tc.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestParse_BadHeader(t *testing.T) {
	_, err := Parse([]byte("stage: geometry\n"))
	assert.ErrorContains(t, err, `unknown shader stage: "geometry"`)

	_, err = Parse([]byte("stage: [\n"))
	assert.ErrorContains(t, err, "parse yaml")

	_, err = Parse([]byte("stage: vertex\nvariables: [{name: v, mode: bogus}]\n"))
	assert.ErrorContains(t, err, `unknown variable mode: "bogus"`)
}

func TestReadFile(t *testing.T) {
	name := filepath.Join(t.TempDir(), "frag.yaml")
	require.NoError(t, os.WriteFile(name, []byte(fragYAML), 0o644))

	s, err := ReadFile(name)
	require.NoError(t, err)
	assert.Equal(t, "frag", s.Name())

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "read file")

	s, err = Read(strings.NewReader(fragYAML))
	require.NoError(t, err)
	assert.Equal(t, ir.StageFragment, s.Stage())
}

func TestParseSwizzle(t *testing.T) {
	sw, err := parseSwizzle("wzyx", 4)
	require.NoError(t, err)
	assert.Equal(t, []uint8{3, 2, 1, 0}, sw)

	sw, err = parseSwizzle("pa", 16)
	require.NoError(t, err)
	assert.Equal(t, []uint8{15, 0}, sw)

	_, err = parseSwizzle("x", 8)
	assert.Error(t, err)

	_, err = parseSwizzle("aaaaaaaaaaaaaaaaa", 16)
	assert.ErrorContains(t, err, "swizzle too long")
}
