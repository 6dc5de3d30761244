package ir

import (
	"iter"
	"strings"

	"github.com/gogpu/nirview/internal/exec"
)

// Record links. Each owner type has exactly one, built once.
var (
	functionLink = exec.FieldOf(func(f *Function) *exec.Node { return &f.node })
	variableLink = exec.FieldOf(func(v *Variable) *exec.Node { return &v.node })
	cfLink       = exec.FieldOf(func(n *CFNode) *exec.Node { return &n.node })
	instrLink    = exec.FieldOf(func(i *Instr) *exec.Node { return &i.node })
	phiSrcLink   = exec.FieldOf(func(s *PhiSrc) *exec.Node { return &s.node })
	useLink      = exec.FieldOf(func(s *Src) *exec.Node { return &s.use })
)

// Shader is the root of an IR graph. It owns every record reachable from it;
// all back-references inside the graph are non-owning and live no longer
// than the Shader.
type Shader struct {
	name      string
	stage     ShaderStage
	functions exec.List[Function]
	variables exec.List[Variable]
}

// NewShader creates an empty shader. Use a Builder to populate it.
func NewShader(stage ShaderStage, name string) *Shader {
	return &Shader{name: name, stage: stage}
}

// Name returns the shader name.
func (s *Shader) Name() string { return s.name }

// Stage returns the pipeline stage the shader runs in.
func (s *Shader) Stage() ShaderStage { return s.stage }

// Functions iterates over the shader functions in declaration order.
func (s *Shader) Functions() iter.Seq[*Function] {
	return functionLink.All(&s.functions)
}

// Variables iterates over the shader-level variables in declaration order.
func (s *Shader) Variables() iter.Seq[*Variable] {
	return variableLink.All(&s.variables)
}

// Entrypoint returns the first function marked as an entry point, or nil.
func (s *Shader) Entrypoint() *Function {
	for f := range s.Functions() {
		if f.entrypoint {
			return f
		}
	}
	return nil
}

// ShaderStage represents a shader stage.
type ShaderStage uint8

const (
	StageVertex ShaderStage = iota
	StageTessCtrl
	StageTessEval
	StageGeometry
	StageFragment
	StageCompute
	StageKernel
)

var stageNames = [...]string{
	StageVertex:   "vertex",
	StageTessCtrl: "tess_ctrl",
	StageTessEval: "tess_eval",
	StageGeometry: "geometry",
	StageFragment: "fragment",
	StageCompute:  "compute",
	StageKernel:   "kernel",
}

func (s ShaderStage) String() string {
	if int(s) < len(stageNames) {
		return stageNames[s]
	}
	return "unknown"
}

// ParseShaderStage is the inverse of ShaderStage.String.
func ParseShaderStage(name string) (ShaderStage, bool) {
	for i, n := range stageNames {
		if n == name {
			return ShaderStage(i), true
		}
	}
	return 0, false
}

// VariableMode is a set of variable storage modes.
type VariableMode uint32

const (
	ModeShaderIn VariableMode = 1 << iota
	ModeShaderOut
	ModeUniform
	ModeUBO
	ModeSSBO
	ModeShared
	ModeGlobal
	ModePushConst
	ModeImage
	ModeShaderTemp
	ModeFunctionTemp
)

var modeNames = [...]string{
	"shader_in",
	"shader_out",
	"uniform",
	"ubo",
	"ssbo",
	"shared",
	"global",
	"push_const",
	"image",
	"shader_temp",
	"function_temp",
}

func (m VariableMode) String() string {
	if m == 0 {
		return "none"
	}

	var parts []string

	for i, n := range modeNames {
		if m&(1<<i) != 0 {
			parts = append(parts, n)
		}
	}

	if m>>len(modeNames) != 0 {
		parts = append(parts, "unknown")
	}
	return strings.Join(parts, "|")
}

// ParseVariableMode parses a single mode name.
func ParseVariableMode(name string) (VariableMode, bool) {
	for i, n := range modeNames {
		if n == name {
			return 1 << i, true
		}
	}
	return 0, false
}

// Variable is a shader-level variable.
type Variable struct {
	node exec.Node

	name     string
	mode     VariableMode
	location int32
	descSet  uint32
	binding  uint32
}

func (v *Variable) Name() string          { return v.name }
func (v *Variable) Mode() VariableMode    { return v.mode }
func (v *Variable) Location() int32       { return v.location }
func (v *Variable) DescriptorSet() uint32 { return v.descSet }
func (v *Variable) Binding() uint32       { return v.binding }

// Function is a function declaration. It owns at most one implementation.
type Function struct {
	node exec.Node

	shader     *Shader
	name       string
	numParams  uint32
	entrypoint bool
	impl       *FunctionImpl
}

func (f *Function) Name() string       { return f.name }
func (f *Function) Shader() *Shader    { return f.shader }
func (f *Function) NumParams() uint32  { return f.numParams }
func (f *Function) IsEntrypoint() bool { return f.entrypoint }

// Impl returns the function body, or nil for a declaration without one.
func (f *Function) Impl() *FunctionImpl { return f.impl }

// FunctionImpl is a function body: a control flow list and an end block
// that is not part of the list. Returns and halts lead to the end block.
type FunctionImpl struct {
	cf CFNode

	function  *Function
	body      exec.List[CFNode]
	endBlock  *Block
	numBlocks uint32
	ssaAlloc  uint32
}

// CFNode returns the root node every top-level block reports as its parent.
func (fi *FunctionImpl) CFNode() *CFNode { return &fi.cf }

// Function returns the owning function.
func (fi *FunctionImpl) Function() *Function {
	assert(fi.function != nil, "function impl without a function")
	return fi.function
}

// Body iterates over the top-level control flow nodes.
func (fi *FunctionImpl) Body() iter.Seq[*CFNode] {
	return cfLink.All(&fi.body)
}

// StartBlock returns the first block of the body.
func (fi *FunctionImpl) StartBlock() *Block {
	return firstBlock(&fi.body)
}

// EndBlock returns the block every return leads to.
func (fi *FunctionImpl) EndBlock() *Block {
	assert(fi.endBlock != nil, "function impl without an end block")
	return fi.endBlock
}

// NumBlocks is the number of blocks including the end block.
func (fi *FunctionImpl) NumBlocks() uint32 { return fi.numBlocks }

// SSAAlloc is one more than the highest Def index in the body.
func (fi *FunctionImpl) SSAAlloc() uint32 { return fi.ssaAlloc }

// Blocks iterates over every block in program order, nested blocks
// included. The end block comes last.
func (fi *FunctionImpl) Blocks() iter.Seq[*Block] {
	return func(yield func(*Block) bool) {
		if !walkBlocks(&fi.body, false, yield) {
			return
		}

		if fi.endBlock != nil {
			yield(fi.endBlock)
		}
	}
}

// BlocksRev is Blocks in reverse: the end block first.
func (fi *FunctionImpl) BlocksRev() iter.Seq[*Block] {
	return func(yield func(*Block) bool) {
		if fi.endBlock != nil && !yield(fi.endBlock) {
			return
		}

		walkBlocks(&fi.body, true, yield)
	}
}

func walkBlocks(l *exec.List[CFNode], rev bool, yield func(*Block) bool) bool {
	var it exec.Iter[CFNode]
	if rev {
		it = cfLink.IterRev(l)
	} else {
		it = cfLink.Iter(l)
	}

	for n := it.Next(); n != nil; n = it.Next() {
		switch d := n.data.(type) {
		case *Block:
			if !yield(d) {
				return false
			}
		case *If:
			first, second := &d.thenList, &d.elseList
			if rev {
				first, second = second, first
			}

			if !walkBlocks(first, rev, yield) || !walkBlocks(second, rev, yield) {
				return false
			}
		case *Loop:
			if !walkBlocks(&d.body, rev, yield) {
				return false
			}
		}
	}
	return true
}
