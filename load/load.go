// Package load builds shaders from a YAML description.
//
// A description lists variables and functions. A function body is a list of
// control-flow items, each being a block of instructions, an if or a loop:
//
//	name: frag
//	stage: fragment
//	variables:
//	  - {name: color, mode: shader_out, location: 0}
//	functions:
//	  - name: main
//	    entrypoint: true
//	    body:
//	      - block:
//	          - {def: one, const: [1.0], bit_size: 32}
//	          - {def: c, alu: flt, srcs: [one, one]}
//	      - if:
//	          cond: c
//	          then:
//	            - block:
//	                - {intrinsic: store_output, srcs: [one, zero], indices: {write_mask: 1}}
//
// Values are referred to by their def names. ALU sources take an optional
// swizzle suffix, as in "v.yx". Phi sources name the predecessor block by
// the label given to a block item and may refer to values defined later.
package load

import (
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
	"tlog.app/go/errors"

	"github.com/gogpu/nirview/ir"
)

type (
	File struct {
		Name      string     `yaml:"name"`
		Stage     string     `yaml:"stage"`
		Variables []Variable `yaml:"variables"`
		Functions []Function `yaml:"functions"`
	}

	Variable struct {
		Name     string `yaml:"name"`
		Mode     string `yaml:"mode"`
		Location int32  `yaml:"location"`
		Set      uint32 `yaml:"set"`
		Binding  uint32 `yaml:"binding"`
	}

	Function struct {
		Name       string `yaml:"name"`
		Params     uint32 `yaml:"params"`
		Entrypoint bool   `yaml:"entrypoint"`
		Body       []Item `yaml:"body"`
	}

	// Item is one control-flow list element. Exactly one of Block, If and
	// Loop is set.
	Item struct {
		Label string  `yaml:"label"`
		Block []Instr `yaml:"block"`
		If    *If     `yaml:"if"`
		Loop  []Item  `yaml:"loop"`

		line int
	}

	If struct {
		Cond string `yaml:"cond"`
		Then []Item `yaml:"then"`
		Else []Item `yaml:"else"`
	}

	// Instr is one instruction. The op field that is set selects the kind.
	Instr struct {
		Def           string `yaml:"def"`
		BitSize       uint8  `yaml:"bit_size"`
		NumComponents uint8  `yaml:"components"`
		Exact         bool   `yaml:"exact"`

		Alu       string      `yaml:"alu"`
		Intrinsic string      `yaml:"intrinsic"`
		Const     []yaml.Node `yaml:"const"`
		Undef     bool        `yaml:"undef"`
		Jump      string      `yaml:"jump"`
		Tex       *Tex        `yaml:"tex"`
		Phi       []PhiSrc    `yaml:"phi"`

		Srcs    []string             `yaml:"srcs"`
		Indices map[string]yaml.Node `yaml:"indices"`

		line int
	}

	Tex struct {
		Op        string   `yaml:"op"`
		Dim       string   `yaml:"dim"`
		DestType  string   `yaml:"dest_type"`
		Array     bool     `yaml:"array"`
		Shadow    bool     `yaml:"shadow"`
		Texture   uint32   `yaml:"texture"`
		Sampler   uint32   `yaml:"sampler"`
		Component uint8    `yaml:"component"`
		Srcs      []TexSrc `yaml:"srcs"`
	}

	TexSrc struct {
		Type string `yaml:"type"`
		Src  string `yaml:"src"`
	}

	PhiSrc struct {
		Pred string `yaml:"pred"`
		Src  string `yaml:"src"`
	}
)

type (
	loader struct {
		b *ir.Builder

		defs   map[string]*ir.Def
		blocks map[string]*ir.Block
		phis   []pendingPhi
	}

	pendingPhi struct {
		phi  *ir.Phi
		srcs []PhiSrc
		line int
	}
)

// UnmarshalYAML records the source line for error messages.
func (x *Item) UnmarshalYAML(n *yaml.Node) error {
	type plain Item

	err := n.Decode((*plain)(x))
	if err != nil {
		return err
	}

	x.line = n.Line

	return nil
}

// UnmarshalYAML records the source line for error messages.
func (x *Instr) UnmarshalYAML(n *yaml.Node) error {
	type plain Instr

	err := n.Decode((*plain)(x))
	if err != nil {
		return err
	}

	x.line = n.Line

	return nil
}

// ReadFile parses and builds the shader description in the named file.
func ReadFile(name string) (*ir.Shader, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, errors.Wrap(err, "read file")
	}

	s, err := Parse(data)
	if err != nil {
		return nil, errors.Wrap(err, "%v", name)
	}
	return s, nil
}

// Read parses and builds a shader description from r.
func Read(r io.Reader) (*ir.Shader, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "read")
	}
	return Parse(data)
}

// Parse parses and builds a shader description.
func Parse(data []byte) (*ir.Shader, error) {
	var f File

	err := yaml.Unmarshal(data, &f)
	if err != nil {
		return nil, errors.Wrap(err, "parse yaml")
	}
	return Build(&f)
}

// Build builds the shader f describes.
//
// Builder contract violations, such as a jump in the middle of a block, are
// reported as errors.
func Build(f *File) (s *ir.Shader, err error) {
	stage, ok := ir.ParseShaderStage(f.Stage)
	if !ok {
		return nil, errors.New("unknown shader stage: %q", f.Stage)
	}

	s = ir.NewShader(stage, f.Name)
	l := &loader{b: ir.NewBuilder(s)}

	defer func() {
		p := recover()
		if p == nil {
			return
		}

		if e, ok := p.(error); ok {
			s, err = nil, errors.Wrap(e, "build")
			return
		}

		panic(p)
	}()

	for _, v := range f.Variables {
		err = l.variable(v)
		if err != nil {
			return nil, errors.Wrap(err, "variable %v", v.Name)
		}
	}

	funcs := make([]*ir.Function, len(f.Functions))

	for i, fn := range f.Functions {
		funcs[i] = l.b.AddFunction(fn.Name, fn.Params, fn.Entrypoint)
	}

	for i, fn := range f.Functions {
		if fn.Body == nil {
			continue
		}

		err = l.function(funcs[i], fn)
		if err != nil {
			return nil, errors.Wrap(err, "function %v", fn.Name)
		}
	}
	return s, nil
}

func (l *loader) variable(v Variable) error {
	var mode ir.VariableMode

	for _, name := range strings.Split(v.Mode, "|") {
		m, ok := ir.ParseVariableMode(strings.TrimSpace(name))
		if !ok {
			return errors.New("unknown variable mode: %q", name)
		}

		mode |= m
	}

	l.b.AddVariable(ir.VariableInfo{
		Name:     v.Name,
		Mode:     mode,
		Location: v.Location,
		DescSet:  v.Set,
		Binding:  v.Binding,
	})

	return nil
}

func (l *loader) function(f *ir.Function, fn Function) (err error) {
	l.defs = map[string]*ir.Def{}
	l.blocks = map[string]*ir.Block{}
	l.phis = l.phis[:0]

	l.b.BeginImpl(f)

	err = l.items(fn.Body)
	if err != nil {
		return err
	}

	for _, p := range l.phis {
		for _, ps := range p.srcs {
			pred, ok := l.blocks[ps.Pred]
			if !ok {
				return errors.New("line %d: phi: unknown block %q", p.line, ps.Pred)
			}

			src, err := l.def(ps.Src)
			if err != nil {
				return errors.Wrap(err, "line %d: phi", p.line)
			}

			l.b.AddPhiSrc(p.phi, pred, src)
		}
	}

	l.b.EndImpl()

	return nil
}

func (l *loader) items(list []Item) (err error) {
	for _, it := range list {
		err = l.item(it)
		if err != nil {
			return err
		}
	}
	return nil
}

func (l *loader) item(it Item) (err error) {
	kinds := 0
	if it.Block != nil {
		kinds++
	}
	if it.If != nil {
		kinds++
	}
	if it.Loop != nil {
		kinds++
	}

	if kinds != 1 {
		return errors.New("line %d: item must be exactly one of block, if or loop", it.line)
	}

	switch {
	case it.Block != nil:
		if it.Label != "" {
			if _, ok := l.blocks[it.Label]; ok {
				return errors.New("line %d: duplicate block label %q", it.line, it.Label)
			}

			l.blocks[it.Label] = l.b.Block()
		}

		for _, x := range it.Block {
			err = l.instr(x)
			if err != nil {
				return errors.Wrap(err, "line %d", x.line)
			}
		}
	case it.If != nil:
		cond, err := l.def(it.If.Cond)
		if err != nil {
			return errors.Wrap(err, "line %d: if condition", it.line)
		}

		l.b.PushIf(cond)

		err = l.items(it.If.Then)
		if err != nil {
			return err
		}

		if it.If.Else != nil {
			l.b.PushElse()

			err = l.items(it.If.Else)
			if err != nil {
				return err
			}
		}

		l.b.PopIf()
	default:
		l.b.PushLoop()

		err = l.items(it.Loop)
		if err != nil {
			return err
		}

		l.b.PopLoop()
	}
	return nil
}

func (l *loader) instr(x Instr) (err error) {
	var d *ir.Def

	l.b.SetExact(x.Exact)
	defer l.b.SetExact(false)

	switch {
	case x.Alu != "":
		d, err = l.alu(x)
	case x.Intrinsic != "":
		d, err = l.intrinsic(x)
	case x.Const != nil:
		d, err = l.constant(x)
	case x.Undef:
		d = l.b.Undef(orDefault(x.NumComponents, 1), orDefault(x.BitSize, 32))
	case x.Jump != "":
		typ, ok := ir.ParseJumpType(x.Jump)
		if !ok {
			return errors.New("unknown jump: %q", x.Jump)
		}

		l.b.Jump(typ)
	case x.Tex != nil:
		d, err = l.tex(x)
	case x.Phi != nil:
		p := l.b.Phi(l.b.Block(), orDefault(x.NumComponents, 1), orDefault(x.BitSize, 32))
		l.phis = append(l.phis, pendingPhi{phi: p, srcs: x.Phi, line: x.line})
		d = p.Def()
	default:
		return errors.New("instruction has no operation")
	}
	if err != nil {
		return err
	}

	if x.Def == "" {
		return nil
	}

	if d == nil {
		return errors.New("instruction defines no value for %q", x.Def)
	}

	if _, ok := l.defs[x.Def]; ok {
		return errors.New("redefinition of %q", x.Def)
	}

	l.defs[x.Def] = d

	return nil
}

func (l *loader) alu(x Instr) (*ir.Def, error) {
	op, ok := ir.ParseOp(x.Alu)
	if !ok {
		return nil, errors.New("unknown alu op: %q", x.Alu)
	}

	if int(op.Info().NumInputs) != len(x.Srcs) {
		return nil, errors.New("%v takes %d sources, got %d", op, op.Info().NumInputs, len(x.Srcs))
	}

	srcs := make([]ir.AluSrcDesc, len(x.Srcs))

	for i, s := range x.Srcs {
		name, sw, _ := strings.Cut(s, ".")

		d, err := l.def(name)
		if err != nil {
			return nil, errors.Wrap(err, "src %d", i)
		}

		srcs[i].Def = d

		if sw == "" {
			continue
		}

		srcs[i].Swizzle, err = parseSwizzle(sw, d.NumComponents())
		if err != nil {
			return nil, errors.Wrap(err, "src %d", i)
		}
	}
	return l.b.AluSwizzled(op, srcs...), nil
}

func (l *loader) intrinsic(x Instr) (*ir.Def, error) {
	op, ok := ir.ParseIntrinsicOp(x.Intrinsic)
	if !ok {
		return nil, errors.New("unknown intrinsic: %q", x.Intrinsic)
	}

	info := op.Info()

	if int(info.NumSrcs) != len(x.Srcs) {
		return nil, errors.New("@%v takes %d sources, got %d", op, info.NumSrcs, len(x.Srcs))
	}

	desc := ir.IntrinsicDesc{
		Op:            op,
		NumComponents: x.NumComponents,
		BitSize:       x.BitSize,
		Srcs:          make([]*ir.Def, len(x.Srcs)),
	}

	for i, s := range x.Srcs {
		d, err := l.def(s)
		if err != nil {
			return nil, errors.Wrap(err, "src %d", i)
		}

		desc.Srcs[i] = d
	}

	if len(x.Indices) != 0 {
		desc.Indices = make(map[ir.IndexName]int32, len(x.Indices))
	}

	for k, v := range x.Indices {
		name, ok := ir.ParseIndexName(k)
		if !ok || !info.HasIndex(name) {
			return nil, errors.New("@%v has no index %q", op, k)
		}

		val, ok := name.ParseValue(v.Value)
		if !ok {
			return nil, errors.New("index %v: bad value %q", name, v.Value)
		}

		desc.Indices[name] = val
	}

	in := l.b.Intrinsic(desc)

	return in.Def(), nil
}

func (l *loader) tex(x Instr) (*ir.Def, error) {
	t := x.Tex

	op, ok := ir.ParseTexOp(t.Op)
	if !ok {
		return nil, errors.New("unknown tex op: %q", t.Op)
	}

	desc := ir.TexDesc{
		Op:            op,
		IsArray:       t.Array,
		IsShadow:      t.Shadow,
		TextureIndex:  t.Texture,
		SamplerIndex:  t.Sampler,
		Component:     t.Component,
		NumComponents: x.NumComponents,
		DestType:      ir.TypeFloat32,
		Srcs:          make([]ir.TexSrcDesc, len(t.Srcs)),
	}

	if t.Dim != "" {
		desc.SamplerDim, ok = ir.ParseSamplerDim(t.Dim)
		if !ok {
			return nil, errors.New("unknown sampler dim: %q", t.Dim)
		}
	}

	if t.DestType != "" {
		desc.DestType, ok = ir.ParseALUType(t.DestType)
		if !ok {
			return nil, errors.New("unknown dest type: %q", t.DestType)
		}
	}

	for i, s := range t.Srcs {
		typ, ok := ir.ParseTexSrcType(s.Type)
		if !ok {
			return nil, errors.New("unknown tex src type: %q", s.Type)
		}

		d, err := l.def(s.Src)
		if err != nil {
			return nil, errors.Wrap(err, "tex src %v", typ)
		}

		desc.Srcs[i] = ir.TexSrcDesc{Type: typ, Def: d}
	}
	return l.b.Tex(desc).Def(), nil
}

func (l *loader) constant(x Instr) (*ir.Def, error) {
	bits := orDefault(x.BitSize, 32)

	switch bits {
	case 8, 16, 32, 64:
	default:
		return nil, errors.New("unsupported constant bit size: %d", bits)
	}

	vals := make([]ir.ConstValue, len(x.Const))

	for i, n := range x.Const {
		v, err := parseConst(&n, bits)
		if err != nil {
			return nil, errors.Wrap(err, "value %d", i)
		}

		vals[i] = v
	}
	return l.b.LoadConst(bits, vals...), nil
}

func (l *loader) def(name string) (*ir.Def, error) {
	d, ok := l.defs[name]
	if !ok {
		return nil, errors.New("undefined value %q", name)
	}
	return d, nil
}

func parseConst(n *yaml.Node, bits uint8) (ir.ConstValue, error) {
	if n.Kind != yaml.ScalarNode {
		return 0, errors.New("constant must be a scalar")
	}

	switch n.Tag {
	case "!!bool":
		v, err := strconv.ParseBool(n.Value)
		if err != nil {
			return 0, errors.Wrap(err, "parse bool")
		}
		return ir.ConstBool(v, bits), nil
	case "!!float":
		if bits != 32 && bits != 64 {
			return 0, errors.New("float constant needs 32 or 64 bits, got %d", bits)
		}

		v, err := strconv.ParseFloat(n.Value, 64)
		if err != nil {
			return 0, errors.Wrap(err, "parse float")
		}
		return ir.ConstFloat(v, bits), nil
	case "!!int":
		if v, err := strconv.ParseInt(n.Value, 0, 64); err == nil {
			return ir.ConstInt(v, bits), nil
		}

		v, err := strconv.ParseUint(n.Value, 0, 64)
		if err != nil {
			return 0, errors.Wrap(err, "parse int")
		}
		return ir.ConstUint(v, bits), nil
	}
	return 0, errors.New("unsupported constant %q", n.Value)
}

// parseSwizzle accepts xyzw names for sources up to four components and
// a-p for wider ones.
func parseSwizzle(s string, comps uint8) ([]uint8, error) {
	names := "xyzw"
	if comps > 4 {
		names = "abcdefghijklmnop"
	}

	if len(s) > 16 {
		return nil, errors.New("swizzle too long: %q", s)
	}

	sw := make([]uint8, len(s))

	for i := range len(s) {
		c := strings.IndexByte(names, s[i])
		if c < 0 || c >= int(comps) {
			return nil, errors.New("bad swizzle %q for %d components", s, comps)
		}

		sw[i] = uint8(c)
	}
	return sw, nil
}

func orDefault(v, def uint8) uint8 {
	if v == 0 {
		return def
	}
	return v
}
