// Package text renders shaders in an NIR-like textual form.
//
// The printer is built on the read-only traversal API only: it is both a
// debugging aid and an exhaustive consumer of the views.
package text

import (
	"io"
	"strconv"

	"github.com/nikandfor/hacked/hfmt"
	"tlog.app/go/errors"

	"github.com/gogpu/nirview/ir"
)

// Options controls what the printer emits.
type Options struct {
	// Successors adds a succs comment after every block.
	Successors bool `yaml:"successors"`
	// Predecessors adds a preds comment before every block.
	Predecessors bool `yaml:"predecessors"`
	// InstrIndices prefixes instructions with their index.
	InstrIndices bool `yaml:"instr_indices"`
}

// DefaultOptions returns the printer defaults.
func DefaultOptions() Options {
	return Options{
		Successors:   true,
		Predecessors: true,
	}
}

type printer struct {
	Options
}

// Print writes s to w.
func Print(w io.Writer, s *ir.Shader, opts Options) error {
	b := AppendShader(nil, s, opts)

	_, err := w.Write(b)
	if err != nil {
		return errors.Wrap(err, "write shader %v", s.Name())
	}
	return nil
}

// AppendShader appends the text form of s to b.
func AppendShader(b []byte, s *ir.Shader, opts Options) []byte {
	p := printer{Options: opts}

	b = hfmt.AppendPrintf(b, "shader: %v\n", s.Name())
	b = hfmt.AppendPrintf(b, "stage: %v\n", s.Stage())

	for v := range s.Variables() {
		b = p.appendVariable(b, v)
	}

	for f := range s.Functions() {
		b = hfmt.AppendPrintf(b, "decl_function %s (%d params)", f.Name(), f.NumParams())

		if f.IsEntrypoint() {
			b = append(b, " entrypoint"...)
		}

		b = append(b, '\n')
	}

	for f := range s.Functions() {
		if fi := f.Impl(); fi != nil {
			b = append(b, '\n')
			b = p.appendImpl(b, fi)
		}
	}
	return b
}

// AppendImpl appends a single function body.
func AppendImpl(b []byte, fi *ir.FunctionImpl, opts Options) []byte {
	p := printer{Options: opts}
	return p.appendImpl(b, fi)
}

// AppendInstr appends a single instruction without indentation or newline.
func AppendInstr(b []byte, i *ir.Instr) []byte {
	var p printer
	return p.appendInstr(b, i)
}

func (p *printer) appendVariable(b []byte, v *ir.Variable) []byte {
	b = hfmt.AppendPrintf(b, "decl_var %v %s", v.Mode(), v.Name())

	switch {
	case v.Mode()&(ir.ModeShaderIn|ir.ModeShaderOut) != 0:
		b = hfmt.AppendPrintf(b, " (location=%d)", v.Location())
	case v.Mode()&(ir.ModeUniform|ir.ModeUBO|ir.ModeSSBO|ir.ModeImage) != 0:
		b = hfmt.AppendPrintf(b, " (set=%d, binding=%d)", v.DescriptorSet(), v.Binding())
	}
	return append(b, '\n')
}

func (p *printer) appendImpl(b []byte, fi *ir.FunctionImpl) []byte {
	b = hfmt.AppendPrintf(b, "impl %s {\n", fi.Function().Name())

	for n := range fi.Body() {
		b = p.appendCFNode(b, n, 1)
	}

	b = p.appendBlock(b, fi.EndBlock(), 1)

	return append(b, "}\n"...)
}

func (p *printer) appendCFNode(b []byte, n *ir.CFNode, d int) []byte {
	if blk, ok := n.AsBlock(); ok {
		return p.appendBlock(b, blk, d)
	}

	if i, ok := n.AsIf(); ok {
		b = line(b, d, "if %s {\n", defName(i.Condition().Def()))

		for c := range i.ThenList() {
			b = p.appendCFNode(b, c, d+1)
		}

		b = line(b, d, "} else {\n")

		for c := range i.ElseList() {
			b = p.appendCFNode(b, c, d+1)
		}
		return line(b, d, "}\n")
	}

	if l, ok := n.AsLoop(); ok {
		b = line(b, d, "loop {\n")

		for c := range l.Body() {
			b = p.appendCFNode(b, c, d+1)
		}
		return line(b, d, "}\n")
	}
	return line(b, d, "/* unexpected %v node */\n", n.Type())
}

func (p *printer) appendBlock(b []byte, blk *ir.Block, d int) []byte {
	b = line(b, d, "block %s:", blockName(blk))

	if blk == blk.Impl().EndBlock() {
		b = append(b, " /* end */"...)
	}

	b = append(b, '\n')

	if p.Predecessors {
		b = line(b, d, "/* preds:")

		for pred := range blk.Predecessors() {
			b = hfmt.AppendPrintf(b, " %s", blockName(pred))
		}

		b = append(b, " */\n"...)
	}

	for i := range blk.Instrs() {
		b = line(b, d, "")

		if p.InstrIndices {
			b = hfmt.AppendPrintf(b, "[%d] ", i.Index())
		}

		b = p.appendInstr(b, i)
		b = append(b, '\n')
	}

	if p.Successors {
		b = line(b, d, "/* succs:")

		for _, s := range blk.Successors() {
			if s != nil {
				b = hfmt.AppendPrintf(b, " %s", blockName(s))
			}
		}

		b = append(b, " */\n"...)
	}
	return b
}

func (p *printer) appendInstr(b []byte, i *ir.Instr) []byte {
	if d := i.Def(); d != nil {
		if d.IsConst() {
			b = append(b, "con "...)
		}

		b = hfmt.AppendPrintf(b, "%dx%d %s = ", d.BitSize(), d.NumComponents(), defName(d))
	}

	switch i.Type() {
	case ir.InstrAlu:
		a, _ := i.AsAlu()
		return appendAlu(b, a)
	case ir.InstrIntrinsic:
		in, _ := i.AsIntrinsic()
		return appendIntrinsic(b, in)
	case ir.InstrTex:
		t, _ := i.AsTex()
		return appendTex(b, t)
	case ir.InstrLoadConst:
		c, _ := i.AsLoadConst()
		return appendLoadConst(b, c)
	case ir.InstrPhi:
		ph, _ := i.AsPhi()
		return appendPhi(b, ph)
	case ir.InstrJump:
		j, _ := i.AsJump()
		return appendJump(b, j)
	case ir.InstrUndef:
		return append(b, "undef"...)
	}
	return hfmt.AppendPrintf(b, "/* unexpected %v instruction */", i.Type())
}

func appendAlu(b []byte, a *ir.Alu) []byte {
	if a.Exact() {
		b = append(b, '!')
	}

	b = append(b, a.Info().Name...)

	for k, s := range a.Srcs() {
		if k == 0 {
			b = append(b, ' ')
		} else {
			b = append(b, ", "...)
		}

		b = append(b, defName(s.Src().Def())...)
		b = appendSwizzle(b, s, a.SrcComponents(k))
	}
	return b
}

const (
	vecComps  = "xyzw"
	wideComps = "abcdefghijklmnop"
)

// appendSwizzle prints the swizzle unless it reads the whole source in order.
func appendSwizzle(b []byte, s *ir.AluSrc, n uint8) []byte {
	src := s.Src().Def().NumComponents()
	sw := s.Swizzle()

	identity := n == src
	for c := range n {
		identity = identity && sw[c] == c
	}

	if identity {
		return b
	}

	names := vecComps
	if src > 4 {
		names = wideComps
	}

	b = append(b, '.')

	for c := range n {
		b = append(b, names[sw[c]])
	}
	return b
}

func appendIntrinsic(b []byte, in *ir.Intrinsic) []byte {
	info := in.Info()

	b = append(b, '@')
	b = append(b, info.Name...)
	b = append(b, " ("...)

	for k, s := range in.Srcs() {
		if k != 0 {
			b = append(b, ", "...)
		}

		b = append(b, defName(s.Def())...)
	}

	b = append(b, ')')

	if info.NumIndices == 0 {
		return b
	}

	b = append(b, " ("...)

	for k := range info.NumIndices {
		name := info.Indices[k]

		if k != 0 {
			b = append(b, ", "...)
		}

		b = hfmt.AppendPrintf(b, "%v=%s", name, name.FormatValue(int32(in.ConstIndex(name))))
	}
	return append(b, ')')
}

func appendTex(b []byte, t *ir.Tex) []byte {
	b = hfmt.AppendPrintf(b, "(%v) %v ", t.DestType(), t.Op())

	for k, s := range t.Srcs() {
		if k != 0 {
			b = append(b, ", "...)
		}

		b = hfmt.AppendPrintf(b, "%s (%v)", defName(s.Src().Def()), s.Type())
	}

	b = hfmt.AppendPrintf(b, ", %v", t.SamplerDim())

	if t.IsArray() {
		b = append(b, ", array"...)
	}

	if t.IsShadow() {
		b = append(b, ", shadow"...)
	}
	return hfmt.AppendPrintf(b, ", texture %d, sampler %d", t.TextureIndex(), t.SamplerIndex())
}

func appendLoadConst(b []byte, c *ir.LoadConst) []byte {
	digits := int(c.Def().BitSize()) / 4

	b = append(b, "load_const ("...)

	for k := range c.Values() {
		if k != 0 {
			b = append(b, ", "...)
		}

		b = appendHex(b, c.CompAsUint(uint8(k)), digits)
	}
	return append(b, ')')
}

func appendPhi(b []byte, p *ir.Phi) []byte {
	b = append(b, "phi"...)

	first := true

	for s := range p.Srcs() {
		if first {
			b = append(b, ' ')
		} else {
			b = append(b, ", "...)
		}

		first = false

		b = hfmt.AppendPrintf(b, "%s: %s", blockName(s.Pred()), defName(s.Src().Def()))
	}
	return b
}

func appendJump(b []byte, j *ir.Jump) []byte {
	b = append(b, j.Type().String()...)

	if c := j.Condition(); c != nil {
		b = hfmt.AppendPrintf(b, " %s", defName(c.Def()))
	}

	if t := j.Target(); t != nil {
		b = hfmt.AppendPrintf(b, " %s", blockName(t))
	}

	if t := j.ElseTarget(); t != nil {
		b = hfmt.AppendPrintf(b, " %s", blockName(t))
	}
	return b
}

func defName(d *ir.Def) string {
	return "%" + itoa(d.Index())
}

func blockName(blk *ir.Block) string {
	return "block_" + itoa(blk.Index())
}

func itoa(v uint32) string {
	return strconv.FormatUint(uint64(v), 10)
}

func appendHex(b []byte, v uint64, digits int) []byte {
	b = append(b, "0x"...)

	for w := 4 * (digits - 1); w >= 0; w -= 4 {
		b = append(b, "0123456789abcdef"[v>>w&0xf])
	}
	return b
}

func line(b []byte, d int, f string, args ...any) []byte {
	const tabs = "\t\t\t\t\t\t\t\t\t\t\t\t\t\t\t\t"

	for ; d > len(tabs); d -= len(tabs) {
		b = append(b, tabs...)
	}

	b = append(b, tabs[:d]...)

	return hfmt.AppendPrintf(b, f, args...)
}
