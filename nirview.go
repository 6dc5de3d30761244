// Package nirview provides a read-only traversal layer over an NIR-style
// shader IR.
//
// The ir package holds the data model and its views. This package ties the
// pieces into a pipeline: shaders are loaded from a YAML description,
// optionally validated, and summarised.
//
// Example usage:
//
//	s, err := nirview.LoadFile(ctx, "shader.yaml", nirview.DefaultOptions())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	st := nirview.Collect(s)
//	fmt.Println(st.Blocks, st.Instrs["alu"])
package nirview

import (
	"context"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/gogpu/nirview/ir"
	"github.com/gogpu/nirview/load"
	"github.com/gogpu/nirview/text"
)

// Options configures the pipeline.
type Options struct {
	// Validate runs ir.Validate after loading.
	Validate bool `yaml:"validate"`

	// Print configures text dumps.
	Print text.Options `yaml:"print"`
}

// ValidationErrors is returned by Check for a malformed shader.
type ValidationErrors []ir.ValidationError

// Stats summarises a shader.
type Stats struct {
	Functions int `yaml:"functions"`
	Impls     int `yaml:"impls"`

	Blocks      int `yaml:"blocks"`
	Ifs         int `yaml:"ifs"`
	Loops       int `yaml:"loops"`
	MaxDepth    int `yaml:"max_depth"`
	Unreachable int `yaml:"unreachable"`

	// Instrs counts instructions by kind name.
	Instrs map[string]int `yaml:"instrs"`

	Constants     int `yaml:"constants"`
	ZeroConstants int `yaml:"zero_constants"`
	Uses          int `yaml:"uses"`
}

// DefaultOptions returns sensible default options.
func DefaultOptions() Options {
	return Options{
		Validate: true,
		Print:    text.DefaultOptions(),
	}
}

// LoadOptions reads options from a YAML file over the defaults.
func LoadOptions(name string) (Options, error) {
	opts := DefaultOptions()

	data, err := os.ReadFile(name)
	if err != nil {
		return opts, errors.Wrap(err, "read options")
	}

	err = yaml.Unmarshal(data, &opts)
	if err != nil {
		return opts, errors.Wrap(err, "parse options %v", name)
	}
	return opts, nil
}

// LoadFile loads the shader description in the named file.
func LoadFile(ctx context.Context, name string, opts Options) (s *ir.Shader, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "load file", "name", name)
	defer tr.Finish("err", &err)

	data, err := os.ReadFile(name)
	if err != nil {
		return nil, errors.Wrap(err, "read file")
	}

	tr.Printw("read file", "size", len(data))

	s, err = Load(ctx, data, opts)
	if err != nil {
		return nil, errors.Wrap(err, "%v", name)
	}
	return s, nil
}

// Load builds a shader from its YAML description.
func Load(ctx context.Context, data []byte, opts Options) (s *ir.Shader, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "load")
	defer tr.Finish("err", &err)

	s, err = load.Parse(data)
	if err != nil {
		return nil, err
	}

	if tr.If("dump_shader") {
		tr.Printw("shader", "name", s.Name(), "stage", s.Stage(), "text", text.AppendShader(nil, s, opts.Print))
	}

	if !opts.Validate {
		return s, nil
	}

	err = Check(ctx, s)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Check validates s. Findings are returned as ValidationErrors.
func Check(ctx context.Context, s *ir.Shader) (err error) {
	tr := tlog.SpanFromContext(ctx)

	errs, err := ir.Validate(s)
	if err != nil {
		return errors.Wrap(err, "validate")
	}

	if len(errs) == 0 {
		return nil
	}

	if tr.If("validation") {
		for _, e := range errs {
			tr.Printw("validation error", "function", e.Function, "block", e.Block, "instr", e.Instr, "msg", e.Message)
		}
	}
	return ValidationErrors(errs)
}

// Collect walks s and summarises it.
func Collect(s *ir.Shader) Stats {
	st := Stats{
		Instrs: map[string]int{},
	}

	for f := range s.Functions() {
		st.Functions++

		fi := f.Impl()
		if fi == nil {
			continue
		}

		st.Impls++
		st.Unreachable += int(fi.NumBlocks()) - len(ir.ReachableBlocks(fi))

		for n := range fi.Body() {
			st.collectCF(n, 1)
		}

		st.collectBlock(fi.EndBlock())
	}
	return st
}

func (st *Stats) collectCF(n *ir.CFNode, depth int) {
	st.MaxDepth = max(st.MaxDepth, depth)

	if blk, ok := n.AsBlock(); ok {
		st.collectBlock(blk)
		return
	}

	if i, ok := n.AsIf(); ok {
		st.Ifs++

		for c := range i.ThenList() {
			st.collectCF(c, depth+1)
		}

		for c := range i.ElseList() {
			st.collectCF(c, depth+1)
		}
		return
	}

	if l, ok := n.AsLoop(); ok {
		st.Loops++

		for c := range l.Body() {
			st.collectCF(c, depth+1)
		}
	}
}

func (st *Stats) collectBlock(blk *ir.Block) {
	st.Blocks++

	for i := range blk.Instrs() {
		st.Instrs[i.Type().String()]++

		d := i.Def()
		if d == nil {
			continue
		}

		for range d.Uses() {
			st.Uses++
		}

		if !d.IsConst() {
			continue
		}

		st.Constants++

		if d.IsZero() {
			st.ZeroConstants++
		}
	}
}

func (e ValidationErrors) Error() string {
	var b strings.Builder

	b.WriteString("validation failed: ")
	b.WriteString(e[0].Error())

	if len(e) > 1 {
		b.WriteString(" (and ")
		b.WriteString(strconv.Itoa(len(e) - 1))
		b.WriteString(" more)")
	}
	return b.String()
}
