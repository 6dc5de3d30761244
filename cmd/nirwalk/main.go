// Command nirwalk loads YAML shader descriptions and walks them.
//
// Usage:
//
//	nirwalk [options] <command> <input>...
//
// Examples:
//
//	nirwalk print shader.yaml              # Dump the shader as text
//	nirwalk check shader.yaml              # Report every validation error
//	nirwalk stats shader.yaml              # Print instruction and block counts
//	nirwalk -c opts.yaml print shader.yaml # Use options from a file
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
	"nikand.dev/go/cli"
	tlerrors "tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/gogpu/nirview"
	"github.com/gogpu/nirview/text"
)

func main() {
	printCmd := &cli.Command{
		Name:        "print",
		Description: "print shaders in text form",
		Action:      printAct,
		Args:        cli.Args{},
		Flags: []*cli.Flag{
			cli.NewFlag("indices,i", false, "prefix instructions with their index"),
		},
	}

	checkCmd := &cli.Command{
		Name:        "check",
		Description: "validate shaders and report every error",
		Action:      checkAct,
		Args:        cli.Args{},
	}

	statsCmd := &cli.Command{
		Name:        "stats",
		Description: "print shader statistics as yaml",
		Action:      statsAct,
		Args:        cli.Args{},
	}

	app := &cli.Command{
		Name:        "nirwalk",
		Description: "nirwalk loads and inspects NIR-style shaders",
		Before:      before,
		Flags: []*cli.Flag{
			cli.NewFlag("config,c", "", "options file (yaml)"),
			cli.NewFlag("verbosity,v", "", "logger verbosity topics (dump_shader, validation)"),
			cli.HelpFlag,
		},
		Commands: []*cli.Command{
			printCmd,
			checkCmd,
			statsCmd,
		},
	}

	cli.RunAndExit(app, os.Args, os.Environ())
}

func before(c *cli.Command) error {
	tlog.DefaultLogger = tlog.New(tlog.NewConsoleWriter(os.Stderr, tlog.LstdFlags))

	if v := c.String("verbosity"); v != "" {
		tlog.SetVerbosity(v)
	}

	return nil
}

func options(c *cli.Command) (nirview.Options, error) {
	name := c.String("config")
	if name == "" {
		return nirview.DefaultOptions(), nil
	}

	return nirview.LoadOptions(name)
}

func rootContext() context.Context {
	return tlog.ContextWithSpan(context.Background(), tlog.Root())
}

func printAct(c *cli.Command) error {
	ctx := rootContext()

	opts, err := options(c)
	if err != nil {
		return err
	}

	if c.Bool("indices") {
		opts.Print.InstrIndices = true
	}

	for _, a := range c.Args {
		s, err := nirview.LoadFile(ctx, a, opts)
		if err != nil {
			return tlerrors.Wrap(err, "load %v", a)
		}

		err = text.Print(os.Stdout, s, opts.Print)
		if err != nil {
			return err
		}
	}

	return nil
}

func checkAct(c *cli.Command) error {
	ctx := rootContext()

	opts, err := options(c)
	if err != nil {
		return err
	}

	opts.Validate = false
	failed := 0

	for _, a := range c.Args {
		s, err := nirview.LoadFile(ctx, a, opts)
		if err != nil {
			return tlerrors.Wrap(err, "load %v", a)
		}

		err = nirview.Check(ctx, s)

		var verrs nirview.ValidationErrors
		if errors.As(err, &verrs) {
			failed++

			for _, e := range verrs {
				fmt.Printf("%s: %v\n", a, e)
			}

			continue
		}
		if err != nil {
			return tlerrors.Wrap(err, "check %v", a)
		}

		fmt.Printf("%s: ok\n", a)
	}

	if failed != 0 {
		return tlerrors.New("%d of %d shaders failed validation", failed, len(c.Args))
	}

	return nil
}

func statsAct(c *cli.Command) error {
	ctx := rootContext()

	opts, err := options(c)
	if err != nil {
		return err
	}

	out := make(map[string]nirview.Stats, len(c.Args))

	for _, a := range c.Args {
		s, err := nirview.LoadFile(ctx, a, opts)
		if err != nil {
			return tlerrors.Wrap(err, "load %v", a)
		}

		out[a] = nirview.Collect(s)
	}

	e := yaml.NewEncoder(os.Stdout)
	e.SetIndent(2)

	err = e.Encode(out)
	if err != nil {
		return tlerrors.Wrap(err, "encode stats")
	}

	return e.Close()
}
