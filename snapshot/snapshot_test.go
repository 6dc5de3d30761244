// Package snapshot_test provides golden snapshot tests for the text printer.
//
// For each YAML shader description in testdata/in/, the test loads and
// validates the shader, prints it with the default options and compares the
// output to testdata/golden/<name>.nir.
//
// To regenerate golden files after intentional changes:
//
//	UPDATE_GOLDEN=1 go test ./snapshot/...
package snapshot_test

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gogpu/nirview/ir"
	"github.com/gogpu/nirview/load"
	"github.com/gogpu/nirview/text"
)

// TestSnapshots loads every input and compares its text form with the golden file.
func TestSnapshots(t *testing.T) {
	names := inputShaders(t, "testdata/in")
	require.NotEmpty(t, names, "no input shaders found in testdata/in/")

	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			s, err := load.ReadFile(filepath.Join("testdata", "in", name+".yaml"))
			require.NoError(t, err)

			errs, err := ir.Validate(s)
			require.NoError(t, err)

			for _, e := range errs {
				t.Errorf("validation: %v", e)
			}

			out := text.AppendShader(nil, s, text.DefaultOptions())
			compareGolden(t, filepath.Join("testdata", "golden", name+".nir"), string(out))
		})
	}
}

// inputShaders lists the .yaml files in dir without their extension.
func inputShaders(t *testing.T, dir string) []string {
	t.Helper()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err, "read input directory %q", dir)

	var names []string

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}

		names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
	}

	slices.Sort(names)

	return names
}

// compareGolden compares actual against the golden file at path.
// If UPDATE_GOLDEN is set, writes actual output as the new golden file.
func compareGolden(t *testing.T, path, actual string) {
	t.Helper()

	if os.Getenv("UPDATE_GOLDEN") != "" {
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(actual), 0o644))
		t.Logf("updated golden file: %s", path)

		return
	}

	expected, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		t.Fatalf("golden file missing: %s\nRun with UPDATE_GOLDEN=1 to create.\n\nActual output:\n%s", path, truncate(actual, 500))
	}
	require.NoError(t, err, "read golden file %s", path)

	// Git may convert \n to \r\n on Windows checkout.
	want := strings.ReplaceAll(string(expected), "\r\n", "\n")

	if want != actual {
		t.Errorf("output differs from golden %s:\n%s", path, diffLines(want, actual))
	}
}

// diffLines shows the first differing line with some context.
func diffLines(expected, actual string) string {
	el := strings.Split(expected, "\n")
	al := strings.Split(actual, "\n")
	n := max(len(el), len(al))

	line := func(l []string, i int) string {
		if i < len(l) {
			return l[i]
		}

		return ""
	}

	first := -1

	for i := range n {
		if line(el, i) != line(al, i) {
			first = i
			break
		}
	}

	if first < 0 {
		return "(no difference found)"
	}

	const context = 3

	var sb strings.Builder

	fmt.Fprintf(&sb, "first difference at line %d (expected %d lines, got %d):\n", first+1, len(el), len(al))

	for i := max(0, first-context); i < min(n, first+context+1); i++ {
		e, a := line(el, i), line(al, i)

		if e == a {
			fmt.Fprintf(&sb, "  %4d   %s\n", i+1, truncate(e, 120))
			continue
		}

		fmt.Fprintf(&sb, "! %4d - %s\n", i+1, truncate(e, 120))
		fmt.Fprintf(&sb, "! %4d + %s\n", i+1, truncate(a, 120))
	}

	return sb.String()
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}

	return s[:maxLen-3] + "..."
}
