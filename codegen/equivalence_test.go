package codegen

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/chazu/brainfck/compiler"
	"github.com/chazu/brainfck/internal/conformance"
	"github.com/chazu/brainfck/vm"
)

// buildFunc turns generated source in dir into an executable path.
type buildFunc func(t *testing.T, dir, src string) string

func lookTools(t *testing.T, tools ...string) {
	t.Helper()
	for _, tool := range tools {
		if _, err := exec.LookPath(tool); err != nil {
			t.Skipf("%s not found on PATH", tool)
		}
	}
}

func run(t *testing.T, dir, name string, args ...string) {
	t.Helper()
	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("%s %s: %v\n%s", name, strings.Join(args, " "), err, out)
	}
}

func buildC(t *testing.T, dir, src string) string {
	if err := os.WriteFile(filepath.Join(dir, "prog.c"), []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	run(t, dir, "cc", "-O1", "-o", "prog", "prog.c")
	return filepath.Join(dir, "prog")
}

func buildSSA(t *testing.T, dir, src string) string {
	if err := os.WriteFile(filepath.Join(dir, "prog.ssa"), []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	run(t, dir, "qbe", "-o", "prog.s", "prog.ssa")
	run(t, dir, "cc", "-o", "prog", "prog.s")
	return filepath.Join(dir, "prog")
}

func buildGo(t *testing.T, dir, src string) string {
	if err := os.WriteFile(filepath.Join(dir, "main.go"), []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	run(t, dir, "go", "build", "-o", "prog", "main.go")
	return filepath.Join(dir, "prog")
}

// TestBackendEquivalence compiles every fault-free fixture with each backend
// and checks the binary prints exactly what the interpreter prints.
func TestBackendEquivalence(t *testing.T) {
	if testing.Short() {
		t.Skip("builds native binaries")
	}
	cases, err := conformance.LoadDefault()
	if err != nil {
		t.Fatalf("load fixtures: %v", err)
	}

	backends := []struct {
		backend Backend
		tools   []string
		build   buildFunc
	}{
		{C{}, []string{"cc"}, buildC},
		{SSA{}, []string{"qbe", "cc"}, buildSSA},
		{Go{}, []string{"go"}, buildGo},
	}

	for _, be := range backends {
		t.Run(be.backend.Name(), func(t *testing.T) {
			lookTools(t, be.tools...)
			for _, tc := range cases {
				if tc.Fault != "" {
					continue
				}
				t.Run(tc.Name, func(t *testing.T) {
					prog, err := compiler.Tokenize(tc.Source)
					if err != nil {
						t.Fatalf("Tokenize: %v", err)
					}
					policy, _ := tc.Policy()

					var want bytes.Buffer
					if err := vm.Run(prog, strings.NewReader(tc.Input), &want, policy); err != nil {
						t.Fatalf("interpreter: %v", err)
					}

					var src bytes.Buffer
					if err := be.backend.Generate(&src, prog, Options{EOF: policy}); err != nil {
						t.Fatalf("Generate: %v", err)
					}
					bin := be.build(t, t.TempDir(), src.String())

					ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
					defer cancel()
					cmd := exec.CommandContext(ctx, bin)
					cmd.Stdin = strings.NewReader(tc.Input)
					got, err := cmd.Output()
					if err != nil {
						t.Fatalf("run %s: %v", bin, err)
					}
					if !bytes.Equal(got, want.Bytes()) {
						t.Errorf("output = %q, interpreter = %q", got, want.Bytes())
					}
				})
			}
		})
	}
}
