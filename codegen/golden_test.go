package codegen

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/chazu/brainfck/compiler"
)

// TestGoldenFiles compares backend output for a cat program against
// testdata. Run with UPDATE_GOLDEN=1 to rewrite the files.
func TestGoldenFiles(t *testing.T) {
	const cat = ",[.,]"
	for _, be := range []Backend{C{}, SSA{}} {
		t.Run(be.Name(), func(t *testing.T) {
			got := generate(t, be, cat, Options{EOF: compiler.EOFZero})
			path := filepath.Join("testdata", "cat."+be.Name()+".golden")
			updateGolden(t, path, got)
			compareGolden(t, path, got)
		})
	}
}

func updateGolden(t *testing.T, path, content string) {
	t.Helper()
	if os.Getenv("UPDATE_GOLDEN") == "" {
		return
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("creating testdata dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("updating golden file: %v", err)
	}
}

func compareGolden(t *testing.T, path, got string) {
	t.Helper()
	expected, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading golden file: %v", err)
	}
	if string(expected) != got {
		t.Errorf("output differs from golden file %s.\nRun with UPDATE_GOLDEN=1 to update.\n--- got ---\n%s", path, got)
	}
}
