package arch_test

import (
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"testing"
)

const (
	modulePath  = "github.com/papapumpkin/magorder"
	internalPfx = modulePath + "/internal/"
)

var (
	repoRootOnce sync.Once
	repoRootPath string
)

// repoRoot returns the absolute path to the repository root by walking up
// from this test file's directory until go.mod is found.
func repoRoot(t *testing.T) string {
	t.Helper()
	repoRootOnce.Do(func() {
		_, thisFile, _, ok := runtime.Caller(0)
		if !ok {
			return
		}
		dir := filepath.Dir(thisFile)
		for {
			if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
				repoRootPath = dir
				return
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				return
			}
			dir = parent
		}
	})
	if repoRootPath == "" {
		t.Fatal("could not find go.mod in any parent directory")
	}
	return repoRootPath
}

func internalDirPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(repoRoot(t), "internal")
}

// internalPackages returns the Go package directories under internal/,
// excluding arch_test itself.
func internalPackages(t *testing.T) []string {
	t.Helper()

	dir := internalDirPath(t)
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("reading %s: %v", dir, err)
	}

	var pkgs []string
	for _, e := range entries {
		if !e.IsDir() || e.Name() == "arch_test" {
			continue
		}
		if len(goFilesIn(t, filepath.Join(dir, e.Name()))) > 0 {
			pkgs = append(pkgs, e.Name())
		}
	}
	sort.Strings(pkgs)
	return pkgs
}

// goFilesIn returns all non-test .go files in the given directory.
func goFilesIn(t *testing.T, dir string) []string {
	t.Helper()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("reading directory %s: %v", dir, err)
	}

	var files []string
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() && strings.HasSuffix(name, ".go") && !strings.HasSuffix(name, "_test.go") {
			files = append(files, filepath.Join(dir, name))
		}
	}
	sort.Strings(files)
	return files
}

// importPaths parses all non-test Go files in pkgDir and returns their
// deduplicated import paths, sorted.
func importPaths(t *testing.T, pkgDir string) []string {
	t.Helper()

	seen := make(map[string]bool)
	fset := token.NewFileSet()
	for _, f := range goFilesIn(t, pkgDir) {
		node, err := parser.ParseFile(fset, f, nil, parser.ImportsOnly)
		if err != nil {
			t.Fatalf("parsing imports in %s: %v", f, err)
		}
		for _, imp := range node.Imports {
			seen[strings.Trim(imp.Path.Value, `"`)] = true
		}
	}

	result := make([]string, 0, len(seen))
	for p := range seen {
		result = append(result, p)
	}
	sort.Strings(result)
	return result
}

// importsOf returns the internal packages imported by pkgDir by their
// directory name (e.g. "enumerate", "workflow").
func importsOf(t *testing.T, pkgDir string) []string {
	t.Helper()

	var result []string
	for _, path := range importPaths(t, pkgDir) {
		if !strings.HasPrefix(path, internalPfx) {
			continue
		}
		rel := strings.TrimPrefix(path, internalPfx)
		if idx := strings.Index(rel, "/"); idx != -1 {
			rel = rel[:idx]
		}
		result = append(result, rel)
	}
	return result
}

func TestInternalPackages(t *testing.T) {
	t.Parallel()

	pkgs := internalPackages(t)
	for _, want := range []string{"enumerate", "structure", "workflow"} {
		found := false
		for _, p := range pkgs {
			if p == want {
				found = true
			}
			if p == "arch_test" {
				t.Error("internalPackages should exclude arch_test")
			}
		}
		if !found {
			t.Errorf("internalPackages missing %q: %v", want, pkgs)
		}
	}
}

func TestImportsOf(t *testing.T) {
	t.Parallel()

	got := importsOf(t, filepath.Join(internalDirPath(t), "geometry"))
	if len(got) != 1 || got[0] != "structure" {
		t.Errorf("importsOf(geometry) = %v, want [structure]", got)
	}
}
