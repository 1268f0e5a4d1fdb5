// Package architecture_test asserts the layering this codebase depends
// on holds: lower layers (leaf domain types, storage) must never import
// the runtime or transport layers built on top of them. Walks internal/,
// parses each file's imports, and fails on a disallowed import of a
// higher layer by a lower one.
package architecture_test

import (
	"bufio"
	"fmt"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

// layerRank orders this repo's internal packages from leaf to transport.
// A file's layer may only import packages at the same or a lower rank;
// everything else is a violation.
var layerRank = map[string]int{
	"internal/domain/workflow": 0,
	"internal/mapper":          0,
	"internal/manifest":        0,
	"internal/platform":        0,
	"internal/pkg":             0,

	"internal/store": 1,

	"internal/activity": 2,
	"internal/durable":  2,
	"internal/builtin":  2,
	"internal/engine":   2,
	"internal/router":   2,
	"internal/scout":    2,
	"internal/quorum":   2,

	"internal/client": 3,

	"internal/httpapi": 4,
	"internal/app":     4,
}

func TestImportBoundaries(t *testing.T) {
	t.Helper()

	root := findModuleRoot(t)
	modulePath := readModulePath(t, filepath.Join(root, "go.mod"))
	internalDir := filepath.Join(root, "internal")
	fset := token.NewFileSet()

	type violation struct {
		file string
		imp  string
	}
	var violations []violation

	walkErr := filepath.WalkDir(internalDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			switch d.Name() {
			case ".git", "vendor", "node_modules", ".gocache", "storetest", "manifeststore":
				return nil
			default:
				return nil
			}
		}
		if !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		rank, ok := rankFor(rel)
		if !ok {
			return nil
		}

		f, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
		if err != nil {
			return err
		}
		for _, spec := range f.Imports {
			if spec == nil || spec.Path == nil {
				continue
			}
			imp, err := strconv.Unquote(spec.Path.Value)
			if err != nil {
				continue
			}
			impRel := strings.TrimPrefix(imp, modulePath+"/")
			if impRel == imp {
				continue // third-party import, not ours to rank
			}
			impRank, ok := rankFor(impRel)
			if !ok {
				continue
			}
			if impRank > rank {
				violations = append(violations, violation{file: rel, imp: imp})
			}
		}
		return nil
	})
	if walkErr != nil {
		t.Fatalf("walk internal/: %v", walkErr)
	}

	if len(violations) > 0 {
		var b strings.Builder
		b.WriteString("import boundary violations (lower layer importing a higher one):\n")
		for _, v := range violations {
			fmt.Fprintf(&b, "- %s imports %q\n", v.file, v.imp)
		}
		t.Fatal(b.String())
	}
}

// TestPlatformStaysLeaf asserts internal/platform, the shared
// infrastructure shim (logging, env config, error wrapping, shutdown
// wiring), never imports anything domain-specific: a shared shim
// package must not climb back into the application it supports.
func TestPlatformStaysLeaf(t *testing.T) {
	t.Helper()

	root := findModuleRoot(t)
	modulePath := readModulePath(t, filepath.Join(root, "go.mod"))
	platformDir := filepath.Join(root, "internal", "platform")
	fset := token.NewFileSet()

	disallowed := []string{
		modulePath + "/internal/client",
		modulePath + "/internal/httpapi",
		modulePath + "/internal/app",
		modulePath + "/internal/engine",
		modulePath + "/internal/store",
		modulePath + "/internal/router",
		modulePath + "/internal/scout",
		modulePath + "/internal/quorum",
	}

	type violation struct {
		file string
		imp  string
	}
	var violations []violation

	walkErr := filepath.WalkDir(platformDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".go") {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		f, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
		if err != nil {
			return err
		}
		for _, spec := range f.Imports {
			if spec == nil || spec.Path == nil {
				continue
			}
			imp, err := strconv.Unquote(spec.Path.Value)
			if err != nil {
				continue
			}
			for _, bad := range disallowed {
				if strings.HasPrefix(imp, bad) {
					violations = append(violations, violation{file: rel, imp: imp})
					break
				}
			}
		}
		return nil
	})
	if walkErr != nil {
		t.Fatalf("walk internal/platform: %v", walkErr)
	}

	if len(violations) > 0 {
		var b strings.Builder
		b.WriteString("internal/platform imports climbing back into the application:\n")
		for _, v := range violations {
			fmt.Fprintf(&b, "- %s imports %q\n", v.file, v.imp)
		}
		t.Fatal(b.String())
	}
}

// rankFor maps a repo-relative file path to its layerRank entry by
// longest matching package prefix, so internal/domain/workflow/status.go
// resolves before the shorter internal/domain prefix would (which isn't
// registered at all, since only the workflow subpackage is ranked).
func rankFor(rel string) (int, bool) {
	best := -1
	bestLen := -1
	for prefix, rank := range layerRank {
		if rel == prefix || strings.HasPrefix(rel, prefix+"/") {
			if len(prefix) > bestLen {
				best = rank
				bestLen = len(prefix)
			}
		}
	}
	if bestLen < 0 {
		return 0, false
	}
	return best, true
}

func findModuleRoot(t *testing.T) string {
	t.Helper()
	start, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	dir := start
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatalf("go.mod not found from %s", start)
		}
		dir = parent
	}
}

func readModulePath(t *testing.T, goModPath string) string {
	t.Helper()
	f, err := os.Open(goModPath)
	if err != nil {
		t.Fatalf("open go.mod: %v", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		if !strings.HasPrefix(line, "module ") {
			continue
		}
		mp := strings.TrimSpace(strings.TrimPrefix(line, "module "))
		if mp == "" {
			t.Fatalf("empty module path in %s", goModPath)
		}
		return mp
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scan go.mod: %v", err)
	}
	t.Fatalf("module path not found in %s", goModPath)
	return ""
}
