package imports_test

import (
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const module = "github.com/leeforge/fresson"

// forbidden lists, per package directory, import prefixes it must not use.
var forbidden = map[string][]string{
	// The filter core stays free of transport, config and storage concerns.
	"media/processor": {
		"net/http",
		module + "/http",
		module + "/config",
		module + "/middleware",
		module + "/media/storage",
		module + "/cache",
		"github.com/go-redis",
		"github.com/spf13",
	},
	"media/storage": {"net/http", module + "/http", module + "/media/processor"},
	"errors":        {module + "/"},
	"logging":       {module + "/"},
}

var legacy = []string{
	"github.com/leeforge/framework",
	"github.com/JsonLee12138/leeforge",
}

func imports(t *testing.T, dir string) map[string][]string {
	t.Helper()
	found := map[string][]string{}
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	fset := token.NewFileSet()
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}
		f, err := parser.ParseFile(fset, filepath.Join(dir, name), nil, parser.ImportsOnly)
		require.NoError(t, err)
		for _, spec := range f.Imports {
			path, _ := strconv.Unquote(spec.Path.Value)
			found[path] = append(found[path], name)
		}
	}
	return found
}

func TestPackageLayering(t *testing.T) {
	root := filepath.Clean("../..")
	for pkg, prefixes := range forbidden {
		t.Run(pkg, func(t *testing.T) {
			for path, files := range imports(t, filepath.Join(root, filepath.FromSlash(pkg))) {
				for _, prefix := range prefixes {
					assert.False(t, strings.HasPrefix(path, prefix), "%s imports %s in %v", pkg, path, files)
				}
			}
		})
	}
}

func TestNoLegacyFrameworkImports(t *testing.T) {
	root := filepath.Clean("../..")
	var hits []string

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".") || name == "internaltests") {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ".go" {
			return nil
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		for _, k := range legacy {
			if strings.Contains(string(b), `"`+k) {
				hits = append(hits, path)
				break
			}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Empty(t, hits)
}
