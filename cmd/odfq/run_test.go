package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSource(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "formulas.dfl")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func TestRunEvalSucceedsWithNoExitCode(t *testing.T) {
	path := writeSource(t, `
attacktree { toplevel a; a prob=0.3; }
faulttree { toplevel f; f prob=0.1; }
objectgraph {}
formulas { a[a:1]; }
`)
	err := runEval(rootCmd, []string{path})
	assert.NoError(t, err)
}

func TestRunEvalReturnsExitCodeOneOnParseError(t *testing.T) {
	path := writeSource(t, `this is not valid dfl {{{`)
	err := runEval(rootCmd, []string{path})
	require.Error(t, err)
	code, ok := exitCodeOf(err)
	require.True(t, ok)
	assert.Equal(t, 1, code)
}

func TestRunEvalReturnsExitCodeOneOnMissingFile(t *testing.T) {
	err := runEval(rootCmd, []string{filepath.Join(t.TempDir(), "missing.dfl")})
	require.Error(t, err)
	code, ok := exitCodeOf(err)
	require.True(t, ok)
	assert.Equal(t, 1, code)
}

func TestRunEvalReturnsExitCodeThreeOnFailingQuery(t *testing.T) {
	path := writeSource(t, `
attacktree { toplevel root; root or a b; a prob=0.3; b prob=0.2; }
faulttree { toplevel f; f prob=0.1; }
objectgraph {}
formulas { a || b; }
`)
	err := runEval(rootCmd, []string{path})
	require.Error(t, err)
	code, ok := exitCodeOf(err)
	require.True(t, ok)
	assert.Equal(t, 3, code)
}
