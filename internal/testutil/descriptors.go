// Package testutil holds helpers shared by package tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// WriteTree creates a temporary directory holding files, keyed by their
// slash-separated path relative to the directory, and returns its absolute
// path with symlinks resolved.
func WriteTree(t *testing.T, files map[string]string) string {
	t.Helper()

	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)

	for name, content := range files {
		filePath := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(filePath), 0o755))
		require.NoError(t, os.WriteFile(filePath, []byte(content), 0o644))
	}
	return root
}

// Sandbox is the descriptor pair used across tests: a nested group, a raw
// variable at two levels, and a prod stage that leaves test_var unset.
var Sandbox = map[string]string{
	"env_comm.hcl": `
env "sandbox" {
  strip_raw_underscores = true

  variable "test_var" {
    type = string
  }
  variable "not_nested" {
    raw   = true
    value = "NOT_NESTED_TEST"
  }

  group "python" {
    variable "version" {
      type = string
    }
  }

  group "group" {
    variable "nested" {
      raw   = true
      value = "NESTED_TEST"
    }
  }
}
`,
	"env_local.hcl": `
values = {
  test_var = "local value"
  python = {
    version = "3.8.2"
  }
}
`,
	"env_test.hcl": `
stage = "test"
values = {
  test_var = "test value"
  python = {
    version = "3.8.2"
  }
}
`,
	"env_prod.hcl": `
values = {
  python = {
    version = "3.12.1"
  }
}
`,
}
