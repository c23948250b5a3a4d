package hcl

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/envo/internal/activate"
	"github.com/specialistvlad/envo/internal/config"
	"github.com/specialistvlad/envo/internal/env"
	"github.com/specialistvlad/envo/internal/testutil"
)

// resolve loads and evaluates the descriptors in dir against a fixed baseline.
func resolve(t *testing.T, dir string, stage env.Stage, baseline map[string]string) (*env.Node, error) {
	t.Helper()
	node, _, err := config.Resolve(context.Background(), NewLoader(), dir, stage, baseline)
	return node, err
}

func TestEvaluate_NestedGroupInTestStage(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	dir := testutil.WriteTree(t, testutil.Sandbox)

	// --- Act ---
	node, err := resolve(t, dir, env.StageTest, nil)

	// --- Assert ---
	require.NoError(t, err)
	require.NoError(t, env.Validate(node))

	python, ok := node.Sub("python")
	require.True(t, ok)
	version, ok := python.Value("version")
	require.True(t, ok)
	assert.Equal(t, "3.8.2", version)

	stage, _ := node.Value(env.VarStage)
	assert.Equal(t, "test", stage)
	root, _ := node.Value(env.VarRoot)
	assert.Equal(t, dir, root)
}

func TestEvaluate_RawVariables(t *testing.T) {
	t.Parallel()

	dir := testutil.WriteTree(t, testutil.Sandbox)

	node, err := resolve(t, dir, env.StageLocal, nil)
	require.NoError(t, err)

	notNested, _ := node.Value("not_nested")
	assert.Equal(t, "NOT_NESTED_TEST", notNested)
	group, ok := node.Sub("group")
	require.True(t, ok)
	nested, _ := group.Value("nested")
	assert.Equal(t, "NESTED_TEST", nested)

	decl, ok := node.Decl("not_nested")
	require.True(t, ok)
	assert.Equal(t, env.KindRaw, decl.Kind)
}

func TestEvaluate_UnsetVariableFailsValidation(t *testing.T) {
	t.Parallel()

	dir := testutil.WriteTree(t, testutil.Sandbox)

	node, err := resolve(t, dir, env.StageProd, nil)
	require.NoError(t, err)

	err = env.Validate(node)

	require.Error(t, err)
	assert.True(t, errors.Is(err, env.ErrUnset))
	assert.Contains(t, err.Error(), `"sandbox.test_var"`)
	assert.Contains(t, err.Error(), "unset")
}

func TestEvaluate_UndeclaredStageValue(t *testing.T) {
	t.Parallel()

	dir := testutil.WriteTree(t, map[string]string{
		"env_comm.hcl": `env "app" {
  variable "port" { type = number }
}`,
		"env_local.hcl": `values = {
  port  = 8080
  extra = "surprise"
}`,
	})

	node, err := resolve(t, dir, env.StageLocal, nil)
	require.NoError(t, err)

	err = env.Validate(node)

	require.Error(t, err)
	assert.True(t, errors.Is(err, env.ErrUndeclared))
	assert.Contains(t, err.Error(), `"app.extra"`)
}

func TestEvaluate_NonStrictAllowsUndeclared(t *testing.T) {
	t.Parallel()

	dir := testutil.WriteTree(t, map[string]string{
		"env_comm.hcl":  `env "app" { strict = false }`,
		"env_local.hcl": `values = { extra = "fine" }`,
	})

	node, err := resolve(t, dir, env.StageLocal, nil)
	require.NoError(t, err)

	assert.NoError(t, env.Validate(node))
}

func TestEvaluate_TypedValues(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	dir := testutil.WriteTree(t, map[string]string{
		"env_comm.hcl": `env "svc" {
  variable "port"    { type = number }
  variable "ratio"   { type = number }
  variable "debug"   { type = bool }
  variable "label"   { type = string }
  variable "data"    { type = path }
  variable "abs"     { type = path }
  variable "default" { value = "from common" }
}`,
		"env_local.hcl": `values = {
  port  = 8080
  ratio = "0.5"
  debug = true
  label = 42
  data  = "var/data"
  abs   = "/opt/abs"
}`,
	})

	// --- Act ---
	node, err := resolve(t, dir, env.StageLocal, nil)

	// --- Assert ---
	require.NoError(t, err)
	want := map[string]string{
		"port":    "8080",
		"ratio":   "0.5",
		"debug":   "true",
		"label":   "42",
		"data":    filepath.Join(dir, "var", "data"),
		"abs":     "/opt/abs",
		"default": "from common",
	}
	for name, value := range want {
		got, ok := node.Value(name)
		require.True(t, ok, name)
		assert.Equal(t, value, got, name)
	}
}

func TestEvaluate_StageOverridesCommonValue(t *testing.T) {
	t.Parallel()

	dir := testutil.WriteTree(t, map[string]string{
		"env_comm.hcl": `env "svc" {
  variable "host" { value = "localhost" }
}`,
		"env_prod.hcl": `values = { host = "db.internal" }`,
		"env_test.hcl": `values = {}`,
	})

	prod, err := resolve(t, dir, env.StageProd, nil)
	require.NoError(t, err)
	test, err := resolve(t, dir, env.StageTest, nil)
	require.NoError(t, err)

	host, _ := prod.Value("host")
	assert.Equal(t, "db.internal", host)
	host, _ = test.Value("host")
	assert.Equal(t, "localhost", host)
}

func TestEvaluate_TypeErrors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		values  string
		wantErr string
	}{
		{name: "string to number", values: `values = { port = "eighty" }`, wantErr: `variable "svc.port"`},
		{name: "object for scalar", values: `values = { port = { a = 1 } }`, wantErr: `variable "svc.port"`},
		{name: "scalar for group", values: `values = { port = 1, db = "x" }`, wantErr: `group "svc.db": expected an object`},
		{name: "values not an object", values: `values = "nope"`, wantErr: "must be an object"},
		{name: "reserved key", values: `values = { port = 1, root = "/x" }`, wantErr: "svc.root: name is reserved"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			dir := testutil.WriteTree(t, map[string]string{
				"env_comm.hcl": `env "svc" {
  variable "port" { type = number }
  group "db" {}
}`,
				"env_local.hcl": tc.values,
			})

			_, err := resolve(t, dir, env.StageLocal, nil)

			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestEvaluate_Functions(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	dir := testutil.WriteTree(t, map[string]string{
		"secrets.env": "TOKEN=abc123\nUSER=\"deploy\"\n",
		"env_comm.hcl": `env "fn" {
  variable "bin" {
    type  = path
    value = path(".venv", "bin")
  }
  variable "path" {
    raw   = true
    value = join(":", [path(".venv", "bin"), env.PATH])
  }
  variable "token" {
    value = dotenv("secrets.env").TOKEN
  }
  variable "who" {
    value = upper(lookup(dotenv("secrets.env"), "USER", "nobody"))
  }
  variable "tag" {
    value = format("%s-%s", name, stage)
  }
  variable "home" {
    value = lookup(env, "ENVO_TEST_MISSING", "fallback")
  }
}`,
		"env_local.hcl": ``,
	})
	baseline := map[string]string{"PATH": "/usr/bin"}

	// --- Act ---
	node, err := resolve(t, dir, env.StageLocal, baseline)

	// --- Assert ---
	require.NoError(t, err)
	venvBin := filepath.Join(dir, ".venv", "bin")
	want := map[string]string{
		"bin":   venvBin,
		"path":  venvBin + ":/usr/bin",
		"token": "abc123",
		"who":   "DEPLOY",
		"tag":   "fn-local",
		"home":  "fallback",
	}
	for name, value := range want {
		got, ok := node.Value(name)
		require.True(t, ok, name)
		assert.Equal(t, value, got, name)
	}
}

func TestEvaluate_DotenvMissingFile(t *testing.T) {
	t.Parallel()

	dir := testutil.WriteTree(t, map[string]string{
		"env_comm.hcl": `env "fn" {
  variable "token" { value = dotenv("absent.env").TOKEN }
}`,
		"env_local.hcl": ``,
	})

	_, err := resolve(t, dir, env.StageLocal, nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to evaluate fn.token")
}

// The full chain from files to flattened keys: naming, builtins, raw keys and
// the search path of a parent/child pair.
func TestEvaluate_ParentChainFlattens(t *testing.T) {
	// Not parallel: the activator snapshots the process environment.
	t.Setenv("PYTHONPATH", "/base/lib")

	// --- Arrange ---
	files := map[string]string{}
	for name, content := range testutil.Sandbox {
		files[name] = content
	}
	files["child/env_comm.hcl"] = `env "child" {
  parent = ".."
  variable "test_var" { value = "child wins" }
}`
	files["child/env_test.hcl"] = `values = {}`
	dir := testutil.WriteTree(t, files)
	childDir := filepath.Join(dir, "child")

	// --- Act ---
	node, files2, err := config.Resolve(context.Background(), NewLoader(), childDir, env.StageTest, activate.New().Baseline())
	require.NoError(t, err)
	flat, err := activate.New().Flatten(node)

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, "sandbox.child", node.FullName())
	assert.Len(t, files2, 4)

	assert.Equal(t, "test", flat["SANDBOX_STAGE"])
	assert.Equal(t, "3.8.2", flat["SANDBOXPYTHON_VERSION"])
	assert.Equal(t, "NOT_NESTED_TEST", flat["NOTNESTED"])
	assert.Equal(t, "NESTED_TEST", flat["NESTED"])
	assert.Equal(t, "test value", flat["SANDBOX_TESTVAR"])
	assert.Equal(t, "child wins", flat["CHILD_TESTVAR"])
	assert.Equal(t, childDir, flat["CHILD_ROOT"])
	assert.Equal(t, "test", flat["ENVO_STAGE"])
	assert.Equal(t, childDir+string(os.PathListSeparator)+dir+string(os.PathListSeparator)+"/base/lib", flat["PYTHONPATH"])
}
