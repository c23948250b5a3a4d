package activate

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/envo/internal/env"
)

// newActivator captures the current environment and restores it when the test ends.
func newActivator(t *testing.T) *Activator {
	t.Helper()
	a := New()
	t.Cleanup(func() { require.NoError(t, a.Restore()) })
	return a
}

func sandbox(root string, opts env.Options) *env.Node {
	return env.NewNode("sandbox", env.Meta{Stage: env.StageTest, Root: root, Options: opts})
}

func TestActivate_NestedGroupNaming(t *testing.T) {
	// --- Arrange ---
	a := newActivator(t)
	root := t.TempDir()
	n := sandbox(root, env.DefaultOptions())
	python := env.NewGroup("python", env.Decl{Name: "version"})
	python.Assign("version", "3.8.2")
	n.Declare(env.Decl{Name: "python", Kind: env.KindGroup})
	n.AssignGroup("python", python)

	// --- Act ---
	flat, err := a.Activate(context.Background(), n)

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, "test", os.Getenv("SANDBOX_STAGE"))
	assert.Equal(t, "3.8.2", os.Getenv("SANDBOXPYTHON_VERSION"))
	assert.Equal(t, "test", os.Getenv("ENVO_STAGE"))
	assert.Equal(t, root, os.Getenv("SANDBOX_ROOT"))
	assert.Equal(t, "3.8.2", flat["SANDBOXPYTHON_VERSION"])
}

func rawTree(root string, opts env.Options) *env.Node {
	n := sandbox(root, opts)
	n.Declare(env.Decl{Name: "not_nested", Kind: env.KindRaw})
	n.Assign("not_nested", "NOT_NESTED_TEST")

	inner := env.NewGroup("inner", env.Decl{Name: "deep", Kind: env.KindRaw})
	inner.Assign("deep", "DEEP_TEST")
	group := env.NewGroup("group",
		env.Decl{Name: "nested", Kind: env.KindRaw},
		env.Decl{Name: "inner", Kind: env.KindGroup},
	)
	group.Assign("nested", "NESTED_TEST")
	group.AssignGroup("inner", inner)

	n.Declare(env.Decl{Name: "group", Kind: env.KindGroup})
	n.AssignGroup("group", group)
	return n
}

func TestActivate_RawVariablesBypassNamespaces(t *testing.T) {
	testCases := []struct {
		name  string
		strip bool
		want  map[string]string
	}{
		{
			name: "underscores preserved",
			want: map[string]string{"NOT_NESTED": "NOT_NESTED_TEST", "NESTED": "NESTED_TEST", "DEEP": "DEEP_TEST"},
		},
		{
			name:  "underscores stripped",
			strip: true,
			want:  map[string]string{"NOTNESTED": "NOT_NESTED_TEST", "NESTED": "NESTED_TEST", "DEEP": "DEEP_TEST"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			a := newActivator(t)
			opts := env.DefaultOptions()
			opts.StripRawUnderscores = tc.strip

			flat, err := a.Activate(context.Background(), rawTree(t.TempDir(), opts))
			require.NoError(t, err)

			for k, v := range tc.want {
				assert.Equal(t, v, os.Getenv(k), "key %s", k)
			}
			for k, v := range flat {
				if strings.HasSuffix(v, "_TEST") {
					assert.False(t, strings.HasPrefix(k, "SANDBOX"), "raw key %s carries a namespace", k)
				}
			}
		})
	}
}

func TestFlatten_ChildWinsOverParentAndChainsSearchPath(t *testing.T) {
	// --- Arrange ---
	t.Setenv("PYTHONPATH", "/base/lib")
	a := newActivator(t)

	parent := env.NewNode("pa", env.Meta{Stage: env.StageTest, Root: "/work/pa", Options: env.DefaultOptions()})
	parent.Declare(env.Decl{Name: "shared", Kind: env.KindRaw})
	parent.Assign("shared", "from-parent")
	parent.Declare(env.Decl{Name: "only_parent", Kind: env.KindRaw})
	parent.Assign("only_parent", "p")

	child := env.NewNode("ch", env.Meta{Stage: env.StageTest, Root: "/work/pa/ch", Parent: parent, Options: env.DefaultOptions()})
	child.Declare(env.Decl{Name: "shared", Kind: env.KindRaw})
	child.Assign("shared", "from-child")

	// --- Act ---
	flat, err := a.Activate(context.Background(), child)

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, "from-child", flat["SHARED"])
	assert.Equal(t, "from-child", os.Getenv("SHARED"))
	assert.Equal(t, "p", os.Getenv("ONLY_PARENT"))
	assert.Equal(t, "test", os.Getenv("PA_STAGE"))
	assert.Equal(t, "test", os.Getenv("CH_STAGE"))
	assert.Equal(t, "/work/pa/ch:/work/pa:/base/lib", os.Getenv("PYTHONPATH"))
}

func TestActivate_NoStaleKeysAfterReactivation(t *testing.T) {
	// --- Arrange ---
	a := newActivator(t)
	root := t.TempDir()

	first := sandbox(root, env.DefaultOptions())
	first.Declare(env.Decl{Name: "old_var"})
	first.Assign("old_var", "1")

	second := env.NewNode("new", env.Meta{Stage: env.StageTest, Root: root, Options: env.DefaultOptions()})

	// --- Act ---
	_, err := a.Activate(context.Background(), first)
	require.NoError(t, err)
	require.Equal(t, "1", os.Getenv("SANDBOX_OLDVAR"))

	_, err = a.Activate(context.Background(), second)
	require.NoError(t, err)

	// --- Assert ---
	_, stale := os.LookupEnv("SANDBOX_OLDVAR")
	assert.False(t, stale, "SANDBOX_OLDVAR survived reactivation")
	_, stale = os.LookupEnv("SANDBOX_STAGE")
	assert.False(t, stale, "SANDBOX_STAGE survived reactivation")
	assert.Equal(t, "test", os.Getenv("NEW_STAGE"))
}

func TestActivate_Idempotent(t *testing.T) {
	a := newActivator(t)
	n := rawTree(t.TempDir(), env.DefaultOptions())

	first, err := a.Activate(context.Background(), n)
	require.NoError(t, err)
	envAfterFirst := Environ()

	second, err := a.Activate(context.Background(), n)
	require.NoError(t, err)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("flat map changed between activations (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(envAfterFirst, Environ()); diff != "" {
		t.Errorf("process environment changed between activations (-first +second):\n%s", diff)
	}
}

func TestActivate_ValidationFailureLeavesEnvironmentUntouched(t *testing.T) {
	a := newActivator(t)
	good := sandbox(t.TempDir(), env.DefaultOptions())
	_, err := a.Activate(context.Background(), good)
	require.NoError(t, err)
	before := Environ()

	bad := sandbox(t.TempDir(), env.DefaultOptions())
	bad.Declare(env.Decl{Name: "test_var"})
	_, err = a.Activate(context.Background(), bad)

	require.Error(t, err)
	assert.True(t, errors.Is(err, env.ErrUnset))
	assert.Contains(t, err.Error(), "sandbox.test_var")
	if diff := cmp.Diff(before, Environ()); diff != "" {
		t.Errorf("environment changed after failed activation (-before +after):\n%s", diff)
	}
}

func TestActivate_CommStageIsRejected(t *testing.T) {
	a := newActivator(t)
	n := env.NewNode("sandbox", env.Meta{Stage: env.StageComm, Root: t.TempDir(), Options: env.DefaultOptions()})

	_, err := a.Activate(context.Background(), n)

	require.Error(t, err)
	assert.True(t, errors.Is(err, env.ErrAbstractStage))
}

func TestActivate_CommParentIsRejected(t *testing.T) {
	a := newActivator(t)
	parent := env.NewNode("pa", env.Meta{Stage: env.StageComm, Root: "/p", Options: env.DefaultOptions()})
	child := env.NewNode("ch", env.Meta{Stage: env.StageTest, Root: "/p/c", Parent: parent, Options: env.DefaultOptions()})

	_, err := a.Flatten(child)

	assert.ErrorIs(t, err, env.ErrAbstractStage)
}

func TestFlatten_KeyCollisionWithinNodeIsAnError(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		build   func(n *env.Node)
		wantErr string
	}{
		{
			name: "raw variables in sibling groups",
			build: func(n *env.Node) {
				for _, name := range []string{"a", "b"} {
					g := env.NewGroup(name, env.Decl{Name: "path", Kind: env.KindRaw})
					g.Assign("path", "/"+name)
					n.Declare(env.Decl{Name: name, Kind: env.KindGroup})
					n.AssignGroup(name, g)
				}
			},
			wantErr: `"sandbox.a.path" and "sandbox.b.path" both export PATH`,
		},
		{
			name: "nested namespaces concatenate to the same prefix",
			build: func(n *env.Node) {
				ab := env.NewGroup("ab", env.Decl{Name: "c", Kind: env.KindScalar})
				ab.Assign("c", "1")
				b := env.NewGroup("b", env.Decl{Name: "c", Kind: env.KindScalar})
				b.Assign("c", "2")
				a := env.NewGroup("a", env.Decl{Name: "b", Kind: env.KindGroup})
				a.AssignGroup("b", b)

				n.Declare(env.Decl{Name: "ab", Kind: env.KindGroup})
				n.AssignGroup("ab", ab)
				n.Declare(env.Decl{Name: "a", Kind: env.KindGroup})
				n.AssignGroup("a", a)
			},
			wantErr: `"sandbox.ab.c" and "sandbox.a.b.c" both export SANDBOXAB_C`,
		},
		{
			name: "raw variable shadows a builtin key",
			build: func(n *env.Node) {
				n.Declare(env.Decl{Name: "sandbox_stage", Kind: env.KindRaw})
				n.Assign("sandbox_stage", "other")
			},
			wantErr: `"sandbox.stage" and "sandbox.sandbox_stage" both export SANDBOX_STAGE`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			// --- Arrange ---
			n := sandbox("/w", env.DefaultOptions())
			tc.build(n)

			// --- Act ---
			flat, err := (&Activator{}).Flatten(n)

			// --- Assert ---
			require.Error(t, err)
			assert.Nil(t, flat)
			assert.ErrorIs(t, err, ErrKeyCollision)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestQuote_EscapesShellSpecialCharacters(t *testing.T) {
	t.Parallel()

	assert.Equal(t, `"plain"`, Quote("plain"))
	assert.Equal(t, `"say \"hi\""`, Quote(`say "hi"`))
	assert.Equal(t, `"\$HOME \`+"`"+`pwd\`+"`"+` C:\\dir\\"`, Quote(`$HOME `+"`"+`pwd`+"`"+` C:\dir\`))
}

func TestRender_ExportPrefixQuotingAndBashFunctions(t *testing.T) {
	a := newActivator(t)
	t.Setenv("ENVO_RENDER_TEST", `say "hi" to $USER`)
	t.Setenv("BASH_FUNC_envo%%", "() {  echo; }")

	lines := a.Render(true)

	assert.Contains(t, lines, `export ENVO_RENDER_TEST="say \"hi\" to \$USER"`)
	for _, l := range lines {
		assert.NotContains(t, l, "BASH_FUNC_")
		assert.True(t, strings.HasPrefix(l, "export "))
	}
	plain := a.Render(false)
	assert.Contains(t, plain, `ENVO_RENDER_TEST="say \"hi\" to \$USER"`)
}

func TestDumpDotEnv_RoundTrip(t *testing.T) {
	// --- Arrange ---
	saved := Environ()
	t.Cleanup(func() {
		os.Clearenv()
		for k, v := range saved {
			os.Setenv(k, v)
		}
	})
	os.Clearenv()
	os.Setenv("PATH", "/usr/bin:/bin")
	os.Setenv("QUOTED", `a "b" $c \d`)
	os.Setenv("MULTI_WORD", "hello world")

	a := New()
	dir := t.TempDir()
	n := rawTree(dir, env.DefaultOptions())

	// --- Act ---
	path, err := a.DumpDotEnv(context.Background(), n, dir)
	require.NoError(t, err)

	// --- Assert ---
	assert.Equal(t, filepath.Join(dir, ".env_test"), path)
	parsed, err := godotenv.Read(path)
	require.NoError(t, err)
	if diff := cmp.Diff(Environ(), parsed); diff != "" {
		t.Errorf("dotenv round-trip mismatch (-active +parsed):\n%s", diff)
	}
}

func TestDotEnvName(t *testing.T) {
	assert.Equal(t, ".env_local", DotEnvName(env.StageLocal))
	assert.Equal(t, ".env", DotEnvName(""))
}

func TestPrependPaths(t *testing.T) {
	assert.Equal(t, "/a:/b:/c", prependPaths([]string{"/a", "/b"}, "/b:/c:"))
	assert.Equal(t, "/a", prependPaths([]string{"/a", ""}, ""))
}
