package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tekshila/internal/model"
)

// testEnv writes an offline config into a temp dir and returns its path.
func testEnv(t *testing.T) (dir, cfgPath string) {
	t.Helper()
	dir = t.TempDir()
	cfg := strings.Join([]string{
		"forge:",
		"  kind: offline",
		"credentials:",
		"  path: " + filepath.Join(dir, "credentials.yaml"),
		"log:",
		"  file: " + filepath.Join(dir, "tekshila.log"),
		"",
	}, "\n")
	cfgPath = filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o600))
	return dir, cfgPath
}

func run(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := NewRootCmd()
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(""))
	err = root.Execute()
	return out.String(), errOut.String(), err
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestRootCommandsRegistered(t *testing.T) {
	root := NewRootCmd()
	want := []string{"generate", "analyze", "connect", "disconnect", "repos", "branches", "submit", "mcp", "version"}
	for _, name := range want {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}
}

func TestVersion(t *testing.T) {
	SetVersionInfo("1.2.3", "abc123", "2026-01-01")
	t.Cleanup(func() { SetVersionInfo("dev", "none", "unknown") })

	out, _, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "tekshila 1.2.3")
	assert.Contains(t, out, "commit: abc123")
}

func TestPurposeValue(t *testing.T) {
	var p purposeValue
	assert.Equal(t, "purpose", p.Type())
	assert.Equal(t, model.PurposeReadme.String(), p.String())

	require.NoError(t, p.Set("comments"))
	assert.Equal(t, model.PurposeCommentedCode, model.Purpose(p))
	assert.Error(t, p.Set("poem"))
	assert.Equal(t, model.PurposeCommentedCode, model.Purpose(p))
}

func TestGenerate_Readme(t *testing.T) {
	dir, cfg := testEnv(t)
	src := writeFile(t, dir, "main.go", "package main\n\nfunc main() {}\n")

	out, stderr, err := run(t, "generate", "--config", cfg, "-C", dir, "--project", "Demo", src)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "# Demo"), out)
	assert.Contains(t, stderr, "Generating documentation...")
}

func TestGenerate_MissingProjectName(t *testing.T) {
	dir, cfg := testEnv(t)
	src := writeFile(t, dir, "main.go", "package main\n")

	_, _, err := run(t, "generate", "--config", cfg, "-C", dir, src)
	require.Error(t, err)
	assert.Equal(t, "missing project name", err.Error())
}

func TestGenerate_CommentsToDir(t *testing.T) {
	dir, cfg := testEnv(t)
	a := writeFile(t, dir, "a.py", "def f():\n    return 1\n")
	b := writeFile(t, dir, "b.py", "def g():\n    return 2\n")
	outDir := filepath.Join(dir, "out")

	out, _, err := run(t, "generate", "--config", cfg, "-C", dir, "-p", "comments", "--out", outDir, a, b)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote")

	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestGenerate_SkipsUnsupported(t *testing.T) {
	dir, cfg := testEnv(t)
	src := writeFile(t, dir, "main.go", "package main\n")
	img := writeFile(t, dir, "logo.png", "x")

	_, stderr, err := run(t, "generate", "--config", cfg, "-C", dir, "--project", "Demo", src, img)
	require.NoError(t, err)
	assert.Contains(t, stderr, "skipped")
	assert.Contains(t, stderr, "logo.png")
}

func TestAnalyze_JSON(t *testing.T) {
	dir, cfg := testEnv(t)
	src := writeFile(t, dir, "util.js", "function f() {\n  // TODO: handle errors\n  return 1;\n}\n")

	out, _, err := run(t, "analyze", "--config", cfg, "-C", dir, "--json", src)
	require.NoError(t, err)

	var r model.QualityReport
	require.NoError(t, json.Unmarshal([]byte(out), &r))
	assert.Equal(t, "util.js", r.File)
	assert.NotEmpty(t, r.Summary)
	assert.NotEmpty(t, r.Issues)
}

func TestAnalyze_Text(t *testing.T) {
	dir, cfg := testEnv(t)
	src := writeFile(t, dir, "util.js", "function f() {\n  // TODO: handle errors\n  return 1;\n}\n")

	out, _, err := run(t, "analyze", "--config", cfg, "-C", dir, src)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "util.js\n"), out)
	assert.Contains(t, out, "Issues (")
}

func TestConnectReposDisconnect(t *testing.T) {
	dir, cfg := testEnv(t)

	out, _, err := run(t, "connect", "--config", cfg, "-C", dir, "--token", "abc")
	require.NoError(t, err)
	assert.Equal(t, "Welcome, Demo User!\n", out)

	out, _, err = run(t, "repos", "--config", cfg, "-C", dir)
	require.NoError(t, err)
	assert.Equal(t, "user/repo1\nuser/repo2\nuser/awesome-project\n", out)

	out, _, err = run(t, "branches", "--config", cfg, "-C", dir, "user/repo2")
	require.NoError(t, err)
	assert.Equal(t, "main\ndevelop\nfeature/new-feature\n", out)

	_, _, err = run(t, "disconnect", "--config", cfg, "-C", dir)
	require.NoError(t, err)

	_, _, err = run(t, "repos", "--config", cfg, "-C", dir)
	require.Error(t, err)
	assert.Equal(t, "not connected", err.Error())
}

func TestConnect_TokenFromStdin(t *testing.T) {
	dir, cfg := testEnv(t)

	var out bytes.Buffer
	root := NewRootCmd()
	root.SetArgs([]string{"connect", "--config", cfg, "-C", dir})
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetIn(strings.NewReader("abc\n"))
	require.NoError(t, root.Execute())
	assert.Equal(t, "Welcome, Demo User!\n", out.String())
}

func TestConnect_BlankToken(t *testing.T) {
	dir, cfg := testEnv(t)

	_, _, err := run(t, "connect", "--config", cfg, "-C", dir)
	require.Error(t, err)
}

func TestBranches_SuggestsRepository(t *testing.T) {
	dir, cfg := testEnv(t)
	_, _, err := run(t, "connect", "--config", cfg, "-C", dir, "--token", "abc")
	require.NoError(t, err)

	_, _, err = run(t, "branches", "--config", cfg, "-C", dir, "user/repo3")
	require.Error(t, err)
	assert.Equal(t, `unknown repository "user/repo3"; did you mean "user/repo1"?`, err.Error())

	_, _, err = run(t, "branches", "--config", cfg, "-C", dir, "someone/else/entirely")
	require.Error(t, err)
	assert.Equal(t, `unknown repository "someone/else/entirely"`, err.Error())
}

func TestSubmit(t *testing.T) {
	dir, cfg := testEnv(t)
	src := writeFile(t, dir, "main.go", "package main\n")
	_, _, err := run(t, "connect", "--config", cfg, "-C", dir, "--token", "abc")
	require.NoError(t, err)

	out, stderr, err := run(t, "submit", "--config", cfg, "-C", dir, "--project", "Demo", "--repo", "user/repo1", src)
	require.NoError(t, err)
	assert.Equal(t, "Pull request created: https://github.com/user/repo1/pull/123\n", out)
	assert.Contains(t, stderr, "Creating pull request...")
}

func TestSubmit_NotConnected(t *testing.T) {
	dir, cfg := testEnv(t)
	src := writeFile(t, dir, "main.go", "package main\n")

	_, _, err := run(t, "submit", "--config", cfg, "-C", dir, "--project", "Demo", "--repo", "user/repo1", src)
	require.Error(t, err)
	assert.Equal(t, "not connected", err.Error())
}
