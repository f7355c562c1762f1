package upload

import (
	"archive/zip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, p, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
}

func writeZip(t *testing.T, p string, entries map[string]string) {
	t.Helper()
	f, err := os.Create(p)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for name, body := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
}

func names(r Result) []string {
	var out []string
	for _, f := range r.Files {
		out = append(out, f.Name)
	}
	return out
}

func TestLanguage(t *testing.T) {
	t.Parallel()
	tests := map[string]string{
		"main.go":        "Go",
		"App.TSX":        "React TSX",
		"dir/script.sh":  "Shell",
		"config.yml":     "YAML",
		"binary.exe":     "Unknown",
		"no-extension":   "Unknown",
		"archive.tar.gz": "Unknown",
	}
	for in, want := range tests {
		if got := Language(in); got != want {
			t.Errorf("Language(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLoad_FilesAndUnsupported(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "main.go"), "package main")
	writeFile(t, filepath.Join(dir, "logo.png"), "\x89PNG")

	r, err := Load([]string{filepath.Join(dir, "main.go"), filepath.Join(dir, "logo.png")}, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"main.go"}, names(r))
	assert.Equal(t, []string{"logo.png: unsupported file type"}, r.Skipped)

	body, err := r.Files[0].ReadAll()
	require.NoError(t, err)
	assert.Equal(t, "package main", string(body))
}

func TestLoad_DirectorySkipsHidden(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "src", "a.py"), "print(1)")
	writeFile(t, filepath.Join(dir, ".git", "config.txt"), "x")
	writeFile(t, filepath.Join(dir, ".env.json"), "{}")
	writeFile(t, filepath.Join(dir, "README.md"), "# hi")

	r, err := Load([]string{dir}, Options{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"src/a.py", "README.md"}, names(r))
}

func TestLoad_ZipArchive(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	archive := filepath.Join(dir, "project.zip")
	writeZip(t, archive, map[string]string{
		"app/main.go":        "package main",
		"app/.hidden/x.go":   "package x",
		"app/image.bmp":      "BM",
		"app/big.txt":        strings.Repeat("a", 64),
		"app/notes/todo.txt": "todo",
	})

	r, err := Load([]string{archive}, Options{MaxFileBytes: 32})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"app/main.go", "app/notes/todo.txt"}, names(r))
	assert.Contains(t, r.Skipped, "app/big.txt: file too large")
	assert.Contains(t, r.Skipped, "app/image.bmp: unsupported file type")
}

func TestLoad_TotalLimit(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), strings.Repeat("a", 10))
	writeFile(t, filepath.Join(dir, "b.txt"), strings.Repeat("b", 10))

	_, err := Load([]string{dir}, Options{MaxTotalBytes: 15})
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestLoad_MissingPath(t *testing.T) {
	t.Parallel()
	_, err := Load([]string{filepath.Join(t.TempDir(), "missing.go")}, Options{})
	assert.Error(t, err)
}

func TestFromBytesCopies(t *testing.T) {
	t.Parallel()
	src := []byte("package a")
	f := FromBytes("a.go", src)
	src[0] = 'X'

	body, err := f.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, "package a", string(body))
	assert.EqualValues(t, 9, f.Size)
}
