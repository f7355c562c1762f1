// Package artifact exports generated content: save to disk, copy to the
// clipboard and line diffs against the original source.
package artifact

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/sergi/go-diff/diffmatchpatch"

	"tekshila/internal/model"
)

// DefaultFilename is the file name offered when saving an artifact.
func DefaultFilename(k model.ArtifactKind) string {
	if k == model.ArtifactCommentedCode {
		return "commented_code.txt"
	}
	return "README.md"
}

// ErrNothingToExport is returned when there is no artifact body.
var ErrNothingToExport = errors.New("no content to export")

// Save writes the artifact body to path, replacing it atomically.
func Save(a model.Artifact, path string) error {
	if a.Body == "" {
		return ErrNothingToExport
	}
	return writeAtomic(path, []byte(a.Body))
}

// SaveAll writes every artifact file below dir and returns the written paths.
// Paths that would escape dir are rejected.
func SaveAll(a model.Artifact, dir string) ([]string, error) {
	if len(a.Files) == 0 {
		return nil, ErrNothingToExport
	}
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	var written []string
	for _, f := range a.Files {
		dst := filepath.Join(root, filepath.FromSlash(f.Path))
		if dst != root && !strings.HasPrefix(dst, root+string(filepath.Separator)) {
			return written, fmt.Errorf("refusing to write %q outside %s", f.Path, dir)
		}
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return written, err
		}
		if err := writeAtomic(dst, []byte(f.Body)); err != nil {
			return written, err
		}
		written = append(written, dst)
	}
	return written, nil
}

func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// clipboardWrite is replaced in tests; headless machines have no clipboard.
var clipboardWrite = clipboard.WriteAll

// Copy puts the artifact body on the system clipboard.
func Copy(a model.Artifact) error {
	if a.Body == "" {
		return ErrNothingToExport
	}
	if err := clipboardWrite(a.Body); err != nil {
		return fmt.Errorf("copy to clipboard: %w", err)
	}
	return nil
}

// Op is the kind of a diff line.
type Op int

const (
	OpEqual Op = iota
	OpInsert
	OpDelete
)

// Line is one line of a line-level diff.
type Line struct {
	Op   Op
	Text string
}

// Diff returns a line-level diff from before to after.
func Diff(before, after string) []Line {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var out []Line
	for _, d := range diffs {
		op := OpEqual
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			op = OpInsert
		case diffmatchpatch.DiffDelete:
			op = OpDelete
		}
		for _, l := range strings.SplitAfter(d.Text, "\n") {
			if l == "" {
				continue
			}
			out = append(out, Line{Op: op, Text: strings.TrimSuffix(l, "\n")})
		}
	}
	return out
}

// Stats counts inserted and deleted lines.
func Stats(lines []Line) (added, removed int) {
	for _, l := range lines {
		switch l.Op {
		case OpInsert:
			added++
		case OpDelete:
			removed++
		}
	}
	return added, removed
}

// Unified renders lines with "+", "-" and " " prefixes.
func Unified(lines []Line) string {
	var b strings.Builder
	for _, l := range lines {
		switch l.Op {
		case OpInsert:
			b.WriteString("+ ")
		case OpDelete:
			b.WriteString("- ")
		default:
			b.WriteString("  ")
		}
		b.WriteString(l.Text)
		b.WriteByte('\n')
	}
	return b.String()
}
