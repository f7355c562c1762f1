// Package upload turns paths picked by the user into FileRefs: plain source
// files, directories and .zip archives.
package upload

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"tekshila/internal/model"
)

// languages maps supported extensions to a display name.
var languages = map[string]string{
	"py": "Python", "js": "JavaScript", "ts": "TypeScript", "jsx": "React JSX",
	"tsx": "React TSX", "html": "HTML", "css": "CSS", "java": "Java", "c": "C",
	"cpp": "C++", "cs": "C#", "go": "Go", "rs": "Rust", "php": "PHP", "rb": "Ruby",
	"swift": "Swift", "kt": "Kotlin", "sh": "Shell", "json": "JSON", "md": "Markdown",
	"sql": "SQL", "yml": "YAML", "yaml": "YAML", "xml": "XML", "txt": "Text",
}

// Default limits.
const (
	DefaultMaxFileBytes  = 1 << 20  // per file, including archive entries
	DefaultMaxTotalBytes = 16 << 20 // per Load call
)

// ErrTooLarge is returned when a Load call exceeds MaxTotalBytes.
var ErrTooLarge = errors.New("upload exceeds size limit")

// Options bounds what Load accepts. Zero values use the defaults.
type Options struct {
	MaxFileBytes  int64
	MaxTotalBytes int64
}

func (o Options) withDefaults() Options {
	if o.MaxFileBytes <= 0 {
		o.MaxFileBytes = DefaultMaxFileBytes
	}
	if o.MaxTotalBytes <= 0 {
		o.MaxTotalBytes = DefaultMaxTotalBytes
	}
	return o
}

// Ext returns the lower-case extension of name without the dot.
func Ext(name string) string {
	return strings.ToLower(strings.TrimPrefix(path.Ext(filepath.ToSlash(name)), "."))
}

// Language returns the display language for name, or "Unknown".
func Language(name string) string {
	if l, ok := languages[Ext(name)]; ok {
		return l
	}
	return "Unknown"
}

// Supported reports whether name has an accepted extension.
func Supported(name string) bool {
	_, ok := languages[Ext(name)]
	return ok
}

// Extensions returns the accepted extensions, sorted.
func Extensions() []string {
	out := make([]string, 0, len(languages))
	for ext := range languages {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// Result is the outcome of a Load call.
type Result struct {
	Files   []model.FileRef
	Skipped []string // inputs or entries ignored, with the reason
}

// Load expands paths into FileRefs. Unsupported, hidden and oversized files are
// skipped and reported; unreadable paths are errors.
func Load(paths []string, opts Options) (Result, error) {
	opts = opts.withDefaults()
	l := &loader{opts: opts}
	for _, p := range paths {
		if err := l.add(p); err != nil {
			return Result{}, err
		}
	}
	return Result{Files: l.files, Skipped: l.skipped}, nil
}

type loader struct {
	opts    Options
	files   []model.FileRef
	skipped []string
	total   int64
}

func (l *loader) skip(name, reason string) {
	l.skipped = append(l.skipped, fmt.Sprintf("%s: %s", name, reason))
}

func (l *loader) accept(f model.FileRef) error {
	if l.total+f.Size > l.opts.MaxTotalBytes {
		return fmt.Errorf("%s: %w (%d bytes)", f.Name, ErrTooLarge, l.opts.MaxTotalBytes)
	}
	l.total += f.Size
	l.files = append(l.files, f)
	return nil
}

func (l *loader) add(p string) error {
	info, err := os.Stat(p)
	if err != nil {
		return fmt.Errorf("read %s: %w", p, err)
	}
	switch {
	case info.IsDir():
		return l.addDir(p)
	case Ext(p) == "zip":
		return l.addZip(p)
	default:
		return l.addFile(filepath.Base(p), p, info.Size())
	}
}

func (l *loader) addFile(name, p string, size int64) error {
	if !Supported(name) {
		l.skip(name, "unsupported file type")
		return nil
	}
	if size > l.opts.MaxFileBytes {
		l.skip(name, "file too large")
		return nil
	}
	return l.accept(model.FileRef{Name: name, Size: size, Handle: model.PathHandle(p)})
}

func (l *loader) addDir(root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p != root && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		return l.addFile(filepath.ToSlash(rel), p, info.Size())
	})
}

func (l *loader) addZip(p string) error {
	zr, err := zip.OpenReader(p)
	if err != nil {
		return fmt.Errorf("open archive %s: %w", p, err)
	}
	defer zr.Close()
	return l.addArchive(&zr.Reader)
}

func (l *loader) addArchive(zr *zip.Reader) error {
	for _, e := range zr.File {
		if e.FileInfo().IsDir() {
			continue
		}
		name := path.Clean(e.Name)
		if hidden(name) {
			continue
		}
		if !Supported(name) {
			l.skip(name, "unsupported file type")
			continue
		}
		if e.UncompressedSize64 > uint64(l.opts.MaxFileBytes) {
			l.skip(name, "file too large")
			continue
		}
		rc, err := e.Open()
		if err != nil {
			return fmt.Errorf("open %s: %w", name, err)
		}
		// Bound the read in case the header lies about the size.
		body, err := io.ReadAll(io.LimitReader(rc, l.opts.MaxFileBytes+1))
		rc.Close()
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		if int64(len(body)) > l.opts.MaxFileBytes {
			l.skip(name, "file too large")
			continue
		}
		if err := l.accept(model.FileRef{Name: name, Size: int64(len(body)), Handle: model.BytesHandle(body)}); err != nil {
			return err
		}
	}
	return nil
}

// hidden reports whether any path segment starts with a dot.
func hidden(name string) bool {
	for _, seg := range strings.Split(name, "/") {
		if strings.HasPrefix(seg, ".") {
			return true
		}
	}
	return false
}

// FromBytes wraps in-memory content, e.g. a file passed to an MCP tool.
func FromBytes(name string, body []byte) model.FileRef {
	return model.FileRef{Name: name, Size: int64(len(body)), Handle: model.BytesHandle(bytes.Clone(body))}
}
