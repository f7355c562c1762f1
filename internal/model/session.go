package model

import (
	"bytes"
	"errors"
	"io"
	"os"
	"strings"
)

// View is the active top-level tab.
type View int

const (
	ViewDocumentation View = iota
	ViewQuality
	ViewRepoIntegration
)

func (v View) String() string {
	switch v {
	case ViewDocumentation:
		return "documentation"
	case ViewQuality:
		return "quality"
	case ViewRepoIntegration:
		return "repo"
	default:
		return "unknown"
	}
}

// Purpose selects what the generation service produces.
type Purpose int

const (
	PurposeReadme Purpose = iota
	PurposeCommentedCode
)

func (p Purpose) String() string {
	if p == PurposeCommentedCode {
		return "comments"
	}
	return "readme"
}

// ParsePurpose accepts "readme" or "comments" (case-insensitive).
func ParsePurpose(s string) (Purpose, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "readme", "":
		return PurposeReadme, nil
	case "comments", "comment", "commented", "commented-code":
		return PurposeCommentedCode, nil
	}
	return PurposeReadme, errors.New(`purpose must be "readme" or "comments"`)
}

// Identity is the repository-host account a token belongs to.
type Identity struct {
	Handle      string // login / username
	DisplayName string // empty when the host has no display name on record
}

// Label returns the display name, falling back to the handle.
func (i Identity) Label() string {
	if i.DisplayName != "" {
		return i.DisplayName
	}
	return i.Handle
}

// Connection is an authenticated repository-host session.
// Build it with NewConnection so token and identity are always set together.
type Connection struct {
	Token    string
	Identity Identity
}

// NewConnection returns a complete connection or an error if either half is missing.
func NewConnection(token string, id Identity) (Connection, error) {
	if strings.TrimSpace(token) == "" {
		return Connection{}, errors.New("connection requires a token")
	}
	if strings.TrimSpace(id.Handle) == "" {
		return Connection{}, errors.New("connection requires an identity handle")
	}
	return Connection{Token: token, Identity: id}, nil
}

// Valid reports whether both token and identity are populated.
func (c Connection) Valid() bool {
	return strings.TrimSpace(c.Token) != "" && strings.TrimSpace(c.Identity.Handle) != ""
}

// ContentHandle opens the bytes behind a FileRef.
type ContentHandle interface {
	Open() (io.ReadCloser, error)
}

// PathHandle reads a file from disk.
type PathHandle string

func (p PathHandle) Open() (io.ReadCloser, error) { return os.Open(string(p)) }

// BytesHandle serves an in-memory copy (zip entries, tests, MCP arguments).
type BytesHandle []byte

func (b BytesHandle) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(b)), nil
}

// FileRef is one pending input file.
type FileRef struct {
	Name   string // unique key within an upload set; may contain a relative path
	Size   int64
	Handle ContentHandle
}

// ReadAll returns the file contents.
func (f FileRef) ReadAll() ([]byte, error) {
	if f.Handle == nil {
		return nil, errors.New("file " + f.Name + " has no content")
	}
	rc, err := f.Handle.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// ArtifactKind mirrors Purpose for produced content.
type ArtifactKind int

const (
	ArtifactReadme ArtifactKind = iota
	ArtifactCommentedCode
)

func (k ArtifactKind) String() string {
	if k == ArtifactCommentedCode {
		return "comments"
	}
	return "readme"
}

// KindFor maps a purpose to the artifact it produces.
func KindFor(p Purpose) ArtifactKind {
	if p == PurposeCommentedCode {
		return ArtifactCommentedCode
	}
	return ArtifactReadme
}

// ArtifactFile is one output file of a generation.
type ArtifactFile struct {
	Path string
	Body string
}

// Artifact is generated documentation or commented code.
type Artifact struct {
	Kind  ArtifactKind
	Body  string         // preview body; the first file for commented code
	Files []ArtifactFile // everything that would be committed
}

// Severity of a quality issue.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// ParseSeverity normalises free-form severities, defaulting to info.
func ParseSeverity(s string) Severity {
	switch Severity(strings.ToLower(strings.TrimSpace(s))) {
	case SeverityError:
		return SeverityError
	case SeverityWarning:
		return SeverityWarning
	default:
		return SeverityInfo
	}
}

// Issue is a single finding in a quality report.
type Issue struct {
	Line     int
	Message  string
	Severity Severity
	Category string // e.g. "security", "style", "code_smell"
}

// QualityReport is the result of a quality analysis.
type QualityReport struct {
	File        string
	Summary     string
	Metrics     map[string]string
	Issues      []Issue
	Suggestions []string
}

// RepoID identifies a repository on the host, e.g. "owner/name".
type RepoID string

// ChangeRequestDraft is the user-entered pull/merge request form.
type ChangeRequestDraft struct {
	TargetRepo    RepoID
	TargetBranch  string
	Title         string
	Description   string
	CommitMessage string
}

// ChangeRequestRef points at a created pull/merge request.
type ChangeRequestRef struct {
	Number     int
	URL        string
	HeadBranch string
}

// Session is the in-memory record of the user-facing state.
type Session struct {
	View        View
	Connection  *Connection // nil while disconnected
	Purpose     Purpose
	Uploads     []FileRef
	QualityFile *FileRef
	Artifact    *Artifact
	Report      *QualityReport
	LastChange  *ChangeRequestRef
}

// Clone returns a deep copy that shares nothing mutable with s.
func (s Session) Clone() Session {
	out := s
	if s.Connection != nil {
		c := *s.Connection
		out.Connection = &c
	}
	if s.Uploads != nil {
		out.Uploads = append([]FileRef(nil), s.Uploads...)
	}
	if s.QualityFile != nil {
		f := *s.QualityFile
		out.QualityFile = &f
	}
	if s.Artifact != nil {
		a := *s.Artifact
		a.Files = append([]ArtifactFile(nil), s.Artifact.Files...)
		out.Artifact = &a
	}
	if s.Report != nil {
		r := *s.Report
		r.Issues = append([]Issue(nil), s.Report.Issues...)
		r.Suggestions = append([]string(nil), s.Report.Suggestions...)
		if s.Report.Metrics != nil {
			r.Metrics = make(map[string]string, len(s.Report.Metrics))
			for k, v := range s.Report.Metrics {
				r.Metrics[k] = v
			}
		}
		out.Report = &r
	}
	if s.LastChange != nil {
		c := *s.LastChange
		out.LastChange = &c
	}
	return out
}
