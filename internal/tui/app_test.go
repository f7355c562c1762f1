package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"tekshila/internal/app"
	"tekshila/internal/config"
	"tekshila/internal/credentials"
	"tekshila/internal/logging"
	"tekshila/internal/model"
	"tekshila/internal/upload"
)

func newTestModel(t *testing.T) Model {
	t.Helper()
	cfg := config.Config{
		Generation: config.GenerationConfig{Provider: "offline", Timeout: time.Second},
		Quality:    config.QualityConfig{Provider: "heuristic"},
		Forge:      config.ForgeConfig{Kind: "offline", HeadPrefix: "auto-docs-"},
		Log:        config.LogConfig{Level: "info"},
		Defaults: config.DefaultsConfig{
			PRTitle:       "docs: add documentation",
			CommitMessage: "docs: add documentation",
		},
	}
	a, err := app.New(cfg, app.Options{Dir: t.TempDir(), Logger: logging.Discard(), Credentials: &credentials.Memory{}})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	m := New(a)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return next.(Model)
}

func keyPress(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, m Model, s string) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(keyPress(s))
	out, ok := next.(Model)
	if !ok {
		t.Fatalf("unexpected model type: %T", next)
	}
	return out, cmd
}

// runCommands feeds command results back into the model until a command
// yields nothing this package produces. Timers are never started.
func runCommands(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	for cmd != nil {
		msg := cmd()
		switch msg.(type) {
		case jobDoneMsg, filesLoadedMsg, reposLoadedMsg, branchesLoadedMsg, savedMsg, copiedMsg:
		default:
			return m
		}
		next, nextCmd := m.Update(msg)
		var ok bool
		m, ok = next.(Model)
		if !ok {
			t.Fatalf("unexpected model type: %T", next)
		}
		cmd = nextCmd
	}
	return m
}

func addFiles(t *testing.T, m Model, quality bool, files ...model.FileRef) Model {
	t.Helper()
	next, _ := m.Update(filesLoadedMsg{result: upload.Result{Files: files}, quality: quality})
	return next.(Model)
}

func lastToast(m Model) string {
	toasts := m.surface.Toasts()
	if len(toasts) == 0 {
		return ""
	}
	return toasts[len(toasts)-1].Text
}

func TestGenerateWithoutFilesShowsValidation(t *testing.T) {
	m := newTestModel(t)
	m, cmd := press(t, m, "g")
	if cmd != nil {
		t.Fatalf("expected no command for a rejected generation")
	}
	if got := lastToast(m); got != "no files" {
		t.Fatalf("toast = %q, want %q", got, "no files")
	}
}

func TestGenerateReadme(t *testing.T) {
	m := newTestModel(t)
	m = addFiles(t, m, false, upload.FromBytes("main.go", []byte("package main\n\nfunc main() {}\n")))
	if got := len(m.store.Get().Uploads); got != 1 {
		t.Fatalf("uploads = %d, want 1", got)
	}
	m.project.SetValue("demo")

	m, cmd := press(t, m, "g")
	if cmd == nil {
		t.Fatalf("expected generation command")
	}
	if !strings.Contains(m.View(), "Generating documentation...") {
		t.Fatalf("busy indicator missing while pending")
	}
	m = runCommands(t, m, cmd)

	a := m.store.Get().Artifact
	if a == nil || !strings.Contains(a.Body, "demo") {
		t.Fatalf("artifact not set: %+v", a)
	}
	if got := lastToast(m); got != "Documentation generated successfully!" {
		t.Fatalf("toast = %q", got)
	}
	if !strings.Contains(m.View(), "Preview") {
		t.Fatalf("preview section missing")
	}
}

func TestCommentedCodeDiff(t *testing.T) {
	m := newTestModel(t)
	m = addFiles(t, m, false, upload.FromBytes("main.go", []byte("package main\n\nfunc main() {}\n")))
	m, _ = press(t, m, "p")
	if m.store.Get().Purpose != model.PurposeCommentedCode {
		t.Fatalf("purpose not toggled")
	}
	m, cmd := press(t, m, "g")
	m = runCommands(t, m, cmd)

	m, _ = press(t, m, "d")
	if !m.showDiff {
		t.Fatalf("diff not shown")
	}
	if out := m.renderArtifact(m.store.Get()); !strings.Contains(out, "+ ") {
		t.Fatalf("diff has no insertions:\n%s", out)
	}
}

func TestRemoveUpload(t *testing.T) {
	m := newTestModel(t)
	m = addFiles(t, m, false,
		upload.FromBytes("a.go", []byte("package a")),
		upload.FromBytes("b.go", []byte("package b")),
	)
	m, _ = press(t, m, "j")
	m, _ = press(t, m, "x")
	uploads := m.store.Get().Uploads
	if len(uploads) != 1 || uploads[0].Name != "a.go" {
		t.Fatalf("uploads after remove = %+v", uploads)
	}
	if m.uploadCursor != 0 {
		t.Fatalf("cursor = %d, want 0", m.uploadCursor)
	}
}

func TestTabsCycle(t *testing.T) {
	m := newTestModel(t)
	want := []model.View{model.ViewQuality, model.ViewRepoIntegration, model.ViewDocumentation}
	for _, v := range want {
		m, _ = press(t, m, "tab")
		if got := m.store.Get().View; got != v {
			t.Fatalf("view = %s, want %s", got, v)
		}
	}
}

func TestAnalyzeQuality(t *testing.T) {
	m := newTestModel(t)
	m, _ = press(t, m, "2")
	m = addFiles(t, m, true, upload.FromBytes("util.py", []byte("def f():\n    return 1  \n")))
	if m.store.Get().QualityFile == nil {
		t.Fatalf("quality file not set")
	}
	m, cmd := press(t, m, "g")
	m = runCommands(t, m, cmd)

	r := m.store.Get().Report
	if r == nil || r.File != "util.py" {
		t.Fatalf("report = %+v", r)
	}
	if got := lastToast(m); got != "Code analysis completed!" {
		t.Fatalf("toast = %q", got)
	}
}

func TestConnectAndSubmit(t *testing.T) {
	m := newTestModel(t)
	m, _ = press(t, m, "3")
	if !strings.Contains(m.View(), "Connect to GitHub (offline)") {
		t.Fatalf("locked panel missing")
	}

	m, _ = press(t, m, "t")
	if m.state != stateToken {
		t.Fatalf("state = %d, want token modal", m.state)
	}
	m.token.SetValue("abc")
	m, cmd := press(t, m, "enter")
	m = runCommands(t, m, cmd)

	if m.state != stateNormal {
		t.Fatalf("token modal still open: %q", m.inputErr)
	}
	conn := m.store.Get().Connection
	if conn == nil || conn.Token != "abc" {
		t.Fatalf("connection = %+v", conn)
	}
	if len(m.repos) != 3 || m.selectedBranch() != "main" {
		t.Fatalf("repos = %v, branch = %q", m.repos, m.selectedBranch())
	}
	if !strings.Contains(m.View(), "Generate documentation first") {
		t.Fatalf("placeholder missing before an artifact exists")
	}

	m.store.SetArtifact(model.Artifact{Kind: model.ArtifactReadme, Body: "# demo"})
	m, cmd = press(t, m, "P")
	m = runCommands(t, m, cmd)

	last := m.store.Get().LastChange
	if last == nil || last.URL != "https://github.com/user/repo1/pull/123" {
		t.Fatalf("last change = %+v", last)
	}
	if !strings.Contains(m.View(), "pull/123") {
		t.Fatalf("created PR not shown")
	}
}

func TestTokenModalShowsValidation(t *testing.T) {
	m := newTestModel(t)
	m, _ = press(t, m, "3")
	m, _ = press(t, m, "t")
	m, cmd := press(t, m, "enter")
	if cmd != nil {
		t.Fatalf("expected no command for an empty token")
	}
	if m.inputErr != "missing token" {
		t.Fatalf("inputErr = %q", m.inputErr)
	}
	m, _ = press(t, m, "esc")
	if m.state != stateNormal {
		t.Fatalf("esc did not close the modal")
	}
}
