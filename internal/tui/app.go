package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"tekshila/internal/app"
	"tekshila/internal/artifact"
	"tekshila/internal/model"
	"tekshila/internal/notify"
	"tekshila/internal/pipeline"
	"tekshila/internal/state"
	"tekshila/internal/upload"
)

// callTimeout bounds a single external call started from the UI.
const callTimeout = 3 * time.Minute

type appState int

const (
	stateNormal appState = iota
	stateEdit
	stateToken
	statePickFiles
	stateSaveAs
)

// field is the form input that has focus in stateEdit.
type field int

const (
	fieldProject field = iota
	fieldInstructions
	fieldTitle
	fieldDescription
	fieldCommit
)

// — messages ————————————————————————————————————————————————————————————————

type jobDoneMsg struct {
	outcome pipeline.Outcome
}

type filesLoadedMsg struct {
	result  upload.Result
	quality bool
	err     error
}

type reposLoadedMsg struct {
	repos []model.RepoID
	err   error
}

type branchesLoadedMsg struct {
	repo     model.RepoID
	branches []string
	err      error
}

type savedMsg struct {
	paths []string
	err   error
}

type copiedMsg struct {
	err error
}

type toastTickMsg struct{}

// revision counts store changes. Model copies share it so views can be
// rebuilt only when the session changed.
type revision struct{ n int }

// — model ———————————————————————————————————————————————————————————————————

type Model struct {
	app     *app.App
	store   *state.Store
	pipe    *pipeline.Pipeline
	surface *notify.Surface

	width  int
	height int
	state  appState
	field  field
	keys   keyMap
	help   help.Model

	project      textinput.Model
	instructions textarea.Model
	title        textinput.Model
	description  textarea.Model
	commit       textinput.Model
	token        textinput.Model
	savePath     textinput.Model
	picker       filepicker.Model
	pickQuality  bool
	preview      viewport.Model
	report       viewport.Model
	spinner      spinner.Model

	uploadCursor int
	showDiff     bool
	repos        []model.RepoID
	repoCursor   int
	branches     []string
	branchCursor int
	loadingRepos bool
	inputErr     string

	rev  *revision
	seen int
}

// New returns the root model over a.
func New(a *app.App) Model {
	rev := &revision{}
	a.Store.Subscribe(state.ObserverFunc(func(state.Change) { rev.n++ }))

	project := textinput.New()
	project.Placeholder = "my-project"
	project.CharLimit = 100

	instructions := textarea.New()
	instructions.Placeholder = "Optional: focus areas, tone, sections to include"
	instructions.ShowLineNumbers = false
	instructions.SetHeight(3)
	instructions.CharLimit = 2000

	draft := a.Draft()
	title := textinput.New()
	title.CharLimit = 200
	title.SetValue(draft.Title)

	description := textarea.New()
	description.ShowLineNumbers = false
	description.SetHeight(3)
	description.SetValue(draft.Description)

	commit := textinput.New()
	commit.CharLimit = 200
	commit.SetValue(draft.CommitMessage)

	token := textinput.New()
	token.Placeholder = "ghp_… or glpat-…"
	token.EchoMode = textinput.EchoPassword
	token.EchoCharacter = '•'
	token.CharLimit = 255

	savePath := textinput.New()
	savePath.CharLimit = 255

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = infoStyle

	m := Model{
		app:          a,
		store:        a.Store,
		pipe:         a.Pipeline,
		surface:      a.Surface,
		keys:         newKeyMap(),
		help:         help.New(),
		project:      project,
		instructions: instructions,
		title:        title,
		description:  description,
		commit:       commit,
		token:        token,
		savePath:     savePath,
		preview:      viewport.New(80, 10),
		report:       viewport.New(80, 10),
		spinner:      sp,
		rev:          rev,
		seen:         -1,
	}
	if draft.TargetRepo != "" {
		m.repos = []model.RepoID{draft.TargetRepo}
	}
	if draft.TargetBranch != "" {
		m.branches = []string{draft.TargetBranch}
	}
	m.sync()
	return m
}

// — commands ————————————————————————————————————————————————————————————————

func executeCmd(job *pipeline.Job) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
		defer cancel()
		return jobDoneMsg{outcome: job.Execute(ctx)}
	}
}

func loadFilesCmd(paths []string, opts upload.Options, quality bool) tea.Cmd {
	return func() tea.Msg {
		res, err := upload.Load(paths, opts)
		return filesLoadedMsg{result: res, quality: quality, err: err}
	}
}

func reposCmd(list pipeline.Lookup[[]model.RepoID]) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
		defer cancel()
		repos, err := list(ctx)
		return reposLoadedMsg{repos: repos, err: err}
	}
}

func branchesCmd(repo model.RepoID, list pipeline.Lookup[[]string]) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
		defer cancel()
		branches, err := list(ctx)
		return branchesLoadedMsg{repo: repo, branches: branches, err: err}
	}
}

func saveCmd(a model.Artifact, path string) tea.Cmd {
	return func() tea.Msg {
		if len(a.Files) > 1 {
			paths, err := artifact.SaveAll(a, path)
			return savedMsg{paths: paths, err: err}
		}
		if err := artifact.Save(a, path); err != nil {
			return savedMsg{err: err}
		}
		return savedMsg{paths: []string{path}}
	}
}

func copyCmd(a model.Artifact) tea.Cmd {
	return func() tea.Msg {
		return copiedMsg{err: artifact.Copy(a)}
	}
}

func toastTickCmd() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(time.Time) tea.Msg {
		return toastTickMsg{}
	})
}

func openURLCmd(url string) tea.Cmd {
	return func() tea.Msg {
		var cmd *exec.Cmd
		switch runtime.GOOS {
		case "darwin":
			cmd = exec.Command("open", url)
		case "windows":
			cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
		default:
			cmd = exec.Command("xdg-open", url)
		}
		_ = cmd.Run()
		return nil
	}
}

// — tea.Model ———————————————————————————————————————————————————————————————

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick, toastTickCmd()}
	if m.store.Get().Connection != nil {
		if list, err := m.pipe.ListRepositories(); err == nil {
			cmds = append(cmds, reposCmd(list))
		}
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	next, cmd := m.update(msg)
	if next.rev.n != next.seen {
		next.sync()
	}
	return next, cmd
}

func (m Model) update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case toastTickMsg:
		m.surface.Prune()
		return m, toastTickCmd()

	case jobDoneMsg:
		return m.handleJobDone(msg)

	case filesLoadedMsg:
		return m.handleFilesLoaded(msg), nil

	case reposLoadedMsg:
		m.loadingRepos = false
		if msg.err != nil {
			m.surface.Error(msg.err)
			return m, nil
		}
		m.repos = msg.repos
		m.repoCursor = 0
		if want := m.app.Detection.Repo; want != "" {
			for i, r := range m.repos {
				if r == want {
					m.repoCursor = i
				}
			}
		}
		return m, m.loadBranches()

	case branchesLoadedMsg:
		if msg.err != nil {
			m.surface.Error(msg.err)
			return m, nil
		}
		if msg.repo != m.selectedRepo() {
			return m, nil
		}
		m.branches = msg.branches
		m.branchCursor = 0
		want := m.app.Detection.DefaultBranch
		for i, b := range m.branches {
			if b == want {
				m.branchCursor = i
			}
		}
		return m, nil

	case savedMsg:
		if msg.err != nil {
			m.surface.Error(msg.err)
			return m, nil
		}
		m.surface.Success("Saved " + strings.Join(msg.paths, ", "))
		return m, nil

	case copiedMsg:
		if msg.err != nil {
			m.surface.Error(msg.err)
			return m, nil
		}
		m.surface.Success("Copied to clipboard!")
		return m, nil
	}

	switch m.state {
	case stateEdit:
		return m.updateEdit(msg)
	case stateToken:
		return m.updateToken(msg)
	case statePickFiles:
		return m.updatePicker(msg)
	case stateSaveAs:
		return m.updateSaveAs(msg)
	default:
		return m.updateNormal(msg)
	}
}

func (m Model) handleJobDone(msg jobDoneMsg) (Model, tea.Cmd) {
	err := m.pipe.Complete(msg.outcome)
	switch msg.outcome.Kind {
	case pipeline.KindAuthenticate:
		if err != nil {
			m.inputErr = err.Error()
			return m, nil
		}
		m.state = stateNormal
		m.inputErr = ""
		m.token.Reset()
		m.token.Blur()
		cmd := m.loadRepos()
		return m, cmd
	case pipeline.KindGenerate:
		if err == nil {
			m.showDiff = false
			m.preview.GotoTop()
		}
	case pipeline.KindAnalyze:
		if err == nil {
			m.report.GotoTop()
		}
	}
	return m, nil
}

func (m Model) handleFilesLoaded(msg filesLoadedMsg) Model {
	if msg.err != nil {
		m.surface.Error(msg.err)
		return m
	}
	for _, s := range msg.result.Skipped {
		m.surface.Info("Skipped " + s)
	}
	files := msg.result.Files
	if msg.quality {
		if len(files) == 0 {
			m.surface.Error(errors.New("no supported file selected"))
			return m
		}
		m.store.SetQualityFile(files[0])
		return m
	}
	if n := m.store.AddFiles(files); n > 0 {
		m.surface.Info(fmt.Sprintf("Added %d file(s)", n))
	}
	return m
}

func (m Model) updateNormal(msg tea.Msg) (Model, tea.Cmd) {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch {
	case key.Matches(km, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(km, m.keys.NextTab):
		m.store.SetView((m.store.Get().View + 1) % 3)
		return m, nil
	case key.Matches(km, m.keys.PrevTab):
		m.store.SetView((m.store.Get().View + 2) % 3)
		return m, nil
	}
	switch km.String() {
	case "1":
		m.store.SetView(model.ViewDocumentation)
		return m, nil
	case "2":
		m.store.SetView(model.ViewQuality)
		return m, nil
	case "3":
		m.store.SetView(model.ViewRepoIntegration)
		return m, nil
	}

	switch m.store.Get().View {
	case model.ViewQuality:
		return m.updateQuality(km)
	case model.ViewRepoIntegration:
		return m.updateRepo(km)
	default:
		return m.updateDocs(km)
	}
}

func (m Model) updateDocs(km tea.KeyMsg) (Model, tea.Cmd) {
	s := m.store.Get()
	switch {
	case key.Matches(km, m.keys.Up):
		if m.uploadCursor > 0 {
			m.uploadCursor--
		}
	case key.Matches(km, m.keys.Down):
		if m.uploadCursor < len(s.Uploads)-1 {
			m.uploadCursor++
		}
	case key.Matches(km, m.keys.Add):
		return m.openPicker(false)
	case key.Matches(km, m.keys.Remove):
		if err := m.store.RemoveAt(m.uploadCursor); err == nil && m.uploadCursor >= len(s.Uploads)-1 && m.uploadCursor > 0 {
			m.uploadCursor--
		}
	case key.Matches(km, m.keys.Purpose):
		if s.Purpose == model.PurposeReadme {
			m.store.SetPurpose(model.PurposeCommentedCode)
		} else {
			m.store.SetPurpose(model.PurposeReadme)
		}
	case key.Matches(km, m.keys.Project):
		return m.focus(fieldProject)
	case key.Matches(km, m.keys.Instructions):
		return m.focus(fieldInstructions)
	case key.Matches(km, m.keys.Generate):
		job, err := m.pipe.BeginGenerate(pipeline.GenerateInput{
			ProjectName:  m.project.Value(),
			Instructions: m.instructions.Value(),
		})
		if err != nil {
			return m, nil
		}
		return m, executeCmd(job)
	case key.Matches(km, m.keys.Copy):
		if s.Artifact != nil {
			return m, copyCmd(*s.Artifact)
		}
	case key.Matches(km, m.keys.Save):
		if s.Artifact != nil {
			m.state = stateSaveAs
			m.inputErr = ""
			m.savePath.SetValue(defaultSavePath(*s.Artifact))
			m.savePath.CursorEnd()
			m.savePath.Focus()
			return m, textinput.Blink
		}
	case key.Matches(km, m.keys.Diff):
		if s.Artifact != nil && s.Artifact.Kind == model.ArtifactCommentedCode {
			m.showDiff = !m.showDiff
			m.sync()
		}
	default:
		var cmd tea.Cmd
		m.preview, cmd = m.preview.Update(km)
		return m, cmd
	}
	return m, nil
}

func (m Model) updateQuality(km tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(km, m.keys.Add):
		return m.openPicker(true)
	case key.Matches(km, m.keys.Remove):
		if m.store.Get().QualityFile != nil {
			m.store.ClearQualityFile()
		}
	case key.Matches(km, m.keys.Analyze):
		job, err := m.pipe.BeginAnalyze()
		if err != nil {
			return m, nil
		}
		return m, executeCmd(job)
	default:
		var cmd tea.Cmd
		m.report, cmd = m.report.Update(km)
		return m, cmd
	}
	return m, nil
}

func (m Model) updateRepo(km tea.KeyMsg) (Model, tea.Cmd) {
	s := m.store.Get()
	if s.Connection == nil {
		if key.Matches(km, m.keys.Connect) || km.String() == "enter" {
			m.state = stateToken
			m.inputErr = ""
			m.token.Reset()
			m.token.Focus()
			return m, textinput.Blink
		}
		return m, nil
	}
	switch {
	case key.Matches(km, m.keys.Disconnect):
		if err := m.pipe.Disconnect(); err != nil {
			m.surface.Error(err)
			return m, nil
		}
		m.surface.Info("Disconnected")
	case key.Matches(km, m.keys.Refresh):
		cmd := m.loadRepos()
		return m, cmd
	case key.Matches(km, m.keys.Up):
		if m.repoCursor > 0 {
			m.repoCursor--
			return m, m.loadBranches()
		}
	case key.Matches(km, m.keys.Down):
		if m.repoCursor < len(m.repos)-1 {
			m.repoCursor++
			return m, m.loadBranches()
		}
	case key.Matches(km, m.keys.Left):
		if m.branchCursor > 0 {
			m.branchCursor--
		}
	case key.Matches(km, m.keys.Right):
		if m.branchCursor < len(m.branches)-1 {
			m.branchCursor++
		}
	case key.Matches(km, m.keys.Edit):
		if state.ComputeGates(s).PRFormVisible {
			return m.focus(fieldTitle)
		}
	case key.Matches(km, m.keys.Submit):
		return m.submit()
	case key.Matches(km, m.keys.Open):
		if s.LastChange != nil && s.LastChange.URL != "" {
			return m, openURLCmd(s.LastChange.URL)
		}
	}
	return m, nil
}

func (m Model) submit() (Model, tea.Cmd) {
	job, err := m.pipe.BeginSubmit(m.draft())
	if err != nil {
		return m, nil
	}
	return m, executeCmd(job)
}

// focus enters stateEdit on f.
func (m Model) focus(f field) (Model, tea.Cmd) {
	m.project.Blur()
	m.instructions.Blur()
	m.title.Blur()
	m.description.Blur()
	m.commit.Blur()

	m.state = stateEdit
	m.field = f
	switch f {
	case fieldProject:
		return m, m.project.Focus()
	case fieldInstructions:
		return m, m.instructions.Focus()
	case fieldTitle:
		return m, m.title.Focus()
	case fieldDescription:
		return m, m.description.Focus()
	default:
		return m, m.commit.Focus()
	}
}

// next cycles within the documentation inputs or the PR form.
func (f field) next() field {
	switch f {
	case fieldProject:
		return fieldInstructions
	case fieldInstructions:
		return fieldProject
	case fieldTitle:
		return fieldDescription
	case fieldDescription:
		return fieldCommit
	default:
		return fieldTitle
	}
}

func (m Model) updateEdit(msg tea.Msg) (Model, tea.Cmd) {
	if km, ok := msg.(tea.KeyMsg); ok {
		switch km.String() {
		case "esc":
			m.blurAll()
			m.state = stateNormal
			return m, nil
		case "tab":
			return m.focus(m.field.next())
		case "ctrl+s":
			m.blurAll()
			m.state = stateNormal
			if m.field >= fieldTitle {
				return m.submit()
			}
			return m, nil
		case "enter":
			switch m.field {
			case fieldProject, fieldTitle:
				return m.focus(m.field.next())
			case fieldCommit:
				m.blurAll()
				m.state = stateNormal
				return m.submit()
			}
		}
	}

	var cmd tea.Cmd
	switch m.field {
	case fieldProject:
		m.project, cmd = m.project.Update(msg)
	case fieldInstructions:
		m.instructions, cmd = m.instructions.Update(msg)
	case fieldTitle:
		m.title, cmd = m.title.Update(msg)
	case fieldDescription:
		m.description, cmd = m.description.Update(msg)
	case fieldCommit:
		m.commit, cmd = m.commit.Update(msg)
	}
	return m, cmd
}

func (m *Model) blurAll() {
	m.project.Blur()
	m.instructions.Blur()
	m.title.Blur()
	m.description.Blur()
	m.commit.Blur()
}

func (m Model) updateToken(msg tea.Msg) (Model, tea.Cmd) {
	if km, ok := msg.(tea.KeyMsg); ok {
		switch km.String() {
		case "esc":
			m.state = stateNormal
			m.inputErr = ""
			m.token.Reset()
			m.token.Blur()
			return m, nil
		case "enter":
			if m.surface.Pending(pipeline.KindAuthenticate) {
				return m, nil
			}
			job, err := m.pipe.BeginAuthenticate(m.token.Value())
			if err != nil {
				m.inputErr = err.Error()
				return m, nil
			}
			m.inputErr = ""
			return m, executeCmd(job)
		}
	}
	var cmd tea.Cmd
	m.token, cmd = m.token.Update(msg)
	return m, cmd
}

func (m Model) openPicker(quality bool) (Model, tea.Cmd) {
	fp := filepicker.New()
	fp.ShowHidden = false
	fp.FileAllowed = true
	fp.DirAllowed = !quality
	fp.AutoHeight = false
	fp.Height = max(8, min(m.height-12, 18))
	exts := upload.Extensions()
	types := make([]string, 0, len(exts)+1)
	for _, e := range exts {
		types = append(types, "."+e)
	}
	if !quality {
		types = append(types, ".zip")
	}
	fp.AllowedTypes = types
	if wd, err := os.Getwd(); err == nil {
		fp.CurrentDirectory = wd
	}

	m.picker = fp
	m.pickQuality = quality
	m.state = statePickFiles
	m.inputErr = ""
	return m, m.picker.Init()
}

func (m Model) updatePicker(msg tea.Msg) (Model, tea.Cmd) {
	if km, ok := msg.(tea.KeyMsg); ok && (km.String() == "esc" || km.String() == "q") {
		m.state = stateNormal
		m.inputErr = ""
		return m, nil
	}
	var cmd tea.Cmd
	m.picker, cmd = m.picker.Update(msg)
	if ok, path := m.picker.DidSelectFile(msg); ok {
		m.state = stateNormal
		return m, loadFilesCmd([]string{path}, m.app.UploadOptions(), m.pickQuality)
	}
	if ok, path := m.picker.DidSelectDisabledFile(msg); ok {
		m.inputErr = filepath.Base(path) + ": unsupported file type"
	}
	return m, cmd
}

func (m Model) updateSaveAs(msg tea.Msg) (Model, tea.Cmd) {
	if km, ok := msg.(tea.KeyMsg); ok {
		switch km.String() {
		case "esc":
			m.state = stateNormal
			m.inputErr = ""
			m.savePath.Blur()
			return m, nil
		case "enter":
			path := strings.TrimSpace(m.savePath.Value())
			if path == "" {
				m.inputErr = "path cannot be empty"
				return m, nil
			}
			s := m.store.Get()
			if s.Artifact == nil {
				m.state = stateNormal
				return m, nil
			}
			m.state = stateNormal
			m.inputErr = ""
			m.savePath.Blur()
			return m, saveCmd(*s.Artifact, path)
		}
	}
	var cmd tea.Cmd
	m.savePath, cmd = m.savePath.Update(msg)
	return m, cmd
}

// — helpers —————————————————————————————————————————————————————————————————

func (m *Model) loadRepos() tea.Cmd {
	list, err := m.pipe.ListRepositories()
	if err != nil {
		return nil
	}
	m.loadingRepos = true
	return reposCmd(list)
}

func (m *Model) loadBranches() tea.Cmd {
	repo := m.selectedRepo()
	if repo == "" {
		return nil
	}
	list, err := m.pipe.ListBranches(repo)
	if err != nil {
		return nil
	}
	return branchesCmd(repo, list)
}

func (m Model) selectedRepo() model.RepoID {
	if m.repoCursor < 0 || m.repoCursor >= len(m.repos) {
		return ""
	}
	return m.repos[m.repoCursor]
}

func (m Model) selectedBranch() string {
	if m.branchCursor < 0 || m.branchCursor >= len(m.branches) {
		return ""
	}
	return m.branches[m.branchCursor]
}

func (m Model) draft() model.ChangeRequestDraft {
	return model.ChangeRequestDraft{
		TargetRepo:    m.selectedRepo(),
		TargetBranch:  m.selectedBranch(),
		Title:         m.title.Value(),
		Description:   m.description.Value(),
		CommitMessage: m.commit.Value(),
	}
}

func defaultSavePath(a model.Artifact) string {
	if len(a.Files) > 1 {
		return "commented"
	}
	return artifact.DefaultFilename(a.Kind)
}

// sync rebuilds the viewport contents from the current session.
func (m *Model) sync() {
	s := m.store.Get()
	if m.uploadCursor >= len(s.Uploads) {
		m.uploadCursor = max(0, len(s.Uploads)-1)
	}
	m.preview.SetContent(m.renderArtifact(s))
	m.report.SetContent(renderReport(s.Report))
	m.seen = m.rev.n
}

func (m *Model) resize() {
	w := max(20, m.width-6)
	h := max(5, m.height-18)
	m.preview.Width = w
	m.preview.Height = h
	m.report.Width = w
	m.report.Height = max(5, m.height-12)
	m.instructions.SetWidth(min(w, 80))
	m.description.SetWidth(min(w, 80))
	m.help.Width = m.width
	m.sync()
}
