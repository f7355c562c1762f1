package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"tekshila/internal/app"
	"tekshila/internal/artifact"
	"tekshila/internal/model"
	"tekshila/internal/notify"
	"tekshila/internal/pipeline"
	"tekshila/internal/quality"
	"tekshila/internal/state"
	"tekshila/internal/upload"
)

var tabNames = []string{"Documentation", "Code Quality", "Repository"}

func (m Model) View() string {
	if m.width == 0 {
		return ""
	}
	s := m.store.Get()
	gates := state.ComputeGates(s)

	var body string
	switch s.View {
	case model.ViewQuality:
		body = m.renderQuality(s, gates)
	case model.ViewRepoIntegration:
		body = m.renderRepo(s, gates)
	default:
		body = m.renderDocs(s, gates)
	}

	base := lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(s),
		body,
		m.renderStatus(),
		m.renderHelp(s),
	)

	switch m.state {
	case stateToken:
		return m.place(m.renderTokenModal())
	case statePickFiles:
		return m.place(m.renderPickerModal())
	case stateSaveAs:
		return m.place(m.renderSaveModal())
	}
	return base
}

func (m Model) place(modal string) string {
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal,
		lipgloss.WithWhitespaceBackground(lipgloss.Color("0")),
	)
}

// — layout helpers ——————————————————————————————————————————————————————————

func (m Model) renderHeader(s model.Session) string {
	tabs := make([]string, len(tabNames))
	for i, name := range tabNames {
		label := fmt.Sprintf("%d %s", i+1, name)
		if model.View(i) == s.View {
			tabs[i] = activeTabStyle.Render(label)
		} else {
			tabs[i] = tabStyle.Render(label)
		}
	}
	left := titleStyle.Render("Tekshila") + "  " + lipgloss.JoinHorizontal(lipgloss.Top, tabs...)

	var right string
	if s.Connection != nil {
		right = okStyle.Render("● " + s.Connection.Identity.Label())
	} else {
		right = dimStyle.Render("○ not connected")
	}
	gap := max(1, m.width-lipgloss.Width(left)-lipgloss.Width(right)-2)
	return left + strings.Repeat(" ", gap) + right + "\n"
}

func (m Model) renderDocs(s model.Session, g state.Gates) string {
	var b strings.Builder

	b.WriteString(sectionStyle.Render("Files") + "\n")
	if len(s.Uploads) == 0 {
		b.WriteString(dimStyle.Render("  No files yet. Press a to add source files, folders or a .zip") + "\n")
	}
	for i, f := range s.Uploads {
		cursor := "  "
		if i == m.uploadCursor {
			cursor = cursorStyle.Render("> ")
		}
		b.WriteString(fmt.Sprintf("%s%s %s\n", cursor, f.Name,
			labelStyle.Render(fmt.Sprintf("(%s, %s)", upload.Language(f.Name), humanSize(f.Size)))))
	}
	b.WriteString("\n")

	purpose := "README"
	if s.Purpose == model.PurposeCommentedCode {
		purpose = "Commented code"
	}
	b.WriteString(labelStyle.Render("Output        ") + purpose + "\n")
	b.WriteString(labelStyle.Render("Project name  ") + m.inputView(fieldProject, m.project.View(), m.project.Value()) + "\n")
	b.WriteString(labelStyle.Render("Instructions") + "\n")
	b.WriteString(m.inputView(fieldInstructions, m.instructions.View(), m.instructions.Value()) + "\n\n")

	if !g.GenerateEnabled {
		b.WriteString(dimStyle.Render("Add files to enable generation") + "\n")
	}

	if s.Artifact != nil {
		head := "Preview"
		if m.showDiff {
			head = "Changes"
		}
		b.WriteString(sectionStyle.Render(head) + "\n")
		b.WriteString(panelStyle.Width(max(20, m.width-4)).Render(m.preview.View()))
	}
	return b.String()
}

// inputView shows the live widget while editing and the plain value otherwise.
func (m Model) inputView(f field, widget, value string) string {
	if m.state == stateEdit && m.field == f {
		return widget
	}
	if strings.TrimSpace(value) == "" {
		return dimStyle.Render("—")
	}
	return value
}

func (m Model) renderQuality(s model.Session, g state.Gates) string {
	var b strings.Builder
	b.WriteString(sectionStyle.Render("File") + "\n")
	if s.QualityFile == nil {
		b.WriteString(dimStyle.Render("  No file selected. Press a to choose one") + "\n")
	} else {
		f := s.QualityFile
		b.WriteString(fmt.Sprintf("  %s %s\n", f.Name,
			labelStyle.Render(fmt.Sprintf("(%s, %s)", upload.Language(f.Name), humanSize(f.Size)))))
	}
	if !g.AnalyzeEnabled {
		b.WriteString(dimStyle.Render("  Analysis needs a file") + "\n")
	}
	b.WriteString("\n")
	if s.Report != nil {
		b.WriteString(panelStyle.Width(max(20, m.width-4)).Render(m.report.View()))
	}
	return b.String()
}

func (m Model) renderRepo(s model.Session, g state.Gates) string {
	host := app.HostName(m.pipe.Host().Kind())
	if !g.PRPanelEnabled {
		msg := fmt.Sprintf("Connect to %s to open pull requests.\n\nPress t to enter a personal access token.", host)
		return lockedStyle.Width(max(20, m.width-4)).Render(msg)
	}

	var b strings.Builder
	b.WriteString(sectionStyle.Render("Target") + "\n")

	repo := string(m.selectedRepo())
	if repo == "" {
		repo = dimStyle.Render("—")
	}
	if m.loadingRepos {
		repo += " " + m.spinner.View()
	}
	b.WriteString(labelStyle.Render("Repository  ") + repo + labelStyle.Render(fmt.Sprintf("  (%d/%d)", min(m.repoCursor+1, len(m.repos)), len(m.repos))) + "\n")
	branch := m.selectedBranch()
	if branch == "" {
		branch = dimStyle.Render("—")
	}
	b.WriteString(labelStyle.Render("Branch      ") + branch + labelStyle.Render(fmt.Sprintf("  (%d/%d)", min(m.branchCursor+1, len(m.branches)), len(m.branches))) + "\n\n")

	b.WriteString(sectionStyle.Render("Pull request") + "\n")
	if !g.PRFormVisible {
		b.WriteString(dimStyle.Render("Generate documentation first, then come back to open a pull request.") + "\n")
	} else {
		b.WriteString(labelStyle.Render("Title           ") + m.inputView(fieldTitle, m.title.View(), m.title.Value()) + "\n")
		b.WriteString(labelStyle.Render("Description") + "\n")
		b.WriteString(m.inputView(fieldDescription, m.description.View(), m.description.Value()) + "\n")
		b.WriteString(labelStyle.Render("Commit message  ") + m.inputView(fieldCommit, m.commit.View(), m.commit.Value()) + "\n")
	}

	if s.LastChange != nil {
		b.WriteString("\n" + okStyle.Render(fmt.Sprintf("#%d ", s.LastChange.Number)) + s.LastChange.URL + "\n")
		b.WriteString(labelStyle.Render("Branch  ") + s.LastChange.HeadBranch + "\n")
	}
	return b.String()
}

func (m Model) renderStatus() string {
	if m.state != stateNormal && m.state != stateEdit {
		return ""
	}
	var lines []string
	if busy, ok := m.surface.Busy(); ok {
		lines = append(lines, busyStyle.Render(m.spinner.View()+" "+boldStyle.Render(busy.Title)+"\n"+dimStyle.Render(busy.Subtitle)))
	}
	for _, t := range m.surface.Toasts() {
		lines = append(lines, toastStyle(t.Level).Render(t.Text))
	}
	if len(lines) == 0 {
		return ""
	}
	return "\n" + strings.Join(lines, "\n")
}

func toastStyle(l notify.Level) lipgloss.Style {
	switch l {
	case notify.LevelSuccess:
		return okStyle
	case notify.LevelError:
		return errStyle
	default:
		return infoStyle
	}
}

func (m Model) renderHelp(s model.Session) string {
	var text string
	switch m.state {
	case stateEdit:
		text = "Tab next field   Esc done   Ctrl+S submit"
	default:
		text = m.help.View(m.keys.helpFor(s.View, s.Connection != nil))
	}
	sep := dimStyle.Render(strings.Repeat("─", m.width))
	return "\n" + sep + "\n" + helpStyle.Render(text)
}

func (m Model) renderTokenModal() string {
	var b strings.Builder
	host := app.HostName(m.pipe.Host().Kind())
	b.WriteString(boldStyle.Render("Connect to "+host) + "\n\n")
	b.WriteString("Personal access token\n")
	b.WriteString(m.token.View() + "\n")
	if m.surface.Pending(pipeline.KindAuthenticate) {
		b.WriteString("\n" + m.spinner.View() + " Connecting to " + host + "\n")
	}
	if m.inputErr != "" {
		b.WriteString("\n" + errStyle.Render(m.inputErr) + "\n")
	}
	b.WriteString("\n" + dimStyle.Render("Enter connect · Esc cancel · the token is stored encrypted"))
	return modalStyle.Render(b.String())
}

func (m Model) renderPickerModal() string {
	var b strings.Builder
	title := "Add files"
	if m.pickQuality {
		title = "Choose a file to analyze"
	}
	b.WriteString(boldStyle.Render(title) + "\n")
	b.WriteString(dimStyle.Render(m.picker.CurrentDirectory) + "\n\n")
	b.WriteString(m.picker.View() + "\n")
	if m.inputErr != "" {
		b.WriteString("\n" + errStyle.Render(m.inputErr) + "\n")
	}
	b.WriteString("\n" + dimStyle.Render("Enter select · ←/→ navigate · Esc cancel"))
	return modalStyle.Render(b.String())
}

func (m Model) renderSaveModal() string {
	var b strings.Builder
	b.WriteString(boldStyle.Render("Save") + "\n\n")
	s := m.store.Get()
	if s.Artifact != nil && len(s.Artifact.Files) > 1 {
		b.WriteString("Directory\n")
	} else {
		b.WriteString("File\n")
	}
	b.WriteString(m.savePath.View() + "\n")
	if m.inputErr != "" {
		b.WriteString("\n" + errStyle.Render(m.inputErr) + "\n")
	}
	b.WriteString("\n" + dimStyle.Render("Enter save · Esc cancel"))
	return modalStyle.Render(b.String())
}

// — content ————————————————————————————————————————————————————————————————

func (m Model) renderArtifact(s model.Session) string {
	a := s.Artifact
	if a == nil {
		return ""
	}
	if !m.showDiff || a.Kind != model.ArtifactCommentedCode {
		if len(a.Files) <= 1 {
			return a.Body
		}
		var b strings.Builder
		for i, f := range a.Files {
			if i > 0 {
				b.WriteString("\n")
			}
			b.WriteString(sectionStyle.Render("── "+f.Path) + "\n" + f.Body + "\n")
		}
		return b.String()
	}

	originals := make(map[string]model.FileRef, len(s.Uploads))
	for _, f := range s.Uploads {
		originals[f.Name] = f
	}
	var b strings.Builder
	for _, f := range a.Files {
		var before string
		if ref, ok := originals[f.Path]; ok {
			if data, err := ref.ReadAll(); err == nil {
				before = string(data)
			}
		}
		lines := artifact.Diff(before, f.Body)
		added, removed := artifact.Stats(lines)
		b.WriteString(sectionStyle.Render(f.Path) + " " +
			okStyle.Render(fmt.Sprintf("+%d", added)) + " " +
			errStyle.Render(fmt.Sprintf("-%d", removed)) + "\n")
		for _, l := range lines {
			switch l.Op {
			case artifact.OpInsert:
				b.WriteString(okStyle.Render("+ "+l.Text) + "\n")
			case artifact.OpDelete:
				b.WriteString(errStyle.Render("- "+l.Text) + "\n")
			default:
				b.WriteString(dimStyle.Render("  "+l.Text) + "\n")
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

func renderReport(r *model.QualityReport) string {
	if r == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(boldStyle.Render(r.File) + "\n")
	b.WriteString(r.Summary + "\n\n")

	if len(r.Metrics) > 0 {
		b.WriteString(sectionStyle.Render("Metrics") + "\n")
		for _, k := range quality.SortedMetrics(*r) {
			b.WriteString(fmt.Sprintf("  %s %s\n", labelStyle.Render(fmt.Sprintf("%-18s", k)), r.Metrics[k]))
		}
		b.WriteString("\n")
	}

	b.WriteString(sectionStyle.Render(fmt.Sprintf("Issues (%d)", len(r.Issues))) + "\n")
	if len(r.Issues) == 0 {
		b.WriteString(okStyle.Render("  No issues found") + "\n")
	}
	issues := append([]model.Issue(nil), r.Issues...)
	quality.SortIssues(issues)
	for _, is := range issues {
		loc := "     "
		if is.Line > 0 {
			loc = fmt.Sprintf("L%-4d", is.Line)
		}
		b.WriteString(fmt.Sprintf("  %s %s %s %s\n",
			labelStyle.Render(loc), severityLabel(is.Severity), is.Message, dimStyle.Render(is.Category)))
	}

	if len(r.Suggestions) > 0 {
		b.WriteString("\n" + sectionStyle.Render("Suggestions") + "\n")
		for _, sug := range r.Suggestions {
			b.WriteString("  • " + sug + "\n")
		}
	}
	return b.String()
}

func severityLabel(s model.Severity) string {
	switch s {
	case model.SeverityError:
		return errStyle.Render("error  ")
	case model.SeverityWarning:
		return warnStyle.Render("warning")
	default:
		return infoStyle.Render("info   ")
	}
}

func humanSize(n int64) string {
	return humanize.Bytes(uint64(max(n, 0)))
}
