package quality

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"tekshila/internal/generate"
	"tekshila/internal/model"
	"tekshila/internal/upload"
)

// Gemini asks a remote model for a structured report.
type Gemini struct {
	Model generate.Completer
}

const promptTemplate = `Analyze the following %[1]s code for quality issues:

` + "```%[1]s\n%[2]s\n```" + `

Provide a JSON response with the following structure:
{
    "issues": [
        {
            "line": <line_number>,
            "message": "<description of the issue>",
            "severity": "<info|warning|error>",
            "type": "<code_smell|security|performance|style|bug>"
        }
    ],
    "suggestions": [
        "<suggestion for improvement>"
    ],
    "summary": "<brief summary of code quality>"
}

Focus on:
- Code smells
- Security issues
- Performance optimizations
- Best practices
- Deprecated API usage`

// Fallback texts for replies that do not contain a parsable report.
const (
	FallbackSummary    = "AI analysis completed but results could not be structured properly."
	FallbackSuggestion = "Unable to parse AI response as JSON"
)

type wireIssue struct {
	Line     json.Number `json:"line"`
	Message  string      `json:"message"`
	Severity string      `json:"severity"`
	Type     string      `json:"type"`
}

type wireReport struct {
	Issues      []wireIssue `json:"issues"`
	Suggestions []string    `json:"suggestions"`
	Summary     string      `json:"summary"`
}

var fencedJSON = regexp.MustCompile("(?s)```json\\s*(.*?)\\s*```")

func (g Gemini) Analyze(ctx context.Context, f model.FileRef) (model.QualityReport, error) {
	body, err := f.ReadAll()
	if err != nil {
		return model.QualityReport{}, fmt.Errorf("read %s: %w", f.Name, err)
	}
	lang := upload.Ext(f.Name)
	if lang == "" {
		lang = "unknown"
	}
	text, err := g.Model.Generate(ctx, fmt.Sprintf(promptTemplate, lang, string(body)))
	if err != nil {
		return model.QualityReport{}, fmt.Errorf("analyze %s: %w", f.Name, err)
	}
	r := ParseReply(text)
	r.File = f.Name
	return r, nil
}

// ParseReply extracts the report from a model reply: a ```json block first,
// then a bare object starting with "issues". Anything else yields the
// fallback report.
func ParseReply(text string) model.QualityReport {
	for _, candidate := range jsonCandidates(text) {
		var w wireReport
		if err := json.Unmarshal([]byte(candidate), &w); err == nil {
			return fromWire(w)
		}
	}
	return model.QualityReport{
		Summary:     FallbackSummary,
		Metrics:     map[string]string{},
		Suggestions: []string{FallbackSuggestion},
	}
}

func jsonCandidates(text string) []string {
	var out []string
	if m := fencedJSON.FindStringSubmatch(text); m != nil {
		out = append(out, m[1])
	}
	if i := strings.Index(text, `{`); i >= 0 {
		if j := strings.LastIndex(text, "}"); j > i && strings.Contains(text[i:j], `"issues"`) {
			out = append(out, text[i:j+1])
		}
	}
	return out
}

func fromWire(w wireReport) model.QualityReport {
	issues := make([]model.Issue, 0, len(w.Issues))
	for _, wi := range w.Issues {
		line, _ := strconv.Atoi(wi.Line.String())
		issues = append(issues, model.Issue{
			Line:     line,
			Message:  wi.Message,
			Severity: model.ParseSeverity(wi.Severity),
			Category: wi.Type,
		})
	}
	SortIssues(issues)
	c := Count(issues)
	return model.QualityReport{
		Summary: w.Summary,
		Metrics: map[string]string{
			"Code Quality": Grade(c),
			"Issues":       strconv.Itoa(len(issues)),
		},
		Issues:      issues,
		Suggestions: w.Suggestions,
	}
}
