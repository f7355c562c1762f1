package quality

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/zricethezav/gitleaks/v8/detect"

	"tekshila/internal/model"
)

// Limits used by the heuristic analyzer.
const (
	MaxLineLength  = 120
	MaxFileLines   = 500
	maxPerCheck    = 25
	minCommentRate = 0.05
)

// Heuristic analyses files locally: secret scanning plus simple style and
// maintainability checks. It needs no network.
type Heuristic struct{}

var (
	detectorOnce sync.Once
	detector     *detect.Detector
	detectorErr  error
)

func secretDetector() (*detect.Detector, error) {
	detectorOnce.Do(func() {
		detector, detectorErr = detect.NewDetectorDefaultConfig()
	})
	return detector, detectorErr
}

var marker = regexp.MustCompile(`\b(TODO|FIXME|XXX|HACK)\b`)

func (Heuristic) Analyze(ctx context.Context, f model.FileRef) (model.QualityReport, error) {
	body, err := f.ReadAll()
	if err != nil {
		return model.QualityReport{}, fmt.Errorf("read %s: %w", f.Name, err)
	}
	if err := ctx.Err(); err != nil {
		return model.QualityReport{}, err
	}
	text := strings.ReplaceAll(string(body), "\r\n", "\n")
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")

	var issues []model.Issue
	secrets, err := scanSecrets(text)
	if err != nil {
		return model.QualityReport{}, err
	}
	issues = append(issues, secrets...)
	issues = append(issues, lineChecks(lines)...)

	if len(lines) > MaxFileLines {
		issues = append(issues, model.Issue{
			Line:     1,
			Message:  fmt.Sprintf("File is %d lines long; consider splitting it", len(lines)),
			Severity: model.SeverityWarning,
			Category: CategoryMaintainability,
		})
	}

	comments := commentLines(lines)
	rate := 0.0
	if len(lines) > 0 {
		rate = float64(comments) / float64(len(lines))
	}
	if len(lines) >= 30 && rate < minCommentRate {
		issues = append(issues, model.Issue{
			Line:     1,
			Message:  "Very few comments for the size of this file",
			Severity: model.SeverityInfo,
			Category: CategoryDocumentation,
		})
	}

	SortIssues(issues)
	c := Count(issues)
	return model.QualityReport{
		File:    f.Name,
		Summary: summarize(f.Name, c),
		Metrics: map[string]string{
			"Code Quality":    Grade(c),
			"Lines":           strconv.Itoa(len(lines)),
			"Issues":          strconv.Itoa(len(issues)),
			"Comment Density": fmt.Sprintf("%.0f%%", rate*100),
			"Security":        securityLabel(len(secrets)),
		},
		Issues:      issues,
		Suggestions: suggestionsFor(issues),
	}, nil
}

func scanSecrets(text string) ([]model.Issue, error) {
	d, err := secretDetector()
	if err != nil {
		return nil, fmt.Errorf("load secret rules: %w", err)
	}
	var issues []model.Issue
	for _, finding := range d.DetectString(text) {
		line := finding.StartLine
		if line < 1 {
			line = 1
		}
		issues = append(issues, model.Issue{
			Line:     line,
			Message:  fmt.Sprintf("Possible hard-coded secret: %s (%s)", finding.Description, finding.RuleID),
			Severity: model.SeverityError,
			Category: CategorySecurity,
		})
	}
	return issues, nil
}

func lineChecks(lines []string) []model.Issue {
	var long, markers, trailing, indent []model.Issue
	tabs, spaces := 0, 0
	for i, l := range lines {
		n := i + 1
		if w := len([]rune(l)); w > MaxLineLength && len(long) < maxPerCheck {
			long = append(long, model.Issue{Line: n, Message: fmt.Sprintf("Line is %d characters long (limit %d)", w, MaxLineLength), Severity: model.SeverityInfo, Category: CategoryStyle})
		}
		if m := marker.FindString(l); m != "" && len(markers) < maxPerCheck {
			markers = append(markers, model.Issue{Line: n, Message: fmt.Sprintf("Unresolved %s marker", m), Severity: model.SeverityInfo, Category: CategoryMaintainability})
		}
		if l != strings.TrimRight(l, " \t") && len(trailing) < maxPerCheck {
			trailing = append(trailing, model.Issue{Line: n, Message: "Trailing whitespace", Severity: model.SeverityInfo, Category: CategoryStyle})
		}
		switch {
		case strings.HasPrefix(l, "\t"):
			tabs++
			if spaces > 0 && len(indent) == 0 {
				indent = append(indent, model.Issue{Line: n, Message: "Mixed tab and space indentation", Severity: model.SeverityWarning, Category: CategoryCodeSmell})
			}
		case strings.HasPrefix(l, "  "):
			spaces++
			if tabs > 0 && len(indent) == 0 {
				indent = append(indent, model.Issue{Line: n, Message: "Mixed tab and space indentation", Severity: model.SeverityWarning, Category: CategoryCodeSmell})
			}
		}
	}
	out := append(long, markers...)
	out = append(out, trailing...)
	return append(out, indent...)
}

var commentPrefixes = []string{"//", "#", "--", "/*", "*", "<!--", "\"\"\""}

func commentLines(lines []string) int {
	n := 0
	for _, l := range lines {
		t := strings.TrimSpace(l)
		for _, p := range commentPrefixes {
			if strings.HasPrefix(t, p) {
				n++
				break
			}
		}
	}
	return n
}

func securityLabel(findings int) string {
	if findings == 0 {
		return "No findings"
	}
	return fmt.Sprintf("%d finding(s)", findings)
}

var suggestionText = map[string]string{
	CategorySecurity:        "Move secrets out of source code into environment variables or a secret manager, and rotate any exposed credentials",
	CategoryStyle:           "Run a formatter and keep lines short to improve readability",
	CategoryMaintainability: "Resolve outstanding TODO/FIXME markers and split large files into smaller units",
	CategoryDocumentation:   "Add comments explaining the purpose of the main functions and types",
	CategoryCodeSmell:       "Use one indentation style consistently throughout the file",
}

// suggestionsFor returns one suggestion per category present, most severe
// categories first.
func suggestionsFor(issues []model.Issue) []string {
	order := []string{CategorySecurity, CategoryCodeSmell, CategoryMaintainability, CategoryDocumentation, CategoryStyle}
	present := make(map[string]bool)
	for _, i := range issues {
		present[i.Category] = true
	}
	var out []string
	for _, c := range order {
		if present[c] {
			out = append(out, suggestionText[c])
		}
	}
	if len(out) == 0 {
		out = append(out, "No changes needed; consider adding tests for critical functions")
	}
	return out
}
