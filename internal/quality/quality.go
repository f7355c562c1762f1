// Package quality produces code-quality reports for a single file.
package quality

import (
	"context"
	"fmt"
	"sort"

	"tekshila/internal/model"
)

// Service is the quality collaborator the pipeline calls.
type Service interface {
	Analyze(ctx context.Context, f model.FileRef) (model.QualityReport, error)
}

// Categories used in issues.
const (
	CategorySecurity        = "security"
	CategoryStyle           = "style"
	CategoryMaintainability = "maintainability"
	CategoryDocumentation   = "documentation"
	CategoryCodeSmell       = "code_smell"
)

// Counts holds issue totals per severity.
type Counts struct {
	Errors, Warnings, Infos int
}

// Count tallies issues by severity.
func Count(issues []model.Issue) Counts {
	var c Counts
	for _, i := range issues {
		switch i.Severity {
		case model.SeverityError:
			c.Errors++
		case model.SeverityWarning:
			c.Warnings++
		default:
			c.Infos++
		}
	}
	return c
}

// Grade maps issue counts to a letter grade.
func Grade(c Counts) string {
	score := 100 - 25*c.Errors - 5*c.Warnings - c.Infos
	switch {
	case score >= 90:
		return "A"
	case score >= 80:
		return "B"
	case score >= 70:
		return "C"
	case score >= 60:
		return "D"
	default:
		return "F"
	}
}

// SortedMetrics returns the metric keys of r in display order.
func SortedMetrics(r model.QualityReport) []string {
	keys := make([]string, 0, len(r.Metrics))
	for k := range r.Metrics {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SortIssues orders issues by line, then severity (errors first).
func SortIssues(issues []model.Issue) {
	rank := map[model.Severity]int{model.SeverityError: 0, model.SeverityWarning: 1, model.SeverityInfo: 2}
	sort.SliceStable(issues, func(a, b int) bool {
		if issues[a].Line != issues[b].Line {
			return issues[a].Line < issues[b].Line
		}
		return rank[issues[a].Severity] < rank[issues[b].Severity]
	})
}

func summarize(name string, c Counts) string {
	total := c.Errors + c.Warnings + c.Infos
	if total == 0 {
		return fmt.Sprintf("%s looks clean: no issues found.", name)
	}
	return fmt.Sprintf("%s has %d issue(s): %d error(s), %d warning(s), %d info. Grade %s.",
		name, total, c.Errors, c.Warnings, c.Infos, Grade(c))
}
