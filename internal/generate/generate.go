// Package generate produces README documentation or commented copies of the
// uploaded source files.
package generate

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"tekshila/internal/model"
	"tekshila/internal/upload"
)

// Request is one generation job.
type Request struct {
	Files        []model.FileRef
	Purpose      model.Purpose
	ProjectName  string // used for README generation
	Instructions string // free-form extra instructions, may be empty
}

// Service is the generation collaborator the pipeline calls.
type Service interface {
	Generate(ctx context.Context, req Request) (model.Artifact, error)
}

// ReadmePath is where README artifacts are committed.
const ReadmePath = "README.md"

type source struct {
	name string
	body string
}

func readSources(files []model.FileRef) ([]source, error) {
	out := make([]source, 0, len(files))
	for _, f := range files {
		b, err := f.ReadAll()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f.Name, err)
		}
		out = append(out, source{name: f.Name, body: string(b)})
	}
	return out, nil
}

// readmePrompt builds the README prompt. Several files are sent as one
// document with a heading per file.
func readmePrompt(project, instructions string, srcs []source) string {
	var b strings.Builder
	var body string
	if len(srcs) == 1 {
		b.WriteString("You are an AI documentation assistant. Generate a technical README for the following code:")
		body = srcs[0].body
	} else {
		fmt.Fprintf(&b, "You are an AI documentation assistant. Generate a technical README for the project '%s':", project)
		sections := make([]string, 0, len(srcs))
		for _, s := range srcs {
			ext := upload.Ext(s.name)
			sections = append(sections, fmt.Sprintf("## File: %s (%s)\n```%s\n%s\n```", s.name, upload.Language(s.name), ext, s.body))
		}
		body = strings.Join(sections, "\n\n")
	}
	if instructions != "" {
		b.WriteString("\n\nAdditional instructions: " + instructions)
	}
	b.WriteString("\n\n")
	b.WriteString(body)
	return b.String()
}

// commentPrompt builds the per-file prompt for commented code.
func commentPrompt(instructions string, s source) string {
	ext := upload.Ext(s.name)
	p := fmt.Sprintf("You are an AI assistant. Add comments to this %s code:\n```%s\n%s\n```", upload.Language(s.name), ext, s.body)
	if instructions != "" {
		p += "\n\nAdditional instructions: " + instructions
	}
	return p
}

var fence = regexp.MustCompile("(?s)```[\\w+-]*\\n(.*?)```")

// firstCodeBlock returns the body of the first fenced block in text, or text
// itself when it has none.
func firstCodeBlock(text string) string {
	if m := fence.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return text
}

// assemble builds the artifact for the given purpose from per-file output.
func assemble(p model.Purpose, files []model.ArtifactFile) model.Artifact {
	a := model.Artifact{Kind: model.KindFor(p), Files: files}
	if len(files) > 0 {
		a.Body = files[0].Body
	}
	return a
}
