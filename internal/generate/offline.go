package generate

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"text/template"

	"tekshila/internal/model"
	"tekshila/internal/upload"
)

// Offline produces deterministic documentation without any network call.
type Offline struct{}

var readmeTmpl = template.Must(template.New("readme").Funcs(template.FuncMap{
	"lower":    strings.ToLower,
	"language": upload.Language,
}).Parse(`# {{.Project}}

## Overview
{{.Project}} is a modern application built with cutting-edge technologies. This project demonstrates best practices in software development and provides a solid foundation for scalable applications.

## Features
- 🚀 High performance and optimized code
- 📱 Responsive design for all devices
- 🔒 Security-first approach
- 🧪 Comprehensive testing suite
- 📚 Well-documented codebase
{{if .Files}}
## Project Structure
{{range .Files}}- ` + "`{{.Name}}`" + ` ({{language .Name}})
{{end}}{{end}}
## Installation

` + "```bash" + `
# Clone the repository
git clone https://github.com/username/{{lower .Project}}.git

# Navigate to project directory
cd {{lower .Project}}
` + "```" + `

## Usage
Detailed usage instructions and examples will be provided here.
{{if .Instructions}}
## Notes
{{.Instructions}}
{{end}}
## Contributing
We welcome contributions! Please read our contributing guidelines before submitting pull requests.

## License
This project is licensed under the MIT License - see the LICENSE file for details.
`))

func (Offline) Generate(ctx context.Context, req Request) (model.Artifact, error) {
	if err := ctx.Err(); err != nil {
		return model.Artifact{}, err
	}
	if req.Purpose == model.PurposeReadme {
		project := strings.TrimSpace(req.ProjectName)
		if project == "" {
			project = "Project"
		}
		var b strings.Builder
		err := readmeTmpl.Execute(&b, struct {
			Project      string
			Files        []model.FileRef
			Instructions string
		}{project, req.Files, req.Instructions})
		if err != nil {
			return model.Artifact{}, fmt.Errorf("render readme: %w", err)
		}
		return assemble(req.Purpose, []model.ArtifactFile{{Path: ReadmePath, Body: b.String()}}), nil
	}

	srcs, err := readSources(req.Files)
	if err != nil {
		return model.Artifact{}, err
	}
	files := make([]model.ArtifactFile, 0, len(srcs))
	for _, s := range srcs {
		files = append(files, model.ArtifactFile{Path: s.name, Body: annotate(s)})
	}
	return assemble(req.Purpose, files), nil
}

// declaration matches the start of a function, method or type in the
// supported languages.
var declaration = regexp.MustCompile(`^(\s*)(?:export\s+)?(?:async\s+)?(func|def|function|class|fn|type|interface)\s+(?:\([^)]*\)\s*)?([A-Za-z_][\w]*)`)

// annotate adds a header and a comment above each declaration, using the
// file's line-comment syntax. Files without one are returned unchanged.
func annotate(s source) string {
	start, end := commentSyntax(upload.Ext(s.name))
	if start == "" {
		return s.body
	}
	line := func(indent, text string) string {
		if end != "" {
			return indent + start + " " + text + " " + end
		}
		return indent + start + " " + text
	}

	var out []string
	out = append(out, line("", fmt.Sprintf("%s (%s)", s.name, upload.Language(s.name))))
	out = append(out, line("", "Comments generated in offline mode."), "")
	for _, l := range strings.Split(s.body, "\n") {
		if m := declaration.FindStringSubmatch(l); m != nil {
			out = append(out, line(m[1], describe(m[2], m[3])))
		}
		out = append(out, l)
	}
	return strings.Join(out, "\n")
}

func describe(keyword, name string) string {
	switch keyword {
	case "class", "type", "interface":
		return fmt.Sprintf("%s defines the %s type.", name, name)
	default:
		return fmt.Sprintf("%s performs the %s step.", name, name)
	}
}

func commentSyntax(ext string) (start, end string) {
	switch ext {
	case "py", "sh", "rb", "yml", "yaml":
		return "#", ""
	case "sql":
		return "--", ""
	case "html", "xml", "md":
		return "<!--", "-->"
	case "css":
		return "/*", "*/"
	case "json", "txt":
		return "", ""
	default:
		return "//", ""
	}
}
