package generate

import (
	"context"
	"fmt"

	"tekshila/internal/model"
)

// Completer sends a prompt to a language model and returns its text reply.
type Completer interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Gemini generates documentation with a remote model. A README is one call
// over every file; commented code is one call per file.
type Gemini struct {
	Model Completer
}

func (g Gemini) Generate(ctx context.Context, req Request) (model.Artifact, error) {
	srcs, err := readSources(req.Files)
	if err != nil {
		return model.Artifact{}, err
	}
	if len(srcs) == 0 {
		return model.Artifact{}, fmt.Errorf("no files to document")
	}

	if req.Purpose == model.PurposeReadme {
		text, err := g.Model.Generate(ctx, readmePrompt(req.ProjectName, req.Instructions, srcs))
		if err != nil {
			return model.Artifact{}, fmt.Errorf("generate readme: %w", err)
		}
		return assemble(req.Purpose, []model.ArtifactFile{{Path: ReadmePath, Body: text}}), nil
	}

	files := make([]model.ArtifactFile, 0, len(srcs))
	for _, s := range srcs {
		text, err := g.Model.Generate(ctx, commentPrompt(req.Instructions, s))
		if err != nil {
			return model.Artifact{}, fmt.Errorf("comment %s: %w", s.name, err)
		}
		files = append(files, model.ArtifactFile{Path: s.name, Body: firstCodeBlock(text)})
	}
	return assemble(req.Purpose, files), nil
}
