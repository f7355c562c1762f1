package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"tekshila/internal/app"
	"tekshila/internal/artifact"
	"tekshila/internal/model"
	"tekshila/internal/pipeline"
	"tekshila/internal/upload"
)

type generateFlags struct {
	purpose      purposeValue
	project      string
	instructions string
	out          string
	copy         bool
	diff         bool
}

func newGenerateCmd(o *options) *cobra.Command {
	f := &generateFlags{}
	cmd := &cobra.Command{
		Use:   "generate <path>...",
		Short: "Generate a README or commented code for files, folders or zip archives",
		Example: `  tekshila generate --project shop ./src
  tekshila generate -p comments main.go util.go --out ./commented
  tekshila generate --project api api.zip --copy`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := o.openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			a.Pipeline.Subscribe(progress(cmd.ErrOrStderr(), a.Logger))
			if err := generateInto(cmd, a, args, f); err != nil {
				return err
			}
			return writeArtifact(cmd, a, f)
		},
	}
	addPurposeFlag(cmd.Flags(), &f.purpose)
	cmd.Flags().StringVar(&f.project, "project", "", "project name (required for a README)")
	cmd.Flags().StringVar(&f.instructions, "instructions", "", "extra instructions for the generator")
	cmd.Flags().StringVarP(&f.out, "out", "o", "", "write to this file (README) or directory (commented code) instead of stdout")
	cmd.Flags().BoolVar(&f.copy, "copy", false, "also copy the result to the clipboard")
	cmd.Flags().BoolVar(&f.diff, "diff", false, "print commented code as a diff against the input")
	return cmd
}

// loadInto expands paths and adds the files to the session's upload set.
func loadInto(cmd *cobra.Command, a *app.App, paths []string) error {
	res, err := upload.Load(paths, a.UploadOptions())
	if err != nil {
		return err
	}
	for _, s := range res.Skipped {
		fmt.Fprintln(cmd.ErrOrStderr(), "skipped", s)
	}
	a.Store.AddFiles(res.Files)
	return nil
}

func generateInto(cmd *cobra.Command, a *app.App, paths []string, f *generateFlags) error {
	if err := loadInto(cmd, a, paths); err != nil {
		return err
	}
	a.Store.SetPurpose(model.Purpose(f.purpose))
	return a.Pipeline.Generate(context.Background(), pipeline.GenerateInput{
		ProjectName:  f.project,
		Instructions: f.instructions,
	})
}

func writeArtifact(cmd *cobra.Command, a *app.App, f *generateFlags) error {
	s := a.Store.Get()
	art := *s.Artifact
	w := cmd.OutOrStdout()

	switch {
	case f.out != "" && len(art.Files) > 1:
		paths, err := artifact.SaveAll(art, f.out)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, "wrote", strings.Join(paths, ", "))
	case f.out != "":
		if err := artifact.Save(art, f.out); err != nil {
			return err
		}
		fmt.Fprintln(w, "wrote", f.out)
	case f.diff && art.Kind == model.ArtifactCommentedCode:
		for _, file := range art.Files {
			before, err := original(s.Uploads, file.Path)
			if err != nil {
				return err
			}
			lines := artifact.Diff(before, file.Body)
			added, removed := artifact.Stats(lines)
			fmt.Fprintf(w, "=== %s (+%d -%d)\n%s\n", file.Path, added, removed, artifact.Unified(lines))
		}
	case len(art.Files) > 1:
		for _, file := range art.Files {
			fmt.Fprintf(w, "=== %s\n%s\n", file.Path, file.Body)
		}
	default:
		fmt.Fprintln(w, art.Body)
	}

	if f.copy {
		if err := artifact.Copy(art); err != nil {
			return err
		}
		fmt.Fprintln(cmd.ErrOrStderr(), "Copied to clipboard!")
	}
	return nil
}

func original(uploads []model.FileRef, name string) (string, error) {
	for _, u := range uploads {
		if u.Name == name {
			data, err := u.ReadAll()
			return string(data), err
		}
	}
	return "", errors.New(name + ": no matching input")
}
