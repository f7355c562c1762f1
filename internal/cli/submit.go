package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"tekshila/internal/model"
)

func newSubmitCmd(o *options) *cobra.Command {
	var (
		gen    generateFlags
		repo   string
		branch string
		title  string
		desc   string
		commit string
	)
	cmd := &cobra.Command{
		Use:   "submit <path>...",
		Short: "Generate documentation and open a pull request with it",
		Long: `Generates a README or commented code for the given paths, then commits the
result to a fresh auto-docs-* branch of --repo and opens a pull request
against --branch. Requires a stored connection (see "tekshila connect").`,
		Example: `  tekshila submit --project shop --repo me/shop ./src
  tekshila submit -p comments --repo me/shop --branch develop main.go`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := o.openApp()
			if err != nil {
				return err
			}
			defer a.Close()
			if _, err := a.Pipeline.Restore(); err != nil {
				return err
			}

			d := a.Draft()
			override(&d.Title, title)
			override(&d.Description, desc)
			override(&d.CommitMessage, commit)
			override(&d.TargetBranch, branch)
			if repo != "" {
				d.TargetRepo = model.RepoID(repo)
			}

			ctx := context.Background()
			if a.Store.Get().Connection != nil && d.TargetRepo != "" {
				if err := checkRepo(ctx, a, d.TargetRepo); err != nil {
					return err
				}
			}

			a.Pipeline.Subscribe(progress(cmd.ErrOrStderr(), a.Logger))
			if err := generateInto(cmd, a, args, &gen); err != nil {
				return err
			}
			if err := a.Pipeline.SubmitChangeRequest(ctx, d); err != nil {
				return err
			}
			ref := a.Store.Get().LastChange
			fmt.Fprintf(cmd.OutOrStdout(), "Pull request created: %s\n", ref.URL)
			return nil
		},
	}
	addPurposeFlag(cmd.Flags(), &gen.purpose)
	cmd.Flags().StringVar(&gen.project, "project", "", "project name (required for a README)")
	cmd.Flags().StringVar(&gen.instructions, "instructions", "", "extra instructions for the generator")
	cmd.Flags().StringVar(&repo, "repo", "", "target repository as owner/name (default: detected from origin)")
	cmd.Flags().StringVar(&branch, "branch", "", "base branch (default: the repository's default branch)")
	cmd.Flags().StringVar(&title, "title", "", "pull request title")
	cmd.Flags().StringVar(&desc, "description", "", "pull request description")
	cmd.Flags().StringVar(&commit, "commit-message", "", "commit message")
	return cmd
}

func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
