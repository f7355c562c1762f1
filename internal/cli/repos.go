package cli

import (
	"context"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"tekshila/internal/app"
	"tekshila/internal/forge"
	"tekshila/internal/model"
)

func newReposCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "repos",
		Short: "List repositories of the connected account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := o.openApp()
			if err != nil {
				return err
			}
			defer a.Close()
			if _, err := a.Pipeline.Restore(); err != nil {
				return err
			}

			repos, err := a.Pipeline.Repositories(context.Background())
			if err != nil {
				return err
			}
			for _, r := range repos {
				fmt.Fprintln(cmd.OutOrStdout(), r)
			}
			return nil
		},
	}
}

func newBranchesCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "branches <owner/repo>",
		Short: "List branches of a repository",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := o.openApp()
			if err != nil {
				return err
			}
			defer a.Close()
			if _, err := a.Pipeline.Restore(); err != nil {
				return err
			}

			repo := model.RepoID(args[0])
			if err := checkRepo(context.Background(), a, repo); err != nil {
				return err
			}
			branches, err := a.Pipeline.Branches(context.Background(), repo)
			if err != nil {
				return err
			}
			for _, b := range branches {
				fmt.Fprintln(cmd.OutOrStdout(), b)
			}
			return nil
		},
	}
}

// checkRepo fails with a suggestion when repo is not one of the account's
// repositories.
func checkRepo(ctx context.Context, a *app.App, repo model.RepoID) error {
	repos, err := a.Pipeline.Repositories(ctx)
	if err != nil {
		return err
	}
	if slices.Contains(repos, repo) {
		return nil
	}
	if s := forge.Suggest(repo, repos); s != "" {
		return fmt.Errorf("unknown repository %q; did you mean %q?", repo, s)
	}
	return fmt.Errorf("unknown repository %q", repo)
}
