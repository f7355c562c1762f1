// Package cli defines the tekshila command line.
package cli

import (
	"fmt"
	"io"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"tekshila/internal/app"
	"tekshila/internal/config"
	"tekshila/internal/pipeline"
	"tekshila/internal/tui"
)

var (
	appVersion = "dev"
	appCommit  = "none"
	appDate    = "unknown"
)

// SetVersionInfo sets the version information injected via ldflags.
func SetVersionInfo(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

// options are the persistent flags shared by every command.
type options struct {
	configPath string
	dir        string
}

// openApp loads configuration and wires the application.
func (o *options) openApp() (*app.App, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	return app.New(cfg, app.Options{Dir: o.dir})
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	o := &options{}
	root := &cobra.Command{
		Use:   "tekshila",
		Short: "AI documentation, code quality and pull requests from your terminal",
		Long: `Tekshila generates README files or commented source code for the files you
add, analyzes code quality, and opens a pull request with the result on
GitHub or GitLab.

Without a subcommand it starts the interactive interface.`,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := o.openApp()
			if err != nil {
				return err
			}
			defer a.Close()
			if _, err := a.Pipeline.Restore(); err != nil {
				a.Surface.Error(err)
			}
			_, err = tea.NewProgram(tui.New(a), tea.WithAltScreen()).Run()
			return err
		},
	}
	root.PersistentFlags().StringVar(&o.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/tekshila/config.yaml)")
	root.PersistentFlags().StringVarP(&o.dir, "dir", "C", "", "repository directory used to detect the host (default: current directory)")

	root.AddCommand(
		newGenerateCmd(o),
		newAnalyzeCmd(o),
		newConnectCmd(o),
		newDisconnectCmd(o),
		newReposCmd(o),
		newBranchesCmd(o),
		newSubmitCmd(o),
		newMCPCmd(o),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "tekshila %s\ncommit: %s\nbuilt:  %s\n", appVersion, appCommit, appDate)
		},
	}
}

// progress prints busy indicators to w while commands run.
func progress(w io.Writer, log *slog.Logger) pipeline.Observer {
	return pipeline.ObserverFunc(func(e pipeline.Event) {
		if e.Phase != pipeline.PhasePending {
			return
		}
		switch e.Kind {
		case pipeline.KindGenerate:
			fmt.Fprintln(w, "Generating documentation...")
		case pipeline.KindAnalyze:
			fmt.Fprintln(w, "Analyzing code quality...")
		case pipeline.KindAuthenticate:
			fmt.Fprintln(w, "Authenticating...")
		case pipeline.KindSubmit:
			fmt.Fprintln(w, "Creating pull request...")
		}
		log.Debug("cli progress", slog.String("kind", e.Kind.String()), slog.String("job_id", e.JobID))
	})
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
