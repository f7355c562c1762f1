package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"tekshila/internal/app"
)

func newConnectCmd(o *options) *cobra.Command {
	var token string
	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Authenticate with the repository host and remember the token",
		Long: `Validates a personal access token against the host and stores it,
encrypted, so later commands and the interface start connected.

Without --token the token is prompted for, or read from stdin when it is
not a terminal.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := o.openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if token == "" {
				token, err = readToken(cmd.InOrStdin(), app.HostName(a.Detection.Host.Kind()))
				if err != nil {
					return err
				}
			}

			a.Pipeline.Subscribe(progress(cmd.ErrOrStderr(), a.Logger))
			if err := a.Pipeline.Authenticate(context.Background(), token); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Welcome, %s!\n", a.Store.Get().Connection.Identity.Label())
			return nil
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "personal access token")
	return cmd
}

func readToken(in io.Reader, host string) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		var token string
		err := huh.NewInput().
			Title("Personal access token for " + host).
			EchoMode(huh.EchoModePassword).
			Value(&token).
			Run()
		return strings.TrimSpace(token), err
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func newDisconnectCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "disconnect",
		Short: "Forget the stored token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := o.openApp()
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.Pipeline.Disconnect(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Disconnected")
			return nil
		},
	}
}
