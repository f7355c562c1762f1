package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"tekshila/internal/model"
	"tekshila/internal/quality"
	"tekshila/internal/upload"
)

func newAnalyzeCmd(o *options) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "analyze <file>",
		Short: "Analyze one source file for quality issues",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := o.openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := upload.Load(args, a.UploadOptions())
			if err != nil {
				return err
			}
			if len(res.Files) == 0 {
				if len(res.Skipped) > 0 {
					return errors.New(res.Skipped[0])
				}
				return errors.New("no file")
			}
			a.Store.SetQualityFile(res.Files[0])

			a.Pipeline.Subscribe(progress(cmd.ErrOrStderr(), a.Logger))
			if err := a.Pipeline.Analyze(context.Background()); err != nil {
				return err
			}
			r := *a.Store.Get().Report
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(r)
			}
			printReport(cmd.OutOrStdout(), r)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}

func printReport(w io.Writer, r model.QualityReport) {
	fmt.Fprintf(w, "%s\n%s\n\n", r.File, r.Summary)
	for _, k := range quality.SortedMetrics(r) {
		fmt.Fprintf(w, "  %-18s %s\n", k, r.Metrics[k])
	}
	issues := append([]model.Issue(nil), r.Issues...)
	quality.SortIssues(issues)
	if len(issues) > 0 {
		fmt.Fprintf(w, "\nIssues (%d)\n", len(issues))
	}
	for _, is := range issues {
		fmt.Fprintf(w, "  L%-4d %-7s %s [%s]\n", is.Line, is.Severity, is.Message, is.Category)
	}
	if len(r.Suggestions) > 0 {
		fmt.Fprintln(w, "\nSuggestions")
		for _, s := range r.Suggestions {
			fmt.Fprintln(w, "  -", s)
		}
	}
}
