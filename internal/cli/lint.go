package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"audite/internal/model"
	"audite/internal/seed"
)

// ErrLintFailed is returned when a seed file has blocking problems
var ErrLintFailed = errors.New("seed file has errors")

// NewLintCommand creates the 'auditectl lint' command
func NewLintCommand() *cobra.Command {
	var (
		file   string
		policy string
	)

	cmd := &cobra.Command{
		Use:   "lint",
		Short: "Check a seed file without touching the database",
		Long: `Validate every form of a seed file offline:
  - question fields (prompt, kind, options)
  - parent references, ordering and cycles
  - condition operators and stale option values`,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := seed.ParseFile(file)
			if err != nil {
				return err
			}
			reports := seed.Lint(f, model.ParsePolicy(policy))
			if printReports(cmd.OutOrStdout(), reports) {
				return ErrLintFailed
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "seed file (YAML)")
	cmd.Flags().StringVar(&policy, "policy", string(model.PolicyFailOpen), "condition policy: fail_open or fail_closed")
	cmd.MarkFlagRequired("file")
	return cmd
}

// printReports writes one block per form and reports whether any form has errors
func printReports(w io.Writer, reports []seed.FormReport) bool {
	cyan := color.New(color.FgCyan, color.Bold)
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	yellow := color.New(color.FgYellow)

	failed := false
	for _, r := range reports {
		a := r.Analysis
		cyan.Fprintf(w, "%s\n", r.FormID)
		fmt.Fprintf(w, "  questions: %d (root %d, conditional %d, %.1f%%)\n",
			a.TotalQuestions, a.RootQuestions, a.ConditionalQuestions, a.ConditionalPercent)

		for _, issue := range r.Issues {
			red.Fprintf(w, "  error   %s %s: %s\n", issue.QuestionID, issue.Code, issue.Message)
		}
		for _, p := range a.Problems {
			for _, issue := range p.Errors {
				red.Fprintf(w, "  error   %s %s: %s\n", p.QuestionID, issue.Code, issue.Message)
			}
			for _, issue := range p.Warnings {
				yellow.Fprintf(w, "  warning %s %s: %s\n", p.QuestionID, issue.Code, issue.Message)
			}
		}

		if r.HasErrors() {
			failed = true
		} else {
			green.Fprintln(w, "  ok")
		}
	}
	return failed
}
