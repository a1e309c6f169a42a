package cli

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"audite/internal/model"
	"audite/internal/seed"
)

func newSeedCommand(open StoreOpener) *cobra.Command {
	var (
		file   string
		policy string
		dryRun bool
		force  bool
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load categories, forms and questions from a seed file",
		Long: `Upsert every category, form and question of a seed file.
Question ids are prefixed with their form id. The file is linted first and
nothing is written when it has errors, unless --force is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			f, err := seed.ParseFile(file)
			if err != nil {
				return err
			}
			if printReports(out, seed.Lint(f, model.ParsePolicy(policy))) && !force {
				return ErrLintFailed
			}
			if dryRun {
				fmt.Fprintln(out, "dry run: nothing written")
				return nil
			}

			store, closeStore, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()

			sum, err := seed.Apply(cmd.Context(), f, store, time.Now().UTC())
			if err != nil {
				return err
			}
			color.New(color.FgGreen).Fprintf(out, "seeded %d categories, %d forms, %d questions\n",
				sum.Categories, sum.Forms, sum.Questions)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "seed file (YAML)")
	cmd.Flags().StringVar(&policy, "policy", string(model.PolicyFailOpen), "condition policy: fail_open or fail_closed")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "lint only, do not write")
	cmd.Flags().BoolVar(&force, "force", false, "write even when the file has errors")
	cmd.MarkFlagRequired("file")
	return cmd
}
