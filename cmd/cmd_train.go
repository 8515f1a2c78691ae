package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train the risk classifier once and record the run",
	Long: `Trains on approved checklists when there are enough of them, otherwise on
synthetic data, and stores the run summary in training_runs.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		repo, err := openRepo(cmd.Context())
		if err != nil {
			return err
		}
		defer repo.Close()

		run, err := newPredictor(repo).Train(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Run:      %s\n", run.RunID)
		fmt.Fprintf(out, "Source:   %s (%d rows)\n", run.Source, run.Rows)
		fmt.Fprintf(out, "Classes:  low=%d medium=%d high=%d\n", run.LowCount, run.MediumCount, run.HighCount)
		fmt.Fprintf(out, "Trees:    %d\n", run.Trees)
		fmt.Fprintf(out, "Duration: %dms\n", run.DurationMS)
		return nil
	},
}
