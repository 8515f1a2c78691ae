package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"farm_service/internal/core"
	"farm_service/internal/domain/model"
)

var scoreInput featureInput

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Apply the deterministic scoring rules to one set of measurements",
	RunE: func(cmd *cobra.Command, _ []string) error {
		v, err := scoreInput.features()
		if err != nil {
			return err
		}
		score, label := core.Score(v)
		out := cmd.OutOrStdout()
		for _, c := range core.Explain(v) {
			if c.Points > 0 {
				fmt.Fprintf(out, "  %-18s %8.2f  +%d\n", c.Name, c.Value, c.Points)
			}
		}
		fmt.Fprintf(out, "Score: %d (%s)\n", score, model.LabelText(label))
		return nil
	},
}

func init() {
	addFeatureFlags(scoreCmd, &scoreInput)
}
