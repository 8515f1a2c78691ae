package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"farm_service/internal/core"
)

var recomputeCmd = &cobra.Command{
	Use:   "recompute",
	Short: "Recompute every barn's risk level from its latest approved checklist",
	RunE: func(cmd *cobra.Command, _ []string) error {
		repo, err := openRepo(cmd.Context())
		if err != nil {
			return err
		}
		defer repo.Close()

		service := core.NewPredictionService(repo, newPredictor(repo), core.WithAlerts(cfg.Alerts))
		res, err := service.RecomputeAllBarnRisks(cmd.Context())
		fmt.Fprintln(cmd.OutOrStdout(), res.Message)
		return err
	},
}
