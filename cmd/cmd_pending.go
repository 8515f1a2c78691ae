package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"farm_service/internal/core"
	"farm_service/internal/domain/model"
)

var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List checklists awaiting approval",
	RunE: func(cmd *cobra.Command, _ []string) error {
		repo, err := openRepo(cmd.Context())
		if err != nil {
			return err
		}
		defer repo.Close()

		checklists, err := repo.PendingChecklists(cmd.Context())
		if err != nil {
			return err
		}
		printPending(cmd.OutOrStdout(), checklists)
		return nil
	},
}

// printPending writes one line per checklist with its rule score.
func printPending(w io.Writer, checklists []model.Checklist) {
	if len(checklists) == 0 {
		fmt.Fprintln(w, "No checklists awaiting approval")
		return
	}
	for _, c := range checklists {
		score, label := core.Score(c.Features())
		fmt.Fprintf(w, "#%-6d barn %-6d %s  score %2d (%s)\n",
			c.ID, c.BarnID, c.SubmittedAt.UTC().Format(time.RFC3339), score, model.LabelText(label))
	}
}
