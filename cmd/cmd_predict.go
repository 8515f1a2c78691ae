package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"farm_service/internal/core"
	"farm_service/internal/domain/model"
	"farm_service/internal/infrastructure/mlclient"
)

var predictFlags struct {
	in     featureInput
	server string
}

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Classify one set of measurements",
	Long: `Predicts the risk label for the given measurements. Unset measurements take
their defaults. With --server the prediction is made by a running farm_service
instead of a locally trained model.`,
	RunE: runPredict,
}

func init() {
	addFeatureFlags(predictCmd, &predictFlags.in)
	predictCmd.Flags().StringVar(&predictFlags.server, "server", "", "base URL of a farm_service to predict with")
}

func runPredict(cmd *cobra.Command, _ []string) error {
	v, err := predictFlags.in.features()
	if err != nil {
		return err
	}

	var riskModel core.RiskModel
	if predictFlags.server != "" {
		riskModel = mlclient.NewHTTPClient(predictFlags.server, 0)
	} else {
		repo, err := openRepo(cmd.Context())
		if err != nil {
			return err
		}
		defer repo.Close()
		riskModel = newPredictor(repo)
	}

	pred, err := riskModel.Predict(cmd.Context(), v)
	if err != nil {
		return err
	}
	printPrediction(cmd.OutOrStdout(), pred)
	return nil
}

func printPrediction(out io.Writer, pred model.Prediction) {
	fmt.Fprintf(out, "Risk: %s\n", model.LabelText(pred.Label))
	for _, l := range model.Labels() {
		fmt.Fprintf(out, "  %-6s %.3f\n", l, pred.Probability(l))
	}
}
