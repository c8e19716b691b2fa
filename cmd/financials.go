package main

import (
	"encoding/json"
	"errors"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hirelens-jp/research-cli/internal/financial"
)

var financialsJobInfo string

var financialsCmd = &cobra.Command{
	Use:   "financials <company-name>",
	Short: "Fetch financial data for a single company",
	Long:  "Runs the financial fallback chain (IR document, web profile, estimation) and prints the resulting record as JSON.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		companyName := args[0]

		search := newSearchClient()
		chain := buildChain(search, newLLMClient())

		record, err := chain.Fetch(ctx, companyName)
		if err != nil {
			var fe *financial.Error
			if errors.As(err, &fe) && fe.UseEstimation {
				zap.L().Info("using industry estimation",
					zap.String("company", companyName),
					zap.String("reason", fe.Message))
				record = financial.Estimate(companyName, financialsJobInfo)
			} else {
				return eris.Wrap(err, "fetch financials")
			}
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(record)
	},
}

func init() {
	financialsCmd.Flags().StringVar(&financialsJobInfo, "job-info", "", "job posting text, used to pick an estimation table when sources are exhausted")
	rootCmd.AddCommand(financialsCmd)
}
