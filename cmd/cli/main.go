package main

import (
	"encoding/json"
	"fmt"
	"os"

	"gofunnel/adapters/excel"
	"gofunnel/app"
	"gofunnel/domain/core"
	"gofunnel/domain/funnel"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "gofunnel-cli",
		Short: "Funnel plot control limits from spreadsheet data",
	}

	rootCmd.AddCommand(newRunCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRunCmd() *cobra.Command {
	var (
		dataType      string
		srMethod      string
		trimBy        float64
		multiplier    float64
		limit         int
		noOD          bool
		poissonLimits bool
		highlight     []string
	)

	cmd := &cobra.Command{
		Use:   "run [file]",
		Short: "Run a funnel analysis on a CSV or Excel file",
		Long: `Run a funnel analysis on numerator/denominator/group rows read from a
CSV or Excel file and print the full result as JSON.

Example: gofunnel-cli run admissions.xlsx --data-type SR --sr-method SHMI --limit 95`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := funnel.DefaultParams()
			params.DataType = funnel.DataType(dataType)
			params.SRMethod = funnel.SRMethod(srMethod)
			params.TrimBy = trimBy
			params.Multiplier = multiplier
			params.Limit = funnel.Coverage(limit)
			params.ODAdjust = !noOD
			params.PoissonLimits = poissonLimits
			for _, h := range highlight {
				params.Highlight = append(params.Highlight, core.GroupKey(h))
			}

			service := app.NewAnalysisService(excel.NewObservationReader(), nil, 1)
			result, err := service.Run(cmd.Context(), app.AnalysisRequest{
				Source: args[0],
				Params: params,
			})
			if err != nil {
				return err
			}

			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			return encoder.Encode(result)
		},
	}

	cmd.Flags().StringVar(&dataType, "data-type", "SR", "Indicator type: SR, PR or RC")
	cmd.Flags().StringVar(&srMethod, "sr-method", "CQC", "Transform for standardised ratios: CQC or SHMI")
	cmd.Flags().Float64Var(&trimBy, "trim-by", funnel.DefaultTrimBy, "Tail proportion trimmed before dispersion estimation")
	cmd.Flags().Float64Var(&multiplier, "multiplier", funnel.DefaultMultiplier, "Display multiplier for ratios and limits")
	cmd.Flags().IntVar(&limit, "limit", int(funnel.Coverage99), "Coverage used for outlier classification: 95 or 99")
	cmd.Flags().BoolVar(&noOD, "no-od", false, "Disable the overdispersion adjustment")
	cmd.Flags().BoolVar(&poissonLimits, "poisson-limits", false, "Also report plain Poisson limits when OD-adjusted ones are active")
	cmd.Flags().StringSliceVar(&highlight, "highlight", nil, "Group keys to highlight in the output")

	return cmd
}
