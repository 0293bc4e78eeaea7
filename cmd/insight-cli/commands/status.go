package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reviewloop/insight-engine/cmd/insight-cli/ui"
	"github.com/reviewloop/insight-engine/internal/analysis"
)

func toAnalysisType(arg string) analysis.Type {
	return analysis.Type(arg)
}

var statusCmd = &cobra.Command{
	Use:   "status <product-id>",
	Short: "Show analysis progress for a product",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		engine, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer engine.Close()

		tenant, err := tenantID(engine)
		if err != nil {
			return err
		}
		productID, err := parseProductID(args[0])
		if err != nil {
			return err
		}

		report, err := engine.Orchestrator.Status(ctx, tenant, productID)
		if err != nil {
			return err
		}

		ui.Section("Analysis status")
		if report.IsProcessing {
			ui.Info("a run is currently in progress")
		}
		ui.Info("%d of %d analyses completed", len(report.CompletedTypes), report.TotalExpectedTypes)

		if len(report.Analyses) == 0 {
			ui.Warning("no analyses recorded yet, use 'insight run' to start")
			return nil
		}

		rows := make([][]string, 0, len(report.Analyses))
		for _, a := range report.Analyses {
			detail := ""
			if a.Error != nil {
				detail = *a.Error
			}
			rows = append(rows, []string{
				string(a.Type),
				ui.StatusLabel(string(a.Status)),
				a.UpdatedAt.Format("2006-01-02 15:04"),
				detail,
			})
		}
		ui.Table([]string{"TYPE", "STATUS", "UPDATED", "ERROR"}, rows)

		if len(report.FailedTypes) > 0 {
			fmt.Println()
			ui.Warning("retry failed analyses with 'insight retry %s <type>'", productID)
		}
		return nil
	},
}
