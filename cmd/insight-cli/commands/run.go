package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reviewloop/insight-engine/cmd/insight-cli/ui"
	"github.com/reviewloop/insight-engine/internal/orchestrator"
)

var runCmd = &cobra.Command{
	Use:   "run <product-id>",
	Short: "Run the full analysis catalog for a product",
	Long: `Runs every analysis type in catalog order for the product, pacing calls
to stay under external rate limits. Individual analysis failures are reported
at the end without aborting the run.`,
	Args: cobra.ExactArgs(1),
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

		spin := ui.NewSpinner("running analysis catalog (this takes several minutes)...")
		spin.Start()
		summary, err := engine.Orchestrator.RunAll(ctx, tenant, productID)
		spin.Stop()
		if err != nil {
			return err
		}

		ui.Section("Analysis run")
		rows := make([][]string, 0, len(summary.Steps))
		for _, step := range summary.Steps {
			detail := ""
			if step.Err != nil {
				detail = step.Err.Error()
			}
			rows = append(rows, []string{string(step.Type), ui.StatusLabel(string(step.Outcome)), detail})
		}
		ui.Table([]string{"TYPE", "OUTCOME", "DETAIL"}, rows)

		if summary.Success {
			ui.Success("%d of %d analyses completed", len(summary.Completed), len(summary.Steps))
		} else {
			ui.Error("no analyses completed")
		}
		for _, msg := range summary.Errors {
			ui.Warning("%s", msg)
		}
		if !summary.Success {
			return fmt.Errorf("analysis run produced no completed analyses")
		}
		return nil
	},
}

var retryCmd = &cobra.Command{
	Use:   "retry <product-id> <analysis-type>",
	Short: "Retry a single analysis type",
	Long: `Re-runs one analysis type for the product, overwriting its previous
result in place. Prerequisites for smart_competition are not re-checked;
make sure its four prerequisite analyses are completed first.`,
	Args: cobra.ExactArgs(2),
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

		spin := ui.NewSpinner(fmt.Sprintf("running %s...", args[1]))
		spin.Start()
		step, err := engine.Orchestrator.RunOne(ctx, tenant, productID, toAnalysisType(args[1]))
		spin.Stop()
		if err != nil {
			return err
		}

		switch step.Outcome {
		case orchestrator.OutcomeCompleted:
			ui.Success("%s completed", step.Type)
		case orchestrator.OutcomeEmptyPool:
			ui.Warning("%s skipped: no reviews available", step.Type)
		default:
			ui.Error("%s %s: %v", step.Type, step.Outcome, step.Err)
			return fmt.Errorf("analysis %s did not complete", step.Type)
		}
		return nil
	},
}
