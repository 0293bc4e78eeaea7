// Package commands implements the Insight Engine CLI.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/reviewloop/insight-engine/cmd/insight-cli/ui"
)

var (
	cfgFile   string
	tenantArg string
	noColor   bool
)

var rootCmd = &cobra.Command{
	Use:   "insight",
	Short: "Insight Engine - review analysis for products",
	Long: `The Insight Engine CLI loads customer reviews into the vector index and
runs the analysis catalog (sentiment, SWOT, personas, competition and more)
for a product, storing the results for the API to serve.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		ui.Init(noColor)
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().StringVarP(&tenantArg, "tenant", "t", "", "tenant id (or INSIGHT_TENANT_ID)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(productCmd)
	rootCmd.AddCommand(loadCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(retryCmd)
	rootCmd.AddCommand(statusCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
