package commands

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/reviewloop/insight-engine/cmd/insight-cli/ui"
	"github.com/reviewloop/insight-engine/internal/storage"
)

var (
	productName        string
	productVersion     string
	productCompetitors []string
)

var productCmd = &cobra.Command{
	Use:   "product",
	Short: "Manage products",
}

var productCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Register a product with its competitors",
	RunE: func(cmd *cobra.Command, args []string) error {
		if productName == "" {
			return fmt.Errorf("--name is required")
		}
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

		product := &storage.Product{
			ID:       uuid.New(),
			TenantID: tenant,
			Name:     productName,
			Version:  productVersion,
		}
		if err := engine.Repos.Products.Create(ctx, product); err != nil {
			return fmt.Errorf("create product: %w", err)
		}
		for _, name := range productCompetitors {
			c := &storage.Competitor{ID: uuid.New(), ProductID: product.ID, Name: name}
			if err := engine.Repos.Competitors.Create(ctx, c); err != nil {
				return fmt.Errorf("create competitor %q: %w", name, err)
			}
		}

		ui.Success("created product %s", product.ID)
		if len(productCompetitors) > 0 {
			ui.Info("%d competitors registered", len(productCompetitors))
		}
		return nil
	},
}

var productListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the tenant's products",
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

		products, err := engine.Repos.Products.ListByTenant(ctx, tenant)
		if err != nil {
			return fmt.Errorf("list products: %w", err)
		}
		if len(products) == 0 {
			ui.Warning("no products yet, use 'insight product create'")
			return nil
		}

		rows := make([][]string, 0, len(products))
		for _, p := range products {
			processing := ""
			if p.IsProcessing {
				processing = "processing"
			}
			rows = append(rows, []string{p.ID.String(), p.Name, p.Version, processing})
		}
		ui.Table([]string{"ID", "NAME", "VERSION", ""}, rows)
		return nil
	},
}

func init() {
	productCreateCmd.Flags().StringVarP(&productName, "name", "n", "", "product name")
	productCreateCmd.Flags().StringVar(&productVersion, "version", "", "ingestion version tag")
	productCreateCmd.Flags().StringArrayVar(&productCompetitors, "competitor", nil, "competitor name (repeatable)")

	productCmd.AddCommand(productCreateCmd)
	productCmd.AddCommand(productListCmd)
}
