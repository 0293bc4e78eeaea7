package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/reviewloop/insight-engine/internal/app"
	"github.com/reviewloop/insight-engine/internal/config"
)

// newApp wires the engine from the configured settings.
func newApp(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return app.New(ctx, cfg)
}

// tenantID resolves the tenant from the flag, the environment, or the
// configured default, in that order.
func tenantID(engine *app.App) (uuid.UUID, error) {
	raw := tenantArg
	if raw == "" {
		raw = os.Getenv("INSIGHT_TENANT_ID")
	}
	if raw == "" {
		raw = engine.Config.Tenancy.DefaultTenant
	}
	if raw == "" {
		return uuid.Nil, fmt.Errorf("no tenant id: pass --tenant or set INSIGHT_TENANT_ID")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid tenant id %q: %w", raw, err)
	}
	return id, nil
}

func parseProductID(arg string) (uuid.UUID, error) {
	id, err := uuid.Parse(arg)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid product id %q: %w", arg, err)
	}
	return id, nil
}
