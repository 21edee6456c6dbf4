package cmds

import (
	"brokerfront/internal/types"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-yaml"
	log "github.com/sirupsen/logrus"
)

// ReadConfigFile reads and validates a broker config from a YAML file.
func ReadConfigFile(path string) (types.BrokerConfig, error) {
	var cfg types.BrokerConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, types.Err(types.ErrValidation, err, "parse %s", path)
	}
	cfg.Subdomain = strings.ToLower(strings.TrimSpace(cfg.Subdomain))
	if err := cfg.Validate(); err != nil {
		return cfg, types.Err(types.ErrValidation, err, "%s", path)
	}
	return cfg, nil
}

// PutConfig writes the broker config in path to both cache tiers and announces the deployment.
func PutConfig(ctx context.Context, app *App, path string) (types.BrokerConfig, error) {
	cfg, err := ReadConfigFile(path)
	if err != nil {
		return cfg, err
	}
	if err := app.Cache.Set(ctx, cfg.Subdomain, cfg); err != nil {
		return cfg, err
	}
	if err := app.Announcer.Deployed(ctx, cfg); err != nil {
		return cfg, fmt.Errorf("config stored, announce failed: %w", err)
	}
	log.WithFields(log.Fields{
		"tenant": cfg.Subdomain,
		"status": cfg.Status,
	}).Info("Broker config stored")
	return cfg, nil
}

// ClearTenant removes the tenant from both cache tiers and announces it.
func ClearTenant(ctx context.Context, app *App, tenantKey string) error {
	tenantKey = strings.ToLower(strings.TrimSpace(tenantKey))
	if tenantKey == "" {
		return types.Err(types.ErrValidation, nil, "empty tenant key")
	}
	if err := app.Cache.Clear(ctx, tenantKey); err != nil {
		return err
	}
	if err := app.Announcer.Cleared(ctx, tenantKey); err != nil {
		return fmt.Errorf("cache cleared, announce failed: %w", err)
	}
	log.WithField("tenant", tenantKey).Info("Broker config cleared")
	return nil
}
