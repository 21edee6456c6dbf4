package cmds

import (
	"brokerfront/internal/backends"
	"brokerfront/internal/config"
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// NewRootCmd builds the brokerfront command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "brokerfront",
		Short:         "Tenant bootstrap edge service for the broker platform",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd(), newPutConfigCmd(), newClearCmd())
	return root
}

func newServeCmd() *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the application shell and the bootstrap API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			app, err := appFromEnv(ctx)
			if err != nil {
				return err
			}
			if port > 0 {
				app.Settings.Port = port
			}
			return Serve(ctx, app)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port, overrides "+config.PortKey)
	return cmd
}

func newPutConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "put-config <file.yml>",
		Short: "Validate a broker config and write it to the cache tiers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFromEnv(cmd.Context())
			if err != nil {
				return err
			}
			cfg, err := PutConfig(cmd.Context(), app, args[0])
			if err != nil {
				return err
			}
			cmd.Printf("stored %s (%s)\n", cfg.Subdomain, cfg.Status)
			return nil
		},
	}
}

func newClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear <tenant>",
		Short: "Remove a tenant from both cache tiers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFromEnv(cmd.Context())
			if err != nil {
				return err
			}
			if err := ClearTenant(cmd.Context(), app, args[0]); err != nil {
				return err
			}
			cmd.Printf("cleared %s\n", args[0])
			return nil
		},
	}
}

func appFromEnv(ctx context.Context) (*App, error) {
	s, err := config.FromEnv()
	if err != nil {
		return nil, err
	}
	durable, err := backends.DurableBackendFromEnv(ctx)
	if err != nil {
		return nil, err
	}
	return NewApp(ctx, s, durable, nil)
}
