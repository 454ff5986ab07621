package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"inspect-mcp/internal/config"
	"inspect-mcp/internal/logging"
	"inspect-mcp/internal/mcp"
	"inspect-mcp/internal/metrics"
)

var (
	// Version, Commit, and BuildDate are set at build time via ldflags.
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"

	verbose bool
	cfg     *config.AppConfig
)

var rootCmd = &cobra.Command{
	Use:   "inspect-mcp",
	Short: "inspect-mcp is an MCP server for recurring safety-equipment inspections",
	Long: `An MCP server that tells an operator which safety equipment is due for inspection,
evaluates submitted checks against per-item thresholds and folds them into daily reports.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := logging.Init(verbose); err != nil {
			return err
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}

		log.Info().
			Str("version", Version).
			Str("commit", Commit).
			Str("buildDate", BuildDate).
			Str("store", cfg.Backend).
			Msg("inspect-mcp starting")
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		rt, err := buildRuntime(ctx, cfg)
		if err != nil {
			return err
		}
		defer rt.Close()

		if cfg.MetricsAddr != "" {
			go metrics.Serve(ctx, cfg.MetricsAddr, rt.registry)
		}

		server, err := mcp.NewServer(rt.engine, mcp.Options{
			Version:       Version,
			MermaidCharts: cfg.EnableMermaidCharts,
		})
		if err != nil {
			return err
		}
		return server.Serve(ctx)
	},
}

func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.AddCommand(statusCmd, versionCmd)
}
