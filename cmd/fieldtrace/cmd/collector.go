package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fieldtrace/fieldtrace/internal/collector"
)

var (
	collectorHost string
	collectorPort int
)

var collectorCmd = &cobra.Command{
	Use:   "collector",
	Short: "Run a local debug collector",
	Long: `collector serves the two-endpoint upload contract locally and prints
every batch it receives. Point base_url at it to inspect what a device
would send without touching production.`,
	RunE: runCollector,
}

func init() {
	collectorCmd.Flags().StringVar(&collectorHost, "host", "localhost", "listen host")
	collectorCmd.Flags().IntVar(&collectorPort, "port", 8686, "listen port")
	rootCmd.AddCommand(collectorCmd)
}

func runCollector(cmd *cobra.Command, _ []string) error {
	srvCfg := collector.DefaultConfig()
	srvCfg.Host = collectorHost
	srvCfg.Port = collectorPort
	srvCfg.APIKey = cfg.APIKey // empty accepts any key

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return collector.New(srvCfg, logger.Logger).Start(ctx)
}
