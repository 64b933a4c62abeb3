package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jihwankim/rtac/internal/metrics"
	"github.com/spf13/cobra"
)

var serveMetricsCmd = &cobra.Command{
	Use:   "serve-metrics",
	Args:  cobra.NoArgs,
	Short: "Expose the Prometheus metrics endpoint standalone",
	Long: `Serves an empty metrics registry on the configured address until
interrupted. Useful for checking scrape wiring before a long run; during a
run the same endpoint is served in-process when metrics are enabled.`,
	RunE: serveMetrics,
}

func init() {
	serveMetricsCmd.Flags().String("addr", "", "listen address (overrides config)")
}

func serveMetrics(cmd *cobra.Command, args []string) error {
	addr, _ := cmd.Flags().GetString("addr")

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if addr == "" {
		addr = cfg.Metrics.Addr
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	fmt.Printf("Serving metrics on %s/metrics\n", addr)
	return metrics.New().Serve(ctx, addr)
}
