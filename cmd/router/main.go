// Command router runs the static IPv4 forwarding engine against a set of
// named network interfaces and a pre-loaded routing table.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/Ana-Mirza/dataplane-router/internal/forwarder"
	"github.com/Ana-Mirza/dataplane-router/internal/linkdriver"
	"github.com/Ana-Mirza/dataplane-router/internal/rtable"
)

var (
	logLevel    string
	logFormat   string
	metricsAddr string
)

var rootCmd = &cobra.Command{
	Use:   "router <rtable-file> <iface0> [iface1...]",
	Short: "Static IPv4 software router",
	Long: `router forwards IPv4 datagrams between a fixed set of network
interfaces according to a routing table loaded once at startup, resolving
next-hop link addresses via ARP, answering ICMP echo requests addressed to
its own interfaces, and sending ICMP destination-unreachable and
time-exceeded messages for datagrams it cannot forward.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runRouter,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text, json)")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "address to serve Prometheus metrics on (empty disables the listener)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runRouter(cmd *cobra.Command, args []string) error {
	log, err := newLogger(logLevel, logFormat)
	if err != nil {
		return err
	}

	rtablePath, ifaceNames := args[0], args[1:]

	f, err := os.Open(rtablePath)
	if err != nil {
		log.Error("failed to open routing table file", "path", rtablePath, "error", err)
		os.Exit(1)
	}
	table, err := rtable.Load(f)
	f.Close()
	if err != nil {
		log.Error("failed to parse routing table", "path", rtablePath, "error", err)
		os.Exit(1)
	}
	log.Info("loaded routing table", "path", rtablePath, "routes", table.Len())

	driver, err := linkdriver.Open(ifaceNames)
	if err != nil {
		log.Error("failed to bind interfaces", "interfaces", ifaceNames, "error", err)
		os.Exit(1)
	}
	defer driver.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if metricsAddr != "" {
		go serveMetrics(log, metricsAddr)
	}

	engine := forwarder.New(driver, table, log)
	log.Info("router started", "interfaces", ifaceNames)
	if err := engine.Run(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("forwarding engine: %w", err)
	}
	log.Info("router shutdown complete")
	return nil
}

func serveMetrics(log *slog.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	log.Info("metrics listener started", "address", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error("metrics listener exited", "error", err)
	}
}

func newLogger(level, format string) (*slog.Logger, error) {
	var slogLevel slog.Level
	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "info":
		slogLevel = slog.LevelInfo
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		return nil, fmt.Errorf("unknown log level %q", level)
	}

	switch format {
	case "json":
		return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slogLevel})), nil
	case "text":
		return slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: slogLevel})), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}
