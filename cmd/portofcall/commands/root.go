// Package commands implements the portofcall CLI's subcommands.
package commands

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/pocc/portofcall-sub006/cmd/portofcall/cmdutil"
	"github.com/pocc/portofcall-sub006/cmd/portofcall/commands/clickhouse"
	"github.com/pocc/portofcall-sub006/cmd/portofcall/commands/ipfs"
	"github.com/pocc/portofcall-sub006/cmd/portofcall/commands/mount"
	"github.com/pocc/portofcall-sub006/cmd/portofcall/commands/multistream"
	"github.com/pocc/portofcall-sub006/cmd/portofcall/commands/nfs3"
	"github.com/pocc/portofcall-sub006/cmd/portofcall/commands/sane"
	"github.com/pocc/portofcall-sub006/cmd/portofcall/commands/sftp"
	"github.com/pocc/portofcall-sub006/cmd/portofcall/commands/sips"
	"github.com/pocc/portofcall-sub006/cmd/portofcall/commands/tds"
	"github.com/pocc/portofcall-sub006/cmd/portofcall/commands/xmpp"
	"github.com/pocc/portofcall-sub006/cmd/portofcall/commands/zookeeper"
	"github.com/pocc/portofcall-sub006/internal/config"
	"github.com/pocc/portofcall-sub006/internal/logger"
	"github.com/pocc/portofcall-sub006/internal/metrics"
	"github.com/pocc/portofcall-sub006/internal/telemetry"
)

// Version information injected at build time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "portofcall",
	Short: "Probe and operate against eleven server protocols from one CLI",
	Long: `portofcall dials a single protocol endpoint, runs one operation, and
prints a uniform result envelope (success, latency, payload, or a
typed error) regardless of which wire protocol answered.

Use "portofcall [protocol] [operation] --help" for flags.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cmdutil.Flags.Output, _ = cmd.Flags().GetString("output")
		cmdutil.Flags.NoColor, _ = cmd.Flags().GetBool("no-color")
		cmdutil.Flags.Verbose, _ = cmd.Flags().GetBool("verbose")
		bootstrap(cmd)
	},
}

// bootstrap loads the layered config, applies it to the logger, and
// starts the optional metrics endpoint. Run once per invocation from
// PersistentPreRun rather than init(), since it depends on flag values.
func bootstrap(cmd *cobra.Command) {
	configPath, _ := cmd.Flags().GetString("config")
	store, err := config.Load(configPath)
	if err != nil {
		logger.Warn("config load failed, using defaults", "error", err)
		store, _ = config.Load("")
	}
	store.Watch()
	cfg := store.Get()

	if logLevel, _ := cmd.Flags().GetString("log-level"); logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if cmdutil.Flags.Verbose {
		cfg.LogLevel = "DEBUG"
	}
	logger.Init(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	if addr, _ := cmd.Flags().GetString("metrics-addr"); addr != "" {
		serveMetrics(addr)
	}
}

// serveMetrics starts a best-effort background /metrics endpoint for
// the duration of this process; a one-shot CLI invocation rarely lives
// long enough for anything to scrape it, but `portofcall serve`-style
// long-running use (e.g. under a supervisor issuing repeated probes)
// can point Prometheus at it.
func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Warn("metrics server stopped", "error", err)
		}
	}()
}

// Execute runs the root command.
func Execute() error {
	shutdown := telemetry.Configure()
	defer shutdown(context.Background())
	return rootCmd.Execute()
}

// GetRootCmd returns the root command, for testing.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().StringP("output", "o", "table", "Output format (table|json|yaml)")
	rootCmd.PersistentFlags().Bool("no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML config file (defaults, caps, log settings)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (DEBUG|INFO|WARN|ERROR), overrides config")
	rootCmd.PersistentFlags().String("metrics-addr", "", "If set, serve Prometheus metrics on this address (e.g. :9100)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(mount.Cmd)
	rootCmd.AddCommand(nfs3.Cmd)
	rootCmd.AddCommand(sftp.Cmd)
	rootCmd.AddCommand(tds.Cmd)
	rootCmd.AddCommand(clickhouse.Cmd)
	rootCmd.AddCommand(xmpp.Cmd)
	rootCmd.AddCommand(sips.Cmd)
	rootCmd.AddCommand(sane.Cmd)
	rootCmd.AddCommand(zookeeper.Cmd)
	rootCmd.AddCommand(multistream.Cmd)
	rootCmd.AddCommand(ipfs.Cmd)
	rootCmd.AddCommand(completionCmd)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
