package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ledgerstore/ledgerstore/pkg/blockstore"
	"github.com/ledgerstore/ledgerstore/pkg/cache"
	"github.com/ledgerstore/ledgerstore/pkg/chainhead"
	"github.com/ledgerstore/ledgerstore/pkg/config"
	"github.com/ledgerstore/ledgerstore/pkg/entitystore"
	"github.com/ledgerstore/ledgerstore/pkg/events"
	"github.com/ledgerstore/ledgerstore/pkg/log"
	"github.com/ledgerstore/ledgerstore/pkg/metrics"
	"github.com/ledgerstore/ledgerstore/pkg/types"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "ledgerstored",
	Short:   "ledgerstored - indexed entity store for blockchain deployments",
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"ledgerstored version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error); overrides LEDGERSTORE_LOG_LEVEL")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format; overrides LEDGERSTORE_LOG_JSON")
	rootCmd.PersistentFlags().String("data-dir", "", "Data directory for BoltDB files; overrides LEDGERSTORE_DATA_DIR")

	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the ledgerstore daemon for a single deployment/network",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("deployment", "", "Deployment ID to index (required)")
	serveCmd.Flags().String("network", "", "Network name within the deployment (required)")
	serveCmd.Flags().String("metrics-addr", "127.0.0.1:9090", "Bind address for /metrics, /health, /ready, /live")
	serveCmd.Flags().Int("cache-capacity", 10000, "Maximum entities held in the LFU snapshot cache")
	serveCmd.Flags().Int("ancestor-depth", 12, "Ancestor blocks walked per chain head update attempt")
	_ = serveCmd.MarkFlagRequired("deployment")
	_ = serveCmd.MarkFlagRequired("network")
}

func runServe(cmd *cobra.Command, args []string) error {
	logLevel, _ := cmd.Flags().GetString("log-level")
	logJSONFlag, _ := cmd.Flags().GetBool("log-json")
	dataDirFlag, _ := cmd.Flags().GetString("data-dir")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	cfg = cfg.ApplyFlagOverrides(
		logLevel, logJSONFlag, cmd.Flags().Changed("log-json"),
		dataDirFlag, cmd.Flags().Changed("data-dir"),
	)

	log.Init(log.Config{Level: cfg.LogLevel, JSONOutput: cfg.LogJSON})
	logger := log.WithComponent("ledgerstored")

	deploymentFlag, _ := cmd.Flags().GetString("deployment")
	network, _ := cmd.Flags().GetString("network")
	metricsAddr, _ := cmd.Flags().GetString("metrics-addr")
	cacheCapacity, _ := cmd.Flags().GetInt("cache-capacity")
	ancestorDepth, _ := cmd.Flags().GetInt("ancestor-depth")
	deployment := types.DeploymentID(deploymentFlag)

	logger.Info().
		Str("deployment", string(deployment)).
		Str("network", network).
		Str("data_dir", cfg.DataDir).
		Dur("throttle_interval", cfg.ThrottleInterval).
		Msg("starting ledgerstored")

	entityStore, err := entitystore.NewBoltStore(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("failed to open entity store: %w", err)
	}
	defer entityStore.Close()
	metrics.RegisterComponent("entitystore", true, "open")

	blockStore, err := blockstore.NewBoltStore(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("failed to open block store: %w", err)
	}
	defer blockStore.Close()
	metrics.RegisterComponent("blockstore", true, "open")

	c := cache.New(entityStore, deployment, cacheCapacity)

	bus := events.NewBus()
	bus.Start()
	defer bus.Stop()
	metrics.RegisterComponent("bus", true, "running")

	tracker := chainhead.NewTracker(blockStore, deployment, network)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	headUpdates := tracker.Subscribe()
	defer tracker.Unsubscribe(headUpdates)
	go func() {
		for update := range headUpdates {
			logger.Info().
				Int32("block_number", update.Ptr.Number).
				Msg("chain head advanced")
			metrics.ChainHeadNumber.WithLabelValues(string(deployment), network).Set(float64(update.Ptr.Number))
		}
	}()

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/health", metrics.HealthHandler())
	mux.Handle("/ready", metrics.ReadyHandler())
	mux.Handle("/live", metrics.LivenessHandler())

	srv := &http.Server{Addr: metricsAddr, Handler: mux}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	logger.Info().Str("addr", metricsAddr).Msg("metrics endpoint ready")

	// The entity cache is owned by this process and handed to whatever
	// ingests blocks (an indexer calling writepath.TransactBlockOperations);
	// ledgerstored itself only keeps the chain head advancing on the
	// block store it already has.
	go runHeadUpdateLoop(ctx, logger, tracker, ancestorDepth, deployment, network)
	logger.Debug().Str("cache", c.String()).Msg("entity cache ready")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		logger.Error().Err(err).Msg("metrics server error")
	}

	cancel()
	return srv.Shutdown(context.Background())
}

// runHeadUpdateLoop periodically attempts to advance the chain head,
// the way a reconciler's ticker drives its own periodic work: a fixed
// interval loop that stops on ctx cancellation.
func runHeadUpdateLoop(ctx context.Context, logger zerolog.Logger, tracker *chainhead.Tracker, ancestorDepth int, deployment types.DeploymentID, network string) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			missing, err := tracker.AttemptChainHeadUpdate(ctx, ancestorDepth)
			if err != nil {
				logger.Error().Err(err).Msg("chain head update failed")
				continue
			}
			if len(missing) > 0 {
				metrics.ChainHeadMissingAncestorTotal.WithLabelValues(string(deployment), network).Inc()
			}
		}
	}
}
