package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"gtp-xact/internal/config"
	"gtp-xact/internal/network"
	"gtp-xact/internal/pcap"
	"gtp-xact/internal/stats"
	"gtp-xact/internal/xact"
)

var (
	version   = "1.0.0"
	cfgFile   string
	countPcap string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "gtp-xactd",
		Short: "GTP-C node - transaction layer for GTPv1-C and GTPv2-C",
		Long: `A GTP-C node that tracks request/response transactions with its peers,
retransmits unanswered requests, answers duplicated requests from its
holding cache and keeps peers alive with echo requests.`,
		Version: version,
		RunE:    run,
	}

	// Configuration file
	rootCmd.Flags().StringVar(&cfgFile, "config", "", "Configuration file path (default: config.yaml)")

	// CLI overrides
	rootCmd.Flags().String("address", "", "Local GTP-C IP address")
	rootCmd.Flags().Int("port", 0, "Local GTP-C UDP port")
	rootCmd.Flags().Uint8("restart-counter", 0, "Recovery restart counter")
	rootCmd.Flags().Int("pool-size", 0, "Maximum number of concurrent transactions")
	rootCmd.Flags().Int("t3", -1, "Response timeout (T3-RESPONSE) in ms")
	rootCmd.Flags().Int("n3", -1, "Request retransmissions (N3-REQUESTS)")
	rootCmd.Flags().Int("echo-interval", -1, "Echo request interval in seconds, 0 disables")
	rootCmd.Flags().String("metrics", "", "Prometheus listen address (host:port)")
	rootCmd.Flags().String("capture", "", "Write all GTP-C traffic to this pcap file")
	rootCmd.Flags().String("log-level", "", "Log level (debug|info|warn|error)")
	rootCmd.Flags().StringVar(&countPcap, "count", "", "Show GTP-C message statistics of a pcap file and exit")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	if countPcap != "" {
		return showStats(countPcap)
	}

	// Load configuration
	v := viper.New()
	config.SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if cfgFile != "" {
			return fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK if using CLI flags
		log.Debug("No config file found, using defaults and CLI flags")
	}

	// Bind CLI flags (override config file values)
	bindViperFlags(v, cmd)

	cfg, err := config.LoadWithViper(v)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	setupLogging(cfg)

	fmt.Printf("GTP-C transaction node v%s\n", version)
	fmt.Println("==============================")
	fmt.Print(cfg.Summary())
	fmt.Println()

	if err := cfg.Validate(); err != nil {
		return err
	}
	mcfg, err := cfg.ManagerConfig()
	if err != nil {
		return err
	}

	// Setup context with signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.WithField("signal", sig).Info("Received shutdown signal")
		cancel()
	}()

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	statsCollector, err := stats.NewCollector(reg)
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}
	if cfg.Metrics.Address != "" {
		srv := startMetricsServer(cfg.Metrics.Address, reg)
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			_ = srv.Shutdown(shutdownCtx)
			shutdownCancel()
		}()
	}

	reporter := stats.NewReporter(statsCollector, cfg.Stats.ReportIntervalSec, cfg.Stats.ExportFile)
	reporter.StartPeriodicReport(ctx)

	// GTP-C socket
	conn, err := network.NewConn(cfg.GTP.Address, cfg.GTP.Port)
	if err != nil {
		return fmt.Errorf("failed to open GTP-C socket: %w", err)
	}
	defer conn.Close()
	log.WithField("local_addr", conn.LocalAddr()).Info("GTP-C socket open")

	if cfg.Capture.File != "" {
		w, err := pcap.Create(cfg.Capture.File)
		if err != nil {
			return fmt.Errorf("failed to create capture: %w", err)
		}
		conn.SetCapture(w)
		defer func() {
			conn.SetCapture(nil)
			if err := w.Close(); err != nil {
				log.WithError(err).Warn("Failed to close capture")
			}
			log.WithFields(log.Fields{"file": cfg.Capture.File, "packets": w.Count()}).Info("Capture written")
		}()
	}

	mgr := xact.NewManager(mcfg, conn, nil, statsCollector)
	dispatcher := network.NewDispatcher(mgr, cfg.GTP.RestartCounter)

	receiver := network.NewReceiver(conn)
	receiver.Start(ctx)
	go dispatcher.Run(ctx, receiver.Messages())

	dispatcher.StartKeepalive(ctx, cfg.Peers, time.Duration(cfg.Echo.IntervalSec)*time.Second)

	<-ctx.Done()

	log.WithField("transactions", mgr.Len()).Info("Shutting down")
	reporter.Report()
	if err := reporter.ExportJSON(); err != nil {
		log.WithError(err).Warn("Failed to export statistics")
	}
	return nil
}

func startMetricsServer(addr string, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("Metrics server failed")
		}
	}()
	log.WithField("address", addr).Info("Metrics server started")
	return srv
}

func showStats(filename string) error {
	counts, err := pcap.NewParser().CountMessages(filename)
	if err != nil {
		return fmt.Errorf("failed to count messages: %w", err)
	}

	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Println("PCAP Message Statistics:")
	total := 0
	for _, name := range names {
		fmt.Printf("  %-40s %d\n", name, counts[name])
		total += counts[name]
	}
	fmt.Printf("  %-40s %d\n", "Total:", total)
	return nil
}

func setupLogging(cfg *config.Config) {
	level, err := log.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	})

	if cfg.Logging.File != "" {
		f, err := os.OpenFile(cfg.Logging.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			log.WithError(err).Warn("Failed to open log file, using console only")
		} else if cfg.Logging.Console {
			log.SetOutput(io.MultiWriter(os.Stderr, f))
		} else {
			log.SetOutput(f)
		}
	}
}

func bindViperFlags(v *viper.Viper, cmd *cobra.Command) {
	if cmd.Flags().Changed("address") {
		val, _ := cmd.Flags().GetString("address")
		v.Set("gtp.address", val)
	}
	if cmd.Flags().Changed("port") {
		val, _ := cmd.Flags().GetInt("port")
		v.Set("gtp.port", val)
	}
	if cmd.Flags().Changed("restart-counter") {
		val, _ := cmd.Flags().GetUint8("restart-counter")
		v.Set("gtp.restart_counter", val)
	}
	if cmd.Flags().Changed("pool-size") {
		val, _ := cmd.Flags().GetInt("pool-size")
		v.Set("xact.pool_size", val)
	}
	if cmd.Flags().Changed("t3") {
		val, _ := cmd.Flags().GetInt("t3")
		v.Set("xact.response_timeout_ms", val)
	}
	if cmd.Flags().Changed("n3") {
		val, _ := cmd.Flags().GetInt("n3")
		v.Set("xact.response_retries", val)
	}
	if cmd.Flags().Changed("echo-interval") {
		val, _ := cmd.Flags().GetInt("echo-interval")
		v.Set("echo.interval_sec", val)
	}
	if cmd.Flags().Changed("metrics") {
		val, _ := cmd.Flags().GetString("metrics")
		v.Set("metrics.address", val)
	}
	if cmd.Flags().Changed("capture") {
		val, _ := cmd.Flags().GetString("capture")
		v.Set("capture.file", val)
	}
	if cmd.Flags().Changed("log-level") {
		val, _ := cmd.Flags().GetString("log-level")
		v.Set("logging.level", val)
	}
}
