// Package main provides the aegis binary entry point.
// Aegis is an AI governance intelligence service: it scans AI tools
// and vendors for security and compliance risk, scores organizational
// governance maturity, and serves a streaming governance assistant.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/spf13/cobra"

	// Register LLM providers via init()
	_ "github.com/aegisinsight/aegis/llm/providers"

	"github.com/aegisinsight/aegis/advisor"
	"github.com/aegisinsight/aegis/compliance"
	"github.com/aegisinsight/aegis/config"
	"github.com/aegisinsight/aegis/intel"
	"github.com/aegisinsight/aegis/llm"
	"github.com/aegisinsight/aegis/maturity"
	"github.com/aegisinsight/aegis/search"
	"github.com/aegisinsight/aegis/server"
	"github.com/aegisinsight/aegis/store"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "aegis"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		configPath string
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:   "aegis",
		Short: "AI governance intelligence service",
		Long: `Aegis gathers public evidence about AI tools and vendors,
synthesizes trust assessments with an LLM, and tracks governance
maturity and compliance posture for an organization.

It provides:
- Web evidence gathering and risk synthesis for AI tools
- Governance maturity scoring with narrative assessment
- Compliance framework attestation and planning
- A streaming governance assistant`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath, logLevel)
		},
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	cmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the aegis HTTP service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath, logLevel)
		},
	})

	scanCmd := &cobra.Command{
		Use:   "scan <tool-name>",
		Short: "Run a one-off risk scan and print the assessment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			org, _ := cmd.Flags().GetString("org")
			return runScan(configPath, logLevel, org, args[0])
		},
	}
	scanCmd.Flags().String("org", "default", "Organization ID to record the scan under")
	cmd.AddCommand(scanCmd)

	maturityCmd := &cobra.Command{
		Use:   "maturity",
		Short: "Score governance maturity for an organization",
		RunE: func(cmd *cobra.Command, args []string) error {
			org, _ := cmd.Flags().GetString("org")
			return runMaturity(configPath, logLevel, org)
		},
	}
	maturityCmd.Flags().String("org", "default", "Organization ID to assess")
	cmd.AddCommand(maturityCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	})

	return cmd
}

func setupLogging(logLevel string) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

func loadConfig(configPath string, logger *slog.Logger) (*config.Config, error) {
	if configPath != "" {
		cfg, err := config.LoadFromFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg.ResolveSecrets()
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
		return cfg, nil
	}
	return config.NewLoader(logger).Load()
}

// components holds the wired service graph.
type components struct {
	store      store.Store
	pipeline   *intel.Pipeline
	assessor   *maturity.Assessor
	advisor    *advisor.Advisor
	compliance *compliance.Service
	planner    *compliance.Planner

	natsConn *nats.Conn
}

func (c *components) close() {
	if c.natsConn != nil {
		c.natsConn.Close()
	}
}

func buildComponents(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*components, error) {
	c := &components{}

	if cfg.NATS.URL != "" {
		nc, err := nats.Connect(cfg.NATS.URL,
			nats.Name(appName),
			nats.MaxReconnects(-1),
			nats.ReconnectWait(2*time.Second),
		)
		if err != nil {
			return nil, fmt.Errorf("connect to NATS at %s: %w", cfg.NATS.URL, err)
		}
		js, err := jetstream.New(nc)
		if err != nil {
			nc.Close()
			return nil, fmt.Errorf("create JetStream context: %w", err)
		}
		kv, err := store.NewKVStore(ctx, js)
		if err != nil {
			nc.Close()
			return nil, fmt.Errorf("create KV store: %w", err)
		}
		c.natsConn = nc
		c.store = kv
		logger.Info("Using JetStream store", "url", cfg.NATS.URL)
	} else {
		c.store = store.NewMemoryStore()
		logger.Warn("No NATS URL configured, using in-memory store; data will not survive restarts")
	}

	endpoints := make([]llm.Endpoint, 0, len(cfg.LLM.Endpoints))
	for _, ep := range cfg.LLM.Endpoints {
		endpoints = append(endpoints, llm.Endpoint{
			Provider:  ep.Provider,
			Model:     ep.Model,
			URL:       ep.URL,
			APIKey:    ep.APIKey,
			MaxTokens: ep.MaxTokens,
		})
	}
	llmClient := llm.NewClient(endpoints, llm.WithLogger(logger))

	searchOpts := []search.ClientOption{
		search.WithLogger(logger),
		search.WithResultCount(cfg.Search.ResultCount),
	}
	if cfg.Search.Endpoint != "" {
		searchOpts = append(searchOpts, search.WithEndpoint(cfg.Search.Endpoint))
	}
	searcher := search.NewClient(cfg.Search.APIKey, searchOpts...)

	synth := intel.NewSynthesizer(llmClient, logger)
	var pipelineOpts []intel.PipelineOption
	if cfg.Search.DeepEvidence {
		pipelineOpts = append(pipelineOpts, intel.WithPageExtractor(search.NewExtractor()))
	}
	c.pipeline = intel.NewPipeline(searcher, synth, c.store, logger, pipelineOpts...)
	c.assessor = maturity.NewAssessor(c.store, llmClient, logger)
	c.advisor = advisor.NewAdvisor(c.store, llmClient, logger)
	c.compliance = compliance.NewService(c.store, logger)
	c.planner = compliance.NewPlanner(llmClient, logger)

	return c, nil
}

func runServe(configPath, logLevel string) error {
	printBanner()
	logger := setupLogging(logLevel)

	cfg, err := loadConfig(configPath, logger)
	if err != nil {
		return err
	}

	signalCtx, signalCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer signalCancel()

	// When started from an explicit config file, pick up edits to it
	// without a restart: the server drains and rebuilds on reload.
	reload := make(chan *config.Config, 1)
	if configPath != "" {
		w, err := config.NewWatcher(configPath, cfg, func(c *config.Config) {
			select {
			case reload <- c:
			default:
			}
		}, logger)
		if err != nil {
			logger.Warn("Config watch unavailable", "path", configPath, "error", err)
		} else {
			go func() { _ = w.Run(signalCtx) }()
		}
	}

	for {
		next, err := serveOnce(signalCtx, cfg, logger, reload)
		if err != nil {
			return err
		}
		if next == nil {
			slog.Info("Aegis shutdown complete")
			return nil
		}
		slog.Info("Config changed, restarting services")
		cfg = next
	}
}

// serveOnce runs the service until ctx is cancelled or a new config
// arrives. It returns the new config on reload, nil on shutdown.
func serveOnce(ctx context.Context, cfg *config.Config, logger *slog.Logger, reload <-chan *config.Config) (*config.Config, error) {
	comps, err := buildComponents(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	defer comps.close()

	srv := server.New(server.Config{
		Addr:        cfg.Server.Addr,
		ReadTimeout: cfg.Server.ReadTimeout,
	}, comps.pipeline, comps.assessor, comps.advisor, comps.compliance, comps.planner, comps.store, logger)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	slog.Info("Aegis ready", "version", Version, "addr", cfg.Server.Addr)

	var next *config.Config
	select {
	case err := <-errCh:
		return nil, fmt.Errorf("http server: %w", err)
	case next = <-reload:
	case <-ctx.Done():
		slog.Info("Received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Error stopping http server", "error", err)
	}

	return next, nil
}

func runScan(configPath, logLevel, orgID, toolName string) error {
	logger := setupLogging(logLevel)

	cfg, err := loadConfig(configPath, logger)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	comps, err := buildComponents(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer comps.close()

	result, err := comps.pipeline.Scan(ctx, intel.ScanRequest{
		OrgID:       orgID,
		SubjectName: toolName,
	})
	if err != nil {
		return fmt.Errorf("scan %s: %w", toolName, err)
	}

	out, err := json.MarshalIndent(result.Assessment, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func runMaturity(configPath, logLevel, orgID string) error {
	logger := setupLogging(logLevel)

	cfg, err := loadConfig(configPath, logger)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	comps, err := buildComponents(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer comps.close()

	result, err := comps.assessor.Assess(ctx, orgID)
	if err != nil {
		return fmt.Errorf("assess maturity: %w", err)
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func printBanner() {
	fmt.Println("╔═══════════════════════════════════════════════╗")
	fmt.Println("║              Aegis v" + Version + "                      ║")
	fmt.Println("║       AI Governance Intelligence              ║")
	fmt.Println("╚═══════════════════════════════════════════════╝")
}
