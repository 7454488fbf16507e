package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kalambet/internmatch/internal/analysis"
	"github.com/kalambet/internmatch/internal/api"
	"github.com/kalambet/internmatch/internal/catalog"
	"github.com/kalambet/internmatch/internal/config"
	"github.com/kalambet/internmatch/internal/profile"
	"github.com/kalambet/internmatch/internal/storage"
)

const shutdownTimeout = 10 * time.Second

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the internmatch server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		withMCP, _ := cmd.Flags().GetBool("mcp")
		return runServer(withMCP)
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running internmatch server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show internmatch server status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus(commandContext(cmd))
	},
}

func init() {
	startCmd.Flags().Bool("mcp", false, "also serve MCP over stdio")
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "internmatch.pid")
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePIDFile(path string) {
	os.Remove(path)
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func runServer(withMCP bool) error {
	fmt.Fprintf(os.Stderr, "internmatch version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLogLevel(cfg.Log.Level)})))

	// Write PID file. Check if server is already running via health endpoint.
	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("internmatch is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("internmatch is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing storage: %v\n", err)
		}
	}()
	if versions, err := db.AppliedMigrations(); err == nil && len(versions) > 0 {
		slog.Info("storage opened", "dir", cfg.Storage.DataDir, "schema_version", versions[len(versions)-1])
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	analyzer, err := buildAnalyzer(cfg.Analysis, reg)
	if err != nil {
		return err
	}

	feed := catalog.NewFeed(catalog.DefaultFeedLimit, nil)
	internships := catalog.Default()

	profiles := profile.NewStore(profile.Deps{
		Persist:  db,
		Analyzer: analyzer,
		Runs:     db,
		Observer: feed,
		Logger:   slog.Default(),
	})
	if err := profiles.Load(ctx); err != nil {
		return fmt.Errorf("loading profiles: %w", err)
	}

	handler := api.NewAppHandler(api.AppDeps{
		Profiles: profiles,
		Runs:     db,
		Metrics:  reg,
		Logger:   slog.Default(),

		Internships:   internships,
		Notifications: feed,
		Preferences:   catalog.NewPreferenceStore(db, slog.Default()),
	})

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	if withMCP {
		mcpSrv := api.NewMCPServer(api.MCPDeps{
			Profiles:      profiles,
			Version:       version,
			Internships:   internships,
			Notifications: feed,
		})
		stdioSrv := server.NewStdioServer(mcpSrv)
		go func() {
			if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("MCP stdio server error", "error", err)
			}
		}()
		slog.Info("MCP server started (stdio transport)")
	}

	// Start server in a goroutine.
	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "internmatch listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for signal or server error.
	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	// Graceful shutdown with timeout.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return drainProfiles(shutdownCtx, profiles)
}

// buildAnalyzer assembles the simulator chain from config: retries inside,
// metrics outside.
func buildAnalyzer(cfg config.AnalysisConfig, reg prometheus.Registerer) (analysis.Analyzer, error) {
	importDelay, reanalyzeDelay, err := cfg.Delays()
	if err != nil {
		return nil, err
	}
	scorer, err := analysis.NewRandomScorer(cfg.MinScore, cfg.MaxScore, nil)
	if err != nil {
		return nil, fmt.Errorf("building scorer: %w", err)
	}
	sim := analysis.NewSimulator(scorer, importDelay, reanalyzeDelay)
	return analysis.NewMetrics(reg).Wrap(analysis.WithRetry(sim, 3, 250*time.Millisecond)), nil
}

// drainProfiles lets in-flight analyses store their result and run log
// before storage closes.
func drainProfiles(ctx context.Context, profiles *profile.Store) error {
	if profiles.IsAnalyzing() {
		slog.Info("waiting for in-flight analysis")
	}
	if err := profiles.Drain(ctx); err != nil {
		return fmt.Errorf("analysis still running at shutdown: %w", err)
	}
	return nil
}

func stopServer() error {
	cfg, err := config.Load()
	if err != nil {
		printError("could not load config: %v", err)
		return err
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		printError("internmatch is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop internmatch (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to internmatch (PID %d)", pid)
	return nil
}

// serverReport is what status learns from a running server.
type serverReport struct {
	Healthy bool
	Status  api.StatusResponse
}

// probeServer queries /health and /status concurrently.
func probeServer(ctx context.Context, client *apiClient) (serverReport, error) {
	var rep serverReport
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		resp, err := client.get(gctx, "/health")
		if err != nil {
			return err
		}
		resp.Body.Close()
		rep.Healthy = resp.StatusCode == http.StatusOK
		return nil
	})
	g.Go(func() error {
		resp, err := client.get(gctx, "/status")
		if err != nil {
			return err
		}
		return decodeJSON(resp, &rep.Status)
	})
	if err := g.Wait(); err != nil {
		return serverReport{}, err
	}
	return rep, nil
}

func showStatus(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		// Still show partial status even if config fails.
		printError("config error: %v", err)
		return nil
	}

	client := &apiClient{
		baseURL:    fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port),
		httpClient: &http.Client{Timeout: 2 * time.Second},
	}
	printReport(probeServer(ctx, client))
	printStatus("Port", "%d", cfg.Server.Port)
	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}

func printReport(rep serverReport, err error) {
	switch {
	case err != nil:
		printStatus("Server", "stopped")
		return
	case !rep.Healthy:
		printStatus("Server", "unhealthy")
	default:
		printStatus("Server", "running")
	}

	if rep.Status.Ready {
		printStatus("Profiles", "%d", rep.Status.Profiles)
	} else {
		printStatus("Profiles", "not loaded")
	}
	if rep.Status.Analyzing {
		printStatus("Analysis", "in progress")
	} else {
		printStatus("Analysis", "idle")
	}
}
