// ABOUTME: Entry point for the querydeck server
// ABOUTME: Wires config, store, adapters, queue, and the HTTP gateway together

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fatih/color"

	"github.com/2389/querydeck/internal/adapter"
	"github.com/2389/querydeck/internal/config"
	"github.com/2389/querydeck/internal/conversation"
	"github.com/2389/querydeck/internal/gateway"
	"github.com/2389/querydeck/internal/queue"
	"github.com/2389/querydeck/internal/status"
	"github.com/2389/querydeck/internal/store"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
                                  _           _
  __ _ _   _  ___ _ __ _   _  __| | ___  ___| | __
 / _' | | | |/ _ \ '__| | | |/ _' |/ _ \/ __| |/ /
| (_| | |_| |  __/ |  | |_| | (_| |  __/ (__|   <
 \__, |\__,_|\___|_|   \__, |\__,_|\___|\___|_|\_\
    |_|                |___/
`

// getConfigPath returns the path to the querydeck config file, or "" when
// no file is configured and defaults should be used.
// Priority: QUERYDECK_CONFIG env var > ./config.yaml (if present)
func getConfigPath() string {
	if envPath := os.Getenv("QUERYDECK_CONFIG"); envPath != "" {
		return envPath
	}
	if _, err := os.Stat("config.yaml"); err == nil {
		path, err := filepath.Abs("config.yaml")
		if err == nil {
			return path
		}
	}
	return ""
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: querydeck <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  serve   Start the querydeck server")
		fmt.Println("  health  Check server health")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "health":
		err = runHealth(ctx)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig loads the config file if one is configured, otherwise defaults.
func loadConfig() (*config.Config, string, error) {
	configPath := getConfigPath()
	if configPath == "" {
		return config.Default(), "(defaults)", nil
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, "", fmt.Errorf("loading config: %w", err)
	}
	return cfg, configPath, nil
}

func runServe(ctx context.Context) error {
	// Print banner
	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	// Version info
	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, configPath, err := loadConfig()
	if err != nil {
		return err
	}

	// Setup logger
	logger := setupLogger(cfg.Logging)

	queryClient, insightClient, mock := buildClients(cfg, logger)

	// Startup info
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	green.Print("    ▶ ")
	fmt.Printf("Config:  %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:    %s\n", cfg.Server.HTTPAddr)
	green.Print("    ▶ ")
	fmt.Printf("Queue:   %d workers, capacity %d\n", cfg.Queue.Workers, cfg.Queue.Capacity)
	green.Print("    ▶ ")
	fmt.Printf("Data:    ")
	if mock {
		yellow.Print("mock")
		gray.Print(" (deterministic sample data)")
	} else {
		cyan.Print("live")
	}
	fmt.Println()
	fmt.Println()

	logger.Info("starting querydeck",
		"config", configPath,
		"http_addr", cfg.Server.HTTPAddr,
		"mock", mock,
	)

	st := store.New(logger)
	tracker := status.NewTracker(cfg.Status.Retention, logger)
	defer tracker.Close()

	svc := conversation.NewService(st, queryClient, insightClient, cfg.Conversation.ContextWindow, logger)
	q := queue.New(svc, tracker, queue.Config{
		Capacity: cfg.Queue.Capacity,
		Workers:  cfg.Queue.Workers,
	}, logger)
	svc.SetSubmitter(q)
	// Workers outlive the signal context so queued tasks can drain on
	// shutdown; Shutdown cancels them if the grace period runs out.
	q.Start(context.Background())

	gw := gateway.New(cfg, svc, q, tracker, logger)
	err = gw.Run(ctx)

	// Stop intake and let in-flight tasks finish before exiting.
	drainCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if derr := q.Shutdown(drainCtx); derr != nil {
		logger.Warn("queue did not drain cleanly", "error", derr)
	}

	return err
}

// buildClients constructs the query and insight clients from configuration.
// Without a real query endpoint (or with genie.mock set) both sides run
// locally: deterministic sample data plus keyword-based chart picks.
func buildClients(cfg *config.Config, logger *slog.Logger) (adapter.QueryClient, adapter.InsightClient, bool) {
	policy := adapter.RetryPolicy{
		MaxAttempts:  cfg.Retry.MaxAttempts,
		InitialDelay: cfg.Retry.InitialDelay,
		Multiplier:   cfg.Retry.Multiplier,
		MaxDelay:     cfg.Retry.MaxDelay,
	}

	if cfg.Genie.Mock || cfg.Genie.Endpoint == "" {
		return adapter.NewMockQueryClient(time.Now().UnixNano()), adapter.LocalInsightClient{}, true
	}

	query := adapter.NewRetryingQueryClient(
		adapter.NewGenieClient(cfg.Genie.Endpoint, cfg.Genie.Token, cfg.Genie.SpaceID, cfg.Genie.Timeout, logger),
		policy, logger)

	var insight adapter.InsightClient = adapter.LocalInsightClient{}
	if cfg.Insight.Endpoint != "" {
		insight = adapter.NewRetryingInsightClient(
			adapter.NewInsightHTTPClient(cfg.Insight.Endpoint, cfg.Insight.APIKey, cfg.Insight.Model, cfg.Insight.Timeout, logger),
			policy, logger)
	}

	return query, insight, false
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = &colorHandler{
			level: level,
		}
	}

	return slog.New(handler)
}

// colorHandler provides colorized log output with thread-safe writes.
type colorHandler struct {
	mu     sync.Mutex
	level  slog.Level
	attrs  []slog.Attr
	groups []string
}

func (h *colorHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *colorHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var buf strings.Builder

	// Format timestamp
	buf.WriteString(color.HiBlackString(r.Time.Format("15:04:05") + " "))

	// Colorize level
	switch r.Level {
	case slog.LevelDebug:
		buf.WriteString(color.MagentaString("DBG "))
	case slog.LevelInfo:
		buf.WriteString(color.CyanString("INF "))
	case slog.LevelWarn:
		buf.WriteString(color.YellowString("WRN "))
	case slog.LevelError:
		buf.WriteString(color.New(color.FgRed, color.Bold).Sprint("ERR "))
	default:
		buf.WriteString("??? ")
	}

	// Print message
	buf.WriteString(r.Message)

	// Print handler-level attrs first (from WithAttrs)
	for _, a := range h.attrs {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
	}

	// Print record attrs
	r.Attrs(func(a slog.Attr) bool {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
		return true
	})

	buf.WriteString("\n")
	fmt.Print(buf.String())
	return nil
}

func (h *colorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs), len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	newAttrs = append(newAttrs, attrs...)
	return &colorHandler{
		level:  h.level,
		attrs:  newAttrs,
		groups: h.groups,
	}
}

func (h *colorHandler) WithGroup(name string) slog.Handler {
	newGroups := make([]string, len(h.groups), len(h.groups)+1)
	copy(newGroups, h.groups)
	newGroups = append(newGroups, name)
	return &colorHandler{
		level:  h.level,
		attrs:  h.attrs,
		groups: newGroups,
	}
}

func runHealth(ctx context.Context) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	addr := cfg.Server.HTTPAddr
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}

	url := fmt.Sprintf("http://%s/api/health", addr)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}

	fmt.Println("healthy")
	return nil
}
