// Command wfedit opens a page in Chrome with the workflow editor overlay.
//
// Usage:
//
//	wfedit -url https://chat.example.com            # edit, local profiles.db
//	wfedit -config wfedit.yaml                      # full configuration
//	wfedit -url ... -registry http://host:8080      # save to a remote registry
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	_ "modernc.org/sqlite"

	"github.com/lumingya/universal-web-api/browser"
	"github.com/lumingya/universal-web-api/editor"
	"github.com/lumingya/universal-web-api/locator"
	"github.com/lumingya/universal-web-api/profile"
)

func main() {
	configPath := flag.String("config", "", "path to wfedit.yaml config file")
	pageURL := flag.String("url", "", "page to open and edit")
	host := flag.String("host", "", "session host (default: derived from the page)")
	dbPath := flag.String("db", "", "local profile database path")
	registry := flag.String("registry", "", "remote profile registry endpoint")
	token := flag.String("token", "", "auth token for the remote registry")
	listen := flag.String("listen", "", "serve the profile HTTP API on this address")
	stealth := flag.String("stealth", "", "stealth level: plain, headless, headful")
	mcpMode := flag.String("mcp", "", "tool server transport: stdio")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg, err := buildConfig(*configPath, *pageURL, *host, *dbPath, *registry, *token, *listen, *stealth, *mcpMode)
	if err != nil {
		logger.Error("wfedit: config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, cfg); err != nil {
		logger.Error("wfedit: fatal", "error", err)
		os.Exit(1)
	}
}

// buildConfig merges the optional YAML file with flag overrides. Flags win.
func buildConfig(configPath, pageURL, host, dbPath, registry, token, listen, stealth, mcpMode string) (*fileConfig, error) {
	cfg := &fileConfig{}
	if configPath != "" {
		loaded, err := loadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}

	if pageURL != "" {
		cfg.URL = pageURL
	}
	if host != "" {
		cfg.Host = host
	}
	if dbPath != "" {
		cfg.Registry.DBPath = dbPath
	}
	if registry != "" {
		cfg.Registry.Endpoint = registry
	}
	if token != "" {
		cfg.Registry.Token = token
	}
	if listen != "" {
		cfg.Registry.Listen = listen
	}
	if stealth != "" {
		cfg.Browser.Stealth = stealth
	}
	if mcpMode != "" {
		cfg.MCP = mcpMode
	}
	cfg.applyDefaults()

	if cfg.URL == "" {
		return nil, errors.New("no page URL: pass -url or set url in the config file")
	}
	return cfg, nil
}

func run(ctx context.Context, logger *slog.Logger, cfg *fileConfig) error {
	saver, registry, err := openRegistry(cfg, logger)
	if err != nil {
		return err
	}
	if registry != nil {
		defer registry.Close()
	}

	if cfg.Registry.Listen != "" && registry != nil {
		go serveHTTP(ctx, logger, registry, cfg.Registry.Listen)
	}

	level, err := parseStealth(cfg.Browser.Stealth)
	if err != nil {
		return err
	}
	mgr := browser.NewManager(browser.Config{
		RemoteURL:   cfg.Browser.Remote,
		Stealth:     level,
		XvfbDisplay: cfg.Browser.XvfbDisplay,
		Logger:      logger,
	})
	if _, err := mgr.Start(); err != nil {
		return fmt.Errorf("browser start: %w", err)
	}
	defer mgr.Close()

	tab, err := browser.OpenTab(ctx, mgr, cfg.URL)
	if err != nil {
		return fmt.Errorf("open tab: %w", err)
	}
	defer tab.Close()

	pageHost, err := tab.Host(ctx)
	if err != nil {
		return fmt.Errorf("resolve host: %w", err)
	}
	host := cfg.Host
	if host == "" {
		host = pageHost
	}

	page, err := locator.NewRodPage(tab.Page)
	if err != nil {
		return fmt.Errorf("wrap page: %w", err)
	}

	ed := editor.New(editor.Config{
		Host:   host,
		Saver:  saver,
		Logger: logger,
	})
	surface := editor.NewRodSurface(tab, page, ed.HandleEvent, logger)

	if err := ed.Attach(ctx, page, surface, pageHost); err != nil {
		return fmt.Errorf("attach: %w", err)
	}
	defer ed.Teardown()

	logger.Info("wfedit: editing", "host", host, "url", cfg.URL)

	if cfg.MCP == "stdio" {
		mcpSrv := mcp.NewServer(&mcp.Implementation{
			Name:    "wfedit",
			Version: "1.0.0",
		}, nil)
		ed.RegisterMCP(mcpSrv)
		if registry != nil {
			registry.RegisterMCP(mcpSrv)
		}
		go func() {
			if err := mcpSrv.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
				logger.Error("wfedit: mcp server", "error", err)
			}
		}()
	}

	<-ctx.Done()
	return nil
}

// openRegistry picks the profile backend: a remote registry client when an
// endpoint is configured, otherwise a local SQLite-backed registry.
func openRegistry(cfg *fileConfig, logger *slog.Logger) (editor.Saver, *profile.Registry, error) {
	if cfg.Registry.Endpoint != "" {
		return profile.NewClient(cfg.Registry.Endpoint, cfg.Registry.Token), nil, nil
	}

	reg, err := profile.New(cfg.Registry.profileConfig(), logger)
	if err != nil {
		return nil, nil, fmt.Errorf("open registry: %w", err)
	}
	return reg, reg, nil
}

func serveHTTP(ctx context.Context, logger *slog.Logger, reg *profile.Registry, addr string) {
	router := chi.NewRouter()
	reg.Routes(router)

	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("wfedit: profile API listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("wfedit: profile API", "error", err)
	}
}
