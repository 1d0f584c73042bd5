package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-faster/errors"

	"github.com/AnandVishesh1301/temboXpoke/internal/auth"
	"github.com/AnandVishesh1301/temboXpoke/internal/config"
	"github.com/AnandVishesh1301/temboXpoke/internal/mcp"
	"github.com/AnandVishesh1301/temboXpoke/internal/middleware"
	"github.com/AnandVishesh1301/temboXpoke/internal/modules"
	"github.com/AnandVishesh1301/temboXpoke/internal/modules/github"
	"github.com/AnandVishesh1301/temboXpoke/internal/modules/tembo"
	"github.com/AnandVishesh1301/temboXpoke/internal/observability"
)

func main() {
	issueToken := flag.String("issue-token", "", "print a bearer token for `subject` signed with MCP_AUTH_SECRET and exit")
	tokenTTL := flag.Duration("token-ttl", 0, "lifetime of the issued token (0 means no expiry)")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	if *issueToken != "" {
		if err := printToken(cfg, *issueToken, *tokenTTL); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	if err := run(cfg, logger); err != nil {
		observability.LogError("server", err)
		logger.Error("server stopped with error", "err", err)
		os.Exit(1)
	}
}

func printToken(cfg *config.Config, subject string, ttl time.Duration) error {
	verifier := auth.NewVerifier(cfg.AuthSecret)
	if verifier == nil {
		return errors.New("MCP_AUTH_SECRET is not set")
	}
	token, err := verifier.Issue(subject, ttl)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

func run(cfg *config.Config, logger *slog.Logger) error {
	// Initialize observability (Loki + tracing + metrics)
	observability.Init(cfg.Loki, logger)
	shutdownTracing, err := observability.InitTracing(context.Background(), cfg.Tracing)
	if err != nil {
		return errors.Wrap(err, "init tracing")
	}
	shutdownMetrics, err := observability.InitMetrics(context.Background(), cfg.Tracing)
	if err != nil {
		return errors.Wrap(err, "init metrics")
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownMetrics(ctx); err != nil {
			logger.Warn("meter shutdown failed", "err", err)
		}
		if err := shutdownTracing(ctx); err != nil {
			logger.Warn("tracer shutdown failed", "err", err)
		}
	}()

	registry, err := newRegistry(cfg)
	if err != nil {
		return err
	}
	logger.Info("registered tools", "modules", registry.ListModules(), "tools", registry.ToolNames())
	if cfg.Tembo.APIKey == "" {
		logger.Warn("TEMBO_API_KEY not set, tembo tools will report missing_credential")
	}
	if cfg.GitHub.Token == "" {
		logger.Warn("GITHUB_TOKEN not set, check_pr_mergeable will report missing_credential")
	}

	authorizer := middleware.NewAuthorizer(auth.NewVerifier(cfg.AuthSecret))
	if !authorizer.Enabled() {
		logger.Warn("MCP_AUTH_SECRET not set, /mcp is unauthenticated")
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           newMux(registry, authorizer, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting MCP server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return errors.Wrap(err, "listen")
	case sig := <-quit:
		logger.Info("shutting down gracefully", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "shutdown")
	}

	logger.Info("server stopped")
	return nil
}

// newRegistry builds the tool registry from config. Modules are constructed
// even without credentials so that their tools are listed and report the
// missing credential per call.
func newRegistry(cfg *config.Config) (*modules.Registry, error) {
	client := &http.Client{}
	registry := modules.NewRegistry()
	for _, m := range []modules.Module{
		tembo.New(cfg.Tembo, client),
		github.New(cfg.GitHub, client),
	} {
		if err := registry.Register(m); err != nil {
			return nil, errors.Wrapf(err, "register %s", m.Name())
		}
	}
	return registry, nil
}

func newMux(registry *modules.Registry, authorizer *middleware.Authorizer, logger *slog.Logger) http.Handler {
	// Create router (Go 1.22+ method-aware patterns)
	mux := http.NewServeMux()

	type moduleInfo struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		APIVersion  string `json:"api_version"`
	}
	var mods []moduleInfo
	for _, m := range registry.Modules() {
		mods = append(mods, moduleInfo{Name: m.Name(), Description: m.Description(), APIVersion: m.APIVersion()})
	}

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"status":  "ok",
			"tools":   registry.ToolNames(),
			"modules": mods,
		})
	})

	// MCP endpoint with request ID + recovery + authorization + transport middleware
	mcpHandler := mcp.NewHandler(registry, logger)
	mux.Handle("/mcp", middleware.RequestID(
		middleware.Recovery(logger)(
			authorizer.Authorize(
				middleware.Transport(mcpHandler, logger),
			),
		),
	))

	return mux
}
