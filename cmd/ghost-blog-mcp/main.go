// Package main is the entry point for the ghost-blog-mcp service.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/preangelleo/ghost-blog-management-mcp/api"
	mcpauth "github.com/preangelleo/ghost-blog-management-mcp/internal/auth"
	"github.com/preangelleo/ghost-blog-management-mcp/internal/backend"
	"github.com/preangelleo/ghost-blog-management-mcp/internal/config"
	"github.com/preangelleo/ghost-blog-management-mcp/internal/creds"
	"github.com/preangelleo/ghost-blog-management-mcp/internal/policy"
	"github.com/preangelleo/ghost-blog-management-mcp/internal/server"
	"github.com/preangelleo/ghost-blog-management-mcp/internal/tools"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Str("service", "ghost-blog-mcp").Str("version", version).Logger()

	logger := log.With().Str("component", "main").Logger()
	logger.Info().Str("transport", cfg.Transport).Msg("starting ghost-blog-mcp")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	catalog, err := tools.NewCatalog(api.ToolsContract)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to parse MCP tool contract")
	}

	allowlist := policy.NewAllowlist(cfg.AllowedUsers)
	gate := server.NewAccessGate(allowlist)
	if allowlist.Public() {
		logger.Info().Msg("no caller allowlist configured; running in public mode")
	} else {
		logger.Info().Strs("handles", allowlist.Handles()).Msg("caller allowlist active")
	}

	keyRes, err := mcpauth.ResolveServiceKey(mcpauth.KeySourceOptions{
		AllowCLIConfigKey: cfg.AllowCLIConfigKey,
		CLIConfigPath:     cfg.CLIConfigPath,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to resolve service API key")
	}
	if keyRes.Key == "" {
		logger.Warn().Msg("no service API key resolved from GHOST_MCP_SERVICE_API_KEY, GHOST_SERVICE_API_KEY, or CLI config")
	} else {
		logger.Info().Str("key_source", string(keyRes.Source)).Msg("resolved service API key source")
	}

	backendClient, err := backend.New(backend.Config{
		BaseURL:     cfg.BackendURL,
		FastTimeout: cfg.FastTimeout,
		SlowTimeout: cfg.SlowTimeout,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid backend configuration")
	}

	runner := tools.NewRunner(catalog, backendClient, creds.Environment{
		AdminAPIKey: cfg.AdminAPIKey,
		APIURL:      cfg.APIURL,
	}, keyRes.Key)

	var oauthFlow *mcpauth.OAuthFlow
	if cfg.OAuth.Enabled() {
		oauthFlow, err = mcpauth.NewOAuthFlow(mcpauth.OAuthConfig{
			ClientID:     cfg.OAuth.ClientID,
			ClientSecret: cfg.OAuth.ClientSecret,
			AuthURL:      cfg.OAuth.AuthURL,
			TokenURL:     cfg.OAuth.TokenURL,
			RedirectURL:  cfg.OAuth.RedirectURL,
			Scopes:       cfg.OAuth.Scopes,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("invalid OAuth configuration")
		}
	}

	var sessionAuth server.SessionAuthenticator
	if cfg.SessionToken != "" {
		sessionAuth = server.NewTokenSessionAuthenticator(cfg.SessionToken)
	} else if oauthFlow != nil {
		sessionAuth = server.NewOAuthSessionAuthenticator()
		logger.Info().Msg("sessions authenticate with OAuth access tokens")
	} else {
		sessionAuth = server.NewTokenSessionAuthenticator("")
		logger.Warn().Msg("no session token or OAuth settings configured; tool calls will be rejected")
	}

	switch cfg.Transport {
	case config.TransportStdio:
		if runErr := server.RunStdio(ctx, os.Stdin, os.Stdout, catalog, gate, sessionAuth, runner, version, logger); runErr != nil {
			logger.Error().Err(runErr).Msg("stdio runtime stopped with error")
			os.Exit(1)
		}
		logger.Info().Msg("stdio runtime stopped")

	case config.TransportHTTP:
		httpServer := server.NewHTTPServer(cfg, version, commit, buildDate, api.ToolsContract, catalog, gate, sessionAuth, runner, oauthFlow, nil, logger)
		srv := &http.Server{
			Addr:              cfg.ListenAddr,
			Handler:           httpServer.Router(),
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      0, // allow SSE streaming without forcing writer timeout.
			IdleTimeout:       120 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			logger.Info().Str("addr", cfg.ListenAddr).Msg("HTTP server listening")
			if serveErr := srv.ListenAndServe(); serveErr != nil && serveErr != http.ErrServerClosed {
				errCh <- serveErr
			}
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-sigCh:
			logger.Info().Str("signal", sig.String()).Msg("received shutdown signal")
		case serveErr := <-errCh:
			logger.Error().Err(serveErr).Msg("HTTP server error")
		}
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer shutdownCancel()
		if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
			logger.Error().Err(shutdownErr).Msg("HTTP server shutdown error")
			os.Exit(1)
		}
		logger.Info().Msg("server stopped gracefully")

	default:
		logger.Fatal().Str("transport", cfg.Transport).Msg("unsupported transport")
	}
}
