package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/fieldhand/fieldhand/internal/api"
	"github.com/fieldhand/fieldhand/internal/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the fieldhand HTTP and MCP servers (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		stdioMCP, _ := cmd.Flags().GetBool("mcp-stdio")
		return runServer(stdioMCP)
	},
}

func init() {
	serveCmd.Flags().Bool("mcp-stdio", false, "serve MCP over stdio instead of HTTP")
}

func runServer(stdioMCP bool) error {
	fmt.Fprintf(os.Stderr, "fieldhand version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logLevel := slog.LevelInfo
	if strings.EqualFold(cfg.Log.Level, "debug") {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, _, err := newAdvisory()
	if err != nil {
		return err
	}
	store := openStore(cfg)
	defer func() {
		if err := store.Close(); err != nil {
			slog.Warn("closing storage", "error", err)
		}
	}()

	if cfg.Server.Token == "" {
		slog.Warn("no API token configured, HTTP API is unauthenticated")
	}

	handler := api.NewHandler(api.Deps{
		Adviser: svc,
		Store:   store,
		Token:   cfg.Server.Token,
		Locale:  cfg.Advice.Locale,
	})
	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	mcpSrv := api.NewMCPServer(api.MCPDeps{
		Adviser: svc,
		Store:   store,
		Locale:  cfg.Advice.Locale,
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("fieldhand listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	var mcpHTTP *server.StreamableHTTPServer
	if stdioMCP {
		stdioSrv := server.NewStdioServer(mcpSrv)
		g.Go(func() error {
			slog.Info("MCP server started (stdio transport)")
			if err := stdioSrv.Listen(gctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("mcp stdio server: %w", err)
			}
			return nil
		})
	} else {
		mcpHTTP = server.NewStreamableHTTPServer(mcpSrv)
		mcpAddr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.MCPPort)
		g.Go(func() error {
			slog.Info("MCP server listening", "addr", mcpAddr)
			if err := mcpHTTP.Start(mcpAddr); err != nil && err != http.ErrServerClosed {
				return fmt.Errorf("mcp http server: %w", err)
			}
			return nil
		})
	}

	// Shut both servers down when the context is cancelled, whether by
	// signal or by the first server error.
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("http shutdown", "error", err)
		}
		if mcpHTTP != nil {
			if err := mcpHTTP.Shutdown(shutdownCtx); err != nil {
				slog.Warn("mcp shutdown", "error", err)
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr, "shutting down...")
	return nil
}
