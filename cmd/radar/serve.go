package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/pluginradar/radar/internal/api"
	"github.com/pluginradar/radar/internal/config"
	"github.com/pluginradar/radar/internal/records"
	"github.com/pluginradar/radar/internal/storage"
)

var mcpStdio bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the record API over HTTP (and optionally MCP over stdio)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func init() {
	serveCmd.Flags().BoolVar(&mcpStdio, "mcp", false, "also expose the tool registry over MCP stdio")
}

func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(cfg)

	rec, err := records.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening record store: %w", err)
	}
	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening run history: %w", err)
	}
	defer store.Close()

	reg, _, err := buildRegistry(cfg, rec)
	if err != nil {
		return err
	}

	token, err := config.GetAPIToken(config.NewKeychain())
	if err != nil {
		return fmt.Errorf("initializing API token: %w", err)
	}

	handler := api.NewAppHandler(api.AppDeps{
		Records:  rec,
		Store:    store,
		Registry: reg,
		Token:    token,
	})

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: handler}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		fmt.Fprintf(os.Stderr, "radar listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if mcpStdio {
		mcpSrv := api.NewMCPServer(reg)
		g.Go(func() error {
			if err := api.ServeStdio(gctx, mcpSrv, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("mcp stdio server: %w", err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr, "shut down cleanly")
	return nil
}
