package main

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/krakend/docsearch-mcp/internal/api"
	"github.com/krakend/docsearch-mcp/tools"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the documentation HTTP API",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	cmd.Flags().String("addr", "", "listen address (overrides http.addr)")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.HTTP.Addr = addr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tools.Configure(cfg)
	if err := tools.InitializeDocSearch(); err != nil {
		return fmt.Errorf("failed to initialize documentation search: %w", err)
	}
	defer func() {
		if err := tools.CloseDocSearch(); err != nil {
			log.Printf("Error closing doc search: %v", err)
		}
	}()

	watcher, err := tools.StartWatching(ctx)
	if err != nil {
		log.Printf("Warning: File watching unavailable: %v", err)
	}
	if watcher != nil {
		defer watcher.Stop()
	}

	srv := api.NewServer(tools.NewBackend(), tools.MaxResultsLimit)
	log.Printf("✓ HTTP API listening on %s", cfg.HTTP.Addr)
	if err := srv.ListenAndServe(ctx, cfg.HTTP.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	log.Printf("HTTP API stopped")
	return nil
}
