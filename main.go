package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/krakend/docsearch-mcp/internal/config"
	"github.com/krakend/docsearch-mcp/tools"
)

const (
	version     = "0.1.0"
	serverName  = "docsearch-mcp-server"
	description = "MCP server for searching Documenter.jl documentation sites"
)

func main() {
	// Handle version flag
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		fmt.Printf("%s version %s\n", serverName, version)
		os.Exit(0)
	}

	// Set up logging to stderr (MCP uses stdout for protocol)
	log.SetOutput(os.Stderr)
	log.Printf("%s v%s starting...", serverName, version)

	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	tools.Configure(cfg)

	// Create MCP server
	server := createMCPServer()

	// Register all tools and resources
	if err := registerTools(server); err != nil {
		log.Fatalf("Failed to register tools: %v", err)
	}
	registerResources(server)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	watcher, err := tools.StartWatching(ctx)
	if err != nil {
		log.Printf("Warning: File watching unavailable: %v", err)
	}

	log.Printf("✓ Server ready and waiting for connections")

	// Set up cleanup on shutdown
	defer func() {
		if watcher != nil {
			watcher.Stop()
		}
		if err := tools.CloseDocSearch(); err != nil {
			log.Printf("Error closing doc search: %v", err)
		}
	}()

	// Run server with stdio transport
	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		log.Printf("Server error: %v", err)
	}
}

// createMCPServer initializes the MCP server
func createMCPServer() *mcp.Server {
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    serverName,
			Version: version,
		},
		&mcp.ServerOptions{Instructions: description},
	)

	log.Printf("Server initialized: %s v%s", serverName, version)
	return server
}

// registerTools registers all MCP tools
func registerTools(server *mcp.Server) error {
	if err := tools.RegisterDocSearchTools(server); err != nil {
		return fmt.Errorf("failed to register doc search tools: %w", err)
	}

	log.Printf("✓ All tools registered: 4 tools (search_documentation, list_pages, get_page, refresh_documentation_index)")
	return nil
}

// registerResources registers all MCP resources
func registerResources(server *mcp.Server) {
	tools.RegisterDocSearchResources(server)
	log.Printf("✓ Resources registered: docs://sources, docs://pages/{source}")
}
