package main

import (
	"context"
	"flag"
	"log"
	"os"

	"Aethena/backend/go/internal/config"
	"Aethena/backend/go/internal/rag_service/bootstrap"
	"Aethena/backend/go/internal/rag_service/mcptools"
	"Aethena/backend/go/pkg/logger"
	"github.com/mark3labs/mcp-go/server"
)

// STDIO transport (default)
//go run ./cmd/mcp_server -tenant=<id>
//
// SSE transport on port 8085
//go run ./cmd/mcp_server -tenant=<id> -transport=sse -port=8085
//
// StreamableHTTP transport on port 9000
//go run ./cmd/mcp_server -tenant=<id> -transport=httpstream -port=9000

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML configuration file")
	tenant := flag.String("tenant", os.Getenv("AETHENA_TENANT"), "tenant whose documents the tools answer from")
	transport := flag.String("transport", "stdio", "Transport method: stdio, sse, or httpstream")
	port := flag.String("port", "8085", "Port for HTTP-based transports (sse, httpstream)")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.Init(logger.ParseLevel(cfg.Logger.Level))
	// stdio 模式下标准输出属于协议通道, 日志改写到标准错误。
	if *transport == "stdio" {
		logger.SetOutput(os.Stderr)
	}
	appLogger := logger.New("MCPServer", "", *tenant)

	app, err := bootstrap.Build(context.Background(), cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize dependencies: " + err.Error())
	}
	defer app.Close()

	tools, err := mcptools.New(app.Server, *tenant)
	if err != nil {
		appLogger.Fatal(err.Error())
	}
	s := tools.NewServer("Aethena", cfg.App.Version)

	switch *transport {
	case "sse":
		log.Printf("Starting Aethena MCP server with SSE transport on port %s", *port)
		if err := server.NewSSEServer(s).Start(":" + *port); err != nil {
			log.Fatalf("SSE server error: %v", err)
		}
	case "httpstream":
		log.Printf("Starting Aethena MCP server with StreamableHTTP transport on port %s", *port)
		if err := server.NewStreamableHTTPServer(s).Start(":" + *port); err != nil {
			log.Fatalf("HTTP server error: %v", err)
		}
	case "stdio":
		log.Println("Starting Aethena MCP server with STDIO transport")
		if err := server.ServeStdio(s); err != nil {
			log.Fatalf("STDIO server error: %v", err)
		}
	default:
		log.Fatalf("Unknown transport: %s. Use stdio, sse, or httpstream", *transport)
	}
}
