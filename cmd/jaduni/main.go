package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/dejo1307/jaduni/internal/config"
	"github.com/dejo1307/jaduni/internal/convert"
	"github.com/dejo1307/jaduni/internal/render"
	"github.com/dejo1307/jaduni/internal/server"
)

func main() {
	// Ensure log output goes to stderr, never stdout (MCP uses stdout for JSON-RPC)
	log.SetOutput(os.Stderr)

	ctx := context.Background()

	// Check for --render <file> and --out <file>
	var renderPath, outPath string
	cfgPath := "jaduni.yaml"
	args := os.Args[1:]
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--render", "--out":
			if i+1 >= len(args) {
				log.Fatalf("%s requires a file argument", args[i])
			}
			if args[i] == "--render" {
				renderPath = args[i+1]
			} else {
				outPath = args[i+1]
			}
			i++
		default:
			cfgPath = args[i]
		}
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		// If config file doesn't exist, use defaults
		fmt.Fprintf(os.Stderr, "warning: %v, using defaults\n", err)
		cfg = config.Default()
	}

	conv := convert.New(cfg, render.Process())
	log.Printf("[main] %d engines registered: %v", conv.Registry().Len(), conv.Registry().Names())

	// One-shot render mode
	if renderPath != "" {
		if outPath != "" {
			meta, err := conv.RenderFile(ctx, "", renderPath, outPath)
			if err != nil {
				log.Fatalf("render failed: %v", err)
			}
			fmt.Fprintf(os.Stderr, "\nRender complete:\n")
			fmt.Fprintf(os.Stderr, "  Engine:    %s\n", meta.Engine)
			fmt.Fprintf(os.Stderr, "  Input:     %s\n", meta.Input)
			fmt.Fprintf(os.Stderr, "  Output:    %s\n", meta.Output)
			fmt.Fprintf(os.Stderr, "  Duration:  %s\n", meta.Duration)
			os.Exit(0)
		}

		if _, err := conv.RenderStream(ctx, "", renderPath, os.Stdout); err != nil {
			log.Fatalf("render failed: %v", err)
		}
		return
	}

	// MCP server mode (default)
	srv, err := server.New(conv)
	if err != nil {
		log.Fatalf("failed to create server: %v", err)
	}

	if err := srv.Run(ctx); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
