// Package main is the entry point for the experiment designer API server.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/experiment-designer/internal/config"
	"github.com/experiment-designer/internal/controller"
	"github.com/experiment-designer/internal/tracing"
	"github.com/experiment-designer/internal/web"
)

func main() {
	port := flag.Int("port", 0, "Port to run the API server on (default from config)")
	configPath := flag.String("config", "", "Path to a YAML config file")
	flag.Parse()

	cfg := config.Get()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		config.Set(loaded)
		cfg = loaded
	}

	fmt.Println("🧪 Experiment Designer - API")
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Println()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tp, err := tracing.Setup(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
		Version:     controller.Version,
		Pretty:      cfg.Tracing.Pretty,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer tp.Shutdown(context.Background())

	server := web.NewServer(*port, web.WithConfig(cfg))
	if err := server.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
