package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/citypulse/trafficqa"
	"github.com/citypulse/trafficqa/common/logger"
	"github.com/citypulse/trafficqa/config"
)

func main() {
	configPath := flag.String("config", "", "path to YAML configuration")
	indexPath := flag.String("index", "", "path prefix of a persisted vector index to load")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.LoadFile(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "load config: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	logger.SetLevel(cfg.Logging.Level)

	ctx := context.Background()
	client, err := trafficqa.NewClient(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "start engine: %v\n", err)
		os.Exit(1)
	}
	defer client.Close()

	if *indexPath != "" {
		if err := client.LoadIndex(*indexPath); err != nil {
			fmt.Fprintf(os.Stderr, "load index: %v\n", err)
			os.Exit(1)
		}
	}

	if err := trafficqa.ServeStdio(client); err != nil {
		fmt.Fprintf(os.Stderr, "server stopped: %v\n", err)
		os.Exit(1)
	}
}
