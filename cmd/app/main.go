package main

import (
	"flag"
	"log"
	"os"

	"WindowOpt/internal/di"
	"WindowOpt/pkg/config"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	log.Printf("env=%s source=%s kafka=%t clickhouse=%t redis=%t",
		cfg.Environment, cfg.MarketData.Source, cfg.Kafka.Enabled, cfg.ClickHouse.Enabled, cfg.Redis.Enabled)

	// Wire DI: Initialize all dependencies
	app, cleanup, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	// Run application (blocks until signal)
	err = app.Run()
	cleanup()
	if err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
