package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/VasilisChatzivasileiou/forlackofabettername/internal/app"
	"github.com/VasilisChatzivasileiou/forlackofabettername/internal/config"
	"github.com/VasilisChatzivasileiou/forlackofabettername/internal/telemetry"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to a YAML config file")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("failed to load .env: %v", err)
	}

	logger := telemetry.WrapLogger(log.Default())
	settings, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("%v", err)
	}
	settings = config.ApplyEnv(settings, os.LookupEnv, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, app.Config{Logger: logger, Settings: settings}); err != nil {
		log.Fatalf("%v", err)
	}
}
