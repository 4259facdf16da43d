package main

import (
	"context"
	"log"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/notekeeper/internal/buildinfo"
	"github.com/dmitrijs2005/notekeeper/internal/client/cli"
	"github.com/dmitrijs2005/notekeeper/internal/client/config"
	"github.com/dmitrijs2005/notekeeper/internal/filex"
	"github.com/dmitrijs2005/notekeeper/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	// the REPL owns the terminal, so diagnostics go to a file
	dataDir, err := filex.EnsureDir(cfg.DataDir, ".")
	if err != nil {
		log.Fatalf("%v", err)
	}
	logFile, err := os.OpenFile(filepath.Join(dataDir, "notekeeper.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		log.Fatalf("open log: %v", err)
	}
	defer logFile.Close()
	logger := logging.New(cfg.LogLevel, logFile)

	app, err := cli.NewApp(ctx, cfg, logger, prometheus.DefaultRegisterer)
	if err != nil {
		log.Fatalf("%v", err)
		return
	}

	app.Run(ctx)

}
