// Command dvup deploys a containerized research data repository stack
// (web application, Postgres, Solr, MinIO, Traefik) onto a local Docker
// host: it validates preconditions, prepares directories, permissions and
// the stack network, then pulls images, starts the services and reports
// their status.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/openrdr/dvup/internal/shell/console"
	"github.com/openrdr/dvup/internal/shell/deployer"
	"github.com/openrdr/dvup/internal/shell/docker"
	"github.com/openrdr/dvup/internal/shell/fsprep"
	"github.com/openrdr/dvup/internal/shell/history"
	"github.com/openrdr/dvup/internal/shell/probe"
)

// Version information (set by build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// =============================================================================
// Exit Codes
// =============================================================================

const (
	ExitSuccess = 0
	ExitFailure = 1
	ExitUsage   = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "Path to driver config file")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("dvup %s (built %s)\n", Version, BuildTime)
		return ExitSuccess
	}
	if flag.NArg() > 0 {
		fmt.Fprintf(os.Stderr, "usage: dvup [-config file] [-version]\n")
		return ExitUsage
	}

	out := console.New(os.Stdout)

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		out.Error("configuration error: %v", err)
		return ExitFailure
	}

	logger := SetupLogger(cfg)
	logger.Info("starting dvup",
		"version", Version,
		"project", cfg.Project,
	)

	dockerClient, err := docker.NewDockerClient(cfg.Docker.Host)
	if err != nil {
		out.Error("cannot create Docker client: %v", err)
		return ExitFailure
	}
	defer dockerClient.Close()

	// History is best-effort; the deployment proceeds without it.
	var recorder deployer.Recorder
	if cfg.History.Enabled {
		store, err := history.NewSQLiteStore(cfg.History.DSN)
		if err != nil {
			out.Warning("run history disabled: %v", err)
		} else {
			defer store.Close()
			recorder = store
		}
	}

	d := deployer.New(
		deployer.Config{
			Project:      cfg.Project,
			SettingsPath: cfg.Paths.Settings,
			ComposePath:  cfg.Paths.Compose,
			DataRoot:     cfg.Paths.DataRoot,
			SecretsDir:   cfg.Paths.SecretsDir,
			ScriptsDir:   cfg.Paths.ScriptsDir,
			ReadyTimeout: cfg.Wait.ReadyTimeout,
			PollInterval: cfg.Wait.PollInterval,
		},
		dockerClient,
		fsprep.NewPreparer(logger),
		probe.NewProber(),
		recorder,
		out,
		logger,
	)

	if _, err := d.Run(context.Background()); err != nil {
		logger.Error("deployment failed", "error", err)
		return ExitFailure
	}

	return ExitSuccess
}
