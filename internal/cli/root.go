// Package cli is the collector's command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/qepting91/misinfo-collector/internal/config"
	"github.com/qepting91/misinfo-collector/internal/fetch"
	"github.com/qepting91/misinfo-collector/internal/logging"
	"github.com/qepting91/misinfo-collector/internal/pipeline"
	"github.com/qepting91/misinfo-collector/internal/session"
)

var (
	configPath  string
	logToStdout bool
	logLevel    string
	syncWrites  bool
)

var rootCmd = &cobra.Command{
	Use:           "collector",
	Short:         "collector gathers social-media posts for misinformation tracking.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", config.DefaultConfigPath, "YAML config file; <name>.local.yaml is layered on top")
	flags.BoolVarP(&logToStdout, "log-to-stdout", "l", false, "also write logs to stdout")
	flags.StringVar(&logLevel, "log-level", "", "debug, info, warn or error (overrides the config)")
	flags.BoolVar(&syncWrites, "sync", false, "fsync after every record")
}

// ExecuteContext runs the command line and exits non-zero on failure.
func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app is what every subcommand sets up first.
type app struct {
	cfg   *config.Config
	creds config.Credentials
	log   *logging.Logger
	run   *session.Run
	stamp string
}

func setup(name string, budget time.Duration) (*app, error) {
	config.LoadEnv()
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if logToStdout {
		cfg.Logging.Stdout = true
	}
	if syncWrites {
		cfg.Output.Sync = true
	}

	now := time.Now()
	logger, err := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Dir:    cfg.Logging.Dir,
		Name:   name,
		Stdout: cfg.Logging.Stdout,
		Now:    now,
	})
	if err != nil {
		return nil, err
	}
	run := session.NewRunWithClock(logger.Logger, budget, time.Now)
	run.Logger.Info("starting", "config", configPath, "log_file", logger.Path)
	return &app{
		cfg:   cfg,
		creds: config.CredentialsFromEnv(),
		log:   logger,
		run:   run,
		stamp: now.Format(logging.StampLayout),
	}, nil
}

func (a *app) fetchOptions() fetch.Options {
	return fetch.Options{
		PageDelay:  a.cfg.Fetch.PageDelay,
		Cooldown:   a.cfg.Fetch.Cooldown,
		MaxRetries: a.cfg.Fetch.MaxRetries,
	}
}

// finish logs the summary and decides the exit status. Only configuration
// and watermark errors fail the process; an interrupt is a normal stop.
func (a *app) finish(sum pipeline.Summary, err error) error {
	defer a.log.Close()
	log := a.run.Logger
	log.Info("run finished",
		"targets", sum.Targets,
		"failed", sum.Failed,
		"written", sum.Written,
		"duplicates", sum.Duplicates,
		"no_user", sum.NoUser,
		"pages", a.run.Pages,
		"elapsed", a.run.Elapsed().Round(time.Second))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled):
		log.Warn("interrupted, output so far is kept")
		return nil
	case pipeline.Fatal(err):
		log.Error("run failed", "err", err)
		return err
	default:
		log.Error("run ended early", "err", err)
		return nil
	}
}
