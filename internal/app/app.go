// Package app wires the pipeline stages together. Stages only talk through
// dated snapshots, so each one can also run on its own.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/deusflow/newsletter/internal/config"
	"github.com/deusflow/newsletter/internal/designer"
	"github.com/deusflow/newsletter/internal/logger"
	"github.com/deusflow/newsletter/internal/metrics"
	"github.com/deusflow/newsletter/internal/retry"
	"github.com/deusflow/newsletter/internal/scraper"
	"github.com/deusflow/newsletter/internal/selector"
	"github.com/deusflow/newsletter/internal/telegram"
)

// Commands accepted by Run, in pipeline order after "all".
var Commands = []string{"all", "init", "scrape", "select", "redact", "design", "publish"}

// ErrUnknownCommand is returned for a command not in Commands.
var ErrUnknownCommand = errors.New("unknown command")

// LogsDir holds the per-day and per-stage log files, relative to BaseDir.
const LogsDir = "logs"

type stage struct {
	name string
	logs string // log file name when the stage runs alone
	run  func(ctx context.Context) error
}

// App runs pipeline stages with process settings from the environment.
type App struct {
	cfg   *config.Config
	runID string
	log   *slog.Logger
	now   func() time.Time

	// HTTPClient overrides the client used by the network stages.
	HTTPClient *http.Client
	// LogToFile enables the log file under LogsDir.
	LogToFile bool
}

func New(cfg *config.Config) *App {
	return &App{
		cfg:       cfg,
		runID:     uuid.NewString(),
		log:       logger.Logger,
		now:       time.Now,
		LogToFile: true,
	}
}

// RunID identifies this run in logs and metrics.
func (a *App) RunID() string {
	return a.runID
}

// Run executes one stage, or every stage in order for "all". The first
// failing stage stops the run.
func (a *App) Run(ctx context.Context, command string) error {
	stages, err := a.plan(command)
	if err != nil {
		return err
	}

	closer, err := a.initLogger(command, stages)
	if err != nil {
		return err
	}
	defer closer.Close()

	metrics.Global.SetRun(a.runID)
	a.log.Info("starting newsletter pipeline", "command", command)

	for _, s := range stages {
		a.log.Info("running stage", "stage", s.name)
		start := time.Now()
		err := s.run(ctx)
		metrics.Global.RecordStage(s.name, time.Since(start))
		if err != nil {
			metrics.Global.SetError(err.Error())
			a.log.Error("stage failed", "stage", s.name, "error", err)
			return fmt.Errorf("%s: %w", s.name, err)
		}
		a.log.Info("stage completed", "stage", s.name, "duration", time.Since(start).Round(time.Millisecond))
	}

	a.log.Info("newsletter pipeline completed", "command", command)
	return nil
}

// initLogger opens logs/<date>.log for a full run and logs/<stage>.log
// for a single stage.
func (a *App) initLogger(command string, stages []stage) (io.Closer, error) {
	opts := logger.Options{Level: a.cfg.LogLevel}
	if a.LogToFile {
		opts.Dir = filepath.Join(a.cfg.BaseDir, LogsDir)
		if command != "all" && len(stages) == 1 {
			opts.Name = stages[0].logs
		}
	}
	closer, err := logger.Init(opts)
	if err != nil {
		return nil, err
	}
	a.log = logger.Logger.With("run_id", a.runID)
	return closer, nil
}

func (a *App) component(name string) *slog.Logger {
	return logger.Component(name).With("run_id", a.runID)
}

// plan loads the configuration of every stage the command needs, so a
// broken file fails the run before any stage starts.
func (a *App) plan(command string) ([]stage, error) {
	builders := map[string]func() (stage, error){
		"init":    a.initStage,
		"scrape":  a.scrapeStage,
		"select":  a.selectStage,
		"redact":  a.redactStage,
		"design":  a.designStage,
		"publish": a.publishStage,
	}

	var names []string
	switch command {
	case "all":
		names = Commands[1:]
		if !a.cfg.TelegramEnabled() {
			names = names[:len(names)-1]
		}
	default:
		if _, ok := builders[command]; !ok {
			return nil, fmt.Errorf("%w %q (want one of %v)", ErrUnknownCommand, command, Commands)
		}
		names = []string{command}
	}

	stages := make([]stage, 0, len(names))
	for _, name := range names {
		s, err := builders[name]()
		if err != nil {
			return nil, err
		}
		stages = append(stages, s)
	}
	return stages, nil
}

func (a *App) configDir() string {
	return config.Resolve(a.cfg.BaseDir, a.cfg.ConfigDir)
}

func (a *App) retryConfig() retry.Config {
	return retry.Config{MaxAttempts: a.cfg.RetryAttempts, Delay: a.cfg.RetryDelay, Backoff: true}
}

func (a *App) httpClient() *http.Client {
	if a.HTTPClient != nil {
		return a.HTTPClient
	}
	return &http.Client{Timeout: a.cfg.RequestTimeout}
}

func (a *App) initStage() (stage, error) {
	cfg, err := config.LoadInit(a.configDir())
	if err != nil {
		return stage{}, err
	}
	return stage{name: "init", logs: cfg.Logs, run: func(context.Context) error {
		return Bootstrap(a.cfg.BaseDir, cfg, a.component("init"))
	}}, nil
}

func (a *App) scrapeStage() (stage, error) {
	cfg, err := config.LoadScraping(a.configDir())
	if err != nil {
		return stage{}, err
	}
	return stage{name: "scrape", logs: cfg.Logs, run: func(ctx context.Context) error {
		_, err := (&scraper.Stage{
			Config:      cfg,
			BaseDir:     a.cfg.BaseDir,
			Retry:       a.retryConfig(),
			Concurrency: a.cfg.ScrapeConcurrency,
			Client:      a.HTTPClient,
			Log:         a.component("scraper"),
			Now:         a.now,
		}).Run(ctx)
		return err
	}}, nil
}

func (a *App) selectStage() (stage, error) {
	cfg, err := config.LoadSelection(a.configDir())
	if err != nil {
		return stage{}, err
	}
	return stage{name: "select", logs: cfg.Logs, run: func(context.Context) error {
		_, err := (&selector.Stage{
			Config:   cfg,
			BaseDir:  a.cfg.BaseDir,
			Detector: selector.StatisticalDetector{},
			Log:      a.component("selector"),
			Now:      a.now,
		}).Run()
		return err
	}}, nil
}

func (a *App) designStage() (stage, error) {
	cfg, err := config.LoadDesign(a.configDir())
	if err != nil {
		return stage{}, err
	}
	return stage{name: "design", logs: cfg.Logs, run: func(ctx context.Context) error {
		_, err := (&designer.Stage{
			Config:  cfg,
			BaseDir: a.cfg.BaseDir,
			Log:     a.component("designer"),
			Now:     a.now,
		}).Run(ctx)
		return err
	}}, nil
}

var errNoTelegram = errors.New("TELEGRAM_TOKEN and TELEGRAM_CHAT_ID are not set")

func (a *App) publishStage() (stage, error) {
	if !a.cfg.TelegramEnabled() {
		return stage{}, errNoTelegram
	}
	cfg, err := config.LoadDesign(a.configDir())
	if err != nil {
		return stage{}, err
	}
	return stage{name: "publish", logs: cfg.Logs, run: func(ctx context.Context) error {
		log := a.component("telegram")
		client := telegram.New(telegram.Options{
			Token:      a.cfg.TelegramToken,
			ChatID:     a.cfg.TelegramChatID,
			HTTPClient: a.httpClient(),
			Retry:      a.retryConfig(),
		}, log)
		_, err := (&telegram.Stage{
			Client:  client,
			Design:  cfg,
			BaseDir: a.cfg.BaseDir,
			Log:     log,
			Now:     a.now,
		}).Run(ctx)
		return err
	}}, nil
}
