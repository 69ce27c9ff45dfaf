package app

import (
	"context"
	"errors"

	"github.com/deusflow/newsletter/internal/config"
	"github.com/deusflow/newsletter/internal/gemini"
	"github.com/deusflow/newsletter/internal/ratelimit"
	"github.com/deusflow/newsletter/internal/redactor"
	"github.com/deusflow/newsletter/internal/storage"
	"github.com/deusflow/newsletter/internal/translate"
)

func (a *App) redactStage() (stage, error) {
	cfg, err := config.LoadRedaction(a.configDir())
	if err != nil {
		return stage{}, err
	}
	return stage{name: "redact", logs: cfg.Logs, run: func(ctx context.Context) error {
		return a.redact(ctx, cfg)
	}}, nil
}

// redact wires Gemini, the translators and the summary cache around the
// redaction stage. Without GEMINI_API_KEY every item takes the extractive
// fallback.
func (a *App) redact(ctx context.Context, cfg *config.Redaction) error {
	log := a.component("redactor")

	cache := storage.NewSummaryCache(config.Resolve(a.cfg.BaseDir, a.cfg.SummaryCachePath), a.cfg.SummaryCacheTTL)
	if err := cache.Load(); err != nil {
		log.Warn("summary cache unreadable, starting empty", "error", err)
	}
	if n := cache.Cleanup(); n > 0 {
		log.Info("expired summaries removed", "count", n)
	}

	budget := ratelimit.NewBudget("gemini", a.cfg.MaxGeminiRequests, log)
	opts := redactor.Options{
		Translator: translate.New(translate.Options{
			HTTPClient:  a.httpClient(),
			OpenAIKey:   a.cfg.OpenAIAPIKey,
			OpenAIModel: cfg.TranslatorModel,
		}, log),
		Cache:      cache,
		Budget:     budget,
		Target:     cfg.TargetLanguage,
		MainBudget: cfg.MainBudget,
		ItemBudget: cfg.ItemBudget,
	}

	if a.cfg.GeminiAPIKey != "" {
		model := cfg.SummarizationModel
		if model == "" {
			model = a.cfg.GeminiModel
		}
		client, err := gemini.NewClient(ctx, a.cfg.GeminiAPIKey, model)
		if err != nil {
			log.Warn("gemini unavailable, using extractive summaries", "error", err)
		} else {
			defer client.Close()
			opts.Summarizer = gemini.NewSummarizer(client, budget, a.retryConfig(), log)
		}
	} else {
		log.Warn("GEMINI_API_KEY not set, using extractive summaries")
	}

	_, runErr := (&redactor.Stage{
		Config:   cfg,
		BaseDir:  a.cfg.BaseDir,
		Redactor: redactor.New(opts, log),
		Log:      log,
		Now:      a.now,
	}).Run(ctx)

	budget.LogStats()
	return errors.Join(runErr, cache.Save())
}
