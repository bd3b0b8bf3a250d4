// Package standup wires the reporter together: calendar gate, ledger,
// PR source, AI formatter and webhook delivery.
package standup

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/uiYzzi/auto-daily-stand-up-meeting/internal/ai"
	"github.com/uiYzzi/auto-daily-stand-up-meeting/internal/calendar"
	"github.com/uiYzzi/auto-daily-stand-up-meeting/internal/config"
	"github.com/uiYzzi/auto-daily-stand-up-meeting/internal/github"
	"github.com/uiYzzi/auto-daily-stand-up-meeting/internal/ledger"
	"github.com/uiYzzi/auto-daily-stand-up-meeting/internal/report"
	"github.com/uiYzzi/auto-daily-stand-up-meeting/internal/webhook"
)

type Application struct {
	Config     *config.Config
	Logger     *slog.Logger
	Classifier *calendar.Classifier
	Fallback   calendar.FallbackPolicy
	Ledger     *ledger.Ledger
	Assembler  *report.Assembler
	AI         *ai.Client      // nil when no API key is configured
	Webhook    *webhook.Client // nil when no webhook URL is configured

	db  *sql.DB
	loc *time.Location
}

func New(cfg *config.Config) (*Application, error) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	loc, err := time.LoadLocation(cfg.Calendar.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid calendar timezone %q: %w", cfg.Calendar.Timezone, err)
	}

	fallback, err := calendar.ParseFallbackPolicy(cfg.Calendar.Fallback)
	if err != nil {
		return nil, err
	}

	classifier := calendar.NewClassifier(calendar.NewHTTPSource(cfg.Calendar.FeedURL), loc)

	db, err := ledger.Open(cfg.Ledger.Path)
	if err != nil {
		return nil, err
	}
	store := ledger.NewSQLStore(db)
	if err := store.Init(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	app := &Application{
		Config:     cfg,
		Logger:     logger,
		Classifier: classifier,
		Fallback:   fallback,
		db:         db,
		loc:        loc,
	}
	app.Ledger = ledger.New(store, app.workday)

	source := github.NewPullSource(cfg.GitHub.Token, cfg.GitHub.Username)
	app.Assembler = report.NewAssembler(source, app.Ledger, logger)
	logger.Info("GitHub source initialized", "user", orMe(cfg.GitHub.Username))

	if cfg.AI.APIKey != "" {
		app.AI = ai.NewClient(cfg.AI.APIKey, cfg.AI.BaseURL, cfg.AI.Model)
		logger.Info("AI formatter initialized", "model", cfg.AI.Model)
	}
	if cfg.Webhook.URL != "" {
		app.Webhook = webhook.NewClient(cfg.Webhook.URL)
		logger.Info("webhook delivery initialized")
	}

	return app, nil
}

func (app *Application) Close() error {
	return app.db.Close()
}

// Today is the current civil date in the configured reference timezone.
func (app *Application) Today() string {
	return app.Classifier.Today()
}

// Location is the configured reference timezone.
func (app *Application) Location() *time.Location {
	return app.loc
}

// workday is the ledger's working-day oracle. The configured fallback
// policy decides what an unclassifiable day counts as: run treats it as
// a working day with a warning, skip fails the caller loudly instead of
// proceeding on an unvalidated classification.
func (app *Application) workday(ctx context.Context, date string) (bool, error) {
	working, err := app.Classifier.IsWorkingDay(ctx, date)
	if err == nil {
		return working, nil
	}
	if errors.Is(err, calendar.ErrUnavailable) && app.Fallback == calendar.FallbackRun {
		app.Logger.Warn("day classification unavailable, treating as workday", "date", date, "error", err)
		return true, nil
	}
	return false, err
}

// CheckWorkingDay classifies today without any fallback applied.
func (app *Application) CheckWorkingDay(ctx context.Context) (bool, error) {
	return app.Classifier.IsWorkingDay(ctx, app.Today())
}

// RunScheduled is the daily timer entrypoint: it gates on the working-day
// calendar (applying the fallback policy), generates and delivers the
// report, then prunes stale ledger entries.
func (app *Application) RunScheduled(ctx context.Context) error {
	date := app.Today()

	working, err := app.Classifier.IsWorkingDay(ctx, date)
	switch {
	case errors.Is(err, calendar.ErrUnavailable):
		if app.Fallback == calendar.FallbackSkip {
			app.Logger.Warn("day classification unavailable, skipping run", "date", date, "error", err)
			return nil
		}
		app.Logger.Warn("day classification unavailable, running anyway", "date", date, "error", err)
	case err != nil:
		return err
	case !working:
		app.Logger.Info("non-working day, skipping standup report", "date", date)
		return nil
	}

	if _, err := app.RunReport(ctx, date); err != nil {
		return err
	}

	deleted, err := app.Ledger.Prune(ctx, time.Now().In(app.loc), app.Config.Ledger.RetentionDays)
	if err != nil {
		// The report already went out; a failed sweep is maintenance
		// debt, not a run failure.
		app.Logger.Warn("ledger prune failed", "error", err)
		return nil
	}
	if deleted > 0 {
		app.Logger.Info("pruned stale ledger entries", "deleted", deleted)
	}
	return nil
}

// RunReport generates the report for date and delivers it. Delivery is
// all-or-nothing: nothing is sent unless the full sighting batch and
// rendering succeeded. Returns the delivered text.
func (app *Application) RunReport(ctx context.Context, date string) (string, error) {
	rep, err := app.Assembler.Assemble(ctx, date)
	if err != nil {
		app.Logger.Error("failed to assemble report", "date", date, "error", err)
		return "", err
	}

	stats := app.Assembler.Statistics(rep)
	app.Logger.Info("report assembled",
		"date", date,
		"total", stats["total"],
		"merged", stats["merged"],
		"tracked", stats["tracked"],
	)

	final := rep.Digest
	if app.AI != nil {
		formatted, err := app.AI.FormatReport(ctx, rep.Digest)
		if err != nil {
			app.Logger.Warn("AI formatting failed, using raw digest", "error", err)
		} else {
			final = formatted
		}
	}

	if app.Webhook != nil {
		if err := app.Webhook.SendStandupReport(ctx, final, time.Now().In(app.loc)); err != nil {
			app.Logger.Error("failed to deliver report", "error", err)
			return "", err
		}
		app.Logger.Info("report delivered", "date", date)
	}

	return final, nil
}

// PruneNow runs a standalone maintenance sweep.
func (app *Application) PruneNow(ctx context.Context) (int64, error) {
	return app.Ledger.Prune(ctx, time.Now().In(app.loc), app.Config.Ledger.RetentionDays)
}

func orMe(username string) string {
	if username == "" {
		return "@me"
	}
	return username
}
