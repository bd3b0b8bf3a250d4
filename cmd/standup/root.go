package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/uiYzzi/auto-daily-stand-up-meeting/internal/config"
	"github.com/uiYzzi/auto-daily-stand-up-meeting/internal/report"
	"github.com/uiYzzi/auto-daily-stand-up-meeting/internal/server"
	"github.com/uiYzzi/auto-daily-stand-up-meeting/internal/standup"
)

var (
	configPath    string
	reportDate    string
	githubToken   string
	githubUser    string
	webhookURL    string
	force         bool
	serveAddr     string
	cronSpec      string
	retentionDays int
	exportDir     string
)

var rootCmd = &cobra.Command{
	Use:   "standup",
	Short: "Generate and deliver a daily standup report from GitHub PRs",
	Long: `Standup pulls the pull requests you opened today, tracks how many
working days each referenced task has been running, and posts the report
to a chat webhook on working days.`,
	RunE: runOnce,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP trigger endpoints and the daily schedule",
	RunE:  runServe,
}

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete ledger entries not seen within the retention window",
	RunE:  runPrune,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the task ledger to an xlsx workbook",
	RunE:  runExport,
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(pruneCmd)
	rootCmd.AddCommand(exportCmd)

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&githubToken, "github-token", "", "GitHub API token")
	rootCmd.PersistentFlags().StringVarP(&githubUser, "user", "u", "", "GitHub username (defaults to the token owner)")
	rootCmd.PersistentFlags().StringVar(&webhookURL, "webhook-url", "", "Chat webhook URL (omit to print the report instead)")

	rootCmd.Flags().StringVarP(&reportDate, "date", "d", "", "Report date (YYYY-MM-DD, defaults to today)")
	rootCmd.Flags().BoolVarP(&force, "force", "f", false, "Run even on non-working days")

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default :8080)")
	serveCmd.Flags().StringVar(&cronSpec, "cron", "", "Cron schedule for the daily run (default 30 9 * * *)")

	pruneCmd.Flags().IntVar(&retentionDays, "retention", 0, "Retention window in calendar days (default 30)")

	exportCmd.Flags().StringVarP(&exportDir, "output", "o", "reports", "Output directory for the workbook")
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	// Flags win over file and environment.
	if githubToken != "" {
		cfg.GitHub.Token = githubToken
	}
	if githubUser != "" {
		cfg.GitHub.Username = githubUser
	}
	if webhookURL != "" {
		cfg.Webhook.URL = webhookURL
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}
	if cronSpec != "" {
		cfg.Server.CronSpec = cronSpec
	}
	if retentionDays > 0 {
		cfg.Ledger.RetentionDays = retentionDays
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runOnce(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	app, err := standup.New(cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx := cmd.Context()
	date := reportDate
	if date == "" {
		date = app.Today()
	} else if _, err := time.Parse("2006-01-02", date); err != nil {
		return fmt.Errorf("invalid date %q: %v", date, err)
	}

	if !force {
		bar := newSpinner("Checking working-day calendar")
		working, err := app.CheckWorkingDay(ctx)
		finishBar(bar)
		if err != nil {
			fmt.Printf("Could not classify today (%v), continuing\n", err)
		} else if !working {
			fmt.Println("Today is a non-working day; skipping the report. Use --force to run anyway.")
			return nil
		}
	}

	bar := newSpinner("Generating standup report")
	text, err := app.RunReport(ctx, date)
	finishBar(bar)
	if err != nil {
		return err
	}

	if cfg.Webhook.URL == "" {
		fmt.Println(text)
	} else {
		fmt.Println("Report delivered to webhook.")
	}
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	app, err := standup.New(cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	srv, err := server.New(app, cfg.Server.Addr, cfg.Server.CronSpec)
	if err != nil {
		return err
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-stop
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}()

	return srv.Start()
}

func runPrune(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	app, err := standup.New(cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	deleted, err := app.PruneNow(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Printf("Pruned %d stale ledger entr%s (retention %d days)\n",
		deleted, pluralY(deleted), cfg.Ledger.RetentionDays)
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	app, err := standup.New(cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	records, err := app.Ledger.List(cmd.Context())
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("Ledger is empty; nothing to export.")
		return nil
	}

	if err := os.MkdirAll(exportDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	bar := newSpinner("Writing workbook")
	exporter := report.NewExcelExporter(exportDir)
	filename, err := exporter.Export(records, time.Now().In(app.Location()))
	finishBar(bar)
	if err != nil {
		return err
	}

	fmt.Printf("Exported %d task%s\n", len(records), pluralS(len(records)))
	fmt.Printf("  -> %s\n", filename)
	return nil
}
