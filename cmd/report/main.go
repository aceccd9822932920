package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"results-hotline/internal/config"
	"results-hotline/internal/reporting"
	"results-hotline/pkg/logger"
	"results-hotline/pkg/utils"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/robfig/cron/v3"
)

// reportWindowDays is how far back each run reaches. Overlapping windows are
// fine; the report is a snapshot, not an incremental export.
const reportWindowDays = 90

func main() {
	once := flag.Bool("once", false, "write one report immediately and exit")
	flag.Parse()

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	svc := reporting.NewService(reporting.NewPostgresRepo(db))

	run := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if err := writeReport(ctx, svc, cfg.Report.OutputDir); err != nil {
			log.Error("report run failed", "err", err)
		}
	}

	if *once {
		run()
		return
	}

	c := cron.New()
	if _, err := c.AddFunc(cfg.Report.CronSpec, run); err != nil {
		log.Error("invalid report schedule", "spec", cfg.Report.CronSpec, "err", err)
		os.Exit(1)
	}
	c.Start()
	log.Info("report scheduler started", "spec", cfg.Report.CronSpec, "output_dir", cfg.Report.OutputDir)

	<-rootCtx.Done()
	log.Info("shutdown initiated")
	<-c.Stop().Done()
}

// writeReport writes one timestamped CSV covering the trailing window.
func writeReport(ctx context.Context, svc *reporting.Service, outputDir string) error {
	now := time.Now().UTC()
	req := reporting.VisitReportRequest{
		Range: reporting.TimeRange{
			From: now.AddDate(0, 0, -reportWindowDays),
			To:   now.AddDate(0, 0, 1),
		},
	}

	name := fmt.Sprintf("deliveries_%s.csv", now.Format("2006-01-02_150405"))
	path := filepath.Join(outputDir, name)
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	n, err := svc.WriteCSV(ctx, f, req)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return err
	}

	slog.Info("report written", "path", path, "rows", n)
	return nil
}
