package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cdr.dev/slog/v3"
	"cdr.dev/slog/v3/sloggers/sloghuman"
	"github.com/coder/quartz"
	_ "modernc.org/sqlite"

	"github.com/fardannozami/ghostwatch/internal/admin"
	"github.com/fardannozami/ghostwatch/internal/app/usecase"
	"github.com/fardannozami/ghostwatch/internal/calendar"
	"github.com/fardannozami/ghostwatch/internal/config"
	"github.com/fardannozami/ghostwatch/internal/infra/console"
	"github.com/fardannozami/ghostwatch/internal/infra/sqlite"
	"github.com/fardannozami/ghostwatch/internal/notify"
	"github.com/fardannozami/ghostwatch/internal/scheduler"
)

func main() {
	// 1. Load Config
	cfg := config.Load()

	// 2. Logger
	logger := slog.Make(sloghuman.Sink(os.Stderr)).Leveled(slog.LevelInfo)

	// 3. Reporting calendar - the single source of truth for what "today" means
	cal, err := calendar.New(cfg.ReportingTimezone)
	if err != nil {
		log.Fatalf("Failed to load reporting timezone: %v", err)
	}

	// 4. Database & Store
	// Enable WAL mode and busy timeout to avoid "database is locked" errors
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", cfg.SQLitePath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	store := sqlite.NewStore(db, cal, cfg.StoreTimeout)
	if err := store.InitSchema(context.Background()); err != nil {
		log.Fatalf("Failed to init schema: %v", err)
	}

	// 5. Engine wiring. The chat transport is an external collaborator: it
	// feeds RecordMessage/Track/Untrack/GetReport and delivers what the
	// dispatcher formats. The bundled binary runs the boundary sweeper and
	// the admin surface, and logs outbound notifications.
	locks := usecase.NewPairLocks()
	clock := quartz.NewReal()
	closeDayUC := usecase.NewCloseDayUsecase(store, store, cal, locks)
	reportUC := usecase.NewGetReportUsecase(store, store, cfg.HistoryDays)
	dispatcher := notify.NewDispatcher(cal)
	sender := console.NewSender(logger.Named("sender"))

	// 6. Day-Boundary Sweeper
	sweeper := scheduler.New(scheduler.Options{
		Tracking:   store,
		Sweeps:     store,
		CloseDay:   closeDayUC,
		Calendar:   cal,
		Dispatcher: dispatcher,
		Sender:     sender,
		Logger:     logger.Named("sweeper"),
		Interval:   cfg.SweepInterval,
		Workers:    cfg.SweepWorkers,
		Clock:      clock,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := sweeper.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error(ctx, "sweeper stopped", slog.Error(err))
			stop()
		}
	}()

	// 7. Admin HTTP surface (healthz, manual sweep trigger for external cron,
	// streak report lookup)
	var adminSrv *admin.Server
	if cfg.AdminAddr != "" {
		adminSrv = admin.NewServer(cfg.AdminAddr, cfg.AdminAPIKey, sweeper, reportUC, clock, logger.Named("admin"))
		go func() {
			logger.Info(ctx, "admin server listening", slog.F("addr", cfg.AdminAddr))
			if err := adminSrv.ListenAndServe(); err != nil {
				logger.Error(ctx, "admin server stopped", slog.Error(err))
				stop()
			}
		}()
	}

	logger.Info(ctx, "ghostwatch is running",
		slog.F("timezone", cfg.ReportingTimezone),
		slog.F("sweep_interval", cfg.SweepInterval),
	)

	// 8. Wait for OS Signal
	<-ctx.Done()

	log.Println("Shutting down...")
	if adminSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := adminSrv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Admin server shutdown: %v", err)
		}
	}
}
