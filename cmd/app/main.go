package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"go.uber.org/zap"

	"prmonitor/internal/app/bot"
	"prmonitor/internal/app/config"
	httpapi "prmonitor/internal/app/http"
	"prmonitor/internal/app/http/handler"
	"prmonitor/internal/app/poller"
	"prmonitor/internal/domain"
	"prmonitor/internal/domain/stats"
	"prmonitor/internal/domain/tracker"
	"prmonitor/internal/infrastructure/async"
	"prmonitor/internal/infrastructure/chat/telegram"
	"prmonitor/internal/infrastructure/db/pg"
	forge "prmonitor/internal/infrastructure/forge/github"
	"prmonitor/internal/infrastructure/logging"
)

const (
	tickWorkers     = 4
	tickTaskTimeout = 30 * time.Second
	githubRPS       = 3
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logging.NewLogger()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		log.Fatal("db open error", zap.Error(err))
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		log.Fatal("db ping error", zap.Error(err))
	}

	if err := goose.SetDialect("postgres"); err != nil {
		log.Fatal("goose dialect error", zap.Error(err))
	}
	if err := goose.Up(db, "migrations"); err != nil {
		log.Fatal("goose up error", zap.Error(err))
	}

	uow := pg.NewTxManager(db)

	eventBus := async.NewAsyncEventBus(ctx, 4, log)
	defer eventBus.Close()

	tickPool := async.NewWorkerPool(ctx, tickWorkers, tickTaskTimeout, log)
	defer tickPool.Shutdown()

	recRepo := pg.NewTrackerRepository(db)
	repoStore := pg.NewRepoStore(db)
	statsRepo := pg.NewStatsRepository(db)

	gh := forge.NewClient(cfg.GitHubToken, githubRPS)

	var dsp *bot.Dispatcher
	tg, err := telegram.New(cfg.TelegramToken, func(ctx context.Context, b *tgbot.Bot, u *models.Update) {
		dsp.Handle(ctx, b, u)
	})
	if err != nil {
		log.Fatal("telegram init error", zap.Error(err))
	}

	trackerSvc := tracker.NewService(uow, recRepo, repoStore, gh, tg, eventBus, domain.SystemClock{}, cfg.ChatID)
	statsSvc := stats.NewService(statsRepo)
	dsp = bot.NewDispatcher(trackerSvc, tg, log)

	// Seed the monitored set from config; the upgrade path extends it
	// at runtime.
	for _, ref := range cfg.Repos {
		if err := trackerSvc.AddRepository(ctx, ref); err != nil {
			log.Fatal("repository seed error", zap.String("repo", ref.String()), zap.Error(err))
		}
	}

	p := poller.New(trackerSvc, tickPool, cfg.PollInterval, cfg.IgnoredRepos, log)
	go p.Run(ctx)

	go tg.Start(ctx)

	h := handler.New(trackerSvc, statsSvc, log)
	router := httpapi.NewRouter(h, log)

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server starting", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	log.Info("bot started",
		zap.Int64("chat_id", cfg.ChatID),
		zap.Int("repositories", len(cfg.Repos)),
		zap.Duration("poll_interval", cfg.PollInterval),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", zap.Error(err))
	}
	cancel()
}
