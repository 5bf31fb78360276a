package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/javault/javault/internal/api"
	"github.com/javault/javault/internal/catalog"
	"github.com/javault/javault/internal/config"
	"github.com/javault/javault/internal/db"
	"github.com/javault/javault/internal/jobs"
	"github.com/javault/javault/internal/mediaurl"
	"github.com/javault/javault/internal/repository"
	"github.com/javault/javault/internal/scheduler"
	"github.com/javault/javault/internal/source"
	"github.com/javault/javault/internal/version"
)

func main() {
	ver := version.Load()
	log.Printf("JAVault %s starting...", ver.Version)

	cfg := config.Load()

	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer database.Close()

	if err := db.Migrate(database); err != nil {
		log.Fatalf("migration failed: %v", err)
	}

	movieRepo := repository.NewMovieRepository(database.DB)
	entityRepo := repository.NewEntityRepository(database.DB)
	ignoreRepo := repository.NewIgnoreRepository(database.DB)

	fetcher := source.NewClient(cfg.SourceBaseURL)
	rewriter := mediaurl.NewRewriter(cfg.ProxyBaseURL)
	svc := catalog.NewService(database, movieRepo, entityRepo, ignoreRepo, fetcher, rewriter)

	hub := api.NewWSHub()

	var queue *jobs.Queue
	var enqueuer api.Enqueuer
	if cfg.QueueEnabled() {
		queue = jobs.NewQueue(cfg.RedisAddr)
		queue.RegisterHandler(jobs.TaskScrapeMovie, jobs.NewScrapeHandler(svc, hub))
		if err := queue.Start(context.Background()); err != nil {
			log.Fatalf("job queue failed to start: %v", err)
		}
		defer queue.Stop()
		enqueuer = queue
	} else {
		log.Println("REDIS_ADDR not set, background scraping disabled")
	}

	if cfg.IgnoreRetryEnabled() {
		retryAfter := time.Duration(cfg.IgnoreRetryDays) * 24 * time.Hour
		sched := scheduler.New(ignoreRepo, queue, retryAfter)
		if err := sched.Start(); err != nil {
			log.Fatalf("scheduler failed to start: %v", err)
		}
		defer sched.Stop()
	}

	srv := api.NewServer(svc, enqueuer, hub)

	httpServer := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Port),
		Handler:      srv,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("listening on :%d", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	httpServer.Shutdown(ctx)
}
