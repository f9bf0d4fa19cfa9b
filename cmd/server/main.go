package main

import (
	"context"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"bridge-monitor/server/internal/auth"
	"bridge-monitor/server/internal/config"
	"bridge-monitor/server/internal/domain"
	"bridge-monitor/server/internal/metrics"
	"bridge-monitor/server/internal/pipeline"
	"bridge-monitor/server/internal/simulate"
	"bridge-monitor/server/internal/store"
	transport "bridge-monitor/server/internal/transport/http"
	"bridge-monitor/server/internal/ws"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found — using system environment variables")
	}

	cfg := config.Load()
	log.Println("Starting bridge monitor server...")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := store.NewPostgresStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to Postgres: %v", err)
	}
	defer db.Close()
	log.Println("Connected to Postgres")

	redis, err := store.NewRedisStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redis.Close()
	log.Println("Connected to Redis")

	// Pipeline: sampler → dispatcher → {db writer, state writer, alarms}
	dispatcher := pipeline.NewDispatcher(cfg.DBChannelSize, cfg.StateChannelSize, cfg.AlarmChannelSize)

	dbWriter := pipeline.NewDBWriter(dispatcher.DBChan, db, cfg.DBBatchSize, cfg.DBFlushIntervalMS)
	go dbWriter.Run(ctx)

	stateWriter := pipeline.NewStateWriter(dispatcher.StateChan, redis)
	go stateWriter.Run(ctx)

	alarmEvaluator := pipeline.NewAlarmEvaluator(dispatcher.AlarmChan, db, redis)
	go alarmEvaluator.Run(ctx)

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	sampler := simulate.NewSampler(db, func(m *domain.Measurement) {
		metrics.SamplesGenerated.Inc()
		dispatcher.Dispatch(m)
	}, time.Duration(cfg.SampleIntervalMS)*time.Millisecond, rng)
	go sampler.Run(ctx)
	log.Printf("Synthetic sampler started (interval %dms)", cfg.SampleIntervalMS)

	// Live feed: Redis pub/sub → websocket hub
	hub := ws.NewHub()
	go hub.Run(ctx)
	go hub.PumpRedis(ctx, redis.SubscribeLive(ctx))

	authenticator := auth.NewAuthenticator(cfg, redis)
	handler := transport.NewHandler(db, redis, hub, cfg.ExportSampleHz, cfg.ExportMaxSeconds)
	router := transport.NewRouter(handler, transport.NewAuthMiddleware(authenticator))

	server := &http.Server{
		Addr:        ":" + cfg.HTTPPort,
		Handler:     router,
		ReadTimeout: 10 * time.Second,
		// No write timeout: CSV exports stream for minutes.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server listening on port %s", cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped gracefully")
}
