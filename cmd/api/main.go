package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/sheikh-saqib/transfer-saga/internal/api"
	kafkaevents "github.com/sheikh-saqib/transfer-saga/internal/events/kafka"
	"github.com/sheikh-saqib/transfer-saga/internal/platform/config"
	"github.com/sheikh-saqib/transfer-saga/internal/storage/postgres"
)

func main() {
	godotenv.Load()
	cfg := config.APIFromEnv()
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With("service", "api")

	db, err := sql.Open("postgres", cfg.PostgresDSN)
	if err != nil {
		log.Error("opening postgres failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		log.Error("postgres unreachable", "err", err)
		os.Exit(1)
	}

	store := postgres.NewPostgresTransactionStore(db)
	publisher := kafkaevents.NewPublisher(cfg.Kafka.Brokers)
	defer publisher.Close()

	server := api.NewServer(store, publisher, log)
	srv := &http.Server{Addr: cfg.Addr, Handler: server.Routes()}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("api listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
	log.Info("api shut down")
}
