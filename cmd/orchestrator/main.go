package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	kafkaevents "github.com/sheikh-saqib/transfer-saga/internal/events/kafka"
	"github.com/sheikh-saqib/transfer-saga/internal/platform/config"
	"github.com/sheikh-saqib/transfer-saga/internal/platform/metrics"
	"github.com/sheikh-saqib/transfer-saga/internal/risk"
	"github.com/sheikh-saqib/transfer-saga/internal/saga"
	"github.com/sheikh-saqib/transfer-saga/internal/storage/postgres"
)

func main() {
	godotenv.Load()
	cfg := config.OrchestratorFromEnv()
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With("service", "orchestrator")

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

	m := metrics.NewOrchestrator(prometheus.DefaultRegisterer)
	orchestrator := saga.NewOrchestrator(store, publisher, risk.NewScoreEvaluator(), log, m)

	consumer := kafkaevents.NewConsumer(cfg.Kafka.Brokers, cfg.GroupID, kafkaevents.TopicCommands, log)
	defer consumer.Close()

	go func() {
		http.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(cfg.MetricsAddr, nil); err != nil {
			log.Error("metrics listener failed", "err", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("orchestrator consuming", "topic", kafkaevents.TopicCommands, "brokers", cfg.Kafka.Brokers)
	if err := consumer.Run(ctx, orchestrator.HandleMessage); err != nil {
		log.Error("consumer stopped", "err", err)
		os.Exit(1)
	}
	log.Info("orchestrator shut down")
}
