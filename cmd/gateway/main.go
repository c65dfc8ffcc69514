package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	kafkaevents "github.com/sheikh-saqib/transfer-saga/internal/events/kafka"
	"github.com/sheikh-saqib/transfer-saga/internal/gateway"
	"github.com/sheikh-saqib/transfer-saga/internal/platform/config"
	"github.com/sheikh-saqib/transfer-saga/internal/platform/metrics"
)

func main() {
	godotenv.Load()
	cfg := config.GatewayFromEnv()
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With("service", "gateway")

	m := metrics.NewGateway(prometheus.DefaultRegisterer)
	registry := gateway.NewRegistry()
	wsServer := gateway.NewServer(registry, log, m)
	router := gateway.NewRouter(registry, log, m)

	consumer := kafkaevents.NewConsumer(cfg.Kafka.Brokers, cfg.GroupID, kafkaevents.TopicEvents, log)
	defer consumer.Close()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wsServer.Handler())
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
	srv := &http.Server{Addr: cfg.Addr, Handler: mux}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("gateway listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	go func() {
		log.Info("gateway consuming", "topic", kafkaevents.TopicEvents, "brokers", cfg.Kafka.Brokers)
		if err := consumer.Run(ctx, router.HandleMessage); err != nil {
			log.Error("consumer stopped", "err", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
	log.Info("gateway shut down")
}
