// Command topics provisions the three log topics. Partition count matters:
// the saga relies on the transaction id partition key for per-transaction
// ordering, so topics are created once and never repartitioned.
package main

import (
	"flag"
	"log/slog"
	"net"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/segmentio/kafka-go"

	kafkaevents "github.com/sheikh-saqib/transfer-saga/internal/events/kafka"
	"github.com/sheikh-saqib/transfer-saga/internal/platform/config"
)

func main() {
	godotenv.Load()
	partitions := flag.Int("partitions", 3, "partition count per topic")
	flag.Parse()

	cfg := config.GatewayFromEnv() // only the broker list is needed here
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With("service", "topics")

	conn, err := kafka.Dial("tcp", cfg.Kafka.Brokers[0])
	if err != nil {
		log.Error("broker dial failed", "err", err)
		os.Exit(1)
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		log.Error("resolving controller failed", "err", err)
		os.Exit(1)
	}
	ctrlConn, err := kafka.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		log.Error("controller dial failed", "err", err)
		os.Exit(1)
	}
	defer ctrlConn.Close()

	topics := []string{kafkaevents.TopicCommands, kafkaevents.TopicEvents, kafkaevents.TopicDeadLetters}
	configs := make([]kafka.TopicConfig, 0, len(topics))
	for _, topic := range topics {
		configs = append(configs, kafka.TopicConfig{
			Topic:             topic,
			NumPartitions:     *partitions,
			ReplicationFactor: 1,
		})
	}

	if err := ctrlConn.CreateTopics(configs...); err != nil {
		log.Error("topic creation failed", "err", err)
		os.Exit(1)
	}
	log.Info("topics created", "topics", topics, "partitions", *partitions)
}
