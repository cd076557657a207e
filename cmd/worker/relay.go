package worker

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/eryxon/uns-gateway/internal/config"
	"github.com/eryxon/uns-gateway/internal/db"
	"github.com/eryxon/uns-gateway/internal/dispatcher"
	"github.com/eryxon/uns-gateway/internal/kafka"
	"github.com/eryxon/uns-gateway/internal/logger"
	"github.com/eryxon/uns-gateway/internal/metrics"
	"github.com/eryxon/uns-gateway/internal/repository"
	"github.com/eryxon/uns-gateway/internal/transport"
	"github.com/eryxon/uns-gateway/internal/worker"
)

var relayCmd = &cobra.Command{
	Use:   "relay",
	Short: "Relay event envelopes from Kafka to subscribed brokers",
	RunE:  runRelay,
}

func runRelay(cmd *cobra.Command, args []string) error {
	// 1) load config
	cfgPath, _ := cmd.Root().PersistentFlags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger.Init(cfg.Log.Level)
	defer logger.Sync()

	metrics.MustRegister(prometheus.DefaultRegisterer)

	// 2) DB connections
	dbx, err := db.NewMySQL(cfg.MySQL)
	if err != nil {
		return fmt.Errorf("mysql connect: %w", err)
	}
	defer dbx.Close()

	chDB, err := db.NewClickHouse(cfg.ClickHouse)
	if err != nil {
		return fmt.Errorf("clickhouse connect: %w", err)
	}
	defer chDB.Close()

	// 3) dispatch pipeline
	brokersRepo := repository.NewBrokersRepository(dbx)
	attemptsRepo := repository.NewAttemptsRepository(chDB)
	adapter := transport.NewAdapter(cfg.Publish.CandidateTimeout)
	recorder := dispatcher.NewRecorder(attemptsRepo, brokersRepo, logger.Log)
	coordinator := dispatcher.NewCoordinator(brokersRepo, adapter, recorder, logger.Log, cfg.Publish.BrokerTimeout)

	// 4) kafka consumer
	topic := cfg.Kafka.Topic
	if topic == "" {
		topic = "eryxon.events"
	}
	groupID := cfg.Kafka.GroupID
	if groupID == "" {
		groupID = "unsgw-relay"
	}

	consumer := kafka.NewConsumerFromConfig(kafka.Config{
		Brokers:        cfg.Kafka.Brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       cfg.Kafka.MinBytes,
		MaxBytes:       cfg.Kafka.MaxBytes,
		CommitInterval: time.Duration(cfg.Kafka.CommitInterval) * time.Millisecond,
	})
	defer consumer.Close()

	w := worker.NewRelay(consumer, coordinator, logger.Log)
	if cfg.Kafka.Workers > 0 {
		w.Workers = cfg.Kafka.Workers
	}

	// 5) graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf(">> relay started topic=%s group=%s workers=%d", topic, groupID, w.Workers)

	return w.Run(ctx)
}
