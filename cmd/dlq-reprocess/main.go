package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/IBM/sarama"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/eshop/internal/domain"
	"github.com/vladislavdragonenkov/eshop/internal/messaging/kafka"
)

const (
	defaultReplayLimit = 100
	defaultIdleTimeout = 2 * time.Second
	clientID           = "eshop-dlq-reprocess"
)

type config struct {
	brokers     []string
	sourceTopic string
	targetTopic string
	limit       int
	execute     bool
	fromNewest  bool
	idleTimeout time.Duration
}

type envLookup func(key string) (string, bool)

// messageReader — часть kafka.TopicReader, нужная утилите.
type messageReader interface {
	Read(ctx context.Context, topic string, opts kafka.ReadOptions, handle func(*sarama.ConsumerMessage) error) (int, error)
}

type replayStats struct {
	processed int
	replayed  int
	skipped   int
}

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.InfoLevel)
	_ = godotenv.Load()

	cfg, err := readConfig(os.Args[1:], os.LookupEnv, os.Stderr)
	if err != nil {
		fail("%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		fail("dlq replay failed: %v", err)
	}
}

func readConfig(args []string, lookup envLookup, output io.Writer) (config, error) {
	var (
		brokersRaw string
		cfg        config
	)

	defaultTarget := kafka.TopicOrderEvents
	if v, ok := lookup("ESHOP_KAFKA_TOPIC"); ok && strings.TrimSpace(v) != "" {
		defaultTarget = strings.TrimSpace(v)
	}

	fs := flag.NewFlagSet("dlq-reprocess", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVar(&brokersRaw, "brokers", "", "Kafka brokers as comma-separated list (fallback: KAFKA_BROKERS)")
	fs.StringVar(&cfg.sourceTopic, "source-topic", kafka.TopicDeadLetter, "DLQ source topic")
	fs.StringVar(&cfg.targetTopic, "target-topic", defaultTarget, "target topic for replay (fallback: ESHOP_KAFKA_TOPIC)")
	fs.IntVar(&cfg.limit, "limit", defaultReplayLimit, "max number of messages to scan/replay")
	fs.BoolVar(&cfg.execute, "execute", false, "execute replay; default is dry-run")
	fs.BoolVar(&cfg.fromNewest, "from-newest", false, "scan latest messages first (bounded by limit)")
	fs.DurationVar(&cfg.idleTimeout, "idle-timeout", defaultIdleTimeout, "idle timeout per partition")
	if err := fs.Parse(args); err != nil {
		return config{}, err
	}

	if strings.TrimSpace(brokersRaw) == "" {
		brokersRaw, _ = lookup("KAFKA_BROKERS")
	}
	cfg.brokers = parseBrokers(brokersRaw)

	switch {
	case len(cfg.brokers) == 0:
		return config{}, errors.New("kafka brokers are required (-brokers or KAFKA_BROKERS)")
	case strings.TrimSpace(cfg.sourceTopic) == "":
		return config{}, errors.New("source-topic is required")
	case strings.TrimSpace(cfg.targetTopic) == "":
		return config{}, errors.New("target-topic is required")
	case cfg.sourceTopic == cfg.targetTopic:
		return config{}, errors.New("source-topic and target-topic must differ")
	case cfg.limit <= 0:
		return config{}, errors.New("limit must be > 0")
	case cfg.idleTimeout <= 0:
		return config{}, errors.New("idle-timeout must be > 0")
	}
	return cfg, nil
}

func parseBrokers(raw string) []string {
	chunks := strings.Split(raw, ",")
	brokers := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		if broker := strings.TrimSpace(chunk); broker != "" {
			brokers = append(brokers, broker)
		}
	}
	return brokers
}

func run(ctx context.Context, cfg config) error {
	reader, err := kafka.NewTopicReader(cfg.brokers, clientID, cfg.idleTimeout)
	if err != nil {
		return err
	}
	defer func() { _ = reader.Close() }()

	var publisher domain.OutboxPublisher
	if cfg.execute {
		producer, err := kafka.NewProducer(cfg.brokers, clientID)
		if err != nil {
			return err
		}
		defer func() { _ = producer.Close() }()
		publisher = kafka.NewOutboxPublisher(producer, cfg.targetTopic)
	}

	_, err = replay(ctx, cfg, reader, publisher)
	return err
}

// replay читает DLQ и переотправляет восстановленные события. Без publisher работает как dry-run.
func replay(ctx context.Context, cfg config, reader messageReader, publisher domain.OutboxPublisher) (replayStats, error) {
	logger := log.WithFields(log.Fields{
		"source_topic": cfg.sourceTopic,
		"target_topic": cfg.targetTopic,
		"execute":      cfg.execute,
	})
	if cfg.execute && publisher == nil {
		return replayStats{}, errors.New("publisher is required in execute mode")
	}
	logger.WithField("limit", cfg.limit).Info("starting dlq replay")

	var stats replayStats
	_, err := reader.Read(ctx, cfg.sourceTopic, kafka.ReadOptions{Limit: cfg.limit, FromNewest: cfg.fromNewest}, func(msg *sarama.ConsumerMessage) error {
		stats.processed++
		msgLogger := logger.WithFields(log.Fields{"partition": msg.Partition, "offset": msg.Offset})

		event, err := kafka.ReplayEvent(msg.Value)
		if err != nil {
			stats.skipped++
			msgLogger.WithError(err).Warn("skip unsupported dlq message")
			return nil
		}

		if !cfg.execute {
			stats.replayed++
			msgLogger.WithFields(log.Fields{
				"outbox_id":  event.ID,
				"order_id":   event.AggregateID,
				"event_type": event.EventType,
			}).Info("dlq replay candidate")
			return nil
		}

		if err := publisher.Publish(event); err != nil {
			return fmt.Errorf("publish replay of %s: %w", event.ID, err)
		}
		stats.replayed++
		return nil
	})

	mode := "dry-run"
	if cfg.execute {
		mode = "execute"
	}
	logger.WithFields(log.Fields{
		"mode":      mode,
		"processed": stats.processed,
		"replayed":  stats.replayed,
		"skipped":   stats.skipped,
	}).Info("dlq replay finished")
	return stats, err
}

func fail(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
