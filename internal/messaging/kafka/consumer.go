package kafka

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"
)

const defaultIdleTimeout = 2 * time.Second

// OffsetSource отдаёт партиции топика и границы их offset'ов.
type OffsetSource interface {
	Partitions(topic string) ([]int32, error)
	GetOffset(topic string, partition int32, time int64) (int64, error)
}

// PartitionStream — поток сообщений одной партиции.
type PartitionStream interface {
	Messages() <-chan *sarama.ConsumerMessage
	Errors() <-chan *sarama.ConsumerError
	Close() error
}

// PartitionSource открывает поток партиции с заданного offset'а.
type PartitionSource interface {
	ConsumePartition(topic string, partition int32, offset int64) (PartitionStream, error)
}

type consumerAdapter struct {
	consumer sarama.Consumer
}

func (a consumerAdapter) ConsumePartition(topic string, partition int32, offset int64) (PartitionStream, error) {
	return a.consumer.ConsumePartition(topic, partition, offset)
}

// ReadOptions ограничивает чтение топика.
type ReadOptions struct {
	// Limit — максимум сообщений по всем партициям.
	Limit int
	// FromNewest читает последние Limit сообщений каждой партиции вместо самых старых.
	FromNewest bool
}

// TopicReader читает ограниченный срез топика, существовавший на момент старта, без consumer group.
type TopicReader struct {
	offsets     OffsetSource
	partitions  PartitionSource
	idleTimeout time.Duration
	logger      *log.Entry
	closers     []func() error
}

// NewTopicReader подключается к брокерам.
func NewTopicReader(brokers []string, clientID string, idleTimeout time.Duration) (*TopicReader, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka brokers are not configured")
	}

	config := sarama.NewConfig()
	if clientID != "" {
		config.ClientID = clientID
	}
	config.Consumer.Return.Errors = true

	client, err := sarama.NewClient(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("connect to kafka: %w", err)
	}
	consumer, err := sarama.NewConsumerFromClient(client)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("create kafka consumer: %w", err)
	}

	reader := NewTopicReaderWith(client, consumerAdapter{consumer: consumer}, idleTimeout)
	reader.closers = []func() error{consumer.Close, client.Close}
	return reader, nil
}

// NewTopicReaderWith собирает reader из готовых источников.
func NewTopicReaderWith(offsets OffsetSource, partitions PartitionSource, idleTimeout time.Duration) *TopicReader {
	if idleTimeout <= 0 {
		idleTimeout = defaultIdleTimeout
	}
	return &TopicReader{
		offsets:     offsets,
		partitions:  partitions,
		idleTimeout: idleTimeout,
		logger:      log.WithField("component", "kafka-reader"),
	}
}

// Read передаёт handle сообщения топика по партициям в порядке возрастания их номеров.
// Ошибка handle прерывает чтение. Возвращает число обработанных сообщений.
func (r *TopicReader) Read(ctx context.Context, topic string, opts ReadOptions, handle func(*sarama.ConsumerMessage) error) (int, error) {
	if r == nil || r.offsets == nil || r.partitions == nil {
		return 0, errors.New("kafka reader is not initialized")
	}
	if opts.Limit <= 0 {
		return 0, errors.New("read limit must be > 0")
	}

	partitions, err := r.offsets.Partitions(topic)
	if err != nil {
		return 0, fmt.Errorf("get partitions for topic %s: %w", topic, err)
	}
	sort.Slice(partitions, func(i, j int) bool { return partitions[i] < partitions[j] })

	read := 0
	for _, partition := range partitions {
		if read >= opts.Limit {
			break
		}
		n, err := r.readPartition(ctx, topic, partition, opts.Limit-read, opts.FromNewest, handle)
		read += n
		if err != nil {
			return read, err
		}
	}
	return read, nil
}

func (r *TopicReader) readPartition(ctx context.Context, topic string, partition int32, limit int, fromNewest bool, handle func(*sarama.ConsumerMessage) error) (int, error) {
	oldest, err := r.offsets.GetOffset(topic, partition, sarama.OffsetOldest)
	if err != nil {
		return 0, fmt.Errorf("get oldest offset for partition %d: %w", partition, err)
	}
	newest, err := r.offsets.GetOffset(topic, partition, sarama.OffsetNewest)
	if err != nil {
		return 0, fmt.Errorf("get newest offset for partition %d: %w", partition, err)
	}
	if newest <= oldest {
		return 0, nil
	}

	start := oldest
	if fromNewest && newest-int64(limit) > oldest {
		start = newest - int64(limit)
	}

	stream, err := r.partitions.ConsumePartition(topic, partition, start)
	if err != nil {
		return 0, fmt.Errorf("consume partition %d: %w", partition, err)
	}
	defer func() { _ = stream.Close() }()

	idle := time.NewTimer(r.idleTimeout)
	defer idle.Stop()

	read := 0
	for read < limit {
		select {
		case <-ctx.Done():
			return read, ctx.Err()
		case cerr := <-stream.Errors():
			if cerr != nil {
				return read, fmt.Errorf("partition %d consumer error: %w", partition, cerr)
			}
		case msg, ok := <-stream.Messages():
			if !ok || msg == nil || msg.Offset >= newest {
				return read, nil
			}
			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(r.idleTimeout)

			if err := handle(msg); err != nil {
				return read, err
			}
			read++
			if msg.Offset+1 >= newest {
				return read, nil
			}
		case <-idle.C:
			r.logger.WithFields(log.Fields{"topic": topic, "partition": partition}).Debug("partition idle, moving on")
			return read, nil
		}
	}
	return read, nil
}

// Close закрывает consumer и клиент, если reader их создал.
func (r *TopicReader) Close() error {
	if r == nil {
		return nil
	}
	var errs []error
	for _, closeFn := range r.closers {
		errs = append(errs, closeFn())
	}
	r.closers = nil
	return errors.Join(errs...)
}
