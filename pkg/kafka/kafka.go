package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/niloyhakimai/medistore-client/pkg/logger"
	"github.com/niloyhakimai/medistore-client/pkg/retry"
	"github.com/twmb/franz-go/pkg/kgo"
)

// Record is a consumed or produced Kafka record
type Record = kgo.Record

// ErrClientClosed is returned by Poll once the consumer has been closed
var ErrClientClosed = errors.New("kafka client closed")

// ProducerConfig holds producer settings
type ProducerConfig struct {
	Brokers       []string
	ClientID      string
	MaxRetries    int
	RetryInterval time.Duration
}

// Producer publishes records synchronously
type Producer struct {
	client *kgo.Client
}

// NewProducer creates a producer and verifies broker connectivity
func NewProducer(ctx context.Context, cfg *ProducerConfig) (*Producer, error) {
	client, err := connect(ctx, cfg.MaxRetries, cfg.RetryInterval,
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ClientID(cfg.ClientID),
		kgo.AllowAutoTopicCreation(),
	)
	if err != nil {
		return nil, err
	}
	return &Producer{client: client}, nil
}

// Produce sends value to topic keyed by key and waits for the ack
func (p *Producer) Produce(ctx context.Context, topic, key string, value []byte) error {
	record := &kgo.Record{Topic: topic, Key: []byte(key), Value: value}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("failed to produce to %s: %w", topic, err)
	}
	return nil
}

// Close flushes and closes the producer
func (p *Producer) Close() {
	p.client.Close()
}

// ConsumerConfig holds consumer group settings
type ConsumerConfig struct {
	Brokers       []string
	GroupID       string
	Topics        []string
	ClientID      string
	MaxRetries    int
	RetryInterval time.Duration
}

// Consumer reads records from a consumer group
type Consumer struct {
	client *kgo.Client
}

// NewConsumer creates a consumer group member and verifies broker connectivity
func NewConsumer(ctx context.Context, cfg *ConsumerConfig) (*Consumer, error) {
	client, err := connect(ctx, cfg.MaxRetries, cfg.RetryInterval,
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ConsumerGroup(cfg.GroupID),
		kgo.ConsumeTopics(cfg.Topics...),
		kgo.ClientID(cfg.ClientID),
		kgo.DisableAutoCommit(),
	)
	if err != nil {
		return nil, err
	}
	return &Consumer{client: client}, nil
}

// Poll blocks until records arrive or ctx is done
func (c *Consumer) Poll(ctx context.Context) ([]*Record, error) {
	fetches := c.client.PollFetches(ctx)
	if fetches.IsClientClosed() {
		return nil, ErrClientClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var errs []error
	fetches.EachError(func(topic string, partition int32, err error) {
		errs = append(errs, fmt.Errorf("fetch %s/%d: %w", topic, partition, err))
	})

	return fetches.Records(), errors.Join(errs...)
}

// CommitRecords commits offsets for the given records
func (c *Consumer) CommitRecords(ctx context.Context, records []*Record) error {
	return c.client.CommitRecords(ctx, records...)
}

// Close leaves the group and closes the client
func (c *Consumer) Close() {
	c.client.Close()
}

func connect(ctx context.Context, maxRetries int, interval time.Duration, opts ...kgo.Opt) (*kgo.Client, error) {
	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka client: %w", err)
	}

	if interval <= 0 {
		interval = time.Second
	}

	log := logger.Get()
	r := retry.New(&retry.Config{
		MaxRetries:      maxRetries,
		InitialInterval: interval,
		MaxInterval:     10 * interval,
		Multiplier:      2.0,
		JitterFactor:    0.1,
	}).OnRetry(func(attempt int, err error, wait time.Duration) {
		log.Warn("Kafka not reachable, retrying", "attempt", attempt, "wait", wait.String(), "error", err)
	})
	if err := r.Do(ctx, client.Ping); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Kafka: %w", err)
	}
	return client, nil
}
