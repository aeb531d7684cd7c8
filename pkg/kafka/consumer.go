// Package kafka consumes topics with franz-go and routes records to handlers.
package kafka

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/Obel-arg/catch-influencer-sub003/pkg/logging"
)

// Message is one consumed record.
type Message struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int32
	Offset    int64
	Timestamp time.Time
}

// Handler processes a message. Returning an error stops the partition from
// advancing so the message is redelivered after a restart.
type Handler func(ctx context.Context, msg Message) error

type ConsumerConfig struct {
	Brokers  []string
	GroupID  string
	ClientID string
	// FromLatest starts a new group at the end of each topic instead of the start.
	FromLatest bool
}

// Consumer polls its topics as one consumer group member and commits the last
// handled offset of each partition.
type Consumer struct {
	client   *kgo.Client
	logger   logging.Logger
	groupID  string
	handlers map[string]Handler
	mu       sync.RWMutex
}

func NewConsumer(cfg ConsumerConfig, logger logging.Logger) (*Consumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one kafka broker is required")
	}
	offset := kgo.NewOffset().AtStart()
	if cfg.FromLatest {
		offset = kgo.NewOffset().AtEnd()
	}
	opts := []kgo.Opt{
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ConsumerGroup(cfg.GroupID),
		kgo.ConsumeResetOffset(offset),
		kgo.DisableAutoCommit(),
		kgo.BlockRebalanceOnPoll(),
	}
	if cfg.ClientID != "" {
		opts = append(opts, kgo.ClientID(cfg.ClientID))
	}

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka client: %w", err)
	}

	return &Consumer{
		client:   client,
		logger:   logger,
		groupID:  cfg.GroupID,
		handlers: make(map[string]Handler),
	}, nil
}

// AddHandler registers the handler for topic and subscribes to it.
func (c *Consumer) AddHandler(topic string, handler Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.handlers[topic] = handler
	if c.client != nil {
		c.client.AddConsumeTopics(topic)
	}
}

func (c *Consumer) Close() error {
	c.client.Close()
	return nil
}

// Start polls until ctx is done.
func (c *Consumer) Start(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		fetches := c.client.PollFetches(ctx)
		if errs := fetches.Errors(); len(errs) > 0 {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.WithField("errors", fmt.Sprint(errs)).Error("Errors while polling kafka")
			continue
		}

		records := make([]*kgo.Record, 0, fetches.NumRecords())
		fetches.EachRecord(func(r *kgo.Record) {
			records = append(records, r)
		})

		commit := c.processRecords(ctx, records)
		if len(commit) > 0 {
			if err := c.client.CommitRecords(ctx, commit...); err != nil {
				c.logger.WithError(err).Error("Failed to commit kafka records")
			}
		}
		c.client.AllowRebalance()
	}
}

type topicPartition struct {
	topic     string
	partition int32
}

// processRecords hands records to their handlers in order and returns the last
// successfully handled record of every partition. After a failure nothing
// later in that partition is handled or committed.
func (c *Consumer) processRecords(ctx context.Context, records []*kgo.Record) []*kgo.Record {
	blocked := make(map[topicPartition]bool)
	lastSuccess := make(map[topicPartition]*kgo.Record)

	for _, record := range records {
		tp := topicPartition{topic: record.Topic, partition: record.Partition}
		if blocked[tp] {
			continue
		}

		c.mu.RLock()
		handler, exists := c.handlers[record.Topic]
		c.mu.RUnlock()

		if !exists {
			c.logger.WithField("topic", record.Topic).Warn("No handler registered for topic")
			lastSuccess[tp] = record
			continue
		}

		if err := handler(ctx, toMessage(record)); err != nil {
			c.logger.WithError(err).WithFields(logging.Fields{
				"topic":     record.Topic,
				"partition": record.Partition,
				"offset":    record.Offset,
			}).Error("Failed to handle message - will retry on restart")
			blocked[tp] = true
			continue
		}
		lastSuccess[tp] = record
	}

	if len(lastSuccess) == 0 {
		return nil
	}
	commit := make([]*kgo.Record, 0, len(lastSuccess))
	for _, record := range lastSuccess {
		commit = append(commit, record)
	}
	return commit
}

func toMessage(record *kgo.Record) Message {
	hdrs := make(map[string]string, len(record.Headers))
	for _, h := range record.Headers {
		hdrs[h.Key] = string(h.Value)
	}
	return Message{
		Key:       record.Key,
		Value:     record.Value,
		Headers:   hdrs,
		Topic:     record.Topic,
		Partition: record.Partition,
		Offset:    record.Offset,
		Timestamp: record.Timestamp,
	}
}

// Ping checks that at least one broker answers.
func (c *Consumer) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx); err != nil {
		return fmt.Errorf("kafka health check failed: %w", err)
	}
	return nil
}

func (c *Consumer) GroupID() string {
	return c.groupID
}
