package stream

import (
	"context"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"
)

// Message is one record read from the topic.
type Message struct {
	Topic     string
	Partition int32
	Offset    int64
	Key       []byte
	Value     []byte
}

// Handler processes decoded events. A returned error stops the consumer.
type Handler interface {
	Handle(ctx context.Context, msg *Message, ev Event) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, msg *Message, ev Event) error

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, msg *Message, ev Event) error {
	return f(ctx, msg, ev)
}

// Fetcher is the subset of *kgo.Client the consumer needs.
type Fetcher interface {
	PollFetches(ctx context.Context) kgo.Fetches
	MarkCommitRecords(rs ...*kgo.Record)
	Close()
}

// Consumer reads the topic as part of a consumer group, starting from the
// earliest offset when the group has no commit. Only records the handler
// accepted (or that were skipped as malformed) are committed, so a failed
// record is redelivered after a restart.
type Consumer struct {
	cfg     Config
	fetcher Fetcher
	logger  *zap.Logger
}

// NewConsumer joins cfg.Group on cfg.Topic.
func NewConsumer(cfg Config, opts ...Option) (*Consumer, error) {
	if !cfg.Enabled() {
		return nil, ErrDisabled
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ClientID(cfg.ClientID),
		kgo.ConsumerGroup(cfg.Group),
		kgo.ConsumeTopics(cfg.Topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
		kgo.AutoCommitMarks(),
	)
	if err != nil {
		return nil, fmt.Errorf("stream: create consumer: %w", err)
	}
	return NewConsumerWithFetcher(cfg, client, opts...), nil
}

// NewConsumerWithFetcher wraps an existing fetcher.
func NewConsumerWithFetcher(cfg Config, f Fetcher, opts ...Option) *Consumer {
	o := buildOptions(opts)
	return &Consumer{cfg: cfg, fetcher: f, logger: o.logger}
}

// Run polls until ctx is cancelled or the handler fails. Malformed records
// are logged and skipped so they are committed past.
func (c *Consumer) Run(ctx context.Context, h Handler) error {
	defer c.fetcher.Close()

	for {
		fetches := c.fetcher.PollFetches(ctx)
		if ctx.Err() != nil || fetches.IsClientClosed() {
			return nil
		}
		for _, fe := range fetches.Errors() {
			c.logger.Warn("fetch error",
				zap.String("topic", fe.Topic),
				zap.Int32("partition", fe.Partition),
				zap.Error(fe.Err))
		}

		var handleErr error
		fetches.EachRecord(func(r *kgo.Record) {
			if handleErr != nil {
				return
			}
			msg := &Message{
				Topic:     r.Topic,
				Partition: r.Partition,
				Offset:    r.Offset,
				Key:       r.Key,
				Value:     r.Value,
			}
			ev, err := DecodeEvent(r.Value)
			if err != nil {
				c.logger.Warn("skipping malformed event",
					zap.String("key", string(r.Key)),
					zap.Int64("offset", r.Offset),
					zap.Error(err))
				c.fetcher.MarkCommitRecords(r)
				return
			}
			if err := h.Handle(ctx, msg, ev); err != nil {
				handleErr = fmt.Errorf("stream: handle %s: %w", ev.SvtID, err)
				return
			}
			c.fetcher.MarkCommitRecords(r)
		})
		if handleErr != nil {
			return handleErr
		}
	}
}
