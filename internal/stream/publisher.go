package stream

import (
	"context"
	"errors"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"

	"github.com/ppiankov/accord/internal/metrics"
)

// ErrDisabled is returned by NewPublisher when no brokers are configured.
var ErrDisabled = errors.New("stream: no brokers configured")

// Producer is the subset of *kgo.Client the publisher needs.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
	Close()
}

// Publisher writes events to the configured topic.
type Publisher struct {
	cfg      Config
	producer Producer
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

// Option configures a Publisher or Consumer.
type Option func(*options)

type options struct {
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

func buildOptions(opts []Option) options {
	o := options{logger: zap.NewNop()}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// NewPublisher connects a franz-go client to cfg.Brokers.
func NewPublisher(cfg Config, opts ...Option) (*Publisher, error) {
	if !cfg.Enabled() {
		return nil, ErrDisabled
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ClientID(cfg.ClientID),
		kgo.DefaultProduceTopic(cfg.Topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	)
	if err != nil {
		return nil, fmt.Errorf("stream: create producer: %w", err)
	}
	return NewPublisherWithProducer(cfg, client, opts...), nil
}

// NewPublisherWithProducer wraps an existing producer.
func NewPublisherWithProducer(cfg Config, p Producer, opts ...Option) *Publisher {
	o := buildOptions(opts)
	return &Publisher{cfg: cfg, producer: p, logger: o.logger, metrics: o.metrics}
}

// Publish produces ev synchronously. Events below MinWeight are dropped and
// reported as not published with a nil error.
func (p *Publisher) Publish(ctx context.Context, ev Event) (bool, error) {
	if ev.FinalConsensusWeight < p.cfg.MinWeight {
		p.metrics.IncPublish("dropped")
		p.logger.Warn("weight below publish threshold, event dropped",
			zap.String("svt_id", ev.SvtID),
			zap.Uint64("weight", ev.FinalConsensusWeight),
			zap.Uint64("min_weight", p.cfg.MinWeight))
		return false, nil
	}

	value, err := ev.Encode()
	if err != nil {
		p.metrics.IncPublish("failed")
		return false, err
	}

	rec := &kgo.Record{
		Topic: p.cfg.Topic,
		Key:   []byte(ev.SvtID),
		Value: value,
	}
	if err := p.producer.ProduceSync(ctx, rec).FirstErr(); err != nil {
		p.metrics.IncPublish("failed")
		return false, fmt.Errorf("stream: produce %s: %w", ev.SvtID, err)
	}

	p.metrics.IncPublish("published")
	p.logger.Info("event published",
		zap.String("svt_id", ev.SvtID),
		zap.String("topic", p.cfg.Topic),
		zap.Uint64("weight", ev.FinalConsensusWeight))
	return true, nil
}

// Close flushes and closes the producer.
func (p *Publisher) Close() {
	p.producer.Close()
}
