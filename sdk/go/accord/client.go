package accord

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ppiankov/accord/internal/config"
	"github.com/ppiankov/accord/internal/feature"
	"github.com/ppiankov/accord/internal/model"
	"github.com/ppiankov/accord/internal/policy"
	"github.com/ppiankov/accord/internal/svt"
)

// Client holds the evaluation and weighting pipeline for in-process use.
// Thread-safe for concurrent calls.
type Client struct {
	cfg  clientConfig
	proc *svt.Processor
}

// New creates a Client with the given options.
func New(opts ...Option) (*Client, error) {
	cfg := clientConfig{logger: zap.NewNop()}
	for _, o := range opts {
		o(&cfg)
	}

	conf := config.Default()
	hash := config.Hash(nil)
	if cfg.configPath != "" {
		var err error
		conf, hash, err = config.LoadWithHash(cfg.configPath)
		if err != nil {
			return nil, fmt.Errorf("accord: %w", err)
		}
	}
	if cfg.failOpen != nil {
		conf.Policy.FailOpen = *cfg.failOpen
	}
	if cfg.hashKey != "" {
		conf.Weight.HashKey = cfg.hashKey
	}

	var src feature.Source
	switch {
	case cfg.featureSource != nil:
		src = cfg.featureSource
	case cfg.featureValues != nil:
		src = feature.Vector(cfg.featureValues)
	case cfg.featurePath != "":
		src = feature.File{Path: cfg.featurePath}
	}

	proc, err := svt.Build(conf, hash, src, svt.Sinks{}, cfg.logger, nil)
	if err != nil {
		return nil, fmt.Errorf("accord: %w", err)
	}
	return &Client{cfg: cfg, proc: proc}, nil
}

// Check evaluates whether did may perform intent.
func (c *Client) Check(did, intent string) Result {
	return toResult(c.proc.Resolve(did, model.Intent(intent)))
}

// Weigh evaluates and weighs sub. A denial is returned as *BlockedError.
func (c *Client) Weigh(sub Submission) (Weight, error) {
	res, err := c.proc.Weigh(toRequest(sub))
	var denied *policy.DeniedError
	if errors.As(err, &denied) {
		return Weight{}, blocked(denied.Decision)
	}
	if err != nil {
		return Weight{}, fmt.Errorf("accord: %w", err)
	}
	return toWeight(res), nil
}
