package svt

import (
	"go.uber.org/zap"

	"github.com/ppiankov/accord/internal/config"
	"github.com/ppiankov/accord/internal/feature"
	"github.com/ppiankov/accord/internal/metrics"
	"github.com/ppiankov/accord/internal/weight"
)

// Sinks are the optional destinations a built Processor writes to.
type Sinks struct {
	Ledger    Ledger
	Publisher Publisher
	Auditor   Auditor
}

// Build assembles a Processor from a loaded configuration. policyHash tags
// audit entries.
func Build(cfg *config.Config, policyHash string, src feature.Source, sinks Sinks, logger *zap.Logger, m *metrics.Metrics) (*Processor, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	reg, err := cfg.Registry()
	if err != nil {
		return nil, err
	}
	agg, err := weight.New(cfg.Weight, src, weight.WithLogger(logger), weight.WithMetrics(m))
	if err != nil {
		return nil, err
	}

	opts := []Option{WithLogger(logger), WithMetrics(m)}
	if sinks.Ledger != nil {
		opts = append(opts, WithLedger(sinks.Ledger))
	}
	if sinks.Publisher != nil {
		opts = append(opts, WithPublisher(sinks.Publisher))
	}
	if sinks.Auditor != nil {
		opts = append(opts, WithAuditor(sinks.Auditor, policyHash))
	}
	pol := cfg.Policy
	return New(reg, &pol, agg, opts...), nil
}
