package cli

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ppiankov/accord/internal/audit"
	"github.com/ppiankov/accord/internal/config"
	"github.com/ppiankov/accord/internal/feature"
	"github.com/ppiankov/accord/internal/ledger"
	"github.com/ppiankov/accord/internal/metrics"
	"github.com/ppiankov/accord/internal/stream"
	"github.com/ppiankov/accord/internal/svt"
)

// loadConfig loads --config, or the default path.
func loadConfig() (*config.Config, string, error) {
	cfg, hash, err := config.LoadWithHash(configPath)
	if err != nil {
		return nil, "", err
	}
	logger.Debug("configuration loaded",
		zap.String("path", resolvedConfigPath()),
		zap.String("policy_hash", hash))
	return cfg, hash, nil
}

func resolvedConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultPath()
}

// openSinks opens the ledger, the audit log and, when brokers are
// configured, the stream publisher. The returned func closes them.
func openSinks(cfg *config.Config, m *metrics.Metrics) (svt.Sinks, func(), error) {
	var (
		sinks   svt.Sinks
		closers []func()
	)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	store, err := ledger.Open(cfg.Ledger.Path)
	if err != nil {
		return sinks, nil, err
	}
	sinks.Ledger = store
	closers = append(closers, func() { store.Close() })

	if cfg.Audit.Path != "" {
		alog, err := audit.Open(cfg.Audit.Path)
		if err != nil {
			closeAll()
			return svt.Sinks{}, nil, err
		}
		sinks.Auditor = alog
		closers = append(closers, func() { alog.Close() })
	}

	pub, err := stream.NewPublisher(cfg.Stream, stream.WithLogger(logger), stream.WithMetrics(m))
	switch {
	case errors.Is(err, stream.ErrDisabled):
		logger.Debug("stream publishing disabled")
	case err != nil:
		closeAll()
		return svt.Sinks{}, nil, fmt.Errorf("stream: %w", err)
	default:
		sinks.Publisher = pub
		closers = append(closers, pub.Close)
	}
	return sinks, closeAll, nil
}

// featureSource returns the on-disk source from the feature section.
func featureSource(cfg *config.Config) feature.Source {
	return feature.File{Path: cfg.Feature.Path}
}
