// Package weight computes the final consensus weight of a cleared submission.
package weight

import (
	"errors"
	"fmt"
	"math"
	"math/bits"

	"go.uber.org/zap"

	"github.com/ppiankov/accord/internal/feature"
	"github.com/ppiankov/accord/internal/metrics"
	"github.com/ppiankov/accord/internal/model"
)

var (
	// ErrNotCleared is returned when the access decision did not allow the request.
	ErrNotCleared = errors.New("weight: submission not cleared by access decision")
	// ErrDecisionMismatch is returned when the decision was made for a
	// different identity or intent than the submission carries.
	ErrDecisionMismatch = errors.New("weight: access decision does not cover submission")
)

// energyAmplification is the lane amplification (x16) times the four lanes
// that survive the horizontal add and two-lane sum.
const energyAmplification = 64

// maxFeatureComponent caps the feature component so float→int conversion
// stays defined.
const maxFeatureComponent = math.MaxInt64

// Aggregator combines hash, energy, feature and intent components.
// It holds no mutable state; concurrent Compute calls are safe as long as
// the Source is.
type Aggregator struct {
	cfg     Config
	source  feature.Source
	hasher  Hasher
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithHasher replaces the keyed hasher.
func WithHasher(h Hasher) Option {
	return func(a *Aggregator) { a.hasher = h }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(a *Aggregator) { a.logger = l }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Aggregator) { a.metrics = m }
}

// New creates an Aggregator. source may be nil; every lookup then degrades.
func New(cfg Config, source feature.Source, opts ...Option) (*Aggregator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	a := &Aggregator{
		cfg:    cfg,
		source: source,
		logger: zap.NewNop(),
	}
	for _, o := range opts {
		o(a)
	}
	if a.hasher == nil {
		a.hasher = NewKeyedHasher([]byte(cfg.HashKey))
	}
	return a, nil
}

// Config returns the weighting constants in use.
func (a *Aggregator) Config() Config {
	return a.cfg
}

// Compute returns the weight breakdown for sub. decision must be an allowed
// decision for the same identity and intent.
func (a *Aggregator) Compute(decision model.AccessDecision, sub model.Submission) (model.WeightBreakdown, error) {
	if !decision.Allowed {
		return model.WeightBreakdown{}, fmt.Errorf("%w: %s", ErrNotCleared, decision.Reason)
	}
	if !decision.Covers(sub.Identity, sub.Intent) {
		return model.WeightBreakdown{}, fmt.Errorf("%w: decision for %s/%q, submission %s/%q",
			ErrDecisionMismatch, decision.Identity.DID, decision.Intent, sub.Identity.DID, sub.Intent)
	}

	var b model.WeightBreakdown

	// 1. Hash component, halved so the sum keeps headroom.
	b.HashComponent = a.hasher.Sum64(sub) / 2

	// 2. Energy-signature component, bounded.
	b.AVXComponent = EnergyComponent(sub.EnergySignature)

	// 3. Feature component.
	value, err := a.lookup(sub.FeatureIndex)
	if err != nil {
		b.FeatureDegraded = true
		b.DegradedReason = err.Error()
		a.metrics.IncFeatureDegraded()
		a.logger.Warn("feature source degraded, using zero feature value",
			zap.Int("feature_index", sub.FeatureIndex), zap.Error(err))
	} else {
		b.FeatureComponent, b.FeatureInvalid = a.featureComponent(value)
		// Non-finite values have no JSON or SQLite encoding; the
		// invalid flag records them instead.
		if finite(value) {
			b.FeatureValue = value
		}
		if b.FeatureInvalid {
			a.logger.Warn("invalid feature value, using floor",
				zap.Int("feature_index", sub.FeatureIndex),
				zap.Float32("value", value),
				zap.Uint64("floor", a.cfg.InvalidFeatureFloor))
		}
	}

	// 4. Intent bonus.
	if sub.Intent.In(a.cfg.OverrideIntents) {
		b.IntentBonus = a.cfg.OverrideBonus
	}

	// 5. Total, saturating.
	b.Total = saturatingSum(b.HashComponent, b.AVXComponent, b.FeatureComponent, b.IntentBonus)

	a.logger.Debug("submission weighted",
		zap.String("did", sub.Identity.DID),
		zap.String("intent", string(sub.Intent)),
		zap.Uint64("hash", b.HashComponent),
		zap.Uint64("avx", b.AVXComponent),
		zap.Uint64("feature", b.FeatureComponent),
		zap.Uint64("bonus", b.IntentBonus),
		zap.Uint64("total", b.Total))
	return b, nil
}

func (a *Aggregator) lookup(index int) (float32, error) {
	if a.source == nil {
		return 0, fmt.Errorf("%w: no feature source configured", feature.ErrUnavailable)
	}
	return a.source.At(index)
}

// featureComponent returns floor(value / cohesion) and whether the value
// was invalid and replaced by the configured floor.
func (a *Aggregator) featureComponent(value float32) (uint64, bool) {
	v := float64(value)
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return a.cfg.InvalidFeatureFloor, true
	}
	q := math.Floor(v / a.cfg.CohesionFactor)
	if q >= maxFeatureComponent {
		return maxFeatureComponent, false
	}
	return uint64(q), false
}

// EnergyComponent is the bounded filler derived from the energy signature:
// eight lanes of signature×16, horizontally added, first two lanes summed.
func EnergyComponent(signature uint16) uint64 {
	s := uint64(signature)
	if s > model.MaxEnergySignature {
		s = model.MaxEnergySignature
	}
	return s * energyAmplification
}

func finite(v float32) bool {
	f := float64(v)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func saturatingSum(vals ...uint64) uint64 {
	var total uint64
	for _, v := range vals {
		sum, carry := bits.Add64(total, v, 0)
		if carry != 0 {
			return math.MaxUint64
		}
		total = sum
	}
	return total
}
