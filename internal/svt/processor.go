// Package svt runs submissions through identity resolution, access
// evaluation, weighting and the configured sinks.
package svt

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/accord/internal/audit"
	"github.com/ppiankov/accord/internal/identity"
	"github.com/ppiankov/accord/internal/ledger"
	"github.com/ppiankov/accord/internal/metrics"
	"github.com/ppiankov/accord/internal/model"
	"github.com/ppiankov/accord/internal/policy"
	"github.com/ppiankov/accord/internal/stream"
	"github.com/ppiankov/accord/internal/weight"
)

var (
	// ErrInvalidRequest is returned for malformed requests.
	ErrInvalidRequest = errors.New("svt: invalid request")
	// ErrAudit is returned when the decision could not be recorded.
	ErrAudit = errors.New("svt: audit write failed")
)

// Request is an SVT as presented by a caller.
type Request struct {
	DID     string       `json:"did"`
	Intent  model.Intent `json:"intent"`
	Message string       `json:"message,omitempty"`
	// Timestamp is epoch seconds; 0 means now.
	Timestamp       int64 `json:"timestamp_epoch,omitempty"`
	FeatureIndex    int   `json:"feature_index"`
	EnergySignature int   `json:"energy_signature"`
}

// Validate checks required fields and bounds.
func (r Request) Validate() error {
	switch {
	case r.DID == "":
		return fmt.Errorf("%w: did is required", ErrInvalidRequest)
	case r.Intent == "":
		return fmt.Errorf("%w: intent is required", ErrInvalidRequest)
	case r.FeatureIndex < 0:
		return fmt.Errorf("%w: feature_index must be >= 0, got %d", ErrInvalidRequest, r.FeatureIndex)
	case r.EnergySignature < 0 || r.EnergySignature > model.MaxEnergySignature:
		return fmt.Errorf("%w: energy_signature must be within 0..%d, got %d",
			ErrInvalidRequest, model.MaxEnergySignature, r.EnergySignature)
	case r.Timestamp < 0:
		return fmt.Errorf("%w: timestamp must not be negative", ErrInvalidRequest)
	}
	return nil
}

// Result is the outcome of Weigh or Submit. Breakdown is nil when the
// request was denied.
type Result struct {
	ID         string                 `json:"svt_id,omitempty"`
	Decision   model.AccessDecision   `json:"decision"`
	Submission model.Submission       `json:"submission"`
	Breakdown  *model.WeightBreakdown `json:"breakdown,omitempty"`
	Inserted   bool                   `json:"ledger_inserted,omitempty"`
	Published  bool                   `json:"published,omitempty"`
}

// Ledger stores weighted records.
type Ledger interface {
	Append(ctx context.Context, r ledger.Record) (bool, error)
}

// Publisher emits weighted records.
type Publisher interface {
	Publish(ctx context.Context, ev stream.Event) (bool, error)
}

// Auditor records decisions.
type Auditor interface {
	Record(entry audit.AuditEntry) error
}

// Processor composes registry, evaluator, aggregator and sinks.
// It is safe for concurrent use when its sinks are.
type Processor struct {
	registry   *identity.Registry
	policy     *policy.Config
	aggregator *weight.Aggregator

	ledger     Ledger
	publisher  Publisher
	auditor    Auditor
	policyHash string

	now     func() time.Time
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// Option configures a Processor.
type Option func(*Processor)

// WithLedger appends weighted submissions to l.
func WithLedger(l Ledger) Option {
	return func(p *Processor) { p.ledger = l }
}

// WithPublisher publishes weighted submissions to pub.
func WithPublisher(pub Publisher) Option {
	return func(p *Processor) { p.publisher = pub }
}

// WithAuditor records every Submit decision, tagged with policyHash.
func WithAuditor(a Auditor, policyHash string) Option {
	return func(p *Processor) {
		p.auditor = a
		p.policyHash = policyHash
	}
}

// WithClock overrides the clock used for zero timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Processor) { p.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Processor) { p.logger = l }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Processor) { p.metrics = m }
}

// New creates a Processor. A nil policy config means the default.
func New(reg *identity.Registry, pol *policy.Config, agg *weight.Aggregator, opts ...Option) *Processor {
	if pol == nil {
		pol = policy.DefaultConfig()
	}
	p := &Processor{
		registry:   reg,
		policy:     pol,
		aggregator: agg,
		now:        time.Now,
		logger:     zap.NewNop(),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Resolve resolves did and evaluates intent without weighting.
func (p *Processor) Resolve(did string, intent model.Intent) model.AccessDecision {
	id, err := p.registry.Resolve(did)
	var d model.AccessDecision
	if err != nil {
		d = policy.Unresolved(did, intent, err)
	} else {
		d = policy.Evaluate(id, intent, p.policy)
	}
	p.metrics.IncDecision(d.Allowed, string(d.Reason))
	p.logger.Debug("access evaluated",
		zap.String("did", did),
		zap.String("intent", string(intent)),
		zap.Bool("allowed", d.Allowed),
		zap.String("reason", string(d.Reason)),
		zap.String("policy_id", d.PolicyID))
	return d
}

// Weigh evaluates and weights req without touching any sink. A denial is
// returned as *policy.DeniedError alongside the result.
func (p *Processor) Weigh(req Request) (Result, error) {
	if err := req.Validate(); err != nil {
		return Result{}, err
	}
	res := Result{Decision: p.Resolve(req.DID, req.Intent)}
	res.Submission = p.submission(req, res.Decision.Identity)
	if !res.Decision.Allowed {
		return res, policy.Deny(res.Decision)
	}

	b, err := p.aggregator.Compute(res.Decision, res.Submission)
	if err != nil {
		return res, err
	}
	res.Breakdown = &b
	res.ID = ID(res.Submission)
	return res, nil
}

// Submit runs the full path: evaluate, audit, weight, ledger, stream.
// Denied requests are audited and returned with *policy.DeniedError. Sink
// failures are returned with the partially filled result.
func (p *Processor) Submit(ctx context.Context, req Request) (Result, error) {
	res, err := p.Weigh(req)
	if errors.Is(err, ErrInvalidRequest) {
		return res, err
	}
	if err != nil {
		if auditErr := p.record(res); auditErr != nil {
			return res, errors.Join(err, auditErr)
		}
		return res, err
	}

	if err := p.record(res); err != nil {
		return res, err
	}
	p.metrics.ObserveWeight(res.Breakdown.Total)

	if p.ledger != nil {
		inserted, err := p.ledger.Append(ctx, p.ledgerRecord(res))
		if err != nil {
			p.metrics.IncLedgerAppend("failed")
			return res, err
		}
		res.Inserted = inserted
		if inserted {
			p.metrics.IncLedgerAppend("inserted")
		} else {
			p.metrics.IncLedgerAppend("duplicate")
			p.logger.Info("svt already in ledger", zap.String("svt_id", res.ID))
		}
	}

	if p.publisher != nil {
		published, err := p.publisher.Publish(ctx, EventFor(res))
		if err != nil {
			return res, err
		}
		res.Published = published
	}

	p.logger.Info("svt accepted",
		zap.String("svt_id", res.ID),
		zap.String("did", res.Decision.Identity.DID),
		zap.String("intent", string(res.Decision.Intent)),
		zap.Uint64("weight", res.Breakdown.Total),
		zap.Bool("feature_degraded", res.Breakdown.FeatureDegraded))
	return res, nil
}

func (p *Processor) submission(req Request, id model.Identity) model.Submission {
	ts := req.Timestamp
	if ts == 0 {
		ts = p.now().Unix()
	}
	return model.Submission{
		Identity:        id,
		Intent:          req.Intent,
		Message:         req.Message,
		Timestamp:       ts,
		FeatureIndex:    req.FeatureIndex,
		EnergySignature: uint16(req.EnergySignature),
	}
}

func (p *Processor) record(res Result) error {
	if p.auditor == nil {
		return nil
	}
	if err := p.auditor.Record(audit.EntryFor(res.ID, res.Decision, res.Breakdown, p.policyHash)); err != nil {
		p.logger.Error("audit write failed", zap.Error(err))
		return fmt.Errorf("%w: %v", ErrAudit, err)
	}
	return nil
}

func (p *Processor) ledgerRecord(res Result) ledger.Record {
	return ledger.Record{
		ID:               res.ID,
		DID:              res.Decision.Identity.DID,
		Tier:             res.Decision.Identity.Tier,
		Intent:           res.Submission.Intent,
		Message:          res.Submission.Message,
		Timestamp:        res.Submission.Timestamp,
		Reason:           res.Decision.Reason,
		PolicyID:         res.Decision.PolicyID,
		Breakdown:        *res.Breakdown,
		VerificationFlag: stream.VerificationFlag,
		CreatedAt:        p.now().UTC(),
	}
}

// EventFor converts a weighted result to its stream event.
func EventFor(res Result) stream.Event {
	ev := stream.Event{
		SvtID:            res.ID,
		DID:              res.Decision.Identity.DID,
		Tier:             res.Decision.Identity.Tier,
		Intent:           res.Submission.Intent,
		TimestampEpoch:   res.Submission.Timestamp,
		VerificationFlag: stream.VerificationFlag,
	}
	if res.Breakdown != nil {
		ev.FinalConsensusWeight = res.Breakdown.Total
		ev.FeatureDegraded = res.Breakdown.FeatureDegraded
	}
	return ev
}

// RecordFromEvent rebuilds a ledger record from a consumed event. Only the
// final weight is known.
func RecordFromEvent(ev stream.Event) ledger.Record {
	return ledger.Record{
		ID:        ev.SvtID,
		DID:       ev.DID,
		Tier:      ev.Tier,
		Intent:    ev.Intent,
		Timestamp: ev.TimestampEpoch,
		Reason:    "archived",
		Breakdown: model.WeightBreakdown{
			Total:           ev.FinalConsensusWeight,
			FeatureDegraded: ev.FeatureDegraded,
		},
		VerificationFlag: ev.VerificationFlag,
	}
}
