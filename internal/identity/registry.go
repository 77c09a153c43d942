package identity

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ppiankov/accord/internal/model"
)

// ErrUnresolved is returned when no registry entry matches a DID.
var ErrUnresolved = errors.New("identity: DID is unresolved")

// Entry binds a DID (or DID pattern) to a tier.
type Entry struct {
	Pattern     string     `yaml:"did" json:"did"`
	Tier        model.Tier `yaml:"tier" json:"tier"`
	Fingerprint string     `yaml:"fingerprint,omitempty" json:"fingerprint,omitempty"`
}

// DefaultEntries returns the built-in trust registry.
func DefaultEntries() []Entry {
	return []Entry{
		{Pattern: "did:t0:protocol-overseer", Tier: model.Tier0, Fingerprint: "0xdeadbeefc0dec0de"},
		{Pattern: "did:t1:rozel-rosel-admin", Tier: model.Tier1, Fingerprint: "0xaffecafebabebabe"},
		{Pattern: "did:t3:*", Tier: model.Tier3, Fingerprint: "0xfacebeef"},
	}
}

// Registry maps DIDs to tiers. Exact entries win over patterns;
// patterns are tried in declaration order.
type Registry struct {
	exact    map[string]Entry
	patterns []Entry
}

// NewRegistry creates a Registry from entries. A nil slice yields an
// empty registry that resolves nothing.
func NewRegistry(entries []Entry) (*Registry, error) {
	r := &Registry{exact: make(map[string]Entry)}
	for i, e := range entries {
		if e.Pattern == "" {
			return nil, fmt.Errorf("identity: entry %d has empty did", i)
		}
		if !e.Tier.Valid() {
			return nil, fmt.Errorf("identity: entry %q has invalid tier %d", e.Pattern, int(e.Tier))
		}
		if strings.Contains(e.Pattern, "*") {
			r.patterns = append(r.patterns, e)
			continue
		}
		r.exact[e.Pattern] = e
	}
	return r, nil
}

// Resolve returns the tiered identity for did.
func (r *Registry) Resolve(did string) (model.Identity, error) {
	if did == "" {
		return model.Identity{}, fmt.Errorf("%w: empty DID", ErrUnresolved)
	}
	if e, ok := r.exact[did]; ok {
		return model.Identity{DID: did, Tier: e.Tier, Fingerprint: e.Fingerprint}, nil
	}
	for _, e := range r.patterns {
		if MatchPattern(e.Pattern, did) {
			return model.Identity{DID: did, Tier: e.Tier, Fingerprint: e.Fingerprint}, nil
		}
	}
	return model.Identity{}, fmt.Errorf("%w: %s", ErrUnresolved, did)
}

// IsRegistered returns true if did resolves.
func (r *Registry) IsRegistered(did string) bool {
	_, err := r.Resolve(did)
	return err == nil
}

// Len returns the number of entries.
func (r *Registry) Len() int {
	return len(r.exact) + len(r.patterns)
}

// MatchPattern checks if a value matches a glob-like pattern.
// Supports: *x* (contains), *.ext (suffix), prefix* (prefix), exact match.
// Matching is case-insensitive.
func MatchPattern(pattern, value string) bool {
	if pattern == "" || pattern == "*" {
		return true
	}

	lowerValue := strings.ToLower(value)
	lowerPattern := strings.ToLower(pattern)

	// *x*: contains
	if strings.HasPrefix(lowerPattern, "*") && strings.HasSuffix(lowerPattern, "*") {
		inner := lowerPattern[1 : len(lowerPattern)-1]
		return strings.Contains(lowerValue, inner)
	}

	// *.ext: suffix
	if strings.HasPrefix(lowerPattern, "*") {
		suffix := lowerPattern[1:]
		return strings.HasSuffix(lowerValue, suffix)
	}

	// did:t3:*: prefix
	if strings.HasSuffix(lowerPattern, "*") {
		prefix := lowerPattern[:len(lowerPattern)-1]
		return strings.HasPrefix(lowerValue, prefix)
	}

	// Exact match
	return lowerValue == lowerPattern
}
