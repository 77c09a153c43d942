// Package policydiff compares two accord configurations and reports
// changes that affect access decisions or weights.
package policydiff

import (
	"fmt"
	"strconv"

	"github.com/ppiankov/accord/internal/config"
	"github.com/ppiankov/accord/internal/identity"
	"github.com/ppiankov/accord/internal/model"
	"github.com/ppiankov/accord/internal/policy"
)

// Change represents a scalar field change.
type Change struct {
	Field   string `json:"field"`
	Old     string `json:"old"`
	New     string `json:"new"`
	Comment string `json:"comment,omitempty"`
}

// RuleChange represents a rule addition, removal, or modification.
type RuleChange struct {
	Type string `json:"type"` // "added", "removed", "changed"
	Rule string `json:"rule"`
}

// DiffResult holds the comparison of two configurations.
type DiffResult struct {
	OldPath         string       `json:"old_path"`
	NewPath         string       `json:"new_path"`
	Changes         []Change     `json:"changes"`
	RuleChanges     []RuleChange `json:"rule_changes"`
	IdentityChanges []RuleChange `json:"identity_changes"`
	HasChanges      bool         `json:"has_changes"`
}

// Diff compares two configurations and returns the differences.
func Diff(old, new *config.Config) *DiffResult {
	r := &DiffResult{}

	if old.Policy.FailOpen != new.Policy.FailOpen {
		comment := "stricter"
		if new.Policy.FailOpen {
			comment = "looser"
		}
		r.Changes = append(r.Changes, Change{
			Field:   "fail_open",
			Old:     strconv.FormatBool(old.Policy.FailOpen),
			New:     strconv.FormatBool(new.Policy.FailOpen),
			Comment: comment,
		})
	}

	diffIntents(r, "high_privilege_intents", old.Policy.HighPrivilegeIntents, new.Policy.HighPrivilegeIntents)
	diffIntents(r, "read_only_intents", old.Policy.ReadOnlyIntents, new.Policy.ReadOnlyIntents)
	diffRules(r, old.Policy.Rules, new.Policy.Rules)
	diffIdentities(r, old.Identities, new.Identities)

	ow, nw := old.Weight, new.Weight
	if ow.CohesionFactor != nw.CohesionFactor {
		comment := "feature component grows"
		if nw.CohesionFactor > ow.CohesionFactor {
			comment = "feature component shrinks"
		}
		r.Changes = append(r.Changes, Change{
			Field:   "weight.cohesion_factor",
			Old:     strconv.FormatFloat(ow.CohesionFactor, 'g', -1, 64),
			New:     strconv.FormatFloat(nw.CohesionFactor, 'g', -1, 64),
			Comment: comment,
		})
	}
	diffUint(r, "weight.override_bonus", ow.OverrideBonus, nw.OverrideBonus)
	diffUint(r, "weight.invalid_feature_floor", ow.InvalidFeatureFloor, nw.InvalidFeatureFloor)
	if ow.HashKey != nw.HashKey {
		// Key material stays out of the report.
		r.Changes = append(r.Changes, Change{
			Field:   "weight.hash_key",
			Old:     "***",
			New:     "***",
			Comment: "every hash component changes",
		})
	}
	diffIntents(r, "weight.override_intents", ow.OverrideIntents, nw.OverrideIntents)

	r.HasChanges = len(r.Changes) > 0 || len(r.RuleChanges) > 0 || len(r.IdentityChanges) > 0
	return r
}

func diffUint(r *DiffResult, field string, old, new uint64) {
	if old == new {
		return
	}
	comment := "lower"
	if new > old {
		comment = "higher"
	}
	r.Changes = append(r.Changes, Change{
		Field:   field,
		Old:     strconv.FormatUint(old, 10),
		New:     strconv.FormatUint(new, 10),
		Comment: comment,
	})
}

func diffIntents(r *DiffResult, field string, old, new []model.Intent) {
	oldSet := make(map[model.Intent]bool, len(old))
	for _, i := range old {
		oldSet[i] = true
	}
	newSet := make(map[model.Intent]bool, len(new))
	for _, i := range new {
		newSet[i] = true
	}

	for _, i := range new {
		if !oldSet[i] {
			r.Changes = append(r.Changes, Change{Field: field, New: string(i), Comment: "added"})
		}
	}
	for _, i := range old {
		if !newSet[i] {
			r.Changes = append(r.Changes, Change{Field: field, Old: string(i), Comment: "removed"})
		}
	}
}

func ruleKey(r policy.Rule) string {
	return r.Tier + "|" + r.Intent
}

func ruleLabel(r policy.Rule) string {
	return fmt.Sprintf("tier=%s intent=%s", r.Tier, r.Intent)
}

func diffRules(r *DiffResult, oldRules, newRules []policy.Rule) {
	oldMap := make(map[string]policy.Rule)
	for _, rule := range oldRules {
		oldMap[ruleKey(rule)] = rule
	}

	newMap := make(map[string]policy.Rule)
	for _, rule := range newRules {
		newMap[ruleKey(rule)] = rule
	}

	for _, rule := range newRules {
		k := ruleKey(rule)
		if oldRule, exists := oldMap[k]; exists {
			if oldRule.Decision != rule.Decision {
				r.RuleChanges = append(r.RuleChanges, RuleChange{
					Type: "changed",
					Rule: fmt.Sprintf("%s → %s (was: %s)", ruleLabel(rule), rule.Decision, oldRule.Decision),
				})
			}
		} else {
			r.RuleChanges = append(r.RuleChanges, RuleChange{
				Type: "added",
				Rule: fmt.Sprintf("%s → %s", ruleLabel(rule), rule.Decision),
			})
		}
	}

	for _, rule := range oldRules {
		if _, exists := newMap[ruleKey(rule)]; !exists {
			r.RuleChanges = append(r.RuleChanges, RuleChange{
				Type: "removed",
				Rule: fmt.Sprintf("%s → %s", ruleLabel(rule), rule.Decision),
			})
		}
	}
}

// diffIdentities keys entries by DID pattern. Moving to a lower tier
// number grants more privilege.
func diffIdentities(r *DiffResult, oldEntries, newEntries []identity.Entry) {
	oldMap := make(map[string]identity.Entry)
	for _, e := range oldEntries {
		oldMap[e.Pattern] = e
	}
	newMap := make(map[string]identity.Entry)
	for _, e := range newEntries {
		newMap[e.Pattern] = e
	}

	for _, e := range newEntries {
		if oldEntry, exists := oldMap[e.Pattern]; exists {
			if oldEntry.Tier != e.Tier {
				direction := "demoted"
				if e.Tier < oldEntry.Tier {
					direction = "promoted"
				}
				r.IdentityChanges = append(r.IdentityChanges, RuleChange{
					Type: "changed",
					Rule: fmt.Sprintf("%s → %s (was: %s, %s)", e.Pattern, e.Tier, oldEntry.Tier, direction),
				})
			}
		} else {
			r.IdentityChanges = append(r.IdentityChanges, RuleChange{
				Type: "added",
				Rule: fmt.Sprintf("%s → %s", e.Pattern, e.Tier),
			})
		}
	}

	for _, e := range oldEntries {
		if _, exists := newMap[e.Pattern]; !exists {
			r.IdentityChanges = append(r.IdentityChanges, RuleChange{
				Type: "removed",
				Rule: fmt.Sprintf("%s → %s", e.Pattern, e.Tier),
			})
		}
	}
}
