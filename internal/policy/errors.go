package policy

import (
	"errors"
	"fmt"

	"github.com/ppiankov/accord/internal/model"
)

// ErrAccessDenied matches every *DeniedError via errors.Is.
var ErrAccessDenied = errors.New("access denied")

// DeniedError carries the decision that refused a request.
type DeniedError struct {
	Decision model.AccessDecision
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("access denied for %s (%s) intent %q: %s",
		e.Decision.Identity.DID, e.Decision.Identity.Tier, e.Decision.Intent, e.Decision.Reason)
}

// Is reports target == ErrAccessDenied.
func (e *DeniedError) Is(target error) bool {
	return target == ErrAccessDenied
}

// Deny wraps a denied decision as an error. Returns nil for allowed decisions.
func Deny(d model.AccessDecision) error {
	if d.Allowed {
		return nil
	}
	return &DeniedError{Decision: d}
}
