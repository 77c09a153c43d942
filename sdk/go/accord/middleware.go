package accord

import (
	"encoding/json"
	"net/http"
)

const (
	// HeaderDID carries the caller's DID.
	HeaderDID = "X-Accord-DID"
	// HeaderIntent carries the requested intent. When absent, safe methods
	// map to ReadLedger and everything else to WriteLedger.
	HeaderIntent = "X-Accord-Intent"
)

// Middleware returns an http.Handler that evaluates access on each request
// before passing to the next handler. Denied requests receive a 403 with a
// JSON body.
func (c *Client) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		result := c.Check(r.Header.Get(HeaderDID), intentFromRequest(r))
		if !result.Allowed {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			json.NewEncoder(w).Encode(map[string]any{
				"blocked":   true,
				"decision":  string(result.Decision),
				"reason":    result.Reason,
				"policy_id": result.PolicyID,
				"detail":    result.Detail,
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

func intentFromRequest(r *http.Request) string {
	if intent := r.Header.Get(HeaderIntent); intent != "" {
		return intent
	}
	switch r.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return "ReadLedger"
	default:
		return "WriteLedger"
	}
}
