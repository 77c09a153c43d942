// Package accord provides in-process access evaluation and SVT weighting
// for Go services. It resolves a DID to its tier, evaluates the requested
// intent against the tier policy, and computes the deterministic consensus
// weight of cleared submissions.
//
// Usage:
//
//	ac, err := accord.New(accord.WithFeatureFile("/var/lib/accord/potential.bin"))
//	if r := ac.Check("did:t1:rozel-rosel-admin", "ReadLedger"); !r.Allowed {
//	    return r.Reason
//	}
//	w, err := ac.Weigh(accord.Submission{
//	    DID:             "did:t0:protocol-overseer",
//	    Intent:          "OVERRIDE",
//	    EnergySignature: 1000,
//	})
//
// The SDK links directly against internal packages for zero-subprocess
// overhead. External users import github.com/ppiankov/accord/sdk/go/accord.
package accord
