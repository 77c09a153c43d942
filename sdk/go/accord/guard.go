package accord

import (
	"context"

	"github.com/ppiankov/accord/internal/model"
)

// Request identifies who is calling and what they intend.
type Request struct {
	DID    string
	Intent string
}

// ToolFunc is the function signature that Wrap guards.
type ToolFunc func(ctx context.Context, req Request) (any, error)

// Wrap returns a ToolFunc that evaluates access before calling fn.
// If access is denied, returns a *BlockedError without calling fn.
func (c *Client) Wrap(fn ToolFunc, opts ...WrapOption) ToolFunc {
	var wcfg wrapConfig
	for _, o := range opts {
		o(&wcfg)
	}

	return func(ctx context.Context, req Request) (any, error) {
		if wcfg.intent != "" {
			req.Intent = wcfg.intent
		}
		d := c.proc.Resolve(req.DID, model.Intent(req.Intent))
		if !d.Allowed {
			return nil, blocked(d)
		}
		return fn(ctx, req)
	}
}
