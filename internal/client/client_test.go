package client

import (
	"context"
	"errors"
	"net"
	"path/filepath"
	"testing"

	"github.com/ppiankov/accord/internal/feature"
	"github.com/ppiankov/accord/internal/ledger"
	"github.com/ppiankov/accord/internal/model"
	"github.com/ppiankov/accord/internal/policy"
	"github.com/ppiankov/accord/internal/server"
	"github.com/ppiankov/accord/internal/svt"
)

const overseer = "did:t0:protocol-overseer"

// startTestServer creates a server and returns its address.
func startTestServer(t *testing.T, cfg server.Config) (string, func()) {
	t.Helper()

	if cfg.ConfigPath == "" {
		cfg.ConfigPath = filepath.Join(t.TempDir(), "config.yaml")
	}
	srv, err := server.New(cfg)
	if err != nil {
		t.Fatalf("server.New: %v", err)
	}

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	go srv.ServeOn(lis)

	return lis.Addr().String(), srv.GracefulStop
}

func newClient(t *testing.T, addr string) *Client {
	t.Helper()
	c, err := New(addr)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestClientEvaluateAllowed(t *testing.T) {
	addr, cleanup := startTestServer(t, server.Config{})
	defer cleanup()

	d := newClient(t, addr).Evaluate(overseer, model.IntentOverride)
	if !d.Allowed {
		t.Errorf("expected allow for overseer override, got %s: %s", d.Reason, d.Detail)
	}
	if d.Identity.Tier != model.Tier0 {
		t.Errorf("expected t0, got %s", d.Identity.Tier)
	}
}

func TestClientEvaluateDenied(t *testing.T) {
	addr, cleanup := startTestServer(t, server.Config{})
	defer cleanup()

	d := newClient(t, addr).Evaluate("did:t3:auditor-7", model.IntentGoldBarVote)
	if d.Allowed {
		t.Fatal("expected deny for t3 vote")
	}
	if d.Reason != model.ReasonInsufficientTier {
		t.Errorf("reason = %s", d.Reason)
	}
}

func TestClientFailClosed(t *testing.T) {
	// Connect to a port that doesn't have a server
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := lis.Addr().String()
	lis.Close()

	c := newClient(t, addr)

	d := c.Evaluate(overseer, model.IntentOverride)
	if d.Allowed {
		t.Error("expected deny (fail-closed)")
	}
	if d.PolicyID != "failclosed.unreachable" {
		t.Errorf("expected failclosed.unreachable policy_id, got %q", d.PolicyID)
	}

	if _, err := c.Submit(context.Background(), svt.Request{DID: overseer, Intent: model.IntentOverride}); err == nil {
		t.Error("expected Submit error against unreachable server")
	}
}

func TestClientSubmit(t *testing.T) {
	store, err := ledger.Open(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	addr, cleanup := startTestServer(t, server.Config{
		Source: feature.Vector{600},
		Ledger: store,
	})
	defer cleanup()
	c := newClient(t, addr)

	req := svt.Request{
		DID:             overseer,
		Intent:          model.IntentOverride,
		Timestamp:       1_700_000_000,
		EnergySignature: 1000,
	}
	res, err := c.Submit(context.Background(), req)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !svt.ValidID(res.ID) {
		t.Errorf("invalid svt id %q", res.ID)
	}
	if res.Breakdown == nil || res.Breakdown.FeatureComponent != 120_000 {
		t.Fatalf("unexpected breakdown %+v", res.Breakdown)
	}
	if !res.Inserted {
		t.Error("expected ledger insert")
	}

	rec, err := store.Get(context.Background(), res.ID)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Breakdown.Total != res.Breakdown.Total {
		t.Errorf("ledger total %d, client total %d", rec.Breakdown.Total, res.Breakdown.Total)
	}
}

func TestClientSubmitDenied(t *testing.T) {
	addr, cleanup := startTestServer(t, server.Config{})
	defer cleanup()

	res, err := newClient(t, addr).Submit(context.Background(), svt.Request{
		DID:    "did:t1:rozel-rosel-admin",
		Intent: model.IntentOverride,
	})
	var denied *policy.DeniedError
	if !errors.As(err, &denied) {
		t.Fatalf("expected *policy.DeniedError, got %v", err)
	}
	if denied.Decision.Reason != model.ReasonInsufficientTier {
		t.Errorf("reason = %s", denied.Decision.Reason)
	}
	if res.Breakdown != nil {
		t.Error("denied result must not carry a breakdown")
	}
}

func TestClientWeighWritesNothing(t *testing.T) {
	store, err := ledger.Open(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	addr, cleanup := startTestServer(t, server.Config{Ledger: store})
	defer cleanup()

	res, err := newClient(t, addr).Weigh(context.Background(), svt.Request{
		DID:    overseer,
		Intent: model.IntentOverride,
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Breakdown == nil || res.Inserted {
		t.Errorf("unexpected result %+v", res)
	}
	if n, _ := store.Count(context.Background()); n != 0 {
		t.Errorf("weigh wrote %d rows", n)
	}
}
