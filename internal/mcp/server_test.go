package mcp

import (
	"context"
	"path/filepath"
	"testing"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ppiankov/accord/internal/feature"
)

const overseer = "did:t0:protocol-overseer"

func newTestServer(t *testing.T, src feature.Source) *Server {
	t.Helper()
	s, err := New(Config{
		ConfigPath: filepath.Join(t.TempDir(), "config.yaml"),
		Source:     src,
	})
	if err != nil {
		t.Fatalf("failed to create MCP server: %v", err)
	}
	return s
}

func TestEvaluateAllowed(t *testing.T) {
	s := newTestServer(t, nil)

	result, out, err := s.handleEvaluate(context.Background(), &mcpsdk.CallToolRequest{}, EvaluateInput{
		DID:    overseer,
		Intent: "OVERRIDE",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != nil && result.IsError {
		t.Fatal("expected success, got error result")
	}
	if !out.Allowed || out.Decision != "allow" || out.Tier != "t0" {
		t.Fatalf("unexpected output %+v", out)
	}
	if out.PolicyID != "tier0.override" {
		t.Errorf("policy_id = %q", out.PolicyID)
	}
}

func TestEvaluateDenied(t *testing.T) {
	s := newTestServer(t, nil)

	_, out, err := s.handleEvaluate(context.Background(), &mcpsdk.CallToolRequest{}, EvaluateInput{
		DID:    "did:t3:auditor-1",
		Intent: "WriteLedger",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Allowed || out.Reason != "read_only_restriction" {
		t.Fatalf("expected read-only denial, got %+v", out)
	}
}

func TestEvaluateRequiresFields(t *testing.T) {
	s := newTestServer(t, nil)
	if _, _, err := s.handleEvaluate(context.Background(), &mcpsdk.CallToolRequest{}, EvaluateInput{}); err == nil {
		t.Fatal("expected error for empty input")
	}
}

func TestWeighComponents(t *testing.T) {
	s := newTestServer(t, feature.Vector{600})

	_, out, err := s.handleWeigh(context.Background(), &mcpsdk.CallToolRequest{}, SubmissionInput{
		DID:             overseer,
		Intent:          "OVERRIDE",
		EnergySignature: 1000,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.AVXComponent != 64_000 || out.FeatureComponent != 120_000 || out.IntentBonus != 9_000_000_000 {
		t.Fatalf("unexpected components %+v", out)
	}
	if out.Total != out.HashComponent+out.AVXComponent+out.FeatureComponent+out.IntentBonus {
		t.Errorf("total %d does not match components", out.Total)
	}
}

func TestWeighBlocked(t *testing.T) {
	s := newTestServer(t, nil)

	result, out, err := s.handleWeigh(context.Background(), &mcpsdk.CallToolRequest{}, SubmissionInput{
		DID:    "did:t1:rozel-rosel-admin",
		Intent: "GOLD_BAR_VOTE_II",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result == nil || !result.IsError {
		t.Fatal("expected IsError result for denied submission")
	}
	if !out.Blocked || out.Reason != "insufficient_tier" || out.Total != 0 {
		t.Fatalf("unexpected output %+v", out)
	}
}

func TestWeighInvalidRequest(t *testing.T) {
	s := newTestServer(t, nil)
	_, _, err := s.handleWeigh(context.Background(), &mcpsdk.CallToolRequest{}, SubmissionInput{
		DID:          overseer,
		Intent:       "OVERRIDE",
		FeatureIndex: -1,
	})
	if err == nil {
		t.Fatal("expected error for negative feature index")
	}
}

func TestToolsOverInMemoryTransport(t *testing.T) {
	s := newTestServer(t, feature.Vector{600})
	ctx := context.Background()

	serverTransport, clientTransport := mcpsdk.NewInMemoryTransports()
	ss, err := s.MCPServer().Connect(ctx, serverTransport, nil)
	if err != nil {
		t.Fatalf("server connect: %v", err)
	}
	defer ss.Close()

	client := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "test", Version: "0"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	defer cs.Close()

	tools, err := cs.ListTools(ctx, &mcpsdk.ListToolsParams{})
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	names := map[string]bool{}
	for _, tool := range tools.Tools {
		names[tool.Name] = true
	}
	for _, want := range []string{"evaluate_access", "weigh_svt"} {
		if !names[want] {
			t.Errorf("tool %s not registered", want)
		}
	}

	res, err := cs.CallTool(ctx, &mcpsdk.CallToolParams{
		Name:      "evaluate_access",
		Arguments: map[string]any{"did": overseer, "intent": "OVERRIDE"},
	})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %+v", res.Content)
	}
	out, ok := res.StructuredContent.(map[string]any)
	if !ok {
		t.Fatalf("structured content = %T", res.StructuredContent)
	}
	if out["allowed"] != true {
		t.Errorf("allowed = %v", out["allowed"])
	}
}
