package ledger

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/ppiankov/accord/internal/model"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "ledger.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRecord(id string) Record {
	return Record{
		ID:        id,
		DID:       "did:t0:protocol-overseer",
		Tier:      model.Tier0,
		Intent:    model.IntentOverride,
		Message:   "ACQUISITION: T_X ACCESS OVERRIDE",
		Timestamp: 1_700_000_000,
		Reason:    model.ReasonTier0Override,
		PolicyID:  "tier0.override",
		Breakdown: model.WeightBreakdown{
			HashComponent:    math.MaxUint64 / 2,
			AVXComponent:     64_000,
			FeatureComponent: 120_000,
			IntentBonus:      9_000_000_000,
			Total:            math.MaxUint64,
			FeatureValue:     600,
		},
		VerificationFlag: "V",
		CreatedAt:        time.Unix(1_700_000_001, 0).UTC(),
	}
}

func TestAppendGetRoundTrip(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	want := sampleRecord("SVT-a")

	inserted, err := s.Append(ctx, want)
	if err != nil || !inserted {
		t.Fatalf("Append = %v, %v", inserted, err)
	}

	got, err := s.Get(ctx, want.ID)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("record mismatch (-want +got):\n%s", diff)
	}
}

func TestAppendIsIdempotent(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	r := sampleRecord("SVT-a")

	if ok, err := s.Append(ctx, r); err != nil || !ok {
		t.Fatalf("first Append = %v, %v", ok, err)
	}
	r.Message = "changed"
	ok, err := s.Append(ctx, r)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("duplicate append reported as inserted")
	}

	got, _ := s.Get(ctx, r.ID)
	if got.Message == "changed" {
		t.Error("duplicate append overwrote the original record")
	}
	if n, _ := s.Count(ctx); n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
}

func TestListNewestFirst(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	for _, id := range []string{"SVT-1", "SVT-2", "SVT-3"} {
		if _, err := s.Append(ctx, sampleRecord(id)); err != nil {
			t.Fatal(err)
		}
	}

	all, err := s.List(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	var ids []string
	for _, r := range all {
		ids = append(ids, r.ID)
	}
	if diff := cmp.Diff([]string{"SVT-3", "SVT-2", "SVT-1"}, ids); diff != "" {
		t.Errorf("order (-want +got):\n%s", diff)
	}

	two, err := s.List(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(two) != 2 || two[0].ID != "SVT-3" {
		t.Errorf("List(2) = %d records", len(two))
	}
}

func TestGetMissing(t *testing.T) {
	s := openStore(t)
	if _, err := s.Get(context.Background(), "SVT-none"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestAppendRequiresID(t *testing.T) {
	s := openStore(t)
	if _, err := s.Append(context.Background(), Record{}); err == nil {
		t.Error("expected error for empty id")
	}
}

func TestReopenKeepsRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Append(context.Background(), sampleRecord("SVT-keep")); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s2, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()
	if _, err := s2.Get(context.Background(), "SVT-keep"); err != nil {
		t.Errorf("record lost after reopen: %v", err)
	}
}

func TestAppendRejectsNonFiniteFeatureValue(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	for i, v := range []float32{float32(math.NaN()), float32(math.Inf(1)), float32(math.Inf(-1))} {
		r := sampleRecord("SVT-nonfinite-" + string(rune('a'+i)))
		r.Breakdown.FeatureValue = v
		inserted, err := s.Append(ctx, r)
		if err == nil || inserted {
			t.Errorf("Append(%v) = %v, %v; want error", v, inserted, err)
		}
	}
	if n, err := s.Count(ctx); err != nil || n != 0 {
		t.Errorf("Count = %d, %v; want 0", n, err)
	}
}

func TestAppendSurfacesConstraintFailure(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	// Rebuild the table with a NOT NULL column Append does not fill, so the
	// insert fails on something other than the ID.
	strict := strings.Replace(schema, "seq INTEGER NOT NULL\n);", "seq INTEGER NOT NULL,\n\textra TEXT NOT NULL\n);", 1)
	if strict == schema {
		t.Fatal("schema rewrite did not apply")
	}
	if _, err := s.db.ExecContext(ctx, `DROP TABLE svt`); err != nil {
		t.Fatal(err)
	}
	if _, err := s.db.ExecContext(ctx, strict); err != nil {
		t.Fatal(err)
	}

	inserted, err := s.Append(ctx, sampleRecord("SVT-a"))
	if err == nil || inserted {
		t.Fatalf("Append = %v, %v; want NOT NULL error", inserted, err)
	}
}
