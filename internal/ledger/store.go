// Package ledger persists weighted SVT records in SQLite.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ppiankov/accord/internal/model"
)

// ErrNotFound is returned by Get for an unknown SVT ID.
var ErrNotFound = errors.New("ledger: record not found")

// Record is one weighted SVT.
type Record struct {
	ID               string                `json:"id"`
	DID              string                `json:"did"`
	Tier             model.Tier            `json:"tier"`
	Intent           model.Intent          `json:"intent"`
	Message          string                `json:"message,omitempty"`
	Timestamp        int64                 `json:"timestamp"`
	Reason           model.Reason          `json:"reason"`
	PolicyID         string                `json:"policy_id,omitempty"`
	Breakdown        model.WeightBreakdown `json:"breakdown"`
	VerificationFlag string                `json:"verification_flag"`
	CreatedAt        time.Time             `json:"created_at"`
}

// Store is a SQLite-backed ledger.
type Store struct {
	db   *sql.DB
	path string
}

const schema = `
CREATE TABLE IF NOT EXISTS svt (
	id TEXT PRIMARY KEY,
	did TEXT NOT NULL,
	tier INTEGER NOT NULL,
	intent TEXT NOT NULL,
	message TEXT NOT NULL DEFAULT '',
	timestamp INTEGER NOT NULL,
	reason TEXT NOT NULL,
	policy_id TEXT NOT NULL DEFAULT '',
	hash_component TEXT NOT NULL,
	avx_component TEXT NOT NULL,
	feature_component TEXT NOT NULL,
	intent_bonus TEXT NOT NULL,
	final_weight TEXT NOT NULL,
	feature_value REAL NOT NULL,
	feature_degraded INTEGER NOT NULL DEFAULT 0,
	feature_invalid INTEGER NOT NULL DEFAULT 0,
	degraded_reason TEXT NOT NULL DEFAULT '',
	verification_flag TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	seq INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_svt_did ON svt(did);
CREATE INDEX IF NOT EXISTS idx_svt_seq ON svt(seq);
`

// Open creates or opens the ledger database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("ledger: create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("ledger: open: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("ledger: %s: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ledger: initialize schema: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Append inserts r unless a record with the same ID exists. It reports
// whether a new row was written. Only an ID conflict is ignored; any other
// constraint failure is returned.
func (s *Store) Append(ctx context.Context, r Record) (bool, error) {
	if r.ID == "" {
		return false, errors.New("ledger: record id is required")
	}
	if fv := float64(r.Breakdown.FeatureValue); math.IsNaN(fv) || math.IsInf(fv, 0) {
		return false, fmt.Errorf("ledger: append %s: non-finite feature value %v", r.ID, fv)
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	b := r.Breakdown
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO svt (
			id, did, tier, intent, message, timestamp, reason, policy_id,
			hash_component, avx_component, feature_component, intent_bonus, final_weight,
			feature_value, feature_degraded, feature_invalid, degraded_reason,
			verification_flag, created_at, seq
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?,
			(SELECT COALESCE(MAX(seq), 0) + 1 FROM svt))
		ON CONFLICT(id) DO NOTHING`,
		r.ID, r.DID, int(r.Tier), string(r.Intent), r.Message, r.Timestamp, string(r.Reason), r.PolicyID,
		formatUint(b.HashComponent), formatUint(b.AVXComponent), formatUint(b.FeatureComponent),
		formatUint(b.IntentBonus), formatUint(b.Total),
		float64(b.FeatureValue), b.FeatureDegraded, b.FeatureInvalid, b.DegradedReason,
		r.VerificationFlag, r.CreatedAt.UnixNano(),
	)
	if err != nil {
		return false, fmt.Errorf("ledger: append %s: %w", r.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("ledger: append %s: %w", r.ID, err)
	}
	return n == 1, nil
}

const selectColumns = `id, did, tier, intent, message, timestamp, reason, policy_id,
	hash_component, avx_component, feature_component, intent_bonus, final_weight,
	feature_value, feature_degraded, feature_invalid, degraded_reason,
	verification_flag, created_at`

// Get returns the record with the given ID.
func (s *Store) Get(ctx context.Context, id string) (Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM svt WHERE id = ?`, id)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Record{}, fmt.Errorf("ledger: get %s: %w", id, err)
	}
	return r, nil
}

// List returns up to limit records, newest first. limit <= 0 returns all.
func (s *Store) List(ctx context.Context, limit int) ([]Record, error) {
	query := `SELECT ` + selectColumns + ` FROM svt ORDER BY seq DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ledger: list: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("ledger: list: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ledger: list: %w", err)
	}
	return out, nil
}

// Count returns the number of records.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM svt`).Scan(&n); err != nil {
		return 0, fmt.Errorf("ledger: count: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (Record, error) {
	var (
		r                             Record
		tier                          int
		intent, reason                string
		hash, avx, feat, bonus, total string
		featureValue                  float64
		createdAt                     int64
	)
	err := sc.Scan(&r.ID, &r.DID, &tier, &intent, &r.Message, &r.Timestamp, &reason, &r.PolicyID,
		&hash, &avx, &feat, &bonus, &total,
		&featureValue, &r.Breakdown.FeatureDegraded, &r.Breakdown.FeatureInvalid, &r.Breakdown.DegradedReason,
		&r.VerificationFlag, &createdAt)
	if err != nil {
		return Record{}, err
	}
	r.Tier = model.Tier(tier)
	r.Intent = model.Intent(intent)
	r.Reason = model.Reason(reason)
	r.Breakdown.FeatureValue = float32(featureValue)
	r.CreatedAt = time.Unix(0, createdAt).UTC()

	for _, f := range []struct {
		dst *uint64
		src string
	}{
		{&r.Breakdown.HashComponent, hash},
		{&r.Breakdown.AVXComponent, avx},
		{&r.Breakdown.FeatureComponent, feat},
		{&r.Breakdown.IntentBonus, bonus},
		{&r.Breakdown.Total, total},
	} {
		v, err := strconv.ParseUint(f.src, 10, 64)
		if err != nil {
			return Record{}, fmt.Errorf("parse weight %q: %w", f.src, err)
		}
		*f.dst = v
	}
	return r, nil
}

func formatUint(v uint64) string {
	return strconv.FormatUint(v, 10)
}
