package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

// TimestampFormat is the layout used in audit entry timestamps.
const TimestampFormat = "2006-01-02T15:04:05.000Z"

// ReplayFilter selects entries for replay. Zero fields do not filter.
type ReplayFilter struct {
	DID  string
	From time.Time
	To   time.Time
}

// ReplaySummary holds decision counts for the replayed entries.
type ReplaySummary struct {
	Total          int    `json:"total"`
	AllowCount     int    `json:"allow_count"`
	DenyCount      int    `json:"deny_count"`
	DegradedCount  int    `json:"degraded_count"`
	FirstTimestamp string `json:"first_timestamp"`
	LastTimestamp  string `json:"last_timestamp"`
	// MinTier is the most privileged tier seen; -1 when no entries.
	MinTier   int    `json:"min_tier"`
	MaxWeight string `json:"max_weight,omitempty"`
}

// ReplayResult holds filtered entries and their summary.
type ReplayResult struct {
	DID     string        `json:"did,omitempty"`
	Entries []AuditEntry  `json:"entries"`
	Summary ReplaySummary `json:"summary"`
}

// Replay reads the audit log and returns entries matching the filter.
// Malformed lines are skipped.
func Replay(path string, filter ReplayFilter) (*ReplayResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()

	result := &ReplayResult{
		DID:     filter.DID,
		Summary: ReplaySummary{MinTier: -1},
	}
	var maxWeight uint64

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		var entry AuditEntry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			continue
		}
		if filter.DID != "" && entry.DID != filter.DID {
			continue
		}
		if !inWindow(entry.Timestamp, filter) {
			continue
		}

		result.Entries = append(result.Entries, entry)
		updateSummary(&result.Summary, entry)
		if w, err := strconv.ParseUint(entry.Weight, 10, 64); err == nil && w > maxWeight {
			maxWeight = w
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read audit log: %w", err)
	}

	if maxWeight > 0 {
		result.Summary.MaxWeight = strconv.FormatUint(maxWeight, 10)
	}
	return result, nil
}

func inWindow(ts string, filter ReplayFilter) bool {
	if filter.From.IsZero() && filter.To.IsZero() {
		return true
	}
	t, err := time.Parse(TimestampFormat, ts)
	if err != nil {
		return false
	}
	if !filter.From.IsZero() && t.Before(filter.From) {
		return false
	}
	if !filter.To.IsZero() && t.After(filter.To) {
		return false
	}
	return true
}

func updateSummary(s *ReplaySummary, entry AuditEntry) {
	s.Total++

	switch entry.Decision {
	case DecisionAllow:
		s.AllowCount++
	case DecisionDeny:
		s.DenyCount++
	}
	if entry.Degraded {
		s.DegradedCount++
	}
	if s.MinTier < 0 || entry.Tier < s.MinTier {
		s.MinTier = entry.Tier
	}

	if s.FirstTimestamp == "" {
		s.FirstTimestamp = entry.Timestamp
	}
	s.LastTimestamp = entry.Timestamp
}

// Tail returns the last n parseable entries of the log, oldest first.
func Tail(path string, n int) ([]AuditEntry, error) {
	result, err := Replay(path, ReplayFilter{})
	if err != nil {
		return nil, err
	}
	entries := result.Entries
	if n > 0 && len(entries) > n {
		entries = entries[len(entries)-n:]
	}
	return entries, nil
}
