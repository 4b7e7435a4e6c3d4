package indexer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"comet-support/internal/record"
)

// CoverageStats describes how much of the corpus carries usable data per
// aggregation category, plus a fingerprint identifying the corpus snapshot
// the index was built from.
type CoverageStats struct {
	// RecordsTotal is the number of records in the corpus snapshot.
	RecordsTotal int `json:"records_total"`
	// WithDate counts records carrying a parseable date.
	WithDate int `json:"with_date"`
	// WithActionCode counts records with a present action code.
	WithActionCode int `json:"with_action_code"`
	// WithFailureCode counts records with a present failure code.
	WithFailureCode int `json:"with_failure_code"`
	// WithMaterial counts records with a present material code.
	WithMaterial int `json:"with_material"`
	// WithSerial counts records with a present serial number.
	WithSerial int `json:"with_serial"`
	// CorpusFingerprint identifies the corpus snapshot (count + content hash
	// over the deterministic text projections).
	CorpusFingerprint string `json:"corpus_fingerprint"`
}

// ComputeCoverageStats reduces the corpus into coverage counters. The
// fingerprint hashes the same projections that get embedded, so two corpora
// with identical fingerprints build identical indexes.
func ComputeCoverageStats(records []record.Record) CoverageStats {
	stats := CoverageStats{RecordsTotal: len(records)}

	h := sha256.New()
	_, _ = fmt.Fprintf(h, "records=%d\n", len(records))

	for _, rec := range records {
		if rec.Date != nil {
			stats.WithDate++
		}
		if record.Present(rec.ActionCode) {
			stats.WithActionCode++
		}
		if record.Present(rec.FailureCode) {
			stats.WithFailureCode++
		}
		if record.Present(rec.MaterialCode) {
			stats.WithMaterial++
		}
		if record.Present(rec.SerialNumber) {
			stats.WithSerial++
		}
		_, _ = h.Write([]byte(rec.CombinedText()))
		_, _ = h.Write([]byte{'\n'})
	}

	stats.CorpusFingerprint = hex.EncodeToString(h.Sum(nil))[:16]
	return stats
}
