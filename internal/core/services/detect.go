package services

import (
	"fmt"
	"time"

	"github.com/custodia-labs/folio/internal/core/domain"
)

// DetectChanges selects the listed files a run must (re-)process.
//
// Only listing metadata is consulted. Rules apply in priority order:
// a forced file ID selects exactly that file; ForceAll selects everything;
// otherwise a file is selected when it is new, was left failed or partial,
// changed at the source, moved, or falls within the SinceDays window.
// A file whose listing has neither a modified time nor a checksum cannot be
// judged from metadata and is selected as unverified with its known hash.
// The result preserves listing order.
func DetectChanges(
	files []domain.SourceFile,
	persisted map[string]domain.Document,
	policy domain.SelectionPolicy,
	now time.Time,
) ([]domain.Selection, error) {
	if policy.ForceFileID != "" {
		for _, f := range files {
			if f.ID == policy.ForceFileID {
				return []domain.Selection{{File: f, Reason: domain.ReasonForced}}, nil
			}
		}
		return nil, fmt.Errorf("file %s is not in the listing: %w", policy.ForceFileID, domain.ErrNotFound)
	}

	selected := make([]domain.Selection, 0, len(files))

	if policy.ForceAll {
		for _, f := range files {
			selected = append(selected, domain.Selection{File: f, Reason: domain.ReasonForced})
		}
		return selected, nil
	}

	var cutoff time.Time
	if policy.SinceDays > 0 {
		cutoff = now.Add(-time.Duration(policy.SinceDays) * 24 * time.Hour)
	}

	for _, f := range files {
		doc, seen := persisted[f.ID]
		reason, ok := changeReason(f, doc, seen, cutoff)
		if !ok {
			continue
		}
		sel := domain.Selection{File: f, Reason: reason}
		if reason == domain.ReasonUnverified && doc.ContentHash != nil {
			sel.KnownHash = *doc.ContentHash
		}
		selected = append(selected, sel)
	}
	return selected, nil
}

// changeReason reports why f needs processing, if it does.
// A zero cutoff disables the look-back window.
func changeReason(
	f domain.SourceFile, doc domain.Document, seen bool, cutoff time.Time,
) (domain.SelectionReason, bool) {
	if !seen {
		return domain.ReasonNew, true
	}
	if doc.Status.NeedsRetry() {
		return domain.ReasonRetry, true
	}

	known := doc.ModifiedTime
	if known.IsZero() {
		known = doc.LastIngestedAt
	}
	// Stores keep microseconds; finer listing precision is not a change.
	if !f.ModifiedTime.IsZero() && f.ModifiedTime.Truncate(time.Microsecond).After(known.Truncate(time.Microsecond)) {
		return domain.ReasonModified, true
	}

	if f.FolderPath != doc.FolderPath {
		return domain.ReasonMoved, true
	}

	if hashChanged(f.ContentHash, doc.ContentHash) {
		return domain.ReasonHash, true
	}

	if !cutoff.IsZero() && !f.ModifiedTime.IsZero() && f.ModifiedTime.After(cutoff) {
		return domain.ReasonWindow, true
	}

	if f.ModifiedTime.IsZero() && f.ContentHash == "" {
		return domain.ReasonUnverified, true
	}
	return "", false
}

// hashChanged compares a listing checksum with the persisted one. Hashes
// of different algorithms are not comparable and never signal a change.
func hashChanged(remote string, persisted *string) bool {
	if remote == "" || persisted == nil || *persisted == "" {
		return false
	}
	if domain.HashAlgorithm(remote) != domain.HashAlgorithm(*persisted) {
		return false
	}
	return remote != *persisted
}
