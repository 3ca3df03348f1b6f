package domain

import "time"

// SourceFile is one entry of a file source's recursive listing.
// Only listing metadata is available; content is fetched separately.
type SourceFile struct {
	// ID is the source's stable file identifier.
	ID string

	// Name is the file name.
	Name string

	// MIMEType is the type reported by the source.
	MIMEType string

	// FolderPath is the slash-joined chain of folder names below the root.
	FolderPath string

	// URL opens the file in the source's viewer.
	URL string

	// ModifiedTime is the source's last-modified timestamp, zero if unknown.
	ModifiedTime time.Time

	// ContentHash is an "algo:hex" checksum reported by the listing when
	// the source can provide one without downloading the file.
	ContentHash string

	// Size is the file size in bytes, zero if unknown.
	Size int64
}

// SelectionPolicy controls which listed files a run re-processes.
type SelectionPolicy struct {
	// SinceDays re-selects files modified within the last N days.
	// Zero or negative disables the look-back window.
	SinceDays int

	// ForceAll selects every listed file.
	ForceAll bool

	// ForceFileID selects exactly one file, regardless of change status.
	// It takes priority over ForceAll.
	ForceFileID string
}

// SelectionReason explains why a file was selected for processing.
type SelectionReason string

const (
	ReasonForced   SelectionReason = "forced"
	ReasonNew      SelectionReason = "new"
	ReasonRetry    SelectionReason = "retry"
	ReasonModified SelectionReason = "modified"
	ReasonMoved    SelectionReason = "moved"
	ReasonHash     SelectionReason = "hash"
	ReasonWindow   SelectionReason = "window"

	// ReasonUnverified marks a file whose listing carries neither a
	// modified time nor a checksum. Its bytes are fetched and hashed, and
	// it is only reprocessed when the hash differs from KnownHash.
	ReasonUnverified SelectionReason = "unverified"
)

// Selection is a file chosen for processing and the reason it was chosen.
type Selection struct {
	File   SourceFile
	Reason SelectionReason

	// KnownHash is the persisted content hash, set for ReasonUnverified.
	KnownHash string
}

// DocumentFromFile builds the document row for a listed file.
// Status, hash and ingestion fields are left for the caller to fill in.
func DocumentFromFile(f SourceFile) Document {
	return Document{
		ID:           f.ID,
		Name:         f.Name,
		MIMEType:     f.MIMEType,
		FolderPath:   f.FolderPath,
		URL:          f.URL,
		ModifiedTime: f.ModifiedTime,
	}
}
