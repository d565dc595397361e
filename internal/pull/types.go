// Package pull implements the traversal-and-transfer engine: it walks a
// remote Drive subtree, mirrors every file to a local destination,
// verifies transfers by content hash, deletes downloaded nodes, and
// reaps emptied remote folders in a second post-order pass.
package pull

import (
	"context"
	"io"
	"sync"

	"github.com/tonimelisma/drivepull/internal/gdrive"
)

// Store is the remote-store surface the engine needs. Satisfied by
// *gdrive.Client; tests use an in-memory fake.
type Store interface {
	ListChildren(ctx context.Context, folderID, resourceKey string) ([]gdrive.File, error)
	DownloadRange(ctx context.Context, fileID, resourceKey string, w io.Writer, offset, length int64) (int64, error)
	Export(ctx context.Context, fileID, resourceKey, mimeType string, w io.Writer) (int64, error)
	Delete(ctx context.Context, fileID string) error
}

// Status is the coarse result of one file's transfer.
type Status int

const (
	// StatusTransferred: content downloaded, verified, and written locally.
	StatusTransferred Status = iota

	// StatusSkipped: an identical local copy already existed (hash match),
	// so no content was fetched.
	StatusSkipped

	// StatusFailed: the file could not be mirrored locally. The remote
	// node is left untouched.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusTransferred:
		return "transferred"
	case StatusSkipped:
		return "skipped"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome is the per-file transfer result. Deleted reports whether the
// remote node was removed; a successful local copy is never rolled back
// when the remote delete fails.
type Outcome struct {
	Status  Status
	Deleted bool
	Err     error
}

// Totals is the aggregate size of the job, computed once before any
// transfer begins.
type Totals struct {
	Files int
	Bytes int64
}

// Report accumulates job-level counters. Safe for concurrent updates
// from transfer workers.
type Report struct {
	mu sync.Mutex

	Totals Totals

	Transferred  int
	Skipped      int
	Failed       int
	DeleteFailed int // local copy kept, remote node left behind

	FoldersSkipped int // listing failed; nothing under them was touched
	FoldersReaped  int
	FoldersLeft    int // still had children (or an unconfirmed listing)

	BytesMoved int64
}

// Failures returns the count of units that will need a re-run.
func (r *Report) Failures() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.Failed + r.DeleteFailed + r.FoldersSkipped
}

func (r *Report) recordOutcome(o Outcome, bytes int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch o.Status {
	case StatusTransferred:
		r.Transferred++
		r.BytesMoved += bytes
	case StatusSkipped:
		r.Skipped++
	case StatusFailed:
		r.Failed++
	}

	if o.Status != StatusFailed && !o.Deleted {
		r.DeleteFailed++
	}
}

func (r *Report) recordFolderSkipped() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.FoldersSkipped++
}

func (r *Report) recordFolderReaped() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.FoldersReaped++
}

func (r *Report) recordFolderLeft() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.FoldersLeft++
}
