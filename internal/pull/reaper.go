package pull

import (
	"context"
	"errors"
	"log/slog"

	"github.com/tonimelisma/drivepull/internal/gdrive"
)

// Reaper deletes remote folders once confirmed to contain zero
// children. It runs as a second pass after the transfer walk, iterating
// post-order with an explicit frame stack so deeply nested trees cannot
// exhaust the call stack.
type Reaper struct {
	store  Store
	logger *slog.Logger
}

// NewReaper creates a reaper over the given store.
func NewReaper(store Store, logger *slog.Logger) *Reaper {
	if logger == nil {
		logger = slog.Default()
	}

	return &Reaper{store: store, logger: logger}
}

// reapFrame is one entry on the reap stack. A folder is visited twice:
// unexpanded (discover child folders) and expanded (its children have
// all been processed, re-check emptiness).
type reapFrame struct {
	id       string
	expanded bool
}

// Reap deletes every folder under (and including) folderID that a
// listing immediately preceding the deletion attempt reports as empty.
// Children are always processed before their parent, so a folder whose
// subfolders were all reaped becomes deletable itself. Remaining files
// block a folder's own deletion but never recursion into its
// subfolders. All failures here are non-fatal: the folder is logged and
// left for a future run.
func (r *Reaper) Reap(ctx context.Context, folderID, resourceKey string, report *Report) {
	stack := []reapFrame{{id: folderID}}

	for len(stack) > 0 {
		if ctx.Err() != nil {
			r.logger.Warn("reap pass canceled", slog.String("error", ctx.Err().Error()))
			return
		}

		frame := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		children, err := r.store.ListChildren(ctx, frame.id, resourceKey)
		if err != nil {
			// An unconfirmed listing is never treated as emptiness —
			// deleting an apparently-empty folder could destroy content.
			r.logger.Warn("reap: listing failed, leaving folder",
				slog.String("folder_id", frame.id),
				slog.String("error", err.Error()),
			)
			report.recordFolderLeft()

			continue
		}

		if len(children) == 0 {
			r.delete(ctx, frame.id, report)
			continue
		}

		if !frame.expanded {
			stack = append(stack, reapFrame{id: frame.id, expanded: true})

			for i := range children {
				if children[i].IsFolder() {
					stack = append(stack, reapFrame{id: children[i].ID})
				}
			}

			continue
		}

		// Expanded and still non-empty: leftover content (e.g. a file
		// whose transfer failed) blocks this folder's deletion.
		r.logger.Info("folder not empty, leaving for a future run",
			slog.String("folder_id", frame.id),
			slog.Int("remaining", len(children)),
		)
		report.recordFolderLeft()
	}
}

// delete removes one confirmed-empty folder. Not-found counts as
// already reaped.
func (r *Reaper) delete(ctx context.Context, folderID string, report *Report) {
	err := r.store.Delete(ctx, folderID)
	if err != nil && !errors.Is(err, gdrive.ErrNotFound) {
		r.logger.Warn("reap: delete failed, leaving folder for a future run",
			slog.String("folder_id", folderID),
			slog.String("error", err.Error()),
		)
		report.recordFolderLeft()

		return
	}

	r.logger.Info("reaped empty folder",
		slog.String("folder_id", folderID),
	)
	report.recordFolderReaped()
}
