package pull

import (
	"context"
	"fmt"
	"log/slog"
)

// Enumerator lists remote folders and computes aggregate descendant
// totals. Listing failures always surface as errors — an exhausted
// listing is never presented as an empty folder, because a populated
// folder mistaken for empty would be deleted prematurely.
type Enumerator struct {
	store  Store
	logger *slog.Logger
}

// NewEnumerator creates an enumerator over the given store.
func NewEnumerator(store Store, logger *slog.Logger) *Enumerator {
	if logger == nil {
		logger = slog.Default()
	}

	return &Enumerator{store: store, logger: logger}
}

// Measure walks the subtree under folderID depth-first with an explicit
// work stack and returns the total file count and byte sum. Folder
// nodes contribute zero bytes. It runs once, before any transfer, so
// the tree cannot yet have been mutated by this job.
func (e *Enumerator) Measure(ctx context.Context, folderID, resourceKey string) (Totals, error) {
	var totals Totals

	stack := []string{folderID}

	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		children, err := e.store.ListChildren(ctx, id, resourceKey)
		if err != nil {
			return Totals{}, fmt.Errorf("measuring folder %s: %w", id, err)
		}

		for i := range children {
			child := &children[i]
			if child.IsFolder() {
				stack = append(stack, child.ID)
				continue
			}

			totals.Files++
			totals.Bytes += child.Size
		}
	}

	e.logger.Info("measured subtree",
		slog.String("folder_id", folderID),
		slog.Int("files", totals.Files),
		slog.Int64("bytes", totals.Bytes),
	)

	return totals, nil
}
