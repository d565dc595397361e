package pull

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/tonimelisma/drivepull/internal/gdrive"
)

// Options tunes a Walker.
type Options struct {
	// ChunkSize is the ranged-download chunk in bytes.
	ChunkSize int64

	// Workers bounds the per-folder file transfer pool. 1 (the default)
	// keeps the job strictly sequential.
	Workers int

	// Observer receives byte-progress updates. May be nil.
	Observer ProgressFunc

	Logger *slog.Logger
}

// Walker orchestrates the job: it sizes the subtree, walks it
// depth-first with an explicit work stack transferring all files in a
// folder before descending into its subfolders, mirrors the directory
// structure locally, and finally runs the reaper pass over the root's
// subfolders.
type Walker struct {
	store    Store
	enum     *Enumerator
	transfer *Transferrer
	reaper   *Reaper
	workers  int
	observer ProgressFunc
	logger   *slog.Logger
}

// NewWalker assembles the engine around the given store.
func NewWalker(store Store, opts Options) *Walker {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	return &Walker{
		store:    store,
		enum:     NewEnumerator(store, logger),
		transfer: NewTransferrer(store, opts.ChunkSize, logger),
		reaper:   NewReaper(store, logger),
		workers:  workers,
		observer: opts.Observer,
		logger:   logger,
	}
}

// folderWork is one entry on the walk stack.
type folderWork struct {
	id   string
	key  string
	dest string
}

// Run executes the whole job: sizing pass, transfer walk, reap pass.
// An error sizing the job or listing the root aborts everything before
// any deletion; after that point, per-file and per-folder failures are
// recorded in the report and the job continues.
//
// The root folder itself is never deleted — only its drained contents.
func (w *Walker) Run(ctx context.Context, rootID, resourceKey, destRoot string) (*Report, error) {
	totals, err := w.enum.Measure(ctx, rootID, resourceKey)
	if err != nil {
		return nil, fmt.Errorf("sizing job: %w", err)
	}

	prog := NewProgress(totals.Bytes, w.observer)
	report := &Report{Totals: totals}

	// The root listing is the one folder listing that aborts the job:
	// failing here means nothing can be safely attempted.
	rootChildren, err := w.store.ListChildren(ctx, rootID, resourceKey)
	if err != nil {
		return nil, fmt.Errorf("listing root folder %s: %w", rootID, err)
	}

	var stack []folderWork

	rootSubfolders, err := w.processFolder(ctx, folderWork{id: rootID, key: resourceKey, dest: destRoot}, rootChildren, prog, report, &stack)
	if err != nil {
		return report, err
	}

	for len(stack) > 0 {
		fw := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		children, listErr := w.store.ListChildren(ctx, fw.id, fw.key)
		if listErr != nil {
			// Skip this subtree for the run: nothing under it is
			// touched, nothing above it is affected.
			w.logger.Warn("folder listing failed, skipping subtree",
				slog.String("folder_id", fw.id),
				slog.String("error", listErr.Error()),
			)
			report.recordFolderSkipped()

			continue
		}

		if _, err := w.processFolder(ctx, fw, children, prog, report, &stack); err != nil {
			return report, err
		}
	}

	// Cleanup is a second, independent post-order pass so a folder is
	// only removed once every attempted transfer under it has run.
	for _, sub := range rootSubfolders {
		w.reaper.Reap(ctx, sub.id, sub.key, report)
	}

	w.logger.Info("job complete",
		slog.Int("transferred", report.Transferred),
		slog.Int("skipped", report.Skipped),
		slog.Int("failed", report.Failed),
		slog.Int("delete_failed", report.DeleteFailed),
		slog.Int("folders_reaped", report.FoldersReaped),
		slog.Int64("bytes_moved", report.BytesMoved),
	)

	return report, ctx.Err()
}

// processFolder transfers every file child of the folder, then pushes
// its subfolders onto the walk stack. Files are always handled before
// any descent so the folder can be verified empty, and therefore
// deletable, once its direct files are gone. Returns the folder's
// direct subfolders.
func (w *Walker) processFolder(
	ctx context.Context, fw folderWork, children []gdrive.File,
	prog *Progress, report *Report, stack *[]folderWork,
) ([]folderWork, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.workers)

	for i := range children {
		child := children[i]
		if child.IsFolder() {
			continue
		}

		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}

			outcome := w.transfer.Transfer(gctx, child, fw.dest, prog)
			report.recordOutcome(outcome, child.Size)

			// Per-file failures never abort sibling transfers.
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("walk canceled: %w", err)
	}

	var subfolders []folderWork

	// Push in reverse so the stack pops subfolders in listing order.
	for i := len(children) - 1; i >= 0; i-- {
		child := &children[i]
		if !child.IsFolder() {
			continue
		}

		sub := folderWork{
			id:   child.ID,
			key:  fw.key,
			dest: filepath.Join(fw.dest, LocalName(child.Name)),
		}
		*stack = append(*stack, sub)
		subfolders = append(subfolders, sub)
	}

	return subfolders, nil
}
