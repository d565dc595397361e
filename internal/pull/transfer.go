package pull

import (
	"context"
	"crypto/md5" //nolint:gosec // Drive reports MD5; used for integrity, not security
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/tonimelisma/drivepull/internal/gdrive"
)

// Transferrer performs the per-file download-verify-delete transaction.
type Transferrer struct {
	store     Store
	chunkSize int64
	logger    *slog.Logger
}

// DefaultChunkSize is the ranged-download chunk when no configuration
// overrides it.
const DefaultChunkSize = 8 << 20

// NewTransferrer creates a transfer unit reading chunkSize bytes per
// remote call.
func NewTransferrer(store Store, chunkSize int64, logger *slog.Logger) *Transferrer {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Transferrer{store: store, chunkSize: chunkSize, logger: logger}
}

// Transfer mirrors one remote file into destDir and deletes the remote
// node on success. Steps: ensure destDir exists, short-circuit on an
// identical local copy, fetch (direct chunked download or export
// transcoding), verify by MD5, atomically rename into place, then
// delete remotely. A failure at any step never affects sibling
// transfers, and a successful local write is never rolled back because
// the remote delete failed.
func (t *Transferrer) Transfer(ctx context.Context, f gdrive.File, destDir string, prog *Progress) Outcome {
	t.logger.Debug("processing file",
		slog.String("file_id", f.ID),
		slog.String("name", f.Name),
	)

	if err := os.MkdirAll(destDir, 0o755); err != nil { //nolint:mnd // standard dir perms
		return t.failed(f, fmt.Errorf("creating destination dir %s: %w", destDir, err))
	}

	name := LocalName(f.Name)

	exportFormat, isExport := f.ExportFormat()
	if isExport {
		name = rewriteExtension(name, exportFormat.Extension)
	}

	targetPath := filepath.Join(destDir, name)

	// Hash short-circuit: an existing local file with a matching MD5
	// means the content is already mirrored — skip fetch and write,
	// but still attempt the remote delete so the node is drained.
	if !isExport && f.MD5Checksum != "" && hashMatches(targetPath, f.MD5Checksum) {
		t.logger.Info("local copy matches remote hash, skipping download",
			slog.String("name", name),
			slog.String("file_id", f.ID),
		)

		return Outcome{Status: StatusSkipped, Deleted: t.deleteRemote(ctx, f)}
	}

	localHash, err := t.fetchToPartial(ctx, f, exportFormat, isExport, targetPath, prog)
	if err != nil {
		return t.failed(f, err)
	}

	// Verify the transfer by content hash. Exported documents carry no
	// remote checksum, so verification only applies to native files.
	if !isExport && f.MD5Checksum != "" && localHash != f.MD5Checksum {
		os.Remove(targetPath + ".partial")

		return t.failed(f, fmt.Errorf("hash mismatch for %s: local %s, remote %s", name, localHash, f.MD5Checksum))
	}

	// Atomic rename: .partial -> target.
	if err := os.Rename(targetPath+".partial", targetPath); err != nil {
		os.Remove(targetPath + ".partial")

		return t.failed(f, fmt.Errorf("renaming partial to %s: %w", targetPath, err))
	}

	t.logger.Info("file transferred",
		slog.String("name", name),
		slog.String("file_id", f.ID),
		slog.Int64("size", f.Size),
	)

	return Outcome{Status: StatusTransferred, Deleted: t.deleteRemote(ctx, f)}
}

// failed logs a failure with enough context to re-run manually and
// wraps it in an Outcome.
func (t *Transferrer) failed(f gdrive.File, err error) Outcome {
	t.logger.Error("transfer failed",
		slog.String("file_id", f.ID),
		slog.String("name", f.Name),
		slog.String("error", err.Error()),
	)

	return Outcome{Status: StatusFailed, Err: err}
}

// fetchToPartial streams the file's content to targetPath+".partial",
// computing its MD5 in the same pass. Returns the hex hash. On error
// the partial file is removed.
func (t *Transferrer) fetchToPartial(
	ctx context.Context, f gdrive.File, exportFormat gdrive.ExportFormat, isExport bool,
	targetPath string, prog *Progress,
) (string, error) {
	partialPath := targetPath + ".partial"

	out, err := os.Create(partialPath)
	if err != nil {
		return "", fmt.Errorf("creating partial file %s: %w", partialPath, err)
	}

	h := md5.New() //nolint:gosec // integrity check against Drive's reported MD5
	w := io.MultiWriter(out, h)

	if isExport {
		// Exports stream whole and have no size in the pre-computed
		// totals, so they do not advance the byte progress.
		_, err = t.store.Export(ctx, f.ID, f.ResourceKey, exportFormat.MimeType, w)
	} else {
		err = t.downloadChunked(ctx, f, w, prog)
	}

	if err != nil {
		out.Close()
		os.Remove(partialPath)

		return "", fmt.Errorf("fetching %s: %w", f.Name, err)
	}

	if err := out.Close(); err != nil {
		os.Remove(partialPath)

		return "", fmt.Errorf("closing partial file %s: %w", partialPath, err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// downloadChunked pulls the file in chunkSize ranges, advancing the
// progress counter after every chunk. Each chunk is an independent
// remote call with its own retry budget.
func (t *Transferrer) downloadChunked(ctx context.Context, f gdrive.File, w io.Writer, prog *Progress) error {
	var offset int64

	for offset < f.Size {
		length := min(t.chunkSize, f.Size-offset)

		n, err := t.store.DownloadRange(ctx, f.ID, f.ResourceKey, w, offset, length)
		prog.Add(n)

		if err != nil {
			return err
		}

		if n == 0 {
			return fmt.Errorf("remote returned no data at offset %d of %s", offset, f.Name)
		}

		offset += n
	}

	return nil
}

// deleteRemote removes the remote node, treating not-found as already
// deleted. Returns whether the node is gone. Delete failures are logged
// and left for a future run — the local copy is kept regardless.
func (t *Transferrer) deleteRemote(ctx context.Context, f gdrive.File) bool {
	err := t.store.Delete(ctx, f.ID)
	if err != nil && !errors.Is(err, gdrive.ErrNotFound) {
		t.logger.Warn("remote delete failed, keeping local copy",
			slog.String("file_id", f.ID),
			slog.String("name", f.Name),
			slog.String("error", err.Error()),
		)

		return false
	}

	t.logger.Debug("remote node deleted",
		slog.String("file_id", f.ID),
	)

	return true
}

// hashMatches reports whether the file at path exists and its MD5
// equals checksum. Any read error counts as no-match.
func hashMatches(path, checksum string) bool {
	local, err := computeMD5(path)
	if err != nil {
		return false
	}

	return local == checksum
}

// computeMD5 returns the hex MD5 of the file's content.
func computeMD5(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := md5.New() //nolint:gosec // integrity check against Drive's reported MD5
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// LocalName maps a remote node name to a safe local file name:
// NFC-normalized (Drive and macOS disagree on Unicode composition)
// with path separators replaced.
func LocalName(name string) string {
	name = norm.NFC.String(name)
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, string(os.PathSeparator), "_")

	if name == "" || name == "." || name == ".." {
		return "_"
	}

	return name
}

// rewriteExtension replaces the name's extension with ext (which
// includes the leading dot). Names without an extension get ext appended.
func rewriteExtension(name, ext string) string {
	return strings.TrimSuffix(name, filepath.Ext(name)) + ext
}
