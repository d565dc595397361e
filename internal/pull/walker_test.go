package pull

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWalker(store *fakeStore, t *testing.T) *Walker {
	t.Helper()

	return NewWalker(store, Options{Logger: testLogger(t)})
}

func TestRunMovesWholeTree(t *testing.T) {
	store := newFakeStore()
	store.addFile("a", "root", "A.bin", []byte("hello"))
	store.addFolder("b", "root", "B")
	store.addFile("c", "b", "C.bin", []byte("abc"))

	dest := t.TempDir()

	walker := newTestWalker(store, t)

	report, err := walker.Run(context.Background(), "root", "", dest)
	require.NoError(t, err)

	// Local mirror.
	data, err := os.ReadFile(filepath.Join(dest, "A.bin"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	data, err = os.ReadFile(filepath.Join(dest, "B", "C.bin"))
	require.NoError(t, err)
	assert.Equal(t, "abc", string(data))

	// Remote drained: files gone, emptied folder reaped, root kept.
	assert.False(t, store.exists("a"))
	assert.False(t, store.exists("c"))
	assert.False(t, store.exists("b"))
	assert.True(t, store.exists("root"), "the root folder is never deleted")

	assert.Equal(t, Totals{Files: 2, Bytes: 8}, report.Totals)
	assert.Equal(t, 2, report.Transferred)
	assert.Zero(t, report.Failed)
	assert.Equal(t, int64(8), report.BytesMoved)
	assert.Equal(t, 1, report.FoldersReaped)
}

func TestRunTransfersFilesBeforeDescending(t *testing.T) {
	store := newFakeStore()
	store.addFolder("b", "root", "B") // listed before the file
	store.addFile("a", "root", "A.bin", []byte("x"))
	store.addFile("c", "b", "C.bin", []byte("y"))

	walker := newTestWalker(store, t)

	_, err := walker.Run(context.Background(), "root", "", t.TempDir())
	require.NoError(t, err)

	// A's download must precede anything under B, regardless of
	// listing order.
	aAt, cAt := -1, -1

	for i, op := range store.ops {
		switch op {
		case "download:a":
			aAt = i
		case "download:c":
			cAt = i
		}
	}

	require.NotEqual(t, -1, aAt)
	require.NotEqual(t, -1, cAt)
	assert.Less(t, aAt, cAt, "all files in a folder are handled before its subfolders")
}

func TestRunIsIdempotent(t *testing.T) {
	store := newFakeStore()
	store.addFile("a", "root", "A.bin", []byte("hello"))

	dest := t.TempDir()

	walker := newTestWalker(store, t)

	_, err := walker.Run(context.Background(), "root", "", dest)
	require.NoError(t, err)

	// Second run over the drained tree does nothing.
	report, err := walker.Run(context.Background(), "root", "", dest)
	require.NoError(t, err)

	assert.Zero(t, report.Transferred)
	assert.Zero(t, report.Skipped)
	assert.Zero(t, report.Failed)
	assert.Equal(t, []string{"a"}, store.deleteCalls, "no new deletes on the second run")

	data, err := os.ReadFile(filepath.Join(dest, "A.bin"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestRunSkipsSubtreeOnListingFailure(t *testing.T) {
	store := newFakeStore()
	store.addFile("a", "root", "A.bin", []byte("hi"))
	store.addFolder("b", "root", "B")
	store.addFile("c", "b", "C.bin", []byte("abc"))

	// The sizing pass lists b once successfully; the walk's listing
	// fails, as does the reaper's.
	store.listPlans["b"] = &listPlan{okCalls: 1, err: errors.New("listing exploded")}

	dest := t.TempDir()

	walker := newTestWalker(store, t)

	report, err := walker.Run(context.Background(), "root", "", dest)
	require.NoError(t, err, "a subtree listing failure does not abort the job")

	// The sibling file still moved.
	assert.FileExists(t, filepath.Join(dest, "A.bin"))
	assert.False(t, store.exists("a"))

	// Nothing under b was touched, and b itself survived.
	assert.NoFileExists(t, filepath.Join(dest, "B", "C.bin"))
	assert.True(t, store.exists("c"))
	assert.True(t, store.exists("b"))

	assert.Equal(t, 1, report.FoldersSkipped)
	assert.Equal(t, 1, report.FoldersLeft, "the reaper never deletes a folder it cannot list")
	assert.Zero(t, report.FoldersReaped)
}

func TestRunAbortsWhenSizingFails(t *testing.T) {
	store := newFakeStore()
	store.addFile("a", "root", "A.bin", []byte("hi"))
	store.listPlans["root"] = &listPlan{okCalls: 0, err: errors.New("listing exploded")}

	walker := newTestWalker(store, t)

	_, err := walker.Run(context.Background(), "root", "", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sizing job")
	assert.Empty(t, store.deleteCalls, "nothing is deleted when the job aborts up front")
}

func TestRunAbortsWhenRootListingFails(t *testing.T) {
	store := newFakeStore()
	store.addFile("a", "root", "A.bin", []byte("hi"))

	// Sizing lists root once; the walk's root listing fails.
	store.listPlans["root"] = &listPlan{okCalls: 1, err: errors.New("listing exploded")}

	walker := newTestWalker(store, t)

	_, err := walker.Run(context.Background(), "root", "", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listing root folder")
	assert.Empty(t, store.deleteCalls)
}

func TestRunRecordsPerFileFailuresAndContinues(t *testing.T) {
	store := newFakeStore()
	store.addFile("a", "root", "A.bin", []byte("hi"))
	store.addFile("bad", "root", "Bad.bin", []byte("zz"))
	store.downloadErr["bad"] = errors.New("fetch exploded")

	dest := t.TempDir()

	walker := newTestWalker(store, t)

	report, err := walker.Run(context.Background(), "root", "", dest)
	require.NoError(t, err, "per-file failures never abort the job")

	assert.Equal(t, 1, report.Transferred)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.Failures())

	assert.FileExists(t, filepath.Join(dest, "A.bin"))
	assert.True(t, store.exists("bad"), "the failed file stays remote for a retry run")
}

func TestRunLeavesFolderHoldingFailedFile(t *testing.T) {
	store := newFakeStore()
	store.addFolder("b", "root", "B")
	store.addFile("bad", "b", "Bad.bin", []byte("zz"))
	store.downloadErr["bad"] = errors.New("fetch exploded")

	walker := newTestWalker(store, t)

	report, err := walker.Run(context.Background(), "root", "", t.TempDir())
	require.NoError(t, err)

	assert.True(t, store.exists("b"), "a folder still holding content is never reaped")
	assert.Equal(t, 1, report.FoldersLeft)
	assert.Zero(t, report.FoldersReaped)
}

func TestRunMirrorsNestedFolders(t *testing.T) {
	store := newFakeStore()
	store.addFolder("b", "root", "B")
	store.addFolder("d", "b", "D")
	store.addFile("e", "d", "E.bin", []byte("deep"))

	dest := t.TempDir()

	walker := newTestWalker(store, t)

	report, err := walker.Run(context.Background(), "root", "", dest)
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(dest, "B", "D", "E.bin"))
	assert.Equal(t, 2, report.FoldersReaped, "both emptied folders reaped bottom-up")
	assert.False(t, store.exists("d"))
	assert.False(t, store.exists("b"))
}

func TestRunParallelWorkers(t *testing.T) {
	store := newFakeStore()

	for _, id := range []string{"f1", "f2", "f3", "f4"} {
		store.addFile(id, "root", id+".bin", []byte(id))
	}

	dest := t.TempDir()

	walker := NewWalker(store, Options{Workers: 4, Logger: testLogger(t)})

	report, err := walker.Run(context.Background(), "root", "", dest)
	require.NoError(t, err)

	assert.Equal(t, 4, report.Transferred)

	for _, id := range []string{"f1", "f2", "f3", "f4"} {
		assert.FileExists(t, filepath.Join(dest, id+".bin"))
		assert.False(t, store.exists(id))
	}
}

func TestRunObserverSeesAllBytes(t *testing.T) {
	store := newFakeStore()
	store.addFile("a", "root", "A.bin", []byte("hello"))
	store.addFile("b", "root", "B.bin", []byte("abc"))

	var last int64

	walker := NewWalker(store, Options{
		Logger: testLogger(t),
		Observer: func(_, done, total int64) {
			last = done

			assert.Equal(t, int64(8), total)
		},
	})

	_, err := walker.Run(context.Background(), "root", "", t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, int64(8), last, "progress ends at the pre-computed total")
}
