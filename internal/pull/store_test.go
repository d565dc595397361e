package pull

import (
	"context"
	"crypto/md5" //nolint:gosec // mirrors the Drive-reported checksum
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/tonimelisma/drivepull/internal/gdrive"
)

// testLogger returns a quiet logger for engine tests.
func testLogger(t *testing.T) *slog.Logger {
	t.Helper()

	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeNode is one entry in the fake remote tree.
type fakeNode struct {
	file     gdrive.File
	parent   string
	children []string // ids, in listing order
	content  []byte
}

// listPlan makes ListChildren for one folder fail after okCalls
// successful calls. okCalls 0 fails immediately.
type listPlan struct {
	okCalls int
	err     error
}

// fakeStore is an in-memory remote store. Deleting a non-empty folder
// is rejected, so any ordering bug in the engine surfaces as a test
// failure rather than silent data loss.
type fakeStore struct {
	mu sync.Mutex

	nodes     map[string]*fakeNode
	listPlans map[string]*listPlan

	deleteErr   map[string]error
	downloadErr map[string]error
	exportErr   map[string]error
	corrupt     map[string]bool // serve flipped bytes to trigger hash mismatch

	listCalls     map[string]int
	downloadCalls map[string]int
	exportCalls   map[string]int
	deleteCalls   []string
	ops           []string // chronological op log: "list:id", "download:id", ...
}

func newFakeStore() *fakeStore {
	s := &fakeStore{
		nodes:         make(map[string]*fakeNode),
		listPlans:     make(map[string]*listPlan),
		deleteErr:     make(map[string]error),
		downloadErr:   make(map[string]error),
		exportErr:     make(map[string]error),
		corrupt:       make(map[string]bool),
		listCalls:     make(map[string]int),
		downloadCalls: make(map[string]int),
		exportCalls:   make(map[string]int),
	}

	s.nodes["root"] = &fakeNode{
		file: gdrive.File{ID: "root", Name: "root", MimeType: gdrive.MimeFolder},
	}

	return s
}

func (s *fakeStore) addFolder(id, parentID, name string) {
	s.nodes[id] = &fakeNode{
		file:   gdrive.File{ID: id, Name: name, MimeType: gdrive.MimeFolder},
		parent: parentID,
	}
	s.nodes[parentID].children = append(s.nodes[parentID].children, id)
}

func (s *fakeStore) addFile(id, parentID, name string, content []byte) {
	sum := md5.Sum(content) //nolint:gosec // test checksum

	s.nodes[id] = &fakeNode{
		file: gdrive.File{
			ID:          id,
			Name:        name,
			MimeType:    "application/octet-stream",
			MD5Checksum: hex.EncodeToString(sum[:]),
			Size:        int64(len(content)),
		},
		parent:  parentID,
		content: content,
	}
	s.nodes[parentID].children = append(s.nodes[parentID].children, id)
}

// addDoc adds a Drive-native document: no checksum, no size.
func (s *fakeStore) addDoc(id, parentID, name, mimeType string, content []byte) {
	s.nodes[id] = &fakeNode{
		file: gdrive.File{
			ID:       id,
			Name:     name,
			MimeType: mimeType,
		},
		parent:  parentID,
		content: content,
	}
	s.nodes[parentID].children = append(s.nodes[parentID].children, id)
}

func (s *fakeStore) exists(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.nodes[id]

	return ok
}

func (s *fakeStore) ListChildren(_ context.Context, folderID, resourceKey string) ([]gdrive.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.listCalls[folderID]++
	s.ops = append(s.ops, "list:"+folderID)

	if plan, ok := s.listPlans[folderID]; ok && s.listCalls[folderID] > plan.okCalls {
		return nil, plan.err
	}

	node, ok := s.nodes[folderID]
	if !ok {
		return nil, gdrive.ErrNotFound
	}

	files := make([]gdrive.File, 0, len(node.children))

	for _, id := range node.children {
		f := s.nodes[id].file
		f.ResourceKey = resourceKey
		files = append(files, f)
	}

	return files, nil
}

func (s *fakeStore) DownloadRange(_ context.Context, fileID, _ string, w io.Writer, offset, length int64) (int64, error) {
	s.mu.Lock()

	s.downloadCalls[fileID]++
	s.ops = append(s.ops, "download:"+fileID)

	if err := s.downloadErr[fileID]; err != nil {
		s.mu.Unlock()
		return 0, err
	}

	node, ok := s.nodes[fileID]
	if !ok {
		s.mu.Unlock()
		return 0, gdrive.ErrNotFound
	}

	content := node.content
	corrupt := s.corrupt[fileID]
	s.mu.Unlock()

	if offset >= int64(len(content)) {
		return 0, fmt.Errorf("offset %d beyond content", offset)
	}

	end := min(offset+length, int64(len(content)))
	chunk := append([]byte(nil), content[offset:end]...)

	if corrupt {
		for i := range chunk {
			chunk[i] ^= 0xff
		}
	}

	n, err := w.Write(chunk)

	return int64(n), err
}

func (s *fakeStore) Export(_ context.Context, fileID, _, _ string, w io.Writer) (int64, error) {
	s.mu.Lock()

	s.exportCalls[fileID]++
	s.ops = append(s.ops, "export:"+fileID)

	if err := s.exportErr[fileID]; err != nil {
		s.mu.Unlock()
		return 0, err
	}

	node, ok := s.nodes[fileID]
	if !ok {
		s.mu.Unlock()
		return 0, gdrive.ErrNotFound
	}

	content := node.content
	s.mu.Unlock()

	n, err := w.Write(content)

	return int64(n), err
}

func (s *fakeStore) Delete(_ context.Context, fileID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.deleteCalls = append(s.deleteCalls, fileID)
	s.ops = append(s.ops, "delete:"+fileID)

	if err := s.deleteErr[fileID]; err != nil {
		return err
	}

	node, ok := s.nodes[fileID]
	if !ok {
		return gdrive.ErrNotFound
	}

	if len(node.children) > 0 {
		return fmt.Errorf("fake store: refusing to delete non-empty folder %s", fileID)
	}

	if parent, ok := s.nodes[node.parent]; ok {
		kept := parent.children[:0]

		for _, id := range parent.children {
			if id != fileID {
				kept = append(kept, id)
			}
		}

		parent.children = kept
	}

	delete(s.nodes, fileID)

	return nil
}
