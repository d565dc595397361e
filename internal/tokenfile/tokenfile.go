// Package tokenfile handles reading and writing the saved OAuth2 token.
// It is a leaf package imported by both config/ and gdrive/ so neither
// needs to depend on the other.
package tokenfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/oauth2"
)

// FilePerms restricts token files to owner-only read/write.
const FilePerms = 0o600

// DirPerms is used when creating the token directory.
const DirPerms = 0o700

// Load reads a saved token from disk. Returns (nil, nil) if the file
// does not exist — callers treat that as "not logged in".
func Load(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil //nolint:nilnil // sentinel for "not found"
	}

	if err != nil {
		return nil, fmt.Errorf("tokenfile: reading %s: %w", path, err)
	}

	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("tokenfile: decoding %s: %w", path, err)
	}

	return &tok, nil
}

// Save writes the token to disk with owner-only permissions, creating
// the parent directory if needed. The write goes through a temp file
// and rename so a crash never leaves a truncated token.
func Save(path string, tok *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), DirPerms); err != nil {
		return fmt.Errorf("tokenfile: creating directory for %s: %w", path, err)
	}

	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return fmt.Errorf("tokenfile: encoding token: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, FilePerms); err != nil {
		return fmt.Errorf("tokenfile: writing %s: %w", tmp, err)
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("tokenfile: renaming %s: %w", tmp, err)
	}

	return nil
}

// Remove deletes the token file. A missing file is not an error.
func Remove(path string) error {
	err := os.Remove(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("tokenfile: removing %s: %w", path, err)
	}

	return nil
}
