// Package blobstore spills large event content to disk, one file per
// event id, so the Relational Index row stays small when content exceeds
// the Storage Engine's configured blob threshold.
package blobstore

import (
	"os"
	"path/filepath"

	"github.com/memkit/memoryd/internal/errs"
)

// Store is a one-file-per-id spill area rooted at a configured directory;
// each file is named by its event id.
type Store struct {
	root string
}

// New creates the root directory if needed and returns a Store rooted there.
func New(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errs.Wrap(errs.StoreUnavailable, "blobstore.new", "failed to create blob store root", err)
	}
	return &Store{root: root}, nil
}

// Put writes content under id, overwriting any existing blob for that id.
func (s *Store) Put(id string, content []byte) error {
	path, err := s.pathFor(id)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, content, 0o644); err != nil {
		return errs.Wrap(errs.StoreUnavailable, "blobstore.put", "failed to write blob", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return errs.Wrap(errs.StoreUnavailable, "blobstore.put", "failed to finalize blob", err)
	}
	return nil
}

// Get reads the blob for id, returning (nil, nil) if it does not exist.
func (s *Store) Get(id string) ([]byte, error) {
	path, err := s.pathFor(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.Wrap(errs.StoreUnavailable, "blobstore.get", "failed to read blob", err)
	}
	return data, nil
}

// Delete removes the blob for id. Deleting an absent blob is not an error.
func (s *Store) Delete(id string) error {
	path, err := s.pathFor(id)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errs.Wrap(errs.StoreUnavailable, "blobstore.delete", "failed to delete blob", err)
	}
	return nil
}

// Has reports whether a blob exists for id.
func (s *Store) Has(id string) (bool, error) {
	path, err := s.pathFor(id)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, errs.Wrap(errs.StoreUnavailable, "blobstore.has", "failed to stat blob", err)
	}
	return true, nil
}

// pathFor rejects ids that would escape the store root via path
// traversal, then resolves the per-id file path.
func (s *Store) pathFor(id string) (string, error) {
	if id == "" || id != filepath.Base(id) {
		return "", errs.New(errs.Validation, "blobstore.path", "invalid blob id")
	}
	return filepath.Join(s.root, id), nil
}
