package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/crowdverify/verify-analytics/analytics"
)

// FSArtifactStore implements analytics.ArtifactStore over a local
// directory tree: root/bucket/key. Writes go through a temp file and
// rename so a concurrent load never observes a half-written artifact.
type FSArtifactStore struct {
	Root string
}

// NewFSArtifactStore creates a store rooted at dir.
func NewFSArtifactStore(dir string) *FSArtifactStore {
	return &FSArtifactStore{Root: dir}
}

// Get implements analytics.ArtifactStore.
func (s *FSArtifactStore) Get(_ context.Context, bucket, key string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.Root, bucket, filepath.FromSlash(key)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &analytics.ArtifactError{Reason: fmt.Sprintf("artifact %s/%s not found", bucket, key), Err: err}
	}
	if err != nil {
		return nil, &analytics.ArtifactError{Reason: "reading artifact", Err: err}
	}
	return data, nil
}

// Put implements analytics.ArtifactStore.
func (s *FSArtifactStore) Put(_ context.Context, bucket, key string, data []byte) error {
	path := filepath.Join(s.Root, bucket, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &analytics.ArtifactError{Reason: "creating artifact directory", Err: err}
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".artifact-*")
	if err != nil {
		return &analytics.ArtifactError{Reason: "creating artifact temp file", Err: err}
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return &analytics.ArtifactError{Reason: "writing artifact", Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return &analytics.ArtifactError{Reason: "closing artifact temp file", Err: err}
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return &analytics.ArtifactError{Reason: "renaming artifact into place", Err: err}
	}
	return nil
}
