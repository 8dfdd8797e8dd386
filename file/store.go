// Package file implements lake.Store over a local directory tree. It backs
// local runs and the tests; the layout mirrors what the s3 store produces so
// the two are interchangeable for the pipeline.
package file

import (
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/sparkify/lake"
)

// Store is a lake.Store rooted at a directory. Keys are slash-separated
// paths relative to the root.
type Store struct {
	root string
}

// NewStore returns a Store rooted at the given directory. The directory need
// not exist yet; a missing root lists as empty.
func NewStore(root string) *Store {
	return &Store{root: root}
}

// List returns the keys of all regular files under the root which start with
// prefix, in lexical order.
func (s *Store) List(prefix string) ([]string, error) {
	var keys []string
	err := filepath.Walk(s.root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if os.IsNotExist(errors.Cause(err)) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "walking %s", s.root)
	}
	sort.Strings(keys)
	return keys, nil
}

type object struct {
	*os.File
	key string
}

// Name returns the store key of the object, not the filesystem path.
func (o *object) Name() string { return o.key }

// Open opens the object at key for reading.
func (s *Store) Open(key string) (lake.NamedReadCloser, error) {
	f, err := os.Open(s.path(key))
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", key)
	}
	return &object{File: f, key: key}, nil
}

// Create creates the object at key, making parent directories as needed. An
// existing object at the same key is truncated.
func (s *Store) Create(key string) (io.WriteCloser, error) {
	p := s.path(key)
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return nil, errors.Wrapf(err, "making directories for %s", key)
	}
	f, err := os.Create(p)
	if err != nil {
		return nil, errors.Wrapf(err, "creating %s", key)
	}
	return f, nil
}

// RemoveAll deletes everything under prefix. A prefix with nothing under it
// is not an error, so overwriting a table that was never written works.
func (s *Store) RemoveAll(prefix string) error {
	return errors.Wrapf(os.RemoveAll(s.path(prefix)), "removing %s", prefix)
}

func (s *Store) path(key string) string {
	return filepath.Join(s.root, filepath.FromSlash(key))
}
