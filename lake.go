// Package lake implements the sparkify data-lake ETL: it reads the raw song
// and log corpora as line-separated JSON from an object store, applies the
// fixed schema and relational transforms, and produces the rows of the
// dimensional tables (songs, artists, users, time, songplays).
package lake

import (
	"io"
	"path"
	"strings"

	"github.com/pkg/errors"
)

// Source is the interface for getting raw data one record at a time.
type Source interface {
	Record() (map[string]interface{}, error)
}

// NamedReadCloser is an io.ReadCloser which also knows the name of the
// object it is reading.
type NamedReadCloser interface {
	io.ReadCloser
	Name() string
}

// RawSource is the interface for getting raw data one object at a time.
// NextReader returns io.EOF when the source is exhausted.
type RawSource interface {
	NextReader() (NamedReadCloser, error)
}

// Store is the interface to an object store holding the raw corpora and the
// output tables. Keys are slash-separated and relative to the store root.
// List returns keys in lexical order so that repeated runs see the input in
// the same order.
type Store interface {
	List(prefix string) ([]string, error)
	Open(key string) (NamedReadCloser, error)
	Create(key string) (io.WriteCloser, error)
	RemoveAll(prefix string) error
}

// GlobSource is a RawSource over every object in a Store whose key matches a
// segment-wise glob pattern.
type GlobSource struct {
	store Store
	keys  []string
	idx   int
}

// NewGlobSource lists the store and keeps the keys matching pattern. Pattern
// segments are matched with path.Match, so "song_data/*/*/*/*.json" selects
// .json objects exactly four levels below song_data. An empty match set is
// not an error.
func NewGlobSource(store Store, pattern string) (*GlobSource, error) {
	keys, err := store.List(globPrefix(pattern))
	if err != nil {
		return nil, errors.Wrapf(err, "listing %s", pattern)
	}
	s := &GlobSource{store: store}
	for _, key := range keys {
		if MatchKey(pattern, key) {
			s.keys = append(s.keys, key)
		}
	}
	return s, nil
}

// NextReader opens the next matching object, or returns io.EOF.
func (s *GlobSource) NextReader() (NamedReadCloser, error) {
	if s.idx >= len(s.keys) {
		return nil, io.EOF
	}
	key := s.keys[s.idx]
	s.idx++
	r, err := s.store.Open(key)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", key)
	}
	return r, nil
}

// MatchKey reports whether key matches pattern segment by segment. Unlike
// path.Match on the whole string, a "*" segment never spans a "/", so the
// nesting depth of the pattern is part of the match.
func MatchKey(pattern, key string) bool {
	psegs := strings.Split(pattern, "/")
	ksegs := strings.Split(key, "/")
	if len(psegs) != len(ksegs) {
		return false
	}
	for i := range psegs {
		ok, err := path.Match(psegs[i], ksegs[i])
		if err != nil || !ok {
			return false
		}
	}
	return true
}

// globPrefix is the literal leading portion of pattern, used to narrow the
// store listing before matching.
func globPrefix(pattern string) string {
	segs := strings.Split(pattern, "/")
	prefix := ""
	for _, seg := range segs {
		if strings.ContainsAny(seg, "*?[") {
			break
		}
		prefix += seg + "/"
	}
	return prefix
}
