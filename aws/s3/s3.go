// Package s3 implements lake.Store over an S3 bucket. Credentials are passed
// in explicitly rather than read from the process environment, so the store
// can be constructed and tested without mutating global state.
package s3

import (
	"bytes"
	"io"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/pkg/errors"

	"github.com/sparkify/lake"
)

// Option is a functional option type for Store.
type Option func(s *Store)

// OptRegion sets the AWS region for a Store.
func OptRegion(region string) Option {
	return func(s *Store) {
		s.region = region
	}
}

// OptPrefix roots the store at a key prefix within the bucket.
func OptPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = strings.Trim(prefix, "/")
	}
}

// OptCredentials sets static credentials for the store's session.
func OptCredentials(accessKey, secretKey string) Option {
	return func(s *Store) {
		s.creds = credentials.NewStaticCredentials(accessKey, secretKey, "")
	}
}

// Store is a lake.Store backed by an S3 bucket, optionally rooted at a key
// prefix within it.
type Store struct {
	bucket string
	prefix string
	region string
	creds  *credentials.Credentials

	sess *session.Session
	s3   *s3.S3
}

// NewStore returns a new Store on bucket with the options applied.
func NewStore(bucket string, opts ...Option) (*Store, error) {
	s := &Store{
		bucket: bucket,
		region: "us-east-1",
	}
	for _, opt := range opts {
		opt(s)
	}
	cfg := &aws.Config{Region: aws.String(s.region)}
	if s.creds != nil {
		cfg.Credentials = s.creds
	}
	var err error
	s.sess, err = session.NewSession(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "getting aws session")
	}
	s.s3 = s3.New(s.sess)
	return s, nil
}

// List returns the keys under prefix in lexical order, relative to the store
// root.
func (s *Store) List(prefix string) ([]string, error) {
	var keys []string
	err := s.s3.ListObjectsPages(&s3.ListObjectsInput{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.key(prefix)),
	}, func(page *s3.ListObjectsOutput, last bool) bool {
		for _, obj := range page.Contents {
			keys = append(keys, strings.TrimPrefix(*obj.Key, s.root()))
		}
		return true
	})
	if err != nil {
		return nil, errors.Wrap(err, "listing objects")
	}
	sort.Strings(keys)
	return keys, nil
}

type object struct {
	name string
	body io.ReadCloser
}

func (o *object) Read(buf []byte) (int, error) { return o.body.Read(buf) }
func (o *object) Close() error                 { return o.body.Close() }
func (o *object) Name() string                 { return o.name }

// Open fetches the object at key.
func (s *Store) Open(key string) (lake.NamedReadCloser, error) {
	result, err := s.s3.GetObject(&s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(key)),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "fetching %s", key)
	}
	return &object{name: key, body: result.Body}, nil
}

// writer buffers the object body and uploads it on Close; S3 wants the whole
// body at once.
type writer struct {
	store *Store
	key   string
	buf   bytes.Buffer
}

func (w *writer) Write(p []byte) (int, error) { return w.buf.Write(p) }

func (w *writer) Close() error {
	_, err := w.store.s3.PutObject(&s3.PutObjectInput{
		Bucket: aws.String(w.store.bucket),
		Key:    aws.String(w.store.key(w.key)),
		Body:   bytes.NewReader(w.buf.Bytes()),
	})
	return errors.Wrapf(err, "putting %s", w.key)
}

// Create returns a writer which uploads to key when closed.
func (s *Store) Create(key string) (io.WriteCloser, error) {
	return &writer{store: s, key: key}, nil
}

// RemoveAll deletes every object under prefix, in batches of up to 1000 keys
// per DeleteObjects call.
func (s *Store) RemoveAll(prefix string) error {
	keys, err := s.List(prefix)
	if err != nil {
		return errors.Wrap(err, "listing for removal")
	}
	for len(keys) > 0 {
		batch := keys
		if len(batch) > 1000 {
			batch = batch[:1000]
		}
		keys = keys[len(batch):]
		objects := make([]*s3.ObjectIdentifier, len(batch))
		for i, key := range batch {
			objects[i] = &s3.ObjectIdentifier{Key: aws.String(s.key(key))}
		}
		_, err := s.s3.DeleteObjects(&s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &s3.Delete{Objects: objects},
		})
		if err != nil {
			return errors.Wrapf(err, "deleting under %s", prefix)
		}
	}
	return nil
}

// key maps a store-relative key to the full bucket key.
func (s *Store) key(key string) string {
	return s.root() + key
}

// root is the bucket-key prefix of the store, with a trailing slash when a
// prefix is set.
func (s *Store) root() string {
	if s.prefix == "" {
		return ""
	}
	return s.prefix + "/"
}
