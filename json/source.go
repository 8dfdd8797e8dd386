// Package json reads line-separated JSON records the way the raw sparkify
// corpora are laid out: one object per line, UTF-8.
package json

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"

	"github.com/pkg/errors"

	"github.com/sparkify/lake"
)

// Source reads json objects from a reader, one per line. Numbers are decoded
// as json.Number so decimal fields keep their exact textual value.
type Source struct {
	scan *bufio.Scanner
}

// NewSource gets a new json source which will decode from the given reader.
func NewSource(r io.Reader) *Source {
	scan := bufio.NewScanner(r)
	scan.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &Source{scan: scan}
}

// Record returns the next json object from the reader. A line that does not
// parse as an object yields an empty record, so one bad line nulls its own
// fields without failing the rest of the object (permissive mode). Blank
// lines are skipped. io.EOF signals the end of input.
func (s *Source) Record() (map[string]interface{}, error) {
	for s.scan.Scan() {
		line := bytes.TrimSpace(s.scan.Bytes())
		if len(line) == 0 {
			continue
		}
		var rec map[string]interface{}
		dec := json.NewDecoder(bytes.NewReader(line))
		dec.UseNumber()
		if err := dec.Decode(&rec); err != nil {
			return map[string]interface{}{}, nil
		}
		return rec, nil
	}
	if err := s.scan.Err(); err != nil {
		return nil, errors.Wrap(err, "scanning input")
	}
	return nil, io.EOF
}

type rawSourceSource struct {
	rs  lake.RawSource
	s   *Source
	cur io.Closer
}

// NewSourceFromRawSource chains the objects of rs into a single stream of
// records.
func NewSourceFromRawSource(rs lake.RawSource) lake.Source {
	return &rawSourceSource{rs: rs}
}

func (r *rawSourceSource) Record() (rec map[string]interface{}, err error) {
	if r.s == nil {
		reader, err := r.rs.NextReader()
		if err == io.EOF {
			return nil, err
		} else if err != nil {
			return nil, errors.Wrap(err, "getting next reader")
		}
		r.cur = reader
		r.s = NewSource(reader)
	}
	rec, err = r.s.Record()
	if err == io.EOF {
		r.s = nil
		if r.cur != nil {
			r.cur.Close()
			r.cur = nil
		}
		return r.Record()
	}
	return rec, err
}
