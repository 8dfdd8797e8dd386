// Package pipeline sequences the song and log transforms against the
// configured input and output roots.
package pipeline

import (
	"io"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/sparkify/lake"
	"github.com/sparkify/lake/aws/s3"
	"github.com/sparkify/lake/file"
	ljson "github.com/sparkify/lake/json"
	"github.com/sparkify/lake/parquet"
)

// Corpus locations under the input root. The song corpus is nested four
// levels deep, the log corpus three.
const (
	songGlob = "song_data/*/*/*/*.json"
	logGlob  = "log_data/*/*/*.json"
)

// Main contains the configuration for a pipeline run.
type Main struct {
	InputRoot  string `help:"Root of the raw corpora: an s3://bucket/prefix URL or a local directory."`
	OutputRoot string `help:"Root the dimensional tables are written under; same forms as input-root."`
	Region     string `help:"AWS region for s3 roots."`
	AccessKey  string `help:"AWS access key id; required when either root is on s3."`
	SecretKey  string `help:"AWS secret access key; required when either root is on s3."`
	Timezone   string `help:"IANA timezone used to derive the wall-clock time columns."`
	Config     string `help:"Path to an optional toml config file holding any of the other options."`
}

// NewMain gets a new Main with the default configuration.
func NewMain() *Main {
	return &Main{
		InputRoot:  "s3://udacity-dend",
		OutputRoot: "s3://sparkify-data-lake-p4",
		Region:     "us-east-1",
		Timezone:   "UTC",
	}
}

// Pipeline is a validated Main with its stores opened.
type Pipeline struct {
	In  lake.Store
	Out lake.Store
	Loc *time.Location
}

// NewPipeline validates the configuration and opens the input and output
// stores. An s3 root without credentials is rejected here, before any I/O
// happens.
func (m *Main) NewPipeline() (*Pipeline, error) {
	loc, err := time.LoadLocation(m.Timezone)
	if err != nil {
		return nil, errors.Wrapf(err, "loading timezone %q", m.Timezone)
	}
	in, err := m.openStore(m.InputRoot)
	if err != nil {
		return nil, errors.Wrap(err, "opening input root")
	}
	out, err := m.openStore(m.OutputRoot)
	if err != nil {
		return nil, errors.Wrap(err, "opening output root")
	}
	return &Pipeline{In: in, Out: out, Loc: loc}, nil
}

// Run executes the full pipeline: read the song corpus, write the songs and
// artists tables, then run the log transform with the same song records
// backing the songplays join. Strictly sequential; any write failure aborts
// the run.
func (m *Main) Run() error {
	p, err := m.NewPipeline()
	if err != nil {
		return err
	}
	songs, err := p.SongRecords()
	if err != nil {
		return err
	}
	if err := p.ProcessSongs(songs); err != nil {
		return err
	}
	return p.ProcessLogs(songs)
}

// SongRecords reads and decodes the whole song corpus. Zero records is not
// an error; the tables derived from it are simply empty.
func (p *Pipeline) SongRecords() ([]lake.SongRecord, error) {
	src, err := lake.NewGlobSource(p.In, songGlob)
	if err != nil {
		return nil, errors.Wrap(err, "globbing song corpus")
	}
	records := []lake.SongRecord{}
	recs := ljson.NewSourceFromRawSource(src)
	for {
		rec, err := recs.Record()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, errors.Wrap(err, "reading song records")
		}
		records = append(records, lake.DecodeSong(rec))
	}
	log.Printf("read %d song records", len(records))
	return records, nil
}

// ProcessSongs writes the songs and artists tables derived from the raw song
// records.
func (p *Pipeline) ProcessSongs(records []lake.SongRecord) error {
	songs := lake.Songs(records)
	log.Printf("songs: %d rows", len(songs))
	err := parquet.Write(p.Out, lake.SongsTable, songs, &parquet.Partitioner[lake.SongRow]{
		Columns: []string{"year", "artist_id"},
		Values: func(r lake.SongRow) []*string {
			return []*string{i32Part(r.Year), r.ArtistID}
		},
	})
	if err != nil {
		return errors.Wrap(err, "writing songs table")
	}

	artists := lake.Artists(records)
	log.Printf("artists: %d rows", len(artists))
	if err := parquet.Write(p.Out, lake.ArtistsTable, artists, nil); err != nil {
		return errors.Wrap(err, "writing artists table")
	}
	return nil
}

// ProcessLogs reads the log corpus and writes the users, time and songplays
// tables. The songplays join runs against the raw song records, so the song
// table writes need not have completed, only the corpus read.
func (p *Pipeline) ProcessLogs(songs []lake.SongRecord) error {
	records, err := p.logRecords()
	if err != nil {
		return err
	}
	events := lake.FilterEvents(records)
	log.Printf("kept %d of %d log records", len(events), len(records))

	users := lake.Users(events)
	log.Printf("users: %d rows", len(users))
	if err := parquet.Write(p.Out, lake.UsersTable, users, nil); err != nil {
		return errors.Wrap(err, "writing users table")
	}

	times := lake.TimeTable(events, p.Loc)
	log.Printf("time: %d rows", len(times))
	err = parquet.Write(p.Out, lake.TimeTableName, times, &parquet.Partitioner[lake.TimeRow]{
		Columns: []string{"year", "month"},
		Values: func(r lake.TimeRow) []*string {
			return []*string{i32Part(r.Year), i32Part(r.Month)}
		},
	})
	if err != nil {
		return errors.Wrap(err, "writing time table")
	}

	plays := lake.Songplays(events, songs, p.Loc)
	log.Printf("songplays: %d rows", len(plays))
	err = parquet.Write(p.Out, lake.SongplaysTable, plays, &parquet.Partitioner[lake.SongplayRow]{
		Columns: []string{"year", "month"},
		Values: func(r lake.SongplayRow) []*string {
			return []*string{i32Part(r.Year), i32Part(r.Month)}
		},
	})
	return errors.Wrap(err, "writing songplays table")
}

func (p *Pipeline) logRecords() ([]lake.LogRecord, error) {
	src, err := lake.NewGlobSource(p.In, logGlob)
	if err != nil {
		return nil, errors.Wrap(err, "globbing log corpus")
	}
	records := []lake.LogRecord{}
	recs := ljson.NewSourceFromRawSource(src)
	for {
		rec, err := recs.Record()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, errors.Wrap(err, "reading log records")
		}
		records = append(records, lake.DecodeLog(rec))
	}
	log.Printf("read %d log records", len(records))
	return records, nil
}

// openStore maps a root to a store. s3://bucket/prefix (and the s3a/s3n
// spellings the original used) open an S3 store; anything else is a local
// directory.
func (m *Main) openStore(root string) (lake.Store, error) {
	bucket, prefix, ok := ParseS3(root)
	if !ok {
		return file.NewStore(root), nil
	}
	if m.AccessKey == "" || m.SecretKey == "" {
		return nil, errors.Errorf("s3 root %s requires access-key and secret-key", root)
	}
	return s3.NewStore(bucket,
		s3.OptRegion(m.Region),
		s3.OptPrefix(prefix),
		s3.OptCredentials(m.AccessKey, m.SecretKey),
	)
}

// ParseS3 splits an s3://bucket/prefix root into bucket and prefix. The
// scheme may be spelled s3, s3a or s3n.
func ParseS3(root string) (bucket, prefix string, ok bool) {
	for _, scheme := range []string{"s3://", "s3a://", "s3n://"} {
		if !strings.HasPrefix(root, scheme) {
			continue
		}
		rest := strings.Trim(strings.TrimPrefix(root, scheme), "/")
		parts := strings.SplitN(rest, "/", 2)
		bucket = parts[0]
		if len(parts) == 2 {
			prefix = parts[1]
		}
		return bucket, prefix, bucket != ""
	}
	return "", "", false
}

func i32Part(i *int32) *string {
	if i == nil {
		return nil
	}
	s := strconv.FormatInt(int64(*i), 10)
	return &s
}
