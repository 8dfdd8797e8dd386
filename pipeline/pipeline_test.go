package pipeline

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	parquetgo "github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/require"

	"github.com/sparkify/lake"
)

const songLine = `{"num_songs": 1, "artist_id": "ARA", "artist_latitude": 35.14968, "artist_longitude": -90.04892, "artist_location": "Memphis", "artist_name": "Band", "song_id": "SOA", "title": "T1", "duration": 210.50, "year": 2003}`

const otherSongLine = `{"num_songs": 1, "artist_id": "ARB", "artist_name": "Other", "song_id": "SOB", "title": "T2", "duration": 99.99, "year": 0}`

var logLines = []string{
	// matches SOA
	`{"artist": "Band", "song": "T1", "length": 210.50, "level": "free", "page": "NextSong", "sessionId": 1, "ts": 1541110148796, "userId": "10", "firstName": "Ada", "lastName": "L", "gender": "F", "location": "SF", "userAgent": "ua"}`,
	// same user after going paid, also matches
	`{"artist": "Band", "song": "T1", "length": 210.5, "level": "paid", "page": "NextSong", "sessionId": 2, "ts": 1541120148796, "userId": "10", "firstName": "Ada", "lastName": "L", "gender": "F", "location": "SF", "userAgent": "ua"}`,
	// non-event page
	`{"page": "Home", "userId": "10", "ts": 1541110148796}`,
	// empty-string userId
	`{"artist": "Band", "song": "T1", "length": 210.50, "level": "free", "page": "NextSong", "sessionId": 3, "ts": 1541110148796, "userId": ""}`,
	// no catalog match
	`{"artist": "Ghost", "song": "Nope", "length": 1.0, "level": "free", "page": "NextSong", "sessionId": 4, "ts": 1541130148796, "userId": "11", "firstName": "Bob", "lastName": "M", "gender": "M", "location": "LA", "userAgent": "ua"}`,
	// exact duplicate of the first event
	`{"artist": "Band", "song": "T1", "length": 210.50, "level": "free", "page": "NextSong", "sessionId": 1, "ts": 1541110148796, "userId": "10", "firstName": "Ada", "lastName": "L", "gender": "F", "location": "SF", "userAgent": "ua"}`,
}

func writeFixture(t *testing.T, root, key, body string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(key))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
	require.NoError(t, ioutil.WriteFile(p, []byte(body), 0644))
}

func fixtureInput(t *testing.T) string {
	t.Helper()
	in := t.TempDir()
	writeFixture(t, in, "song_data/A/B/C/soa.json", songLine+"\n"+songLine+"\n")
	writeFixture(t, in, "song_data/A/B/D/sob.json", otherSongLine+"\n")
	logs := ""
	for _, line := range logLines {
		logs += line + "\n"
	}
	writeFixture(t, in, "log_data/2018/11/events.json", logs)
	return in
}

func runPipeline(t *testing.T, in, out string) {
	t.Helper()
	m := NewMain()
	m.InputRoot = in
	m.OutputRoot = out
	require.NoError(t, m.Run())
}

func TestPipelineEndToEnd(t *testing.T) {
	in := fixtureInput(t)
	out := t.TempDir()
	runPipeline(t, in, out)

	songs, err := parquetgo.ReadFile[lake.SongRow](
		filepath.Join(out, "songs.parquet", "year=2003", "artist_id=ARA", "part-00000.parquet"))
	require.NoError(t, err)
	require.Len(t, songs, 1, "duplicate song records should dedup")
	require.Equal(t, "SOA", *songs[0].SongID)
	require.Equal(t, "210.5", *songs[0].Duration)

	artists, err := parquetgo.ReadFile[lake.ArtistRow](
		filepath.Join(out, "artists.parquet", "part-00000.parquet"))
	require.NoError(t, err)
	require.Len(t, artists, 2)

	users, err := parquetgo.ReadFile[lake.UserRow](
		filepath.Join(out, "users.parquet", "part-00000.parquet"))
	require.NoError(t, err)
	require.Len(t, users, 3, "user 10 free, user 10 paid, user 11")
	levels := map[int32][]string{}
	for _, u := range users {
		levels[*u.UserID] = append(levels[*u.UserID], *u.Level)
	}
	require.Equal(t, []string{"free", "paid"}, levels[10], "a level change keeps both rows")

	times, err := parquetgo.ReadFile[lake.TimeRow](
		filepath.Join(out, "time.parquet", "year=2018", "month=11", "part-00000.parquet"))
	require.NoError(t, err)
	require.Len(t, times, 3, "one row per distinct timestamp")
	require.EqualValues(t, 22, *times[0].Hour)
	require.EqualValues(t, 5, *times[0].Dayofweek)
	require.Equal(t, "Thursday", *times[0].Week)

	plays, err := parquetgo.ReadFile[lake.SongplayRow](
		filepath.Join(out, "songplays.parquet", "year=2018", "month=11", "part-00000.parquet"))
	require.NoError(t, err)
	require.Len(t, plays, 2, "two matched events; the duplicate collapses, the unmatched drops")
	for _, p := range plays {
		require.Equal(t, "SOA", *p.SongID)
		require.Equal(t, "ARA", *p.ArtistID)
		require.EqualValues(t, 10, *p.UserID)
	}
}

func TestPipelineFilteredRecordsReachNoTable(t *testing.T) {
	in := fixtureInput(t)
	out := t.TempDir()
	runPipeline(t, in, out)

	users, err := parquetgo.ReadFile[lake.UserRow](
		filepath.Join(out, "users.parquet", "part-00000.parquet"))
	require.NoError(t, err)
	for _, u := range users {
		require.NotNil(t, u.UserID, "the empty-string user must not appear")
	}

	var sessions []int32
	plays, err := parquetgo.ReadFile[lake.SongplayRow](
		filepath.Join(out, "songplays.parquet", "year=2018", "month=11", "part-00000.parquet"))
	require.NoError(t, err)
	for _, p := range plays {
		sessions = append(sessions, *p.SessionID)
	}
	require.NotContains(t, sessions, int32(3), "the empty-userId event is excluded")
	require.NotContains(t, sessions, int32(4), "the unmatched event is excluded")
}

func TestPipelineEmptyInput(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()
	runPipeline(t, in, out)

	songs, err := parquetgo.ReadFile[lake.SongRow](
		filepath.Join(out, "songs.parquet", "part-00000.parquet"))
	require.NoError(t, err, "zero song records still writes an empty table")
	require.Empty(t, songs)
}

// snapshot reads every file under root keyed by relative path.
func snapshot(t *testing.T, root string) map[string]string {
	t.Helper()
	files := map[string]string{}
	err := filepath.Walk(root, func(p string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		body, err := ioutil.ReadFile(p)
		if err != nil {
			return err
		}
		files[filepath.ToSlash(rel)] = string(body)
		return nil
	})
	require.NoError(t, err)
	return files
}

func TestPipelineIdempotent(t *testing.T) {
	in := fixtureInput(t)
	out := t.TempDir()
	runPipeline(t, in, out)
	first := snapshot(t, out)
	runPipeline(t, in, out)
	second := snapshot(t, out)
	require.Equal(t, first, second, "re-running against unchanged input must reproduce the output byte for byte")
}

func TestParseS3(t *testing.T) {
	bucket, prefix, ok := ParseS3("s3://udacity-dend")
	require.True(t, ok)
	require.Equal(t, "udacity-dend", bucket)
	require.Equal(t, "", prefix)

	bucket, prefix, ok = ParseS3("s3a://udacity-dend/raw/")
	require.True(t, ok)
	require.Equal(t, "udacity-dend", bucket)
	require.Equal(t, "raw", prefix)

	_, _, ok = ParseS3("/data/input")
	require.False(t, ok)
	_, _, ok = ParseS3("s3://")
	require.False(t, ok)
}

func TestS3RootRequiresCredentials(t *testing.T) {
	m := NewMain()
	m.InputRoot = "s3://udacity-dend"
	m.OutputRoot = t.TempDir()
	_, err := m.NewPipeline()
	require.Error(t, err, "missing credentials must abort before any I/O")
}

func TestBadTimezoneRejected(t *testing.T) {
	m := NewMain()
	m.InputRoot = t.TempDir()
	m.OutputRoot = t.TempDir()
	m.Timezone = "Not/AZone"
	_, err := m.NewPipeline()
	require.Error(t, err)
}
