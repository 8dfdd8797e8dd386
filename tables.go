package lake

// Output table locations under the output root. The .parquet suffix names a
// directory of part files, matching the layout the original pipeline wrote.
const (
	SongsTable     = "songs.parquet"
	ArtistsTable   = "artists.parquet"
	UsersTable     = "users.parquet"
	TimeTableName  = "time.parquet"
	SongplaysTable = "songplays.parquet"
)

// SongRow is one row of the songs dimension, partitioned by (year,
// artist_id). Decimal columns are carried as their canonical string form so
// the stored value is exact.
type SongRow struct {
	SongID   *string `parquet:"song_id,optional"`
	Title    *string `parquet:"title,optional"`
	ArtistID *string `parquet:"artist_id,optional"`
	Year     *int32  `parquet:"year,optional"`
	Duration *string `parquet:"duration,optional"`
}

// ArtistRow is one row of the artists dimension, unpartitioned.
type ArtistRow struct {
	ArtistID        *string `parquet:"artist_id,optional"`
	ArtistName      *string `parquet:"artist_name,optional"`
	ArtistLocation  *string `parquet:"artist_location,optional"`
	ArtistLatitude  *string `parquet:"artist_latitude,optional"`
	ArtistLongitude *string `parquet:"artist_longitude,optional"`
}

// UserRow is one row of the users dimension, unpartitioned. A user whose
// level changes appears once per distinct (user, level) tuple; level is not
// collapsed to most-recent.
type UserRow struct {
	UserID    *int32  `parquet:"user_id,optional"`
	FirstName *string `parquet:"first_name,optional"`
	LastName  *string `parquet:"last_name,optional"`
	Gender    *string `parquet:"gender,optional"`
	Level     *string `parquet:"level,optional"`
}

// TimeRow is the calendar breakdown of one distinct event timestamp,
// partitioned by (year, month). Datetime is the event instant floored to the
// second; the other columns are its wall-clock parts in the configured zone.
// Dayofweek is 1=Sunday..7=Saturday and Weekday is 0=Monday..6=Sunday,
// reproducing the conventions of the original pipeline's engine.
type TimeRow struct {
	Datetime  *int64  `parquet:"datetime,timestamp(millisecond),optional"`
	Hour      *int32  `parquet:"hour,optional"`
	Dayofweek *int32  `parquet:"dayofweek,optional"`
	Week      *string `parquet:"week,optional"`
	Day       *int32  `parquet:"day,optional"`
	Month     *int32  `parquet:"month,optional"`
	Year      *int32  `parquet:"year,optional"`
	Weekday   *int32  `parquet:"weekday,optional"`
}

// SongplayRow is one row of the songplays fact table, partitioned by (year,
// month). Month and year are derived from the event's datetime, not the
// song's.
type SongplayRow struct {
	TS        *int64  `parquet:"ts,optional"`
	Month     *int32  `parquet:"month,optional"`
	Year      *int32  `parquet:"year,optional"`
	UserID    *int32  `parquet:"user_id,optional"`
	Level     *string `parquet:"level,optional"`
	SongID    *string `parquet:"song_id,optional"`
	ArtistID  *string `parquet:"artist_id,optional"`
	SessionID *int32  `parquet:"session_id,optional"`
	Location  *string `parquet:"location,optional"`
	UserAgent *string `parquet:"user_agent,optional"`
}
