package lake

import (
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Event is a log record kept by the songplay filter, with its userId cast to
// an integer. The cast mirrors SQL semantics: a non-numeric userId becomes
// null rather than failing the record.
type Event struct {
	Rec    LogRecord
	UserID *int32
}

// FilterEvents keeps the records with page == "NextSong" and a non-empty
// userId. The userId check is a string comparison, not a null check: some
// sources emit "" instead of null and those rows must be excluded too. A
// null page or null userId never passes.
func FilterEvents(records []LogRecord) []Event {
	events := make([]Event, 0, len(records))
	for _, r := range records {
		if r.Page == nil || *r.Page != "NextSong" {
			continue
		}
		if r.UserID == nil || *r.UserID == "" {
			continue
		}
		ev := Event{Rec: r}
		if id, err := strconv.ParseInt(*r.UserID, 10, 32); err == nil {
			i := int32(id)
			ev.UserID = &i
		}
		events = append(events, ev)
	}
	return events
}

// Songs projects {song_id, title, artist_id, year, duration} from the raw
// song records, deduplicated on the full tuple. First occurrence order is
// kept so repeated runs emit rows in the same order.
func Songs(records []SongRecord) []SongRow {
	rows := make([]SongRow, 0, len(records))
	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		row := SongRow{
			SongID:   r.SongID,
			Title:    r.Title,
			ArtistID: r.ArtistID,
			Year:     r.Year,
			Duration: decString(r.Duration),
		}
		k := tupleKey(strKey(row.SongID), strKey(row.Title), strKey(row.ArtistID), i32Key(row.Year), strKey(row.Duration))
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		rows = append(rows, row)
	}
	return rows
}

// Artists projects the artist columns from the raw song records, distinct on
// the full tuple.
func Artists(records []SongRecord) []ArtistRow {
	rows := make([]ArtistRow, 0, len(records))
	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		row := ArtistRow{
			ArtistID:        r.ArtistID,
			ArtistName:      r.ArtistName,
			ArtistLocation:  r.ArtistLocation,
			ArtistLatitude:  decString(r.ArtistLatitude),
			ArtistLongitude: decString(r.ArtistLongitude),
		}
		k := tupleKey(strKey(row.ArtistID), strKey(row.ArtistName), strKey(row.ArtistLocation), strKey(row.ArtistLatitude), strKey(row.ArtistLongitude))
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		rows = append(rows, row)
	}
	return rows
}

// Users projects {userId, firstName, lastName, gender, level} from the
// filtered events, distinct on the full tuple. A user seen first as "free"
// and later as "paid" therefore yields two rows.
func Users(events []Event) []UserRow {
	rows := make([]UserRow, 0, len(events))
	seen := make(map[string]struct{}, len(events))
	for _, ev := range events {
		row := UserRow{
			UserID:    ev.UserID,
			FirstName: ev.Rec.FirstName,
			LastName:  ev.Rec.LastName,
			Gender:    ev.Rec.Gender,
			Level:     ev.Rec.Level,
		}
		k := tupleKey(i32Key(row.UserID), strKey(row.FirstName), strKey(row.LastName), strKey(row.Gender), strKey(row.Level))
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		rows = append(rows, row)
	}
	return rows
}

// TimeTable derives the calendar breakdown of each distinct event timestamp.
// The wall-clock datetime is floor(ts/1000) interpreted as epoch seconds in
// loc. The original pipeline used the executing host's local zone, which
// made output depend on where it ran; here the zone is explicit and defaults
// to UTC in the driver.
func TimeTable(events []Event, loc *time.Location) []TimeRow {
	rows := make([]TimeRow, 0, len(events))
	seen := make(map[int64]struct{}, len(events))
	nullSeen := false
	for _, ev := range events {
		if ev.Rec.TS == nil {
			if nullSeen {
				continue
			}
			nullSeen = true
			rows = append(rows, TimeRow{})
			continue
		}
		if _, ok := seen[*ev.Rec.TS]; ok {
			continue
		}
		seen[*ev.Rec.TS] = struct{}{}
		t := eventTime(*ev.Rec.TS, loc)
		ms := t.Unix() * 1000
		rows = append(rows, TimeRow{
			Datetime:  &ms,
			Hour:      i32p(int32(t.Hour())),
			Dayofweek: i32p(int32(t.Weekday()) + 1),
			Week:      strp(t.Weekday().String()),
			Day:       i32p(int32(t.Day())),
			Month:     i32p(int32(t.Month())),
			Year:      i32p(int32(t.Year())),
			Weekday:   i32p((int32(t.Weekday()) + 6) % 7),
		})
	}
	return rows
}

// Songplays inner-joins the filtered events to the raw song records on
// (artist = artist_name AND length = duration AND song = title). Equality on
// length/duration is exact decimal equality with no tolerance; a null on
// either side of any join column never matches. Events without a catalog
// match are dropped, but counted and logged since that silence is a known
// data-completeness concern. The result is distinct on the full projected
// tuple.
func Songplays(events []Event, songs []SongRecord, loc *time.Location) []SongplayRow {
	idx := make(map[string][]SongRecord, len(songs))
	for _, s := range songs {
		if s.ArtistName == nil || s.Duration == nil || s.Title == nil {
			continue
		}
		k := tupleKey(*s.ArtistName, s.Duration.String(), *s.Title)
		idx[k] = append(idx[k], s)
	}

	rows := make([]SongplayRow, 0, len(events))
	seen := make(map[string]struct{}, len(events))
	unmatched := 0
	for _, ev := range events {
		if ev.Rec.Artist == nil || ev.Rec.Length == nil || ev.Rec.Song == nil {
			unmatched++
			continue
		}
		matches := idx[tupleKey(*ev.Rec.Artist, ev.Rec.Length.String(), *ev.Rec.Song)]
		if len(matches) == 0 {
			unmatched++
			continue
		}
		var month, year *int32
		if ev.Rec.TS != nil {
			t := eventTime(*ev.Rec.TS, loc)
			month = i32p(int32(t.Month()))
			year = i32p(int32(t.Year()))
		}
		for _, s := range matches {
			row := SongplayRow{
				TS:        ev.Rec.TS,
				Month:     month,
				Year:      year,
				UserID:    ev.UserID,
				Level:     ev.Rec.Level,
				SongID:    s.SongID,
				ArtistID:  s.ArtistID,
				SessionID: ev.Rec.SessionID,
				Location:  ev.Rec.Location,
				UserAgent: ev.Rec.UserAgent,
			}
			k := tupleKey(i64Key(row.TS), i32Key(row.UserID), strKey(row.Level), strKey(row.SongID),
				strKey(row.ArtistID), i32Key(row.SessionID), strKey(row.Location), strKey(row.UserAgent))
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			rows = append(rows, row)
		}
	}
	if unmatched > 0 {
		log.Printf("songplays: dropped %d events with no catalog match", unmatched)
	}
	return rows
}

// eventTime converts epoch milliseconds to the event's wall-clock time by
// flooring to seconds, matching the original's ts/1000 derivation.
func eventTime(ts int64, loc *time.Location) time.Time {
	return time.Unix(ts/1000, 0).In(loc)
}

// tupleKey builds a dedup/join key from field encodings, joined on the unit
// separator, which does not occur in the corpora's field values.
func tupleKey(parts ...string) string {
	return strings.Join(parts, "\x1f")
}

func strKey(s *string) string {
	if s == nil {
		return "\x00"
	}
	return "v" + *s
}

func i32Key(i *int32) string {
	if i == nil {
		return "\x00"
	}
	return "v" + strconv.FormatInt(int64(*i), 10)
}

func i64Key(i *int64) string {
	if i == nil {
		return "\x00"
	}
	return "v" + strconv.FormatInt(*i, 10)
}

func decString(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}

func strp(s string) *string { return &s }

func i32p(i int32) *int32 { return &i }
