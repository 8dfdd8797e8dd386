package lake

import (
	"encoding/json"
	"strconv"

	"github.com/shopspring/decimal"
)

// Type is the declared type of a raw record field.
type Type int

const (
	String Type = iota
	Int32
	Int64
	// Decimal is used for physical measurements (latitude, longitude, song
	// duration, event length) so that the duration=length join compares
	// exact values rather than rounded floats.
	Decimal
)

// Field is one column of a raw record schema. Every field is nullable: a
// value of the wrong type is coerced to null, never rejected, so the column
// set and types are identical across runs regardless of how the corpus
// evolves.
type Field struct {
	Name string
	Type Type
}

// SongSchema is the declared shape of the raw song corpus.
func SongSchema() []Field {
	return []Field{
		{"num_songs", Int32},
		{"artist_id", String},
		{"artist_latitude", Decimal},
		{"artist_longitude", Decimal},
		{"artist_location", String},
		{"artist_name", String},
		{"song_id", String},
		{"title", String},
		{"duration", Decimal},
		{"year", Int32},
	}
}

// LogSchema is the declared shape of the raw listening-log corpus. The
// registration epoch can exceed 32-bit range, as can ts, so both are 64-bit.
func LogSchema() []Field {
	return []Field{
		{"artist", String},
		{"auth", String},
		{"firstName", String},
		{"gender", String},
		{"itemInSession", Int32},
		{"lastName", String},
		{"length", Decimal},
		{"level", String},
		{"location", String},
		{"method", String},
		{"page", String},
		{"registration", Int64},
		{"sessionId", Int32},
		{"song", String},
		{"status", Int32},
		{"ts", Int64},
		{"userAgent", String},
		{"userId", String},
	}
}

// SongRecord is one raw song record. Nil means the field was absent or
// violated its declared type.
type SongRecord struct {
	NumSongs        *int32
	ArtistID        *string
	ArtistLatitude  *decimal.Decimal
	ArtistLongitude *decimal.Decimal
	ArtistLocation  *string
	ArtistName      *string
	SongID          *string
	Title           *string
	Duration        *decimal.Decimal
	Year            *int32
}

// LogRecord is one raw listening-log record.
type LogRecord struct {
	Artist        *string
	Auth          *string
	FirstName     *string
	Gender        *string
	ItemInSession *int32
	LastName      *string
	Length        *decimal.Decimal
	Level         *string
	Location      *string
	Method        *string
	Page          *string
	Registration  *int64
	SessionID     *int32
	Song          *string
	Status        *int32
	TS            *int64
	UserAgent     *string
	UserID        *string
}

// DecodeSong coerces a raw json object into a SongRecord, nulling any field
// that does not match the song schema.
func DecodeSong(raw map[string]interface{}) SongRecord {
	return SongRecord{
		NumSongs:        toInt32(raw["num_songs"]),
		ArtistID:        toString(raw["artist_id"]),
		ArtistLatitude:  toDecimal(raw["artist_latitude"]),
		ArtistLongitude: toDecimal(raw["artist_longitude"]),
		ArtistLocation:  toString(raw["artist_location"]),
		ArtistName:      toString(raw["artist_name"]),
		SongID:          toString(raw["song_id"]),
		Title:           toString(raw["title"]),
		Duration:        toDecimal(raw["duration"]),
		Year:            toInt32(raw["year"]),
	}
}

// DecodeLog coerces a raw json object into a LogRecord under the same
// per-field null policy as DecodeSong.
func DecodeLog(raw map[string]interface{}) LogRecord {
	return LogRecord{
		Artist:        toString(raw["artist"]),
		Auth:          toString(raw["auth"]),
		FirstName:     toString(raw["firstName"]),
		Gender:        toString(raw["gender"]),
		ItemInSession: toInt32(raw["itemInSession"]),
		LastName:      toString(raw["lastName"]),
		Length:        toDecimal(raw["length"]),
		Level:         toString(raw["level"]),
		Location:      toString(raw["location"]),
		Method:        toString(raw["method"]),
		Page:          toString(raw["page"]),
		Registration:  toInt64(raw["registration"]),
		SessionID:     toInt32(raw["sessionId"]),
		Song:          toString(raw["song"]),
		Status:        toInt32(raw["status"]),
		TS:            toInt64(raw["ts"]),
		UserAgent:     toString(raw["userAgent"]),
		UserID:        toString(raw["userId"]),
	}
}

func toString(v interface{}) *string {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	return &s
}

func toInt32(v interface{}) *int32 {
	n, ok := v.(json.Number)
	if !ok {
		return nil
	}
	i, err := strconv.ParseInt(string(n), 10, 32)
	if err != nil {
		return nil
	}
	i32 := int32(i)
	return &i32
}

func toInt64(v interface{}) *int64 {
	n, ok := v.(json.Number)
	if !ok {
		return nil
	}
	i, err := strconv.ParseInt(string(n), 10, 64)
	if err != nil {
		return nil
	}
	return &i
}

func toDecimal(v interface{}) *decimal.Decimal {
	n, ok := v.(json.Number)
	if !ok {
		return nil
	}
	d, err := decimal.NewFromString(string(n))
	if err != nil {
		return nil
	}
	return &d
}
