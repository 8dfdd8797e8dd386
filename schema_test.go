package lake

import (
	"encoding/json"
	"testing"
)

func TestDecodeSong(t *testing.T) {
	raw := map[string]interface{}{
		"num_songs":        json.Number("1"),
		"artist_id":        "ARA",
		"artist_latitude":  json.Number("35.14968"),
		"artist_longitude": json.Number("-90.04892"),
		"artist_location":  "Memphis, TN",
		"artist_name":      "Band",
		"song_id":          "SOA",
		"title":            "T1",
		"duration":         json.Number("210.50"),
		"year":             json.Number("2003"),
	}
	rec := DecodeSong(raw)
	if rec.SongID == nil || *rec.SongID != "SOA" {
		t.Fatalf("wrong song_id: %v", rec.SongID)
	}
	if rec.Year == nil || *rec.Year != 2003 {
		t.Fatalf("wrong year: %v", rec.Year)
	}
	if rec.Duration == nil || rec.Duration.String() != "210.5" {
		t.Fatalf("wrong duration: %v", rec.Duration)
	}
	if rec.ArtistLongitude == nil || rec.ArtistLongitude.String() != "-90.04892" {
		t.Fatalf("wrong longitude: %v", rec.ArtistLongitude)
	}
}

func TestDecodeSongCoercesViolationsToNull(t *testing.T) {
	raw := map[string]interface{}{
		"song_id":   json.Number("42"),  // number where a string is declared
		"title":     "T1",               // fine
		"year":      "2003",             // string where an int is declared
		"duration":  "210.50",           // string where a decimal is declared
		"num_songs": json.Number("1.5"), // fractional where an int is declared
	}
	rec := DecodeSong(raw)
	if rec.SongID != nil {
		t.Fatalf("song_id should be null, got %v", *rec.SongID)
	}
	if rec.Title == nil || *rec.Title != "T1" {
		t.Fatalf("title should survive: %v", rec.Title)
	}
	if rec.Year != nil {
		t.Fatalf("year should be null, got %v", *rec.Year)
	}
	if rec.Duration != nil {
		t.Fatalf("duration should be null, got %v", rec.Duration)
	}
	if rec.NumSongs != nil {
		t.Fatalf("num_songs should be null, got %v", *rec.NumSongs)
	}
}

func TestDecodeEmptyRecordIsAllNull(t *testing.T) {
	rec := DecodeLog(map[string]interface{}{})
	if rec.TS != nil || rec.Page != nil || rec.UserID != nil || rec.Length != nil {
		t.Fatalf("expected all-null record: %+v", rec)
	}
}

func TestDecodeLog(t *testing.T) {
	raw := map[string]interface{}{
		"artist":       "Band",
		"song":         "T1",
		"length":       json.Number("210.50"),
		"level":        "free",
		"page":         "NextSong",
		"registration": json.Number("1540919166796"),
		"sessionId":    json.Number("1"),
		"ts":           json.Number("1541110148796"),
		"userId":       "10",
	}
	rec := DecodeLog(raw)
	if rec.Registration == nil || *rec.Registration != 1540919166796 {
		t.Fatalf("registration should fit in 64 bits: %v", rec.Registration)
	}
	if rec.TS == nil || *rec.TS != 1541110148796 {
		t.Fatalf("wrong ts: %v", rec.TS)
	}
	if rec.SessionID == nil || *rec.SessionID != 1 {
		t.Fatalf("wrong sessionId: %v", rec.SessionID)
	}
	if rec.UserID == nil || *rec.UserID != "10" {
		t.Fatalf("userId stays a string until the filter casts it: %v", rec.UserID)
	}
}

func TestSchemasCoverDecodedFields(t *testing.T) {
	if len(SongSchema()) != 10 {
		t.Fatalf("song schema has %d fields", len(SongSchema()))
	}
	if len(LogSchema()) != 18 {
		t.Fatalf("log schema has %d fields", len(LogSchema()))
	}
	for _, f := range LogSchema() {
		switch f.Name {
		case "registration", "ts":
			if f.Type != Int64 {
				t.Fatalf("%s should be 64-bit", f.Name)
			}
		case "length":
			if f.Type != Decimal {
				t.Fatalf("length should be decimal")
			}
		}
	}
}
