package store

import (
	"reflect"
	"testing"
	"time"
)

// TestParseHost tests the parseHost function with various endpoint formats
func TestParseHost(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"http scheme", "http://localhost", "localhost"},
		{"https scheme", "https://qdrant.io", "qdrant.io"},
		{"with port", "localhost:6334", "localhost"},
		{"http with port", "http://localhost:6334", "localhost"},
		{"with path", "http://localhost/v1", "localhost"},
		{"IP address", "192.168.1.1", "192.168.1.1"},
		{"complex URL", "https://qdrant-cluster.qdrant.io:6334/v1/collections", "qdrant-cluster.qdrant.io"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := parseHost(tt.input)
			if result != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, result)
			}
		})
	}
}

func TestPointID_Stable(t *testing.T) {
	a := pointID("movie-42")
	b := pointID("movie-42")
	c := pointID("movie-43")

	if a != b {
		t.Error("same catalog id must always map to the same point id")
	}
	if a == c {
		t.Error("different catalog ids must map to different point ids")
	}
}

func TestMoviePayloadRoundTrip(t *testing.T) {
	movie := Movie{
		ID:          "42",
		Title:       "Stalker",
		Description: "a guide leads two men into the Zone",
		Year:        "1979",
		Director:    "Andrei Tarkovsky",
		Model:       "gemini-embedding-001",
		UpdatedAt:   time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}

	payload, err := buildMoviePayload(movie)
	if err != nil {
		t.Fatalf("buildMoviePayload returned error: %v", err)
	}

	for _, field := range moviePayloadFields {
		if _, ok := payload[field]; !ok {
			t.Errorf("payload missing field %q", field)
		}
	}

	parsed := parseMoviePayload(payload)
	if !reflect.DeepEqual(parsed, movie) {
		t.Errorf("round trip mismatch:\ngot  %+v\nwant %+v", parsed, movie)
	}
}
