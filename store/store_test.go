package store

import (
	"testing"
	"time"

	"github.com/yoanbernabeu/cinevec/catalog"
	"github.com/yoanbernabeu/cinevec/progress"
)

func TestFromState(t *testing.T) {
	meta := progress.Meta{
		Provider:    "gemini",
		Model:       "gemini-embedding-001",
		Dimensions:  2,
		GeneratedAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}

	state := &progress.State{
		Embeddings: []progress.EnrichedRecord{
			{
				Record:               catalog.Record{"id": "1", "title": "Alien", "description": "crew vs lifeform", "year": "1979", "director": "Ridley Scott"},
				TitleEmbedding:       []float32{0, 0},
				DescriptionEmbedding: []float32{1, 1},
				Meta:                 meta,
			},
			{
				// No description vector, falls back to the title vector.
				Record:         catalog.Record{"id": "2", "title": "Heat", "description": ""},
				TitleEmbedding: []float32{2, 2},
				Meta:           meta,
			},
			{
				// No vectors at all, dropped.
				Record: catalog.Record{"id": "3", "title": "Ran"},
				Meta:   meta,
			},
		},
		LastProcessedIndex: 3,
	}

	movies := FromState(state)

	if len(movies) != 2 {
		t.Fatalf("expected 2 exportable movies, got %d", len(movies))
	}

	if movies[0].ID != "1" || movies[0].Vector[0] != 1 {
		t.Errorf("movie 1 should carry the description vector: %+v", movies[0])
	}
	if movies[0].Title != "Alien" || movies[0].Year != "1979" || movies[0].Director != "Ridley Scott" {
		t.Errorf("movie 1 lost catalog fields: %+v", movies[0])
	}
	if movies[0].Model != "gemini-embedding-001" {
		t.Errorf("movie 1 lost model: %+v", movies[0])
	}

	if movies[1].ID != "2" || movies[1].Vector[0] != 2 {
		t.Errorf("movie 2 should fall back to the title vector: %+v", movies[1])
	}
}
