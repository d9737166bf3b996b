package store

import (
	"context"
	"time"

	"github.com/yoanbernabeu/cinevec/progress"
)

// Movie is the exportable view of an embedded catalog record. Vector is
// the record's description embedding (title embedding when the
// description is missing), which is what semantic search queries against.
type Movie struct {
	ID          string
	Title       string
	Description string
	Year        string
	Director    string
	Vector      []float32
	Model       string
	UpdatedAt   time.Time
}

// SearchResult pairs a movie with its similarity score.
type SearchResult struct {
	Movie Movie
	Score float32
}

// VectorStore is a remote vector database holding exported movies.
type VectorStore interface {
	SaveMovies(ctx context.Context, movies []Movie) error
	Search(ctx context.Context, queryVector []float32, limit int) ([]SearchResult, error)
	Count(ctx context.Context) (int, error)
	Close() error
}

// FromState converts persisted pipeline progress into exportable movies.
// Records without any usable vector are dropped.
func FromState(state *progress.State) []Movie {
	movies := make([]Movie, 0, len(state.Embeddings))
	for _, rec := range state.Embeddings {
		vector := rec.DescriptionEmbedding
		if len(vector) == 0 {
			vector = rec.TitleEmbedding
		}
		if len(vector) == 0 {
			continue
		}

		movies = append(movies, Movie{
			ID:          rec.ID(),
			Title:       rec.Record.Title(),
			Description: rec.Record.Description(),
			Year:        rec.Record.Year(),
			Director:    rec.Record.Director(),
			Vector:      vector,
			Model:       rec.Meta.Model,
			UpdatedAt:   rec.Meta.GeneratedAt,
		})
	}
	return movies
}
