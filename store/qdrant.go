package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

type QdrantStore struct {
	client         *qdrant.Client
	collectionName string
	dimensions     int
}

func parseHost(endpoint string) string {
	host := strings.TrimPrefix(endpoint, "http://")
	host = strings.TrimPrefix(host, "https://")

	if idx := strings.Index(host, ":"); idx != -1 {
		host = host[:idx]
	}

	if idx := strings.Index(host, "/"); idx != -1 {
		host = host[:idx]
	}

	return host
}

func NewQdrantStore(ctx context.Context, endpoint string, port int, useTLS bool, collection, apiKey string, dimensions int) (*QdrantStore, error) {
	host := parseHost(endpoint)

	if port <= 0 {
		port = 6334
	}
	if collection == "" {
		collection = "movies"
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		UseTLS: useTLS,
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Qdrant client: %w", err)
	}

	store := &QdrantStore{
		client:         client,
		collectionName: collection,
		dimensions:     dimensions,
	}

	if err := store.ensureCollection(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

func (s *QdrantStore) ensureCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.collectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}

	if !exists {
		if s.dimensions <= 0 {
			return fmt.Errorf("dimensions must be positive, got: %d", s.dimensions)
		}
		err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: s.collectionName,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(s.dimensions),
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return fmt.Errorf("failed to create collection: %w", err)
		}
	}

	return nil
}

// pointID derives a stable UUID from the catalog identifier, so
// re-exports overwrite instead of duplicating.
func pointID(movieID string) uuid.UUID {
	namespace := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	return uuid.NewSHA1(namespace, []byte(movieID))
}

func (s *QdrantStore) SaveMovies(ctx context.Context, movies []Movie) error {
	if len(movies) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, 0, len(movies))
	for _, movie := range movies {
		payload, err := buildMoviePayload(movie)
		if err != nil {
			return fmt.Errorf("failed to build payload: %w", err)
		}

		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewID(pointID(movie.ID).String()),
			Vectors: qdrant.NewVectors(movie.Vector...),
			Payload: payload,
		})
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collectionName,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert points: %w", err)
	}

	return nil
}

var moviePayloadFields = []string{"id", "title", "description", "year", "director", "model", "updated_at"}

func buildMoviePayload(movie Movie) (map[string]*qdrant.Value, error) {
	fields := map[string]any{
		"id":          movie.ID,
		"title":       movie.Title,
		"description": movie.Description,
		"year":        movie.Year,
		"director":    movie.Director,
		"model":       movie.Model,
		"updated_at":  movie.UpdatedAt.Format(time.RFC3339),
	}

	payload := make(map[string]*qdrant.Value, len(fields))
	for name, field := range fields {
		val, err := qdrant.NewValue(field)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s value: %w", name, err)
		}
		payload[name] = val
	}

	return payload, nil
}

func parseMoviePayload(payload map[string]*qdrant.Value) Movie {
	movie := Movie{}
	if val, ok := payload["id"]; ok {
		movie.ID = val.GetStringValue()
	}
	if val, ok := payload["title"]; ok {
		movie.Title = val.GetStringValue()
	}
	if val, ok := payload["description"]; ok {
		movie.Description = val.GetStringValue()
	}
	if val, ok := payload["year"]; ok {
		movie.Year = val.GetStringValue()
	}
	if val, ok := payload["director"]; ok {
		movie.Director = val.GetStringValue()
	}
	if val, ok := payload["model"]; ok {
		movie.Model = val.GetStringValue()
	}
	if val, ok := payload["updated_at"]; ok {
		t, err := time.Parse(time.RFC3339, val.GetStringValue())
		if err == nil {
			movie.UpdatedAt = t
		}
	}

	return movie
}

func (s *QdrantStore) Search(ctx context.Context, queryVector []float32, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got: %d", limit)
	}
	searchResult, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collectionName,
		Query:          qdrant.NewQuery(queryVector...),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayloadInclude(moviePayloadFields...),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	results := make([]SearchResult, 0, len(searchResult))
	for _, point := range searchResult {
		results = append(results, SearchResult{
			Movie: parseMoviePayload(point.Payload),
			Score: point.Score,
		})
	}

	return results, nil
}

func (s *QdrantStore) Count(ctx context.Context) (int, error) {
	collectionInfo, err := s.client.GetCollectionInfo(ctx, s.collectionName)
	if err != nil {
		return 0, fmt.Errorf("failed to get collection info: %w", err)
	}

	pointsCount := *collectionInfo.PointsCount
	if pointsCount > uint64(^uint(0)>>1) {
		return 0, fmt.Errorf("points count %d exceeds maximum int value", pointsCount)
	}

	return int(pointsCount), nil
}

func (s *QdrantStore) Close() error {
	return nil
}
