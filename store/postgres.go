package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

type PostgresStore struct {
	pool       *pgxpool.Pool
	dimensions int
}

func NewPostgresStore(ctx context.Context, dsn string, vectorDimensions int) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	store := &PostgresStore{
		pool:       pool,
		dimensions: vectorDimensions,
	}

	if err := store.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return store, nil
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	queries := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS movies (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			description TEXT NOT NULL,
			year TEXT NOT NULL DEFAULT '',
			director TEXT NOT NULL DEFAULT '',
			vector vector(%d),
			model TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`, s.dimensions),
		`CREATE INDEX IF NOT EXISTS idx_movies_title ON movies(title)`,
		buildEnsureVectorSQL(s.dimensions),
	}

	for _, query := range queries {
		if _, err := s.pool.Exec(ctx, query); err != nil {
			return fmt.Errorf("failed to execute schema query: %w", err)
		}
	}

	return nil
}

func (s *PostgresStore) SaveMovies(ctx context.Context, movies []Movie) error {
	batch := &pgx.Batch{}

	for _, movie := range movies {
		vec := pgvector.NewVector(movie.Vector)
		batch.Queue(
			`INSERT INTO movies (id, title, description, year, director, vector, model, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (id) DO UPDATE SET
				title = EXCLUDED.title,
				description = EXCLUDED.description,
				year = EXCLUDED.year,
				director = EXCLUDED.director,
				vector = EXCLUDED.vector,
				model = EXCLUDED.model,
				updated_at = EXCLUDED.updated_at`,
			movie.ID, movie.Title, movie.Description, movie.Year, movie.Director,
			vec, movie.Model, movie.UpdatedAt,
		)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range movies {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to save movie: %w", err)
		}
	}

	return nil
}

func (s *PostgresStore) Search(ctx context.Context, queryVector []float32, limit int) ([]SearchResult, error) {
	vec := pgvector.NewVector(queryVector)

	rows, err := s.pool.Query(ctx,
		`SELECT id, title, description, year, director, model, updated_at,
			1 - (vector <=> $1) as score
		FROM movies
		ORDER BY vector <=> $1
		LIMIT $2`,
		vec, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var movie Movie
		var score float32

		if err := rows.Scan(
			&movie.ID, &movie.Title, &movie.Description, &movie.Year,
			&movie.Director, &movie.Model, &movie.UpdatedAt, &score,
		); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		results = append(results, SearchResult{
			Movie: movie,
			Score: score,
		})
	}

	return results, rows.Err()
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM movies`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count movies: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// buildEnsureVectorSQL returns a SQL block that alters the "movies.vector"
// column only if its current dimension differs from the specified one.
func buildEnsureVectorSQL(dim int) string {
	return fmt.Sprintf(`
DO $$
DECLARE
	current_length int;
BEGIN
	SELECT atttypmod - 4
	INTO current_length
	FROM pg_attribute
	WHERE attrelid = 'movies'::regclass
	  AND attname = 'vector';

	IF current_length IS DISTINCT FROM %d THEN
		RAISE NOTICE 'Altering vector size from %% to %d', current_length;
		EXECUTE 'ALTER TABLE movies ALTER COLUMN vector TYPE vector(%d)';
	ELSE
		RAISE NOTICE 'Vector size already %d, skipping ALTER';
	END IF;
END$$;
`, dim, dim, dim, dim)
}
