package cli

import (
	"context"
	"fmt"

	"github.com/yoanbernabeu/cinevec/config"
	"github.com/yoanbernabeu/cinevec/progress"
	"github.com/yoanbernabeu/cinevec/provider"
	"github.com/yoanbernabeu/cinevec/store"
)

func buildProvider(cfg *config.Config) (provider.Provider, error) {
	return provider.New(provider.Settings{
		Name:       cfg.Embedding.Provider,
		Endpoint:   cfg.Embedding.Endpoint,
		Model:      cfg.Embedding.Model,
		APIKey:     cfg.Embedding.APIKey,
		Dimensions: cfg.Embedding.Dimensions,
		TaskType:   cfg.Embedding.TaskType,
	})
}

func openProgressStore(cfg *config.Config) (*progress.Store, error) {
	format, err := progress.ParseFormat(cfg.Output.Format)
	if err != nil {
		return nil, err
	}

	var opts []progress.StoreOption
	snapshot := &progress.Snapshot{
		Endpoint:  cfg.Snapshot.Endpoint,
		Bucket:    cfg.Snapshot.Bucket,
		Object:    cfg.Snapshot.Object,
		AccessKey: cfg.Snapshot.AccessKey,
		SecretKey: cfg.Snapshot.SecretKey,
		UseSSL:    cfg.Snapshot.UseSSL,
	}
	if snapshot.Configured() {
		opts = append(opts, progress.WithSnapshot(snapshot))
	}

	return progress.NewStore(cfg.Output.File, format, opts...), nil
}

func openVectorStore(ctx context.Context, cfg *config.Config, dimensions int) (store.VectorStore, error) {
	switch cfg.Store.Backend {
	case "qdrant":
		st, err := store.NewQdrantStore(ctx, cfg.Store.Qdrant.Endpoint, cfg.Store.Qdrant.Port,
			cfg.Store.Qdrant.UseTLS, cfg.Store.Qdrant.Collection, cfg.Store.Qdrant.APIKey, dimensions)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to qdrant: %w", err)
		}
		return st, nil
	case "postgres":
		st, err := store.NewPostgresStore(ctx, cfg.Store.Postgres.DSN, dimensions)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		return st, nil
	case "":
		return nil, fmt.Errorf("no storage backend configured (set store.backend or QDRANT_ENDPOINT / POSTGRES_DSN)")
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Store.Backend)
	}
}
