package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/yoanbernabeu/cinevec/config"
	"github.com/yoanbernabeu/cinevec/store"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export embedded movies to a vector database",
	Long: `Export the progress file to a vector database (Qdrant or pgvector).

Each movie becomes one point keyed by its catalog id, so re-exporting
updates existing points instead of duplicating them. The description
embedding is used as the search vector.`,
	RunE: runExport,
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	progressStore, err := openProgressStore(cfg)
	if err != nil {
		return err
	}

	state, err := progressStore.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load progress file: %w", err)
	}

	movies := store.FromState(state)
	if len(movies) == 0 {
		fmt.Println("Nothing to export: the progress file holds no embedded movies.")
		return nil
	}

	dimensions := len(movies[0].Vector)
	st, err := openVectorStore(ctx, cfg, dimensions)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.SaveMovies(ctx, movies); err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	count, err := st.Count(ctx)
	if err != nil {
		return fmt.Errorf("export succeeded but count failed: %w", err)
	}

	fmt.Printf("Exported %d movies to %s (%d points total)\n", len(movies), cfg.Store.Backend, count)
	return nil
}
