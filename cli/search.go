package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/yoanbernabeu/cinevec/config"
)

var (
	searchLimit int
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search exported movies with natural language",
	Long: `Search exported movies using a natural language query.

The search will:
- Vectorize the query using the configured embedding provider
- Run a cosine similarity search against the vector database
- Return the closest movies with title, year, director and score`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "Maximum number of results to return")
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := args[0]
	ctx := context.Background()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	prov, err := buildProvider(cfg)
	if err != nil {
		return err
	}

	result, err := prov.Embed(ctx, []string{query})
	if err != nil {
		return fmt.Errorf("failed to embed query: %w", err)
	}
	queryVector := result.Embeddings[0]

	st, err := openVectorStore(ctx, cfg, len(queryVector))
	if err != nil {
		return err
	}
	defer st.Close()

	results, err := st.Search(ctx, queryVector, searchLimit)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	fmt.Printf("Found %d results for: %q\n\n", len(results), query)

	for i, r := range results {
		label := r.Movie.Title
		if r.Movie.Year != "" {
			label += " (" + r.Movie.Year + ")"
		}
		fmt.Printf("%2d. %-45s score: %.4f\n", i+1, label, r.Score)
		if r.Movie.Director != "" {
			fmt.Printf("    Director: %s\n", r.Movie.Director)
		}
		if r.Movie.Description != "" {
			desc := r.Movie.Description
			if len(desc) > 120 {
				desc = desc[:117] + "..."
			}
			fmt.Printf("    %s\n", desc)
		}
		fmt.Println()
	}

	return nil
}
