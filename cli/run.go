package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/yoanbernabeu/cinevec/catalog"
	"github.com/yoanbernabeu/cinevec/config"
	"github.com/yoanbernabeu/cinevec/pipeline"
	"github.com/yoanbernabeu/cinevec/provider"
	"github.com/yoanbernabeu/cinevec/wikipedia"
)

var (
	runCatalogPath   string
	runProvider      string
	runBatchSize     int
	runOutputFile    string
	runOutputFormat  string
	runWikipedia     bool
	runWikipediaOnly bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Embed a movie catalog",
	Long: `Embed every record of a CSV movie catalog.

Records already present in the output file are skipped, so rerunning
after a failure or interruption only embeds what is missing. Progress is
written after every batch; Ctrl-C saves and exits cleanly.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVarP(&runCatalogPath, "catalog", "f", "", "Path to the CSV catalog (required)")
	runCmd.Flags().StringVarP(&runProvider, "provider", "p", "", "Embedding provider (gemini, openai, ollama, cohere)")
	runCmd.Flags().IntVarP(&runBatchSize, "batch-size", "b", 0, "Records per provider call")
	runCmd.Flags().StringVarP(&runOutputFile, "output", "o", "", "Progress file path")
	runCmd.Flags().StringVar(&runOutputFormat, "format", "", "Progress file format (json or ndjson)")
	runCmd.Flags().BoolVarP(&runWikipedia, "wikipedia", "w", false, "Enrich records with Wikipedia summaries")
	runCmd.Flags().BoolVar(&runWikipediaOnly, "wikipedia-only", false, "Embed only records with a Wikipedia match")
	_ = runCmd.MarkFlagRequired("catalog")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfigWithRunFlags(cmd)
	if err != nil {
		return err
	}

	cat, err := catalog.Load(runCatalogPath)
	if err != nil {
		return err
	}
	fmt.Printf("Loaded %d records from %s\n", len(cat.Records), runCatalogPath)

	prov, err := buildProvider(cfg)
	if err != nil {
		return err
	}

	// Local providers can be checked before the first batch is spent on them.
	if pinger, ok := prov.(interface{ Ping(context.Context) error }); ok {
		if err := pinger.Ping(cmd.Context()); err != nil {
			return err
		}
	}

	progressStore, err := openProgressStore(cfg)
	if err != nil {
		return err
	}

	limiter := provider.NewIntervalLimiter(time.Duration(cfg.Pipeline.RateLimitMs) * time.Millisecond)
	usage := pipeline.NewUsageStats(prov.Name(), cfg.Embedding.Model, prov.CostPerMillionTokens())

	opts := []pipeline.Option{
		pipeline.WithBatchSize(cfg.Pipeline.BatchSize),
		pipeline.WithUsageFile(cfg.Output.UsageFile),
	}

	var cache *wikipedia.Cache
	if cfg.Wikipedia.Enabled {
		cache = wikipedia.NewCache(cfg.Wikipedia.CacheFile)
		if err := cache.Load(); err != nil {
			return err
		}
		opts = append(opts,
			pipeline.WithEnricher(wikipedia.NewClient(), cache),
			pipeline.WithWikipediaOnly(cfg.Wikipedia.Only),
			pipeline.WithEnrichDelay(time.Duration(cfg.Wikipedia.DelayMs)*time.Millisecond),
		)
	}

	p := pipeline.New(prov, limiter, progressStore, usage, opts...)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nInterrupted, saving progress...")
		if err := p.Checkpoint(); err != nil {
			log.Printf("Failed to save progress: %v", err)
			os.Exit(1)
		}
		os.Exit(0)
	}()

	stats, err := p.Run(ctx, cat.Records)
	if err != nil {
		return err
	}
	signal.Stop(sigCh)

	if cache != nil {
		if err := cache.Save(); err != nil {
			log.Printf("Warning: %v", err)
		}
	}

	summary := usage.Summary(time.Now())
	fmt.Printf("\nDone: %d embedded, %d skipped, %d batches in %s\n",
		stats.Embedded, stats.Skipped, stats.Batches, stats.Duration.Round(time.Millisecond))
	fmt.Printf("Tokens: %d (%.2f%% of monthly quota)", summary.TokensUsed, summary.QuotaUsedPercent)
	if summary.EstimatedUSD > 0 {
		fmt.Printf(", estimated cost $%.4f", summary.EstimatedUSD)
	}
	fmt.Println()
	fmt.Printf("Output: %s\n", progressStore.Path())

	return nil
}

func loadConfigWithRunFlags(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	if runProvider != "" {
		cfg.Embedding.Provider = runProvider
	}
	if runBatchSize > 0 {
		cfg.Pipeline.BatchSize = runBatchSize
	}
	if runOutputFile != "" {
		cfg.Output.File = runOutputFile
	}
	if runOutputFormat != "" {
		cfg.Output.Format = runOutputFormat
	}
	if cmd.Flags().Changed("wikipedia") {
		cfg.Wikipedia.Enabled = runWikipedia
	}
	if cmd.Flags().Changed("wikipedia-only") {
		cfg.Wikipedia.Only = runWikipediaOnly
		if runWikipediaOnly {
			cfg.Wikipedia.Enabled = true
		}
	}

	return cfg, nil
}
