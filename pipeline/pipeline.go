package pipeline

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/yoanbernabeu/cinevec/catalog"
	"github.com/yoanbernabeu/cinevec/progress"
	"github.com/yoanbernabeu/cinevec/provider"
	"github.com/yoanbernabeu/cinevec/wikipedia"
)

// Enricher looks up external context for a record. Implemented by
// wikipedia.Client; tests substitute fakes.
type Enricher interface {
	Enrich(ctx context.Context, title, year, director string) (*wikipedia.MatchResult, error)
}

// Pipeline drives catalog records through the provider in fixed-size
// batches, persisting after each one. A crash or kill mid-batch loses at
// most that batch.
type Pipeline struct {
	provider  provider.Provider
	limiter   *provider.IntervalLimiter
	store     *progress.Store
	usage     *UsageStats
	usagePath string

	batchSize     int
	enricher      Enricher
	cache         *wikipedia.Cache
	wikipediaOnly bool
	enrichDelay   time.Duration

	mu    sync.Mutex
	state *progress.State
}

type Option func(*Pipeline)

// WithBatchSize overrides the default batch size. Values below 1 keep
// the default.
func WithBatchSize(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

// WithEnricher enables Wikipedia enrichment, consulting cache before the
// live lookup.
func WithEnricher(e Enricher, cache *wikipedia.Cache) Option {
	return func(p *Pipeline) {
		p.enricher = e
		p.cache = cache
	}
}

// WithWikipediaOnly embeds only records whose enrichment lookup matched.
func WithWikipediaOnly(on bool) Option {
	return func(p *Pipeline) {
		p.wikipediaOnly = on
	}
}

// WithEnrichDelay spaces live enrichment lookups. Cache hits skip the
// delay.
func WithEnrichDelay(d time.Duration) Option {
	return func(p *Pipeline) {
		p.enrichDelay = d
	}
}

// WithUsageFile persists the usage summary at every checkpoint.
func WithUsageFile(path string) Option {
	return func(p *Pipeline) {
		p.usagePath = path
	}
}

func New(prov provider.Provider, limiter *provider.IntervalLimiter, store *progress.Store, usage *UsageStats, opts ...Option) *Pipeline {
	p := &Pipeline{
		provider:  prov,
		limiter:   limiter,
		store:     store,
		usage:     usage,
		batchSize: DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// RunStats summarizes one Run call.
type RunStats struct {
	Embedded int
	Skipped  int
	Batches  int
	Duration time.Duration
}

// Run embeds every catalog record not already present in the progress
// file. Progress is saved after each batch; on a batch failure the
// pre-batch state is persisted and the error returned, so a rerun picks
// up exactly where this one stopped.
func (p *Pipeline) Run(ctx context.Context, records []catalog.Record) (*RunStats, error) {
	start := time.Now()

	state, err := p.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	p.setState(state)

	pending, skipped := p.filterPending(records, state.ProcessedIDs())
	if skipped > 0 {
		log.Printf("Resuming: %d of %d records already embedded", skipped, len(records))
	}

	stats := &RunStats{Skipped: skipped}
	totalBatches := (len(pending) + p.batchSize - 1) / p.batchSize

	for batchStart := 0; batchStart < len(pending); batchStart += p.batchSize {
		end := batchStart + p.batchSize
		if end > len(pending) {
			end = len(pending)
		}
		batch := pending[batchStart:end]
		batchNum := batchStart/p.batchSize + 1

		plans, dropped, err := p.preparePlans(ctx, batch)
		if err != nil {
			p.persistOnError()
			return stats, err
		}
		stats.Skipped += dropped

		texts := flattenTexts(plans)
		if len(texts) == 0 {
			continue
		}

		if err := p.limiter.Wait(ctx); err != nil {
			p.persistOnError()
			return stats, err
		}

		result, err := p.provider.Embed(ctx, texts)
		if err != nil {
			p.usage.RecordError()
			p.persistOnError()
			return stats, fmt.Errorf("batch %d/%d failed: %w", batchNum, totalBatches, err)
		}

		meta := newMeta(p.provider.Name(), result.Model, result.Dimensions, time.Now().UTC())
		enriched, err := zipEmbeddings(plans, result.Embeddings, meta)
		if err != nil {
			p.usage.RecordError()
			p.persistOnError()
			return stats, fmt.Errorf("batch %d/%d failed: %w", batchNum, totalBatches, err)
		}

		p.mu.Lock()
		state.Embeddings = append(state.Embeddings, enriched...)
		state.LastProcessedIndex = len(state.Embeddings)
		saveErr := p.store.Save(state)
		p.mu.Unlock()
		if saveErr != nil {
			p.usage.RecordError()
			if err := p.usage.WriteFile(p.usagePath); err != nil {
				log.Printf("Warning: %v", err)
			}
			return stats, saveErr
		}

		p.usage.RecordBatch(len(texts), result.Usage.TotalTokens)
		if err := p.usage.WriteFile(p.usagePath); err != nil {
			log.Printf("Warning: %v", err)
		}

		stats.Embedded += len(enriched)
		stats.Batches++
		log.Printf("Batch %d/%d: embedded %d records (%d texts, %d total)",
			batchNum, totalBatches, len(enriched), len(texts), state.LastProcessedIndex)
	}

	stats.Duration = time.Since(start)
	return stats, nil
}

// Checkpoint persists the current state and usage summary. Wired to
// SIGINT/SIGTERM so an interrupted run resumes cleanly. The lock is held
// across the save: Run appends to the state under the same lock, and the
// encoder must never observe a batch mid-append.
func (p *Pipeline) Checkpoint() error {
	p.mu.Lock()
	var saveErr error
	if p.state != nil {
		saveErr = p.store.Save(p.state)
	}
	p.mu.Unlock()
	if saveErr != nil {
		return saveErr
	}
	if p.cache != nil {
		if err := p.cache.Save(); err != nil {
			return err
		}
	}
	return p.usage.WriteFile(p.usagePath)
}

func (p *Pipeline) setState(state *progress.State) {
	p.mu.Lock()
	p.state = state
	p.mu.Unlock()
}

// persistOnError saves whatever completed before the failure so only the
// failing batch is lost.
func (p *Pipeline) persistOnError() {
	if err := p.Checkpoint(); err != nil {
		log.Printf("Warning: failed to persist progress after error: %v", err)
	}
}

func (p *Pipeline) filterPending(records []catalog.Record, processed map[string]bool) ([]catalog.Record, int) {
	pending := make([]catalog.Record, 0, len(records))
	skipped := 0
	for _, rec := range records {
		if processed[rec.ID()] {
			skipped++
			continue
		}
		pending = append(pending, rec)
	}
	return pending, skipped
}

// preparePlans builds the text plan for each record of a batch, running
// enrichment lookups as needed. In wikipedia-only mode, records without a
// match are dropped from the batch; their count is returned.
func (p *Pipeline) preparePlans(ctx context.Context, batch []catalog.Record) ([]recordPlan, int, error) {
	plans := make([]recordPlan, 0, len(batch))
	dropped := 0

	for _, rec := range batch {
		match, err := p.enrich(ctx, rec)
		if err != nil {
			return nil, 0, err
		}

		if p.wikipediaOnly && (match == nil || !match.Found) {
			dropped++
			continue
		}

		plans = append(plans, buildPlan(rec, match, p.provider.MaxTokens()))
	}

	return plans, dropped, nil
}

// enrich resolves Wikipedia context for one record, cache first. Lookup
// failures are logged and treated as no match so a flaky wiki endpoint
// cannot stall the embedding run. Context cancellation still aborts.
func (p *Pipeline) enrich(ctx context.Context, rec catalog.Record) (*wikipedia.MatchResult, error) {
	if p.enricher == nil {
		return nil, nil
	}

	title := rec.Title()
	year := rec.Year()
	director := rec.Director()

	if p.cache != nil {
		if match, ok := p.cache.Get(wikipedia.CacheKey(title, year, director)); ok {
			return match, nil
		}
	}

	if p.enrichDelay > 0 {
		select {
		case <-time.After(p.enrichDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	match, err := p.enricher.Enrich(ctx, title, year, director)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Printf("Wikipedia lookup failed for %q, continuing without enrichment: %v", title, err)
		match = &wikipedia.MatchResult{Found: false, Reason: "lookup error"}
	}

	if p.cache != nil {
		p.cache.Put(wikipedia.CacheKey(title, year, director), match)
	}

	return match, nil
}
