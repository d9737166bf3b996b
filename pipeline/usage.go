package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MonthlyTokenQuota is the free-tier allowance usage is reported against.
const MonthlyTokenQuota = 1_000_000

// OverageCostPerMillionUSD prices tokens beyond the monthly quota.
const OverageCostPerMillionUSD = 0.15

// UsageStats accumulates per-run accounting. Counters are advisory: token
// totals come from provider responses when available, character estimates
// otherwise, so they track spend but are not billing-grade.
type UsageStats struct {
	mu sync.Mutex

	RunID        string    `json:"run_id"`
	Provider     string    `json:"provider"`
	Model        string    `json:"model"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at,omitempty"`
	Batches      int       `json:"batches"`
	TextsSent    int       `json:"texts_sent"`
	TokensUsed   int       `json:"tokens_used"`
	Errors       int       `json:"errors"`
	CostPerMUSD  float64   `json:"cost_per_million_tokens_usd"`
	EstimatedUSD float64   `json:"estimated_cost_usd"`
}

// UsageSummary is the derived view written to the usage log and printed
// at the end of a run.
type UsageSummary struct {
	RunID            string  `json:"run_id"`
	Provider         string  `json:"provider"`
	Model            string  `json:"model"`
	StartedAt        string  `json:"started_at"`
	FinishedAt       string  `json:"finished_at"`
	Duration         string  `json:"duration"`
	Batches          int     `json:"batches"`
	TextsSent        int     `json:"texts_sent"`
	TokensUsed       int     `json:"tokens_used"`
	Errors           int     `json:"errors"`
	QuotaUsedPercent float64 `json:"quota_used_percent"`
	OverageUSD       float64 `json:"estimated_overage_usd"`
	EstimatedUSD     float64 `json:"estimated_cost_usd"`
}

// NewUsageStats starts a fresh accounting window with a unique run ID.
func NewUsageStats(providerName, model string, costPerMillion float64) *UsageStats {
	return &UsageStats{
		RunID:       uuid.NewString(),
		Provider:    providerName,
		Model:       model,
		StartedAt:   time.Now(),
		CostPerMUSD: costPerMillion,
	}
}

// RecordBatch accounts one successful provider call.
func (u *UsageStats) RecordBatch(texts, tokens int) {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.Batches++
	u.TextsSent += texts
	u.TokensUsed += tokens
	u.EstimatedUSD = float64(u.TokensUsed) / 1_000_000 * u.CostPerMUSD
}

// RecordError accounts one failed provider call.
func (u *UsageStats) RecordError() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.Errors++
}

// Summary derives the reportable view as of now.
func (u *UsageStats) Summary(now time.Time) UsageSummary {
	u.mu.Lock()
	defer u.mu.Unlock()

	finished := u.FinishedAt
	if finished.IsZero() {
		finished = now
	}

	overageTokens := u.TokensUsed - MonthlyTokenQuota
	if overageTokens < 0 {
		overageTokens = 0
	}

	return UsageSummary{
		RunID:            u.RunID,
		Provider:         u.Provider,
		Model:            u.Model,
		StartedAt:        u.StartedAt.Format(time.RFC3339),
		FinishedAt:       finished.Format(time.RFC3339),
		Duration:         finished.Sub(u.StartedAt).Round(time.Millisecond).String(),
		Batches:          u.Batches,
		TextsSent:        u.TextsSent,
		TokensUsed:       u.TokensUsed,
		Errors:           u.Errors,
		QuotaUsedPercent: float64(u.TokensUsed) / MonthlyTokenQuota * 100,
		OverageUSD:       float64(overageTokens) / 1_000_000 * OverageCostPerMillionUSD,
		EstimatedUSD:     u.EstimatedUSD,
	}
}

// WriteFile persists the current summary. Called after every checkpoint so
// the usage log survives interruption alongside the progress file.
func (u *UsageStats) WriteFile(path string) error {
	if path == "" {
		return nil
	}

	data, err := json.MarshalIndent(u.Summary(time.Now()), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal usage summary: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write usage file: %w", err)
	}

	return nil
}
