package learn

import (
	"context"
	"log/slog"
	"regexp"

	"github.com/moamoa/moa-engine/internal/model"
	"github.com/moamoa/moa-engine/internal/service"
)

// Extraction is a sender name pulled out of raw text by one learned pattern.
type Extraction struct {
	Pattern *model.LearnedPattern
	Name    string
}

// Applier runs a goal's learned patterns against raw text and keeps each
// pattern's hit/miss counters honest.
type Applier struct {
	storage service.Storage
}

// NewApplier creates an applier over the given store.
func NewApplier(storage service.Storage) *Applier {
	return &Applier{storage: storage}
}

// ExtractSender applies the goal's active patterns in order and returns the
// first sender name one of them captures. Patterns that fail to compile or
// capture nothing get a miss recorded and the cascade moves on.
func (a *Applier) ExtractSender(ctx context.Context, goalID, text string) (*Extraction, error) {
	patterns, err := a.storage.GetActivePatterns(ctx, goalID)
	if err != nil {
		return nil, err
	}

	for i := range patterns {
		pattern := &patterns[i]

		re, err := regexp.Compile(pattern.SenderPattern)
		if err != nil {
			slog.Warn("learned pattern does not compile",
				"pattern_id", pattern.ID, "error", err)
			a.recordMiss(ctx, pattern)
			continue
		}

		m := re.FindStringSubmatch(text)
		if m == nil || len(m) < 2 || m[1] == "" {
			a.recordMiss(ctx, pattern)
			continue
		}

		return &Extraction{Pattern: pattern, Name: m[1]}, nil
	}

	return nil, nil
}

// RecordOutcome updates the pattern's counters after the member matcher has
// judged the extracted name: anything other than a NoMatch counts as a hit.
func (a *Applier) RecordOutcome(ctx context.Context, pattern *model.LearnedPattern, resolved bool) {
	if resolved {
		if err := a.storage.RecordPatternHit(ctx, pattern.ID); err != nil {
			slog.Warn("failed to record pattern hit", "pattern_id", pattern.ID, "error", err)
		}
		return
	}
	a.recordMiss(ctx, pattern)
}

// recordMiss bumps the fail counter and deactivates the pattern once its
// miss rate crosses the reliability line.
func (a *Applier) recordMiss(ctx context.Context, pattern *model.LearnedPattern) {
	if err := a.storage.RecordPatternMiss(ctx, pattern.ID); err != nil {
		slog.Warn("failed to record pattern miss", "pattern_id", pattern.ID, "error", err)
		return
	}

	fresh, err := a.storage.GetLearnedPattern(ctx, pattern.ID)
	if err != nil {
		slog.Warn("failed to reload pattern after miss", "pattern_id", pattern.ID, "error", err)
		return
	}

	if fresh.Unreliable() {
		if err := a.storage.DeactivatePattern(ctx, fresh.ID); err != nil {
			slog.Warn("failed to deactivate pattern", "pattern_id", fresh.ID, "error", err)
			return
		}
		slog.Info("deactivated unreliable pattern",
			"pattern_id", fresh.ID,
			"success_count", fresh.SuccessCount,
			"fail_count", fresh.FailCount)
	}
}
