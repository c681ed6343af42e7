// Package dedup decides whether two near-simultaneous notifications describe
// the same real-world event, and what to do about it.
package dedup

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/moamoa/moa-engine/internal/bank"
	"github.com/moamoa/moa-engine/internal/common"
	"github.com/moamoa/moa-engine/internal/model"
	"github.com/moamoa/moa-engine/internal/service"
)

// Window is the interval within which two same-amount events for one user
// are considered potentially duplicate. A business rule, not a liveness guard.
const Window = 2 * time.Minute

const stripeCount = 64

// storeRetry bounds retries against the external store. Failures after the
// last attempt surface to the caller instead of being swallowed.
var storeRetry = service.RetryOptions{
	MaxAttempts:  3,
	InitialDelay: 100 * time.Millisecond,
	MaxDelay:     2 * time.Second,
	Multiplier:   2.0,
}

type cacheEntry struct {
	seenAt time.Time
	txn    *model.Transaction
}

// stripe holds one shard of the cache. Striping serializes check-then-act per
// key without a global lock across keys.
type stripe struct {
	mu      sync.Mutex
	entries map[string]*cacheEntry
}

// Detector is the duplicate detector: a short-lived in-memory cache plus the
// persisted rule table. Construct one per process and share it.
type Detector struct {
	storage  service.Storage
	registry *bank.Registry
	now      func() time.Time
	stripes  [stripeCount]*stripe
	window   time.Duration
}

// Option configures a Detector.
type Option func(*Detector)

// WithClock injects a clock, for tests that need to control the window.
func WithClock(now func() time.Time) Option {
	return func(d *Detector) { d.now = now }
}

// WithWindow overrides the dedup window.
func WithWindow(window time.Duration) Option {
	return func(d *Detector) { d.window = window }
}

// NewDetector creates a duplicate detector over the given store and registry.
func NewDetector(storage service.Storage, registry *bank.Registry, opts ...Option) *Detector {
	d := &Detector{
		storage:  storage,
		registry: registry,
		now:      time.Now,
		window:   Window,
	}
	for i := range d.stripes {
		d.stripes[i] = &stripe{entries: make(map[string]*cacheEntry)}
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Check runs duplicate detection for a freshly-persisted transaction. The
// per-key critical section covers only the in-memory cache; store reads and
// writes happen at the edges, accepting the narrow race the store cannot
// make worse than a duplicate surfaced for human resolution.
func (d *Detector) Check(ctx context.Context, txn *model.Transaction) (Outcome, error) {
	d.expire()

	key := txn.DedupKey()
	s := d.stripeFor(key)

	s.mu.Lock()
	existing, ok := s.entries[key]
	if !ok || d.now().Sub(existing.seenAt) > d.window {
		s.entries[key] = &cacheEntry{txn: txn, seenAt: d.now()}
		s.mu.Unlock()
		return Outcome{Kind: NoDuplicate}, nil
	}
	first := existing.txn
	s.mu.Unlock()

	outcome, err := d.resolvePair(ctx, first, txn)
	if err != nil {
		return Outcome{}, err
	}

	if outcome.Kind != DuplicateDetected {
		d.remove(key)
	}
	return outcome, nil
}

// resolvePair decides what happens to a confirmed same-key pair: the user's
// global preference first, then the persisted rule table, then a pending case.
func (d *Detector) resolvePair(ctx context.Context, first, second *model.Transaction) (Outcome, error) {
	pref, err := d.storage.GetDuplicatePreference(ctx, second.UserID)
	if err != nil {
		slog.Warn("failed to read duplicate preference, treating as ask",
			"user_id", second.UserID, "error", err)
		pref = model.PreferenceAsk
	}

	if pref != model.PreferenceAsk {
		return d.applyPreference(ctx, pref, first, second)
	}

	var rule *model.DuplicateRule
	if retryErr := common.WithRetry(ctx, func() error {
		var lookupErr error
		rule, lookupErr = d.storage.GetDuplicateRule(ctx, second.GroupID, first.BankID, second.BankID)
		return lookupErr
	}, storeRetry); retryErr != nil {
		return Outcome{}, fmt.Errorf("duplicate rule lookup failed: %w", retryErr)
	}

	if rule != nil && rule.Resolution != model.ResolutionPending {
		return d.applyResolution(ctx, rule.Resolution, first, second)
	}

	return d.openCase(ctx, first, second)
}

// applyPreference resolves a pair from the user's card/bank preference
// without prompting.
func (d *Detector) applyPreference(ctx context.Context, pref model.DuplicatePreference, first, second *model.Transaction) (Outcome, error) {
	firstStyle := d.classifyStyle(first)
	secondStyle := d.classifyStyle(second)

	if firstStyle == secondStyle {
		return d.applyResolution(ctx, model.ResolutionKeepFirst, first, second)
	}

	preferred := styleBank
	if pref == model.PreferenceCard {
		preferred = styleCard
	}

	if firstStyle == preferred {
		return d.applyResolution(ctx, model.ResolutionKeepFirst, first, second)
	}
	return d.applyResolution(ctx, model.ResolutionKeepSecond, first, second)
}

// applyResolution performs the deletions a resolution calls for and maps it
// to an outcome.
func (d *Detector) applyResolution(ctx context.Context, resolution model.Resolution, first, second *model.Transaction) (Outcome, error) {
	switch resolution {
	case model.ResolutionKeepBoth:
		return Outcome{Kind: KeepBoth}, nil

	case model.ResolutionKeepFirst:
		if err := d.deleteTransaction(ctx, second.ID); err != nil {
			return Outcome{}, err
		}
		return Outcome{Kind: SkipSecond, RemovedIDs: []string{second.ID}}, nil

	case model.ResolutionKeepSecond:
		if err := d.deleteTransaction(ctx, first.ID); err != nil {
			return Outcome{}, err
		}
		return Outcome{Kind: KeepSecond, RemovedIDs: []string{first.ID}}, nil

	case model.ResolutionDeleteBoth:
		if err := d.deleteTransaction(ctx, first.ID); err != nil {
			return Outcome{}, err
		}
		if err := d.deleteTransaction(ctx, second.ID); err != nil {
			return Outcome{}, err
		}
		return Outcome{Kind: DeleteBoth, RemovedIDs: []string{first.ID, second.ID}}, nil

	default:
		return Outcome{}, fmt.Errorf("cannot apply resolution %q", resolution)
	}
}

// openCase records a pending duplicate case for human resolution.
func (d *Detector) openCase(ctx context.Context, first, second *model.Transaction) (Outcome, error) {
	pending := &model.PendingDuplicateCase{
		ID:          uuid.NewString(),
		UserID:      second.UserID,
		GroupID:     second.GroupID,
		FirstTxnID:  first.ID,
		SecondTxnID: second.ID,
		FirstBank:   first.BankID,
		SecondBank:  second.BankID,
		Amount:      second.Amount,
		Resolution:  model.ResolutionPending,
		CreatedAt:   d.now(),
	}

	if err := common.WithRetry(ctx, func() error {
		return d.storage.CreatePendingCase(ctx, pending)
	}, storeRetry); err != nil {
		return Outcome{}, fmt.Errorf("failed to create pending case: %w", err)
	}

	slog.Info("duplicate detected, case opened",
		"case_id", pending.ID,
		"first_bank", pending.FirstBank,
		"second_bank", pending.SecondBank,
		"amount", pending.Amount)

	return Outcome{Kind: DuplicateDetected, PendingCase: pending}, nil
}

// Resolve applies a human's choice to a pending case. With applyToFuture the
// choice is also upserted as a standing rule for that bank pair.
func (d *Detector) Resolve(ctx context.Context, caseID string, resolution model.Resolution, applyToFuture bool) (Outcome, error) {
	if resolution == model.ResolutionPending {
		return Outcome{}, fmt.Errorf("cannot resolve a case to pending")
	}

	pending, err := d.storage.GetPendingCase(ctx, caseID)
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to load pending case: %w", err)
	}
	if pending.Resolved {
		return Outcome{}, fmt.Errorf("case %s is already resolved", caseID)
	}

	first := &model.Transaction{ID: pending.FirstTxnID, BankID: pending.FirstBank}
	second := &model.Transaction{ID: pending.SecondTxnID, BankID: pending.SecondBank}

	outcome, err := d.applyResolution(ctx, resolution, first, second)
	if err != nil {
		return Outcome{}, err
	}

	if err := d.storage.ResolvePendingCase(ctx, caseID, resolution); err != nil {
		return Outcome{}, fmt.Errorf("failed to mark case resolved: %w", err)
	}

	d.remove(fmt.Sprintf("%s:%d", pending.UserID, pending.Amount))

	if applyToFuture {
		rule := &model.DuplicateRule{
			GroupID:    pending.GroupID,
			BankA:      pending.FirstBank,
			BankB:      pending.SecondBank,
			Resolution: resolution,
		}
		if err := common.WithRetry(ctx, func() error {
			return d.storage.UpsertDuplicateRule(ctx, rule)
		}, storeRetry); err != nil {
			return Outcome{}, fmt.Errorf("failed to save duplicate rule: %w", err)
		}
		slog.Info("saved duplicate rule",
			"bank_a", rule.BankA, "bank_b", rule.BankB, "resolution", resolution)
	}

	return outcome, nil
}

// deleteTransaction removes a transaction a resolution discards, first rolling
// back any goal contributions it already earned so the deposit is not counted
// twice when the surviving copy auto-deposits.
func (d *Detector) deleteTransaction(ctx context.Context, id string) error {
	if err := common.WithRetry(ctx, func() error {
		return d.storage.DeleteContributionsByTransaction(ctx, id)
	}, storeRetry); err != nil {
		return fmt.Errorf("failed to roll back contributions for %s: %w", id, err)
	}
	if err := common.WithRetry(ctx, func() error {
		return d.storage.DeleteTransaction(ctx, id)
	}, storeRetry); err != nil {
		return fmt.Errorf("failed to delete transaction %s: %w", id, err)
	}
	return nil
}

func (d *Detector) stripeFor(key string) *stripe {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return d.stripes[h.Sum32()%stripeCount]
}

// expire drops cache entries older than the window. Runs on every check.
func (d *Detector) expire() {
	cutoff := d.now().Add(-d.window)
	for _, s := range d.stripes {
		s.mu.Lock()
		for key, entry := range s.entries {
			if entry.seenAt.Before(cutoff) {
				delete(s.entries, key)
			}
		}
		s.mu.Unlock()
	}
}

func (d *Detector) remove(key string) {
	s := d.stripeFor(key)
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
}
