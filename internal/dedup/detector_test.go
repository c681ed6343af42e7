package dedup

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moamoa/moa-engine/internal/bank"
	"github.com/moamoa/moa-engine/internal/model"
	"github.com/moamoa/moa-engine/internal/service"
	"github.com/moamoa/moa-engine/internal/storage"
)

func newTestStore(t *testing.T) service.Storage {
	t.Helper()
	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrate(context.Background()))
	return store
}

// testClock is a controllable clock for exercising the window.
type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestDetector(t *testing.T, store service.Storage, clock *testClock) *Detector {
	t.Helper()
	registry, err := bank.NewDefaultRegistry()
	require.NoError(t, err)
	return NewDetector(store, registry, WithClock(clock.Now))
}

func bankTxn(id, userID string, amount int64) *model.Transaction {
	return &model.Transaction{
		ID:        id,
		UserID:    userID,
		GroupID:   "g1",
		BankID:    "kb",
		Direction: model.DirectionExpense,
		Amount:    amount,
		RawText:   "계좌 출금 15,000원",
		CreatedAt: time.Now(),
	}
}

func cardTxn(id, userID string, amount int64) *model.Transaction {
	return &model.Transaction{
		ID:        id,
		UserID:    userID,
		GroupID:   "g1",
		BankID:    "kb-card",
		Direction: model.DirectionExpense,
		Amount:    amount,
		RawText:   "체크카드 승인 15,000원",
		CreatedAt: time.Now(),
	}
}

func saveTxn(t *testing.T, store service.Storage, txn *model.Transaction) {
	t.Helper()
	require.NoError(t, store.SaveTransaction(context.Background(), txn))
}

func TestDetector_Check_FirstSighting(t *testing.T) {
	store := newTestStore(t)
	clock := &testClock{now: time.Now()}
	d := newTestDetector(t, store, clock)

	txn := bankTxn("t1", "u1", 15000)
	saveTxn(t, store, txn)

	outcome, err := d.Check(context.Background(), txn)
	require.NoError(t, err)
	assert.Equal(t, NoDuplicate, outcome.Kind)
}

func TestDetector_Check_SameKeyWithinWindowOpensCase(t *testing.T) {
	store := newTestStore(t)
	clock := &testClock{now: time.Now()}
	d := newTestDetector(t, store, clock)
	ctx := context.Background()

	first := bankTxn("t1", "u1", 15000)
	second := cardTxn("t2", "u1", 15000)
	saveTxn(t, store, first)
	saveTxn(t, store, second)

	outcome, err := d.Check(ctx, first)
	require.NoError(t, err)
	require.Equal(t, NoDuplicate, outcome.Kind)

	clock.Advance(30 * time.Second)

	outcome, err = d.Check(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, DuplicateDetected, outcome.Kind)
	require.NotNil(t, outcome.PendingCase)
	assert.Equal(t, "kb", outcome.PendingCase.FirstBank)
	assert.Equal(t, "kb-card", outcome.PendingCase.SecondBank)
	assert.Equal(t, int64(15000), outcome.PendingCase.Amount)

	cases, err := store.GetOpenCases(ctx, "g1")
	require.NoError(t, err)
	assert.Len(t, cases, 1)
}

func TestDetector_Check_OutsideWindowIsNotDuplicate(t *testing.T) {
	store := newTestStore(t)
	clock := &testClock{now: time.Now()}
	d := newTestDetector(t, store, clock)
	ctx := context.Background()

	first := bankTxn("t1", "u1", 15000)
	second := cardTxn("t2", "u1", 15000)
	saveTxn(t, store, first)
	saveTxn(t, store, second)

	outcome, err := d.Check(ctx, first)
	require.NoError(t, err)
	require.Equal(t, NoDuplicate, outcome.Kind)

	clock.Advance(3 * time.Minute)

	outcome, err = d.Check(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, NoDuplicate, outcome.Kind)
}

func TestDetector_Check_DifferentUsersDoNotCollide(t *testing.T) {
	store := newTestStore(t)
	clock := &testClock{now: time.Now()}
	d := newTestDetector(t, store, clock)
	ctx := context.Background()

	first := bankTxn("t1", "u1", 15000)
	second := bankTxn("t2", "u2", 15000)
	saveTxn(t, store, first)
	saveTxn(t, store, second)

	outcome, err := d.Check(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, NoDuplicate, outcome.Kind)

	outcome, err = d.Check(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, NoDuplicate, outcome.Kind)
}

func TestDetector_Check_PreferCard(t *testing.T) {
	t.Run("card arrives second and wins", func(t *testing.T) {
		store := newTestStore(t)
		clock := &testClock{now: time.Now()}
		d := newTestDetector(t, store, clock)
		ctx := context.Background()

		require.NoError(t, store.SetDuplicatePreference(ctx, "u1", model.PreferenceCard))

		first := bankTxn("t1", "u1", 15000)
		second := cardTxn("t2", "u1", 15000)
		saveTxn(t, store, first)
		saveTxn(t, store, second)

		_, err := d.Check(ctx, first)
		require.NoError(t, err)

		outcome, err := d.Check(ctx, second)
		require.NoError(t, err)
		assert.Equal(t, KeepSecond, outcome.Kind)
		assert.Equal(t, []string{"t1"}, outcome.RemovedIDs)

		_, err = store.GetTransactionByID(ctx, "t1")
		assert.ErrorIs(t, err, storage.ErrTransactionNotFound)
	})

	t.Run("card arrives first and wins", func(t *testing.T) {
		store := newTestStore(t)
		clock := &testClock{now: time.Now()}
		d := newTestDetector(t, store, clock)
		ctx := context.Background()

		require.NoError(t, store.SetDuplicatePreference(ctx, "u1", model.PreferenceCard))

		first := cardTxn("t1", "u1", 15000)
		second := bankTxn("t2", "u1", 15000)
		saveTxn(t, store, first)
		saveTxn(t, store, second)

		_, err := d.Check(ctx, first)
		require.NoError(t, err)

		outcome, err := d.Check(ctx, second)
		require.NoError(t, err)
		assert.Equal(t, SkipSecond, outcome.Kind)
		assert.Equal(t, []string{"t2"}, outcome.RemovedIDs)
	})

	t.Run("same style keeps the earlier event", func(t *testing.T) {
		store := newTestStore(t)
		clock := &testClock{now: time.Now()}
		d := newTestDetector(t, store, clock)
		ctx := context.Background()

		require.NoError(t, store.SetDuplicatePreference(ctx, "u1", model.PreferenceCard))

		first := bankTxn("t1", "u1", 15000)
		second := bankTxn("t2", "u1", 15000)
		saveTxn(t, store, first)
		saveTxn(t, store, second)

		_, err := d.Check(ctx, first)
		require.NoError(t, err)

		outcome, err := d.Check(ctx, second)
		require.NoError(t, err)
		assert.Equal(t, SkipSecond, outcome.Kind)
	})
}

func TestDetector_Check_StandingRule(t *testing.T) {
	store := newTestStore(t)
	clock := &testClock{now: time.Now()}
	d := newTestDetector(t, store, clock)
	ctx := context.Background()

	require.NoError(t, store.UpsertDuplicateRule(ctx, &model.DuplicateRule{
		GroupID:    "g1",
		BankA:      "kb",
		BankB:      "kb-card",
		Resolution: model.ResolutionKeepBoth,
	}))

	first := bankTxn("t1", "u1", 15000)
	second := cardTxn("t2", "u1", 15000)
	saveTxn(t, store, first)
	saveTxn(t, store, second)

	_, err := d.Check(ctx, first)
	require.NoError(t, err)

	outcome, err := d.Check(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, KeepBoth, outcome.Kind)

	// No case opened: the rule resolved the pair silently.
	cases, err := store.GetOpenCases(ctx, "g1")
	require.NoError(t, err)
	assert.Empty(t, cases)
}

func TestDetector_Check_StandingRuleAppliesInReverseOrder(t *testing.T) {
	store := newTestStore(t)
	clock := &testClock{now: time.Now()}
	d := newTestDetector(t, store, clock)
	ctx := context.Background()

	require.NoError(t, store.UpsertDuplicateRule(ctx, &model.DuplicateRule{
		GroupID:    "g1",
		BankA:      "kb-card",
		BankB:      "kb",
		Resolution: model.ResolutionKeepBoth,
	}))

	first := bankTxn("t1", "u1", 15000)
	second := cardTxn("t2", "u1", 15000)
	saveTxn(t, store, first)
	saveTxn(t, store, second)

	_, err := d.Check(ctx, first)
	require.NoError(t, err)

	outcome, err := d.Check(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, KeepBoth, outcome.Kind)
}

func TestDetector_Resolve(t *testing.T) {
	store := newTestStore(t)
	clock := &testClock{now: time.Now()}
	d := newTestDetector(t, store, clock)
	ctx := context.Background()

	first := bankTxn("t1", "u1", 15000)
	second := cardTxn("t2", "u1", 15000)
	saveTxn(t, store, first)
	saveTxn(t, store, second)

	_, err := d.Check(ctx, first)
	require.NoError(t, err)
	outcome, err := d.Check(ctx, second)
	require.NoError(t, err)
	require.Equal(t, DuplicateDetected, outcome.Kind)
	caseID := outcome.PendingCase.ID

	resolved, err := d.Resolve(ctx, caseID, model.ResolutionKeepFirst, true)
	require.NoError(t, err)
	assert.Equal(t, SkipSecond, resolved.Kind)
	assert.Equal(t, []string{"t2"}, resolved.RemovedIDs)

	// Case is closed.
	pc, err := store.GetPendingCase(ctx, caseID)
	require.NoError(t, err)
	assert.True(t, pc.Resolved)
	assert.Equal(t, model.ResolutionKeepFirst, pc.Resolution)

	// The standing rule now covers future pairs without a prompt.
	third := bankTxn("t3", "u1", 15000)
	fourth := cardTxn("t4", "u1", 15000)
	saveTxn(t, store, third)
	saveTxn(t, store, fourth)

	_, err = d.Check(ctx, third)
	require.NoError(t, err)
	outcome, err = d.Check(ctx, fourth)
	require.NoError(t, err)
	assert.Equal(t, SkipSecond, outcome.Kind)
}

func TestDetector_Resolve_Errors(t *testing.T) {
	store := newTestStore(t)
	clock := &testClock{now: time.Now()}
	d := newTestDetector(t, store, clock)
	ctx := context.Background()

	_, err := d.Resolve(ctx, "missing", model.ResolutionKeepBoth, false)
	assert.Error(t, err)

	_, err = d.Resolve(ctx, "missing", model.ResolutionPending, false)
	assert.Error(t, err)
}

func TestClassifyStyle(t *testing.T) {
	store := newTestStore(t)
	clock := &testClock{now: time.Now()}
	d := newTestDetector(t, store, clock)

	tests := []struct {
		name string
		txn  *model.Transaction
		want style
	}{
		{"card keywords dominate", cardTxn("t1", "u1", 1000), styleCard},
		{"bank keywords dominate", bankTxn("t2", "u1", 1000), styleBank},
		{
			name: "tie broken by weak card keyword",
			txn: &model.Transaction{
				BankID:  "kb",
				RawText: "승인 알림",
			},
			want: styleCard,
		},
		{
			name: "no keywords defaults to bank",
			txn: &model.Transaction{
				BankID:  "kb",
				RawText: "안내 문자",
			},
			want: styleBank,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, d.classifyStyle(tt.txn))
		})
	}
}
