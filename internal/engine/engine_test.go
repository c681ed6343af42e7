package engine

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moamoa/moa-engine/internal/autodeposit"
	"github.com/moamoa/moa-engine/internal/bank"
	"github.com/moamoa/moa-engine/internal/dedup"
	"github.com/moamoa/moa-engine/internal/learn"
	"github.com/moamoa/moa-engine/internal/match"
	"github.com/moamoa/moa-engine/internal/model"
	"github.com/moamoa/moa-engine/internal/parser"
	"github.com/moamoa/moa-engine/internal/service"
	"github.com/moamoa/moa-engine/internal/storage"
)

type fixedRates struct{}

func (fixedRates) Rate(_ context.Context, _ string) (float64, error) { return 1350, nil }

type pipeline struct {
	store  service.Storage
	engine *Engine
}

func newTestPipeline(t *testing.T) *pipeline {
	t.Helper()

	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrate(context.Background()))

	registry, err := bank.NewDefaultRegistry()
	require.NoError(t, err)

	p := parser.New(registry, fixedRates{})
	d := dedup.NewDetector(store, registry)
	o := autodeposit.New(store, match.NewMatcher(), learn.NewApplier(store))

	return &pipeline{store: store, engine: New(store, p, d, o)}
}

func (p *pipeline) seedHousehold(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, p.store.SaveMember(ctx, &model.Member{
		ID: "m1", GroupID: "g1", Name: "엄마", RealName: "김영희",
	}))
	require.NoError(t, p.store.SaveGoal(ctx, &model.Goal{
		ID: "goal1", GroupID: "g1", Name: "여행",
		AccountNumber: "100-123456-789", TargetAmount: 100000, AutoDeposit: true,
	}))
}

func TestEngine_Process_IrrelevantNotification(t *testing.T) {
	p := newTestPipeline(t)

	result, err := p.engine.Process(context.Background(), Notification{
		SourceID: "15778000",
		UserID:   "u1",
		GroupID:  "g1",
		Text:     "신한은행 점검 안내입니다",
	})
	require.NoError(t, err)
	assert.False(t, result.Parsed)
	assert.Nil(t, result.Transaction)
}

func TestEngine_Process_ExpenseIsPersistedWithoutAutoDeposit(t *testing.T) {
	p := newTestPipeline(t)
	p.seedHousehold(t)
	ctx := context.Background()

	result, err := p.engine.Process(ctx, Notification{
		SourceID: "15447200",
		UserID:   "u1",
		GroupID:  "g1",
		Text:     "신한카드 승인 15,000원 GS25 일시불",
	})
	require.NoError(t, err)
	require.True(t, result.Parsed)
	assert.Equal(t, model.DirectionExpense, result.Transaction.Direction)
	assert.Equal(t, dedup.NoDuplicate, result.Dedup.Kind)
	assert.Empty(t, result.AutoDeposit)

	stored, err := p.store.GetTransactionByID(ctx, result.Transaction.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(15000), stored.Amount)
}

func TestEngine_Process_IncomeCreditsMatchingGoal(t *testing.T) {
	p := newTestPipeline(t)
	p.seedHousehold(t)
	ctx := context.Background()

	result, err := p.engine.Process(ctx, Notification{
		SourceID: "15778000",
		UserID:   "u1",
		GroupID:  "g1",
		Text:     "신한 100-123456-789 입금 50,000원 김영희",
	})
	require.NoError(t, err)
	require.True(t, result.Parsed)
	require.Len(t, result.AutoDeposit, 1)
	assert.Equal(t, autodeposit.AutoProcessed, result.AutoDeposit[0].Kind)

	goals, err := p.store.GetGoals(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, goals, 1)
	assert.Equal(t, int64(50000), goals[0].SavedAmount)
	assert.False(t, goals[0].Completed)
}

func TestEngine_Process_GoalCompletesWhenTargetReached(t *testing.T) {
	p := newTestPipeline(t)
	p.seedHousehold(t)
	ctx := context.Background()

	_, err := p.engine.Process(ctx, Notification{
		SourceID: "15778000",
		UserID:   "u1",
		GroupID:  "g1",
		Text:     "신한 100-123456-789 입금 120,000원 김영희",
	})
	require.NoError(t, err)

	goals, err := p.store.GetGoals(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, goals, 1)
	assert.Equal(t, int64(120000), goals[0].SavedAmount)
	assert.True(t, goals[0].Completed)
}

func TestEngine_Process_DuplicateHoldsBackAutoDeposit(t *testing.T) {
	p := newTestPipeline(t)
	p.seedHousehold(t)
	ctx := context.Background()

	first, err := p.engine.Process(ctx, Notification{
		SourceID: "15778000",
		UserID:   "u1",
		GroupID:  "g1",
		Text:     "신한 100-123456-789 입금 50,000원 김영희",
	})
	require.NoError(t, err)
	require.Len(t, first.AutoDeposit, 1)

	// Same user and amount through another channel within the window.
	second, err := p.engine.Process(ctx, Notification{
		SourceID: "15333333",
		UserID:   "u1",
		GroupID:  "g1",
		Text:     "카카오뱅크 100-123456-789 입금 50,000원 김영희",
	})
	require.NoError(t, err)
	require.True(t, second.Parsed)
	assert.Equal(t, dedup.DuplicateDetected, second.Dedup.Kind)
	assert.Empty(t, second.AutoDeposit)

	// Only the first event was credited.
	goals, err := p.store.GetGoals(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, int64(50000), goals[0].SavedAmount)
}

func TestEngine_Process_LearnedPatternResolvesUnnamedDeposit(t *testing.T) {
	p := newTestPipeline(t)
	ctx := context.Background()

	require.NoError(t, p.store.SaveMember(ctx, &model.Member{
		ID: "m1", GroupID: "g1", Name: "아빠", RealName: "홍길동",
	}))
	require.NoError(t, p.store.SaveGoal(ctx, &model.Goal{
		ID: "goal1", GroupID: "g1", Name: "여행",
		AccountNumber: "110-123-456789", TargetAmount: 100000, AutoDeposit: true,
	}))

	// A past correction taught this goal where the name hides in this layout.
	_, err := learn.NewLearner(p.store).Learn(ctx, learn.Correction{
		GoalID:     "goal1",
		RawText:    "신한 110-123-456789 입금 30,000원 메모 박철수",
		SenderName: "박철수",
		BankName:   "신한은행",
		Amount:     30000,
	})
	require.NoError(t, err)

	// The built-in heuristics find no name here; the learned pattern must.
	result, err := p.engine.Process(ctx, Notification{
		SourceID: "15778000",
		UserID:   "u1",
		GroupID:  "g1",
		Text:     "신한 입금 50,000원 110-123-456789 메모 홍길동",
	})
	require.NoError(t, err)
	require.True(t, result.Parsed)
	assert.Empty(t, result.Transaction.Sender)
	assert.Equal(t, "입금", result.Transaction.SenderLabel)

	require.Len(t, result.AutoDeposit, 1)
	assert.Equal(t, autodeposit.AutoProcessed, result.AutoDeposit[0].Kind)
	require.NotNil(t, result.AutoDeposit[0].Contribution)
	assert.Equal(t, "m1", result.AutoDeposit[0].Contribution.MemberID)
}

func TestEngine_Process_DuplicateResolutionRollsBackContribution(t *testing.T) {
	p := newTestPipeline(t)
	p.seedHousehold(t)
	ctx := context.Background()

	require.NoError(t, p.store.SetDuplicatePreference(ctx, "u1", model.PreferenceCard))

	first, err := p.engine.Process(ctx, Notification{
		SourceID: "15778000",
		UserID:   "u1",
		GroupID:  "g1",
		Text:     "신한 100-123456-789 입금 50,000원 김영희",
	})
	require.NoError(t, err)
	require.Len(t, first.AutoDeposit, 1)
	require.Equal(t, autodeposit.AutoProcessed, first.AutoDeposit[0].Kind)

	// Same deposit through the card channel; the preference keeps the second
	// copy and must unwind the credit the first one already earned.
	second, err := p.engine.Process(ctx, Notification{
		SourceID: "15881688",
		UserID:   "u1",
		GroupID:  "g1",
		Text:     "KB국민카드 체크카드 100-123456-789 입금 50,000원 김영희",
	})
	require.NoError(t, err)
	require.True(t, second.Parsed)
	assert.Equal(t, dedup.KeepSecond, second.Dedup.Kind)
	require.Len(t, second.AutoDeposit, 1)
	assert.Equal(t, autodeposit.AutoProcessed, second.AutoDeposit[0].Kind)

	_, err = p.store.GetTransactionByID(ctx, first.Transaction.ID)
	assert.ErrorIs(t, err, storage.ErrTransactionNotFound)

	// Credited exactly once for the surviving copy.
	goals, err := p.store.GetGoals(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, goals, 1)
	assert.Equal(t, int64(50000), goals[0].SavedAmount)
	assert.False(t, goals[0].Completed)
}

func TestEngine_Process_AssignsIdentity(t *testing.T) {
	p := newTestPipeline(t)
	p.seedHousehold(t)

	result, err := p.engine.Process(context.Background(), Notification{
		SourceID: "15447200",
		UserID:   "u1",
		GroupID:  "g1",
		Text:     "신한카드 승인 15,000원 GS25",
	})
	require.NoError(t, err)
	require.True(t, result.Parsed)
	assert.NotEmpty(t, result.Transaction.ID)
	assert.Equal(t, "u1", result.Transaction.UserID)
	assert.Equal(t, "g1", result.Transaction.GroupID)
	assert.WithinDuration(t, time.Now(), result.Transaction.CreatedAt, time.Minute)
}
