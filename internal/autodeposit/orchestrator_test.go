package autodeposit

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moamoa/moa-engine/internal/learn"
	"github.com/moamoa/moa-engine/internal/match"
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

func newTestOrchestrator(t *testing.T, store service.Storage) *Orchestrator {
	t.Helper()
	return New(store, match.NewMatcher(), learn.NewApplier(store))
}

func seedGoal(t *testing.T, store service.Storage, goal *model.Goal) {
	t.Helper()
	require.NoError(t, store.SaveGoal(context.Background(), goal))
}

func testMembers() []model.Member {
	return []model.Member{
		{ID: "m1", GroupID: "g1", Name: "엄마", RealName: "김영희"},
		{ID: "m2", GroupID: "g1", Name: "홍길동"},
	}
}

func TestOrchestrator_Process_AutoProcessed(t *testing.T) {
	store := newTestStore(t)
	o := newTestOrchestrator(t, store)
	seedGoal(t, store, &model.Goal{
		ID: "goal1", GroupID: "g1", Name: "여행",
		AccountNumber: "100-123456-789", AutoDeposit: true,
	})

	outcomes, err := o.Process(context.Background(), Request{
		TransactionID: "t1",
		GroupID:       "g1",
		Sender:        "김영희",
		Account:       "100-123456-789",
		RawText:       "입금 50,000원 김영희",
		Amount:        50000,
		Members:       testMembers(),
	})
	require.NoError(t, err)
	require.Len(t, outcomes, 1)

	outcome := outcomes[0]
	assert.Equal(t, AutoProcessed, outcome.Kind)
	require.NotNil(t, outcome.Contribution)
	assert.Equal(t, "goal1", outcome.Contribution.GoalID)
	assert.Equal(t, "m1", outcome.Contribution.MemberID)
	assert.Equal(t, "t1", outcome.Contribution.TransactionID)
	assert.Equal(t, int64(50000), outcome.Contribution.Amount)
}

func TestOrchestrator_Process_NeedsConfirmation(t *testing.T) {
	store := newTestStore(t)
	o := newTestOrchestrator(t, store)
	seedGoal(t, store, &model.Goal{
		ID: "goal1", GroupID: "g1", AccountNumber: "100-123456-789", AutoDeposit: true,
	})

	// Two members fit the masked name equally well.
	members := []model.Member{
		{ID: "m1", GroupID: "g1", Name: "홍길동"},
		{ID: "m2", GroupID: "g1", Name: "홍나동"},
	}

	outcomes, err := o.Process(context.Background(), Request{
		TransactionID: "t1",
		GroupID:       "g1",
		Sender:        "홍*동",
		Account:       "100-123456-789",
		Amount:        50000,
		Members:       members,
	})
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, NeedsConfirmation, outcomes[0].Kind)
	assert.Len(t, outcomes[0].Candidates, 2)
	assert.Nil(t, outcomes[0].Contribution)
}

func TestOrchestrator_Process_NeedsManualInput(t *testing.T) {
	store := newTestStore(t)
	o := newTestOrchestrator(t, store)
	seedGoal(t, store, &model.Goal{
		ID: "goal1", GroupID: "g1", AccountNumber: "100-123456-789", AutoDeposit: true,
	})

	t.Run("no sender and no learned pattern", func(t *testing.T) {
		outcomes, err := o.Process(context.Background(), Request{
			TransactionID: "t1",
			GroupID:       "g1",
			Account:       "100-123456-789",
			RawText:       "50,000원이 입금되었습니다",
			Amount:        50000,
			Members:       testMembers(),
		})
		require.NoError(t, err)
		require.Len(t, outcomes, 1)
		assert.Equal(t, NeedsManualInput, outcomes[0].Kind)
		assert.Equal(t, ReasonNoSenderName, outcomes[0].Reason)
	})

	t.Run("sender matches nobody", func(t *testing.T) {
		outcomes, err := o.Process(context.Background(), Request{
			TransactionID: "t2",
			GroupID:       "g1",
			Sender:        "최민준",
			Account:       "100-123456-789",
			Amount:        50000,
			Members:       testMembers(),
		})
		require.NoError(t, err)
		require.Len(t, outcomes, 1)
		assert.Equal(t, NeedsManualInput, outcomes[0].Kind)
		assert.Equal(t, ReasonMemberUnknown, outcomes[0].Reason)
	})
}

func TestOrchestrator_Process_NotApplicable(t *testing.T) {
	store := newTestStore(t)
	o := newTestOrchestrator(t, store)

	t.Run("no goals at all", func(t *testing.T) {
		outcomes, err := o.Process(context.Background(), Request{
			GroupID: "g1",
			Sender:  "김영희",
			Amount:  50000,
			Members: testMembers(),
		})
		require.NoError(t, err)
		require.Len(t, outcomes, 1)
		assert.Equal(t, NotApplicable, outcomes[0].Kind)
	})

	t.Run("account does not match", func(t *testing.T) {
		seedGoal(t, store, &model.Goal{
			ID: "goal1", GroupID: "g1", AccountNumber: "200-999999-111", AutoDeposit: true,
		})

		outcomes, err := o.Process(context.Background(), Request{
			GroupID: "g1",
			Sender:  "김영희",
			Account: "100-123456-789",
			Amount:  50000,
			Members: testMembers(),
		})
		require.NoError(t, err)
		require.Len(t, outcomes, 1)
		assert.Equal(t, NotApplicable, outcomes[0].Kind)
	})

	t.Run("completed goals are skipped", func(t *testing.T) {
		store := newTestStore(t)
		o := newTestOrchestrator(t, store)
		seedGoal(t, store, &model.Goal{
			ID: "goal1", GroupID: "g1", AccountNumber: "100-123456-789",
			AutoDeposit: true, Completed: true,
		})

		outcomes, err := o.Process(context.Background(), Request{
			GroupID: "g1",
			Sender:  "김영희",
			Account: "100-123456-789",
			Amount:  50000,
			Members: testMembers(),
		})
		require.NoError(t, err)
		require.Len(t, outcomes, 1)
		assert.Equal(t, NotApplicable, outcomes[0].Kind)
	})
}

func TestOrchestrator_Process_LearnedPatternFallback(t *testing.T) {
	store := newTestStore(t)
	o := newTestOrchestrator(t, store)
	seedGoal(t, store, &model.Goal{
		ID: "goal1", GroupID: "g1", AccountNumber: "100-123456-789", AutoDeposit: true,
	})

	learner := learn.NewLearner(store)
	ctx := context.Background()
	pattern, err := learner.Learn(ctx, learn.Correction{
		GoalID:     "goal1",
		RawText:    "입금 30,000원 박철수",
		SenderName: "박철수",
		Amount:     30000,
	})
	require.NoError(t, err)

	outcomes, err := o.Process(ctx, Request{
		TransactionID: "t1",
		GroupID:       "g1",
		Account:       "100-123456-789",
		RawText:       "입금 50,000원 김영희",
		Amount:        50000,
		Members:       testMembers(),
	})
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, AutoProcessed, outcomes[0].Kind)
	assert.Equal(t, "m1", outcomes[0].Contribution.MemberID)

	// The successful resolution counted as a hit.
	fresh, err := store.GetLearnedPattern(ctx, pattern.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, fresh.SuccessCount)
}

func TestAccountMatches(t *testing.T) {
	tests := []struct {
		name        string
		fragment    string
		goalAccount string
		rawText     string
		want        bool
	}{
		{"exact digits", "100-123456-789", "100123456789", "", true},
		{"shared last four", "110***4567", "110-222-334567", "", true},
		{"no fragment but last four in text", "", "100-123456-789", "입금 6789 50,000원", true},
		{"no fragment and no trace in text", "", "100-123456-789", "입금 50,000원", false},
		{"different accounts", "200-999-111", "100-123456-789", "", false},
		{"goal without account", "100-123456-789", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, accountMatches(tt.fragment, tt.goalAccount, tt.rawText))
		})
	}
}
