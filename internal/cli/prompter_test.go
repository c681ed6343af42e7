package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moamoa/moa-engine/internal/model"
)

func testCase() model.PendingDuplicateCase {
	return model.PendingDuplicateCase{
		ID:          "case1",
		UserID:      "u1",
		GroupID:     "g1",
		FirstTxnID:  "t1",
		SecondTxnID: "t2",
		FirstBank:   "kb",
		SecondBank:  "kb-card",
		Amount:      15000,
		CreatedAt:   time.Now(),
	}
}

func TestPrompter_ResolveCase(t *testing.T) {
	tests := []struct {
		name           string
		input          string
		wantResolution model.Resolution
		wantApply      bool
	}{
		{"keep first", "f\nn\n", model.ResolutionKeepFirst, false},
		{"keep second with rule", "s\ny\n", model.ResolutionKeepSecond, true},
		{"keep both defaults to no rule", "b\n\n", model.ResolutionKeepBoth, false},
		{"delete both", "d\nn\n", model.ResolutionDeleteBoth, false},
		{"uppercase input accepted", "F\nN\n", model.ResolutionKeepFirst, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			p := NewCLIPrompter(strings.NewReader(tt.input), &out)

			decision, err := p.ResolveCase(context.Background(), testCase())
			require.NoError(t, err)
			assert.False(t, decision.Skipped)
			assert.Equal(t, tt.wantResolution, decision.Resolution)
			assert.Equal(t, tt.wantApply, decision.ApplyToFuture)
		})
	}
}

func TestPrompter_ResolveCase_Skip(t *testing.T) {
	var out bytes.Buffer
	p := NewCLIPrompter(strings.NewReader("k\n"), &out)

	decision, err := p.ResolveCase(context.Background(), testCase())
	require.NoError(t, err)
	assert.True(t, decision.Skipped)
	assert.Empty(t, decision.Resolution)

	stats := p.GetCompletionStats()
	assert.Equal(t, 1, stats.SkippedCases)
}

func TestPrompter_ResolveCase_RetriesInvalidInput(t *testing.T) {
	var out bytes.Buffer
	p := NewCLIPrompter(strings.NewReader("x\nq\nd\ny\n"), &out)

	decision, err := p.ResolveCase(context.Background(), testCase())
	require.NoError(t, err)
	assert.Equal(t, model.ResolutionDeleteBoth, decision.Resolution)
	assert.True(t, decision.ApplyToFuture)
	assert.Contains(t, out.String(), "Invalid choice")
}

func TestPrompter_ResolveCase_EOF(t *testing.T) {
	var out bytes.Buffer
	p := NewCLIPrompter(strings.NewReader(""), &out)

	_, err := p.ResolveCase(context.Background(), testCase())
	assert.Error(t, err)
}

func TestPrompter_ResolveCase_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	p := NewCLIPrompter(strings.NewReader("f\nn\n"), &out)

	_, err := p.ResolveCase(ctx, testCase())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPrompter_StatsAccumulate(t *testing.T) {
	var out bytes.Buffer
	p := NewCLIPrompter(strings.NewReader("f\ny\ns\nn\nk\n"), &out)

	for i := 0; i < 3; i++ {
		_, err := p.ResolveCase(context.Background(), testCase())
		require.NoError(t, err)
	}

	stats := p.GetCompletionStats()
	assert.Equal(t, 3, stats.TotalCases)
	assert.Equal(t, 1, stats.KeptFirst)
	assert.Equal(t, 1, stats.KeptSecond)
	assert.Equal(t, 1, stats.SkippedCases)
	assert.Equal(t, 1, stats.NewRules)
	assert.Positive(t, stats.Duration)
}

func TestFormatWon(t *testing.T) {
	tests := []struct {
		amount int64
		want   string
	}{
		{0, "0원"},
		{999, "999원"},
		{1000, "1,000원"},
		{15000, "15,000원"},
		{1234567, "1,234,567원"},
		{-50000, "-50,000원"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatWon(tt.amount))
		})
	}
}
