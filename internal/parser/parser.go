// Package parser turns raw notification text into structured transactions.
// It is a best-effort heuristic cascade: most irrelevant notifications simply
// fail to parse, which is not an error.
package parser

import (
	"context"
	"log/slog"
	"regexp"
	"unicode/utf8"

	"github.com/moamoa/moa-engine/internal/bank"
	"github.com/moamoa/moa-engine/internal/model"
)

// Inputs longer than this are truncated before any regex runs. The cascades
// below are safe against linear input, but notification text has no business
// being this long anyway.
const maxTextLen = 1000

// RateSource provides KRW exchange rates for foreign-currency amounts.
type RateSource interface {
	Rate(ctx context.Context, currency string) (float64, error)
}

// Parser extracts transaction candidates from notification text using the
// profile registry's per-source rules.
type Parser struct {
	registry *bank.Registry
	rates    RateSource
}

// New creates a parser over the given registry and rate source.
func New(registry *bank.Registry, rates RateSource) *Parser {
	return &Parser{registry: registry, rates: rates}
}

// Account fragment shapes, tried in order.
var accountPatterns = []*regexp.Regexp{
	regexp.MustCompile(`[0-9]{2,6}-[0-9]{2,6}-[0-9]{2,6}`),
	regexp.MustCompile(`[0-9]{2,6}\*{2,}[0-9]{2,6}`),
	regexp.MustCompile(`[0-9*]{6,14}`),
}

var balancePattern = regexp.MustCompile(`잔액\s*[0-9]{1,3}(?:,[0-9]{3})*원?`)

// Parse extracts a transaction candidate from one notification. The second
// return value is false when the text does not parse: unknown source, no
// amount, or a non-positive amount.
func (p *Parser) Parse(ctx context.Context, sourceID, text string) (*model.Transaction, bool) {
	if len(text) > maxTextLen {
		// Cut on a rune boundary so RawText stays valid UTF-8.
		cut := maxTextLen
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}

	profile := p.registry.BySource(sourceID)
	if profile == nil {
		slog.Debug("no profile for source", "source", sourceID)
		return nil, false
	}

	amount, foreign, ok := p.extractAmount(ctx, profile, text)
	if !ok {
		slog.Debug("no amount in text", "profile", profile.ID)
		return nil, false
	}

	txn := &model.Transaction{
		BankID:    profile.ID,
		Amount:    amount,
		RawText:   text,
		Direction: classifyDirection(text, profile),
	}

	if txn.Direction == model.DirectionExpense {
		txn.Merchant = p.extractMerchant(profile, text, foreign)
	} else {
		// Sender stays blank when no real name is in the text; the label is
		// display-only and must not be mistaken for a matchable name.
		txn.Sender = extractSender(text, foreign)
		if txn.Sender == "" {
			txn.SenderLabel = depositLabel(text)
		}
	}

	txn.Account = extractAccount(text)
	txn.Description = extractDescription(text)

	return txn, true
}

// extractAccount returns the first fragment resembling an account number.
func extractAccount(text string) string {
	for _, re := range accountPatterns {
		if m := re.FindString(text); m != "" {
			return m
		}
	}
	return ""
}

// extractDescription returns the balance-remainder fragment if present.
func extractDescription(text string) string {
	return balancePattern.FindString(text)
}
