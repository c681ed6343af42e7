package parser

import (
	"context"
	"log/slog"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/moamoa/moa-engine/internal/bank"
)

// Foreign amounts come as a currency code or symbol followed by a decimal
// number. They are tried before the profile's domestic patterns.
var (
	foreignCodePattern   = regexp.MustCompile(`\b(USD|JPY|EUR|CNY|GBP)\s*([0-9]+(?:\.[0-9]+)?)`)
	foreignSymbolPattern = regexp.MustCompile(`([$€¥£])\s*([0-9]+(?:\.[0-9]+)?)`)

	symbolCurrencies = map[string]string{
		"$": "USD",
		"€": "EUR",
		"¥": "JPY",
		"£": "GBP",
	}
)

// extractAmount returns the amount in won, whether the text was a
// foreign-currency notification, and whether extraction succeeded.
// Zero and negative amounts are rejected.
func (p *Parser) extractAmount(ctx context.Context, profile *bank.Profile, text string) (int64, bool, bool) {
	if currency, value, ok := matchForeign(text); ok {
		rate, err := p.rates.Rate(ctx, currency)
		if err != nil {
			slog.Warn("cannot convert foreign amount", "currency", currency, "error", err)
			return 0, true, false
		}
		won := int64(math.Round(value * rate))
		if won <= 0 {
			return 0, true, false
		}
		return won, true, true
	}

	for _, re := range p.registry.AmountPatterns(profile.ID) {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		amount, err := parseWon(m[1])
		if err != nil || amount <= 0 {
			continue
		}
		return amount, false, true
	}

	return 0, false, false
}

func matchForeign(text string) (currency string, value float64, ok bool) {
	if m := foreignCodePattern.FindStringSubmatch(text); m != nil {
		value, err := strconv.ParseFloat(m[2], 64)
		if err != nil || value <= 0 {
			return "", 0, false
		}
		return m[1], value, true
	}
	if m := foreignSymbolPattern.FindStringSubmatch(text); m != nil {
		value, err := strconv.ParseFloat(m[2], 64)
		if err != nil || value <= 0 {
			return "", 0, false
		}
		return symbolCurrencies[m[1]], value, true
	}
	return "", 0, false
}

// parseWon parses a possibly comma-grouped digit string.
func parseWon(s string) (int64, error) {
	return strconv.ParseInt(strings.ReplaceAll(s, ",", ""), 10, 64)
}

// looksLikeAmount reports whether a token is itself a currency amount, which
// disqualifies it as a merchant name.
var amountToken = regexp.MustCompile(`^[0-9]{1,3}(?:,[0-9]{3})*원?$`)

func looksLikeAmount(token string) bool {
	return amountToken.MatchString(token)
}
