package dedup

import (
	"strings"

	"github.com/moamoa/moa-engine/internal/model"
)

// style is the notification flavor used to pick a survivor under the
// prefer-card / prefer-bank preference.
type style int

const (
	styleBank style = iota
	styleCard
)

// Weighted keyword lists used only to break a tie on the primary counts.
var (
	weakCardKeywords = []string{"승인", "포인트"}
	weakBankKeywords = []string{"입금", "출금"}
)

// classifyStyle decides whether a transaction's raw text reads card-style or
// bank-style: majority count over the profile's keyword lists, the weighted
// lists as tiebreak, bank-style as the final default.
func (d *Detector) classifyStyle(txn *model.Transaction) style {
	cardKeywords := weakCardKeywords
	bankKeywords := weakBankKeywords
	if profile := d.registry.ByID(txn.BankID); profile != nil {
		cardKeywords = profile.CardKeywords
		bankKeywords = profile.BankKeywords
	}

	cardCount := countOccurrences(txn.RawText, cardKeywords)
	bankCount := countOccurrences(txn.RawText, bankKeywords)
	if cardCount > bankCount {
		return styleCard
	}
	if bankCount > cardCount {
		return styleBank
	}

	cardCount = countOccurrences(txn.RawText, weakCardKeywords)
	bankCount = countOccurrences(txn.RawText, weakBankKeywords)
	if cardCount > bankCount {
		return styleCard
	}
	return styleBank
}

func countOccurrences(text string, keywords []string) int {
	total := 0
	for _, kw := range keywords {
		total += strings.Count(text, kw)
	}
	return total
}
