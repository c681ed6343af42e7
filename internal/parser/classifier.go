package parser

import (
	"strings"

	"github.com/moamoa/moa-engine/internal/bank"
	"github.com/moamoa/moa-engine/internal/model"
)

// Built-in direction keywords, merged with each profile's own lists.
var (
	builtinIncomeKeywords  = []string{"입금", "환불", "캐시백", "이자", "급여"}
	builtinExpenseKeywords = []string{"출금", "결제", "승인", "사용", "구매"}
)

// classifyDirection decides income vs expense from keyword positions: the
// side whose keyword appears first in the text wins, and a tie (including no
// keyword at all) is an expense.
//
// One exception overrides the position rule: a cancellation keyword anywhere
// means money came back, so the text is income no matter what else it says.
// This also keeps the compound 출금취소 from being read as a plain 출금.
func classifyDirection(text string, profile *bank.Profile) model.TransactionDirection {
	if strings.Contains(text, "취소") {
		return model.DirectionIncome
	}

	incomeIdx := firstKeywordIndex(text, builtinIncomeKeywords, profile.IncomeKeywords)
	expenseIdx := firstKeywordIndex(text, builtinExpenseKeywords, profile.ExpenseKeywords)

	if incomeIdx >= 0 && (expenseIdx < 0 || incomeIdx < expenseIdx) {
		return model.DirectionIncome
	}
	return model.DirectionExpense
}

// firstKeywordIndex returns the smallest byte index at which any keyword from
// either list occurs, or -1 if none occurs.
func firstKeywordIndex(text string, lists ...[]string) int {
	first := -1
	for _, list := range lists {
		for _, kw := range list {
			idx := strings.Index(text, kw)
			if idx < 0 {
				continue
			}
			if first < 0 || idx < first {
				first = idx
			}
		}
	}
	return first
}
