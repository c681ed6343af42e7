package bank

// Shared domestic amount shapes. Comma-grouped form first so "1,234,500원"
// is not cut short by the bare-digit pattern.
var commonAmountPatterns = []string{
	`([0-9]{1,3}(?:,[0-9]{3})+)원`,
	`([0-9]+)원`,
	`금액\s*:?\s*([0-9,]+)`,
}

var commonCardKeywords = []string{"카드", "체크", "신용", "일시불", "할부"}

var commonBankKeywords = []string{"계좌", "이체", "잔액", "통장"}

// DefaultProfiles returns the built-in set of notification sources.
func DefaultProfiles() []Profile {
	return []Profile{
		{
			ID:             "kb",
			Name:           "KB국민은행",
			SourceIDs:      []string{"15889999", "com.kbstar.kbbank"},
			AmountPatterns: commonAmountPatterns,
			MerchantPatterns: []string{
				`승인\s*[0-9,]+원\s*(\S+)`,
				`((?:\(주\)|㈜)\S+)`,
			},
			IncomeKeywords:  []string{"입금", "급여"},
			ExpenseKeywords: []string{"출금", "전자금융출금"},
			CardKeywords:    commonCardKeywords,
			BankKeywords:    commonBankKeywords,
		},
		{
			ID:             "kb-card",
			Name:           "KB국민카드",
			SourceIDs:      []string{"15881688", "com.kbcard.cxh.appcard"},
			AmountPatterns: commonAmountPatterns,
			MerchantPatterns: []string{
				`승인\s*[0-9,]+원\s*(\S+)`,
				`원\s*\(일시불\)\s*(\S+)`,
			},
			IncomeKeywords:  []string{"입금", "승인취소"},
			ExpenseKeywords: []string{"승인", "결제"},
			CardKeywords:    commonCardKeywords,
			BankKeywords:    commonBankKeywords,
		},
		{
			ID:             "shinhan",
			Name:           "신한은행",
			SourceIDs:      []string{"15778000", "com.shinhan.sbanking"},
			AmountPatterns: commonAmountPatterns,
			MerchantPatterns: []string{
				`((?:\(주\)|㈜)\S+)`,
			},
			IncomeKeywords:  []string{"입금", "급여"},
			ExpenseKeywords: []string{"출금", "이체출금"},
			CardKeywords:    commonCardKeywords,
			BankKeywords:    commonBankKeywords,
		},
		{
			ID:             "shinhan-card",
			Name:           "신한카드",
			SourceIDs:      []string{"15447200", "com.shcard.smartpay"},
			AmountPatterns: commonAmountPatterns,
			MerchantPatterns: []string{
				`승인\s*[0-9,]+원\s*(\S+)`,
			},
			IncomeKeywords:  []string{"입금", "승인취소"},
			ExpenseKeywords: []string{"승인", "결제"},
			CardKeywords:    commonCardKeywords,
			BankKeywords:    commonBankKeywords,
		},
		{
			ID:             "kakaobank",
			Name:           "카카오뱅크",
			SourceIDs:      []string{"15333333", "com.kakaobank.channel"},
			AmountPatterns: commonAmountPatterns,
			MerchantPatterns: []string{
				`((?:\(주\)|㈜)\S+)`,
			},
			IncomeKeywords:  []string{"입금", "모임통장입금"},
			ExpenseKeywords: []string{"출금", "이체"},
			CardKeywords:    commonCardKeywords,
			BankKeywords:    commonBankKeywords,
		},
		{
			ID:             "toss",
			Name:           "토스",
			SourceIDs:      []string{"15994905", "viva.republica.toss"},
			AmountPatterns: commonAmountPatterns,
			MerchantPatterns: []string{
				`승인\s*[0-9,]+원\s*(\S+)`,
			},
			IncomeKeywords:  []string{"입금", "받았어요", "충전"},
			ExpenseKeywords: []string{"출금", "결제", "보냈어요"},
			CardKeywords:    commonCardKeywords,
			BankKeywords:    commonBankKeywords,
		},
		{
			ID:             "woori",
			Name:           "우리은행",
			SourceIDs:      []string{"15885000", "com.wooribank.smart.npib"},
			AmountPatterns: commonAmountPatterns,
			MerchantPatterns: []string{
				`((?:\(주\)|㈜)\S+)`,
			},
			IncomeKeywords:  []string{"입금", "급여"},
			ExpenseKeywords: []string{"출금", "자동이체"},
			CardKeywords:    commonCardKeywords,
			BankKeywords:    commonBankKeywords,
		},
	}
}
