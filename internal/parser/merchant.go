package parser

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/moamoa/moa-engine/internal/bank"
)

// Operational words that never name a merchant. A token containing any of
// these is noise from the notification template.
var excludedKeywords = []string{
	"승인", "출금", "입금", "결제", "취소", "잔액", "금액", "누적",
	"일시불", "할부", "체크카드", "신용카드", "카드", "전자금융",
	"계좌", "통장", "Web발신", "국외", "해외",
}

// Institution names are senders of the notification, not counterparties.
var institutionKeywords = []string{
	"국민", "신한", "우리", "하나", "농협", "기업",
	"카카오뱅크", "카카오페이", "토스", "KB", "NH", "IBK",
}

var (
	// Pure number/mask/date/time tokens: digits plus separators only.
	numericToken = regexp.MustCompile(`^[0-9,.:/\-*원]+$`)

	// A 2–3 character name with the wildcard in the privacy-mask position,
	// e.g. 홍*동 or 김*. That is someone's masked name, not a merchant.
	maskedNameToken = regexp.MustCompile(`^[가-힣]\*[가-힣]?$`)

	// Currency codes and symbol-prefixed amounts from foreign notifications.
	currencyToken = regexp.MustCompile(`^[$€¥£]?(?:USD|JPY|EUR|CNY|GBP)[0-9.,]*$`)

	hasLetter      = regexp.MustCompile(`[A-Za-z가-힣]`)
	hasLatinLetter = regexp.MustCompile(`[A-Za-z]`)
)

// extractMerchant finds the merchant name in an expense notification. The
// profile's merchant patterns run first; if none capture a valid name, the
// first valid whitespace-split token wins.
func (p *Parser) extractMerchant(profile *bank.Profile, text string, foreign bool) string {
	if !foreign {
		for _, re := range p.registry.MerchantPatterns(profile.ID) {
			m := re.FindStringSubmatch(text)
			if m == nil {
				continue
			}
			candidate := strings.TrimSpace(m[len(m)-1])
			if isValidMerchant(candidate, foreign) {
				return candidate
			}
		}
	}

	for _, token := range strings.Fields(text) {
		token = strings.Trim(token, "[]()")
		if isValidMerchant(token, foreign) {
			return token
		}
	}

	return ""
}

// isValidMerchant applies the merchant/sender candidate rules: sane length,
// no operational or institution words, not a bare number/mask/date token,
// not a masked personal name, and at least one real letter (a Latin one for
// foreign text).
func isValidMerchant(s string, foreign bool) bool {
	n := utf8.RuneCountInString(s)
	if n < 2 || n > 30 {
		return false
	}

	for _, kw := range excludedKeywords {
		if strings.Contains(s, kw) {
			return false
		}
	}
	for _, kw := range institutionKeywords {
		if strings.Contains(s, kw) {
			return false
		}
	}

	if numericToken.MatchString(s) {
		return false
	}
	if maskedNameToken.MatchString(s) {
		return false
	}
	if currencyToken.MatchString(s) {
		return false
	}

	if foreign {
		return hasLatinLetter.MatchString(s)
	}
	if !hasLetter.MatchString(s) {
		return false
	}
	return !looksLikeAmount(s)
}
