package parser

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Sender-name shapes for income notifications, tried in order: a (possibly
// masked) name before a deposit/transfer keyword, after one, or behind an
// explicit sender label.
var senderPatterns = []*regexp.Regexp{
	regexp.MustCompile(`([가-힣][가-힣*]{1,3})\s*님?\s*(?:입금|이체)`),
	regexp.MustCompile(`(?:입금|이체)\s*(?:[0-9,]+원?\s*)?([가-힣][가-힣*]{1,3})\s*님?`),
	regexp.MustCompile(`보낸분\s*:?\s*(\S+)`),
}

// Canned deposit reasons used when no sender name is present in the text.
var depositReasons = []string{"환불", "급여", "이자", "용돈", "취소"}

// extractSender finds the sender name in an income notification, or "" when
// the text carries no extractable name. A blank result is meaningful
// downstream: it is what lets learned patterns take over.
func extractSender(text string, foreign bool) string {
	for _, re := range senderPatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		candidate := strings.TrimSuffix(strings.TrimSpace(m[1]), "님")
		if isValidSender(candidate, foreign) {
			return candidate
		}
	}

	return ""
}

// depositLabel returns the display label for a deposit with no sender name:
// a recognizable canned reason, failing that the generic 입금 label.
func depositLabel(text string) string {
	for _, reason := range depositReasons {
		if strings.Contains(text, reason) {
			return reason
		}
	}
	return "입금"
}

// isValidSender mirrors the merchant rules but tolerates mask characters,
// since masked personal names are exactly what income notifications carry.
func isValidSender(s string, foreign bool) bool {
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
	// A canned reason (급여, 환불, ...) before 입금 looks like a name to the
	// patterns above but is a label, not a person.
	for _, reason := range depositReasons {
		if s == reason {
			return false
		}
	}

	if numericToken.MatchString(s) {
		return false
	}

	if foreign && !hasLatinLetter.MatchString(s) {
		return false
	}
	return hasLetter.MatchString(s) || strings.Contains(s, "*")
}
