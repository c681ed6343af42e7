// Package learn captures user corrections as reusable extraction patterns
// and tracks how well each pattern performs on later notifications.
package learn

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/moamoa/moa-engine/internal/model"
	"github.com/moamoa/moa-engine/internal/service"
)

// Derived pattern shapes. The gap allows up to a dozen characters of amount
// and punctuation between the anchor keyword and the name.
const (
	amountCommaPattern   = `([0-9]{1,3}(?:,[0-9]{3})*)원?`
	amountPlainPattern   = `([0-9]+)원?`
	senderGenericPattern = `([가-힣]{2,4})`
	senderAfterDeposit   = `입금.{0,12}?([가-힣]{2,4})`
	senderHonorific      = `([가-힣]{2,4})님`
	senderBeforeDeposit  = `([가-힣]{2,4}).{0,12}?입금`
)

// Account shapes a learned pattern may capture, tried in order.
var accountShapes = []string{
	`[0-9]{2,6}-[0-9]{2,6}-[0-9]{2,6}`,
	`[0-9]{2,6}\*{2,}[0-9]{2,6}`,
	`[0-9*]{6,14}`,
}

// Correction is a user's confirmed manual fix for one notification.
type Correction struct {
	RawText    string
	SenderName string
	BankName   string
	GoalID     string
	Amount     int64
}

// Learner derives patterns from corrections and persists them.
type Learner struct {
	storage service.Storage
}

// NewLearner creates a learner over the given store.
func NewLearner(storage service.Storage) *Learner {
	return &Learner{storage: storage}
}

// Learn derives the regex triple from a confirmed correction and persists it
// as an active pattern for the owning goal.
func (l *Learner) Learn(ctx context.Context, c Correction) (*model.LearnedPattern, error) {
	if c.RawText == "" || c.SenderName == "" || c.GoalID == "" {
		return nil, fmt.Errorf("correction needs raw text, sender name, and goal id")
	}

	pattern := &model.LearnedPattern{
		GoalID:         c.GoalID,
		BankName:       c.BankName,
		SampleText:     c.RawText,
		AmountPattern:  deriveAmountPattern(c.RawText, c.Amount),
		SenderPattern:  deriveSenderPattern(c.RawText, c.SenderName),
		AccountPattern: deriveAccountPattern(c.RawText),
		Active:         true,
	}

	if err := pattern.Validate(); err != nil {
		return nil, fmt.Errorf("invalid derived pattern: %w", err)
	}
	if err := l.storage.CreateLearnedPattern(ctx, pattern); err != nil {
		return nil, fmt.Errorf("failed to save learned pattern: %w", err)
	}

	return pattern, nil
}

// deriveAmountPattern picks the amount shape that matches how the confirmed
// amount actually appears in the sample text.
func deriveAmountPattern(text string, amount int64) string {
	if amount > 0 {
		if strings.Contains(text, groupDigits(amount)) {
			return amountCommaPattern
		}
		if strings.Contains(text, strconv.FormatInt(amount, 10)) {
			return amountPlainPattern
		}
	}
	return amountCommaPattern
}

// deriveSenderPattern inspects the characters around the confirmed name and
// anchors the pattern to whatever context it finds: a preceding deposit
// keyword, a trailing honorific, a following deposit keyword, the literal
// token right before the name, or nothing. Every candidate must re-extract
// the confirmed name from the sample itself; when none can, the name is
// quoted verbatim instead.
func deriveSenderPattern(text, name string) string {
	idx := strings.Index(text, name)
	if idx < 0 {
		return senderGenericPattern
	}

	before := contextBefore(text, idx, 12)
	after := contextAfter(text, idx+len(name), 12)

	var candidates []string
	switch {
	case strings.Contains(before, "입금"):
		candidates = append(candidates, senderAfterDeposit)
	case strings.HasPrefix(after, "님"):
		candidates = append(candidates, senderHonorific)
	case strings.Contains(after, "입금"):
		candidates = append(candidates, senderBeforeDeposit)
	}

	// Anchoring on the preceding token handles layouts where the name follows
	// a fixed label (메모, 받는분). Tokens carrying digits are amounts or
	// account fragments and do not generalize across notifications.
	if anchor := tokenBefore(text, idx); anchor != "" && !strings.ContainsAny(anchor, "0123456789") {
		candidates = append(candidates, regexp.QuoteMeta(anchor)+`\s*([가-힣]{2,4})`)
	}
	candidates = append(candidates, senderGenericPattern)

	for _, candidate := range candidates {
		if extractsExactly(candidate, text, name) {
			return candidate
		}
	}
	return "(" + regexp.QuoteMeta(name) + ")"
}

// tokenBefore returns the whitespace-delimited token immediately preceding
// byte offset idx, or "" when the name starts the text.
func tokenBefore(text string, idx int) string {
	fields := strings.Fields(text[:idx])
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}

// deriveAccountPattern returns the first account shape present in the text.
func deriveAccountPattern(text string) string {
	for _, shape := range accountShapes {
		if regexp.MustCompile(shape).MatchString(text) {
			return shape
		}
	}
	return ""
}

// extractsExactly reports whether applying the pattern to the text captures
// precisely the given name.
func extractsExactly(pattern, text, name string) bool {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false
	}
	m := re.FindStringSubmatch(text)
	return m != nil && m[1] == name
}

// groupDigits renders an amount with thousands separators, e.g. 50000 to
// "50,000".
func groupDigits(amount int64) string {
	s := strconv.FormatInt(amount, 10)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteString(",")
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// contextBefore returns up to n runes immediately before byte offset idx.
func contextBefore(text string, idx, n int) string {
	runes := []rune(text[:idx])
	if len(runes) > n {
		runes = runes[len(runes)-n:]
	}
	return string(runes)
}

// contextAfter returns up to n runes starting at byte offset idx.
func contextAfter(text string, idx, n int) string {
	if idx >= len(text) {
		return ""
	}
	runes := []rune(text[idx:])
	if len(runes) > n {
		runes = runes[:n]
	}
	return string(runes)
}
