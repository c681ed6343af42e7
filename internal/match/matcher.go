// Package match resolves free-text sender names to household members.
package match

import (
	"sort"
	"strings"

	"github.com/moamoa/moa-engine/internal/model"
)

// ResultKind tags a match outcome.
type ResultKind string

// Match outcome constants.
const (
	HighConfidence ResultKind = "HIGH_CONFIDENCE"
	LowConfidence  ResultKind = "LOW_CONFIDENCE"
	NoMatch        ResultKind = "NO_MATCH"
)

// Confidence levels per match rung.
const (
	confidenceExact      = 1.00
	confidenceAlias      = 0.95
	confidenceMaskedReal = 0.75
	confidenceMaskedName = 0.70
	partialCap           = 0.60
	partialBoost         = 0.20
	partialFloor         = 0.30
	highThreshold        = 0.70
)

// Result is the outcome of one match attempt. Best is set for HighConfidence;
// Candidates holds every surviving candidate sorted by descending confidence.
type Result struct {
	Kind         ResultKind
	DetectedName string
	Best         *model.MemberCandidate
	Candidates   []model.MemberCandidate
}

// Matcher resolves names against a household member list.
type Matcher struct{}

// NewMatcher creates a member matcher.
func NewMatcher() *Matcher {
	return &Matcher{}
}

// Resolve runs the match ladder for one detected name. Exact hits on display
// name, legal name, or alias short-circuit; masked and partial matches are
// collected and aggregated.
func (m *Matcher) Resolve(name string, members []model.Member) Result {
	name = strings.TrimSpace(name)
	if name == "" {
		return Result{Kind: NoMatch}
	}

	var candidates []model.MemberCandidate

	for _, member := range members {
		if name == member.Name {
			return exactResult(member, model.MatchNicknameExact, confidenceExact, name)
		}
		if member.RealName != "" && name == member.RealName {
			return exactResult(member, model.MatchRealNameExact, confidenceExact, name)
		}
		for _, alias := range member.Aliases {
			if name == alias {
				return exactResult(member, model.MatchAliasExact, confidenceAlias, name)
			}
		}

		if strings.Contains(name, "*") {
			if member.RealName != "" && maskedEquals(name, member.RealName) {
				candidates = append(candidates, model.MemberCandidate{
					Member:     member,
					MatchType:  model.MatchMaskedName,
					Confidence: confidenceMaskedReal,
				})
			} else if maskedEquals(name, member.Name) {
				candidates = append(candidates, model.MemberCandidate{
					Member:     member,
					MatchType:  model.MatchMaskedName,
					Confidence: confidenceMaskedName,
				})
			}
			continue
		}

		if sim, ok := partialSimilarity(name, member); ok {
			candidates = append(candidates, model.MemberCandidate{
				Member:     member,
				MatchType:  model.MatchPartial,
				Confidence: sim,
			})
		}
	}

	return aggregate(name, candidates)
}

func exactResult(member model.Member, matchType model.MatchType, confidence float64, name string) Result {
	best := model.MemberCandidate{Member: member, MatchType: matchType, Confidence: confidence}
	return Result{
		Kind:         HighConfidence,
		DetectedName: name,
		Best:         &best,
		Candidates:   []model.MemberCandidate{best},
	}
}

// aggregate turns the candidate set into a final outcome: nothing at all is a
// NoMatch, exactly one candidate clearing the high threshold is a
// HighConfidence, anything else needs a human.
func aggregate(name string, candidates []model.MemberCandidate) Result {
	if len(candidates) == 0 {
		return Result{Kind: NoMatch, DetectedName: name}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Confidence > candidates[j].Confidence
	})

	highCount := 0
	for _, c := range candidates {
		if c.Confidence >= highThreshold {
			highCount++
		}
	}

	if highCount == 1 && candidates[0].Confidence >= highThreshold {
		best := candidates[0]
		return Result{
			Kind:         HighConfidence,
			DetectedName: name,
			Best:         &best,
			Candidates:   candidates,
		}
	}

	return Result{Kind: LowConfidence, DetectedName: name, Candidates: candidates}
}

// maskedEquals reports whether a masked input like 홍*동 matches a candidate
// name positionally. Lengths must be equal; a shorter or longer mask matches
// nothing.
func maskedEquals(masked, candidate string) bool {
	mr := []rune(masked)
	cr := []rune(candidate)
	if len(mr) != len(cr) || len(cr) == 0 {
		return false
	}
	for i, r := range mr {
		if r == '*' {
			continue
		}
		if r != cr[i] {
			return false
		}
	}
	return true
}

// partialSimilarity scores how much of the input appears in the member's
// names. A shared first character boosts the score, a differing one halves
// it; scores below the floor are discarded.
func partialSimilarity(name string, member model.Member) (float64, bool) {
	best := 0.0
	found := false
	for _, candidate := range []string{member.Name, member.RealName} {
		if candidate == "" {
			continue
		}
		if sim, ok := similarity(name, candidate); ok && sim > best {
			best = sim
			found = true
		}
	}
	return best, found
}

func similarity(name, candidate string) (float64, bool) {
	nr := []rune(name)
	cr := []rune(candidate)
	if len(nr) == 0 || len(cr) == 0 {
		return 0, false
	}

	candidateSet := make(map[rune]bool, len(cr))
	for _, r := range cr {
		candidateSet[r] = true
	}

	shared := 0
	for _, r := range nr {
		if candidateSet[r] {
			shared++
		}
	}

	maxLen := len(nr)
	if len(cr) > maxLen {
		maxLen = len(cr)
	}
	sim := float64(shared) / float64(maxLen)

	if nr[0] == cr[0] {
		sim += partialBoost
		if sim > partialCap {
			sim = partialCap
		}
	} else {
		sim /= 2
	}

	if sim < partialFloor {
		return 0, false
	}
	return sim, true
}
