package model

// Member is one person in a household group.
type Member struct {
	ID       string
	GroupID  string
	Name     string // display name / nickname
	RealName string // optional legal name
	Aliases  []string
}

// MatchType indicates how a free-text sender name matched a member.
type MatchType string

// Match type constants, strongest first.
const (
	MatchNicknameExact MatchType = "NICKNAME_EXACT"
	MatchRealNameExact MatchType = "REALNAME_EXACT"
	MatchAliasExact    MatchType = "ALIAS_EXACT"
	MatchMaskedName    MatchType = "MASKED_NAME"
	MatchPartial       MatchType = "PARTIAL"
)

// MemberCandidate is one possible member match with a confidence score in [0,1].
type MemberCandidate struct {
	Member     Member
	MatchType  MatchType
	Confidence float64
}
