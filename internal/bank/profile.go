// Package bank provides the registry of known notification sources and
// their per-source parsing rules.
package bank

import (
	"fmt"
	"regexp"
)

// Profile describes one notification source: how to recognize it and how to
// pull amounts and merchant names out of its message format. Profiles are
// immutable once registered.
type Profile struct {
	ID               string
	Name             string
	SourceIDs        []string // SMS short codes and push package ids
	AmountPatterns   []string // domestic patterns, tried in order, one capture group
	MerchantPatterns []string // expense merchant patterns, tried in order
	IncomeKeywords   []string
	ExpenseKeywords  []string
	CardKeywords     []string // style keywords for duplicate classification
	BankKeywords     []string
}

// Registry is the read-only table of registered profiles with pre-compiled
// extraction patterns. Construct once and share.
type Registry struct {
	bySource map[string]*Profile
	amountRe map[string][]*regexp.Regexp
	merchRe  map[string][]*regexp.Regexp
	profiles []Profile
}

// NewRegistry builds a registry from the given profiles. Patterns that fail
// to compile are rejected up front rather than silently skipped at parse time.
func NewRegistry(profiles []Profile) (*Registry, error) {
	r := &Registry{
		profiles: profiles,
		bySource: make(map[string]*Profile),
		amountRe: make(map[string][]*regexp.Regexp),
		merchRe:  make(map[string][]*regexp.Regexp),
	}

	for i := range r.profiles {
		p := &r.profiles[i]
		if p.ID == "" {
			return nil, fmt.Errorf("profile %q has no id", p.Name)
		}
		for _, src := range p.SourceIDs {
			if existing, ok := r.bySource[src]; ok {
				return nil, fmt.Errorf("source %q registered by both %q and %q", src, existing.ID, p.ID)
			}
			r.bySource[src] = p
		}
		for _, pat := range p.AmountPatterns {
			re, err := regexp.Compile(pat)
			if err != nil {
				return nil, fmt.Errorf("profile %q amount pattern %q: %w", p.ID, pat, err)
			}
			r.amountRe[p.ID] = append(r.amountRe[p.ID], re)
		}
		for _, pat := range p.MerchantPatterns {
			re, err := regexp.Compile(pat)
			if err != nil {
				return nil, fmt.Errorf("profile %q merchant pattern %q: %w", p.ID, pat, err)
			}
			r.merchRe[p.ID] = append(r.merchRe[p.ID], re)
		}
	}

	return r, nil
}

// NewDefaultRegistry builds a registry from the built-in profiles.
func NewDefaultRegistry() (*Registry, error) {
	return NewRegistry(DefaultProfiles())
}

// BySource returns the profile whose source identifiers include the given
// source id, or nil if no profile claims it.
func (r *Registry) BySource(sourceID string) *Profile {
	return r.bySource[sourceID]
}

// ByID returns the profile with the given id, or nil.
func (r *Registry) ByID(id string) *Profile {
	for i := range r.profiles {
		if r.profiles[i].ID == id {
			return &r.profiles[i]
		}
	}
	return nil
}

// All returns every registered profile.
func (r *Registry) All() []Profile {
	return r.profiles
}

// AmountPatterns returns the compiled domestic amount patterns for a profile,
// in declaration order.
func (r *Registry) AmountPatterns(profileID string) []*regexp.Regexp {
	return r.amountRe[profileID]
}

// MerchantPatterns returns the compiled merchant patterns for a profile,
// in declaration order.
func (r *Registry) MerchantPatterns(profileID string) []*regexp.Regexp {
	return r.merchRe[profileID]
}
