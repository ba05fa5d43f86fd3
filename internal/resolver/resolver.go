// Package resolver maps free-text company names extracted from prose to
// reference instruments via normalization and token-overlap scoring.
package resolver

import (
	"strings"

	"BlogHarvester/internal/domain"
)

// Corporate suffixes carry no identity and are stripped before matching.
var corporateSuffixes = map[string]struct{}{
	"ltd":          {},
	"limited":      {},
	"pvt":          {},
	"private":      {},
	"co":           {},
	"corp":         {},
	"corporation":  {},
	"inc":          {},
	"incorporated": {},
	"company":      {},
	"industries":   {},
	"enterprises":  {},
}

var punctReplacer = strings.NewReplacer(
	".", " ", ",", " ", "&", " and ", "-", " ", "(", " ", ")", " ",
	"/", " ", ":", " ", ";", " ",
)

// Resolver scores extracted names against the reference company list.
// Reads are safe to share across goroutines; the reference slice is
// never mutated after construction.
type Resolver struct {
	refs         []ref
	minOverlap   float64
	minMarketCap float64
}

type ref struct {
	company    domain.CompanyReference
	normalized string
	tokens     []string
	tokenSet   map[string]struct{}
}

// Match is a successful resolution with its confidence score.
type Match struct {
	Company    domain.CompanyReference
	Confidence float64
}

// New indexes the reference list. minOverlap gates fuzzy matches and
// minMarketCap excludes illiquid or shell entries.
func New(companies []domain.CompanyReference, minOverlap, minMarketCap float64) *Resolver {
	r := &Resolver{minOverlap: minOverlap, minMarketCap: minMarketCap}
	for _, c := range companies {
		normalized := Normalize(c.Name)
		if normalized == "" {
			continue
		}
		tokens := strings.Fields(normalized)
		set := make(map[string]struct{}, len(tokens))
		for _, t := range tokens {
			set[t] = struct{}{}
		}
		r.refs = append(r.refs, ref{company: c, normalized: normalized, tokens: tokens, tokenSet: set})
	}
	return r
}

// Normalize lowercases, collapses possessives, strips corporate
// suffixes and punctuation, and collapses whitespace.
func Normalize(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, "’s", "s")
	name = strings.ReplaceAll(name, "'s", "s")
	name = strings.ReplaceAll(name, "'", "")
	name = punctReplacer.Replace(name)

	fields := strings.Fields(name)
	kept := fields[:0]
	for _, f := range fields {
		if _, drop := corporateSuffixes[f]; drop {
			continue
		}
		kept = append(kept, f)
	}
	return strings.Join(kept, " ")
}

// Resolve returns at most one reference for an extracted name. Exact
// matches (ticker code, then normalized-name equality guarded by token
// count) carry confidence 1; otherwise the best token-overlap candidate
// at or above the floor wins. A candidate below the market-cap floor is
// rejected, producing no match rather than an error.
func (r *Resolver) Resolve(extracted string) (Match, bool) {
	trimmed := strings.TrimSpace(extracted)
	if trimmed == "" {
		return Match{}, false
	}

	// (a) extracted string equals an exchange ticker code.
	upper := strings.ToUpper(trimmed)
	for _, candidate := range r.refs {
		if upper == candidate.company.NSECode || upper == candidate.company.BSECode {
			return r.accept(candidate, 1)
		}
	}

	normalized := Normalize(trimmed)
	if normalized == "" {
		return Match{}, false
	}
	tokens := strings.Fields(normalized)

	// (b) normalized equality (prose often drops trailing name words, so
	// a leading-token match counts), guarded so a single-token extracted
	// name never matches a multi-token reference.
	for _, candidate := range r.refs {
		exact := normalized == candidate.normalized ||
			strings.HasPrefix(candidate.normalized, normalized+" ")
		if exact && structuralGuard(tokens, candidate.tokens) {
			return r.accept(candidate, 1)
		}
	}

	// (c) token-set overlap against every reference; greedy best match.
	var (
		best      *ref
		bestScore float64
	)
	for i := range r.refs {
		candidate := &r.refs[i]
		// The min-denominator metric scores any single shared token at
		// 1.0 against a one-token name, so the structural guard applies
		// here too.
		if !structuralGuard(tokens, candidate.tokens) {
			continue
		}
		score := overlap(tokens, candidate.tokenSet, len(candidate.tokens))
		if score > bestScore {
			best = candidate
			bestScore = score
		}
	}
	if best == nil || bestScore < r.minOverlap {
		return Match{}, false
	}
	return r.accept(*best, bestScore)
}

func (r *Resolver) accept(candidate ref, confidence float64) (Match, bool) {
	c := candidate.company
	if !c.MarketCapChecked || c.MarketCap < r.minMarketCap {
		return Match{}, false
	}
	return Match{Company: c, Confidence: confidence}, true
}

// structuralGuard rejects an exact-string match whose token counts
// disagree in the single-vs-multi direction.
func structuralGuard(extracted, reference []string) bool {
	if len(extracted) == 1 && len(reference) > 1 {
		return false
	}
	return true
}

// overlap is |common tokens| / min(|extracted|, |reference|).
func overlap(extracted []string, referenceSet map[string]struct{}, referenceLen int) float64 {
	if len(extracted) == 0 || referenceLen == 0 {
		return 0
	}
	common := 0
	seen := map[string]struct{}{}
	for _, t := range extracted {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := referenceSet[t]; ok {
			common++
		}
	}
	min := len(seen)
	if referenceLen < min {
		min = referenceLen
	}
	return float64(common) / float64(min)
}
