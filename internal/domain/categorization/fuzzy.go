package categorization

import (
	"sort"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/FACorreiaa/echo-voice-assistant/internal/domain/assistant/nlp"
)

// FuzzyMatchResult represents how well a text matches one candidate name
type FuzzyMatchResult struct {
	Index   int    // Position of the candidate in the matcher
	Name    string // The candidate name
	Matched int    // Text tokens found in the name
	Total   int    // Text tokens considered
	Rank    int    // Summed fuzzy distance of the matched tokens (lower = closer match)
}

// Ratio is the share of text tokens that matched the candidate.
func (r FuzzyMatchResult) Ratio() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Matched) / float64(r.Total)
}

// FuzzyMatcher ranks candidate names against free text. A token matches a
// name when its letters appear in order inside the name ("farm" in
// "Farmácia") or when it is one edit away from a word of the name, which
// absorbs most transcription slips.
type FuzzyMatcher struct {
	names  []string
	tokens [][]string
}

// NewFuzzyMatcher creates a matcher over candidate names. Result indexes
// refer to positions in names.
func NewFuzzyMatcher(names []string) *FuzzyMatcher {
	fm := &FuzzyMatcher{names: names, tokens: make([][]string, len(names))}
	for i, n := range names {
		fm.tokens[i] = nlp.Tokens(nlp.Fold(n))
	}
	return fm
}

// RankMatches returns every candidate ranked by matched tokens (highest
// first), then by fuzzy distance (lowest first), then by position.
func (fm *FuzzyMatcher) RankMatches(text string) []FuzzyMatchResult {
	textTokens := nlp.ContentTokens(text, MinTokenLength)
	results := make([]FuzzyMatchResult, 0, len(fm.names))

	for i, name := range fm.names {
		r := FuzzyMatchResult{Index: i, Name: name, Total: len(textTokens)}
		for _, t := range textTokens {
			if d, ok := fm.tokenDistance(t, i); ok {
				r.Matched++
				r.Rank += d
			}
		}
		results = append(results, r)
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Matched != results[j].Matched {
			return results[i].Matched > results[j].Matched
		}
		if results[i].Rank != results[j].Rank {
			return results[i].Rank < results[j].Rank
		}
		return results[i].Index < results[j].Index
	})
	return results
}

// Best returns the top ranked candidate, or false when no token matched any.
func (fm *FuzzyMatcher) Best(text string) (FuzzyMatchResult, bool) {
	ranked := fm.RankMatches(text)
	if len(ranked) == 0 || ranked[0].Matched == 0 {
		return FuzzyMatchResult{}, false
	}
	return ranked[0], true
}

// tokenDistance reports whether token matches candidate i and how far it is.
func (fm *FuzzyMatcher) tokenDistance(token string, i int) (int, bool) {
	if rank := fuzzy.RankMatchNormalizedFold(token, fm.names[i]); rank >= 0 {
		return rank, true
	}
	best := -1
	for _, w := range fm.tokens[i] {
		if len(w) < MinTokenLength {
			continue
		}
		if d := levenshteinDistance(token, w); d <= 1 && (best < 0 || d < best) {
			best = d
		}
	}
	return best, best >= 0
}

// levenshteinDistance calculates the minimum number of single-character edits
// (insertions, deletions, substitutions) needed to transform s1 into s2.
func levenshteinDistance(s1, s2 string) int {
	r1, r2 := []rune(s1), []rune(s2)
	if len(r1) == 0 {
		return len(r2)
	}
	if len(r2) == 0 {
		return len(r1)
	}

	// Only two rows of the matrix are needed at a time
	prev := make([]int, len(r2)+1)
	curr := make([]int, len(r2)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(r1); i++ {
		curr[0] = i
		for j := 1; j <= len(r2); j++ {
			cost := 1
			if r1[i-1] == r2[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	return prev[len(r2)]
}
