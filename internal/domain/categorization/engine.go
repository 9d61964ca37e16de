package categorization

import (
	"sort"
	"strings"
	"sync"

	"github.com/cloudflare/ahocorasick"

	"github.com/FACorreiaa/echo-voice-assistant/internal/domain/assistant/nlp"
)

// KeywordEntry binds a list of vocabulary terms to a canonical category name.
// Entries earlier in a dictionary win over later ones when several match.
type KeywordEntry struct {
	Category string   // Canonical category name, compared accent- and case-insensitively
	Terms    []string // Words or short phrases that point at the category
}

// MatchResult represents a single dictionary hit with its associated metadata
type MatchResult struct {
	Category string // Canonical category name of the entry that matched
	Term     string // The term found in the description
	Priority int    // Higher priority matches take precedence
}

// Engine matches a description against every dictionary term in one pass
// using the Aho-Corasick algorithm. Terms and descriptions are folded and
// padded with spaces so that only whole words match: "bar" never fires
// inside "barbearia".
type Engine struct {
	matcher  *ahocorasick.Matcher
	patterns []string        // Unique padded patterns in the same order as matcher
	metadata [][]MatchResult // Every entry that registered a given pattern
	mu       sync.RWMutex    // Protects rebuilding the matcher
}

// NewEngine creates an engine for one dictionary.
func NewEngine(entries []KeywordEntry) *Engine {
	e := &Engine{}
	e.Build(entries)
	return e
}

// Build constructs the automaton from a dictionary. It can be called again to
// swap the dictionary while other goroutines are matching.
func (e *Engine) Build(entries []KeywordEntry) {
	patternToIndex := make(map[string]int)
	var (
		patterns []string
		metadata [][]MatchResult
	)

	for i, entry := range entries {
		priority := len(entries) - i
		for _, term := range entry.Terms {
			padded := pad(term)
			if strings.TrimSpace(padded) == "" {
				continue
			}
			result := MatchResult{Category: entry.Category, Term: term, Priority: priority}
			if idx, ok := patternToIndex[padded]; ok {
				metadata[idx] = append(metadata[idx], result)
				continue
			}
			patternToIndex[padded] = len(patterns)
			patterns = append(patterns, padded)
			metadata = append(metadata, []MatchResult{result})
		}
	}

	var matcher *ahocorasick.Matcher
	if len(patterns) > 0 {
		bytePatterns := make([][]byte, len(patterns))
		for i, p := range patterns {
			bytePatterns[i] = []byte(p)
		}
		matcher = ahocorasick.NewMatcher(bytePatterns)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.matcher = matcher
	e.patterns = patterns
	e.metadata = metadata
}

// Match returns one result per matched category, highest priority first.
// Returns nil if nothing matches.
func (e *Engine) Match(description string) []MatchResult {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.matcher == nil {
		return nil
	}

	// Match keeps per-call state inside the matcher; the thread safe variant
	// lets concurrent turns share one automaton.
	hits := e.matcher.MatchThreadSafe([]byte(pad(description)))
	if len(hits) == 0 {
		return nil
	}

	best := make(map[string]MatchResult)
	for _, idx := range hits {
		for _, result := range e.metadata[idx] {
			if cur, ok := best[result.Category]; !ok || result.Priority > cur.Priority {
				best[result.Category] = result
			}
		}
	}

	results := make([]MatchResult, 0, len(best))
	for _, r := range best {
		results = append(results, r)
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Priority != results[j].Priority {
			return results[i].Priority > results[j].Priority
		}
		return results[i].Category < results[j].Category
	})
	return results
}

// PatternCount returns the number of unique patterns in the engine
func (e *Engine) PatternCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.patterns)
}

// IsEmpty returns true if the engine has no patterns
func (e *Engine) IsEmpty() bool {
	return e.PatternCount() == 0
}

// pad folds s into space-separated tokens surrounded by single spaces.
func pad(s string) string {
	return " " + strings.Join(nlp.Tokens(nlp.Fold(s)), " ") + " "
}
