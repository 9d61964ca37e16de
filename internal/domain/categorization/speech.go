package categorization

import (
	"strings"

	"github.com/FACorreiaa/echo-voice-assistant/internal/domain/assistant"
	"github.com/FACorreiaa/echo-voice-assistant/internal/domain/assistant/nlp"
)

var ordinals = map[string]int{
	"primeira": 0, "primeiro": 0,
	"segunda": 1, "segundo": 1,
	"terceira": 2, "terceiro": 2,
}

// MatchSpoken picks the disambiguation option the user named. A spoken
// answer that contains a whole option name wins (longest name first);
// otherwise the option sharing the most words with the answer is chosen,
// ties broken by fuzzy rank. Ordinals ("a segunda") are the last resort.
func MatchSpoken(spoken string, options []assistant.CategoryOption) (assistant.CategoryOption, bool) {
	if len(options) == 0 || strings.TrimSpace(spoken) == "" {
		return assistant.CategoryOption{}, false
	}

	text := pad(spoken)
	best, bestLen := -1, 0
	for i, o := range options {
		name := pad(o.Name)
		if strings.TrimSpace(name) == "" {
			continue
		}
		if strings.Contains(text, name) && len(name) > bestLen {
			best, bestLen = i, len(name)
		}
	}
	if best >= 0 {
		return options[best], true
	}

	names := make([]string, len(options))
	for i, o := range options {
		names[i] = o.Name
	}
	if r, ok := NewFuzzyMatcher(names).Best(strings.Join(wordsOnly(spoken), " ")); ok {
		return options[r.Index], true
	}

	for _, w := range nlp.Tokens(nlp.Fold(spoken)) {
		if idx, ok := ordinals[w]; ok && idx < len(options) {
			return options[idx], true
		}
	}
	return assistant.CategoryOption{}, false
}

// wordsOnly drops yes/no fillers and ordinals so they never count as overlap.
func wordsOnly(spoken string) []string {
	var out []string
	for _, w := range nlp.Tokens(nlp.Fold(spoken)) {
		if _, ok := ordinals[w]; ok || answerFillers[w] {
			continue
		}
		out = append(out, w)
	}
	return out
}

var answerFillers = map[string]bool{
	"sim": true, "nao": true, "isso": true, "essa": true, "esse": true, "pode": true,
	"ser": true, "coloca": true, "bota": true, "categoria": true, "opcao": true, "mesmo": true,
	"quero": true, "por": true, "favor": true, "pra": true, "para": true,
}
