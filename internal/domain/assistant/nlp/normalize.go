// Package nlp turns free-form pt-BR utterances into typed assistant slots.
// Everything in this package is a pure function of (text, now).
package nlp

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	spacePattern = regexp.MustCompile(`\s+`)
	wordPattern  = regexp.MustCompile(`[\p{L}\p{N}$]+`)

	// Speech transcribers often glue these together.
	collapsedVariants = []struct {
		pattern *regexp.Regexp
		repl    string
	}{
		{regexp.MustCompile(`\bpramim\b`), "pra mim"},
		{regexp.MustCompile(`\bparamim\b`), "para mim"},
		{regexp.MustCompile(`\bporcabeca\b`), "por cabeca"},
		{regexp.MustCompile(`\bcadaum\b`), "cada um"},
		{regexp.MustCompile(`\bcadauma\b`), "cada uma"},
		{regexp.MustCompile(`\bomeu\b`), "o meu"},
		{regexp.MustCompile(`\bminhaparte\b`), "minha parte"},
	}

	noiseTokens = map[string]bool{
		"hum": true, "hmm": true, "ahn": true, "eh": true, "ne": true,
		"uhm": true, "aham": true,
	}

	lowercaseWords = map[string]bool{
		"de": true, "da": true, "do": true, "das": true, "dos": true,
		"e": true, "em": true, "no": true, "na": true, "nos": true, "nas": true,
		"com": true, "para": true, "por": true,
	}

	acronyms = map[string]bool{
		"cdb": true, "lci": true, "lca": true, "ipva": true, "iptu": true, "pix": true,
		"fgts": true, "inss": true, "tv": true, "fii": true,
	}
)

// Fold lowercases s and strips combining marks, so "Almoço" becomes "almoco".
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, strings.ToLower(s))
	if err != nil {
		return strings.ToLower(s)
	}
	return folded
}

// Normalize folds case and accents, expands glued transcription variants,
// drops hesitation noise and rewrites punctuation so that commas separate
// clauses while decimal separators between digits survive.
func Normalize(s string) string {
	folded := Fold(s)
	folded = normalizePunctuation(folded)
	for _, v := range collapsedVariants {
		folded = v.pattern.ReplaceAllString(folded, v.repl)
	}

	words := strings.Fields(folded)
	kept := words[:0]
	for _, w := range words {
		if noiseTokens[strings.Trim(w, ",")] {
			if strings.HasSuffix(w, ",") && len(kept) > 0 && !strings.HasSuffix(kept[len(kept)-1], ",") {
				kept[len(kept)-1] += ","
			}
			continue
		}
		kept = append(kept, w)
	}
	return strings.TrimSpace(strings.Trim(strings.Join(kept, " "), ", "))
}

// normalizePunctuation maps clause punctuation to ", " and removes symbols
// that never carry meaning for extraction.
func normalizePunctuation(s string) string {
	rs := []rune(s)
	var b strings.Builder
	b.Grow(len(s))
	for i, r := range rs {
		switch r {
		case ',', '.':
			if i > 0 && i < len(rs)-1 && unicode.IsDigit(rs[i-1]) && unicode.IsDigit(rs[i+1]) {
				b.WriteRune(r)
				continue
			}
			b.WriteString(", ")
		case ';', '!', '?', ':':
			b.WriteString(", ")
		case '"', '\'', '(', ')', '[', ']', '*', '“', '”':
			b.WriteRune(' ')
		default:
			b.WriteRune(r)
		}
	}
	out := spacePattern.ReplaceAllString(b.String(), " ")
	out = strings.ReplaceAll(out, " ,", ",")
	for strings.Contains(out, ",,") {
		out = strings.ReplaceAll(out, ",,", ",")
	}
	return strings.TrimSpace(out)
}

// Tokens splits normalized text into words, dropping punctuation.
func Tokens(s string) []string {
	return wordPattern.FindAllString(s, -1)
}

// ContentTokens returns folded tokens with at least minLen runes.
func ContentTokens(s string, minLen int) []string {
	var out []string
	for _, t := range Tokens(Fold(s)) {
		if len([]rune(t)) >= minLen {
			out = append(out, t)
		}
	}
	return out
}

// accentIndex maps folded words back to their accented lowercase spelling
// as typed in the original utterance.
func accentIndex(original string) map[string]string {
	idx := make(map[string]string)
	for _, w := range wordPattern.FindAllString(strings.ToLower(original), -1) {
		f := Fold(w)
		if _, ok := idx[f]; !ok && f != w {
			idx[f] = w
		}
	}
	return idx
}

// TitleCase capitalises every word except connecting prepositions, which stay
// lowercase unless they open the phrase.
func TitleCase(s string) string {
	// Casers carry state and must not be shared between goroutines.
	caser := cases.Title(language.BrazilianPortuguese)
	words := strings.Fields(s)
	for i, w := range words {
		lw := strings.ToLower(w)
		if i > 0 && lowercaseWords[lw] {
			words[i] = lw
			continue
		}
		if acronyms[lw] {
			words[i] = strings.ToUpper(lw)
			continue
		}
		words[i] = caser.String(lw)
	}
	return strings.Join(words, " ")
}

func collapseSpaces(s string) string {
	return strings.TrimSpace(spacePattern.ReplaceAllString(s, " "))
}
