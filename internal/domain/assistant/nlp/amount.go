package nlp

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Amount is one monetary fragment found in normalized text.
type Amount struct {
	Value decimal.Decimal
	Start int
	End   int
}

// span is a half-open byte range already claimed by another extractor.
type span struct{ start, end int }

func (s span) overlaps(start, end int) bool {
	return start < s.end && end > s.start
}

var (
	amountPattern = regexp.MustCompile(`(r\$\s*)?(\d{1,3}(?:\.\d{3})+(?:,\d{1,2})?|\d+(?:[.,]\d{1,2})?)(\s*(?:reais|real|contos?|pilas?)\b)?`)

	// Counted nouns that make a bare number a quantity rather than money.
	unitNouns = map[string]bool{
		"parcela": true, "parcelas": true, "vez": true, "vezes": true, "x": true,
		"pessoa": true, "pessoas": true, "amigo": true, "amigos": true, "amiga": true, "amigas": true,
		"colega": true, "colegas": true, "dia": true, "dias": true, "mes": true, "meses": true,
		"ano": true, "anos": true, "hora": true, "horas": true, "minuto": true, "minutos": true,
		"km": true, "kg": true, "litro": true, "litros": true, "unidade": true, "unidades": true,
		"item": true, "itens": true, "filho": true, "filhos": true,
	}

	// Words that announce a value right after them.
	valueCues = map[string]bool{
		"deu": true, "foi": true, "custou": true, "custa": true, "saiu": true, "ficou": true,
		"paguei": true, "pago": true, "gastei": true, "gasto": true, "recebi": true, "ganhei": true,
		"investi": true, "aportei": true, "apliquei": true, "de": true, "por": true, "valor": true,
		"total": true, "mais": true, "uns": true, "umas": true, "para": true, "pra": true,
		"investir": true, "aplicar": true, "aportar": true, "coloquei": true, "entrou": true,
		"caiu": true, "vale": true, "valeu": true, "dar": true, "pagou": true, "pagamos": true,
	}
)

// ExtractAmounts returns every monetary fragment in normalized text, in order
// of appearance. Bare integers count only when a currency marker, a decimal
// part or a value cue makes them money; when nothing qualifies, a single
// unqualified integer is taken as the amount.
func ExtractAmounts(text string) []Amount {
	return extractAmounts(text, nil)
}

func extractAmounts(text string, claimed []span) []Amount {
	found, loose := scanAmounts(text, claimed)
	if len(found) == 0 && len(loose) == 1 && !looksLikeYear(loose[0].Value) {
		return loose
	}
	return found
}

// scanAmounts splits numbers into those qualified as money and loose
// integers that could be money only if nothing else is.
func scanAmounts(text string, claimed []span) (found, loose []Amount) {
	for _, m := range amountPattern.FindAllStringSubmatchIndex(text, -1) {
		start, end := m[0], m[1]
		numStart, numEnd := m[4], m[5]
		if isClaimed(claimed, numStart, numEnd) {
			continue
		}
		if numStart > 0 {
			r, _ := utf8.DecodeLastRuneInString(text[:numStart])
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				continue
			}
		}
		if numEnd < len(text) {
			r, _ := utf8.DecodeRuneInString(text[numEnd:])
			if unicode.IsLetter(r) && m[6] == -1 {
				// "3x", "10km"
				continue
			}
		}

		raw := text[numStart:numEnd]
		value, ok := parseDecimal(raw)
		if !ok {
			continue
		}
		amt := Amount{Value: value, Start: start, End: end}

		hasCurrency := m[2] != -1 || m[6] != -1
		hasDecimals := strings.ContainsAny(raw, ",.")

		switch {
		case hasCurrency || hasDecimals:
			found = append(found, amt)
		case unitNouns[nextWord(text, end)]:
			continue
		case valueCues[previousWord(text, start)]:
			found = append(found, amt)
		default:
			loose = append(loose, amt)
		}
	}
	return found, loose
}

// HasAmount reports whether normalized text carries a monetary value, either
// for the whole utterance or for any one of its clauses.
func HasAmount(text string) bool {
	return len(ExtractAmounts(text)) > 0 || len(moneyPieces(text)) > 0
}

func parseDecimal(raw string) (decimal.Decimal, bool) {
	s := raw
	switch {
	case strings.Count(s, ".") >= 1 && strings.Contains(s, ",") || thousandsOnly(s):
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	default:
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// thousandsOnly matches "1.200" style numbers with no decimal part.
func thousandsOnly(s string) bool {
	parts := strings.Split(s, ".")
	if len(parts) < 2 || strings.Contains(s, ",") {
		return false
	}
	for _, p := range parts[1:] {
		if len(p) != 3 {
			return false
		}
	}
	return true
}

func looksLikeYear(d decimal.Decimal) bool {
	if !d.IsInteger() {
		return false
	}
	v := d.IntPart()
	return v >= 1900 && v <= 2100
}

func isClaimed(claimed []span, start, end int) bool {
	for _, s := range claimed {
		if s.overlaps(start, end) {
			return true
		}
	}
	return false
}

func previousWord(text string, pos int) string {
	words := Tokens(text[:pos])
	if len(words) == 0 {
		return ""
	}
	return words[len(words)-1]
}

func nextWord(text string, pos int) string {
	words := Tokens(text[pos:])
	if len(words) == 0 {
		return ""
	}
	return words[0]
}
