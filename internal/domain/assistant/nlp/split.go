package nlp

import (
	"regexp"
	"strconv"

	"github.com/shopspring/decimal"
)

const (
	weightPlaces = 4
	maxDivisor   = 50
)

// bareSplitWeight applies when a bill was split with no count or share.
var bareSplitWeight = decimal.NewFromFloat(0.5)

const (
	splitVerbs = `(?:divid(?:i|imos|ir|iu|ido|ida|e|em|iram|indo)|rach(?:ei|amos|ou|ar|ado|ada|a|aram|ando)|rate(?:amos|ou|ar|ado|io))`
	moneyExpr  = `(?:r\$\s*)?(\d{1,3}(?:\.\d{3})+(?:,\d{1,2})?|\d+(?:[.,]\d{1,2})?)(?:\s*(?:reais|real|contos?|pilas?)\b)?`
)

var (
	splitTriggerPattern = regexp.MustCompile(`\b(?:` + splitVerbs +
		`|cada (?:um|uma)|por cabeca|minha parte|o meu (?:saiu|deu|foi|ficou)|(?:pra|para) mim (?:deu|saiu|foi|ficou))\b`)

	// The verb plus whatever says who shared, removed from descriptions.
	splitPhrasePattern = regexp.MustCompile(`\b` + splitVerbs +
		`(?: (?:a conta|o valor|tudo|o total|a compra))?(?: (?:entre|com|por|em|pra|para) (?:nos|a gente|todos|todo mundo|eles|elas|galera|o pessoal))?\b`)

	sharePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\bcada (?:um|uma)(?: (?:pagou|pagaria|deu|ficou|saiu|foi|paga|pagaram))?(?: (?:com|de|por|em))? ` + moneyExpr),
		regexp.MustCompile(`\bpor cabeca(?: (?:deu|foi|saiu|ficou))?(?: (?:de|em))? ` + moneyExpr),
		regexp.MustCompile(moneyExpr + ` (?:por cabeca|(?:pra|para) cada(?: um| uma)?)\b`),
		regexp.MustCompile(`\bminha parte(?: (?:foi|deu|saiu|ficou|e))?(?: (?:de|em))? ` + moneyExpr),
		regexp.MustCompile(`\bo meu (?:saiu|deu|foi|ficou)(?: (?:por|de|em))? ` + moneyExpr),
		regexp.MustCompile(`\b(?:pra|para) mim (?:deu|saiu|foi|ficou)(?: (?:de|em))? ` + moneyExpr),
	}

	divisorPatterns = []struct {
		pattern *regexp.Regexp
		extra   int
		keep    bool // the phrase stays in the description
	}{
		{pattern: regexp.MustCompile(`\b` + splitVerbs + `(?: (?:a conta|o valor|tudo|o total|a compra))? (?:entre|por|em|pra|para) (?:nos )?(\d{1,2})(?: (?:pessoas|amigos|amigas|partes))?\b`)},
		{pattern: regexp.MustCompile(`\bentre (?:nos |a gente )?(\d{1,2})\b`)},
		{pattern: regexp.MustCompile(`\beu e mais (\d{1,2})\b`), extra: 1},
		{pattern: regexp.MustCompile(`\beramos (\d{1,2})(?: pessoas)?\b`)},
		{pattern: regexp.MustCompile(`\bcom (?:mais )?(\d{1,2}) (?:amigos|amigas|pessoas|colegas)\b`), keep: true},
	}
)

// splitInfo is what a chunk says about sharing its bill.
type splitInfo struct {
	triggered bool
	divisor   int
	share     *decimal.Decimal
	// claimed numbers are counts or shares, never the bill amount.
	claimed []span
	// phrases are removed before the description is extracted.
	phrases []span
}

func hasSplitTrigger(text string) bool {
	return splitTriggerPattern.MatchString(text)
}

// extractSplit reads divisor counts and personal shares from a chunk. It
// returns the zero value when the chunk carries no split trigger.
func extractSplit(text string, reserved []span) splitInfo {
	var info splitInfo
	if !hasSplitTrigger(text) {
		return info
	}
	info.triggered = true

	for _, m := range splitPhrasePattern.FindAllStringIndex(text, -1) {
		info.phrases = append(info.phrases, span{m[0], m[1]})
	}
	for _, m := range splitTriggerPattern.FindAllStringIndex(text, -1) {
		info.phrases = append(info.phrases, span{m[0], m[1]})
	}

	for _, p := range sharePatterns {
		m := p.FindStringSubmatchIndex(text)
		if m == nil || isClaimed(reserved, m[2], m[3]) {
			continue
		}
		v, ok := parseDecimal(text[m[2]:m[3]])
		if !ok || !v.IsPositive() {
			continue
		}
		info.share = &v
		info.claimed = append(info.claimed, span{m[0], m[1]})
		info.phrases = append(info.phrases, span{m[0], m[1]})
		break
	}

	for _, d := range divisorPatterns {
		m := d.pattern.FindStringSubmatchIndex(text)
		if m == nil || isClaimed(reserved, m[2], m[3]) {
			continue
		}
		n, err := strconv.Atoi(text[m[2]:m[3]])
		if err != nil {
			continue
		}
		n += d.extra
		if n < 1 || n > maxDivisor {
			continue
		}
		info.divisor = n
		info.claimed = append(info.claimed, span{m[2], m[3]})
		if !d.keep {
			info.phrases = append(info.phrases, span{m[0], m[1]})
		}
		break
	}
	return info
}

// resolve decides the bill total and the user's weight. total is the amount
// found in the chunk, or nil when the chunk only stated a share. Divisor
// weights are rounded to weightPlaces; a share over a total keeps the full
// quotient so that total times weight gives the share back.
func (s splitInfo) resolve(total *decimal.Decimal) (amount *decimal.Decimal, weight *decimal.Decimal) {
	one := decimal.NewFromInt(1)
	switch {
	case s.share != nil && total != nil && total.IsPositive():
		w := s.share.Div(*total)
		if w.GreaterThan(one) {
			w = one
		}
		return total, &w
	case s.share != nil && s.divisor > 0:
		t := s.share.Mul(decimal.NewFromInt(int64(s.divisor)))
		w := one.DivRound(decimal.NewFromInt(int64(s.divisor)), weightPlaces)
		return &t, &w
	case s.share != nil:
		share := *s.share
		return &share, nil
	case s.divisor > 0:
		w := one.DivRound(decimal.NewFromInt(int64(s.divisor)), weightPlaces)
		return total, &w
	default:
		w := bareSplitWeight
		return total, &w
	}
}
