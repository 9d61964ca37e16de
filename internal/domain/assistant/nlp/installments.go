package nlp

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

const maxInstallments = 48

var (
	installmentPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b(?:em|de) (\d{1,2}) ?(?:parcelas|prestacoes|vezes|x)(?: (?:de|sem juros de) ` + moneyExpr + `)?`),
		regexp.MustCompile(`\bparcelad[oa] em (\d{1,2})(?: (?:parcelas|vezes|x))?(?: de ` + moneyExpr + `)?`),
		regexp.MustCompile(`\b(\d{1,2}) ?x(?: de ` + moneyExpr + `)?\b`),
	}
	// Card vocabulary that keeps installments alive next to a split trigger.
	installmentAnchors = []string{"parcela", "prestac", "cartao", "credito"}
)

// installments is a parsed "em N parcelas [de X]" mention.
type installments struct {
	count *int
	each  *decimal.Decimal
	spans []span
}

// total is count × each when only the per-installment value was said.
func (in installments) total() *decimal.Decimal {
	if in.count == nil || in.each == nil {
		return nil
	}
	t := in.each.Mul(decimal.NewFromInt(int64(*in.count)))
	return &t
}

// ExtractInstallments returns the installment count when the text asks for
// one, or nil. Bill-splitting phrasing such as "dividimos em 3" wins over
// installments unless the text also talks about parcels or a card.
func ExtractInstallments(text string) *int {
	return extractInstallments(text).count
}

func extractInstallments(text string) installments {
	if hasSplitTrigger(text) && !mentionsAny(text, installmentAnchors) {
		return installments{}
	}
	for _, p := range installmentPatterns {
		m := p.FindStringSubmatchIndex(text)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(text[m[2]:m[3]])
		if err != nil || n < 2 || n > maxInstallments {
			continue
		}
		in := installments{count: &n, spans: []span{{m[0], m[1]}}}
		if m[4] != -1 {
			if v, ok := parseDecimal(text[m[4]:m[5]]); ok {
				in.each = &v
			}
		}
		return in
	}
	return installments{}
}

func mentionsAny(text string, stems []string) bool {
	for _, s := range stems {
		if strings.Contains(text, s) {
			return true
		}
	}
	return false
}
