package nlp

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/echo-voice-assistant/internal/domain/assistant"
)

const maxCategoryNameWords = 4

var (
	changePattern   = regexp.MustCompile(`\bde ` + moneyExpr + ` (?:para|pra) ` + moneyExpr)
	newValuePattern = regexp.MustCompile(`\b(?:para|pra) ` + moneyExpr)
	colorPattern    = regexp.MustCompile(`#[0-9a-f]{6}\b`)
	colorPhrase     = regexp.MustCompile(`\s(?:com |na |de )?(?:a )?cor\b.*$`)

	categoryNamePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b(?:chamada|chamado|com o nome|com nome|de nome|nome)\s+(.+)$`),
		regexp.MustCompile(`\bcategoria(?: de (?:despesas?|gastos?|rendas?|receitas?|entradas?|ganhos?))?\s+(?:de |para |pra )?(.+)$`),
	}

	managementVerbs = wordSet(
		"apaga", "apagar", "apague", "deleta", "deletar", "delete", "exclui", "excluir", "exclua",
		"remove", "remover", "remova", "cancela", "cancelar", "cancele", "muda", "mudar", "mude",
		"altera", "alterar", "altere", "corrige", "corrigir", "corrija", "edita", "editar", "edite",
		"atualiza", "atualizar", "atualize",
	)
	recordWords = wordSet(
		"ultimo", "ultima", "lancamento", "transacao", "registro", "valor", "entrada",
		"gasto", "despesa", "compra", "renda", "receita", "recebimento", "investimento", "aporte",
	)
	expenseTargetWords    = wordSet("gasto", "despesa", "compra", "pagamento", "conta")
	incomeTargetWords     = wordSet("renda", "receita", "recebimento", "salario", "entrada", "ganho")
	investmentTargetWords = wordSet("investimento", "aporte", "aplicacao")
	incomeCategoryWords   = wordSet("renda", "rendas", "receita", "receitas", "entrada", "entradas", "ganho", "ganhos")
)

// targetSlots locates the record an update or delete refers to and, for
// updates, the new amount ("muda o uber de 23,90 para 25").
func targetSlots(norm string, intent assistant.Intent, accents map[string]string) assistant.Slots {
	target := &assistant.Target{Type: targetType(norm)}
	var hard []span

	if m := changePattern.FindStringSubmatchIndex(norm); m != nil {
		if v, ok := parseDecimal(norm[m[2]:m[3]]); ok {
			target.Amount = &v
		}
		if v, ok := parseDecimal(norm[m[4]:m[5]]); ok && intent == assistant.IntentUpdate {
			target.NewAmount = &v
		}
		hard = append(hard, span{m[0], m[1]})
	} else {
		if intent == assistant.IntentUpdate {
			if m := newValuePattern.FindStringSubmatchIndex(norm); m != nil {
				if v, ok := parseDecimal(norm[m[2]:m[3]]); ok {
					target.NewAmount = &v
					hard = append(hard, span{m[0], m[1]})
				}
			}
		}
		for _, a := range extractAmounts(norm, hard) {
			v := a.Value
			target.Amount = &v
			hard = append(hard, span{a.Start, a.End})
			break
		}
	}

	cleaned := blankSpans(norm, nil, hard)
	cleaned = fillerPattern.ReplaceAllString(cleaned, ", ")
	cleaned = currencyLeftovers.ReplaceAllString(cleaned, " ")
	var words []string
	for _, w := range Tokens(cleaned) {
		if managementVerbs[w] || recordWords[w] || isDateWord(w) {
			continue
		}
		words = append(words, w)
	}
	if words = trimDescription(words); len(words) > 0 {
		target.Description = titled(words, accents)
	}
	return assistant.Slots{Variant: assistant.VariantTarget, Target: target}
}

func targetType(norm string) assistant.TransactionType {
	for _, w := range Tokens(norm) {
		switch {
		case investmentTargetWords[w]:
			return assistant.TypeInvestment
		case incomeTargetWords[w]:
			return assistant.TypeIncome
		case expenseTargetWords[w]:
			return assistant.TypeExpense
		}
	}
	return ""
}

// categorySlots reads the name, ledger and optional color of a new category.
func categorySlots(raw, norm string, accents map[string]string) assistant.Slots {
	nc := &assistant.NewCategory{Target: assistant.TypeExpense}
	if c := colorPattern.FindString(strings.ToLower(raw)); c != "" {
		nc.Color = c
	}

	for _, w := range Tokens(norm) {
		if incomeCategoryWords[w] {
			nc.Target = assistant.TypeIncome
			break
		}
	}

	body := colorPhrase.ReplaceAllString(norm, "")
	for _, p := range categoryNamePatterns {
		m := p.FindStringSubmatch(body)
		if m == nil {
			continue
		}
		words := Tokens(m[1])
		for len(words) > 0 && (articles[words[0]] || prepositions[words[0]]) {
			words = words[1:]
		}
		if len(words) > maxCategoryNameWords {
			words = words[:maxCategoryNameWords]
		}
		if len(words) > 0 {
			nc.Name = titled(words, accents)
			break
		}
	}
	return assistant.Slots{Variant: assistant.VariantCategory, NewCategory: nc}
}

// AmountsClose reports whether two amounts match within a cent.
func AmountsClose(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(amountTolerance)
}

var amountTolerance = decimal.NewFromFloat(0.01)
