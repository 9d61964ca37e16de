package nlp

import (
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/echo-voice-assistant/internal/domain/assistant"
)

var (
	// " e " opens a new clause only when an action verb follows it.
	clauseVerbPattern = regexp.MustCompile(`\s(?:e|mas|depois|tambem|e depois|e tambem) (?:eu )?(?:paguei|gastei|comprei|almocei|jantei|lanchei|fui|fomos|recebi|ganhei|investi|apliquei|aportei|coloquei|abasteci|tomei|peguei|quero|vou|dei|torrei|assinei|vendi|deu|custou|saiu)\b`)
	connectorPattern  = regexp.MustCompile(`\s(?:e|mais) \S`)

	investmentWords = wordSet(
		"aporte", "aportei", "aportar", "aportes", "investi", "investir", "investimento", "investimentos",
		"apliquei", "aplicar", "aplicacao", "corretora", "bolsa", "tesouro", "cdb", "lci", "lca",
		"acoes", "acao", "fii", "fiis", "cripto", "bitcoin", "poupanca", "previdencia",
	)
	incomeVerbs = wordSet(
		"recebi", "receber", "recebemos", "recebido", "ganhei", "ganhar", "ganhamos", "entrou",
		"caiu", "vendi", "vendemos", "faturei",
	)
	incomeNouns = wordSet(
		"renda", "salario", "freela", "freelance", "receita", "reembolso", "pagamento", "bonus",
		"dividendos", "rendimento", "comissao", "venda",
	)
	expenseVerbs = wordSet(
		"paguei", "pagar", "pago", "pagamos", "gastei", "gastar", "gasto", "gastamos", "comprei",
		"comprar", "compramos", "despesa", "torrei", "desembolsei", "assinei", "abasteci",
		"almocei", "jantei", "lanchei", "almocamos", "jantamos",
	)
)

// Prepare normalizes an utterance and rewrites spoken numbers as digits. The
// result is the text every other extractor reads.
func Prepare(text string) string {
	return SpokenToDigits(Normalize(text))
}

// BuildSlots extracts the slots for an utterance already classified as
// intent. It is a pure function of (text, now, intent).
func BuildSlots(text string, now time.Time, intent assistant.Intent) assistant.Slots {
	norm := Prepare(text)
	accents := accentIndex(text)

	switch intent {
	case assistant.IntentAddExpense, assistant.IntentAddIncome, assistant.IntentAddInvestment:
		return entrySlots(norm, now, intent, accents)
	case assistant.IntentUpdate, assistant.IntentDelete:
		return targetSlots(norm, intent, accents)
	case assistant.IntentCreateCategory:
		return categorySlots(text, norm, accents)
	case assistant.IntentMonthBalance, assistant.IntentListRecent, assistant.IntentMonthInsights:
		return assistant.Slots{Variant: assistant.VariantPeriod, Period: ExtractMonth(norm, now)}
	}
	return assistant.Slots{Variant: assistant.VariantEmpty}
}

// entrySlots builds one item per money-bearing clause, or a single scalar
// entry when the utterance has one clause with money. A clause of a list
// that names no ledger of its own is an expense.
func entrySlots(norm string, now time.Time, intent assistant.Intent, accents map[string]string) assistant.Slots {
	utteranceDate, _ := extractDate(norm, now)
	pieces := moneyPieces(norm)

	if len(pieces) >= 2 {
		items := make([]assistant.Item, 0, len(pieces))
		for _, p := range pieces {
			t, ok := clauseType(p)
			if !ok {
				t = assistant.TypeExpense
			}
			items = append(items, buildItem(p, t, utteranceDate, now, accents))
		}
		return assistant.Slots{Variant: assistant.VariantMulti, Items: items}
	}

	t := assistant.TypeForIntent(intent)
	item := buildItem(norm, t, utteranceDate, now, accents)
	return assistant.Slots{Variant: assistant.VariantSingle, Item: &item}
}

// buildItem reads every slot of one clause. fallbackDate is used when the
// clause itself names no date.
func buildItem(text string, t assistant.TransactionType, fallbackDate, now time.Time, accents map[string]string) assistant.Item {
	date, dateSpans := extractDate(text, now)
	if len(dateSpans) == 0 {
		date = fallbackDate
	}
	inst := extractInstallments(text)
	reserved := append(append([]span(nil), dateSpans...), inst.spans...)

	split := extractSplit(text, reserved)
	if inst.count != nil && split.divisor == 0 && split.share == nil {
		// "dividi em 3x no cartao" is a card purchase, not a shared bill.
		split = splitInfo{}
	}
	claimed := append(append([]span(nil), reserved...), split.claimed...)

	amounts := extractAmounts(text, claimed)
	if len(amounts) == 0 {
		amounts = amountsByClause(text, claimed)
	}
	var total *decimal.Decimal
	switch {
	case len(amounts) > 0:
		v := amounts[0].Value
		total = &v
	case inst.total() != nil:
		total = inst.total()
	}

	amount, weight := total, (*decimal.Decimal)(nil)
	if split.triggered {
		amount, weight = split.resolve(total)
	}

	hard := append([]span(nil), split.phrases...)
	for _, a := range amounts {
		hard = append(hard, span{a.Start, a.End})
	}

	item := assistant.Item{
		Amount:           amount,
		Description:      describe(text, reserved, hard, t, accents),
		InstallmentCount: inst.count,
		ReportWeight:     weight,
		TransactionType:  t,
	}
	if t == assistant.TypeInvestment {
		item.Month = FormatMonth(date)
	} else {
		item.Date = FormatDate(date)
	}
	return item
}

// moneyPieces splits an utterance into clauses that each carry exactly one
// monetary value. Clauses without money join a neighbour: split remarks
// ("dividimos entre nos") attach to the clause before, anything else to the
// clause after.
func moneyPieces(norm string) []string {
	type chunk struct {
		start, end int
		money      bool
		trigger    bool
	}

	var chunks []chunk
	for _, c := range clauseBounds(norm) {
		text := norm[c.start:c.end]
		chunks = append(chunks, chunk{
			start:   c.start,
			end:     c.end,
			money:   len(clauseAmounts(text)) > 0,
			trigger: hasSplitTrigger(text),
		})
	}

	var groups []span
	pendingStart := -1
	for _, c := range chunks {
		switch {
		case c.money:
			start := c.start
			if pendingStart >= 0 {
				start = pendingStart
			}
			groups = append(groups, span{start, c.end})
			pendingStart = -1
		case c.trigger && len(groups) > 0 && pendingStart < 0:
			groups[len(groups)-1].end = c.end
		case pendingStart < 0:
			pendingStart = c.start
		}
	}
	if pendingStart >= 0 && len(groups) > 0 {
		groups[len(groups)-1].end = len(norm)
	}

	var pieces []string
	for _, g := range groups {
		pieces = append(pieces, subSplit(norm[g.start:g.end])...)
	}
	return pieces
}

// subSplit breaks a clause that still holds several amounts ("50 reais na luz
// e 80 reais na agua") before the connector that precedes each further amount.
func subSplit(text string) []string {
	amounts := clauseAmounts(text)
	if len(amounts) < 2 {
		return []string{strings.TrimSpace(text)}
	}
	var pieces []string
	start := 0
	for i := 1; i < len(amounts); i++ {
		cut := amounts[i-1].End
		for _, m := range connectorPattern.FindAllStringIndex(text, -1) {
			if m[0] >= amounts[i-1].End && m[0] < amounts[i].Start {
				cut = m[0]
			}
		}
		pieces = append(pieces, strings.TrimSpace(text[start:cut]))
		start = cut
	}
	return append(pieces, strings.TrimSpace(text[start:]))
}

// amountsByClause collects what each clause of text carries on its own, for
// utterances whose loose integers only read as money clause by clause.
func amountsByClause(text string, claimed []span) []Amount {
	var out []Amount
	for _, c := range clauseBounds(text) {
		for _, a := range clauseAmounts(text[c.start:c.end]) {
			a.Start += c.start
			a.End += c.start
			if !isClaimed(claimed, a.Start, a.End) {
				out = append(out, a)
			}
		}
	}
	return out
}

// clauseAmounts are the amounts of one clause once dates, installments and
// split shares are set aside. Amounts qualified by currency, decimals or a cue
// win; otherwise the clause's only bare integer counts when it sits where a
// price does ("mercado 50", "30 no uber").
func clauseAmounts(text string) []Amount {
	reserved := reservedSpans(text)
	split := extractSplit(text, reserved)
	found, loose := scanAmounts(text, append(reserved, split.claimed...))
	if len(found) > 0 {
		return found
	}
	if len(loose) == 1 && !looksLikeYear(loose[0].Value) && priceLike(text, loose[0]) {
		return loose
	}
	return nil
}

// priceLike reports whether a bare integer closes its clause or is followed by
// a preposition or connector rather than the noun it would count.
func priceLike(text string, a Amount) bool {
	next := nextWord(text, a.End)
	return next == "" || prepositions[next] || next == "mais"
}

func reservedSpans(text string) []span {
	_, dateSpans := extractDate(text, time.Time{})
	inst := extractInstallments(text)
	return append(append([]span(nil), dateSpans...), inst.spans...)
}

// clauseBounds cuts at commas, at conjunctions followed by an action verb and
// at "e"/"mais" joining two noun phrases. Connectors inside a date, an
// installment plan or a split phrase ("eu e mais 2") never cut.
func clauseBounds(norm string) []span {
	var cuts []int
	for i := 0; i < len(norm); i++ {
		if norm[i] == ',' && (i+1 == len(norm) || norm[i+1] == ' ') {
			cuts = append(cuts, i)
		}
	}
	for _, m := range clauseVerbPattern.FindAllStringIndex(norm, -1) {
		cuts = append(cuts, m[0])
	}

	protected := reservedSpans(norm)
	split := extractSplit(norm, protected)
	protected = append(append(protected, split.claimed...), split.phrases...)
	for _, d := range divisorPatterns {
		for _, m := range d.pattern.FindAllStringIndex(norm, -1) {
			protected = append(protected, span{m[0], m[1]})
		}
	}
	for _, m := range connectorPattern.FindAllStringIndex(norm, -1) {
		if !isClaimed(protected, m[0], m[0]+1) {
			cuts = append(cuts, m[0])
		}
	}
	slices.Sort(cuts)
	cuts = slices.Compact(cuts)

	var out []span
	start := 0
	for _, c := range cuts {
		if c > start {
			out = append(out, span{start, c})
		}
		start = c + 1
	}
	if start < len(norm) {
		out = append(out, span{start, len(norm)})
	}
	return out
}

// clauseType infers the ledger of one clause from its vocabulary.
func clauseType(text string) (assistant.TransactionType, bool) {
	tokens := Tokens(text)
	for _, w := range tokens {
		if investmentWords[w] {
			return assistant.TypeInvestment, true
		}
	}
	for _, w := range tokens {
		if incomeVerbs[w] {
			return assistant.TypeIncome, true
		}
	}
	for _, w := range tokens {
		if expenseVerbs[w] {
			return assistant.TypeExpense, true
		}
	}
	for _, w := range tokens {
		if incomeNouns[w] {
			return assistant.TypeIncome, true
		}
	}
	return "", false
}
