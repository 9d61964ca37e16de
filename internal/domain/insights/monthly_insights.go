package insights

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/echo-voice-assistant/pkg/money"
)

const (
	// ConcentrationPercent is the share of monthly spend from which a single
	// category is called out.
	ConcentrationPercent = 40
	// NotableChangePercent is the month over month change worth a recommendation.
	NotableChangePercent = 10
	// MaxInProgressRecommendations caps advice while the month is still open.
	MaxInProgressRecommendations = 3
)

var monthNames = [...]string{
	"janeiro", "fevereiro", "março", "abril", "maio", "junho",
	"julho", "agosto", "setembro", "outubro", "novembro", "dezembro",
}

// HighlightKind defines the type of highlight
type HighlightKind string

const (
	HighlightSummary    HighlightKind = "summary"
	HighlightBalance    HighlightKind = "balance"
	HighlightComparison HighlightKind = "comparison"
	HighlightCategory   HighlightKind = "category"
)

// Highlight is one narrated statement. Category highlights name the category
// they are about.
type Highlight struct {
	Kind     HighlightKind `json:"kind"`
	Category string        `json:"category,omitempty"`
	Text     string        `json:"text"`
}

// MonthlyInsights contains the narrated report for one month
type MonthlyInsights struct {
	UserID          uuid.UUID       `json:"-"`
	Month           string          `json:"month"`
	Timing          Timing          `json:"timing"`
	Current         MonthTotals     `json:"-"`
	Previous        MonthTotals     `json:"-"`
	Expenses        decimal.Decimal `json:"expenses"`
	Incomes         decimal.Decimal `json:"incomes"`
	Investments     decimal.Decimal `json:"investments"`
	Balance         decimal.Decimal `json:"balance"`
	Highlights      []Highlight     `json:"highlights"`
	Recommendations []string        `json:"recommendations"`
}

// SpeakText joins the leading highlights into one answer.
func (m *MonthlyInsights) SpeakText() string {
	n := min(len(m.Highlights), 3)
	parts := make([]string, 0, n)
	for _, h := range m.Highlights[:n] {
		parts = append(parts, h.Text)
	}
	return strings.Join(parts, " ")
}

// categoryFacts gathers everything worth saying about one category so that
// statements about the same category end up in one sentence.
type categoryFacts struct {
	name         string
	overLimitBy  *decimal.Decimal
	limit        *decimal.Decimal
	sharePercent *int64
}

// Narrate builds highlights and recommendations for the month containing
// monthStart from the current and previous month aggregates.
func Narrate(monthStart, now time.Time, current, previous MonthTotals, categories []TopCategory) *MonthlyInsights {
	timing := ClassifyTiming(monthStart, now)
	out := &MonthlyInsights{
		Month:       monthStart.Format("2006-01"),
		Timing:      timing,
		Current:     current,
		Previous:    previous,
		Expenses:    current.Expenses,
		Incomes:     current.Incomes,
		Investments: current.Investments,
		Balance:     current.Balance(),
	}
	label := MonthLabel(monthStart)
	prevLabel := MonthLabel(monthStart.AddDate(0, -1, 0))

	if current.IsEmpty() {
		out.Highlights = []Highlight{{Kind: HighlightSummary, Text: fmt.Sprintf("Ainda não há lançamentos em %s.", label)}}
		return out
	}

	prefix := "Em"
	if timing.InProgress() {
		prefix = "Até agora, em"
	}
	out.Highlights = append(out.Highlights, Highlight{
		Kind: HighlightSummary,
		Text: fmt.Sprintf("%s %s você gastou %s, recebeu %s e investiu %s.", prefix, label,
			money.Format(current.Expenses), money.Format(current.Incomes), money.Format(current.Investments)),
	})

	var recs []string

	balance := current.Balance()
	switch balance.Sign() {
	case -1:
		deficit := money.Format(balance.Neg())
		if timing.Conclusive() {
			out.Highlights = append(out.Highlights, Highlight{Kind: HighlightBalance, Text: fmt.Sprintf("O mês fechou com saldo negativo de %s.", deficit)})
			recs = append(recs, fmt.Sprintf("Planeje o próximo mês para cobrir o saldo negativo de %s.", deficit))
		} else {
			out.Highlights = append(out.Highlights, Highlight{Kind: HighlightBalance, Text: fmt.Sprintf("Por enquanto, as saídas superam as entradas em %s.", deficit)})
			recs = append(recs, "Evite novos gastos não essenciais até a próxima entrada.")
		}
	case 1:
		surplus := money.Format(balance)
		if timing.Conclusive() {
			out.Highlights = append(out.Highlights, Highlight{Kind: HighlightBalance, Text: fmt.Sprintf("O mês fechou com saldo positivo de %s.", surplus)})
		} else {
			out.Highlights = append(out.Highlights, Highlight{Kind: HighlightBalance, Text: fmt.Sprintf("O saldo parcial está positivo em %s.", surplus)})
		}
		if current.Investments.IsZero() {
			recs = append(recs, fmt.Sprintf("Considere investir parte do saldo de %s.", surplus))
		}
	}

	if timing.AllowsComparison() && previous.Expenses.IsPositive() {
		change := current.Expenses.Sub(previous.Expenses).Div(previous.Expenses).Mul(decimal.NewFromInt(100)).Round(0)
		if timing.Conclusive() {
			out.Highlights = append(out.Highlights, Highlight{Kind: HighlightComparison, Text: conclusiveComparison(change, prevLabel)})
			if change.GreaterThanOrEqual(decimal.NewFromInt(NotableChangePercent)) {
				recs = append(recs, fmt.Sprintf("Compare os gastos com os de %s para achar o que subiu %s%%.", prevLabel, change.String()))
			}
		} else {
			pace := current.Expenses.Div(previous.Expenses).Mul(decimal.NewFromInt(100)).Round(0)
			out.Highlights = append(out.Highlights, Highlight{
				Kind: HighlightComparison,
				Text: fmt.Sprintf("Até aqui, os gastos somam %s%% do total de %s, mas o mês ainda não acabou.", pace.String(), prevLabel),
			})
		}
	}

	for _, facts := range collectCategoryFacts(current, categories) {
		out.Highlights = append(out.Highlights, Highlight{
			Kind:     HighlightCategory,
			Category: facts.name,
			Text:     facts.sentence(timing),
		})
		recs = append(recs, facts.recommendation(timing))
	}

	if timing.InProgress() && len(recs) > MaxInProgressRecommendations {
		recs = recs[:MaxInProgressRecommendations]
	}
	out.Recommendations = recs
	return out
}

func conclusiveComparison(change decimal.Decimal, prevLabel string) string {
	switch change.Sign() {
	case 1:
		return fmt.Sprintf("Você gastou %s%% a mais que em %s.", change.String(), prevLabel)
	case -1:
		return fmt.Sprintf("Você gastou %s%% a menos que em %s.", change.Neg().String(), prevLabel)
	}
	return fmt.Sprintf("Os gastos ficaram estáveis em relação a %s.", prevLabel)
}

// collectCategoryFacts returns, in spend order, the categories that went over
// their limit or concentrate a large share of the month.
func collectCategoryFacts(current MonthTotals, categories []TopCategory) []categoryFacts {
	var out []categoryFacts
	byName := make(map[string]int)

	for _, c := range categories {
		var f categoryFacts
		if c.MonthlyLimit != nil && c.MonthlyLimit.IsPositive() && c.Amount.GreaterThan(*c.MonthlyLimit) {
			over := c.Amount.Sub(*c.MonthlyLimit)
			f.overLimitBy, f.limit = &over, c.MonthlyLimit
		}
		if current.Expenses.IsPositive() {
			share := c.Amount.Div(current.Expenses).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
			if share >= ConcentrationPercent {
				f.sharePercent = &share
			}
		}
		if f.overLimitBy == nil && f.sharePercent == nil {
			continue
		}

		key := strings.ToLower(c.CategoryName)
		if idx, ok := byName[key]; ok {
			out[idx].merge(f)
			continue
		}
		f.name = c.CategoryName
		byName[key] = len(out)
		out = append(out, f)
	}
	return out
}

func (f *categoryFacts) merge(other categoryFacts) {
	if f.overLimitBy == nil {
		f.overLimitBy, f.limit = other.overLimitBy, other.limit
	}
	if f.sharePercent == nil {
		f.sharePercent = other.sharePercent
	}
}

func (f categoryFacts) sentence(timing Timing) string {
	var parts []string
	if f.overLimitBy != nil {
		verb := "passou"
		if timing.InProgress() {
			verb = "já passou"
		}
		parts = append(parts, fmt.Sprintf("%s do limite de %s em %s", verb, money.Format(*f.limit), money.Format(*f.overLimitBy)))
	}
	if f.sharePercent != nil {
		parts = append(parts, fmt.Sprintf("concentra %d%% dos gastos do mês", *f.sharePercent))
	}
	return fmt.Sprintf("%s %s.", f.name, strings.Join(parts, " e "))
}

func (f categoryFacts) recommendation(timing Timing) string {
	switch {
	case f.overLimitBy != nil && timing.InProgress():
		return fmt.Sprintf("Segure os gastos com %s até o fim do mês.", f.name)
	case f.overLimitBy != nil:
		return fmt.Sprintf("Revise o limite ou os gastos de %s para o próximo mês.", f.name)
	}
	return fmt.Sprintf("Veja se dá para reduzir %s, que concentra %d%% dos gastos.", f.name, *f.sharePercent)
}

// MonthLabel renders "março de 2026".
func MonthLabel(t time.Time) string {
	return fmt.Sprintf("%s de %d", monthNames[t.Month()-1], t.Year())
}
