package nlp

import (
	"regexp"

	"github.com/FACorreiaa/echo-voice-assistant/internal/domain/assistant"
)

// Confidence levels assigned by the classifier rules.
const (
	ConfidenceExplicit   = 0.9
	ConfidenceContextual = 0.85
	ConfidenceUnknown    = 0.3
)

// Utterance is the classifier's view of one prepared sentence.
type Utterance struct {
	Text   string
	Tokens []string
	Money  bool
	words  map[string]bool
}

// NewUtterance prepares raw text for the rules.
func NewUtterance(raw string) Utterance {
	text := Prepare(raw)
	tokens := Tokens(text)
	words := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		words[t] = true
	}
	return Utterance{Text: text, Tokens: tokens, Money: HasAmount(text), words: words}
}

// Has reports whether any of set appears as a whole word.
func (u Utterance) Has(set map[string]bool) bool {
	for w := range set {
		if u.words[w] {
			return true
		}
	}
	return false
}

// Rule is one entry of the ordered classification list.
type Rule struct {
	Name       string
	Match      func(Utterance) bool
	Intent     assistant.Intent
	Confidence float64
}

// Classification is the classifier's verdict.
type Classification struct {
	Intent     assistant.Intent `json:"intent"`
	Confidence float64          `json:"confidence"`
	Rule       string           `json:"rule"`
}

var (
	createCategoryPattern = regexp.MustCompile(`\b(?:cria|criar|crie|nova|novo|adiciona|adicionar|adicione|cadastra|cadastrar|cadastre)\b.*\bcategoria\b`)
	insightsPattern       = regexp.MustCompile(`\b(?:insights?|resumo|analise|dicas?|relatorio|como (?:estou|estao|esta|foi|vai|vao) (?:as |minhas )?(?:financas|gastos|contas|mes))\b`)
	balancePattern        = regexp.MustCompile(`\b(?:saldo|balanco|quanto (?:gastei|recebi|sobrou|tenho|investi|ganhei)|sobrou)\b`)
	listRecentPattern     = regexp.MustCompile(`\b(?:ultim[oa]s|recentes?|lista|listar|liste|mostra|mostrar|mostre|quais (?:foram )?(?:os|as))\b.*\b(?:transac(?:ao|oes)|lancamentos?|gastos|despesas|movimentac(?:ao|oes)|compras|receitas|entradas)\b`)

	deleteVerbs = wordSet(
		"apaga", "apagar", "apague", "deleta", "deletar", "delete", "exclui", "excluir", "exclua",
		"remove", "remover", "remova", "cancela", "cancelar", "cancele",
	)
	updateVerbs = wordSet(
		"muda", "mudar", "mude", "altera", "alterar", "altere", "corrige", "corrigir", "corrija",
		"edita", "editar", "edite", "atualiza", "atualizar", "atualize",
	)
	// Context that marks a verb-less expense: "fui almocar, deu 140".
	expenseCues = wordSet(
		"deu", "custou", "custa", "saiu", "ficou", "fui", "fomos", "conta", "uber", "taxi",
		"ifood", "rappi", "mercado", "supermercado", "padaria", "farmacia", "almoco", "jantar",
		"lanche", "cafe", "restaurante", "lanchonete", "bar", "cinema", "gasolina", "combustivel",
		"estacionamento", "pedagio", "aluguel", "luz", "agua", "internet", "academia", "boleto",
		"fatura", "almocar", "jantei", "onibus", "metro", "pix", "dividimos", "rachamos", "racha",
	)
)

// DefaultRules is the classification order. The first rule that matches wins.
var DefaultRules = []Rule{
	{Name: "create_category", Intent: assistant.IntentCreateCategory, Confidence: ConfidenceExplicit,
		Match: func(u Utterance) bool { return createCategoryPattern.MatchString(u.Text) }},
	{Name: "delete_verb", Intent: assistant.IntentDelete, Confidence: ConfidenceExplicit,
		Match: func(u Utterance) bool { return u.Has(deleteVerbs) }},
	{Name: "update_verb", Intent: assistant.IntentUpdate, Confidence: ConfidenceExplicit,
		Match: func(u Utterance) bool { return u.Has(updateVerbs) }},
	{Name: "monthly_insights", Intent: assistant.IntentMonthInsights, Confidence: ConfidenceExplicit,
		Match: func(u Utterance) bool { return insightsPattern.MatchString(u.Text) }},
	{Name: "month_balance", Intent: assistant.IntentMonthBalance, Confidence: ConfidenceExplicit,
		Match: func(u Utterance) bool { return balancePattern.MatchString(u.Text) }},
	{Name: "list_recent", Intent: assistant.IntentListRecent, Confidence: ConfidenceExplicit,
		Match: func(u Utterance) bool { return listRecentPattern.MatchString(u.Text) }},
	{Name: "investment_vocabulary", Intent: assistant.IntentAddInvestment, Confidence: ConfidenceExplicit,
		Match: func(u Utterance) bool { return u.Money && u.Has(investmentWords) }},
	{Name: "income_vocabulary", Intent: assistant.IntentAddIncome, Confidence: ConfidenceExplicit,
		Match: func(u Utterance) bool {
			// The verb decides a pix: "recebi pix" is income, "paguei pix" is not.
			return u.Money && (u.Has(incomeVerbs) || (u.Has(incomeNouns) && !u.Has(expenseVerbs)))
		}},
	{Name: "expense_verb", Intent: assistant.IntentAddExpense, Confidence: ConfidenceExplicit,
		Match: func(u Utterance) bool { return u.Money && u.Has(expenseVerbs) }},
	{Name: "expense_context", Intent: assistant.IntentAddExpense, Confidence: ConfidenceContextual,
		Match: func(u Utterance) bool { return u.Money && (u.Has(expenseCues) || hasSplitTrigger(u.Text)) }},
}

// Classify runs DefaultRules over raw text.
func Classify(raw string) Classification {
	return ClassifyWith(DefaultRules, NewUtterance(raw))
}

// ClassifyWith returns the verdict of the first matching rule, or unknown.
func ClassifyWith(rules []Rule, u Utterance) Classification {
	for _, r := range rules {
		if r.Match(u) {
			return Classification{Intent: r.Intent, Confidence: r.Confidence, Rule: r.Name}
		}
	}
	return Classification{Intent: assistant.IntentUnknown, Confidence: ConfidenceUnknown, Rule: "fallback"}
}
