package nlp

import (
	"regexp"
	"strings"

	"github.com/FACorreiaa/echo-voice-assistant/internal/domain/assistant"
)

const maxDescriptionWords = 6

var (
	fillerPattern     = regexp.MustCompile(`\b(?:(?:a conta|o total|o valor|tudo|total) )?(?:deu|foi|custou|custa|saiu|ficou|no total|ao todo|total de)\b`)
	currencyLeftovers = regexp.MustCompile(`\b(?:reais|real|centavos?|r\$)`)
	locationPattern   = regexp.MustCompile(`\b(?:na|no|nas|nos|numa|num) (\p{L}+)(?: (\p{L}+))?`)

	leadingVerbs = wordSet(
		"paguei", "pagar", "paga", "pago", "pague", "pagamos", "gastei", "gastar", "gaste", "gastamos",
		"comprei", "comprar", "compre", "compramos", "fui", "fomos", "vou", "recebi", "receber",
		"recebemos", "ganhei", "ganhar", "investi", "investir", "apliquei", "aplicar", "aportei",
		"aportar", "coloquei", "colocar", "botei", "adiciona", "adicionar", "adicione", "registra",
		"registrar", "registre", "lanca", "lancar", "lance", "anota", "anotar", "anote", "coloca",
		"quero", "queria", "preciso", "tive", "fiz", "fizemos", "tomei", "tomamos", "peguei",
		"pegamos", "dei", "entrou", "caiu", "vendi", "torrei", "assinei", "renovei",
	)
	articles     = wordSet("o", "a", "os", "as", "um", "uma", "uns", "umas")
	prepositions = wordSet(
		"de", "da", "do", "das", "dos", "no", "na", "nos", "nas", "em", "ao", "aos", "pra", "para",
		"pro", "por", "pelo", "pela", "num", "numa", "com", "e",
	)
	pronouns = wordSet("eu", "me", "meu", "minha", "nosso", "nossa", "la", "ai", "aqui", "que", "mais")
	// Noun stems that introduce the real description: "despesa de", "renda de".
	stems = wordSet(
		"despesa", "gasto", "renda", "receita", "investimento", "aporte", "aplicacao", "pix",
		"transferencia", "pagamento", "compra", "valor", "lancamento",
	)
	mealVerbs = map[string]string{
		"almocei": "almoco", "almocar": "almoco", "almocamos": "almoco",
		"jantei": "jantar", "jantamos": "jantar",
		"lanchei": "lanche", "lanchar": "lanche", "lanchamos": "lanche",
		"abasteci": "combustivel", "abastecer": "combustivel", "abastecemos": "combustivel",
	}
	fillerWords = wordSet("conta", "coisa", "coisas", "isso", "negocio", "hoje", "ontem", "anteontem")
	billNouns   = wordSet("conta", "fatura", "boleto", "compra")

	accentDefaults = map[string]string{
		"almoco": "almoço", "cafe": "café", "combustivel": "combustível", "onibus": "ônibus",
		"salario": "salário", "farmacia": "farmácia", "agua": "água", "acougue": "açougue",
		"padaria": "padaria", "remedio": "remédio", "cartao": "cartão", "aluguel": "aluguel",
		"condominio": "condomínio", "acoes": "ações", "poupanca": "poupança", "mes": "mês",
	}
	typeDefaults = map[assistant.TransactionType]string{
		assistant.TypeExpense:    "Despesa",
		assistant.TypeIncome:     "Receita",
		assistant.TypeInvestment: "Investimento",
	}
)

func wordSet(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}

func isStrippable(w string) bool {
	return leadingVerbs[w] || articles[w] || prepositions[w] || pronouns[w] || stems[w]
}

// describe recovers a short title-cased description from a normalized chunk.
// soft and hard list the date/installment and amount/split spans already parsed.
func describe(text string, soft, hard []span, t assistant.TransactionType, accents map[string]string) string {
	cleaned := blankSpans(text, soft, hard)
	cleaned = fillerPattern.ReplaceAllString(cleaned, ", ")
	cleaned = currencyLeftovers.ReplaceAllString(cleaned, " ")

	for _, segment := range strings.Split(cleaned, ",") {
		words := trimDescription(Tokens(segment))
		if len(words) == 0 || (len(words) == 1 && (isStrippable(words[0]) || fillerWords[words[0]])) {
			continue
		}
		return titled(words, accents)
	}

	if words := contextualFallback(cleaned); len(words) > 0 {
		return titled(words, accents)
	}
	if noun := billNoun(text); noun != "" {
		return titled([]string{noun}, accents)
	}
	return typeDefaults[t]
}

// billNoun finds the bill itself ("a conta", "a fatura") when nothing else in
// the utterance names what was paid.
func billNoun(text string) string {
	for _, w := range Tokens(text) {
		if billNouns[w] {
			return w
		}
	}
	return ""
}

// trimDescription strips leading verbs, articles, prepositions and noun stems,
// turns meal verbs into their noun, and drops trailing connectors.
func trimDescription(words []string) []string {
	for len(words) > 0 {
		if noun, ok := mealVerbs[words[0]]; ok {
			words = append([]string{noun}, words[1:]...)
			break
		}
		if !isStrippable(words[0]) && !fillerWords[words[0]] && !isNumeric(words[0]) {
			break
		}
		words = words[1:]
	}
	if len(words) > maxDescriptionWords {
		words = words[:maxDescriptionWords]
	}
	for len(words) > 0 {
		last := words[len(words)-1]
		if !articles[last] && !prepositions[last] && !pronouns[last] && !leadingVerbs[last] && !fillerWords[last] {
			break
		}
		words = words[:len(words)-1]
	}
	return words
}

// contextualFallback picks a location introduced by "na"/"no", else the
// object of the first action verb.
func contextualFallback(cleaned string) []string {
	if m := locationPattern.FindStringSubmatch(cleaned); m != nil && !isStrippable(m[1]) && !fillerWords[m[1]] {
		words := []string{m[1]}
		if m[2] != "" && !isStrippable(m[2]) && !fillerWords[m[2]] {
			words = append(words, m[2])
		}
		return words
	}
	tokens := Tokens(cleaned)
	for i, w := range tokens {
		if !leadingVerbs[w] {
			continue
		}
		for _, next := range tokens[i+1:] {
			if isStrippable(next) || fillerWords[next] || isNumeric(next) {
				continue
			}
			return []string{next}
		}
	}
	return nil
}

func titled(words []string, accents map[string]string) string {
	out := make([]string, len(words))
	for i, w := range words {
		switch {
		case accents[w] != "":
			out[i] = accents[w]
		case accentDefaults[w] != "":
			out[i] = accentDefaults[w]
		default:
			out[i] = w
		}
	}
	return TitleCase(strings.Join(out, " "))
}

// blankSpans overwrites soft spans with spaces and hard spans with a comma,
// keeping byte offsets stable. Hard spans (amounts, split phrases) end a
// segment; soft spans (dates, installments) leave the words around them
// joined.
func blankSpans(text string, soft, hard []span) string {
	b := []byte(text)
	fill := func(s span, lead byte) {
		for i := s.start; i < s.end && i < len(b); i++ {
			b[i] = ' '
		}
		if s.start < len(b) {
			b[s.start] = lead
		}
	}
	for _, s := range soft {
		fill(s, ' ')
	}
	for _, s := range hard {
		fill(s, ',')
	}
	return string(b)
}

func isNumeric(w string) bool {
	for _, r := range w {
		if r < '0' || r > '9' {
			return false
		}
	}
	return w != ""
}
