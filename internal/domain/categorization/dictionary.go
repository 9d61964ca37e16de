package categorization

import "github.com/FACorreiaa/echo-voice-assistant/internal/domain/assistant"

// ExpenseDictionary maps everyday spending vocabulary to the default expense
// categories. Order is priority.
var ExpenseDictionary = []KeywordEntry{
	{Category: "Alimentação", Terms: []string{
		"almoco", "almocei", "almocar", "jantar", "jantei", "janta", "lanche", "lanchei", "cafe",
		"restaurante", "ifood", "rappi", "pizza", "pizzaria", "hamburguer", "lanchonete", "padaria",
		"acai", "sorvete", "bar", "churrasco", "comida", "marmita", "sushi", "cerveja", "delivery",
	}},
	{Category: "Mercado", Terms: []string{
		"mercado", "supermercado", "feira", "hortifruti", "atacadao", "acougue", "sacolao", "compras do mes",
	}},
	{Category: "Transporte", Terms: []string{
		"uber", "99", "taxi", "onibus", "metro", "trem", "gasolina", "combustivel", "etanol",
		"estacionamento", "pedagio", "posto", "abasteci", "passagem", "bilhete unico", "ipva", "oficina",
		"troca de oleo",
	}},
	{Category: "Moradia", Terms: []string{
		"aluguel", "condominio", "luz", "energia", "agua", "gas", "internet", "iptu", "faxina",
		"diarista", "reforma",
	}},
	{Category: "Saúde", Terms: []string{
		"farmacia", "remedio", "remedios", "medico", "consulta", "dentista", "exame", "exames",
		"plano de saude", "hospital", "academia", "terapia", "psicologo",
	}},
	{Category: "Lazer", Terms: []string{
		"cinema", "show", "parque", "viagem", "netflix", "spotify", "jogo", "teatro", "passeio",
		"ingresso", "festa", "balada", "hotel", "praia",
	}},
	{Category: "Educação", Terms: []string{
		"curso", "faculdade", "escola", "livro", "livros", "mensalidade", "material escolar", "apostila",
	}},
	{Category: "Compras", Terms: []string{
		"roupa", "roupas", "camisa", "camiseta", "calca", "sapato", "tenis", "shopping", "presente",
		"eletronico", "tv", "celular", "notebook", "amazon", "mercado livre", "shopee",
	}},
	{Category: "Pets", Terms: []string{
		"racao", "veterinario", "petshop", "pet", "banho e tosa",
	}},
}

// IncomeDictionary maps earning vocabulary to the default income categories.
var IncomeDictionary = []KeywordEntry{
	{Category: "Salário", Terms: []string{"salario", "holerite", "adiantamento", "decimo terceiro", "ferias"}},
	{Category: "Freelance", Terms: []string{"freela", "freelance", "cliente", "projeto", "job", "consultoria"}},
	{Category: "Investimentos", Terms: []string{"dividendos", "rendimento", "rendimentos", "juros", "proventos"}},
	{Category: "Reembolso", Terms: []string{"reembolso", "estorno", "devolucao", "ressarcimento"}},
	{Category: "Vendas", Terms: []string{"venda", "vendi", "vendas"}},
}

// DictionaryFor returns the dictionary that serves a transaction type. Only
// expenses and incomes carry categories.
func DictionaryFor(t assistant.TransactionType) []KeywordEntry {
	switch t {
	case assistant.TypeExpense:
		return ExpenseDictionary
	case assistant.TypeIncome:
		return IncomeDictionary
	}
	return nil
}
