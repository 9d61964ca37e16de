package nlp

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"folds accents and case", "Almoço no CAFÉ", "almoco no cafe"},
		{"keeps decimal comma", "deu 48,50.", "deu 48,50"},
		{"clause punctuation becomes comma", "fui ao mercado; deu 20!", "fui ao mercado, deu 20"},
		{"drops hesitation noise", "hum, paguei 10 reais", "paguei 10 reais"},
		{"expands glued variants", "pramim deu 30", "pra mim deu 30"},
		{"expands porcabeca", "porcabeca 25", "por cabeca 25"},
		{"keeps thousands dot", "1.200,00 de aluguel", "1.200,00 de aluguel"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.input))
		})
	}
}

func TestTitleCase(t *testing.T) {
	assert.Equal(t, "Parque com 5 Amigos", TitleCase("parque com 5 amigos"))
	assert.Equal(t, "De Volta para Casa", TitleCase("de volta para casa"))
	assert.Equal(t, "Aporte no CDB", TitleCase("aporte no cdb"))
}

func TestSpokenToDigits(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"reais and cents spoken", "paguei dezenove e noventa e oito reais", "paguei 19,98 reais"},
		{"digits with centavos", "paguei 19 reais e 98 centavos", "paguei 19,98 reais"},
		{"com cents", "deu 19 com 98 no total", "deu 19,98 no total"},
		{"compound cardinal", "cento e vinte reais", "120 reais"},
		{"thousands", "dois mil e quinhentos reais", "2500 reais"},
		{"article stays", "comprei uma camisa", "comprei uma camisa"},
		{"one before currency", "um real", "1 real"},
		{"cents only", "custou 90 centavos", "custou 0,90 reais"},
		{"cue fuses cents", "deu dezenove e noventa", "deu 19,90"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SpokenToDigits(tt.input))
		})
	}
}

func TestExtractAmounts(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"comma decimals", "paguei 19,98 reais no cafe", []string{"19.98"}},
		{"dot decimals", "gastei 12.5 no onibus", []string{"12.5"}},
		{"thousands and cents", "r$ 1.234,56 de aluguel", []string{"1234.56"}},
		{"thousands without cents", "paguei 1.200 de aluguel", []string{"1200"}},
		{"currency prefix", "r$50 no mercado", []string{"50"}},
		{"two amounts", "paguei 50 reais na luz e 80 reais na agua", []string{"50", "80"}},
		{"count is not money", "em 3 parcelas", nil},
		{"people count is not money", "com 5 amigos", nil},
		{"lone integer is money", "uber 23", []string{"23"}},
		{"year is not money", "em 2025", nil},
		{"glued count is not money", "3x no cartao", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractAmounts(tt.input)
			require.Len(t, got, len(tt.want))
			for i, w := range tt.want {
				assert.True(t, decimal.RequireFromString(w).Equal(got[i].Value), "amount %d: got %s", i, got[i].Value)
			}
		})
	}
}

func TestExtractInstallments(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  int
	}{
		{"em N parcelas", "comprei uma tv em 10 parcelas", 10},
		{"Nx suffix", "comprei uma tv 1500 em 12x", 12},
		{"parcelado", "parcelado em 6 no cartao", 6},
		{"split wins", "dividimos em 3 a conta de 90", 0},
		{"card keeps installments next to split verb", "dividi em 3x no cartao", 3},
		{"single installment ignored", "em 1x", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractInstallments(tt.input)
			if tt.want == 0 {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want, *got)
		})
	}
}
