package categorization

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/echo-voice-assistant/internal/domain/assistant"
)

func TestMatchSpoken(t *testing.T) {
	options := []assistant.CategoryOption{
		{Name: "Farmácia Central", Confidence: 0.79},
		{Name: "Farmácia Popular", Confidence: 0.79},
		{Name: "Lazer", Confidence: 0.6},
	}

	tests := []struct {
		name   string
		spoken string
		want   string
	}{
		{"full name", "coloca em farmácia central", "Farmácia Central"},
		{"distinguishing word", "a popular", "Farmácia Popular"},
		{"transcription slip", "lazes", "Lazer"},
		{"ordinal", "a segunda", "Farmácia Popular"},
		{"third ordinal", "a terceira", "Lazer"},
		{"no match", "nenhuma dessas", ""},
		{"bare yes", "sim", ""},
		{"empty", "  ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := MatchSpoken(tt.spoken, options)
			if tt.want == "" {
				assert.False(t, ok)
				return
			}
			require.True(t, ok)
			assert.Equal(t, tt.want, got.Name)
		})
	}
}

func TestMatchSpoken_LongestNameWins(t *testing.T) {
	options := []assistant.CategoryOption{{Name: "Casa"}, {Name: "Casa de Praia"}}

	got, ok := MatchSpoken("casa de praia", options)
	require.True(t, ok)
	assert.Equal(t, "Casa de Praia", got.Name)
}
