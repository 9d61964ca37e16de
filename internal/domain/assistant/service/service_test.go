package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/echo-voice-assistant/internal/domain/assistant"
	"github.com/FACorreiaa/echo-voice-assistant/internal/domain/assistant/repository"
	"github.com/FACorreiaa/echo-voice-assistant/internal/domain/categorization"
	"github.com/FACorreiaa/echo-voice-assistant/internal/domain/insights"
)

const device = "kitchen-speaker"

var march15 = time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type harness struct {
	svc      *Service
	store    *memStore
	mappings *memMappings
	narrator *fakeNarrator
	clock    *testClock
	user     uuid.UUID
}

func newHarness(t *testing.T, resolver Resolver) *harness {
	t.Helper()
	h := &harness{
		clock:    &testClock{t: march15},
		mappings: &memMappings{},
		narrator: &fakeNarrator{},
		user:     uuid.New(),
	}
	h.store = newMemStore(h.clock.Now)
	if resolver == nil {
		resolver = categorization.NewService(h.mappings, testLogger())
	}
	h.svc = NewService(h.store, resolver, h.narrator, Config{}, testLogger(), WithClock(h.clock.Now))
	return h
}

func (h *harness) interpret(t *testing.T, text string) *Response {
	t.Helper()
	resp, err := h.svc.Interpret(context.Background(), h.user, InterpretRequest{DeviceID: device, Text: text})
	require.NoError(t, err)
	require.NotNil(t, resp.CommandID)
	return resp
}

func (h *harness) confirm(id uuid.UUID, yes bool, spoken string) (*Response, error) {
	return h.svc.Confirm(context.Background(), h.user, ConfirmRequest{
		DeviceID:   device,
		CommandID:  id,
		Confirmed:  yes,
		SpokenText: spoken,
	})
}

func TestService_Interpret_Validation(t *testing.T) {
	h := newHarness(t, nil)

	tests := []struct {
		name   string
		user   uuid.UUID
		req    InterpretRequest
		target error
	}{
		{"empty text", h.user, InterpretRequest{DeviceID: device, Text: "   "}, assistant.ErrValidation},
		{"missing device", h.user, InterpretRequest{Text: "Paguei uber 23,90"}, assistant.ErrValidation},
		{"no user", uuid.Nil, InterpretRequest{DeviceID: device, Text: "Paguei uber 23,90"}, assistant.ErrUnauthenticated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.svc.Interpret(context.Background(), tt.user, tt.req)
			assert.ErrorIs(t, err, tt.target)
		})
	}
	assert.Empty(t, h.store.commands)
	assert.Empty(t, h.store.sessions)
}

func TestService_InterpretThenConfirm(t *testing.T) {
	h := newHarness(t, nil)
	ids := h.store.addCategories(h.user, assistant.TypeExpense, "Alimentação", "Transporte", "Lazer")

	resp := h.interpret(t, "Paguei uber 23,90")
	assert.Equal(t, StatusOK, resp.Status)
	assert.True(t, resp.RequiresConfirmation)
	assert.Equal(t, assistant.IntentAddExpense, resp.Intent)
	assert.Contains(t, resp.SpeakText, "Confirma despesa de R$ 23,90")
	assert.Contains(t, resp.SpeakText, "categoria Transporte")

	pending := h.store.command(*resp.CommandID)
	assert.Equal(t, assistant.StatusPending, pending.Status)
	require.Len(t, pending.Resolutions, 1)
	assert.Equal(t, assistant.SourceKeyword, pending.Resolutions[0].Selected.Source)
	assert.Empty(t, h.store.entries, "nothing is written before confirmation")

	done, err := h.confirm(*resp.CommandID, true, "sim")
	require.NoError(t, err)
	assert.Equal(t, StatusOK, done.Status)
	assert.Contains(t, done.SpeakText, "Pronto, registrei despesa de R$ 23,90")

	executed := h.store.command(*resp.CommandID)
	assert.Equal(t, assistant.StatusExecuted, executed.Status)
	assert.NotEmpty(t, executed.ExecutionResult)

	require.Len(t, h.store.entries, 1)
	entry := h.store.entries[0]
	assert.True(t, dec("23.90").Equal(entry.Amount))
	require.NotNil(t, entry.CategoryID)
	assert.Equal(t, ids["Transporte"], *entry.CategoryID)
	assert.Equal(t, march15.Format("2006-01-02"), entry.Date.Format("2006-01-02"))

	require.Len(t, h.store.confirmations, 1)
	assert.True(t, h.store.confirmations[0].Confirmed)
	assert.Equal(t, assistant.MethodVoice, h.store.confirmations[0].Method)

	require.Len(t, h.mappings.upserted, 1)
	assert.Equal(t, ids["Transporte"], h.mappings.upserted[0].CategoryID)
	assert.Equal(t, categorization.MappingConfidence, h.mappings.upserted[0].Confidence)
}

func TestService_Interpret_ReplaysDuplicate(t *testing.T) {
	h := newHarness(t, nil)

	first := h.interpret(t, "Paguei uber 23,90")
	h.clock.Advance(10 * time.Second)
	second := h.interpret(t, "Paguei uber 23,90")

	assert.Equal(t, *first.CommandID, *second.CommandID)
	assert.Equal(t, first.SpeakText, second.SpeakText)
	assert.Len(t, h.store.commands, 1)

	t.Run("executed command replays its outcome", func(t *testing.T) {
		_, err := h.confirm(*first.CommandID, true, "")
		require.NoError(t, err)

		again := h.interpret(t, "Paguei uber 23,90")
		assert.Equal(t, *first.CommandID, *again.CommandID)
		assert.False(t, again.RequiresConfirmation)
		assert.Contains(t, again.SpeakText, "Pronto")
		assert.Len(t, h.store.entries, 1)
	})
}

func TestService_Confirm_Denied(t *testing.T) {
	h := newHarness(t, nil)
	resp := h.interpret(t, "Paguei uber 23,90")

	out, err := h.confirm(*resp.CommandID, false, "não")
	require.NoError(t, err)
	assert.Equal(t, speakDenied, out.SpeakText)
	assert.Equal(t, assistant.StatusDenied, h.store.command(*resp.CommandID).Status)
	assert.Empty(t, h.store.entries)
	assert.Empty(t, h.mappings.upserted)
	require.Len(t, h.store.confirmations, 1)
	assert.False(t, h.store.confirmations[0].Confirmed)
}

func TestService_Confirm_Expired(t *testing.T) {
	h := newHarness(t, nil)
	resp := h.interpret(t, "Paguei uber 23,90")
	h.clock.Advance(DefaultConfirmationWindow + time.Second)

	out, err := h.confirm(*resp.CommandID, true, "sim")
	assert.ErrorIs(t, err, assistant.ErrExpired)
	assert.False(t, errors.Is(err, assistant.ErrStore))
	require.NotNil(t, out)
	assert.Equal(t, StatusError, out.Status)
	assert.Equal(t, speakExpired, out.SpeakText)

	cmd := h.store.command(*resp.CommandID)
	assert.Equal(t, assistant.StatusExpired, cmd.Status)
	require.NotNil(t, cmd.ErrorMessage)
	assert.Empty(t, h.store.entries)
}

func TestService_Confirm_InsideWindow(t *testing.T) {
	h := newHarness(t, nil)
	resp := h.interpret(t, "Paguei uber 23,90")
	h.clock.Advance(DefaultConfirmationWindow)

	_, err := h.confirm(*resp.CommandID, true, "sim")
	require.NoError(t, err)
	assert.Equal(t, assistant.StatusExecuted, h.store.command(*resp.CommandID).Status)
}

func TestService_Confirm_Errors(t *testing.T) {
	h := newHarness(t, nil)
	resp := h.interpret(t, "Paguei uber 23,90")

	t.Run("unknown command", func(t *testing.T) {
		_, err := h.confirm(uuid.New(), true, "")
		assert.ErrorIs(t, err, assistant.ErrNotFound)
	})

	t.Run("another user's command", func(t *testing.T) {
		_, err := h.svc.Confirm(context.Background(), uuid.New(), ConfirmRequest{DeviceID: device, CommandID: *resp.CommandID, Confirmed: true})
		assert.ErrorIs(t, err, assistant.ErrNotFound)
	})

	t.Run("missing command id", func(t *testing.T) {
		_, err := h.confirm(uuid.Nil, true, "")
		assert.ErrorIs(t, err, assistant.ErrValidation)
	})

	t.Run("answered twice", func(t *testing.T) {
		_, err := h.confirm(*resp.CommandID, true, "")
		require.NoError(t, err)

		out, err := h.confirm(*resp.CommandID, true, "")
		assert.ErrorIs(t, err, assistant.ErrConflict)
		assert.Equal(t, StatusError, out.Status)
		assert.Len(t, h.store.entries, 1)
	})
}

func TestService_Confirm_ConcurrentExecutesOnce(t *testing.T) {
	h := newHarness(t, nil)
	resp := h.interpret(t, "Paguei uber 23,90")

	const racers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		ok        int
		conflicts int
	)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.confirm(*resp.CommandID, true, "sim")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, assistant.ErrConflict):
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, racers-1, conflicts)
	assert.Len(t, h.store.entries, 1)
	assert.Equal(t, assistant.StatusExecuted, h.store.command(*resp.CommandID).Status)
}

func TestService_ParkScenario(t *testing.T) {
	h := newHarness(t, nil)
	ids := h.store.addCategories(h.user, assistant.TypeExpense, "Alimentação", "Lazer")

	resp := h.interpret(t, "Fui ao parque com 5 amigos, a conta deu 48,50, dividimos entre nós.")
	assert.Equal(t, assistant.IntentAddExpense, resp.Intent)
	assert.Contains(t, resp.SpeakText, "sua parte R$ 9,70")

	slots, ok := resp.Payload.(assistant.Slots)
	require.True(t, ok)
	require.NotNil(t, slots.Item)
	assert.Nil(t, slots.Items)
	assert.Equal(t, "Parque com 5 Amigos", slots.Description)

	done, err := h.confirm(*resp.CommandID, true, "sim")
	require.NoError(t, err)

	result, ok := done.Payload.(*ExecutionResult)
	require.True(t, ok)
	require.Len(t, result.Entries, 1)
	assert.True(t, dec("48.5").Equal(result.Entries[0].Amount))
	assert.True(t, dec("9.70").Equal(result.Entries[0].ReportedAmount))
	assert.Equal(t, "Lazer", result.Entries[0].Category)

	require.Len(t, h.store.entries, 1)
	require.NotNil(t, h.store.entries[0].ReportWeight)
	assert.True(t, dec("0.2").Equal(*h.store.entries[0].ReportWeight))
	assert.Equal(t, ids["Lazer"], *h.store.entries[0].CategoryID)
}

func TestService_PixDirection(t *testing.T) {
	h := newHarness(t, nil)

	income := h.interpret(t, "Recebi pix do cliente 480,00")
	assert.Equal(t, assistant.IntentAddIncome, income.Intent)
	incomeSlots := h.store.command(*income.CommandID).Slots
	require.NotNil(t, incomeSlots.Amount)
	assert.True(t, dec("480").Equal(*incomeSlots.Amount))
	assert.Equal(t, assistant.TypeIncome, incomeSlots.TransactionType)

	expense := h.interpret(t, "Paguei pix do aluguel 1200,00")
	assert.Equal(t, assistant.IntentAddExpense, expense.Intent)
	expenseSlots := h.store.command(*expense.CommandID).Slots
	require.NotNil(t, expenseSlots.Amount)
	assert.True(t, dec("1200").Equal(*expenseSlots.Amount))
}

func TestService_Disambiguation(t *testing.T) {
	national, international := uuid.New(), uuid.New()
	options := []assistant.CategoryOption{
		{ID: &international, Name: "Viagem Internacional", Confidence: 0.79},
		{ID: &national, Name: "Viagem Nacional", Confidence: 0.79},
	}
	newAmbiguous := func(t *testing.T) (*harness, *stubResolver, *Response) {
		resolver := &stubResolver{res: assistant.Resolution{Candidates: options, NeedsDisambiguation: true}}
		h := newHarness(t, resolver)
		resp := h.interpret(t, "Gastei 300 reais na viagem")
		return h, resolver, resp
	}

	t.Run("interpret offers the options", func(t *testing.T) {
		_, _, resp := newAmbiguous(t)
		assert.True(t, resp.RequiresConfirmation)
		assert.Equal(t, options, resp.Options)
		assert.Contains(t, resp.SpeakText, "Viagem Internacional ou Viagem Nacional")
	})

	t.Run("spoken choice executes", func(t *testing.T) {
		h, resolver, resp := newAmbiguous(t)

		out, err := h.confirm(*resp.CommandID, true, "Viagem Internacional")
		require.NoError(t, err)
		assert.Equal(t, StatusOK, out.Status)

		require.Len(t, h.store.entries, 1)
		assert.Equal(t, international, *h.store.entries[0].CategoryID)

		cmd := h.store.command(*resp.CommandID)
		assert.Equal(t, assistant.StatusExecuted, cmd.Status)
		require.NotNil(t, cmd.Resolutions[0].Selected)
		assert.Equal(t, assistant.SourceSpeech, cmd.Resolutions[0].Selected.Source)
		assert.Equal(t, SpeechConfidence, cmd.Resolutions[0].Selected.Confidence)
		assert.Equal(t, []uuid.UUID{international}, resolver.learned)
	})

	t.Run("unmatched answer can be retried", func(t *testing.T) {
		h, _, resp := newAmbiguous(t)

		out, err := h.confirm(*resp.CommandID, true, "zebra")
		assert.ErrorIs(t, err, assistant.ErrUnresolvedCategory)
		assert.Equal(t, options, out.Options)
		assert.Contains(t, out.SpeakText, speakNoCategory)

		cmd := h.store.command(*resp.CommandID)
		assert.Equal(t, assistant.StatusConfirmed, cmd.Status)
		require.NotNil(t, cmd.ErrorMessage)
		assert.Empty(t, h.store.entries)

		_, err = h.confirm(*resp.CommandID, true, "a nacional")
		require.NoError(t, err)
		require.Len(t, h.store.entries, 1)
		assert.Equal(t, national, *h.store.entries[0].CategoryID)
	})

	t.Run("retry after the window fails the command", func(t *testing.T) {
		h, _, resp := newAmbiguous(t)
		_, err := h.confirm(*resp.CommandID, true, "zebra")
		require.ErrorIs(t, err, assistant.ErrUnresolvedCategory)

		h.clock.Advance(3 * time.Minute)
		_, err = h.confirm(*resp.CommandID, true, "Viagem Nacional")
		assert.ErrorIs(t, err, assistant.ErrExpired)
		assert.Equal(t, assistant.StatusFailed, h.store.command(*resp.CommandID).Status)
		assert.Empty(t, h.store.entries)
	})
}

func TestService_UncategorizedFallback(t *testing.T) {
	h := newHarness(t, nil)

	resp := h.interpret(t, "Paguei 35 reais na lavanderia")
	_, err := h.confirm(*resp.CommandID, true, "sim")
	require.NoError(t, err)

	cats, err := h.store.ListCategories(context.Background(), h.user, assistant.TypeExpense)
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.Equal(t, categorization.UncategorizedName, cats[0].Name)

	require.Len(t, h.store.entries, 1)
	assert.Equal(t, cats[0].ID, *h.store.entries[0].CategoryID)
	assert.Empty(t, h.mappings.upserted, "the catch-all is never learned")

	t.Run("existing bucket is reused", func(t *testing.T) {
		h.clock.Advance(time.Minute)
		resp := h.interpret(t, "Paguei 12 reais na chaveiro")
		_, err := h.confirm(*resp.CommandID, true, "sim")
		require.NoError(t, err)

		cats, err := h.store.ListCategories(context.Background(), h.user, assistant.TypeExpense)
		require.NoError(t, err)
		assert.Len(t, cats, 1)
	})
}

func TestService_ExecutionFailure(t *testing.T) {
	h := newHarness(t, nil)
	h.store.insertErr = errors.New("connection reset")

	resp := h.interpret(t, "Paguei uber 23,90")
	out, err := h.confirm(*resp.CommandID, true, "sim")
	assert.ErrorIs(t, err, assistant.ErrStore)
	assert.Equal(t, speakStore, out.SpeakText)

	cmd := h.store.command(*resp.CommandID)
	assert.Equal(t, assistant.StatusFailed, cmd.Status)
	require.NotNil(t, cmd.ErrorMessage)
	assert.Contains(t, *cmd.ErrorMessage, "connection reset")
	assert.Empty(t, h.mappings.upserted)
}

func TestService_UpdateAndDelete(t *testing.T) {
	uberID, lunchID := uuid.New(), uuid.New()
	seed := func(h *harness) {
		h.store.records = []repository.Record{
			{ID: lunchID, Type: assistant.TypeExpense, Description: "Almoço", Amount: dec("32"), Date: march15},
			{ID: uberID, Type: assistant.TypeExpense, Description: "Uber", Amount: dec("23.90"), Date: march15.AddDate(0, 0, -1)},
		}
	}

	t.Run("update", func(t *testing.T) {
		h := newHarness(t, nil)
		seed(h)
		resp := h.interpret(t, "Muda o uber de 23,90 para 25")
		assert.Equal(t, assistant.IntentUpdate, resp.Intent)
		assert.Contains(t, resp.SpeakText, "Confirma alterar o lançamento Uber de R$ 23,90 para R$ 25,00?")

		out, err := h.confirm(*resp.CommandID, true, "sim")
		require.NoError(t, err)
		assert.True(t, dec("25").Equal(h.store.updated[uberID]))
		assert.Equal(t, "Pronto, Uber agora é R$ 25,00.", out.SpeakText)
	})

	t.Run("delete", func(t *testing.T) {
		h := newHarness(t, nil)
		seed(h)
		resp := h.interpret(t, "Apaga o gasto do uber de 23,90")

		_, err := h.confirm(*resp.CommandID, true, "sim")
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{uberID}, h.store.deleted)
	})

	t.Run("no match fails the command", func(t *testing.T) {
		h := newHarness(t, nil)
		resp := h.interpret(t, "Apaga o gasto do uber de 23,90")

		_, err := h.confirm(*resp.CommandID, true, "sim")
		assert.ErrorIs(t, err, assistant.ErrNotFound)
		assert.Equal(t, assistant.StatusFailed, h.store.command(*resp.CommandID).Status)
	})

	t.Run("update without new amount", func(t *testing.T) {
		h := newHarness(t, nil)
		seed(h)
		resp := h.interpret(t, "Corrige o almoço")

		_, err := h.confirm(*resp.CommandID, true, "sim")
		assert.ErrorIs(t, err, assistant.ErrValidation)
		assert.Empty(t, h.store.updated)
	})
}

func TestBestRecord(t *testing.T) {
	newest := repository.Record{ID: uuid.New(), Description: "Uber", Amount: dec("30")}
	older := repository.Record{ID: uuid.New(), Description: "Uber", Amount: dec("23.90")}
	lunch := repository.Record{ID: uuid.New(), Description: "Almoço", Amount: dec("23.90"), CategoryName: "Alimentação"}
	records := []repository.Record{newest, lunch, older}
	amount := dec("23.9")

	tests := []struct {
		name   string
		target assistant.Target
		want   uuid.UUID
		found  bool
	}{
		{"tie goes to the newest", assistant.Target{Description: "uber"}, newest.ID, true},
		{"amount breaks the tie", assistant.Target{Description: "uber", Amount: &amount}, older.ID, true},
		{"category name counts", assistant.Target{Description: "alimentacao"}, lunch.ID, true},
		{"amount alone", assistant.Target{Amount: &amount}, lunch.ID, true},
		{"no criteria picks the newest", assistant.Target{}, newest.ID, true},
		{"nothing matches", assistant.Target{Description: "cinema"}, uuid.Nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := BestRecord(records, &tt.target)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, got.ID)
		})
	}

	_, ok := BestRecord(nil, &assistant.Target{})
	assert.False(t, ok)
}

func TestService_CreateCategory(t *testing.T) {
	t.Run("creates with the default color", func(t *testing.T) {
		h := newHarness(t, nil)
		resp := h.interpret(t, "Cria uma categoria chamada Viagens")
		assert.Equal(t, "Confirma criar a categoria de despesas Viagens?", resp.SpeakText)

		out, err := h.confirm(*resp.CommandID, true, "sim")
		require.NoError(t, err)
		assert.Equal(t, "Pronto, criei a categoria Viagens.", out.SpeakText)

		cats, _ := h.store.ListCategories(context.Background(), h.user, assistant.TypeExpense)
		require.Len(t, cats, 1)
		assert.Equal(t, DefaultCategoryColor, cats[0].Color)
	})

	t.Run("existing name is a conflict", func(t *testing.T) {
		h := newHarness(t, nil)
		h.store.addCategories(h.user, assistant.TypeExpense, "viagens")
		resp := h.interpret(t, "Cria uma categoria chamada Viagens")

		_, err := h.confirm(*resp.CommandID, true, "sim")
		assert.ErrorIs(t, err, assistant.ErrConflict)
		assert.Equal(t, assistant.StatusFailed, h.store.command(*resp.CommandID).Status)
	})
}

func TestService_ReadIntents(t *testing.T) {
	t.Run("balance runs without confirmation", func(t *testing.T) {
		h := newHarness(t, nil)
		h.narrator.totals = &insights.MonthTotals{Expenses: dec("1200"), Incomes: dec("3000"), Investments: dec("300")}

		resp := h.interpret(t, "Qual meu saldo do mês passado")
		assert.False(t, resp.RequiresConfirmation)
		assert.Equal(t, assistant.IntentMonthBalance, resp.Intent)
		assert.Equal(t, "Em fevereiro de 2026 você gastou R$ 1.200,00, recebeu R$ 3.000,00 e investiu R$ 300,00. O saldo é de R$ 1.500,00.", resp.SpeakText)
		assert.Equal(t, []string{"2026-02"}, h.narrator.months)

		cmd := h.store.command(*resp.CommandID)
		assert.Equal(t, assistant.StatusExecuted, cmd.Status)
		var stored ExecutionResult
		require.NoError(t, json.Unmarshal(cmd.ExecutionResult, &stored))
		require.NotNil(t, stored.Balance)
		assert.True(t, dec("1500").Equal(stored.Balance.Balance))
	})

	t.Run("recent transactions", func(t *testing.T) {
		h := newHarness(t, nil)
		h.store.records = []repository.Record{
			{ID: uuid.New(), Type: assistant.TypeExpense, Description: "Uber", Amount: dec("23.90"), Date: march15},
		}
		resp := h.interpret(t, "Mostra as últimas transações")
		assert.Equal(t, "Seus últimos lançamentos: Uber, R$ 23,90.", resp.SpeakText)
	})

	t.Run("unknown is recorded", func(t *testing.T) {
		h := newHarness(t, nil)
		resp := h.interpret(t, "oi")
		assert.Equal(t, assistant.IntentUnknown, resp.Intent)
		assert.Equal(t, speakUnknown, resp.SpeakText)
		assert.Equal(t, assistant.StatusExecuted, h.store.command(*resp.CommandID).Status)
	})

	t.Run("read failure is recorded as failed", func(t *testing.T) {
		h := newHarness(t, nil)
		h.narrator.err = errors.New("timeout")

		resp, err := h.svc.Interpret(context.Background(), h.user, InterpretRequest{DeviceID: device, Text: "Quanto gastei esse mês?"})
		assert.ErrorIs(t, err, assistant.ErrStore)
		require.NotNil(t, resp.CommandID)
		cmd := h.store.command(*resp.CommandID)
		assert.Equal(t, assistant.StatusFailed, cmd.Status)
		require.NotNil(t, cmd.ErrorMessage)
	})
}

func TestService_Insights(t *testing.T) {
	h := newHarness(t, nil)
	h.narrator.report = &insights.MonthlyInsights{Highlights: []insights.Highlight{
		{Kind: insights.HighlightSummary, Text: "Até agora, em março de 2026 você gastou R$ 10,00."},
	}}

	resp, err := h.svc.Insights(context.Background(), h.user, InsightsRequest{DeviceID: device, Month: "2026-03"})
	require.NoError(t, err)
	assert.Equal(t, "Até agora, em março de 2026 você gastou R$ 10,00.", resp.SpeakText)
	assert.Equal(t, []string{"2026-03"}, h.narrator.months)
	assert.Empty(t, h.store.commands, "insights turns are not commands")

	_, err = h.svc.Insights(context.Background(), h.user, InsightsRequest{DeviceID: device, Month: "março"})
	assert.ErrorIs(t, err, assistant.ErrValidation)
}

func TestService_Session(t *testing.T) {
	h := newHarness(t, nil)

	h.interpret(t, "Paguei uber 23,90")
	h.clock.Advance(time.Minute)
	h.interpret(t, "Paguei 20 reais no almoço")
	assert.Len(t, h.store.sessions, 1, "turns inside the TTL share a session")

	h.clock.Advance(DefaultSessionTTL + time.Minute)
	h.interpret(t, "Paguei 20 reais no almoço")
	assert.Len(t, h.store.sessions, 2)

	active := 0
	for _, s := range h.store.sessions {
		if s.Status == assistant.SessionActive {
			active++
		}
	}
	assert.Equal(t, 1, active)
}

func TestIdempotencyKey(t *testing.T) {
	sid := uuid.New()
	base := time.Date(2026, 3, 15, 12, 0, 5, 0, time.UTC)

	assert.Equal(t, IdempotencyKey(sid, "paguei uber", base), IdempotencyKey(sid, "paguei uber", base.Add(40*time.Second)))
	assert.NotEqual(t, IdempotencyKey(sid, "paguei uber", base), IdempotencyKey(sid, "paguei uber", base.Add(time.Minute)))
	assert.NotEqual(t, IdempotencyKey(sid, "paguei uber", base), IdempotencyKey(uuid.New(), "paguei uber", base))
	assert.Len(t, IdempotencyKey(sid, "x", base), 64)
}
