package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gocarina/gocsv"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/echo-voice-assistant/internal/domain/assistant"
	"github.com/FACorreiaa/echo-voice-assistant/internal/domain/assistant/service"
	"github.com/FACorreiaa/echo-voice-assistant/pkg/interceptors"
)

type fakeAssistant struct {
	resp *service.Response
	err  error

	interpreted []service.InterpretRequest
	confirmed   []service.ConfirmRequest
	insights    []service.InsightsRequest
}

func (f *fakeAssistant) Interpret(_ context.Context, _ uuid.UUID, req service.InterpretRequest) (*service.Response, error) {
	f.interpreted = append(f.interpreted, req)
	return f.resp, f.err
}

func (f *fakeAssistant) Confirm(_ context.Context, _ uuid.UUID, req service.ConfirmRequest) (*service.Response, error) {
	f.confirmed = append(f.confirmed, req)
	return f.resp, f.err
}

func (f *fakeAssistant) Insights(_ context.Context, _ uuid.UUID, req service.InsightsRequest) (*service.Response, error) {
	f.insights = append(f.insights, req)
	return f.resp, f.err
}

type fakeCommands struct {
	cmds     []assistant.Command
	from, to time.Time
}

func (f *fakeCommands) ListCommands(_ context.Context, _ uuid.UUID, from, to time.Time) ([]assistant.Command, error) {
	f.from, f.to = from, to
	return f.cmds, nil
}

func newRouter(h *AssistantHandler, userID string) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if userID != "" {
				req = req.WithContext(interceptors.WithUserID(req.Context(), userID))
			}
			next.ServeHTTP(w, req)
		})
	})
	h.Routes(r)
	return r
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func postTurn(t *testing.T, handler http.Handler, body string) (*httptest.ResponseRecorder, service.Response) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/assistant/turn", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var resp service.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return rec, resp
}

func TestTurn_Dispatch(t *testing.T) {
	user := uuid.New().String()
	commandID := uuid.New()

	t.Run("interpret", func(t *testing.T) {
		fake := &fakeAssistant{resp: &service.Response{Status: service.StatusOK, RequiresConfirmation: true, SpeakText: "Confirma?", CommandID: &commandID}}
		h := newRouter(NewAssistantHandler(fake, &fakeCommands{}, testLogger()), user)

		rec, resp := postTurn(t, h, `{"turnType":"interpret","deviceId":"car","text":"Paguei uber 23,90"}`)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, resp.RequiresConfirmation)
		assert.Equal(t, commandID, *resp.CommandID)
		require.Len(t, fake.interpreted, 1)
		assert.Equal(t, "Paguei uber 23,90", fake.interpreted[0].Text)
	})

	t.Run("confirm", func(t *testing.T) {
		fake := &fakeAssistant{resp: &service.Response{Status: service.StatusOK, SpeakText: "Pronto."}}
		h := newRouter(NewAssistantHandler(fake, &fakeCommands{}, testLogger()), user)

		body := fmt.Sprintf(`{"turnType":"confirm","deviceId":"car","commandId":%q,"confirmed":true,"spokenText":"sim","method":"button"}`, commandID)
		rec, _ := postTurn(t, h, body)
		assert.Equal(t, http.StatusOK, rec.Code)
		require.Len(t, fake.confirmed, 1)
		assert.Equal(t, commandID, fake.confirmed[0].CommandID)
		assert.True(t, fake.confirmed[0].Confirmed)
		assert.Equal(t, assistant.MethodButton, fake.confirmed[0].Method)
	})

	t.Run("insights", func(t *testing.T) {
		fake := &fakeAssistant{resp: &service.Response{Status: service.StatusOK, SpeakText: "Resumo."}}
		h := newRouter(NewAssistantHandler(fake, &fakeCommands{}, testLogger()), user)

		rec, resp := postTurn(t, h, `{"turnType":"insights","deviceId":"car","month":"2026-03"}`)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Resumo.", resp.SpeakText)
		require.Len(t, fake.insights, 1)
		assert.Equal(t, "2026-03", fake.insights[0].Month)
	})
}

func TestTurn_Errors(t *testing.T) {
	user := uuid.New().String()
	commandID := uuid.New()

	tests := []struct {
		name   string
		user   string
		body   string
		err    error
		resp   *service.Response
		status int
	}{
		{"no user", "", `{"turnType":"interpret","deviceId":"car","text":"oi"}`, nil, nil, http.StatusUnauthorized},
		{"bad json", user, `{`, nil, nil, http.StatusBadRequest},
		{"unknown turn type", user, `{"turnType":"dance"}`, nil, nil, http.StatusBadRequest},
		{"confirm without answer", user, fmt.Sprintf(`{"turnType":"confirm","deviceId":"car","commandId":%q}`, commandID), nil, nil, http.StatusBadRequest},
		{"confirm with bad id", user, `{"turnType":"confirm","deviceId":"car","commandId":"x","confirmed":true}`, nil, nil, http.StatusBadRequest},
		{"validation", user, `{"turnType":"interpret","deviceId":"car"}`, &assistant.ValidationError{Field: "text"}, nil, http.StatusBadRequest},
		{"not found", user, `{"turnType":"interpret","deviceId":"car","text":"x"}`, assistant.ErrNotFound, nil, http.StatusNotFound},
		{"conflict", user, `{"turnType":"interpret","deviceId":"car","text":"x"}`, assistant.ErrConflict, nil, http.StatusConflict},
		{"expired", user, `{"turnType":"interpret","deviceId":"car","text":"x"}`, assistant.ErrExpired, nil, http.StatusGone},
		{"store", user, `{"turnType":"interpret","deviceId":"car","text":"x"}`, assistant.StoreError("insert", fmt.Errorf("boom")), nil, http.StatusInternalServerError},
		{
			"unresolved category keeps the options", user, `{"turnType":"interpret","deviceId":"car","text":"x"}`,
			assistant.ErrUnresolvedCategory,
			&service.Response{Status: service.StatusError, SpeakText: "Não entendi a categoria.", CommandID: &commandID, Options: []assistant.CategoryOption{{Name: "Lazer"}}},
			http.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeAssistant{resp: tt.resp, err: tt.err}
			h := newRouter(NewAssistantHandler(fake, &fakeCommands{}, testLogger()), tt.user)

			rec, resp := postTurn(t, h, tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, service.StatusError, resp.Status)
			assert.NotEmpty(t, resp.SpeakText)
			assert.NotEmpty(t, resp.Error)
			if tt.resp != nil {
				assert.Equal(t, commandID, *resp.CommandID)
				assert.Len(t, resp.Options, 1)
			}
		})
	}
}

func TestExportCommands(t *testing.T) {
	user := uuid.New().String()
	msg := "confirmation window expired"
	commands := &fakeCommands{cmds: []assistant.Command{
		{ID: uuid.New(), Intent: assistant.IntentAddExpense, Confidence: 0.9, Status: assistant.StatusExecuted, RawText: "Paguei uber 23,90", CreatedAt: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)},
		{ID: uuid.New(), Intent: assistant.IntentAddIncome, Confidence: 0.9, Status: assistant.StatusExpired, RawText: "Recebi 100", ErrorMessage: &msg, CreatedAt: time.Date(2026, 3, 3, 10, 0, 0, 0, time.UTC)},
	}}
	h := NewAssistantHandler(&fakeAssistant{}, commands, testLogger())
	router := newRouter(h, user)

	t.Run("csv rows", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/assistant/commands/export?from=2026-03-01&to=2026-03-31", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
		assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), commands.from)
		assert.Equal(t, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), commands.to)

		var rows []*CommandRow
		require.NoError(t, gocsv.UnmarshalBytes(rec.Body.Bytes(), &rows))
		require.Len(t, rows, 2)
		assert.Equal(t, "add_expense", rows[0].Intent)
		assert.Equal(t, "Paguei uber 23,90", rows[0].RawText)
		assert.Equal(t, msg, rows[1].ErrorMessage)
	})

	t.Run("bad range", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/assistant/commands/export?from=2026-03-10&to=2026-03-01", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
