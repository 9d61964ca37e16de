// Package handler exposes the assistant over HTTP: one turn endpoint for
// interpret, confirm and insights turns, plus the command audit export.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gocarina/gocsv"
	"github.com/google/uuid"

	"github.com/FACorreiaa/echo-voice-assistant/internal/domain/assistant"
	"github.com/FACorreiaa/echo-voice-assistant/internal/domain/assistant/service"
	"github.com/FACorreiaa/echo-voice-assistant/pkg/interceptors"
)

const (
	maxBodyBytes      = 64 << 10
	defaultExportDays = 30
)

// Assistant is the turn API the handler drives.
type Assistant interface {
	Interpret(ctx context.Context, userID uuid.UUID, req service.InterpretRequest) (*service.Response, error)
	Confirm(ctx context.Context, userID uuid.UUID, req service.ConfirmRequest) (*service.Response, error)
	Insights(ctx context.Context, userID uuid.UUID, req service.InsightsRequest) (*service.Response, error)
}

// CommandLister reads the command audit trail.
type CommandLister interface {
	ListCommands(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]assistant.Command, error)
}

// AssistantHandler serves the assistant routes.
type AssistantHandler struct {
	svc      Assistant
	commands CommandLister
	logger   *slog.Logger
	now      func() time.Time
}

// NewAssistantHandler constructs a new handler.
func NewAssistantHandler(svc Assistant, commands CommandLister, logger *slog.Logger) *AssistantHandler {
	return &AssistantHandler{svc: svc, commands: commands, logger: logger, now: time.Now}
}

// Routes mounts the assistant endpoints on r.
func (h *AssistantHandler) Routes(r chi.Router) {
	r.Post("/v1/assistant/turn", h.Turn)
	r.Get("/v1/assistant/commands/export", h.ExportCommands)
}

// TurnRequest is the body of POST /v1/assistant/turn.
type TurnRequest struct {
	TurnType   service.TurnType `json:"turnType"`
	DeviceID   string           `json:"deviceId"`
	Locale     string           `json:"locale,omitempty"`
	Text       string           `json:"text,omitempty"`
	CommandID  string           `json:"commandId,omitempty"`
	Confirmed  *bool            `json:"confirmed,omitempty"`
	SpokenText string           `json:"spokenText,omitempty"`
	Method     string           `json:"method,omitempty"`
	Month      string           `json:"month,omitempty"`
}

// Turn dispatches one turn by its type.
func (h *AssistantHandler) Turn(w http.ResponseWriter, r *http.Request) {
	userID, err := userFromContext(r.Context())
	if err != nil {
		h.writeError(w, r, nil, err)
		return
	}

	var req TurnRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		h.writeError(w, r, nil, fmt.Errorf("invalid JSON body: %w", assistant.ErrValidation))
		return
	}

	var resp *service.Response
	switch req.TurnType {
	case service.TurnInterpret:
		resp, err = h.svc.Interpret(r.Context(), userID, service.InterpretRequest{
			DeviceID: req.DeviceID,
			Locale:   req.Locale,
			Text:     req.Text,
		})
	case service.TurnConfirm:
		var confirm service.ConfirmRequest
		confirm, err = confirmRequest(req)
		if err == nil {
			resp, err = h.svc.Confirm(r.Context(), userID, confirm)
		}
	case service.TurnInsights:
		resp, err = h.svc.Insights(r.Context(), userID, service.InsightsRequest{
			DeviceID: req.DeviceID,
			Locale:   req.Locale,
			Month:    req.Month,
		})
	default:
		err = &assistant.ValidationError{Field: "turnType"}
	}

	if err != nil {
		h.writeError(w, r, resp, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func confirmRequest(req TurnRequest) (service.ConfirmRequest, error) {
	id, err := uuid.Parse(strings.TrimSpace(req.CommandID))
	if err != nil {
		return service.ConfirmRequest{}, &assistant.ValidationError{Field: "commandId"}
	}
	if req.Confirmed == nil {
		return service.ConfirmRequest{}, &assistant.ValidationError{Field: "confirmed"}
	}
	method := assistant.ConfirmMethod(req.Method)
	switch method {
	case "", assistant.MethodVoice, assistant.MethodText, assistant.MethodButton:
	default:
		return service.ConfirmRequest{}, &assistant.ValidationError{Field: "method"}
	}
	return service.ConfirmRequest{
		DeviceID:   req.DeviceID,
		CommandID:  id,
		Confirmed:  *req.Confirmed,
		SpokenText: req.SpokenText,
		Method:     method,
	}, nil
}

// CommandRow is one line of the audit export.
type CommandRow struct {
	ID           string  `csv:"id"`
	CreatedAt    string  `csv:"created_at"`
	Intent       string  `csv:"intent"`
	Confidence   float64 `csv:"confidence"`
	Status       string  `csv:"status"`
	RawText      string  `csv:"raw_text"`
	ErrorMessage string  `csv:"error_message"`
}

// ExportCommands streams the user's commands between from and to (inclusive
// days, yyyy-MM-dd) as CSV. The default range is the last 30 days.
func (h *AssistantHandler) ExportCommands(w http.ResponseWriter, r *http.Request) {
	userID, err := userFromContext(r.Context())
	if err != nil {
		h.writeError(w, r, nil, err)
		return
	}

	today := h.now().UTC().Truncate(24 * time.Hour)
	from, err := parseDay(r.URL.Query().Get("from"), today.AddDate(0, 0, -defaultExportDays))
	if err != nil {
		h.writeError(w, r, nil, &assistant.ValidationError{Field: "from"})
		return
	}
	to, err := parseDay(r.URL.Query().Get("to"), today)
	if err != nil || to.Before(from) {
		h.writeError(w, r, nil, &assistant.ValidationError{Field: "to"})
		return
	}

	cmds, err := h.commands.ListCommands(r.Context(), userID, from, to.AddDate(0, 0, 1))
	if err != nil {
		h.writeError(w, r, nil, err)
		return
	}

	rows := make([]*CommandRow, len(cmds))
	for i, c := range cmds {
		row := &CommandRow{
			ID:         c.ID.String(),
			CreatedAt:  c.CreatedAt.UTC().Format(time.RFC3339),
			Intent:     string(c.Intent),
			Confidence: c.Confidence,
			Status:     string(c.Status),
			RawText:    c.RawText,
		}
		if c.ErrorMessage != nil {
			row.ErrorMessage = *c.ErrorMessage
		}
		rows[i] = row
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="commands-%s-%s.csv"`, from.Format("20060102"), to.Format("20060102")))
	if err := gocsv.Marshal(rows, w); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to write command export", slog.Any("error", err))
	}
}

func parseDay(value string, fallback time.Time) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return fallback, nil
	}
	return time.Parse("2006-01-02", strings.TrimSpace(value))
}

func userFromContext(ctx context.Context) (uuid.UUID, error) {
	raw, ok := interceptors.GetUserIDFromContext(ctx)
	if !ok || raw == "" {
		return uuid.Nil, assistant.ErrUnauthenticated
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, assistant.ErrUnauthenticated
	}
	return id, nil
}

// StatusFor maps a turn error to its HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, assistant.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, assistant.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, assistant.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, assistant.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, assistant.ErrExpired):
		return http.StatusGone
	case errors.Is(err, assistant.ErrUnresolvedCategory):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// writeError answers with the service's response when it built one, so the
// command id and options survive, and always carries a speakText.
func (h *AssistantHandler) writeError(w http.ResponseWriter, r *http.Request, resp *service.Response, err error) {
	status := StatusFor(err)
	if resp == nil {
		resp = &service.Response{Status: service.StatusError}
	}
	resp.Status = service.StatusError
	if resp.SpeakText == "" {
		resp.SpeakText = service.SpeakForError(err)
	}
	if resp.Error == "" {
		resp.Error = err.Error()
	}

	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "assistant turn failed", slog.Any("error", err))
	} else {
		h.logger.DebugContext(r.Context(), "assistant turn rejected", slog.Int("status", status), slog.Any("error", err))
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
