// Package service orchestrates assistant turns: interpreting an utterance
// into a command, confirming and executing it, and narrating insights.
package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/echo-voice-assistant/internal/domain/assistant"
	"github.com/FACorreiaa/echo-voice-assistant/internal/domain/assistant/nlp"
	"github.com/FACorreiaa/echo-voice-assistant/internal/domain/assistant/repository"
	"github.com/FACorreiaa/echo-voice-assistant/internal/domain/categorization"
	"github.com/FACorreiaa/echo-voice-assistant/internal/domain/insights"
	"github.com/FACorreiaa/echo-voice-assistant/pkg/metrics"
)

const (
	// DefaultConfirmationWindow is how long a pending command may be confirmed.
	DefaultConfirmationWindow = 2 * time.Minute
	// DefaultSessionTTL is the sliding lifetime of a device session.
	DefaultSessionTTL = 30 * time.Minute
	// DefaultLocale is used when a turn names none.
	DefaultLocale = "pt-BR"
	// DefaultCategoryColor is given to categories created by voice.
	DefaultCategoryColor = "#9CA3AF"
	// SpeechConfidence is the confidence of a category the user picked aloud.
	SpeechConfidence = 1.0

	recentLimit    = 5
	candidateLimit = 50
)

// Resolver categorizes entries and learns from executed ones.
type Resolver interface {
	Resolve(ctx context.Context, req categorization.Request) (assistant.Resolution, error)
	Learn(ctx context.Context, userID uuid.UUID, t assistant.TransactionType, description string, categoryID uuid.UUID, confidence float64) error
}

// Narrator reads month aggregates and narrates them.
type Narrator interface {
	GetMonthlyInsights(ctx context.Context, userID uuid.UUID, monthStart, now time.Time) (*insights.MonthlyInsights, error)
	GetMonthTotals(ctx context.Context, userID uuid.UUID, monthStart time.Time) (*insights.MonthTotals, error)
}

// Config tunes the assistant.
type Config struct {
	ConfirmationWindow time.Duration
	SessionTTL         time.Duration
	DefaultLocale      string
}

func (c Config) withDefaults() Config {
	if c.ConfirmationWindow <= 0 {
		c.ConfirmationWindow = DefaultConfirmationWindow
	}
	if c.SessionTTL <= 0 {
		c.SessionTTL = DefaultSessionTTL
	}
	if c.DefaultLocale == "" {
		c.DefaultLocale = DefaultLocale
	}
	return c
}

// Service handles assistant turns
type Service struct {
	store    repository.Store
	resolver Resolver
	narrator Narrator
	cfg      Config
	clock    Clock
	metrics  *metrics.Assistant
	tracer   trace.Tracer
	logger   *slog.Logger
}

// Option customizes a Service.
type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(c Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithMetrics records turn metrics on m.
func WithMetrics(m *metrics.Assistant) Option {
	return func(s *Service) { s.metrics = m }
}

// NewService creates a new assistant service
func NewService(store repository.Store, resolver Resolver, narrator Narrator, cfg Config, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store:    store,
		resolver: resolver,
		narrator: narrator,
		cfg:      cfg.withDefaults(),
		clock:    time.Now,
		tracer:   otel.Tracer("github.com/FACorreiaa/echo-voice-assistant/assistant"),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Interpret classifies an utterance, extracts its slots and resolves
// categories. Write intents are stored pending confirmation; read intents
// run immediately. A repeated utterance within the same minute replays the
// stored command.
func (s *Service) Interpret(ctx context.Context, userID uuid.UUID, req InterpretRequest) (resp *Response, err error) {
	ctx, span := s.tracer.Start(ctx, "assistant.Interpret")
	defer s.finishTurn(span, TurnInterpret, s.clock(), &resp, &err)

	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, &assistant.ValidationError{Field: "text"}
	}
	if strings.TrimSpace(req.DeviceID) == "" {
		return nil, &assistant.ValidationError{Field: "deviceId"}
	}
	if userID == uuid.Nil {
		return nil, assistant.ErrUnauthenticated
	}

	now := s.clock()
	session, err := s.session(ctx, userID, req.DeviceID, req.Locale)
	if err != nil {
		return nil, err
	}

	normalized := nlp.Prepare(text)
	verdict := nlp.Classify(text)
	span.SetAttributes(
		attribute.String("assistant.intent", string(verdict.Intent)),
		attribute.Float64("assistant.confidence", verdict.Confidence),
	)

	cmd := &assistant.Command{
		SessionID:            session.ID,
		UserID:               userID,
		RawText:              text,
		NormalizedText:       normalized,
		Intent:               verdict.Intent,
		Confidence:           verdict.Confidence,
		Slots:                nlp.BuildSlots(text, now, verdict.Intent),
		RequiresConfirmation: verdict.Intent.RequiresConfirmation(),
		IdempotencyKey:       IdempotencyKey(session.ID, normalized, now),
	}

	if cmd.Intent.IsAdd() {
		if err := s.resolveCategories(ctx, cmd); err != nil {
			return nil, err
		}
	}

	if !cmd.RequiresConfirmation {
		return s.runReadCommand(ctx, cmd, now)
	}

	cmd.Status = assistant.StatusPending
	replayed, err := s.store.CreateCommand(ctx, cmd)
	if err != nil {
		return nil, fmt.Errorf("failed to create command: %w", err)
	}
	if replayed {
		s.logger.Info("replayed duplicate utterance", "command_id", cmd.ID, "status", cmd.Status)
		return s.replay(cmd), nil
	}

	s.logger.Info("command pending confirmation",
		"command_id", cmd.ID,
		"intent", cmd.Intent,
		"confidence", cmd.Confidence,
		"variant", cmd.Slots.Variant,
	)
	return s.pendingResponse(cmd), nil
}

// Confirm answers a pending command. A denial or a late confirmation ends the
// command; an accepted one is executed right away. Every status change is a
// compare-and-swap, so racing confirmations execute at most once.
func (s *Service) Confirm(ctx context.Context, userID uuid.UUID, req ConfirmRequest) (resp *Response, err error) {
	ctx, span := s.tracer.Start(ctx, "assistant.Confirm")
	defer s.finishTurn(span, TurnConfirm, s.clock(), &resp, &err)

	if req.CommandID == uuid.Nil {
		return nil, &assistant.ValidationError{Field: "commandId"}
	}
	if strings.TrimSpace(req.DeviceID) == "" {
		return nil, &assistant.ValidationError{Field: "deviceId"}
	}
	if userID == uuid.Nil {
		return nil, assistant.ErrUnauthenticated
	}
	if req.Method == "" {
		req.Method = assistant.MethodVoice
	}
	span.SetAttributes(attribute.String("assistant.command_id", req.CommandID.String()))

	if _, err := s.session(ctx, userID, req.DeviceID, ""); err != nil {
		return nil, err
	}

	cmd, err := s.store.GetCommand(ctx, req.CommandID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load command: %w", err)
	}

	now := s.clock()
	switch {
	case cmd.Status == assistant.StatusPending:
		return s.answerPending(ctx, cmd, req, now)
	case cmd.Status == assistant.StatusConfirmed && cmd.NeedsDisambiguation():
		return s.retryDisambiguation(ctx, cmd, req, now)
	}
	return s.errorResponse(cmd, assistant.ErrConflict), fmt.Errorf("command is %s: %w", cmd.Status, assistant.ErrConflict)
}

func (s *Service) answerPending(ctx context.Context, cmd *assistant.Command, req ConfirmRequest, now time.Time) (*Response, error) {
	if !req.Confirmed {
		if err := s.transition(ctx, cmd, assistant.StatusDenied, nil, nil); err != nil {
			return s.errorResponse(cmd, err), err
		}
		s.recordConfirmation(ctx, cmd, req)
		return &Response{Status: StatusOK, SpeakText: speakDenied, CommandID: &cmd.ID, Intent: cmd.Intent}, nil
	}

	if now.Sub(cmd.CreatedAt) > s.cfg.ConfirmationWindow {
		msg := assistant.ErrExpired.Error()
		if err := s.transition(ctx, cmd, assistant.StatusExpired, nil, &msg); err != nil {
			return s.errorResponse(cmd, err), err
		}
		s.recordConfirmation(ctx, cmd, req)
		return s.errorResponse(cmd, assistant.ErrExpired), assistant.ErrExpired
	}

	if err := s.transition(ctx, cmd, assistant.StatusConfirmed, nil, nil); err != nil {
		return s.errorResponse(cmd, err), err
	}
	s.recordConfirmation(ctx, cmd, req)

	if cmd.NeedsDisambiguation() {
		if resp, err := s.disambiguate(ctx, cmd, req.SpokenText); err != nil {
			return resp, err
		}
	}
	return s.executeConfirmed(ctx, cmd)
}

// retryDisambiguation handles another answer for a command that was confirmed
// but whose category could not be understood.
func (s *Service) retryDisambiguation(ctx context.Context, cmd *assistant.Command, req ConfirmRequest, now time.Time) (*Response, error) {
	if now.Sub(cmd.CreatedAt) > s.cfg.ConfirmationWindow {
		msg := assistant.ErrExpired.Error()
		if err := s.transition(ctx, cmd, assistant.StatusFailed, nil, &msg); err != nil {
			return s.errorResponse(cmd, err), err
		}
		return s.errorResponse(cmd, assistant.ErrExpired), assistant.ErrExpired
	}
	if !req.Confirmed {
		msg := "cancelled during category choice"
		if err := s.transition(ctx, cmd, assistant.StatusFailed, nil, &msg); err != nil {
			return s.errorResponse(cmd, err), err
		}
		s.recordConfirmation(ctx, cmd, req)
		return &Response{Status: StatusOK, SpeakText: speakDenied, CommandID: &cmd.ID, Intent: cmd.Intent}, nil
	}

	s.recordConfirmation(ctx, cmd, req)
	if resp, err := s.disambiguate(ctx, cmd, req.SpokenText); err != nil {
		return resp, err
	}
	return s.executeConfirmed(ctx, cmd)
}

// disambiguate picks a category for every entry still waiting for one from the
// spoken answer. On failure the command stays confirmed with the error
// recorded, and the options are offered again.
func (s *Service) disambiguate(ctx context.Context, cmd *assistant.Command, spoken string) (*Response, error) {
	entries := cmd.Slots.Entries()
	for i, res := range cmd.Resolutions {
		if !res.NeedsDisambiguation || i >= len(entries) {
			continue
		}
		opt, ok := categorization.MatchSpoken(spoken, res.Candidates)
		if !ok || opt.ID == nil {
			msg := fmt.Sprintf("%s: %q", assistant.ErrUnresolvedCategory.Error(), spoken)
			if err := s.store.RecordCommandError(ctx, cmd.ID, msg); err != nil {
				s.logger.Error("failed to record command error", "command_id", cmd.ID, "error", err)
			}
			resp := &Response{
				Status:    StatusError,
				SpeakText: speakNoCategory + " " + disambiguationPrompt(entries[i].Description, res.Candidates),
				CommandID: &cmd.ID,
				Intent:    cmd.Intent,
				Options:   res.Candidates,
				Error:     assistant.ErrUnresolvedCategory.Error(),
			}
			return resp, assistant.ErrUnresolvedCategory
		}

		picked := &assistant.ResolvedCategory{ID: opt.ID, Name: opt.Name, Confidence: SpeechConfidence, Source: assistant.SourceSpeech}
		cmd.Resolutions[i] = assistant.Resolution{Selected: picked, Candidates: res.Candidates}
		it := entries[i]
		it.Category = picked
		cmd.Slots.SetEntry(i, it)
		s.metrics.ObserveResolution(string(assistant.SourceSpeech))
	}

	if err := s.store.UpdateCommandSlots(ctx, cmd.ID, cmd.Slots, cmd.Resolutions); err != nil {
		return s.errorResponse(cmd, err), fmt.Errorf("failed to store category choice: %w", err)
	}
	return nil, nil
}

// executeConfirmed runs a confirmed command and moves it to executed or failed.
func (s *Service) executeConfirmed(ctx context.Context, cmd *assistant.Command) (*Response, error) {
	result, execErr := s.execute(ctx, cmd)
	if execErr != nil {
		msg := execErr.Error()
		if err := s.transition(ctx, cmd, assistant.StatusFailed, nil, &msg); err != nil {
			s.logger.Error("failed to mark command failed", "command_id", cmd.ID, "error", err)
		}
		s.logger.Warn("command execution failed", "command_id", cmd.ID, "intent", cmd.Intent, "error", execErr)
		return s.errorResponse(cmd, execErr), execErr
	}

	result.Speak = executedPrompt(cmd, result)
	raw, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to encode execution result: %w", err)
	}
	if err := s.transition(ctx, cmd, assistant.StatusExecuted, raw, nil); err != nil {
		return s.errorResponse(cmd, err), err
	}

	s.learn(ctx, cmd)
	s.logger.Info("command executed", "command_id", cmd.ID, "intent", cmd.Intent)
	return &Response{
		Status:    StatusOK,
		SpeakText: result.Speak,
		CommandID: &cmd.ID,
		Intent:    cmd.Intent,
		Payload:   result,
	}, nil
}

// Insights narrates a month without creating a command.
func (s *Service) Insights(ctx context.Context, userID uuid.UUID, req InsightsRequest) (resp *Response, err error) {
	ctx, span := s.tracer.Start(ctx, "assistant.Insights")
	defer s.finishTurn(span, TurnInsights, s.clock(), &resp, &err)

	if strings.TrimSpace(req.DeviceID) == "" {
		return nil, &assistant.ValidationError{Field: "deviceId"}
	}
	if userID == uuid.Nil {
		return nil, assistant.ErrUnauthenticated
	}
	now := s.clock()
	month, err := parseMonth(req.Month, now)
	if err != nil {
		return nil, err
	}
	if _, err := s.session(ctx, userID, req.DeviceID, req.Locale); err != nil {
		return nil, err
	}

	report, err := s.narrator.GetMonthlyInsights(ctx, userID, month, now)
	if err != nil {
		return nil, assistant.StoreError("monthly insights", err)
	}
	return &Response{
		Status:    StatusOK,
		SpeakText: report.SpeakText(),
		Intent:    assistant.IntentMonthInsights,
		Payload:   report,
	}, nil
}

// session returns the active session of the device, sliding its expiry, or
// starts a new one when none is active.
func (s *Service) session(ctx context.Context, userID uuid.UUID, deviceID, locale string) (*assistant.Session, error) {
	now := s.clock()
	expires := now.Add(s.cfg.SessionTTL)

	current, err := s.store.FindActiveSession(ctx, deviceID, userID)
	switch {
	case err == nil && current.ExpiresAt.After(now):
		if err := s.store.TouchSession(ctx, current.ID, expires); err != nil {
			return nil, fmt.Errorf("failed to refresh session: %w", err)
		}
		current.ExpiresAt = expires
		return current, nil
	case err == nil:
		if err := s.store.ExpireSession(ctx, current.ID); err != nil {
			return nil, fmt.Errorf("failed to expire session: %w", err)
		}
	case !errors.Is(err, assistant.ErrNotFound):
		return nil, fmt.Errorf("failed to find session: %w", err)
	}

	if locale == "" {
		locale = s.cfg.DefaultLocale
	}
	fresh := &assistant.Session{
		UserID:    &userID,
		DeviceID:  deviceID,
		Locale:    locale,
		Status:    assistant.SessionActive,
		ExpiresAt: expires,
	}
	if err := s.store.CreateSession(ctx, fresh); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	s.logger.Debug("started session", "session_id", fresh.ID, "device_id", deviceID)
	return fresh, nil
}

// resolveCategories fills the category of every expense and income entry and
// records one resolution per entry.
func (s *Service) resolveCategories(ctx context.Context, cmd *assistant.Command) error {
	entries := cmd.Slots.Entries()
	cmd.Resolutions = make([]assistant.Resolution, len(entries))
	cache := make(map[assistant.TransactionType][]assistant.Category)

	for i, it := range entries {
		if it.TransactionType != assistant.TypeExpense && it.TransactionType != assistant.TypeIncome {
			continue
		}
		cats, ok := cache[it.TransactionType]
		if !ok {
			var err error
			cats, err = s.store.ListCategories(ctx, cmd.UserID, it.TransactionType)
			if err != nil {
				return fmt.Errorf("failed to list categories: %w", err)
			}
			cache[it.TransactionType] = cats
		}

		res, err := s.resolver.Resolve(ctx, categorization.Request{
			UserID:      cmd.UserID,
			Type:        it.TransactionType,
			Description: it.Description,
			Categories:  cats,
		})
		if err != nil {
			return fmt.Errorf("failed to resolve category: %w", err)
		}
		cmd.Resolutions[i] = res
		if res.Selected != nil {
			it.Category = res.Selected
			cmd.Slots.SetEntry(i, it)
			s.metrics.ObserveResolution(string(res.Selected.Source))
		}
	}
	return nil
}

// learn records phrase mappings for an executed add_expense or add_income.
// Failures are logged; the command already succeeded.
func (s *Service) learn(ctx context.Context, cmd *assistant.Command) {
	if cmd.Intent != assistant.IntentAddExpense && cmd.Intent != assistant.IntentAddIncome {
		return
	}
	for _, it := range cmd.Slots.Entries() {
		if it.TransactionType != assistant.TypeExpense && it.TransactionType != assistant.TypeIncome {
			continue
		}
		if it.Description == "" || it.Category == nil || it.Category.ID == nil {
			continue
		}
		if it.Category.Source == assistant.SourceUncategorized {
			continue
		}
		if err := s.resolver.Learn(ctx, cmd.UserID, it.TransactionType, it.Description, *it.Category.ID, categorization.MappingConfidence); err != nil {
			s.logger.Warn("failed to learn category mapping", "command_id", cmd.ID, "error", err)
		}
	}
}

func (s *Service) transition(ctx context.Context, cmd *assistant.Command, to assistant.Status, result json.RawMessage, errMsg *string) error {
	from := cmd.Status
	err := s.store.TransitionStatus(ctx, cmd.ID, repository.Transition{From: from, To: to, Result: result, Error: errMsg})
	if err != nil {
		return fmt.Errorf("failed to move command %s from %s to %s: %w", cmd.ID, from, to, err)
	}
	cmd.Status = to
	if result != nil {
		cmd.ExecutionResult = result
	}
	if errMsg != nil {
		cmd.ErrorMessage = errMsg
	}
	s.metrics.ObserveTransition(string(from), string(to))
	return nil
}

func (s *Service) recordConfirmation(ctx context.Context, cmd *assistant.Command, req ConfirmRequest) {
	c := &assistant.Confirmation{
		CommandID:  cmd.ID,
		Confirmed:  req.Confirmed,
		SpokenText: req.SpokenText,
		Method:     req.Method,
	}
	if err := s.store.InsertConfirmation(ctx, c); err != nil {
		s.logger.Error("failed to record confirmation", "command_id", cmd.ID, "error", err)
	}
}

func (s *Service) pendingResponse(cmd *assistant.Command) *Response {
	resp := &Response{
		Status:               StatusOK,
		RequiresConfirmation: true,
		SpeakText:            confirmPrompt(cmd),
		CommandID:            &cmd.ID,
		Intent:               cmd.Intent,
		Payload:              cmd.Slots,
	}
	entries := cmd.Slots.Entries()
	for i, res := range cmd.Resolutions {
		if res.NeedsDisambiguation && i < len(entries) {
			resp.Options = res.Candidates
			resp.SpeakText = disambiguationPrompt(entries[i].Description, res.Candidates)
			break
		}
	}
	return resp
}

// replay answers a duplicate utterance from the stored command.
func (s *Service) replay(cmd *assistant.Command) *Response {
	switch cmd.Status {
	case assistant.StatusPending:
		return s.pendingResponse(cmd)
	case assistant.StatusExecuted:
		var result ExecutionResult
		if err := json.Unmarshal(cmd.ExecutionResult, &result); err != nil {
			s.logger.Warn("stored execution result unreadable", "command_id", cmd.ID, "error", err)
		}
		speak := result.Speak
		if speak == "" {
			speak = "Pronto."
		}
		return &Response{Status: StatusOK, SpeakText: speak, CommandID: &cmd.ID, Intent: cmd.Intent, Payload: result}
	}
	msg := string(cmd.Status)
	if cmd.ErrorMessage != nil {
		msg = *cmd.ErrorMessage
	}
	return &Response{Status: StatusError, SpeakText: speakConflict, CommandID: &cmd.ID, Intent: cmd.Intent, Error: msg}
}

func (s *Service) errorResponse(cmd *assistant.Command, err error) *Response {
	resp := &Response{Status: StatusError, SpeakText: SpeakForError(err), Error: err.Error()}
	if cmd != nil {
		resp.CommandID = &cmd.ID
		resp.Intent = cmd.Intent
	}
	return resp
}

func (s *Service) finishTurn(span trace.Span, turn TurnType, started time.Time, resp **Response, err *error) {
	status := StatusOK
	if *err != nil || (*resp != nil && (*resp).Status == StatusError) {
		status = StatusError
	}
	if *err != nil {
		span.RecordError(*err)
		span.SetStatus(codes.Error, (*err).Error())
	}
	span.End()
	s.metrics.ObserveTurn(string(turn), status, s.clock().Sub(started))
}

// IdempotencyKey hashes the session, the normalized text and the minute the
// utterance arrived in.
func IdempotencyKey(sessionID uuid.UUID, normalized string, now time.Time) string {
	bucket := now.UTC().Truncate(time.Minute).Unix()
	sum := sha256.Sum256([]byte(sessionID.String() + "|" + normalized + "|" + strconv.FormatInt(bucket, 10)))
	return hex.EncodeToString(sum[:])
}

// parseMonth reads yyyy-MM, defaulting to the month of now.
func parseMonth(month string, now time.Time) (time.Time, error) {
	if strings.TrimSpace(month) == "" {
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()), nil
	}
	t, err := time.ParseInLocation("2006-01", strings.TrimSpace(month), now.Location())
	if err != nil {
		return time.Time{}, &assistant.ValidationError{Field: "month"}
	}
	return t, nil
}
