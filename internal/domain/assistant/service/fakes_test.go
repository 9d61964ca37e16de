package service

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/echo-voice-assistant/internal/domain/assistant"
	"github.com/FACorreiaa/echo-voice-assistant/internal/domain/assistant/repository"
	"github.com/FACorreiaa/echo-voice-assistant/internal/domain/categorization"
	"github.com/FACorreiaa/echo-voice-assistant/internal/domain/insights"
)

// memStore is an in-memory repository.Store with the same compare-and-swap
// and idempotency behaviour as the Postgres one.
type memStore struct {
	mu   sync.Mutex
	now  func() time.Time
	user uuid.UUID

	sessions      map[uuid.UUID]*assistant.Session
	commands      map[uuid.UUID]*assistant.Command
	byKey         map[string]uuid.UUID
	confirmations []assistant.Confirmation
	categories    []assistant.Category
	entries       []repository.Entry
	records       []repository.Record
	updated       map[uuid.UUID]decimal.Decimal
	deleted       []uuid.UUID

	insertErr error
}

func newMemStore(now func() time.Time) *memStore {
	return &memStore{
		now:      now,
		sessions: make(map[uuid.UUID]*assistant.Session),
		commands: make(map[uuid.UUID]*assistant.Command),
		byKey:    make(map[string]uuid.UUID),
		updated:  make(map[uuid.UUID]decimal.Decimal),
	}
}

var _ repository.Store = (*memStore)(nil)

func cloneCommand(c *assistant.Command) *assistant.Command {
	out := *c
	slots, _ := json.Marshal(c.Slots)
	out.Slots = assistant.Slots{}
	_ = json.Unmarshal(slots, &out.Slots)
	if c.Resolutions != nil {
		res, _ := json.Marshal(c.Resolutions)
		out.Resolutions = nil
		_ = json.Unmarshal(res, &out.Resolutions)
	}
	return &out
}

func (m *memStore) FindActiveSession(_ context.Context, deviceID string, userID uuid.UUID) (*assistant.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.DeviceID == deviceID && s.UserID != nil && *s.UserID == userID && s.Status == assistant.SessionActive {
			cp := *s
			return &cp, nil
		}
	}
	return nil, assistant.ErrNotFound
}

func (m *memStore) CreateSession(_ context.Context, s *assistant.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = uuid.New()
	s.CreatedAt = m.now()
	cp := *s
	m.sessions[s.ID] = &cp
	return nil
}

func (m *memStore) TouchSession(_ context.Context, id uuid.UUID, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return assistant.ErrNotFound
	}
	s.ExpiresAt = expiresAt
	return nil
}

func (m *memStore) ExpireSession(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return assistant.ErrNotFound
	}
	s.Status = assistant.SessionExpired
	return nil
}

func (m *memStore) ExpireIdleSessions(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, s := range m.sessions {
		if s.Status == assistant.SessionActive && !s.ExpiresAt.After(now) {
			s.Status = assistant.SessionExpired
			n++
		}
	}
	return n, nil
}

func (m *memStore) CreateCommand(_ context.Context, c *assistant.Command) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.byKey[c.IdempotencyKey]; ok {
		*c = *cloneCommand(m.commands[id])
		return true, nil
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.CreatedAt = m.now()
	c.UpdatedAt = c.CreatedAt
	m.commands[c.ID] = cloneCommand(c)
	m.byKey[c.IdempotencyKey] = c.ID
	return false, nil
}

func (m *memStore) GetCommand(_ context.Context, id, userID uuid.UUID) (*assistant.Command, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.commands[id]
	if !ok || c.UserID != userID {
		return nil, assistant.ErrNotFound
	}
	return cloneCommand(c), nil
}

func (m *memStore) TransitionStatus(_ context.Context, id uuid.UUID, t repository.Transition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !assistant.CanTransition(t.From, t.To) {
		return assistant.ErrConflict
	}
	c, ok := m.commands[id]
	if !ok || c.Status != t.From {
		return assistant.ErrConflict
	}
	c.Status = t.To
	if t.Result != nil {
		c.ExecutionResult = t.Result
	}
	if t.Error != nil {
		msg := *t.Error
		c.ErrorMessage = &msg
	}
	return nil
}

func (m *memStore) UpdateCommandSlots(_ context.Context, id uuid.UUID, slots assistant.Slots, resolutions []assistant.Resolution) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.commands[id]
	if !ok {
		return assistant.ErrNotFound
	}
	updated := cloneCommand(&assistant.Command{Slots: slots, Resolutions: resolutions})
	c.Slots, c.Resolutions = updated.Slots, updated.Resolutions
	return nil
}

func (m *memStore) RecordCommandError(_ context.Context, id uuid.UUID, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.commands[id]
	if !ok {
		return assistant.ErrNotFound
	}
	c.ErrorMessage = &message
	return nil
}

func (m *memStore) ExpireStalePending(_ context.Context, createdBefore time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, c := range m.commands {
		if c.Status == assistant.StatusPending && c.CreatedAt.Before(createdBefore) {
			c.Status = assistant.StatusExpired
			n++
		}
	}
	return n, nil
}

func (m *memStore) ListCommands(_ context.Context, userID uuid.UUID, from, to time.Time) ([]assistant.Command, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []assistant.Command
	for _, c := range m.commands {
		if c.UserID == userID && !c.CreatedAt.Before(from) && c.CreatedAt.Before(to) {
			out = append(out, *cloneCommand(c))
		}
	}
	return out, nil
}

func (m *memStore) InsertConfirmation(_ context.Context, c *assistant.Confirmation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = uuid.New()
	m.confirmations = append(m.confirmations, *c)
	return nil
}

func (m *memStore) ListCategories(_ context.Context, userID uuid.UUID, t assistant.TransactionType) ([]assistant.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []assistant.Category
	for _, c := range m.categories {
		if c.UserID == userID && c.Type == t {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memStore) CreateCategory(_ context.Context, c *assistant.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = uuid.New()
	m.categories = append(m.categories, *c)
	return nil
}

func (m *memStore) InsertEntries(_ context.Context, _ uuid.UUID, entries []repository.Entry) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return nil, assistant.StoreError("insert entries", m.insertErr)
	}
	ids := make([]uuid.UUID, len(entries))
	for i := range entries {
		ids[i] = uuid.New()
	}
	m.entries = append(m.entries, entries...)
	return ids, nil
}

func (m *memStore) FindRecords(_ context.Context, _ uuid.UUID, types []assistant.TransactionType, limit int) ([]repository.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []repository.Record
	for _, r := range m.records {
		for _, t := range types {
			if r.Type == t {
				out = append(out, r)
				break
			}
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *memStore) UpdateRecordAmount(_ context.Context, _ uuid.UUID, _ assistant.TransactionType, id uuid.UUID, amount decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updated[id] = amount
	return nil
}

func (m *memStore) DeleteRecord(_ context.Context, _ uuid.UUID, _ assistant.TransactionType, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *memStore) command(id uuid.UUID) *assistant.Command {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneCommand(m.commands[id])
}

func (m *memStore) addCategories(userID uuid.UUID, t assistant.TransactionType, names ...string) map[string]uuid.UUID {
	ids := make(map[string]uuid.UUID, len(names))
	for _, n := range names {
		c := assistant.Category{ID: uuid.New(), UserID: userID, Name: n, Type: t, Color: DefaultCategoryColor}
		m.categories = append(m.categories, c)
		ids[n] = c.ID
	}
	return ids
}

type memMappings struct {
	mu       sync.Mutex
	upserted []assistant.CategoryMapping
}

func (m *memMappings) FindMappings(context.Context, uuid.UUID, string, assistant.TransactionType) ([]assistant.CategoryMapping, error) {
	return nil, nil
}

func (m *memMappings) UpsertMapping(_ context.Context, mapping assistant.CategoryMapping) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserted = append(m.upserted, mapping)
	return nil
}

// stubResolver answers every request with the same resolution.
type stubResolver struct {
	res     assistant.Resolution
	learned []uuid.UUID
}

func (s *stubResolver) Resolve(context.Context, categorization.Request) (assistant.Resolution, error) {
	return s.res, nil
}

func (s *stubResolver) Learn(_ context.Context, _ uuid.UUID, _ assistant.TransactionType, _ string, categoryID uuid.UUID, _ float64) error {
	s.learned = append(s.learned, categoryID)
	return nil
}

type fakeNarrator struct {
	totals *insights.MonthTotals
	report *insights.MonthlyInsights
	err    error
	months []string
}

func (f *fakeNarrator) GetMonthlyInsights(_ context.Context, _ uuid.UUID, monthStart, _ time.Time) (*insights.MonthlyInsights, error) {
	f.months = append(f.months, monthStart.Format("2006-01"))
	return f.report, f.err
}

func (f *fakeNarrator) GetMonthTotals(_ context.Context, _ uuid.UUID, monthStart time.Time) (*insights.MonthTotals, error) {
	f.months = append(f.months, monthStart.Format("2006-01"))
	if f.err != nil {
		return nil, f.err
	}
	if f.totals == nil {
		return &insights.MonthTotals{}, nil
	}
	return f.totals, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testClock is a settable clock.
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}
