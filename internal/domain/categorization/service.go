package categorization

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/FACorreiaa/echo-voice-assistant/internal/domain/assistant"
	"github.com/FACorreiaa/echo-voice-assistant/internal/domain/assistant/nlp"
)

// Resolution thresholds. Similarity scores live in [SimilarityBase,
// SimilarityBase+SimilaritySpan], so a similarity hit alone never reaches
// AutoSelectThreshold and always asks the user.
const (
	MappingConfidence       = 0.95
	KeywordConfidence       = 0.88
	NameMatchConfidence     = 0.82
	SimilarityBase          = 0.5
	SimilaritySpan          = 0.29
	AutoSelectThreshold     = 0.8
	DisambiguationFloor     = 0.5
	MaxCandidates           = 3
	PoolFallbackBase        = 0.55
	PoolFallbackSpan        = 0.03
	UncategorizedConfidence = 0.35
	NoCategoryConfidence    = 0.2
	MinTokenLength          = 3

	// UncategorizedName is the catch-all category every ledger may carry.
	UncategorizedName = "Sem categoria"
)

// MappingStore looks up phrases the user already filed under a category and
// records new ones.
type MappingStore interface {
	// FindMappings returns the mappings for an exact phrase and type, most
	// recently used first.
	FindMappings(ctx context.Context, userID uuid.UUID, phrase string, t assistant.TransactionType) ([]assistant.CategoryMapping, error)
	UpsertMapping(ctx context.Context, m assistant.CategoryMapping) error
}

// Request is one entry to categorize.
type Request struct {
	UserID      uuid.UUID
	Type        assistant.TransactionType
	Description string
	// Categories are the user's categories for Type.
	Categories []assistant.Category
}

// Service resolves a description to one of the user's categories, trying in
// order: learned mappings, the keyword dictionary, the category name inside
// the description, token similarity, and finally a fallback that prefers any
// real category over "Sem categoria".
type Service struct {
	mappings MappingStore
	engines  map[assistant.TransactionType]*Engine
	logger   *slog.Logger
}

// NewService creates a resolver with the default dictionaries.
func NewService(mappings MappingStore, logger *slog.Logger) *Service {
	return &Service{
		mappings: mappings,
		engines: map[assistant.TransactionType]*Engine{
			assistant.TypeExpense: NewEngine(DictionaryFor(assistant.TypeExpense)),
			assistant.TypeIncome:  NewEngine(DictionaryFor(assistant.TypeIncome)),
		},
		logger: logger,
	}
}

// Resolve categorizes one entry. Only mapping lookups touch the store; a store
// failure is returned so the caller can decide to fall back.
func (s *Service) Resolve(ctx context.Context, req Request) (assistant.Resolution, error) {
	desc := strings.TrimSpace(req.Description)
	populated := hasPopulated(req.Categories)

	if desc != "" && s.mappings != nil {
		res, ok, err := s.fromMapping(ctx, req, populated)
		if err != nil {
			return assistant.Resolution{}, fmt.Errorf("failed to look up category mappings: %w", err)
		}
		if ok {
			return res, nil
		}
	}

	if desc != "" {
		if res, ok := s.fromKeyword(req); ok {
			return res, nil
		}
		if res, ok := fromName(req); ok {
			return res, nil
		}
		if res, ok := fromSimilarity(req); ok {
			return res, nil
		}
	}

	return fallback(req), nil
}

func (s *Service) fromMapping(ctx context.Context, req Request, populated bool) (assistant.Resolution, bool, error) {
	found, err := s.mappings.FindMappings(ctx, req.UserID, MappingPhrase(req.Description), req.Type)
	if err != nil {
		return assistant.Resolution{}, false, err
	}
	for _, m := range found {
		cat, ok := findCategory(req.Categories, m.CategoryID)
		if !ok {
			continue
		}
		// A phrase once filed under the catch-all is not worth repeating when
		// the user has real categories to choose from.
		if IsUncategorized(cat.Name) && populated {
			continue
		}
		return selected(cat, m.Confidence, assistant.SourceMapping), true, nil
	}
	return assistant.Resolution{}, false, nil
}

func (s *Service) fromKeyword(req Request) (assistant.Resolution, bool) {
	engine, ok := s.engines[req.Type]
	if !ok {
		return assistant.Resolution{}, false
	}
	for _, m := range engine.Match(req.Description) {
		if cat, ok := findCategoryByName(req.Categories, m.Category); ok {
			return selected(cat, KeywordConfidence, assistant.SourceKeyword), true
		}
	}
	return assistant.Resolution{}, false
}

// fromName picks the longest category name that appears whole in the
// description.
func fromName(req Request) (assistant.Resolution, bool) {
	text := pad(req.Description)
	var (
		best    assistant.Category
		bestLen int
	)
	for _, c := range req.Categories {
		if IsUncategorized(c.Name) {
			continue
		}
		name := pad(c.Name)
		if strings.TrimSpace(name) == "" || !strings.Contains(text, name) {
			continue
		}
		if len(name) > bestLen {
			best, bestLen = c, len(name)
		}
	}
	if bestLen == 0 {
		return assistant.Resolution{}, false
	}
	return selected(best, NameMatchConfidence, assistant.SourceNameMatch), true
}

// fromSimilarity scores each category by the share of description tokens
// found inside its name and keeps the top candidates.
func fromSimilarity(req Request) (assistant.Resolution, bool) {
	tokens := nlp.ContentTokens(req.Description, MinTokenLength)
	if len(tokens) == 0 {
		return assistant.Resolution{}, false
	}

	type scored struct {
		cat   assistant.Category
		score float64
	}
	var ranked []scored
	for _, c := range req.Categories {
		if IsUncategorized(c.Name) {
			continue
		}
		name := nlp.Fold(c.Name)
		matched := 0
		for _, t := range tokens {
			if strings.Contains(name, t) {
				matched++
			}
		}
		if matched == 0 {
			continue
		}
		ratio := float64(matched) / float64(len(tokens))
		ranked = append(ranked, scored{cat: c, score: SimilarityBase + SimilaritySpan*ratio})
	}
	if len(ranked) == 0 {
		return assistant.Resolution{}, false
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].cat.Name < ranked[j].cat.Name
	})
	if len(ranked) > MaxCandidates {
		ranked = ranked[:MaxCandidates]
	}

	candidates := make([]assistant.CategoryOption, len(ranked))
	for i, r := range ranked {
		id := r.cat.ID
		candidates[i] = assistant.CategoryOption{ID: &id, Name: r.cat.Name, Confidence: r.score}
	}

	top := ranked[0]
	switch {
	case top.score >= AutoSelectThreshold:
		res := selected(top.cat, top.score, assistant.SourceSimilarity)
		res.Candidates = candidates
		return res, true
	case top.score >= DisambiguationFloor:
		return assistant.Resolution{Candidates: candidates, NeedsDisambiguation: true}, true
	}
	return assistant.Resolution{}, false
}

// fallback prefers the closest real category; "Sem categoria" is only used
// when the user has nothing else.
func fallback(req Request) assistant.Resolution {
	var (
		pool          []assistant.Category
		uncategorized *assistant.Category
	)
	for i, c := range req.Categories {
		if IsUncategorized(c.Name) {
			if uncategorized == nil {
				uncategorized = &req.Categories[i]
			}
			continue
		}
		pool = append(pool, c)
	}

	if len(pool) > 0 {
		names := make([]string, len(pool))
		for i, c := range pool {
			names[i] = c.Name
		}
		ranked := NewFuzzyMatcher(names).RankMatches(req.Description)
		top := ranked[0]
		return selected(pool[top.Index], PoolFallbackBase+PoolFallbackSpan*top.Ratio(), assistant.SourceFallback)
	}

	if uncategorized != nil {
		return selected(*uncategorized, UncategorizedConfidence, assistant.SourceUncategorized)
	}
	return assistant.Resolution{Selected: &assistant.ResolvedCategory{
		Name:       UncategorizedName,
		Confidence: NoCategoryConfidence,
		Source:     assistant.SourceUncategorized,
	}}
}

// Learn records that description was filed under categoryID so the next
// identical phrase resolves from the mapping store.
func (s *Service) Learn(ctx context.Context, userID uuid.UUID, t assistant.TransactionType, description string, categoryID uuid.UUID, confidence float64) error {
	phrase := MappingPhrase(description)
	if phrase == "" || s.mappings == nil {
		return nil
	}
	if err := s.mappings.UpsertMapping(ctx, assistant.CategoryMapping{
		UserID:     userID,
		Phrase:     phrase,
		Type:       t,
		CategoryID: categoryID,
		Confidence: confidence,
	}); err != nil {
		return fmt.Errorf("failed to record category mapping: %w", err)
	}
	s.logger.Debug("category mapping learned",
		slog.String("phrase", phrase),
		slog.String("type", string(t)),
		slog.String("category_id", categoryID.String()),
	)
	return nil
}

// MappingPhrase is the key learned mappings are stored under: the folded
// description with single spaces.
func MappingPhrase(description string) string {
	return strings.Join(nlp.Tokens(nlp.Fold(description)), " ")
}

// IsUncategorized reports whether name is the catch-all category.
func IsUncategorized(name string) bool {
	return MappingPhrase(name) == MappingPhrase(UncategorizedName)
}

func hasPopulated(cats []assistant.Category) bool {
	for _, c := range cats {
		if !IsUncategorized(c.Name) {
			return true
		}
	}
	return false
}

func findCategory(cats []assistant.Category, id uuid.UUID) (assistant.Category, bool) {
	for _, c := range cats {
		if c.ID == id {
			return c, true
		}
	}
	return assistant.Category{}, false
}

func findCategoryByName(cats []assistant.Category, name string) (assistant.Category, bool) {
	want := MappingPhrase(name)
	for _, c := range cats {
		if MappingPhrase(c.Name) == want {
			return c, true
		}
	}
	return assistant.Category{}, false
}

func selected(c assistant.Category, confidence float64, source assistant.CategorySource) assistant.Resolution {
	id := c.ID
	return assistant.Resolution{Selected: &assistant.ResolvedCategory{
		ID:         &id,
		Name:       c.Name,
		Confidence: confidence,
		Source:     source,
	}}
}
