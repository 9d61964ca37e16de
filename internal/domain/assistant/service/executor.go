package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/FACorreiaa/echo-voice-assistant/internal/domain/assistant"
	"github.com/FACorreiaa/echo-voice-assistant/internal/domain/assistant/nlp"
	"github.com/FACorreiaa/echo-voice-assistant/internal/domain/assistant/repository"
	"github.com/FACorreiaa/echo-voice-assistant/internal/domain/categorization"
	"github.com/FACorreiaa/echo-voice-assistant/internal/domain/insights"
)

const (
	// amountMatchBonus is added to a record's score when its amount is within
	// a cent of the spoken one.
	amountMatchBonus = 1.0
	emptyDescription = "Sem descrição"
)

var allTypes = []assistant.TransactionType{assistant.TypeExpense, assistant.TypeIncome, assistant.TypeInvestment}

// execute performs the mutation of a confirmed write command.
func (s *Service) execute(ctx context.Context, cmd *assistant.Command) (*ExecutionResult, error) {
	ctx, span := s.tracer.Start(ctx, "assistant.Execute")
	defer span.End()

	switch cmd.Intent {
	case assistant.IntentAddExpense, assistant.IntentAddIncome, assistant.IntentAddInvestment:
		return s.executeAdd(ctx, cmd)
	case assistant.IntentUpdate, assistant.IntentDelete:
		return s.executeTarget(ctx, cmd)
	case assistant.IntentCreateCategory:
		return s.executeCreateCategory(ctx, cmd)
	}
	return nil, fmt.Errorf("intent %s has no mutation: %w", cmd.Intent, assistant.ErrValidation)
}

// executeAdd inserts one row per entry in a single transaction. Entries
// without a category go to "Sem categoria", which is created when missing.
func (s *Service) executeAdd(ctx context.Context, cmd *assistant.Command) (*ExecutionResult, error) {
	entries := cmd.Slots.Entries()
	if len(entries) == 0 {
		return nil, &assistant.ValidationError{Field: "amount"}
	}

	buckets := make(map[assistant.TransactionType]*assistant.Category)
	rows := make([]repository.Entry, len(entries))
	for i, it := range entries {
		if it.Amount == nil || !it.Amount.IsPositive() {
			return nil, fmt.Errorf("entry %d: %w", i+1, &assistant.ValidationError{Field: "amount"})
		}
		row := repository.Entry{
			Type:             it.TransactionType,
			Description:      it.Description,
			Amount:           *it.Amount,
			InstallmentCount: it.InstallmentCount,
			ReportWeight:     it.ReportWeight,
		}
		if row.Description == "" {
			row.Description = emptyDescription
		}

		switch it.TransactionType {
		case assistant.TypeInvestment:
			if _, err := time.Parse("2006-01", it.Month); err != nil {
				return nil, fmt.Errorf("entry %d: %w", i+1, &assistant.ValidationError{Field: "month"})
			}
			row.Month = it.Month
		case assistant.TypeExpense, assistant.TypeIncome:
			date, err := time.Parse("2006-01-02", it.Date)
			if err != nil {
				return nil, fmt.Errorf("entry %d: %w", i+1, &assistant.ValidationError{Field: "date"})
			}
			row.Date = date

			if it.Category == nil || it.Category.ID == nil {
				bucket, err := s.uncategorized(ctx, cmd.UserID, it.TransactionType, buckets)
				if err != nil {
					return nil, err
				}
				id := bucket.ID
				it.Category = &assistant.ResolvedCategory{
					ID:         &id,
					Name:       bucket.Name,
					Confidence: categorization.UncategorizedConfidence,
					Source:     assistant.SourceUncategorized,
				}
				cmd.Slots.SetEntry(i, it)
			}
			row.CategoryID = it.Category.ID
		default:
			return nil, fmt.Errorf("entry %d: %w", i+1, &assistant.ValidationError{Field: "transactionType"})
		}
		rows[i] = row
	}

	ids, err := s.store.InsertEntries(ctx, cmd.UserID, rows)
	if err != nil {
		return nil, fmt.Errorf("failed to insert entries: %w", err)
	}

	result := &ExecutionResult{Entries: make([]EntryResult, len(ids))}
	entries = cmd.Slots.Entries()
	for i, id := range ids {
		it := entries[i]
		er := EntryResult{
			ID:             id,
			Type:           it.TransactionType,
			Description:    rows[i].Description,
			Amount:         rows[i].Amount,
			ReportedAmount: it.ReportedAmount(),
			Date:           it.Date,
			Month:          it.Month,
		}
		if it.Category != nil {
			er.Category = it.Category.Name
		}
		result.Entries[i] = er
	}
	return result, nil
}

// uncategorized returns the user's "Sem categoria" bucket for t, creating it
// when the user has none.
func (s *Service) uncategorized(ctx context.Context, userID uuid.UUID, t assistant.TransactionType, seen map[assistant.TransactionType]*assistant.Category) (*assistant.Category, error) {
	if c, ok := seen[t]; ok {
		return c, nil
	}
	cats, err := s.store.ListCategories(ctx, userID, t)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	for i := range cats {
		if categorization.IsUncategorized(cats[i].Name) {
			seen[t] = &cats[i]
			return &cats[i], nil
		}
	}

	bucket := &assistant.Category{
		UserID: userID,
		Name:   categorization.UncategorizedName,
		Color:  DefaultCategoryColor,
		Type:   t,
	}
	if err := s.store.CreateCategory(ctx, bucket); err != nil {
		return nil, fmt.Errorf("failed to create uncategorized bucket: %w", err)
	}
	s.logger.Info("created uncategorized bucket", "user_id", userID, "type", t)
	seen[t] = bucket
	return bucket, nil
}

// executeTarget updates or deletes the record that best matches the spoken
// target.
func (s *Service) executeTarget(ctx context.Context, cmd *assistant.Command) (*ExecutionResult, error) {
	target := cmd.Slots.Target
	if target == nil {
		return nil, &assistant.ValidationError{Field: "target"}
	}
	if cmd.Intent == assistant.IntentUpdate && (target.NewAmount == nil || !target.NewAmount.IsPositive()) {
		return nil, &assistant.ValidationError{Field: "newAmount"}
	}

	types := allTypes
	if target.Type != "" {
		types = []assistant.TransactionType{target.Type}
	}
	records, err := s.store.FindRecords(ctx, cmd.UserID, types, candidateLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to find records: %w", err)
	}

	best, ok := BestRecord(records, target)
	if !ok {
		return nil, fmt.Errorf("no record matches %q: %w", target.Description, assistant.ErrNotFound)
	}

	rec := recordResult(best)
	if cmd.Intent == assistant.IntentDelete {
		if err := s.store.DeleteRecord(ctx, cmd.UserID, best.Type, best.ID); err != nil {
			return nil, fmt.Errorf("failed to delete record: %w", err)
		}
		rec.Deleted = true
		return &ExecutionResult{Record: &rec}, nil
	}

	if err := s.store.UpdateRecordAmount(ctx, cmd.UserID, best.Type, best.ID, *target.NewAmount); err != nil {
		return nil, fmt.Errorf("failed to update record: %w", err)
	}
	newAmount := *target.NewAmount
	rec.NewAmount = &newAmount
	return &ExecutionResult{Record: &rec}, nil
}

// BestRecord scores records by how many target description words they
// contain (description or category), plus a bonus when the amount matches.
// records must be newest first; ties keep the newest. A target with neither
// description nor amount picks the newest record.
func BestRecord(records []repository.Record, target *assistant.Target) (repository.Record, bool) {
	if len(records) == 0 {
		return repository.Record{}, false
	}
	want := nlp.ContentTokens(target.Description, categorization.MinTokenLength)
	if len(want) == 0 && target.Amount == nil {
		return records[0], true
	}

	bestIdx, bestScore := -1, 0.0
	for i, r := range records {
		score := 0.0
		if len(want) > 0 {
			have := make(map[string]bool)
			for _, t := range nlp.ContentTokens(r.Description+" "+r.CategoryName, categorization.MinTokenLength) {
				have[t] = true
			}
			matched := 0
			for _, w := range want {
				if have[w] {
					matched++
				}
			}
			score += float64(matched) / float64(len(want))
		}
		if target.Amount != nil && nlp.AmountsClose(*target.Amount, r.Amount) {
			score += amountMatchBonus
		}
		if score > bestScore {
			bestIdx, bestScore = i, score
		}
	}
	if bestIdx < 0 {
		return repository.Record{}, false
	}
	return records[bestIdx], true
}

func recordResult(r repository.Record) RecordResult {
	out := RecordResult{ID: r.ID, Type: r.Type, Description: r.Description, Amount: r.Amount}
	if r.Type == assistant.TypeInvestment {
		out.Date = r.Month
	} else if !r.Date.IsZero() {
		out.Date = nlp.FormatDate(r.Date)
	}
	return out
}

// executeCreateCategory creates the category unless the user already has one
// with the same name, compared without case or accents.
func (s *Service) executeCreateCategory(ctx context.Context, cmd *assistant.Command) (*ExecutionResult, error) {
	nc := cmd.Slots.NewCategory
	if nc == nil || nc.Name == "" {
		return nil, &assistant.ValidationError{Field: "name"}
	}
	target := nc.Target
	if target == "" {
		target = assistant.TypeExpense
	}

	existing, err := s.store.ListCategories(ctx, cmd.UserID, target)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	for _, c := range existing {
		if nlp.Fold(c.Name) == nlp.Fold(nc.Name) {
			return nil, fmt.Errorf("category %q already exists: %w", c.Name, assistant.ErrConflict)
		}
	}

	color := nc.Color
	if color == "" {
		color = DefaultCategoryColor
	}
	cat := &assistant.Category{UserID: cmd.UserID, Name: nc.Name, Color: color, Type: target}
	if err := s.store.CreateCategory(ctx, cat); err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}
	return &ExecutionResult{Category: &CategoryResult{ID: cat.ID, Name: cat.Name, Type: cat.Type, Color: cat.Color}}, nil
}

// runReadCommand answers a read intent (or an unknown one) immediately and
// stores the command as executed, or failed when the read failed.
func (s *Service) runReadCommand(ctx context.Context, cmd *assistant.Command, now time.Time) (*Response, error) {
	result, readErr := s.read(ctx, cmd, now)
	if readErr != nil {
		msg := readErr.Error()
		cmd.Status = assistant.StatusFailed
		cmd.ErrorMessage = &msg
	} else {
		raw, err := json.Marshal(result)
		if err != nil {
			return nil, fmt.Errorf("failed to encode execution result: %w", err)
		}
		cmd.Status = assistant.StatusExecuted
		cmd.ExecutionResult = raw
	}

	replayed, err := s.store.CreateCommand(ctx, cmd)
	if err != nil {
		return nil, fmt.Errorf("failed to create command: %w", err)
	}
	if replayed {
		return s.replay(cmd), nil
	}
	if readErr != nil {
		return s.errorResponse(cmd, readErr), readErr
	}

	resp := &Response{Status: StatusOK, SpeakText: result.Speak, CommandID: &cmd.ID, Intent: cmd.Intent, Payload: result}
	if cmd.Intent == assistant.IntentUnknown {
		resp.Payload = nil
	}
	return resp, nil
}

func (s *Service) read(ctx context.Context, cmd *assistant.Command, now time.Time) (*ExecutionResult, error) {
	switch cmd.Intent {
	case assistant.IntentMonthBalance:
		month, err := parseMonth(cmd.Slots.Period, now)
		if err != nil {
			return nil, err
		}
		totals, err := s.narrator.GetMonthTotals(ctx, cmd.UserID, month)
		if err != nil {
			return nil, assistant.StoreError("month totals", err)
		}
		b := BalanceResult{
			Month:       month.Format("2006-01"),
			Expenses:    totals.Expenses,
			Incomes:     totals.Incomes,
			Investments: totals.Investments,
			Balance:     totals.Balance(),
		}
		return &ExecutionResult{Balance: &b, Speak: balancePrompt(insights.MonthLabel(month), b)}, nil

	case assistant.IntentListRecent:
		records, err := s.store.FindRecords(ctx, cmd.UserID, allTypes, recentLimit)
		if err != nil {
			return nil, fmt.Errorf("failed to list recent records: %w", err)
		}
		recent := make([]RecordResult, len(records))
		for i, r := range records {
			recent[i] = recordResult(r)
		}
		return &ExecutionResult{Recent: recent, Speak: recentPrompt(recent)}, nil

	case assistant.IntentMonthInsights:
		month, err := parseMonth(cmd.Slots.Period, now)
		if err != nil {
			return nil, err
		}
		report, err := s.narrator.GetMonthlyInsights(ctx, cmd.UserID, month, now)
		if err != nil {
			return nil, assistant.StoreError("monthly insights", err)
		}
		return &ExecutionResult{Insights: report, Speak: report.SpeakText()}, nil
	}
	return &ExecutionResult{Speak: speakUnknown}, nil
}
