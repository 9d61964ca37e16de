package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/FACorreiaa/echo-voice-assistant/internal/domain/assistant"
	"github.com/FACorreiaa/echo-voice-assistant/pkg/money"
)

const (
	speakDenied      = "Tudo bem, não registrei nada."
	speakExpired     = "O tempo para confirmar acabou. Repita o comando, por favor."
	speakUnknown     = `Não entendi. Tente algo como "gastei 20 reais no almoço".`
	speakValidation  = "Não consegui entender o pedido. Tente de novo."
	speakAuth        = "Você precisa entrar na sua conta para continuar."
	speakNotFound    = "Não encontrei esse lançamento."
	speakConflict    = "Esse comando já foi respondido."
	speakStore       = "Tive um problema para salvar. Tente de novo em instantes."
	speakNoCategory  = "Não entendi a categoria."
	speakNoRecent    = "Você ainda não tem lançamentos."
	speakGenericFail = "Não consegui concluir o pedido."
)

var typeNames = map[assistant.TransactionType]string{
	assistant.TypeExpense:    "despesa",
	assistant.TypeIncome:     "renda",
	assistant.TypeInvestment: "investimento",
}

// SpeakForError is the voice fallback for an error kind.
func SpeakForError(err error) string {
	switch {
	case errors.Is(err, assistant.ErrValidation):
		return speakValidation
	case errors.Is(err, assistant.ErrUnauthenticated):
		return speakAuth
	case errors.Is(err, assistant.ErrNotFound):
		return speakNotFound
	case errors.Is(err, assistant.ErrExpired):
		return speakExpired
	case errors.Is(err, assistant.ErrConflict):
		return speakConflict
	case errors.Is(err, assistant.ErrUnresolvedCategory):
		return speakNoCategory
	case errors.Is(err, assistant.ErrStore):
		return speakStore
	}
	return speakGenericFail
}

// entryPhrase renders "despesa de R$ 48,50, sua parte R$ 9,70, em Parque".
func entryPhrase(it assistant.Item) string {
	var b strings.Builder
	b.WriteString(typeNames[it.TransactionType])
	if it.Amount != nil {
		fmt.Fprintf(&b, " de %s", money.Format(*it.Amount))
		if it.ReportWeight != nil {
			fmt.Fprintf(&b, ", sua parte %s,", money.Format(it.ReportedAmount()))
		}
	}
	if it.Description != "" {
		fmt.Fprintf(&b, " em %s", it.Description)
	}
	if it.InstallmentCount != nil {
		fmt.Fprintf(&b, " em %d parcelas", *it.InstallmentCount)
	}
	if it.Category != nil && it.Category.ID != nil {
		fmt.Fprintf(&b, ", categoria %s", it.Category.Name)
	}
	return b.String()
}

func confirmPrompt(cmd *assistant.Command) string {
	s := cmd.Slots
	switch cmd.Intent {
	case assistant.IntentAddExpense, assistant.IntentAddIncome, assistant.IntentAddInvestment:
		entries := s.Entries()
		if len(entries) == 1 {
			return fmt.Sprintf("Confirma %s?", entryPhrase(entries[0]))
		}
		parts := make([]string, len(entries))
		for i, it := range entries {
			parts[i] = entryPhrase(it)
		}
		return fmt.Sprintf("Confirma %d lançamentos: %s?", len(entries), strings.Join(parts, "; "))
	case assistant.IntentUpdate:
		if s.Target != nil && s.Target.NewAmount != nil {
			return fmt.Sprintf("Confirma alterar %s para %s?", targetPhrase(s.Target), money.Format(*s.Target.NewAmount))
		}
		return fmt.Sprintf("Confirma alterar %s?", targetPhrase(s.Target))
	case assistant.IntentDelete:
		return fmt.Sprintf("Confirma apagar %s?", targetPhrase(s.Target))
	case assistant.IntentCreateCategory:
		if s.NewCategory != nil {
			kind := "despesas"
			if s.NewCategory.Target == assistant.TypeIncome {
				kind = "rendas"
			}
			return fmt.Sprintf("Confirma criar a categoria de %s %s?", kind, s.NewCategory.Name)
		}
	}
	return "Confirma?"
}

func targetPhrase(t *assistant.Target) string {
	if t == nil || (t.Description == "" && t.Amount == nil) {
		return "o último lançamento"
	}
	phrase := "o lançamento"
	if t.Description != "" {
		phrase += " " + t.Description
	}
	if t.Amount != nil {
		phrase += " de " + money.Format(*t.Amount)
	}
	return phrase
}

func disambiguationPrompt(description string, options []assistant.CategoryOption) string {
	subject := "esse lançamento"
	if description != "" {
		subject = description
	}
	return fmt.Sprintf("Em qual categoria coloco %s: %s?", subject, joinOr(optionNames(options)))
}

func optionNames(options []assistant.CategoryOption) []string {
	names := make([]string, len(options))
	for i, o := range options {
		names[i] = o.Name
	}
	return names
}

// joinOr renders "A, B ou C".
func joinOr(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	}
	return strings.Join(items[:len(items)-1], ", ") + " ou " + items[len(items)-1]
}

func executedPrompt(cmd *assistant.Command, result *ExecutionResult) string {
	switch {
	case len(result.Entries) == 1:
		return fmt.Sprintf("Pronto, registrei %s.", entryPhrase(cmd.Slots.Entries()[0]))
	case len(result.Entries) > 1:
		return fmt.Sprintf("Pronto, registrei %d lançamentos.", len(result.Entries))
	case result.Record != nil && result.Record.Deleted:
		return fmt.Sprintf("Pronto, apaguei %s de %s.", result.Record.Description, money.Format(result.Record.Amount))
	case result.Record != nil && result.Record.NewAmount != nil:
		return fmt.Sprintf("Pronto, %s agora é %s.", result.Record.Description, money.Format(*result.Record.NewAmount))
	case result.Category != nil:
		return fmt.Sprintf("Pronto, criei a categoria %s.", result.Category.Name)
	}
	return "Pronto."
}

func recentPrompt(records []RecordResult) string {
	if len(records) == 0 {
		return speakNoRecent
	}
	parts := make([]string, len(records))
	for i, r := range records {
		parts[i] = fmt.Sprintf("%s, %s", r.Description, money.Format(r.Amount))
	}
	return "Seus últimos lançamentos: " + strings.Join(parts, "; ") + "."
}

func balancePrompt(label string, b BalanceResult) string {
	return fmt.Sprintf("Em %s você gastou %s, recebeu %s e investiu %s. O saldo é de %s.",
		label, money.Format(b.Expenses), money.Format(b.Incomes), money.Format(b.Investments), money.Format(b.Balance))
}
