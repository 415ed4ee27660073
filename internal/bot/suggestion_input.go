package bot

import (
	"context"
	"fmt"
	botApi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/maxaizer/jobboard-alerts/internal/domain/models"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"strconv"
	"strings"
)

var errorNoSuggestions = errors.New("user has no suggestions")

type suggestionInput struct {
	chatID      int64
	suggestions []models.SuggestedJob
	onFinish    func(suggestion *models.SuggestedJob)
}

func newSuggestionInput(chatID int64, userID int64, service suggestionsService,
	onFinish func(suggestion *models.SuggestedJob)) (*suggestionInput, error) {

	suggestions, err := service.LoadSuggestions(context.Background(), userID)
	if err != nil {
		return nil, err
	}
	if len(suggestions) == 0 {
		return nil, errorNoSuggestions
	}
	return &suggestionInput{chatID: chatID, suggestions: suggestions, onFinish: onFinish}, nil
}

func (s *suggestionInput) InitMessage() botApi.Chattable {

	text := "Ingresa el número de la sugerencia:\n"
	text += suggestionsToText(s.suggestions)

	msg := botApi.NewMessage(s.chatID, text)
	msg.ReplyMarkup = keyboardWithExit()
	return msg
}

func (s *suggestionInput) HandleInput(input string) botApi.Chattable {

	number, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil {
		return botApi.NewMessage(s.chatID, "¡Ingresa un número!")
	}

	if number < 1 || number > len(s.suggestions) {
		return botApi.NewMessage(s.chatID, "No hay ninguna sugerencia con ese número.")
	}

	s.onFinish(&s.suggestions[number-1])
	return nil
}

func (s *suggestionInput) shownIDs() []int64 {
	return lo.Map(s.suggestions, func(suggestion models.SuggestedJob, _ int) int64 {
		return suggestion.ID
	})
}

// restoreOrder lists the suggestions in the order of ids. Items that are gone
// are skipped. It returns false when nothing is left.
func (s *suggestionInput) restoreOrder(ids []int64) bool {
	byID := lo.KeyBy(s.suggestions, func(suggestion models.SuggestedJob) int64 {
		return suggestion.ID
	})

	restored := make([]models.SuggestedJob, 0, len(ids))
	for _, id := range ids {
		if suggestion, ok := byID[id]; ok {
			restored = append(restored, suggestion)
		}
	}

	s.suggestions = restored
	return len(restored) > 0
}

func suggestionsToText(suggestions []models.SuggestedJob) (text string) {
	for i, suggestion := range suggestions {

		text += fmt.Sprintf("%d: %s en %s", i+1, suggestion.Job.Title, suggestion.Job.Company)

		if suggestion.Job.Location != "" {
			text += ", " + suggestion.Job.Location
		}

		text += ", " + suggestionStateToText(suggestion.Estado)

		if suggestion.SugeridoPor != "" {
			text += ", sugerida por " + suggestion.SugeridoPor
		}

		if suggestion.Notas != "" {
			text += ", nota: \"" + suggestion.Notas + "\""
		}

		text += "\n"
	}
	return text
}

func suggestionStateToText(state models.SuggestionState) string {
	switch state {
	case models.SuggestionPending:
		return "nueva"
	case models.SuggestionViewed:
		return "vista"
	case models.SuggestionApplied:
		return "aplicada"
	case models.SuggestionDismissed:
		return "descartada"
	default:
		return string(state)
	}
}
