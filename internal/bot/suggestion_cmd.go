package bot

import (
	"context"
	"encoding/json"
	"fmt"
	botApi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/maxaizer/jobboard-alerts/internal/domain/models"
	"github.com/maxaizer/jobboard-alerts/internal/services"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// suggestionAction acts on the chosen suggestion and returns the text for the user.
type suggestionAction func(service suggestionsService, userID int64, suggestion models.SuggestedJob) (string, error)

type suggestionCommand struct {
	api                  apiInterface
	chatID               int64
	userID               int64
	service              suggestionsService
	action               suggestionAction
	input                *suggestionInput
	suggestion           *models.SuggestedJob
	finishCallback       func()
	finalMessageKeyboard *botApi.ReplyKeyboardMarkup
}

func newSuggestionCommand(api apiInterface, chatID int64, userID int64, service suggestionsService,
	action suggestionAction) (*suggestionCommand, error) {

	cmd := &suggestionCommand{api: api, chatID: chatID, userID: userID, service: service, action: action}
	input, err := newSuggestionInput(chatID, userID, service, func(s *models.SuggestedJob) {
		cmd.suggestion = s
	})
	if err != nil {
		return nil, err
	}
	cmd.input = input
	return cmd, nil
}

func (c *suggestionCommand) WithFinishCallback(callback func()) {
	c.finishCallback = callback
}

func (c *suggestionCommand) WithKeyboardOnFinalMessage(keyboard botApi.ReplyKeyboardMarkup) {
	c.finalMessageKeyboard = &keyboard
}

func (c *suggestionCommand) Run() {
	_, _ = sendWithLogError(c.api, c.input.InitMessage())
}

func (c *suggestionCommand) OnUserInput(input string) {

	msg := c.input.HandleInput(input)

	if c.suggestion == nil {
		_, _ = sendWithLogError(c.api, msg)
		return
	}

	c.runAction()

	if c.finishCallback != nil {
		c.finishCallback()
	}
}

// SaveState keeps the ids of the listed suggestions, so the numbers the user saw still
// point to the same items after a restart.
func (c *suggestionCommand) SaveState() ([]byte, error) {
	return json.Marshal(c.input.shownIDs())
}

func (c *suggestionCommand) LoadState(data []byte) error {
	var ids []int64
	if err := json.Unmarshal(data, &ids); err != nil {
		return errors.Wrap(err, "load suggestion command state")
	}
	if !c.input.restoreOrder(ids) {
		return errorNoSuggestions
	}
	return nil
}

func (c *suggestionCommand) runAction() {

	msg := botApi.NewMessage(c.chatID, "")
	if c.finalMessageKeyboard != nil {
		msg.ReplyMarkup = c.finalMessageKeyboard
	}

	text, err := c.action(c.service, c.userID, *c.suggestion)
	switch {
	case errors.Is(err, services.ErrInvalidTransition):
		msg.Text = "La sugerencia ya no admite ese cambio."
	case err != nil:
		log.Errorf("suggestion %v of user %v: %v", c.suggestion.ID, c.userID, err)
		msg.Text = userMessageFor(err)
	default:
		msg.Text = text
	}

	_, _ = sendWithLogError(c.api, msg)
}

func applySuggestion(service suggestionsService, userID int64, suggestion models.SuggestedJob) (string, error) {
	job, err := service.ViewAndApply(userID, suggestion.ID)
	if err != nil {
		return "", err
	}

	text := fmt.Sprintf("Postula a %s en %s", job.Title, job.Company)
	if job.Url == "" {
		return text + ". La vacante no tiene enlace.", nil
	}
	return text + ":\n" + job.Url, nil
}

func markSuggestionApplied(service suggestionsService, userID int64, suggestion models.SuggestedJob) (string, error) {
	err := service.UpdateStatus(context.Background(), userID, suggestion.ID, models.SuggestionApplied)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Marcamos %s como aplicada.", suggestion.Job.Title), nil
}

func dismissSuggestion(service suggestionsService, userID int64, suggestion models.SuggestedJob) (string, error) {
	err := service.UpdateStatus(context.Background(), userID, suggestion.ID, models.SuggestionDismissed)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Descartamos la sugerencia %s.", suggestion.Job.Title), nil
}
