package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/maxaizer/jobboard-alerts/internal/clients/jobboard"
	"github.com/maxaizer/jobboard-alerts/internal/logger"
	"github.com/maxaizer/jobboard-alerts/internal/services"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type apiInterface interface {
	Send(chattable tgbotapi.Chattable) (tgbotapi.Message, error)
}

type command interface {
	WithKeyboardOnFinalMessage(tgbotapi.ReplyKeyboardMarkup)
	WithFinishCallback(func())
	Run()
	OnUserInput(input string)
}

type saveable interface {
	SaveState() ([]byte, error)
	LoadState(data []byte) error
}

func sendWithLogError(api apiInterface, chattable tgbotapi.Chattable) (tgbotapi.Message, error) {
	msg, err := api.Send(chattable)
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeTgApi).
			Errorf("error occurred while sending message: %v", err)
	}
	return msg, err
}

// userMessageFor turns any error into text that can be shown in the chat.
func userMessageFor(err error) string {
	var validationErr *services.ValidationError
	if errors.As(err, &validationErr) {
		return validationErr.Message
	}
	return jobboard.UserMessage(err)
}
