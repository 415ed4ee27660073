package bot

import (
	"context"
	"fmt"
	botApi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/maxaizer/jobboard-alerts/internal/logger"
	log "github.com/sirupsen/logrus"
	"strconv"
)

type linkAccountCommand struct {
	api                  apiInterface
	chatID               int64
	subscribers          subscriberRepository
	input                inputHandler
	userID               int64
	inputFinished        bool
	finishCallback       func()
	finalMessageKeyboard *botApi.ReplyKeyboardMarkup
}

func newLinkAccountCommand(api apiInterface, chatID int64, subscribers subscriberRepository) *linkAccountCommand {

	cmd := &linkAccountCommand{api: api, chatID: chatID, subscribers: subscribers}
	cmd.input = newUserIDInput(chatID, func(input string) {
		cmd.userID, _ = strconv.ParseInt(input, 10, 64)
		cmd.inputFinished = true
	})
	return cmd
}

func (c *linkAccountCommand) WithFinishCallback(callback func()) {
	c.finishCallback = callback
}

func (c *linkAccountCommand) WithKeyboardOnFinalMessage(keyboard botApi.ReplyKeyboardMarkup) {
	c.finalMessageKeyboard = &keyboard
}

func (c *linkAccountCommand) Run() {
	_, _ = sendWithLogError(c.api, c.input.InitMessage())
}

func (c *linkAccountCommand) OnUserInput(input string) {

	msg := c.input.HandleInput(input)

	if !c.inputFinished {
		_, _ = sendWithLogError(c.api, msg)
		return
	}

	c.link()

	if c.finishCallback != nil {
		c.finishCallback()
	}
}

func (c *linkAccountCommand) link() {

	msg := botApi.NewMessage(c.chatID, "")
	if c.finalMessageKeyboard != nil {
		msg.ReplyMarkup = c.finalMessageKeyboard
	}

	if err := c.subscribers.Link(context.Background(), c.chatID, c.userID); err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).Error(err)
		msg.Text = "¡Error interno!"
		_, _ = sendWithLogError(c.api, msg)
		return
	}

	msg.Text = linkedMessage(c.userID)
	_, _ = sendWithLogError(c.api, msg)
}

func linkedMessage(userID int64) string {
	return fmt.Sprintf("Cuenta %v vinculada. Te avisaremos cuando cambie el estado de tus postulaciones.", userID)
}

func newUserIDInput(chatID int64, onFinish func(input string)) *textInput {
	input := newTextInput(chatID, "Ingresa tu id de usuario de la bolsa de empleo.", onFinish)
	input.AddValidation(validation{
		function: func(input string) bool {
			id, err := strconv.ParseInt(input, 10, 64)
			return err == nil && id > 0
		},
		errorMessage: "El id debe ser un número positivo.",
	})
	return input
}
