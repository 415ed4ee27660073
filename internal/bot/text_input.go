package bot

import (
	botApi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"strings"
)

type validation struct {
	function     func(input string) bool
	errorMessage string
}

var notEmpty = validation{
	function:     func(input string) bool { return strings.TrimSpace(input) != "" },
	errorMessage: "El valor no puede estar vacío.",
}

// textInput asks one question and hands the first answer passing every validation to onFinish.
type textInput struct {
	chatID      int64
	initMessage string
	onFinish    func(input string)
	validations []validation
}

func newTextInput(chatID int64, initMessage string, onFinish func(input string)) *textInput {
	return &textInput{chatID: chatID, initMessage: initMessage, onFinish: onFinish, validations: []validation{notEmpty}}
}

func (t *textInput) AddValidation(validation validation) {
	t.validations = append(t.validations, validation)
}

func (t *textInput) InitMessage() botApi.Chattable {
	msg := botApi.NewMessage(t.chatID, t.initMessage)
	msg.ReplyMarkup = keyboardWithExit()
	return msg
}

func (t *textInput) HandleInput(input string) botApi.Chattable {

	for _, v := range t.validations {
		if !v.function(input) {
			return botApi.NewMessage(t.chatID, v.errorMessage)
		}
	}

	t.onFinish(input)
	return nil
}
