package bot

import (
	"context"
	botApi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/maxaizer/jobboard-alerts/internal/services"
	"github.com/pkg/errors"
)

const (
	currentPasswordStep = iota
	newPasswordStep
	confirmPasswordStep
)

// changePasswordCommand asks for the current, new and repeated password. It is not saveable,
// passwords never reach the user contexts storage.
type changePasswordCommand struct {
	api                  apiInterface
	chatID               int64
	userID               int64
	passwords            passwordService
	inputHandlers        []inputHandler
	curHandlerIndex      int
	current              string
	newPassword          string
	confirm              string
	finishCallback       func()
	finalMessageKeyboard *botApi.ReplyKeyboardMarkup
}

func newChangePasswordCommand(api apiInterface, chatID int64, userID int64, passwords passwordService) *changePasswordCommand {

	cmd := &changePasswordCommand{api: api, chatID: chatID, userID: userID, passwords: passwords}

	current := newTextInput(chatID, "Ingresa tu contraseña actual.", func(input string) {
		cmd.current = input
		cmd.curHandlerIndex++
	})

	newPassword := newTextInput(chatID, "Ingresa la nueva contraseña. Debe tener al menos 8 caracteres, "+
		"mayúsculas, minúsculas y números.", func(input string) {
		cmd.newPassword = input
		cmd.curHandlerIndex++
	})

	confirm := newTextInput(chatID, "Repite la nueva contraseña.", func(input string) {
		cmd.confirm = input
		cmd.curHandlerIndex++
	})

	cmd.inputHandlers = []inputHandler{current, newPassword, confirm}
	return cmd
}

func (c *changePasswordCommand) WithFinishCallback(callback func()) {
	c.finishCallback = callback
}

func (c *changePasswordCommand) WithKeyboardOnFinalMessage(keyboard botApi.ReplyKeyboardMarkup) {
	c.finalMessageKeyboard = &keyboard
}

func (c *changePasswordCommand) Run() {
	_, _ = sendWithLogError(c.api, c.inputHandlers[0].InitMessage())
}

func (c *changePasswordCommand) OnUserInput(input string) {

	previousIndex := c.curHandlerIndex
	msg := c.inputHandlers[c.curHandlerIndex].HandleInput(input)

	handlerChanged := previousIndex != c.curHandlerIndex
	allHandlersFinished := c.curHandlerIndex >= len(c.inputHandlers)

	if !handlerChanged {
		_, _ = sendWithLogError(c.api, msg)
		return
	}

	if !allHandlersFinished {
		_, _ = sendWithLogError(c.api, c.inputHandlers[c.curHandlerIndex].InitMessage())
		return
	}

	if !c.changePassword() {
		return
	}

	if c.finishCallback != nil {
		c.finishCallback()
	}
}

// changePassword reports whether the command is over. A rejected input sends the user back
// to the step that produced it.
func (c *changePasswordCommand) changePassword() bool {

	err := c.passwords.ChangePassword(context.Background(), c.userID, c.current, c.newPassword, c.confirm)

	var validationErr *services.ValidationError
	if errors.As(err, &validationErr) {
		_, _ = sendWithLogError(c.api, botApi.NewMessage(c.chatID, validationErr.Message))
		c.curHandlerIndex = newPasswordStep
		if validationErr.Field == "Current" {
			c.curHandlerIndex = currentPasswordStep
		}
		_, _ = sendWithLogError(c.api, c.inputHandlers[c.curHandlerIndex].InitMessage())
		return false
	}

	msg := botApi.NewMessage(c.chatID, "¡Contraseña actualizada!")
	if c.finalMessageKeyboard != nil {
		msg.ReplyMarkup = c.finalMessageKeyboard
	}
	if err != nil {
		msg.Text = userMessageFor(err)
	}

	_, _ = sendWithLogError(c.api, msg)
	return true
}
