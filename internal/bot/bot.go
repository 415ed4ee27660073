package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/asaskevich/EventBus"
	botApi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/maxaizer/jobboard-alerts/internal/config"
	"github.com/maxaizer/jobboard-alerts/internal/domain/events"
	"github.com/maxaizer/jobboard-alerts/internal/domain/models"
	"github.com/maxaizer/jobboard-alerts/internal/logger"
	log "github.com/sirupsen/logrus"
	"slices"
	"strconv"
	"strings"
	"sync"
)

type Repositories struct {
	Subscribers subscriberRepository
	Data        dataRepository
}

type Services struct {
	Suggestions   suggestionsService
	Notifications notificationsReader
	Passwords     passwordService
}

type dataRepository interface {
	Save(ctx context.Context, id string, data []byte) error
	LoadAndRemove(ctx context.Context, id string) ([]byte, error)
}

type subscriberRepository interface {
	Link(ctx context.Context, chatID int64, userID int64) error
	GetByChatID(ctx context.Context, chatID int64) (*models.Subscriber, error)
	GetByUserID(ctx context.Context, userID int64) ([]models.Subscriber, error)
	Remove(ctx context.Context, chatID int64) error
}

type suggestionsService interface {
	LoadSuggestions(ctx context.Context, userID int64) ([]models.SuggestedJob, error)
	UpdateStatus(ctx context.Context, userID int64, suggestionID int64, estado models.SuggestionState) error
	ViewAndApply(userID int64, suggestionID int64) (models.Job, error)
}

type notificationsReader interface {
	Notifications(ctx context.Context, userID int64) ([]models.Notification, error)
}

type passwordService interface {
	ChangePassword(ctx context.Context, userID int64, current, newPassword, confirm string) error
}

type Bot struct {
	api           *botApi.BotAPI
	updateTimeout int
	sender        apiInterface
	mu            sync.Mutex
	userContexts  map[int64]*userContext
	bus           EventBus.Bus
	repositories  Repositories
	services      Services
}

const (
	linkAccountCommandName    = "Vincular cuenta"
	suggestionsCommandName    = "Sugerencias"
	applyCommandName          = "Ver y postular"
	markAppliedCommandName    = "Marcar como aplicada"
	dismissCommandName        = "Descartar sugerencia"
	notificationsCommandName  = "Notificaciones"
	changePasswordCommandName = "Cambiar contraseña"
	backToMenuCommandName     = "Volver al menú"
)

const userContextsKey = "user_contexts"

const maxListedNotifications = 10

var globalCommands = []string{linkAccountCommandName, suggestionsCommandName, applyCommandName, markAppliedCommandName,
	dismissCommandName, notificationsCommandName, changePasswordCommandName, backToMenuCommandName}

var errorNotLinked = errors.New("chat is not linked to a job board user")

func NewBot(cfg config.BotConfig, bus EventBus.Bus, repositories Repositories, services Services) (*Bot, error) {

	api, err := botApi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, err
	}
	api.Debug = cfg.Debug
	log.Infof("Authorized on account %s", api.Self.UserName)

	err = botApi.SetLogger(log.StandardLogger())
	if err != nil {
		return nil, err
	}

	createdBot, err := newBot(api, bus, repositories, services)
	if err != nil {
		return nil, err
	}
	createdBot.api = api
	createdBot.updateTimeout = cfg.UpdateTimeout
	return createdBot, nil
}

func newBot(sender apiInterface, bus EventBus.Bus, repositories Repositories, services Services) (*Bot, error) {

	if bus == nil {
		return nil, errors.New("bus is nil")
	}

	if repositories.Subscribers == nil {
		return nil, errors.New("subscribers repository is nil")
	}

	if repositories.Data == nil {
		return nil, errors.New("data repository is nil")
	}

	if services.Suggestions == nil || services.Notifications == nil || services.Passwords == nil {
		return nil, errors.New("bot services are not set")
	}

	createdBot := &Bot{
		sender:       sender,
		userContexts: make(map[int64]*userContext),
		bus:          bus,
		repositories: repositories,
		services:     services,
	}

	err := bus.Subscribe(events.NotificationCreatedTopic, createdBot.onNotificationCreated)
	if err != nil {
		return nil, err
	}
	return createdBot, nil
}

func (b *Bot) Run() {

	err := b.loadUserContexts()
	if err != nil {
		log.Errorf("Error loading user contexts: %v", err)
	}

	updateConfig := botApi.NewUpdate(0)
	updateConfig.Timeout = b.updateTimeout

	updates := b.api.GetUpdatesChan(updateConfig)

	for update := range updates {

		if update.Message == nil {
			continue
		}

		if update.Message.Chat.IsGroup() || update.Message.Chat.IsSuperGroup() {
			continue
		}

		go b.handleMessage(update.Message)
	}
}

func (b *Bot) Stop() {
	if b.api != nil {
		b.api.StopReceivingUpdates()
	}

	err := b.saveUserContexts()
	if err != nil {
		log.Errorf("Error saving user contexts: %v", err)
	}
}

func (b *Bot) handleMessage(message *botApi.Message) {

	cmd := message.Command()
	if cmd == "" && slices.Contains(globalCommands, message.Text) {
		cmd = message.Text
	}

	if cmd != "" {
		b.handleCommand(message.From, message.Chat, cmd, message.CommandArguments())
	} else {
		b.handleInput(message.From, message.Chat, message.Text)
	}
}

func (b *Bot) handleCommand(user *botApi.User, chat *botApi.Chat, command string, args string) {

	var response botApi.Chattable
	var err error

	switch command {
	case "start":
		messageResponse := botApi.NewMessage(chat.ID, "¡Hola! Vincula tu cuenta de la bolsa de empleo para recibir "+
			"avisos sobre tus postulaciones y las vacantes que te sugieren.")
		messageResponse.ReplyMarkup = defaultReplyKeyboard()
		response = messageResponse
		b.resetUserContext(user.ID)
	case "vincular":
		response, err = b.linkFromArguments(chat.ID, args)
	case "desvincular":
		response, err = b.unlink(chat.ID)
		b.resetUserContext(user.ID)
	case suggestionsCommandName, "sugerencias":
		response, err = b.listSuggestions(chat.ID)
	case notificationsCommandName, "notificaciones":
		response, err = b.listNotifications(chat.ID)
	case linkAccountCommandName, applyCommandName, markAppliedCommandName, dismissCommandName, changePasswordCommandName:
		cmd, cmdErr := b.createCommand(command, chat.ID)
		if cmdErr != nil {
			err = fmt.Errorf("couldn't create %s: %w", command, cmdErr)
		} else {
			b.userContextFor(user.ID, chat.ID).RunCommand(cmd, command)
		}
	case backToMenuCommandName:
		messageResponse := botApi.NewMessage(chat.ID, "Volviste al menú principal.")
		messageResponse.ReplyMarkup = defaultReplyKeyboard()
		response = messageResponse
		b.resetUserContext(user.ID)
	default:
		response = botApi.NewMessage(chat.ID, "¡Comando desconocido!")
	}

	if err != nil {
		switch {
		case errors.Is(err, errorNotLinked):
			response = botApi.NewMessage(chat.ID, "Primero vincula tu cuenta con \""+linkAccountCommandName+"\".")
		case errors.Is(err, errorNoSuggestions):
			response = botApi.NewMessage(chat.ID, "No tienes sugerencias pendientes.")
		default:
			response = botApi.NewMessage(chat.ID, userMessageFor(err))
			log.Error(err)
		}
	}

	if response == nil {
		return
	}

	_, _ = sendWithLogError(b.sender, response)
}

func (b *Bot) createCommand(name string, chatID int64) (command, error) {

	if name == linkAccountCommandName {
		return newLinkAccountCommand(b.sender, chatID, b.repositories.Subscribers), nil
	}

	userID, err := b.jobBoardUser(chatID)
	if err != nil {
		return nil, err
	}

	switch name {
	case applyCommandName:
		return newSuggestionCommand(b.sender, chatID, userID, b.services.Suggestions, applySuggestion)
	case markAppliedCommandName:
		return newSuggestionCommand(b.sender, chatID, userID, b.services.Suggestions, markSuggestionApplied)
	case dismissCommandName:
		return newSuggestionCommand(b.sender, chatID, userID, b.services.Suggestions, dismissSuggestion)
	case changePasswordCommandName:
		return newChangePasswordCommand(b.sender, chatID, userID, b.services.Passwords), nil
	default:
		return nil, fmt.Errorf("unknown command: %v", name)
	}
}

func (b *Bot) handleInput(user *botApi.User, chat *botApi.Chat, input string) {

	ctx := b.existingUserContext(user.ID)
	if ctx == nil || !ctx.HasRunningCommand() {
		_, _ = sendWithLogError(b.sender, botApi.NewMessage(chat.ID, "Se esperaba un comando."))
		return
	}

	ctx.OnUserInput(input)
}

func (b *Bot) jobBoardUser(chatID int64) (int64, error) {
	subscriber, err := b.repositories.Subscribers.GetByChatID(context.Background(), chatID)
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).Error(err)
		return 0, err
	}
	if subscriber == nil {
		return 0, errorNotLinked
	}
	return subscriber.UserID, nil
}

func (b *Bot) linkFromArguments(chatID int64, args string) (botApi.Chattable, error) {

	userID, err := strconv.ParseInt(strings.TrimSpace(args), 10, 64)
	if err != nil || userID <= 0 {
		return botApi.NewMessage(chatID, "Uso: /vincular <id de usuario>"), nil
	}

	if err = b.repositories.Subscribers.Link(context.Background(), chatID, userID); err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).Error(err)
		return nil, err
	}

	msg := botApi.NewMessage(chatID, linkedMessage(userID))
	msg.ReplyMarkup = defaultReplyKeyboard()
	return msg, nil
}

func (b *Bot) unlink(chatID int64) (botApi.Chattable, error) {

	if _, err := b.jobBoardUser(chatID); err != nil {
		return nil, err
	}

	if err := b.repositories.Subscribers.Remove(context.Background(), chatID); err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).Error(err)
		return nil, err
	}

	return botApi.NewMessage(chatID, "Cuenta desvinculada. Ya no recibirás avisos en este chat."), nil
}

func (b *Bot) listSuggestions(chatID int64) (botApi.Chattable, error) {

	userID, err := b.jobBoardUser(chatID)
	if err != nil {
		return nil, err
	}

	suggestions, err := b.services.Suggestions.LoadSuggestions(context.Background(), userID)
	if err != nil {
		return nil, err
	}
	if len(suggestions) == 0 {
		return nil, errorNoSuggestions
	}

	return botApi.NewMessage(chatID, "Vacantes sugeridas para ti:\n"+suggestionsToText(suggestions)), nil
}

func (b *Bot) listNotifications(chatID int64) (botApi.Chattable, error) {

	userID, err := b.jobBoardUser(chatID)
	if err != nil {
		return nil, err
	}

	notifications, err := b.services.Notifications.Notifications(context.Background(), userID)
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeStore).Error(err)
		return nil, err
	}
	if len(notifications) == 0 {
		return botApi.NewMessage(chatID, "Aún no tienes notificaciones."), nil
	}

	return botApi.NewMessage(chatID, notificationsToText(notifications, maxListedNotifications)), nil
}

func (b *Bot) onNotificationCreated(event events.NotificationCreated) {

	subscribers, err := b.repositories.Subscribers.GetByUserID(context.Background(), event.Notification.UserID)
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).
			Errorf("failed to get chats of user %v: %v", event.Notification.UserID, err)
		return
	}

	text := fmt.Sprintf("%s %s\n%s", event.Icon, event.Notification.Title, event.Notification.Message)
	for _, subscriber := range subscribers {
		_, _ = sendWithLogError(b.sender, botApi.NewMessage(subscriber.ChatID, text))
	}
}

func (b *Bot) userContextFor(userID int64, chatID int64) *userContext {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.userContexts[userID] == nil {
		b.userContexts[userID] = newUserContext(chatID)
	}
	return b.userContexts[userID]
}

func (b *Bot) existingUserContext(userID int64) *userContext {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.userContexts[userID]
}

func (b *Bot) resetUserContext(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.userContexts, userID)
}

func (b *Bot) saveUserContexts() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	data, err := json.Marshal(b.userContexts)
	if err != nil {
		return err
	}
	return b.repositories.Data.Save(context.Background(), userContextsKey, data)
}

func (b *Bot) loadUserContexts() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	data, err := b.repositories.Data.LoadAndRemove(context.Background(), userContextsKey)
	if err != nil {
		return err
	}
	if data == nil {
		return nil
	}
	if err = json.Unmarshal(data, &b.userContexts); err != nil {
		return err
	}

	var errs []error
	for i, ctx := range b.userContexts {

		if ctx.curCommandName == "" {
			continue
		}

		cmd, err := b.createCommand(ctx.curCommandName, ctx.chatID)
		if err != nil {
			errs = append(errs, err)
			delete(b.userContexts, i)
			continue
		}

		saveableCmd, ok := cmd.(saveable)
		if !ok {
			ctx.ResumeCommandAfterBotRestart(cmd)
			continue
		}

		err = saveableCmd.LoadState(ctx.curCommandState)
		if err != nil {
			errs = append(errs, err)
			delete(b.userContexts, i)
			continue
		}

		ctx.ResumeCommandAfterBotRestart(cmd)
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

func defaultReplyKeyboard() botApi.ReplyKeyboardMarkup {
	return botApi.NewReplyKeyboard(
		botApi.NewKeyboardButtonRow(
			botApi.NewKeyboardButton(suggestionsCommandName),
			botApi.NewKeyboardButton(notificationsCommandName),
		),
		botApi.NewKeyboardButtonRow(
			botApi.NewKeyboardButton(applyCommandName),
			botApi.NewKeyboardButton(markAppliedCommandName),
			botApi.NewKeyboardButton(dismissCommandName),
		),
		botApi.NewKeyboardButtonRow(
			botApi.NewKeyboardButton(linkAccountCommandName),
			botApi.NewKeyboardButton(changePasswordCommandName),
		),
	)
}

func keyboardWithExit() botApi.ReplyKeyboardMarkup {
	return botApi.NewReplyKeyboard(
		botApi.NewKeyboardButtonRow(
			botApi.NewKeyboardButton(backToMenuCommandName),
		),
	)
}
