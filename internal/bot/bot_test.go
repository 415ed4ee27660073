package bot

import (
	"context"
	"errors"
	"github.com/asaskevich/EventBus"
	botApi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/maxaizer/jobboard-alerts/internal/clients/jobboard"
	"github.com/maxaizer/jobboard-alerts/internal/domain/events"
	"github.com/maxaizer/jobboard-alerts/internal/domain/models"
	"github.com/maxaizer/jobboard-alerts/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"strings"
	"testing"
)

type mockSubscribers struct {
	Subscribers []models.Subscriber
}

func (m *mockSubscribers) Link(_ context.Context, chatID int64, userID int64) error {
	for i := range m.Subscribers {
		if m.Subscribers[i].ChatID == chatID {
			m.Subscribers[i].UserID = userID
			return nil
		}
	}
	m.Subscribers = append(m.Subscribers, models.Subscriber{ChatID: chatID, UserID: userID})
	return nil
}

func (m *mockSubscribers) GetByChatID(_ context.Context, chatID int64) (*models.Subscriber, error) {
	for i := range m.Subscribers {
		if m.Subscribers[i].ChatID == chatID {
			return &m.Subscribers[i], nil
		}
	}
	return nil, nil
}

func (m *mockSubscribers) GetByUserID(_ context.Context, userID int64) ([]models.Subscriber, error) {
	result := make([]models.Subscriber, 0)
	for _, subscriber := range m.Subscribers {
		if subscriber.UserID == userID {
			result = append(result, subscriber)
		}
	}
	return result, nil
}

func (m *mockSubscribers) Remove(_ context.Context, chatID int64) error {
	for i := range m.Subscribers {
		if m.Subscribers[i].ChatID == chatID {
			m.Subscribers = append(m.Subscribers[:i], m.Subscribers[i+1:]...)
			return nil
		}
	}
	return nil
}

type mockData struct {
	values map[string][]byte
}

func (m *mockData) Save(_ context.Context, id string, data []byte) error {
	m.values[id] = data
	return nil
}

func (m *mockData) LoadAndRemove(_ context.Context, id string) ([]byte, error) {
	data := m.values[id]
	delete(m.values, id)
	return data, nil
}

type mockSuggestions struct {
	mock.Mock
}

func (m *mockSuggestions) LoadSuggestions(ctx context.Context, userID int64) ([]models.SuggestedJob, error) {
	args := m.Called(ctx, userID)
	suggestions, _ := args.Get(0).([]models.SuggestedJob)
	return suggestions, args.Error(1)
}

func (m *mockSuggestions) UpdateStatus(ctx context.Context, userID int64, suggestionID int64,
	estado models.SuggestionState) error {
	return m.Called(ctx, userID, suggestionID, estado).Error(0)
}

func (m *mockSuggestions) ViewAndApply(userID int64, suggestionID int64) (models.Job, error) {
	args := m.Called(userID, suggestionID)
	return args.Get(0).(models.Job), args.Error(1)
}

type mockNotifications struct {
	items []models.Notification
}

func (m *mockNotifications) Notifications(_ context.Context, userID int64) ([]models.Notification, error) {
	result := make([]models.Notification, 0)
	for _, n := range m.items {
		if n.UserID == userID {
			result = append(result, n)
		}
	}
	return result, nil
}

type mockPasswords struct {
	mock.Mock
}

func (m *mockPasswords) ChangePassword(ctx context.Context, userID int64, current, newPassword, confirm string) error {
	return m.Called(ctx, userID, current, newPassword, confirm).Error(0)
}

type mockApi struct {
	SentMessages []botApi.Chattable
}

func (m *mockApi) Send(chattable botApi.Chattable) (botApi.Message, error) {
	m.SentMessages = append(m.SentMessages, chattable)
	return botApi.Message{}, nil
}

func (m *mockApi) LastText() string {
	if len(m.SentMessages) == 0 {
		return ""
	}
	return m.SentMessages[len(m.SentMessages)-1].(botApi.MessageConfig).Text
}

func simulateUserInput(cmd command, inputs []string) {
	for _, input := range inputs {
		cmd.OnUserInput(input)
	}
}

var testSuggestions = []models.SuggestedJob{
	{ID: 5, Job: models.Job{ID: 42, Title: "Backend Developer", Company: "Acme", Url: "https://jobs.example/42"},
		Estado: models.SuggestionPending, SugeridoPor: "Laura"},
	{ID: 6, Job: models.Job{ID: 43, Title: "QA Engineer", Company: "Globex"}, Estado: models.SuggestionViewed},
}

type botFixture struct {
	bot           *Bot
	api           *mockApi
	bus           EventBus.Bus
	subscribers   *mockSubscribers
	suggestions   *mockSuggestions
	notifications *mockNotifications
	passwords     *mockPasswords
}

func newBotFixture(t *testing.T) *botFixture {
	f := &botFixture{
		api:           &mockApi{},
		bus:           EventBus.New(),
		subscribers:   &mockSubscribers{Subscribers: []models.Subscriber{{ChatID: 100, UserID: 7}}},
		suggestions:   &mockSuggestions{},
		notifications: &mockNotifications{},
		passwords:     &mockPasswords{},
	}

	b, err := newBot(f.api, f.bus,
		Repositories{Subscribers: f.subscribers, Data: &mockData{values: map[string][]byte{}}},
		Services{Suggestions: f.suggestions, Notifications: f.notifications, Passwords: f.passwords})
	require.NoError(t, err)
	f.bot = b
	return f
}

func Test_LinkAccountCmd_WhenInvalidInput_ShouldWaitForValid(t *testing.T) {

	assert := assert.New(t)

	subscribers := &mockSubscribers{}
	finished := false

	cmd := newLinkAccountCommand(&mockApi{}, 200, subscribers)
	cmd.WithFinishCallback(func() { finished = true })

	cmd.Run()
	simulateUserInput(cmd, []string{"abc", "-3"})
	assert.False(finished)

	cmd.OnUserInput("12")

	assert.True(finished)
	require.Len(t, subscribers.Subscribers, 1)
	assert.Equal(int64(12), subscribers.Subscribers[0].UserID)
	assert.Equal(int64(200), subscribers.Subscribers[0].ChatID)
}

func Test_SuggestionCmd_WhenDismissed_ShouldUpdateStatus(t *testing.T) {

	assert := assert.New(t)

	api := &mockApi{}
	suggestions := &mockSuggestions{}
	suggestions.On("LoadSuggestions", mock.Anything, int64(7)).Return(testSuggestions, nil)
	suggestions.On("UpdateStatus", mock.Anything, int64(7), int64(5), models.SuggestionDismissed).Return(nil)
	finished := false

	cmd, err := newSuggestionCommand(api, 100, 7, suggestions, dismissSuggestion)
	require.NoError(t, err)
	cmd.WithFinishCallback(func() { finished = true })

	cmd.Run()
	simulateUserInput(cmd, []string{"x", "3", "1"})

	assert.True(finished)
	assert.Equal("Descartamos la sugerencia Backend Developer.", api.LastText())
	suggestions.AssertExpectations(t)
}

func Test_SuggestionCmd_WhenApplying_ShouldSendJobUrl(t *testing.T) {

	api := &mockApi{}
	suggestions := &mockSuggestions{}
	suggestions.On("LoadSuggestions", mock.Anything, int64(7)).Return(testSuggestions, nil)
	suggestions.On("ViewAndApply", int64(7), int64(5)).Return(testSuggestions[0].Job, nil)

	cmd, err := newSuggestionCommand(api, 100, 7, suggestions, applySuggestion)
	require.NoError(t, err)

	cmd.Run()
	cmd.OnUserInput("1")

	assert.Contains(t, api.LastText(), "https://jobs.example/42")
}

func Test_SuggestionCmd_WhenApiFails_ShouldShowApiMessage(t *testing.T) {

	api := &mockApi{}
	suggestions := &mockSuggestions{}
	suggestions.On("LoadSuggestions", mock.Anything, int64(7)).Return(testSuggestions, nil)
	suggestions.On("UpdateStatus", mock.Anything, int64(7), int64(6), models.SuggestionApplied).
		Return(&jobboard.APIError{StatusCode: 409, Message: "La sugerencia ya fue cerrada."})

	cmd, err := newSuggestionCommand(api, 100, 7, suggestions, markSuggestionApplied)
	require.NoError(t, err)

	cmd.Run()
	cmd.OnUserInput("2")

	assert.Equal(t, "La sugerencia ya fue cerrada.", api.LastText())
}

func Test_SuggestionCmd_WhenNoSuggestions_ShouldFail(t *testing.T) {

	suggestions := &mockSuggestions{}
	suggestions.On("LoadSuggestions", mock.Anything, int64(7)).Return([]models.SuggestedJob{}, nil)

	_, err := newSuggestionCommand(&mockApi{}, 100, 7, suggestions, dismissSuggestion)

	assert.ErrorIs(t, err, errorNoSuggestions)
}

func Test_ChangePasswordCmd_WhenRejectedLocally_ShouldAskAgain(t *testing.T) {

	assert := assert.New(t)

	api := &mockApi{}
	passwords := &mockPasswords{}
	passwords.On("ChangePassword", mock.Anything, int64(7), "Vieja123", "Secreta123", "Secreta124").
		Return(&services.ValidationError{Field: "Confirm", Message: "Las contraseñas no coinciden."}).Once()
	passwords.On("ChangePassword", mock.Anything, int64(7), "Vieja123", "Secreta123", "Secreta123").
		Return(nil).Once()
	finished := false

	cmd := newChangePasswordCommand(api, 100, 7, passwords)
	cmd.WithFinishCallback(func() { finished = true })

	cmd.Run()
	simulateUserInput(cmd, []string{"Vieja123", "Secreta123", "Secreta124"})

	assert.False(finished)
	assert.Equal(newPasswordStep, cmd.curHandlerIndex)

	simulateUserInput(cmd, []string{"Secreta123", "Secreta123"})

	assert.True(finished)
	assert.Equal("¡Contraseña actualizada!", api.LastText())
	passwords.AssertExpectations(t)
}

func Test_ChangePasswordCmd_WhenApiRejects_ShouldFinishWithApiMessage(t *testing.T) {

	api := &mockApi{}
	passwords := &mockPasswords{}
	passwords.On("ChangePassword", mock.Anything, int64(7), "Mala1234", "Secreta123", "Secreta123").
		Return(&jobboard.APIError{StatusCode: 400, Message: "La contraseña actual es incorrecta."})
	finished := false

	cmd := newChangePasswordCommand(api, 100, 7, passwords)
	cmd.WithFinishCallback(func() { finished = true })

	cmd.Run()
	simulateUserInput(cmd, []string{"Mala1234", "Secreta123", "Secreta123"})

	assert.True(t, finished)
	assert.Equal(t, "La contraseña actual es incorrecta.", api.LastText())
}

func Test_Bot_OnNotificationCreated_ShouldSendToastToLinkedChats(t *testing.T) {

	f := newBotFixture(t)
	f.subscribers.Subscribers = append(f.subscribers.Subscribers,
		models.Subscriber{ChatID: 101, UserID: 7}, models.Subscriber{ChatID: 300, UserID: 8})

	f.bus.Publish(events.NotificationCreatedTopic, events.NotificationCreated{
		Notification: models.Notification{UserID: 7, Title: "¡Tu CV ha sido revisado!", Message: "Revisaron tu CV."},
		Icon:         "👀",
	})

	require.Len(t, f.api.SentMessages, 2)
	first := f.api.SentMessages[0].(botApi.MessageConfig)
	second := f.api.SentMessages[1].(botApi.MessageConfig)
	assert.Equal(t, int64(100), first.ChatID)
	assert.Equal(t, int64(101), second.ChatID)
	assert.Equal(t, "👀 ¡Tu CV ha sido revisado!\nRevisaron tu CV.", first.Text)
}

func Test_Bot_WhenChatNotLinked_ShouldAskToLink(t *testing.T) {

	f := newBotFixture(t)

	f.bot.handleCommand(&botApi.User{ID: 555}, &botApi.Chat{ID: 555}, suggestionsCommandName, "")

	assert.Contains(t, f.api.LastText(), linkAccountCommandName)
	f.suggestions.AssertNotCalled(t, "LoadSuggestions", mock.Anything, mock.Anything)
}

func Test_Bot_ListSuggestions_WhenLoadFails_ShouldShowMessage(t *testing.T) {

	f := newBotFixture(t)
	f.suggestions.On("LoadSuggestions", mock.Anything, int64(7)).Return(nil, errors.New("connection refused"))

	f.bot.handleCommand(&botApi.User{ID: 100}, &botApi.Chat{ID: 100}, suggestionsCommandName, "")

	assert.Equal(t, jobboard.UserMessage(errors.New("connection refused")), f.api.LastText())
}

func Test_Bot_ListNotifications_ShouldShowLatestFirst(t *testing.T) {

	f := newBotFixture(t)
	f.notifications.items = []models.Notification{
		{UserID: 7, Title: "¡Postulación recibida!", Message: "primera"},
		{UserID: 7, Title: "¡Eres finalista!", Message: "segunda"},
		{UserID: 8, Title: "Proceso finalizado", Message: "ajena"},
	}

	f.bot.handleCommand(&botApi.User{ID: 100}, &botApi.Chat{ID: 100}, notificationsCommandName, "")

	text := f.api.LastText()
	assert.NotContains(t, text, "ajena")
	assert.Less(t, strings.Index(text, "segunda"), strings.Index(text, "primera"))
}

func Test_Bot_LinkWithArguments_ShouldLinkChat(t *testing.T) {

	f := newBotFixture(t)

	f.bot.handleCommand(&botApi.User{ID: 200}, &botApi.Chat{ID: 200}, "vincular", " 12 ")

	subscriber, _ := f.subscribers.GetByChatID(context.Background(), 200)
	require.NotNil(t, subscriber)
	assert.Equal(t, int64(12), subscriber.UserID)
}

func Test_Bot_Unlink_ShouldStopToasts(t *testing.T) {

	f := newBotFixture(t)

	f.bot.handleCommand(&botApi.User{ID: 100}, &botApi.Chat{ID: 100}, "desvincular", "")
	sent := len(f.api.SentMessages)

	f.bus.Publish(events.NotificationCreatedTopic, events.NotificationCreated{
		Notification: models.Notification{UserID: 7, Title: "¡Eres finalista!"},
		Icon:         "🏆",
	})

	assert.Empty(t, f.subscribers.Subscribers)
	assert.Equal(t, sent, len(f.api.SentMessages))
}

func Test_Bot_UserContexts_ShouldSurviveRestart(t *testing.T) {

	f := newBotFixture(t)
	f.suggestions.On("LoadSuggestions", mock.Anything, int64(7)).Return(testSuggestions, nil)

	f.bot.handleCommand(&botApi.User{ID: 100}, &botApi.Chat{ID: 100}, dismissCommandName, "")
	require.NoError(t, f.bot.saveUserContexts())

	restarted, err := newBot(f.api, EventBus.New(), f.bot.repositories, f.bot.services)
	require.NoError(t, err)
	require.NoError(t, restarted.loadUserContexts())

	ctx := restarted.existingUserContext(100)
	require.NotNil(t, ctx)
	assert.True(t, ctx.HasRunningCommand())
	assert.Equal(t, dismissCommandName, ctx.curCommandName)
}

func Test_SuggestionCmd_AfterRestart_ShouldKeepListedNumbers(t *testing.T) {

	f := newBotFixture(t)
	f.suggestions.On("LoadSuggestions", mock.Anything, int64(7)).Return(testSuggestions, nil).Once()
	reordered := []models.SuggestedJob{testSuggestions[1], testSuggestions[0]}
	f.suggestions.On("LoadSuggestions", mock.Anything, int64(7)).Return(reordered, nil).Once()
	f.suggestions.On("UpdateStatus", mock.Anything, int64(7), int64(5), models.SuggestionDismissed).Return(nil)

	f.bot.handleCommand(&botApi.User{ID: 100}, &botApi.Chat{ID: 100}, dismissCommandName, "")
	require.NoError(t, f.bot.saveUserContexts())

	restarted, err := newBot(f.api, EventBus.New(), f.bot.repositories, f.bot.services)
	require.NoError(t, err)
	require.NoError(t, restarted.loadUserContexts())

	restarted.handleInput(&botApi.User{ID: 100}, &botApi.Chat{ID: 100}, "1")

	assert.Equal(t, "Descartamos la sugerencia Backend Developer.", f.api.LastText())
	f.suggestions.AssertExpectations(t)
}

func Test_SuggestionCmd_LoadState_WhenAllListedGone_ShouldFail(t *testing.T) {

	suggestions := &mockSuggestions{}
	suggestions.On("LoadSuggestions", mock.Anything, int64(7)).Return(testSuggestions, nil)

	cmd, err := newSuggestionCommand(&mockApi{}, 100, 7, suggestions, dismissSuggestion)
	require.NoError(t, err)

	err = cmd.LoadState([]byte("[99]"))
	assert.ErrorIs(t, err, errorNoSuggestions)
}
