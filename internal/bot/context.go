package bot

import (
	"encoding/json"
	"sync"
)

// userContext tracks the command a chat is in the middle of. Inputs of one user are
// handled one at a time.
type userContext struct {
	mu              sync.Mutex
	chatID          int64
	curCommand      command
	curCommandName  string
	curCommandState []byte
}

type savedUserContext struct {
	ChatID          int64  `json:"chatID"`
	CurCommandName  string `json:"curCommandName"`
	CurCommandState []byte `json:"curCommandState,omitempty"`
}

func newUserContext(chatID int64) *userContext {
	return &userContext{chatID: chatID}
}

func (u *userContext) RunCommand(command command, name string) {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.setCommand(command, name)
	u.curCommand.Run()
}

// ResumeCommandAfterBotRestart attaches a recreated command without running it again,
// so its first prompt is not repeated.
func (u *userContext) ResumeCommandAfterBotRestart(command command) {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.setCommand(command, u.curCommandName)
}

func (u *userContext) HasRunningCommand() bool {
	u.mu.Lock()
	defer u.mu.Unlock()

	return u.curCommand != nil
}

func (u *userContext) OnUserInput(input string) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.curCommand == nil {
		return
	}
	u.curCommand.OnUserInput(input)
}

func (u *userContext) MarshalJSON() ([]byte, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	saved := savedUserContext{ChatID: u.chatID, CurCommandName: u.curCommandName}
	if saveableCmd, ok := u.curCommand.(saveable); ok {
		state, err := saveableCmd.SaveState()
		if err != nil {
			return nil, err
		}
		saved.CurCommandState = state
	}

	return json.Marshal(saved)
}

func (u *userContext) UnmarshalJSON(data []byte) error {

	var saved savedUserContext
	if err := json.Unmarshal(data, &saved); err != nil {
		return err
	}

	u.chatID = saved.ChatID
	u.curCommandName = saved.CurCommandName
	u.curCommandState = saved.CurCommandState
	return nil
}

func (u *userContext) setCommand(command command, name string) {
	u.curCommand = command
	u.curCommandName = name
	u.curCommand.WithFinishCallback(func() {
		u.curCommand = nil
		u.curCommandName = ""
	})
	u.curCommand.WithKeyboardOnFinalMessage(defaultReplyKeyboard())
}
