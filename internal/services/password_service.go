package services

import (
	"context"
	"github.com/go-playground/validator/v10"
	"github.com/maxaizer/jobboard-alerts/internal/logger"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"unicode"
)

// ValidationError is a rejected input. Message is meant to be shown to the user.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

type passwordChanger interface {
	ChangePassword(ctx context.Context, userID int64, current, newPassword, confirm string) error
}

type passwordChange struct {
	Current string `validate:"required"`
	New     string `validate:"required,min=8,strong_password,nefield=Current"`
	Confirm string `validate:"required,eqfield=New"`
}

var passwordMessages = map[string]string{
	"Current.required":    "Ingresa tu contraseña actual.",
	"New.required":        "Ingresa una nueva contraseña.",
	"New.min":             "La nueva contraseña debe tener al menos 8 caracteres.",
	"New.strong_password": "La nueva contraseña debe incluir mayúsculas, minúsculas y números.",
	"New.nefield":         "La nueva contraseña debe ser distinta de la actual.",
	"Confirm.required":    "Confirma la nueva contraseña.",
	"Confirm.eqfield":     "Las contraseñas no coinciden.",
	"":                    "La contraseña no es válida.",
}

type PasswordService struct {
	api      passwordChanger
	validate *validator.Validate
}

func NewPasswordService(api passwordChanger) *PasswordService {
	validate := validator.New()
	if err := validate.RegisterValidation("strong_password", isStrongPassword); err != nil {
		panic(err)
	}
	return &PasswordService{api: api, validate: validate}
}

// ChangePassword checks the new password locally and only then asks the job board to change it.
func (s *PasswordService) ChangePassword(ctx context.Context, userID int64, current, newPassword, confirm string) error {

	if err := s.Validate(current, newPassword, confirm); err != nil {
		return err
	}

	if err := s.api.ChangePassword(ctx, userID, current, newPassword, confirm); err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeJobBoardApi).
			Errorf("failed to change password of user %v: %v", userID, err)
		return errors.Wrap(err, "change password")
	}

	log.Infof("password of user %v was changed", userID)
	return nil
}

// Validate returns a *ValidationError describing the first rule the input breaks.
func (s *PasswordService) Validate(current, newPassword, confirm string) error {

	err := s.validate.Struct(passwordChange{Current: current, New: newPassword, Confirm: confirm})
	if err == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) || len(fieldErrors) == 0 {
		return &ValidationError{Message: passwordMessages[""]}
	}

	first := fieldErrors[0]
	message, ok := passwordMessages[first.Field()+"."+first.Tag()]
	if !ok {
		message = passwordMessages[""]
	}
	return &ValidationError{Field: first.Field(), Message: message}
}

func isStrongPassword(fl validator.FieldLevel) bool {
	var upper, lower, digit bool
	for _, r := range fl.Field().String() {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return upper && lower && digit
}
