package events

import (
	"github.com/maxaizer/jobboard-alerts/internal/domain/models"
)

var NotificationCreatedTopic = "NotificationCreatedEvent"

// NotificationCreated is the ephemeral toast emitted next to every persisted notification.
type NotificationCreated struct {
	Notification models.Notification
	Icon         string
}
