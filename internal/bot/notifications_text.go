package bot

import (
	"github.com/maxaizer/jobboard-alerts/internal/domain/models"
	"github.com/samber/lo"
	"slices"
	"strings"
)

const notificationDateLayout = "02/01/2006 15:04"

// notificationsToText lists the latest notifications first.
func notificationsToText(notifications []models.Notification, limit int) string {

	latest := slices.Clone(notifications)
	slices.Reverse(latest)
	latest = lo.Slice(latest, 0, limit)

	var sb strings.Builder
	sb.WriteString("Tus notificaciones:\n")
	for _, n := range latest {
		sb.WriteString("\n")
		if !n.Read {
			sb.WriteString("• ")
		}
		sb.WriteString(n.Title + " (" + n.CreatedDate.Local().Format(notificationDateLayout) + ")\n")
		sb.WriteString(n.Message + "\n")
	}
	return sb.String()
}
