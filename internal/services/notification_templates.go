package services

import (
	"fmt"
	"github.com/maxaizer/jobboard-alerts/internal/domain/models"
)

const (
	fallbackJobTitle = "el empleo"
	fallbackCompany  = "la empresa"
)

type notificationTemplate struct {
	title   string
	message string
	icon    string
}

func (t notificationTemplate) render(job *models.Job) string {
	title, company := fallbackJobTitle, fallbackCompany
	if job != nil {
		if job.Title != "" {
			title = job.Title
		}
		if job.Company != "" {
			company = job.Company
		}
	}
	return fmt.Sprintf(t.message, title, company)
}

// templateFor reports false for statuses without a template; callers skip those transitions.
func templateFor(status models.ApplicationStatus) (notificationTemplate, bool) {
	switch status {
	case models.StatusApplied:
		return notificationTemplate{
			title:   "¡Postulación recibida!",
			message: "Recibimos tu postulación para %s en %s.",
			icon:    "📨",
		}, true
	case models.StatusCvViewed:
		return notificationTemplate{
			title:   "¡Tu CV ha sido revisado!",
			message: "Revisaron tu CV para %s en %s.",
			icon:    "👀",
		}, true
	case models.StatusInProcess:
		return notificationTemplate{
			title:   "¡Avanzaste en el proceso!",
			message: "Tu candidatura para %s en %s pasó a la siguiente etapa.",
			icon:    "⏳",
		}, true
	case models.StatusFinalist:
		return notificationTemplate{
			title:   "¡Eres finalista!",
			message: "Estás entre los finalistas para %s en %s.",
			icon:    "🏆",
		}, true
	case models.StatusProcessFinished:
		return notificationTemplate{
			title:   "Proceso finalizado",
			message: "El proceso de selección para %s en %s ha finalizado.",
			icon:    "🏁",
		}, true
	default:
		return notificationTemplate{}, false
	}
}
