package engine

import (
	"time"

	"github.com/google/uuid"

	"kukuyard-system/internal/apperr"
	"kukuyard-system/internal/database/models"
)

// Acknowledge moves a triggered alert to acknowledged, stamping the actor
// and time. Any other starting status is rejected without mutation.
func Acknowledge(alert *models.Alert, actor uuid.UUID, notes string, now time.Time) error {
	if actor == uuid.Nil {
		return apperr.Validation("acknowledging user is required")
	}
	if alert.Status != models.AlertStatusTriggered {
		return apperr.Validation("cannot acknowledge alert in status %q", alert.Status)
	}

	alert.Status = models.AlertStatusAcknowledged
	alert.AcknowledgedByID = &actor
	alert.AcknowledgedAt = &now
	if notes != "" {
		alert.AcknowledgementNotes = &notes
	}
	return nil
}

// Resolve closes an alert from triggered or acknowledged. Resolution is
// terminal: a resolved alert is never reopened, re-triggering creates a
// fresh one.
func Resolve(alert *models.Alert, actor uuid.UUID, notes string, now time.Time) error {
	if actor == uuid.Nil {
		return apperr.Validation("resolving user is required")
	}
	if alert.Status != models.AlertStatusTriggered && alert.Status != models.AlertStatusAcknowledged {
		return apperr.Validation("cannot resolve alert in status %q", alert.Status)
	}

	alert.Status = models.AlertStatusResolved
	alert.ResolvedByID = &actor
	alert.ResolvedAt = &now
	if notes != "" {
		alert.ResolutionNotes = &notes
	}
	return nil
}
