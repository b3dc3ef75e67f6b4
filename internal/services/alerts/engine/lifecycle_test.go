package engine

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kukuyard-system/internal/apperr"
	"kukuyard-system/internal/database/models"
)

func TestAcknowledge(t *testing.T) {
	actor := uuid.New()
	now := time.Now()

	alert := &models.Alert{Status: models.AlertStatusTriggered}
	err := Acknowledge(alert, actor, "checking the coop", now)

	require.NoError(t, err)
	assert.Equal(t, models.AlertStatusAcknowledged, alert.Status)
	require.NotNil(t, alert.AcknowledgedByID)
	assert.Equal(t, actor, *alert.AcknowledgedByID)
	require.NotNil(t, alert.AcknowledgedAt)
	assert.Equal(t, now, *alert.AcknowledgedAt)
	require.NotNil(t, alert.AcknowledgementNotes)
	assert.Equal(t, "checking the coop", *alert.AcknowledgementNotes)
}

func TestAcknowledgeRejectsNonTriggered(t *testing.T) {
	actor := uuid.New()
	now := time.Now()

	for _, status := range []string{
		models.AlertStatusAcknowledged,
		models.AlertStatusResolved,
		models.AlertStatusSuppressed,
	} {
		alert := &models.Alert{Status: status}
		err := Acknowledge(alert, actor, "", now)

		assert.True(t, apperr.IsValidation(err), "status %s: expected validation error, got %v", status, err)
		assert.Equal(t, status, alert.Status)
		assert.Nil(t, alert.AcknowledgedByID)
	}
}

func TestAcknowledgeRequiresActor(t *testing.T) {
	alert := &models.Alert{Status: models.AlertStatusTriggered}
	err := Acknowledge(alert, uuid.Nil, "", time.Now())

	assert.True(t, apperr.IsValidation(err))
	assert.Equal(t, models.AlertStatusTriggered, alert.Status)
}

func TestResolveFromTriggered(t *testing.T) {
	actor := uuid.New()
	now := time.Now()

	alert := &models.Alert{Status: models.AlertStatusTriggered}
	err := Resolve(alert, actor, "sensor recalibrated", now)

	require.NoError(t, err)
	assert.Equal(t, models.AlertStatusResolved, alert.Status)
	require.NotNil(t, alert.ResolvedByID)
	assert.Equal(t, actor, *alert.ResolvedByID)
	require.NotNil(t, alert.ResolutionNotes)
	assert.Equal(t, "sensor recalibrated", *alert.ResolutionNotes)
}

func TestResolveFromAcknowledged(t *testing.T) {
	actor := uuid.New()
	now := time.Now()

	alert := &models.Alert{Status: models.AlertStatusTriggered}
	require.NoError(t, Acknowledge(alert, actor, "", now))
	require.NoError(t, Resolve(alert, actor, "", now.Add(time.Minute)))

	assert.Equal(t, models.AlertStatusResolved, alert.Status)
	assert.Nil(t, alert.ResolutionNotes)
}

func TestResolvedAlertNeverReopens(t *testing.T) {
	actor := uuid.New()
	now := time.Now()

	alert := &models.Alert{Status: models.AlertStatusTriggered}
	require.NoError(t, Resolve(alert, actor, "", now))

	err := Acknowledge(alert, actor, "", now.Add(time.Minute))
	assert.True(t, apperr.IsValidation(err))
	assert.Equal(t, models.AlertStatusResolved, alert.Status)

	err = Resolve(alert, actor, "", now.Add(time.Minute))
	assert.True(t, apperr.IsValidation(err))
	assert.Equal(t, models.AlertStatusResolved, alert.Status)
}

func TestResolveRequiresActor(t *testing.T) {
	alert := &models.Alert{Status: models.AlertStatusAcknowledged}
	err := Resolve(alert, uuid.Nil, "", time.Now())

	assert.True(t, apperr.IsValidation(err))
	assert.Equal(t, models.AlertStatusAcknowledged, alert.Status)
}
