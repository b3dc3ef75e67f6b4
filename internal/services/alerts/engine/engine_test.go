package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"kukuyard-system/internal/database/models"
)

type fakeRuleSource struct {
	deviceRules map[uuid.UUID][]models.AlertRule
	itemRules   map[uuid.UUID][]models.AlertRule
	err         error
}

func (f *fakeRuleSource) ActiveRulesForDevice(_ context.Context, deviceID uuid.UUID) ([]models.AlertRule, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.deviceRules[deviceID], nil
}

func (f *fakeRuleSource) ActiveRulesForItem(_ context.Context, itemID uuid.UUID) ([]models.AlertRule, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.itemRules[itemID], nil
}

type fakeAlertStore struct {
	created   []models.Alert
	createErr error
	lookupErr error
}

func (f *fakeAlertStore) HasRecentTriggered(_ context.Context, ruleID uuid.UUID, since time.Time) (bool, error) {
	if f.lookupErr != nil {
		return false, f.lookupErr
	}
	for _, a := range f.created {
		if a.RuleID == ruleID && a.Status == models.AlertStatusTriggered && a.CreatedAt.After(since) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeAlertStore) Create(_ context.Context, alert *models.Alert) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, *alert)
	return nil
}

func newTestEngine(rules *fakeRuleSource, alerts *fakeAlertStore, now time.Time) *Engine {
	e := New(rules, alerts, zap.NewNop())
	e.now = func() time.Time { return now }
	return e
}

func floatPtr(f float64) *float64 { return &f }

func deviceRule(deviceID uuid.UUID, conditionType string, value float64, cooldown int) models.AlertRule {
	return models.AlertRule{
		ID:              uuid.New(),
		Name:            "Test Rule",
		ConditionType:   conditionType,
		ConditionValue:  value,
		Severity:        models.SeverityHigh,
		IsActive:        true,
		DeviceID:        &deviceID,
		CooldownMinutes: cooldown,
	}
}

func TestEvaluateConditionMatrix(t *testing.T) {
	reading := &models.SensorReading{
		Temperature: floatPtr(35.0),
		Humidity:    floatPtr(40.0),
		FeedLevel:   floatPtr(10.0),
		WaterLevel:  floatPtr(80.0),
	}

	tests := []struct {
		name          string
		conditionType string
		threshold     float64
		wantFire      bool
		wantValue     float64
	}{
		{"temperature_gt fires above", models.ConditionTemperatureGT, 30, true, 35},
		{"temperature_gt quiet below", models.ConditionTemperatureGT, 40, false, 0},
		{"temperature_lt fires below", models.ConditionTemperatureLT, 40, true, 35},
		{"temperature_lt quiet above", models.ConditionTemperatureLT, 30, false, 0},
		{"humidity_gt fires above", models.ConditionHumidityGT, 30, true, 40},
		{"humidity_lt fires below", models.ConditionHumidityLT, 50, true, 40},
		{"feed_level_lt fires below", models.ConditionFeedLevelLT, 20, true, 10},
		{"water_level_lt quiet above", models.ConditionWaterLevelLT, 50, false, 0},
		{"threshold equality does not fire", models.ConditionTemperatureGT, 35, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deviceID := uuid.New()
			r := *reading
			r.DeviceID = deviceID
			rule := deviceRule(deviceID, tt.conditionType, tt.threshold, 60)

			rules := &fakeRuleSource{deviceRules: map[uuid.UUID][]models.AlertRule{deviceID: {rule}}}
			alerts := &fakeAlertStore{}
			e := newTestEngine(rules, alerts, time.Now())

			created, err := e.Evaluate(context.Background(), &r)
			require.NoError(t, err)

			if !tt.wantFire {
				assert.Empty(t, created)
				return
			}
			require.Len(t, created, 1)
			assert.Equal(t, rule.ID, created[0].RuleID)
			assert.Equal(t, models.AlertStatusTriggered, created[0].Status)
			assert.Equal(t, rule.Severity, created[0].Severity)
			assert.Equal(t, tt.wantValue, created[0].TriggeredValue)
		})
	}
}

func TestEvaluateMissingChannelNeverFires(t *testing.T) {
	deviceID := uuid.New()
	rule := deviceRule(deviceID, models.ConditionTemperatureGT, 30, 60)
	rules := &fakeRuleSource{deviceRules: map[uuid.UUID][]models.AlertRule{deviceID: {rule}}}
	alerts := &fakeAlertStore{}
	e := newTestEngine(rules, alerts, time.Now())

	reading := &models.SensorReading{DeviceID: deviceID, Humidity: floatPtr(90)}
	created, err := e.Evaluate(context.Background(), reading)

	require.NoError(t, err)
	assert.Empty(t, created)
	assert.Empty(t, alerts.created)
}

func TestEvaluateCooldownSuppression(t *testing.T) {
	deviceID := uuid.New()
	rule := deviceRule(deviceID, models.ConditionTemperatureGT, 30, 60)
	rules := &fakeRuleSource{deviceRules: map[uuid.UUID][]models.AlertRule{deviceID: {rule}}}
	alerts := &fakeAlertStore{}

	base := time.Now()
	e := newTestEngine(rules, alerts, base)

	reading := &models.SensorReading{DeviceID: deviceID, Temperature: floatPtr(35)}
	created, err := e.Evaluate(context.Background(), reading)
	require.NoError(t, err)
	require.Len(t, created, 1)
	alerts.created[0].CreatedAt = base

	// Second qualifying reading one minute later stays inside the window.
	e.now = func() time.Time { return base.Add(time.Minute) }
	created, err = e.Evaluate(context.Background(), reading)
	require.NoError(t, err)
	assert.Empty(t, created)
	assert.Len(t, alerts.created, 1)

	// Past the window a new alert is produced.
	e.now = func() time.Time { return base.Add(61 * time.Minute) }
	created, err = e.Evaluate(context.Background(), reading)
	require.NoError(t, err)
	assert.Len(t, created, 1)
	assert.Len(t, alerts.created, 2)
}

func TestEvaluateCooldownIgnoresResolvedAlerts(t *testing.T) {
	deviceID := uuid.New()
	rule := deviceRule(deviceID, models.ConditionTemperatureGT, 30, 60)
	rules := &fakeRuleSource{deviceRules: map[uuid.UUID][]models.AlertRule{deviceID: {rule}}}
	alerts := &fakeAlertStore{}

	base := time.Now()
	e := newTestEngine(rules, alerts, base)

	reading := &models.SensorReading{DeviceID: deviceID, Temperature: floatPtr(35)}
	_, err := e.Evaluate(context.Background(), reading)
	require.NoError(t, err)
	require.Len(t, alerts.created, 1)
	alerts.created[0].CreatedAt = base
	alerts.created[0].Status = models.AlertStatusResolved

	// A resolved alert does not hold the window; re-triggering creates a
	// new alert rather than reopening the old one.
	e.now = func() time.Time { return base.Add(time.Minute) }
	created, err := e.Evaluate(context.Background(), reading)
	require.NoError(t, err)
	assert.Len(t, created, 1)
	assert.Len(t, alerts.created, 2)
	assert.Equal(t, models.AlertStatusResolved, alerts.created[0].Status)
}

func TestEvaluateMultipleRulesIndependent(t *testing.T) {
	deviceID := uuid.New()
	tempRule := deviceRule(deviceID, models.ConditionTemperatureGT, 30, 60)
	humidityRule := deviceRule(deviceID, models.ConditionHumidityLT, 50, 60)
	quietRule := deviceRule(deviceID, models.ConditionWaterLevelLT, 5, 60)

	rules := &fakeRuleSource{deviceRules: map[uuid.UUID][]models.AlertRule{
		deviceID: {tempRule, humidityRule, quietRule},
	}}
	alerts := &fakeAlertStore{}
	e := newTestEngine(rules, alerts, time.Now())

	reading := &models.SensorReading{
		DeviceID:    deviceID,
		Temperature: floatPtr(35),
		Humidity:    floatPtr(40),
		WaterLevel:  floatPtr(90),
	}
	created, err := e.Evaluate(context.Background(), reading)

	require.NoError(t, err)
	assert.Len(t, created, 2)
}

func TestEvaluateRuleFailureDoesNotAbortSiblings(t *testing.T) {
	deviceID := uuid.New()
	badRule := deviceRule(deviceID, models.ConditionTemperatureGT, 30, 60)
	goodRule := deviceRule(deviceID, models.ConditionHumidityGT, 30, 60)

	rules := &fakeRuleSource{deviceRules: map[uuid.UUID][]models.AlertRule{
		deviceID: {badRule, goodRule},
	}}
	alerts := &fakeAlertStore{}
	e := newTestEngine(rules, alerts, time.Now())

	// The first rule's creation fails; the second must still run.
	calls := 0
	e.alerts = alertStoreFunc{
		recent: alerts.HasRecentTriggered,
		create: func(ctx context.Context, alert *models.Alert) error {
			calls++
			if calls == 1 {
				return errors.New("storage unavailable")
			}
			return alerts.Create(ctx, alert)
		},
	}

	reading := &models.SensorReading{DeviceID: deviceID, Temperature: floatPtr(35), Humidity: floatPtr(45)}
	created, err := e.Evaluate(context.Background(), reading)

	require.NoError(t, err)
	assert.Len(t, created, 1)
	assert.Equal(t, goodRule.ID, created[0].RuleID)
}

type alertStoreFunc struct {
	recent func(ctx context.Context, ruleID uuid.UUID, since time.Time) (bool, error)
	create func(ctx context.Context, alert *models.Alert) error
}

func (f alertStoreFunc) HasRecentTriggered(ctx context.Context, ruleID uuid.UUID, since time.Time) (bool, error) {
	return f.recent(ctx, ruleID, since)
}

func (f alertStoreFunc) Create(ctx context.Context, alert *models.Alert) error {
	return f.create(ctx, alert)
}

func TestEvaluateRuleLookupFailurePropagates(t *testing.T) {
	rules := &fakeRuleSource{err: errors.New("db down")}
	e := newTestEngine(rules, &fakeAlertStore{}, time.Now())

	reading := &models.SensorReading{DeviceID: uuid.New(), Temperature: floatPtr(35)}
	_, err := e.Evaluate(context.Background(), reading)

	assert.Error(t, err)
}

func TestTestFireSubjectToCooldown(t *testing.T) {
	deviceID := uuid.New()
	rule := deviceRule(deviceID, models.ConditionTemperatureGT, 30, 60)
	alerts := &fakeAlertStore{}

	base := time.Now()
	e := newTestEngine(&fakeRuleSource{}, alerts, base)

	alert, err := e.TestFire(context.Background(), rule)
	require.NoError(t, err)
	require.NotNil(t, alert)
	assert.Equal(t, rule.ConditionValue, alert.TriggeredValue)
	assert.Contains(t, alert.Title, "Test Alert")
	alerts.created[0].CreatedAt = base

	e.now = func() time.Time { return base.Add(time.Minute) }
	alert, err = e.TestFire(context.Background(), rule)
	require.NoError(t, err)
	assert.Nil(t, alert)
	assert.Len(t, alerts.created, 1)
}

func TestEvaluateInventory(t *testing.T) {
	itemID := uuid.New()
	now := time.Now()

	lowRule := models.AlertRule{
		ID:              uuid.New(),
		Name:            "Feed running out",
		ConditionType:   models.ConditionInventoryLow,
		ConditionValue:  20,
		Severity:        models.SeverityMedium,
		IsActive:        true,
		InventoryItemID: &itemID,
		CooldownMinutes: 60,
	}
	expiry := now.Add(-48 * time.Hour)
	expiredRule := models.AlertRule{
		ID:              uuid.New(),
		Name:            "Vaccine expired",
		ConditionType:   models.ConditionInventoryExp,
		Severity:        models.SeverityCritical,
		IsActive:        true,
		InventoryItemID: &itemID,
		CooldownMinutes: 60,
	}

	rules := &fakeRuleSource{itemRules: map[uuid.UUID][]models.AlertRule{
		itemID: {lowRule, expiredRule},
	}}
	alerts := &fakeAlertStore{}
	e := newTestEngine(rules, alerts, now)

	item := &models.InventoryItem{
		ID:              itemID,
		Name:            "Starter Feed",
		Unit:            "kg",
		CurrentQuantity: decimal.NewFromInt(15),
		ExpiryDate:      &expiry,
	}
	created, err := e.EvaluateInventory(context.Background(), item)

	require.NoError(t, err)
	require.Len(t, created, 2)
	assert.Equal(t, 15.0, created[0].TriggeredValue)
	assert.Equal(t, models.SeverityCritical, created[1].Severity)
	assert.InDelta(t, 2.0, created[1].TriggeredValue, 0.01)

	// Quantity above threshold and no expiry: nothing fires.
	future := now.Add(24 * time.Hour)
	quiet := &models.InventoryItem{
		ID:              itemID,
		Name:            "Starter Feed",
		CurrentQuantity: decimal.NewFromInt(100),
		ExpiryDate:      &future,
	}
	alerts.created = nil
	created, err = e.EvaluateInventory(context.Background(), quiet)
	require.NoError(t, err)
	assert.Empty(t, created)
}

func TestEvaluateInventoryPanicDoesNotAbortSiblings(t *testing.T) {
	itemID := uuid.New()
	itemRule := func() models.AlertRule {
		return models.AlertRule{
			ID:              uuid.New(),
			Name:            "Feed running out",
			ConditionType:   models.ConditionInventoryLow,
			ConditionValue:  20,
			Severity:        models.SeverityMedium,
			IsActive:        true,
			InventoryItemID: &itemID,
			CooldownMinutes: 60,
		}
	}
	badRule := itemRule()
	goodRule := itemRule()

	rules := &fakeRuleSource{itemRules: map[uuid.UUID][]models.AlertRule{
		itemID: {badRule, goodRule},
	}}
	alerts := &fakeAlertStore{}
	e := newTestEngine(rules, alerts, time.Now())

	// The first rule's cooldown lookup panics; the second must still run.
	calls := 0
	e.alerts = alertStoreFunc{
		recent: func(ctx context.Context, ruleID uuid.UUID, since time.Time) (bool, error) {
			calls++
			if calls == 1 {
				panic("cooldown index corrupted")
			}
			return alerts.HasRecentTriggered(ctx, ruleID, since)
		},
		create: alerts.Create,
	}

	item := &models.InventoryItem{
		ID:              itemID,
		Name:            "Starter Feed",
		Unit:            "kg",
		CurrentQuantity: decimal.NewFromInt(15),
	}
	created, err := e.EvaluateInventory(context.Background(), item)

	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, goodRule.ID, created[0].RuleID)
}
