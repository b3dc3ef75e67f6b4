// Package engine evaluates sensor readings and inventory state against
// alert rules and materializes at most one Alert per rule and cooldown
// window.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"kukuyard-system/internal/database/models"
)

// RuleSource serves the active rules in scope for an evaluation.
type RuleSource interface {
	ActiveRulesForDevice(ctx context.Context, deviceID uuid.UUID) ([]models.AlertRule, error)
	ActiveRulesForItem(ctx context.Context, itemID uuid.UUID) ([]models.AlertRule, error)
}

// AlertStore persists fired alerts and answers the cooldown lookup.
type AlertStore interface {
	HasRecentTriggered(ctx context.Context, ruleID uuid.UUID, since time.Time) (bool, error)
	Create(ctx context.Context, alert *models.Alert) error
}

type Engine struct {
	rules  RuleSource
	alerts AlertStore
	logger *zap.Logger
	now    func() time.Time
}

func New(rules RuleSource, alerts AlertStore, logger *zap.Logger) *Engine {
	return &Engine{
		rules:  rules,
		alerts: alerts,
		logger: logger,
		now:    time.Now,
	}
}

// Evaluate runs every active rule scoped to the reading's device. Rules are
// independent: a failure in one is logged and does not abort the others.
// The returned slice holds the alerts actually created; suppressed firings
// produce nothing. Only the initial rule lookup can fail the call.
func (e *Engine) Evaluate(ctx context.Context, reading *models.SensorReading) ([]models.Alert, error) {
	if reading == nil || reading.DeviceID == uuid.Nil {
		return nil, nil
	}

	rules, err := e.rules.ActiveRulesForDevice(ctx, reading.DeviceID)
	if err != nil {
		return nil, err
	}

	var created []models.Alert
	for _, rule := range rules {
		alert, err := e.evaluateRule(ctx, rule, reading)
		if err != nil {
			e.logger.Error("alert rule evaluation failed",
				zap.String("rule_id", rule.ID.String()),
				zap.String("device_id", reading.DeviceID.String()),
				zap.Error(err),
			)
			continue
		}
		if alert != nil {
			created = append(created, *alert)
		}
	}
	return created, nil
}

func (e *Engine) evaluateRule(ctx context.Context, rule models.AlertRule, reading *models.SensorReading) (alert *models.Alert, err error) {
	defer func() {
		if r := recover(); r != nil {
			alert, err = nil, fmt.Errorf("panic evaluating rule: %v", r)
		}
	}()

	value, fired := conditionMet(rule, reading)
	if !fired {
		return nil, nil
	}
	return e.fire(ctx, rule, value,
		fmt.Sprintf("%s %g", conditionLabel(rule.ConditionType), rule.ConditionValue),
		fmt.Sprintf("%s: %s %g (reading: %g)", rule.Name, conditionLabel(rule.ConditionType), rule.ConditionValue, value))
}

// EvaluateInventory runs the inventory-scoped rules for an item after its
// quantity or expiry state changed.
func (e *Engine) EvaluateInventory(ctx context.Context, item *models.InventoryItem) ([]models.Alert, error) {
	if item == nil {
		return nil, nil
	}

	rules, err := e.rules.ActiveRulesForItem(ctx, item.ID)
	if err != nil {
		return nil, err
	}

	var created []models.Alert
	for _, rule := range rules {
		alert, err := e.evaluateInventoryRule(ctx, rule, item)
		if err != nil {
			e.logger.Error("inventory rule evaluation failed",
				zap.String("rule_id", rule.ID.String()),
				zap.String("item_id", item.ID.String()),
				zap.Error(err),
			)
			continue
		}
		if alert != nil {
			created = append(created, *alert)
		}
	}
	return created, nil
}

func (e *Engine) evaluateInventoryRule(ctx context.Context, rule models.AlertRule, item *models.InventoryItem) (alert *models.Alert, err error) {
	defer func() {
		if r := recover(); r != nil {
			alert, err = nil, fmt.Errorf("panic evaluating rule: %v", r)
		}
	}()

	var (
		value float64
		fired bool
	)
	switch rule.ConditionType {
	case models.ConditionInventoryLow:
		qty, _ := item.CurrentQuantity.Float64()
		value = qty
		fired = qty <= rule.ConditionValue
	case models.ConditionInventoryExp:
		if item.ExpiryDate != nil && item.ExpiryDate.Before(e.now()) {
			value = e.now().Sub(*item.ExpiryDate).Hours() / 24
			fired = true
		}
	}
	if !fired {
		return nil, nil
	}

	return e.fire(ctx, rule, value,
		fmt.Sprintf("%s: %s", conditionLabel(rule.ConditionType), item.Name),
		fmt.Sprintf("%s: %s %s (%s %s remaining)", rule.Name, conditionLabel(rule.ConditionType), item.Name, item.CurrentQuantity, item.Unit))
}

// TestFire forces a synthetic trigger for a rule, bypassing condition
// evaluation but not cooldown suppression.
func (e *Engine) TestFire(ctx context.Context, rule models.AlertRule) (*models.Alert, error) {
	return e.fire(ctx, rule, rule.ConditionValue,
		fmt.Sprintf("Test Alert: %s", rule.Name),
		fmt.Sprintf("This is a test alert for the rule: %s", rule.Name))
}

// fire creates one Alert for the rule unless an alert for the same rule is
// still triggered inside the cooldown window. A nil alert with a nil error
// means the firing was suppressed.
func (e *Engine) fire(ctx context.Context, rule models.AlertRule, value float64, title, message string) (*models.Alert, error) {
	since := e.now().Add(-time.Duration(rule.CooldownMinutes) * time.Minute)
	recent, err := e.alerts.HasRecentTriggered(ctx, rule.ID, since)
	if err != nil {
		return nil, err
	}
	if recent {
		return nil, nil
	}

	alert := &models.Alert{
		RuleID:         rule.ID,
		Status:         models.AlertStatusTriggered,
		Title:          title,
		Message:        message,
		Severity:       rule.Severity,
		TriggeredValue: value,
	}
	if err := e.alerts.Create(ctx, alert); err != nil {
		return nil, err
	}
	return alert, nil
}

// conditionMet checks one rule against one reading. A reading that does not
// carry the channel the rule inspects never fires: absence is no evaluation,
// not failure.
func conditionMet(rule models.AlertRule, reading *models.SensorReading) (float64, bool) {
	switch rule.ConditionType {
	case models.ConditionTemperatureGT:
		if reading.Temperature != nil {
			return *reading.Temperature, *reading.Temperature > rule.ConditionValue
		}
	case models.ConditionTemperatureLT:
		if reading.Temperature != nil {
			return *reading.Temperature, *reading.Temperature < rule.ConditionValue
		}
	case models.ConditionHumidityGT:
		if reading.Humidity != nil {
			return *reading.Humidity, *reading.Humidity > rule.ConditionValue
		}
	case models.ConditionHumidityLT:
		if reading.Humidity != nil {
			return *reading.Humidity, *reading.Humidity < rule.ConditionValue
		}
	case models.ConditionFeedLevelLT:
		if reading.FeedLevel != nil {
			return *reading.FeedLevel, *reading.FeedLevel < rule.ConditionValue
		}
	case models.ConditionWaterLevelLT:
		if reading.WaterLevel != nil {
			return *reading.WaterLevel, *reading.WaterLevel < rule.ConditionValue
		}
	}
	return 0, false
}

func conditionLabel(conditionType string) string {
	switch conditionType {
	case models.ConditionTemperatureGT:
		return "Temperature >"
	case models.ConditionTemperatureLT:
		return "Temperature <"
	case models.ConditionHumidityGT:
		return "Humidity >"
	case models.ConditionHumidityLT:
		return "Humidity <"
	case models.ConditionFeedLevelLT:
		return "Feed Level <"
	case models.ConditionWaterLevelLT:
		return "Water Level <"
	case models.ConditionInventoryLow:
		return "Inventory Low"
	case models.ConditionInventoryExp:
		return "Inventory Expired"
	}
	return conditionType
}
