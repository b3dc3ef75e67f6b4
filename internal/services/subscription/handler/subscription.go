package handler

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"kukuyard-system/internal/access"
	"kukuyard-system/internal/apperr"
	"kukuyard-system/internal/database/models"
)

const (
	PLANS_CACHE_KEY  = "subscriptions:plans"
	CACHE_TTL_MEDIUM = 30 * time.Minute
)

type SubscriptionHandler struct {
	db    *gorm.DB
	redis *redis.Client
}

func NewSubscriptionHandler(db *gorm.DB, redisClient *redis.Client) *SubscriptionHandler {
	return &SubscriptionHandler{
		db:    db,
		redis: redisClient,
	}
}

// -- Plans --

func (s *SubscriptionHandler) ListPlans(ctx context.Context) ([]models.SubscriptionPlan, error) {
	if cached, err := s.redis.Get(ctx, PLANS_CACHE_KEY).Result(); err == nil {
		var plans []models.SubscriptionPlan
		if json.Unmarshal([]byte(cached), &plans) == nil {
			return plans, nil
		}
	}

	var plans []models.SubscriptionPlan
	err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("price").
		Find(&plans).Error
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(plans); err == nil {
		_ = s.redis.Set(ctx, PLANS_CACHE_KEY, data, CACHE_TTL_MEDIUM)
	}

	return plans, nil
}

type CreatePlanRequest struct {
	Name         string          `json:"name" binding:"required"`
	PlanType     string          `json:"plan_type" binding:"required"`
	Description  string          `json:"description"`
	Price        decimal.Decimal `json:"price"`
	DurationDays int             `json:"duration_days" binding:"required"`
	MaxFarms     int             `json:"max_farms"`
	MaxDevices   int             `json:"max_devices"`
	Features     []string        `json:"features"`
}

func (s *SubscriptionHandler) CreatePlan(ctx context.Context, actor access.Actor, req CreatePlanRequest) (*models.SubscriptionPlan, error) {
	if !actor.IsAdmin() {
		return nil, apperr.Forbidden("only admins may manage plans")
	}
	switch req.PlanType {
	case models.PlanTypeFree, models.PlanTypeBasic, models.PlanTypePremium, models.PlanTypeEnterprise:
	default:
		return nil, apperr.Validation("unknown plan type %q", req.PlanType)
	}
	if req.DurationDays <= 0 {
		return nil, apperr.Validation("duration must be greater than 0")
	}

	plan := models.SubscriptionPlan{
		Name:         req.Name,
		PlanType:     req.PlanType,
		Description:  req.Description,
		Price:        req.Price,
		DurationDays: req.DurationDays,
		MaxFarms:     req.MaxFarms,
		MaxDevices:   req.MaxDevices,
		Features:     models.StringArray(req.Features),
		IsActive:     true,
	}

	if err := s.db.WithContext(ctx).Create(&plan).Error; err != nil {
		return nil, err
	}

	_ = s.redis.Del(ctx, PLANS_CACHE_KEY)

	return &plan, nil
}

// -- Subscriptions --

// Subscribe opens a pending subscription to the plan. Free plans activate
// immediately; paid plans wait for a completed payment.
func (s *SubscriptionHandler) Subscribe(ctx context.Context, actor access.Actor, planID uuid.UUID) (*models.Subscription, error) {
	var plan models.SubscriptionPlan
	if err := s.db.WithContext(ctx).First(&plan, "id = ? AND is_active = ?", planID, true).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.NotFound("subscription plan")
		}
		return nil, err
	}

	var existing int64
	err := s.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("user_id = ? AND is_active = ? AND end_date > ?", actor.ID, true, time.Now()).
		Count(&existing).Error
	if err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, apperr.Validation("an active subscription already exists")
	}

	now := time.Now()
	subscription := models.Subscription{
		UserID:    actor.ID,
		PlanID:    plan.ID,
		StartDate: now,
		EndDate:   now.AddDate(0, 0, plan.DurationDays),
		Status:    models.SubscriptionStatusPending,
	}
	if plan.Price.IsZero() {
		subscription.Status = models.SubscriptionStatusActive
		subscription.IsActive = true
	}

	if err := s.db.WithContext(ctx).Create(&subscription).Error; err != nil {
		return nil, err
	}

	subscription.Plan = &plan
	return &subscription, nil
}

func (s *SubscriptionHandler) CurrentSubscription(ctx context.Context, actor access.Actor) (*models.Subscription, error) {
	var subscription models.Subscription
	err := s.db.WithContext(ctx).
		Preload("Plan").
		Where("user_id = ?", actor.ID).
		Order("created_at DESC").
		First(&subscription).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.NotFound("subscription")
		}
		return nil, err
	}
	return &subscription, nil
}

func (s *SubscriptionHandler) Cancel(ctx context.Context, actor access.Actor, subscriptionID uuid.UUID) (*models.Subscription, error) {
	subscription, err := s.fetchSubscription(ctx, actor, subscriptionID)
	if err != nil {
		return nil, err
	}

	if subscription.Status == models.SubscriptionStatusCancelled {
		return nil, apperr.Validation("subscription is already cancelled")
	}

	subscription.Status = models.SubscriptionStatusCancelled
	subscription.IsActive = false

	if err := s.db.WithContext(ctx).Save(subscription).Error; err != nil {
		return nil, err
	}

	return subscription, nil
}

// -- Payments --

type RecordPaymentRequest struct {
	SubscriptionID uuid.UUID       `json:"subscription_id" binding:"required"`
	Amount         decimal.Decimal `json:"amount" binding:"required"`
	PaymentMethod  string          `json:"payment_method" binding:"required"`
	TransactionID  *string         `json:"transaction_id"`
	Status         string          `json:"status"`
	ReceiptNumber  *string         `json:"receipt_number"`
	Notes          *string         `json:"notes"`
}

// RecordPayment logs a payment against a subscription. A completed payment
// activates the subscription.
func (s *SubscriptionHandler) RecordPayment(ctx context.Context, actor access.Actor, req RecordPaymentRequest) (*models.Payment, error) {
	subscription, err := s.fetchSubscription(ctx, actor, req.SubscriptionID)
	if err != nil {
		return nil, err
	}

	status := req.Status
	if status == "" {
		status = models.PaymentStatusPending
	}
	switch status {
	case models.PaymentStatusPending, models.PaymentStatusCompleted,
		models.PaymentStatusFailed, models.PaymentStatusRefunded:
	default:
		return nil, apperr.Validation("unknown payment status %q", status)
	}
	if req.Amount.Sign() <= 0 {
		return nil, apperr.Validation("amount must be greater than 0")
	}

	payment := models.Payment{
		SubscriptionID: subscription.ID,
		Amount:         req.Amount,
		PaymentMethod:  req.PaymentMethod,
		TransactionID:  req.TransactionID,
		Status:         status,
		ReceiptNumber:  req.ReceiptNumber,
		Notes:          req.Notes,
	}
	if status == models.PaymentStatusCompleted {
		now := time.Now()
		payment.PaymentDate = &now
	}

	if err := s.db.WithContext(ctx).Create(&payment).Error; err != nil {
		return nil, err
	}

	if status == models.PaymentStatusCompleted && subscription.Status == models.SubscriptionStatusPending {
		subscription.Status = models.SubscriptionStatusActive
		subscription.IsActive = true
		if err := s.db.WithContext(ctx).Save(subscription).Error; err != nil {
			return nil, err
		}
	}

	return &payment, nil
}

func (s *SubscriptionHandler) ListPayments(ctx context.Context, actor access.Actor, subscriptionID uuid.UUID) ([]models.Payment, error) {
	if _, err := s.fetchSubscription(ctx, actor, subscriptionID); err != nil {
		return nil, err
	}

	var payments []models.Payment
	err := s.db.WithContext(ctx).
		Where("subscription_id = ?", subscriptionID).
		Order("created_at DESC").
		Find(&payments).Error
	if err != nil {
		return nil, err
	}

	return payments, nil
}

func (s *SubscriptionHandler) fetchSubscription(ctx context.Context, actor access.Actor, subscriptionID uuid.UUID) (*models.Subscription, error) {
	var subscription models.Subscription
	err := s.db.WithContext(ctx).
		Preload("Plan").
		First(&subscription, "id = ?", subscriptionID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.NotFound("subscription")
		}
		return nil, err
	}
	if !actor.IsAdmin() && subscription.UserID != actor.ID {
		return nil, apperr.Forbidden("no access to this subscription")
	}
	return &subscription, nil
}
