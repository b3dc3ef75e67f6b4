package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"kukuyard-system/internal/access"
	"kukuyard-system/internal/apperr"
	"kukuyard-system/internal/database/models"
	"kukuyard-system/internal/utils"
)

const (
	USER_CACHE_PREFIX = "user:"
	CACHE_TTL_SHORT   = 5 * time.Minute
)

type UserHandler struct {
	db       *gorm.DB
	redis    *redis.Client
	tokenTTL time.Duration
}

func NewUserHandler(db *gorm.DB, redisClient *redis.Client, tokenTTL time.Duration) *UserHandler {
	return &UserHandler{
		db:       db,
		redis:    redisClient,
		tokenTTL: tokenTTL,
	}
}

func (s *UserHandler) invalidateUserCache(ctx context.Context, userID uuid.UUID) {
	cacheKey := fmt.Sprintf("%s%s", USER_CACHE_PREFIX, userID)
	_ = s.redis.Del(ctx, cacheKey)
}

// -- Auth --

type RegisterRequest struct {
	Email       string  `json:"email" binding:"required,email"`
	Password    string  `json:"password" binding:"required,min=8"`
	FirstName   string  `json:"first_name" binding:"required"`
	LastName    string  `json:"last_name" binding:"required"`
	PhoneNumber *string `json:"phone_number"`
	Role        string  `json:"role"`
}

func (s *UserHandler) Register(ctx context.Context, req RegisterRequest) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, apperr.Validation("email already registered")
	}

	role := req.Role
	if role == "" {
		role = models.RoleFarmer
	}
	if role != models.RoleFarmer && role != models.RoleWorker {
		return nil, apperr.Validation("role must be farmer or worker")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := models.User{
		Email:       email,
		Password:    string(hashed),
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		PhoneNumber: req.PhoneNumber,
		Role:        role,
		IsActive:    true,
	}

	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, err
	}

	return &user, nil
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type LoginResult struct {
	User      *models.User
	Token     string
	ExpiresAt time.Time
}

func (s *UserHandler) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.Validation("invalid email or password")
		}
		return nil, err
	}

	if !user.IsActive {
		return nil, apperr.Forbidden("account is deactivated")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, apperr.Validation("invalid email or password")
	}

	token, exp, err := utils.GenerateToken(user.ID, user.Email, user.Role, s.tokenTTL)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user.LastLogin = &now
	if err := s.db.WithContext(ctx).Model(&user).Update("last_login", now).Error; err != nil {
		return nil, err
	}

	return &LoginResult{User: &user, Token: token, ExpiresAt: exp}, nil
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8"`
}

func (s *UserHandler) ChangePassword(ctx context.Context, actor access.Actor, req ChangePasswordRequest) error {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", actor.ID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return apperr.NotFound("user")
		}
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.CurrentPassword)); err != nil {
		return apperr.Validation("current password is incorrect")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Model(&user).Update("password", string(hashed)).Error; err != nil {
		return err
	}

	s.invalidateUserCache(ctx, user.ID)
	return nil
}

// -- Profiles --

func (s *UserHandler) Me(ctx context.Context, actor access.Actor) (*models.User, error) {
	return s.fetchUser(ctx, actor.ID)
}

func (s *UserHandler) GetUser(ctx context.Context, actor access.Actor, userID uuid.UUID) (*models.User, error) {
	if !actor.IsAdmin() && actor.ID != userID {
		return nil, apperr.Forbidden("cannot view another user's profile")
	}
	return s.fetchUser(ctx, userID)
}

type UpdateUserRequest struct {
	FirstName      *string `json:"first_name"`
	LastName       *string `json:"last_name"`
	PhoneNumber    *string `json:"phone_number"`
	Address        *string `json:"address"`
	ProfilePicture *string `json:"profile_picture"`
	IsActive       *bool   `json:"is_active"`
	Role           *string `json:"role"`
}

func (s *UserHandler) UpdateUser(ctx context.Context, actor access.Actor, userID uuid.UUID, req UpdateUserRequest) (*models.User, error) {
	if !actor.IsAdmin() && actor.ID != userID {
		return nil, apperr.Forbidden("cannot update another user's profile")
	}

	user, err := s.fetchUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.FirstName != nil {
		user.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		user.LastName = *req.LastName
	}
	if req.PhoneNumber != nil {
		user.PhoneNumber = req.PhoneNumber
	}
	if req.Address != nil {
		user.Address = req.Address
	}
	if req.ProfilePicture != nil {
		user.ProfilePicture = req.ProfilePicture
	}

	// Activation and role changes stay with admins.
	if req.IsActive != nil {
		if !actor.IsAdmin() {
			return nil, apperr.Forbidden("only admins may change account status")
		}
		user.IsActive = *req.IsActive
	}
	if req.Role != nil {
		if !actor.IsAdmin() {
			return nil, apperr.Forbidden("only admins may change roles")
		}
		switch *req.Role {
		case models.RoleAdmin, models.RoleFarmer, models.RoleWorker:
		default:
			return nil, apperr.Validation("unknown role %q", *req.Role)
		}
		user.Role = *req.Role
	}

	if err := s.db.WithContext(ctx).Save(user).Error; err != nil {
		return nil, err
	}

	s.invalidateUserCache(ctx, user.ID)
	return user, nil
}

type ListUsersFilter struct {
	Role       string
	IsActive   *bool
	SearchTerm string
	Page       int
	PageSize   int
}

func (s *UserHandler) ListUsers(ctx context.Context, actor access.Actor, filter ListUsersFilter) ([]models.User, int64, error) {
	if !actor.IsAdmin() {
		return nil, 0, apperr.Forbidden("only admins may list users")
	}

	query := s.db.WithContext(ctx).Model(&models.User{})
	if filter.Role != "" {
		query = query.Where("role = ?", filter.Role)
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}
	if filter.SearchTerm != "" {
		searchTerm := "%" + filter.SearchTerm + "%"
		query = query.Where("email ILIKE ? OR first_name ILIKE ? OR last_name ILIKE ?",
			searchTerm, searchTerm, searchTerm)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, pageSize := normalizePage(filter.Page, filter.PageSize)
	var users []models.User
	if err := query.Order("created_at DESC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&users).Error; err != nil {
		return nil, 0, err
	}

	return users, total, nil
}

func (s *UserHandler) fetchUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.NotFound("user")
		}
		return nil, err
	}
	return &user, nil
}

func normalizePage(page, pageSize int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize
}
