package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	userhandler "kukuyard-system/internal/services/user/handler"
)

type UserHTTPHandler struct {
	users *userhandler.UserHandler
}

func NewUserHTTPHandler(users *userhandler.UserHandler) *UserHTTPHandler {
	return &UserHTTPHandler{
		users: users,
	}
}

// --- Authentication ---

func (h *UserHTTPHandler) Register(c *gin.Context) {
	var req userhandler.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	user, err := h.users.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	user.Password = ""
	c.JSON(http.StatusCreated, successResponse("User registered successfully", user))
}

func (h *UserHTTPHandler) Login(c *gin.Context) {
	var req userhandler.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	result, err := h.users.Login(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	result.User.Password = ""
	c.JSON(http.StatusOK, successResponse("Login successful", map[string]interface{}{
		"token":      result.Token,
		"expires_at": result.ExpiresAt,
		"user":       result.User,
	}))
}

func (h *UserHTTPHandler) ChangePassword(c *gin.Context) {
	var req userhandler.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	if err := h.users.ChangePassword(c.Request.Context(), actorFrom(c), req); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Password changed successfully", nil))
}

// --- Profiles ---

func (h *UserHTTPHandler) Me(c *gin.Context) {
	user, err := h.users.Me(c.Request.Context(), actorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}

	user.Password = ""
	c.JSON(http.StatusOK, successResponse("User retrieved successfully", user))
}

func (h *UserHTTPHandler) GetUser(c *gin.Context) {
	userID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	user, err := h.users.GetUser(c.Request.Context(), actorFrom(c), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	user.Password = ""
	c.JSON(http.StatusOK, successResponse("User retrieved successfully", user))
}

func (h *UserHTTPHandler) UpdateUser(c *gin.Context) {
	userID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var req userhandler.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	user, err := h.users.UpdateUser(c.Request.Context(), actorFrom(c), userID, req)
	if err != nil {
		respondError(c, err)
		return
	}

	user.Password = ""
	c.JSON(http.StatusOK, successResponse("User updated successfully", user))
}

type ListUsersQuery struct {
	Page     int    `form:"page,default=1"`
	PageSize int    `form:"page_size,default=20"`
	Role     string `form:"role"`
	IsActive *bool  `form:"is_active"`
	Search   string `form:"search"`
}

func (h *UserHTTPHandler) ListUsers(c *gin.Context) {
	var query ListUsersQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid query parameters"))
		return
	}

	users, total, err := h.users.ListUsers(c.Request.Context(), actorFrom(c), userhandler.ListUsersFilter{
		Role:       query.Role,
		IsActive:   query.IsActive,
		SearchTerm: query.Search,
		Page:       query.Page,
		PageSize:   query.PageSize,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	for i := range users {
		users[i].Password = ""
	}

	c.JSON(http.StatusOK, successWithMetaResponse("Users retrieved successfully", users, paginationMeta{
		Page:       query.Page,
		PageSize:   query.PageSize,
		TotalCount: total,
	}))
}
