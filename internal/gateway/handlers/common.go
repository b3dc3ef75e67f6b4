package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"kukuyard-system/internal/access"
	"kukuyard-system/internal/apperr"
)

type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Meta    interface{} `json:"meta,omitempty"`
}

func successResponse(message string, data interface{}) APIResponse {
	return APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	}
}

func errorResponse(message string) APIResponse {
	return APIResponse{
		Success: false,
		Message: message,
	}
}

func successWithMetaResponse(message string, data interface{}, meta interface{}) APIResponse {
	return APIResponse{
		Success: true,
		Message: message,
		Data:    data,
		Meta:    meta,
	}
}

type paginationMeta struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalCount int64 `json:"total_count"`
}

// actorFrom reads the identity the auth middleware stored on the request.
func actorFrom(c *gin.Context) access.Actor {
	actor := access.Actor{}
	if v, ok := c.Get("user_id"); ok {
		if id, ok := v.(uuid.UUID); ok {
			actor.ID = id
		}
	}
	if v, ok := c.Get("role"); ok {
		if role, ok := v.(string); ok {
			actor.Role = role
		}
	}
	return actor
}

func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid "+name))
		return uuid.Nil, false
	}
	return id, true
}

// respondError maps the service error taxonomy onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperr.ErrInsufficientQuantity):
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
	case apperr.IsValidation(err):
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
	case apperr.IsNotFound(err):
		c.JSON(http.StatusNotFound, errorResponse(err.Error()))
	case apperr.IsForbidden(err):
		c.JSON(http.StatusForbidden, errorResponse(err.Error()))
	default:
		c.JSON(http.StatusInternalServerError, errorResponse("Internal server error"))
	}
}
