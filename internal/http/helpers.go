package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/librarian/internal/apperr"
	"github.com/mrlokans/librarian/internal/auth"
	"github.com/mrlokans/librarian/internal/catalog"
	"github.com/mrlokans/librarian/internal/entities"
)

// --- Response Types ---

// ListResponse is the envelope for collections.
type ListResponse struct {
	Success bool `json:"success"`
	Count   int  `json:"count"`
	Data    any  `json:"data"`
}

// DataResponse is the envelope for a single record.
type DataResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data"`
}

// ModifiedResponse reports how many records an update changed.
type ModifiedResponse struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	ModifiedCount int64  `json:"modifiedCount"`
}

// ErrorResponse is the standard error response format for all API errors.
type ErrorResponse struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Errors  []apperr.FieldError `json:"errors,omitempty"`
	// Error carries internal detail outside production.
	Error string `json:"error,omitempty"`
}

// --- Success Response Helpers ---

func respondList[T any](c *gin.Context, items []T) {
	if items == nil {
		items = []T{}
	}
	c.JSON(http.StatusOK, ListResponse{Success: true, Count: len(items), Data: items})
}

func respondData(c *gin.Context, data any) {
	c.JSON(http.StatusOK, DataResponse{Success: true, Data: data})
}

// respondCreated sends a 201 Created response with data.
func respondCreated(c *gin.Context, message string, data any) {
	c.JSON(http.StatusCreated, DataResponse{Success: true, Message: message, Data: data})
}

func respondModified(c *gin.Context, message string, modified int64) {
	c.JSON(http.StatusOK, ModifiedResponse{Success: true, Message: message, ModifiedCount: modified})
}

func respondDeleted(c *gin.Context, message string) {
	c.JSON(http.StatusOK, DataResponse{Success: true, Message: message, Data: gin.H{}})
}

// --- Error Response Helpers ---

// respondError hands err to ErrorHandler, which renders the envelope.
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// respondBadRequest sends a 400 Bad Request response.
func respondBadRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Message: message})
}

// --- Parameter Parsing ---

// parseIDParam extracts a record id from the URL. Malformed ids are rejected
// with 400 before any lookup.
func parseIDParam(c *gin.Context, paramName, entity string) (string, bool) {
	id := c.Param(paramName)
	if !entities.IsValidID(id) {
		respondBadRequest(c, "Invalid "+entity+" ID format")
		return "", false
	}
	return id, true
}

// requestContext carries the signed-in user into service calls for audit.
func requestContext(c *gin.Context) context.Context {
	return catalog.WithActor(c.Request.Context(), auth.GetUserID(c))
}
