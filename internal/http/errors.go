package http

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/librarian/internal/apperr"
)

// statusFor maps an error kind onto its HTTP status. Duplicates are client
// input errors (400); only inventory conflicts use 409.
func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation, apperr.KindDuplicate, apperr.KindInvalidState:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

// ErrorHandler is the single place errors become responses. Handlers record
// failures with c.Error and return; this middleware renders the last one.
// Internal detail is exposed only when showDetail is set.
func ErrorHandler(showDetail bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err

		if appErr, ok := apperr.As(err); ok {
			body := ErrorResponse{Message: appErr.Message, Errors: appErr.Fields}
			if appErr.Kind == apperr.KindDuplicate && len(body.Errors) == 0 && appErr.Field != "" {
				body.Errors = []apperr.FieldError{{Field: appErr.Field, Message: appErr.Message}}
			}
			c.JSON(statusFor(appErr.Kind), body)
			return
		}

		log.Printf("Internal error (%s %s): %v", c.Request.Method, c.FullPath(), err)
		body := ErrorResponse{Message: "Server Error"}
		if showDetail {
			body.Error = err.Error()
		}
		c.JSON(http.StatusInternalServerError, body)
	}
}

// Recovery turns a panic into the 500 envelope.
func Recovery(showDetail bool) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		log.Printf("Panic recovered (%s %s): %v", c.Request.Method, c.Request.URL.Path, recovered)
		body := ErrorResponse{Message: "Server Error"}
		if showDetail {
			body.Error = fmt.Sprint(recovered)
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, body)
	})
}

// NotFound answers unknown routes.
func NotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{
		"success": false,
		"message": "Route not found",
		"path":    c.Request.URL.Path,
	})
}
