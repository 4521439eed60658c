package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"foodshare/pkg/errs"
	"foodshare/pkg/logger"
)

func (h *handler) writeError(c *gin.Context, err error) {
	var (
		ve  *errs.ValidationError
		ise *errs.InvalidStateError
	)
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"error": ve.Error(), "field": ve.Field})
	case errs.IsValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errs.IsForbidden(err):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errs.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &ise):
		c.JSON(http.StatusConflict, gin.H{
			"error":          ise.Error(),
			"current_status": ise.Current,
			"attempted":      ise.Attempted,
		})
	case errs.IsConflict(err):
		c.JSON(http.StatusConflict, gin.H{"error": "conflict", "detail": err.Error()})
	default:
		h.log.Error("request failed",
			logger.String("method", c.Request.Method),
			logger.String("path", c.FullPath()),
			logger.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}
