package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mesh-intelligence/crm/pkg/types"
)

// Generic messages for responses that must not leak internals.
const (
	msgNotFound = "not found"
	msgInternal = "internal server error"
)

// respondError maps a store error to a status code and writes the body.
// Only 500s are logged here; the request logger covers the rest.
func (s *Server) respondError(c *gin.Context, err error, entity, op string) {
	switch {
	case errors.Is(err, types.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": entity + " " + msgNotFound})
	case errors.Is(err, types.ErrDuplicateKey):
		c.JSON(http.StatusBadRequest, gin.H{"error": duplicateReason(err)})
	case types.IsValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		s.logger.ErrorContext(c.Request.Context(), "request failed",
			"entity", entity, "op", op, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgInternal})
	}
}

// badRequest reports a payload or query that could not be bound.
func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
}

// duplicateReason strips the wrapping prefixes, keeping "duplicate key: ...".
func duplicateReason(err error) string {
	msg := err.Error()
	if i := strings.Index(msg, types.ErrDuplicateKey.Error()); i >= 0 {
		return msg[i:]
	}
	return msg
}
