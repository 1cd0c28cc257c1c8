package handler

import (
	"strings"

	"fabworks/internal/apperror"
	"fabworks/internal/service"
	"fabworks/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// actorFrom builds the service actor from the claims RequireRole placed
// on the context.
func actorFrom(c *gin.Context) service.Actor {
	var actor service.Actor
	if raw, ok := c.Get("userID"); ok {
		if s, ok := raw.(string); ok {
			if id, err := uuid.Parse(s); err == nil {
				actor.ID = id
			}
		}
	}
	if raw, ok := c.Get("userRole"); ok {
		if role, ok := raw.(string); ok {
			actor.Role = role
		}
	}
	return actor
}

// respondError maps a lifecycle error to its HTTP status and emits the
// standard error envelope.
func respondError(c *gin.Context, err error) {
	status := apperror.HTTPStatus(err)
	c.JSON(status, response.Error(status, err.Error()))
}

// statusFilter splits a comma-separated ?status= query into values.
func statusFilter(c *gin.Context) []string {
	raw := c.Query("status")
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	statuses := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			statuses = append(statuses, trimmed)
		}
	}
	return statuses
}
