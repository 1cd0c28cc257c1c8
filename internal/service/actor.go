package service

import (
	"context"
	"encoding/json"

	"fabworks/internal/model"
	"fabworks/internal/repository"

	"github.com/google/uuid"
)

// Actor identifies who is performing a lifecycle operation. Handlers
// build it from the verified JWT claims.
type Actor struct {
	ID   uuid.UUID
	Role string
}

// IsStaff reports whether the actor belongs to the back office.
func (a Actor) IsStaff() bool {
	return a.Role == model.RoleAdmin || a.Role == model.RoleBackOffice
}

// writeAudit records a workflow action. Called inside the same
// transaction as the transition it documents.
func writeAudit(ctx context.Context, repo repository.AuditRepository, actorID *uuid.UUID, action, entityID, entityName string, details map[string]interface{}) error {
	payload, _ := json.Marshal(details)
	return repo.Log(ctx, &model.AuditLog{
		UserID:     actorID,
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
		Details:    string(payload),
	})
}
