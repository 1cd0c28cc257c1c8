package service

import (
	"context"
	"time"

	"fabworks/internal/apperror"
	"fabworks/internal/model"
	"fabworks/internal/repository"

	"github.com/google/uuid"
)

type NotificationResponse struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Message     string `json:"message"`
	Type        string `json:"type"`
	RelatedType string `json:"related_type,omitempty"`
	RelatedID   string `json:"related_id,omitempty"`
	Metadata    string `json:"metadata,omitempty"`
	Read        bool   `json:"read"`
	CreatedAt   string `json:"created_at"`
}

type NotificationService interface {
	List(ctx context.Context, actor Actor, unreadOnly bool, page, limit int) ([]NotificationResponse, int64, error)
	MarkRead(ctx context.Context, actor Actor, id string) error
	UnreadCount(ctx context.Context, actor Actor) (int64, error)
}

type notificationService struct {
	repo repository.NotificationRepository
}

func NewNotificationService(repo repository.NotificationRepository) NotificationService {
	return &notificationService{repo: repo}
}

func (s *notificationService) List(ctx context.Context, actor Actor, unreadOnly bool, page, limit int) ([]NotificationResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	notifications, total, err := s.repo.ListByUser(ctx, actor.ID, unreadOnly, page, limit)
	if err != nil {
		return nil, 0, err
	}

	result := make([]NotificationResponse, 0, len(notifications))
	for _, n := range notifications {
		result = append(result, toNotificationResponse(&n))
	}
	return result, total, nil
}

// MarkRead flips one of the actor's own inbox rows to read. The user id
// in the where clause means nobody can mark another user's rows.
func (s *notificationService) MarkRead(ctx context.Context, actor Actor, id string) error {
	notificationID, err := uuid.Parse(id)
	if err != nil {
		return apperror.Validation("invalid notification id: " + err.Error())
	}
	return s.repo.MarkRead(ctx, notificationID, actor.ID)
}

func (s *notificationService) UnreadCount(ctx context.Context, actor Actor) (int64, error) {
	return s.repo.CountUnread(ctx, actor.ID)
}

func toNotificationResponse(n *model.Notification) NotificationResponse {
	return NotificationResponse{
		ID:          n.ID.String(),
		Title:       n.Title,
		Message:     n.Message,
		Type:        n.Type,
		RelatedType: n.RelatedType,
		RelatedID:   n.RelatedID,
		Metadata:    n.Metadata,
		Read:        n.Read,
		CreatedAt:   n.CreatedAt.Format(time.RFC3339),
	}
}
