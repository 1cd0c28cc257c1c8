package service

import (
	"context"
	"encoding/json"

	"fabworks/internal/logger"
	"fabworks/internal/model"
	"fabworks/internal/notify"
	"fabworks/internal/repository"

	"go.uber.org/zap"
)

// WorkflowNotifier fans workflow events out to the customer (email+SMS),
// the back-office staff feed (websocket) and the persistent inbox.
// Everything here runs after the state transition has committed and is
// strictly best-effort: failures are logged, never returned.
type WorkflowNotifier struct {
	notifier         notify.Notifier
	notificationRepo repository.NotificationRepository
	userRepo         repository.UserRepository
}

func NewWorkflowNotifier(notifier notify.Notifier, notificationRepo repository.NotificationRepository, userRepo repository.UserRepository) *WorkflowNotifier {
	return &WorkflowNotifier{
		notifier:         notifier,
		notificationRepo: notificationRepo,
		userRepo:         userRepo,
	}
}

func recipientFor(user *model.User) notify.Recipient {
	if user == nil {
		return notify.Recipient{}
	}
	return notify.Recipient{
		UserID: user.ID,
		Name:   user.Username,
		Email:  user.Email,
		Phone:  user.Phone,
	}
}

// customer notifies the inquiry's customer over email and SMS and
// records an inbox row.
func (n *WorkflowNotifier) customer(ctx context.Context, user *model.User, template, relatedType, relatedID string, payload notify.Payload) {
	if user == nil {
		logger.L().Warn("customer notification skipped: no recipient",
			zap.String("template", template), zap.String("related_id", relatedID))
		return
	}

	recipient := recipientFor(user)
	n.notifier.Notify(ctx, model.ChannelEmail, template, recipient, payload)
	n.notifier.Notify(ctx, model.ChannelSMS, template, recipient, payload)
	n.record(ctx, user.ID.String(), template, relatedType, relatedID, recipient, payload)
}

// backOffice pushes the event to the staff websocket feed and records
// an inbox row for every back-office user.
func (n *WorkflowNotifier) backOffice(ctx context.Context, template, relatedType, relatedID string, payload notify.Payload) {
	n.notifier.Notify(ctx, model.ChannelWebsocket, template, notify.Recipient{}, payload)

	staff, err := n.userRepo.ListByRoles(ctx, []string{model.RoleAdmin, model.RoleBackOffice})
	if err != nil {
		logger.L().Warn("back-office notification fanout failed", zap.Error(err))
		return
	}
	for _, user := range staff {
		n.record(ctx, user.ID.String(), template, relatedType, relatedID, recipientFor(&user), payload)
	}
}

func (n *WorkflowNotifier) record(ctx context.Context, userID, template, relatedType, relatedID string, recipient notify.Recipient, payload notify.Payload) {
	subject, body := notify.Render(template, recipient, payload)
	metadata, _ := json.Marshal(payload)

	row := &model.Notification{
		UserID:      recipient.UserID,
		Title:       subject,
		Message:     body,
		Type:        template,
		RelatedType: relatedType,
		RelatedID:   relatedID,
		Metadata:    string(metadata),
	}
	if err := n.notificationRepo.Create(ctx, row); err != nil {
		logger.L().Warn("failed to persist notification row",
			zap.String("user_id", userID), zap.String("template", template), zap.Error(err))
	}
}
