package notify

import (
	"context"

	"fabworks/internal/logger"
	"fabworks/internal/model"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Recipient identifies who a notification goes to on each channel.
type Recipient struct {
	UserID uuid.UUID
	Name   string
	Email  string
	Phone  string
}

// Payload is the template data for one notification.
type Payload map[string]interface{}

// Notifier delivers a workflow event on one channel. Delivery is
// fire-and-forget: implementations log failures, callers never see
// them, and a failed send never rolls back a lifecycle transition.
type Notifier interface {
	Notify(ctx context.Context, channel, template string, recipient Recipient, payload Payload)
}

// sender is one concrete delivery mechanism behind the dispatcher.
type sender interface {
	send(ctx context.Context, template string, recipient Recipient, payload Payload) error
}

// Dispatcher routes notifications to the configured channel senders.
// Constructed once at startup and injected into the lifecycle managers,
// so tests can substitute a recording double with no network calls.
type Dispatcher struct {
	senders map[string]sender
}

func NewDispatcher(email, sms, websocket sender) *Dispatcher {
	senders := make(map[string]sender)
	if email != nil {
		senders[model.ChannelEmail] = email
	}
	if sms != nil {
		senders[model.ChannelSMS] = sms
	}
	if websocket != nil {
		senders[model.ChannelWebsocket] = websocket
	}
	return &Dispatcher{senders: senders}
}

func (d *Dispatcher) Notify(ctx context.Context, channel, template string, recipient Recipient, payload Payload) {
	s, ok := d.senders[channel]
	if !ok {
		logger.L().Debug("notification channel not configured",
			zap.String("channel", channel), zap.String("template", template))
		return
	}

	if err := s.send(ctx, template, recipient, payload); err != nil {
		logger.L().Warn("notification delivery failed",
			zap.String("channel", channel),
			zap.String("template", template),
			zap.String("recipient", recipient.UserID.String()),
			zap.Error(err))
	}
}
