package notify

import (
	"context"
	"encoding/json"
	"fmt"

	ws "fabworks/internal/websocket"
)

// WebsocketSender pushes workflow events to the broadcast hub so any
// connected back-office dashboard updates live.
type WebsocketSender struct {
	hub *ws.Hub
}

func NewWebsocketSender(hub *ws.Hub) *WebsocketSender {
	return &WebsocketSender{hub: hub}
}

func (w *WebsocketSender) send(_ context.Context, template string, recipient Recipient, payload Payload) error {
	event, err := json.Marshal(map[string]interface{}{
		"event":   template,
		"user_id": recipient.UserID.String(),
		"data":    payload,
	})
	if err != nil {
		return err
	}

	select {
	case w.hub.Broadcast <- event:
		return nil
	default:
		return fmt.Errorf("broadcast channel full, event dropped")
	}
}
