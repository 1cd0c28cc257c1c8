package model

import (
	"time"

	"github.com/google/uuid"
)

// Notification channels
const (
	ChannelEmail     = "email"
	ChannelSMS       = "sms"
	ChannelWebsocket = "websocket"
)

// Notification templates consumed by the lifecycle managers
const (
	TemplateInquiryReceived   = "inquiry-received"
	TemplateQuotationReady    = "quotation-ready"
	TemplateQuotationDecision = "quotation-decision"
	TemplateOrderConfirmed    = "order-confirmed"
	TemplatePaymentReceived   = "payment-received"
	TemplateOrderDispatched   = "order-dispatched"
	TemplateOrderDelivered    = "order-delivered"
)

// Notification is a write-only inbox row recorded alongside every
// outbound workflow event. It is an audit trail, not workflow state.
type Notification struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	User        *User     `gorm:"foreignKey:UserID" json:"-"`
	Title       string    `gorm:"type:varchar(255);not null" json:"title"`
	Message     string    `gorm:"type:text;not null" json:"message"`
	Type        string    `gorm:"type:varchar(50);not null;index" json:"type"` // Template name of the triggering event
	RelatedType string    `gorm:"type:varchar(30)" json:"related_type"`        // inquiry, quotation, order
	RelatedID   string    `gorm:"type:varchar(50);index" json:"related_id"`
	Metadata    string    `gorm:"type:jsonb" json:"metadata"`
	Read        bool      `gorm:"not null;default:false" json:"read"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
}
