package model

import (
	"time"

	"github.com/google/uuid"
)

// Workflow audit actions
const (
	ActionCreateInquiry     = "CREATE_INQUIRY"
	ActionReviewInquiry     = "REVIEW_INQUIRY"
	ActionDeleteInquiry     = "DELETE_INQUIRY"
	ActionCreateQuotation   = "CREATE_QUOTATION"
	ActionUpdateQuotation   = "UPDATE_QUOTATION"
	ActionSendQuotation     = "SEND_QUOTATION"
	ActionAcceptQuotation   = "ACCEPT_QUOTATION"
	ActionRejectQuotation   = "REJECT_QUOTATION"
	ActionExpireQuotation   = "EXPIRE_QUOTATION"
	ActionCreateOrder       = "CREATE_ORDER"
	ActionUpdateOrderStatus = "UPDATE_ORDER_STATUS"
	ActionDispatchOrder     = "DISPATCH_ORDER"
	ActionDeliverOrder      = "DELIVER_ORDER"
	ActionCancelOrder       = "CANCEL_ORDER"
	ActionInitializePayment = "INITIALIZE_PAYMENT"
	ActionConfirmPayment    = "CONFIRM_PAYMENT"
	ActionFailPayment       = "FAIL_PAYMENT"
	ActionRefundPayment     = "REFUND_PAYMENT"
)

// AuditLog tracks Who, What, and When for critical system changes
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id"` // Nullable gracefully if automated event
	User       *User      `gorm:"foreignKey:UserID" json:"user"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entity_id"`        // Reference string (uuid/number)
	EntityName string     `gorm:"type:varchar(255)" json:"entity_name,omitempty"` // Human readable name
	Details    string     `gorm:"type:jsonb" json:"details"`                      // Serialized JSON payload of the action
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}
