package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus constants — linear fulfillment flow with a cancel branch
const (
	OrderStatusPending          = "pending"
	OrderStatusConfirmed        = "confirmed"
	OrderStatusInProduction     = "in_production"
	OrderStatusReadyForDispatch = "ready_for_dispatch"
	OrderStatusDispatched       = "dispatched"
	OrderStatusDelivered        = "delivered"
	OrderStatusCancelled        = "cancelled"
)

// PaymentStatus constants
const (
	PaymentStatusPending    = "pending"
	PaymentStatusProcessing = "processing"
	PaymentStatusCompleted  = "completed"
	PaymentStatusFailed     = "failed"
	PaymentStatusRefunded   = "refunded"
)

// PaymentMethod constants
const (
	PaymentMethodPending      = "pending"
	PaymentMethodBankTransfer = "bank_transfer"
	PaymentMethodCard         = "card"
	PaymentMethodGateway      = "gateway"
	PaymentMethodManual       = "manual"
)

// PaymentDetail is the payment sub-state nested in an Order
type PaymentDetail struct {
	Method        string          `gorm:"type:varchar(30);not null;default:'pending'" json:"method"`
	Status        string          `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	TransactionID string          `gorm:"type:varchar(100)" json:"transaction_id"`
	Amount        decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"amount"`
	PaidAt        *time.Time      `json:"paid_at"`
	Gateway       string          `gorm:"type:varchar(50)" json:"gateway"`
	RefundAmount  decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"refund_amount"`
	RefundReason  string          `gorm:"type:text" json:"refund_reason"`
}

// ProductionDetail tracks the shop-floor schedule for an Order
type ProductionDetail struct {
	StartDate           *time.Time `json:"start_date"`
	EstimatedCompletion *time.Time `json:"estimated_completion"`
	ActualCompletion    *time.Time `json:"actual_completion"`
}

// DispatchDetail tracks courier handover and delivery for an Order
type DispatchDetail struct {
	Courier           string     `gorm:"type:varchar(100)" json:"courier"`
	TrackingNumber    string     `gorm:"type:varchar(100)" json:"tracking_number"`
	DispatchedAt      *time.Time `json:"dispatched_at"`
	EstimatedDelivery *time.Time `json:"estimated_delivery"`
	ActualDelivery    *time.Time `json:"actual_delivery"`
	Notes             string     `gorm:"type:text" json:"notes"`
}

// Order is the fulfillment record created exactly once when a Quotation
// is accepted. Line items, total, currency and address are snapshotted
// from the quotation at that moment and never recomputed. The
// uniqueIndex on QuotationID enforces at most one order per quotation.
type Order struct {
	ID          uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderNo     string           `gorm:"type:varchar(30);uniqueIndex;not null" json:"order_no"` // ORD + millisecond timestamp
	QuotationID uuid.UUID        `gorm:"type:uuid;uniqueIndex;not null" json:"quotation_id"`
	Quotation   *Quotation       `gorm:"foreignKey:QuotationID" json:"quotation,omitempty"`
	InquiryID   uuid.UUID        `gorm:"type:uuid;not null;index" json:"inquiry_id"`
	CustomerID  uuid.UUID        `gorm:"type:uuid;not null;index" json:"customer_id"`
	Customer    *User            `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	Items       []OrderItem      `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
	TotalAmount decimal.Decimal  `gorm:"type:decimal(18,2);not null" json:"total_amount"`
	Currency    string           `gorm:"type:varchar(10);not null;default:'USD'" json:"currency"`
	Status      string           `gorm:"type:varchar(30);not null;default:'pending';index" json:"status"`
	Payment     PaymentDetail    `gorm:"embedded;embeddedPrefix:payment_" json:"payment"`
	Production  ProductionDetail `gorm:"embedded;embeddedPrefix:production_" json:"production"`
	Dispatch    DispatchDetail   `gorm:"embedded;embeddedPrefix:dispatch_" json:"dispatch"`
	Address     DeliveryAddress  `gorm:"embedded;embeddedPrefix:address_" json:"address"`
	Notes       string           `gorm:"type:text" json:"notes"`
	ConfirmedAt *time.Time       `json:"confirmed_at"`
	CancelledAt *time.Time       `json:"cancelled_at"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// OrderItem is a snapshot copy of a quotation line — independent of the
// quotation's own items after order creation.
type OrderItem struct {
	ID          uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"order_id"`
	Material    string          `gorm:"type:varchar(100);not null" json:"material"`
	ThicknessMM float64         `gorm:"type:decimal(8,2);not null" json:"thickness_mm"`
	Quantity    int             `gorm:"type:int;not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"unit_price"`
	TotalPrice  decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"total_price"`
}
