package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// QuotationStatus constants
const (
	QuotationStatusDraft        = "draft"
	QuotationStatusSent         = "sent"
	QuotationStatusAccepted     = "accepted"
	QuotationStatusRejected     = "rejected"
	QuotationStatusExpired      = "expired"
	QuotationStatusOrderCreated = "order_created"
)

// QuotationValidityDays is the default offer window applied when the
// back office does not supply an explicit deadline.
const QuotationValidityDays = 30

// Quotation is a priced proposal against exactly one Inquiry.
// The uniqueIndex on InquiryID enforces at most one quotation per inquiry.
// Mutable only while draft; once sent, only the response transition may
// change it.
type Quotation struct {
	ID             uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	QuotationNo    string          `gorm:"type:varchar(30);uniqueIndex;not null" json:"quotation_no"` // QT + YYMMDD + 3-digit counter
	InquiryID      uuid.UUID       `gorm:"type:uuid;uniqueIndex;not null" json:"inquiry_id"`
	Inquiry        *Inquiry        `gorm:"foreignKey:InquiryID" json:"inquiry,omitempty"`
	Items          []QuotationItem `gorm:"foreignKey:QuotationID;constraint:OnDelete:CASCADE" json:"items"`
	TotalAmount    decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"total_amount"`
	Currency       string          `gorm:"type:varchar(10);not null;default:'USD'" json:"currency"`
	UploadMode     bool            `gorm:"not null;default:false" json:"upload_mode"` // Uploaded document is the pricing source; no line items
	DocumentURL    string          `gorm:"type:text" json:"document_url"`
	Terms          string          `gorm:"type:text" json:"terms"`
	Notes          string          `gorm:"type:text" json:"notes"`
	RejectionNotes string          `gorm:"type:text" json:"rejection_notes"`
	ValidUntil     time.Time       `gorm:"not null" json:"valid_until"`
	Status         string          `gorm:"type:varchar(20);not null;default:'draft';index" json:"status"`
	SentAt         *time.Time      `json:"sent_at"`
	AcceptedAt     *time.Time      `json:"accepted_at"`
	RejectedAt     *time.Time      `json:"rejected_at"`
	OrderCreatedAt *time.Time      `json:"order_created_at"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// QuotationItem is one priced part line. TotalPrice is always
// UnitPrice × Quantity, computed when the line is written.
type QuotationItem struct {
	ID          uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	QuotationID uuid.UUID       `gorm:"type:uuid;not null;index" json:"quotation_id"`
	Material    string          `gorm:"type:varchar(100);not null" json:"material"`
	ThicknessMM float64         `gorm:"type:decimal(8,2);not null" json:"thickness_mm"`
	Quantity    int             `gorm:"type:int;not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"unit_price"`
	TotalPrice  decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"total_price"`
}
