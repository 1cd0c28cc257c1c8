package model

import (
	"time"

	"github.com/google/uuid"
)

// InquiryStatus constants
const (
	InquiryStatusPending      = "pending"
	InquiryStatusReviewed     = "reviewed"
	InquiryStatusQuoted       = "quoted"
	InquiryStatusAccepted     = "accepted"
	InquiryStatusRejected     = "rejected"
	InquiryStatusInProduction = "in_production"
	InquiryStatusCompleted    = "completed"
)

// DeliveryAddress is embedded wherever a shipping destination is stored.
// Every field defaults to "" — an order snapshot must never carry nulls.
type DeliveryAddress struct {
	Line1      string `gorm:"type:varchar(255);not null;default:''" json:"line1"`
	Line2      string `gorm:"type:varchar(255);not null;default:''" json:"line2"`
	City       string `gorm:"type:varchar(100);not null;default:''" json:"city"`
	State      string `gorm:"type:varchar(100);not null;default:''" json:"state"`
	PostalCode string `gorm:"type:varchar(20);not null;default:''" json:"postal_code"`
	Country    string `gorm:"type:varchar(100);not null;default:''" json:"country"`
}

// Inquiry is a customer's initial part request, pre-pricing.
// Its status mirrors the quotation/order workflow; only a pending
// inquiry may be deleted.
type Inquiry struct {
	ID          uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	CustomerID  uuid.UUID       `gorm:"type:uuid;not null;index" json:"customer_id"`
	Customer    *User           `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	Status      string          `gorm:"type:varchar(30);not null;default:'pending';index" json:"status"`
	QuotationID *uuid.UUID      `gorm:"type:uuid;index" json:"quotation_id"` // Set once a quotation is drafted
	Items       []InquiryItem   `gorm:"foreignKey:InquiryID;constraint:OnDelete:CASCADE" json:"items"`
	Files       []InquiryFile   `gorm:"foreignKey:InquiryID;constraint:OnDelete:CASCADE" json:"files"`
	Address     DeliveryAddress `gorm:"embedded;embeddedPrefix:address_" json:"address"`
	Remarks     string          `gorm:"type:text" json:"remarks"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// InquiryItem is one requested part specification
type InquiryItem struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	InquiryID   uuid.UUID `gorm:"type:uuid;not null;index" json:"inquiry_id"`
	Material    string    `gorm:"type:varchar(100);not null" json:"material"`
	ThicknessMM float64   `gorm:"type:decimal(8,2);not null" json:"thickness_mm"`
	Quantity    int       `gorm:"type:int;not null" json:"quantity"`
	Remarks     string    `gorm:"type:text" json:"remarks"`
}

// InquiryFile references an uploaded drawing or spec document
type InquiryFile struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	InquiryID uuid.UUID `gorm:"type:uuid;not null;index" json:"inquiry_id"`
	FileName  string    `gorm:"type:varchar(255);not null" json:"file_name"`
	FileURL   string    `gorm:"type:text;not null" json:"file_url"`
	CreatedAt time.Time `json:"created_at"`
}
