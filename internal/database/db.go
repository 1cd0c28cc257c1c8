package database

import (
	"fabworks/internal/logger"
	"fabworks/internal/model"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewConnection initializes a new connection pool using GORM
func NewConnection(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	// Auto-migrate core models
	err = db.AutoMigrate(
		&model.User{},
		&model.RefreshToken{},
		&model.Inquiry{},
		&model.InquiryItem{},
		&model.InquiryFile{},
		&model.Quotation{},
		&model.QuotationItem{},
		&model.Order{},
		&model.OrderItem{},
		&model.Notification{},
		&model.AuditLog{},
	)
	if err != nil {
		logger.L().Warn("failed to auto-migrate models", zap.Error(err))
	}

	return db, nil
}
