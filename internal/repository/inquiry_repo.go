package repository

import (
	"context"

	"fabworks/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type InquiryRepository interface {
	Create(ctx context.Context, inquiry *model.Inquiry) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Inquiry, error)
	Save(ctx context.Context, inquiry *model.Inquiry) error
	DeleteByID(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, statuses []string, customerID *uuid.UUID, page, limit int) ([]model.Inquiry, int64, error)
}

type inquiryRepository struct {
	db *gorm.DB
}

func NewInquiryRepository(db *gorm.DB) InquiryRepository {
	return &inquiryRepository{db: db}
}

func (r *inquiryRepository) Create(ctx context.Context, inquiry *model.Inquiry) error {
	return GetDB(ctx, r.db).Create(inquiry).Error
}

func (r *inquiryRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Inquiry, error) {
	var inquiry model.Inquiry
	if err := GetDB(ctx, r.db).
		Preload("Items").
		Preload("Files").
		Preload("Customer").
		First(&inquiry, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &inquiry, nil
}

func (r *inquiryRepository) Save(ctx context.Context, inquiry *model.Inquiry) error {
	return GetDB(ctx, r.db).Save(inquiry).Error
}

func (r *inquiryRepository) DeleteByID(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Select("Items", "Files").Delete(&model.Inquiry{ID: id}).Error
}

func (r *inquiryRepository) List(ctx context.Context, statuses []string, customerID *uuid.UUID, page, limit int) ([]model.Inquiry, int64, error) {
	var inquiries []model.Inquiry
	var total int64

	db := GetDB(ctx, r.db)
	query := db.Model(&model.Inquiry{})
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}
	if customerID != nil {
		query = query.Where("customer_id = ?", *customerID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	fetchQuery := db.Preload("Items").Preload("Files").Preload("Customer")
	if len(statuses) > 0 {
		fetchQuery = fetchQuery.Where("status IN ?", statuses)
	}
	if customerID != nil {
		fetchQuery = fetchQuery.Where("customer_id = ?", *customerID)
	}
	if err := fetchQuery.Order("created_at DESC").Offset(offset).Limit(limit).Find(&inquiries).Error; err != nil {
		return nil, 0, err
	}

	return inquiries, total, nil
}
