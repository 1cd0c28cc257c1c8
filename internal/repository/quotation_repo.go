package repository

import (
	"context"
	"fmt"
	"time"

	"fabworks/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type QuotationRepository interface {
	Create(ctx context.Context, quotation *model.Quotation) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Quotation, error)
	FindByInquiryID(ctx context.Context, inquiryID uuid.UUID) (*model.Quotation, error)
	Save(ctx context.Context, quotation *model.Quotation) error
	ReplaceItems(ctx context.Context, quotationID uuid.UUID, items []model.QuotationItem) error
	UpdateStatusIf(ctx context.Context, id uuid.UUID, fromStatuses []string, updates map[string]interface{}) (bool, error)
	NextQuotationNo(ctx context.Context) (string, error)
	List(ctx context.Context, statuses []string, page, limit int) ([]model.Quotation, int64, error)
}

type quotationRepository struct {
	db *gorm.DB
}

func NewQuotationRepository(db *gorm.DB) QuotationRepository {
	return &quotationRepository{db: db}
}

func (r *quotationRepository) Create(ctx context.Context, quotation *model.Quotation) error {
	return GetDB(ctx, r.db).Create(quotation).Error
}

func (r *quotationRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Quotation, error) {
	var quotation model.Quotation
	if err := GetDB(ctx, r.db).
		Preload("Items").
		Preload("Inquiry").
		Preload("Inquiry.Customer").
		First(&quotation, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &quotation, nil
}

func (r *quotationRepository) FindByInquiryID(ctx context.Context, inquiryID uuid.UUID) (*model.Quotation, error) {
	var quotation model.Quotation
	if err := GetDB(ctx, r.db).
		Preload("Items").
		First(&quotation, "inquiry_id = ?", inquiryID).Error; err != nil {
		return nil, err
	}
	return &quotation, nil
}

func (r *quotationRepository) Save(ctx context.Context, quotation *model.Quotation) error {
	return GetDB(ctx, r.db).Save(quotation).Error
}

// ReplaceItems swaps a draft quotation's line items wholesale.
func (r *quotationRepository) ReplaceItems(ctx context.Context, quotationID uuid.UUID, items []model.QuotationItem) error {
	db := GetDB(ctx, r.db)
	if err := db.Where("quotation_id = ?", quotationID).Delete(&model.QuotationItem{}).Error; err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		items[i].QuotationID = quotationID
	}
	return db.Create(&items).Error
}

// UpdateStatusIf applies updates only while the quotation is still in one of
// fromStatuses. The conditional write is what closes the race between two
// concurrent respond calls: exactly one sees rows affected.
func (r *quotationRepository) UpdateStatusIf(ctx context.Context, id uuid.UUID, fromStatuses []string, updates map[string]interface{}) (bool, error) {
	res := GetDB(ctx, r.db).Model(&model.Quotation{}).
		Where("id = ? AND status IN ?", id, fromStatuses).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// NextQuotationNo issues QT + YYMMDD + a zero-padded per-day counter.
// The advisory lock serializes concurrent creations on the same day so
// the counter never collides.
func (r *quotationRepository) NextQuotationNo(ctx context.Context) (string, error) {
	db := GetDB(ctx, r.db)
	prefix := "QT" + time.Now().Format("060102")

	db.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", prefix)

	var count int64
	if err := db.Model(&model.Quotation{}).
		Where("quotation_no LIKE ?", prefix+"%").
		Count(&count).Error; err != nil {
		return "", err
	}

	return fmt.Sprintf("%s%03d", prefix, count+1), nil
}

func (r *quotationRepository) List(ctx context.Context, statuses []string, page, limit int) ([]model.Quotation, int64, error) {
	var quotations []model.Quotation
	var total int64

	db := GetDB(ctx, r.db)
	query := db.Model(&model.Quotation{})
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	fetchQuery := db.Preload("Items").Preload("Inquiry")
	if len(statuses) > 0 {
		fetchQuery = fetchQuery.Where("status IN ?", statuses)
	}
	if err := fetchQuery.Order("created_at DESC").Offset(offset).Limit(limit).Find(&quotations).Error; err != nil {
		return nil, 0, err
	}

	return quotations, total, nil
}
