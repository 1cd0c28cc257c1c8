package repository

import (
	"context"
	"fmt"
	"time"

	"fabworks/internal/model"

	"gorm.io/gorm"
)

type StatisticsRepository interface {
	CountByStatus(ctx context.Context, table string, start, end time.Time) (map[string]int64, error)
	CountQuotations(ctx context.Context, timestampColumn string, start, end time.Time) (int64, error)
	DeliveredRevenue(ctx context.Context, start, end time.Time) (float64, error)
	TopMaterials(ctx context.Context, start, end time.Time, limit int) ([]model.MaterialDemand, error)
}

type statisticsRepository struct {
	db *gorm.DB
}

func NewStatisticsRepository(db *gorm.DB) StatisticsRepository {
	return &statisticsRepository{db: db}
}

// CountByStatus buckets rows of a workflow table by their status column.
func (r *statisticsRepository) CountByStatus(ctx context.Context, table string, start, end time.Time) (map[string]int64, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	if err := r.db.WithContext(ctx).Table(table).
		Select("status, COUNT(*) as count").
		Where("created_at >= ? AND created_at <= ?", start, end).
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to count %s by status: %w", table, err)
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// CountQuotations counts quotations whose given lifecycle timestamp
// (sent_at, accepted_at) falls inside the range.
func (r *statisticsRepository) CountQuotations(ctx context.Context, timestampColumn string, start, end time.Time) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Quotation{}).
		Where(timestampColumn+" >= ? AND "+timestampColumn+" <= ?", start, end).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count quotations by %s: %w", timestampColumn, err)
	}
	return count, nil
}

// DeliveredRevenue sums the totals of orders delivered in the range.
func (r *statisticsRepository) DeliveredRevenue(ctx context.Context, start, end time.Time) (float64, error) {
	var result struct {
		Value float64
	}
	if err := r.db.WithContext(ctx).Model(&model.Order{}).
		Select("COALESCE(SUM(total_amount), 0) as value").
		Where("status = ? AND dispatch_actual_delivery >= ? AND dispatch_actual_delivery <= ?",
			model.OrderStatusDelivered, start, end).
		Scan(&result).Error; err != nil {
		return 0, fmt.Errorf("failed to sum delivered revenue: %w", err)
	}
	return result.Value, nil
}

// TopMaterials ranks materials by ordered quantity over non-cancelled
// orders created in the range.
func (r *statisticsRepository) TopMaterials(ctx context.Context, start, end time.Time, limit int) ([]model.MaterialDemand, error) {
	var rankings []model.MaterialDemand
	if err := r.db.WithContext(ctx).Table("order_items").
		Select("order_items.material as material, SUM(order_items.quantity) as total_quantity, SUM(order_items.total_price) as total_value").
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.status <> ? AND orders.created_at >= ? AND orders.created_at <= ?",
			model.OrderStatusCancelled, start, end).
		Group("order_items.material").
		Order("total_quantity DESC").
		Limit(limit).
		Scan(&rankings).Error; err != nil {
		return nil, fmt.Errorf("failed to query top materials: %w", err)
	}
	return rankings, nil
}
