package model

import (
	"time"
)

// StatisticsResponse aggregates workflow funnel and revenue data
type StatisticsResponse struct {
	InquiriesByStatus  map[string]int64 `json:"inquiries_by_status"`
	OrdersByStatus     map[string]int64 `json:"orders_by_status"`
	QuotationsSent     int64            `json:"quotations_sent"`
	QuotationsAccepted int64            `json:"quotations_accepted"`
	ConversionRate     float64          `json:"conversion_rate"` // accepted / sent within the range
	DeliveredRevenue   float64          `json:"delivered_revenue"`
	TopMaterials       []MaterialDemand `json:"top_materials"`
	TimeRangeStartDate time.Time        `json:"time_range_start_date"`
	TimeRangeEndDate   time.Time        `json:"time_range_end_date"`
}

// MaterialDemand ranks a material by ordered quantity and value
type MaterialDemand struct {
	Material      string  `json:"material"`
	TotalQuantity int     `json:"total_quantity"`
	TotalValue    float64 `json:"total_value"`
}
