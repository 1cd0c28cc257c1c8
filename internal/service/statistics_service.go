package service

import (
	"context"
	"time"

	"fabworks/internal/model"
	"fabworks/internal/repository"
)

type StatisticsService interface {
	GetStatistics(ctx context.Context, startDate, endDate time.Time) (model.StatisticsResponse, error)
}

type statisticsService struct {
	statsRepo repository.StatisticsRepository
}

func NewStatisticsService(statsRepo repository.StatisticsRepository) StatisticsService {
	return &statisticsService{statsRepo: statsRepo}
}

// GetStatistics aggregates the workflow funnel over the time range:
// inquiry and order status distributions, quotation conversion, and
// revenue from delivered orders.
func (s *statisticsService) GetStatistics(ctx context.Context, startDate, endDate time.Time) (model.StatisticsResponse, error) {
	var response model.StatisticsResponse
	response.TimeRangeStartDate = startDate
	response.TimeRangeEndDate = endDate

	inquiries, err := s.statsRepo.CountByStatus(ctx, "inquiries", startDate, endDate)
	if err != nil {
		return response, err
	}
	response.InquiriesByStatus = inquiries

	orders, err := s.statsRepo.CountByStatus(ctx, "orders", startDate, endDate)
	if err != nil {
		return response, err
	}
	response.OrdersByStatus = orders

	sent, err := s.statsRepo.CountQuotations(ctx, "sent_at", startDate, endDate)
	if err != nil {
		return response, err
	}
	response.QuotationsSent = sent

	accepted, err := s.statsRepo.CountQuotations(ctx, "accepted_at", startDate, endDate)
	if err != nil {
		return response, err
	}
	response.QuotationsAccepted = accepted

	if sent > 0 {
		response.ConversionRate = float64(accepted) / float64(sent)
	}

	revenue, err := s.statsRepo.DeliveredRevenue(ctx, startDate, endDate)
	if err != nil {
		return response, err
	}
	response.DeliveredRevenue = revenue

	materials, err := s.statsRepo.TopMaterials(ctx, startDate, endDate, 5)
	if err != nil {
		return response, err
	}
	response.TopMaterials = materials

	return response, nil
}
