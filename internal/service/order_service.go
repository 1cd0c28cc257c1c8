package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fabworks/internal/apperror"
	"fabworks/internal/model"
	"fabworks/internal/notify"
	"fabworks/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// --- DTOs ---

type UpdateOrderStatusRequest struct {
	Status            string     `json:"status" binding:"required"`
	EstimatedDelivery *time.Time `json:"estimated_delivery"`
	Notes             string     `json:"notes"`
}

type DispatchOrderRequest struct {
	Courier           string     `json:"courier" binding:"required"`
	TrackingNumber    string     `json:"tracking_number" binding:"required"`
	EstimatedDelivery *time.Time `json:"estimated_delivery"`
	Notes             string     `json:"notes"`
}

type CancelOrderRequest struct {
	Reason string `json:"reason"`
}

type OrderItemResponse struct {
	Material    string  `json:"material"`
	ThicknessMM float64 `json:"thickness_mm"`
	Quantity    int     `json:"quantity"`
	UnitPrice   string  `json:"unit_price"`
	TotalPrice  string  `json:"total_price"`
}

type PaymentResponse struct {
	Method        string  `json:"method"`
	Status        string  `json:"status"`
	TransactionID string  `json:"transaction_id,omitempty"`
	Amount        string  `json:"amount"`
	PaidAt        *string `json:"paid_at"`
	Gateway       string  `json:"gateway,omitempty"`
	RefundAmount  string  `json:"refund_amount,omitempty"`
	RefundReason  string  `json:"refund_reason,omitempty"`
}

type ProductionResponse struct {
	StartDate           *string `json:"start_date"`
	EstimatedCompletion *string `json:"estimated_completion"`
	ActualCompletion    *string `json:"actual_completion"`
}

type DispatchResponse struct {
	Courier           string  `json:"courier,omitempty"`
	TrackingNumber    string  `json:"tracking_number,omitempty"`
	DispatchedAt      *string `json:"dispatched_at"`
	EstimatedDelivery *string `json:"estimated_delivery"`
	ActualDelivery    *string `json:"actual_delivery"`
	Notes             string  `json:"notes,omitempty"`
}

type OrderResponse struct {
	ID          string                `json:"id"`
	OrderNo     string                `json:"order_no"`
	QuotationID string                `json:"quotation_id"`
	InquiryID   string                `json:"inquiry_id"`
	CustomerID  string                `json:"customer_id"`
	Status      string                `json:"status"`
	Items       []OrderItemResponse   `json:"items"`
	TotalAmount string                `json:"total_amount"`
	Currency    string                `json:"currency"`
	Payment     PaymentResponse       `json:"payment"`
	Production  ProductionResponse    `json:"production"`
	Dispatch    DispatchResponse      `json:"dispatch"`
	Address     model.DeliveryAddress `json:"address"`
	Notes       string                `json:"notes,omitempty"`
	ConfirmedAt *string               `json:"confirmed_at"`
	CancelledAt *string               `json:"cancelled_at"`
	CreatedAt   string                `json:"created_at"`
	UpdatedAt   string                `json:"updated_at"`
}

// --- Interface ---

type OrderService interface {
	// CreateFromAcceptedQuotation is the single entry point that makes
	// orders. Idempotent: the existing order is returned on retry.
	CreateFromAcceptedQuotation(ctx context.Context, quotation *model.Quotation, inquiry *model.Inquiry) (*model.Order, error)
	Get(ctx context.Context, actor Actor, id string) (OrderResponse, error)
	List(ctx context.Context, actor Actor, statuses []string, page, limit int) ([]OrderResponse, int64, error)
	UpdateStatus(ctx context.Context, actor Actor, id string, req UpdateOrderStatusRequest) (OrderResponse, error)
	Dispatch(ctx context.Context, actor Actor, id string, req DispatchOrderRequest) (OrderResponse, error)
	MarkDelivered(ctx context.Context, actor Actor, id string) (OrderResponse, error)
	Cancel(ctx context.Context, actor Actor, id string, req CancelOrderRequest) (OrderResponse, error)
}

type orderService struct {
	orderRepo   repository.OrderRepository
	inquiryRepo repository.InquiryRepository
	auditRepo   repository.AuditRepository
	txManager   repository.TransactionManager
	events      *WorkflowNotifier
	now         func() time.Time
}

func NewOrderService(
	orderRepo repository.OrderRepository,
	inquiryRepo repository.InquiryRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	events *WorkflowNotifier,
) OrderService {
	return &orderService{
		orderRepo:   orderRepo,
		inquiryRepo: inquiryRepo,
		auditRepo:   auditRepo,
		txManager:   txManager,
		events:      events,
		now:         time.Now,
	}
}

// --- Implementation ---

// CreateFromAcceptedQuotation snapshots the quotation into a new
// pending order. Line items, total, currency and the delivery address
// are copied at this moment and never recomputed. The lookup plus the
// unique index on quotation_id make retries return the existing order.
func (s *orderService) CreateFromAcceptedQuotation(ctx context.Context, quotation *model.Quotation, inquiry *model.Inquiry) (*model.Order, error) {
	existing, err := s.orderRepo.FindByQuotationID(ctx, quotation.ID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	items := make([]model.OrderItem, 0, len(quotation.Items))
	for _, line := range quotation.Items {
		items = append(items, model.OrderItem{
			Material:    line.Material,
			ThicknessMM: line.ThicknessMM,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			TotalPrice:  line.TotalPrice,
		})
	}

	order := &model.Order{
		OrderNo:     fmt.Sprintf("ORD%d", s.now().UnixMilli()),
		QuotationID: quotation.ID,
		InquiryID:   quotation.InquiryID,
		CustomerID:  inquiry.CustomerID,
		Items:       items,
		TotalAmount: quotation.TotalAmount,
		Currency:    quotation.Currency,
		Status:      model.OrderStatusPending,
		Address:     inquiry.Address,
		Payment: model.PaymentDetail{
			Method: model.PaymentMethodPending,
			Status: model.PaymentStatusPending,
			Amount: quotation.TotalAmount,
		},
	}

	if err := s.orderRepo.Create(ctx, order); err != nil {
		// A concurrent accept may have won the unique index on
		// quotation_id; resolve to its order.
		if raced, findErr := s.orderRepo.FindByQuotationID(ctx, quotation.ID); findErr == nil {
			return raced, nil
		}
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	if auditErr := writeAudit(ctx, s.auditRepo, nil, model.ActionCreateOrder,
		order.ID.String(), order.OrderNo,
		map[string]interface{}{
			"quotation_id": quotation.ID.String(),
			"total_amount": order.TotalAmount.StringFixed(2),
		}); auditErr != nil {
		return nil, auditErr
	}

	return order, nil
}

func (s *orderService) Get(ctx context.Context, actor Actor, id string) (OrderResponse, error) {
	order, err := s.findOrder(ctx, id)
	if err != nil {
		return OrderResponse{}, err
	}
	if !actor.IsStaff() && order.CustomerID != actor.ID {
		return OrderResponse{}, apperror.AccessDenied("order", "not your order")
	}
	return toOrderResponse(order), nil
}

func (s *orderService) List(ctx context.Context, actor Actor, statuses []string, page, limit int) ([]OrderResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	var customerID *uuid.UUID
	if !actor.IsStaff() {
		customerID = &actor.ID
	}

	orders, total, err := s.orderRepo.List(ctx, statuses, customerID, page, limit)
	if err != nil {
		return nil, 0, err
	}

	result := make([]OrderResponse, 0, len(orders))
	for i := range orders {
		result = append(result, toOrderResponse(&orders[i]))
	}
	return result, total, nil
}

// UpdateStatus is the back-office administrative transition. The order
// may only move forward through the fulfillment flow, and every forced
// advancement drags the coupled side effects (payment completion,
// production stamps) along with it.
func (s *orderService) UpdateStatus(ctx context.Context, actor Actor, id string, req UpdateOrderStatusRequest) (OrderResponse, error) {
	newRank, known := orderStatusRank[req.Status]
	if !known && req.Status != model.OrderStatusCancelled {
		return OrderResponse{}, apperror.Validation("unknown order status: " + req.Status)
	}
	if req.Status == model.OrderStatusCancelled {
		return s.Cancel(ctx, actor, id, CancelOrderRequest{Reason: req.Notes})
	}

	order, err := s.findOrder(ctx, id)
	if err != nil {
		return OrderResponse{}, err
	}

	currentRank, active := orderStatusRank[order.Status]
	if !active {
		return OrderResponse{}, apperror.InvalidTransition("order", order.Status, req.Status)
	}
	if newRank <= currentRank {
		return OrderResponse{}, apperror.InvalidTransition("order", order.Status, req.Status)
	}

	now := s.now()
	paymentWasCompleted := order.Payment.Status == model.PaymentStatusCompleted

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		ok, updErr := s.orderRepo.UpdateStatusIf(txCtx, order.ID,
			[]string{order.Status},
			map[string]interface{}{"status": req.Status})
		if updErr != nil {
			return updErr
		}
		if !ok {
			return apperror.InvalidTransition("order", order.Status, req.Status)
		}

		order.Status = req.Status
		sideEffectsFor(req.Status).apply(order, now, req.EstimatedDelivery)
		if req.Notes != "" {
			order.Notes = req.Notes
		}
		if saveErr := s.orderRepo.Save(txCtx, order); saveErr != nil {
			return saveErr
		}

		if mirrorErr := s.mirrorInquiry(txCtx, order); mirrorErr != nil {
			return mirrorErr
		}

		return writeAudit(txCtx, s.auditRepo, &actor.ID, model.ActionUpdateOrderStatus,
			order.ID.String(), order.OrderNo,
			map[string]interface{}{"status": req.Status})
	})
	if err != nil {
		return OrderResponse{}, err
	}

	s.notifyStatus(ctx, order, paymentWasCompleted)
	return toOrderResponse(order), nil
}

// Dispatch hands the order to a courier. Unlike UpdateStatus this is
// strict: only a ready_for_dispatch order can be dispatched, and
// courier plus tracking number are mandatory.
func (s *orderService) Dispatch(ctx context.Context, actor Actor, id string, req DispatchOrderRequest) (OrderResponse, error) {
	if req.Courier == "" || req.TrackingNumber == "" {
		return OrderResponse{}, apperror.Validation("courier and tracking number are required")
	}

	order, err := s.findOrder(ctx, id)
	if err != nil {
		return OrderResponse{}, err
	}
	if order.Status != model.OrderStatusReadyForDispatch {
		return OrderResponse{}, apperror.InvalidTransition("order", order.Status, model.OrderStatusDispatched)
	}

	now := s.now()
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		ok, updErr := s.orderRepo.UpdateStatusIf(txCtx, order.ID,
			[]string{model.OrderStatusReadyForDispatch},
			map[string]interface{}{"status": model.OrderStatusDispatched})
		if updErr != nil {
			return updErr
		}
		if !ok {
			return apperror.InvalidTransition("order", order.Status, model.OrderStatusDispatched)
		}

		order.Status = model.OrderStatusDispatched
		order.Dispatch.Courier = req.Courier
		order.Dispatch.TrackingNumber = req.TrackingNumber
		order.Dispatch.EstimatedDelivery = req.EstimatedDelivery
		order.Dispatch.Notes = req.Notes
		sideEffectsFor(model.OrderStatusDispatched).apply(order, now, nil)
		if saveErr := s.orderRepo.Save(txCtx, order); saveErr != nil {
			return saveErr
		}

		return writeAudit(txCtx, s.auditRepo, &actor.ID, model.ActionDispatchOrder,
			order.ID.String(), order.OrderNo,
			map[string]interface{}{"courier": req.Courier, "tracking_number": req.TrackingNumber})
	})
	if err != nil {
		return OrderResponse{}, err
	}

	s.events.customer(ctx, order.Customer, model.TemplateOrderDispatched, "order", order.ID.String(), notify.Payload{
		"order_no":        order.OrderNo,
		"courier":         req.Courier,
		"tracking_number": req.TrackingNumber,
	})
	return toOrderResponse(order), nil
}

// MarkDelivered closes the fulfillment flow. Strict: only a dispatched
// order can be delivered. The inquiry moves to completed with it.
func (s *orderService) MarkDelivered(ctx context.Context, actor Actor, id string) (OrderResponse, error) {
	order, err := s.findOrder(ctx, id)
	if err != nil {
		return OrderResponse{}, err
	}
	if order.Status != model.OrderStatusDispatched {
		return OrderResponse{}, apperror.InvalidTransition("order", order.Status, model.OrderStatusDelivered)
	}

	now := s.now()
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		ok, updErr := s.orderRepo.UpdateStatusIf(txCtx, order.ID,
			[]string{model.OrderStatusDispatched},
			map[string]interface{}{"status": model.OrderStatusDelivered})
		if updErr != nil {
			return updErr
		}
		if !ok {
			return apperror.InvalidTransition("order", order.Status, model.OrderStatusDelivered)
		}

		order.Status = model.OrderStatusDelivered
		sideEffectsFor(model.OrderStatusDelivered).apply(order, now, nil)
		if saveErr := s.orderRepo.Save(txCtx, order); saveErr != nil {
			return saveErr
		}

		if mirrorErr := s.mirrorInquiry(txCtx, order); mirrorErr != nil {
			return mirrorErr
		}

		return writeAudit(txCtx, s.auditRepo, &actor.ID, model.ActionDeliverOrder,
			order.ID.String(), order.OrderNo, nil)
	})
	if err != nil {
		return OrderResponse{}, err
	}

	s.events.customer(ctx, order.Customer, model.TemplateOrderDelivered, "order", order.ID.String(), notify.Payload{
		"order_no": order.OrderNo,
	})
	return toOrderResponse(order), nil
}

// Cancel aborts an order that has not yet left the shop. A completed
// payment flips to refunded as part of the same transition.
func (s *orderService) Cancel(ctx context.Context, actor Actor, id string, req CancelOrderRequest) (OrderResponse, error) {
	order, err := s.findOrder(ctx, id)
	if err != nil {
		return OrderResponse{}, err
	}
	if !actor.IsStaff() && order.CustomerID != actor.ID {
		return OrderResponse{}, apperror.AccessDenied("order", "not your order")
	}
	if !cancellableStatuses[order.Status] {
		return OrderResponse{}, apperror.InvalidTransition("order", order.Status, model.OrderStatusCancelled)
	}

	now := s.now()
	hadCompletedPayment := order.Payment.Status == model.PaymentStatusCompleted

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		fromStatuses := make([]string, 0, len(cancellableStatuses))
		for status := range cancellableStatuses {
			fromStatuses = append(fromStatuses, status)
		}

		ok, updErr := s.orderRepo.UpdateStatusIf(txCtx, order.ID,
			fromStatuses,
			map[string]interface{}{"status": model.OrderStatusCancelled})
		if updErr != nil {
			return updErr
		}
		if !ok {
			return apperror.InvalidTransition("order", order.Status, model.OrderStatusCancelled)
		}

		order.Status = model.OrderStatusCancelled
		order.CancelledAt = &now
		if hadCompletedPayment {
			sideEffectsFor(model.OrderStatusCancelled).apply(order, now, nil)
			order.Payment.RefundAmount = order.Payment.Amount
			order.Payment.RefundReason = req.Reason
		}
		if req.Reason != "" {
			order.Notes = req.Reason
		}
		if saveErr := s.orderRepo.Save(txCtx, order); saveErr != nil {
			return saveErr
		}

		return writeAudit(txCtx, s.auditRepo, &actor.ID, model.ActionCancelOrder,
			order.ID.String(), order.OrderNo,
			map[string]interface{}{"reason": req.Reason, "refunded": hadCompletedPayment})
	})
	if err != nil {
		return OrderResponse{}, err
	}

	s.events.backOffice(ctx, model.TemplateOrderConfirmed, "order", order.ID.String(), notify.Payload{
		"order_no": order.OrderNo,
		"status":   model.OrderStatusCancelled,
		"reason":   req.Reason,
	})
	return toOrderResponse(order), nil
}

// --- Helpers ---

// mirrorInquiry keeps the originating inquiry's status in step with the
// order as it moves through production and delivery.
func (s *orderService) mirrorInquiry(ctx context.Context, order *model.Order) error {
	var inquiryStatus string
	switch order.Status {
	case model.OrderStatusInProduction, model.OrderStatusReadyForDispatch, model.OrderStatusDispatched:
		inquiryStatus = model.InquiryStatusInProduction
	case model.OrderStatusDelivered:
		inquiryStatus = model.InquiryStatusCompleted
	default:
		return nil
	}

	inquiry, err := s.inquiryRepo.FindByID(ctx, order.InquiryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	if inquiry.Status == inquiryStatus {
		return nil
	}
	inquiry.Status = inquiryStatus
	return s.inquiryRepo.Save(ctx, inquiry)
}

// notifyStatus sends the per-transition customer message after an
// administrative status change has committed.
func (s *orderService) notifyStatus(ctx context.Context, order *model.Order, paymentWasCompleted bool) {
	payload := notify.Payload{
		"order_no": order.OrderNo,
		"status":   order.Status,
	}

	switch order.Status {
	case model.OrderStatusConfirmed:
		s.events.customer(ctx, order.Customer, model.TemplateOrderConfirmed, "order", order.ID.String(), payload)
	case model.OrderStatusDispatched:
		payload["tracking_number"] = order.Dispatch.TrackingNumber
		payload["courier"] = order.Dispatch.Courier
		s.events.customer(ctx, order.Customer, model.TemplateOrderDispatched, "order", order.ID.String(), payload)
	case model.OrderStatusDelivered:
		s.events.customer(ctx, order.Customer, model.TemplateOrderDelivered, "order", order.ID.String(), payload)
	default:
		s.events.backOffice(ctx, model.TemplateOrderConfirmed, "order", order.ID.String(), payload)
	}

	// A forced advancement that implicitly completed the payment still
	// owes the customer a receipt.
	if !paymentWasCompleted && order.Payment.Status == model.PaymentStatusCompleted {
		s.events.customer(ctx, order.Customer, model.TemplatePaymentReceived, "order", order.ID.String(), notify.Payload{
			"order_no": order.OrderNo,
			"amount":   order.Payment.Amount.StringFixed(2),
			"currency": order.Currency,
		})
	}
}

func (s *orderService) findOrder(ctx context.Context, id string) (*model.Order, error) {
	orderID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperror.Validation("invalid order id: " + err.Error())
	}

	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("order", id)
		}
		return nil, err
	}
	return order, nil
}

func toOrderResponse(o *model.Order) OrderResponse {
	items := make([]OrderItemResponse, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, OrderItemResponse{
			Material:    item.Material,
			ThicknessMM: item.ThicknessMM,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice.StringFixed(2),
			TotalPrice:  item.TotalPrice.StringFixed(2),
		})
	}

	return OrderResponse{
		ID:          o.ID.String(),
		OrderNo:     o.OrderNo,
		QuotationID: o.QuotationID.String(),
		InquiryID:   o.InquiryID.String(),
		CustomerID:  o.CustomerID.String(),
		Status:      o.Status,
		Items:       items,
		TotalAmount: o.TotalAmount.StringFixed(2),
		Currency:    o.Currency,
		Payment: PaymentResponse{
			Method:        o.Payment.Method,
			Status:        o.Payment.Status,
			TransactionID: o.Payment.TransactionID,
			Amount:        o.Payment.Amount.StringFixed(2),
			PaidAt:        formatTimePtr(o.Payment.PaidAt),
			Gateway:       o.Payment.Gateway,
			RefundAmount:  o.Payment.RefundAmount.StringFixed(2),
			RefundReason:  o.Payment.RefundReason,
		},
		Production: ProductionResponse{
			StartDate:           formatTimePtr(o.Production.StartDate),
			EstimatedCompletion: formatTimePtr(o.Production.EstimatedCompletion),
			ActualCompletion:    formatTimePtr(o.Production.ActualCompletion),
		},
		Dispatch: DispatchResponse{
			Courier:           o.Dispatch.Courier,
			TrackingNumber:    o.Dispatch.TrackingNumber,
			DispatchedAt:      formatTimePtr(o.Dispatch.DispatchedAt),
			EstimatedDelivery: formatTimePtr(o.Dispatch.EstimatedDelivery),
			ActualDelivery:    formatTimePtr(o.Dispatch.ActualDelivery),
			Notes:             o.Dispatch.Notes,
		},
		Address:     o.Address,
		Notes:       o.Notes,
		ConfirmedAt: formatTimePtr(o.ConfirmedAt),
		CancelledAt: formatTimePtr(o.CancelledAt),
		CreatedAt:   o.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   o.UpdatedAt.Format(time.RFC3339),
	}
}
