package service

import (
	"context"
	"time"

	"fabworks/internal/apperror"
	"fabworks/internal/model"
	"fabworks/internal/notify"
	"fabworks/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// amountTolerance absorbs float rounding between the gateway's reported
// amount and the stored decimal total. Anything beyond a cent is a
// mismatch.
var amountTolerance = decimal.NewFromFloat(0.01)

// --- DTOs ---

type InitializePaymentRequest struct {
	Method  string  `json:"method" binding:"required,oneof=bank_transfer card gateway manual"`
	Amount  float64 `json:"amount" binding:"required,gt=0"`
	Gateway string  `json:"gateway"`
}

type ConfirmPaymentRequest struct {
	TransactionID string  `json:"transaction_id" binding:"required"`
	Amount        float64 `json:"amount" binding:"required,gt=0"`
	Gateway       string  `json:"gateway"`
}

type FailPaymentRequest struct {
	Reason string `json:"reason"`
}

type RefundPaymentRequest struct {
	Amount float64 `json:"amount"`
	Reason string  `json:"reason" binding:"required"`
}

type VerifyGatewayRequest struct {
	TransactionID string `json:"transaction_id" binding:"required"`
	Gateway       string `json:"gateway" binding:"required"`
}

// GatewayResult is what an external payment gateway reports for a
// transaction lookup.
type GatewayResult struct {
	Valid  bool
	Amount float64
	Reason string
}

// GatewayVerifier checks a transaction against the external gateway.
type GatewayVerifier interface {
	Verify(ctx context.Context, gateway, transactionID string) (GatewayResult, error)
}

// --- Interface ---

type PaymentService interface {
	Initialize(ctx context.Context, actor Actor, orderID string, req InitializePaymentRequest) (OrderResponse, error)
	Confirm(ctx context.Context, actor Actor, orderID string, req ConfirmPaymentRequest) (OrderResponse, error)
	Fail(ctx context.Context, actor Actor, orderID string, req FailPaymentRequest) (OrderResponse, error)
	Refund(ctx context.Context, actor Actor, orderID string, req RefundPaymentRequest) (OrderResponse, error)
	VerifyGateway(ctx context.Context, actor Actor, orderID string, req VerifyGatewayRequest) (OrderResponse, error)
}

// quotationMarker is the slice of the quotation lifecycle the payment
// path needs: flipping accepted→order_created once the order confirms.
type quotationMarker interface {
	MarkOrderCreated(ctx context.Context, quotationID uuid.UUID) error
}

type paymentService struct {
	orderRepo  repository.OrderRepository
	auditRepo  repository.AuditRepository
	txManager  repository.TransactionManager
	quotations quotationMarker
	verifier   GatewayVerifier
	events     *WorkflowNotifier
	now        func() time.Time
}

func NewPaymentService(
	orderRepo repository.OrderRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	quotations quotationMarker,
	verifier GatewayVerifier,
	events *WorkflowNotifier,
) PaymentService {
	return &paymentService{
		orderRepo:  orderRepo,
		auditRepo:  auditRepo,
		txManager:  txManager,
		quotations: quotations,
		verifier:   verifier,
		events:     events,
		now:        time.Now,
	}
}

// --- Implementation ---

// Initialize records the chosen payment method on a pending order and
// moves the payment sub-state to processing. The announced amount must
// match the order total within a cent.
func (s *paymentService) Initialize(ctx context.Context, actor Actor, orderID string, req InitializePaymentRequest) (OrderResponse, error) {
	order, err := s.findPaymentOrder(ctx, actor, orderID)
	if err != nil {
		return OrderResponse{}, err
	}
	if order.Status != model.OrderStatusPending {
		return OrderResponse{}, apperror.InvalidTransition("order", order.Status, "payment initialization")
	}
	if order.Payment.Status != model.PaymentStatusPending && order.Payment.Status != model.PaymentStatusFailed {
		return OrderResponse{}, apperror.InvalidTransition("payment", order.Payment.Status, model.PaymentStatusProcessing)
	}

	announced := decimal.NewFromFloat(req.Amount)
	if announced.Sub(order.TotalAmount).Abs().GreaterThan(amountTolerance) {
		return OrderResponse{}, apperror.AmountMismatch("order", order.ID.String(),
			order.TotalAmount.StringFixed(2), announced.StringFixed(2))
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		order.Payment.Method = req.Method
		order.Payment.Amount = announced
		order.Payment.Gateway = req.Gateway
		order.Payment.Status = model.PaymentStatusProcessing
		if saveErr := s.orderRepo.Save(txCtx, order); saveErr != nil {
			return saveErr
		}

		return writeAudit(txCtx, s.auditRepo, &actor.ID, model.ActionInitializePayment,
			order.ID.String(), order.OrderNo,
			map[string]interface{}{"method": req.Method, "amount": announced.StringFixed(2), "gateway": req.Gateway})
	})
	if err != nil {
		return OrderResponse{}, err
	}

	return toOrderResponse(order), nil
}

// Confirm reconciles a settled payment against the order. The reported
// amount must match the order total within a cent. On success the order
// moves pending→confirmed, the payment completes, and the quotation is
// marked order_created. A replay with the same transaction id returns
// the already-confirmed order unchanged.
func (s *paymentService) Confirm(ctx context.Context, actor Actor, orderID string, req ConfirmPaymentRequest) (OrderResponse, error) {
	order, err := s.findPaymentOrder(ctx, actor, orderID)
	if err != nil {
		return OrderResponse{}, err
	}

	// Gateway retries and double-submits land here.
	if order.Payment.Status == model.PaymentStatusCompleted {
		if order.Payment.TransactionID == req.TransactionID {
			return toOrderResponse(order), nil
		}
		return OrderResponse{}, apperror.Duplicate("payment", order.ID.String(),
			"payment already completed with transaction "+order.Payment.TransactionID)
	}
	if order.Status != model.OrderStatusPending {
		return OrderResponse{}, apperror.InvalidTransition("order", order.Status, model.OrderStatusConfirmed)
	}

	reported := decimal.NewFromFloat(req.Amount)
	if reported.Sub(order.TotalAmount).Abs().GreaterThan(amountTolerance) {
		return OrderResponse{}, apperror.AmountMismatch("order", order.ID.String(),
			order.TotalAmount.StringFixed(2), reported.StringFixed(2))
	}

	now := s.now()
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		ok, updErr := s.orderRepo.UpdateStatusIf(txCtx, order.ID,
			[]string{model.OrderStatusPending},
			map[string]interface{}{"status": model.OrderStatusConfirmed})
		if updErr != nil {
			return updErr
		}
		if !ok {
			// A concurrent confirm won; re-read and resolve like a replay.
			refreshed, refErr := s.orderRepo.FindByID(txCtx, order.ID)
			if refErr != nil {
				return refErr
			}
			if refreshed.Payment.Status == model.PaymentStatusCompleted &&
				refreshed.Payment.TransactionID == req.TransactionID {
				*order = *refreshed
				return nil
			}
			return apperror.InvalidTransition("order", refreshed.Status, model.OrderStatusConfirmed)
		}

		order.Status = model.OrderStatusConfirmed
		order.Payment.Status = model.PaymentStatusCompleted
		order.Payment.TransactionID = req.TransactionID
		order.Payment.PaidAt = &now
		if req.Gateway != "" {
			order.Payment.Gateway = req.Gateway
		}
		if order.Payment.Method == "" || order.Payment.Method == model.PaymentMethodPending {
			order.Payment.Method = model.PaymentMethodGateway
		}
		if order.ConfirmedAt == nil {
			order.ConfirmedAt = &now
		}
		if saveErr := s.orderRepo.Save(txCtx, order); saveErr != nil {
			return saveErr
		}

		if markErr := s.quotations.MarkOrderCreated(txCtx, order.QuotationID); markErr != nil {
			return markErr
		}

		return writeAudit(txCtx, s.auditRepo, &actor.ID, model.ActionConfirmPayment,
			order.ID.String(), order.OrderNo,
			map[string]interface{}{
				"transaction_id": req.TransactionID,
				"amount":         reported.StringFixed(2),
			})
	})
	if err != nil {
		return OrderResponse{}, err
	}

	payload := notify.Payload{
		"order_no": order.OrderNo,
		"amount":   order.Payment.Amount.StringFixed(2),
		"currency": order.Currency,
	}
	s.events.customer(ctx, order.Customer, model.TemplatePaymentReceived, "order", order.ID.String(), payload)
	s.events.customer(ctx, order.Customer, model.TemplateOrderConfirmed, "order", order.ID.String(), notify.Payload{
		"order_no": order.OrderNo,
	})
	s.events.backOffice(ctx, model.TemplateOrderConfirmed, "order", order.ID.String(), payload)

	return toOrderResponse(order), nil
}

// Fail records a failed settlement attempt. The order stays pending so
// the customer can retry with another method.
func (s *paymentService) Fail(ctx context.Context, actor Actor, orderID string, req FailPaymentRequest) (OrderResponse, error) {
	order, err := s.findPaymentOrder(ctx, actor, orderID)
	if err != nil {
		return OrderResponse{}, err
	}
	if order.Payment.Status == model.PaymentStatusCompleted {
		return OrderResponse{}, apperror.InvalidTransition("payment", order.Payment.Status, model.PaymentStatusFailed)
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		order.Payment.Status = model.PaymentStatusFailed
		if saveErr := s.orderRepo.Save(txCtx, order); saveErr != nil {
			return saveErr
		}

		return writeAudit(txCtx, s.auditRepo, &actor.ID, model.ActionFailPayment,
			order.ID.String(), order.OrderNo,
			map[string]interface{}{"reason": req.Reason})
	})
	if err != nil {
		return OrderResponse{}, err
	}

	s.events.backOffice(ctx, model.TemplatePaymentReceived, "order", order.ID.String(), notify.Payload{
		"order_no": order.OrderNo,
		"status":   model.PaymentStatusFailed,
		"reason":   req.Reason,
	})
	return toOrderResponse(order), nil
}

// Refund returns money on a completed payment. A zero request amount
// refunds the full payment. Staff only.
func (s *paymentService) Refund(ctx context.Context, actor Actor, orderID string, req RefundPaymentRequest) (OrderResponse, error) {
	if !actor.IsStaff() {
		return OrderResponse{}, apperror.AccessDenied("payment", "only back-office staff may refund")
	}

	order, err := s.findOrderByID(ctx, orderID)
	if err != nil {
		return OrderResponse{}, err
	}
	if order.Payment.Status != model.PaymentStatusCompleted {
		return OrderResponse{}, apperror.InvalidTransition("payment", order.Payment.Status, model.PaymentStatusRefunded)
	}

	amount := decimal.NewFromFloat(req.Amount)
	if amount.IsZero() {
		amount = order.Payment.Amount
	}
	if amount.LessThanOrEqual(decimal.Zero) || amount.GreaterThan(order.Payment.Amount) {
		return OrderResponse{}, apperror.Validation("refund amount must be positive and at most the paid amount")
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		order.Payment.Status = model.PaymentStatusRefunded
		order.Payment.RefundAmount = amount
		order.Payment.RefundReason = req.Reason
		if saveErr := s.orderRepo.Save(txCtx, order); saveErr != nil {
			return saveErr
		}

		return writeAudit(txCtx, s.auditRepo, &actor.ID, model.ActionRefundPayment,
			order.ID.String(), order.OrderNo,
			map[string]interface{}{"amount": amount.StringFixed(2), "reason": req.Reason})
	})
	if err != nil {
		return OrderResponse{}, err
	}

	s.events.customer(ctx, order.Customer, model.TemplatePaymentReceived, "order", order.ID.String(), notify.Payload{
		"order_no": order.OrderNo,
		"status":   model.PaymentStatusRefunded,
		"amount":   amount.StringFixed(2),
		"currency": order.Currency,
	})
	return toOrderResponse(order), nil
}

// VerifyGateway asks the external gateway whether the transaction
// settled and, only on a valid result, runs the normal Confirm path
// with the gateway-reported amount. An invalid result mutates nothing.
func (s *paymentService) VerifyGateway(ctx context.Context, actor Actor, orderID string, req VerifyGatewayRequest) (OrderResponse, error) {
	result, err := s.verifier.Verify(ctx, req.Gateway, req.TransactionID)
	if err != nil {
		return OrderResponse{}, apperror.VerificationFailed("gateway lookup failed: " + err.Error())
	}
	if !result.Valid {
		reason := result.Reason
		if reason == "" {
			reason = "transaction not settled"
		}
		return OrderResponse{}, apperror.VerificationFailed(reason)
	}

	return s.Confirm(ctx, actor, orderID, ConfirmPaymentRequest{
		TransactionID: req.TransactionID,
		Amount:        result.Amount,
		Gateway:       req.Gateway,
	})
}

// --- Helpers ---

func (s *paymentService) findOrderByID(ctx context.Context, id string) (*model.Order, error) {
	orderID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperror.Validation("invalid order id: " + err.Error())
	}
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, apperror.NotFound("order", id)
	}
	return order, nil
}

// findPaymentOrder loads the order and enforces that non-staff actors
// may only touch their own payments.
func (s *paymentService) findPaymentOrder(ctx context.Context, actor Actor, id string) (*model.Order, error) {
	order, err := s.findOrderByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsStaff() && order.CustomerID != actor.ID {
		return nil, apperror.AccessDenied("order", "not your order")
	}
	return order, nil
}
