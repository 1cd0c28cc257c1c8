package service

import (
	"context"
	"errors"
	"testing"

	"fabworks/internal/apperror"
	"fabworks/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeMarker records which quotations the payment path flips to
// order_created.
type fakeMarker struct {
	marked []uuid.UUID
}

func (m *fakeMarker) MarkOrderCreated(_ context.Context, quotationID uuid.UUID) error {
	m.marked = append(m.marked, quotationID)
	return nil
}

type fakeVerifier struct {
	result GatewayResult
	err    error
}

func (v *fakeVerifier) Verify(_ context.Context, _, _ string) (GatewayResult, error) {
	return v.result, v.err
}

type paymentHarness struct {
	svc       *paymentService
	orderRepo *fakeOrderRepo
	marker    *fakeMarker
	verifier  *fakeVerifier
	delivered *recordingNotifier
	customer  *model.User
	order     *model.Order
	staff     Actor
	buyer     Actor
}

func newPaymentHarness(t *testing.T) *paymentHarness {
	t.Helper()

	customer := newTestCustomer()
	inquiry := newTestInquiry(customer)
	quotation := newTestQuotation(inquiry, model.QuotationStatusAccepted)
	order := newTestOrder(quotation, customer, model.OrderStatusPending)

	orderRepo := newFakeOrderRepo()
	require.NoError(t, orderRepo.Create(context.Background(), order))

	marker := &fakeMarker{}
	verifier := &fakeVerifier{}
	events, delivered, _ := newTestEvents(customer)

	svc := &paymentService{
		orderRepo:  orderRepo,
		auditRepo:  &fakeAuditRepo{},
		txManager:  fakeTxManager{},
		quotations: marker,
		verifier:   verifier,
		events:     events,
		now:        fixedNow,
	}

	return &paymentHarness{
		svc:       svc,
		orderRepo: orderRepo,
		marker:    marker,
		verifier:  verifier,
		delivered: delivered,
		customer:  customer,
		order:     order,
		staff:     Actor{ID: newTestCustomer().ID, Role: model.RoleBackOffice},
		buyer:     Actor{ID: customer.ID, Role: model.RoleCustomer},
	}
}

func TestInitializePayment(t *testing.T) {
	h := newPaymentHarness(t)

	resp, err := h.svc.Initialize(context.Background(), h.buyer, h.order.ID.String(),
		InitializePaymentRequest{Method: model.PaymentMethodGateway, Amount: 625, Gateway: "razorpay"})
	require.NoError(t, err)

	assert.Equal(t, model.PaymentStatusProcessing, resp.Payment.Status)
	assert.Equal(t, model.PaymentMethodGateway, resp.Payment.Method)
	assert.Equal(t, "625.00", resp.Payment.Amount)
	assert.Equal(t, "razorpay", resp.Payment.Gateway)
	assert.Equal(t, model.OrderStatusPending, resp.Status)
}

func TestInitializeAmountMismatch(t *testing.T) {
	h := newPaymentHarness(t)

	_, err := h.svc.Initialize(context.Background(), h.buyer, h.order.ID.String(),
		InitializePaymentRequest{Method: model.PaymentMethodCard, Amount: 600})
	assert.Equal(t, apperror.KindAmountMismatch, apperror.KindOf(err))
	assert.Equal(t, model.PaymentStatusPending, h.order.Payment.Status)

	// A cent of rounding slack is tolerated.
	_, err = h.svc.Initialize(context.Background(), h.buyer, h.order.ID.String(),
		InitializePaymentRequest{Method: model.PaymentMethodCard, Amount: 625.004})
	require.NoError(t, err)
}

func TestInitializeRequiresPendingOrder(t *testing.T) {
	h := newPaymentHarness(t)
	h.order.Status = model.OrderStatusConfirmed

	_, err := h.svc.Initialize(context.Background(), h.buyer, h.order.ID.String(),
		InitializePaymentRequest{Method: model.PaymentMethodCard, Amount: 625})
	assert.Equal(t, apperror.KindInvalidStateTransition, apperror.KindOf(err))
}

func TestConfirmPayment(t *testing.T) {
	h := newPaymentHarness(t)

	resp, err := h.svc.Confirm(context.Background(), h.buyer, h.order.ID.String(),
		ConfirmPaymentRequest{TransactionID: "txn-001", Amount: 625, Gateway: "razorpay"})
	require.NoError(t, err)

	assert.Equal(t, model.OrderStatusConfirmed, resp.Status)
	assert.Equal(t, model.PaymentStatusCompleted, resp.Payment.Status)
	assert.Equal(t, "txn-001", resp.Payment.TransactionID)
	require.NotNil(t, resp.Payment.PaidAt)
	require.NotNil(t, resp.ConfirmedAt)

	// The quotation follows the order into order_created.
	require.Len(t, h.marker.marked, 1)
	assert.Equal(t, h.order.QuotationID, h.marker.marked[0])

	// Receipt and confirmation both reach the customer.
	assert.Contains(t, h.delivered.templates(model.ChannelEmail), model.TemplatePaymentReceived)
	assert.Contains(t, h.delivered.templates(model.ChannelEmail), model.TemplateOrderConfirmed)
}

func TestConfirmReplaySameTransaction(t *testing.T) {
	h := newPaymentHarness(t)
	ctx := context.Background()
	req := ConfirmPaymentRequest{TransactionID: "txn-001", Amount: 625}

	_, err := h.svc.Confirm(ctx, h.buyer, h.order.ID.String(), req)
	require.NoError(t, err)

	// Gateway retry with the same transaction id succeeds unchanged.
	resp, err := h.svc.Confirm(ctx, h.buyer, h.order.ID.String(), req)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusConfirmed, resp.Status)
	assert.Len(t, h.marker.marked, 1, "replay must not re-mark the quotation")

	// A different transaction against a settled payment is a conflict.
	_, err = h.svc.Confirm(ctx, h.buyer, h.order.ID.String(),
		ConfirmPaymentRequest{TransactionID: "txn-999", Amount: 625})
	assert.Equal(t, apperror.KindDuplicateResource, apperror.KindOf(err))
}

func TestConfirmAmountMismatch(t *testing.T) {
	h := newPaymentHarness(t)
	ctx := context.Background()

	_, err := h.svc.Confirm(ctx, h.buyer, h.order.ID.String(),
		ConfirmPaymentRequest{TransactionID: "txn-001", Amount: 600})
	assert.Equal(t, apperror.KindAmountMismatch, apperror.KindOf(err))
	assert.Equal(t, model.OrderStatusPending, h.order.Status, "mismatch must not move the order")

	// Sub-cent drift from float conversion is absorbed.
	resp, err := h.svc.Confirm(ctx, h.buyer, h.order.ID.String(),
		ConfirmPaymentRequest{TransactionID: "txn-001", Amount: 625.004})
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusConfirmed, resp.Status)
}

func TestFailPayment(t *testing.T) {
	h := newPaymentHarness(t)
	ctx := context.Background()

	resp, err := h.svc.Fail(ctx, h.buyer, h.order.ID.String(), FailPaymentRequest{Reason: "card declined"})
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusFailed, resp.Payment.Status)
	assert.Equal(t, model.OrderStatusPending, resp.Status, "a failed settlement keeps the order open for retry")

	// The customer can settle on a second attempt.
	resp, err = h.svc.Confirm(ctx, h.buyer, h.order.ID.String(),
		ConfirmPaymentRequest{TransactionID: "txn-002", Amount: 625})
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusCompleted, resp.Payment.Status)

	// But a completed payment cannot be failed after the fact.
	_, err = h.svc.Fail(ctx, h.buyer, h.order.ID.String(), FailPaymentRequest{})
	assert.Equal(t, apperror.KindInvalidStateTransition, apperror.KindOf(err))
}

func TestRefundPayment(t *testing.T) {
	h := newPaymentHarness(t)
	ctx := context.Background()
	_, err := h.svc.Confirm(ctx, h.buyer, h.order.ID.String(),
		ConfirmPaymentRequest{TransactionID: "txn-001", Amount: 625})
	require.NoError(t, err)

	// Customers cannot refund themselves.
	_, err = h.svc.Refund(ctx, h.buyer, h.order.ID.String(), RefundPaymentRequest{Reason: "oops"})
	assert.Equal(t, apperror.KindAccessDenied, apperror.KindOf(err))

	// Zero amount means a full refund.
	resp, err := h.svc.Refund(ctx, h.staff, h.order.ID.String(), RefundPaymentRequest{Reason: "order cancelled"})
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusRefunded, resp.Payment.Status)
	assert.Equal(t, "625.00", resp.Payment.RefundAmount)
	assert.Equal(t, "order cancelled", resp.Payment.RefundReason)
}

func TestRefundGuards(t *testing.T) {
	h := newPaymentHarness(t)
	ctx := context.Background()

	// Nothing settled yet.
	_, err := h.svc.Refund(ctx, h.staff, h.order.ID.String(), RefundPaymentRequest{Reason: "n/a"})
	assert.Equal(t, apperror.KindInvalidStateTransition, apperror.KindOf(err))

	_, err = h.svc.Confirm(ctx, h.buyer, h.order.ID.String(),
		ConfirmPaymentRequest{TransactionID: "txn-001", Amount: 625})
	require.NoError(t, err)

	_, err = h.svc.Refund(ctx, h.staff, h.order.ID.String(),
		RefundPaymentRequest{Amount: 700, Reason: "too much"})
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
}

func TestVerifyGatewaySettled(t *testing.T) {
	h := newPaymentHarness(t)
	h.verifier.result = GatewayResult{Valid: true, Amount: 625}

	resp, err := h.svc.VerifyGateway(context.Background(), h.buyer, h.order.ID.String(),
		VerifyGatewayRequest{TransactionID: "txn-001", Gateway: "razorpay"})
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusConfirmed, resp.Status)
	assert.Equal(t, "razorpay", resp.Payment.Gateway)
}

func TestVerifyGatewayRejections(t *testing.T) {
	h := newPaymentHarness(t)
	ctx := context.Background()

	h.verifier.result = GatewayResult{Valid: false, Reason: "transaction voided"}
	_, err := h.svc.VerifyGateway(ctx, h.buyer, h.order.ID.String(),
		VerifyGatewayRequest{TransactionID: "txn-001", Gateway: "razorpay"})
	assert.Equal(t, apperror.KindVerificationFailed, apperror.KindOf(err))
	assert.Equal(t, model.OrderStatusPending, h.order.Status)

	h.verifier.result = GatewayResult{}
	h.verifier.err = errors.New("gateway timeout")
	_, err = h.svc.VerifyGateway(ctx, h.buyer, h.order.ID.String(),
		VerifyGatewayRequest{TransactionID: "txn-001", Gateway: "razorpay"})
	assert.Equal(t, apperror.KindVerificationFailed, apperror.KindOf(err))
}
