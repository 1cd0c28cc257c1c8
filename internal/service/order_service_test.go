package service

import (
	"context"
	"testing"
	"time"

	"fabworks/internal/apperror"
	"fabworks/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type orderHarness struct {
	svc       *orderService
	orderRepo *fakeOrderRepo
	inqRepo   *fakeInquiryRepo
	audit     *fakeAuditRepo
	delivered *recordingNotifier
	customer  *model.User
	inquiry   *model.Inquiry
	quotation *model.Quotation
	staff     Actor
	buyer     Actor
}

func newOrderHarness(t *testing.T) *orderHarness {
	t.Helper()

	customer := newTestCustomer()
	inquiry := newTestInquiry(customer)
	inquiry.Status = model.InquiryStatusAccepted
	quotation := newTestQuotation(inquiry, model.QuotationStatusAccepted)

	orderRepo := newFakeOrderRepo()
	inqRepo := newFakeInquiryRepo()
	audit := &fakeAuditRepo{}
	require.NoError(t, inqRepo.Create(context.Background(), inquiry))

	events, delivered, _ := newTestEvents(customer)

	svc := &orderService{
		orderRepo:   orderRepo,
		inquiryRepo: inqRepo,
		auditRepo:   audit,
		txManager:   fakeTxManager{},
		events:      events,
		now:         fixedNow,
	}

	return &orderHarness{
		svc:       svc,
		orderRepo: orderRepo,
		inqRepo:   inqRepo,
		audit:     audit,
		delivered: delivered,
		customer:  customer,
		inquiry:   inquiry,
		quotation: quotation,
		staff:     Actor{ID: newTestCustomer().ID, Role: model.RoleBackOffice},
		buyer:     Actor{ID: customer.ID, Role: model.RoleCustomer},
	}
}

// seedOrder places an order directly in the repo, bypassing the
// acceptance flow, so transitions can start from any state.
func (h *orderHarness) seedOrder(t *testing.T, status string) *model.Order {
	t.Helper()
	order := newTestOrder(h.quotation, h.customer, status)
	order.InquiryID = h.inquiry.ID
	require.NoError(t, h.orderRepo.Create(context.Background(), order))
	return order
}

func TestCreateFromAcceptedQuotationSnapshots(t *testing.T) {
	h := newOrderHarness(t)
	ctx := context.Background()

	order, err := h.svc.CreateFromAcceptedQuotation(ctx, h.quotation, h.inquiry)
	require.NoError(t, err)

	assert.Equal(t, model.OrderStatusPending, order.Status)
	assert.Equal(t, h.customer.ID, order.CustomerID)
	assert.True(t, order.TotalAmount.Equal(h.quotation.TotalAmount))
	assert.Equal(t, h.inquiry.Address, order.Address)
	assert.Equal(t, model.PaymentStatusPending, order.Payment.Status)
	assert.True(t, order.Payment.Amount.Equal(h.quotation.TotalAmount))

	// The snapshot is independent: repricing the quotation afterwards
	// must not touch the order.
	h.quotation.Items[0].UnitPrice = decimal.NewFromInt(999)
	h.quotation.TotalAmount = decimal.NewFromInt(49950)
	stored, err := h.orderRepo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "12.5", stored.Items[0].UnitPrice.String())
	assert.Equal(t, "625", stored.TotalAmount.String())
}

func TestCreateFromAcceptedQuotationIdempotent(t *testing.T) {
	h := newOrderHarness(t)
	ctx := context.Background()

	first, err := h.svc.CreateFromAcceptedQuotation(ctx, h.quotation, h.inquiry)
	require.NoError(t, err)
	second, err := h.svc.CreateFromAcceptedQuotation(ctx, h.quotation, h.inquiry)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	_, total, err := h.orderRepo.List(ctx, nil, nil, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
}

func TestUpdateStatusConfirmCompletesPayment(t *testing.T) {
	h := newOrderHarness(t)
	order := h.seedOrder(t, model.OrderStatusPending)

	resp, err := h.svc.UpdateStatus(context.Background(), h.staff, order.ID.String(),
		UpdateOrderStatusRequest{Status: model.OrderStatusConfirmed})
	require.NoError(t, err)

	assert.Equal(t, model.OrderStatusConfirmed, resp.Status)
	assert.Equal(t, model.PaymentStatusCompleted, resp.Payment.Status)
	require.NotNil(t, resp.Payment.PaidAt)
	require.NotNil(t, resp.ConfirmedAt)
	// An administrative confirmation without a gateway event defaults
	// the method to bank transfer.
	assert.Equal(t, model.PaymentMethodBankTransfer, resp.Payment.Method)

	// The implicit payment completion owes the customer a receipt.
	assert.Contains(t, h.delivered.templates(model.ChannelEmail), model.TemplatePaymentReceived)
	assert.Contains(t, h.delivered.templates(model.ChannelEmail), model.TemplateOrderConfirmed)
}

func TestUpdateStatusForwardOnly(t *testing.T) {
	h := newOrderHarness(t)
	order := h.seedOrder(t, model.OrderStatusInProduction)
	ctx := context.Background()

	_, err := h.svc.UpdateStatus(ctx, h.staff, order.ID.String(),
		UpdateOrderStatusRequest{Status: model.OrderStatusConfirmed})
	assert.Equal(t, apperror.KindInvalidStateTransition, apperror.KindOf(err))

	_, err = h.svc.UpdateStatus(ctx, h.staff, order.ID.String(),
		UpdateOrderStatusRequest{Status: model.OrderStatusInProduction})
	assert.Equal(t, apperror.KindInvalidStateTransition, apperror.KindOf(err))

	_, err = h.svc.UpdateStatus(ctx, h.staff, order.ID.String(),
		UpdateOrderStatusRequest{Status: "melted"})
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
}

func TestUpdateStatusSkipAheadDragsSideEffects(t *testing.T) {
	h := newOrderHarness(t)
	order := h.seedOrder(t, model.OrderStatusPending)

	eta := testTime.AddDate(0, 0, 10)
	resp, err := h.svc.UpdateStatus(context.Background(), h.staff, order.ID.String(),
		UpdateOrderStatusRequest{Status: model.OrderStatusInProduction, EstimatedDelivery: &eta})
	require.NoError(t, err)

	assert.Equal(t, model.OrderStatusInProduction, resp.Status)
	assert.Equal(t, model.PaymentStatusCompleted, resp.Payment.Status)
	require.NotNil(t, resp.Production.StartDate)
	require.NotNil(t, resp.Production.EstimatedCompletion)

	// The inquiry follows the order onto the shop floor.
	inquiry, err := h.inqRepo.FindByID(context.Background(), h.inquiry.ID)
	require.NoError(t, err)
	assert.Equal(t, model.InquiryStatusInProduction, inquiry.Status)
}

func TestUpdateStatusForcedDispatch(t *testing.T) {
	h := newOrderHarness(t)
	order := h.seedOrder(t, model.OrderStatusPending)

	// Administrative push straight from pending to dispatched still
	// settles the payment and stamps the dispatch time.
	resp, err := h.svc.UpdateStatus(context.Background(), h.staff, order.ID.String(),
		UpdateOrderStatusRequest{Status: model.OrderStatusDispatched})
	require.NoError(t, err)

	assert.Equal(t, model.OrderStatusDispatched, resp.Status)
	assert.Equal(t, model.PaymentStatusCompleted, resp.Payment.Status)

	stored, err := h.orderRepo.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.Dispatch.DispatchedAt)
	require.NotNil(t, stored.Payment.PaidAt)
	assert.Equal(t, model.PaymentMethodBankTransfer, stored.Payment.Method)
}

func TestDispatchRequiresReadyState(t *testing.T) {
	h := newOrderHarness(t)
	ctx := context.Background()

	confirmed := h.seedOrder(t, model.OrderStatusConfirmed)
	_, err := h.svc.Dispatch(ctx, h.staff, confirmed.ID.String(),
		DispatchOrderRequest{Courier: "BlueDart", TrackingNumber: "BD123"})
	assert.Equal(t, apperror.KindInvalidStateTransition, apperror.KindOf(err))
}

func TestDispatchStampsCourierDetails(t *testing.T) {
	h := newOrderHarness(t)
	order := h.seedOrder(t, model.OrderStatusReadyForDispatch)
	eta := testTime.AddDate(0, 0, 3)

	resp, err := h.svc.Dispatch(context.Background(), h.staff, order.ID.String(),
		DispatchOrderRequest{Courier: "BlueDart", TrackingNumber: "BD123", EstimatedDelivery: &eta})
	require.NoError(t, err)

	assert.Equal(t, model.OrderStatusDispatched, resp.Status)
	assert.Equal(t, "BlueDart", resp.Dispatch.Courier)
	assert.Equal(t, "BD123", resp.Dispatch.TrackingNumber)
	require.NotNil(t, resp.Dispatch.DispatchedAt)
	assert.Contains(t, h.delivered.templates(model.ChannelEmail), model.TemplateOrderDispatched)
}

func TestDispatchRequiresCourierAndTracking(t *testing.T) {
	h := newOrderHarness(t)
	order := h.seedOrder(t, model.OrderStatusReadyForDispatch)

	_, err := h.svc.Dispatch(context.Background(), h.staff, order.ID.String(),
		DispatchOrderRequest{Courier: "BlueDart"})
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
}

func TestMarkDelivered(t *testing.T) {
	h := newOrderHarness(t)
	ctx := context.Background()
	order := h.seedOrder(t, model.OrderStatusDispatched)

	resp, err := h.svc.MarkDelivered(ctx, h.staff, order.ID.String())
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusDelivered, resp.Status)
	require.NotNil(t, resp.Dispatch.ActualDelivery)

	inquiry, err := h.inqRepo.FindByID(ctx, h.inquiry.ID)
	require.NoError(t, err)
	assert.Equal(t, model.InquiryStatusCompleted, inquiry.Status)

	// Delivery is terminal for this path.
	_, err = h.svc.MarkDelivered(ctx, h.staff, order.ID.String())
	assert.Equal(t, apperror.KindInvalidStateTransition, apperror.KindOf(err))
}

func TestCancelRefundsCompletedPayment(t *testing.T) {
	h := newOrderHarness(t)
	order := h.seedOrder(t, model.OrderStatusConfirmed)
	paid := testTime.Add(-time.Hour)
	order.Payment.Status = model.PaymentStatusCompleted
	order.Payment.PaidAt = &paid

	resp, err := h.svc.Cancel(context.Background(), h.buyer, order.ID.String(),
		CancelOrderRequest{Reason: "design change"})
	require.NoError(t, err)

	assert.Equal(t, model.OrderStatusCancelled, resp.Status)
	require.NotNil(t, resp.CancelledAt)
	assert.Equal(t, model.PaymentStatusRefunded, resp.Payment.Status)
	assert.Equal(t, resp.Payment.Amount, resp.Payment.RefundAmount)
	assert.Equal(t, "design change", resp.Payment.RefundReason)
}

func TestCancelUnpaidOrderSkipsRefund(t *testing.T) {
	h := newOrderHarness(t)
	order := h.seedOrder(t, model.OrderStatusPending)

	resp, err := h.svc.Cancel(context.Background(), h.buyer, order.ID.String(), CancelOrderRequest{})
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusCancelled, resp.Status)
	assert.Equal(t, model.PaymentStatusPending, resp.Payment.Status)
}

func TestCancelGuards(t *testing.T) {
	h := newOrderHarness(t)
	ctx := context.Background()

	dispatched := h.seedOrder(t, model.OrderStatusDispatched)
	_, err := h.svc.Cancel(ctx, h.staff, dispatched.ID.String(), CancelOrderRequest{})
	assert.Equal(t, apperror.KindInvalidStateTransition, apperror.KindOf(err))

	stranger := Actor{ID: newTestCustomer().ID, Role: model.RoleCustomer}
	_, err = h.svc.Cancel(ctx, stranger, dispatched.ID.String(), CancelOrderRequest{})
	assert.Equal(t, apperror.KindAccessDenied, apperror.KindOf(err))
}

func TestUpdateStatusCancelledDelegates(t *testing.T) {
	h := newOrderHarness(t)
	order := h.seedOrder(t, model.OrderStatusPending)

	resp, err := h.svc.UpdateStatus(context.Background(), h.staff, order.ID.String(),
		UpdateOrderStatusRequest{Status: model.OrderStatusCancelled, Notes: "duplicate order"})
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusCancelled, resp.Status)
	assert.Equal(t, "duplicate order", resp.Notes)
}

func TestOrderOwnership(t *testing.T) {
	h := newOrderHarness(t)
	ctx := context.Background()
	order := h.seedOrder(t, model.OrderStatusPending)

	_, err := h.svc.Get(ctx, h.buyer, order.ID.String())
	require.NoError(t, err)

	stranger := Actor{ID: newTestCustomer().ID, Role: model.RoleCustomer}
	_, err = h.svc.Get(ctx, stranger, order.ID.String())
	assert.Equal(t, apperror.KindAccessDenied, apperror.KindOf(err))

	// Customers only see their own orders in lists; staff see all.
	mine, total, err := h.svc.List(ctx, h.buyer, nil, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, mine, 1)

	none, total, err := h.svc.List(ctx, stranger, nil, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 0, total)
	assert.Empty(t, none)
}
