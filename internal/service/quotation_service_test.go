package service

import (
	"context"
	"testing"
	"time"

	"fabworks/internal/apperror"
	"fabworks/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type quotationHarness struct {
	svc       *quotationService
	orders    *orderService
	quotRepo  *fakeQuotationRepo
	inqRepo   *fakeInquiryRepo
	orderRepo *fakeOrderRepo
	audit     *fakeAuditRepo
	delivered *recordingNotifier
	customer  *model.User
	inquiry   *model.Inquiry
	staff     Actor
	buyer     Actor
}

func newQuotationHarness(t *testing.T) *quotationHarness {
	t.Helper()

	customer := newTestCustomer()
	inquiry := newTestInquiry(customer)

	inqRepo := newFakeInquiryRepo()
	quotRepo := newFakeQuotationRepo(inqRepo)
	orderRepo := newFakeOrderRepo()
	audit := &fakeAuditRepo{}
	require.NoError(t, inqRepo.Create(context.Background(), inquiry))

	events, delivered, _ := newTestEvents(customer)

	orders := &orderService{
		orderRepo:   orderRepo,
		inquiryRepo: inqRepo,
		auditRepo:   audit,
		txManager:   fakeTxManager{},
		events:      events,
		now:         fixedNow,
	}
	svc := &quotationService{
		quotationRepo: quotRepo,
		inquiryRepo:   inqRepo,
		auditRepo:     audit,
		txManager:     fakeTxManager{},
		orders:        orders,
		events:        events,
		now:           fixedNow,
	}

	return &quotationHarness{
		svc:       svc,
		orders:    orders,
		quotRepo:  quotRepo,
		inqRepo:   inqRepo,
		orderRepo: orderRepo,
		audit:     audit,
		delivered: delivered,
		customer:  customer,
		inquiry:   inquiry,
		staff:     Actor{ID: newTestCustomer().ID, Role: model.RoleBackOffice},
		buyer:     Actor{ID: customer.ID, Role: model.RoleCustomer},
	}
}

func draftRequest(h *quotationHarness) CreateQuotationRequest {
	return CreateQuotationRequest{
		InquiryID: h.inquiry.ID.String(),
		Items: []QuotationLineRequest{
			{Material: "SS304", ThicknessMM: 2.0, Quantity: 50, UnitPrice: 12.50},
		},
		Terms: "Net 30",
	}
}

func TestCreateQuotationDraft(t *testing.T) {
	h := newQuotationHarness(t)

	resp, err := h.svc.Create(context.Background(), h.staff, draftRequest(h))
	require.NoError(t, err)

	assert.Equal(t, model.QuotationStatusDraft, resp.Status)
	assert.Equal(t, "625.00", resp.TotalAmount)
	assert.Equal(t, "USD", resp.Currency)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "12.50", resp.Items[0].UnitPrice)
	assert.Equal(t, "625.00", resp.Items[0].TotalPrice)

	// The inquiry now mirrors the priced state.
	inquiry, err := h.inqRepo.FindByID(context.Background(), h.inquiry.ID)
	require.NoError(t, err)
	assert.Equal(t, model.InquiryStatusQuoted, inquiry.Status)
	require.NotNil(t, inquiry.QuotationID)
	assert.Equal(t, resp.ID, inquiry.QuotationID.String())
}

func TestCreateQuotationDefaultValidity(t *testing.T) {
	h := newQuotationHarness(t)

	resp, err := h.svc.Create(context.Background(), h.staff, draftRequest(h))
	require.NoError(t, err)

	want := testTime.AddDate(0, 0, model.QuotationValidityDays).Format(time.RFC3339)
	assert.Equal(t, want, resp.ValidUntil)
}

func TestCreateQuotationPricingModeGuards(t *testing.T) {
	h := newQuotationHarness(t)

	req := draftRequest(h)
	req.UploadMode = true
	_, err := h.svc.Create(context.Background(), h.staff, req)
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))

	req = CreateQuotationRequest{InquiryID: h.inquiry.ID.String()}
	_, err = h.svc.Create(context.Background(), h.staff, req)
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))

	req = CreateQuotationRequest{InquiryID: h.inquiry.ID.String(), UploadMode: true}
	_, err = h.svc.Create(context.Background(), h.staff, req)
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
}

func TestCreateQuotationUploadMode(t *testing.T) {
	h := newQuotationHarness(t)

	resp, err := h.svc.Create(context.Background(), h.staff, CreateQuotationRequest{
		InquiryID:   h.inquiry.ID.String(),
		UploadMode:  true,
		TotalAmount: 1200,
		DocumentURL: "https://files.test/quote.pdf",
	})
	require.NoError(t, err)
	assert.True(t, resp.UploadMode)
	assert.Equal(t, "1200.00", resp.TotalAmount)
	assert.Empty(t, resp.Items)
}

func TestCreateQuotationUpdatesExistingDraft(t *testing.T) {
	h := newQuotationHarness(t)
	ctx := context.Background()

	first, err := h.svc.Create(ctx, h.staff, draftRequest(h))
	require.NoError(t, err)

	req := draftRequest(h)
	req.Items[0].UnitPrice = 15
	second, err := h.svc.Create(ctx, h.staff, req)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID, "draft update must not create a new quotation")
	assert.Equal(t, "750.00", second.TotalAmount)

	_, total, err := h.quotRepo.List(ctx, nil, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
}

func TestCreateQuotationDuplicateAfterSend(t *testing.T) {
	h := newQuotationHarness(t)
	ctx := context.Background()

	first, err := h.svc.Create(ctx, h.staff, draftRequest(h))
	require.NoError(t, err)
	_, err = h.svc.Send(ctx, h.staff, first.ID)
	require.NoError(t, err)

	_, err = h.svc.Create(ctx, h.staff, draftRequest(h))
	assert.Equal(t, apperror.KindDuplicateResource, apperror.KindOf(err))
	assert.Equal(t, first.ID, apperror.ExistingID(err))
}

func TestSendQuotation(t *testing.T) {
	h := newQuotationHarness(t)
	ctx := context.Background()

	draft, err := h.svc.Create(ctx, h.staff, draftRequest(h))
	require.NoError(t, err)

	sent, err := h.svc.Send(ctx, h.staff, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, model.QuotationStatusSent, sent.Status)
	require.NotNil(t, sent.SentAt)

	// The customer hears about it on both channels.
	assert.Contains(t, h.delivered.templates(model.ChannelEmail), model.TemplateQuotationReady)
	assert.Contains(t, h.delivered.templates(model.ChannelSMS), model.TemplateQuotationReady)

	// A second send is not a transition that exists.
	_, err = h.svc.Send(ctx, h.staff, draft.ID)
	assert.Equal(t, apperror.KindInvalidStateTransition, apperror.KindOf(err))
}

func sendDraft(t *testing.T, h *quotationHarness) QuotationResponse {
	t.Helper()
	ctx := context.Background()
	draft, err := h.svc.Create(ctx, h.staff, draftRequest(h))
	require.NoError(t, err)
	sent, err := h.svc.Send(ctx, h.staff, draft.ID)
	require.NoError(t, err)
	return sent
}

func TestRespondAcceptCreatesOrder(t *testing.T) {
	h := newQuotationHarness(t)
	ctx := context.Background()
	sent := sendDraft(t, h)

	result, err := h.svc.Respond(ctx, h.buyer, sent.ID, RespondQuotationRequest{Decision: "accepted"})
	require.NoError(t, err)

	assert.Equal(t, model.QuotationStatusAccepted, result.Quotation.Status)
	require.NotNil(t, result.Order)
	assert.Equal(t, model.OrderStatusPending, result.Order.Status)
	assert.Equal(t, "625.00", result.Order.TotalAmount)
	assert.Equal(t, h.customer.ID.String(), result.Order.CustomerID)
	assert.Equal(t, model.PaymentStatusPending, result.Order.Payment.Status)
	require.Len(t, result.Order.Items, 1)

	inquiry, err := h.inqRepo.FindByID(ctx, h.inquiry.ID)
	require.NoError(t, err)
	assert.Equal(t, model.InquiryStatusAccepted, inquiry.Status)
}

func TestRespondAcceptIsIdempotent(t *testing.T) {
	h := newQuotationHarness(t)
	ctx := context.Background()
	sent := sendDraft(t, h)

	first, err := h.svc.Respond(ctx, h.buyer, sent.ID, RespondQuotationRequest{Decision: "accepted"})
	require.NoError(t, err)

	second, err := h.svc.Respond(ctx, h.buyer, sent.ID, RespondQuotationRequest{Decision: "accepted"})
	require.NoError(t, err)

	require.NotNil(t, second.Order)
	assert.Equal(t, first.Order.ID, second.Order.ID, "retried acceptance must return the existing order")

	_, total, err := h.orderRepo.List(ctx, nil, nil, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
}

func TestRespondReject(t *testing.T) {
	h := newQuotationHarness(t)
	ctx := context.Background()
	sent := sendDraft(t, h)

	result, err := h.svc.Respond(ctx, h.buyer, sent.ID, RespondQuotationRequest{
		Decision: "rejected",
		Notes:    "tooling cost too high",
	})
	require.NoError(t, err)
	assert.Equal(t, model.QuotationStatusRejected, result.Quotation.Status)
	assert.Equal(t, "tooling cost too high", result.Quotation.RejectionNotes)
	assert.Nil(t, result.Order)

	inquiry, err := h.inqRepo.FindByID(ctx, h.inquiry.ID)
	require.NoError(t, err)
	assert.Equal(t, model.InquiryStatusRejected, inquiry.Status)

	// A rejection is final.
	_, err = h.svc.Respond(ctx, h.buyer, sent.ID, RespondQuotationRequest{Decision: "accepted"})
	assert.Equal(t, apperror.KindInvalidStateTransition, apperror.KindOf(err))
}

func TestRespondExpiredQuotation(t *testing.T) {
	h := newQuotationHarness(t)
	ctx := context.Background()
	sent := sendDraft(t, h)

	// Push the clock past the validity window.
	h.svc.now = func() time.Time { return testTime.AddDate(0, 0, model.QuotationValidityDays+1) }

	_, err := h.svc.Respond(ctx, h.buyer, sent.ID, RespondQuotationRequest{Decision: "accepted"})
	assert.Equal(t, apperror.KindQuotationExpired, apperror.KindOf(err))

	stored, err := h.svc.Get(ctx, h.staff, sent.ID)
	require.NoError(t, err)
	assert.Equal(t, model.QuotationStatusExpired, stored.Status)
}

func TestRespondOwnership(t *testing.T) {
	h := newQuotationHarness(t)
	sent := sendDraft(t, h)

	stranger := Actor{ID: newTestCustomer().ID, Role: model.RoleCustomer}
	_, err := h.svc.Respond(context.Background(), stranger, sent.ID, RespondQuotationRequest{Decision: "accepted"})
	assert.Equal(t, apperror.KindAccessDenied, apperror.KindOf(err))
}

func TestRespondRequiresSentState(t *testing.T) {
	h := newQuotationHarness(t)
	ctx := context.Background()
	draft, err := h.svc.Create(ctx, h.staff, draftRequest(h))
	require.NoError(t, err)

	_, err = h.svc.Respond(ctx, h.buyer, draft.ID, RespondQuotationRequest{Decision: "rejected"})
	assert.Equal(t, apperror.KindInvalidStateTransition, apperror.KindOf(err))
}

func TestMarkOrderCreated(t *testing.T) {
	h := newQuotationHarness(t)
	ctx := context.Background()
	sent := sendDraft(t, h)

	result, err := h.svc.Respond(ctx, h.buyer, sent.ID, RespondQuotationRequest{Decision: "accepted"})
	require.NoError(t, err)

	quotation, err := h.quotRepo.FindByID(ctx, mustParseUUID(t, result.Quotation.ID))
	require.NoError(t, err)
	require.NoError(t, h.svc.MarkOrderCreated(ctx, quotation.ID))
	assert.Equal(t, model.QuotationStatusOrderCreated, quotation.Status)
	assert.NotNil(t, quotation.OrderCreatedAt)

	// Repeating the marker is a no-op, not an error.
	require.NoError(t, h.svc.MarkOrderCreated(ctx, quotation.ID))
}

func TestGetQuotationOwnership(t *testing.T) {
	h := newQuotationHarness(t)
	ctx := context.Background()
	draft, err := h.svc.Create(ctx, h.staff, draftRequest(h))
	require.NoError(t, err)

	_, err = h.svc.Get(ctx, h.buyer, draft.ID)
	require.NoError(t, err)

	stranger := Actor{ID: newTestCustomer().ID, Role: model.RoleCustomer}
	_, err = h.svc.Get(ctx, stranger, draft.ID)
	assert.Equal(t, apperror.KindAccessDenied, apperror.KindOf(err))
}
