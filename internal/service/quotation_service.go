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
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// --- DTOs ---

type QuotationLineRequest struct {
	Material    string  `json:"material" binding:"required"`
	ThicknessMM float64 `json:"thickness_mm" binding:"required,gt=0"`
	Quantity    int     `json:"quantity" binding:"required,gt=0"`
	UnitPrice   float64 `json:"unit_price" binding:"required,gt=0"`
}

type CreateQuotationRequest struct {
	InquiryID   string                 `json:"inquiry_id" binding:"required"`
	Items       []QuotationLineRequest `json:"items" binding:"omitempty,dive"`
	UploadMode  bool                   `json:"upload_mode"`
	TotalAmount float64                `json:"total_amount"` // Used verbatim in upload mode
	DocumentURL string                 `json:"document_url"`
	Currency    string                 `json:"currency"`
	Terms       string                 `json:"terms"`
	Notes       string                 `json:"notes"`
	ValidUntil  *time.Time             `json:"valid_until"`
}

type RespondQuotationRequest struct {
	Decision string `json:"decision" binding:"required,oneof=accepted rejected"`
	Notes    string `json:"notes"`
}

type QuotationItemResponse struct {
	Material    string  `json:"material"`
	ThicknessMM float64 `json:"thickness_mm"`
	Quantity    int     `json:"quantity"`
	UnitPrice   string  `json:"unit_price"`
	TotalPrice  string  `json:"total_price"`
}

type QuotationResponse struct {
	ID             string                  `json:"id"`
	QuotationNo    string                  `json:"quotation_no"`
	InquiryID      string                  `json:"inquiry_id"`
	Status         string                  `json:"status"`
	Items          []QuotationItemResponse `json:"items"`
	TotalAmount    string                  `json:"total_amount"`
	Currency       string                  `json:"currency"`
	UploadMode     bool                    `json:"upload_mode"`
	DocumentURL    string                  `json:"document_url,omitempty"`
	Terms          string                  `json:"terms,omitempty"`
	Notes          string                  `json:"notes,omitempty"`
	RejectionNotes string                  `json:"rejection_notes,omitempty"`
	ValidUntil     string                  `json:"valid_until"`
	SentAt         *string                 `json:"sent_at"`
	AcceptedAt     *string                 `json:"accepted_at"`
	RejectedAt     *string                 `json:"rejected_at"`
	OrderCreatedAt *string                 `json:"order_created_at"`
	CreatedAt      string                  `json:"created_at"`
	UpdatedAt      string                  `json:"updated_at"`
}

// RespondResult carries the quotation after a customer decision and,
// for acceptances, the order the decision produced.
type RespondResult struct {
	Quotation QuotationResponse `json:"quotation"`
	Order     *OrderResponse    `json:"order,omitempty"`
}

// --- Interface ---

type QuotationService interface {
	Create(ctx context.Context, actor Actor, req CreateQuotationRequest) (QuotationResponse, error)
	Get(ctx context.Context, actor Actor, id string) (QuotationResponse, error)
	List(ctx context.Context, statuses []string, page, limit int) ([]QuotationResponse, int64, error)
	Send(ctx context.Context, actor Actor, id string) (QuotationResponse, error)
	Respond(ctx context.Context, actor Actor, id string, req RespondQuotationRequest) (RespondResult, error)
	MarkOrderCreated(ctx context.Context, quotationID uuid.UUID) error
}

// orderCreator is the slice of the order lifecycle the quotation
// manager needs: the idempotent create on acceptance.
type orderCreator interface {
	CreateFromAcceptedQuotation(ctx context.Context, quotation *model.Quotation, inquiry *model.Inquiry) (*model.Order, error)
}

type quotationService struct {
	quotationRepo repository.QuotationRepository
	inquiryRepo   repository.InquiryRepository
	auditRepo     repository.AuditRepository
	txManager     repository.TransactionManager
	orders        orderCreator
	events        *WorkflowNotifier
	now           func() time.Time
}

func NewQuotationService(
	quotationRepo repository.QuotationRepository,
	inquiryRepo repository.InquiryRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	orders orderCreator,
	events *WorkflowNotifier,
) QuotationService {
	return &quotationService{
		quotationRepo: quotationRepo,
		inquiryRepo:   inquiryRepo,
		auditRepo:     auditRepo,
		txManager:     txManager,
		orders:        orders,
		events:        events,
		now:           time.Now,
	}
}

// --- Implementation ---

// buildItems validates the line requests and prices each line as
// unitPrice × quantity.
func buildItems(lines []QuotationLineRequest) ([]model.QuotationItem, decimal.Decimal, error) {
	items := make([]model.QuotationItem, 0, len(lines))
	total := decimal.Zero

	for i, line := range lines {
		if line.Material == "" || line.ThicknessMM <= 0 || line.Quantity <= 0 {
			return nil, decimal.Zero, apperror.Validation(fmt.Sprintf("line %d: material, thickness and quantity are required", i+1))
		}
		unitPrice := decimal.NewFromFloat(line.UnitPrice)
		if unitPrice.LessThanOrEqual(decimal.Zero) {
			return nil, decimal.Zero, apperror.Validation(fmt.Sprintf("line %d: unit price must be positive", i+1))
		}

		lineTotal := unitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
		items = append(items, model.QuotationItem{
			Material:    line.Material,
			ThicknessMM: line.ThicknessMM,
			Quantity:    line.Quantity,
			UnitPrice:   unitPrice,
			TotalPrice:  lineTotal,
		})
		total = total.Add(lineTotal)
	}

	return items, total, nil
}

// Create drafts a quotation against an inquiry, or updates the draft if
// one already exists. A non-draft quotation for the same inquiry is a
// duplicate: the error carries the existing id.
func (s *quotationService) Create(ctx context.Context, actor Actor, req CreateQuotationRequest) (QuotationResponse, error) {
	inquiryID, err := uuid.Parse(req.InquiryID)
	if err != nil {
		return QuotationResponse{}, apperror.Validation("invalid inquiry id: " + err.Error())
	}

	// Pricing mode: an uploaded document and manual line items are
	// mutually exclusive sources of truth.
	if req.UploadMode && len(req.Items) > 0 {
		return QuotationResponse{}, apperror.Validation("upload mode and line items are mutually exclusive")
	}
	if !req.UploadMode && len(req.Items) == 0 {
		return QuotationResponse{}, apperror.Validation("at least one line item is required")
	}

	var items []model.QuotationItem
	var total decimal.Decimal
	if req.UploadMode {
		total = decimal.NewFromFloat(req.TotalAmount)
		if total.LessThanOrEqual(decimal.Zero) {
			return QuotationResponse{}, apperror.Validation("upload mode requires a positive total amount")
		}
	} else {
		items, total, err = buildItems(req.Items)
		if err != nil {
			return QuotationResponse{}, err
		}
	}

	currency := req.Currency
	if currency == "" {
		currency = "USD"
	}
	validUntil := s.now().AddDate(0, 0, model.QuotationValidityDays)
	if req.ValidUntil != nil {
		validUntil = *req.ValidUntil
	}

	var quotation *model.Quotation
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		inquiry, findErr := s.inquiryRepo.FindByID(txCtx, inquiryID)
		if findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return apperror.NotFound("inquiry", req.InquiryID)
			}
			return findErr
		}

		existing, findErr := s.quotationRepo.FindByInquiryID(txCtx, inquiryID)
		switch {
		case findErr == nil && existing.Status == model.QuotationStatusDraft:
			// Same-call draft update replaces the pricing wholesale.
			existing.TotalAmount = total
			existing.Currency = currency
			existing.UploadMode = req.UploadMode
			existing.DocumentURL = req.DocumentURL
			existing.Terms = req.Terms
			existing.Notes = req.Notes
			existing.ValidUntil = validUntil
			if saveErr := s.quotationRepo.Save(txCtx, existing); saveErr != nil {
				return saveErr
			}
			if itemsErr := s.quotationRepo.ReplaceItems(txCtx, existing.ID, items); itemsErr != nil {
				return itemsErr
			}
			existing.Items = items
			quotation = existing

			return writeAudit(txCtx, s.auditRepo, &actor.ID, model.ActionUpdateQuotation,
				existing.ID.String(), existing.QuotationNo,
				map[string]interface{}{"total_amount": total.StringFixed(2), "inquiry_id": req.InquiryID})

		case findErr == nil:
			return apperror.Duplicate("quotation", existing.ID.String(),
				"a quotation already exists for this inquiry and is no longer a draft")

		case !errors.Is(findErr, gorm.ErrRecordNotFound):
			return findErr
		}

		number, numErr := s.quotationRepo.NextQuotationNo(txCtx)
		if numErr != nil {
			return fmt.Errorf("failed to generate quotation number: %w", numErr)
		}

		quotation = &model.Quotation{
			QuotationNo: number,
			InquiryID:   inquiryID,
			Items:       items,
			TotalAmount: total,
			Currency:    currency,
			UploadMode:  req.UploadMode,
			DocumentURL: req.DocumentURL,
			Terms:       req.Terms,
			Notes:       req.Notes,
			ValidUntil:  validUntil,
			Status:      model.QuotationStatusDraft,
		}
		if createErr := s.quotationRepo.Create(txCtx, quotation); createErr != nil {
			return fmt.Errorf("failed to create quotation: %w", createErr)
		}

		// The inquiry mirrors the quotation: it is now priced.
		inquiry.QuotationID = &quotation.ID
		inquiry.Status = model.InquiryStatusQuoted
		if saveErr := s.inquiryRepo.Save(txCtx, inquiry); saveErr != nil {
			return saveErr
		}

		return writeAudit(txCtx, s.auditRepo, &actor.ID, model.ActionCreateQuotation,
			quotation.ID.String(), quotation.QuotationNo,
			map[string]interface{}{"total_amount": total.StringFixed(2), "inquiry_id": req.InquiryID})
	})
	if err != nil {
		return QuotationResponse{}, err
	}

	return toQuotationResponse(quotation), nil
}

func (s *quotationService) Get(ctx context.Context, actor Actor, id string) (QuotationResponse, error) {
	quotation, err := s.findQuotation(ctx, id)
	if err != nil {
		return QuotationResponse{}, err
	}

	if !actor.IsStaff() && (quotation.Inquiry == nil || quotation.Inquiry.CustomerID != actor.ID) {
		return QuotationResponse{}, apperror.AccessDenied("quotation", "not your quotation")
	}

	return toQuotationResponse(quotation), nil
}

func (s *quotationService) List(ctx context.Context, statuses []string, page, limit int) ([]QuotationResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	quotations, total, err := s.quotationRepo.List(ctx, statuses, page, limit)
	if err != nil {
		return nil, 0, err
	}

	result := make([]QuotationResponse, 0, len(quotations))
	for i := range quotations {
		result = append(result, toQuotationResponse(&quotations[i]))
	}
	return result, total, nil
}

// Send transitions draft→sent and notifies the customer. The
// conditional update keeps a concurrent double-send from stamping
// sentAt twice.
func (s *quotationService) Send(ctx context.Context, actor Actor, id string) (QuotationResponse, error) {
	quotation, err := s.findQuotation(ctx, id)
	if err != nil {
		return QuotationResponse{}, err
	}
	if quotation.Status != model.QuotationStatusDraft {
		return QuotationResponse{}, apperror.InvalidTransition("quotation", quotation.Status, model.QuotationStatusSent)
	}

	now := s.now()
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		ok, updErr := s.quotationRepo.UpdateStatusIf(txCtx, quotation.ID,
			[]string{model.QuotationStatusDraft},
			map[string]interface{}{"status": model.QuotationStatusSent, "sent_at": now})
		if updErr != nil {
			return updErr
		}
		if !ok {
			return apperror.InvalidTransition("quotation", quotation.Status, model.QuotationStatusSent)
		}

		return writeAudit(txCtx, s.auditRepo, &actor.ID, model.ActionSendQuotation,
			quotation.ID.String(), quotation.QuotationNo, map[string]interface{}{"sent_at": now})
	})
	if err != nil {
		return QuotationResponse{}, err
	}

	quotation.Status = model.QuotationStatusSent
	quotation.SentAt = &now

	payload := notify.Payload{
		"quotation_no": quotation.QuotationNo,
		"total_amount": quotation.TotalAmount.StringFixed(2),
		"currency":     quotation.Currency,
		"valid_until":  quotation.ValidUntil.Format("2006-01-02"),
	}
	var customer *model.User
	if quotation.Inquiry != nil {
		customer = quotation.Inquiry.Customer
	}
	s.events.customer(ctx, customer, model.TemplateQuotationReady, "quotation", quotation.ID.String(), payload)
	s.events.backOffice(ctx, model.TemplateQuotationReady, "quotation", quotation.ID.String(), payload)

	return toQuotationResponse(quotation), nil
}

// Respond records the customer's decision on a sent quotation. An
// acceptance atomically creates the order (or returns the existing one
// on retry); a rejection stores the notes. Either way the inquiry
// mirrors the decision.
func (s *quotationService) Respond(ctx context.Context, actor Actor, id string, req RespondQuotationRequest) (RespondResult, error) {
	quotation, err := s.findQuotation(ctx, id)
	if err != nil {
		return RespondResult{}, err
	}

	if quotation.Inquiry == nil {
		return RespondResult{}, apperror.NotFound("inquiry", quotation.InquiryID.String())
	}
	if !actor.IsStaff() && quotation.Inquiry.CustomerID != actor.ID {
		return RespondResult{}, apperror.AccessDenied("quotation", "only the inquiry's customer may respond")
	}

	// A retried acceptance must succeed idempotently with the existing
	// order instead of failing the sent-state guard.
	if req.Decision == "accepted" &&
		(quotation.Status == model.QuotationStatusAccepted || quotation.Status == model.QuotationStatusOrderCreated) {
		return s.acceptedResult(ctx, quotation)
	}
	if quotation.Status != model.QuotationStatusSent {
		return RespondResult{}, apperror.InvalidTransition("quotation", quotation.Status, req.Decision)
	}

	now := s.now()
	if now.After(quotation.ValidUntil) {
		// The offer lapsed: flip to expired and refuse the decision.
		_, _ = s.quotationRepo.UpdateStatusIf(ctx, quotation.ID,
			[]string{model.QuotationStatusSent},
			map[string]interface{}{"status": model.QuotationStatusExpired})
		return RespondResult{}, apperror.QuotationExpired(quotation.ID.String())
	}

	if req.Decision == "rejected" {
		return s.reject(ctx, actor, quotation, req.Notes, now)
	}
	return s.accept(ctx, actor, quotation, now)
}

func (s *quotationService) accept(ctx context.Context, actor Actor, quotation *model.Quotation, now time.Time) (RespondResult, error) {
	var order *model.Order
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		ok, updErr := s.quotationRepo.UpdateStatusIf(txCtx, quotation.ID,
			[]string{model.QuotationStatusSent},
			map[string]interface{}{"status": model.QuotationStatusAccepted, "accepted_at": now})
		if updErr != nil {
			return updErr
		}
		if !ok {
			// Lost the race to a concurrent accept. The order lookup
			// below still resolves idempotently.
			refreshed, refErr := s.quotationRepo.FindByID(txCtx, quotation.ID)
			if refErr != nil {
				return refErr
			}
			if refreshed.Status != model.QuotationStatusAccepted && refreshed.Status != model.QuotationStatusOrderCreated {
				return apperror.InvalidTransition("quotation", refreshed.Status, model.QuotationStatusAccepted)
			}
		}

		quotation.Status = model.QuotationStatusAccepted
		quotation.AcceptedAt = &now

		var createErr error
		order, createErr = s.orders.CreateFromAcceptedQuotation(txCtx, quotation, quotation.Inquiry)
		if createErr != nil {
			return createErr
		}

		inquiry := quotation.Inquiry
		inquiry.Status = model.InquiryStatusAccepted
		if saveErr := s.inquiryRepo.Save(txCtx, inquiry); saveErr != nil {
			return saveErr
		}

		return writeAudit(txCtx, s.auditRepo, &actor.ID, model.ActionAcceptQuotation,
			quotation.ID.String(), quotation.QuotationNo,
			map[string]interface{}{"order_no": order.OrderNo})
	})
	if err != nil {
		return RespondResult{}, err
	}

	payload := notify.Payload{
		"quotation_no": quotation.QuotationNo,
		"decision":     "accepted",
		"order_no":     order.OrderNo,
	}
	s.events.backOffice(ctx, model.TemplateQuotationDecision, "quotation", quotation.ID.String(), payload)

	orderResp := toOrderResponse(order)
	return RespondResult{Quotation: toQuotationResponse(quotation), Order: &orderResp}, nil
}

func (s *quotationService) reject(ctx context.Context, actor Actor, quotation *model.Quotation, notes string, now time.Time) (RespondResult, error) {
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		ok, updErr := s.quotationRepo.UpdateStatusIf(txCtx, quotation.ID,
			[]string{model.QuotationStatusSent},
			map[string]interface{}{
				"status":          model.QuotationStatusRejected,
				"rejected_at":     now,
				"rejection_notes": notes,
			})
		if updErr != nil {
			return updErr
		}
		if !ok {
			return apperror.InvalidTransition("quotation", quotation.Status, model.QuotationStatusRejected)
		}

		inquiry := quotation.Inquiry
		inquiry.Status = model.InquiryStatusRejected
		if saveErr := s.inquiryRepo.Save(txCtx, inquiry); saveErr != nil {
			return saveErr
		}

		return writeAudit(txCtx, s.auditRepo, &actor.ID, model.ActionRejectQuotation,
			quotation.ID.String(), quotation.QuotationNo,
			map[string]interface{}{"notes": notes})
	})
	if err != nil {
		return RespondResult{}, err
	}

	quotation.Status = model.QuotationStatusRejected
	quotation.RejectedAt = &now
	quotation.RejectionNotes = notes

	s.events.backOffice(ctx, model.TemplateQuotationDecision, "quotation", quotation.ID.String(), notify.Payload{
		"quotation_no": quotation.QuotationNo,
		"decision":     "rejected",
		"notes":        notes,
	})

	return RespondResult{Quotation: toQuotationResponse(quotation)}, nil
}

// acceptedResult resolves a retried acceptance: the quotation is
// already accepted, so return it with whatever order exists.
func (s *quotationService) acceptedResult(ctx context.Context, quotation *model.Quotation) (RespondResult, error) {
	order, err := s.orders.CreateFromAcceptedQuotation(ctx, quotation, quotation.Inquiry)
	if err != nil {
		return RespondResult{}, err
	}
	orderResp := toOrderResponse(order)
	return RespondResult{Quotation: toQuotationResponse(quotation), Order: &orderResp}, nil
}

// MarkOrderCreated is called by payment reconciliation once an order
// reaches confirmed. Idempotent: an already-marked quotation is left
// alone.
func (s *quotationService) MarkOrderCreated(ctx context.Context, quotationID uuid.UUID) error {
	ok, err := s.quotationRepo.UpdateStatusIf(ctx, quotationID,
		[]string{model.QuotationStatusAccepted},
		map[string]interface{}{"status": model.QuotationStatusOrderCreated, "order_created_at": s.now()})
	if err != nil {
		return err
	}
	if !ok {
		// Already order_created, or never accepted — both are no-ops
		// for this idempotent marker.
		return nil
	}
	return nil
}

// --- Helpers ---

func (s *quotationService) findQuotation(ctx context.Context, id string) (*model.Quotation, error) {
	quotationID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperror.Validation("invalid quotation id: " + err.Error())
	}

	quotation, err := s.quotationRepo.FindByID(ctx, quotationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("quotation", id)
		}
		return nil, err
	}
	return quotation, nil
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}

func toQuotationResponse(q *model.Quotation) QuotationResponse {
	items := make([]QuotationItemResponse, 0, len(q.Items))
	for _, item := range q.Items {
		items = append(items, QuotationItemResponse{
			Material:    item.Material,
			ThicknessMM: item.ThicknessMM,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice.StringFixed(2),
			TotalPrice:  item.TotalPrice.StringFixed(2),
		})
	}

	return QuotationResponse{
		ID:             q.ID.String(),
		QuotationNo:    q.QuotationNo,
		InquiryID:      q.InquiryID.String(),
		Status:         q.Status,
		Items:          items,
		TotalAmount:    q.TotalAmount.StringFixed(2),
		Currency:       q.Currency,
		UploadMode:     q.UploadMode,
		DocumentURL:    q.DocumentURL,
		Terms:          q.Terms,
		Notes:          q.Notes,
		RejectionNotes: q.RejectionNotes,
		ValidUntil:     q.ValidUntil.Format(time.RFC3339),
		SentAt:         formatTimePtr(q.SentAt),
		AcceptedAt:     formatTimePtr(q.AcceptedAt),
		RejectedAt:     formatTimePtr(q.RejectedAt),
		OrderCreatedAt: formatTimePtr(q.OrderCreatedAt),
		CreatedAt:      q.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      q.UpdatedAt.Format(time.RFC3339),
	}
}
