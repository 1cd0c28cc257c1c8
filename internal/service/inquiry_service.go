package service

import (
	"context"
	"errors"
	"time"

	"fabworks/internal/apperror"
	"fabworks/internal/model"
	"fabworks/internal/notify"
	"fabworks/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// --- DTOs ---

type InquiryLineRequest struct {
	Material    string  `json:"material" binding:"required"`
	ThicknessMM float64 `json:"thickness_mm" binding:"required,gt=0"`
	Quantity    int     `json:"quantity" binding:"required,gt=0"`
	Remarks     string  `json:"remarks"`
}

type InquiryFileRequest struct {
	FileName string `json:"file_name" binding:"required"`
	FileURL  string `json:"file_url" binding:"required,url"`
}

type CreateInquiryRequest struct {
	Items   []InquiryLineRequest  `json:"items" binding:"required,min=1,dive"`
	Files   []InquiryFileRequest  `json:"files" binding:"omitempty,dive"`
	Address model.DeliveryAddress `json:"address"`
	Remarks string                `json:"remarks"`
}

type InquiryItemResponse struct {
	Material    string  `json:"material"`
	ThicknessMM float64 `json:"thickness_mm"`
	Quantity    int     `json:"quantity"`
	Remarks     string  `json:"remarks,omitempty"`
}

type InquiryFileResponse struct {
	FileName string `json:"file_name"`
	FileURL  string `json:"file_url"`
}

type InquiryResponse struct {
	ID          string                `json:"id"`
	CustomerID  string                `json:"customer_id"`
	Status      string                `json:"status"`
	QuotationID *string               `json:"quotation_id"`
	Items       []InquiryItemResponse `json:"items"`
	Files       []InquiryFileResponse `json:"files"`
	Address     model.DeliveryAddress `json:"address"`
	Remarks     string                `json:"remarks,omitempty"`
	CreatedAt   string                `json:"created_at"`
	UpdatedAt   string                `json:"updated_at"`
}

// --- Interface ---

type InquiryService interface {
	Create(ctx context.Context, actor Actor, req CreateInquiryRequest) (InquiryResponse, error)
	Get(ctx context.Context, actor Actor, id string) (InquiryResponse, error)
	List(ctx context.Context, actor Actor, statuses []string, page, limit int) ([]InquiryResponse, int64, error)
	MarkReviewed(ctx context.Context, actor Actor, id string) (InquiryResponse, error)
	Delete(ctx context.Context, actor Actor, id string) error
}

type inquiryService struct {
	inquiryRepo repository.InquiryRepository
	auditRepo   repository.AuditRepository
	txManager   repository.TransactionManager
	events      *WorkflowNotifier
}

func NewInquiryService(
	inquiryRepo repository.InquiryRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	events *WorkflowNotifier,
) InquiryService {
	return &inquiryService{
		inquiryRepo: inquiryRepo,
		auditRepo:   auditRepo,
		txManager:   txManager,
		events:      events,
	}
}

// --- Implementation ---

func (s *inquiryService) Create(ctx context.Context, actor Actor, req CreateInquiryRequest) (InquiryResponse, error) {
	if len(req.Items) == 0 {
		return InquiryResponse{}, apperror.Validation("at least one part line is required")
	}

	items := make([]model.InquiryItem, 0, len(req.Items))
	for _, line := range req.Items {
		items = append(items, model.InquiryItem{
			Material:    line.Material,
			ThicknessMM: line.ThicknessMM,
			Quantity:    line.Quantity,
			Remarks:     line.Remarks,
		})
	}
	files := make([]model.InquiryFile, 0, len(req.Files))
	for _, f := range req.Files {
		files = append(files, model.InquiryFile{FileName: f.FileName, FileURL: f.FileURL})
	}

	inquiry := &model.Inquiry{
		CustomerID: actor.ID,
		Status:     model.InquiryStatusPending,
		Items:      items,
		Files:      files,
		Address:    req.Address,
		Remarks:    req.Remarks,
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.inquiryRepo.Create(txCtx, inquiry); createErr != nil {
			return createErr
		}
		return writeAudit(txCtx, s.auditRepo, &actor.ID, model.ActionCreateInquiry,
			inquiry.ID.String(), "",
			map[string]interface{}{"items": len(items), "files": len(files)})
	})
	if err != nil {
		return InquiryResponse{}, err
	}

	s.events.backOffice(ctx, model.TemplateInquiryReceived, "inquiry", inquiry.ID.String(), notify.Payload{
		"inquiry_id": inquiry.ID.String(),
		"items":      len(items),
	})

	return toInquiryResponse(inquiry), nil
}

func (s *inquiryService) Get(ctx context.Context, actor Actor, id string) (InquiryResponse, error) {
	inquiry, err := s.findInquiry(ctx, id)
	if err != nil {
		return InquiryResponse{}, err
	}
	if !actor.IsStaff() && inquiry.CustomerID != actor.ID {
		return InquiryResponse{}, apperror.AccessDenied("inquiry", "not your inquiry")
	}
	return toInquiryResponse(inquiry), nil
}

func (s *inquiryService) List(ctx context.Context, actor Actor, statuses []string, page, limit int) ([]InquiryResponse, int64, error) {
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

	inquiries, total, err := s.inquiryRepo.List(ctx, statuses, customerID, page, limit)
	if err != nil {
		return nil, 0, err
	}

	result := make([]InquiryResponse, 0, len(inquiries))
	for i := range inquiries {
		result = append(result, toInquiryResponse(&inquiries[i]))
	}
	return result, total, nil
}

// MarkReviewed flags a pending inquiry as seen by the back office.
func (s *inquiryService) MarkReviewed(ctx context.Context, actor Actor, id string) (InquiryResponse, error) {
	inquiry, err := s.findInquiry(ctx, id)
	if err != nil {
		return InquiryResponse{}, err
	}
	if inquiry.Status != model.InquiryStatusPending {
		return InquiryResponse{}, apperror.InvalidTransition("inquiry", inquiry.Status, model.InquiryStatusReviewed)
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		inquiry.Status = model.InquiryStatusReviewed
		if saveErr := s.inquiryRepo.Save(txCtx, inquiry); saveErr != nil {
			return saveErr
		}
		return writeAudit(txCtx, s.auditRepo, &actor.ID, model.ActionReviewInquiry,
			inquiry.ID.String(), "", nil)
	})
	if err != nil {
		return InquiryResponse{}, err
	}

	return toInquiryResponse(inquiry), nil
}

// Delete removes an inquiry that never entered the workflow. Anything
// past pending is workflow history and must stay.
func (s *inquiryService) Delete(ctx context.Context, actor Actor, id string) error {
	inquiry, err := s.findInquiry(ctx, id)
	if err != nil {
		return err
	}
	if !actor.IsStaff() && inquiry.CustomerID != actor.ID {
		return apperror.AccessDenied("inquiry", "not your inquiry")
	}
	if inquiry.Status != model.InquiryStatusPending {
		return apperror.InvalidTransition("inquiry", inquiry.Status, "deleted")
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if delErr := s.inquiryRepo.DeleteByID(txCtx, inquiry.ID); delErr != nil {
			return delErr
		}
		return writeAudit(txCtx, s.auditRepo, &actor.ID, model.ActionDeleteInquiry,
			inquiry.ID.String(), "", nil)
	})
}

// --- Helpers ---

func (s *inquiryService) findInquiry(ctx context.Context, id string) (*model.Inquiry, error) {
	inquiryID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperror.Validation("invalid inquiry id: " + err.Error())
	}

	inquiry, err := s.inquiryRepo.FindByID(ctx, inquiryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("inquiry", id)
		}
		return nil, err
	}
	return inquiry, nil
}

func toInquiryResponse(in *model.Inquiry) InquiryResponse {
	items := make([]InquiryItemResponse, 0, len(in.Items))
	for _, item := range in.Items {
		items = append(items, InquiryItemResponse{
			Material:    item.Material,
			ThicknessMM: item.ThicknessMM,
			Quantity:    item.Quantity,
			Remarks:     item.Remarks,
		})
	}
	files := make([]InquiryFileResponse, 0, len(in.Files))
	for _, f := range in.Files {
		files = append(files, InquiryFileResponse{FileName: f.FileName, FileURL: f.FileURL})
	}

	var quotationID *string
	if in.QuotationID != nil {
		s := in.QuotationID.String()
		quotationID = &s
	}

	return InquiryResponse{
		ID:          in.ID.String(),
		CustomerID:  in.CustomerID.String(),
		Status:      in.Status,
		QuotationID: quotationID,
		Items:       items,
		Files:       files,
		Address:     in.Address,
		Remarks:     in.Remarks,
		CreatedAt:   in.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   in.UpdatedAt.Format(time.RFC3339),
	}
}
