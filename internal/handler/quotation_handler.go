package handler

import (
	"net/http"

	"fabworks/internal/apperror"
	"fabworks/internal/middleware"
	"fabworks/internal/model"
	"fabworks/internal/service"
	"fabworks/pkg/pagination"
	"fabworks/pkg/response"

	"github.com/gin-gonic/gin"
)

type QuotationHandler struct {
	quotationService service.QuotationService
}

func NewQuotationHandler(quotationService service.QuotationService) *QuotationHandler {
	return &QuotationHandler{quotationService: quotationService}
}

func (h *QuotationHandler) RegisterRoutes(router *gin.RouterGroup) {
	quotations := router.Group("/api/quotations")
	{
		quotations.POST("", middleware.RequireRole(model.RoleAdmin, model.RoleBackOffice), h.CreateQuotation)
		quotations.GET("", middleware.RequireRole(model.RoleAdmin, model.RoleBackOffice), h.ListQuotations)
		quotations.GET("/:id", middleware.RequireRole(model.RoleAdmin, model.RoleBackOffice, model.RoleCustomer), h.GetQuotation)
		quotations.PUT("/:id/send", middleware.RequireRole(model.RoleAdmin, model.RoleBackOffice), h.SendQuotation)
		quotations.PUT("/:id/respond", middleware.RequireRole(model.RoleAdmin, model.RoleBackOffice, model.RoleCustomer), h.RespondQuotation)
	}
}

// CreateQuotation drafts a quotation against an inquiry
// @Summary      Create quotation
// @Description  Drafts a quotation for an inquiry, or updates the existing draft. Fails with 409 and the existing id when a non-draft quotation already exists
// @Tags         quotations
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateQuotationRequest  true  "Create Quotation Payload"
// @Success      201      {object}  response.Response{data=service.QuotationResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/quotations [post]
func (h *QuotationHandler) CreateQuotation(c *gin.Context) {
	var req service.CreateQuotationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	quotation, err := h.quotationService.Create(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		// Surface the pre-existing quotation id on duplicates so the
		// client can navigate to it.
		if existingID := apperror.ExistingID(err); existingID != "" {
			c.JSON(http.StatusConflict, response.Response{
				Status:     "error",
				StatusCode: http.StatusConflict,
				Data:       gin.H{"existing_quotation_id": existingID},
				Error:      err.Error(),
			})
			return
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, quotation))
}

// ListQuotations returns a paginated quotation list
// @Summary      List quotations
// @Description  Lists quotations for the back office, filterable by status
// @Tags         quotations
// @Security     BearerAuth
// @Produce      json
// @Param        status  query     string  false  "Comma-separated status filter"
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Number of items per page (default 20)"
// @Success      200     {object}  response.Response{data=object}
// @Failure      500     {object}  response.Response
// @Router       /api/quotations [get]
func (h *QuotationHandler) ListQuotations(c *gin.Context) {
	params := pagination.Parse(c)

	quotations, total, err := h.quotationService.List(c.Request.Context(), statusFilter(c), params.Page, params.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Paged(http.StatusOK, quotations, total, params))
}

// GetQuotation returns a single quotation
// @Summary      Get quotation
// @Description  Retrieves one quotation with line items
// @Tags         quotations
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Quotation ID"
// @Success      200  {object}  response.Response{data=service.QuotationResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/quotations/{id} [get]
func (h *QuotationHandler) GetQuotation(c *gin.Context) {
	quotation, err := h.quotationService.Get(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, quotation))
}

// SendQuotation sends a draft quotation to the customer
// @Summary      Send quotation
// @Description  Transitions a draft quotation to sent and notifies the customer
// @Tags         quotations
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Quotation ID"
// @Success      200  {object}  response.Response{data=service.QuotationResponse}
// @Failure      409  {object}  response.Response
// @Router       /api/quotations/{id}/send [put]
func (h *QuotationHandler) SendQuotation(c *gin.Context) {
	quotation, err := h.quotationService.Send(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, quotation))
}

// RespondQuotation records the customer's accept/reject decision
// @Summary      Respond to quotation
// @Description  Records the customer decision on a sent quotation. Acceptance creates the order atomically; rejection stores the notes. Expired quotations return 410
// @Tags         quotations
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                           true  "Quotation ID"
// @Param        payload  body      service.RespondQuotationRequest  true  "Decision Payload"
// @Success      200      {object}  response.Response{data=service.RespondResult}
// @Failure      409      {object}  response.Response
// @Failure      410      {object}  response.Response
// @Router       /api/quotations/{id}/respond [put]
func (h *QuotationHandler) RespondQuotation(c *gin.Context) {
	var req service.RespondQuotationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	result, err := h.quotationService.Respond(c.Request.Context(), actorFrom(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}
