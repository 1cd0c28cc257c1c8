package handler

import (
	"net/http"

	"fabworks/internal/middleware"
	"fabworks/internal/model"
	"fabworks/internal/service"
	"fabworks/pkg/pagination"
	"fabworks/pkg/response"

	"github.com/gin-gonic/gin"
)

type InquiryHandler struct {
	inquiryService service.InquiryService
}

func NewInquiryHandler(inquiryService service.InquiryService) *InquiryHandler {
	return &InquiryHandler{inquiryService: inquiryService}
}

func (h *InquiryHandler) RegisterRoutes(router *gin.RouterGroup) {
	inquiries := router.Group("/api/inquiries")
	{
		inquiries.POST("", middleware.RequireRole(model.RoleCustomer), h.CreateInquiry)
		inquiries.GET("", middleware.RequireRole(model.RoleAdmin, model.RoleBackOffice, model.RoleCustomer), h.ListInquiries)
		inquiries.GET("/:id", middleware.RequireRole(model.RoleAdmin, model.RoleBackOffice, model.RoleCustomer), h.GetInquiry)
		inquiries.PUT("/:id/review", middleware.RequireRole(model.RoleAdmin, model.RoleBackOffice), h.MarkReviewed)
		inquiries.DELETE("/:id", middleware.RequireRole(model.RoleAdmin, model.RoleBackOffice, model.RoleCustomer), h.DeleteInquiry)
	}
}

// CreateInquiry submits a new part inquiry
// @Summary      Create inquiry
// @Description  Submits a new manufacturing inquiry with part specs, files and delivery address
// @Tags         inquiries
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateInquiryRequest  true  "Create Inquiry Payload"
// @Success      201      {object}  response.Response{data=service.InquiryResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/inquiries [post]
func (h *InquiryHandler) CreateInquiry(c *gin.Context) {
	var req service.CreateInquiryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	inquiry, err := h.inquiryService.Create(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, inquiry))
}

// ListInquiries returns a paginated inquiry list
// @Summary      List inquiries
// @Description  Lists inquiries; customers see only their own, staff see all. Filterable by status
// @Tags         inquiries
// @Security     BearerAuth
// @Produce      json
// @Param        status  query     string  false  "Comma-separated status filter"
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Number of items per page (default 20)"
// @Success      200     {object}  response.Response{data=object}
// @Failure      500     {object}  response.Response
// @Router       /api/inquiries [get]
func (h *InquiryHandler) ListInquiries(c *gin.Context) {
	params := pagination.Parse(c)

	inquiries, total, err := h.inquiryService.List(c.Request.Context(), actorFrom(c), statusFilter(c), params.Page, params.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Paged(http.StatusOK, inquiries, total, params))
}

// GetInquiry returns a single inquiry
// @Summary      Get inquiry
// @Description  Retrieves one inquiry with items and files
// @Tags         inquiries
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Inquiry ID"
// @Success      200  {object}  response.Response{data=service.InquiryResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/inquiries/{id} [get]
func (h *InquiryHandler) GetInquiry(c *gin.Context) {
	inquiry, err := h.inquiryService.Get(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, inquiry))
}

// MarkReviewed flags a pending inquiry as reviewed
// @Summary      Mark inquiry reviewed
// @Description  Marks a pending inquiry as seen by the back office
// @Tags         inquiries
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Inquiry ID"
// @Success      200  {object}  response.Response{data=service.InquiryResponse}
// @Failure      409  {object}  response.Response
// @Router       /api/inquiries/{id}/review [put]
func (h *InquiryHandler) MarkReviewed(c *gin.Context) {
	inquiry, err := h.inquiryService.MarkReviewed(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, inquiry))
}

// DeleteInquiry deletes an inquiry that has not entered pricing
// @Summary      Delete inquiry
// @Description  Deletes an inquiry while it is still pending or reviewed
// @Tags         inquiries
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Inquiry ID"
// @Success      200  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/inquiries/{id} [delete]
func (h *InquiryHandler) DeleteInquiry(c *gin.Context) {
	if err := h.inquiryService.Delete(c.Request.Context(), actorFrom(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"deleted": true}))
}
