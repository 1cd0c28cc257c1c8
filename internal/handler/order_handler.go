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

type OrderHandler struct {
	orderService service.OrderService
}

func NewOrderHandler(orderService service.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

func (h *OrderHandler) RegisterRoutes(router *gin.RouterGroup) {
	orders := router.Group("/api/orders")
	{
		orders.GET("", middleware.RequireRole(model.RoleAdmin, model.RoleBackOffice, model.RoleCustomer), h.ListOrders)
		orders.GET("/:id", middleware.RequireRole(model.RoleAdmin, model.RoleBackOffice, model.RoleCustomer), h.GetOrder)
		orders.PUT("/:id/status", middleware.RequireRole(model.RoleAdmin, model.RoleBackOffice), h.UpdateStatus)
		orders.PUT("/:id/dispatch", middleware.RequireRole(model.RoleAdmin, model.RoleBackOffice), h.DispatchOrder)
		orders.PUT("/:id/deliver", middleware.RequireRole(model.RoleAdmin, model.RoleBackOffice), h.MarkDelivered)
		orders.PUT("/:id/cancel", middleware.RequireRole(model.RoleAdmin, model.RoleBackOffice, model.RoleCustomer), h.CancelOrder)
	}
}

// ListOrders returns a paginated order list
// @Summary      List orders
// @Description  Lists orders; customers see only their own, staff see all. Filterable by status
// @Tags         orders
// @Security     BearerAuth
// @Produce      json
// @Param        status  query     string  false  "Comma-separated status filter"
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Number of items per page (default 20)"
// @Success      200     {object}  response.Response{data=object}
// @Failure      500     {object}  response.Response
// @Router       /api/orders [get]
func (h *OrderHandler) ListOrders(c *gin.Context) {
	params := pagination.Parse(c)

	orders, total, err := h.orderService.List(c.Request.Context(), actorFrom(c), statusFilter(c), params.Page, params.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Paged(http.StatusOK, orders, total, params))
}

// GetOrder returns a single order
// @Summary      Get order
// @Description  Retrieves one order with items and payment/production/dispatch details
// @Tags         orders
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Order ID"
// @Success      200  {object}  response.Response{data=service.OrderResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/orders/{id} [get]
func (h *OrderHandler) GetOrder(c *gin.Context) {
	order, err := h.orderService.Get(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}

// UpdateStatus advances an order through the fulfillment flow
// @Summary      Update order status
// @Description  Moves the order forward through its fulfillment statuses. Backward moves are rejected; reaching confirmed or beyond completes the payment
// @Tags         orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                            true  "Order ID"
// @Param        payload  body      service.UpdateOrderStatusRequest  true  "Status Payload"
// @Success      200      {object}  response.Response{data=service.OrderResponse}
// @Failure      409      {object}  response.Response
// @Router       /api/orders/{id}/status [put]
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	var req service.UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	order, err := h.orderService.UpdateStatus(c.Request.Context(), actorFrom(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}

// DispatchOrder hands a ready order to a courier
// @Summary      Dispatch order
// @Description  Dispatches a ready_for_dispatch order with courier and tracking details
// @Tags         orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                        true  "Order ID"
// @Param        payload  body      service.DispatchOrderRequest  true  "Dispatch Payload"
// @Success      200      {object}  response.Response{data=service.OrderResponse}
// @Failure      409      {object}  response.Response
// @Router       /api/orders/{id}/dispatch [put]
func (h *OrderHandler) DispatchOrder(c *gin.Context) {
	var req service.DispatchOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	order, err := h.orderService.Dispatch(c.Request.Context(), actorFrom(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}

// MarkDelivered closes out a dispatched order
// @Summary      Mark order delivered
// @Description  Marks a dispatched order as delivered and stamps the actual delivery time
// @Tags         orders
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Order ID"
// @Success      200  {object}  response.Response{data=service.OrderResponse}
// @Failure      409  {object}  response.Response
// @Router       /api/orders/{id}/deliver [put]
func (h *OrderHandler) MarkDelivered(c *gin.Context) {
	order, err := h.orderService.MarkDelivered(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}

// CancelOrder aborts an order before dispatch
// @Summary      Cancel order
// @Description  Cancels an order in pending, confirmed or in_production; a completed payment flips to refunded
// @Tags         orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                      true   "Order ID"
// @Param        payload  body      service.CancelOrderRequest  false  "Cancel Payload"
// @Success      200      {object}  response.Response{data=service.OrderResponse}
// @Failure      409      {object}  response.Response
// @Router       /api/orders/{id}/cancel [put]
func (h *OrderHandler) CancelOrder(c *gin.Context) {
	var req service.CancelOrderRequest
	_ = c.ShouldBindJSON(&req) // Reason is optional

	order, err := h.orderService.Cancel(c.Request.Context(), actorFrom(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}
