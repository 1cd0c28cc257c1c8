package handler

import (
	"net/http"

	"fabworks/internal/middleware"
	"fabworks/internal/model"
	"fabworks/internal/service"
	"fabworks/pkg/response"

	"github.com/gin-gonic/gin"
)

type PaymentHandler struct {
	paymentService service.PaymentService
}

func NewPaymentHandler(paymentService service.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

func (h *PaymentHandler) RegisterRoutes(router *gin.RouterGroup) {
	payments := router.Group("/api/orders/:id/payment")
	{
		payments.POST("/initialize", middleware.RequireRole(model.RoleAdmin, model.RoleBackOffice, model.RoleCustomer), h.InitializePayment)
		payments.POST("/confirm", middleware.RequireRole(model.RoleAdmin, model.RoleBackOffice, model.RoleCustomer), h.ConfirmPayment)
		payments.POST("/fail", middleware.RequireRole(model.RoleAdmin, model.RoleBackOffice, model.RoleCustomer), h.FailPayment)
		payments.POST("/verify", middleware.RequireRole(model.RoleAdmin, model.RoleBackOffice, model.RoleCustomer), h.VerifyGateway)
		payments.POST("/refund", middleware.RequireRole(model.RoleAdmin, model.RoleBackOffice), h.RefundPayment)
	}
}

// InitializePayment records the chosen payment method
// @Summary      Initialize payment
// @Description  Records the chosen payment method on a pending order and moves the payment to processing
// @Tags         payments
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                            true  "Order ID"
// @Param        payload  body      service.InitializePaymentRequest  true  "Payment Method Payload"
// @Success      200      {object}  response.Response{data=service.OrderResponse}
// @Failure      409      {object}  response.Response
// @Router       /api/orders/{id}/payment/initialize [post]
func (h *PaymentHandler) InitializePayment(c *gin.Context) {
	var req service.InitializePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	order, err := h.paymentService.Initialize(c.Request.Context(), actorFrom(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}

// ConfirmPayment reconciles a settled payment against the order
// @Summary      Confirm payment
// @Description  Confirms a settled payment. The amount must match the order total within 0.01; replays with the same transaction id are idempotent. Confirms the order and completes the payment
// @Tags         payments
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                         true  "Order ID"
// @Param        payload  body      service.ConfirmPaymentRequest  true  "Confirmation Payload"
// @Success      200      {object}  response.Response{data=service.OrderResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/orders/{id}/payment/confirm [post]
func (h *PaymentHandler) ConfirmPayment(c *gin.Context) {
	var req service.ConfirmPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	order, err := h.paymentService.Confirm(c.Request.Context(), actorFrom(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}

// FailPayment records a failed settlement attempt
// @Summary      Fail payment
// @Description  Marks the payment attempt as failed; the order stays pending for a retry
// @Tags         payments
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                      true   "Order ID"
// @Param        payload  body      service.FailPaymentRequest  false  "Failure Payload"
// @Success      200      {object}  response.Response{data=service.OrderResponse}
// @Failure      409      {object}  response.Response
// @Router       /api/orders/{id}/payment/fail [post]
func (h *PaymentHandler) FailPayment(c *gin.Context) {
	var req service.FailPaymentRequest
	_ = c.ShouldBindJSON(&req) // Reason is optional

	order, err := h.paymentService.Fail(c.Request.Context(), actorFrom(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}

// VerifyGateway verifies a transaction against the external gateway
// @Summary      Verify gateway payment
// @Description  Looks the transaction up at the external gateway and confirms the payment only when the gateway reports it settled
// @Tags         payments
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                        true  "Order ID"
// @Param        payload  body      service.VerifyGatewayRequest  true  "Verification Payload"
// @Success      200      {object}  response.Response{data=service.OrderResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/orders/{id}/payment/verify [post]
func (h *PaymentHandler) VerifyGateway(c *gin.Context) {
	var req service.VerifyGatewayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	order, err := h.paymentService.VerifyGateway(c.Request.Context(), actorFrom(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}

// RefundPayment returns money on a completed payment
// @Summary      Refund payment
// @Description  Refunds a completed payment, fully by default or partially with an explicit amount
// @Tags         payments
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                        true  "Order ID"
// @Param        payload  body      service.RefundPaymentRequest  true  "Refund Payload"
// @Success      200      {object}  response.Response{data=service.OrderResponse}
// @Failure      409      {object}  response.Response
// @Router       /api/orders/{id}/payment/refund [post]
func (h *PaymentHandler) RefundPayment(c *gin.Context) {
	var req service.RefundPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	order, err := h.paymentService.Refund(c.Request.Context(), actorFrom(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}
