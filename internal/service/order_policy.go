package service

import (
	"time"

	"fabworks/internal/model"
)

// orderStatusRank orders the linear fulfillment flow. UpdateStatus only
// moves an order forward; cancelled sits outside the ranking and has
// its own guard.
var orderStatusRank = map[string]int{
	model.OrderStatusPending:          0,
	model.OrderStatusConfirmed:        1,
	model.OrderStatusInProduction:     2,
	model.OrderStatusReadyForDispatch: 3,
	model.OrderStatusDispatched:       4,
	model.OrderStatusDelivered:        5,
}

// cancellableStatuses are the only states an order may be cancelled from.
var cancellableStatuses = map[string]bool{
	model.OrderStatusPending:      true,
	model.OrderStatusConfirmed:    true,
	model.OrderStatusInProduction: true,
}

// statusSideEffects describes what a fulfillment transition does beyond
// setting the status itself.
type statusSideEffects struct {
	completePayment    bool // reaching or passing confirmed is treated as proof of payment
	refundPayment      bool
	stampConfirmedAt   bool
	startProduction    bool
	completeProduction bool
	stampDispatchedAt  bool
	stampDelivery      bool
}

// sideEffectsFor is the status/payment coupling rule table. It is a
// named business rule, not incidental branching: any status at or
// beyond confirmed implies the order has been paid for, and the back
// office may push an order forward administratively without a separate
// payment event.
func sideEffectsFor(newStatus string) statusSideEffects {
	switch newStatus {
	case model.OrderStatusConfirmed:
		return statusSideEffects{completePayment: true, stampConfirmedAt: true}
	case model.OrderStatusInProduction:
		return statusSideEffects{completePayment: true, startProduction: true}
	case model.OrderStatusReadyForDispatch:
		return statusSideEffects{completePayment: true, completeProduction: true}
	case model.OrderStatusDispatched:
		return statusSideEffects{completePayment: true, stampDispatchedAt: true}
	case model.OrderStatusDelivered:
		return statusSideEffects{completePayment: true, stampDelivery: true}
	case model.OrderStatusCancelled:
		return statusSideEffects{refundPayment: true}
	default:
		return statusSideEffects{}
	}
}

// apply mutates the order according to the side-effect table. Stamps
// are only written when absent so repeated transitions stay idempotent.
func (e statusSideEffects) apply(order *model.Order, now time.Time, estimatedDelivery *time.Time) {
	if e.completePayment && order.Payment.Status != model.PaymentStatusCompleted {
		order.Payment.Status = model.PaymentStatusCompleted
		if order.Payment.PaidAt == nil {
			order.Payment.PaidAt = &now
		}
		if order.Payment.Method == "" || order.Payment.Method == model.PaymentMethodPending {
			order.Payment.Method = model.PaymentMethodBankTransfer
		}
	}
	if e.refundPayment {
		order.Payment.Status = model.PaymentStatusRefunded
	}
	if e.stampConfirmedAt && order.ConfirmedAt == nil {
		order.ConfirmedAt = &now
	}
	if e.startProduction {
		if order.Production.StartDate == nil {
			order.Production.StartDate = &now
		}
		if estimatedDelivery != nil {
			order.Production.EstimatedCompletion = estimatedDelivery
		}
	}
	if e.completeProduction && order.Production.ActualCompletion == nil {
		order.Production.ActualCompletion = &now
	}
	if e.stampDispatchedAt && order.Dispatch.DispatchedAt == nil {
		order.Dispatch.DispatchedAt = &now
	}
	if e.stampDelivery && order.Dispatch.ActualDelivery == nil {
		order.Dispatch.ActualDelivery = &now
	}
}
