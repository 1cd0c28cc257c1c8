package notify

import (
	"fmt"

	"fabworks/internal/model"
)

// message holds the rendered subject and body for one template.
type message struct {
	Subject string
	Body    string
}

func str(payload Payload, key string) string {
	if v, ok := payload[key]; ok {
		return fmt.Sprint(v)
	}
	return ""
}

// Render exposes the rendered subject and body so callers can persist
// the same text they send (the notification inbox trail).
func Render(template string, recipient Recipient, payload Payload) (subject, body string) {
	m := render(template, recipient, payload)
	return m.Subject, m.Body
}

// render produces the human-readable text for a workflow template.
// Unknown templates fall through to a generic subject so a new event
// type never breaks delivery.
func render(template string, recipient Recipient, payload Payload) message {
	switch template {
	case model.TemplateInquiryReceived:
		return message{
			Subject: "We received your inquiry",
			Body: fmt.Sprintf("Hi %s, your inquiry %s has been received. Our team will review it and send you a quotation shortly.",
				recipient.Name, str(payload, "inquiry_id")),
		}
	case model.TemplateQuotationReady:
		return message{
			Subject: fmt.Sprintf("Quotation %s is ready", str(payload, "quotation_no")),
			Body: fmt.Sprintf("Hi %s, quotation %s for %s %s is ready. It is valid until %s.",
				recipient.Name, str(payload, "quotation_no"), str(payload, "currency"),
				str(payload, "total_amount"), str(payload, "valid_until")),
		}
	case model.TemplateQuotationDecision:
		return message{
			Subject: fmt.Sprintf("Quotation %s was %s", str(payload, "quotation_no"), str(payload, "decision")),
			Body: fmt.Sprintf("Quotation %s was %s by the customer. %s",
				str(payload, "quotation_no"), str(payload, "decision"), str(payload, "notes")),
		}
	case model.TemplateOrderConfirmed:
		return message{
			Subject: fmt.Sprintf("Order %s confirmed", str(payload, "order_no")),
			Body: fmt.Sprintf("Hi %s, your order %s is confirmed and will move to production soon.",
				recipient.Name, str(payload, "order_no")),
		}
	case model.TemplatePaymentReceived:
		return message{
			Subject: fmt.Sprintf("Payment received for order %s", str(payload, "order_no")),
			Body: fmt.Sprintf("Payment of %s %s received for order %s (transaction %s).",
				str(payload, "currency"), str(payload, "amount"),
				str(payload, "order_no"), str(payload, "transaction_id")),
		}
	case model.TemplateOrderDispatched:
		return message{
			Subject: fmt.Sprintf("Order %s dispatched", str(payload, "order_no")),
			Body: fmt.Sprintf("Hi %s, order %s has been dispatched via %s. Tracking number: %s.",
				recipient.Name, str(payload, "order_no"), str(payload, "courier"), str(payload, "tracking_number")),
		}
	case model.TemplateOrderDelivered:
		return message{
			Subject: fmt.Sprintf("Order %s delivered", str(payload, "order_no")),
			Body: fmt.Sprintf("Hi %s, order %s has been delivered. Thank you for your business.",
				recipient.Name, str(payload, "order_no")),
		}
	default:
		return message{Subject: "Workflow update", Body: fmt.Sprintf("Event %s on %s", template, str(payload, "order_no"))}
	}
}
