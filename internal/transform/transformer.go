// Package transform converts raw Magazord bundles into the canonical event
// schema the CRM webhook consumes. It is the single normalization path:
// phone extraction, address fallback, item extraction and lifecycle
// classification each have exactly one implementation here (or on the wire
// types they belong to).
package transform

import (
	"fmt"
	"time"

	"github.com/ignite/magazord-bridge/internal/magazord"
)

// eventTypes maps order situation codes to CRM event types.
var eventTypes = map[int]string{
	magazord.OrderCancelled:       EventOrderCancelled,
	magazord.OrderAwaitingPayment: EventOrderCreated,
	magazord.OrderPaymentExpired:  EventPaymentExpired,
	magazord.OrderPaid:            EventPaymentConfirmed,
	magazord.OrderApproved:        EventOrderApproved,
	magazord.OrderInDispute:       EventInDispute,
	magazord.OrderReturned:        EventOrderReturned,
	magazord.OrderShipped:         EventOrderShipped,
	magazord.OrderDelivered:       EventOrderDelivered,
}

// statusDescriptions is the fallback when the order record carries no
// description of its own. Wire values stay in the storefront's language.
var statusDescriptions = map[int]string{
	magazord.OrderCancelled:       "Cancelado",
	magazord.OrderAwaitingPayment: "Aguardando Pagamento",
	magazord.OrderPaymentExpired:  "Pagamento Expirado",
	magazord.OrderPaid:            "Pago",
	magazord.OrderApproved:        "Aprovado",
	magazord.OrderInDispute:       "Em Disputa",
	magazord.OrderReturned:        "Devolvido",
	magazord.OrderShipped:         "Em Transporte",
	magazord.OrderDelivered:       "Entregue",
}

// statusExplanations documents the non-obvious situation codes for CRM
// operators. Codes without an entry get a null explanation.
var statusExplanations = map[int]string{
	0: "Pedido cancelado automaticamente pelo sistema (timeout de pagamento ou estoque indisponível)",
	1: "Cliente finalizou o checkout mas ainda não efetuou o pagamento",
	2: "Tempo limite para pagamento expirado (PIX/Boleto não pago no prazo)",
	3: "Pagamento confirmado pelo gateway",
	4: "Pedido aprovado e liberado para separação (ainda não foi postado)",
	7: "Pedido em transporte com a transportadora",
}

// cartStatusDescriptions maps cart status codes to their descriptions.
var cartStatusDescriptions = map[int]string{
	magazord.CartOpen:      "aberto",
	magazord.CartAbandoned: "abandonado",
	magazord.CartConverted: "convertido",
	magazord.CartExpired:   "expirado",
}

// Transformer produces canonical events from raw bundles.
type Transformer struct {
	now func() time.Time
}

// New creates a Transformer.
func New() *Transformer {
	return &Transformer{now: time.Now}
}

// SetClock overrides the capture timestamp source (tests).
func (t *Transformer) SetClock(now func() time.Time) {
	t.now = now
}

// EventTypeForStatus returns the CRM event type for an order situation
// code, EventStatusUpdated for unknown codes.
func EventTypeForStatus(code int) string {
	if et, ok := eventTypes[code]; ok {
		return et
	}
	return EventStatusUpdated
}

// FormatMoney renders a monetary value as a fixed two-decimal string.
// Missing or zero values render "0.00".
func FormatMoney(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

// Transform converts a bundle into the canonical event. headers, when
// supplied by an inbound trigger, are attached verbatim as a diagnostic
// field and never interpreted.
func (t *Transformer) Transform(b *magazord.Bundle, headers map[string]string) *Event {
	order := b.Order
	person := b.Person
	ref := b.TrackingRef()
	statusCode, statusKnown := order.StatusCode()

	event := &Event{
		EventType: t.classify(statusCode, statusKnown, ref),
		OrderID:   order.ID,
		OrderCode: order.Code,
		Status:    t.statusBlock(order, statusCode, statusKnown),
		Person: PersonBlock{
			Name:  person.Name,
			Email: person.Email,
			Phone: person.PrimaryPhone(),
		},
		Order:    t.orderBlock(order, statusCode, statusKnown, ref),
		Cart:     t.cartBlock(b),
		Delivery: t.deliveryBlock(order, ref),
		Source: SourceBlock{
			Source:         sourceTag,
			CapturedAt:     t.now().UTC().Format(time.RFC3339),
			IdempotencyKey: idempotencyKey(b),
		},
	}
	if len(headers) > 0 {
		event.Headers = headers
	}
	return event
}

// classify maps the situation code to an event type. Tracking presence
// takes priority: a non-empty tracking code always means delivery_started.
// An order whose situation keys are both absent is a generic status
// update, never a cancellation.
func (t *Transformer) classify(statusCode int, known bool, ref *magazord.TrackingRef) string {
	if ref.TrackingCode() != "" {
		return EventDeliveryStarted
	}
	if !known {
		return EventStatusUpdated
	}
	return EventTypeForStatus(statusCode)
}

func (t *Transformer) statusBlock(order *magazord.Order, statusCode int, known bool) StatusBlock {
	desc := order.SituationDesc
	if desc == "" && known {
		desc = statusDescriptions[statusCode]
	}
	var explanation *string
	if known {
		if text, ok := statusExplanations[statusCode]; ok {
			explanation = &text
		}
	}
	updatedAt := order.UpdatedAt
	if updatedAt == "" {
		updatedAt = order.CreatedAt
	}
	return StatusBlock{
		Code:        statusCode,
		Description: desc,
		Explanation: explanation,
		UpdatedAt:   updatedAt,
	}
}

func (t *Transformer) orderBlock(order *magazord.Order, statusCode int, known bool, ref *magazord.TrackingRef) OrderBlock {
	var paymentLink *string
	if order.PaymentLink != "" {
		link := order.PaymentLink
		paymentLink = &link
	}
	desc := order.SituationDesc
	if desc == "" && known {
		desc = statusDescriptions[statusCode]
	}
	return OrderBlock{
		Date:          order.CreatedAt,
		Total:         FormatMoney(order.Total.Float64()),
		PaymentMethod: paymentMethod(order),
		PaymentLink:   paymentLink,
		Status:        desc,
		StatusCode:    statusCode,
		Items:         extractItems(order, ref),
	}
}

func (t *Transformer) cartBlock(b *magazord.Bundle) CartBlock {
	order := b.Order
	block := CartBlock{
		Status:    "convertido_em_pedido",
		Origin:    order.Origin,
		UTMSource: order.TrackingSource,
		UTMParams: order.TrackingParams,
		IP:        order.IP,
		UserAgent: order.UserAgent,
	}
	switch {
	case b.Cart != nil:
		id := b.Cart.ID
		status := b.Cart.Status
		block.CartID = &id
		block.StatusCode = &status
		if desc, ok := cartStatusDescriptions[status]; ok {
			block.Status = desc
		} else {
			block.Status = "desconhecido"
		}
	case order.CartID != nil:
		block.CartID = order.CartID
	}
	return block
}

// deliveryBlock always emits the full key set. Without any tracking source
// the "not yet shipped" shape is returned: same keys, distinct status flag.
func (t *Transformer) deliveryBlock(order *magazord.Order, ref *magazord.TrackingRef) DeliveryBlock {
	block := DeliveryBlock{
		Status: DeliveryNotShipped,
		Events: []DeliveryEvent{},
	}
	if ref == nil {
		block.Address = orderAddress(order)
		return block
	}

	block.Status = DeliveryTrackable
	block.TrackingCode = ref.TrackingCode()
	block.Carrier = ref.CarrierName
	block.TrackingLink = ref.TrackingLink()
	block.DeliveryETA = ref.DeliveryETA()
	block.PostedAt = ref.PostedAt
	block.Address = deliveryAddress(ref, order)
	for _, ev := range ref.Events {
		block.Events = append(block.Events, DeliveryEvent{
			Date:        ev.Date,
			Description: ev.Description,
			Location:    ev.Location,
		})
	}
	return block
}

// deliveryAddress prefers the address attached to the tracking record and
// falls back to the order's own destination fields.
func deliveryAddress(ref *magazord.TrackingRef, order *magazord.Order) *AddressBlock {
	if ref != nil && ref.Address != nil {
		a := ref.Address
		if a.Street != "" || a.ZipCode != "" || a.City != "" {
			return &AddressBlock{
				Street:     a.Street,
				Number:     a.Number,
				Complement: a.Complement,
				District:   a.District,
				City:       a.City,
				State:      a.State,
				ZipCode:    a.ZipCode,
			}
		}
	}
	return orderAddress(order)
}

// orderAddress builds the address from the order's flattened destination
// fields, or nil when none of the core fields is populated.
func orderAddress(order *magazord.Order) *AddressBlock {
	if order.Street == "" && order.ZipCode == "" {
		return nil
	}
	return &AddressBlock{
		Recipient:  order.RecipientName,
		Street:     order.Street,
		Number:     order.Number,
		Complement: order.Complement,
		District:   order.District,
		City:       order.CityName,
		State:      order.StateCode,
		ZipCode:    order.ZipCode,
	}
}

// extractItems prefers the order's own item list and falls back to the
// items nested under the first tracking reference.
func extractItems(order *magazord.Order, ref *magazord.TrackingRef) []ItemBlock {
	source := order.Items
	if len(source) == 0 && ref != nil {
		source = ref.Items
	}
	items := make([]ItemBlock, 0, len(source))
	for _, it := range source {
		items = append(items, ItemBlock{
			ProductID:   it.ResolvedProductID(),
			Description: it.ResolvedDescription(),
			Quantity:    it.Quantity.Float64(),
			UnitPrice:   FormatMoney(it.UnitPrice.Float64()),
			Total:       FormatMoney(it.ResolvedTotal()),
		})
	}
	return items
}

// paymentMethod prefers the order-level field and falls back to the first
// payment entry.
func paymentMethod(order *magazord.Order) string {
	if order.PaymentMethod != "" {
		return order.PaymentMethod
	}
	if len(order.Payments) > 0 && order.Payments[0].MethodName != "" {
		return order.Payments[0].MethodName
	}
	return "Não informado"
}

// idempotencyKey is a pure function of the source ids: stable across
// reprocessing of the same cart/order pair.
func idempotencyKey(b *magazord.Bundle) string {
	if b.Cart != nil {
		return fmt.Sprintf("MGZ-%d-%d", b.Cart.ID, b.Order.ID)
	}
	return fmt.Sprintf("MGZ-PEDIDO-%d", b.Order.ID)
}
