package transform

// Event type values emitted to the CRM, keyed by order situation code.
const (
	EventOrderCancelled   = "order_cancelled"
	EventOrderCreated     = "order_created"
	EventPaymentExpired   = "payment_expired"
	EventPaymentConfirmed = "payment_confirmed"
	EventOrderApproved    = "order_approved"
	EventInDispute        = "in_dispute"
	EventOrderReturned    = "order_returned"
	EventOrderShipped     = "order_shipped"
	EventOrderDelivered   = "order_delivered"
	EventStatusUpdated    = "status_updated"

	// EventDeliveryStarted overrides the status mapping whenever a
	// shipment record carries a tracking code.
	EventDeliveryStarted = "delivery_started"
)

// Delivery status flags. The delivery block always has the same key set;
// this flag — not missing keys — distinguishes the two shapes.
const (
	DeliveryTrackable  = "rastreavel"
	DeliveryNotShipped = "aguardando_postagem"
)

// sourceTag identifies this integration in the provenance block and in
// idempotency keys.
const sourceTag = "magazord"

// Event is the canonical payload delivered to the CRM webhook. The JSON
// keys are the sink's fixed contract (Portuguese snake_case); every field
// is always present, defaulted rather than omitted, so consumers never
// branch on missing keys.
type Event struct {
	EventType string            `json:"tipo_evento"`
	OrderID   int               `json:"pedido_id"`
	OrderCode string            `json:"pedido_codigo"`
	Status    StatusBlock       `json:"status"`
	Person    PersonBlock       `json:"pessoa"`
	Order     OrderBlock        `json:"pedido"`
	Cart      CartBlock         `json:"carrinho"`
	Delivery  DeliveryBlock     `json:"entrega"`
	Source    SourceBlock       `json:"origem"`
	Headers   map[string]string `json:"headers,omitempty"`
}

// StatusBlock carries the order situation with its human-readable
// description and, for documented codes, an operator-facing explanation.
type StatusBlock struct {
	Code        int     `json:"codigo"`
	Description string  `json:"descricao"`
	Explanation *string `json:"explicacao"`
	UpdatedAt   string  `json:"data_atualizacao"`
}

// PersonBlock always carries all three contact fields; absent values
// resolve to "".
type PersonBlock struct {
	Name  string `json:"nome"`
	Email string `json:"email"`
	Phone string `json:"telefone"`
}

// OrderBlock is the order summary. Total is a fixed two-decimal string.
type OrderBlock struct {
	Date          string      `json:"data_pedido"`
	Total         string      `json:"valor_total"`
	PaymentMethod string      `json:"forma_pagamento"`
	PaymentLink   *string     `json:"link_pagamento"`
	Status        string      `json:"status"`
	StatusCode    int         `json:"status_codigo"`
	Items         []ItemBlock `json:"itens"`
}

// ItemBlock is one normalized line item. Numeric fields default to 0 and
// string fields to "" regardless of which upstream key variant was present.
type ItemBlock struct {
	ProductID   int     `json:"produto_id"`
	Description string  `json:"descricao"`
	Quantity    float64 `json:"quantidade"`
	UnitPrice   string  `json:"valor_unitario"`
	Total       string  `json:"valor_total"`
}

// CartBlock carries the cart context plus acquisition provenance recorded
// on the order.
type CartBlock struct {
	CartID     *int   `json:"carrinho_id"`
	Status     string `json:"status"`
	StatusCode *int   `json:"status_codigo"`
	Origin     string `json:"origem"`
	UTMSource  string `json:"utm_source"`
	UTMParams  string `json:"utm_params"`
	IP         string `json:"ip"`
	UserAgent  string `json:"user_agent"`
}

// DeliveryBlock is always fully shaped whether or not tracking exists.
// Address is null only when no candidate source had any core field.
type DeliveryBlock struct {
	Status       string          `json:"status"`
	TrackingCode string          `json:"codigo_rastreio"`
	Carrier      string          `json:"transportadora"`
	TrackingLink string          `json:"link_rastreio"`
	DeliveryETA  string          `json:"previsao_entrega"`
	PostedAt     string          `json:"data_postagem"`
	Address      *AddressBlock   `json:"endereco_entrega"`
	Events       []DeliveryEvent `json:"eventos"`
}

// AddressBlock is the normalized delivery address.
type AddressBlock struct {
	Recipient  string `json:"destinatario"`
	Street     string `json:"logradouro"`
	Number     string `json:"numero"`
	Complement string `json:"complemento"`
	District   string `json:"bairro"`
	City       string `json:"cidade"`
	State      string `json:"estado"`
	ZipCode    string `json:"cep"`
}

// DeliveryEvent is one carrier progress entry, normalized.
type DeliveryEvent struct {
	Date        string `json:"data"`
	Description string `json:"descricao"`
	Location    string `json:"local"`
}

// SourceBlock is the provenance block: fixed source tag, capture time, and
// a deterministic idempotency key derived from the source ids.
type SourceBlock struct {
	Source         string `json:"fonte"`
	CapturedAt     string `json:"capturado_em"`
	IdempotencyKey string `json:"identificador_unico"`
}
