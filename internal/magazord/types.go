package magazord

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Cart lifecycle statuses as exposed by the storefront API.
const (
	CartOpen      = 1
	CartAbandoned = 2
	CartConverted = 3
	CartExpired   = 4
)

// Order situation codes. The numeric codes are the upstream contract;
// descriptions ship separately on the order record.
const (
	OrderCancelled       = 0
	OrderAwaitingPayment = 1
	OrderPaymentExpired  = 2
	OrderPaid            = 3
	OrderApproved        = 4
	OrderInDispute       = 5
	OrderReturned        = 6
	OrderShipped         = 7
	OrderDelivered       = 8
)

// apiEnvelope is the response wrapper every endpoint uses: single entities
// come back as {"data": {...}}, lists as {"data": {"items": [...]}}.
type apiEnvelope struct {
	Data json.RawMessage `json:"data"`
}

type listPayload struct {
	Items json.RawMessage `json:"items"`
}

// FlexFloat decodes a numeric field that the upstream API serializes
// inconsistently as either a JSON number or a numeric string ("19.9").
// Absent, null and empty-string values all decode to zero.
type FlexFloat float64

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexFloat) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	if s[0] == '"' {
		var raw string
		if err := json.Unmarshal(b, &raw); err != nil {
			return err
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			*f = 0
			return nil
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("invalid numeric value %q: %w", raw, err)
		}
		*f = FlexFloat(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = FlexFloat(v)
	return nil
}

// Float64 returns the decoded value.
func (f FlexFloat) Float64() float64 { return float64(f) }

// Cart is a pre-order item collection. Status 2 (abandoned after checkout)
// and 3 (converted) are the only states that reference an order.
type Cart struct {
	ID        int           `json:"id"`
	Status    int           `json:"status"`
	Total     FlexFloat     `json:"valorTotal"`
	UpdatedAt string        `json:"dataAtualizacao"`
	Order     *CartOrderRef `json:"pedido"`
}

// CartOrderRef is the order reference embedded on a converted cart.
type CartOrderRef struct {
	Code string `json:"codigo"`
}

// OrderCode returns the linked order code, or "" when the cart has none.
func (c *Cart) OrderCode() string {
	if c == nil || c.Order == nil {
		return ""
	}
	return c.Order.Code
}

// HasOrder reports whether the cart's status implies an associated order.
func (c *Cart) HasOrder() bool {
	return c != nil && (c.Status == CartAbandoned || c.Status == CartConverted) && c.OrderCode() != ""
}

// Order is a confirmed purchase record. The upstream API exposes the status
// code under two key variants depending on the endpoint; StatusCode resolves
// the precedence in one place.
type Order struct {
	ID            int       `json:"id"`
	Code          string    `json:"codigo"`
	PersonID      int       `json:"pessoaId"`
	Situation     *int      `json:"pedidoSituacao"`
	SituationID   *int      `json:"pedidoSituacaoId"`
	SituationDesc string    `json:"pedidoSituacaoDescricao"`
	Total         FlexFloat `json:"valorTotal"`
	PaymentMethod string    `json:"formaPagamentoNome"`
	PaymentLink   string    `json:"linkPagamento"`
	CreatedAt     string    `json:"dataHora"`
	UpdatedAt     string    `json:"dataAtualizacao"`
	CartID        *int      `json:"carrinhoId"`

	Items        []LineItem    `json:"pedidoItem"`
	Payments     []Payment     `json:"arrayPedidoPagamento"`
	TrackingRefs []TrackingRef `json:"arrayPedidoRastreio"`

	// Destination address, flattened on the order record.
	RecipientName string `json:"nomeDestinatario"`
	Street        string `json:"logradouro"`
	Number        string `json:"numero"`
	Complement    string `json:"complemento"`
	District      string `json:"bairro"`
	CityName      string `json:"cidadeNome"`
	StateCode     string `json:"estadoSigla"`
	ZipCode       string `json:"cep"`

	// Acquisition provenance.
	Origin         string `json:"origem"`
	TrackingSource string `json:"pedidoTrackingSource"`
	TrackingParams string `json:"pedidoTrackingParams"`
	IP             string `json:"pedidoIp"`
	UserAgent      string `json:"pedidoTrackingUserAgent"`
}

// StatusCode resolves the order situation from its two key variants.
// An explicitly present zero (cancelled) wins over the fallback; ok is
// false when neither key was present, so callers can tell an absent
// situation apart from a cancellation.
func (o *Order) StatusCode() (code int, ok bool) {
	if o == nil {
		return 0, false
	}
	if o.Situation != nil {
		return *o.Situation, true
	}
	if o.SituationID != nil {
		return *o.SituationID, true
	}
	return 0, false
}

// Payment is one entry of the order's payment array.
type Payment struct {
	MethodName string `json:"formaPagamentoNome"`
}

// LineItem is a single order item. Every field is independently optional
// upstream; product id and monetary fields come in near-duplicate key
// variants that the accessors reconcile.
type LineItem struct {
	ProductID   int       `json:"produtoId"`
	VariantID   int       `json:"produtoDerivacaoId"`
	Description string    `json:"descricao"`
	ProductName string    `json:"produtoNome"`
	Quantity    FlexFloat `json:"quantidade"`
	UnitPrice   FlexFloat `json:"valorUnitario"`
	ItemTotal   FlexFloat `json:"valorItem"`
	Total       FlexFloat `json:"valorTotal"`
}

// ResolvedProductID prefers the more specific variant id.
func (i LineItem) ResolvedProductID() int {
	if i.VariantID != 0 {
		return i.VariantID
	}
	return i.ProductID
}

// ResolvedDescription prefers the item description over the product name.
func (i LineItem) ResolvedDescription() string {
	if i.Description != "" {
		return i.Description
	}
	return i.ProductName
}

// ResolvedTotal prefers the item-level total key over the generic one.
func (i LineItem) ResolvedTotal() float64 {
	if i.ItemTotal != 0 {
		return i.ItemTotal.Float64()
	}
	return i.Total.Float64()
}

// Person is the customer entity linked to an order.
type Person struct {
	ID        int       `json:"id"`
	Name      string    `json:"nome"`
	Email     string    `json:"email"`
	Contacts  []Contact `json:"pessoaContato"`
	Addresses []Address `json:"pessoaEndereco"`
}

// Contact is one contact channel, tagged with a free-form type.
type Contact struct {
	Type  string `json:"tipoContato"`
	Value string `json:"contato"`
}

// PrimaryPhone extracts the person's main phone number. Entries tagged
// "celular" or "telefone" win; otherwise the first non-empty entry is used.
// Returns "" when no contact carries a value. This is the single phone
// heuristic for the whole system — do not reimplement it per call site.
func (p *Person) PrimaryPhone() string {
	if p == nil {
		return ""
	}
	for _, c := range p.Contacts {
		if (c.Type == "celular" || c.Type == "telefone") && c.Value != "" {
			return c.Value
		}
	}
	for _, c := range p.Contacts {
		if c.Value != "" {
			return c.Value
		}
	}
	return ""
}

// HasContactChannel reports whether the person can be reached at all.
// Records failing this gate are not eligible for CRM delivery.
func (p *Person) HasContactChannel() bool {
	return p != nil && (p.Email != "" || p.PrimaryPhone() != "")
}

// Address is the shape shared by person addresses and tracking delivery
// addresses.
type Address struct {
	Street     string `json:"logradouro"`
	Number     string `json:"numero"`
	Complement string `json:"complemento"`
	District   string `json:"bairro"`
	City       string `json:"cidade"`
	State      string `json:"estado"`
	ZipCode    string `json:"cep"`
}

// TrackingInfo is carrier-provided shipment data, absent until the order
// physically ships.
type TrackingInfo struct {
	Refs []TrackingRef `json:"arrayPedidoRastreio"`
}

// First returns the first tracking reference, or nil.
func (t *TrackingInfo) First() *TrackingRef {
	if t == nil || len(t.Refs) == 0 {
		return nil
	}
	return &t.Refs[0]
}

// TrackingRef is a single shipment record. Several fields arrive under two
// key variants; the accessors express the preference order once.
type TrackingRef struct {
	Code        string          `json:"codigoRastreio"`
	CodeAlt     string          `json:"codigoRastreamento"`
	Link        string          `json:"link"`
	LinkAlt     string          `json:"linkRastreamento"`
	CarrierName string          `json:"transportadoraNome"`
	ETA         string          `json:"dataLimiteEntregaCliente"`
	ETAAlt      string          `json:"previsaoEntrega"`
	PostedAt    string          `json:"dataPostagem"`
	Address     *Address        `json:"pedidoEndereco"`
	Items       []LineItem      `json:"pedidoItem"`
	Events      []TrackingEvent `json:"eventos"`
}

// TrackingCode resolves the tracking code from its key variants.
func (t *TrackingRef) TrackingCode() string {
	if t == nil {
		return ""
	}
	if t.Code != "" {
		return t.Code
	}
	return t.CodeAlt
}

// TrackingLink resolves the tracking link from its key variants.
func (t *TrackingRef) TrackingLink() string {
	if t == nil {
		return ""
	}
	if t.Link != "" {
		return t.Link
	}
	return t.LinkAlt
}

// DeliveryETA resolves the estimated delivery date from its key variants.
func (t *TrackingRef) DeliveryETA() string {
	if t == nil {
		return ""
	}
	if t.ETA != "" {
		return t.ETA
	}
	return t.ETAAlt
}

// TrackingEvent is one carrier progress entry.
type TrackingEvent struct {
	Date        string `json:"data"`
	Description string `json:"descricao"`
	Location    string `json:"local"`
}

// Bundle is the raw aggregate assembled by the Aggregator. Cart and
// Tracking are optional depending on which flow produced it.
type Bundle struct {
	Cart     *Cart
	Order    *Order
	Person   *Person
	Tracking *TrackingInfo
}

// TrackingRef resolves the effective shipment record for the bundle: the
// side-loaded tracking response wins, order-embedded refs are the fallback.
func (b *Bundle) TrackingRef() *TrackingRef {
	if b == nil {
		return nil
	}
	if ref := b.Tracking.First(); ref != nil {
		return ref
	}
	if b.Order != nil && len(b.Order.TrackingRefs) > 0 {
		return &b.Order.TrackingRefs[0]
	}
	return nil
}
