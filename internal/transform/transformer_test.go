package transform

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/magazord-bridge/internal/magazord"
)

func intPtr(v int) *int { return &v }

// convertedCartBundle is the minimal happy-path fixture: converted cart,
// paid order, customer reachable by phone only.
func convertedCartBundle() *magazord.Bundle {
	return &magazord.Bundle{
		Cart: &magazord.Cart{
			ID:     42,
			Status: magazord.CartConverted,
			Order:  &magazord.CartOrderRef{Code: "C1"},
		},
		Order: &magazord.Order{
			ID:        100,
			Code:      "C1",
			PersonID:  7,
			Situation: intPtr(magazord.OrderPaid),
			Total:     magazord.FlexFloat(19.9),
			Items: []magazord.LineItem{
				{ProductID: 5, Description: "Tênis", Quantity: 1, UnitPrice: 19.9, ItemTotal: 19.9},
			},
		},
		Person: &magazord.Person{
			ID:   7,
			Name: "Ana",
			Contacts: []magazord.Contact{
				{Type: "celular", Value: "+551199999999"},
			},
		},
	}
}

func newTestTransformer() *Transformer {
	tr := New()
	tr.SetClock(func() time.Time {
		return time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	})
	return tr
}

func TestTransformConvertedCart(t *testing.T) {
	event := newTestTransformer().Transform(convertedCartBundle(), nil)

	assert.Equal(t, EventPaymentConfirmed, event.EventType)
	assert.Equal(t, 100, event.OrderID)
	assert.Equal(t, "C1", event.OrderCode)
	assert.Equal(t, 3, event.Status.Code)
	assert.Equal(t, "Pago", event.Status.Description)

	assert.Equal(t, "Ana", event.Person.Name)
	assert.Equal(t, "", event.Person.Email)
	assert.Equal(t, "+551199999999", event.Person.Phone)

	assert.Equal(t, "19.90", event.Order.Total)
	assert.Equal(t, "Não informado", event.Order.PaymentMethod)
	require.Len(t, event.Order.Items, 1)
	assert.Equal(t, 5, event.Order.Items[0].ProductID)
	assert.Equal(t, "19.90", event.Order.Items[0].Total)

	require.NotNil(t, event.Cart.CartID)
	assert.Equal(t, 42, *event.Cart.CartID)
	assert.Equal(t, "convertido", event.Cart.Status)

	assert.Equal(t, "magazord", event.Source.Source)
	assert.Equal(t, "2026-03-15T12:00:00Z", event.Source.CapturedAt)
	assert.Equal(t, "MGZ-42-100", event.Source.IdempotencyKey)
}

func TestIdempotencyKeyIsDeterministic(t *testing.T) {
	tr := newTestTransformer()
	bundle := convertedCartBundle()
	first := tr.Transform(bundle, nil)
	second := tr.Transform(bundle, nil)
	assert.Equal(t, first.Source.IdempotencyKey, second.Source.IdempotencyKey)

	// Order-only flow uses its own namespace.
	bundle.Cart = nil
	assert.Equal(t, "MGZ-PEDIDO-100", tr.Transform(bundle, nil).Source.IdempotencyKey)
}

func TestClassifyTrackingOverridesStatus(t *testing.T) {
	bundle := convertedCartBundle()
	bundle.Order.Situation = intPtr(magazord.OrderApproved)
	bundle.Tracking = &magazord.TrackingInfo{
		Refs: []magazord.TrackingRef{{Code: "BR123", CarrierName: "Correios"}},
	}

	event := newTestTransformer().Transform(bundle, nil)
	assert.Equal(t, EventDeliveryStarted, event.EventType)
	assert.Equal(t, DeliveryTrackable, event.Delivery.Status)
	assert.Equal(t, "BR123", event.Delivery.TrackingCode)
	assert.Equal(t, "Correios", event.Delivery.Carrier)
}

func TestClassifyUnknownStatusFallsBack(t *testing.T) {
	assert.Equal(t, EventStatusUpdated, EventTypeForStatus(99))
	assert.Equal(t, EventOrderCancelled, EventTypeForStatus(0))
}

// An order carrying neither situation key is a status update, not a
// cancellation: only an explicit zero means cancelled.
func TestClassifyAbsentStatusIsNotCancelled(t *testing.T) {
	bundle := convertedCartBundle()
	bundle.Order.Situation = nil
	bundle.Order.SituationID = nil

	event := newTestTransformer().Transform(bundle, nil)
	assert.Equal(t, EventStatusUpdated, event.EventType)
	assert.Nil(t, event.Status.Explanation)
	assert.Zero(t, event.Status.Code)
}

// The delivery block must serialize to the identical key set with and
// without tracking: consumers branch on the status flag, never on keys.
func TestDeliveryBlockKeySetIsStable(t *testing.T) {
	tr := newTestTransformer()

	keysOf := func(b *magazord.Bundle) []string {
		raw, err := json.Marshal(tr.Transform(b, nil).Delivery)
		require.NoError(t, err)
		var m map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(raw, &m))
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		return keys
	}

	plain := convertedCartBundle()

	tracked := convertedCartBundle()
	tracked.Tracking = &magazord.TrackingInfo{
		Refs: []magazord.TrackingRef{{
			Code:     "BR123",
			PostedAt: "10/03/2026 08:00:00",
			Events:   []magazord.TrackingEvent{{Date: "11/03/2026", Description: "Saiu para entrega"}},
		}},
	}

	assert.ElementsMatch(t, keysOf(plain), keysOf(tracked))

	plainEvent := tr.Transform(plain, nil)
	assert.Equal(t, DeliveryNotShipped, plainEvent.Delivery.Status)
	assert.NotNil(t, plainEvent.Delivery.Events)
	assert.Empty(t, plainEvent.Delivery.Events)
}

func TestDeliveryAddressFallsBackToOrder(t *testing.T) {
	bundle := convertedCartBundle()
	bundle.Order.Street = "Rua das Flores"
	bundle.Order.ZipCode = "01000-000"
	bundle.Order.CityName = "São Paulo"
	bundle.Tracking = &magazord.TrackingInfo{
		Refs: []magazord.TrackingRef{{
			Code:    "BR123",
			Address: &magazord.Address{}, // present but empty: no core field
		}},
	}

	event := newTestTransformer().Transform(bundle, nil)
	require.NotNil(t, event.Delivery.Address)
	assert.Equal(t, "Rua das Flores", event.Delivery.Address.Street)
	assert.Equal(t, "São Paulo", event.Delivery.Address.City)
}

func TestDeliveryAddressNilWhenNoSource(t *testing.T) {
	event := newTestTransformer().Transform(convertedCartBundle(), nil)
	assert.Nil(t, event.Delivery.Address)
}

func TestItemsFallBackToTrackingRef(t *testing.T) {
	bundle := convertedCartBundle()
	bundle.Order.Items = nil
	bundle.Tracking = &magazord.TrackingInfo{
		Refs: []magazord.TrackingRef{{
			Code: "BR123",
			Items: []magazord.LineItem{
				{VariantID: 9, ProductName: "Meia", Quantity: 2, Total: 30},
			},
		}},
	}

	event := newTestTransformer().Transform(bundle, nil)
	require.Len(t, event.Order.Items, 1)
	assert.Equal(t, 9, event.Order.Items[0].ProductID)
	assert.Equal(t, "Meia", event.Order.Items[0].Description)
	assert.Equal(t, "30.00", event.Order.Items[0].Total)
}

func TestStatusExplanationOnlyForDocumentedCodes(t *testing.T) {
	tr := newTestTransformer()

	bundle := convertedCartBundle()
	event := tr.Transform(bundle, nil)
	require.NotNil(t, event.Status.Explanation)
	assert.Contains(t, *event.Status.Explanation, "gateway")

	bundle.Order.Situation = intPtr(magazord.OrderDelivered)
	assert.Nil(t, tr.Transform(bundle, nil).Status.Explanation)
}

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "19.90", FormatMoney(19.9))
	assert.Equal(t, "0.00", FormatMoney(0))
	assert.Equal(t, "150.50", FormatMoney(150.5))
}

func TestHeadersAttachedVerbatim(t *testing.T) {
	headers := map[string]string{"X-Request-Id": "abc"}
	event := newTestTransformer().Transform(convertedCartBundle(), headers)
	assert.Equal(t, "abc", event.Headers["X-Request-Id"])

	assert.Nil(t, newTestTransformer().Transform(convertedCartBundle(), nil).Headers)
}
