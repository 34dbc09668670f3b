package ghl

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/magazord-bridge/internal/transform"
)

func testEvent() *transform.Event {
	return &transform.Event{
		EventType: transform.EventPaymentConfirmed,
		OrderID:   100,
		OrderCode: "C1",
		Source: transform.SourceBlock{
			Source:         "magazord",
			IdempotencyKey: "MGZ-42-100",
		},
	}
}

func TestDeliverPostsEventJSON(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"accepted":true}`))
	}))
	defer server.Close()

	client := NewClient(Config{WebhookURL: server.URL})
	result, err := client.Deliver(context.Background(), testEvent())
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, result.Status)
	assert.Equal(t, `{"accepted":true}`, result.Body)
	assert.Equal(t, "payment_confirmed", got["tipo_evento"])
	assert.Equal(t, "MGZ-42-100", got["origem"].(map[string]any)["identificador_unico"])
}

func TestDeliverRejectionIsDeliveryError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"error":"bad payload"}`))
	}))
	defer server.Close()

	client := NewClient(Config{WebhookURL: server.URL})
	_, err := client.Deliver(context.Background(), testEvent())
	require.Error(t, err)

	var deliveryErr *DeliveryError
	require.ErrorAs(t, err, &deliveryErr)
	assert.Equal(t, http.StatusUnprocessableEntity, deliveryErr.Status)
	assert.Contains(t, deliveryErr.Body, "bad payload")
}

func TestDeliverNeverRetries(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(Config{WebhookURL: server.URL})
	_, err := client.Deliver(context.Background(), testEvent())
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestIsConfigured(t *testing.T) {
	assert.False(t, NewClient(Config{}).IsConfigured())
	assert.True(t, NewClient(Config{WebhookURL: "https://hooks.example.com/x"}).IsConfigured())
}
