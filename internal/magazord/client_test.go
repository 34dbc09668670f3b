package magazord

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(server *httptest.Server) *Client {
	c := NewClient(Config{
		BaseURL:  server.URL,
		Username: "apiuser",
		Password: "apisecret",
		Timeout:  5 * time.Second,
	})
	// Plain client: retry noise only obscures what these tests check.
	c.SetHTTPClient(&http.Client{Timeout: 5 * time.Second})
	return c
}

func TestGetCartEmulatedByListing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/carrinho", r.URL.Path)
		assert.Equal(t, "42", r.URL.Query().Get("id"))
		assert.Equal(t, "1", r.URL.Query().Get("limit"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"items":[
			{"id":42,"status":3,"valorTotal":"19.9","pedido":{"codigo":"C1"}}
		]}}`))
	}))
	defer server.Close()

	cart, err := newTestClient(server).GetCart(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, 42, cart.ID)
	assert.Equal(t, 3, cart.Status)
	assert.True(t, cart.HasOrder())
	assert.Equal(t, "C1", cart.OrderCode())
}

func TestGetCartEmptyListingIsNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"items":[]}}`))
	}))
	defer server.Close()

	_, err := newTestClient(server).GetCart(context.Background(), 999)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDoRequestSendsBasicAuth(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"data":{"id":7,"nome":"Ana"}}`))
	}))
	defer server.Close()

	_, err := newTestClient(server).GetPerson(context.Background(), 7)
	require.NoError(t, err)

	want := "Basic " + base64.StdEncoding.EncodeToString([]byte("apiuser:apisecret"))
	assert.Equal(t, want, gotAuth)
}

func TestGetOrderNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
	}))
	defer server.Close()

	_, err := newTestClient(server).GetOrder(context.Background(), "NOPE")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetOrderSideLoadsContacts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/pedido/A100", r.URL.Path)
		assert.Equal(t, "1", r.URL.Query().Get("listaContatos"))
		w.Write([]byte(`{"data":{
			"id":100,"codigo":"A100","pessoaId":7,
			"pedidoSituacao":3,"valorTotal":"150.50"
		}}`))
	}))
	defer server.Close()

	order, err := newTestClient(server).GetOrder(context.Background(), "A100")
	require.NoError(t, err)
	assert.Equal(t, 100, order.ID)
	code, known := order.StatusCode()
	assert.True(t, known)
	assert.Equal(t, 3, code)
	assert.Equal(t, 7, order.PersonID)
}

func TestGetTrackingSwallowsErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusNotFound)
	}))
	defer server.Close()

	info, err := newTestClient(server).GetTracking(context.Background(), "A100")
	assert.NoError(t, err)
	assert.Nil(t, info)
}

func TestListCartsSplitsIntoWindows(t *testing.T) {
	type window struct{ start, end string }
	var windows []window

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		windows = append(windows, window{
			start: q.Get("dataAtualizacaoInicio"),
			end:   q.Get("dataAtualizacaoFim"),
		})
		assert.Equal(t, "2,3", q.Get("status"))

		// Second window fails: the listing must skip it and continue.
		if len(windows) == 2 {
			http.Error(w, "upstream hiccup", http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"data":{"items":[{"id":` + q.Get("limit") + `,"status":2}]}}`))
	}))
	defer server.Close()

	client := newTestClient(server)
	fixed := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	client.SetClock(func() time.Time { return fixed })

	carts, err := client.ListCarts(context.Background(), 50, 180, "")
	require.NoError(t, err)

	// 180 days at 30 days per window is 6 requests, newest first.
	require.Len(t, windows, 6)
	assert.Equal(t, "13/02/2026 12:00:00", windows[0].start)
	assert.Equal(t, "15/03/2026 12:00:00", windows[0].end)
	assert.Equal(t, "13/02/2026 12:00:00", windows[1].end)
	assert.Equal(t, "15/12/2025 12:00:00", windows[2].start)

	// Window 2 failed, the other five each produced one cart.
	assert.Len(t, carts, 5)
}

func TestListOrdersBuildsSituationFilter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/pedido", r.URL.Path)
		assert.Equal(t, "3,4", q.Get("situacao"))
		assert.NotEmpty(t, q.Get("dataHoraInicio"))
		assert.NotEmpty(t, q.Get("dataHoraFim"))
		w.Write([]byte(`{"data":{"items":[
			{"id":1,"codigo":"A1","pedidoSituacao":3},
			{"id":2,"codigo":"A2","pedidoSituacao":4}
		]}}`))
	}))
	defer server.Close()

	orders, err := newTestClient(server).ListOrders(context.Background(), []int{3, 4}, 7)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, "A1", orders[0].Code)
}
