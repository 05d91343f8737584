package web

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/simex/internal/activity"
	"github.com/vadiminshakov/simex/internal/clients"
	"github.com/vadiminshakov/simex/internal/domain"
	"github.com/vadiminshakov/simex/internal/services/balance"
	"github.com/vadiminshakov/simex/internal/services/market"
	"github.com/vadiminshakov/simex/internal/services/orders"
	"github.com/vadiminshakov/simex/internal/services/session"
	"github.com/vadiminshakov/simex/internal/services/trading"
)

type memoryStore struct {
	creds domain.Credentials
	saved bool
}

func (m *memoryStore) Save(creds domain.Credentials) error {
	m.creds, m.saved = creds, true
	return nil
}

func (m *memoryStore) Load() (domain.Credentials, bool, error) {
	return m.creds, m.saved, nil
}

func newExchange(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	reply := func(w http.ResponseWriter, status int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}

	mux.HandleFunc("GET /orderbooks", func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusOK, []domain.OrderBook{{Pair: "NTN-USDC", Base: "NTN", Quote: "USDC", MinAmount: "0.1", TickSize: "0.01"}})
	})
	mux.HandleFunc("GET /orderbooks/NTN-USDC/depth", func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusOK, domain.Depth{
			Bids: []domain.DepthPoint{{Price: "10.00", Amount: "5"}},
			Asks: []domain.DepthPoint{{Price: "10.20", Amount: "2"}},
		})
	})
	mux.HandleFunc("GET /orderbooks/NTN-USDC/quote", func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusOK, domain.Quote{BidPrice: "10.00", AskPrice: "10.20"})
	})
	mux.HandleFunc("GET /orders", func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusOK, []domain.Order{{OrderID: 1, Pair: "NTN-USDC", Price: "10.20", Amount: "2", Side: "ask", Status: domain.OrderStatusOpen}})
	})
	mux.HandleFunc("POST /orders", func(w http.ResponseWriter, r *http.Request) {
		var order domain.LimitOrder
		_ = json.NewDecoder(r.Body).Decode(&order)
		reply(w, http.StatusOK, domain.LimitOrderDocket{OrderID: 1, Pair: order.Pair, Price: order.Price, Amount: order.Amount, Remain: order.Amount, Side: string(order.Side), Status: "open"})
	})
	mux.HandleFunc("DELETE /orders/1", func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusBadRequest, map[string]string{"message": "order is being matched"})
	})
	mux.HandleFunc("GET /balances", func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusOK, []domain.Balance{{Symbol: "USDC", Balance: "100", Available: "79.6"}})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

type testApp struct {
	handler http.Handler
	session *session.Service
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	exchange := newExchange(t)
	client := clients.NewExchangeClient(exchange.URL, "", time.Second)

	log := activity.NewLog(nil, 0)
	coordinator := trading.NewCoordinator("", nil)
	sess := session.NewService(&memoryStore{}, client, log, nil)
	mkt := market.NewService(client, coordinator, market.Config{DefaultPair: "NTN-USDC"}, log, nil)
	require.NoError(t, mkt.Init(context.Background()))

	srv := NewServer(":0", Deps{
		Market:   mkt,
		Trading:  coordinator,
		Orders:   orders.NewService(client, coordinator, sess.APIKey, mkt.Book, log, nil),
		Balances: balance.NewService(client, sess.APIKey, log, nil),
		Session:  sess,
		Activity: log,
	}, nil)

	return &testApp{handler: srv.Handler(), session: sess}
}

func (a *testApp) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)

	var decoded map[string]any
	if rec.Body.Len() > 0 && strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	}
	return rec, decoded
}

func TestServer_Market(t *testing.T) {
	app := newTestApp(t)

	rec, body := app.do(t, http.MethodGet, "/api/market", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "NTN-USDC", body["pair"])

	rec, body = app.do(t, http.MethodPost, "/api/market/pair", map[string]string{"pair": "BTC-USDC"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "pair", body["field"])

	rec, _ = app.do(t, http.MethodPost, "/api/market/pair", map[string]string{"pair": "NTN-USDC"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = app.do(t, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/api/market/stream")
}

func TestServer_TradeFlow(t *testing.T) {
	app := newTestApp(t)

	rec, _ := app.do(t, http.MethodPost, "/api/trade/submit", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = app.do(t, http.MethodPost, "/api/session", map[string]string{"address": "0xabc", "api_key": "secret"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body := app.do(t, http.MethodPost, "/api/market/depth/select", map[string]any{"side": "ask", "index": 0})
	require.Equal(t, http.StatusOK, rec.Code)
	selection := body["selection"].(map[string]any)
	assert.Equal(t, "10.20", selection["price"])

	rec, body = app.do(t, http.MethodPost, "/api/trade", map[string]string{"amount": "12.3.4"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, body["valid"])

	rec, _ = app.do(t, http.MethodPost, "/api/trade/submit", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec, body = app.do(t, http.MethodPost, "/api/trade", map[string]string{"amount": "2"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["valid"])

	rec, body = app.do(t, http.MethodPost, "/api/trade/submit", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	docket := body["docket"].(map[string]any)
	assert.Equal(t, float64(1), docket["order_id"])
	assert.Equal(t, "10.20", docket["price"])

	rec, body = app.do(t, http.MethodDelete, "/api/trade/docket", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "order is being matched", body["error"])
	assert.Equal(t, domain.LevelCritical, body["level"])

	rec, body = app.do(t, http.MethodGet, "/api/trade", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotNil(t, body["docket"], "docket kept after failed cancel")

	rec, body = app.do(t, http.MethodGet, "/api/activity", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Error", body["status"])
}

func TestServer_AccountRoutes(t *testing.T) {
	app := newTestApp(t)

	rec, _ := app.do(t, http.MethodGet, "/api/orders", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	require.NoError(t, app.session.SetManual("0xabc", "secret"))

	rec, body := app.do(t, http.MethodGet, "/api/orders", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	groups := body["groups"].(map[string]any)
	assert.Len(t, groups["open"], 1)

	rec, body = app.do(t, http.MethodPost, "/api/orders/1/repeat", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotNil(t, body["docket"])

	rec, _ = app.do(t, http.MethodPost, "/api/orders/99/repeat", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = app.do(t, http.MethodDelete, "/api/orders/abc", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec, _ = app.do(t, http.MethodPost, "/api/session/wallet", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec, body = app.do(t, http.MethodDelete, "/api/session", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, body["connected"])

	rec, _ = app.do(t, http.MethodGet, "/api/balances", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_Stream(t *testing.T) {
	app := newTestApp(t)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/market/stream", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		app.handler.ServeHTTP(rec, req)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not stop")
	}

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "event:market")
	assert.Contains(t, rec.Body.String(), "event:trade")
}
