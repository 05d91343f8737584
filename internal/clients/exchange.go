package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/vadiminshakov/simex/internal/domain"
)

const (
	defaultTimeout = 15 * time.Second

	headerAPIKey = "API-Key"
	headerAPISig = "API-Sig"
)

// ExchangeClient talks to the exchange REST API and the external chart source.
type ExchangeClient struct {
	http     *resty.Client
	chartURL string
}

// NewExchangeClient creates a client for the API rooted at baseURL.
func NewExchangeClient(baseURL, chartURL string, timeout time.Duration) *ExchangeClient {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &ExchangeClient{http: httpClient, chartURL: chartURL}
}

// OrderBooks returns metadata for every tradable pair.
func (c *ExchangeClient) OrderBooks(ctx context.Context) ([]domain.OrderBook, error) {
	var books []domain.OrderBook
	if err := c.do(ctx, "fetch orderbooks", http.MethodGet, "/orderbooks", "", nil, &books); err != nil {
		return nil, err
	}
	return books, nil
}

// Depth returns the full depth for pair.
func (c *ExchangeClient) Depth(ctx context.Context, pair string) (domain.Depth, error) {
	var depth domain.Depth
	path := fmt.Sprintf("/orderbooks/%s/depth", url.PathEscape(pair))
	if err := c.do(ctx, "fetch depth", http.MethodGet, path, "", nil, &depth); err != nil {
		return domain.Depth{}, err
	}
	return depth, nil
}

// Quote returns the best bid/ask for pair. MidPrice is left for the caller to derive.
func (c *ExchangeClient) Quote(ctx context.Context, pair string) (domain.Quote, error) {
	var quote domain.Quote
	path := fmt.Sprintf("/orderbooks/%s/quote", url.PathEscape(pair))
	if err := c.do(ctx, "fetch quote", http.MethodGet, path, "", nil, &quote); err != nil {
		return domain.Quote{}, err
	}
	return quote, nil
}

// Orders returns the account's orders.
func (c *ExchangeClient) Orders(ctx context.Context, apiKey string) ([]domain.Order, error) {
	if apiKey == "" {
		return nil, domain.ErrNoCredentials
	}
	var orders []domain.Order
	if err := c.do(ctx, "fetch orders", http.MethodGet, "/orders", apiKey, nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// PlaceOrder submits a limit order and returns the exchange docket.
func (c *ExchangeClient) PlaceOrder(ctx context.Context, apiKey string, order domain.LimitOrder) (domain.LimitOrderDocket, error) {
	if apiKey == "" {
		return domain.LimitOrderDocket{}, domain.ErrNoCredentials
	}
	var docket domain.LimitOrderDocket
	if err := c.do(ctx, "place order", http.MethodPost, "/orders", apiKey, order, &docket); err != nil {
		return domain.LimitOrderDocket{}, err
	}
	return docket, nil
}

// CancelOrder cancels an order by id.
func (c *ExchangeClient) CancelOrder(ctx context.Context, apiKey string, orderID int64) error {
	if apiKey == "" {
		return domain.ErrNoCredentials
	}
	path := fmt.Sprintf("/orders/%d", orderID)
	return c.do(ctx, "cancel order", http.MethodDelete, path, apiKey, nil, nil)
}

// Balances returns per-asset balances of the account.
func (c *ExchangeClient) Balances(ctx context.Context, apiKey string) ([]domain.Balance, error) {
	if apiKey == "" {
		return nil, domain.ErrNoCredentials
	}
	var balances []domain.Balance
	if err := c.do(ctx, "fetch balances", http.MethodGet, "/balances", apiKey, nil, &balances); err != nil {
		return nil, err
	}
	return balances, nil
}

// Charts returns every chart series published by the chart source.
func (c *ExchangeClient) Charts(ctx context.Context) ([]domain.ChartItem, error) {
	if c.chartURL == "" {
		return nil, errors.New("chart url is not configured")
	}
	var items []domain.ChartItem
	if err := c.do(ctx, "fetch charts", http.MethodGet, c.chartURL, "", nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// CreateAPIKey exchanges a signed nonce message for an API key.
func (c *ExchangeClient) CreateAPIKey(ctx context.Context, signature, message string) (domain.APIKeyGrant, error) {
	var grant domain.APIKeyGrant
	req := c.http.R().
		SetContext(ctx).
		SetHeader(headerAPISig, strings.TrimSpace(signature)).
		SetBody(message)

	resp, err := req.Post("/apikeys")
	if err := checkResponse("create api key", resp, err); err != nil {
		return domain.APIKeyGrant{}, err
	}
	if err := json.Unmarshal(resp.Body(), &grant); err != nil {
		return domain.APIKeyGrant{}, errors.Wrap(err, "decode api key response")
	}
	return grant, nil
}

func (c *ExchangeClient) do(ctx context.Context, op, method, path, apiKey string, body, out any) error {
	req := c.http.R().SetContext(ctx)
	if apiKey != "" {
		req.SetHeader(headerAPIKey, apiKey)
	}
	if body != nil {
		req.SetBody(body)
	}

	resp, err := req.Execute(method, path)
	if err := checkResponse(op, resp, err); err != nil {
		return err
	}
	if out == nil || len(resp.Body()) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return errors.Wrapf(err, "%s: decode response", op)
	}
	return nil
}

type errorBody struct {
	Message string `json:"message"`
}

// checkResponse maps transport failures to NetworkError and non-2xx responses to APIError.
func checkResponse(op string, resp *resty.Response, err error) error {
	if err != nil {
		return &domain.NetworkError{Op: op, Err: err}
	}
	if !resp.IsError() {
		return nil
	}

	var body errorBody
	if jsonErr := json.Unmarshal(resp.Body(), &body); jsonErr != nil || body.Message == "" {
		body.Message = http.StatusText(resp.StatusCode())
	}
	return &domain.APIError{Op: op, StatusCode: resp.StatusCode(), Message: body.Message}
}
