// Package mexc implements the MEXC spot exchange integration: a signed REST
// client for order placement and cancellation, and a WebSocket feed for the
// public bookTicker and limit-depth streams.
package mexc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/alanyoungcy/mexcquoter/internal/crypto"
	"github.com/alanyoungcy/mexcquoter/internal/domain"
)

// Client is the REST client for the MEXC spot trading API. It satisfies
// domain.ExecutionGateway.
type Client struct {
	baseURL    string
	httpClient *http.Client
	signer     *crypto.QuerySigner
}

// NewClient creates a new spot trading client.
//
// baseURL is the REST API root, e.g. "https://api.mexc.com".
func NewClient(baseURL string, signer *crypto.QuerySigner) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		signer: signer,
	}
}

// PlaceOrder submits a limit order and returns the venue's acknowledgement.
func (c *Client) PlaceOrder(ctx context.Context, req domain.OrderRequest) (domain.OrderAck, error) {
	params := map[string]string{
		"symbol":   req.Symbol,
		"side":     string(req.Side),
		"type":     "LIMIT",
		"quantity": req.Qty.String(),
		"price":    req.Price.String(),
	}
	if req.ClientOrderID != "" {
		params["newClientOrderId"] = req.ClientOrderID
	}

	body, err := c.doSignedRequest(ctx, http.MethodPost, "/api/v3/order", params)
	if err != nil {
		return domain.OrderAck{}, fmt.Errorf("mexc: place order: %w", err)
	}

	var resp orderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.OrderAck{}, fmt.Errorf("mexc: decode order response: %w", err)
	}
	if resp.OrderID == "" {
		return domain.OrderAck{}, fmt.Errorf("mexc: order response missing order id: %s", string(body))
	}

	return domain.OrderAck{
		OrderID:       string(resp.OrderID),
		ClientOrderID: resp.ClientOrderID,
	}, nil
}

// CancelOrder cancels a single open order by venue order ID.
func (c *Client) CancelOrder(ctx context.Context, symbol, orderID string) error {
	params := map[string]string{
		"symbol":  symbol,
		"orderId": orderID,
	}

	if _, err := c.doSignedRequest(ctx, http.MethodDelete, "/api/v3/order", params); err != nil {
		return fmt.Errorf("mexc: cancel order %s: %w", orderID, err)
	}
	return nil
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

// doSignedRequest signs params into the query string, sends the request with
// the API key header, and returns the raw response body. Non-2xx responses
// are returned as *domain.GatewayError with the venue's code and message.
func (c *Client) doSignedRequest(ctx context.Context, method, path string, params map[string]string) ([]byte, error) {
	url := c.baseURL + path + "?" + c.signer.SignedQuery(params)

	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set(crypto.HeaderAPIKey, c.signer.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newGatewayError(resp.StatusCode, body)
	}

	return body, nil
}

// newGatewayError builds a *domain.GatewayError from a non-2xx response,
// extracting the venue's {code, msg} body when it parses.
func newGatewayError(statusCode int, body []byte) error {
	ge := &domain.GatewayError{
		HTTPStatus: statusCode,
		Msg:        string(body),
	}

	var ae apiError
	if err := json.Unmarshal(body, &ae); err == nil && (ae.Code != 0 || ae.Msg != "") {
		ge.Code = ae.Code
		ge.Msg = ae.Msg
	}

	return ge
}
