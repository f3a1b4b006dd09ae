// Package commerce is the HTTP client for the remote commerce API: coupon
// validation against a cart total, and order placement at checkout. The
// backend is the pricing authority; this client only carries its answers.
package commerce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/cartsync/internal/model"
)

// CouponTerms is the pricing service's answer for a valid coupon.
// NewTotal is optional; absent means the caller derives the adjusted
// total from the discount amount.
type CouponTerms struct {
	DiscountAmount decimal.Decimal  `json:"discountAmount"`
	NewTotal       *decimal.Decimal `json:"newTotal,omitempty"`
}

// OrderConfirmation is the commerce API's acknowledgement of a placed order.
type OrderConfirmation struct {
	OrderID string `json:"order_id"`
}

// Client talks to the remote commerce API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a Client for the API rooted at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

type validateCouponRequest struct {
	Code      string          `json:"code"`
	CartTotal decimal.Decimal `json:"cartTotal"`
}

type apiError struct {
	Error string `json:"error"`
}

// ValidateCoupon asks the pricing service whether code applies at the
// given cart total. The code must already be normalized by the caller.
// A 4xx answer is reported as ErrCouponRejected with the server's reason;
// everything else (transport failure, 5xx) is a plain error.
func (c *Client) ValidateCoupon(ctx context.Context, code string, cartTotal decimal.Decimal) (*CouponTerms, error) {
	body, err := c.post(ctx, "/coupons/validate", validateCouponRequest{
		Code:      code,
		CartTotal: cartTotal,
	})
	if err != nil {
		return nil, err
	}

	var terms CouponTerms
	if err := json.Unmarshal(body, &terms); err != nil {
		return nil, fmt.Errorf("decode coupon terms: %w", err)
	}
	return &terms, nil
}

type orderLine struct {
	ProductID string          `json:"product_id"`
	VariantID string          `json:"variant_id,omitempty"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type placeOrderRequest struct {
	Items      []orderLine     `json:"items"`
	Subtotal   decimal.Decimal `json:"subtotal"`
	CouponCode string          `json:"coupon_code,omitempty"`
	FinalTotal decimal.Decimal `json:"final_total"`
}

// PlaceOrder submits the checkout snapshot as an order. The backend
// re-verifies pricing and any attached coupon server-side; it is the
// final authority on the order total.
func (c *Client) PlaceOrder(ctx context.Context, snap model.Snapshot) (*OrderConfirmation, error) {
	req := placeOrderRequest{
		Items:      make([]orderLine, 0, len(snap.Lines)),
		Subtotal:   snap.Subtotal,
		FinalTotal: snap.FinalTotal,
	}
	for _, line := range snap.Lines {
		req.Items = append(req.Items, orderLine{
			ProductID: line.ProductID,
			VariantID: line.VariantID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
		})
	}
	if snap.Coupon != nil {
		req.CouponCode = snap.Coupon.Code
	}

	body, err := c.post(ctx, "/orders", req)
	if err != nil {
		return nil, err
	}

	var conf OrderConfirmation
	if err := json.Unmarshal(body, &conf); err != nil {
		return nil, fmt.Errorf("decode order confirmation: %w", err)
	}
	return &conf, nil
}

// post issues a JSON POST and returns the response body on 2xx. 4xx is
// mapped to the rejection sentinel for the endpoint with the server's
// error message attached.
func (c *Client) post(ctx context.Context, path string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response from %s: %w", path, err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return body, nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		sentinel := ErrCouponRejected
		if path == "/orders" {
			sentinel = ErrOrderRejected
		}
		var ae apiError
		if json.Unmarshal(body, &ae) == nil && ae.Error != "" {
			return nil, fmt.Errorf("%w: %s", sentinel, ae.Error)
		}
		return nil, fmt.Errorf("%w: status %d", sentinel, resp.StatusCode)
	default:
		return nil, fmt.Errorf("call %s: unexpected status %d", path, resp.StatusCode)
	}
}
