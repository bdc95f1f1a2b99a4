package woocommerce

import (
	"context"
	"encoding/json"
	"fmt"

	pkgerrors "github.com/angelmondragon/cartflow/pkg/errors"
)

// OrderFailedMessage is the public message attached to rejected orders.
const OrderFailedMessage = "WooCommerce Order Failed"

// CreatedOrder is the subset of the created order echoed back to callers.
type CreatedOrder struct {
	ID     int64           `json:"id"`
	Number string          `json:"number"`
	Status string          `json:"status"`
	Total  string          `json:"total"`
	Raw    json.RawMessage `json:"-"`
}

// CreateOrder posts the order payload to {base}/orders.
func (c *Client) CreateOrder(ctx context.Context, payload any) (*CreatedOrder, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "woocommerce client not configured")
	}
	if payload == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order payload is required")
	}

	result, err := c.orders.Execute(func() (interface{}, error) {
		resp, err := c.http.R().
			SetContext(ctx).
			SetQueryParams(c.credentials()).
			SetHeader("Content-Type", "application/json").
			SetBody(payload).
			Post("/orders")
		if err != nil {
			return nil, fmt.Errorf("post order: %w", err)
		}
		if !resp.IsSuccess() {
			return nil, newUpstreamError(resp.StatusCode(), resp.Body())
		}
		return resp.Body(), nil
	})
	if err != nil {
		return nil, classify(err, OrderFailedMessage)
	}

	body := result.([]byte)
	var created CreatedOrder
	if err := json.Unmarshal(body, &created); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode created order")
	}
	created.Raw = append(json.RawMessage(nil), body...)
	return &created, nil
}
