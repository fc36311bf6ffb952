package brokerage

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/goliatone/go-brokerage/core"
	"github.com/goliatone/go-brokerage/validation"
)

// OrdersQuery filters order listings. Entered times use yyyy-MM-dd.
type OrdersQuery struct {
	Account         string
	MaxResults      int
	FromEnteredTime string
	ToEnteredTime   string
	Status          string
}

func (q OrdersQuery) params() map[string]string {
	params := map[string]string{
		"fromEnteredTime": q.FromEnteredTime,
		"toEnteredTime":   q.ToEnteredTime,
		"status":          q.Status,
	}
	if q.MaxResults > 0 {
		params["maxResults"] = strconv.Itoa(q.MaxResults)
	}
	return params
}

func (c *Client) validateOrderStatus(endpoint validation.Endpoint, status string) error {
	if status == "" {
		return nil
	}
	return c.validate(endpoint, validation.ParameterStatus, status)
}

// GetOrdersPath lists the orders of a single account.
func (c *Client) GetOrdersPath(ctx context.Context, query OrdersQuery) (*core.DispatchResult, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	account, err := c.account(query.Account)
	if err != nil {
		return nil, err
	}
	if err := c.validateOrderStatus(validation.EndpointGetOrdersPath, query.Status); err != nil {
		return nil, err
	}
	return c.get(ctx, ordersEndpoint(account), query.params())
}

// GetOrdersQuery lists orders across accounts, narrowed to query.Account
// when it is set.
func (c *Client) GetOrdersQuery(ctx context.Context, query OrdersQuery) (*core.DispatchResult, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	if err := c.validateOrderStatus(validation.EndpointGetOrdersQuery, query.Status); err != nil {
		return nil, err
	}
	params := query.params()
	params["accountId"] = strings.TrimSpace(query.Account)
	return c.get(ctx, "orders", params)
}

// GetOrders returns a single order, or every order of the account when
// orderID is empty.
func (c *Client) GetOrders(ctx context.Context, account string, orderID string) (*core.DispatchResult, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	account, err := c.account(account)
	if err != nil {
		return nil, err
	}
	endpoint := ordersEndpoint(account)
	if trimmed := strings.TrimSpace(orderID); trimmed != "" {
		endpoint += "/" + url.PathEscape(trimmed)
	}
	return c.get(ctx, endpoint, nil)
}

func (c *Client) CancelOrder(ctx context.Context, account string, orderID string) (*core.DispatchResult, error) {
	endpoint, err := c.orderEndpoint(account, "orders", "order_id", orderID)
	if err != nil {
		return nil, err
	}
	return c.delete(ctx, endpoint, true)
}

// PlaceOrder submits order, which may be a core.OrderPayload, a RawOrder or
// any JSON-serialisable value.
func (c *Client) PlaceOrder(ctx context.Context, account string, order any) (*core.DispatchResult, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	account, err := c.account(account)
	if err != nil {
		return nil, err
	}
	return c.sendJSON(ctx, http.MethodPost, ordersEndpoint(account), order, true)
}

func (c *Client) ModifyOrder(ctx context.Context, account string, orderID string, order any) (*core.DispatchResult, error) {
	endpoint, err := c.orderEndpoint(account, "orders", "order_id", orderID)
	if err != nil {
		return nil, err
	}
	return c.sendJSON(ctx, http.MethodPut, endpoint, order, true)
}

// GetSavedOrder returns one saved order, or all of them when savedOrderID is
// empty.
func (c *Client) GetSavedOrder(ctx context.Context, account string, savedOrderID string) (*core.DispatchResult, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	account, err := c.account(account)
	if err != nil {
		return nil, err
	}
	endpoint := savedOrdersEndpoint(account)
	if trimmed := strings.TrimSpace(savedOrderID); trimmed != "" {
		endpoint += "/" + url.PathEscape(trimmed)
	}
	return c.get(ctx, endpoint, nil)
}

func (c *Client) CancelSavedOrder(ctx context.Context, account string, savedOrderID string) (*core.DispatchResult, error) {
	endpoint, err := c.orderEndpoint(account, "savedorders", "saved_order_id", savedOrderID)
	if err != nil {
		return nil, err
	}
	return c.delete(ctx, endpoint, true)
}

func (c *Client) CreateSavedOrder(ctx context.Context, account string, order any) (*core.DispatchResult, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	account, err := c.account(account)
	if err != nil {
		return nil, err
	}
	return c.sendJSON(ctx, http.MethodPost, savedOrdersEndpoint(account), order, true)
}

func (c *Client) orderEndpoint(account string, collection string, field string, id string) (string, error) {
	if err := c.ready(); err != nil {
		return "", err
	}
	account, err := c.account(account)
	if err != nil {
		return "", err
	}
	id, err = requireArgument(field, id)
	if err != nil {
		return "", err
	}
	return "accounts/" + url.PathEscape(account) + "/" + collection + "/" + url.PathEscape(id), nil
}

func ordersEndpoint(account string) string {
	return "accounts/" + url.PathEscape(account) + "/orders"
}

func savedOrdersEndpoint(account string) string {
	return "accounts/" + url.PathEscape(account) + "/savedorders"
}
