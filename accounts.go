package brokerage

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/goliatone/go-brokerage/core"
	"github.com/goliatone/go-brokerage/validation"
)

const allAccounts = "all"

// GetAccounts returns one account, or every linked account when account is
// empty or "all". fields may include positions and orders.
func (c *Client) GetAccounts(ctx context.Context, account string, fields ...string) (*core.DispatchResult, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	if err := c.validate(validation.EndpointGetAccounts, validation.ParameterFields, fields...); err != nil {
		return nil, err
	}
	endpoint := "accounts"
	if trimmed := strings.TrimSpace(account); trimmed != "" && trimmed != allAccounts {
		endpoint = "accounts/" + url.PathEscape(trimmed)
	}
	return c.get(ctx, endpoint, map[string]string{
		"apikey": c.clientID(),
		"fields": validation.JoinList(fields),
	})
}

// TransactionsRequest filters account transactions. A TransactionID selects a
// single transaction and the remaining filters are ignored.
type TransactionsRequest struct {
	Account       string
	Type          string
	Symbol        string
	StartDate     string
	EndDate       string
	TransactionID string
}

func (c *Client) GetTransactions(ctx context.Context, req TransactionsRequest) (*core.DispatchResult, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	account, err := c.account(req.Account)
	if err != nil {
		return nil, err
	}
	if id := strings.TrimSpace(req.TransactionID); id != "" {
		return c.get(ctx, "accounts/"+url.PathEscape(account)+"/transactions/"+url.PathEscape(id), nil)
	}

	transactionType := req.Type
	if transactionType == "" {
		transactionType = "ALL"
	}
	if err := c.validate(validation.EndpointGetTransactions, validation.ParameterType, transactionType); err != nil {
		return nil, err
	}
	return c.get(ctx, "accounts/"+url.PathEscape(account)+"/transactions", map[string]string{
		"type":      transactionType,
		"symbol":    req.Symbol,
		"startDate": req.StartDate,
		"endDate":   req.EndDate,
	})
}

func (c *Client) GetPreferences(ctx context.Context, account string) (*core.DispatchResult, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	account, err := c.account(account)
	if err != nil {
		return nil, err
	}
	return c.get(ctx, "accounts/"+url.PathEscape(account)+"/preferences", nil)
}

// UpdatePreferences replaces the account preferences with payload.
func (c *Client) UpdatePreferences(ctx context.Context, account string, payload any) (*core.DispatchResult, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	account, err := c.account(account)
	if err != nil {
		return nil, err
	}
	if payload == nil {
		return nil, argumentError("payload", "preferences payload is required")
	}
	return c.sendJSON(ctx, http.MethodPut, "accounts/"+url.PathEscape(account)+"/preferences", payload, false)
}

func (c *Client) GetStreamerSubscriptionKeys(ctx context.Context, accounts ...string) (*core.DispatchResult, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	joined := validation.JoinList(accounts)
	if joined == "" {
		account, err := c.account("")
		if err != nil {
			return nil, err
		}
		joined = account
	}
	return c.get(ctx, "userprincipals/streamersubscriptionkeys", map[string]string{
		"accountIds": joined,
	})
}

func (c *Client) GetUserPrincipals(ctx context.Context, fields ...string) (*core.DispatchResult, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	if err := c.validate(validation.EndpointGetUserPrincipals, validation.ParameterFields, fields...); err != nil {
		return nil, err
	}
	return c.get(ctx, "userprincipals", map[string]string{
		"apikey": c.clientID(),
		"fields": validation.JoinList(fields),
	})
}
