package core

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

// Clock supplies the current time for every expiry computation.
type Clock interface {
	Now() time.Time
}

type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time {
	if f == nil {
		return time.Now()
	}
	return f()
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

type TokenKind string

const (
	TokenKindAccess  TokenKind = "access_token"
	TokenKindRefresh TokenKind = "refresh_token"
)

type AuthState string

const (
	AuthStateUnauthenticated           AuthState = "unauthenticated"
	AuthStateAwaitingUserAuthorization AuthState = "awaiting_user_authorization"
	AuthStateExchangingCode            AuthState = "exchanging_code"
	AuthStateAuthenticated             AuthState = "authenticated"
)

// Credentials identify the registered application and the account it acts on.
type Credentials struct {
	ClientID        string
	RedirectURI     string
	AccountNumber   string
	CredentialsPath string
}

func (c Credentials) Validate() error {
	if strings.TrimSpace(c.ClientID) == "" {
		return NewConfigurationError("core: client id is required", nil)
	}
	if strings.TrimSpace(c.RedirectURI) == "" {
		return NewConfigurationError("core: redirect uri is required", nil)
	}
	if _, err := url.Parse(strings.TrimSpace(c.RedirectURI)); err != nil {
		return WrapConfigurationError(err, "core: redirect uri is invalid", map[string]any{
			"redirect_uri": c.RedirectURI,
		})
	}
	return nil
}

// StateStore persists a single session's token state. Load reports found=false
// when nothing has been stored yet.
type StateStore interface {
	Load(ctx context.Context) (SessionState, bool, error)
	Save(ctx context.Context, state SessionState) error
	Delete(ctx context.Context) error
}

// RedirectPrompter presents the authorization URL to the user and returns
// the full URL the provider redirected to after consent.
type RedirectPrompter interface {
	PromptRedirect(ctx context.Context, authorizationURL string) (string, error)
}

type RedirectPrompterFunc func(ctx context.Context, authorizationURL string) (string, error)

func (f RedirectPrompterFunc) PromptRedirect(ctx context.Context, authorizationURL string) (string, error) {
	if f == nil {
		return "", fmt.Errorf("core: redirect prompter is nil")
	}
	return f(ctx, authorizationURL)
}

type TransportRequest struct {
	Method               string
	URL                  string
	Headers              map[string]string
	Query                map[string]string
	Body                 []byte
	Metadata             map[string]any
	Timeout              time.Duration
	MaxResponseBodyBytes int64
}

type TransportResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	Metadata   map[string]any
}

type TransportAdapter interface {
	Kind() string
	Do(ctx context.Context, req TransportRequest) (TransportResponse, error)
}

type BodyMode int

const (
	BodyModeNone BodyMode = iota
	BodyModeForm
	BodyModeJSON
)

func (m BodyMode) String() string {
	switch m {
	case BodyModeForm:
		return "form"
	case BodyModeJSON:
		return "json"
	default:
		return "none"
	}
}

// OutboundRequest describes one call to the provider API. Endpoint is relative
// to {base}/{api_version}; BaseURL replaces the configured API base when set.
// Params become the query string; entries with an empty key or a blank value
// are dropped. Timeout bounds the call on top of the caller's context, and
// zero leaves only the transport default.
type OutboundRequest struct {
	Method           string
	Endpoint         string
	Mode             BodyMode
	Params           map[string]string
	Form             url.Values
	JSON             any
	BaseURL          string
	WantOrderDetails bool
	Timeout          time.Duration
}

// OrderDetails is the result shape for order-mutating calls.
type OrderDetails struct {
	OrderID       string
	StatusCode    int
	Headers       http.Header
	Body          []byte
	RequestMethod string
	RequestBody   string
}

type DispatchResult struct {
	StatusCode int
	URL        string
	Headers    http.Header
	Body       []byte
	Payload    any
	Order      *OrderDetails
}

// Decode unmarshals the JSON response body into target.
func (r *DispatchResult) Decode(target any) error {
	if r == nil {
		return fmt.Errorf("core: dispatch result is nil")
	}
	if len(strings.TrimSpace(string(r.Body))) == 0 {
		return fmt.Errorf("core: dispatch result has an empty body")
	}
	return json.Unmarshal(r.Body, target)
}

// OrderPayload is implemented by anything that can render itself as an order
// request body.
type OrderPayload interface {
	ToOrderPayload() (any, error)
}

// RawOrder passes an already-shaped order body through unchanged.
type RawOrder map[string]any

func (o RawOrder) ToOrderPayload() (any, error) {
	if len(o) == 0 {
		return nil, fmt.Errorf("core: order payload is required")
	}
	return map[string]any(o), nil
}

// ResolveOrderPayload accepts an OrderPayload or a plain JSON-serialisable
// value and returns the body to send.
func ResolveOrderPayload(value any) (any, error) {
	if value == nil {
		return nil, fmt.Errorf("core: order payload is required")
	}
	if payload, ok := value.(OrderPayload); ok {
		return payload.ToOrderPayload()
	}
	return value, nil
}
