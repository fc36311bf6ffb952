package brokerage

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/goliatone/go-brokerage/core"
	filestore "github.com/goliatone/go-brokerage/store/file"
	"github.com/goliatone/go-brokerage/transport"
	"github.com/goliatone/go-brokerage/validation"
)

// Client pairs a Session with typed wrappers for the provider endpoints.
type Client struct {
	session *core.Session
	store   core.StateStore
	table   validation.Table
}

type ClientOption func(*clientOptions)

type clientOptions struct {
	httpClient     transport.HTTPDoer
	store          core.StateStore
	table          validation.Table
	sessionOptions []core.Option
}

// WithHTTPClient replaces the HTTP client used by the default REST transport.
func WithHTTPClient(client transport.HTTPDoer) ClientOption {
	return func(o *clientOptions) {
		o.httpClient = client
	}
}

// WithClientStateStore overrides the state store selected from the
// credentials path.
func WithClientStateStore(store core.StateStore) ClientOption {
	return func(o *clientOptions) {
		o.store = store
	}
}

func WithValidationTable(table validation.Table) ClientOption {
	return func(o *clientOptions) {
		o.table = table
	}
}

// WithSessionOptions forwards options to core.NewSession. A transport or
// state store passed here wins over the client defaults.
func WithSessionOptions(opts ...core.Option) ClientOption {
	return func(o *clientOptions) {
		o.sessionOptions = append(o.sessionOptions, opts...)
	}
}

// New builds a Client. The session state lives in a JSON file at
// credentials.CredentialsPath, or the default path when that is empty. When
// the state cache is disabled that file is removed instead of read.
func New(credentials core.Credentials, cfg core.Config, opts ...ClientOption) (*Client, error) {
	options := clientOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	store := options.store
	if store == nil {
		// With caching disabled the session deletes this file on start and
		// never writes it again.
		fileStore, err := filestore.New(credentials.CredentialsPath)
		if err != nil {
			return nil, err
		}
		store = fileStore
	}
	httpClient := options.httpClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	sessionOpts := append([]core.Option{
		core.WithTransport(transport.NewRESTAdapter(httpClient)),
		core.WithStateStore(store),
	}, options.sessionOptions...)

	session, err := core.NewSession(credentials, cfg, sessionOpts...)
	if err != nil {
		return nil, err
	}

	table := options.table
	if table == nil {
		table = validation.DefaultTable()
	}
	return &Client{
		session: session,
		store:   session.Dependencies().StateStore,
		table:   table,
	}, nil
}

// NewFromSession wraps an existing session.
func NewFromSession(session *core.Session) (*Client, error) {
	if session == nil {
		return nil, fmt.Errorf("brokerage: session is required")
	}
	return &Client{
		session: session,
		store:   session.Dependencies().StateStore,
		table:   validation.DefaultTable(),
	}, nil
}

func (c *Client) Session() *core.Session {
	if c == nil {
		return nil
	}
	return c.session
}

func (c *Client) StateStore() core.StateStore {
	if c == nil {
		return nil
	}
	return c.store
}

func (c *Client) Login(ctx context.Context) (bool, error) {
	if err := c.ready(); err != nil {
		return false, err
	}
	return c.session.Login(ctx)
}

func (c *Client) Logout(ctx context.Context) error {
	if err := c.ready(); err != nil {
		return err
	}
	return c.session.Logout(ctx)
}

func (c *Client) String() string {
	if c == nil || c.session == nil {
		return "Client(<nil>)"
	}
	return c.session.String()
}

func (c *Client) ready() error {
	if c == nil || c.session == nil {
		return fmt.Errorf("brokerage: client is not configured")
	}
	return nil
}

func (c *Client) validate(endpoint validation.Endpoint, parameter validation.Parameter, values ...string) error {
	return c.table.Validate(endpoint, parameter, values...)
}

func (c *Client) clientID() string {
	return c.session.Credentials().ClientID
}

func (c *Client) get(ctx context.Context, endpoint string, params map[string]string) (*core.DispatchResult, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	return c.session.Dispatch(ctx, core.OutboundRequest{
		Method:   http.MethodGet,
		Endpoint: endpoint,
		Params:   params,
	})
}

func (c *Client) sendJSON(
	ctx context.Context,
	method string,
	endpoint string,
	body any,
	orderDetails bool,
) (*core.DispatchResult, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	return c.session.Dispatch(ctx, core.OutboundRequest{
		Method:           method,
		Endpoint:         endpoint,
		Mode:             core.BodyModeJSON,
		JSON:             body,
		WantOrderDetails: orderDetails,
	})
}

func (c *Client) delete(ctx context.Context, endpoint string, orderDetails bool) (*core.DispatchResult, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	return c.session.Dispatch(ctx, core.OutboundRequest{
		Method:           http.MethodDelete,
		Endpoint:         endpoint,
		WantOrderDetails: orderDetails,
	})
}

// account falls back to the account number from the credentials.
func (c *Client) account(account string) (string, error) {
	if trimmed := strings.TrimSpace(account); trimmed != "" {
		return trimmed, nil
	}
	return requireArgument("account", c.session.Credentials().AccountNumber)
}
