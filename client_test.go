package brokerage

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-brokerage/core"
	brokeragequery "github.com/goliatone/go-brokerage/query"
	filestore "github.com/goliatone/go-brokerage/store/file"
	"github.com/goliatone/go-brokerage/validation"
	goerrors "github.com/goliatone/go-errors"
)

type recordedRequest struct {
	Method        string
	Path          string
	Query         map[string]string
	Authorization string
	ContentType   string
	Body          string
}

type apiStub struct {
	mu       sync.Mutex
	requests []recordedRequest
	handler  http.HandlerFunc
}

func (s *apiStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	query := map[string]string{}
	for key := range r.URL.Query() {
		query[key] = r.URL.Query().Get(key)
	}
	s.mu.Lock()
	s.requests = append(s.requests, recordedRequest{
		Method:        r.Method,
		Path:          r.URL.Path,
		Query:         query,
		Authorization: r.Header.Get("Authorization"),
		ContentType:   r.Header.Get("Content-Type"),
		Body:          string(body),
	})
	s.mu.Unlock()
	if s.handler != nil {
		s.handler(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"ok":true}`))
}

func (s *apiStub) last(t *testing.T) recordedRequest {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		t.Fatalf("expected at least one request")
	}
	return s.requests[len(s.requests)-1]
}

func (s *apiStub) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func newTestClient(t *testing.T, stub *apiStub) *Client {
	t.Helper()
	server := httptest.NewServer(stub)
	t.Cleanup(server.Close)

	store := core.NewMemoryStateStore()
	now := time.Now()
	if err := store.Save(context.Background(), core.SessionState{
		AccessToken:           "live-access",
		RefreshToken:          "live-refresh",
		AccessTokenExpiresAt:  now.Add(time.Hour).Unix(),
		RefreshTokenExpiresAt: now.Add(90 * 24 * time.Hour).Unix(),
		LoggedIn:              true,
	}); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	client, err := New(
		core.Credentials{ClientID: "APPKEY", RedirectURI: "https://127.0.0.1/callback", AccountNumber: "123456789"},
		core.Config{APIEndpoint: server.URL},
		WithHTTPClient(server.Client()),
		WithClientStateStore(store),
	)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestClient_GetQuotesSendsBearerAndJoinedSymbols(t *testing.T) {
	stub := &apiStub{}
	client := newTestClient(t, stub)

	result, err := client.GetQuotes(context.Background(), "MSFT", "SQ")
	if err != nil {
		t.Fatalf("get quotes: %v", err)
	}
	req := stub.last(t)
	if req.Method != http.MethodGet || req.Path != "/v1/marketdata/quotes" {
		t.Fatalf("unexpected request %s %s", req.Method, req.Path)
	}
	if req.Query["symbol"] != "MSFT,SQ" || req.Query["apikey"] != "APPKEY" {
		t.Fatalf("unexpected query %#v", req.Query)
	}
	if req.Authorization != "Bearer live-access" {
		t.Fatalf("expected bearer header, got %q", req.Authorization)
	}
	if req.ContentType != "" {
		t.Fatalf("expected no content type on GET, got %q", req.ContentType)
	}
	payload, ok := result.Payload.(map[string]any)
	if !ok || payload["ok"] != true {
		t.Fatalf("unexpected payload %#v", result.Payload)
	}
}

func TestClient_ValidationFailureSkipsNetwork(t *testing.T) {
	stub := &apiStub{}
	client := newTestClient(t, stub)

	_, err := client.GetMovers(context.Background(), "$DJI", "sideways", "percent")
	var argErr *validation.ArgumentError
	if !errors.As(err, &argErr) {
		t.Fatalf("expected argument error, got %v", err)
	}
	if argErr.Value != "sideways" {
		t.Fatalf("expected offending value in error, got %q", argErr.Value)
	}
	if _, err := client.GetMarketHours(context.Background(), []string{"EQUITY", "CRYPTO"}, "2026-10-15"); err == nil {
		t.Fatalf("expected market hours validation error")
	}
	if stub.count() != 0 {
		t.Fatalf("expected no requests, got %d", stub.count())
	}
}

func TestClient_GetMarketHoursJoinsMarkets(t *testing.T) {
	stub := &apiStub{}
	client := newTestClient(t, stub)

	if _, err := client.GetMarketHours(context.Background(), []string{"EQUITY", "OPTION"}, "2026-10-15"); err != nil {
		t.Fatalf("get market hours: %v", err)
	}
	req := stub.last(t)
	if req.Path != "/v1/marketdata/hours" || req.Query["markets"] != "EQUITY,OPTION" || req.Query["date"] != "2026-10-15" {
		t.Fatalf("unexpected request %#v", req)
	}
}

func TestClient_PlaceOrderReturnsOrderDetails(t *testing.T) {
	stub := &apiStub{}
	stub.handler = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", "https://api.example/v1/accounts/123456789/orders/98765")
		w.WriteHeader(http.StatusCreated)
	}
	client := newTestClient(t, stub)

	order := RawOrder{"orderType": "MARKET", "session": "NORMAL"}
	result, err := client.PlaceOrder(context.Background(), "", order)
	if err != nil {
		t.Fatalf("place order: %v", err)
	}
	if result.Order == nil || result.Order.OrderID != "98765" {
		t.Fatalf("expected order details with id, got %#v", result.Order)
	}
	if result.Order.RequestMethod != http.MethodPost {
		t.Fatalf("expected POST request method, got %q", result.Order.RequestMethod)
	}

	req := stub.last(t)
	if req.Path != "/v1/accounts/123456789/orders" {
		t.Fatalf("expected credentials account in path, got %q", req.Path)
	}
	if !strings.HasPrefix(req.ContentType, "application/json") {
		t.Fatalf("expected json content type, got %q", req.ContentType)
	}
	var sent map[string]any
	if err := json.Unmarshal([]byte(req.Body), &sent); err != nil {
		t.Fatalf("decode sent body: %v", err)
	}
	if sent["orderType"] != "MARKET" {
		t.Fatalf("unexpected sent order %#v", sent)
	}
}

func TestClient_NotFoundReturnsResponseError(t *testing.T) {
	stub := &apiStub{}
	stub.handler = func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such order", http.StatusNotFound)
	}
	client := newTestClient(t, stub)

	_, err := client.GetOrders(context.Background(), "", "42")
	var respErr *core.ResponseError
	if !errors.As(err, &respErr) {
		t.Fatalf("expected response error, got %v", err)
	}
	if respErr.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", respErr.StatusCode)
	}
	if stub.last(t).Path != "/v1/accounts/123456789/orders/42" {
		t.Fatalf("unexpected path %q", stub.last(t).Path)
	}
}

func TestClient_MissingAccountIsArgumentError(t *testing.T) {
	stub := &apiStub{}
	server := httptest.NewServer(stub)
	defer server.Close()

	client, err := New(
		core.Credentials{ClientID: "APPKEY", RedirectURI: "https://127.0.0.1/callback"},
		core.Config{APIEndpoint: server.URL},
		WithClientStateStore(core.NewMemoryStateStore()),
	)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.GetPreferences(context.Background(), "")
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) || rich.TextCode != core.ErrorCodeBadInput {
		t.Fatalf("expected bad input envelope, got %v", err)
	}
	if stub.count() != 0 {
		t.Fatalf("expected no requests")
	}
}

func TestClient_TransactionByIDIgnoresFilters(t *testing.T) {
	stub := &apiStub{}
	client := newTestClient(t, stub)

	if _, err := client.GetTransactions(context.Background(), TransactionsRequest{
		Type:          "NOT_A_TYPE",
		TransactionID: "tx-1",
	}); err != nil {
		t.Fatalf("get transaction: %v", err)
	}
	req := stub.last(t)
	if req.Path != "/v1/accounts/123456789/transactions/tx-1" || len(req.Query) != 0 {
		t.Fatalf("unexpected transaction request %#v", req)
	}
}

func TestClient_CreateWatchlistNestsInstrument(t *testing.T) {
	stub := &apiStub{}
	client := newTestClient(t, stub)

	items := []WatchlistItem{{Quantity: 10, Symbol: "MSFT", AssetType: "EQUITY"}}
	if _, err := client.CreateWatchlist(context.Background(), "", "Tech", items); err != nil {
		t.Fatalf("create watchlist: %v", err)
	}
	req := stub.last(t)
	if req.Method != http.MethodPost || req.Path != "/v1/accounts/123456789/watchlists" {
		t.Fatalf("unexpected request %s %s", req.Method, req.Path)
	}
	var sent struct {
		Name           string `json:"name"`
		WatchlistItems []struct {
			Quantity      float64 `json:"quantity"`
			PurchasedDate *string `json:"purchasedDate"`
			Instrument    struct {
				Symbol    string `json:"symbol"`
				AssetType string `json:"assetType"`
			} `json:"instrument"`
		} `json:"watchlistItems"`
	}
	if err := json.Unmarshal([]byte(req.Body), &sent); err != nil {
		t.Fatalf("decode watchlist body: %v", err)
	}
	if sent.Name != "Tech" || len(sent.WatchlistItems) != 1 {
		t.Fatalf("unexpected watchlist body %s", req.Body)
	}
	item := sent.WatchlistItems[0]
	if item.Instrument.Symbol != "MSFT" || item.Instrument.AssetType != "EQUITY" || item.PurchasedDate != nil {
		t.Fatalf("unexpected watchlist item %#v", item)
	}

	bad := []WatchlistItem{{Symbol: "BTC", AssetType: "CRYPTO"}}
	if _, err := client.CreateWatchlist(context.Background(), "", "Bad", bad); err == nil {
		t.Fatalf("expected asset type validation error")
	}
}

const principalsFixture = `{
	"userId": "user",
	"accounts": [{
		"accountId": "123456789",
		"company": "AMER",
		"segment": "AMER",
		"accountCdDomainId": "A000000012345678"
	}],
	"streamerInfo": {
		"streamerSocketUrl": "streamer-ws.example.com",
		"token": "stream-token",
		"tokenTimestamp": "2019-07-13T23:52:33+0000",
		"userGroup": "ACCT",
		"accessLevel": "ACCT",
		"acl": "AKBP",
		"appId": "APP"
	},
	"streamerSubscriptionKeys": {"keys": [{"key": "sub-key"}]}
}`

func TestClient_StreamingHandoffBuildsCredentials(t *testing.T) {
	stub := &apiStub{}
	stub.handler = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(principalsFixture))
	}
	client := newTestClient(t, stub)

	handoff, err := client.StreamingHandoff(context.Background())
	if err != nil {
		t.Fatalf("streaming handoff: %v", err)
	}
	req := stub.last(t)
	if req.Path != "/v1/userprincipals" ||
		req.Query["fields"] != "streamerConnectionInfo,streamerSubscriptionKeys,preferences,surrogateIds" {
		t.Fatalf("unexpected principals request %#v", req)
	}
	if handoff.Credentials.UserID != "123456789" || handoff.Credentials.Timestamp != 1563061953000 {
		t.Fatalf("unexpected credentials %#v", handoff.Credentials)
	}
	if handoff.Credentials.Authorized != "Y" || handoff.SubscriptionKey != "sub-key" {
		t.Fatalf("unexpected handoff %#v", handoff)
	}
}

func TestFacade_WiresCommandsAndQueries(t *testing.T) {
	client := newTestClient(t, &apiStub{})

	facade, err := NewFacade(client)
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}
	commands := facade.Commands()
	if commands.Login == nil || commands.Logout == nil || commands.Refresh == nil || commands.ExchangeCode == nil {
		t.Fatalf("expected command handlers to be wired")
	}

	status, err := facade.Queries().TokenStatus.Query(context.Background(), brokeragequery.TokenStatusMessage{})
	if err != nil {
		t.Fatalf("token status: %v", err)
	}
	if !status.LoggedIn || status.AccessTokenSeconds <= 0 {
		t.Fatalf("expected live token status, got %#v", status)
	}

	persisted, err := facade.Queries().PersistedState.Query(context.Background(), brokeragequery.PersistedStateMessage{})
	if err != nil {
		t.Fatalf("persisted state: %v", err)
	}
	if !persisted.Found || persisted.State.AccessToken == "live-access" {
		t.Fatalf("expected masked persisted state, got %#v", persisted)
	}
}

func TestNewFacade_RequiresClient(t *testing.T) {
	if _, err := NewFacade(nil); err == nil {
		t.Fatalf("expected missing client error")
	}
}

func seedStateFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), filestore.DefaultFileName)
	store, err := filestore.New(path)
	if err != nil {
		t.Fatalf("open file store: %v", err)
	}
	if err := store.Save(context.Background(), core.SessionState{
		AccessToken:           "cached",
		RefreshToken:          "cached-refresh",
		AccessTokenExpiresAt:  time.Now().Add(time.Hour).Unix(),
		RefreshTokenExpiresAt: time.Now().Add(24 * time.Hour).Unix(),
		LoggedIn:              true,
	}); err != nil {
		t.Fatalf("seed state file: %v", err)
	}
	return path
}

func TestNew_DisabledStateCacheRemovesStateFile(t *testing.T) {
	path := seedStateFile(t)

	client, err := New(
		core.Credentials{ClientID: "APPKEY", RedirectURI: "https://127.0.0.1/callback", CredentialsPath: path},
		core.Config{DisableStateCache: true},
	)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, err := os.Stat(path); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected state file to be removed, stat err=%v", err)
	}
	if client.Session().LoggedIn() {
		t.Fatalf("expected cached identity to be discarded")
	}
	if client.Session().AuthState() != core.AuthStateUnauthenticated {
		t.Fatalf("expected unauthenticated session, got %q", client.Session().AuthState())
	}
}

func TestNew_StateCacheResumesStateFile(t *testing.T) {
	path := seedStateFile(t)

	client, err := New(
		core.Credentials{ClientID: "APPKEY", RedirectURI: "https://127.0.0.1/callback", CredentialsPath: path},
		core.Config{},
	)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if !client.Session().LoggedIn() || client.Session().State().AccessToken != "cached" {
		t.Fatalf("expected cached identity to be resumed, got %#v", client.Session().State())
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected state file to remain: %v", err)
	}
}
