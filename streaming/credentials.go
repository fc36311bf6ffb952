// Package streaming derives the credential record the real-time streamer
// expects from a user principals response.
package streaming

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-brokerage/core"
	goerrors "github.com/goliatone/go-errors"
)

// TokenTimestampLayout is the provider's streamer token timestamp format,
// for example "2019-07-13T23:52:33+0000".
const TokenTimestampLayout = "2006-01-02T15:04:05-0700"

// UserPrincipal is the subset of the user principals response the streamer
// handoff needs.
type UserPrincipal struct {
	UserID                   string             `json:"userId"`
	PrimaryAccountID         string             `json:"primaryAccountId"`
	Accounts                 []PrincipalAccount `json:"accounts"`
	StreamerInfo             StreamerInfo       `json:"streamerInfo"`
	StreamerSubscriptionKeys SubscriptionKeys   `json:"streamerSubscriptionKeys"`
}

type PrincipalAccount struct {
	AccountID         string `json:"accountId"`
	DisplayName       string `json:"displayName"`
	AccountCdDomainID string `json:"accountCdDomainId"`
	Company           string `json:"company"`
	Segment           string `json:"segment"`
}

type StreamerInfo struct {
	StreamerSocketURL string `json:"streamerSocketUrl"`
	Token             string `json:"token"`
	TokenTimestamp    string `json:"tokenTimestamp"`
	UserGroup         string `json:"userGroup"`
	AccessLevel       string `json:"accessLevel"`
	ACL               string `json:"acl"`
	AppID             string `json:"appId"`
}

type SubscriptionKeys struct {
	Keys []struct {
		Key string `json:"key"`
	} `json:"keys"`
}

// Credentials is the fixed-shape record sent with the streamer login.
type Credentials struct {
	UserID      string `json:"userid"`
	Token       string `json:"token"`
	Company     string `json:"company"`
	Segment     string `json:"segment"`
	CDDomain    string `json:"cddomain"`
	UserGroup   string `json:"usergroup"`
	AccessLevel string `json:"accesslevel"`
	Authorized  string `json:"authorized"`
	Timestamp   int64  `json:"timestamp"`
	AppID       string `json:"appid"`
	ACL         string `json:"acl"`
}

// Handoff is everything the external streaming transport needs to connect.
type Handoff struct {
	Credentials     Credentials
	SocketURL       string
	SubscriptionKey string
}

// ParseTokenTimestamp converts a streamer token timestamp to epoch
// milliseconds. Sub-second precision is not carried by the format.
func ParseTokenTimestamp(value string) (int64, error) {
	parsed, err := time.Parse(TokenTimestampLayout, strings.TrimSpace(value))
	if err != nil {
		return 0, goerrors.Wrap(err, goerrors.CategoryBadInput, "streaming: invalid token timestamp").
			WithCode(http.StatusBadRequest).
			WithTextCode(core.ErrorCodeBadInput).
			WithMetadata(map[string]any{"token_timestamp": value})
	}
	return parsed.Unix() * 1000, nil
}

// NewHandoff builds the streamer credentials from the principal's first
// account and streamer info.
func NewHandoff(principal UserPrincipal) (Handoff, error) {
	if len(principal.Accounts) == 0 {
		return Handoff{}, handoffError("streaming: user principals response has no accounts")
	}
	info := principal.StreamerInfo
	if strings.TrimSpace(info.Token) == "" {
		return Handoff{}, handoffError("streaming: user principals response has no streamer token; request the streamerConnectionInfo field")
	}
	timestamp, err := ParseTokenTimestamp(info.TokenTimestamp)
	if err != nil {
		return Handoff{}, err
	}
	account := principal.Accounts[0]
	handoff := Handoff{
		Credentials: Credentials{
			UserID:      account.AccountID,
			Token:       info.Token,
			Company:     account.Company,
			Segment:     account.Segment,
			CDDomain:    account.AccountCdDomainID,
			UserGroup:   info.UserGroup,
			AccessLevel: info.AccessLevel,
			Authorized:  "Y",
			Timestamp:   timestamp,
			AppID:       info.AppID,
			ACL:         info.ACL,
		},
		SocketURL: strings.TrimSpace(info.StreamerSocketURL),
	}
	if keys := principal.StreamerSubscriptionKeys.Keys; len(keys) > 0 {
		handoff.SubscriptionKey = keys[0].Key
	}
	return handoff, nil
}

// Encode renders the credentials as the form-encoded string carried in the
// streamer login request.
func (c Credentials) Encode() string {
	values := url.Values{}
	values.Set("userid", c.UserID)
	values.Set("token", c.Token)
	values.Set("company", c.Company)
	values.Set("segment", c.Segment)
	values.Set("cddomain", c.CDDomain)
	values.Set("usergroup", c.UserGroup)
	values.Set("accesslevel", c.AccessLevel)
	values.Set("authorized", c.Authorized)
	values.Set("timestamp", strconv.FormatInt(c.Timestamp, 10))
	values.Set("appid", c.AppID)
	values.Set("acl", c.ACL)
	return values.Encode()
}

// WebSocketURL is the secure websocket endpoint for the socket host.
func (h Handoff) WebSocketURL() string {
	host := strings.TrimSpace(h.SocketURL)
	if host == "" {
		return ""
	}
	if strings.Contains(host, "://") {
		return host
	}
	return fmt.Sprintf("wss://%s/ws", strings.TrimRight(host, "/"))
}

func handoffError(message string) error {
	return goerrors.New(message, goerrors.CategoryBadInput).
		WithCode(http.StatusBadRequest).
		WithTextCode(core.ErrorCodeBadInput)
}
