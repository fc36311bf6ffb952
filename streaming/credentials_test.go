package streaming

import (
	"encoding/json"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

const principalFixture = `{
	"userId": "jdoe",
	"primaryAccountId": "123456789",
	"accounts": [{
		"accountId": "123456789",
		"displayName": "jdoe",
		"accountCdDomainId": "A000000012345678",
		"company": "AMER",
		"segment": "AMER"
	}],
	"streamerInfo": {
		"streamerSocketUrl": "streamer-ws.tdameritrade.com",
		"token": "stream-token",
		"tokenTimestamp": "2019-07-13T23:52:33+0000",
		"userGroup": "ACCT",
		"accessLevel": "ACCT",
		"acl": "AKBPCFCHDRESF7GKMAQSRF",
		"appId": "jdoe-app"
	},
	"streamerSubscriptionKeys": {"keys": [{"key": "sub-key"}]}
}`

func TestParseTokenTimestamp(t *testing.T) {
	millis, err := ParseTokenTimestamp("2019-07-13T23:52:33+0000")
	require.NoError(t, err)
	require.Equal(t, int64(1563061953000), millis)

	offset, err := ParseTokenTimestamp("2019-07-13T18:52:33-0500")
	require.NoError(t, err)
	require.Equal(t, millis, offset)

	_, err = ParseTokenTimestamp("2019-07-13 23:52:33")
	require.Error(t, err)
}

func TestNewHandoff(t *testing.T) {
	var principal UserPrincipal
	require.NoError(t, json.Unmarshal([]byte(principalFixture), &principal))

	handoff, err := NewHandoff(principal)
	require.NoError(t, err)
	require.Equal(t, Credentials{
		UserID:      "123456789",
		Token:       "stream-token",
		Company:     "AMER",
		Segment:     "AMER",
		CDDomain:    "A000000012345678",
		UserGroup:   "ACCT",
		AccessLevel: "ACCT",
		Authorized:  "Y",
		Timestamp:   1563061953000,
		AppID:       "jdoe-app",
		ACL:         "AKBPCFCHDRESF7GKMAQSRF",
	}, handoff.Credentials)
	require.Equal(t, "streamer-ws.tdameritrade.com", handoff.SocketURL)
	require.Equal(t, "wss://streamer-ws.tdameritrade.com/ws", handoff.WebSocketURL())
	require.Equal(t, "sub-key", handoff.SubscriptionKey)

	encoded, err := url.ParseQuery(handoff.Credentials.Encode())
	require.NoError(t, err)
	require.Equal(t, "Y", encoded.Get("authorized"))
	require.Equal(t, "1563061953000", encoded.Get("timestamp"))
}

func TestNewHandoff_RejectsIncompletePrincipal(t *testing.T) {
	_, err := NewHandoff(UserPrincipal{})
	require.Error(t, err)

	_, err = NewHandoff(UserPrincipal{Accounts: []PrincipalAccount{{AccountID: "1"}}})
	require.Error(t, err)

	_, err = NewHandoff(UserPrincipal{
		Accounts:     []PrincipalAccount{{AccountID: "1"}},
		StreamerInfo: StreamerInfo{Token: "t", TokenTimestamp: "yesterday"},
	})
	require.Error(t, err)
}
