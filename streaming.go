package brokerage

import (
	"context"

	"github.com/goliatone/go-brokerage/streaming"
)

var streamerPrincipalFields = []string{
	"streamerConnectionInfo",
	"streamerSubscriptionKeys",
	"preferences",
	"surrogateIds",
}

// StreamingHandoff fetches the user principals with streamer details and
// builds the credentials a streaming client needs to log in.
func (c *Client) StreamingHandoff(ctx context.Context) (streaming.Handoff, error) {
	result, err := c.GetUserPrincipals(ctx, streamerPrincipalFields...)
	if err != nil {
		return streaming.Handoff{}, err
	}
	var principal streaming.UserPrincipal
	if err := result.Decode(&principal); err != nil {
		return streaming.Handoff{}, err
	}
	return streaming.NewHandoff(principal)
}
