package onboarding

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var errPybotNotConfigured = errors.New("PYBOT_URL is not configured")

// chatInviteClient asks pybot to send a Slack workspace invite.
type chatInviteClient struct {
	baseURL string
	token   string
	http    *http.Client
}

func (c *chatInviteClient) inviteURL() string {
	return strings.TrimRight(c.baseURL, "/") + "/pybot/api/v1/slack/invite"
}

func (c *chatInviteClient) Invite(ctx context.Context, email string) (*httpResult, error) {
	if c.baseURL == "" {
		return nil, errPybotNotConfigured
	}
	res, err := postJSON(ctx, c.http, c.inviteURL(), map[string]string{"email": email}, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+c.token)
	})
	if err != nil {
		return nil, fmt.Errorf("pybot request: %w", err)
	}
	return res, nil
}
