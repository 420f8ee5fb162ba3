package onboarding

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hanzoai/gochimp3"
)

var (
	errMailchimpNotConfigured = errors.New("MAILCHIMP_API_KEY or MAILCHIMP_LIST_ID is not configured")
	errMailchimpBadKey        = errors.New("MAILCHIMP_API_KEY has no data center suffix")
)

// memberExistsTitle is the error title Mailchimp returns for an already subscribed address.
const memberExistsTitle = "Member Exists"

// mailchimpAPIPrefix is the path prefix gochimp3 puts in front of every resource.
const mailchimpAPIPrefix = "/3.0"

type mailchimpClient struct {
	apiKey  string
	listID  string
	baseURL string // overrides the data center host, e.g. for a test server
	timeout time.Duration
	next    http.RoundTripper
}

// mailchimpBaseURL derives the API root from the data center suffix of the key ("...-us6").
func mailchimpBaseURL(apiKey string) (string, error) {
	i := strings.LastIndex(apiKey, "-")
	if i < 0 || i == len(apiKey)-1 {
		return "", errMailchimpBadKey
	}
	return fmt.Sprintf("https://%s.api.mailchimp.com%s", apiKey[i+1:], mailchimpAPIPrefix), nil
}

// Subscribe adds the address to the list with FNAME/LNAME merge fields. It returns the
// HTTP status of the reply; problem is set when Mailchimp answered with an error document.
func (c *mailchimpClient) Subscribe(ctx context.Context, email, firstName, lastName string) (status int, problem *gochimp3.APIError, err error) {
	if c.apiKey == "" || c.listID == "" {
		return 0, nil, errMailchimpNotConfigured
	}
	base := c.baseURL
	if base == "" {
		if base, err = mailchimpBaseURL(c.apiKey); err != nil {
			return 0, nil, err
		}
	}
	root, err := url.Parse(base)
	if err != nil {
		return 0, nil, fmt.Errorf("parse mailchimp base url: %w", err)
	}

	rt := &mailchimpTransport{ctx: ctx, root: root, next: c.next}
	api := gochimp3.New(c.apiKey)
	api.Timeout = c.timeout
	api.Transport = rt

	_, err = api.NewListResponse(c.listID).CreateMember(&gochimp3.MemberRequest{
		EmailAddress: email,
		Status:       "subscribed",
		MergeFields:  map[string]interface{}{"FNAME": firstName, "LNAME": lastName},
	})
	if err == nil {
		return rt.status, nil, nil
	}
	if errors.As(err, &problem) {
		return rt.status, problem, nil
	}
	return rt.status, nil, fmt.Errorf("mailchimp request: %w", err)
}

// mailchimpTransport points gochimp3 requests at root, binds them to the job context
// and remembers the status of the last reply.
type mailchimpTransport struct {
	ctx    context.Context
	root   *url.URL
	next   http.RoundTripper
	status int
}

func (t *mailchimpTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(t.ctx)
	r.URL.Scheme = t.root.Scheme
	r.URL.Host = t.root.Host
	r.URL.Path = strings.TrimRight(t.root.Path, "/") + strings.TrimPrefix(r.URL.Path, mailchimpAPIPrefix)
	r.URL.RawPath = ""
	r.Host = t.root.Host

	next := t.next
	if next == nil {
		next = http.DefaultTransport
	}
	resp, err := next.RoundTrip(r)
	if resp != nil {
		t.status = resp.StatusCode
	}
	return resp, err
}
