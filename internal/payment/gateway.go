// Package payment talks to the payment provider that confirms webhook
// notifications.
package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/httpclient"
)

const remoteName = "payment gateway"

// Notification is what a webhook tells us about a payment.
type Notification struct {
	PaymentID string
	Status    string
	OrderID   string
}

// Payment is the authoritative state of a payment.
type Payment struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	OrderID string `json:"external_reference"`
}

// Gateway resolves a notification to the payment it refers to.
type Gateway interface {
	Lookup(ctx context.Context, n Notification) (*Payment, error)
}

// Doer executes HTTP requests.
type Doer interface {
	Get(ctx context.Context, url string, header http.Header) (*http.Response, error)
}

// HTTPGateway fetches payments from the provider's REST API.
type HTTPGateway struct {
	client  Doer
	baseURL string
	token   string
}

// NewHTTPGateway creates a gateway for baseURL authenticating with token.
func NewHTTPGateway(client Doer, baseURL, token string) *HTTPGateway {
	return &HTTPGateway{client: client, baseURL: strings.TrimRight(baseURL, "/"), token: token}
}

// Lookup calls GET {base}/v1/payments/{id}. The status and order in the
// notification are ignored in favour of the provider's answer.
func (g *HTTPGateway) Lookup(ctx context.Context, n Notification) (*Payment, error) {
	if n.PaymentID == "" {
		return nil, apperrors.InvalidInput("payment id is required")
	}

	header := http.Header{}
	header.Set("Accept", "application/json")
	if g.token != "" {
		header.Set("Authorization", "Bearer "+g.token)
	}

	resp, err := g.client.Get(ctx, g.baseURL+"/v1/payments/"+url.PathEscape(n.PaymentID), header)
	if err != nil {
		return nil, httpclient.AsUnavailable(err, remoteName)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, httpclient.ParseResponseError(resp, remoteName)
	}
	defer func() { _ = resp.Body.Close() }()

	var p Payment
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, apperrors.ServiceUnavailable(fmt.Sprintf("%s: decode payment: %v", remoteName, err))
	}
	if p.ID == "" {
		p.ID = n.PaymentID
	}
	return &p, nil
}

// StaticGateway trusts the notification as sent. It stands in for the
// provider in tests and local tooling and is never wired behind the public
// webhook.
type StaticGateway struct{}

// Lookup echoes the notification.
func (StaticGateway) Lookup(_ context.Context, n Notification) (*Payment, error) {
	if n.Status == "" {
		return nil, apperrors.InvalidInput("payment status is required")
	}
	return &Payment{ID: n.PaymentID, Status: n.Status, OrderID: n.OrderID}, nil
}
