package gateway

import (
	"context"
	"fmt"
	"strings"

	pkgerrors "github.com/angelmondragon/maillot-backend/pkg/errors"
	"github.com/shopspring/decimal"
)

// Status is the provider-reported outcome of a payment.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// ParseStatus maps loose provider wording onto a Status.
func ParseStatus(raw string) (Status, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "completed", "complete", "success", "succeeded", "paid":
		return StatusCompleted, true
	case "failed", "failure", "error":
		return StatusFailed, true
	case "cancelled", "canceled":
		return StatusCancelled, true
	case "pending", "approved":
		return StatusPending, true
	}
	return "", false
}

// Item is one invoice line sent to a hosted checkout.
type Item struct {
	Name        string
	Description string
	Quantity    int
	UnitPrice   decimal.Decimal
	TotalPrice  decimal.Decimal
}

// Request describes a charge for one order.
type Request struct {
	PaymentID     string
	OrderNumber   string
	Amount        decimal.Decimal
	Currency      string
	Description   string
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	// SourceID is the card nonce for providers that charge directly.
	SourceID string
	Items    []Item
}

// Result is returned by a successful Initiate.
type Result struct {
	Token       string
	RedirectURL string
	ReceiptURL  string
	Reference   string
	Status      Status
	Raw         map[string]any
}

// Verification is the provider's view of an existing token.
type Verification struct {
	Token     string
	Reference string
	Status    Status
	Raw       map[string]any
}

// Provider is a payment gateway capable of starting and checking a charge.
type Provider interface {
	Name() string
	Initiate(ctx context.Context, req Request) (Result, error)
	Verify(ctx context.Context, token string) (Verification, error)
}

// Registry resolves providers by name.
type Registry struct {
	providers map[string]Provider
	fallback  string
}

// NewRegistry indexes providers by their Name. fallback is used for blank lookups.
func NewRegistry(fallback string, providers ...Provider) (*Registry, error) {
	r := &Registry{providers: map[string]Provider{}, fallback: strings.ToLower(strings.TrimSpace(fallback))}
	for _, p := range providers {
		if p == nil {
			continue
		}
		name := strings.ToLower(p.Name())
		if _, dup := r.providers[name]; dup {
			return nil, fmt.Errorf("duplicate gateway provider %q", name)
		}
		r.providers[name] = p
	}
	if len(r.providers) == 0 {
		return nil, fmt.Errorf("at least one gateway provider is required")
	}
	if _, ok := r.providers[r.fallback]; !ok {
		return nil, fmt.Errorf("fallback gateway provider %q is not registered", fallback)
	}
	return r, nil
}

// Lookup returns the provider registered under name.
func (r *Registry) Lookup(name string) (Provider, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		key = r.fallback
	}
	p, ok := r.providers[key]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unsupported payment provider %q", name))
	}
	return p, nil
}

// Failure wraps a provider failure as PAYMENT_GATEWAY_ERROR.
func Failure(provider string, err error, detail string) error {
	msg := fmt.Sprintf("%s: %s", provider, detail)
	if err == nil {
		return pkgerrors.New(pkgerrors.CodePaymentGateway, msg)
	}
	return pkgerrors.Wrap(pkgerrors.CodePaymentGateway, err, msg)
}
