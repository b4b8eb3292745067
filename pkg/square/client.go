package square

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	sq "github.com/square/square-go-sdk"
	sqclient "github.com/square/square-go-sdk/client"
	sqcore "github.com/square/square-go-sdk/core"
	sqoption "github.com/square/square-go-sdk/option"

	"github.com/angelmondragon/maillot-backend/pkg/config"
	"github.com/angelmondragon/maillot-backend/pkg/gateway"
	"github.com/angelmondragon/maillot-backend/pkg/logger"
)

const (
	ProviderName = config.GatewayProviderSquare

	sandboxEnv    = "sandbox"
	productionEnv = "production"
)

var (
	errAccessTokenRequired = errors.New("square access token is required")
	errLocationRequired    = errors.New("square location id is required")
	errInvalidSquareEnv    = fmt.Errorf("square environment must be %q or %q", sandboxEnv, productionEnv)
	errLoggerRequired      = errors.New("square logger is required")
)

var baseURLs = map[string]string{
	sandboxEnv:    "https://connect.squareupsandbox.com",
	productionEnv: "https://connect.squareup.com",
}

// paymentsAPI is the subset of the Square payments client used here.
type paymentsAPI interface {
	Create(ctx context.Context, request *sq.CreatePaymentRequest, opts ...sqoption.RequestOption) (*sq.CreatePaymentResponse, error)
	Get(ctx context.Context, request *sq.GetPaymentsRequest, opts ...sqoption.RequestOption) (*sq.GetPaymentResponse, error)
}

// Client charges cards through Square. It implements gateway.Provider and
// uses the payment id as idempotency key so retries never double charge.
type Client struct {
	payments    paymentsAPI
	environment string
	locationID  string
	logger      *logger.Logger
}

// NewClient initializes the Square wrapper and validates the credentials.
func NewClient(ctx context.Context, cfg config.SquareConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	env, err := normalizeEnv(cfg.Environment())
	if err != nil {
		return nil, err
	}

	accessToken := strings.TrimSpace(cfg.AccessToken)
	if accessToken == "" {
		return nil, errAccessTokenRequired
	}
	locationID := strings.TrimSpace(cfg.LocationID)
	if locationID == "" {
		return nil, errLocationRequired
	}

	sdk := sqclient.NewClient(
		sqoption.WithBaseURL(baseURLs[env]),
		sqoption.WithToken(accessToken),
	)

	c := &Client{
		payments:    sdk.Payments,
		environment: env,
		locationID:  locationID,
		logger:      logg,
	}

	logg.Info(logg.WithField(ctx, "square_env", env), "square client initialized")
	return c, nil
}

// Name implements gateway.Provider.
func (c *Client) Name() string {
	return ProviderName
}

// Environment reports the normalized Square environment.
func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

// Initiate charges req.SourceID for the order total. XOF has no minor unit so
// the amount is sent as whole francs.
func (c *Client) Initiate(ctx context.Context, req gateway.Request) (gateway.Result, error) {
	sourceID := strings.TrimSpace(req.SourceID)
	if sourceID == "" {
		return gateway.Result{}, gateway.Failure(ProviderName, nil, "card source id is required")
	}
	amount := req.Amount.Round(0).IntPart()
	currency := sq.Currency(strings.ToUpper(firstNonEmpty(req.Currency, "XOF")))

	sqReq := &sq.CreatePaymentRequest{
		IdempotencyKey: idempotencyKey(req.PaymentID),
		SourceID:       sourceID,
		LocationID:     ptrString(c.locationID),
		AmountMoney:    &sq.Money{Amount: &amount, Currency: &currency},
		ReferenceID:    ptrString(req.OrderNumber),
		Note:           ptrString(req.Description),
	}
	if email := strings.TrimSpace(req.CustomerEmail); email != "" {
		sqReq.BuyerEmailAddress = ptrString(email)
	}

	c.log(ctx, "request", "create_payment", map[string]any{
		"location_id": c.locationID,
		"amount":      amount,
		"source_id":   sourceID,
	})
	resp, err := c.payments.Create(ctx, sqReq)
	if err != nil {
		c.log(ctx, "error", "create_payment", map[string]any{"error": err.Error()})
		return gateway.Result{}, c.mapSquareError(err, "create payment")
	}

	payment := resp.GetPayment()
	status := paymentStatus(stringValue(payment.GetStatus()))
	c.log(ctx, "response", "create_payment", map[string]any{
		"square_payment_id": stringValue(payment.GetID()),
		"status":            status,
	})
	if status == gateway.StatusFailed || status == gateway.StatusCancelled {
		return gateway.Result{}, gateway.Failure(ProviderName, nil, fmt.Sprintf("payment %s", status))
	}

	return gateway.Result{
		Token:      stringValue(payment.GetID()),
		Reference:  stringValue(payment.GetID()),
		ReceiptURL: stringValue(payment.GetReceiptURL()),
		Status:     status,
		Raw: map[string]any{
			"square_payment_id": stringValue(payment.GetID()),
			"status":            stringValue(payment.GetStatus()),
		},
	}, nil
}

// Verify fetches the Square payment identified by token.
func (c *Client) Verify(ctx context.Context, token string) (gateway.Verification, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return gateway.Verification{}, gateway.Failure(ProviderName, nil, "token is required")
	}

	c.log(ctx, "request", "get_payment", map[string]any{"square_payment_id": token})
	resp, err := c.payments.Get(ctx, &sq.GetPaymentsRequest{PaymentID: token})
	if err != nil {
		c.log(ctx, "error", "get_payment", map[string]any{"error": err.Error()})
		return gateway.Verification{}, c.mapSquareError(err, "get payment")
	}

	payment := resp.GetPayment()
	return gateway.Verification{
		Token:     token,
		Reference: stringValue(payment.GetID()),
		Status:    paymentStatus(stringValue(payment.GetStatus())),
		Raw:       map[string]any{"status": stringValue(payment.GetStatus())},
	}, nil
}

func paymentStatus(raw string) gateway.Status {
	switch strings.ToUpper(raw) {
	case "COMPLETED":
		return gateway.StatusCompleted
	case "FAILED":
		return gateway.StatusFailed
	case "CANCELED":
		return gateway.StatusCancelled
	default:
		return gateway.StatusPending
	}
}

func idempotencyKey(paymentID string) string {
	if key := strings.TrimSpace(paymentID); key != "" {
		return key
	}
	return "maillot-" + uuid.NewString()
}

func (c *Client) log(ctx context.Context, phase, op string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	logFields := map[string]any{
		"provider":  ProviderName,
		"operation": op,
		"phase":     phase,
	}
	for k, v := range fields {
		logFields[k] = c.redact(k, v)
	}
	ctx = c.logger.WithFields(ctx, logFields)
	switch phase {
	case "error":
		c.logger.Error(ctx, fmt.Sprintf("square %s", op), errors.New(fmt.Sprint(fields["error"])))
	default:
		c.logger.Info(ctx, fmt.Sprintf("square %s", phase))
	}
}

func (c *Client) redact(key string, value any) any {
	lower := strings.ToLower(key)
	for _, sensitive := range []string{"card", "nonce", "source", "token", "cvv", "secret", "email", "phone"} {
		if strings.Contains(lower, sensitive) {
			return "[REDACTED]"
		}
	}
	return value
}

// mapSquareError turns any SDK failure into PAYMENT_GATEWAY_ERROR, keeping the
// first Square error code in the message.
func (c *Client) mapSquareError(err error, op string) error {
	if err == nil {
		return nil
	}
	var apiErr *sqcore.APIError
	if errors.As(err, &apiErr) {
		detail := fmt.Sprintf("%s failed with status %d", op, apiErr.StatusCode)
		for _, sqErr := range extractSquareErrors(apiErr) {
			if sqErr == nil {
				continue
			}
			detail = fmt.Sprintf("%s failed: %s", op, sqErr.Code)
			break
		}
		return gateway.Failure(ProviderName, err, detail)
	}
	return gateway.Failure(ProviderName, err, op+" failed")
}

func extractSquareErrors(apiErr *sqcore.APIError) []*sq.Error {
	if apiErr == nil {
		return nil
	}
	inner := apiErr.Unwrap()
	if inner == nil {
		return nil
	}
	raw := strings.TrimSpace(inner.Error())
	if raw == "" {
		return nil
	}
	var payload struct {
		Errors []*sq.Error `json:"errors"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil
	}
	return payload.Errors
}

func ptrString(value string) *string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return &value
}

func stringValue(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func normalizeEnv(raw string) (string, error) {
	env := strings.TrimSpace(strings.ToLower(raw))
	if env == "" {
		env = sandboxEnv
	}
	switch env {
	case sandboxEnv, productionEnv:
		return env, nil
	default:
		return "", errInvalidSquareEnv
	}
}
