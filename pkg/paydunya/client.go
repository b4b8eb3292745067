package paydunya

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/angelmondragon/maillot-backend/pkg/config"
	"github.com/angelmondragon/maillot-backend/pkg/gateway"
	"github.com/angelmondragon/maillot-backend/pkg/logger"
)

const (
	ProviderName = config.GatewayProviderPayDunya

	defaultBaseURL          = "https://app.paydunya.com"
	createPath              = "/api/v1/dmp-api"
	statusPath              = "/api/v1/dmp-api/check-status/"
	successCode             = "00"
	testTokenPrefix         = "TEST_TOKEN_"
	responseBodyLimit int64 = 4096
)

var (
	errLoggerRequired = errors.New("paydunya logger is required")
	errKeysRequired   = errors.New("paydunya master key, private key and token are required in live mode")
)

// Client talks to the PayDunya DMP API. In test mode no request leaves the
// process and tokens are simulated.
type Client struct {
	httpClient *http.Client
	baseURL    string
	masterKey  string
	privateKey string
	token      string
	testMode   bool
	callback   string
	returnURL  string
	cancelURL  string
	storeName  string
	logger     *logger.Logger
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the configured API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimSpace(baseURL); trimmed != "" {
			c.baseURL = strings.TrimRight(trimmed, "/")
		}
	}
}

// NewClient builds the PayDunya provider from the gateway config.
func NewClient(cfg config.GatewayConfig, logg *logger.Logger, opts ...Option) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    defaultBaseURL,
		masterKey:  strings.TrimSpace(cfg.MasterKey),
		privateKey: strings.TrimSpace(cfg.PrivateKey),
		token:      strings.TrimSpace(cfg.Token),
		testMode:   cfg.IsTestMode(),
		callback:   cfg.CallbackURL,
		returnURL:  cfg.ReturnURL,
		cancelURL:  cfg.CancelURL,
		storeName:  cfg.StoreName,
		logger:     logg,
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		c.baseURL = strings.TrimRight(base, "/")
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	if !c.testMode && (c.masterKey == "" || c.privateKey == "" || c.token == "") {
		return nil, errKeysRequired
	}
	return c, nil
}

// Name implements gateway.Provider.
func (c *Client) Name() string {
	return ProviderName
}

// TestMode reports whether calls are simulated.
func (c *Client) TestMode() bool {
	return c != nil && c.testMode
}

type invoiceItem struct {
	Name        string  `json:"name"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	TotalPrice  float64 `json:"total_price"`
	Description string  `json:"description,omitempty"`
}

type createRequest struct {
	RecipientEmail   string         `json:"recipient_email"`
	RecipientPhone   string         `json:"recipient_phone,omitempty"`
	Amount           int64          `json:"amount"`
	SupportFees      int            `json:"support_fees"`
	SendNotification int            `json:"send_notification"`
	Description      string         `json:"description"`
	StoreName        string         `json:"store_name,omitempty"`
	Items            []invoiceItem  `json:"items,omitempty"`
	Actions          map[string]any `json:"actions,omitempty"`
	CustomData       map[string]any `json:"custom_data"`
}

type apiResponse struct {
	ResponseCode    string `json:"response-code"`
	ResponseText    string `json:"response-text"`
	Message         string `json:"message"`
	ReferenceNumber string `json:"reference_number"`
	URL             string `json:"url"`
	Status          string `json:"status"`
	ReceiptURL      string `json:"receipt_url"`
}

// Initiate requests a hosted payment for req. A non "00" response code is a failure.
func (c *Client) Initiate(ctx context.Context, req gateway.Request) (gateway.Result, error) {
	if c.testMode {
		token := testTokenPrefix + req.PaymentID
		c.log(ctx, "simulate", "initiate", map[string]any{"payment_id": req.PaymentID})
		return gateway.Result{
			Token:     token,
			Reference: token,
			Status:    gateway.StatusPending,
			Raw:       map[string]any{"mode": "simulation"},
		}, nil
	}

	body := createRequest{
		RecipientEmail:   req.CustomerEmail,
		RecipientPhone:   req.CustomerPhone,
		Amount:           req.Amount.Round(0).IntPart(),
		SupportFees:      1,
		SendNotification: 1,
		Description:      req.Description,
		StoreName:        c.storeName,
		CustomData: map[string]any{
			"payment_id":   req.PaymentID,
			"order_number": req.OrderNumber,
		},
	}
	for _, item := range req.Items {
		unit, _ := item.UnitPrice.Float64()
		total, _ := item.TotalPrice.Float64()
		body.Items = append(body.Items, invoiceItem{
			Name:        item.Name,
			Quantity:    item.Quantity,
			UnitPrice:   unit,
			TotalPrice:  total,
			Description: item.Description,
		})
	}
	actions := map[string]any{}
	for key, value := range map[string]string{"callback_url": c.callback, "return_url": c.returnURL, "cancel_url": c.cancelURL} {
		if value != "" {
			actions[key] = value
		}
	}
	if len(actions) > 0 {
		body.Actions = actions
	}

	c.log(ctx, "request", "initiate", map[string]any{"payment_id": req.PaymentID, "amount": body.Amount})
	resp, raw, err := c.do(ctx, http.MethodPost, createPath, body)
	if err != nil {
		c.log(ctx, "error", "initiate", map[string]any{"error": err.Error()})
		return gateway.Result{Raw: raw}, err
	}
	if resp.ResponseCode != successCode {
		detail := firstNonEmpty(resp.Message, resp.ResponseText, "unexpected response code "+resp.ResponseCode)
		c.log(ctx, "error", "initiate", map[string]any{"error": detail, "response_code": resp.ResponseCode})
		return gateway.Result{Raw: raw}, gateway.Failure(ProviderName, nil, detail)
	}
	if resp.ReferenceNumber == "" {
		return gateway.Result{Raw: raw}, gateway.Failure(ProviderName, nil, "response carried no reference number")
	}

	c.log(ctx, "response", "initiate", map[string]any{"reference": resp.ReferenceNumber})
	return gateway.Result{
		Token:       resp.ReferenceNumber,
		Reference:   resp.ReferenceNumber,
		RedirectURL: resp.URL,
		ReceiptURL:  resp.ReceiptURL,
		Status:      gateway.StatusPending,
		Raw:         raw,
	}, nil
}

// Verify asks PayDunya for the current state of token. Simulated tokens are
// always reported completed.
func (c *Client) Verify(ctx context.Context, token string) (gateway.Verification, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return gateway.Verification{}, gateway.Failure(ProviderName, nil, "token is required")
	}
	if c.testMode || strings.HasPrefix(token, testTokenPrefix) {
		if !c.testMode {
			return gateway.Verification{}, gateway.Failure(ProviderName, nil, "simulated token rejected in live mode")
		}
		return gateway.Verification{
			Token:     token,
			Reference: token,
			Status:    gateway.StatusCompleted,
			Raw:       map[string]any{"mode": "simulation"},
		}, nil
	}

	c.log(ctx, "request", "verify", map[string]any{"reference": token})
	resp, raw, err := c.do(ctx, http.MethodGet, statusPath+url.PathEscape(token), nil)
	if err != nil {
		c.log(ctx, "error", "verify", map[string]any{"error": err.Error()})
		return gateway.Verification{Raw: raw}, err
	}
	if resp.ResponseCode != successCode {
		detail := firstNonEmpty(resp.Message, resp.ResponseText, "unexpected response code "+resp.ResponseCode)
		return gateway.Verification{Raw: raw}, gateway.Failure(ProviderName, nil, detail)
	}
	status, ok := gateway.ParseStatus(resp.Status)
	if !ok {
		return gateway.Verification{Raw: raw}, gateway.Failure(ProviderName, nil, fmt.Sprintf("unknown status %q", resp.Status))
	}
	return gateway.Verification{Token: token, Reference: token, Status: status, Raw: raw}, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload any) (apiResponse, map[string]any, error) {
	var out apiResponse
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return out, nil, gateway.Failure(ProviderName, err, "marshal request")
		}
		body = bytes.NewReader(encoded)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return out, nil, gateway.Failure(ProviderName, err, "build request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("PAYDUNYA-MASTER-KEY", c.masterKey)
	httpReq.Header.Set("PAYDUNYA-PRIVATE-KEY", c.privateKey)
	httpReq.Header.Set("PAYDUNYA-TOKEN", c.token)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return out, nil, gateway.Failure(ProviderName, err, "execute request")
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, responseBodyLimit))
	if err != nil {
		return out, nil, gateway.Failure(ProviderName, err, "read response")
	}
	var raw map[string]any
	_ = json.Unmarshal(data, &raw)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return out, raw, gateway.Failure(ProviderName, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(data))), "request failed")
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, raw, gateway.Failure(ProviderName, err, "decode response")
	}
	return out, raw, nil
}

func (c *Client) log(ctx context.Context, phase, op string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	logFields := map[string]any{"provider": ProviderName, "operation": op, "phase": phase}
	for k, v := range fields {
		logFields[k] = v
	}
	ctx = c.logger.WithFields(ctx, logFields)
	if phase == "error" {
		c.logger.Error(ctx, fmt.Sprintf("paydunya %s", op), errors.New(fmt.Sprint(fields["error"])))
		return
	}
	c.logger.Info(ctx, fmt.Sprintf("paydunya %s", phase))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
