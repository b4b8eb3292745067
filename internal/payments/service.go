// Package payments coordinates gateway and manual payment flows for orders.
package payments

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/angelmondragon/maillot-backend/pkg/config"
	"github.com/angelmondragon/maillot-backend/pkg/db"
	"github.com/angelmondragon/maillot-backend/pkg/db/models"
	"github.com/angelmondragon/maillot-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/maillot-backend/pkg/errors"
	"github.com/angelmondragon/maillot-backend/pkg/gateway"
	"github.com/angelmondragon/maillot-backend/pkg/logger"
	"github.com/angelmondragon/maillot-backend/pkg/metrics"
	"github.com/angelmondragon/maillot-backend/pkg/security"
	"github.com/angelmondragon/maillot-backend/pkg/types"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	gatewayPaymentPrefix = "PAY_"
	manualPaymentPrefix  = "WAVE_"
	manualProviderLabel  = "wave"

	minPhoneLength = 8
	maxPhoneLength = 20
)

var (
	transactionIDPattern = regexp.MustCompile(`^[A-Za-z0-9]+$`)
	phonePattern         = regexp.MustCompile(`^\+?[0-9 ]+$`)
)

// Service drives payment state for orders.
type Service interface {
	InitiateGateway(ctx context.Context, userID, orderID uuid.UUID, input GatewayInput) (*GatewaySession, error)
	HandleGatewayCallback(ctx context.Context, token string, status gateway.Status) (*PaymentDTO, error)
	ConfirmGatewayReturn(ctx context.Context, userID uuid.UUID, token string) (*PaymentDTO, error)
	InitiateManual(ctx context.Context, userID, orderID uuid.UUID) (*ManualInstructions, error)
	SubmitManual(ctx context.Context, userID, orderID uuid.UUID, input ManualSubmission) (*PaymentDTO, error)
	ConfirmManual(ctx context.Context, staff types.Actor, paymentID, note string) (*PaymentDTO, error)
	RejectManual(ctx context.Context, staff types.Actor, paymentID, reason string) (*PaymentDTO, error)
	GetForOrder(ctx context.Context, userID, orderID uuid.UUID) (*PaymentDTO, error)
	ListLogs(ctx context.Context, paymentID string) ([]LogDTO, error)
}

type service struct {
	repo     *Repository
	tx       db.TxRunner
	registry *gateway.Registry
	gateway  config.GatewayConfig
	wave     config.WaveConfig
	logg     *logger.Logger
	metrics  *metrics.ShopMetrics
	now      func() time.Time
}

// Option customizes the payment service.
type Option func(*service)

// WithClock overrides the clock used for completed_at and paid_at.
func WithClock(now func() time.Time) Option {
	return func(s *service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService wires the payment coordinator. m may be nil.
func NewService(repo *Repository, tx db.TxRunner, registry *gateway.Registry, gatewayCfg config.GatewayConfig, waveCfg config.WaveConfig, logg *logger.Logger, m *metrics.ShopMetrics, opts ...Option) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if registry == nil {
		return nil, fmt.Errorf("gateway registry required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if gatewayCfg.Timeout <= 0 {
		gatewayCfg.Timeout = 15 * time.Second
	}
	s := &service{
		repo:     repo,
		tx:       tx,
		registry: registry,
		gateway:  gatewayCfg,
		wave:     waveCfg,
		logg:     logg,
		metrics:  m,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *service) InitiateGateway(ctx context.Context, userID, orderID uuid.UUID, input GatewayInput) (*GatewaySession, error) {
	provider, err := s.registry.Lookup(input.Provider)
	if err != nil {
		return nil, err
	}
	providerName := provider.Name()

	var (
		payment *models.Payment
		request gateway.Request
	)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.payableOrder(ctx, repo, userID, orderID, enums.PaymentMethodGateway)
		if err != nil {
			return err
		}

		payment, err = repo.FindByOrderID(ctx, order.ID)
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			payment = newPayment(order, gatewayPaymentPrefix, enums.PaymentMethodGateway)
			payment.Provider = enums.PaymentProvider(providerName)
			if err := repo.Create(ctx, payment); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create payment")
			}
		case err != nil:
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load payment")
		default:
			if payment.Method != enums.PaymentMethodGateway {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "order already has a manual payment")
			}
			if payment.Status == enums.PaymentStatusCompleted {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "payment already completed")
			}
			updates := map[string]any{
				"status":   enums.PaymentStatusPending,
				"provider": providerName,
			}
			if err := repo.Update(ctx, payment.ID, updates); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reset payment")
			}
			payment.Status = enums.PaymentStatusPending
			payment.Provider = enums.PaymentProvider(providerName)
		}

		request = buildRequest(order, payment, input.SourceID)
		return s.appendLog(ctx, repo, payment, enums.PaymentLogInitiated, "payment initiated", map[string]any{
			"provider": providerName,
			"amount":   payment.Amount.String(),
			"currency": payment.Currency,
		})
	})
	if err != nil {
		return nil, err
	}
	ctx = s.logg.WithPaymentID(ctx, payment.PaymentID)

	if err := s.appendLog(ctx, s.repo, payment, enums.PaymentLogAPICall, "calling payment provider", map[string]any{
		"provider":  providerName,
		"operation": "initiate",
	}); err != nil {
		return nil, err
	}

	result, callErr := s.callInitiate(ctx, provider, request)
	if callErr != nil {
		s.recordGatewayError(ctx, payment, providerName, callErr)
		return nil, callErr
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		token := result.Token
		receipt := result.ReceiptURL
		if receipt == "" {
			receipt = result.RedirectURL
		}
		updates := map[string]any{
			"gateway_token":     token,
			"receipt_url":       receipt,
			"gateway_reference": result.Reference,
		}
		if err := repo.Update(ctx, payment.ID, updates); err != nil {
			if db.IsUniqueViolation(err, "gateway_token") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "gateway token already in use")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store gateway token")
		}
		payment.GatewayToken = &token
		payment.ReceiptURL = receipt
		payment.GatewayReference = result.Reference

		if err := s.appendLog(ctx, repo, payment, enums.PaymentLogCreated, "payment created with provider", map[string]any{
			"provider":  providerName,
			"token":     token,
			"reference": result.Reference,
			"response":  result.Raw,
		}); err != nil {
			return err
		}
		if result.Status == gateway.StatusCompleted {
			return s.completePayment(ctx, repo, payment, enums.PaymentLogSuccess, "payment completed by provider", map[string]any{
				"provider":  providerName,
				"reference": result.Reference,
			}, nil)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"provider": providerName,
		"status":   string(payment.Status),
	}), "payment.gateway_initiated")

	return &GatewaySession{
		Payment:     toDTO(payment),
		Token:       result.Token,
		RedirectURL: result.RedirectURL,
	}, nil
}

func (s *service) callInitiate(ctx context.Context, provider gateway.Provider, req gateway.Request) (gateway.Result, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.gateway.Timeout)
	defer cancel()

	started := time.Now()
	result, err := provider.Initiate(callCtx, req)
	s.metrics.ObserveGatewayCall(provider.Name(), "initiate", time.Since(started))
	if err != nil {
		return gateway.Result{}, asGatewayError(provider.Name(), err)
	}
	if strings.TrimSpace(result.Token) == "" {
		return gateway.Result{}, gateway.Failure(provider.Name(), nil, "provider returned no token")
	}
	return result, nil
}

func (s *service) callVerify(ctx context.Context, provider gateway.Provider, token string) (gateway.Verification, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.gateway.Timeout)
	defer cancel()

	started := time.Now()
	verification, err := provider.Verify(callCtx, token)
	s.metrics.ObserveGatewayCall(provider.Name(), "verify", time.Since(started))
	if err != nil {
		return gateway.Verification{}, asGatewayError(provider.Name(), err)
	}
	return verification, nil
}

func asGatewayError(provider string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return gateway.Failure(provider, err, "request timed out")
	}
	if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodePaymentGateway {
		return err
	}
	return gateway.Failure(provider, err, "request failed")
}

// recordGatewayError writes the payment_error row outside any transaction so
// it survives the failed call.
func (s *service) recordGatewayError(ctx context.Context, payment *models.Payment, provider string, callErr error) {
	data := map[string]any{"provider": provider, "error": callErr.Error()}
	if typed := pkgerrors.As(callErr); typed != nil && typed.Details() != nil {
		data["details"] = typed.Details()
	}
	if err := s.appendLog(ctx, s.repo, payment, enums.PaymentLogPaymentError, "payment provider call failed", data); err != nil {
		s.logg.Error(ctx, "payment.log_write_failed", err)
	}
	s.logg.Error(s.logg.WithField(ctx, "provider", provider), "payment.gateway_failed", callErr)
}

func (s *service) HandleGatewayCallback(ctx context.Context, token string, status gateway.Status) (*PaymentDTO, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "token is required")
	}

	var payment *models.Payment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var err error
		payment, err = repo.LockByToken(ctx, token)
		if err != nil {
			return notFound(err, "payment not found")
		}
		return s.applyGatewayStatus(ctx, repo, payment, status, "callback")
	})
	if err != nil {
		return nil, err
	}
	dto := toDTO(payment)
	return &dto, nil
}

func (s *service) ConfirmGatewayReturn(ctx context.Context, userID uuid.UUID, token string) (*PaymentDTO, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "token is required")
	}

	payment, err := s.repo.FindByToken(ctx, token)
	if err != nil {
		return nil, notFound(err, "payment not found")
	}
	if _, err := s.repo.FindOrderForUser(ctx, userID, payment.OrderID); err != nil {
		return nil, notFound(err, "payment not found")
	}
	if payment.Status == enums.PaymentStatusCompleted {
		dto := toDTO(payment)
		return &dto, nil
	}

	provider, err := s.registry.Lookup(string(payment.Provider))
	if err != nil {
		return nil, err
	}
	ctx = s.logg.WithPaymentID(ctx, payment.PaymentID)

	verification, callErr := s.callVerify(ctx, provider, token)
	if callErr != nil {
		s.recordGatewayError(ctx, payment, provider.Name(), callErr)
		return nil, callErr
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		locked, err := repo.LockByToken(ctx, token)
		if err != nil {
			return notFound(err, "payment not found")
		}
		payment = locked
		return s.applyGatewayStatus(ctx, repo, payment, verification.Status, "return")
	})
	if err != nil {
		return nil, err
	}
	dto := toDTO(payment)
	return &dto, nil
}

// applyGatewayStatus moves a gateway payment to the provider-reported state.
// A completed payment never changes again.
func (s *service) applyGatewayStatus(ctx context.Context, repo *Repository, payment *models.Payment, status gateway.Status, source string) error {
	if payment.Status == enums.PaymentStatusCompleted {
		return nil
	}
	data := map[string]any{
		"provider": string(payment.Provider),
		"source":   source,
		"status":   string(status),
	}

	switch status {
	case gateway.StatusCompleted:
		return s.completePayment(ctx, repo, payment, enums.PaymentLogSuccess, "payment confirmed by provider", data, nil)
	case gateway.StatusFailed, gateway.StatusCancelled:
		next := enums.PaymentStatusFailed
		if status == gateway.StatusCancelled {
			next = enums.PaymentStatusCancelled
		}
		if payment.Status == next {
			return nil
		}
		if err := repo.Update(ctx, payment.ID, map[string]any{"status": next}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update payment status")
		}
		payment.Status = next
		if err := s.appendLog(ctx, repo, payment, enums.PaymentLogFailed, "payment not completed by provider", data); err != nil {
			return err
		}
		s.logg.Warn(s.logg.WithFields(s.logg.WithPaymentID(ctx, payment.PaymentID), data), "payment.gateway_unsuccessful")
		return nil
	case gateway.StatusPending:
		return nil
	default:
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unsupported payment status %q", status))
	}
}

// completePayment marks the payment completed and the order paid. A cancelled
// order is never marked paid.
func (s *service) completePayment(ctx context.Context, repo *Repository, payment *models.Payment, event enums.PaymentLogEvent, message string, data map[string]any, extra map[string]any) error {
	order, err := repo.LockOrder(ctx, payment.OrderID)
	if err != nil {
		return notFound(err, "order not found")
	}
	if order.Status == enums.OrderStatusCancelled {
		s.logg.Warn(s.logg.WithOrderNumber(s.logg.WithPaymentID(ctx, payment.PaymentID), order.OrderNumber), "payment.order_cancelled")
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order is cancelled").
			WithDetails(map[string]any{"order_status": order.Status})
	}

	now := s.now().UTC()
	updates := map[string]any{
		"status":       enums.PaymentStatusCompleted,
		"completed_at": now,
	}
	for k, v := range extra {
		updates[k] = v
	}
	if err := repo.Update(ctx, payment.ID, updates); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "complete payment")
	}
	if err := repo.UpdateOrder(ctx, payment.OrderID, map[string]any{
		"payment_status": enums.OrderPaymentStatusPaid,
		"paid_at":        now,
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark order paid")
	}
	payment.Status = enums.PaymentStatusCompleted
	payment.CompletedAt = &now

	if err := s.appendLog(ctx, repo, payment, event, message, data); err != nil {
		return err
	}
	s.logg.Info(s.logg.WithPaymentID(ctx, payment.PaymentID), "payment.completed")
	return nil
}

func (s *service) InitiateManual(ctx context.Context, userID, orderID uuid.UUID) (*ManualInstructions, error) {
	var payment *models.Payment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.payableOrder(ctx, repo, userID, orderID, enums.PaymentMethodMobileMoney)
		if err != nil {
			return err
		}

		payment, err = repo.FindByOrderID(ctx, order.ID)
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			code, err := security.NewPaymentCode(manualPaymentPrefix)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate payment code")
			}
			payment = newPayment(order, manualPaymentPrefix, enums.PaymentMethodMobileMoney)
			payment.PaymentCode = code
			if err := repo.Create(ctx, payment); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create payment")
			}
		case err != nil:
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load payment")
		default:
			if payment.Method != enums.PaymentMethodMobileMoney {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "order already has a gateway payment")
			}
			switch payment.Status {
			case enums.PaymentStatusPending, enums.PaymentStatusAwaitingReview:
				return nil
			case enums.PaymentStatusCompleted:
				return pkgerrors.New(pkgerrors.CodeStateConflict, "payment already completed")
			}
			code, err := security.NewPaymentCode(manualPaymentPrefix)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate payment code")
			}
			updates := map[string]any{
				"status":         enums.PaymentStatusPending,
				"payment_code":   code,
				"transaction_id": "",
				"payer_phone":    "",
			}
			if err := repo.Update(ctx, payment.ID, updates); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reset payment")
			}
			payment.Status = enums.PaymentStatusPending
			payment.PaymentCode = code
			payment.TransactionID = ""
			payment.PayerPhone = ""
		}

		return s.appendLog(ctx, repo, payment, enums.PaymentLogWaveInitiated, "wave payment initiated", map[string]any{
			"payment_code":   payment.PaymentCode,
			"merchant_phone": s.wave.MerchantPhone,
			"amount":         payment.Amount.String(),
		})
	})
	if err != nil {
		return nil, err
	}

	return &ManualInstructions{
		Payment:       toDTO(payment),
		PaymentCode:   payment.PaymentCode,
		MerchantPhone: s.wave.MerchantPhone,
		MerchantName:  s.wave.MerchantName,
	}, nil
}

func (s *service) SubmitManual(ctx context.Context, userID, orderID uuid.UUID, input ManualSubmission) (*PaymentDTO, error) {
	transactionID := strings.TrimSpace(input.TransactionID)
	phone := strings.TrimSpace(input.Phone)
	if err := validateSubmission(transactionID, phone); err != nil {
		return nil, err
	}

	var payment *models.Payment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.LockOrderForUser(ctx, userID, orderID)
		if err != nil {
			return notFound(err, "order not found")
		}
		payment, err = repo.FindByOrderID(ctx, order.ID)
		if err != nil {
			return notFound(err, "manual payment not initiated")
		}
		if payment.Method != enums.PaymentMethodMobileMoney {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "payment is not a manual payment")
		}
		if payment.Status != enums.PaymentStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("payment is %s", payment.Status)).
				WithDetails(map[string]any{"status": payment.Status})
		}

		updates := map[string]any{
			"status":         enums.PaymentStatusAwaitingReview,
			"transaction_id": transactionID,
			"payer_phone":    phone,
		}
		if err := repo.Update(ctx, payment.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "submit transaction")
		}
		payment.Status = enums.PaymentStatusAwaitingReview
		payment.TransactionID = transactionID
		payment.PayerPhone = phone

		return s.appendLog(ctx, repo, payment, enums.PaymentLogWaveSubmitted, "wave transaction submitted", map[string]any{
			"transaction_id": transactionID,
			"payer_phone":    phone,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithPaymentID(ctx, payment.PaymentID), "payment.manual_submitted")
	dto := toDTO(payment)
	return &dto, nil
}

func validateSubmission(transactionID, phone string) error {
	missing := []string{}
	if transactionID == "" {
		missing = append(missing, "transaction_id")
	}
	if phone == "" {
		missing = append(missing, "phone")
	}
	if len(missing) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "missing required fields").
			WithDetails(map[string]any{"missing": missing})
	}
	if !transactionIDPattern.MatchString(transactionID) {
		return pkgerrors.New(pkgerrors.CodeValidation, "transaction id must contain only letters and digits").
			WithDetails(map[string]any{"field": "transaction_id"})
	}
	length := utf8.RuneCountInString(phone)
	if !phonePattern.MatchString(phone) || length < minPhoneLength || length > maxPhoneLength {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid phone number").
			WithDetails(map[string]any{"field": "phone"})
	}
	return nil
}

func (s *service) ConfirmManual(ctx context.Context, staff types.Actor, paymentID, note string) (*PaymentDTO, error) {
	if !staff.IsStaff() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "staff role required")
	}

	var payment *models.Payment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var err error
		payment, err = s.lockManual(ctx, repo, paymentID)
		if err != nil {
			return err
		}
		if payment.Status != enums.PaymentStatusAwaitingReview {
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("payment is %s", payment.Status)).
				WithDetails(map[string]any{"status": payment.Status})
		}

		extra := reviewUpdates(staff, note)
		if err := s.completePayment(ctx, repo, payment, enums.PaymentLogWaveConfirmed, "wave payment confirmed by staff", map[string]any{
			"confirmed_by":   staff.Email,
			"note":           note,
			"transaction_id": payment.TransactionID,
		}, extra); err != nil {
			return err
		}
		applyReview(payment, staff, note)
		return nil
	})
	if err != nil {
		return nil, err
	}
	dto := toDTO(payment)
	return &dto, nil
}

func (s *service) RejectManual(ctx context.Context, staff types.Actor, paymentID, reason string) (*PaymentDTO, error) {
	if !staff.IsStaff() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "staff role required")
	}

	var payment *models.Payment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var err error
		payment, err = s.lockManual(ctx, repo, paymentID)
		if err != nil {
			return err
		}
		if payment.Status != enums.PaymentStatusAwaitingReview && payment.Status != enums.PaymentStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("payment is %s", payment.Status)).
				WithDetails(map[string]any{"status": payment.Status})
		}

		updates := reviewUpdates(staff, reason)
		updates["status"] = enums.PaymentStatusFailed
		if err := repo.Update(ctx, payment.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reject payment")
		}
		payment.Status = enums.PaymentStatusFailed
		applyReview(payment, staff, reason)

		return s.appendLog(ctx, repo, payment, enums.PaymentLogWaveRejected, "wave payment rejected by staff", map[string]any{
			"rejected_by":    staff.Email,
			"reason":         reason,
			"transaction_id": payment.TransactionID,
		})
	})
	if err != nil {
		return nil, err
	}
	s.logg.Warn(s.logg.WithActorRole(s.logg.WithPaymentID(ctx, payment.PaymentID), string(staff.Role)), "payment.manual_rejected")
	dto := toDTO(payment)
	return &dto, nil
}

func (s *service) lockManual(ctx context.Context, repo *Repository, paymentID string) (*models.Payment, error) {
	payment, err := repo.LockByPaymentID(ctx, strings.TrimSpace(paymentID))
	if err != nil {
		return nil, notFound(err, "payment not found")
	}
	if payment.Method != enums.PaymentMethodMobileMoney {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "payment is not a manual payment")
	}
	return payment, nil
}

func reviewUpdates(staff types.Actor, note string) map[string]any {
	updates := map[string]any{"review_note": strings.TrimSpace(note)}
	if staff.UserID != uuid.Nil {
		updates["reviewed_by"] = staff.UserID
	}
	return updates
}

func applyReview(payment *models.Payment, staff types.Actor, note string) {
	payment.ReviewNote = strings.TrimSpace(note)
	if staff.UserID != uuid.Nil {
		reviewer := staff.UserID
		payment.ReviewedBy = &reviewer
	}
}

func (s *service) GetForOrder(ctx context.Context, userID, orderID uuid.UUID) (*PaymentDTO, error) {
	if _, err := s.repo.FindOrderForUser(ctx, userID, orderID); err != nil {
		return nil, notFound(err, "order not found")
	}
	payment, err := s.repo.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, notFound(err, "payment not found")
	}
	dto := toDTO(payment)
	return &dto, nil
}

func (s *service) ListLogs(ctx context.Context, paymentID string) ([]LogDTO, error) {
	payment, err := s.repo.FindByPaymentID(ctx, strings.TrimSpace(paymentID))
	if err != nil {
		return nil, notFound(err, "payment not found")
	}
	rows, err := s.repo.ListLogs(ctx, payment.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list payment logs")
	}
	return toLogDTOs(rows), nil
}

// payableOrder locks the order and checks that it still awaits payment with
// the given method.
func (s *service) payableOrder(ctx context.Context, repo *Repository, userID, orderID uuid.UUID, method enums.PaymentMethod) (*models.Order, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	order, err := repo.LockOrderForUser(ctx, userID, orderID)
	if err != nil {
		return nil, notFound(err, "order not found")
	}
	if order.PaymentMethod != method {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("order was placed with payment method %s", order.PaymentMethod))
	}
	if order.Status == enums.OrderStatusCancelled {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is cancelled")
	}
	if order.PaymentStatus != enums.OrderPaymentStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is not awaiting payment").
			WithDetails(map[string]any{"payment_status": order.PaymentStatus})
	}
	return order, nil
}

func newPayment(order *models.Order, prefix string, method enums.PaymentMethod) *models.Payment {
	addr := order.ShippingAddress
	return &models.Payment{
		OrderID:       order.ID,
		PaymentID:     prefix + order.OrderNumber,
		Method:        method,
		Amount:        order.Total,
		Currency:      "XOF",
		Status:        enums.PaymentStatusPending,
		CustomerName:  addr.FullName(),
		CustomerEmail: addr.Email,
		CustomerPhone: addr.Phone,
	}
}

func buildRequest(order *models.Order, payment *models.Payment, sourceID string) gateway.Request {
	items := make([]gateway.Item, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, gateway.Item{
			Name:        item.ProductName,
			Description: "Taille " + item.Size,
			Quantity:    item.Quantity,
			UnitPrice:   item.Price,
			TotalPrice:  item.TotalPrice,
		})
	}
	return gateway.Request{
		PaymentID:     payment.PaymentID,
		OrderNumber:   order.OrderNumber,
		Amount:        payment.Amount,
		Currency:      payment.Currency,
		Description:   "Commande " + order.OrderNumber,
		CustomerName:  payment.CustomerName,
		CustomerEmail: payment.CustomerEmail,
		CustomerPhone: payment.CustomerPhone,
		SourceID:      strings.TrimSpace(sourceID),
		Items:         items,
	}
}

// appendLog writes one audit row through repo and counts the event.
func (s *service) appendLog(ctx context.Context, repo *Repository, payment *models.Payment, event enums.PaymentLogEvent, message string, data map[string]any) error {
	entry := &models.PaymentLog{
		PaymentID: payment.ID,
		Event:     event,
		Message:   message,
		Data:      redact(data),
	}
	if err := repo.CreateLog(ctx, entry); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "write payment log")
	}
	s.metrics.IncPaymentEvent(providerLabel(payment), string(event))
	return nil
}

func providerLabel(payment *models.Payment) string {
	if payment.Method == enums.PaymentMethodMobileMoney || payment.Provider == "" {
		return manualProviderLabel
	}
	return string(payment.Provider)
}

func notFound(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, msg)
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, msg)
}
