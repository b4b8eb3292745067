package webhooks

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/angelmondragon/maillot-backend/api/responses"
	internalwebhooks "github.com/angelmondragon/maillot-backend/internal/webhooks"
	pkgerrors "github.com/angelmondragon/maillot-backend/pkg/errors"
	"github.com/angelmondragon/maillot-backend/pkg/logger"
	"github.com/angelmondragon/maillot-backend/pkg/security"
)

// GatewaySignatureHeader carries the hex HMAC-SHA256 of the raw body.
const GatewaySignatureHeader = "X-Gateway-Signature"

const maxWebhookBody = 1 << 20

type GatewayWebhookService interface {
	HandleGatewayEvent(ctx context.Context, event *internalwebhooks.GatewayEvent) error
}

// Guard deduplicates deliveries by event id.
type Guard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Delete(ctx context.Context, eventID string) error
}

// GatewayWebhook applies signed hosted checkout callbacks exactly once per event id.
func GatewayWebhook(svc GatewayWebhookService, secret string, guard Guard, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}
		if guard == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "idempotency guard unavailable"))
			return
		}

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		signature := strings.TrimSpace(r.Header.Get(GatewaySignatureHeader))
		if signature == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "gateway signature missing"))
			return
		}
		if !security.VerifySignature(secret, payload, signature) {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid gateway signature"))
			return
		}

		var event internalwebhooks.GatewayEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode event"))
			return
		}

		eventID := strings.TrimSpace(event.EventID)
		if eventID == "" {
			eventID = strings.TrimSpace(event.Token) + ":" + strings.ToLower(strings.TrimSpace(event.Status))
		}

		process(ctx, w, logg, guard, eventID, func() error {
			return svc.HandleGatewayEvent(ctx, &event)
		})
	}
}

func process(ctx context.Context, w http.ResponseWriter, logg *logger.Logger, guard Guard, eventID string, handle func() error) {
	alreadyProcessed, err := guard.CheckAndMark(ctx, eventID)
	if err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
		return
	}
	if alreadyProcessed {
		if logg != nil {
			logg.Info(logg.WithField(ctx, "event_id", eventID), "webhook.duplicate_ignored")
		}
		responses.WriteSuccess(w, map[string]bool{"received": true})
		return
	}

	if err := handle(); err != nil {
		if delErr := guard.Delete(ctx, eventID); delErr != nil && logg != nil {
			logg.Error(logg.WithField(ctx, "event_id", eventID), "webhook.guard_release_failed", delErr)
		}
		responses.WriteError(ctx, logg, w, err)
		return
	}

	responses.WriteSuccess(w, map[string]bool{"received": true})
}
