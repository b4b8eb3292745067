package webhooks

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/angelmondragon/maillot-backend/api/responses"
	internalwebhooks "github.com/angelmondragon/maillot-backend/internal/webhooks"
	pkgerrors "github.com/angelmondragon/maillot-backend/pkg/errors"
	"github.com/angelmondragon/maillot-backend/pkg/logger"
)

// SquareSignatureHeader carries the base64 HMAC-SHA256 of notification URL plus body.
const SquareSignatureHeader = "X-Square-Hmacsha256-Signature"

type SquareWebhookService interface {
	HandleSquareEvent(ctx context.Context, event *internalwebhooks.SquareEvent) error
}

// SquareSigning is the key material used to authenticate Square notifications.
type SquareSigning struct {
	SignatureKey    string
	NotificationURL string
}

// SquareWebhook applies Square payment notifications.
func SquareWebhook(svc SquareWebhookService, signing SquareSigning, guard Guard, logg *logger.Logger) http.HandlerFunc {
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

		sigHeader := strings.TrimSpace(r.Header.Get(SquareSignatureHeader))
		if sigHeader == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "square signature missing"))
			return
		}
		if !validateSquareSignature(payload, signing, sigHeader) {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid square signature"))
			return
		}

		var event internalwebhooks.SquareEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode event"))
			return
		}

		eventID := strings.TrimSpace(event.EventID)
		if eventID == "" {
			eventID = event.Data.ID
		}
		if eventID == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "event id missing"))
			return
		}

		process(ctx, w, logg, guard, eventID, func() error {
			return svc.HandleSquareEvent(ctx, &event)
		})
	}
}

func validateSquareSignature(payload []byte, signing SquareSigning, header string) bool {
	if header == "" || signing.SignatureKey == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(signing.SignatureKey))
	mac.Write([]byte(signing.NotificationURL))
	mac.Write(payload)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(header))
}
