package middleware

import (
	"net/http"

	"github.com/angelmondragon/maillot-backend/api/validators"
	"github.com/angelmondragon/maillot-backend/pkg/logger"
)

// CartSessionHeader carries the anonymous cart token.
const CartSessionHeader = "X-Cart-Session"

const maxCartSessionLength = 128

func CartSession(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := validators.SanitizeString(r.Header.Get(CartSessionHeader), maxCartSessionLength)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}
			ctx := WithCartSession(r.Context(), token)
			if logg != nil {
				ctx = logg.WithField(ctx, "cart_session", true)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
