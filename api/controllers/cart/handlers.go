package cart

import (
	"net/http"

	"github.com/angelmondragon/maillot-backend/api/middleware"
	"github.com/angelmondragon/maillot-backend/api/responses"
	"github.com/angelmondragon/maillot-backend/api/validators"
	cartsvc "github.com/angelmondragon/maillot-backend/internal/cart"
	pkgerrors "github.com/angelmondragon/maillot-backend/pkg/errors"
	"github.com/angelmondragon/maillot-backend/pkg/logger"
	"github.com/angelmondragon/maillot-backend/pkg/security"
)

// CartFetch returns the caller's cart. Anonymous callers without a session get an empty cart.
func CartFetch(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		view, err := svc.Get(r.Context(), readOwner(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// CartAddItem adds units of a product size, minting a cart session for new anonymous shoppers.
func CartAddItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		var body cartsvc.AddInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		owner, err := writeOwner(w, r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		line, err := svc.Add(r.Context(), owner, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, line)
	}
}

// CartUpdateItem sets a line quantity. Zero removes the line.
func CartUpdateItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		var body QuantityRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		line, err := svc.UpdateQuantity(r.Context(), readOwner(r), body.ProductID, body.Size, body.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, line)
	}
}

func CartRemoveItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		var body LineRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Remove(r.Context(), readOwner(r), body.ProductID, body.Size); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

func CartClear(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		if err := svc.Clear(r.Context(), readOwner(r)); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

func CartAttachCustomization(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		lineID, err := validators.ParseUUIDParam(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body cartsvc.CustomizationInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		body.Name = validators.SanitizeString(body.Name, 0)
		body.Text = validators.SanitizeString(body.Text, 0)
		view, err := svc.AttachCustomization(r.Context(), readOwner(r), lineID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, view)
	}
}

func CartDetachCustomization(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		customizationID, err := validators.ParseUUIDParam(r, "customizationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DetachCustomization(r.Context(), readOwner(r), customizationID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

func readOwner(r *http.Request) cartsvc.Owner {
	if actor, ok := middleware.ActorFromContext(r.Context()); ok {
		return cartsvc.ForUser(actor.UserID)
	}
	return cartsvc.ForSession(middleware.CartSessionFromContext(r.Context()))
}

// writeOwner resolves the owner for a mutation. Anonymous callers without a
// session receive a fresh token in the X-Cart-Session response header.
func writeOwner(w http.ResponseWriter, r *http.Request) (cartsvc.Owner, error) {
	owner := readOwner(r)
	if owner.Valid() {
		return owner, nil
	}
	token, err := security.NewSessionToken()
	if err != nil {
		return cartsvc.Owner{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint cart session")
	}
	w.Header().Set(middleware.CartSessionHeader, token)
	return cartsvc.ForSession(token), nil
}
