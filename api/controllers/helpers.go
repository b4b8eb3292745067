package controllers

import (
	"net/http"

	"github.com/angelmondragon/maillot-backend/api/middleware"
	pkgerrors "github.com/angelmondragon/maillot-backend/pkg/errors"
	"github.com/angelmondragon/maillot-backend/pkg/types"
)

func requireActor(r *http.Request) (types.Actor, error) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		return types.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return actor, nil
}

func unavailable(name string) error {
	return pkgerrors.New(pkgerrors.CodeInternal, name+" unavailable")
}
