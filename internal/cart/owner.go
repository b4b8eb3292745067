package cart

import (
	"strings"

	"github.com/google/uuid"
)

// Owner identifies a cart: an authenticated user, or else an anonymous session token.
type Owner struct {
	UserID       *uuid.UUID
	SessionToken string
}

// ForUser is the owner of a user's cart.
func ForUser(id uuid.UUID) Owner {
	return Owner{UserID: &id}
}

// ForSession is the owner of an anonymous cart.
func ForSession(token string) Owner {
	return Owner{SessionToken: strings.TrimSpace(token)}
}

// Valid reports whether the owner resolves to a cart. The user wins when both are set.
func (o Owner) Valid() bool {
	if o.UserID != nil {
		return *o.UserID != uuid.Nil
	}
	return strings.TrimSpace(o.SessionToken) != ""
}
