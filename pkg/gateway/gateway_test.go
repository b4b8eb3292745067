package gateway

import (
	"context"
	"errors"
	"testing"

	pkgerrors "github.com/angelmondragon/maillot-backend/pkg/errors"
	"github.com/stretchr/testify/require"
)

type namedProvider string

func (p namedProvider) Name() string { return string(p) }

func (p namedProvider) Initiate(context.Context, Request) (Result, error) {
	return Result{Token: string(p)}, nil
}

func (p namedProvider) Verify(context.Context, string) (Verification, error) {
	return Verification{Status: StatusCompleted}, nil
}

func TestRegistryLookup(t *testing.T) {
	reg, err := NewRegistry("paydunya", namedProvider("paydunya"), namedProvider("square"))
	require.NoError(t, err)

	p, err := reg.Lookup("")
	require.NoError(t, err)
	require.Equal(t, "paydunya", p.Name())

	p, err = reg.Lookup(" Square ")
	require.NoError(t, err)
	require.Equal(t, "square", p.Name())

	_, err = reg.Lookup("stripe")
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestNewRegistryValidation(t *testing.T) {
	_, err := NewRegistry("paydunya")
	require.Error(t, err)

	_, err = NewRegistry("square", namedProvider("paydunya"))
	require.Error(t, err)

	_, err = NewRegistry("paydunya", namedProvider("paydunya"), namedProvider("paydunya"))
	require.Error(t, err)
}

func TestParseStatus(t *testing.T) {
	cases := map[string]Status{
		"completed": StatusCompleted,
		"COMPLETED": StatusCompleted,
		"canceled":  StatusCancelled,
		"failed":    StatusFailed,
		"APPROVED":  StatusPending,
	}
	for raw, want := range cases {
		got, ok := ParseStatus(raw)
		require.True(t, ok, raw)
		require.Equal(t, want, got, raw)
	}
	_, ok := ParseStatus("weird")
	require.False(t, ok)
}

func TestFailureIsGatewayError(t *testing.T) {
	err := Failure("paydunya", errors.New("boom"), "request failed")
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodePaymentGateway, typed.Code())
	require.True(t, pkgerrors.MetadataFor(typed.Code()).Retryable)
}
