package enums

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseProductSizeNormalizes(t *testing.T) {
	t.Parallel()

	size, err := ParseProductSize(" xl ")
	require.NoError(t, err)
	require.Equal(t, ProductSizeXL, size)

	_, err = ParseProductSize("XXXXL")
	require.Error(t, err)
}

func TestBadgeTypeTitle(t *testing.T) {
	t.Parallel()

	cases := map[BadgeType]string{
		BadgeTypeChampions: "Champions",
		BadgeTypeSerieA:    "Serie_A",
		BadgeTypeLigue1:    "Ligue_1",
		BadgeTypeUEFA:      "Uefa",
	}
	for badge, want := range cases {
		require.Equal(t, want, badge.Title(), string(badge))
	}
	require.Equal(t, "Champions League", BadgeTypeChampions.Label())
}

func TestStatusEnumsValidity(t *testing.T) {
	t.Parallel()

	require.True(t, OrderStatusRefunded.IsValid())
	require.False(t, OrderStatus("confirmed").IsValid())
	require.True(t, PaymentStatusAwaitingReview.IsValid())

	status, err := ParsePaymentStatus("completed")
	require.NoError(t, err)
	require.Equal(t, PaymentStatusCompleted, status)

	_, err = ParseOrderPaymentStatus("settled")
	require.Error(t, err)

	event, err := ParsePaymentLogEvent("wave_transaction_submitted")
	require.NoError(t, err)
	require.Equal(t, PaymentLogWaveSubmitted, event)
}
