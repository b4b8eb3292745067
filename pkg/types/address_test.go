package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddressSnapshotRoundTripDefaultsCountry(t *testing.T) {
	t.Parallel()

	snap := AddressSnapshot{FirstName: "Awa", LastName: "Koné", StreetAddress: "Rue 12", City: "Abidjan"}
	value, err := snap.Value()
	require.NoError(t, err)

	var decoded AddressSnapshot
	require.NoError(t, decoded.Scan(value))
	require.Equal(t, DefaultCountry, decoded.Country)
	require.Equal(t, "Awa Koné", decoded.FullName())
}

func TestAddressSnapshotValueRequiresStreetAndCity(t *testing.T) {
	t.Parallel()

	_, err := AddressSnapshot{City: "Abidjan"}.Value()
	require.Error(t, err)

	_, err = AddressSnapshot{StreetAddress: "Rue 12"}.Value()
	require.Error(t, err)
}

func TestAddressSnapshotScanRejectsUnknownType(t *testing.T) {
	t.Parallel()

	var snap AddressSnapshot
	require.Error(t, snap.Scan(12))
	require.NoError(t, snap.Scan(nil))
	require.Equal(t, AddressSnapshot{}, snap)
}
