package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"15000.50": "15 000,50 FCFA",
		"15000":    "15 000 FCFA",
		"25500.00": "25 500 FCFA",
		"999":      "999 FCFA",
		"1000000":  "1 000 000 FCFA",
		"0":        "0 FCFA",
		"12.5":     "12,50 FCFA",
		"-1500":    "-1 500 FCFA",
	}
	for in, want := range cases {
		require.Equal(t, want, Format(decimal.RequireFromString(in)), in)
	}
}
