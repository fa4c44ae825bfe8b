package money

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseDecimal(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"299.00", 29900},
		{"299", 29900},
		{"0.5", 50},
		{" 899.99 ", 89999},
	}

	for _, tc := range cases {
		m, err := ParseDecimal(tc.in, "rub")
		require.NoError(t, err, tc.in)
		require.Equal(t, tc.want, m.Amount, tc.in)
		require.Equal(t, "RUB", m.Currency)
	}
}

func TestParseDecimalRejects(t *testing.T) {
	for _, in := range []string{"", ".5", "1.", "1.234", "-1.00", "abc", "1.-5"} {
		_, err := ParseDecimal(in, "RUB")
		require.Error(t, err, in)
	}
}

func TestDecimalRoundTrip(t *testing.T) {
	m := MustParse("499.00", "RUB")
	require.Equal(t, "499.00", m.Decimal())
	require.Equal(t, "499.00 RUB", m.String())
	require.Equal(t, "-0.05", RUB(-5).Decimal())
	require.True(t, m.Equal(RUB(49900)))
}
