package currency

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestToBaseUnits(t *testing.T) {
	c := Default()
	tests := []struct {
		name     string
		amount   string
		currency string
		want     int64
	}{
		{"twd cents", "50.00", "TWD", 5000},
		{"usdt", "1.5", "USDT", 4500},
		{"jpy whole", "3", "JPY", 75},
		{"krwk", "2", "KRWK", 5000},
		{"half rounds up", "0.005", "TWD", 1},
		{"half rounds away from zero negative", "-0.005", "TWD", -1},
		{"below half rounds down", "0.004", "TWD", 0},
		{"inr sub point", "0.02", "INR", 1},
		{"inr below half", "0.01", "INR", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.ToBaseUnits(dec(tt.amount), tt.currency)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUnsupportedCurrency(t *testing.T) {
	c := Default()
	_, err := c.ToBaseUnits(dec("1"), "PHP")
	require.ErrorIs(t, err, ErrUnsupportedCurrency)

	_, err = c.FromBaseUnits(100, "PHP")
	require.ErrorIs(t, err, ErrUnsupportedCurrency)

	_, err = c.DecimalPlaces("PHP")
	require.ErrorIs(t, err, ErrUnsupportedCurrency)

	assert.False(t, c.Supports("PHP"))
	assert.True(t, c.Supports("TWD"))
}

func TestToBaseUnits_OutOfRange(t *testing.T) {
	c := Default()
	_, err := c.ToBaseUnits(dec("99999999999999999999"), "EUR")
	require.ErrorIs(t, err, ErrOutOfRange)
}

func TestFromBaseUnits(t *testing.T) {
	c := Default()
	got, err := c.FromBaseUnits(5000, "TWD")
	require.NoError(t, err)
	assert.True(t, got.Equal(dec("50")))

	got, err = c.FromBaseUnits(4500, "USDT")
	require.NoError(t, err)
	assert.True(t, got.Equal(dec("1.5")))
}

func TestDecimalPlaces(t *testing.T) {
	c := Default()
	for code, want := range map[string]int32{
		"JPY": 0, "KRWK": 0, "VNDK": 0,
		"TWD": 2, "USDT": 2, "CNY": 2, "EUR": 2, "THB": 2, "INR": 2, "MYR": 2,
	} {
		got, err := c.DecimalPlaces(code)
		require.NoError(t, err, code)
		assert.Equal(t, want, got, code)
	}
}

func TestFormat(t *testing.T) {
	c := Default()
	s, err := c.Format(5000, "TWD")
	require.NoError(t, err)
	assert.Equal(t, "50.00", s)

	s, err = c.Format(75, "JPY")
	require.NoError(t, err)
	assert.Equal(t, "3", s)
}

// Round trip reproduces the display amount at display precision. A currency whose
// rate is below 10^places cannot represent every display step, so the result is
// bounded by half a base unit expressed in display units.
func TestRoundTrip(t *testing.T) {
	c := Default()
	amounts := []string{"0.01", "0.05", "0.5", "1", "1.23", "12.34", "50.00", "99.99", "1234.56", "100000"}

	for _, code := range c.Currencies() {
		places, err := c.DecimalPlaces(code)
		require.NoError(t, err)
		rate, err := c.Rate(code)
		require.NoError(t, err)
		tolerance := dec("0.5").Div(rate)

		for _, a := range amounts {
			x := dec(a).Round(places)
			t.Run(code+"/"+a, func(t *testing.T) {
				points, err := c.ToBaseUnits(x, code)
				require.NoError(t, err)
				back, err := c.FromBaseUnits(points, code)
				require.NoError(t, err)

				if rate.Shift(-places).IsInteger() {
					rounded, err := c.RoundDisplay(back, code)
					require.NoError(t, err)
					assert.True(t, rounded.Equal(x), "%s %s -> %d -> %s", x, code, points, back)
				}
				assert.True(t, back.Sub(x).Abs().LessThanOrEqual(tolerance),
					"%s %s drifted to %s", x, code, back)
			})
		}
	}
}

func TestRoundTrip_Deterministic(t *testing.T) {
	c := Default()
	x := dec("12.34")
	first, err := c.ToBaseUnits(x, "EUR")
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		back, err := c.FromBaseUnits(first, "EUR")
		require.NoError(t, err)
		again, err := c.ToBaseUnits(back, "EUR")
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestNewConverter_Validation(t *testing.T) {
	_, err := NewConverter(nil, nil)
	require.Error(t, err)

	_, err = NewConverter(map[string]int64{"TWD": 0}, nil)
	require.Error(t, err)

	c, err := NewConverter(map[string]int64{"XYZ": 10}, []string{"XYZ", "ABC"})
	require.NoError(t, err)
	places, err := c.DecimalPlaces("XYZ")
	require.NoError(t, err)
	assert.Equal(t, int32(0), places)
	assert.False(t, c.Supports("ABC"))
}
