// Package currency converts display amounts to integer base units and back
// using a fixed per-currency rate table.
package currency

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/shopspring/decimal"
)

// ErrUnsupportedCurrency is returned for codes without a rate.
var ErrUnsupportedCurrency = errors.New("unsupported currency")

// ErrOutOfRange is returned when a converted amount does not fit in int64.
var ErrOutOfRange = errors.New("amount out of range")

// DefaultRates are base units per one display unit. TWD cents are the base.
var DefaultRates = map[string]int64{
	"TWD":  100,
	"USDT": 3000,
	"CNY":  500,
	"JPY":  25,
	"EUR":  3500,
	"THB":  100,
	"INR":  25,
	"VNDK": 150,
	"MYR":  500,
	"KRWK": 2500,
}

// DefaultWholeUnitCurrencies have no subunit in common use.
var DefaultWholeUnitCurrencies = []string{"JPY", "KRWK", "VNDK"}

var (
	maxInt64 = decimal.NewFromInt(math.MaxInt64)
	minInt64 = decimal.NewFromInt(math.MinInt64)
)

// Converter holds an immutable rate table. Safe for concurrent use.
type Converter struct {
	rates  map[string]decimal.Decimal
	places map[string]int32
}

// NewConverter copies rates and wholeUnit into a new Converter.
// Every rate must be positive.
func NewConverter(rates map[string]int64, wholeUnit []string) (*Converter, error) {
	if len(rates) == 0 {
		return nil, fmt.Errorf("rate table is empty")
	}
	c := &Converter{
		rates:  make(map[string]decimal.Decimal, len(rates)),
		places: make(map[string]int32, len(rates)),
	}
	for code, rate := range rates {
		if rate <= 0 {
			return nil, fmt.Errorf("rate for %s must be positive, got %d", code, rate)
		}
		c.rates[code] = decimal.NewFromInt(rate)
		c.places[code] = 2
	}
	for _, code := range wholeUnit {
		if _, ok := c.rates[code]; ok {
			c.places[code] = 0
		}
	}
	return c, nil
}

// Default returns a Converter over DefaultRates.
func Default() *Converter {
	c, err := NewConverter(DefaultRates, DefaultWholeUnitCurrencies)
	if err != nil {
		panic(err)
	}
	return c
}

// Supports reports whether code has a rate.
func (c *Converter) Supports(code string) bool {
	_, ok := c.rates[code]
	return ok
}

// Currencies returns the supported codes in sorted order.
func (c *Converter) Currencies() []string {
	out := make([]string, 0, len(c.rates))
	for code := range c.rates {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

// Rate returns the number of base units per display unit.
func (c *Converter) Rate(code string) (decimal.Decimal, error) {
	rate, ok := c.rates[code]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrUnsupportedCurrency, code)
	}
	return rate, nil
}

// ToBaseUnits multiplies amount by the rate and rounds half away from zero.
func (c *Converter) ToBaseUnits(amount decimal.Decimal, code string) (int64, error) {
	rate, err := c.Rate(code)
	if err != nil {
		return 0, err
	}
	points := amount.Mul(rate).Round(0)
	if points.GreaterThan(maxInt64) || points.LessThan(minInt64) {
		return 0, fmt.Errorf("%w: %s %s", ErrOutOfRange, amount.String(), code)
	}
	return points.IntPart(), nil
}

// FromBaseUnits divides points by the rate. The result is not rounded; use Format
// or RoundDisplay for presentation.
func (c *Converter) FromBaseUnits(points int64, code string) (decimal.Decimal, error) {
	rate, err := c.Rate(code)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromInt(points).Div(rate), nil
}

// DecimalPlaces is the display precision of code.
func (c *Converter) DecimalPlaces(code string) (int32, error) {
	places, ok := c.places[code]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedCurrency, code)
	}
	return places, nil
}

// RoundDisplay rounds amount to the display precision of code.
func (c *Converter) RoundDisplay(amount decimal.Decimal, code string) (decimal.Decimal, error) {
	places, err := c.DecimalPlaces(code)
	if err != nil {
		return decimal.Zero, err
	}
	return amount.Round(places), nil
}

// Format renders points as a fixed precision display string.
func (c *Converter) Format(points int64, code string) (string, error) {
	amount, err := c.FromBaseUnits(points, code)
	if err != nil {
		return "", err
	}
	places, _ := c.DecimalPlaces(code)
	return amount.StringFixed(places), nil
}
