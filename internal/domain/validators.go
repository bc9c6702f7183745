package domain

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	currencyRegex   = regexp.MustCompile(`^[A-Z]{3,5}$`)
	playerNameRegex = regexp.MustCompile(`^[A-Za-z0-9_.\-]{1,64}$`)
	orderIDRegex    = regexp.MustCompile(`^[A-Za-z0-9_\-]{1,64}$`)
)

// ValidateCurrency checks the shape of a currency code. Whether the code has a rate
// is decided by the currency converter.
func ValidateCurrency(currency string) error {
	if !currencyRegex.MatchString(currency) {
		return fmt.Errorf("invalid currency code: %q", currency)
	}
	return nil
}

// ValidatePositiveAmount checks that a base-unit amount is positive.
func ValidatePositiveAmount(amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("amount must be positive, got %d", amount)
	}
	return nil
}

// ValidateNonNegativeAmount allows zero, used for win amounts.
func ValidateNonNegativeAmount(amount int64) error {
	if amount < 0 {
		return fmt.Errorf("amount must not be negative, got %d", amount)
	}
	return nil
}

// ValidateDisplayAmount checks a request amount before conversion.
func ValidateDisplayAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("amount must be positive, got %s", amount.String())
	}
	return nil
}

// NormalizePlayerName trims the name and validates it.
func NormalizePlayerName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("player name is required")
	}
	if !playerNameRegex.MatchString(name) {
		return "", fmt.Errorf("invalid player name: %q", name)
	}
	return name, nil
}

// ValidateOrderID checks the caller supplied order id. The "RB_" prefix and the
// "_win" suffix are reserved for derived compensation and settlement orders.
func ValidateOrderID(orderID string) error {
	if orderID == "" {
		return fmt.Errorf("order id is required")
	}
	if !orderIDRegex.MatchString(orderID) {
		return fmt.Errorf("invalid order id: %q", orderID)
	}
	if strings.HasPrefix(orderID, rollbackPrefix) {
		return fmt.Errorf("order id must not use the reserved %s prefix", rollbackPrefix)
	}
	if strings.HasSuffix(orderID, winSuffix) {
		return fmt.Errorf("order id must not use the reserved %s suffix", winSuffix)
	}
	return nil
}
