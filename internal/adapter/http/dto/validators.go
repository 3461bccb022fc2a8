package dto

import (
	"regexp"

	"wallet-ledger/internal/core/domain"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var (
	currencyRe = regexp.MustCompile(`^[A-Za-z]{3,5}$`)
	pinRe      = regexp.MustCompile(`^[0-9]{4,6}$`)
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("money", validateMoney)
		_ = v.RegisterValidation("currency_code", validateCurrencyCode)
		_ = v.RegisterValidation("ledger_op", validateLedgerOp)
		_ = v.RegisterValidation("txn_pin", validateTxnPin)
	}
}

// validateMoney accepts a strictly positive decimal string.
func validateMoney(fl validator.FieldLevel) bool {
	d, err := decimal.NewFromString(fl.Field().String())
	if err != nil {
		return false
	}
	return d.IsPositive()
}

// validateCurrencyCode accepts 3-5 letter codes (KES, USD, USDT, ...).
func validateCurrencyCode(fl validator.FieldLevel) bool {
	return currencyRe.MatchString(fl.Field().String())
}

// validateLedgerOp accepts only known operation types.
func validateLedgerOp(fl validator.FieldLevel) bool {
	return domain.OperationType(fl.Field().String()).Valid()
}

// validateTxnPin enforces the 4-6 digit PIN policy at the edge; the core
// re-checks it so other transports cannot bypass the rule.
func validateTxnPin(fl validator.FieldLevel) bool {
	return pinRe.MatchString(fl.Field().String())
}

// ParseAmount converts a validated amount string into a decimal.
func ParseAmount(raw string) (decimal.Decimal, error) {
	return decimal.NewFromString(raw)
}
