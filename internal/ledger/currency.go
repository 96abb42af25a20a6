package ledger

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const FallbackCurrency = "RWF"

var currencySymbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"RWF": "RWF",
}

func FormatCurrency(amount decimal.Decimal, currency string) string {
	if currency == "" {
		currency = FallbackCurrency
	}
	symbol, ok := currencySymbols[currency]
	if !ok {
		symbol = currency
	}
	return symbol + " " + amount.Abs().StringFixed(2)
}

func NormalizeCurrency(code string) (string, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if _, ok := currencySymbols[code]; ok {
		return code, true
	}
	if len(code) != 3 {
		return code, false
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return code, false
		}
	}
	return code, true
}

type Profile struct {
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Currency  string    `json:"currency"`
	Provider  string    `json:"provider,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
