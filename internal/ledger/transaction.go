package ledger

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const DateLayout = "2006-01-02"

type Type string

const (
	Income  Type = "income"
	Expense Type = "expense"
)

func (t Type) Valid() bool {
	return t == Income || t == Expense
}

func ParseType(value string) (Type, bool) {
	t := Type(strings.ToLower(strings.TrimSpace(value)))
	return t, t.Valid()
}

type Transaction struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Type        Type            `json:"type"`
	Category    string          `json:"category"`
	Date        string          `json:"date"`
	CreatedAt   time.Time       `json:"created_at"`
}

func (t Transaction) Magnitude() decimal.Decimal {
	return t.Amount.Abs()
}

func (t Transaction) Month() string {
	if len(t.Date) < 7 {
		return ""
	}
	return t.Date[:7]
}

// NormalizeAmount stores expenses as negative and income as positive amounts.
func NormalizeAmount(t Type, amount decimal.Decimal) decimal.Decimal {
	if t == Expense {
		return amount.Abs().Neg()
	}
	return amount.Abs()
}

func Today(now time.Time) string {
	return now.UTC().Format(DateLayout)
}

func ValidDate(value string) bool {
	if len(value) != len(DateLayout) {
		return false
	}
	_, err := time.Parse(DateLayout, value)
	return err == nil
}

type TransactionInput struct {
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Type        string `json:"type"`
	Category    string `json:"category"`
	Date        string `json:"date,omitempty"`
}

// Build validates the input and returns a transaction owned by userID. An empty date is left
// empty so callers can decide between today and the stored value.
func (in TransactionInput) Build(userID string) (Transaction, error) {
	var errs ValidationErrors

	description := strings.TrimSpace(in.Description)
	if description == "" {
		errs.Add("description", "Description is required")
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(in.Amount))
	switch {
	case strings.TrimSpace(in.Amount) == "":
		errs.Add("amount", "Amount is required")
	case err != nil:
		errs.Add("amount", "Amount must be a number")
	case !amount.Abs().IsPositive():
		errs.Add("amount", "Amount must be greater than zero")
	}

	txType, ok := ParseType(in.Type)
	if !ok {
		errs.Add("type", "Type must be income or expense")
	}

	category := strings.TrimSpace(in.Category)
	if category == "" {
		errs.Add("category", "Category is required")
	}

	date := strings.TrimSpace(in.Date)
	if date != "" && !ValidDate(date) {
		errs.Add("date", "Date must be YYYY-MM-DD")
	}

	if err := errs.Err(); err != nil {
		return Transaction{}, err
	}

	return Transaction{
		UserID:      userID,
		Description: description,
		Amount:      NormalizeAmount(txType, amount),
		Type:        txType,
		Category:    category,
		Date:        date,
	}, nil
}
