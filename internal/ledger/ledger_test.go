package ledger

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestTransactionInputBuildNormalizesExpense(t *testing.T) {
	tx, err := TransactionInput{
		Description: " Lunch ",
		Amount:      "12.50",
		Type:        "expense",
		Category:    "Food",
		Date:        "2024-03-05",
	}.Build("alice")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if tx.Description != "Lunch" {
		t.Fatalf("expected trimmed description, got %q", tx.Description)
	}
	if !tx.Amount.Equal(decimal.RequireFromString("-12.50")) {
		t.Fatalf("expected -12.50, got %s", tx.Amount)
	}
	if tx.UserID != "alice" || tx.Month() != "2024-03" {
		t.Fatalf("unexpected owner or month: %+v", tx)
	}
}

func TestTransactionInputBuildIncomeIsPositive(t *testing.T) {
	tx, err := TransactionInput{Description: "Pay", Amount: "-100", Type: "INCOME", Category: "Salary"}.Build("bob")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if !tx.Amount.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected 100, got %s", tx.Amount)
	}
	if tx.Type != Income {
		t.Fatalf("expected income, got %s", tx.Type)
	}
}

func TestTransactionInputBuildCollectsFieldErrors(t *testing.T) {
	_, err := TransactionInput{Amount: "0", Type: "transfer", Date: "05/03/2024"}.Build("alice")
	var verrs ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected validation errors, got %v", err)
	}
	fields := map[string]bool{}
	for _, fe := range verrs {
		fields[fe.Field] = true
	}
	for _, field := range []string{"description", "amount", "type", "category", "date"} {
		if !fields[field] {
			t.Fatalf("expected error for %s, got %v", field, verrs)
		}
	}
}

func TestCategoryInputRequiresIcon(t *testing.T) {
	_, err := CategoryInput{Name: "Rent", Type: "expense"}.Build("alice")
	var verrs ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) != 1 || verrs[0].Message != "Please select an icon" {
		t.Fatalf("expected icon error, got %v", err)
	}
}

func TestDefaultCategories(t *testing.T) {
	cats := DefaultCategories("alice")
	if len(cats) != 7 {
		t.Fatalf("expected 7 defaults, got %d", len(cats))
	}
	income := 0
	for _, c := range cats {
		if c.UserID != "alice" {
			t.Fatalf("unexpected owner %q", c.UserID)
		}
		if c.Type == Income {
			income++
		}
	}
	if income != 2 {
		t.Fatalf("expected 2 income categories, got %d", income)
	}
}

func TestIconFallback(t *testing.T) {
	if Icon("Salary") != "💰" {
		t.Fatalf("unexpected salary icon %q", Icon("Salary"))
	}
	if Icon("Pets") != defaultIcon {
		t.Fatalf("expected default icon, got %q", Icon("Pets"))
	}
}

func TestFormatCurrency(t *testing.T) {
	cases := []struct {
		amount   string
		currency string
		want     string
	}{
		{"-12.5", "USD", "$ 12.50"},
		{"3", "EUR", "€ 3.00"},
		{"1000.456", "", "RWF 1000.46"},
		{"7", "JPY", "JPY 7.00"},
	}
	for _, tc := range cases {
		got := FormatCurrency(decimal.RequireFromString(tc.amount), tc.currency)
		if got != tc.want {
			t.Fatalf("FormatCurrency(%s, %q) = %q, want %q", tc.amount, tc.currency, got, tc.want)
		}
	}
}

func TestNormalizeCurrency(t *testing.T) {
	if code, ok := NormalizeCurrency(" gbp "); !ok || code != "GBP" {
		t.Fatalf("expected GBP, got %q %v", code, ok)
	}
	if _, ok := NormalizeCurrency("dollars"); ok {
		t.Fatalf("expected invalid currency")
	}
	if _, ok := NormalizeCurrency("U1D"); ok {
		t.Fatalf("expected invalid currency")
	}
}

func TestTransactionInputBuildUsesMagnitude(t *testing.T) {
	tx, err := TransactionInput{Description: "Bus", Amount: "-5", Type: "expense", Category: "Transportation"}.Build("alice")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if !tx.Amount.Equal(decimal.NewFromInt(-5)) {
		t.Fatalf("expected -5, got %s", tx.Amount)
	}

	_, err = TransactionInput{Description: "Bus", Amount: "-0", Type: "expense", Category: "Transportation"}.Build("alice")
	var verrs ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) != 1 || verrs[0].Field != "amount" {
		t.Fatalf("expected amount error for -0, got %v", err)
	}
}
