package analytics

import (
	"testing"
	"time"

	"finance_tracker/internal/ledger"

	"github.com/shopspring/decimal"
)

func mk(date string, txType ledger.Type, category string, amount string) ledger.Transaction {
	value := decimal.RequireFromString(amount)
	return ledger.Transaction{
		ID:       date + category + amount,
		Date:     date,
		Type:     txType,
		Category: category,
		Amount:   ledger.NormalizeAmount(txType, value),
	}
}

func sample() []ledger.Transaction {
	return []ledger.Transaction{
		mk("2024-03-10", ledger.Expense, "Food", "25.50"),
		mk("2024-03-05", ledger.Income, "Salary", "1000"),
		mk("2024-02-20", ledger.Expense, "Bills", "120"),
		mk("2024-02-11", ledger.Expense, "Food", "40"),
		mk("2024-01-02", ledger.Income, "Freelance", "300"),
	}
}

func TestSummarize(t *testing.T) {
	now := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)
	summary := Summarize(sample(), now)

	checks := map[string]struct {
		got  decimal.Decimal
		want string
	}{
		"total income":  {summary.TotalIncome, "1300"},
		"total expense": {summary.TotalExpense, "185.5"},
		"balance":       {summary.Balance, "1114.5"},
		"month income":  {summary.MonthIncome, "1000"},
		"month expense": {summary.MonthExpense, "25.5"},
	}
	for name, check := range checks {
		if !check.got.Equal(decimal.RequireFromString(check.want)) {
			t.Fatalf("%s: expected %s, got %s", name, check.want, check.got)
		}
	}
	if summary.Count != 5 {
		t.Fatalf("expected count 5, got %d", summary.Count)
	}
}

func TestTopExpenseCategory(t *testing.T) {
	top, ok := TopExpenseCategory(sample())
	if !ok {
		t.Fatalf("expected a top category")
	}
	if top.Category != "Bills" || !top.Total.Equal(decimal.NewFromInt(120)) {
		t.Fatalf("unexpected top category %+v", top)
	}

	tie := []ledger.Transaction{
		mk("2024-01-01", ledger.Expense, "Shopping", "10"),
		mk("2024-01-01", ledger.Expense, "Entertainment", "10"),
	}
	top, _ = TopExpenseCategory(tie)
	if top.Category != "Entertainment" {
		t.Fatalf("expected alphabetical tie-break, got %s", top.Category)
	}

	if _, ok := TopExpenseCategory(nil); ok {
		t.Fatalf("expected no top category without expenses")
	}
}

func TestExpenseByCategory(t *testing.T) {
	series := ExpenseByCategory(sample())
	wantLabels := []string{"Bills", "Food"}
	wantValues := []string{"120", "65.5"}
	if len(series.Labels) != len(wantLabels) {
		t.Fatalf("unexpected labels %v", series.Labels)
	}
	for i := range wantLabels {
		if series.Labels[i] != wantLabels[i] || !series.Values[i].Equal(decimal.RequireFromString(wantValues[i])) {
			t.Fatalf("position %d: got %s=%s", i, series.Labels[i], series.Values[i])
		}
	}
}

func TestMonthlyExpenses(t *testing.T) {
	series := MonthlyExpenses(sample())
	wantLabels := []string{"Feb 2024", "Mar 2024"}
	wantValues := []string{"160", "25.5"}
	if len(series.Labels) != len(wantLabels) {
		t.Fatalf("unexpected labels %v", series.Labels)
	}
	for i := range wantLabels {
		if series.Labels[i] != wantLabels[i] || !series.Values[i].Equal(decimal.RequireFromString(wantValues[i])) {
			t.Fatalf("position %d: got %s=%s", i, series.Labels[i], series.Values[i])
		}
	}
}

func TestBalanceTrend(t *testing.T) {
	empty := BalanceTrend(nil, DefaultTrendPoints)
	if len(empty.Labels) != 1 || empty.Labels[0] != "No Data" || !empty.Values[0].IsZero() {
		t.Fatalf("unexpected empty trend %+v", empty)
	}

	trend := BalanceTrend(sample(), 3)
	wantLabels := []string{"2024-02-20", "2024-03-05", "2024-03-10"}
	wantValues := []string{"140", "1140", "1114.5"}
	for i := range wantLabels {
		if trend.Labels[i] != wantLabels[i] {
			t.Fatalf("label %d: expected %s, got %s", i, wantLabels[i], trend.Labels[i])
		}
		if !trend.Values[i].Equal(decimal.RequireFromString(wantValues[i])) {
			t.Fatalf("value %d: expected %s, got %s", i, wantValues[i], trend.Values[i])
		}
	}
}

func TestRecent(t *testing.T) {
	txs := sample()
	recent := Recent(txs, 2)
	if len(recent) != 2 || recent[0].Date != "2024-03-10" || recent[1].Date != "2024-03-05" {
		t.Fatalf("unexpected recent %+v", recent)
	}
	if len(Recent(txs, 0)) != DefaultRecent {
		t.Fatalf("expected default recent count")
	}
	if txs[0].Date != "2024-03-10" || txs[4].Date != "2024-01-02" {
		t.Fatalf("input slice was reordered")
	}
}
