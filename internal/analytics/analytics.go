package analytics

import (
	"sort"
	"strings"
	"time"

	"finance_tracker/internal/ledger"

	"github.com/shopspring/decimal"
)

const (
	DefaultTrendPoints = 7
	DefaultRecent      = 5
	noDataLabel        = "No Data"
)

type Series struct {
	Labels []string          `json:"labels"`
	Values []decimal.Decimal `json:"values"`
}

type Summary struct {
	TotalIncome  decimal.Decimal `json:"total_income"`
	TotalExpense decimal.Decimal `json:"total_expense"`
	Balance      decimal.Decimal `json:"balance"`
	MonthIncome  decimal.Decimal `json:"month_income"`
	MonthExpense decimal.Decimal `json:"month_expense"`
	Count        int             `json:"count"`
}

type CategoryTotal struct {
	Category string          `json:"category"`
	Total    decimal.Decimal `json:"total"`
}

func Summarize(txs []ledger.Transaction, now time.Time) Summary {
	month := now.UTC().Format("2006-01")
	summary := Summary{
		TotalIncome:  decimal.Zero,
		TotalExpense: decimal.Zero,
		MonthIncome:  decimal.Zero,
		MonthExpense: decimal.Zero,
		Count:        len(txs),
	}
	for _, tx := range txs {
		inMonth := strings.HasPrefix(tx.Date, month)
		switch tx.Type {
		case ledger.Income:
			summary.TotalIncome = summary.TotalIncome.Add(tx.Magnitude())
			if inMonth {
				summary.MonthIncome = summary.MonthIncome.Add(tx.Magnitude())
			}
		case ledger.Expense:
			summary.TotalExpense = summary.TotalExpense.Add(tx.Magnitude())
			if inMonth {
				summary.MonthExpense = summary.MonthExpense.Add(tx.Magnitude())
			}
		}
	}
	summary.Balance = summary.TotalIncome.Sub(summary.TotalExpense)
	return summary
}

// TopExpenseCategory returns the category with the largest expense total. Ties go to the
// alphabetically first name. ok is false when there are no expenses.
func TopExpenseCategory(txs []ledger.Transaction) (CategoryTotal, bool) {
	totals := expenseTotals(txs)
	if len(totals) == 0 {
		return CategoryTotal{Total: decimal.Zero}, false
	}
	var top CategoryTotal
	found := false
	for _, name := range sortedKeys(totals) {
		total := totals[name]
		if !found || total.GreaterThan(top.Total) {
			top = CategoryTotal{Category: name, Total: total}
			found = true
		}
	}
	return top, true
}

func ExpenseByCategory(txs []ledger.Transaction) Series {
	totals := expenseTotals(txs)
	series := Series{Labels: []string{}, Values: []decimal.Decimal{}}
	for _, name := range sortedKeys(totals) {
		series.Labels = append(series.Labels, name)
		series.Values = append(series.Values, totals[name])
	}
	return series
}

func MonthlyExpenses(txs []ledger.Transaction) Series {
	totals := make(map[string]decimal.Decimal)
	for _, tx := range txs {
		if tx.Type != ledger.Expense {
			continue
		}
		month := tx.Month()
		if month == "" {
			continue
		}
		totals[month] = totals[month].Add(tx.Magnitude())
	}
	series := Series{Labels: []string{}, Values: []decimal.Decimal{}}
	for _, month := range sortedKeys(totals) {
		series.Labels = append(series.Labels, monthLabel(month))
		series.Values = append(series.Values, totals[month])
	}
	return series
}

// BalanceTrend walks the transactions oldest first accumulating signed amounts and returns the
// last n points of the running balance.
func BalanceTrend(txs []ledger.Transaction, n int) Series {
	if len(txs) == 0 {
		return Series{Labels: []string{noDataLabel}, Values: []decimal.Decimal{decimal.Zero}}
	}
	if n <= 0 {
		n = DefaultTrendPoints
	}
	ordered := append([]ledger.Transaction(nil), txs...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Date != ordered[j].Date {
			return ordered[i].Date < ordered[j].Date
		}
		return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
	})

	labels := make([]string, 0, len(ordered))
	values := make([]decimal.Decimal, 0, len(ordered))
	running := decimal.Zero
	for _, tx := range ordered {
		running = running.Add(tx.Amount)
		labels = append(labels, tx.Date)
		values = append(values, running)
	}
	if len(labels) > n {
		labels = labels[len(labels)-n:]
		values = values[len(values)-n:]
	}
	return Series{Labels: labels, Values: values}
}

func Recent(txs []ledger.Transaction, n int) []ledger.Transaction {
	if n <= 0 {
		n = DefaultRecent
	}
	ordered := append([]ledger.Transaction(nil), txs...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Date != ordered[j].Date {
			return ordered[i].Date > ordered[j].Date
		}
		return ordered[i].CreatedAt.After(ordered[j].CreatedAt)
	})
	if len(ordered) > n {
		ordered = ordered[:n]
	}
	return ordered
}

func expenseTotals(txs []ledger.Transaction) map[string]decimal.Decimal {
	totals := make(map[string]decimal.Decimal)
	for _, tx := range txs {
		if tx.Type != ledger.Expense {
			continue
		}
		totals[tx.Category] = totals[tx.Category].Add(tx.Magnitude())
	}
	return totals
}

func sortedKeys(values map[string]decimal.Decimal) []string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func monthLabel(month string) string {
	parsed, err := time.Parse("2006-01", month)
	if err != nil {
		return month
	}
	return parsed.Format("Jan 2006")
}
