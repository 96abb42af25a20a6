package tracker

import (
	"context"

	"finance_tracker/internal/analytics"
	"finance_tracker/internal/ledger"

	"github.com/shopspring/decimal"
)

type RecentItem struct {
	ledger.Transaction
	Icon      string `json:"icon"`
	Formatted string `json:"formatted"`
}

type Dashboard struct {
	Currency     string            `json:"currency"`
	Summary      analytics.Summary `json:"summary"`
	Balance      string            `json:"balance"`
	MonthIncome  string            `json:"month_income"`
	MonthExpense string            `json:"month_expense"`
	Recent       []RecentItem      `json:"recent"`
	BalanceTrend analytics.Series  `json:"balance_trend"`
}

type Analytics struct {
	Currency     string                   `json:"currency"`
	TotalIncome  decimal.Decimal          `json:"total_income"`
	TotalExpense decimal.Decimal          `json:"total_expense"`
	TopCategory  *analytics.CategoryTotal `json:"top_category"`
	ByCategory   analytics.Series         `json:"expense_by_category"`
	Monthly      analytics.Series         `json:"monthly_expenses"`
}

type CategoryGroups struct {
	Income       []ledger.Category `json:"income"`
	Expense      []ledger.Category `json:"expense"`
	IncomeCount  int               `json:"income_count"`
	ExpenseCount int               `json:"expense_count"`
}

type Settings struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Currency string `json:"currency"`
}

func (s *Service) Dashboard(ctx context.Context, userID string, force bool) (Dashboard, error) {
	txs, err := s.Transactions(ctx, userID, force)
	if err != nil {
		return Dashboard{}, err
	}
	currency := s.currency(ctx, userID)
	summary := analytics.Summarize(txs, s.now())

	recent := analytics.Recent(txs, analytics.DefaultRecent)
	items := make([]RecentItem, 0, len(recent))
	for _, tx := range recent {
		items = append(items, RecentItem{
			Transaction: tx,
			Icon:        ledger.Icon(tx.Category),
			Formatted:   ledger.FormatCurrency(tx.Amount, currency),
		})
	}

	return Dashboard{
		Currency:     currency,
		Summary:      summary,
		Balance:      summary.Balance.StringFixed(2),
		MonthIncome:  summary.MonthIncome.StringFixed(2),
		MonthExpense: summary.MonthExpense.StringFixed(2),
		Recent:       items,
		BalanceTrend: analytics.BalanceTrend(txs, analytics.DefaultTrendPoints),
	}, nil
}

func (s *Service) Analytics(ctx context.Context, userID string, force bool) (Analytics, error) {
	txs, err := s.Transactions(ctx, userID, force)
	if err != nil {
		return Analytics{}, err
	}
	summary := analytics.Summarize(txs, s.now())
	view := Analytics{
		Currency:     s.currency(ctx, userID),
		TotalIncome:  summary.TotalIncome,
		TotalExpense: summary.TotalExpense,
		ByCategory:   analytics.ExpenseByCategory(txs),
		Monthly:      analytics.MonthlyExpenses(txs),
	}
	if top, ok := analytics.TopExpenseCategory(txs); ok {
		view.TopCategory = &top
	}
	return view, nil
}

func (s *Service) Categories(ctx context.Context, userID string) (CategoryGroups, error) {
	categories, err := s.store.ListCategories(ctx, userID)
	if err != nil {
		s.storeError("list_categories", userID, err)
		return CategoryGroups{}, err
	}
	groups := CategoryGroups{Income: []ledger.Category{}, Expense: []ledger.Category{}}
	for _, category := range categories {
		switch category.Type {
		case ledger.Income:
			groups.Income = append(groups.Income, category)
		case ledger.Expense:
			groups.Expense = append(groups.Expense, category)
		}
	}
	groups.IncomeCount = len(groups.Income)
	groups.ExpenseCount = len(groups.Expense)
	return groups, nil
}

func (s *Service) CreateCategory(ctx context.Context, userID string, in ledger.CategoryInput) (ledger.Category, error) {
	category, err := in.Build(userID)
	if err != nil {
		return ledger.Category{}, err
	}
	created, err := s.store.CreateCategory(ctx, category)
	if err != nil {
		s.storeError("create_category", userID, err)
		return ledger.Category{}, err
	}
	return created, nil
}

func (s *Service) UpdateCategory(ctx context.Context, userID string, id string, in ledger.CategoryInput) (ledger.Category, error) {
	category, err := in.Build(userID)
	if err != nil {
		return ledger.Category{}, err
	}
	category.ID = id
	updated, err := s.store.UpdateCategory(ctx, category)
	if err != nil {
		s.storeError("update_category", userID, err)
		return ledger.Category{}, err
	}
	return updated, nil
}

func (s *Service) DeleteCategory(ctx context.Context, userID string, id string) error {
	if err := s.store.DeleteCategory(ctx, userID, id); err != nil {
		s.storeError("delete_category", userID, err)
		return err
	}
	return nil
}

func (s *Service) Settings(ctx context.Context, userID string) (Settings, error) {
	profile, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		s.storeError("get_profile", userID, err)
		return Settings{}, err
	}
	currency := profile.Currency
	if currency == "" {
		currency = ledger.FallbackCurrency
	}
	return Settings{Name: profile.Name, Email: profile.Email, Currency: currency}, nil
}

func (s *Service) UpdateCurrency(ctx context.Context, userID string, currency string) (Settings, error) {
	code, ok := ledger.NormalizeCurrency(currency)
	if !ok {
		var errs ledger.ValidationErrors
		errs.Add("currency", "Currency must be a 3-letter code")
		return Settings{}, errs
	}
	if err := s.store.PutProfile(ctx, ledger.Profile{UserID: userID, Currency: code}); err != nil {
		s.storeError("put_profile", userID, err)
		return Settings{}, err
	}
	return s.Settings(ctx, userID)
}
