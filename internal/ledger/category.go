package ledger

import (
	"strings"
	"time"
)

type Category struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Type      Type      `json:"type"`
	Icon      string    `json:"icon"`
	CreatedAt time.Time `json:"created_at"`
}

type CategoryInput struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Icon string `json:"icon"`
}

func (in CategoryInput) Build(userID string) (Category, error) {
	var errs ValidationErrors

	name := strings.TrimSpace(in.Name)
	if name == "" {
		errs.Add("name", "Category name is required")
	}
	categoryType, ok := ParseType(in.Type)
	if !ok {
		errs.Add("type", "Type must be income or expense")
	}
	icon := strings.TrimSpace(in.Icon)
	if icon == "" {
		errs.Add("icon", "Please select an icon")
	}
	if err := errs.Err(); err != nil {
		return Category{}, err
	}
	return Category{UserID: userID, Name: name, Type: categoryType, Icon: icon}, nil
}

func DefaultCategories(userID string) []Category {
	return []Category{
		{UserID: userID, Name: "Food", Type: Expense, Icon: "🍔"},
		{UserID: userID, Name: "Transportation", Type: Expense, Icon: "🚗"},
		{UserID: userID, Name: "Entertainment", Type: Expense, Icon: "🎬"},
		{UserID: userID, Name: "Shopping", Type: Expense, Icon: "🛍️"},
		{UserID: userID, Name: "Bills", Type: Expense, Icon: "💡"},
		{UserID: userID, Name: "Salary", Type: Income, Icon: "💰"},
		{UserID: userID, Name: "Freelance", Type: Income, Icon: "💻"},
	}
}

var transactionIcons = map[string]string{
	"Food":           "🍽️",
	"Transportation": "🚗",
	"Entertainment":  "🎬",
	"Utilities":      "💡",
	"Salary":         "💰",
	"Freelance":      "💼",
}

const defaultIcon = "💳"

func Icon(category string) string {
	if icon, ok := transactionIcons[category]; ok {
		return icon
	}
	return defaultIcon
}
