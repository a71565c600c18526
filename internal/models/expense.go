package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExpenseCategory категория расхода.
type ExpenseCategory string

const (
	ExpenseRent      ExpenseCategory = "rent"
	ExpenseEquipment ExpenseCategory = "equipment"
	ExpenseSalaries  ExpenseCategory = "salaries"
	ExpenseUtilities ExpenseCategory = "utilities"
	ExpenseTransport ExpenseCategory = "transport"
	ExpenseMarketing ExpenseCategory = "marketing"
	ExpenseOther     ExpenseCategory = "other"
)

// Valid проверяет, что категория известна.
func (c ExpenseCategory) Valid() bool {
	switch c {
	case ExpenseRent, ExpenseEquipment, ExpenseSalaries, ExpenseUtilities,
		ExpenseTransport, ExpenseMarketing, ExpenseOther:
		return true
	}
	return false
}

// Expense запись в журнале расходов.
type Expense struct {
	ID          string          `json:"id"`
	Category    ExpenseCategory `json:"category"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description,omitempty"`
	ExpenseDate time.Time       `json:"expense_date"`
	CreatedBy   string          `json:"created_by"`
	CreatedAt   time.Time       `json:"created_at"`
}

// ExpenseFilter период и необязательная категория для выборки расходов.
type ExpenseFilter struct {
	From     time.Time
	To       time.Time
	Category ExpenseCategory
}

// ExpenseSummary суммы расходов по категориям за период.
type ExpenseSummary struct {
	From       time.Time                           `json:"from"`
	To         time.Time                           `json:"to"`
	ByCategory map[ExpenseCategory]decimal.Decimal `json:"by_category"`
	Total      decimal.Decimal                     `json:"total"`
}
