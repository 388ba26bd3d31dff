package models

import (
	"fmt"
	"time"
)

// DateLayout is the calendar date format used for Expense.Date.
const DateLayout = "2006-01-02"

// TransactionType tells income apart from spending.
type TransactionType string

const (
	TypeIncome  TransactionType = "income"
	TypeExpense TransactionType = "expense"
)

// ParseTransactionType validates a client supplied type. An empty value
// means expense.
func ParseTransactionType(s string) (TransactionType, error) {
	switch TransactionType(s) {
	case "", TypeExpense:
		return TypeExpense, nil
	case TypeIncome:
		return TypeIncome, nil
	}
	return "", fmt.Errorf("invalid transaction type %q", s)
}

// Expense represents a single income or expense transaction owned by a user.
type Expense struct {
	ID          string          `json:"_id"`
	UserID      string          `json:"userId"`
	Amount      float64         `json:"amount"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Type        TransactionType `json:"type"`
	Date        string          `json:"date"`
}

// ExpenseFields are the mutable parts of an Expense.
type ExpenseFields struct {
	Amount      float64
	Category    string
	Description string
	Type        TransactionType
}

// Today returns t formatted as an Expense date.
func Today(t time.Time) string {
	return t.Format(DateLayout)
}
