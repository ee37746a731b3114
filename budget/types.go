/*
Package budget contains the core budget consistency engine.

PURPOSE:
  Companies contain departments, departments hold time-bounded budgets, and
  budget transactions and expenses debit those budgets. This package owns the
  rules that keep a budget's running accumulators (ackAmount,
  allocatedAmount, expenses) synchronized with the transaction and expense
  rows that reference its period, under concurrent writers.

KEY CONCEPTS IN THIS FILE (types.go):
  - Company/Department: the ownership tree (departments may nest)
  - Budget: a department's [start, end] period with three accumulators
  - BudgetTransaction: a dated, statused amount debiting one budget
  - Expense: a dated amount with an optional concept, debiting one budget
  - User: the acting identity recorded on every write

DESIGN PRINCIPLES:
  1. Precision: decimal.Decimal for all monetary values, so applying and
     rolling back the same amount restores the accumulator exactly
  2. Type Safety: strong typing for IDs prevents mixing entity references
  3. One budget per instant: for a department, at most one budget covers
     any given date (enforced by overlap detection in engine.go)

SEE ALSO:
  - period.go: covering and overlap tests
  - mutator.go: accumulator delta application
  - engine.go: compound writes (record + budget in one transaction)
*/
package budget

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type CompanyID int64
type DepartmentID int64
type BudgetID int64
type TransactionID int64
type ExpenseID int64
type UserID int64

// =============================================================================
// COMPANY / DEPARTMENT
// =============================================================================

type Company struct {
	ID        CompanyID
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Department belongs to exactly one company and may nest under a parent
// department of the same company. There is no enforced depth limit.
type Department struct {
	ID        DepartmentID
	Name      string
	Company   CompanyID
	Parent    *DepartmentID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// =============================================================================
// BUDGET - A department's period with running accumulators
// =============================================================================

type Budget struct {
	ID         BudgetID
	Department DepartmentID
	Start      time.Time
	End        time.Time

	// Accumulators, maintained by mutator.go. Always zeroed on create and
	// only ever changed together with the record that references them.
	AckAmount       decimal.Decimal
	AllocatedAmount decimal.Decimal
	Expenses        decimal.Decimal

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Period returns the budget's covering interval.
func (b *Budget) Period() Period {
	return Period{Start: b.Start, End: b.End}
}

// Covers reports whether date falls inside the budget's period.
func (b *Budget) Covers(date time.Time) bool {
	return b.Period().Contains(date)
}

// =============================================================================
// BUDGET TRANSACTION / EXPENSE
// =============================================================================

type TransactionStatus string

const (
	StatusAcknowledged TransactionStatus = "acknowledged"
	StatusAllocated    TransactionStatus = "allocated"
	StatusCancelled    TransactionStatus = "cancelled"
)

// ValidStatus reports whether s is one of the known transaction statuses.
func ValidStatus(s TransactionStatus) bool {
	switch s {
	case StatusAcknowledged, StatusAllocated, StatusCancelled:
		return true
	}
	return false
}

// BudgetTransaction debits the covering budget of its department and date.
// Exactly one budget must cover Date at create/edit time.
type BudgetTransaction struct {
	ID         TransactionID
	Department DepartmentID
	User       UserID
	Amount     decimal.Decimal
	Status     TransactionStatus
	Date       time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Expense debits the expenses accumulator of its covering budget.
type Expense struct {
	ID         ExpenseID
	Department DepartmentID
	User       UserID
	Amount     decimal.Decimal
	Concept    string
	Date       time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// MaxConceptLength bounds the free-text concept on expenses.
const MaxConceptLength = 100

// =============================================================================
// USER
// =============================================================================

type User struct {
	ID        UserID
	FirstName string
	LastName  string
	Email     string
	// Password holds the bcrypt hash, never the clear text. It is omitted
	// from every API serialization.
	Password  string
	CreatedAt time.Time
	UpdatedAt time.Time
}
