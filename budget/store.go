/*
store.go - Persistence contract consumed by the engine

PURPOSE:
  Defines the storage interface the budget engine is written against. The
  engine never touches SQL; it asks the store for entities and mutates them
  inside WithTx. Implementations must provide transactions with write
  serialization: two concurrent compound writes against the same budget must
  not interleave (the sqlite implementation takes the writer lock at BEGIN).

CONVENTIONS:
  - Get* returns (nil, nil) when the entity is absent; translating absence
    into a typed 404 is the validator's job, not the store's.
  - Create* assigns the generated ID and timestamps onto the passed struct.
  - WithTx hands the callback a Store scoped to one transaction; returning
    an error rolls everything back.

SEE ALSO:
  - store/sqlite: the SQLite implementation
  - validator.go, engine.go: the consumers
*/
package budget

import (
	"context"
	"time"
)

// Store is the persistence contract. A value obtained through WithTx is
// scoped to that transaction; nesting WithTx joins the outer transaction.
type Store interface {
	WithTx(ctx context.Context, fn func(tx Store) error) error

	// Companies
	CreateCompany(ctx context.Context, c *Company) error
	GetCompany(ctx context.Context, id CompanyID) (*Company, error)
	// GetCompanyByName looks up a company by exact name, skipping ignore
	// when non-zero (used by edit-in-place uniqueness checks).
	GetCompanyByName(ctx context.Context, name string, ignore CompanyID) (*Company, error)
	FindCompanies(ctx context.Context, f CompanyFilter) ([]Company, error)
	UpdateCompany(ctx context.Context, c *Company) error
	DeleteCompany(ctx context.Context, id CompanyID) error

	// Departments
	CreateDepartment(ctx context.Context, d *Department) error
	GetDepartment(ctx context.Context, id DepartmentID) (*Department, error)
	FindDepartments(ctx context.Context, f DepartmentFilter) ([]Department, error)
	UpdateDepartment(ctx context.Context, d *Department) error
	DeleteDepartment(ctx context.Context, id DepartmentID) error

	// Budgets
	CreateBudget(ctx context.Context, b *Budget) error
	GetBudget(ctx context.Context, id BudgetID) (*Budget, error)
	// FindCoveringBudget returns the budget whose [start, end] interval
	// contains date (inclusive both ends) for the department, or nil.
	FindCoveringBudget(ctx context.Context, department DepartmentID, date time.Time) (*Budget, error)
	FindBudgets(ctx context.Context, f BudgetFilter) ([]Budget, error)
	UpdateBudget(ctx context.Context, b *Budget) error
	DeleteBudget(ctx context.Context, id BudgetID) error
	DeleteBudgetsByDepartment(ctx context.Context, department DepartmentID) error

	// Budget transactions
	CreateTransaction(ctx context.Context, t *BudgetTransaction) error
	GetTransaction(ctx context.Context, id TransactionID) (*BudgetTransaction, error)
	FindTransactions(ctx context.Context, f TransactionFilter) ([]BudgetTransaction, error)
	UpdateTransaction(ctx context.Context, t *BudgetTransaction) error
	DeleteTransaction(ctx context.Context, id TransactionID) error
	DeleteTransactionsByDepartment(ctx context.Context, department DepartmentID) error

	// Expenses
	CreateExpense(ctx context.Context, e *Expense) error
	GetExpense(ctx context.Context, id ExpenseID) (*Expense, error)
	FindExpenses(ctx context.Context, f ExpenseFilter) ([]Expense, error)
	UpdateExpense(ctx context.Context, e *Expense) error
	DeleteExpense(ctx context.Context, id ExpenseID) error
	DeleteExpensesByDepartment(ctx context.Context, department DepartmentID) error

	// Users
	CreateUser(ctx context.Context, u *User) error
	GetUser(ctx context.Context, id UserID) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	FindUsers(ctx context.Context, f UserFilter) ([]User, error)
}

// =============================================================================
// FILTERS - Zero values mean "not filtered"
// =============================================================================

type CompanyFilter struct {
	NamePrefix string
}

type DepartmentFilter struct {
	Company    CompanyID
	Parent     DepartmentID
	NamePrefix string
}

// BudgetFilter selects budgets by department (joined through the company
// when one is given) and by period-boundary windows. The From*/To* pairs
// are inclusive: FromStart keeps budgets with start >= FromStart, ToStart
// keeps start <= ToStart, and likewise for the end boundary. The overlap
// detector composes three of these windows.
type BudgetFilter struct {
	Department DepartmentID
	Company    CompanyID
	IgnoreID   BudgetID
	FromStart  *time.Time
	ToStart    *time.Time
	FromEnd    *time.Time
	ToEnd      *time.Time
}

type TransactionFilter struct {
	Department DepartmentID
	Company    CompanyID
	From       *time.Time
	To         *time.Time
}

type ExpenseFilter struct {
	Department DepartmentID
	Company    CompanyID
	From       *time.Time
	To         *time.Time
}

type UserFilter struct {
	NamePrefix  string
	EmailPrefix string
}
