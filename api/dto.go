/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

AMOUNTS:
  Amounts cross the wire as JSON numbers. Inside the engine they are exact
  decimals; conversion happens only at this boundary.

DATES:
  Responses carry RFC3339. Requests accept RFC3339 or a bare YYYY-MM-DD,
  which is read as midnight UTC.

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - budget/types.go: The domain model behind them
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/budgeteala/budget-engine/budget"
)

// =============================================================================
// COMPANY / DEPARTMENT
// =============================================================================

type CompanyDTO struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

type CompanyRequest struct {
	Name string `json:"name"`
}

type DepartmentDTO struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Company   int64  `json:"company"`
	Parent    *int64 `json:"parent,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

type DepartmentRequest struct {
	Name   string `json:"name"`
	Parent *int64 `json:"parent"`
}

// =============================================================================
// BUDGET
// =============================================================================

type BudgetDTO struct {
	ID              int64   `json:"id"`
	Department      int64   `json:"department"`
	Start           string  `json:"start"`
	End             string  `json:"end"`
	AckAmount       float64 `json:"ackAmount"`
	AllocatedAmount float64 `json:"allocatedAmount"`
	Expenses        float64 `json:"expenses"`
	CreatedAt       string  `json:"created_at,omitempty"`
	UpdatedAt       string  `json:"updated_at,omitempty"`
}

type BudgetRequest struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// =============================================================================
// BUDGET TRANSACTION / EXPENSE
// =============================================================================

type TransactionDTO struct {
	ID         int64   `json:"id"`
	Department int64   `json:"department"`
	User       int64   `json:"user"`
	Amount     float64 `json:"amount"`
	Status     string  `json:"status"`
	Date       string  `json:"date"`
	CreatedAt  string  `json:"created_at,omitempty"`
	UpdatedAt  string  `json:"updated_at,omitempty"`
}

type TransactionRequest struct {
	Amount float64 `json:"amount"`
	Status string  `json:"status"`
	Date   string  `json:"date"`
}

type ExpenseDTO struct {
	ID         int64   `json:"id"`
	Department int64   `json:"department"`
	User       int64   `json:"user"`
	Amount     float64 `json:"amount"`
	Concept    string  `json:"concept"`
	Date       string  `json:"date"`
	CreatedAt  string  `json:"created_at,omitempty"`
	UpdatedAt  string  `json:"updated_at,omitempty"`
}

type ExpenseRequest struct {
	Amount  float64 `json:"amount"`
	Concept string  `json:"concept"`
	Date    string  `json:"date"`
}

// =============================================================================
// USER / AUTH
// =============================================================================

// UserDTO never carries the password hash.
type UserDTO struct {
	ID        int64  `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

type RegisterUserRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type TokenDTO struct {
	Token string `json:"token"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERTERS
// =============================================================================

func toCompanyDTO(c *budget.Company) CompanyDTO {
	return CompanyDTO{
		ID:        int64(c.ID),
		Name:      c.Name,
		CreatedAt: c.CreatedAt.Format(time.RFC3339),
		UpdatedAt: c.UpdatedAt.Format(time.RFC3339),
	}
}

func toDepartmentDTO(d *budget.Department) DepartmentDTO {
	dto := DepartmentDTO{
		ID:        int64(d.ID),
		Name:      d.Name,
		Company:   int64(d.Company),
		CreatedAt: d.CreatedAt.Format(time.RFC3339),
		UpdatedAt: d.UpdatedAt.Format(time.RFC3339),
	}
	if d.Parent != nil {
		p := int64(*d.Parent)
		dto.Parent = &p
	}
	return dto
}

func toBudgetDTO(b *budget.Budget) BudgetDTO {
	return BudgetDTO{
		ID:              int64(b.ID),
		Department:      int64(b.Department),
		Start:           b.Start.Format(time.RFC3339),
		End:             b.End.Format(time.RFC3339),
		AckAmount:       b.AckAmount.InexactFloat64(),
		AllocatedAmount: b.AllocatedAmount.InexactFloat64(),
		Expenses:        b.Expenses.InexactFloat64(),
		CreatedAt:       b.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       b.UpdatedAt.Format(time.RFC3339),
	}
}

func toTransactionDTO(t *budget.BudgetTransaction) TransactionDTO {
	return TransactionDTO{
		ID:         int64(t.ID),
		Department: int64(t.Department),
		User:       int64(t.User),
		Amount:     t.Amount.InexactFloat64(),
		Status:     string(t.Status),
		Date:       t.Date.Format(time.RFC3339),
		CreatedAt:  t.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  t.UpdatedAt.Format(time.RFC3339),
	}
}

func toExpenseDTO(e *budget.Expense) ExpenseDTO {
	return ExpenseDTO{
		ID:         int64(e.ID),
		Department: int64(e.Department),
		User:       int64(e.User),
		Amount:     e.Amount.InexactFloat64(),
		Concept:    e.Concept,
		Date:       e.Date.Format(time.RFC3339),
		CreatedAt:  e.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  e.UpdatedAt.Format(time.RFC3339),
	}
}

func toUserDTO(u *budget.User) UserDTO {
	return UserDTO{
		ID:        int64(u.ID),
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		CreatedAt: u.CreatedAt.Format(time.RFC3339),
		UpdatedAt: u.UpdatedAt.Format(time.RFC3339),
	}
}

func amountFromFloat(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}
