/*
errors.go - Typed domain errors for the budget engine

PURPOSE:
  Every operation either returns the expected entity or exactly one typed
  error carrying an HTTP-style status code and a human-readable message.
  Storage-layer failures never reach callers directly; the engine converts
  them to a generic 500 after logging the original.

ERROR CATEGORIES:
  404 - referenced entity missing (or company/department mismatch, which is
        deliberately indistinguishable from absence)
  409 - company name collision
  422 - no budget covers the operation date, budget period overlap, or a
        bad dependency on department create
  401 - invalid login
  500 - unexpected storage failure (original message logged, not returned)

USAGE:
  if restErr, ok := budget.AsRestError(err); ok {
      writeError(w, restErr.Code, restErr.Message)
  }

SEE ALSO:
  - validator.go: raises the not-found / no-covering-budget errors
  - engine.go: wraps storage failures into ErrInternal
*/
package budget

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// RestError is a domain error with an HTTP-style status code. It mirrors the
// error contract of the REST surface so handlers can map it directly.
type RestError struct {
	Code    int
	Message string
}

func (e *RestError) Error() string {
	return fmt.Sprintf("%d: %s", e.Code, e.Message)
}

// NewRestError builds a RestError, defaulting the message to the standard
// status text when none is given.
func NewRestError(code int, message string) *RestError {
	if message == "" {
		message = http.StatusText(code)
	}
	return &RestError{Code: code, Message: message}
}

// =============================================================================
// CONSTRUCTORS - One per error class
// =============================================================================

func NewCompanyNotFound(id CompanyID) *RestError {
	return NewRestError(http.StatusNotFound, fmt.Sprintf("Company %d does not exist", id))
}

// NewDepartmentNotFound covers both absence and company mismatch: a
// department belonging to another company is reported exactly like a
// missing one so cross-tenant existence never leaks.
func NewDepartmentNotFound(id DepartmentID) *RestError {
	return NewRestError(http.StatusNotFound, fmt.Sprintf("Department %d does not exist", id))
}

func NewBudgetNotFound(id BudgetID) *RestError {
	return NewRestError(http.StatusNotFound, fmt.Sprintf("Budget %d does not exist", id))
}

func NewTransactionNotFound(id TransactionID) *RestError {
	return NewRestError(http.StatusNotFound, fmt.Sprintf("Budget transaction %d does not exist", id))
}

func NewExpenseNotFound(id ExpenseID) *RestError {
	return NewRestError(http.StatusNotFound, fmt.Sprintf("Expense %d does not exist", id))
}

func NewUserNotFound() *RestError {
	return NewRestError(http.StatusNotFound, "User does not exist")
}

// NewNoBudgetForDate signals that no budget period of the department covers
// the operation date. Unprocessable, not not-found: the department exists,
// the request just cannot be satisfied.
func NewNoBudgetForDate(department DepartmentID, date time.Time) *RestError {
	return NewRestError(http.StatusUnprocessableEntity,
		fmt.Sprintf("Department %d has no budget for date %s", department, date.Format(time.RFC3339)))
}

func NewBudgetOverlap(start, end time.Time) *RestError {
	return NewRestError(http.StatusUnprocessableEntity,
		fmt.Sprintf("Budget overlaps with another existing budget with dates start %s and end %s",
			start.Format(time.RFC3339), end.Format(time.RFC3339)))
}

func NewDuplicateCompanyName(name string) *RestError {
	return NewRestError(http.StatusConflict, fmt.Sprintf("A company already exists with name %s", name))
}

func NewBadDepartmentCompany(id CompanyID) *RestError {
	return NewRestError(http.StatusUnprocessableEntity, fmt.Sprintf("Company %d does not exist", id))
}

func NewBadDepartmentParent(parent DepartmentID, company CompanyID) *RestError {
	return NewRestError(http.StatusUnprocessableEntity,
		fmt.Sprintf("Department %d does not exist in company %d", parent, company))
}

// ErrInvalidLogin is shared by every authentication failure path so timing
// aside, a wrong email and a wrong password are indistinguishable.
var ErrInvalidLogin = NewRestError(http.StatusUnauthorized, "Invalid username or password")

// NewInternal hides the storage-level cause behind a stable message. The
// cause must be logged by the caller before wrapping.
func NewInternal(message string) *RestError {
	return NewRestError(http.StatusInternalServerError, message)
}

// =============================================================================
// HELPERS
// =============================================================================

// AsRestError unwraps err into a *RestError if one is in its chain.
func AsRestError(err error) (*RestError, bool) {
	var restErr *RestError
	if errors.As(err, &restErr) {
		return restErr, true
	}
	return nil, false
}

// IsNotFound reports whether err is a 404-class domain error.
func IsNotFound(err error) bool {
	restErr, ok := AsRestError(err)
	return ok && restErr.Code == http.StatusNotFound
}

// IsConflict reports whether err is a 409-class domain error.
func IsConflict(err error) bool {
	restErr, ok := AsRestError(err)
	return ok && restErr.Code == http.StatusConflict
}

// IsUnprocessable reports whether err is a 422-class domain error
// (no covering budget, period overlap, bad dependency).
func IsUnprocessable(err error) bool {
	restErr, ok := AsRestError(err)
	return ok && restErr.Code == http.StatusUnprocessableEntity
}
