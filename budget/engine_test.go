package budget_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/budgeteala/budget-engine/budget"
	"github.com/budgeteala/budget-engine/logging"
	"github.com/budgeteala/budget-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestEngine(t *testing.T) (*budget.Engine, budget.Store) {
	store, err := sqlite.New(":memory:", logging.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return budget.NewEngine(store, logging.Nop(), nil), store
}

// seedScope creates a company, a department and a budget covering March
// 2025, all through the engine.
func seedScope(t *testing.T, e *budget.Engine) (*budget.Company, *budget.Department, *budget.Budget) {
	t.Helper()
	ctx := context.Background()

	company, err := e.CreateCompany(ctx, "Acme")
	require.NoError(t, err)
	department, err := e.CreateDepartment(ctx, budget.DepartmentProspect{
		Company: company.ID,
		Name:    "Engineering",
	})
	require.NoError(t, err)
	b, err := e.CreateBudget(ctx, budget.BudgetProspect{
		Company:    company.ID,
		Department: department.ID,
		Start:      day(1),
		End:        day(31),
	})
	require.NoError(t, err)
	return company, department, b
}

func txProspect(c budget.CompanyID, d budget.DepartmentID, amount string, status budget.TransactionStatus, date time.Time) budget.TransactionProspect {
	return budget.TransactionProspect{
		Company:    c,
		Department: d,
		Amount:     dec(amount),
		Status:     status,
		Date:       date,
	}
}

func reloadBudget(t *testing.T, e *budget.Engine, id budget.BudgetID) *budget.Budget {
	t.Helper()
	b, err := e.GetBudget(context.Background(), id)
	require.NoError(t, err)
	return b
}

// =============================================================================
// BUDGET TRANSACTION WRITES
// =============================================================================

func TestCreateTransaction_AppliesToCoveringBudget(t *testing.T) {
	// GIVEN: a department with a March budget
	// WHEN: creating an allocated transaction dated inside March
	// THEN: the record exists and the allocated accumulator carries its amount

	e, _ := newTestEngine(t)
	ctx := context.Background()
	company, department, b := seedScope(t, e)

	created, err := e.CreateTransaction(ctx, 7,
		txProspect(company.ID, department.ID, "100", budget.StatusAllocated, day(10)))
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, budget.UserID(7), created.User)

	after := reloadBudget(t, e, b.ID)
	assert.True(t, after.AllocatedAmount.Equal(dec("100")), "allocatedAmount: %s", after.AllocatedAmount)
	assert.True(t, after.AckAmount.IsZero())
	assert.True(t, after.Expenses.IsZero())
}

func TestCreateTransaction_Acknowledged(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	company, department, b := seedScope(t, e)

	_, err := e.CreateTransaction(ctx, 1,
		txProspect(company.ID, department.ID, "33.33", budget.StatusAcknowledged, day(2)))
	require.NoError(t, err)

	after := reloadBudget(t, e, b.ID)
	assert.True(t, after.AckAmount.Equal(dec("33.33")))
	assert.True(t, after.AllocatedAmount.IsZero())
}

func TestCreateTransaction_Cancelled_NoAccumulatorImpact(t *testing.T) {
	// GIVEN: a March budget
	// WHEN: creating a cancelled transaction
	// THEN: the row exists but every accumulator stays zero

	e, store := newTestEngine(t)
	ctx := context.Background()
	company, department, b := seedScope(t, e)

	created, err := e.CreateTransaction(ctx, 1,
		txProspect(company.ID, department.ID, "500", budget.StatusCancelled, day(10)))
	require.NoError(t, err)

	stored, err := store.GetTransaction(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)

	after := reloadBudget(t, e, b.ID)
	assert.True(t, after.AckAmount.IsZero())
	assert.True(t, after.AllocatedAmount.IsZero())
	assert.True(t, after.Expenses.IsZero())
}

func TestCreateTransaction_NoCoveringBudget_NothingChanges(t *testing.T) {
	// GIVEN: a March budget
	// WHEN: creating a transaction dated in June
	// THEN: a 422 is returned, no row is inserted and the budget is untouched

	e, store := newTestEngine(t)
	ctx := context.Background()
	company, department, b := seedScope(t, e)

	june := time.Date(2025, time.June, 10, 0, 0, 0, 0, time.UTC)
	_, err := e.CreateTransaction(ctx, 1,
		txProspect(company.ID, department.ID, "100", budget.StatusAllocated, june))

	require.Error(t, err)
	assert.True(t, budget.IsUnprocessable(err))
	restErr, ok := budget.AsRestError(err)
	require.True(t, ok)
	assert.Contains(t, restErr.Message, "has no budget for date")

	rows, err := store.FindTransactions(ctx, budget.TransactionFilter{Department: department.ID})
	require.NoError(t, err)
	assert.Empty(t, rows, "failed write must not leave a record behind")

	after := reloadBudget(t, e, b.ID)
	assert.True(t, after.AllocatedAmount.IsZero())
}

func TestCreateTransaction_UnknownCompany(t *testing.T) {
	e, _ := newTestEngine(t)
	_, department, _ := seedScope(t, e)

	_, err := e.CreateTransaction(context.Background(), 1,
		txProspect(99, department.ID, "10", budget.StatusAllocated, day(10)))

	require.Error(t, err)
	assert.True(t, budget.IsNotFound(err))
	restErr, _ := budget.AsRestError(err)
	assert.Equal(t, "Company 99 does not exist", restErr.Message)
}

func TestCreateTransaction_DepartmentOfOtherCompany(t *testing.T) {
	// A department reached through the wrong company reads as missing.

	e, _ := newTestEngine(t)
	ctx := context.Background()
	_, department, _ := seedScope(t, e)

	other, err := e.CreateCompany(ctx, "Globex")
	require.NoError(t, err)

	_, err = e.CreateTransaction(ctx, 1,
		txProspect(other.ID, department.ID, "10", budget.StatusAllocated, day(10)))

	require.Error(t, err)
	assert.True(t, budget.IsNotFound(err))
}

func TestEditTransaction_StatusChange_MovesBetweenAccumulators(t *testing.T) {
	// GIVEN: an allocated transaction of 100
	// WHEN: editing it to acknowledged 40
	// THEN: allocated returns to zero and acknowledged carries 40

	e, _ := newTestEngine(t)
	ctx := context.Background()
	company, department, b := seedScope(t, e)

	created, err := e.CreateTransaction(ctx, 1,
		txProspect(company.ID, department.ID, "100", budget.StatusAllocated, day(10)))
	require.NoError(t, err)

	edit := txProspect(company.ID, department.ID, "40", budget.StatusAcknowledged, day(12))
	edit.ID = created.ID
	edited, err := e.EditTransaction(ctx, edit)
	require.NoError(t, err)
	assert.Equal(t, budget.StatusAcknowledged, edited.Status)
	assert.True(t, edited.Amount.Equal(dec("40")))

	after := reloadBudget(t, e, b.ID)
	assert.True(t, after.AllocatedAmount.IsZero(), "old delta rolled back")
	assert.True(t, after.AckAmount.Equal(dec("40")), "new delta applied")
}

func TestEditTransaction_MovesAcrossBudgets(t *testing.T) {
	// GIVEN: March and May budgets and a March transaction
	// WHEN: editing the transaction's date into May
	// THEN: March is rolled back and May carries the amount

	e, _ := newTestEngine(t)
	ctx := context.Background()
	company, department, march := seedScope(t, e)

	may, err := e.CreateBudget(ctx, budget.BudgetProspect{
		Company:    company.ID,
		Department: department.ID,
		Start:      time.Date(2025, time.May, 1, 0, 0, 0, 0, time.UTC),
		End:        time.Date(2025, time.May, 31, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	created, err := e.CreateTransaction(ctx, 1,
		txProspect(company.ID, department.ID, "100", budget.StatusAllocated, day(10)))
	require.NoError(t, err)

	edit := txProspect(company.ID, department.ID, "100", budget.StatusAllocated,
		time.Date(2025, time.May, 10, 0, 0, 0, 0, time.UTC))
	edit.ID = created.ID
	_, err = e.EditTransaction(ctx, edit)
	require.NoError(t, err)

	assert.True(t, reloadBudget(t, e, march.ID).AllocatedAmount.IsZero())
	assert.True(t, reloadBudget(t, e, may.ID).AllocatedAmount.Equal(dec("100")))
}

func TestEditTransaction_NewDateOutsideEveryBudget_NothingChanges(t *testing.T) {
	e, store := newTestEngine(t)
	ctx := context.Background()
	company, department, b := seedScope(t, e)

	created, err := e.CreateTransaction(ctx, 1,
		txProspect(company.ID, department.ID, "100", budget.StatusAllocated, day(10)))
	require.NoError(t, err)

	edit := txProspect(company.ID, department.ID, "100", budget.StatusAllocated,
		time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC))
	edit.ID = created.ID
	_, err = e.EditTransaction(ctx, edit)

	require.Error(t, err)
	assert.True(t, budget.IsUnprocessable(err))

	// The whole edit rolled back: record and accumulator keep old values.
	stored, err := store.GetTransaction(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, stored.Date.Equal(day(10)))
	assert.True(t, reloadBudget(t, e, b.ID).AllocatedAmount.Equal(dec("100")))
}

func TestRemoveTransaction_RollsBackAndDeletes(t *testing.T) {
	e, store := newTestEngine(t)
	ctx := context.Background()
	company, department, b := seedScope(t, e)

	created, err := e.CreateTransaction(ctx, 1,
		txProspect(company.ID, department.ID, "100", budget.StatusAcknowledged, day(10)))
	require.NoError(t, err)

	removed, err := e.RemoveTransaction(ctx, company.ID, department.ID, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, removed.ID)

	stored, err := store.GetTransaction(ctx, created.ID)
	require.NoError(t, err)
	assert.Nil(t, stored)
	assert.True(t, reloadBudget(t, e, b.ID).AckAmount.IsZero())
}

func TestRemoveTransaction_NotFound(t *testing.T) {
	e, _ := newTestEngine(t)
	company, department, _ := seedScope(t, e)

	_, err := e.RemoveTransaction(context.Background(), company.ID, department.ID, 4242)
	require.Error(t, err)
	assert.True(t, budget.IsNotFound(err))
}

func TestRemoveTransaction_WrongDepartment(t *testing.T) {
	// GIVEN: a transaction owned by one department and a sibling department
	// WHEN: removing it through the sibling
	// THEN: not found; the record and its accumulator are untouched

	e, store := newTestEngine(t)
	ctx := context.Background()
	company, department, b := seedScope(t, e)

	sibling, err := e.CreateDepartment(ctx, budget.DepartmentProspect{
		Company: company.ID,
		Name:    "Marketing",
	})
	require.NoError(t, err)

	created, err := e.CreateTransaction(ctx, 1,
		txProspect(company.ID, department.ID, "100", budget.StatusAllocated, day(10)))
	require.NoError(t, err)

	_, err = e.RemoveTransaction(ctx, company.ID, sibling.ID, created.ID)
	require.Error(t, err)
	assert.True(t, budget.IsNotFound(err))

	stored, err := store.GetTransaction(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.True(t, reloadBudget(t, e, b.ID).AllocatedAmount.Equal(dec("100")))
}

// =============================================================================
// EXPENSE WRITES
// =============================================================================

func TestExpense_CreateEditRemove(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	company, department, b := seedScope(t, e)

	created, err := e.CreateExpense(ctx, 3, budget.ExpenseProspect{
		Company:    company.ID,
		Department: department.ID,
		Amount:     dec("25.50"),
		Concept:    "team lunch",
		Date:       day(5),
	})
	require.NoError(t, err)
	assert.True(t, reloadBudget(t, e, b.ID).Expenses.Equal(dec("25.50")))

	_, err = e.EditExpense(ctx, budget.ExpenseProspect{
		ID:         created.ID,
		Company:    company.ID,
		Department: department.ID,
		Amount:     dec("30"),
		Concept:    "team lunch, corrected",
		Date:       day(5),
	})
	require.NoError(t, err)
	assert.True(t, reloadBudget(t, e, b.ID).Expenses.Equal(dec("30")))

	_, err = e.RemoveExpense(ctx, company.ID, department.ID, created.ID)
	require.NoError(t, err)
	assert.True(t, reloadBudget(t, e, b.ID).Expenses.IsZero())
}

func TestCreateExpense_NoCoveringBudget(t *testing.T) {
	e, store := newTestEngine(t)
	ctx := context.Background()
	company, department, _ := seedScope(t, e)

	_, err := e.CreateExpense(ctx, 1, budget.ExpenseProspect{
		Company:    company.ID,
		Department: department.ID,
		Amount:     dec("10"),
		Date:       time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC),
	})
	require.Error(t, err)
	assert.True(t, budget.IsUnprocessable(err))

	rows, err := store.FindExpenses(ctx, budget.ExpenseFilter{Department: department.ID})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

// =============================================================================
// BUDGET PERIODS
// =============================================================================

func TestCreateBudget_StartsZeroed(t *testing.T) {
	e, _ := newTestEngine(t)
	_, _, b := seedScope(t, e)

	assert.True(t, b.AckAmount.IsZero())
	assert.True(t, b.AllocatedAmount.IsZero())
	assert.True(t, b.Expenses.IsZero())
}

func TestCreateBudget_OverlapRejected(t *testing.T) {
	// GIVEN: a March budget
	// WHEN: creating a second budget intersecting March
	// THEN: a 422 names the existing budget's period

	e, _ := newTestEngine(t)
	ctx := context.Background()
	company, department, _ := seedScope(t, e)

	_, err := e.CreateBudget(ctx, budget.BudgetProspect{
		Company:    company.ID,
		Department: department.ID,
		Start:      day(15),
		End:        time.Date(2025, time.April, 15, 0, 0, 0, 0, time.UTC),
	})
	require.Error(t, err)
	assert.True(t, budget.IsUnprocessable(err))
	restErr, _ := budget.AsRestError(err)
	assert.Contains(t, restErr.Message, "Budget overlaps with another existing budget with dates start")
}

func TestCreateBudget_TouchingBoundaryRejected(t *testing.T) {
	// Periods are inclusive on both ends, so sharing the boundary instant
	// counts as overlap.

	e, _ := newTestEngine(t)
	company, department, _ := seedScope(t, e)

	_, err := e.CreateBudget(context.Background(), budget.BudgetProspect{
		Company:    company.ID,
		Department: department.ID,
		Start:      day(31),
		End:        time.Date(2025, time.April, 30, 0, 0, 0, 0, time.UTC),
	})
	require.Error(t, err)
	assert.True(t, budget.IsUnprocessable(err))
}

func TestCreateBudget_DisjointPeriodsCoexist(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	company, department, _ := seedScope(t, e)

	_, err := e.CreateBudget(ctx, budget.BudgetProspect{
		Company:    company.ID,
		Department: department.ID,
		Start:      time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC),
		End:        time.Date(2025, time.April, 30, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	budgets, err := e.ListBudgets(ctx, budget.BudgetFilter{Department: department.ID})
	require.NoError(t, err)
	assert.Len(t, budgets, 2)
}

func TestCreateBudget_OtherDepartmentUnaffected(t *testing.T) {
	// Overlap is a per-department rule; sibling departments may share dates.

	e, _ := newTestEngine(t)
	ctx := context.Background()
	company, _, _ := seedScope(t, e)

	sibling, err := e.CreateDepartment(ctx, budget.DepartmentProspect{
		Company: company.ID,
		Name:    "Marketing",
	})
	require.NoError(t, err)

	_, err = e.CreateBudget(ctx, budget.BudgetProspect{
		Company:    company.ID,
		Department: sibling.ID,
		Start:      day(1),
		End:        day(31),
	})
	require.NoError(t, err)
}

func TestEditBudget_MovesPeriod(t *testing.T) {
	// The budget's own row is excluded from the overlap check, so shrinking
	// or shifting within its old footprint works.

	e, _ := newTestEngine(t)
	ctx := context.Background()
	company, department, b := seedScope(t, e)

	edited, err := e.EditBudget(ctx, budget.BudgetProspect{
		ID:         b.ID,
		Company:    company.ID,
		Department: department.ID,
		Start:      day(5),
		End:        day(25),
	})
	require.NoError(t, err)
	assert.True(t, edited.Start.Equal(day(5)))
	assert.True(t, edited.End.Equal(day(25)))
}

func TestEditBudget_CannotCollideWithSibling(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	company, department, _ := seedScope(t, e)

	april, err := e.CreateBudget(ctx, budget.BudgetProspect{
		Company:    company.ID,
		Department: department.ID,
		Start:      time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC),
		End:        time.Date(2025, time.April, 30, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	_, err = e.EditBudget(ctx, budget.BudgetProspect{
		ID:         april.ID,
		Company:    company.ID,
		Department: department.ID,
		Start:      day(20),
		End:        time.Date(2025, time.April, 30, 0, 0, 0, 0, time.UTC),
	})
	require.Error(t, err)
	assert.True(t, budget.IsUnprocessable(err))
}

func TestEditBudget_KeepsAccumulators(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	company, department, b := seedScope(t, e)

	_, err := e.CreateTransaction(ctx, 1,
		txProspect(company.ID, department.ID, "100", budget.StatusAllocated, day(10)))
	require.NoError(t, err)

	_, err = e.EditBudget(ctx, budget.BudgetProspect{
		ID:         b.ID,
		Company:    company.ID,
		Department: department.ID,
		Start:      day(2),
		End:        day(30),
	})
	require.NoError(t, err)

	assert.True(t, reloadBudget(t, e, b.ID).AllocatedAmount.Equal(dec("100")),
		"moving the period never rewrites accumulators")
}

// =============================================================================
// COMPANIES
// =============================================================================

func TestCompany_DuplicateNameRejected(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := e.CreateCompany(ctx, "Acme")
	require.NoError(t, err)

	_, err = e.CreateCompany(ctx, "Acme")
	require.Error(t, err)
	assert.True(t, budget.IsConflict(err))
	restErr, _ := budget.AsRestError(err)
	assert.Equal(t, "A company already exists with name Acme", restErr.Message)
}

func TestEditCompany_RenameRules(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	acme, err := e.CreateCompany(ctx, "Acme")
	require.NoError(t, err)
	_, err = e.CreateCompany(ctx, "Globex")
	require.NoError(t, err)

	// Re-saving the current name is not a collision with itself.
	_, err = e.EditCompany(ctx, acme.ID, "Acme")
	require.NoError(t, err)

	_, err = e.EditCompany(ctx, acme.ID, "Globex")
	require.Error(t, err)
	assert.True(t, budget.IsConflict(err))
}

func TestRemoveCompany_CascadesEverythingOwned(t *testing.T) {
	// GIVEN: a company with a department, a budget, a transaction and an
	// expense
	// WHEN: removing the company
	// THEN: every owned row disappears in the same transaction

	e, store := newTestEngine(t)
	ctx := context.Background()
	company, department, _ := seedScope(t, e)

	_, err := e.CreateTransaction(ctx, 1,
		txProspect(company.ID, department.ID, "100", budget.StatusAllocated, day(10)))
	require.NoError(t, err)
	_, err = e.CreateExpense(ctx, 1, budget.ExpenseProspect{
		Company:    company.ID,
		Department: department.ID,
		Amount:     dec("10"),
		Date:       day(10),
	})
	require.NoError(t, err)

	_, err = e.RemoveCompany(ctx, company.ID)
	require.NoError(t, err)

	_, err = e.GetCompany(ctx, company.ID)
	assert.True(t, budget.IsNotFound(err))

	departments, err := store.FindDepartments(ctx, budget.DepartmentFilter{Company: company.ID})
	require.NoError(t, err)
	assert.Empty(t, departments)

	budgets, err := store.FindBudgets(ctx, budget.BudgetFilter{Department: department.ID})
	require.NoError(t, err)
	assert.Empty(t, budgets)

	transactions, err := store.FindTransactions(ctx, budget.TransactionFilter{Department: department.ID})
	require.NoError(t, err)
	assert.Empty(t, transactions)

	expenses, err := store.FindExpenses(ctx, budget.ExpenseFilter{Department: department.ID})
	require.NoError(t, err)
	assert.Empty(t, expenses)
}

// =============================================================================
// DEPARTMENTS
// =============================================================================

func TestCreateDepartment_Validations(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	company, department, _ := seedScope(t, e)

	// Unknown company is a 422: the prospect is bad, not the URL.
	_, err := e.CreateDepartment(ctx, budget.DepartmentProspect{Company: 99, Name: "Ghost"})
	require.Error(t, err)
	assert.True(t, budget.IsUnprocessable(err))

	// Parent from another company is rejected the same way.
	other, err := e.CreateCompany(ctx, "Globex")
	require.NoError(t, err)
	parent := department.ID
	_, err = e.CreateDepartment(ctx, budget.DepartmentProspect{
		Company: other.ID,
		Name:    "Cross",
		Parent:  &parent,
	})
	require.Error(t, err)
	assert.True(t, budget.IsUnprocessable(err))

	// Same-company parent is fine.
	child, err := e.CreateDepartment(ctx, budget.DepartmentProspect{
		Company: company.ID,
		Name:    "Platform",
		Parent:  &parent,
	})
	require.NoError(t, err)
	require.NotNil(t, child.Parent)
	assert.Equal(t, department.ID, *child.Parent)
}

func TestRemoveDepartment_CascadesOwnedRecordsOnly(t *testing.T) {
	e, store := newTestEngine(t)
	ctx := context.Background()
	company, department, _ := seedScope(t, e)

	sibling, err := e.CreateDepartment(ctx, budget.DepartmentProspect{
		Company: company.ID,
		Name:    "Marketing",
	})
	require.NoError(t, err)
	_, err = e.CreateBudget(ctx, budget.BudgetProspect{
		Company:    company.ID,
		Department: sibling.ID,
		Start:      day(1),
		End:        day(31),
	})
	require.NoError(t, err)

	_, err = e.CreateTransaction(ctx, 1,
		txProspect(company.ID, department.ID, "100", budget.StatusAllocated, day(10)))
	require.NoError(t, err)

	_, err = e.RemoveDepartment(ctx, department.ID)
	require.NoError(t, err)

	budgets, err := store.FindBudgets(ctx, budget.BudgetFilter{Department: department.ID})
	require.NoError(t, err)
	assert.Empty(t, budgets)
	transactions, err := store.FindTransactions(ctx, budget.TransactionFilter{Department: department.ID})
	require.NoError(t, err)
	assert.Empty(t, transactions)

	// The sibling and its budget survive.
	siblingBudgets, err := store.FindBudgets(ctx, budget.BudgetFilter{Department: sibling.ID})
	require.NoError(t, err)
	assert.Len(t, siblingBudgets, 1)
}

func TestRemoveExpense_WrongDepartment(t *testing.T) {
	e, store := newTestEngine(t)
	ctx := context.Background()
	company, department, b := seedScope(t, e)

	sibling, err := e.CreateDepartment(ctx, budget.DepartmentProspect{
		Company: company.ID,
		Name:    "Marketing",
	})
	require.NoError(t, err)

	created, err := e.CreateExpense(ctx, 1, budget.ExpenseProspect{
		Company:    company.ID,
		Department: department.ID,
		Amount:     dec("25.50"),
		Concept:    "team lunch",
		Date:       day(5),
	})
	require.NoError(t, err)

	_, err = e.RemoveExpense(ctx, company.ID, sibling.ID, created.ID)
	require.Error(t, err)
	assert.True(t, budget.IsNotFound(err))

	stored, err := store.GetExpense(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.True(t, reloadBudget(t, e, b.ID).Expenses.Equal(dec("25.50")))
}

// =============================================================================
// CONCURRENT WRITES
// =============================================================================

func TestCreateTransaction_ConcurrentWritesAccumulate(t *testing.T) {
	// GIVEN: one March budget
	// WHEN: twenty goroutines each create an allocated transaction of 1
	// THEN: every delta lands; the accumulator holds the full sum

	e, _ := newTestEngine(t)
	ctx := context.Background()
	company, department, b := seedScope(t, e)

	const writers = 20
	var wg sync.WaitGroup
	errs := make([]error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = e.CreateTransaction(ctx, 1,
				txProspect(company.ID, department.ID, "1", budget.StatusAllocated, day(10)))
		}(i)
	}
	wg.Wait()

	for i := range errs {
		require.NoError(t, errs[i])
	}
	after := reloadBudget(t, e, b.ID)
	assert.True(t, after.AllocatedAmount.Equal(dec("20")), "allocatedAmount: %s", after.AllocatedAmount)
}

func TestCreateBudget_ConcurrentDuplicatePeriods(t *testing.T) {
	// GIVEN: a department with no July budget
	// WHEN: four goroutines race to create the same July period
	// THEN: exactly one insert wins and the losers report the overlap

	e, store := newTestEngine(t)
	ctx := context.Background()
	company, department, _ := seedScope(t, e)

	start := time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, time.July, 31, 0, 0, 0, 0, time.UTC)

	const writers = 4
	var wg sync.WaitGroup
	errs := make([]error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = e.CreateBudget(ctx, budget.BudgetProspect{
				Company:    company.ID,
				Department: department.ID,
				Start:      start,
				End:        end,
			})
		}(i)
	}
	wg.Wait()

	var wins int
	for i := range errs {
		if errs[i] == nil {
			wins++
			continue
		}
		assert.True(t, budget.IsUnprocessable(errs[i]), "unexpected error: %v", errs[i])
	}
	assert.Equal(t, 1, wins)

	julyBudgets, err := store.FindBudgets(ctx, budget.BudgetFilter{
		Department: department.ID,
		FromStart:  &start,
		ToEnd:      &end,
	})
	require.NoError(t, err)
	assert.Len(t, julyBudgets, 1)
}

func TestCreateCompany_ConcurrentDuplicateNames(t *testing.T) {
	e, store := newTestEngine(t)
	ctx := context.Background()

	const writers = 4
	var wg sync.WaitGroup
	errs := make([]error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = e.CreateCompany(ctx, "Zenith")
		}(i)
	}
	wg.Wait()

	var wins int
	for i := range errs {
		if errs[i] == nil {
			wins++
			continue
		}
		assert.True(t, budget.IsConflict(errs[i]), "unexpected error: %v", errs[i])
	}
	assert.Equal(t, 1, wins)

	companies, err := store.FindCompanies(ctx, budget.CompanyFilter{NamePrefix: "Zenith"})
	require.NoError(t, err)
	assert.Len(t, companies, 1)
}
