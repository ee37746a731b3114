/*
engine.go - Transactional write orchestrator

PURPOSE:
  Every mutation of the system goes through the Engine. For budget
  transactions and expenses a write is compound: the record mutation and the
  budget accumulator delta happen in one storage transaction, so either both
  commit or neither does. The engine also owns budget period management
  (overlap detection on create/edit) and the explicit cascade routines for
  company and department removal.

WRITE STATE MACHINE (terminal states Committed / RolledBack):
  Create:  validate dependencies -> insert record -> apply delta -> commit
  Edit:    validate dependencies for the NEW values -> rollback delta
           against the ORIGINAL budget with the ORIGINAL record -> overwrite
           record -> apply delta to the NEW budget -> commit
  Remove:  re-locate the covering budget from the STORED record date ->
           rollback delta -> delete record -> commit

FAILURE SEMANTICS:
  Typed RestErrors raised during validation propagate unchanged after the
  transaction rolls back. Any other failure is logged with its original
  message and surfaced as a generic 500 RestError; storage error text never
  reaches callers.

ORDERING:
  Within an edit that stays on one budget, rollback-old strictly precedes
  apply-new, so the persisted value equals original - oldDelta + newDelta.

SEE ALSO:
  - validator.go: dependency resolution
  - mutator.go: the delta arithmetic
  - events.go: post-commit delta publishing
*/
package budget

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/budgeteala/budget-engine/logging"
)

// Engine orchestrates all writes against the store. Safe for concurrent
// use; correctness under concurrency comes from the store's transactional
// write serialization, not from in-process locking.
type Engine struct {
	store Store
	log   *logging.Logger
	pub   Publisher
}

// NewEngine wires an engine. A nil logger discards output and a nil
// publisher drops delta events.
func NewEngine(store Store, log *logging.Logger, pub Publisher) *Engine {
	if log == nil {
		log = logging.Nop()
	}
	if pub == nil {
		pub = NopPublisher{}
	}
	return &Engine{store: store, log: log, pub: pub}
}

// run executes fn in one storage transaction and normalizes failures:
// domain errors pass through untouched, anything else is logged and
// replaced by a generic internal error whose message names the action.
func (e *Engine) run(ctx context.Context, action string, fn func(tx Store) error) error {
	err := e.store.WithTx(ctx, fn)
	if err == nil {
		return nil
	}
	if restErr, ok := AsRestError(err); ok {
		e.log.Debug("budget operation rejected", "action", action, "error", restErr.Message)
		return restErr
	}
	e.log.Error("budget operation failed", "action", action, "error", err)
	return NewInternal("Error " + action)
}

func (e *Engine) publish(ctx context.Context, deltas []BudgetDelta) {
	for _, d := range deltas {
		if err := e.pub.PublishBudgetDelta(ctx, d); err != nil {
			e.log.Error("could not publish budget delta", "budget", d.Budget, "error", err)
		}
	}
}

func appendDelta(deltas []BudgetDelta, b *Budget, field string, amount decimal.Decimal, kind string, recordID int64, op string) []BudgetDelta {
	if field == "" {
		return deltas
	}
	return append(deltas, BudgetDelta{
		Budget:     b.ID,
		Department: b.Department,
		Field:      field,
		Delta:      amount,
		RecordKind: kind,
		RecordID:   recordID,
		Operation:  op,
	})
}

// =============================================================================
// BUDGET TRANSACTIONS
// =============================================================================

// TransactionProspect carries the caller-supplied values for a budget
// transaction write. Company is optional; when given the department must
// belong to it.
type TransactionProspect struct {
	ID         TransactionID
	Company    CompanyID
	Department DepartmentID
	Amount     decimal.Decimal
	Status     TransactionStatus
	Date       time.Time
}

// GetTransaction returns the transaction or a 404 RestError.
func (e *Engine) GetTransaction(ctx context.Context, id TransactionID) (*BudgetTransaction, error) {
	t, err := e.store.GetTransaction(ctx, id)
	if err != nil {
		return nil, e.internal(err, "querying budget transaction")
	}
	if t == nil {
		return nil, NewTransactionNotFound(id)
	}
	return t, nil
}

// ListTransactions returns transactions matching the filter, validating the
// company/department pair first when a department is given.
func (e *Engine) ListTransactions(ctx context.Context, f TransactionFilter) ([]BudgetTransaction, error) {
	if f.Department != 0 {
		if _, _, err := validateCompanyDepartment(ctx, e.store, f.Company, f.Department); err != nil {
			return nil, e.domainOrInternal(err, "querying budget transactions")
		}
	}
	ts, err := e.store.FindTransactions(ctx, f)
	if err != nil {
		return nil, e.internal(err, "querying budget transactions")
	}
	return ts, nil
}

// CreateTransaction inserts the transaction and applies its delta to the
// covering budget in one transaction. user is the acting identity.
func (e *Engine) CreateTransaction(ctx context.Context, user UserID, p TransactionProspect) (*BudgetTransaction, error) {
	var created *BudgetTransaction
	var deltas []BudgetDelta
	err := e.run(ctx, "creating budget transaction", func(tx Store) error {
		deps, err := validateBudgetDependencies(ctx, tx, p.Company, p.Department, p.Date)
		if err != nil {
			return err
		}
		record := &BudgetTransaction{
			Department: p.Department,
			User:       user,
			Amount:     p.Amount,
			Status:     p.Status,
			Date:       p.Date,
		}
		if err := tx.CreateTransaction(ctx, record); err != nil {
			return err
		}
		ApplyTransaction(deps.Budget, record)
		if err := tx.UpdateBudget(ctx, deps.Budget); err != nil {
			return err
		}
		created = record
		deltas = appendDelta(nil, deps.Budget, transactionField(record.Status), record.Amount,
			KindTransaction, int64(record.ID), "create")
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.publish(ctx, deltas)
	return created, nil
}

// EditTransaction rolls the original record's delta out of its original
// covering budget, overwrites the record with the prospect values, and
// applies the new delta to the budget covering the new date. The two
// budgets may differ; when the new date falls outside every budget the
// whole edit fails and nothing changes.
func (e *Engine) EditTransaction(ctx context.Context, p TransactionProspect) (*BudgetTransaction, error) {
	var edited *BudgetTransaction
	var deltas []BudgetDelta
	err := e.run(ctx, "editing budget transaction", func(tx Store) error {
		original, err := tx.GetTransaction(ctx, p.ID)
		if err != nil {
			return err
		}
		if original == nil {
			return NewTransactionNotFound(p.ID)
		}
		deps, err := validateBudgetDependencies(ctx, tx, p.Company, p.Department, p.Date)
		if err != nil {
			return err
		}
		newBudget := deps.Budget
		oldBudget, err := resolveOriginalBudget(ctx, tx, newBudget, original.Department, original.Date)
		if err != nil {
			return err
		}
		if oldBudget != nil {
			RollbackTransaction(oldBudget, original)
			deltas = appendDelta(deltas, oldBudget, transactionField(original.Status),
				original.Amount.Neg(), KindTransaction, int64(original.ID), "edit")
		}
		original.Department = p.Department
		original.Amount = p.Amount
		original.Status = p.Status
		original.Date = p.Date
		if err := tx.UpdateTransaction(ctx, original); err != nil {
			return err
		}
		ApplyTransaction(newBudget, original)
		deltas = appendDelta(deltas, newBudget, transactionField(original.Status),
			original.Amount, KindTransaction, int64(original.ID), "edit")
		if oldBudget != nil && oldBudget.ID != newBudget.ID {
			if err := tx.UpdateBudget(ctx, oldBudget); err != nil {
				return err
			}
		}
		if err := tx.UpdateBudget(ctx, newBudget); err != nil {
			return err
		}
		edited = original
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.publish(ctx, deltas)
	return edited, nil
}

// RemoveTransaction re-locates the covering budget from the record's stored
// date (never a caller-supplied one), rolls the delta back and deletes the
// record.
func (e *Engine) RemoveTransaction(ctx context.Context, company CompanyID, department DepartmentID, id TransactionID) (*BudgetTransaction, error) {
	var removed *BudgetTransaction
	var deltas []BudgetDelta
	err := e.run(ctx, "removing budget transaction", func(tx Store) error {
		original, err := tx.GetTransaction(ctx, id)
		if err != nil {
			return err
		}
		if original == nil || original.Department != department {
			return NewTransactionNotFound(id)
		}
		deps, err := validateBudgetDependencies(ctx, tx, company, original.Department, original.Date)
		if err != nil {
			return err
		}
		RollbackTransaction(deps.Budget, original)
		if err := tx.DeleteTransaction(ctx, original.ID); err != nil {
			return err
		}
		if err := tx.UpdateBudget(ctx, deps.Budget); err != nil {
			return err
		}
		removed = original
		deltas = appendDelta(nil, deps.Budget, transactionField(original.Status),
			original.Amount.Neg(), KindTransaction, int64(original.ID), "remove")
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.publish(ctx, deltas)
	return removed, nil
}

// resolveOriginalBudget returns the budget the original record was applied
// to. When the edited record stays in the same department and period this
// is the already-resolved new budget, so the rollback and the apply hit the
// same in-memory row. A nil result means the original period no longer
// exists (its budget was removed along with its accumulators) and there is
// nothing to roll back.
func resolveOriginalBudget(ctx context.Context, tx Store, newBudget *Budget, department DepartmentID, date time.Time) (*Budget, error) {
	if newBudget.Department == department && newBudget.Covers(date) {
		return newBudget, nil
	}
	return tx.FindCoveringBudget(ctx, department, date)
}

// =============================================================================
// EXPENSES
// =============================================================================

type ExpenseProspect struct {
	ID         ExpenseID
	Company    CompanyID
	Department DepartmentID
	Amount     decimal.Decimal
	Concept    string
	Date       time.Time
}

func (e *Engine) GetExpense(ctx context.Context, id ExpenseID) (*Expense, error) {
	exp, err := e.store.GetExpense(ctx, id)
	if err != nil {
		return nil, e.internal(err, "querying expense")
	}
	if exp == nil {
		return nil, NewExpenseNotFound(id)
	}
	return exp, nil
}

func (e *Engine) ListExpenses(ctx context.Context, f ExpenseFilter) ([]Expense, error) {
	if f.Department != 0 {
		if _, _, err := validateCompanyDepartment(ctx, e.store, f.Company, f.Department); err != nil {
			return nil, e.domainOrInternal(err, "querying expenses")
		}
	}
	exps, err := e.store.FindExpenses(ctx, f)
	if err != nil {
		return nil, e.internal(err, "querying expenses")
	}
	return exps, nil
}

func (e *Engine) CreateExpense(ctx context.Context, user UserID, p ExpenseProspect) (*Expense, error) {
	var created *Expense
	var deltas []BudgetDelta
	err := e.run(ctx, "creating expense", func(tx Store) error {
		deps, err := validateBudgetDependencies(ctx, tx, p.Company, p.Department, p.Date)
		if err != nil {
			return err
		}
		record := &Expense{
			Department: p.Department,
			User:       user,
			Amount:     p.Amount,
			Concept:    p.Concept,
			Date:       p.Date,
		}
		if err := tx.CreateExpense(ctx, record); err != nil {
			return err
		}
		ApplyExpense(deps.Budget, record)
		if err := tx.UpdateBudget(ctx, deps.Budget); err != nil {
			return err
		}
		created = record
		deltas = appendDelta(nil, deps.Budget, FieldExpenses, record.Amount,
			KindExpense, int64(record.ID), "create")
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.publish(ctx, deltas)
	return created, nil
}

func (e *Engine) EditExpense(ctx context.Context, p ExpenseProspect) (*Expense, error) {
	var edited *Expense
	var deltas []BudgetDelta
	err := e.run(ctx, "editing expense", func(tx Store) error {
		original, err := tx.GetExpense(ctx, p.ID)
		if err != nil {
			return err
		}
		if original == nil {
			return NewExpenseNotFound(p.ID)
		}
		deps, err := validateBudgetDependencies(ctx, tx, p.Company, p.Department, p.Date)
		if err != nil {
			return err
		}
		newBudget := deps.Budget
		oldBudget, err := resolveOriginalBudget(ctx, tx, newBudget, original.Department, original.Date)
		if err != nil {
			return err
		}
		if oldBudget != nil {
			RollbackExpense(oldBudget, original)
			deltas = appendDelta(deltas, oldBudget, FieldExpenses, original.Amount.Neg(),
				KindExpense, int64(original.ID), "edit")
		}
		original.Department = p.Department
		original.Amount = p.Amount
		original.Concept = p.Concept
		original.Date = p.Date
		if err := tx.UpdateExpense(ctx, original); err != nil {
			return err
		}
		ApplyExpense(newBudget, original)
		deltas = appendDelta(deltas, newBudget, FieldExpenses, original.Amount,
			KindExpense, int64(original.ID), "edit")
		if oldBudget != nil && oldBudget.ID != newBudget.ID {
			if err := tx.UpdateBudget(ctx, oldBudget); err != nil {
				return err
			}
		}
		if err := tx.UpdateBudget(ctx, newBudget); err != nil {
			return err
		}
		edited = original
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.publish(ctx, deltas)
	return edited, nil
}

func (e *Engine) RemoveExpense(ctx context.Context, company CompanyID, department DepartmentID, id ExpenseID) (*Expense, error) {
	var removed *Expense
	var deltas []BudgetDelta
	err := e.run(ctx, "removing expense", func(tx Store) error {
		original, err := tx.GetExpense(ctx, id)
		if err != nil {
			return err
		}
		if original == nil || original.Department != department {
			return NewExpenseNotFound(id)
		}
		deps, err := validateBudgetDependencies(ctx, tx, company, original.Department, original.Date)
		if err != nil {
			return err
		}
		RollbackExpense(deps.Budget, original)
		if err := tx.DeleteExpense(ctx, original.ID); err != nil {
			return err
		}
		if err := tx.UpdateBudget(ctx, deps.Budget); err != nil {
			return err
		}
		removed = original
		deltas = appendDelta(nil, deps.Budget, FieldExpenses, original.Amount.Neg(),
			KindExpense, int64(original.ID), "remove")
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.publish(ctx, deltas)
	return removed, nil
}

// =============================================================================
// BUDGETS
// =============================================================================

type BudgetProspect struct {
	ID         BudgetID
	Company    CompanyID
	Department DepartmentID
	Start      time.Time
	End        time.Time
}

func (e *Engine) GetBudget(ctx context.Context, id BudgetID) (*Budget, error) {
	b, err := e.store.GetBudget(ctx, id)
	if err != nil {
		return nil, e.internal(err, "querying budget")
	}
	if b == nil {
		return nil, NewBudgetNotFound(id)
	}
	return b, nil
}

func (e *Engine) ListBudgets(ctx context.Context, f BudgetFilter) ([]Budget, error) {
	if f.Department != 0 {
		if _, _, err := validateCompanyDepartment(ctx, e.store, f.Company, f.Department); err != nil {
			return nil, e.domainOrInternal(err, "querying budgets")
		}
	}
	bs, err := e.store.FindBudgets(ctx, f)
	if err != nil {
		return nil, e.internal(err, "querying budgets")
	}
	return bs, nil
}

// CreateBudget validates the department and checks the candidate period
// against every existing budget of the department before inserting. The
// overlap check and the insert share one write transaction, so two racing
// creates with intersecting periods serialize at BEGIN and the loser sees
// the winner's row. The new budget always starts with zeroed accumulators
// regardless of input.
func (e *Engine) CreateBudget(ctx context.Context, p BudgetProspect) (*Budget, error) {
	if _, _, err := validateCompanyDepartment(ctx, e.store, p.Company, p.Department); err != nil {
		return nil, e.domainOrInternal(err, "creating budget")
	}
	candidate := Period{Start: p.Start, End: p.End}
	if err := e.precheckBudgetOverlap(ctx, p.Department, candidate, 0); err != nil {
		return nil, e.domainOrInternal(err, "creating budget")
	}
	record := &Budget{
		Department:      p.Department,
		Start:           p.Start,
		End:             p.End,
		AckAmount:       decimal.Zero,
		AllocatedAmount: decimal.Zero,
		Expenses:        decimal.Zero,
	}
	err := e.run(ctx, "creating budget", func(tx Store) error {
		if err := checkBudgetOverlap(ctx, tx, p.Department, candidate, 0); err != nil {
			return err
		}
		return tx.CreateBudget(ctx, record)
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// EditBudget moves a budget's period. Only start and end change; the
// accumulators stay with the budget. The overlap check excludes the budget
// itself and runs in the same transaction as the update.
func (e *Engine) EditBudget(ctx context.Context, p BudgetProspect) (*Budget, error) {
	if _, _, err := validateCompanyDepartment(ctx, e.store, p.Company, p.Department); err != nil {
		return nil, e.domainOrInternal(err, "editing budget")
	}
	candidate := Period{Start: p.Start, End: p.End}
	if err := e.precheckBudgetOverlap(ctx, p.Department, candidate, p.ID); err != nil {
		return nil, e.domainOrInternal(err, "editing budget")
	}
	var edited *Budget
	err := e.run(ctx, "editing budget", func(tx Store) error {
		original, err := tx.GetBudget(ctx, p.ID)
		if err != nil {
			return err
		}
		if original == nil || original.Department != p.Department {
			return NewBudgetNotFound(p.ID)
		}
		if err := checkBudgetOverlap(ctx, tx, p.Department, candidate, p.ID); err != nil {
			return err
		}
		original.Start = p.Start
		original.End = p.End
		if err := tx.UpdateBudget(ctx, original); err != nil {
			return err
		}
		edited = original
		return nil
	})
	if err != nil {
		return nil, err
	}
	return edited, nil
}

func (e *Engine) RemoveBudget(ctx context.Context, company CompanyID, department DepartmentID, id BudgetID) (*Budget, error) {
	if _, _, err := validateCompanyDepartment(ctx, e.store, company, department); err != nil {
		return nil, e.domainOrInternal(err, "removing budget")
	}
	original, err := e.store.GetBudget(ctx, id)
	if err != nil {
		return nil, e.internal(err, "removing budget")
	}
	if original == nil || original.Department != department {
		return nil, NewBudgetNotFound(id)
	}
	if err := e.store.DeleteBudget(ctx, id); err != nil {
		return nil, e.internal(err, "removing budget")
	}
	return original, nil
}

// overlapWindows builds the three queries that together cover the four-way
// interval-overlap test: an existing budget containing the candidate start,
// one containing the candidate end, and one fully inside the candidate (an
// existing budget containing the whole candidate matches the first two).
func overlapWindows(department DepartmentID, candidate Period, ignore BudgetID) []BudgetFilter {
	return []BudgetFilter{
		{Department: department, IgnoreID: ignore, ToStart: &candidate.Start, FromEnd: &candidate.Start},
		{Department: department, IgnoreID: ignore, ToStart: &candidate.End, FromEnd: &candidate.End},
		{Department: department, IgnoreID: ignore, FromStart: &candidate.Start, ToEnd: &candidate.End},
	}
}

// checkBudgetOverlap is the authoritative overlap check. It runs the three
// windows sequentially so it can execute on a transaction-scoped store,
// where the result stays true until commit.
func checkBudgetOverlap(ctx context.Context, s Store, department DepartmentID, candidate Period, ignore BudgetID) error {
	for _, window := range overlapWindows(department, candidate, ignore) {
		found, err := s.FindBudgets(ctx, window)
		if err != nil {
			return err
		}
		if len(found) > 0 {
			return NewBudgetOverlap(found[0].Start, found[0].End)
		}
	}
	return nil
}

// precheckBudgetOverlap runs the three windows concurrently on the plain
// store, rejecting an already-visible conflict before the writer lock is
// taken. A clean result is advisory only; checkBudgetOverlap repeats the
// check inside the write transaction.
func (e *Engine) precheckBudgetOverlap(ctx context.Context, department DepartmentID, candidate Period, ignore BudgetID) error {
	windows := overlapWindows(department, candidate, ignore)
	results := make([][]Budget, len(windows))
	g, gctx := errgroup.WithContext(ctx)
	for i := range windows {
		i := i
		g.Go(func() error {
			found, err := e.store.FindBudgets(gctx, windows[i])
			results[i] = found
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for _, found := range results {
		if len(found) > 0 {
			return NewBudgetOverlap(found[0].Start, found[0].End)
		}
	}
	return nil
}

// =============================================================================
// COMPANIES
// =============================================================================

func (e *Engine) GetCompany(ctx context.Context, id CompanyID) (*Company, error) {
	c, err := e.store.GetCompany(ctx, id)
	if err != nil {
		return nil, e.internal(err, "querying company")
	}
	if c == nil {
		return nil, NewRestError(404, "Company does not exist")
	}
	return c, nil
}

func (e *Engine) ListCompanies(ctx context.Context, f CompanyFilter) ([]Company, error) {
	cs, err := e.store.FindCompanies(ctx, f)
	if err != nil {
		return nil, e.internal(err, "querying companies")
	}
	return cs, nil
}

// CreateCompany checks name uniqueness and inserts in one transaction, so
// a racing duplicate is reported as a conflict rather than tripping the
// unique index.
func (e *Engine) CreateCompany(ctx context.Context, name string) (*Company, error) {
	record := &Company{Name: name}
	err := e.run(ctx, "creating company", func(tx Store) error {
		existing, err := tx.GetCompanyByName(ctx, name, 0)
		if err != nil {
			return err
		}
		if existing != nil {
			return NewDuplicateCompanyName(name)
		}
		return tx.CreateCompany(ctx, record)
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (e *Engine) EditCompany(ctx context.Context, id CompanyID, name string) (*Company, error) {
	var edited *Company
	err := e.run(ctx, "editing company", func(tx Store) error {
		existing, err := tx.GetCompanyByName(ctx, name, id)
		if err != nil {
			return err
		}
		if existing != nil {
			return NewDuplicateCompanyName(name)
		}
		original, err := tx.GetCompany(ctx, id)
		if err != nil {
			return err
		}
		if original == nil {
			return NewCompanyNotFound(id)
		}
		original.Name = name
		if err := tx.UpdateCompany(ctx, original); err != nil {
			return err
		}
		edited = original
		return nil
	})
	if err != nil {
		return nil, err
	}
	return edited, nil
}

// RemoveCompany deletes the company and everything it owns in one
// transaction: every department's transactions, expenses and budgets, then
// the departments, then the company. The cascade is explicit and ordered
// rather than delegated to the database, so the behavior is identical
// across storage engines.
func (e *Engine) RemoveCompany(ctx context.Context, id CompanyID) (*Company, error) {
	var removed *Company
	err := e.run(ctx, "removing company", func(tx Store) error {
		original, err := tx.GetCompany(ctx, id)
		if err != nil {
			return err
		}
		if original == nil {
			return NewCompanyNotFound(id)
		}
		departments, err := tx.FindDepartments(ctx, DepartmentFilter{Company: id})
		if err != nil {
			return err
		}
		for i := range departments {
			if err := deleteDepartmentOwned(ctx, tx, departments[i].ID); err != nil {
				return err
			}
			if err := tx.DeleteDepartment(ctx, departments[i].ID); err != nil {
				return err
			}
		}
		if err := tx.DeleteCompany(ctx, id); err != nil {
			return err
		}
		removed = original
		return nil
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

// =============================================================================
// DEPARTMENTS
// =============================================================================

type DepartmentProspect struct {
	ID      DepartmentID
	Company CompanyID
	Name    string
	Parent  *DepartmentID
}

func (e *Engine) GetDepartment(ctx context.Context, company CompanyID, id DepartmentID) (*Department, error) {
	d, err := e.store.GetDepartment(ctx, id)
	if err != nil {
		return nil, e.internal(err, "querying department")
	}
	if d == nil || (company != 0 && d.Company != company) {
		return nil, NewRestError(404, "Department does not exist")
	}
	return d, nil
}

func (e *Engine) ListDepartments(ctx context.Context, f DepartmentFilter) ([]Department, error) {
	ds, err := e.store.FindDepartments(ctx, f)
	if err != nil {
		return nil, e.internal(err, "querying departments")
	}
	return ds, nil
}

// CreateDepartment requires the company to exist and, when a parent is
// given, the parent to exist within the same company. Both failures are
// 422s: the prospect itself is bad, nothing referenced by URL is missing.
func (e *Engine) CreateDepartment(ctx context.Context, p DepartmentProspect) (*Department, error) {
	if err := e.validateDepartmentProspect(ctx, p); err != nil {
		return nil, err
	}
	record := &Department{Name: p.Name, Company: p.Company, Parent: p.Parent}
	if err := e.store.CreateDepartment(ctx, record); err != nil {
		return nil, e.internal(err, "creating department")
	}
	return record, nil
}

func (e *Engine) EditDepartment(ctx context.Context, p DepartmentProspect) (*Department, error) {
	original, err := e.store.GetDepartment(ctx, p.ID)
	if err != nil {
		return nil, e.internal(err, "editing department")
	}
	if original == nil {
		return nil, NewDepartmentNotFound(p.ID)
	}
	if err := e.validateDepartmentProspect(ctx, p); err != nil {
		return nil, err
	}
	original.Name = p.Name
	original.Company = p.Company
	original.Parent = p.Parent
	if err := e.store.UpdateDepartment(ctx, original); err != nil {
		return nil, e.internal(err, "editing department")
	}
	return original, nil
}

// RemoveDepartment deletes the department and its owned budgets,
// transactions and expenses in one transaction. Child departments are
// reparented implicitly by keeping their parent reference dangling-free:
// children of the removed department keep existing but lose nothing here,
// matching the source's non-recursive delete.
func (e *Engine) RemoveDepartment(ctx context.Context, id DepartmentID) (*Department, error) {
	var removed *Department
	err := e.run(ctx, "removing department", func(tx Store) error {
		original, err := tx.GetDepartment(ctx, id)
		if err != nil {
			return err
		}
		if original == nil {
			return NewDepartmentNotFound(id)
		}
		if err := deleteDepartmentOwned(ctx, tx, id); err != nil {
			return err
		}
		if err := tx.DeleteDepartment(ctx, id); err != nil {
			return err
		}
		removed = original
		return nil
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

func (e *Engine) validateDepartmentProspect(ctx context.Context, p DepartmentProspect) error {
	company, err := e.store.GetCompany(ctx, p.Company)
	if err != nil {
		return e.internal(err, "validating department")
	}
	if company == nil {
		return NewBadDepartmentCompany(p.Company)
	}
	if p.Parent != nil {
		parent, err := e.store.GetDepartment(ctx, *p.Parent)
		if err != nil {
			return e.internal(err, "validating department")
		}
		if parent == nil || parent.Company != p.Company {
			return NewBadDepartmentParent(*p.Parent, p.Company)
		}
	}
	return nil
}

// deleteDepartmentOwned removes every record owned by the department:
// transactions and expenses first (they reference budgets conceptually),
// then the budgets themselves.
func deleteDepartmentOwned(ctx context.Context, tx Store, id DepartmentID) error {
	if err := tx.DeleteTransactionsByDepartment(ctx, id); err != nil {
		return err
	}
	if err := tx.DeleteExpensesByDepartment(ctx, id); err != nil {
		return err
	}
	return tx.DeleteBudgetsByDepartment(ctx, id)
}

// =============================================================================
// USERS
// =============================================================================

// CurrentUser resolves the acting user; a 404 means the token's subject was
// deleted after issuance.
func (e *Engine) CurrentUser(ctx context.Context, id UserID) (*User, error) {
	u, err := e.store.GetUser(ctx, id)
	if err != nil {
		return nil, e.internal(err, "querying user")
	}
	if u == nil {
		return nil, NewUserNotFound()
	}
	return u, nil
}

func (e *Engine) ListUsers(ctx context.Context, f UserFilter) ([]User, error) {
	us, err := e.store.FindUsers(ctx, f)
	if err != nil {
		return nil, e.internal(err, "querying users")
	}
	return us, nil
}

// =============================================================================
// ERROR NORMALIZATION HELPERS
// =============================================================================

// internal logs a storage failure and returns the generic 500 for it.
func (e *Engine) internal(err error, action string) error {
	e.log.Error("budget operation failed", "action", action, "error", err)
	return NewInternal("Error " + action)
}

// domainOrInternal passes typed domain errors through and converts
// anything else like internal.
func (e *Engine) domainOrInternal(err error, action string) error {
	if restErr, ok := AsRestError(err); ok {
		return restErr
	}
	return e.internal(err, action)
}
