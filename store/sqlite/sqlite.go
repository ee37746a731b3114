/*
Package sqlite provides the SQLite-backed implementation of budget.Store.

PURPOSE:
  Implements all persistence for the budget engine: companies, departments,
  budgets with their accumulators, budget transactions, expenses and users.
  In production the same patterns apply to PostgreSQL - only minor SQL
  dialect differences.

KEY TABLES:
  companies:           Unique-named roots of the ownership tree
  departments:         Nested under companies, optional parent department
  budgets:             One [period_start, period_end] row per department
                       period, TEXT accumulators parsed as decimals
  budget_transactions: Statused amounts debiting a covering budget
  expenses:            Dated amounts with a concept, debiting a budget
  users:               Acting identities, unique email, bcrypt password

CONCURRENCY:
  The connection string sets _txlock=immediate so every transaction takes
  the writer lock at BEGIN, and the pool is capped at one connection. Two
  compound writes against the same budget therefore serialize at the
  database, and a read inside WithTx always sees the locked row's current
  value. This replaces row-level SELECT FOR UPDATE, which SQLite does not
  have.

VALUE ENCODING:
  Monetary values are stored as decimal strings, never floats, so applying
  and rolling back a delta round-trips exactly. Times are stored as RFC3339
  UTC strings, which also makes lexicographic comparison equal to time
  comparison in period queries.

MIGRATION:
  Versioned migrations embedded in the binary, applied on New() against the
  same *sql.DB handle the store uses (required for :memory: databases).

SEE ALSO:
  - budget/store.go: the interface definition and filter semantics
  - budget/engine.go: the transactional consumer
*/
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/budgeteala/budget-engine/budget"
	"github.com/budgeteala/budget-engine/logging"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// querier is the subset of database/sql shared by *sql.DB and *sql.Tx, so
// every statement helper works both inside and outside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements budget.Store on SQLite.
type Store struct {
	db  *sql.DB
	q   querier
	log *logging.Logger
	// inTx marks a store handed to a WithTx callback; nested WithTx joins
	// instead of opening a second transaction.
	inTx bool
}

var _ budget.Store = (*Store)(nil)

// New opens (or creates) the database at path and applies pending
// migrations. Use ":memory:" for an in-memory database.
func New(path string, log *logging.Logger) (*Store, error) {
	if log == nil {
		log = logging.Nop()
	}
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL&_txlock=immediate&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection makes BEGIN IMMEDIATE a total write order and
	// keeps :memory: databases from silently becoming several databases.
	db.SetMaxOpenConns(1)

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Store{db: db, q: db, log: log}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// runMigrations applies the embedded migrations on the store's own handle.
// Opening a second connection would migrate a different database when the
// path is :memory:.
func runMigrations(db *sql.DB) error {
	source, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}
	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to init migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to init migrations: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx runs fn inside one database transaction. The transaction takes
// the writer lock at BEGIN (see package doc), so fn owns every row it
// reads until commit. A store already inside a transaction joins it.
func (s *Store) WithTx(ctx context.Context, fn func(tx budget.Store) error) error {
	if s.inTx {
		return fn(s)
	}

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err := sqlTx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			s.log.Error("transaction rollback failed", "error", err)
		}
	}()

	txStore := &Store{db: s.db, q: sqlTx, log: s.log, inTx: true}
	if err := fn(txStore); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// =============================================================================
// COMPANIES
// =============================================================================

func (s *Store) CreateCompany(ctx context.Context, c *budget.Company) error {
	now := time.Now().UTC()
	res, err := s.q.ExecContext(ctx,
		"INSERT INTO companies (name, created_at, updated_at) VALUES (?, ?, ?)",
		c.Name, formatTime(now), formatTime(now),
	)
	if err != nil {
		return fmt.Errorf("failed to insert company: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read company id: %w", err)
	}
	c.ID = budget.CompanyID(id)
	c.CreatedAt, c.UpdatedAt = now, now
	return nil
}

func (s *Store) GetCompany(ctx context.Context, id budget.CompanyID) (*budget.Company, error) {
	row := s.q.QueryRowContext(ctx,
		"SELECT id, name, created_at, updated_at FROM companies WHERE id = ?", id)
	return scanCompanyRow(row)
}

func (s *Store) GetCompanyByName(ctx context.Context, name string, ignore budget.CompanyID) (*budget.Company, error) {
	row := s.q.QueryRowContext(ctx,
		"SELECT id, name, created_at, updated_at FROM companies WHERE name = ? AND id != ?",
		name, ignore)
	return scanCompanyRow(row)
}

func (s *Store) FindCompanies(ctx context.Context, f budget.CompanyFilter) ([]budget.Company, error) {
	query := "SELECT id, name, created_at, updated_at FROM companies"
	var args []any
	if f.NamePrefix != "" {
		query += " WHERE name LIKE ?"
		args = append(args, likePrefix(f.NamePrefix))
	}
	query += " ORDER BY name ASC"

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query companies: %w", err)
	}
	defer rows.Close()

	var companies []budget.Company
	for rows.Next() {
		var c budget.Company
		var createdAt, updatedAt string
		if err := rows.Scan(&c.ID, &c.Name, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan company: %w", err)
		}
		if c.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if c.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, err
		}
		companies = append(companies, c)
	}
	return companies, rows.Err()
}

func (s *Store) UpdateCompany(ctx context.Context, c *budget.Company) error {
	now := time.Now().UTC()
	_, err := s.q.ExecContext(ctx,
		"UPDATE companies SET name = ?, updated_at = ? WHERE id = ?",
		c.Name, formatTime(now), c.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update company: %w", err)
	}
	c.UpdatedAt = now
	return nil
}

func (s *Store) DeleteCompany(ctx context.Context, id budget.CompanyID) error {
	if _, err := s.q.ExecContext(ctx, "DELETE FROM companies WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete company: %w", err)
	}
	return nil
}

func scanCompanyRow(row *sql.Row) (*budget.Company, error) {
	var c budget.Company
	var createdAt, updatedAt string
	err := row.Scan(&c.ID, &c.Name, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan company: %w", err)
	}
	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if c.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// =============================================================================
// DEPARTMENTS
// =============================================================================

func (s *Store) CreateDepartment(ctx context.Context, d *budget.Department) error {
	now := time.Now().UTC()
	res, err := s.q.ExecContext(ctx,
		"INSERT INTO departments (name, company_id, parent_id, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
		d.Name, d.Company, nullDepartment(d.Parent), formatTime(now), formatTime(now),
	)
	if err != nil {
		return fmt.Errorf("failed to insert department: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read department id: %w", err)
	}
	d.ID = budget.DepartmentID(id)
	d.CreatedAt, d.UpdatedAt = now, now
	return nil
}

func (s *Store) GetDepartment(ctx context.Context, id budget.DepartmentID) (*budget.Department, error) {
	row := s.q.QueryRowContext(ctx,
		"SELECT id, name, company_id, parent_id, created_at, updated_at FROM departments WHERE id = ?", id)

	var d budget.Department
	var parent sql.NullInt64
	var createdAt, updatedAt string
	err := row.Scan(&d.ID, &d.Name, &d.Company, &parent, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan department: %w", err)
	}
	if parent.Valid {
		p := budget.DepartmentID(parent.Int64)
		d.Parent = &p
	}
	if d.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if d.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *Store) FindDepartments(ctx context.Context, f budget.DepartmentFilter) ([]budget.Department, error) {
	query := "SELECT id, name, company_id, parent_id, created_at, updated_at FROM departments"
	var conds []string
	var args []any
	if f.Company != 0 {
		conds = append(conds, "company_id = ?")
		args = append(args, f.Company)
	}
	if f.Parent != 0 {
		conds = append(conds, "parent_id = ?")
		args = append(args, f.Parent)
	}
	if f.NamePrefix != "" {
		conds = append(conds, "name LIKE ?")
		args = append(args, likePrefix(f.NamePrefix))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY name ASC"

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query departments: %w", err)
	}
	defer rows.Close()

	var departments []budget.Department
	for rows.Next() {
		var d budget.Department
		var parent sql.NullInt64
		var createdAt, updatedAt string
		if err := rows.Scan(&d.ID, &d.Name, &d.Company, &parent, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan department: %w", err)
		}
		if parent.Valid {
			p := budget.DepartmentID(parent.Int64)
			d.Parent = &p
		}
		if d.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if d.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, err
		}
		departments = append(departments, d)
	}
	return departments, rows.Err()
}

func (s *Store) UpdateDepartment(ctx context.Context, d *budget.Department) error {
	now := time.Now().UTC()
	_, err := s.q.ExecContext(ctx,
		"UPDATE departments SET name = ?, company_id = ?, parent_id = ?, updated_at = ? WHERE id = ?",
		d.Name, d.Company, nullDepartment(d.Parent), formatTime(now), d.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update department: %w", err)
	}
	d.UpdatedAt = now
	return nil
}

func (s *Store) DeleteDepartment(ctx context.Context, id budget.DepartmentID) error {
	if _, err := s.q.ExecContext(ctx, "DELETE FROM departments WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete department: %w", err)
	}
	return nil
}

// =============================================================================
// BUDGETS
// =============================================================================

const budgetColumns = `b.id, b.department_id, b.period_start, b.period_end,
	b.ack_amount, b.alloc_amount, b.expenses, b.created_at, b.updated_at`

func (s *Store) CreateBudget(ctx context.Context, b *budget.Budget) error {
	now := time.Now().UTC()
	res, err := s.q.ExecContext(ctx,
		`INSERT INTO budgets
		 (department_id, period_start, period_end, ack_amount, alloc_amount, expenses, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		b.Department, formatTime(b.Start), formatTime(b.End),
		b.AckAmount.String(), b.AllocatedAmount.String(), b.Expenses.String(),
		formatTime(now), formatTime(now),
	)
	if err != nil {
		return fmt.Errorf("failed to insert budget: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read budget id: %w", err)
	}
	b.ID = budget.BudgetID(id)
	b.CreatedAt, b.UpdatedAt = now, now
	return nil
}

func (s *Store) GetBudget(ctx context.Context, id budget.BudgetID) (*budget.Budget, error) {
	row := s.q.QueryRowContext(ctx,
		"SELECT "+budgetColumns+" FROM budgets b WHERE b.id = ?", id)
	return scanBudgetRow(row)
}

// FindCoveringBudget relies on RFC3339 UTC strings ordering like the times
// they encode, so the inclusive interval test is two string comparisons.
func (s *Store) FindCoveringBudget(ctx context.Context, department budget.DepartmentID, date time.Time) (*budget.Budget, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT `+budgetColumns+` FROM budgets b
		 WHERE b.department_id = ? AND b.period_start <= ? AND b.period_end >= ?
		 LIMIT 1`,
		department, formatTime(date), formatTime(date))
	return scanBudgetRow(row)
}

func (s *Store) FindBudgets(ctx context.Context, f budget.BudgetFilter) ([]budget.Budget, error) {
	query := "SELECT " + budgetColumns + " FROM budgets b"
	var conds []string
	var args []any
	if f.Company != 0 {
		query += " JOIN departments d ON d.id = b.department_id"
		conds = append(conds, "d.company_id = ?")
		args = append(args, f.Company)
	}
	if f.Department != 0 {
		conds = append(conds, "b.department_id = ?")
		args = append(args, f.Department)
	}
	if f.IgnoreID != 0 {
		conds = append(conds, "b.id != ?")
		args = append(args, f.IgnoreID)
	}
	if f.FromStart != nil {
		conds = append(conds, "b.period_start >= ?")
		args = append(args, formatTime(*f.FromStart))
	}
	if f.ToStart != nil {
		conds = append(conds, "b.period_start <= ?")
		args = append(args, formatTime(*f.ToStart))
	}
	if f.FromEnd != nil {
		conds = append(conds, "b.period_end >= ?")
		args = append(args, formatTime(*f.FromEnd))
	}
	if f.ToEnd != nil {
		conds = append(conds, "b.period_end <= ?")
		args = append(args, formatTime(*f.ToEnd))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY b.period_start ASC"

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query budgets: %w", err)
	}
	defer rows.Close()

	var budgets []budget.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, err
		}
		budgets = append(budgets, *b)
	}
	return budgets, rows.Err()
}

func (s *Store) UpdateBudget(ctx context.Context, b *budget.Budget) error {
	now := time.Now().UTC()
	_, err := s.q.ExecContext(ctx,
		`UPDATE budgets SET department_id = ?, period_start = ?, period_end = ?,
		 ack_amount = ?, alloc_amount = ?, expenses = ?, updated_at = ?
		 WHERE id = ?`,
		b.Department, formatTime(b.Start), formatTime(b.End),
		b.AckAmount.String(), b.AllocatedAmount.String(), b.Expenses.String(),
		formatTime(now), b.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update budget: %w", err)
	}
	b.UpdatedAt = now
	return nil
}

func (s *Store) DeleteBudget(ctx context.Context, id budget.BudgetID) error {
	if _, err := s.q.ExecContext(ctx, "DELETE FROM budgets WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete budget: %w", err)
	}
	return nil
}

func (s *Store) DeleteBudgetsByDepartment(ctx context.Context, department budget.DepartmentID) error {
	if _, err := s.q.ExecContext(ctx, "DELETE FROM budgets WHERE department_id = ?", department); err != nil {
		return fmt.Errorf("failed to delete budgets: %w", err)
	}
	return nil
}

type budgetScanner interface {
	Scan(dest ...any) error
}

func scanBudgetFields(sc budgetScanner) (*budget.Budget, error) {
	var b budget.Budget
	var start, end, ack, alloc, expenses, createdAt, updatedAt string
	err := sc.Scan(&b.ID, &b.Department, &start, &end, &ack, &alloc, &expenses, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	if b.Start, err = parseTime(start); err != nil {
		return nil, err
	}
	if b.End, err = parseTime(end); err != nil {
		return nil, err
	}
	if b.AckAmount, err = decimal.NewFromString(ack); err != nil {
		return nil, fmt.Errorf("failed to parse ack_amount: %w", err)
	}
	if b.AllocatedAmount, err = decimal.NewFromString(alloc); err != nil {
		return nil, fmt.Errorf("failed to parse alloc_amount: %w", err)
	}
	if b.Expenses, err = decimal.NewFromString(expenses); err != nil {
		return nil, fmt.Errorf("failed to parse expenses: %w", err)
	}
	if b.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if b.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

func scanBudgetRow(row *sql.Row) (*budget.Budget, error) {
	b, err := scanBudgetFields(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan budget: %w", err)
	}
	return b, nil
}

func scanBudget(rows *sql.Rows) (*budget.Budget, error) {
	b, err := scanBudgetFields(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan budget: %w", err)
	}
	return b, nil
}

// =============================================================================
// BUDGET TRANSACTIONS
// =============================================================================

const transactionColumns = `t.id, t.department_id, t.user_id, t.amount, t.status,
	t.date, t.created_at, t.updated_at`

func (s *Store) CreateTransaction(ctx context.Context, t *budget.BudgetTransaction) error {
	now := time.Now().UTC()
	res, err := s.q.ExecContext(ctx,
		`INSERT INTO budget_transactions
		 (department_id, user_id, amount, status, date, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.Department, t.User, t.Amount.String(), t.Status, formatTime(t.Date),
		formatTime(now), formatTime(now),
	)
	if err != nil {
		return fmt.Errorf("failed to insert budget transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read budget transaction id: %w", err)
	}
	t.ID = budget.TransactionID(id)
	t.CreatedAt, t.UpdatedAt = now, now
	return nil
}

func (s *Store) GetTransaction(ctx context.Context, id budget.TransactionID) (*budget.BudgetTransaction, error) {
	row := s.q.QueryRowContext(ctx,
		"SELECT "+transactionColumns+" FROM budget_transactions t WHERE t.id = ?", id)

	t, err := scanTransactionFields(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan budget transaction: %w", err)
	}
	return t, nil
}

func (s *Store) FindTransactions(ctx context.Context, f budget.TransactionFilter) ([]budget.BudgetTransaction, error) {
	query := "SELECT " + transactionColumns + " FROM budget_transactions t"
	var conds []string
	var args []any
	if f.Company != 0 {
		query += " JOIN departments d ON d.id = t.department_id"
		conds = append(conds, "d.company_id = ?")
		args = append(args, f.Company)
	}
	if f.Department != 0 {
		conds = append(conds, "t.department_id = ?")
		args = append(args, f.Department)
	}
	if f.From != nil {
		conds = append(conds, "t.date >= ?")
		args = append(args, formatTime(*f.From))
	}
	if f.To != nil {
		conds = append(conds, "t.date <= ?")
		args = append(args, formatTime(*f.To))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY t.date ASC, t.id ASC"

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query budget transactions: %w", err)
	}
	defer rows.Close()

	var transactions []budget.BudgetTransaction
	for rows.Next() {
		t, err := scanTransactionFields(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan budget transaction: %w", err)
		}
		transactions = append(transactions, *t)
	}
	return transactions, rows.Err()
}

func (s *Store) UpdateTransaction(ctx context.Context, t *budget.BudgetTransaction) error {
	now := time.Now().UTC()
	_, err := s.q.ExecContext(ctx,
		`UPDATE budget_transactions SET department_id = ?, user_id = ?, amount = ?,
		 status = ?, date = ?, updated_at = ? WHERE id = ?`,
		t.Department, t.User, t.Amount.String(), t.Status, formatTime(t.Date),
		formatTime(now), t.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update budget transaction: %w", err)
	}
	t.UpdatedAt = now
	return nil
}

func (s *Store) DeleteTransaction(ctx context.Context, id budget.TransactionID) error {
	if _, err := s.q.ExecContext(ctx, "DELETE FROM budget_transactions WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete budget transaction: %w", err)
	}
	return nil
}

func (s *Store) DeleteTransactionsByDepartment(ctx context.Context, department budget.DepartmentID) error {
	if _, err := s.q.ExecContext(ctx, "DELETE FROM budget_transactions WHERE department_id = ?", department); err != nil {
		return fmt.Errorf("failed to delete budget transactions: %w", err)
	}
	return nil
}

func scanTransactionFields(sc budgetScanner) (*budget.BudgetTransaction, error) {
	var t budget.BudgetTransaction
	var amount, date, createdAt, updatedAt string
	err := sc.Scan(&t.ID, &t.Department, &t.User, &amount, &t.Status, &date, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	if t.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("failed to parse amount: %w", err)
	}
	if t.Date, err = parseTime(date); err != nil {
		return nil, err
	}
	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if t.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

// =============================================================================
// EXPENSES
// =============================================================================

const expenseColumns = `e.id, e.department_id, e.user_id, e.amount, e.concept,
	e.date, e.created_at, e.updated_at`

func (s *Store) CreateExpense(ctx context.Context, e *budget.Expense) error {
	now := time.Now().UTC()
	res, err := s.q.ExecContext(ctx,
		`INSERT INTO expenses
		 (department_id, user_id, amount, concept, date, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.Department, e.User, e.Amount.String(), e.Concept, formatTime(e.Date),
		formatTime(now), formatTime(now),
	)
	if err != nil {
		return fmt.Errorf("failed to insert expense: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read expense id: %w", err)
	}
	e.ID = budget.ExpenseID(id)
	e.CreatedAt, e.UpdatedAt = now, now
	return nil
}

func (s *Store) GetExpense(ctx context.Context, id budget.ExpenseID) (*budget.Expense, error) {
	row := s.q.QueryRowContext(ctx,
		"SELECT "+expenseColumns+" FROM expenses e WHERE e.id = ?", id)

	e, err := scanExpenseFields(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan expense: %w", err)
	}
	return e, nil
}

func (s *Store) FindExpenses(ctx context.Context, f budget.ExpenseFilter) ([]budget.Expense, error) {
	query := "SELECT " + expenseColumns + " FROM expenses e"
	var conds []string
	var args []any
	if f.Company != 0 {
		query += " JOIN departments d ON d.id = e.department_id"
		conds = append(conds, "d.company_id = ?")
		args = append(args, f.Company)
	}
	if f.Department != 0 {
		conds = append(conds, "e.department_id = ?")
		args = append(args, f.Department)
	}
	if f.From != nil {
		conds = append(conds, "e.date >= ?")
		args = append(args, formatTime(*f.From))
	}
	if f.To != nil {
		conds = append(conds, "e.date <= ?")
		args = append(args, formatTime(*f.To))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY e.date ASC, e.id ASC"

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query expenses: %w", err)
	}
	defer rows.Close()

	var expenses []budget.Expense
	for rows.Next() {
		e, err := scanExpenseFields(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, *e)
	}
	return expenses, rows.Err()
}

func (s *Store) UpdateExpense(ctx context.Context, e *budget.Expense) error {
	now := time.Now().UTC()
	_, err := s.q.ExecContext(ctx,
		`UPDATE expenses SET department_id = ?, user_id = ?, amount = ?,
		 concept = ?, date = ?, updated_at = ? WHERE id = ?`,
		e.Department, e.User, e.Amount.String(), e.Concept, formatTime(e.Date),
		formatTime(now), e.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update expense: %w", err)
	}
	e.UpdatedAt = now
	return nil
}

func (s *Store) DeleteExpense(ctx context.Context, id budget.ExpenseID) error {
	if _, err := s.q.ExecContext(ctx, "DELETE FROM expenses WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	return nil
}

func (s *Store) DeleteExpensesByDepartment(ctx context.Context, department budget.DepartmentID) error {
	if _, err := s.q.ExecContext(ctx, "DELETE FROM expenses WHERE department_id = ?", department); err != nil {
		return fmt.Errorf("failed to delete expenses: %w", err)
	}
	return nil
}

func scanExpenseFields(sc budgetScanner) (*budget.Expense, error) {
	var e budget.Expense
	var amount, date, createdAt, updatedAt string
	err := sc.Scan(&e.ID, &e.Department, &e.User, &amount, &e.Concept, &date, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	if e.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("failed to parse amount: %w", err)
	}
	if e.Date, err = parseTime(date); err != nil {
		return nil, err
	}
	if e.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if e.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &e, nil
}

// =============================================================================
// USERS
// =============================================================================

const userColumns = "id, first_name, last_name, email, password, created_at, updated_at"

func (s *Store) CreateUser(ctx context.Context, u *budget.User) error {
	now := time.Now().UTC()
	res, err := s.q.ExecContext(ctx,
		`INSERT INTO users (first_name, last_name, email, password, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		u.FirstName, u.LastName, u.Email, u.Password, formatTime(now), formatTime(now),
	)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read user id: %w", err)
	}
	u.ID = budget.UserID(id)
	u.CreatedAt, u.UpdatedAt = now, now
	return nil
}

func (s *Store) GetUser(ctx context.Context, id budget.UserID) (*budget.User, error) {
	row := s.q.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = ?", id)
	return scanUserRow(row)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*budget.User, error) {
	row := s.q.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email = ?", email)
	return scanUserRow(row)
}

func (s *Store) FindUsers(ctx context.Context, f budget.UserFilter) ([]budget.User, error) {
	query := "SELECT " + userColumns + " FROM users"
	var conds []string
	var args []any
	if f.NamePrefix != "" {
		conds = append(conds, "(first_name LIKE ? OR last_name LIKE ?)")
		args = append(args, likePrefix(f.NamePrefix), likePrefix(f.NamePrefix))
	}
	if f.EmailPrefix != "" {
		conds = append(conds, "email LIKE ?")
		args = append(args, likePrefix(f.EmailPrefix))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY email ASC"

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []budget.User
	for rows.Next() {
		var u budget.User
		var createdAt, updatedAt string
		if err := rows.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.Password, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		if u.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if u.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func scanUserRow(row *sql.Row) (*budget.User, error) {
	var u budget.User
	var createdAt, updatedAt string
	err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.Password, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	if u.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if u.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// parseTime reads a stored RFC3339 timestamp. A value that does not parse
// is a corrupt row and surfaces as a scan failure, never as the zero time.
func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse timestamp %q: %w", s, err)
	}
	return t, nil
}

func likePrefix(prefix string) string {
	return prefix + "%"
}

func nullDepartment(id *budget.DepartmentID) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*id), Valid: true}
}
