/*
mutator.go - Accumulator delta application

PURPOSE:
  Applies or reverses a record's monetary amount against exactly one budget
  accumulator. Apply and Rollback must be called in matching pairs; because
  both branch on the same status-to-field mapping and amounts are decimals,
  Rollback(Apply(b, r)) restores b exactly.

CANCELLED TRANSACTIONS:
  A cancelled transaction contributes zero to every accumulator: applying
  or rolling one back is a no-op (a previous revision folded cancelled into
  the allocated branch). Editing a transaction into or out of cancelled
  status still balances, since the edit path rolls back with the old status
  and applies with the new one.

SEE ALSO:
  - engine.go: calls these inside the compound-write transaction
*/
package budget

import "github.com/shopspring/decimal"

// Accumulator names, used for delta events and logging.
const (
	FieldAck       = "ack_amount"
	FieldAllocated = "alloc_amount"
	FieldExpenses  = "expenses"
)

// ApplyTransaction adds the transaction's amount to the budget accumulator
// selected by its status. Cancelled transactions apply nothing.
func ApplyTransaction(b *Budget, t *BudgetTransaction) {
	addToAccumulator(b, t, t.Amount)
}

// RollbackTransaction is the exact inverse of ApplyTransaction.
func RollbackTransaction(b *Budget, t *BudgetTransaction) {
	addToAccumulator(b, t, t.Amount.Neg())
}

func addToAccumulator(b *Budget, t *BudgetTransaction, amount decimal.Decimal) {
	switch t.Status {
	case StatusAcknowledged:
		b.AckAmount = b.AckAmount.Add(amount)
	case StatusAllocated:
		b.AllocatedAmount = b.AllocatedAmount.Add(amount)
	case StatusCancelled:
		// no accumulator impact
	}
}

// ApplyExpense adds the expense's amount to the budget's expenses total.
func ApplyExpense(b *Budget, e *Expense) {
	b.Expenses = b.Expenses.Add(e.Amount)
}

// RollbackExpense is the exact inverse of ApplyExpense.
func RollbackExpense(b *Budget, e *Expense) {
	b.Expenses = b.Expenses.Sub(e.Amount)
}

// transactionField maps a status to the accumulator it affects. Empty for
// cancelled, which touches nothing.
func transactionField(status TransactionStatus) string {
	switch status {
	case StatusAcknowledged:
		return FieldAck
	case StatusAllocated:
		return FieldAllocated
	}
	return ""
}
