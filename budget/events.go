package budget

import (
	"context"

	"github.com/shopspring/decimal"
)

// BudgetDelta describes one accumulator change produced by a committed
// compound write. Edits emit two deltas: the rollback of the old values and
// the application of the new ones.
type BudgetDelta struct {
	Budget     BudgetID        `json:"budget"`
	Department DepartmentID    `json:"department"`
	Field      string          `json:"field"`
	Delta      decimal.Decimal `json:"delta"`
	RecordKind string          `json:"record_kind"`
	RecordID   int64           `json:"record_id"`
	Operation  string          `json:"operation"`
}

// Record kinds carried on delta events.
const (
	KindTransaction = "budget_transaction"
	KindExpense     = "expense"
)

// Publisher receives delta events after a compound write commits. Publishing
// is best-effort: a failed publish is logged and never fails the write.
type Publisher interface {
	PublishBudgetDelta(ctx context.Context, d BudgetDelta) error
}

// NopPublisher discards every event. Used when no broker is configured and
// in tests.
type NopPublisher struct{}

func (NopPublisher) PublishBudgetDelta(context.Context, BudgetDelta) error { return nil }
