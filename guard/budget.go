package guard

import (
	"github.com/google/uuid"

	"github.com/yforster/metacoq-guard/guarderr"
)

// DefaultBudget bounds the number of CheckRecCall/SubtermSpecif re-entries
// a single CheckFix call may take: both are mutually recursive
// through the term AST and can be re-entered after a whd reduction
// succeeds, so neither is structurally recursive on its own.
const DefaultBudget = 2_000_000

// Budget is the step counter guarding against runaway recursion during a
// guardedness check. A nil *Budget never ticks down and never reports
// exhaustion.
type Budget struct {
	remaining int
}

func NewBudget(n int) *Budget {
	return &Budget{remaining: n}
}

// Tick consumes one unit of budget, returning a Timeout error once
// exhausted.
func (b *Budget) Tick(traceID uuid.UUID, where string) *guarderr.Error {
	if b == nil {
		return nil
	}
	if b.remaining <= 0 {
		return guarderr.Timeoutf(traceID, where, "step budget exhausted")
	}
	b.remaining--
	return nil
}
