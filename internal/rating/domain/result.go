package domain

import (
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/signbilling/internal/charge"
)

// State is the step a rating run reached.
type State string

const (
	StateInit               State = "INIT"
	StateClientLoaded       State = "CLIENT_LOADED"
	StateOrdersLoaded       State = "ORDERS_LOADED"
	StateValidated          State = "VALIDATED"
	StateRejected           State = "REJECTED"
	StateStrategiesBuilt    State = "STRATEGIES_BUILT"
	StateTransactionsLoaded State = "TRANSACTIONS_LOADED"
	StateRated              State = "RATED"
	StatePersisted          State = "PERSISTED"
)

type StrategySummary struct {
	OrderID      int64
	PaymentType  string
	PackageID    *int64
	Provisional  bool
	Transactions int
	Total        decimal.Decimal
	// Balance is the running balance left on a prepaid strategy.
	Balance *decimal.Decimal
}

// RunResult reports one client's rating run. It is returned alongside
// errors too, populated up to the state the run reached.
type RunResult struct {
	State    State
	Period   string
	ClientID int64

	Processed int
	// Skipped lists events no strategy accepted.
	Skipped []int64

	FullyClassified     bool
	Unclassified        []int64
	Unmapped            []int64
	UnreconciledVendors []int64
	DroppedRules        int

	Strategies []StrategySummary
	Breakdown  []charge.Line

	ChargesWritten        int
	InvoicesWritten       int
	PackageChargesWritten int
	RenewedPackages       []int64
	RevertedRenewals      int
}

// Total sums the breakdown.
func (r *RunResult) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range r.Breakdown {
		total = total.Add(l.Amount)
	}
	return total
}
