package charge

import (
	"time"

	"github.com/shopspring/decimal"
	classifierdomain "github.com/smallbiznis/signbilling/internal/classifier/domain"
	contractdomain "github.com/smallbiznis/signbilling/internal/contract/domain"
	ledgerdomain "github.com/smallbiznis/signbilling/internal/ledger/domain"
)

// Balance is the running balance of one package during a run. Every
// strategy drawing on the same package shares one Balance, so orders that
// share a package can never draw more than it holds.
type Balance struct {
	remaining decimal.Decimal
}

func NewBalance(available decimal.Decimal) *Balance {
	return &Balance{remaining: available}
}

func (b *Balance) Remaining() decimal.Decimal { return b.remaining }

// PrepaidStrategy draws transactions down from a package balance. A
// provisional instance charges against the planned renewal of the package
// and only remembers when the renewal should start.
type PrepaidStrategy struct {
	base
	pricer
	pkg         *ledgerdomain.PrepaidPackage
	balance     *Balance
	provisional bool
	renewalDate *time.Time
}

func NewPrepaid(order *contractdomain.Order, pricing Pricing, pkg *ledgerdomain.PrepaidPackage, balance *Balance) *PrepaidStrategy {
	pt, _ := order.PaymentType()
	return &PrepaidStrategy{
		base:    newBase(order, pt),
		pricer:  newPricer(pricing, order.UnitPrices()),
		pkg:     pkg,
		balance: balance,
	}
}

// NewProvisional plans a renewal of pkg. planned starts at the successor's
// original balance and is shared by every provisional strategy of pkg.
func NewProvisional(order *contractdomain.Order, pricing Pricing, pkg *ledgerdomain.PrepaidPackage, planned *Balance) *PrepaidStrategy {
	s := NewPrepaid(order, pricing, pkg, planned)
	s.provisional = true
	return s
}

func (s *PrepaidStrategy) Package() *ledgerdomain.PrepaidPackage { return s.pkg }
func (s *PrepaidStrategy) Provisional() bool { return s.provisional }

// Balance is what is left on the shared running balance.
func (s *PrepaidStrategy) Balance() decimal.Decimal { return s.balance.remaining }

// RenewalDate is the date of the first transaction a provisional instance accepted.
func (s *PrepaidStrategy) RenewalDate() (time.Time, bool) {
	if s.renewalDate == nil {
		return time.Time{}, false
	}
	return *s.renewalDate, true
}

func (s *PrepaidStrategy) Accept(tx *classifierdomain.ClassifiedTransaction) bool {
	if !s.inScope(tx) {
		return false
	}
	if !s.provisional && !s.withinWindow(tx) {
		return false
	}

	q := s.quote(tx)
	amount := q.total()
	if amount.GreaterThan(s.balance.remaining) {
		return false
	}

	s.commit(tx, q, &s.acc)
	s.balance.remaining = s.balance.remaining.Sub(amount)
	s.accepted++
	if s.provisional && s.renewalDate == nil {
		date := tx.Date()
		s.renewalDate = &date
	}
	return true
}

// withinWindow is true when tx falls on or between the package start and expiry dates.
func (s *PrepaidStrategy) withinWindow(tx *classifierdomain.ClassifiedTransaction) bool {
	date := tx.Date()
	if !s.pkg.StartDate.IsZero() && date.Before(truncate(s.pkg.StartDate)) {
		return false
	}
	if !s.pkg.ExpiryDate.IsZero() && date.After(truncate(s.pkg.ExpiryDate)) {
		return false
	}
	return true
}

func truncate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
