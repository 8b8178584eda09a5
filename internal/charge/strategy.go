// Package charge routes classified transactions through the charge
// strategies of a client's orders.
package charge

import (
	"github.com/shopspring/decimal"
	classifierdomain "github.com/smallbiznis/signbilling/internal/classifier/domain"
	contractdomain "github.com/smallbiznis/signbilling/internal/contract/domain"
)

// Strategy is one link of the chain a transaction is offered to.
type Strategy interface {
	Order() *contractdomain.Order
	PaymentType() contractdomain.PaymentType
	// Accept consumes tx and records its charge. A false return has no side effects.
	Accept(tx *classifierdomain.ClassifiedTransaction) bool
	TotalCharged() decimal.Decimal
	Breakdown() []Line
	// Transactions counts accepted transactions.
	Transactions() int
}

// Pricing holds the service ids with thread scoped charging.
type Pricing struct {
	LegalEntityServiceID int64
	BiometricServiceID   int64
}

// base carries what every variant shares: order, admission set and accumulator.
type base struct {
	order       *contractdomain.Order
	paymentType contractdomain.PaymentType
	vsIDs       map[int64]struct{}
	acc         Accumulator
	accepted    int
}

func newBase(order *contractdomain.Order, pt contractdomain.PaymentType) base {
	vs := make(map[int64]struct{}, len(order.Services))
	for _, id := range order.VendorServiceIDs() {
		vs[id] = struct{}{}
	}
	return base{order: order, paymentType: pt, vsIDs: vs}
}

func (b *base) Order() *contractdomain.Order { return b.order }
func (b *base) PaymentType() contractdomain.PaymentType { return b.paymentType }
func (b *base) TotalCharged() decimal.Decimal { return b.acc.Total() }
func (b *base) Breakdown() []Line { return b.acc.Lines() }
func (b *base) Transactions() int { return b.accepted }

func (b *base) inScope(tx *classifierdomain.ClassifiedTransaction) bool {
	if tx == nil || tx.VSID == nil || tx.ServiceID == nil {
		return false
	}
	_, ok := b.vsIDs[*tx.VSID]
	return ok
}
