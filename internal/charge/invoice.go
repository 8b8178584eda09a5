package charge

import (
	classifierdomain "github.com/smallbiznis/signbilling/internal/classifier/domain"
	contractdomain "github.com/smallbiznis/signbilling/internal/contract/domain"
)

// InvoiceStrategy bills accepted transactions on a period invoice.
type InvoiceStrategy struct {
	base
	pricer
	enforceEndDate bool
}

func NewInvoice(order *contractdomain.Order, pricing Pricing, enforceEndDate bool) *InvoiceStrategy {
	pt, _ := order.PaymentType()
	return &InvoiceStrategy{
		base:           newBase(order, pt),
		pricer:         newPricer(pricing, order.UnitPrices()),
		enforceEndDate: enforceEndDate,
	}
}

func (s *InvoiceStrategy) Accept(tx *classifierdomain.ClassifiedTransaction) bool {
	if !s.inScope(tx) || !s.withinTerm(tx) {
		return false
	}
	s.commit(tx, s.quote(tx), &s.acc)
	s.accepted++
	return true
}

// withinTerm is true when the order is open ended, the end date is not
// enforced, or tx happened strictly before the end date.
func (s *InvoiceStrategy) withinTerm(tx *classifierdomain.ClassifiedTransaction) bool {
	end := s.order.EndDate
	if end == nil || !s.enforceEndDate {
		return true
	}
	return tx.Date().Before(*end)
}
