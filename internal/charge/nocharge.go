package charge

import (
	"github.com/shopspring/decimal"
	classifierdomain "github.com/smallbiznis/signbilling/internal/classifier/domain"
	contractdomain "github.com/smallbiznis/signbilling/internal/contract/domain"
)

// NoChargeStrategy consumes in-scope transactions at zero cost.
type NoChargeStrategy struct {
	base
}

func NewNoCharge(order *contractdomain.Order, pt contractdomain.PaymentType) *NoChargeStrategy {
	return &NoChargeStrategy{base: newBase(order, pt)}
}

func (s *NoChargeStrategy) Accept(tx *classifierdomain.ClassifiedTransaction) bool {
	if !s.inScope(tx) {
		return false
	}
	s.acc.Add(Key{VendorID: tx.VendorID(), ServiceID: *tx.ServiceID}, decimal.Zero)
	tx.Charge = decimal.Zero
	s.accepted++
	return true
}
