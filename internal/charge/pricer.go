package charge

import (
	"github.com/shopspring/decimal"
	classifierdomain "github.com/smallbiznis/signbilling/internal/classifier/domain"
)

// pricer prices transactions for one strategy instance. The thread sets
// live as long as the instance.
type pricer struct {
	pricing      Pricing
	prices       map[int64]decimal.Decimal
	legalThreads map[string]struct{}
	bioThreads   map[string]struct{}
}

func newPricer(pricing Pricing, prices map[int64]decimal.Decimal) pricer {
	return pricer{
		pricing:      pricing,
		prices:       prices,
		legalThreads: make(map[string]struct{}),
		bioThreads:   make(map[string]struct{}),
	}
}

// quote holds the line items of one transaction; a nil item is not charged.
type quote struct {
	serviceID int64
	service   *decimal.Decimal
	biometric *decimal.Decimal
}

func (q quote) total() decimal.Decimal {
	total := decimal.Zero
	if q.service != nil {
		total = total.Add(*q.service)
	}
	if q.biometric != nil {
		total = total.Add(*q.biometric)
	}
	return total
}

func (p *pricer) price(serviceID int64) decimal.Decimal {
	if price, ok := p.prices[serviceID]; ok {
		return price
	}
	return decimal.Zero
}

// seen reports whether thread was already charged. Transactions without a
// thread id are never grouped.
func seen(set map[string]struct{}, thread string) bool {
	if thread == "" {
		return false
	}
	_, ok := set[thread]
	return ok
}

// quote prices tx without touching the thread sets.
func (p *pricer) quote(tx *classifierdomain.ClassifiedTransaction) quote {
	q := quote{serviceID: *tx.ServiceID}
	thread := tx.ThreadID()

	// a repeated legal-entity thread is consumed without a service line
	if q.serviceID != p.pricing.LegalEntityServiceID || !seen(p.legalThreads, thread) {
		price := p.price(q.serviceID)
		q.service = &price
	}
	if tx.BioPin() && !seen(p.bioThreads, thread) {
		price := p.price(p.pricing.BiometricServiceID)
		q.biometric = &price
	}
	return q
}

// commit records an accepted quote.
func (p *pricer) commit(tx *classifierdomain.ClassifiedTransaction, q quote, acc *Accumulator) {
	thread := tx.ThreadID()
	if q.service != nil {
		acc.Add(Key{VendorID: tx.VendorID(), ServiceID: q.serviceID}, *q.service)
		if q.serviceID == p.pricing.LegalEntityServiceID && thread != "" {
			p.legalThreads[thread] = struct{}{}
		}
	}
	if q.biometric != nil {
		acc.Add(Key{VendorID: tx.VendorID(), ServiceID: p.pricing.BiometricServiceID}, *q.biometric)
		if thread != "" {
			p.bioThreads[thread] = struct{}{}
		}
	}
	tx.Charge = q.total()
}
