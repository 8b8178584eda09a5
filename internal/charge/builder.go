package charge

import (
	contractdomain "github.com/smallbiznis/signbilling/internal/contract/domain"
	ledgerdomain "github.com/smallbiznis/signbilling/internal/ledger/domain"
)

type BuildInput struct {
	Orders []contractdomain.Order
	// Balances holds the current balances of every attached package.
	Balances       map[int64]ledgerdomain.Balances
	Pricing        Pricing
	RenewalEnabled bool
}

// Build creates the strategy chain in order list order.
// Strategies on the same package share its running balance, and provisional
// strategies of one package share the balance of its planned renewal.
func Build(in BuildInput) ([]Strategy, error) {
	for i := range in.Orders {
		if _, err := in.Orders[i].PaymentType(); err != nil {
			return nil, err
		}
	}

	current := make(map[int64]*Balance)
	planned := make(map[int64]*Balance)
	strategies := make([]Strategy, 0, len(in.Orders))
	for i := range in.Orders {
		order := &in.Orders[i]
		pt, err := order.PaymentType()
		if err != nil {
			return nil, err
		}

		switch pt {
		case contractdomain.PaymentTypeNoCharge, contractdomain.PaymentTypeSubscription:
			strategies = append(strategies, NewNoCharge(order, pt))

		case contractdomain.PaymentTypeInvoice:
			strategies = append(strategies, NewInvoice(order, in.Pricing, true))

		case contractdomain.PaymentTypePrepaid, contractdomain.PaymentTypePrepaidShared:
			for _, link := range order.Packages {
				pkg := link.PrepaidPackage
				if pkg == nil || pkg.Status != ledgerdomain.PackageStatusActive {
					continue
				}
				balances := in.Balances[pkg.ID]
				if current[pkg.ID] == nil {
					current[pkg.ID] = NewBalance(balances.Available)
				}
				strategies = append(strategies, NewPrepaid(order, in.Pricing, pkg, current[pkg.ID]))
				if in.RenewalEnabled && Renewable(*pkg, balances) {
					if planned[pkg.ID] == nil {
						planned[pkg.ID] = NewBalance(pkg.OriginalBalance)
					}
					strategies = append(strategies, NewProvisional(order, in.Pricing, pkg, planned[pkg.ID]))
				}
			}
			if order.EndDate == nil {
				strategies = append(strategies, NewInvoice(order, in.Pricing, false))
			}
		}
	}
	return strategies, nil
}

// Renewable reports whether pkg may be renewed now. It is decided before any
// transaction is rated so the successor is known up front. Exhaustion is not
// checked here: the provisional strategy follows the primary one in the chain
// and only receives what the current balance no longer admits.
func Renewable(pkg ledgerdomain.PrepaidPackage, balances ledgerdomain.Balances) bool {
	if !pkg.AutoRenew {
		return false
	}
	draft := ledgerdomain.RenewalDraft(pkg, pkg.StartDate, "")
	return ledgerdomain.CheckTransfer(pkg, draft, balances, false) == nil
}
