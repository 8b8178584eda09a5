package service

import (
	"context"

	contractdomain "github.com/smallbiznis/signbilling/internal/contract/domain"
	ledgerdomain "github.com/smallbiznis/signbilling/internal/ledger/domain"
	"github.com/smallbiznis/signbilling/internal/period"
	ratingdomain "github.com/smallbiznis/signbilling/internal/rating/domain"
	"github.com/smallbiznis/signbilling/pkg/db/option"
)

func (s *Service) ListCharges(ctx context.Context, q ratingdomain.Query) ([]ratingdomain.Charge, error) {
	if _, err := parseQuery(q); err != nil {
		return nil, err
	}
	rows, err := s.chargeStore.Find(ctx, &ratingdomain.Charge{
		Period:   q.Period,
		ClientID: q.ClientID,
		OrderID:  q.OrderID,
	}, option.OrderBy("period ASC, order_id ASC, vendor_id ASC, service_id ASC"))
	if err != nil {
		return nil, err
	}
	return deref(rows), nil
}

func (s *Service) ListInvoices(ctx context.Context, q ratingdomain.Query) ([]ratingdomain.Invoice, error) {
	if _, err := parseQuery(q); err != nil {
		return nil, err
	}
	rows, err := s.invoiceStore.Find(ctx, &ratingdomain.Invoice{
		Period:   q.Period,
		ClientID: q.ClientID,
		OrderID:  q.OrderID,
	}, option.OrderBy("period ASC, order_id ASC"))
	if err != nil {
		return nil, err
	}
	return deref(rows), nil
}

// ListPackageCharges returns the charges of the client's packages, narrowed
// to one order's packages and to the period's dates when given.
func (s *Service) ListPackageCharges(ctx context.Context, q ratingdomain.Query) ([]ledgerdomain.PrepaidPackageCharge, error) {
	p, err := parseQuery(q)
	if err != nil {
		return nil, err
	}

	packageIDs, err := s.contractRepo.ListClientPackageIDs(ctx, s.db, q.ClientID)
	if err != nil {
		return nil, err
	}
	if q.OrderID != 0 {
		links, err := s.orderPackageStore.Find(ctx, &contractdomain.OrderPackage{OrderID: q.OrderID})
		if err != nil {
			return nil, err
		}
		allowed := make(map[int64]struct{}, len(links))
		for _, l := range links {
			allowed[l.PrepaidPackageID] = struct{}{}
		}
		kept := packageIDs[:0]
		for _, id := range packageIDs {
			if _, ok := allowed[id]; ok {
				kept = append(kept, id)
			}
		}
		packageIDs = kept
	}
	if len(packageIDs) == 0 {
		return nil, nil
	}

	opts := []option.QueryOption{option.In("prepaid_package_id", packageIDs)}
	if !p.IsZero() {
		opts = append(opts, option.Between("charge_date", p.Start(), p.End()))
	}
	opts = append(opts, option.OrderBy("charge_date ASC, id ASC"))

	rows, err := s.packageChargeStore.Find(ctx, nil, opts...)
	if err != nil {
		return nil, err
	}
	return deref(rows), nil
}

func parseQuery(q ratingdomain.Query) (period.Period, error) {
	if q.ClientID <= 0 {
		return period.Period{}, contractdomain.ErrClientNotFound
	}
	if q.Period == "" {
		return period.Period{}, nil
	}
	p, err := period.Parse(q.Period)
	if err != nil {
		return period.Period{}, &ratingdomain.ConfigurationError{Err: err}
	}
	return p, nil
}

func deref[T any](rows []*T) []T {
	out := make([]T, 0, len(rows))
	for _, r := range rows {
		out = append(out, *r)
	}
	return out
}
