package repository

import (
	"context"

	classifierdomain "github.com/smallbiznis/signbilling/internal/classifier/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() classifierdomain.Repository {
	return &repo{}
}

type serviceFilterRow struct {
	VendorID     int64
	ServiceID    int64
	FilterID     int64
	ServiceOrder int
}

// ListVendorServiceRules returns, per vendor, the usage based services with
// their effective filter, ordered by service_order then service_id. A vendor
// override takes precedence over the service default filter.
func (r *repo) ListVendorServiceRules(ctx context.Context, db *gorm.DB, vendorIDs []int64) (map[int64][]classifierdomain.ServiceRules, error) {
	out := make(map[int64][]classifierdomain.ServiceRules, len(vendorIDs))
	if len(vendorIDs) == 0 {
		return out, nil
	}

	var rows []serviceFilterRow
	err := db.WithContext(ctx).Raw(
		`SELECT vs.vendor_id, s.service_id, COALESCE(o.filter_id, s.filter_id) AS filter_id, s.service_order
		 FROM vendor_services vs
		 JOIN services s ON s.service_id = vs.service_id
		 LEFT JOIN vendor_filters_overrides o ON o.vendor_id = vs.vendor_id AND o.service_id = vs.service_id
		 WHERE vs.vendor_id IN ?
		   AND s.usage_based = ?
		   AND COALESCE(o.filter_id, s.filter_id) IS NOT NULL
		 ORDER BY vs.vendor_id ASC, s.service_order ASC, s.service_id ASC`,
		vendorIDs, true,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return out, nil
	}

	filterIDs := make([]int64, 0, len(rows))
	for _, row := range rows {
		filterIDs = append(filterIDs, row.FilterID)
	}

	var configs []classifierdomain.FilterConfig
	if err := db.WithContext(ctx).
		Where("filter_id IN ?", filterIDs).
		Order("id ASC").
		Find(&configs).Error; err != nil {
		return nil, err
	}

	byFilter := make(map[int64][]classifierdomain.FilterConfig)
	for _, cfg := range configs {
		byFilter[cfg.FilterID] = append(byFilter[cfg.FilterID], cfg)
	}

	for _, row := range rows {
		out[row.VendorID] = append(out[row.VendorID], classifierdomain.ServiceRules{
			ServiceID: row.ServiceID,
			FilterID:  row.FilterID,
			Rules:     byFilter[row.FilterID],
		})
	}
	return out, nil
}

func (r *repo) ListVendorServices(ctx context.Context, db *gorm.DB, vendorIDs []int64) ([]classifierdomain.VendorService, error) {
	if len(vendorIDs) == 0 {
		return nil, nil
	}
	var rows []classifierdomain.VendorService
	err := db.WithContext(ctx).
		Where("vendor_id IN ?", vendorIDs).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
