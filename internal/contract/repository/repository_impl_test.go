package repository

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	contractdomain "github.com/smallbiznis/signbilling/internal/contract/domain"
	ledgerdomain "github.com/smallbiznis/signbilling/internal/ledger/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func date(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func setup(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&contractdomain.Client{},
		&contractdomain.Vendor{},
		&contractdomain.Contract{},
		&contractdomain.Order{},
		&contractdomain.OrderService{},
		&contractdomain.OrderPrice{},
		&contractdomain.OrderPackage{},
		&ledgerdomain.PrepaidPackage{},
	))

	require.NoError(t, db.Create(&[]contractdomain.Client{
		{ClientID: 1, ReportingName: "Acme", IsBillable: true},
		{ClientID: 2, ReportingName: "Dormant", IsBillable: false},
		{ClientID: 3, ReportingName: "Beta", IsBillable: true},
	}).Error)
	require.NoError(t, db.Create(&[]contractdomain.Vendor{
		{VendorID: 12, ClientID: 1, IsReconciled: true},
		{VendorID: 11, ClientID: 1, IsReconciled: false},
	}).Error)
	require.NoError(t, db.Create(&contractdomain.Contract{ContractID: 1, ClientID: 1, StartDate: date(2023, 1, 1), IsActive: true}).Error)

	ended := date(2023, 12, 31)
	require.NoError(t, db.Create(&[]contractdomain.Order{
		{OrderID: 1, ContractID: 1, StartDate: date(2023, 1, 1), Currency: "EUR", PaymentTypeID: 3, IsActive: true},
		{OrderID: 2, ContractID: 1, StartDate: date(2023, 1, 1), EndDate: &ended, Currency: "EUR", PaymentTypeID: 4, IsActive: true},
		{OrderID: 3, ContractID: 1, StartDate: date(2022, 1, 1), EndDate: &ended, Currency: "EUR", PaymentTypeID: 1, IsActive: true},
		{OrderID: 4, ContractID: 1, StartDate: date(2024, 2, 1), Currency: "EUR", PaymentTypeID: 3, IsActive: true},
	}).Error)
	require.NoError(t, db.Create(&[]contractdomain.OrderService{
		{OrderID: 1, VendorServiceID: 100},
		{OrderID: 1, VendorServiceID: 101},
	}).Error)
	require.NoError(t, db.Create(&contractdomain.OrderPrice{OrderID: 1, ServiceID: 10, UnitPrice: decimal.NewFromInt(3)}).Error)

	for _, pkg := range []ledgerdomain.PrepaidPackage{
		{ID: 50, Description: "newer", StartDate: date(2023, 6, 1), ExpiryDate: date(2024, 6, 1), Currency: "EUR", Status: ledgerdomain.PackageStatusActive},
		{ID: 40, Description: "older", StartDate: date(2023, 1, 1), ExpiryDate: date(2024, 1, 1), Currency: "EUR", Status: ledgerdomain.PackageStatusActive},
	} {
		require.NoError(t, db.Create(&pkg).Error)
	}
	require.NoError(t, db.Create(&[]contractdomain.OrderPackage{
		{ID: 1, OrderID: 3, PrepaidPackageID: 50},
		{ID: 2, OrderID: 3, PrepaidPackageID: 40},
	}).Error)
	return db
}

func TestFindClient(t *testing.T) {
	db := setup(t)
	r := Provide()

	client, err := r.FindClient(context.Background(), db, 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{11, 12}, client.VendorIDs())
	assert.Equal(t, []int64{11}, client.UnreconciledVendorIDs())

	_, err = r.FindClient(context.Background(), db, 99)
	assert.ErrorIs(t, err, contractdomain.ErrClientNotFound)
}

func TestListBillableClientIDs(t *testing.T) {
	ids, err := Provide().ListBillableClientIDs(context.Background(), setup(t))
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3}, ids)
}

func TestListRatingOrders(t *testing.T) {
	db := setup(t)
	orders, err := Provide().ListRatingOrders(context.Background(), db, 1, date(2024, 1, 1), date(2024, 2, 1))
	require.NoError(t, err)

	ids := make([]int64, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.OrderID)
	}
	// order 2 ended before the period, order 4 starts after it; order 3
	// has ended but still holds active packages.
	assert.ElementsMatch(t, []int64{1, 3}, ids)

	for _, o := range orders {
		switch o.OrderID {
		case 1:
			assert.Equal(t, []int64{100, 101}, o.VendorServiceIDs())
			assert.True(t, o.UnitPrices()[10].Equal(decimal.NewFromInt(3)))
		case 3:
			require.Len(t, o.Packages, 2)
			assert.Equal(t, int64(40), o.Packages[0].PrepaidPackage.ID)
			assert.Equal(t, int64(50), o.Packages[1].PrepaidPackage.ID)
		}
	}
}

func TestListClientPackageIDsAndDetach(t *testing.T) {
	db := setup(t)
	r := Provide()
	ctx := context.Background()

	ids, err := r.ListClientPackageIDs(ctx, db, 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{40, 50}, ids)

	require.NoError(t, r.DetachPackage(ctx, db, 50))
	ids, err = r.ListClientPackageIDs(ctx, db, 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{40}, ids)

	require.NoError(t, r.AttachPackage(ctx, db, &contractdomain.OrderPackage{ID: 3, OrderID: 1, PrepaidPackageID: 50}))
	ids, err = r.ListClientPackageIDs(ctx, db, 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{40, 50}, ids)
}
