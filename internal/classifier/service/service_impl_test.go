package service

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	classifierdomain "github.com/smallbiznis/signbilling/internal/classifier/domain"
	"github.com/smallbiznis/signbilling/internal/classifier/repository"
	"github.com/smallbiznis/signbilling/internal/config"
	"github.com/smallbiznis/signbilling/internal/filter"
	usagedomain "github.com/smallbiznis/signbilling/internal/usage/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func int64Ptr(v int64) *int64 { return &v }

type fixture struct {
	db  *gorm.DB
	svc classifierdomain.Service
}

func setup(t *testing.T, cfg config.RatingConfig) fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&classifierdomain.Filter{},
		&classifierdomain.FilterConfig{},
		&classifierdomain.BillableService{},
		&classifierdomain.VendorService{},
		&classifierdomain.VendorFilterOverride{},
	))

	// signing (order 1) and a broader catch-all (order 2) both match type=signing.
	require.NoError(t, db.Create(&[]classifierdomain.Filter{
		{ID: 1, FilterName: "signing"},
		{ID: 2, FilterName: "catch-all"},
		{ID: 3, FilterName: "vendor-2-signing"},
	}).Error)
	require.NoError(t, db.Create(&[]classifierdomain.FilterConfig{
		{FilterID: 1, Key: "transaction_type__eq", Value: "signing"},
		{FilterID: 1, Key: "signing_type__incl", Value: "AES,QES"},
		{FilterID: 2, Key: "transaction_type__incl", Value: "signing,auth"},
		{FilterID: 3, Key: "transaction_type__eq", Value: "never"},
	}).Error)
	require.NoError(t, db.Create(&[]classifierdomain.BillableService{
		{ServiceID: 10, Service: "Qualified signing", UsageBased: true, FilterID: int64Ptr(1), ServiceOrder: 1},
		{ServiceID: 20, Service: "Any transaction", UsageBased: true, FilterID: int64Ptr(2), ServiceOrder: 2},
		{ServiceID: 30, Service: "Flat fee", UsageBased: false, FilterID: int64Ptr(2), ServiceOrder: 0},
	}).Error)
	require.NoError(t, db.Create(&[]classifierdomain.VendorService{
		{ID: 100, VendorID: 1, ServiceID: 10},
		{ID: 101, VendorID: 1, ServiceID: 20},
		{ID: 102, VendorID: 1, ServiceID: 30},
		{ID: 200, VendorID: 2, ServiceID: 10},
		{ID: 201, VendorID: 2, ServiceID: 20},
	}).Error)
	require.NoError(t, db.Create(&classifierdomain.VendorFilterOverride{VendorID: 2, ServiceID: 10, FilterID: 3}).Error)

	svc := NewService(Params{
		Log:          zap.NewNop(),
		Repo:         repository.Provide(),
		RatingConfig: config.NewStaticRatingConfig(cfg),
	})
	return fixture{db: db, svc: svc}
}

func events() []usagedomain.UsageEvent {
	ts := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	return []usagedomain.UsageEvent{
		{ID: 1, VendorID: 1, Timestamp: ts, TransactionType: "signing", SigningType: "AES", TransactionStatus: 3},
		{ID: 2, VendorID: 1, Timestamp: ts, TransactionType: "auth", TransactionStatus: 3},
		{ID: 3, VendorID: 1, Timestamp: ts, TransactionType: "unknown", TransactionStatus: 5},
		{ID: 4, VendorID: 2, Timestamp: ts, TransactionType: "signing", SigningType: "AES", TransactionStatus: 3},
	}
}

func TestClassifyFirstMatchWins(t *testing.T) {
	f := setup(t, config.DefaultRatingConfig())
	ctx := context.Background()

	set, err := f.svc.LoadFilters(ctx, f.db, []int64{1, 2})
	require.NoError(t, err)
	require.Len(t, set.ByVendor[1], 2, "non usage based services are not loaded")

	evs := events()
	first := f.svc.Classify(evs, set)
	second := f.svc.Classify(evs, set)

	require.Len(t, first.Transactions, 4)
	assert.Equal(t, int64(10), *first.Transactions[0].ServiceID)
	assert.Equal(t, int64(20), *first.Transactions[1].ServiceID)
	assert.Nil(t, first.Transactions[2].ServiceID)
	// vendor 2 override never matches, so the catch-all gets it.
	assert.Equal(t, int64(20), *first.Transactions[3].ServiceID)

	for i := range first.Transactions {
		assert.Equal(t, first.Transactions[i].ServiceID, second.Transactions[i].ServiceID)
	}
}

func TestClassifyRulelessFilterMatchesEverything(t *testing.T) {
	f := setup(t, config.DefaultRatingConfig())
	ctx := context.Background()
	require.NoError(t, f.db.Create(&classifierdomain.Filter{ID: 4, FilterName: "everything"}).Error)
	require.NoError(t, f.db.Create(&classifierdomain.BillableService{ServiceID: 40, Service: "Platform fee", UsageBased: true, FilterID: int64Ptr(4), ServiceOrder: 0}).Error)
	require.NoError(t, f.db.Create(&classifierdomain.VendorService{ID: 103, VendorID: 1, ServiceID: 40}).Error)

	set, err := f.svc.LoadFilters(ctx, f.db, []int64{1})
	require.NoError(t, err)
	require.Len(t, set.ByVendor[1], 3)

	result := f.svc.Classify(events()[:3], set)
	require.Len(t, result.Transactions, 3)
	for _, tx := range result.Transactions {
		require.NotNil(t, tx.ServiceID)
		assert.Equal(t, int64(40), *tx.ServiceID)
	}
	assert.True(t, result.FullyClassified)
}

func TestClassifyIgnoresFailedStatusForFullyClassified(t *testing.T) {
	f := setup(t, config.DefaultRatingConfig())
	set, err := f.svc.LoadFilters(context.Background(), f.db, []int64{1, 2})
	require.NoError(t, err)

	result := f.svc.Classify(events(), set)
	assert.True(t, result.FullyClassified)
	assert.Empty(t, result.Unclassified)

	evs := append(events(), usagedomain.UsageEvent{ID: 5, VendorID: 1, TransactionType: "unknown", TransactionStatus: 3})
	result = f.svc.Classify(evs, set)
	assert.False(t, result.FullyClassified)
	assert.Equal(t, []int64{5}, result.Unclassified)
}

func TestResolveVendorServices(t *testing.T) {
	f := setup(t, config.DefaultRatingConfig())
	ctx := context.Background()
	set, err := f.svc.LoadFilters(ctx, f.db, []int64{1, 2})
	require.NoError(t, err)

	evs := append(events(), usagedomain.UsageEvent{ID: 6, VendorID: 3, TransactionType: "signing"})
	set.ByVendor[3] = set.ByVendor[1]

	result := f.svc.Classify(evs, set)
	require.NoError(t, f.svc.ResolveVendorServices(ctx, f.db, &result))

	assert.Equal(t, int64(100), *result.Transactions[0].VSID)
	assert.Equal(t, int64(101), *result.Transactions[1].VSID)
	assert.Nil(t, result.Transactions[2].VSID)
	assert.Equal(t, int64(201), *result.Transactions[3].VSID)
	assert.Nil(t, result.Transactions[4].VSID)
	assert.Equal(t, []int64{6}, result.Unmapped)
}

func TestLoadFiltersStrictRejectsMalformedRules(t *testing.T) {
	f := setup(t, config.DefaultRatingConfig())
	require.NoError(t, f.db.Create(&classifierdomain.FilterConfig{FilterID: 2, Key: "colour__eq", Value: "red"}).Error)

	_, err := f.svc.LoadFilters(context.Background(), f.db, []int64{1})
	assert.ErrorIs(t, err, classifierdomain.ErrInvalidFilterConfig)
	assert.ErrorIs(t, err, filter.ErrUnknownField)
}

func TestLoadFiltersPermissiveDropsMalformedRules(t *testing.T) {
	cfg := config.DefaultRatingConfig()
	cfg.StrictFilters = false
	f := setup(t, cfg)
	require.NoError(t, f.db.Create(&classifierdomain.FilterConfig{FilterID: 2, Key: "colour__eq", Value: "red"}).Error)

	set, err := f.svc.LoadFilters(context.Background(), f.db, []int64{1})
	require.NoError(t, err)
	assert.Equal(t, 1, set.Dropped)
	require.Len(t, set.ByVendor[1], 2)
	assert.Equal(t, 1, set.ByVendor[1][1].Group.Len())
}
