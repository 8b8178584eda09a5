package charge

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	classifierdomain "github.com/smallbiznis/signbilling/internal/classifier/domain"
	contractdomain "github.com/smallbiznis/signbilling/internal/contract/domain"
	ledgerdomain "github.com/smallbiznis/signbilling/internal/ledger/domain"
	usagedomain "github.com/smallbiznis/signbilling/internal/usage/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testPricing = Pricing{LegalEntityServiceID: 36, BiometricServiceID: 50}

func d(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func date(y int, m time.Month, day int) time.Time {
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

func order(id int64, pt contractdomain.PaymentType, vsIDs []int64, prices map[int64]string) *contractdomain.Order {
	o := &contractdomain.Order{
		OrderID:       id,
		StartDate:     date(2024, 1, 1),
		Currency:      "EUR",
		PaymentTypeID: int(pt),
		IsActive:      true,
	}
	for _, vs := range vsIDs {
		o.Services = append(o.Services, contractdomain.OrderService{OrderID: id, VendorServiceID: vs})
	}
	for sid, price := range prices {
		o.Prices = append(o.Prices, contractdomain.OrderPrice{OrderID: id, ServiceID: sid, UnitPrice: d(price)})
	}
	return o
}

func txn(vendorID, serviceID, vsID int64, thread string, at time.Time, bio bool) *classifierdomain.ClassifiedTransaction {
	return &classifierdomain.ClassifiedTransaction{
		Event: &usagedomain.UsageEvent{
			VendorID:  vendorID,
			ThreadID:  thread,
			Timestamp: at,
			BioPin:    bio,
		},
		ServiceID: &serviceID,
		VSID:      &vsID,
	}
}

func activePackage(id int64, balance string) *ledgerdomain.PrepaidPackage {
	return &ledgerdomain.PrepaidPackage{
		ID:              id,
		StartDate:       date(2024, 1, 1),
		ExpiryDate:      date(2024, 12, 31),
		OriginalBalance: d(balance),
		Currency:        "EUR",
		OriginalRate:    d("1"),
		AverageRate:     d("1"),
		Status:          ledgerdomain.PackageStatusActive,
	}
}

func TestAccumulator(t *testing.T) {
	var acc Accumulator
	acc.Add(Key{VendorID: 1, ServiceID: 10}, d("2"))
	acc.Add(Key{VendorID: 1, ServiceID: 20}, d("1.5"))
	acc.Add(Key{VendorID: 1, ServiceID: 10}, d("2"))

	lines := acc.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, Key{VendorID: 1, ServiceID: 10}, lines[0].Key)
	assert.Equal(t, int64(2), lines[0].Count)
	assert.True(t, lines[0].Amount.Equal(d("4")))
	assert.True(t, acc.Total().Equal(d("5.5")))

	lines[0].Count = 99
	assert.Equal(t, int64(2), acc.Lines()[0].Count)
}

func TestPrepaidAdmission(t *testing.T) {
	o := order(1, contractdomain.PaymentTypePrepaid, []int64{100}, map[int64]string{10: "3"})
	s := NewPrepaid(o, testPricing, activePackage(7, "5"), NewBalance(d("5")))
	next := NewInvoice(o, testPricing, false)
	chain := []Strategy{s, next}

	first := txn(1, 10, 100, "a", time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC), false)
	second := txn(1, 10, 100, "b", time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC), false)

	assert.Same(t, s, Route(chain, first))
	assert.True(t, s.Balance().Equal(d("2")))

	assert.Same(t, next, Route(chain, second))
	assert.True(t, s.Balance().Equal(d("2")))
	assert.True(t, s.TotalCharged().Equal(d("3")))
	assert.True(t, next.TotalCharged().Equal(d("3")))
	assert.Equal(t, 1, s.Transactions())
}

func TestPrepaidAdmissionIncludesBiometric(t *testing.T) {
	o := order(1, contractdomain.PaymentTypePrepaid, []int64{100}, map[int64]string{10: "3", 50: "2"})
	s := NewPrepaid(o, testPricing, activePackage(7, "4"), NewBalance(d("4")))

	tx := txn(1, 10, 100, "a", time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC), true)
	assert.False(t, s.Accept(tx))
	assert.True(t, s.Balance().Equal(d("4")))
	assert.Empty(t, s.Breakdown())
	assert.True(t, tx.Charge.IsZero())
}

func TestPrepaidDateWindow(t *testing.T) {
	o := order(1, contractdomain.PaymentTypePrepaid, []int64{100}, map[int64]string{10: "1"})
	pkg := activePackage(7, "10")
	pkg.StartDate = date(2024, 3, 10)
	pkg.ExpiryDate = date(2024, 3, 20)
	s := NewPrepaid(o, testPricing, pkg, NewBalance(d("10")))

	assert.False(t, s.Accept(txn(1, 10, 100, "", time.Date(2024, 3, 9, 23, 0, 0, 0, time.UTC), false)))
	assert.True(t, s.Accept(txn(1, 10, 100, "", time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), false)))
	assert.True(t, s.Accept(txn(1, 10, 100, "", time.Date(2024, 3, 20, 18, 0, 0, 0, time.UTC), false)))
	assert.False(t, s.Accept(txn(1, 10, 100, "", time.Date(2024, 3, 21, 0, 0, 0, 0, time.UTC), false)))
}

func TestProvisionalRecordsRenewalDate(t *testing.T) {
	o := order(1, contractdomain.PaymentTypePrepaid, []int64{100}, map[int64]string{10: "1"})
	pkg := activePackage(7, "10")
	s := NewProvisional(o, testPricing, pkg, NewBalance(pkg.OriginalBalance))
	assert.True(t, s.Provisional())

	_, ok := s.RenewalDate()
	assert.False(t, ok)

	require.True(t, s.Accept(txn(1, 10, 100, "", time.Date(2025, 2, 3, 8, 0, 0, 0, time.UTC), false)))
	require.True(t, s.Accept(txn(1, 10, 100, "", time.Date(2025, 2, 5, 8, 0, 0, 0, time.UTC), false)))

	renewDate, ok := s.RenewalDate()
	require.True(t, ok)
	assert.Equal(t, date(2025, 2, 3), renewDate)
	assert.True(t, s.Balance().Equal(d("8")))
}

func TestLegalEntityChargedOncePerThread(t *testing.T) {
	o := order(1, contractdomain.PaymentTypeInvoice, []int64{136}, map[int64]string{36: "4"})
	s := NewInvoice(o, testPricing, true)

	at := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	txs := []*classifierdomain.ClassifiedTransaction{
		txn(1, 36, 136, "thread-1", at, false),
		txn(1, 36, 136, "thread-1", at.Add(time.Minute), false),
		txn(1, 36, 136, "thread-1", at.Add(2*time.Minute), false),
		txn(1, 36, 136, "thread-2", at.Add(3*time.Minute), false),
	}
	for _, tx := range txs {
		require.True(t, s.Accept(tx))
	}

	assert.True(t, txs[0].Charge.Equal(d("4")))
	assert.True(t, txs[1].Charge.IsZero())
	assert.True(t, txs[2].Charge.IsZero())
	assert.True(t, txs[3].Charge.Equal(d("4")))
	assert.True(t, s.TotalCharged().Equal(d("8")))
	assert.Equal(t, 4, s.Transactions())

	lines := s.Breakdown()
	require.Len(t, lines, 1)
	assert.Equal(t, int64(2), lines[0].Count)
}

func TestEmptyThreadIsNeverGrouped(t *testing.T) {
	o := order(1, contractdomain.PaymentTypeInvoice, []int64{136}, map[int64]string{36: "4", 50: "1"})
	s := NewInvoice(o, testPricing, true)

	at := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	require.True(t, s.Accept(txn(1, 36, 136, "", at, true)))
	require.True(t, s.Accept(txn(1, 36, 136, "", at, true)))
	assert.True(t, s.TotalCharged().Equal(d("10")))
}

func TestBiometricChargedOncePerThread(t *testing.T) {
	o := order(1, contractdomain.PaymentTypeInvoice, []int64{100}, map[int64]string{10: "1", 50: "2.5"})
	s := NewInvoice(o, testPricing, true)

	at := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	first := txn(1, 10, 100, "t", at, true)
	second := txn(1, 10, 100, "t", at.Add(time.Second), true)
	require.True(t, s.Accept(first))
	require.True(t, s.Accept(second))

	assert.True(t, first.Charge.Equal(d("3.5")))
	assert.True(t, second.Charge.Equal(d("1")))

	lines := s.Breakdown()
	require.Len(t, lines, 2)
	assert.Equal(t, Key{VendorID: 1, ServiceID: 10}, lines[0].Key)
	assert.Equal(t, Key{VendorID: 1, ServiceID: 50}, lines[1].Key)
	assert.Equal(t, int64(1), lines[1].Count)
}

func TestRejectedQuoteLeavesThreadUnseen(t *testing.T) {
	o := order(1, contractdomain.PaymentTypePrepaid, []int64{136}, map[int64]string{36: "4"})
	s := NewPrepaid(o, testPricing, activePackage(7, "3"), NewBalance(d("3")))
	fallback := NewInvoice(o, testPricing, false)

	at := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	first := txn(1, 36, 136, "t", at, false)
	assert.False(t, s.Accept(first))
	require.True(t, fallback.Accept(first))
	assert.True(t, first.Charge.Equal(d("4")))

	// the fallback saw the thread, the prepaid strategy did not
	second := txn(1, 36, 136, "t", at.Add(time.Second), false)
	assert.False(t, s.Accept(second))
	require.True(t, fallback.Accept(second))
	assert.True(t, second.Charge.IsZero())
}

func TestInvoiceEndDate(t *testing.T) {
	end := date(2024, 3, 15)
	o := order(1, contractdomain.PaymentTypeInvoice, []int64{100}, map[int64]string{10: "1"})
	o.EndDate = &end

	enforced := NewInvoice(o, testPricing, true)
	assert.True(t, enforced.Accept(txn(1, 10, 100, "", time.Date(2024, 3, 14, 23, 59, 0, 0, time.UTC), false)))
	assert.False(t, enforced.Accept(txn(1, 10, 100, "", time.Date(2024, 3, 15, 0, 1, 0, 0, time.UTC), false)))

	relaxed := NewInvoice(o, testPricing, false)
	assert.True(t, relaxed.Accept(txn(1, 10, 100, "", time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC), false)))
}

func TestNoChargeConsumesAtZero(t *testing.T) {
	o := order(1, contractdomain.PaymentTypeNoCharge, []int64{100}, map[int64]string{10: "9"})
	s := NewNoCharge(o, contractdomain.PaymentTypeNoCharge)

	tx := txn(1, 10, 100, "", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), true)
	require.True(t, s.Accept(tx))
	assert.True(t, tx.Charge.IsZero())
	assert.True(t, s.TotalCharged().IsZero())
	require.Len(t, s.Breakdown(), 1)
	assert.Equal(t, int64(1), s.Breakdown()[0].Count)
}

func TestOutOfScopeHasNoSideEffects(t *testing.T) {
	o := order(1, contractdomain.PaymentTypeInvoice, []int64{100}, map[int64]string{10: "1"})
	s := NewInvoice(o, testPricing, true)

	assert.False(t, s.Accept(txn(1, 10, 999, "", time.Now(), false)))
	unresolved := txn(1, 10, 100, "", time.Now(), false)
	unresolved.VSID = nil
	assert.False(t, s.Accept(unresolved))
	assert.Zero(t, s.Transactions())
	assert.Empty(t, s.Breakdown())
}

func TestBuild(t *testing.T) {
	end := date(2024, 6, 30)
	prepaid := *order(1, contractdomain.PaymentTypePrepaid, []int64{100}, map[int64]string{10: "1"})
	renewable := activePackage(7, "10")
	renewable.AutoRenew = true
	closed := activePackage(8, "10")
	closed.Status = ledgerdomain.PackageStatusClosed
	prepaid.Packages = []contractdomain.OrderPackage{
		{ID: 1, OrderID: 1, PrepaidPackageID: 7, PrepaidPackage: renewable},
		{ID: 2, OrderID: 1, PrepaidPackageID: 8, PrepaidPackage: closed},
	}

	invoice := *order(2, contractdomain.PaymentTypeInvoice, []int64{200}, nil)
	invoice.EndDate = &end
	subscription := *order(3, contractdomain.PaymentTypeSubscription, []int64{300}, nil)

	in := BuildInput{
		Orders: []contractdomain.Order{prepaid, invoice, subscription},
		Balances: map[int64]ledgerdomain.Balances{
			7: {Available: d("6"), Posted: d("10"), AverageRate: d("1")},
		},
		Pricing:        testPricing,
		RenewalEnabled: true,
	}

	strategies, err := Build(in)
	require.NoError(t, err)
	require.Len(t, strategies, 5)

	primary, ok := strategies[0].(*PrepaidStrategy)
	require.True(t, ok)
	assert.False(t, primary.Provisional())
	assert.True(t, primary.Balance().Equal(d("6")))

	provisional, ok := strategies[1].(*PrepaidStrategy)
	require.True(t, ok)
	assert.True(t, provisional.Provisional())
	assert.True(t, provisional.Balance().Equal(d("10")))

	open, ok := strategies[2].(*InvoiceStrategy)
	require.True(t, ok)
	assert.False(t, open.enforceEndDate)

	closedInvoice, ok := strategies[3].(*InvoiceStrategy)
	require.True(t, ok)
	assert.True(t, closedInvoice.enforceEndDate)

	_, ok = strategies[4].(*NoChargeStrategy)
	assert.True(t, ok)
	assert.Equal(t, contractdomain.PaymentTypeSubscription, strategies[4].PaymentType())

	in.RenewalEnabled = false
	strategies, err = Build(in)
	require.NoError(t, err)
	assert.Len(t, strategies, 4)
}

func TestBuildSharesPackageBalanceAcrossOrders(t *testing.T) {
	end := date(2024, 6, 30)
	pkg := activePackage(7, "5")
	first := *order(1, contractdomain.PaymentTypePrepaid, []int64{100}, map[int64]string{10: "3"})
	first.EndDate = &end
	first.Packages = []contractdomain.OrderPackage{{ID: 1, OrderID: 1, PrepaidPackageID: 7, PrepaidPackage: pkg}}
	second := *order(2, contractdomain.PaymentTypePrepaidShared, []int64{200}, map[int64]string{10: "4"})
	second.EndDate = &end
	second.Packages = []contractdomain.OrderPackage{{ID: 2, OrderID: 2, PrepaidPackageID: 7, PrepaidPackage: pkg}}

	strategies, err := Build(BuildInput{
		Orders:   []contractdomain.Order{first, second},
		Balances: map[int64]ledgerdomain.Balances{7: {Available: d("5"), Posted: d("5"), AverageRate: d("1")}},
		Pricing:  testPricing,
	})
	require.NoError(t, err)
	require.Len(t, strategies, 2)

	at := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	assert.Same(t, strategies[0], Route(strategies, txn(1, 10, 100, "", at, false)))
	assert.Nil(t, Route(strategies, txn(1, 10, 200, "", at.Add(time.Hour), false)))

	drawn := strategies[0].TotalCharged().Add(strategies[1].TotalCharged())
	assert.True(t, drawn.Equal(d("3")))
	assert.True(t, strategies[1].(*PrepaidStrategy).Balance().Equal(d("2")))
}

func TestBuildRejectsUnknownPaymentType(t *testing.T) {
	bad := *order(1, contractdomain.PaymentType(9), nil, nil)
	_, err := Build(BuildInput{Orders: []contractdomain.Order{bad}, Pricing: testPricing})
	assert.ErrorIs(t, err, contractdomain.ErrUnknownPaymentType)
}

func TestRenewable(t *testing.T) {
	pkg := *activePackage(7, "10")
	funded := ledgerdomain.Balances{Available: d("1"), Posted: d("1")}

	assert.False(t, Renewable(pkg, funded))

	pkg.AutoRenew = true
	assert.True(t, Renewable(pkg, funded))
	assert.False(t, Renewable(pkg, ledgerdomain.Balances{Available: d("0"), Posted: d("1")}))

	pkg.Status = ledgerdomain.PackageStatusPreClosed
	assert.False(t, Renewable(pkg, funded))
}

func TestProvisionalOnlyTakesOverflow(t *testing.T) {
	pkg := activePackage(7, "10")
	pkg.AutoRenew = true
	prepaid := *order(1, contractdomain.PaymentTypePrepaid, []int64{100}, map[int64]string{10: "1"})
	prepaid.Packages = []contractdomain.OrderPackage{{ID: 1, OrderID: 1, PrepaidPackageID: 7, PrepaidPackage: pkg}}

	strategies, err := Build(BuildInput{
		Orders:         []contractdomain.Order{prepaid},
		Balances:       map[int64]ledgerdomain.Balances{7: {Available: d("2"), Posted: d("2"), AverageRate: d("1")}},
		Pricing:        testPricing,
		RenewalEnabled: true,
	})
	require.NoError(t, err)
	require.Len(t, strategies, 3)

	at := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	assert.Same(t, strategies[0], Route(strategies, txn(1, 10, 100, "", at, false)))
	assert.Same(t, strategies[0], Route(strategies, txn(1, 10, 100, "", at, false)))
	assert.Zero(t, strategies[1].Transactions(), "provisional idle while the package is funded")

	assert.Same(t, strategies[1], Route(strategies, txn(1, 10, 100, "", at.Add(time.Hour), false)))
	assert.True(t, strategies[0].(*PrepaidStrategy).Balance().IsZero())
	assert.True(t, strategies[1].(*PrepaidStrategy).Balance().Equal(d("9")))
}
