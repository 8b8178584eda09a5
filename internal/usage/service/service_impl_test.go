package service

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	usagedomain "github.com/smallbiznis/signbilling/internal/usage/domain"
	"github.com/smallbiznis/signbilling/internal/usage/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (usagedomain.Service, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&usagedomain.UsageEvent{}))

	svc := NewService(ServiceParam{DB: db, Log: zap.NewNop(), Repo: repository.Provide()})
	return svc, db
}

func TestRecordPersistsBatch(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	ts := time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC)

	events, err := svc.Record(ctx, []usagedomain.RecordEventRequest{
		{VendorID: 1, Timestamp: ts, ThreadID: " t-1 ", TransactionStatus: 3},
		{VendorID: 1, Timestamp: ts.Add(time.Minute), ThreadID: "t-1", BioPin: true,
			Cost: decimal.NewNullDecimal(decimal.RequireFromString("0.5"))},
	})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "t-1", events[0].ThreadID)

	rows, err := repository.Provide().ListByVendors(ctx, db, []int64{1}, ts, ts.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.True(t, rows[1].BioPin)
	assert.True(t, rows[1].Cost.Valid)
}

func TestRecordRejectsInvalidRows(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Record(ctx, nil)
	assert.ErrorIs(t, err, usagedomain.ErrEmptyBatch)

	_, err = svc.Record(ctx, []usagedomain.RecordEventRequest{{VendorID: 0, Timestamp: time.Now()}})
	assert.ErrorIs(t, err, usagedomain.ErrInvalidVendor)

	_, err = svc.Record(ctx, []usagedomain.RecordEventRequest{{VendorID: 1}})
	assert.ErrorIs(t, err, usagedomain.ErrInvalidTimestamp)

	_, err = svc.Record(ctx, []usagedomain.RecordEventRequest{{VendorID: 1, Timestamp: time.Now(),
		Cost: decimal.NewNullDecimal(decimal.NewFromInt(-1))}})
	assert.ErrorIs(t, err, usagedomain.ErrInvalidCost)
}

func TestListByVendorsIsHalfOpenAndOrdered(t *testing.T) {
	_, db := newTestService(t)
	ctx := context.Background()
	repo := repository.Provide()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	require.NoError(t, repo.Insert(ctx, db, []usagedomain.UsageEvent{
		{VendorID: 1, Timestamp: start.Add(2 * time.Hour), ThreadID: "b"},
		{VendorID: 1, Timestamp: start.Add(2 * time.Hour), ThreadID: "a"},
		{VendorID: 1, Timestamp: start, ThreadID: "z"},
		{VendorID: 1, Timestamp: end, ThreadID: "next-month"},
		{VendorID: 2, Timestamp: start, ThreadID: "other-vendor"},
	}))

	rows, err := repo.ListByVendors(ctx, db, []int64{1}, start, end)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"z", "a", "b"}, []string{rows[0].ThreadID, rows[1].ThreadID, rows[2].ThreadID})
}
