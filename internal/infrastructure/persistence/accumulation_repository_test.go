package persistence

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/xborder/backend/internal/domain/ratepolicy"
	"github.com/xborder/backend/internal/domain/relief"
	"github.com/xborder/backend/internal/domain/shared/valueobject"
)

func setupAccumulationTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	// every connection to :memory: is a fresh database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&ReliefAccumulationModel{}))
	return db
}

func testKey(subject string, end time.Time) relief.AccumulationKey {
	return relief.AccumulationKey{
		Regime:    ratepolicy.RegimeIOSS,
		Scope:     ratepolicy.ScopeSeller,
		SubjectID: subject,
		Period:    "2026-03",
		PeriodEnd: end,
	}
}

func TestGormAccumulationStore_SQLite(t *testing.T) {
	db := setupAccumulationTestDB(t)
	store := NewGormAccumulationStore(db, zaptest.NewLogger(t))
	ctx := context.Background()
	end := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	key := testKey("seller-1", end)

	t.Run("missing key is zero usage", func(t *testing.T) {
		u, err := store.Usage(ctx, key, valueobject.EUR)
		require.NoError(t, err)
		assert.True(t, u.Total.IsZero())
		assert.Equal(t, valueobject.EUR, u.Total.Currency())
		assert.Zero(t, u.Shipments)
	})

	t.Run("records accumulate", func(t *testing.T) {
		_, err := store.Record(ctx, key, valueobject.MoneyFromFloat(120.40, valueobject.EUR))
		require.NoError(t, err)
		u, err := store.Record(ctx, key, valueobject.MoneyFromFloat(29.60, valueobject.EUR))
		require.NoError(t, err)
		assert.Equal(t, "150.00", u.Total.Amount().StringFixed(2))
		assert.Equal(t, 2, u.Shipments)

		got, err := store.Usage(ctx, key, valueobject.EUR)
		require.NoError(t, err)
		assert.True(t, got.Total.Equals(u.Total))
		assert.Equal(t, 2, got.Shipments)
	})

	t.Run("currencies and subjects are separate counters", func(t *testing.T) {
		_, err := store.Record(ctx, key, valueobject.MoneyFromFloat(10, valueobject.GBP))
		require.NoError(t, err)
		_, err = store.Record(ctx, testKey("seller-2", end), valueobject.MoneyFromFloat(5, valueobject.EUR))
		require.NoError(t, err)

		u, err := store.Usage(ctx, key, valueobject.EUR)
		require.NoError(t, err)
		assert.Equal(t, "150.00", u.Total.Amount().StringFixed(2))

		var rows int64
		require.NoError(t, db.Model(&ReliefAccumulationModel{}).Count(&rows).Error)
		assert.Equal(t, int64(3), rows)
	})

	t.Run("purge drops ended periods", func(t *testing.T) {
		old := testKey("seller-3", end.AddDate(0, -1, 0))
		old.Period = "2026-02"
		_, err := store.Record(ctx, old, valueobject.MoneyFromFloat(1, valueobject.EUR))
		require.NoError(t, err)

		n, err := store.PurgeExpired(ctx, end.Add(-time.Hour))
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		u, err := store.Usage(ctx, old, valueobject.EUR)
		require.NoError(t, err)
		assert.True(t, u.Total.IsZero())
	})
}

func TestGormAccumulationStore_ConcurrentRecords(t *testing.T) {
	db := setupAccumulationTestDB(t)
	store := NewGormAccumulationStore(db, zaptest.NewLogger(t))
	ctx := context.Background()
	key := testKey("seller-c", time.Now().Add(24*time.Hour))

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Record(ctx, key, valueobject.MoneyFromFloat(2.5, valueobject.EUR))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	u, err := store.Usage(ctx, key, valueobject.EUR)
	require.NoError(t, err)
	assert.Equal(t, "50.00", u.Total.Amount().StringFixed(2))
	assert.Equal(t, 20, u.Shipments)
}

func accumulationRow(total string, shipments int64, end time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "regime", "scope", "subject_id", "period", "currency",
		"total", "shipments", "period_end", "created_at", "updated_at",
	}).AddRow(1, "IOSS", "SELLER", "seller-1", "2026-03", "EUR", total, shipments, end, end, end)
}

func TestGormAccumulationStore_PostgresUpsert(t *testing.T) {
	end := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	key := testKey("seller-1", end)

	t.Run("single upsert inside a transaction", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()
		store := NewGormAccumulationStore(db.DB, zaptest.NewLogger(t))

		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT INTO "relief_accumulations" .* ON CONFLICT \("regime","scope","subject_id","period","currency"\) DO UPDATE SET .*relief_accumulations\.total \+ excluded\.total`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
		mock.ExpectQuery(`SELECT \* FROM "relief_accumulations" WHERE`).
			WillReturnRows(accumulationRow("230.5000", 3, end))
		mock.ExpectCommit()

		u, err := store.Record(context.Background(), key, valueobject.MoneyFromFloat(30.5, valueobject.EUR))
		require.NoError(t, err)
		assert.Equal(t, "230.50", u.Total.Amount().StringFixed(2))
		assert.Equal(t, 3, u.Shipments)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("serialization failures are retried", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()
		store := NewGormAccumulationStore(db.DB, zaptest.NewLogger(t))

		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT INTO "relief_accumulations"`).
			WillReturnError(&pgconn.PgError{Code: "40001", Message: "could not serialize access"})
		mock.ExpectRollback()
		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT INTO "relief_accumulations"`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
		mock.ExpectQuery(`SELECT \* FROM "relief_accumulations" WHERE`).
			WillReturnRows(accumulationRow("30.5000", 1, end))
		mock.ExpectCommit()

		u, err := store.Record(context.Background(), key, valueobject.MoneyFromFloat(30.5, valueobject.EUR))
		require.NoError(t, err)
		assert.Equal(t, 1, u.Shipments)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("other errors surface as unavailable", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()
		store := NewGormAccumulationStore(db.DB, zaptest.NewLogger(t))

		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT INTO "relief_accumulations"`).
			WillReturnError(errors.New("connection reset by peer"))
		mock.ExpectRollback()

		_, err := store.Record(context.Background(), key, valueobject.MoneyFromFloat(1, valueobject.EUR))
		assert.ErrorIs(t, err, relief.ErrAccumulationUnavailable)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("usage read failure surfaces as unavailable", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()
		store := NewGormAccumulationStore(db.DB, zaptest.NewLogger(t))

		mock.ExpectQuery(`SELECT \* FROM "relief_accumulations"`).
			WillReturnError(errors.New("connection refused"))

		_, err := store.Usage(context.Background(), key, valueobject.EUR)
		assert.ErrorIs(t, err, relief.ErrAccumulationUnavailable)
	})
}
