package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/xborder/backend/internal/domain/relief"
	"github.com/xborder/backend/internal/domain/shared/valueobject"
)

// ReliefAccumulationModel is one usage counter row
type ReliefAccumulationModel struct {
	ID        uint64          `gorm:"primaryKey;autoIncrement"`
	Regime    string          `gorm:"type:varchar(32);not null;uniqueIndex:idx_relief_accumulations_key,priority:1"`
	Scope     string          `gorm:"type:varchar(16);not null;uniqueIndex:idx_relief_accumulations_key,priority:2"`
	SubjectID string          `gorm:"type:varchar(128);not null;uniqueIndex:idx_relief_accumulations_key,priority:3"`
	Period    string          `gorm:"type:varchar(32);not null;uniqueIndex:idx_relief_accumulations_key,priority:4"`
	Currency  string          `gorm:"type:char(3);not null;uniqueIndex:idx_relief_accumulations_key,priority:5"`
	Total     decimal.Decimal `gorm:"type:numeric(18,4);not null;default:0"`
	Shipments int64           `gorm:"not null;default:0"`
	PeriodEnd time.Time       `gorm:"not null;index:idx_relief_accumulations_period_end"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName returns the table name for GORM
func (ReliefAccumulationModel) TableName() string {
	return "relief_accumulations"
}

// toUsage converts the row to a domain Usage
func (m *ReliefAccumulationModel) toUsage(key relief.AccumulationKey, cur valueobject.Currency) relief.Usage {
	return relief.Usage{
		Key:       key,
		Total:     valueobject.FromDecimal(m.Total.Round(2), cur),
		Shipments: int(m.Shipments),
	}
}

// postgres codes worth retrying: serialization_failure, deadlock_detected
var retryableSQLStates = map[string]bool{
	"40001": true,
	"40P01": true,
}

// GormAccumulationStore keeps relief usage counters in postgres. Each Record
// is a single upsert, so concurrent bookings on one key serialize on the row.
type GormAccumulationStore struct {
	db          *gorm.DB
	logger      *zap.Logger
	maxAttempts uint64
}

var _ relief.AccumulationStore = (*GormAccumulationStore)(nil)

// NewGormAccumulationStore creates a store on db
func NewGormAccumulationStore(db *gorm.DB, logger *zap.Logger) *GormAccumulationStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GormAccumulationStore{db: db, logger: logger, maxAttempts: 3}
}

// Usage returns the counter for key, zero when no row exists
func (s *GormAccumulationStore) Usage(ctx context.Context, key relief.AccumulationKey, cur valueobject.Currency) (relief.Usage, error) {
	var row ReliefAccumulationModel
	err := s.db.WithContext(ctx).Where(keyConditions(key, cur)).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return relief.Usage{Key: key, Total: valueobject.Zero(cur)}, nil
	}
	if err != nil {
		return relief.Usage{}, fmt.Errorf("%w: %w", relief.ErrAccumulationUnavailable, err)
	}
	return row.toUsage(key, cur), nil
}

// Record adds amount to the counter and returns the new totals
func (s *GormAccumulationStore) Record(ctx context.Context, key relief.AccumulationKey, amount valueobject.Money) (relief.Usage, error) {
	cur := amount.Currency()
	var row ReliefAccumulationModel

	op := func() error {
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			insert := &ReliefAccumulationModel{
				Regime:    string(key.Regime),
				Scope:     string(key.Scope),
				SubjectID: key.SubjectID,
				Period:    key.Period,
				Currency:  cur.String(),
				Total:     amount.Amount(),
				Shipments: 1,
				PeriodEnd: key.PeriodEnd.UTC(),
			}
			err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{
					{Name: "regime"}, {Name: "scope"}, {Name: "subject_id"}, {Name: "period"}, {Name: "currency"},
				},
				DoUpdates: clause.Assignments(map[string]any{
					"total":      gorm.Expr("relief_accumulations.total + excluded.total"),
					"shipments":  gorm.Expr("relief_accumulations.shipments + 1"),
					"period_end": gorm.Expr("excluded.period_end"),
					"updated_at": gorm.Expr("excluded.updated_at"),
				}),
			}).Create(insert).Error
			if err != nil {
				return err
			}
			return tx.Where(keyConditions(key, cur)).Take(&row).Error
		})
		if err == nil || ctx.Err() != nil || !isRetryableSQL(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 20 * time.Millisecond
	b.MaxInterval = 200 * time.Millisecond
	b.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(b, s.maxAttempts-1), ctx)
	notify := func(err error, wait time.Duration) {
		s.logger.Warn("Retrying relief accumulation upsert",
			zap.String("key", key.String()),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	}
	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		return relief.Usage{}, fmt.Errorf("%w: %w", relief.ErrAccumulationUnavailable, err)
	}
	return row.toUsage(key, cur), nil
}

// PurgeExpired deletes counters whose period ended before cutoff
func (s *GormAccumulationStore) PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("period_end < ?", cutoff.UTC()).
		Delete(&ReliefAccumulationModel{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to purge relief accumulations: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func keyConditions(key relief.AccumulationKey, cur valueobject.Currency) map[string]any {
	return map[string]any{
		"regime":     string(key.Regime),
		"scope":      string(key.Scope),
		"subject_id": key.SubjectID,
		"period":     key.Period,
		"currency":   cur.String(),
	}
}

func isRetryableSQL(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return retryableSQLStates[pgErr.Code]
	}
	return false
}
