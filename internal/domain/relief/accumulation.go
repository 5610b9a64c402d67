package relief

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xborder/backend/internal/domain/ratepolicy"
	"github.com/xborder/backend/internal/domain/shared/valueobject"
)

// ErrAccumulationUnavailable is returned when the accumulation store cannot be reached
var ErrAccumulationUnavailable = errors.New("relief: accumulation store unavailable")

// AccumulationKey identifies one usage counter: a regime, whose shipments
// are summed, and the period they are summed over.
type AccumulationKey struct {
	Regime    ratepolicy.RegimeType `json:"regime"`
	Scope     ratepolicy.Scope      `json:"scope"`
	SubjectID string                `json:"subjectId"`
	Period    string                `json:"period"`
	// PeriodEnd is when the counter stops mattering. Stores may expire it afterwards.
	PeriodEnd time.Time `json:"periodEnd"`
}

// NewAccumulationKey derives the key for the period containing at
func NewAccumulationKey(policy ratepolicy.CompliancePolicy, subjectID string, at time.Time) AccumulationKey {
	_, end := policy.Window.Bounds(at)
	return AccumulationKey{
		Regime:    policy.Type,
		Scope:     policy.Scope,
		SubjectID: subjectID,
		Period:    policy.Window.PeriodKey(at),
		PeriodEnd: end,
	}
}

// String returns a compact key suitable for a cache or a row id
func (k AccumulationKey) String() string {
	return fmt.Sprintf("%s:%s:%s:%s", k.Regime, k.Scope, k.SubjectID, k.Period)
}

// Usage is the accumulated declared value for a key
type Usage struct {
	Key       AccumulationKey   `json:"key"`
	Total     valueobject.Money `json:"total"`
	Shipments int               `json:"shipments"`
}

// AccumulationStore persists per-period usage of relief regimes.
//
// Implementations must make Record atomic with respect to concurrent Records
// on the same key, and Usage must observe every Record that returned before it.
type AccumulationStore interface {
	// Usage returns the current counter. A missing key is zero usage in cur.
	Usage(ctx context.Context, key AccumulationKey, cur valueobject.Currency) (Usage, error)
	// Record adds amount to the counter and returns the new total
	Record(ctx context.Context, key AccumulationKey, amount valueobject.Money) (Usage, error)
}
