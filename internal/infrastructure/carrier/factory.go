package carrier

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xborder/backend/internal/domain/logistics"
	"github.com/xborder/backend/internal/domain/shared/valueobject"
	"github.com/xborder/backend/internal/infrastructure/config"
	"github.com/xborder/backend/internal/infrastructure/storage"
	"github.com/xborder/backend/internal/infrastructure/telemetry"
)

// FactoryDeps are the shared collaborators of every adapter
type FactoryDeps struct {
	Logger    *zap.Logger
	Documents storage.DocumentStorage
	Metrics   *telemetry.DecisionMetrics
	Retry     RetryPolicy
	// Timeout bounds a single attempt when the carrier sets none.
	Timeout time.Duration
}

// NewFromConfig builds one carrier adapter wrapped with retries
func NewFromConfig(cfg config.CarrierConfig, deps FactoryDeps) (logistics.CarrierProvider, error) {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("provider_id", cfg.ID))

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = deps.Timeout
	}

	var p logistics.CarrierProvider
	switch cfg.Type {
	case "", config.CarrierTypeRateCard:
		card, err := RateCardFromConfig(cfg)
		if err != nil {
			return nil, err
		}
		opts := []RateCardOption{WithRateCardLogger(logger)}
		if deps.Documents != nil {
			opts = append(opts, WithDocumentStorage(deps.Documents))
		}
		rc, err := NewRateCardCarrier(cfg.ID, cfg.Name, card, opts...)
		if err != nil {
			return nil, err
		}
		p = rc
	case config.CarrierTypeHTTP:
		hc, err := NewHTTPCarrier(HTTPConfig{
			ID:      cfg.ID,
			Name:    cfg.Name,
			BaseURL: cfg.BaseURL,
			APIKey:  cfg.APIKey,
			Timeout: timeout,
		}, logger)
		if err != nil {
			return nil, err
		}
		p = hc
	default:
		return nil, fmt.Errorf("%w: unknown carrier type %q", logistics.ErrProviderNotConfigured, cfg.Type)
	}

	return NewResilientCarrier(p,
		WithRetryPolicy(deps.Retry),
		WithCallTimeout(timeout),
		WithRetryMetrics(deps.Metrics),
		WithResilientLogger(logger),
	), nil
}

// RateCardFromConfig converts the configured tariff
func RateCardFromConfig(cfg config.CarrierConfig) (RateCard, error) {
	cur, err := valueobject.ParseCurrency(cfg.Currency)
	if err != nil {
		return RateCard{}, fmt.Errorf("%w: carrier %s: %v", logistics.ErrProviderNotConfigured, cfg.ID, err)
	}
	card := RateCard{
		Currency:         cur,
		BaseFee:          decimal.NewFromFloat(cfg.BaseFee),
		PerKg:            decimal.NewFromFloat(cfg.PerKg),
		FuelSurchargePct: decimal.NewFromFloat(cfg.FuelSurchargePct),
		DDPFee:           decimal.NewFromFloat(cfg.DDPFee),
		DutyEstimatePct:  decimal.NewFromFloat(cfg.DutyEstimatePct),
		Zones:            make(map[string]decimal.Decimal, len(cfg.Zones)),
		Prohibited:       cfg.Prohibited,
	}
	for zone, factor := range cfg.Zones {
		card.Zones[strings.ToUpper(zone)] = decimal.NewFromFloat(factor)
	}
	for _, s := range cfg.Services {
		mult := decimal.NewFromFloat(s.Multiplier)
		if s.Multiplier == 0 {
			mult = decimal.NewFromInt(1)
		}
		class := logistics.ServiceClass(strings.ToUpper(s.Class))
		if !class.IsValid() {
			class = logistics.ServiceClassStandard
		}
		name := s.Name
		if name == "" {
			name = s.Code
		}
		card.Services = append(card.Services, ServiceLevel{
			Code:       s.Code,
			Name:       name,
			Class:      class,
			Multiplier: mult,
			Days:       s.Days,
			MinDays:    s.MinDays,
			MaxDays:    s.MaxDays,
			Guaranteed: s.Guaranteed,
			Features:   s.Features,
		})
	}
	return card, nil
}

// BuildRegistry registers every enabled carrier
func BuildRegistry(carriers []config.CarrierConfig, deps FactoryDeps) (*Registry, error) {
	reg := NewRegistry()
	for _, cfg := range carriers {
		if !cfg.Enabled {
			continue
		}
		p, err := NewFromConfig(cfg, deps)
		if err != nil {
			return nil, fmt.Errorf("carrier %s: %w", cfg.ID, err)
		}
		if err := reg.Register(p); err != nil {
			return nil, err
		}
	}
	if reg.Len() == 0 {
		return nil, logistics.ErrNoProviders
	}
	return reg, nil
}
