// Package logistics implements the Logistics Quote Aggregator: concurrent
// multi-carrier quoting, caching, ranking and shipment dispatch.
package logistics

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	domain "github.com/xborder/backend/internal/domain/logistics"
	"github.com/xborder/backend/internal/domain/ratepolicy"
	"github.com/xborder/backend/internal/domain/shared"
	"github.com/xborder/backend/internal/domain/shared/valueobject"
	"github.com/xborder/backend/internal/infrastructure/cache"
	"github.com/xborder/backend/internal/infrastructure/logger"
	"github.com/xborder/backend/internal/infrastructure/telemetry"
)

// Defaults
const (
	DefaultQuoteCacheTTL   = 15 * time.Minute
	DefaultProviderTimeout = 10 * time.Second
)

// Cache outcomes reported to metrics
const (
	cacheHitLocal  = "hit_local"
	cacheHitShared = "hit_shared"
	cacheMiss      = "miss"
)

// QuoteCache is a second-level cache of merged quote sets shared between instances
type QuoteCache interface {
	GetQuotes(ctx context.Context, key string) ([]domain.Quote, bool, error)
	SetQuotes(ctx context.Context, key string, quotes []domain.Quote, ttl time.Duration) error
}

// CurrencyConverter converts quote prices into the request currency
type CurrencyConverter interface {
	ConvertCurrency(ctx context.Context, amount decimal.Decimal, from, to valueobject.Currency) (ratepolicy.Conversion, error)
}

// Option configures an AggregatorService
type Option func(*AggregatorService)

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(s *AggregatorService) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithQuoteCacheTTL sets how long merged quote sets stay cached
func WithQuoteCacheTTL(ttl time.Duration) Option {
	return func(s *AggregatorService) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithSharedCache adds a second-level cache
func WithSharedCache(c QuoteCache) Option {
	return func(s *AggregatorService) {
		s.shared = c
	}
}

// WithProviderTimeout bounds every provider call
func WithProviderTimeout(d time.Duration) Option {
	return func(s *AggregatorService) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *AggregatorService) {
		s.now = now
	}
}

// WithPerformanceTracker shares a performance table
func WithPerformanceTracker(t *PerformanceTracker) Option {
	return func(s *AggregatorService) {
		s.perf = t
	}
}

// WithCurrencyConverter enables normalizing quotes into the request currency
func WithCurrencyConverter(fx CurrencyConverter) Option {
	return func(s *AggregatorService) {
		s.fx = fx
	}
}

// WithMetrics enables decision metrics
func WithMetrics(m *telemetry.DecisionMetrics) Option {
	return func(s *AggregatorService) {
		s.metrics = m
	}
}

// AggregatorService fans quoting out to every eligible carrier
type AggregatorService struct {
	registry domain.ProviderRegistry
	local    *cache.TTLCache[[]domain.Quote]
	shared   QuoteCache
	group    singleflight.Group
	perf     *PerformanceTracker
	fx       CurrencyConverter
	logger   *zap.Logger
	ttl      time.Duration
	timeout  time.Duration
	now      func() time.Time
	metrics  *telemetry.DecisionMetrics
}

// NewAggregatorService creates an aggregator over registry
func NewAggregatorService(registry domain.ProviderRegistry, opts ...Option) *AggregatorService {
	s := &AggregatorService{
		registry: registry,
		logger:   zap.NewNop(),
		ttl:      DefaultQuoteCacheTTL,
		timeout:  DefaultProviderTimeout,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.perf == nil {
		s.perf = NewPerformanceTracker(s.now)
	}
	s.local = cache.NewTTLCache[[]domain.Quote](
		cache.WithTTL(s.ttl),
		cache.WithName("quotes"),
		cache.WithClock(s.now),
		cache.WithCacheLogger(s.logger),
	)
	return s
}

// Close releases the local cache
func (s *AggregatorService) Close() error {
	return s.local.Close()
}

// Performance exposes the provider performance table
func (s *AggregatorService) Performance() *PerformanceTracker {
	return s.perf
}

// Reliability returns a provider's composite reliability
func (s *AggregatorService) Reliability(providerID string) float64 {
	return s.perf.Reliability(providerID)
}

// quoteSet is one merged fan-out outcome
type quoteSet struct {
	quotes   []domain.Quote
	failures []shared.CalculationError
	cached   bool
}

// ---------------------------------------------------------------------------
// Quoting
// ---------------------------------------------------------------------------

// GetAllQuotes returns the union of every eligible provider's quotes.
// Failing providers contribute nothing; the error is reserved for invalid
// requests and caller cancellation.
func (s *AggregatorService) GetAllQuotes(ctx context.Context, req domain.Request, opts domain.Options) ([]domain.Quote, error) {
	if errs := req.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidRequest, errs[0].Error())
	}
	set, err := s.collect(ctx, req, opts)
	if err != nil {
		return nil, err
	}
	return slices.Clone(set.quotes), nil
}

// GetBestQuotes filters, orders and truncates the merged quote set and
// reports an analysis. It never returns an error: failures are reported
// inside the result.
func (s *AggregatorService) GetBestQuotes(ctx context.Context, req domain.Request, opts domain.Options) (result *domain.BestQuotes) {
	ctx, span := telemetry.StartServiceSpan(ctx, "logistics", "best_quotes",
		telemetry.WithAttribute("destination", req.Destination.CountryCode),
	)
	defer span.End()
	defer func() {
		if rec := recover(); rec != nil {
			logger.Enrich(ctx, s.logger).Error("quote aggregation panicked", zap.Any("panic", rec), zap.Stack("stacktrace"))
			result = failedBestQuotes(shared.NewSystemError(rec))
		}
	}()

	if errs := req.Validate(); len(errs) > 0 {
		logger.Enrich(ctx, s.logger).Info("quote request rejected", zap.Int("violations", len(errs)))
		return failedBestQuotes(errs...)
	}

	set, err := s.collect(ctx, req, opts)
	if err != nil {
		return failedBestQuotes(shared.NewSystemError(err))
	}

	all := slices.Clone(set.quotes)
	filtered := s.rank(all, req, opts)

	result = &domain.BestQuotes{
		Success:  len(all) > 0,
		Quotes:   filtered,
		Analysis: Analyze(all, filtered),
		Errors:   append([]shared.CalculationError{}, set.failures...),
	}
	if len(all) == 0 {
		result.Errors = append(result.Errors, shared.CalculationError{
			Code:     shared.CodeNoQuotes,
			Category: shared.CategoryProvider,
			Message:  "no provider returned a quote",
		})
	}
	telemetry.SetAttributes(span, "quotes", len(all), "from_cache", set.cached)
	return result
}

// rank applies post-filters, ordering and truncation to a private copy
func (s *AggregatorService) rank(all []domain.Quote, req domain.Request, opts domain.Options) []domain.Quote {
	if opts.DeliveryMode == "" {
		opts.DeliveryMode = req.DeliveryMode
	}
	filtered := FilterQuotes(all, opts)
	SortQuotes(filtered, opts.SortBy, s.perf.Reliability)
	if opts.MaxResults > 0 && len(filtered) > opts.MaxResults {
		filtered = filtered[:opts.MaxResults]
	}
	return filtered
}

func failedBestQuotes(errs ...shared.CalculationError) *domain.BestQuotes {
	return &domain.BestQuotes{Success: false, Quotes: []domain.Quote{}, Errors: errs}
}

// CompareDeliveryModes quotes the request once per delivery mode and
// recommends the mode with the lower average net cost.
func (s *AggregatorService) CompareDeliveryModes(ctx context.Context, req domain.Request, opts domain.Options) (cmp *domain.ModeComparison) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Enrich(ctx, s.logger).Error("mode comparison panicked", zap.Any("panic", rec), zap.Stack("stacktrace"))
			cmp = &domain.ModeComparison{Errors: []shared.CalculationError{shared.NewSystemError(rec)}}
		}
	}()

	if errs := req.Validate(); len(errs) > 0 {
		return &domain.ModeComparison{Errors: errs}
	}

	modes := shared.AllDeliveryModes()
	sets := make([]quoteSet, len(modes))
	errs := make([]error, len(modes))
	var wg sync.WaitGroup
	for i, mode := range modes {
		wg.Add(1)
		go func(i int, mode shared.DeliveryMode) {
			defer wg.Done()
			sets[i], errs[i] = s.collect(ctx, req.WithDeliveryMode(mode), opts)
		}(i, mode)
	}
	wg.Wait()

	cmp = &domain.ModeComparison{Success: true, Errors: []shared.CalculationError{}}
	summaries := make([]domain.ModeSummary, len(modes))
	for i, mode := range modes {
		summaries[i] = domain.ModeSummary{Mode: mode}
		if errs[i] != nil {
			cmp.Errors = append(cmp.Errors, shared.NewSystemError(errs[i]))
			continue
		}
		cmp.Errors = append(cmp.Errors, sets[i].failures...)
		modeOpts := opts
		modeOpts.DeliveryMode = mode
		modeOpts.SortBy = domain.SortByCost
		modeOpts.MaxResults = 0
		quotes := s.rank(slices.Clone(sets[i].quotes), req.WithDeliveryMode(mode), modeOpts)
		summaries[i].QuoteCount = len(quotes)
		summaries[i].AverageNetCost = averageNetCost(quotes)
		if len(quotes) > 0 {
			best := quotes[0]
			summaries[i].Best = &best
		}
	}
	cmp.DDP, cmp.DAP = summaries[0], summaries[1]
	recommendMode(cmp)
	return cmp
}

func recommendMode(cmp *domain.ModeComparison) {
	ddp, dap := cmp.DDP.AverageNetCost, cmp.DAP.AverageNetCost
	switch {
	case ddp == nil && dap == nil:
		cmp.Success = false
		cmp.Reason = "no quotes for either delivery mode"
		return
	case dap == nil:
		cmp.Recommended = shared.DeliveryModeDDP
		cmp.Reason = "only DDP services are available"
		return
	case ddp == nil:
		cmp.Recommended = shared.DeliveryModeDAP
		cmp.Reason = "only DAP services are available"
		return
	}

	cheaper, dearer := ddp, dap
	cmp.Recommended = shared.DeliveryModeDDP
	if dap.Amount().LessThan(ddp.Amount()) {
		cheaper, dearer = dap, ddp
		cmp.Recommended = shared.DeliveryModeDAP
	}
	savings := valueobject.FromDecimal(dearer.Amount().Sub(cheaper.Amount()), cheaper.Currency())
	cmp.Savings = &savings
	if dearer.IsPositive() {
		cmp.SavingsPercent = savings.Amount().Mul(decimal.NewFromInt(100)).DivRound(dearer.Amount(), 2)
	}
	cmp.Reason = fmt.Sprintf("%s averages %s, %s%% below %s", cmp.Recommended, cheaper, cmp.SavingsPercent, cmp.Recommended.Opposite())
}

// collect resolves the merged quote set through the caches and a shared
// in-flight fan-out per fingerprint.
func (s *AggregatorService) collect(ctx context.Context, req domain.Request, opts domain.Options) (quoteSet, error) {
	key := domain.Fingerprint(req, opts)
	log := logger.Enrich(ctx, s.logger).With(zap.String("fingerprint", key))

	if opts.CacheEnabled() {
		if quotes, ok := s.local.Get(key); ok {
			log.Debug("quote cache hit")
			s.metrics.RecordQuoteCache(ctx, cacheHitLocal)
			return quoteSet{quotes: quotes, cached: true}, nil
		}
		if s.shared != nil {
			quotes, ok, err := s.shared.GetQuotes(ctx, key)
			if err != nil {
				log.Warn("shared quote cache read failed", zap.Error(err))
			} else if ok {
				log.Debug("shared quote cache hit")
				s.metrics.RecordQuoteCache(ctx, cacheHitShared)
				s.local.Set(key, quotes)
				return quoteSet{quotes: quotes, cached: true}, nil
			}
		}
		s.metrics.RecordQuoteCache(ctx, cacheMiss)
	}

	var providers []domain.CarrierProvider
	for _, p := range s.registry.List() {
		if opts.Eligible(p.ID()) {
			providers = append(providers, p)
		}
	}
	if len(providers) == 0 {
		return quoteSet{failures: []shared.CalculationError{{
			Code:     shared.CodeProviderError,
			Category: shared.CategoryProvider,
			Message:  domain.ErrNoProviders.Error(),
		}}}, nil
	}

	// Callers that bypass the cache share flights only with each other, so
	// a flight started by a caching caller always fills the cache.
	cacheEnabled := opts.CacheEnabled()
	flightKey := key
	if !cacheEnabled {
		flightKey += ":nocache"
	}

	// The fan-out outlives any single waiting caller; provider timeouts bound it.
	fanCtx := context.WithoutCancel(ctx)
	ch := s.group.DoChan(flightKey, func() (any, error) {
		set := s.fanOut(fanCtx, req, providers)
		if cacheEnabled && len(set.quotes) > 0 {
			s.local.Set(key, set.quotes)
			if s.shared != nil {
				if err := s.shared.SetQuotes(fanCtx, key, set.quotes, s.ttl); err != nil {
					log.Warn("shared quote cache write failed", zap.Error(err))
				}
			}
		}
		return set, nil
	})

	select {
	case <-ctx.Done():
		return quoteSet{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return quoteSet{}, res.Err
		}
		set := res.Val.(quoteSet)
		if res.Shared {
			log.Debug("joined in-flight quote fan-out")
		}
		return set, nil
	}
}

// fanOut calls every provider concurrently and waits for all of them
func (s *AggregatorService) fanOut(ctx context.Context, req domain.Request, providers []domain.CarrierProvider) quoteSet {
	start := s.now()
	ctx, span := telemetry.StartServiceSpan(ctx, "logistics", "fanout",
		telemetry.WithAttribute("providers", len(providers)),
	)
	defer span.End()

	results := make([][]domain.Quote, len(providers))
	failures := make([]*shared.CalculationError, len(providers))

	var wg sync.WaitGroup
	for i, p := range providers {
		wg.Add(1)
		go func(i int, p domain.CarrierProvider) {
			defer wg.Done()
			labels := map[string]string{
				telemetry.ProfilingLabelOperation: "quote",
				telemetry.ProfilingLabelProvider:  p.ID(),
			}
			telemetry.WithProfilingLabels(ctx, labels, func(ctx context.Context) {
				quotes, err := s.quoteProvider(ctx, p, req)
				if err != nil {
					ce := domain.ToCalculationError(p.ID(), err)
					failures[i] = &ce
					return
				}
				results[i] = quotes
			})
		}(i, p)
	}
	wg.Wait()

	set := quoteSet{quotes: []domain.Quote{}, failures: []shared.CalculationError{}}
	for i := range providers {
		set.quotes = append(set.quotes, results[i]...)
		if failures[i] != nil {
			set.failures = append(set.failures, *failures[i])
		}
	}
	s.metrics.RecordFanout(ctx, s.now().Sub(start), len(set.quotes))
	telemetry.SetAttributes(span, "quotes", len(set.quotes), "failures", len(set.failures))
	return set
}

// quoteProvider performs one bounded provider call. A timeout, an error or a
// panic all count as a provider failure.
func (s *AggregatorService) quoteProvider(ctx context.Context, p domain.CarrierProvider, req domain.Request) (quotes []domain.Quote, err error) {
	id := p.ID()
	ctx, span := telemetry.StartServiceSpan(ctx, "logistics", "provider_quote",
		telemetry.WithSpanKind(trace.SpanKindClient),
		telemetry.WithAttribute("provider_id", id),
	)
	defer span.End()
	log := logger.Enrich(ctx, s.logger).With(zap.String("provider_id", id))

	defer func() {
		if rec := recover(); rec != nil {
			err = domain.NewProviderError(id, domain.CodeRequestFailed, fmt.Errorf("panic: %v", rec), false)
		}
		if err != nil {
			pe := domain.AsProviderError(id, err)
			log.Warn("provider quote failed", zap.String("error_code", pe.Code), zap.Error(err))
			telemetry.RecordError(span, err)
			s.perf.RecordQuoteFailure(id)
			s.metrics.RecordProviderFailure(ctx, id, pe.Code)
			quotes = nil
			return
		}
		telemetry.SetAttributes(span, "quotes", len(quotes))
		telemetry.SetOK(span)
		s.perf.RecordQuoteSuccess(id)
	}()

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	raw, err := p.GetQuotes(callCtx, req)
	if err != nil {
		return nil, err
	}
	return s.normalize(ctx, p, req, raw), nil
}

// normalize tags quotes with their provider, fills defaults and converts
// prices into the request currency
func (s *AggregatorService) normalize(ctx context.Context, p domain.CarrierProvider, req domain.Request, raw []domain.Quote) []domain.Quote {
	cur := req.QuoteCurrency()
	now := s.now()
	out := make([]domain.Quote, 0, len(raw))
	for _, q := range raw {
		q.ProviderID = p.ID()
		if q.ProviderName == "" {
			q.ProviderName = p.Name()
		}
		if q.ID == "" {
			q.ID = uuid.NewString()
		}
		if q.DeliveryMode == "" {
			q.DeliveryMode = req.DeliveryMode
		}
		if q.CreatedAt.IsZero() {
			q.CreatedAt = now
		}
		if q.ValidUntil.IsZero() {
			q.ValidUntil = now.Add(s.ttl)
		}
		if from := q.Pricing.Currency(); from != "" && from != cur {
			if s.fx == nil {
				s.logger.Warn("dropping quote in foreign currency", zap.String("provider_id", p.ID()), zap.String("currency", from.String()))
				continue
			}
			conv, err := s.fx.ConvertCurrency(ctx, decimal.NewFromInt(1), from, cur)
			if err != nil {
				s.logger.Warn("dropping quote: currency conversion failed", zap.String("provider_id", p.ID()), zap.Error(err))
				continue
			}
			q.Pricing = q.Pricing.Scale(conv.Rate, cur)
		}
		out = append(out, q)
	}
	return out
}

// ---------------------------------------------------------------------------
// Address validation
// ---------------------------------------------------------------------------

// ValidateAddress polls every provider and accepts the address when a strict
// majority of the providers that answered consider it valid.
func (s *AggregatorService) ValidateAddress(ctx context.Context, addr valueobject.Address) (domain.AddressVerdict, error) {
	if err := addr.Validate(); err != nil {
		return domain.AddressVerdict{}, fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err)
	}
	providers := s.registry.List()
	votes := make([]*bool, len(providers))

	var wg sync.WaitGroup
	for i, p := range providers {
		wg.Add(1)
		go func(i int, p domain.CarrierProvider) {
			defer wg.Done()
			defer func() {
				if rec := recover(); rec != nil {
					logger.Enrich(ctx, s.logger).Warn("provider address validation panicked",
						zap.String("provider_id", p.ID()), zap.Any("panic", rec))
				}
			}()
			callCtx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()
			ok, err := p.ValidateAddress(callCtx, addr)
			if err != nil {
				logger.Enrich(ctx, s.logger).Warn("provider address validation failed",
					zap.String("provider_id", p.ID()), zap.Error(err))
				return
			}
			votes[i] = &ok
		}(i, p)
	}
	wg.Wait()

	verdict := domain.AddressVerdict{Votes: make(map[string]bool)}
	for i, v := range votes {
		if v == nil {
			continue
		}
		verdict.Responded++
		verdict.Votes[providers[i].ID()] = *v
		if *v {
			verdict.ValidVotes++
		}
	}
	verdict.Valid = verdict.Responded > 0 && verdict.ValidVotes*2 > verdict.Responded
	return verdict, nil
}

// ---------------------------------------------------------------------------
// Shipments
// ---------------------------------------------------------------------------

func (s *AggregatorService) provider(id string) (domain.CarrierProvider, error) {
	p, err := s.registry.Get(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrProviderNotFound, id)
	}
	return p, nil
}

// CreateShipment books quote with its provider. Expired quotes are rejected.
func (s *AggregatorService) CreateShipment(ctx context.Context, quote domain.Quote, req domain.Request) (*domain.ShipmentOrder, error) {
	if quote.IsExpired(s.now()) {
		return nil, fmt.Errorf("%w: quote %s expired at %s", domain.ErrQuoteExpired, quote.ID, quote.ValidUntil.Format(time.RFC3339))
	}
	if errs := req.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidRequest, errs[0].Error())
	}
	p, err := s.provider(quote.ProviderID)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	order, err := p.CreateShipment(callCtx, quote, req)
	if err != nil {
		s.perf.RecordShipmentFailure(p.ID())
		pe := domain.AsProviderError(p.ID(), err)
		logger.Enrich(ctx, s.logger).Warn("shipment creation failed",
			zap.String("provider_id", p.ID()), zap.String("error_code", pe.Code), zap.Error(err))
		return nil, pe
	}
	s.perf.RecordShipment(p.ID(), quote.NetCost(), quote.Delivery.Days)
	logger.Enrich(ctx, s.logger).Info("shipment created",
		zap.String("provider_id", p.ID()), zap.String("order_id", order.ID), zap.String("tracking_number", order.TrackingNumber))
	return order, nil
}

// CancelShipment cancels a booked shipment
func (s *AggregatorService) CancelShipment(ctx context.Context, providerID, orderID string) error {
	p, err := s.provider(providerID)
	if err != nil {
		return err
	}
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return p.CancelShipment(callCtx, orderID)
}

// TrackShipment returns the checkpoints of a shipment
func (s *AggregatorService) TrackShipment(ctx context.Context, providerID, trackingNumber string) ([]domain.TrackingEvent, error) {
	p, err := s.provider(providerID)
	if err != nil {
		return nil, err
	}
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return p.TrackShipment(callCtx, trackingNumber)
}

// GetShipmentStatus returns the latest status of a shipment
func (s *AggregatorService) GetShipmentStatus(ctx context.Context, providerID, trackingNumber string) (domain.ShipmentStatus, error) {
	p, err := s.provider(providerID)
	if err != nil {
		return "", err
	}
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return p.GetShipmentStatus(callCtx, trackingNumber)
}

// GenerateLabel returns the label download URL of a shipment
func (s *AggregatorService) GenerateLabel(ctx context.Context, providerID, orderID string) (string, error) {
	p, err := s.provider(providerID)
	if err != nil {
		return "", err
	}
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return p.GenerateLabel(callCtx, orderID)
}

// GenerateManifest returns the manifest download URL for a batch of shipments
func (s *AggregatorService) GenerateManifest(ctx context.Context, providerID string, orderIDs []string) (string, error) {
	p, err := s.provider(providerID)
	if err != nil {
		return "", err
	}
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return p.GenerateManifest(callCtx, orderIDs)
}

// ProviderSummary describes a registered carrier
type ProviderSummary struct {
	ID          string                     `json:"id"`
	Name        string                     `json:"name"`
	Reliability float64                    `json:"reliability"`
	Performance domain.ProviderPerformance `json:"performance"`
}

// ListProviders describes every registered carrier in registration order
func (s *AggregatorService) ListProviders() []ProviderSummary {
	providers := s.registry.List()
	out := make([]ProviderSummary, 0, len(providers))
	for _, p := range providers {
		out = append(out, ProviderSummary{
			ID:          p.ID(),
			Name:        p.Name(),
			Reliability: s.perf.Reliability(p.ID()),
			Performance: s.perf.Snapshot(p.ID()),
		})
	}
	return out
}

// AvailableServices lists the service codes every provider offers to countryCode
func (s *AggregatorService) AvailableServices(ctx context.Context, countryCode string) map[string][]string {
	out := make(map[string][]string)
	for _, p := range s.registry.List() {
		callCtx, cancel := context.WithTimeout(ctx, s.timeout)
		services, err := p.GetAvailableServices(callCtx, countryCode)
		cancel()
		if err != nil {
			logger.Enrich(ctx, s.logger).Warn("provider services lookup failed", zap.String("provider_id", p.ID()), zap.Error(err))
			continue
		}
		out[p.ID()] = services
	}
	return out
}
