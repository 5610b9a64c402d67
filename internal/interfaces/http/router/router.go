// Package router assembles the gin engine of the decisioning API.
package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/xborder/backend/internal/infrastructure/config"
	"github.com/xborder/backend/internal/infrastructure/logger"
	"github.com/xborder/backend/internal/interfaces/http/handler"
	"github.com/xborder/backend/internal/interfaces/http/middleware"
)

// RouteRegistrar attaches routes to the versioned API group
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Handlers are the API handlers to mount. Nil handlers leave their routes out.
type Handlers struct {
	Tax         *handler.TaxHandler
	Quotes      *handler.QuoteHandler
	Integration *handler.IntegrationHandler
	Shipments   *handler.ShipmentHandler
	Health      *handler.HealthHandler
}

// Option configures the engine
type Option func(*options)

type options struct {
	apiVersion  string
	serviceName string
	metrics     *middleware.HTTPMetrics
	swagger     bool
	extra       []RouteRegistrar
}

// WithAPIVersion sets the API version prefix (e.g. "v1")
func WithAPIVersion(version string) Option {
	return func(o *options) {
		if version != "" {
			o.apiVersion = version
		}
	}
}

// WithServiceName names the service on server spans
func WithServiceName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.serviceName = name
		}
	}
}

// WithMetrics records request metrics
func WithMetrics(m *middleware.HTTPMetrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithSwagger serves the registered API docs under /swagger
func WithSwagger(enabled bool) Option {
	return func(o *options) {
		o.swagger = enabled
	}
}

// WithRegistrar mounts additional routes under the API group
func WithRegistrar(r RouteRegistrar) Option {
	return func(o *options) {
		o.extra = append(o.extra, r)
	}
}

// New builds the engine: middleware chain, API routes and the health route
func New(cfg config.HTTPConfig, tracingEnabled bool, log *zap.Logger, h Handlers, opts ...Option) *gin.Engine {
	o := &options{apiVersion: "v1", serviceName: "xborder"}
	for _, opt := range opts {
		opt(o)
	}
	if log == nil {
		log = zap.NewNop()
	}
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		log.Warn("invalid trusted proxies, trusting none", zap.Error(err))
		_ = engine.SetTrustedProxies(nil)
	}
	engine.Use(
		middleware.RequestID(),
		logger.Recovery(log),
		middleware.Tracing(o.serviceName, tracingEnabled),
		middleware.SpanEnricher(),
		o.metrics.Middleware(),
		logger.GinMiddleware(log),
		middleware.Secure(),
	)
	if cfg.MaxBodySize > 0 {
		engine.Use(middleware.BodyLimit(cfg.MaxBodySize))
	}
	if cfg.RateLimitEnabled {
		engine.Use(middleware.RateLimit(middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow)))
	}
	engine.NoRoute(middleware.NoRoute())

	if h.Health != nil {
		engine.GET("/health", h.Health.Health)
	}
	if o.swagger {
		engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := engine.Group("/api/" + o.apiVersion)
	for _, r := range append(apiGroups(h), o.extra...) {
		r.RegisterRoutes(api)
	}
	return engine
}

// apiGroups maps the handlers onto their route groups
func apiGroups(h Handlers) []RouteRegistrar {
	var groups []RouteRegistrar
	if h.Tax != nil {
		groups = append(groups,
			NewDomainGroup("tax", "/tax").POST("/calculate", h.Tax.Calculate),
			NewDomainGroup("compliance", "/compliance").POST("/validate", h.Tax.ValidateCompliance),
		)
	}
	if h.Quotes != nil {
		groups = append(groups,
			NewDomainGroup("quotes", "/quotes").
				POST("", h.Quotes.GetAll).
				POST("/best", h.Quotes.GetBest).
				POST("/compare-modes", h.Quotes.CompareModes),
			NewDomainGroup("addresses", "/addresses").POST("/validate", h.Quotes.ValidateAddress),
			NewDomainGroup("providers", "/providers").GET("", h.Quotes.ListProviders),
			NewDomainGroup("services", "/services").GET("", h.Quotes.ListServices),
		)
	}
	if h.Integration != nil {
		groups = append(groups, NewDomainGroup("integrated-quotes", "/integrated-quotes").
			POST("", h.Integration.GetIntegratedQuotes).
			POST("/compare-modes", h.Integration.CompareModes))
	}
	if h.Shipments != nil {
		groups = append(groups,
			NewDomainGroup("shipments", "/shipments").
				POST("", h.Shipments.Book).
				POST("/:provider/:id/cancel", h.Shipments.Cancel).
				GET("/:provider/:id/label", h.Shipments.Label),
			NewDomainGroup("tracking", "/tracking").GET("/:provider/:number", h.Shipments.Track),
			NewDomainGroup("manifests", "/manifests").POST("/:provider", h.Shipments.Manifest),
		)
	}
	return groups
}

// Server wraps the engine in an http.Server listening on port
func Server(port string, cfg config.HTTPConfig, engine http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + port,
		Handler:           engine,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: min(cfg.ReadTimeout, 10*time.Second),
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}
}

// ---------------------------------------------------------------------------
// Domain groups
// ---------------------------------------------------------------------------

// DomainGroup collects the routes of one resource under a prefix
type DomainGroup struct {
	name       string
	prefix     string
	routes     []routeDefinition
	middleware []gin.HandlerFunc
}

type routeDefinition struct {
	method   string
	path     string
	handlers []gin.HandlerFunc
}

// NewDomainGroup creates a route group
func NewDomainGroup(name, prefix string) *DomainGroup {
	return &DomainGroup{name: name, prefix: prefix}
}

// Use adds middleware to this group
func (dg *DomainGroup) Use(middleware ...gin.HandlerFunc) *DomainGroup {
	dg.middleware = append(dg.middleware, middleware...)
	return dg
}

// GET registers a GET route
func (dg *DomainGroup) GET(path string, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.handle(http.MethodGet, path, handlers)
}

// POST registers a POST route
func (dg *DomainGroup) POST(path string, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.handle(http.MethodPost, path, handlers)
}

func (dg *DomainGroup) handle(method, path string, handlers []gin.HandlerFunc) *DomainGroup {
	dg.routes = append(dg.routes, routeDefinition{method: method, path: path, handlers: handlers})
	return dg
}

// RegisterRoutes implements RouteRegistrar
func (dg *DomainGroup) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group(dg.prefix, dg.middleware...)
	for _, route := range dg.routes {
		group.Handle(route.method, route.path, route.handlers...)
	}
}

// Name returns the group name
func (dg *DomainGroup) Name() string {
	return dg.name
}
