package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"appgate/internal/config"
	"appgate/internal/license"
)

// Default page locations the gate redirects between.
const (
	ErrorPagePath  = "/license-error"
	ObtainPagePath = "/license"
	RootPath       = "/"
)

// maxCacheEntries bounds the decision cache. With the header-sourced
// strategy the cache key is client-controlled, so the map must not
// grow with whatever keys a scanner sends.
const maxCacheEntries = 1024

// Gate is the license-enforcement middleware applied to every
// request. In production it consults the configured license validator
// and blocks anything that does not resolve to an explicitly valid
// state; outside production it always passes through.
type Gate struct {
	validator license.Validator
	logger    *slog.Logger
	enabled   bool

	errorPage  string
	obtainPage string

	cacheTTL        time.Duration
	failureCacheTTL time.Duration

	cacheMu sync.RWMutex
	cache   map[string]gateCacheEntry

	// validationMu serializes live validations so a cold cache does
	// not fan a request burst out to the licensing service.
	validationMu sync.Mutex

	metrics *GateMetrics
	now     func() time.Time

	skipPaths    []string
	skipPrefixes []string
	licensePages []string
}

// gateCacheEntry is a cached decision with its check time.
type gateCacheEntry struct {
	status    license.Status
	checkedAt time.Time
}

// GateMetrics holds OpenTelemetry metrics for the gate.
type GateMetrics struct {
	RequestsTotal      metric.Int64Counter
	ValidationAttempts metric.Int64Counter
	ValidationFailures metric.Int64Counter
	ValidationDuration metric.Float64Histogram
	CacheHits          metric.Int64Counter
	CacheMisses        metric.Int64Counter
	RedirectsTotal     metric.Int64Counter
}

// NewGateMetrics registers the gate's instruments on the given meter.
func NewGateMetrics(meter metric.Meter) (*GateMetrics, error) {
	m := &GateMetrics{}
	var err error

	if m.RequestsTotal, err = meter.Int64Counter("gate_requests_total"); err != nil {
		return nil, fmt.Errorf("failed to create counter: %w", err)
	}
	if m.ValidationAttempts, err = meter.Int64Counter("gate_validation_attempts_total"); err != nil {
		return nil, fmt.Errorf("failed to create counter: %w", err)
	}
	if m.ValidationFailures, err = meter.Int64Counter("gate_validation_failures_total"); err != nil {
		return nil, fmt.Errorf("failed to create counter: %w", err)
	}
	if m.ValidationDuration, err = meter.Float64Histogram("gate_validation_duration_seconds"); err != nil {
		return nil, fmt.Errorf("failed to create histogram: %w", err)
	}
	if m.CacheHits, err = meter.Int64Counter("gate_cache_hits_total"); err != nil {
		return nil, fmt.Errorf("failed to create counter: %w", err)
	}
	if m.CacheMisses, err = meter.Int64Counter("gate_cache_misses_total"); err != nil {
		return nil, fmt.Errorf("failed to create counter: %w", err)
	}
	if m.RedirectsTotal, err = meter.Int64Counter("gate_redirects_total"); err != nil {
		return nil, fmt.Errorf("failed to create counter: %w", err)
	}

	return m, nil
}

// NewGate creates the request gate. The validator and configuration
// are fixed for the process lifetime.
func NewGate(validator license.Validator, cfg *config.Config, logger *slog.Logger) *Gate {
	return &Gate{
		validator:       validator,
		logger:          logger.With(slog.String("component", "license_gate")),
		enabled:         cfg.IsProduction(),
		errorPage:       ErrorPagePath,
		obtainPage:      ObtainPagePath,
		cacheTTL:        cfg.License.CacheTTL,
		failureCacheTTL: cfg.License.FailureCacheTTL,
		cache:           make(map[string]gateCacheEntry),
		now:             time.Now,
		skipPaths: []string{
			"/api/health",
			"/metrics",
			"/favicon.ico",
			"/robots.txt",
		},
		skipPrefixes: []string{
			"/static/",
			"/assets/",
		},
		licensePages: []string{
			ErrorPagePath,
			ObtainPagePath,
		},
	}
}

// SetMetrics attaches OpenTelemetry metrics to the gate.
func (g *Gate) SetMetrics(metrics *GateMetrics) {
	g.metrics = metrics
}

// Handler returns the middleware handler. The decision is terminal in
// one pass: pass through, redirect to the application root, or
// redirect to a license page.
func (g *Gate) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if g.metrics != nil {
			g.metrics.RequestsTotal.Add(ctx, 1, metric.WithAttributes(
				attribute.String("method", r.Method)))
		}

		// Validation only runs in production; local development
		// always passes through.
		if !g.enabled {
			next.ServeHTTP(w, r)
			return
		}

		path := r.URL.Path

		// Infrastructure endpoints and static assets never consult
		// the validator.
		if g.shouldSkip(path) {
			next.ServeHTTP(w, r)
			return
		}

		status := g.resolve(r)

		if g.isLicensePage(path) {
			// A validly licensed deployment must not expose its own
			// error page.
			if status.Passes() {
				g.redirect(w, r, RootPath, "licensed")
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		if status.Passes() {
			next.ServeHTTP(w, r)
			return
		}

		// Fail-closed: Invalid and Unverifiable both block. The
		// specific reason stays in the server log.
		g.logger.WarnContext(ctx, "request blocked by license gate",
			slog.String("path", path),
			slog.String("state", status.State.String()),
			slog.String("reason", string(status.Reason)))

		if status.Reason == license.ReasonMissingKey {
			g.redirect(w, r, g.obtainPage, string(status.Reason))
			return
		}
		g.redirect(w, r, g.errorPage, string(status.Reason))
	})
}

// resolve returns the license status for the request, reusing a
// recent decision when the cache window allows.
func (g *Gate) resolve(r *http.Request) license.Status {
	ctx := r.Context()
	key := g.validator.CacheKey(r)

	if status, ok := g.cached(key); ok {
		if g.metrics != nil {
			g.metrics.CacheHits.Add(ctx, 1)
		}
		return status
	}

	if g.metrics != nil {
		g.metrics.CacheMisses.Add(ctx, 1)
	}

	g.validationMu.Lock()
	defer g.validationMu.Unlock()

	// Double-check after acquiring the lock; another request may
	// have validated in the meantime.
	if status, ok := g.cached(key); ok {
		if g.metrics != nil {
			g.metrics.CacheHits.Add(ctx, 1)
		}
		return status
	}

	start := g.now()
	status := g.validator.Check(ctx, r)
	elapsed := g.now().Sub(start)

	if g.metrics != nil {
		g.metrics.ValidationAttempts.Add(ctx, 1)
		g.metrics.ValidationDuration.Record(ctx, elapsed.Seconds())
		if !status.Passes() {
			g.metrics.ValidationFailures.Add(ctx, 1, metric.WithAttributes(
				attribute.String("state", status.State.String()),
				attribute.String("reason", string(status.Reason))))
		}
	}

	g.logger.InfoContext(ctx, "license validation performed",
		slog.String("state", status.State.String()),
		slog.String("reason", string(status.Reason)),
		slog.Duration("duration", elapsed))

	g.store(key, status)

	return status
}

// store caches a decision, first evicting every entry whose window has
// passed. Once the map is at capacity, new keyed entries are dropped
// rather than retained; the process-wide entry (empty key) is always
// kept.
func (g *Gate) store(key string, status license.Status) {
	g.cacheMu.Lock()
	defer g.cacheMu.Unlock()

	now := g.now()
	for k, entry := range g.cache {
		if now.Sub(entry.checkedAt) > g.ttlFor(entry.status) {
			delete(g.cache, k)
		}
	}

	if key != "" && len(g.cache) >= maxCacheEntries {
		return
	}
	g.cache[key] = gateCacheEntry{status: status, checkedAt: now}
}

// cached returns a still-fresh decision for the key.
func (g *Gate) cached(key string) (license.Status, bool) {
	g.cacheMu.RLock()
	defer g.cacheMu.RUnlock()

	entry, ok := g.cache[key]
	if !ok {
		return license.Status{}, false
	}
	if g.now().Sub(entry.checkedAt) > g.ttlFor(entry.status) {
		return license.Status{}, false
	}

	return entry.status, true
}

// ttlFor returns how long a decision may be reused. Failing states
// live shorter so a corrected license re-validates promptly.
func (g *Gate) ttlFor(status license.Status) time.Duration {
	if status.Passes() {
		return g.cacheTTL
	}
	return g.failureCacheTTL
}

// InvalidateCache drops all cached decisions.
func (g *Gate) InvalidateCache() {
	g.cacheMu.Lock()
	defer g.cacheMu.Unlock()
	g.cache = make(map[string]gateCacheEntry)
}

func (g *Gate) shouldSkip(path string) bool {
	for _, p := range g.skipPaths {
		if path == p {
			return true
		}
	}
	for _, prefix := range g.skipPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func (g *Gate) isLicensePage(path string) bool {
	for _, p := range g.licensePages {
		if path == p {
			return true
		}
	}
	return false
}

func (g *Gate) redirect(w http.ResponseWriter, r *http.Request, target, reason string) {
	if g.metrics != nil {
		g.metrics.RedirectsTotal.Add(r.Context(), 1, metric.WithAttributes(
			attribute.String("target", target),
			attribute.String("reason", reason)))
	}
	http.Redirect(w, r, target, http.StatusTemporaryRedirect)
}
