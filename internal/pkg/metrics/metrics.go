package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "staymap",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "staymap",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	httpResponseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "staymap",
		Subsystem: "http",
		Name:      "response_size_bytes",
		Help:      "HTTP response size in bytes",
		Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
	}, []string{"method", "path"})

	// Marker engine metrics
	MarkersDisplaced = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "staymap",
		Subsystem: "markers",
		Name:      "displaced_total",
		Help:      "Total markers moved away from their true position",
	}, []string{"view"})

	MarkersPassthrough = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "staymap",
		Subsystem: "markers",
		Name:      "passthrough_total",
		Help:      "Total markers returned untouched because their coordinates were unusable",
	}, []string{"view"})

	SeparationFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "staymap",
		Subsystem: "markers",
		Name:      "separation_fallbacks_total",
		Help:      "Total markers placed on their last candidate after every attempt collided",
	}, []string{"view"})

	SpreadGroups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "staymap",
		Subsystem: "markers",
		Name:      "spread_groups_total",
		Help:      "Total groups of markers sharing one coordinate fanned out on a circle",
	}, []string{"view"})

	RenderDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "staymap",
		Subsystem: "markers",
		Name:      "render_duration_seconds",
		Help:      "Time spent obfuscating and spreading one marker set",
		Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
	}, []string{"view"})

	// Listing sync metrics
	ListingsSynced = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "staymap",
		Subsystem: "sync",
		Name:      "listings_total",
		Help:      "Total listings processed by the listing sync",
	}, []string{"result"})

	SyncDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "staymap",
		Subsystem: "sync",
		Name:      "duration_seconds",
		Help:      "Duration of a listing sync fetch",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
	})

	SyncErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "staymap",
		Subsystem: "sync",
		Name:      "errors_total",
		Help:      "Total listing source errors",
	})

	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "staymap",
		Subsystem: "ws",
		Name:      "active_connections",
		Help:      "Current number of active WebSocket connections",
	})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "staymap",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total cache hits",
	}, []string{"operation"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "staymap",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total cache misses",
	}, []string{"operation"})

	// Database pool metrics
	DBPoolConnsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "staymap",
		Subsystem: "db",
		Name:      "pool_conns_open",
		Help:      "Total connections open in the database pool",
	})

	DBPoolConnsAcquired = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "staymap",
		Subsystem: "db",
		Name:      "pool_conns_acquired",
		Help:      "Connections currently acquired from the database pool",
	})

	DBPoolConnsIdle = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "staymap",
		Subsystem: "db",
		Name:      "pool_conns_idle",
		Help:      "Idle connections in the database pool",
	})
)

// Middleware records request metrics.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Response().StatusCode())
		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		method := c.Method()

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(duration)
		httpResponseSize.WithLabelValues(method, path).Observe(float64(len(c.Response().Body())))

		return err
	}
}

// Handler returns a Fiber handler serving Prometheus /metrics endpoint.
func Handler() fiber.Handler {
	handler := promhttp.Handler()
	return func(c *fiber.Ctx) error {
		fasthttpadaptor.NewFastHTTPHandler(handler)(c.Context())
		return nil
	}
}

// ObserveRender records the outcome of one marker render for a map view.
func ObserveRender(view string, displaced, passthrough, fallbacks, groups int, elapsed time.Duration) {
	MarkersDisplaced.WithLabelValues(view).Add(float64(displaced))
	MarkersPassthrough.WithLabelValues(view).Add(float64(passthrough))
	SeparationFallbacks.WithLabelValues(view).Add(float64(fallbacks))
	SpreadGroups.WithLabelValues(view).Add(float64(groups))
	RenderDuration.WithLabelValues(view).Observe(elapsed.Seconds())
}

// UpdateDBPoolMetrics updates database pool metrics from pgx pool stats.
// The stat is matched structurally so this package does not import pgxpool.
func UpdateDBPoolMetrics(stat interface{}) {
	type poolStat interface {
		AcquiredConns() int32
		IdleConns() int32
		TotalConns() int32
	}

	if s, ok := stat.(poolStat); ok {
		DBPoolConnsAcquired.Set(float64(s.AcquiredConns()))
		DBPoolConnsIdle.Set(float64(s.IdleConns()))
		DBPoolConnsOpen.Set(float64(s.TotalConns()))
	}
}
