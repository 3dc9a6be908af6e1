package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"WindowOpt/internal/domain/models"
	"WindowOpt/internal/service/metrics"
	"WindowOpt/internal/service/ratelimit"
	xhttp "WindowOpt/pkg/http"
	applogger "WindowOpt/pkg/logger"
	"WindowOpt/pkg/queue"
)

// OptimizationService is what the HTTP layer needs from the optimizer use case.
type OptimizationService interface {
	Resolve(ctx context.Context, symbol, period string) (models.SymbolOptimization, error)
	Refresh(ctx context.Context, symbol, period string) (models.SymbolOptimization, error)
	Series(ctx context.Context, symbol, period string) (models.AnnotatedSeries, error)
	Position(ctx context.Context, symbol, period string) (models.PositionSignal, error)
}

// HealthFunc reports whether a dependency is usable.
type HealthFunc func(ctx context.Context) error

// HandlerOption configures OptimizationHandler.
type HandlerOption func(*OptimizationHandler)

// WithRefreshLimit sets the per-symbol refresh token bucket.
func WithRefreshLimit(burst, perSecond float64) HandlerOption {
	return func(h *OptimizationHandler) { h.rl = ratelimit.New(burst, perSecond) }
}

func WithHealthCheck(name string, fn HealthFunc) HandlerOption {
	return func(h *OptimizationHandler) { h.health[name] = fn }
}

// WithRefreshQueue enables POST .../refresh?async=true, which enqueues jobType
// instead of recomputing inline.
func WithRefreshQueue(q queue.Enqueuer, jobType string) HandlerOption {
	return func(h *OptimizationHandler) {
		h.queue = q
		h.jobType = jobType
	}
}

func WithLogger(l *applogger.Logger) HandlerOption {
	return func(h *OptimizationHandler) { h.l = l }
}

// OptimizationHandler serves optimizations, annotated series and positions over Echo.
type OptimizationHandler struct {
	svc     OptimizationService
	rl      *ratelimit.Limiter
	queue   queue.Enqueuer
	jobType string
	health  map[string]HealthFunc
	l       *applogger.Logger
}

func NewOptimizationHandler(svc OptimizationService, opts ...HandlerOption) *OptimizationHandler {
	metrics.Register()
	h := &OptimizationHandler{
		svc:    svc,
		rl:     ratelimit.New(2, 1.0/60),
		health: make(map[string]HealthFunc),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *OptimizationHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)

	g := e.Group("/api/optimizations")
	g.GET("/:symbol", h.Get)
	g.POST("/:symbol/refresh", h.Refresh)
	g.GET("/:symbol/series", h.Series)
	g.GET("/:symbol/position", h.Position)
}

// Get resolves the stored optimization, computing it on first request.
func (h *OptimizationHandler) Get(c echo.Context) error {
	defer observe("get", time.Now())
	req := &models.OptimizationRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	rec, err := h.svc.Resolve(c.Request().Context(), req.Symbol, req.Period)
	if err != nil {
		return h.fail(c, "get", req.Symbol, err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "public, max-age=300")
	return xhttp.SuccessResponse(c, NewOptimizationView(rec))
}

// Refresh recomputes and overwrites the optimization, or queues the work when
// async is set.
func (h *OptimizationHandler) Refresh(c echo.Context) error {
	defer observe("refresh", time.Now())
	req := &models.RefreshRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	sym, err := models.NormalizeSymbol(req.Symbol)
	if err != nil {
		return h.fail(c, "refresh", req.Symbol, err)
	}
	if !h.rl.Allow(sym) {
		metrics.RefreshThrottled.Inc()
		wait := h.rl.RetryAfter(sym)
		c.Response().Header().Set("Retry-After", strconv.Itoa(int(wait.Seconds())+1))
		return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("refresh rate limited").
			WithParam("symbol", sym).
			WithParam("retry_after_seconds", int(wait.Seconds())+1))
	}

	if req.Async {
		return h.enqueueRefresh(c, sym, req.Period)
	}

	rec, err := h.svc.Refresh(c.Request().Context(), sym, req.Period)
	if err != nil {
		return h.fail(c, "refresh", sym, err)
	}
	return xhttp.SuccessResponse(c, NewOptimizationView(rec))
}

func (h *OptimizationHandler) enqueueRefresh(c echo.Context, sym, period string) error {
	if h.queue == nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("asynchronous refresh is not enabled").
			WithParam("symbol", sym))
	}
	id, err := h.queue.Enqueue(c.Request().Context(), h.jobType, models.RefreshMessage{Symbol: sym, Period: period})
	if err != nil {
		return h.fail(c, "refresh", sym, err)
	}
	if h.l != nil {
		h.l.Info("refresh queued", applogger.String("symbol", sym), applogger.String("job_id", id))
	}
	return xhttp.DataResponse(c, http.StatusAccepted, RefreshQueuedView{Symbol: sym, Period: period, JobID: id})
}

// Series returns the annotated price series, optionally only the last `limit` bars.
func (h *OptimizationHandler) Series(c echo.Context) error {
	defer observe("series", time.Now())
	req := &models.SeriesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	out, err := h.svc.Series(c.Request().Context(), req.Symbol, req.Period)
	if err != nil {
		return h.fail(c, "series", req.Symbol, err)
	}
	if req.Limit > 0 && len(out.Bars) > req.Limit {
		out.Bars = out.Bars[len(out.Bars)-req.Limit:]
	}
	return xhttp.SuccessResponse(c, out)
}

// Position reports the current LONG/FLAT stance of the preferred strategy.
func (h *OptimizationHandler) Position(c echo.Context) error {
	defer observe("position", time.Now())
	req := &models.OptimizationRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	sig, err := h.svc.Position(c.Request().Context(), req.Symbol, req.Period)
	if err != nil {
		return h.fail(c, "position", req.Symbol, err)
	}
	return xhttp.SuccessResponse(c, NewPositionView(sig))
}

func (h *OptimizationHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	checks := make(map[string]string, len(h.health))
	healthy := true
	for name, fn := range h.health {
		if err := fn(ctx); err != nil {
			healthy = false
			checks[name] = err.Error()
			continue
		}
		checks[name] = "ok"
	}
	if !healthy {
		return xhttp.DataResponse(c, http.StatusServiceUnavailable, checks)
	}
	return xhttp.SuccessResponse(c, checks)
}

func (h *OptimizationHandler) fail(c echo.Context, endpoint, symbol string, err error) error {
	appErr := toAppError(err).WithParam("symbol", symbol)
	metrics.EndpointErrors.WithLabelValues(endpoint, appErr.Code).Inc()
	if h.l != nil {
		log := h.l.Warn
		if appErr.Status >= http.StatusInternalServerError {
			log = h.l.Error
		}
		log("optimization request failed",
			applogger.String("endpoint", endpoint),
			applogger.String("symbol", symbol),
			applogger.Int("status", appErr.Status),
			applogger.Error(err))
	}
	return xhttp.AppErrorResponse(c, appErr)
}

func toAppError(err error) *xhttp.AppError {
	switch {
	case errors.Is(err, models.ErrInvalidSymbol):
		return xhttp.BadRequestError("invalid symbol").WithError(err)
	case errors.Is(err, models.ErrInvalidPeriod):
		return xhttp.BadRequestError("invalid period").WithError(err)
	case errors.Is(err, models.ErrNotFound):
		return xhttp.NotFoundError("optimization not found").WithError(err)
	case errors.Is(err, models.ErrRefreshInProgress):
		return xhttp.ConflictError("refresh already in progress").WithError(err)
	case errors.Is(err, models.ErrInsufficientHistory):
		return xhttp.NewAppError("ERR_INSUFFICIENT_HISTORY", "period", "not enough price history", http.StatusUnprocessableEntity).WithError(err)
	case errors.Is(err, models.ErrUpstreamUnavailable):
		return xhttp.BadGatewayError("price history unavailable").WithError(err)
	case errors.Is(err, context.DeadlineExceeded):
		return xhttp.GatewayTimeoutError("optimization timed out").WithError(err)
	default:
		return xhttp.InternalError("optimization failed").WithError(err)
	}
}

func observe(endpoint string, start time.Time) {
	metrics.EndpointLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}
