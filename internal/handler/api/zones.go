package api

import (
	"fmt"
	"net/http"
	"time"

	models "ZonePulse/internal/domain/models"
	drepo "ZonePulse/internal/domain/repository"
	"ZonePulse/internal/service/cache"
	"ZonePulse/internal/service/ratelimit"
	"ZonePulse/internal/usecase"
	xhttp "ZonePulse/pkg/http"
	xlogger "ZonePulse/pkg/logger"

	"github.com/labstack/echo/v4"
)

const zonesCacheTTL = 15 * time.Second

// Per-client budget for the /api group.
const (
	apiBurst      = 20.0
	apiRefillRate = 10.0 // requests per second
)

// ZonesHandler serves the read-only API over the running engine: active
// zones, recent signals, mirrored candle history and liveness.
type ZonesHandler struct {
	logger      *xlogger.Logger
	analyzer    *usecase.SymbolAnalyzer
	dispatcher  *usecase.SignalDispatcher
	coordinator *usecase.Coordinator
	history     drepo.HistoryStore
	cache       *cache.TTLCache
	limiter     *ratelimit.Limiter
}

// NewZonesHandler creates the handler.
func NewZonesHandler(
	logger *xlogger.Logger,
	analyzer *usecase.SymbolAnalyzer,
	dispatcher *usecase.SignalDispatcher,
	coordinator *usecase.Coordinator,
	history drepo.HistoryStore,
) *ZonesHandler {
	return &ZonesHandler{
		logger:      logger,
		analyzer:    analyzer,
		dispatcher:  dispatcher,
		coordinator: coordinator,
		history:     history,
		cache:       cache.NewTTLCache(),
		limiter:     ratelimit.New(),
	}
}

// RegisterRoutes wires the routes into Echo.
func (h *ZonesHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api", h.rateLimit)
	g.GET("/zones", h.Zones)
	g.GET("/signals", h.Signals)
	g.GET("/history", h.History)
	e.GET("/healthz", h.Healthz)
}

// rateLimit applies a token bucket per client IP.
func (h *ZonesHandler) rateLimit(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !h.limiter.Allow(c.RealIP(), apiBurst, apiRefillRate) {
			return c.JSON(http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
		}
		return next(c)
	}
}

// Zones lists the active zones of one (symbol, timeframe). Responses are
// cached briefly; zones only move on analysis passes anyway.
func (h *ZonesHandler) Zones(c echo.Context) error {
	req := &models.ZonesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	tf := drepo.NormalizeTimeframe(req.Timeframe)

	key := fmt.Sprintf("zones:%s:%s", req.Symbol, tf)
	if cached, ok := h.cache.Get(key); ok {
		return xhttp.SuccessResponse(c, cached)
	}

	zones := h.analyzer.ActiveZones(req.Symbol, tf)
	h.cache.Set(key, zones, zonesCacheTTL)
	return xhttp.SuccessResponse(c, zones)
}

// Signals lists the most recent emitted signals, newest last.
func (h *ZonesHandler) Signals(c echo.Context) error {
	req := &models.SignalsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	recent := h.dispatcher.Recent()
	if req.Symbol != "" {
		filtered := recent[:0:0]
		for _, s := range recent {
			if s.Symbol == req.Symbol {
				filtered = append(filtered, s)
			}
		}
		recent = filtered
	}
	if len(recent) > req.Limit {
		recent = recent[len(recent)-req.Limit:]
	}
	return xhttp.SuccessResponse(c, recent)
}

// History returns mirrored candle history for one (symbol, timeframe).
func (h *ZonesHandler) History(c echo.Context) error {
	req := &models.HistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if h.history == nil {
		return xhttp.SuccessResponse(c, []models.Candle{})
	}
	tf := drepo.NormalizeTimeframe(req.Timeframe)

	candles, err := h.history.History(c.Request().Context(), req.Symbol, tf, req.Limit)
	if err != nil {
		h.logger.Error("history query error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}

	// Optional time range; unparseable bounds fall back to the full window.
	start := xhttp.ParseTimeDefault(c.QueryParam("start"), time.Time{})
	end := xhttp.ParseTimeDefault(c.QueryParam("end"), time.Time{})
	if !start.IsZero() || !end.IsZero() {
		// Cut on candle boundaries so a mid-candle bound never drops the
		// candle that contains it.
		start, end = xhttp.AlignFromTo(start, end, tf)
		filtered := candles[:0:0]
		for _, cd := range candles {
			if !start.IsZero() && cd.Timestamp.Before(start) {
				continue
			}
			if !end.IsZero() && cd.Timestamp.After(end) {
				continue
			}
			filtered = append(filtered, cd)
		}
		candles = filtered
	}
	return xhttp.SuccessResponse(c, candles)
}

// Healthz reports engine liveness. Disconnected feed degrades to 503 so
// orchestrators restart the process.
func (h *ZonesHandler) Healthz(c echo.Context) error {
	snap := h.coordinator.Snapshot()
	status := http.StatusOK
	if !snap.Connected {
		status = http.StatusServiceUnavailable
	}
	return c.JSON(status, snap)
}
