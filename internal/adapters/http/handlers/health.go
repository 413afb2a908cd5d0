// Package handlers implements the quote API and the /-/ probe endpoints.
package handlers

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jsamuelsen/quotebook/internal/ports"
)

// DefaultProbeTimeout bounds a readiness request; a store that does not answer
// in time counts as down.
const DefaultProbeTimeout = 2 * time.Second

// BuildInfo is served on /-/build. Version, Commit and BuildTime come from
// ldflags.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
}

// NewBuildInfo fills in the Go version of the running binary.
func NewBuildInfo(version, commit, buildTime string) BuildInfo {
	return BuildInfo{
		Version:   version,
		Commit:    commit,
		BuildTime: buildTime,
		GoVersion: runtime.Version(),
	}
}

// HealthHandler serves liveness, readiness, build info and metrics.
type HealthHandler struct {
	registry     ports.HealthRegistry
	buildInfo    BuildInfo
	gatherer     prometheus.Gatherer
	probeTimeout time.Duration
	startedAt    time.Time
}

// HealthOption customizes a HealthHandler.
type HealthOption func(*HealthHandler)

// WithGatherer serves /-/metrics from g instead of the default registry.
func WithGatherer(g prometheus.Gatherer) HealthOption {
	return func(h *HealthHandler) { h.gatherer = g }
}

// WithProbeTimeout overrides DefaultProbeTimeout. Zero disables the bound.
func WithProbeTimeout(d time.Duration) HealthOption {
	return func(h *HealthHandler) { h.probeTimeout = d }
}

func NewHealthHandler(registry ports.HealthRegistry, buildInfo BuildInfo, opts ...HealthOption) *HealthHandler {
	h := &HealthHandler{
		registry:     registry,
		buildInfo:    buildInfo,
		gatherer:     prometheus.DefaultGatherer,
		probeTimeout: DefaultProbeTimeout,
		startedAt:    time.Now(),
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

type livenessResponse struct {
	Status string `json:"status"`
	Uptime string `json:"uptime"`
}

// Liveness answers 200 while the process runs. It touches no dependency.
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, livenessResponse{
		Status: "ok",
		Uptime: time.Since(h.startedAt).Truncate(time.Second).String(),
	})
}

type readinessResponse struct {
	Status string                        `json:"status"`
	Checks map[string]*ports.CheckResult `json:"checks,omitempty"`
}

// Readiness runs the registered checks. Only a failing critical check (the
// quote store) answers 503; a failing optional one (the cache) reports
// "degraded" with 200, since quotes are still served from the store.
func (h *HealthHandler) Readiness(c *gin.Context) {
	ctx := c.Request.Context()

	if h.probeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.probeTimeout)

		defer cancel()
	}

	result := h.registry.CheckAll(ctx)

	code := http.StatusOK
	if result.Status == ports.HealthStatusUnhealthy {
		code = http.StatusServiceUnavailable
	}

	c.Header("Cache-Control", "no-store")
	c.JSON(code, readinessResponse{Status: string(result.Status), Checks: result.Checks})
}

// BuildInfoHandler serves /-/build.
func (h *HealthHandler) BuildInfoHandler(c *gin.Context) {
	c.JSON(http.StatusOK, h.buildInfo)
}

// MetricsHandler exposes the handler's gatherer in the Prometheus text format.
func (h *HealthHandler) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{})
}

// Register adds live, ready, build and metrics to rg.
func (h *HealthHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/live", h.Liveness)
	rg.GET("/ready", h.Readiness)
	rg.GET("/build", h.BuildInfoHandler)
	rg.GET("/metrics", gin.WrapH(h.MetricsHandler()))
}

// Mount registers the probe routes under /-/ on engine.
func (h *HealthHandler) Mount(engine *gin.Engine) {
	h.Register(engine.Group("/-"))
}
