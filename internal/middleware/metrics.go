package middleware

import (
	"sync"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
)

var (
	promOnce sync.Once
	prom     *fiberprometheus.FiberPrometheus
)

// InitMetrics creates the HTTP metrics collector for serviceName. Collectors
// live in the default Prometheus registry, so the first instance is shared
// by every later call.
func InitMetrics(serviceName string) *fiberprometheus.FiberPrometheus {
	promOnce.Do(func() {
		prom = fiberprometheus.New(serviceName)
		prom.SetSkipPaths([]string{"/metrics", "/health/live", "/health/ready"})
	})
	return prom
}

// MetricsMiddleware records request counts and latencies.
func MetricsMiddleware(prom *fiberprometheus.FiberPrometheus) fiber.Handler {
	return prom.Middleware
}
