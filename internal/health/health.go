// Package health exposes the standard gRPC health service, fed by periodic
// health checks of the storefront's dependencies.
package health

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

const checkTimeout = 2 * time.Second

// Check pings one dependency. A nil error means healthy.
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

// Monitor keeps the health status of each check, and of the whole process
// under the empty service name.
type Monitor struct {
	srv    *grpchealth.Server
	checks []Check

	mu      sync.Mutex
	lastErr map[string]error
}

func NewMonitor(checks ...Check) *Monitor {
	m := &Monitor{
		srv:     grpchealth.NewServer(),
		checks:  checks,
		lastErr: make(map[string]error),
	}
	m.srv.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	for _, c := range checks {
		m.srv.SetServingStatus(c.Name, healthpb.HealthCheckResponse_NOT_SERVING)
	}
	return m
}

// NewGRPCServer returns a traced gRPC server with the health and reflection
// services registered.
func NewGRPCServer(m *Monitor) *grpc.Server {
	s := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthpb.RegisterHealthServer(s, m.srv)
	reflection.Register(s)
	return s
}

// CheckOnce runs every check and updates the serving status. It reports
// whether all checks passed.
func (m *Monitor) CheckOnce(ctx context.Context) bool {
	const op = "Monitor.CheckOnce"
	log := slog.With("op", op)

	healthy := true
	for _, c := range m.checks {
		pctx, cancel := context.WithTimeout(ctx, checkTimeout)
		err := c.Ping(pctx)
		cancel()

		status := healthpb.HealthCheckResponse_SERVING
		if err != nil {
			status = healthpb.HealthCheckResponse_NOT_SERVING
			healthy = false
		}
		m.srv.SetServingStatus(c.Name, status)

		if m.changed(c.Name, err) {
			if err != nil {
				log.WarnContext(ctx, "dependency unhealthy", "check", c.Name, "error", err)
			} else {
				log.InfoContext(ctx, "dependency healthy", "check", c.Name)
			}
		}
	}

	overall := healthpb.HealthCheckResponse_SERVING
	if !healthy {
		overall = healthpb.HealthCheckResponse_NOT_SERVING
	}
	m.srv.SetServingStatus("", overall)
	return healthy
}

// Run checks every interval until ctx is done, then marks everything as not
// serving.
func (m *Monitor) Run(ctx context.Context, interval time.Duration) {
	m.CheckOnce(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.CheckOnce(ctx)
		case <-ctx.Done():
			m.srv.Shutdown()
			return
		}
	}
}

func (m *Monitor) changed(name string, err error) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev, seen := m.lastErr[name]
	m.lastErr[name] = err
	return !seen || (prev == nil) != (err == nil)
}
