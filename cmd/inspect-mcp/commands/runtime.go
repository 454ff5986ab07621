package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"

	"inspect-mcp/internal/clock"
	"inspect-mcp/internal/config"
	"inspect-mcp/internal/inspection"
	"inspect-mcp/internal/metrics"
	"inspect-mcp/internal/override"
	"inspect-mcp/internal/store"
	"inspect-mcp/internal/store/filestore"
	"inspect-mcp/internal/store/redisstore"
)

const (
	reportLockTTL  = 30 * time.Second
	reportLockWait = 5 * time.Second
)

type runtime struct {
	engine   *inspection.Engine
	registry *prometheus.Registry
	closers  []func() error
}

func (r *runtime) Close() {
	for _, c := range r.closers {
		if err := c(); err != nil {
			log.Warn().Err(err).Msg("Error while shutting down")
		}
	}
}

// buildRuntime wires the configured store, metrics and clock into an engine.
func buildRuntime(ctx context.Context, cfg *config.AppConfig) (*runtime, error) {
	rt := &runtime{registry: prometheus.NewRegistry()}
	rt.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	opts := []inspection.Option{
		inspection.WithClock(clock.System{Location: cfg.Location}),
		inspection.WithLedger(override.NewLedger(cfg.OverrideTTL)),
		inspection.WithMetrics(metrics.New(rt.registry)),
		inspection.WithScope(store.Scope{OrgID: cfg.OrgID, UserID: cfg.UserID}),
		inspection.WithInspector(cfg.InspectorName),
		inspection.WithDefaultSettings(cfg.Lights),
	}

	var st store.Store
	switch cfg.Backend {
	case config.BackendRedis:
		rs, err := redisstore.Connect(ctx, cfg.Redis, cfg.Lights)
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, rs.Close)
		if cfg.ReportLock {
			opts = append(opts, inspection.WithLocker(redisstore.NewLocker(rs.Client(), cfg.Redis.Prefix, reportLockTTL, reportLockWait)))
		}
		st = rs
	default:
		fs, err := filestore.Open(cfg.StoreDir, cfg.Lights)
		if err != nil {
			return nil, fmt.Errorf("failed to open file store: %w", err)
		}
		if cfg.ReportLock {
			log.Warn().Msg("REPORT_LOCK only applies to the redis store; ignoring")
		}
		st = fs
	}

	rt.engine = inspection.New(st, opts...)
	return rt, nil
}
