package db

import (
	"github.com/prometheus/client_golang/prometheus"
)

// RegisterPoolMetrics exposes connection pool gauges read from stats at
// scrape time.
func RegisterPoolMetrics(reg prometheus.Registerer, namespace string, stats func() *PoolStats) error {
	gauge := func(name, help string, value func(*PoolStats) float64) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "db_pool",
			Name:      name,
			Help:      help,
		}, func() float64 { return value(stats()) })
	}

	collectors := []prometheus.Collector{
		gauge("total_conns", "Connections currently open.", func(s *PoolStats) float64 { return float64(s.TotalConns) }),
		gauge("idle_conns", "Idle connections.", func(s *PoolStats) float64 { return float64(s.IdleConns) }),
		gauge("acquired_conns", "Connections checked out by queries.", func(s *PoolStats) float64 { return float64(s.AcquiredConns) }),
		gauge("max_conns", "Configured pool size.", func(s *PoolStats) float64 { return float64(s.MaxConns) }),
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
