package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	coremetrics "github.com/evbridge/skoda-mqtt/core/metrics"
	"github.com/evbridge/skoda-mqtt/core/model"
)

// PromSink records bridge activity in Prometheus metrics.
type PromSink struct {
	polls     *prometheus.CounterVec
	pollTimes *prometheus.HistogramVec
	commands  *prometheus.CounterVec
	soc       prometheus.Gauge
	rangeKm   prometheus.Gauge
	charging  prometheus.Gauge
	pluggedIn prometheus.Gauge
}

// NewPromSink registers bridge metrics on the default Prometheus registerer.
// The Prometheus server should be started separately using cfg.PrometheusPort.
func NewPromSink(cfg coremetrics.Config) (coremetrics.Sink, error) {
	return NewPromSinkWithRegistry(cfg, prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(cfg coremetrics.Config, reg prometheus.Registerer) (coremetrics.Sink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{
		polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bridge_polls_total",
			Help: "Total number of vehicle status fetches",
		}, []string{"success"}),
		pollTimes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bridge_poll_duration_seconds",
			Help:    "Duration of vehicle status fetch and publish cycles",
			Buckets: prometheus.DefBuckets,
		}, []string{"success"}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bridge_commands_total",
			Help: "Total number of handled vehicle commands",
		}, []string{"action", "outcome"}),
		soc: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vehicle_battery_soc_percent",
			Help: "Battery state of charge of the last published snapshot",
		}),
		rangeKm: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vehicle_battery_range_km",
			Help: "Estimated range of the last published snapshot",
		}),
		charging: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vehicle_charging",
			Help: "1 when the vehicle reports an active charging session",
		}),
		pluggedIn: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vehicle_plugged_in",
			Help: "1 when the vehicle reports a connected cable",
		}),
	}

	collectors := []prometheus.Collector{
		s.polls, s.pollTimes, s.commands, s.soc, s.rangeKm, s.charging, s.pluggedIn,
	}
	for i, col := range collectors {
		if err := reg.Register(col); err != nil {
			are, ok := err.(prometheus.AlreadyRegisteredError)
			if !ok {
				return nil, err
			}
			switch i {
			case 0:
				s.polls = are.ExistingCollector.(*prometheus.CounterVec)
			case 1:
				s.pollTimes = are.ExistingCollector.(*prometheus.HistogramVec)
			case 2:
				s.commands = are.ExistingCollector.(*prometheus.CounterVec)
			case 3:
				s.soc = are.ExistingCollector.(prometheus.Gauge)
			case 4:
				s.rangeKm = are.ExistingCollector.(prometheus.Gauge)
			case 5:
				s.charging = are.ExistingCollector.(prometheus.Gauge)
			case 6:
				s.pluggedIn = are.ExistingCollector.(prometheus.Gauge)
			}
		}
	}
	return s, nil
}

// RecordPoll increments the poll counter and duration histogram.
func (s *PromSink) RecordPoll(success bool, duration time.Duration) error {
	label := strconv.FormatBool(success)
	s.polls.WithLabelValues(label).Inc()
	s.pollTimes.WithLabelValues(label).Observe(duration.Seconds())
	return nil
}

// RecordCommand increments the command counter.
func (s *PromSink) RecordCommand(action string, outcome string) error {
	s.commands.WithLabelValues(action, outcome).Inc()
	return nil
}

// RecordState updates the vehicle gauges from the published snapshot.
func (s *PromSink) RecordState(st model.VehicleState) error {
	s.soc.Set(float64(st.Battery.SoC))
	s.rangeKm.Set(float64(st.Battery.RangeKm))
	s.charging.Set(boolGauge(st.Battery.Charging))
	s.pluggedIn.Set(boolGauge(st.Battery.PluggedIn))
	return nil
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// StartPromServer exposes /metrics until the context is cancelled.
func StartPromServer(ctx context.Context, port string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: ":" + port, Handler: mux}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
