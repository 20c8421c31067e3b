package prometheus

import (
	"math"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	dto "github.com/prometheus/client_model/go"

	"github.com/hdds-team/hdds/pkg/metrics"
)

// rtpsStats is the Prometheus implementation of metrics.Stats. Counters
// feed the /metrics scrape endpoint; a parallel set of atomics backs
// Snapshot() so the stats() query boundary doesn't need to round-trip
// through the Prometheus collector interfaces on every call.
type rtpsStats struct {
	participants prometheus.Gauge
	endpoints    prometheus.Gauge

	samplesSent     *prometheus.CounterVec
	samplesReceived *prometheus.CounterVec
	bytesSent       *prometheus.CounterVec
	bytesReceived   *prometheus.CounterVec
	retransmits     *prometheus.CounterVec
	drops           *prometheus.CounterVec
	rtt             *prometheus.SummaryVec

	snapParticipants int64
	snapEndpoints    int64
	snapSamplesSent  uint64
	snapSamplesRecv  uint64
	snapRetransmits  uint64
	snapDrops        uint64

	rate *rateTracker
}

// NewRTPSStats creates a new Prometheus-backed metrics.Stats instance.
// Returns nil if metrics are not enabled (metrics.InitRegistry(true) not
// called), matching the teacher's NewCacheMetrics/NewNFSMetrics zero-
// overhead-when-disabled convention.
func NewRTPSStats() metrics.Stats {
	if !metrics.IsEnabled() {
		return nil
	}
	reg := metrics.GetRegistry()

	s := &rtpsStats{
		participants: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "hdds_participants",
			Help: "Number of known RTPS participants, including this one.",
		}),
		endpoints: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "hdds_endpoints",
			Help: "Number of known endpoints, local and remote.",
		}),
		samplesSent: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "hdds_samples_sent_total",
			Help: "Total samples handed to a writer's transport send.",
		}, []string{"topic"}),
		samplesReceived: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "hdds_samples_received_total",
			Help: "Total samples delivered to a reader's history cache.",
		}, []string{"topic"}),
		bytesSent: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "hdds_bytes_sent_total",
			Help: "Total payload bytes sent.",
		}, []string{"topic"}),
		bytesReceived: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "hdds_bytes_received_total",
			Help: "Total payload bytes received.",
		}, []string{"topic"}),
		retransmits: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "hdds_retransmits_total",
			Help: "Total HEARTBEAT/NACK-driven resends.",
		}, []string{"topic"}),
		drops: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "hdds_drops_total",
			Help: "Total samples that could not be delivered, by reason.",
		}, []string{"topic", "reason"}),
		rtt: promauto.With(reg).NewSummaryVec(prometheus.SummaryOpts{
			Name:       "hdds_rtt_milliseconds",
			Help:       "Writer-to-reader round-trip time, derived from ACKNACK responses.",
			Objectives: map[float64]float64{0.5: 0.05, 0.99: 0.01},
			MaxAge:     10 * time.Minute,
		}, []string{"topic"}),
	}
	s.rate = newRateTracker()
	return s
}

// Close stops the rate tracker's background sampling goroutine.
func (s *rtpsStats) Close() {
	s.rate.stop()
}

func (s *rtpsStats) SetParticipants(count int) {
	atomic.StoreInt64(&s.snapParticipants, int64(count))
	s.participants.Set(float64(count))
}

func (s *rtpsStats) SetEndpoints(count int) {
	atomic.StoreInt64(&s.snapEndpoints, int64(count))
	s.endpoints.Set(float64(count))
}

func (s *rtpsStats) RecordSampleSent(topic string, bytes int) {
	atomic.AddUint64(&s.snapSamplesSent, 1)
	s.samplesSent.WithLabelValues(topic).Inc()
	s.bytesSent.WithLabelValues(topic).Add(float64(bytes))
	s.rate.observe(bytes)
}

func (s *rtpsStats) RecordSampleReceived(topic string, bytes int) {
	atomic.AddUint64(&s.snapSamplesRecv, 1)
	s.samplesReceived.WithLabelValues(topic).Inc()
	s.bytesReceived.WithLabelValues(topic).Add(float64(bytes))
	s.rate.observe(bytes)
}

func (s *rtpsStats) RecordRetransmit(topic string) {
	atomic.AddUint64(&s.snapRetransmits, 1)
	s.retransmits.WithLabelValues(topic).Inc()
}

func (s *rtpsStats) RecordDrop(topic, reason string) {
	atomic.AddUint64(&s.snapDrops, 1)
	s.drops.WithLabelValues(topic, reason).Inc()
}

func (s *rtpsStats) RecordRTT(topic string, rtt time.Duration) {
	s.rtt.WithLabelValues(topic).Observe(float64(rtt.Microseconds()) / 1000.0)
}

// Snapshot answers the stats() boundary operation. RTT quantiles are read
// back out of the aggregated summary across every topic label combined,
// since the boundary contract has no per-topic dimension.
func (s *rtpsStats) Snapshot() metrics.Snapshot {
	rateBPS, peakBPS := s.rate.values()
	p50, p99 := s.aggregateRTTQuantiles()
	return metrics.Snapshot{
		Participants:    int(atomic.LoadInt64(&s.snapParticipants)),
		Endpoints:       int(atomic.LoadInt64(&s.snapEndpoints)),
		SamplesSent:     atomic.LoadUint64(&s.snapSamplesSent),
		SamplesReceived: atomic.LoadUint64(&s.snapSamplesRecv),
		Retransmits:     atomic.LoadUint64(&s.snapRetransmits),
		Drops:           atomic.LoadUint64(&s.snapDrops),
		RateBPS:         rateBPS,
		PeakRateBPS:     peakBPS,
		RTTMSP50:        p50,
		RTTMSP99:        p99,
	}
}

// aggregateRTTQuantiles collects every topic-labeled summary and returns
// the worst-case (max) p50/p99 across them, via the collector's Write
// method rather than a scrape round-trip.
func (s *rtpsStats) aggregateRTTQuantiles() (p50, p99 float64) {
	metricCh := make(chan prometheus.Metric, 64)
	go func() {
		s.rtt.Collect(metricCh)
		close(metricCh)
	}()

	for m := range metricCh {
		var pb dto.Metric
		if err := m.Write(&pb); err != nil {
			continue
		}
		for _, q := range pb.GetSummary().GetQuantile() {
			v := q.GetValue()
			if math.IsNaN(v) {
				continue
			}
			switch q.GetQuantile() {
			case 0.5:
				if v > p50 {
					p50 = v
				}
			case 0.99:
				if v > p99 {
					p99 = v
				}
			}
		}
	}
	return p50, p99
}
