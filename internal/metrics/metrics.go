// ABOUTME: Prometheus metrics for the broadcast sink
// ABOUTME: Counters for frames, concealment, drops and sync state, nil-safe to use
package metrics

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every sink metric. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	FramesDecoded   *prometheus.CounterVec
	FramesConcealed *prometheus.CounterVec
	PacketsStale    prometheus.Counter
	PacketsMissing  prometheus.Counter
	SamplesReceived prometheus.Counter
	SamplesDropped  prometheus.Counter
	Underruns       prometheus.Counter
	Sessions        prometheus.Counter
	SyncLost        prometheus.Counter
	State           prometheus.Gauge
}

// New creates and registers all metrics on a private registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		FramesDecoded: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "leaudio_frames_decoded_total",
			Help: "Total number of received codec frames decoded",
		}, []string{"channel"}),
		FramesConcealed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "leaudio_frames_concealed_total",
			Help: "Total number of frames synthesized by loss concealment",
		}, []string{"channel"}),
		PacketsStale: factory.NewCounter(prometheus.CounterOpts{
			Name: "leaudio_packets_stale_total",
			Help: "Total number of packets dropped because concealment already covered them",
		}),
		PacketsMissing: factory.NewCounter(prometheus.CounterOpts{
			Name: "leaudio_packets_missing_total",
			Help: "Total number of sequence numbers reported missing in gap mode",
		}),
		SamplesReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "leaudio_samples_received_total",
			Help: "Total number of decoded samples offered to the playback buffer",
		}),
		SamplesDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "leaudio_samples_dropped_total",
			Help: "Total number of samples dropped because the playback buffer was full",
		}),
		Underruns: factory.NewCounter(prometheus.CounterOpts{
			Name: "leaudio_playback_underruns_total",
			Help: "Total number of transitions into playback underrun",
		}),
		Sessions: factory.NewCounter(prometheus.CounterOpts{
			Name: "leaudio_sessions_total",
			Help: "Total number of broadcast group syncs established",
		}),
		SyncLost: factory.NewCounter(prometheus.CounterOpts{
			Name: "leaudio_sync_lost_total",
			Help: "Total number of broadcast group syncs lost",
		}),
		State: factory.NewGauge(prometheus.GaugeOpts{
			Name: "leaudio_sink_state",
			Help: "Current sink state as its numeric value",
		}),
	}
}

// Registry returns the registry the metrics live in
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// FrameDecoded counts a received frame on channel ch
func (m *Metrics) FrameDecoded(ch int) {
	if m == nil {
		return
	}
	m.FramesDecoded.WithLabelValues(strconv.Itoa(ch)).Inc()
}

// FrameConcealed counts a concealment frame on channel ch
func (m *Metrics) FrameConcealed(ch int) {
	if m == nil {
		return
	}
	m.FramesConcealed.WithLabelValues(strconv.Itoa(ch)).Inc()
}

// PacketStale counts a packet dropped as stale
func (m *Metrics) PacketStale() {
	if m == nil {
		return
	}
	m.PacketsStale.Inc()
}

// Missing counts sequence numbers reported missing
func (m *Metrics) Missing(n int) {
	if m == nil {
		return
	}
	m.PacketsMissing.Add(float64(n))
}

// Samples records samples offered to and dropped by the playback buffer
func (m *Metrics) Samples(received, dropped int) {
	if m == nil {
		return
	}
	m.SamplesReceived.Add(float64(received))
	m.SamplesDropped.Add(float64(dropped))
}

// Underrun counts a transition into underrun
func (m *Metrics) Underrun() {
	if m == nil {
		return
	}
	m.Underruns.Inc()
}

// SessionStarted counts an established group sync
func (m *Metrics) SessionStarted() {
	if m == nil {
		return
	}
	m.Sessions.Inc()
}

// SessionLost counts a lost group sync
func (m *Metrics) SessionLost() {
	if m == nil {
		return
	}
	m.SyncLost.Inc()
}

// SetState records the current state value
func (m *Metrics) SetState(state int) {
	if m == nil {
		return
	}
	m.State.Set(float64(state))
}

// Serve exposes /metrics on addr until ctx is cancelled
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Printf("Serving metrics on %s/metrics", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
