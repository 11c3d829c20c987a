package api

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/pv/algoviz-go/internal/listing"
	"github.com/pv/algoviz-go/internal/trace"
)

var (
	// tracesGenerated считает выданные трассы по алгоритму и попаданию в кэш.
	tracesGenerated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "algoviz_traces_generated_total",
		Help: "Traces served by the generator registry",
	}, []string{"algorithm", "cached"})

	traceSnapshots = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "algoviz_trace_snapshots",
		Help:    "Number of snapshots per generated trace",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1 .. 2048
	}, []string{"algorithm"})

	playbackCommands = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "algoviz_playback_commands_total",
		Help: "Playback commands received over HTTP by command and result",
	}, []string{"command", "result"})

	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "algoviz_sessions_active",
		Help: "Visualization sessions currently held by the server",
	})

	streamClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "algoviz_stream_clients",
		Help: "Connected WebSocket stream clients",
	})
)

// ObserveTrace учитывает выдачу трассы. Подключается к generator.WithObserver.
func ObserveTrace(alg listing.Algorithm, tr trace.Trace, cached bool) {
	tracesGenerated.WithLabelValues(string(alg), strconv.FormatBool(cached)).Inc()
	if !cached {
		traceSnapshots.WithLabelValues(string(alg)).Observe(float64(tr.Len()))
	}
}

func observeCommand(command string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	playbackCommands.WithLabelValues(command, result).Inc()
}
