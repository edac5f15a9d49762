package telemetry

import (
	"net/http"

	"TrainAnnouncer/internal/service/announcement"
	"TrainAnnouncer/internal/service/speech"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "train_announcer"

// Metrics: коллекторы приложения на собственном реестре.
type Metrics struct {
	registry *prometheus.Registry

	Announcements    *prometheus.CounterVec
	SpeechResults    *prometheus.CounterVec
	SpeechDuration   prometheus.Histogram
	SpeechQueue      prometheus.Gauge
	ChatCommands     *prometheus.CounterVec
	APIRequests      *prometheus.CounterVec
	APIDuration      *prometheus.HistogramVec
	APIActive        prometheus.Gauge
	EventSubscribers prometheus.Gauge
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		Announcements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "announcements_total",
			Help:      "Announcements sent to speech, by kind.",
		}, []string{"kind"}),
		SpeechResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "speech_results_total",
			Help:      "Speech items processed by the worker, by outcome.",
		}, []string{"outcome"}),
		SpeechDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "speech_duration_seconds",
			Help:      "Time spent rendering a single utterance.",
			Buckets:   []float64{0.05, 0.25, 1, 2.5, 5, 10, 20},
		}),
		SpeechQueue: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "speech_queue_depth",
			Help:      "Utterances waiting in the speech queue.",
		}),
		ChatCommands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_commands_total",
			Help:      "Chat commands received, by command and result.",
		}, []string{"command", "result"}),
		APIRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "HTTP API requests.",
		}, []string{"method", "endpoint", "status"}),
		APIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "api_request_duration_seconds",
			Help:      "HTTP API request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "endpoint", "status"}),
		APIActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "api_active_requests",
			Help:      "HTTP API requests in flight.",
		}),
		EventSubscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "event_subscribers",
			Help:      "Connected websocket state subscribers.",
		}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.Announcements,
		m.SpeechResults,
		m.SpeechDuration,
		m.SpeechQueue,
		m.ChatCommands,
		m.APIRequests,
		m.APIDuration,
		m.APIActive,
		m.EventSubscribers,
	)
	return m
}

// Handler отдаёт метрики в формате Prometheus.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry: для тестов и дополнительных коллекторов.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// ObserveAnnouncement: хук announcer.Options.OnAnnouncement.
func (m *Metrics) ObserveAnnouncement(kind announcement.Kind) {
	m.Announcements.WithLabelValues(string(kind)).Inc()
}

// ObserveEnqueue: хук speech.Options.OnEnqueue.
func (m *Metrics) ObserveEnqueue(depth int) {
	m.SpeechQueue.Set(float64(depth))
}

// ObserveSpeech: хук speech.Options.OnResult.
func (m *Metrics) ObserveSpeech(res speech.Result) {
	outcome := "done"
	switch {
	case res.Err != nil:
		outcome = "failed"
	case res.Interrupted:
		outcome = "interrupted"
	}
	m.SpeechResults.WithLabelValues(outcome).Inc()
	m.SpeechDuration.Observe(res.Duration.Seconds())
}

// ObserveChatCommand: счётчик команд чата.
func (m *Metrics) ObserveChatCommand(command, result string) {
	m.ChatCommands.WithLabelValues(command, result).Inc()
}
