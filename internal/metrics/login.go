package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Login-flow Prometheus metrics. These are defined in a standalone package to avoid
// import cycles between services and HTTP packages.

var (
	LoginStarts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "social_login_starts_total",
		Help: "Redirecciones iniciadas hacia un provider",
	}, []string{"provider"})

	CallbackResults = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "social_login_callbacks_total",
		Help: "Callbacks procesados por provider y resultado (success, provider_failure, finder_failure, error)",
	}, []string{"provider", "result"})

	CallbackLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "social_login_callback_latency_ms",
		Help:    "Latencia del callback completo en milisegundos",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	})
)

// RegisterLogin registers the login metrics on the given registry (or default if nil).
func RegisterLogin(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{LoginStarts, CallbackResults, CallbackLatency} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}
