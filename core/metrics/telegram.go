package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(handlerTotal)
}

var handlerTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "handler_total",
		Help:      "Handled updates by handler name and outcome.",
	},
	[]string{"handler", "outcome"},
)

// ObserveHandler counts one handled update.
func ObserveHandler(handler, outcome string) {
	handlerTotal.WithLabelValues(norm(handler), norm(outcome)).Inc()
}
