package metrics

import "github.com/prometheus/client_golang/prometheus"

var Verifications = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "mailprobe",
		Name:      "verifications_total",
		Help:      "Completed verifications by final status",
	},
	[]string{"status"},
)

var CacheReads = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "mailprobe",
		Subsystem: "cache",
		Name:      "reads_total",
		Help:      "Verdict cache reads by result (hit, miss, error)",
	},
	[]string{"result"},
)

var Probes = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "mailprobe",
		Subsystem: "smtp",
		Name:      "probes_total",
		Help:      "SMTP probes by outcome class",
	},
	[]string{"outcome"},
)

var MXLookups = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "mailprobe",
		Subsystem: "dns",
		Name:      "mx_lookups_total",
		Help:      "MX resolutions by result (memo_hit, resolved, none)",
	},
	[]string{"result"},
)

var RateLimited = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "mailprobe",
		Name:      "ratelimited_total",
		Help:      "Requests rejected with 429 by endpoint",
	},
	[]string{"endpoint"},
)

func init() {
	prometheus.MustRegister(Verifications)
	prometheus.MustRegister(CacheReads)
	prometheus.MustRegister(Probes)
	prometheus.MustRegister(MXLookups)
	prometheus.MustRegister(RateLimited)
}
