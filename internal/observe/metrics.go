package observe

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	opsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rosmcp_ops_total",
			Help: "Total operations executed by name",
		},
		[]string{"name"},
	)

	opErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rosmcp_op_errors_total",
			Help: "Total operation errors by reason",
		},
		[]string{"reason"}, // invalid_args|not_found|connection|broker|handler
	)

	framesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rosmcp_frames_total",
			Help: "Total inbound frames by op",
		},
		[]string{"op"},
	)

	decodeErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rosmcp_decode_errors_total",
		Help: "Total inbound frames dropped as undecodable",
	})

	reconnectsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rosmcp_reconnects_total",
		Help: "Total bridge reconnect attempts after a lost connection",
	})

	pendingInflight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "rosmcp_pending_inflight",
		Help: "Correlated requests currently awaiting a response",
	})

	subMessagesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rosmcp_subscription_messages_total",
		Help: "Total messages collected across subscription windows",
	})
)

func init() {
	prometheus.MustRegister(
		opsTotal,
		opErrorsTotal,
		framesTotal,
		decodeErrorsTotal,
		reconnectsTotal,
		pendingInflight,
		subMessagesTotal,
	)
}

func IncOp(name string)          { opsTotal.WithLabelValues(name).Inc() }
func IncOpError(reason string)   { opErrorsTotal.WithLabelValues(reason).Inc() }
func IncFrame(op string)         { framesTotal.WithLabelValues(op).Inc() }
func IncDecodeError()            { decodeErrorsTotal.Inc() }
func IncReconnect()              { reconnectsTotal.Inc() }
func AddPending(delta float64)   { pendingInflight.Add(delta) }
func IncSubMessage()             { subMessagesTotal.Inc() }
