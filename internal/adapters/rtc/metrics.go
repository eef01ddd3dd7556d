package rtc

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	rtpPackets = promauto.NewCounterVec(prometheus.CounterOpts{
		Name:      "rtp_packets",
		Namespace: "videochat",
		Help:      "RTP packets moved through provider endpoints",
	}, []string{"direction"})
	signalMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name:      "signal_messages",
		Namespace: "videochat",
		Help:      "signaling messages received from the provider",
	}, []string{"type"})
)
