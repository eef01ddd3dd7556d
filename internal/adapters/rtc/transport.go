// Package rtc is the provider transport: a JSON-over-WebSocket signaling
// session per camera slot, with one pion PeerConnection per endpoint.
package rtc

import (
	"context"
	"time"

	"github.com/dkeye/VideoChat/internal/core"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
)

// Sink receives RTP from subscribed remote streams, tagged with the surface
// that renders them. The renderer lives outside this module and installs
// itself on Transport.Sink; with no sink the packets are counted and dropped.
type Sink func(surface core.Surface, pkt *rtp.Packet)

type Transport struct {
	SignalURL string
	WebRTC    webrtc.Configuration
	Dialer    *websocket.Dialer
	ReadLimit int64
	Sink      Sink

	ctx context.Context
	api *webrtc.API
}

var _ core.Transport = (*Transport)(nil)

// NewTransport binds every session it opens to ctx.
func NewTransport(ctx context.Context, signalURL string, cfg webrtc.Configuration) (*Transport, error) {
	m := &webrtc.MediaEngine{}
	if err := m.RegisterDefaultCodecs(); err != nil {
		return nil, err
	}
	return &Transport{
		SignalURL: signalURL,
		WebRTC:    cfg,
		Dialer:    &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		ReadLimit: 32768,
		ctx:       ctx,
		api:       webrtc.NewAPI(webrtc.WithMediaEngine(m)),
	}, nil
}

func (t *Transport) NewSession(cfg core.SessionConfig, events core.TransportEvents) (core.TransportSession, error) {
	ctx, cancel := context.WithCancel(t.ctx)
	return &Session{
		id:        uuid.NewString(),
		cfg:       cfg,
		events:    events,
		t:         t,
		ctx:       ctx,
		cancel:    cancel,
		send:      make(chan []byte, 32),
		endpoints: make(map[string]endpoint),
		streams:   make(map[string]*RemoteStream),
	}, nil
}
