package rtc

import (
	"context"
	"errors"
	"sync"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

var ErrPeerFailed = errors.New("peer connection failed")

// peerConnection wraps one pion PeerConnection owned by an endpoint.
type peerConnection struct {
	pc       *webrtc.PeerConnection
	streamID string
	cancel   context.CancelFunc

	onICE    func(webrtc.ICECandidateInit)
	onTrack  func(ctx context.Context, track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver)
	onFailed func(error)

	closeOnce sync.Once
	mu        sync.Mutex
	closed    bool
}

func DefaultWebRTCConfig(iceServers []string) webrtc.Configuration {
	if len(iceServers) == 0 {
		iceServers = []string{"stun:stun.l.google.com:19302"}
	}
	return webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{
			{
				URLs: iceServers,
			},
		},
	}
}

func newPeerConnection(api *webrtc.API, cfg webrtc.Configuration, streamID string) (*peerConnection, error) {
	pc, err := api.NewPeerConnection(cfg)
	if err != nil {
		return nil, err
	}
	return &peerConnection{pc: pc, streamID: streamID}, nil
}

// start registers pion callbacks. The callbacks must be set before start.
func (c *peerConnection) start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	c.pc.OnICEConnectionStateChange(func(s webrtc.ICEConnectionState) {
		log.Debug().Str("module", "rtc").Str("stream", c.streamID).Str("ice_state", s.String()).Msg("ICE state")
	})

	c.pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		log.Info().Str("module", "rtc").Str("stream", c.streamID).Str("peer_connection_state", s.String()).Msg("Peer state")
		if s != webrtc.PeerConnectionStateFailed {
			return
		}
		cancel()
		if c.isClosed() || c.onFailed == nil {
			return
		}
		c.onFailed(ErrPeerFailed)
	})

	c.pc.OnICECandidate(func(cand *webrtc.ICECandidate) {
		if cand != nil && c.onICE != nil {
			c.onICE(cand.ToJSON())
		}
	})

	c.pc.OnTrack(func(track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver) {
		log.Info().
			Str("module", "rtc").
			Str("stream", c.streamID).
			Str("kind", track.Kind().String()).
			Str("track_id", track.ID()).
			Msg("OnTrack received")
		if c.onTrack != nil {
			c.onTrack(ctx, track, receiver)
		}
	})
}

func (c *peerConnection) createAndSetOffer() (*webrtc.SessionDescription, error) {
	offer, err := c.pc.CreateOffer(nil)
	if err != nil {
		return nil, err
	}
	if err := c.pc.SetLocalDescription(offer); err != nil {
		return nil, err
	}
	return c.pc.LocalDescription(), nil
}

func (c *peerConnection) applyAnswer(sdp string) error {
	return c.pc.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.SDPTypeAnswer,
		SDP:  sdp,
	})
}

func (c *peerConnection) addICECandidate(ci webrtc.ICECandidateInit) error {
	return c.pc.AddICECandidate(ci)
}

func (c *peerConnection) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *peerConnection) close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()

		if c.cancel != nil {
			c.cancel()
		}
		if err := c.pc.Close(); err != nil {
			log.Error().Err(err).Str("module", "rtc").Str("stream", c.streamID).Msg("close error")
		} else {
			log.Info().Str("module", "rtc").Str("stream", c.streamID).Msg("closed")
		}
	})
}
