package rtc

import (
	"context"
	"sync"

	"github.com/dkeye/VideoChat/internal/core"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

type endpoint interface {
	core.Endpoint
	peer() *peerConnection
}

// RemoteStream is a stream the provider announced in a session.
type RemoteStream struct {
	id   string
	name string
}

func (r *RemoteStream) StreamID() string { return r.id }
func (r *RemoteStream) Name() string { return r.name }

// Publisher sends one local camera. It is its own surface: the device
// capture pipeline, which is not part of this module, finds it through the
// attached surface and feeds it with WriteRTP. Until then the track is silent.
type Publisher struct {
	session *Session
	pc      *peerConnection
	track   *webrtc.TrackLocalStaticRTP
	id      string

	closeOnce sync.Once
}

func (p *Publisher) ID() string { return p.id }
func (p *Publisher) StreamID() string { return p.pc.streamID }
func (p *Publisher) Surface() core.Surface { return p }
func (p *Publisher) peer() *peerConnection { return p.pc }

func (p *Publisher) WriteRTP(pkt *rtp.Packet) error {
	if err := p.track.WriteRTP(pkt); err != nil {
		return err
	}
	rtpPackets.WithLabelValues("out").Inc()
	return nil
}

func (p *Publisher) Close() error {
	p.closeOnce.Do(func() {
		p.session.dropEndpoint(p.pc.streamID, msgUnpublish)
		p.pc.close()
	})
	return nil
}

// Subscriber receives one remote stream and hands its packets to the
// transport sink.
type Subscriber struct {
	session *Session
	pc      *peerConnection
	stream  core.RemoteStream
	id      string

	closeOnce sync.Once
}

func (s *Subscriber) ID() string { return s.id }
func (s *Subscriber) Stream() core.RemoteStream { return s.stream }
func (s *Subscriber) Surface() core.Surface { return s }
func (s *Subscriber) peer() *peerConnection { return s.pc }

func (s *Subscriber) Close() error {
	s.closeOnce.Do(func() {
		s.session.dropEndpoint(s.pc.streamID, msgUnsubscribe)
		s.pc.close()
	})
	return nil
}

// forward reads RTP from the remote track until ctx ends or the track fails.
func (s *Subscriber) forward(ctx context.Context, track *webrtc.TrackRemote) {
	sink := s.session.t.Sink
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		pkt, _, err := track.ReadRTP()
		if err != nil {
			log.Debug().Err(err).Str("module", "rtc").Str("stream", s.pc.streamID).Msg("remote track ended")
			return
		}
		rtpPackets.WithLabelValues("in").Inc()
		if sink != nil {
			sink(s, pkt)
		}
	}
}

// drainRTCP keeps the sender's RTCP reader moving so interceptors run.
func drainRTCP(sender *webrtc.RTPSender) {
	buf := make([]byte, 1500)
	for {
		if _, _, err := sender.Read(buf); err != nil {
			return
		}
	}
}
