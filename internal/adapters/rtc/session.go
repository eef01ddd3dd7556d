package rtc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dkeye/VideoChat/internal/core"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	ErrSessionClosed    = errors.New("session closed")
	ErrNotConnected     = errors.New("session not connected")
	ErrAlreadyConnected = errors.New("connect already issued")
	ErrBackpressure     = errors.New("signal send buffer full")
	ErrProvider         = errors.New("provider error")
)

// Session is one signaling connection to the provider. Events are
// delivered from the read loop goroutine, never from inside a Session call.
type Session struct {
	id     string
	cfg    core.SessionConfig
	events core.TransportEvents
	t      *Transport

	ctx    context.Context
	cancel context.CancelFunc
	send   chan []byte

	disconnectOnce sync.Once

	mu           sync.Mutex
	started      bool
	connected    bool
	closed       bool
	connectionID string
	endpoints    map[string]endpoint
	streams      map[string]*RemoteStream
}

var _ core.TransportSession = (*Session)(nil)

func (s *Session) ID() string { return s.id }

func (s *Session) ConnectionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connectionID
}

func (s *Session) logger() zerolog.Logger {
	return log.With().Str("module", "rtc").Str("session_id", s.cfg.SessionID).Str("sid", s.id).Logger()
}

// Connect queues the connect request and dials in the background. The
// outcome arrives as OnSessionConnected or OnSessionFailed.
func (s *Session) Connect(token string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.started {
		s.mu.Unlock()
		return ErrAlreadyConnected
	}
	s.started = true
	s.mu.Unlock()

	if err := s.enqueue(message{
		Type:      msgConnect,
		APIKey:    s.cfg.APIKey,
		SessionID: s.cfg.SessionID,
		Token:     token,
	}); err != nil {
		return err
	}
	go s.run()
	return nil
}

func (s *Session) run() {
	lg := s.logger()
	conn, _, err := s.t.Dialer.DialContext(s.ctx, s.t.SignalURL, nil)
	if err != nil {
		if s.isClosed() {
			return
		}
		lg.Error().Err(err).Msg("dial signal")
		s.events.OnSessionFailed(s, fmt.Errorf("dial signal: %w", err))
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = conn.Close()
		return
	}
	s.mu.Unlock()

	if s.t.ReadLimit > 0 {
		conn.SetReadLimit(s.t.ReadLimit)
	}
	go s.writePump(conn)
	s.readPump(conn)
}

// writePump owns all writes to conn. It drains the queue and closes the
// socket once Disconnect closes the channel.
func (s *Session) writePump(conn *websocket.Conn) {
	lg := s.logger()
	defer func() {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		_ = conn.Close()
	}()
	for data := range s.send {
		if err := conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
			lg.Error().Err(err).Msg("writePump set deadline")
			return
		}
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			lg.Error().Err(err).Msg("writePump write error")
			return
		}
	}
}

func (s *Session) readPump(conn *websocket.Conn) {
	lg := s.logger()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if s.isClosed() {
				lg.Debug().Msg("readPump closing")
				return
			}
			lg.Error().Err(err).Msg("readPump read error")
			s.events.OnSessionFailed(s, fmt.Errorf("signal lost: %w", err))
			return
		}
		s.handleMessage(data)
	}
}

func (s *Session) handleMessage(data []byte) {
	lg := s.logger()
	var m message
	if err := json.Unmarshal(data, &m); err != nil {
		lg.Error().Err(err).Msg("bad json")
		return
	}
	if s.isClosed() {
		return
	}
	signalMessages.WithLabelValues(m.Type).Inc()

	switch m.Type {
	case msgConnected:
		s.mu.Lock()
		s.connected = true
		s.connectionID = m.ConnectionID
		s.mu.Unlock()
		s.events.OnSessionConnected(s)
	case msgDisconnected:
		s.events.OnSessionDisconnected(s)
	case msgStreamCreated:
		s.mu.Lock()
		if _, own := s.endpoints[m.StreamID]; own {
			s.mu.Unlock()
			return
		}
		stream := &RemoteStream{id: m.StreamID, name: m.Name}
		s.streams[m.StreamID] = stream
		s.mu.Unlock()
		s.events.OnStreamAnnounced(s, stream)
	case msgStreamDestroyed:
		s.mu.Lock()
		stream, ok := s.streams[m.StreamID]
		if !ok {
			stream = &RemoteStream{id: m.StreamID}
		}
		delete(s.streams, m.StreamID)
		s.mu.Unlock()
		s.events.OnStreamDestroyed(s, stream)
	case msgAnswer:
		ep := s.endpoint(m.StreamID)
		if ep == nil {
			lg.Warn().Str("stream", m.StreamID).Msg("answer for unknown stream")
			return
		}
		if err := ep.peer().applyAnswer(m.SDP); err != nil {
			s.events.OnEndpointFailed(ep, fmt.Errorf("apply answer: %w", err))
		}
	case msgCandidate:
		ep := s.endpoint(m.StreamID)
		if ep == nil {
			return
		}
		if err := ep.peer().addICECandidate(m.candidateInit()); err != nil {
			lg.Warn().Err(err).Str("stream", m.StreamID).Msg("add candidate")
		}
	case msgError:
		err := fmt.Errorf("%w: %s", ErrProvider, m.Error)
		if m.StreamID != "" {
			if ep := s.endpoint(m.StreamID); ep != nil {
				s.events.OnEndpointFailed(ep, err)
				return
			}
		}
		s.events.OnSessionFailed(s, err)
	default:
		lg.Warn().Str("type", m.Type).Msg("unknown signal")
	}
}

// Publish opens a send-only peer carrying one H264 track and offers it.
func (s *Session) Publish(settings core.PublisherSettings) (core.Endpoint, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	streamID := uuid.NewString()
	pc, err := newPeerConnection(s.t.api, s.t.WebRTC, streamID)
	if err != nil {
		return nil, err
	}
	track, err := webrtc.NewTrackLocalStaticRTP(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeH264, ClockRate: 90000},
		"video", streamID)
	if err != nil {
		pc.close()
		return nil, err
	}
	sender, err := pc.pc.AddTrack(track)
	if err != nil {
		pc.close()
		return nil, err
	}
	go drainRTCP(sender)

	p := &Publisher{session: s, pc: pc, track: track, id: uuid.NewString()}
	pc.onICE = func(ci webrtc.ICECandidateInit) { _ = s.enqueue(candidateMessage(streamID, ci)) }
	pc.onFailed = func(err error) { s.events.OnEndpointFailed(p, err) }
	pc.start(s.ctx)

	offer, err := pc.createAndSetOffer()
	if err != nil {
		pc.close()
		return nil, err
	}
	s.addEndpoint(streamID, p)
	if err := s.enqueue(message{
		Type:     msgPublish,
		StreamID: streamID,
		Name:     settings.Name,
		Facing:   settings.Facing.String(),
		SDP:      offer.SDP,
	}); err != nil {
		s.removeEndpoint(streamID)
		pc.close()
		return nil, err
	}
	l := s.logger()
	l.Info().Str("stream", streamID).Str("facing", settings.Facing.String()).Msg("publishing")
	return p, nil
}

// Subscribe opens a receive-only peer for a remote stream.
func (s *Session) Subscribe(stream core.RemoteStream) (core.Endpoint, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	streamID := stream.StreamID()
	pc, err := newPeerConnection(s.t.api, s.t.WebRTC, streamID)
	if err != nil {
		return nil, err
	}
	if _, err := pc.pc.AddTransceiverFromKind(webrtc.RTPCodecTypeVideo, webrtc.RTPTransceiverInit{
		Direction: webrtc.RTPTransceiverDirectionRecvonly,
	}); err != nil {
		pc.close()
		return nil, err
	}

	sub := &Subscriber{session: s, pc: pc, stream: stream, id: uuid.NewString()}
	pc.onICE = func(ci webrtc.ICECandidateInit) { _ = s.enqueue(candidateMessage(streamID, ci)) }
	pc.onTrack = func(ctx context.Context, track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		sub.forward(ctx, track)
	}
	pc.onFailed = func(err error) { s.events.OnEndpointFailed(sub, err) }
	pc.start(s.ctx)

	offer, err := pc.createAndSetOffer()
	if err != nil {
		pc.close()
		return nil, err
	}
	s.addEndpoint(streamID, sub)
	if err := s.enqueue(message{Type: msgSubscribe, StreamID: streamID, SDP: offer.SDP}); err != nil {
		s.removeEndpoint(streamID)
		pc.close()
		return nil, err
	}
	l := s.logger()
	l.Info().Str("stream", streamID).Msg("subscribing")
	return sub, nil
}

// Disconnect closes every endpoint, says goodbye and releases the socket.
// It fires no events and is safe to call more than once.
func (s *Session) Disconnect() error {
	s.disconnectOnce.Do(func() {
		s.mu.Lock()
		eps := make([]endpoint, 0, len(s.endpoints))
		for _, ep := range s.endpoints {
			eps = append(eps, ep)
		}
		s.mu.Unlock()
		for _, ep := range eps {
			_ = ep.Close()
		}

		if s.isStarted() {
			_ = s.enqueue(message{Type: msgDisconnect})
		}

		s.mu.Lock()
		s.closed = true
		s.connected = false
		close(s.send)
		s.mu.Unlock()
		s.cancel()
		l := s.logger()
		l.Info().Msg("disconnected")
	})
	return nil
}

func (s *Session) enqueue(m message) error {
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	select {
	case s.send <- b:
		return nil
	default:
		return ErrBackpressure
	}
}

func (s *Session) ready() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.closed:
		return ErrSessionClosed
	case !s.connected:
		return ErrNotConnected
	}
	return nil
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) isStarted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

func (s *Session) endpoint(streamID string) endpoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.endpoints[streamID]
}

func (s *Session) addEndpoint(streamID string, ep endpoint) {
	s.mu.Lock()
	s.endpoints[streamID] = ep
	s.mu.Unlock()
}

func (s *Session) removeEndpoint(streamID string) {
	s.mu.Lock()
	delete(s.endpoints, streamID)
	s.mu.Unlock()
}

// dropEndpoint forgets an endpoint and tells the provider, if still open.
func (s *Session) dropEndpoint(streamID, msgType string) {
	s.removeEndpoint(streamID)
	_ = s.enqueue(message{Type: msgType, StreamID: streamID})
}
