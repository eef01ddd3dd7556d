// Package slot models one camera binding: an immutable identity plus the
// transport handles it currently owns.
//
// A CameraSlot is not safe for concurrent use. The session coordinator owns
// every slot it is given and serializes all transitions.
package slot

import (
	"fmt"

	"github.com/dkeye/VideoChat/internal/app/resolver"
	"github.com/dkeye/VideoChat/internal/core"
	"github.com/dkeye/VideoChat/internal/domain"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Identity is what a slot is. It never changes after creation.
type Identity struct {
	Index     int
	Role      domain.Role
	SessionID string
	Token     string
	APIKey    string
	Region    domain.DisplayRegion
	Facing    domain.CameraFacing
}

type CameraSlot struct {
	id Identity

	state    domain.SlotState
	session  core.TransportSession
	endpoint core.Endpoint
	stream   core.RemoteStream
	lastErr  error
}

func New(id Identity) *CameraSlot {
	return &CameraSlot{id: id, state: domain.SlotIdle}
}

// Create builds a slot for role from a credential, placing it with r.
func Create(role domain.Role, index int, cred domain.Credential, apiKey string, r resolver.Resolver) *CameraSlot {
	p := r.Resolve(index)
	return New(Identity{
		Index:     index,
		Role:      role,
		SessionID: cred.SessionID,
		Token:     cred.TokenFor(role),
		APIKey:    apiKey,
		Region:    domain.DisplayRegion{Panel: domain.PanelFor(role), Cell: p.RegionID},
		Facing:    p.Facing,
	})
}

func (s *CameraSlot) Identity() Identity { return s.id }
func (s *CameraSlot) Role() domain.Role { return s.id.Role }
func (s *CameraSlot) State() domain.SlotState { return s.state }
func (s *CameraSlot) Session() core.TransportSession { return s.session }
func (s *CameraSlot) Endpoint() core.Endpoint { return s.endpoint }
func (s *CameraSlot) Stream() core.RemoteStream { return s.stream }
func (s *CameraSlot) LastError() error { return s.lastErr }
func (s *CameraSlot) Closed() bool { return s.state == domain.SlotClosed }

func (s *CameraSlot) Info() core.SlotInfo {
	return core.SlotInfo{
		Index:     s.id.Index,
		Role:      s.id.Role,
		Region:    s.id.Region,
		Facing:    s.id.Facing,
		SessionID: s.id.SessionID,
	}
}

// BeginConnect opens the provider session and issues the connect. It does
// not wait: the result arrives as a transport event.
func (s *CameraSlot) BeginConnect(t core.Transport, events core.TransportEvents) (core.TransportSession, error) {
	if s.state != domain.SlotIdle {
		return nil, fmt.Errorf("%w: begin connect in %s", domain.ErrInvalidState, s.state)
	}
	sess, err := t.NewSession(core.SessionConfig{APIKey: s.id.APIKey, SessionID: s.id.SessionID}, events)
	if err != nil {
		return nil, fmt.Errorf("%w: new session: %v", domain.ErrConnectFailure, err)
	}
	if err := sess.Connect(s.id.Token); err != nil {
		_ = sess.Disconnect()
		return nil, fmt.Errorf("%w: %v", domain.ErrConnectFailure, err)
	}
	s.session = sess
	s.state = domain.SlotConnecting
	s.logger().Debug().Str("session", sess.ID()).Msg("connect issued")
	return sess, nil
}

func (s *CameraSlot) MarkConnected() error {
	if s.state != domain.SlotConnecting || s.session == nil {
		return fmt.Errorf("%w: connected in %s", domain.ErrInvalidState, s.state)
	}
	s.state = domain.SlotConnected
	return nil
}

func (s *CameraSlot) AttachPublisher(settings core.PublisherSettings) (core.Endpoint, error) {
	if s.id.Role != domain.RolePublisher || s.state != domain.SlotConnected || s.session == nil {
		return nil, fmt.Errorf("%w: attach publisher to %s slot in %s", domain.ErrInvalidState, s.id.Role, s.state)
	}
	ep, err := s.session.Publish(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPublishFailure, err)
	}
	s.endpoint = ep
	s.state = domain.SlotPublishing
	return ep, nil
}

func (s *CameraSlot) AttachSubscriber(stream core.RemoteStream) (core.Endpoint, error) {
	if s.id.Role != domain.RoleSubscriber || s.state != domain.SlotConnected || s.session == nil {
		return nil, fmt.Errorf("%w: attach subscriber to %s slot in %s", domain.ErrInvalidState, s.id.Role, s.state)
	}
	ep, err := s.session.Subscribe(stream)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSubscribeFailure, err)
	}
	s.endpoint = ep
	s.stream = stream
	s.state = domain.SlotSubscribing
	return ep, nil
}

// Clear releases every owned handle and the recorded error. It is safe from
// any state and any number of times; state and role are left alone.
func (s *CameraSlot) Clear() {
	if s.endpoint != nil {
		if err := s.endpoint.Close(); err != nil {
			s.logger().Warn().Err(err).Msg("endpoint close")
		}
	}
	if s.session != nil {
		if err := s.session.Disconnect(); err != nil {
			s.logger().Warn().Err(err).Msg("session disconnect")
		}
	}
	s.endpoint = nil
	s.session = nil
	s.stream = nil
	s.lastErr = nil
}

// Close clears the slot and moves it to the terminal state, recording err.
func (s *CameraSlot) Close(err error) {
	s.Clear()
	s.state = domain.SlotClosed
	s.lastErr = err
}

func (s *CameraSlot) logger() *zerolog.Logger {
	l := log.With().
		Str("module", "app.slot").
		Int("slot", s.id.Index).
		Str("role", s.id.Role.String()).
		Logger()
	return &l
}
