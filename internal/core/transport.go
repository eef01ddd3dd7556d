package core

import "github.com/dkeye/VideoChat/internal/domain"

// SessionConfig is what the provider needs to open one session.
type SessionConfig struct {
	APIKey    string
	SessionID string
}

// PublisherSettings configures a local camera publisher.
type PublisherSettings struct {
	Name   string
	Facing domain.CameraFacing
}

// Transport creates provider sessions.
// Implementations deliver every result through TransportEvents and never call
// back synchronously from inside a TransportSession method.
type Transport interface {
	NewSession(cfg SessionConfig, events TransportEvents) (TransportSession, error)
}

// TransportSession is one provider-managed signaling/media session.
// Values must be comparable: the coordinator keys slots by handle identity.
type TransportSession interface {
	ID() string
	// Connect starts the asynchronous connect; completion arrives as
	// OnSessionConnected or OnSessionFailed.
	Connect(token string) error
	Publish(settings PublisherSettings) (Endpoint, error)
	Subscribe(stream RemoteStream) (Endpoint, error)
	Disconnect() error
}

// Endpoint is a publisher or subscriber bound to a session.
type Endpoint interface {
	Surface() Surface
	Close() error
}

// RemoteStream is a stream announced by the provider.
type RemoteStream interface {
	StreamID() string
}

// Surface is a renderable handle the UI host binds to a display region.
type Surface interface {
	ID() string
}

// TransportEvents is the inbound side of the provider contract. Each event
// carries only the provider's own handle.
type TransportEvents interface {
	OnSessionConnected(s TransportSession)
	OnSessionDisconnected(s TransportSession)
	OnSessionFailed(s TransportSession, err error)
	OnStreamAnnounced(s TransportSession, stream RemoteStream)
	OnStreamDestroyed(s TransportSession, stream RemoteStream)
	OnEndpointFailed(ep Endpoint, err error)
}
