package rtc

import "github.com/pion/webrtc/v4"

// Signaling message types. Client -> provider:
const (
	msgConnect     = "connect"
	msgPublish     = "publish"
	msgSubscribe   = "subscribe"
	msgUnpublish   = "unpublish"
	msgUnsubscribe = "unsubscribe"
	msgCandidate   = "candidate"
	msgDisconnect  = "disconnect"
)

// Provider -> client:
const (
	msgConnected       = "connected"
	msgDisconnected    = "disconnected"
	msgStreamCreated   = "stream_created"
	msgStreamDestroyed = "stream_destroyed"
	msgAnswer          = "answer"
	msgError           = "error"
)

// message is the single JSON envelope used in both directions.
type message struct {
	Type          string  `json:"type"`
	APIKey        string  `json:"api_key,omitempty"`
	SessionID     string  `json:"session_id,omitempty"`
	Token         string  `json:"token,omitempty"`
	ConnectionID  string  `json:"connection_id,omitempty"`
	StreamID      string  `json:"stream_id,omitempty"`
	Name          string  `json:"name,omitempty"`
	Facing        string  `json:"facing,omitempty"`
	SDP           string  `json:"sdp,omitempty"`
	Candidate     string  `json:"candidate,omitempty"`
	SDPMid        string  `json:"sdpMid,omitempty"`
	SDPMLineIndex *uint16 `json:"sdpMLineIndex,omitempty"`
	Error         string  `json:"error,omitempty"`
}

func candidateMessage(streamID string, ci webrtc.ICECandidateInit) message {
	m := message{
		Type:          msgCandidate,
		StreamID:      streamID,
		Candidate:     ci.Candidate,
		SDPMLineIndex: ci.SDPMLineIndex,
	}
	if ci.SDPMid != nil {
		m.SDPMid = *ci.SDPMid
	}
	return m
}

func (m message) candidateInit() webrtc.ICECandidateInit {
	ci := webrtc.ICECandidateInit{
		Candidate:     m.Candidate,
		SDPMLineIndex: m.SDPMLineIndex,
	}
	if m.SDPMid != "" {
		mid := m.SDPMid
		ci.SDPMid = &mid
	}
	return ci
}
