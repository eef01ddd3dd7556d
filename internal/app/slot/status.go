package slot

import "github.com/dkeye/VideoChat/internal/domain"

// Status is a read-only snapshot for APIs (no transport fields).
type Status struct {
	Index     int                  `json:"index"`
	Role      domain.Role          `json:"role"`
	State     domain.SlotState     `json:"state"`
	SessionID string               `json:"session_id"`
	Region    domain.DisplayRegion `json:"region"`
	Facing    domain.CameraFacing  `json:"facing"`
	Surface   string               `json:"surface,omitempty"`
	Stream    string               `json:"stream,omitempty"`
	Error     string               `json:"error,omitempty"`
}

func (s *CameraSlot) Status() Status {
	st := Status{
		Index:     s.id.Index,
		Role:      s.id.Role,
		State:     s.state,
		SessionID: s.id.SessionID,
		Region:    s.id.Region,
		Facing:    s.id.Facing,
	}
	if s.endpoint != nil && s.endpoint.Surface() != nil {
		st.Surface = s.endpoint.Surface().ID()
	}
	if s.stream != nil {
		st.Stream = s.stream.StreamID()
	}
	if s.lastErr != nil {
		st.Error = s.lastErr.Error()
	}
	return st
}
