package domain

type Role int

const (
	RolePublisher Role = iota
	RoleSubscriber
)

func (r Role) String() string {
	switch r {
	case RolePublisher:
		return "publisher"
	case RoleSubscriber:
		return "subscriber"
	}
	return "unknown"
}

func (r Role) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

type CameraFacing int

const (
	FacingFront CameraFacing = iota
	FacingBack
)

func (f CameraFacing) String() string {
	if f == FacingBack {
		return "back"
	}
	return "front"
}

func (f CameraFacing) MarshalText() ([]byte, error) { return []byte(f.String()), nil }

// Panel is one of the two camera grids: the device's own cameras or the
// interlocutor's.
type Panel int

const (
	PanelLocal Panel = iota
	PanelRemote
)

func (p Panel) String() string {
	if p == PanelRemote {
		return "remote"
	}
	return "local"
}

func (p Panel) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// DisplayRegion is an opaque screen location a slot renders into.
type DisplayRegion struct {
	Panel Panel `json:"panel"`
	Cell  int   `json:"cell"`
}

// PanelFor maps a role to the grid it renders in.
func PanelFor(role Role) Panel {
	if role == RolePublisher {
		return PanelLocal
	}
	return PanelRemote
}

type SlotState int

const (
	SlotIdle SlotState = iota
	SlotConnecting
	SlotConnected
	SlotPublishing
	SlotSubscribing
	SlotClosed
)

func (s SlotState) String() string {
	switch s {
	case SlotIdle:
		return "idle"
	case SlotConnecting:
		return "connecting"
	case SlotConnected:
		return "connected"
	case SlotPublishing:
		return "publishing"
	case SlotSubscribing:
		return "subscribing"
	case SlotClosed:
		return "closed"
	}
	return "unknown"
}

func (s SlotState) MarshalText() ([]byte, error) { return []byte(s.String()), nil }
