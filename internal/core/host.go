package core

import "github.com/dkeye/VideoChat/internal/domain"

// SlotInfo is the read-only view of a slot handed to the UI host.
type SlotInfo struct {
	Index     int                  `json:"index"`
	Role      domain.Role          `json:"role"`
	Region    domain.DisplayRegion `json:"region"`
	Facing    domain.CameraFacing  `json:"facing"`
	SessionID string               `json:"session_id"`
}

// Host is the UI side. Callbacks never run under coordinator locks, so a host
// may call back into the coordinator.
type Host interface {
	OnSlotAttached(slot SlotInfo, surface Surface)
	OnSlotError(slot SlotInfo, err error)
	OnSlotClosed(slot SlotInfo)
}
