// Package resolver maps a slot's logical index to a display cell and a
// camera facing.
package resolver

import "github.com/dkeye/VideoChat/internal/domain"

type Placement struct {
	RegionID int                 `json:"region_id"`
	Facing   domain.CameraFacing `json:"facing"`
}

// Resolve is total: non-positive divisors count as 1 and negative indices
// wrap, so RegionID is always in [0, maxSlotsPerUser).
func Resolve(logicalIndex, maxSlotsPerUser, slotsPerDevice int) Placement {
	p := Placement{
		RegionID: mod(logicalIndex, maxSlotsPerUser),
		Facing:   domain.FacingBack,
	}
	if mod(logicalIndex, slotsPerDevice) == 0 {
		p.Facing = domain.FacingFront
	}
	return p
}

// Resolver binds the layout constants of one call screen.
type Resolver struct {
	MaxSlotsPerUser int
	SlotsPerDevice  int
}

func (r Resolver) Resolve(logicalIndex int) Placement {
	return Resolve(logicalIndex, r.MaxSlotsPerUser, r.SlotsPerDevice)
}

func mod(a, n int) int {
	if n <= 0 {
		n = 1
	}
	m := a % n
	if m < 0 {
		m += n
	}
	return m
}
