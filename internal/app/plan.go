package app

import (
	"fmt"

	"github.com/dkeye/VideoChat/internal/app/credentials"
	"github.com/dkeye/VideoChat/internal/app/resolver"
	"github.com/dkeye/VideoChat/internal/app/slot"
	"github.com/dkeye/VideoChat/internal/domain"
)

// PlanConfig is the camera layout shared by both users.
type PlanConfig struct {
	APIKey          string
	CountCameras    int
	MaxCountCameras int
	SlotsPerDevice  int
}

type credRef struct {
	role  domain.Role
	index int
	cred  domain.Credential
}

// PlanSlots builds the slot list for one side of the call.
//
// Credentials [0, max) belong to User One's cameras and [max, 2*max) to User
// Two's. Each user publishes on its own block and subscribes to the other.
// Every credential is looked up before any slot exists, so configuration
// errors surface before a connect is attempted.
func PlanSlots(side domain.UserSide, cfg PlanConfig, store *credentials.Store) ([]*slot.CameraSlot, error) {
	if !side.Valid() {
		return nil, fmt.Errorf("%w: unknown user side %d", domain.ErrConfiguration, side)
	}
	if cfg.MaxCountCameras <= 0 || cfg.CountCameras < 0 || cfg.CountCameras > cfg.MaxCountCameras {
		return nil, fmt.Errorf("%w: count_cameras %d outside [0, %d]", domain.ErrConfiguration, cfg.CountCameras, cfg.MaxCountCameras)
	}

	pubStart, subStart := 0, cfg.MaxCountCameras
	if side == domain.UserTwo {
		pubStart, subStart = subStart, pubStart
	}

	refs := make([]credRef, 0, 2*cfg.CountCameras)
	for i := 0; i < cfg.CountCameras; i++ {
		c, err := store.Get(pubStart + i)
		if err != nil {
			return nil, err
		}
		// publishers count from zero so facing alternates per device
		refs = append(refs, credRef{role: domain.RolePublisher, index: i, cred: c})
	}
	for i := subStart; i < subStart+cfg.CountCameras; i++ {
		c, err := store.Get(i)
		if err != nil {
			return nil, err
		}
		refs = append(refs, credRef{role: domain.RoleSubscriber, index: i, cred: c})
	}

	r := resolver.Resolver{MaxSlotsPerUser: cfg.MaxCountCameras, SlotsPerDevice: cfg.SlotsPerDevice}
	slots := make([]*slot.CameraSlot, 0, len(refs))
	for _, ref := range refs {
		slots = append(slots, slot.Create(ref.role, ref.index, ref.cred, cfg.APIKey, r))
	}
	return slots, nil
}
