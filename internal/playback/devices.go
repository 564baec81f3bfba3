package playback

import (
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mitchellh/hashstructure/v2"

	"github.com/tessro/startify/internal/core"
	apperrors "github.com/tessro/startify/internal/errors"
)

// DefaultTransferTimeout bounds how long an unconfirmed transfer is shown
// as pending.
const DefaultTransferTimeout = 10 * time.Second

// DeviceCoordinator tracks the device list and which device is active.
//
// Transfers are held until confirmed: requesting one records a pending
// target but the active device only changes when a snapshot reports it.
type DeviceCoordinator struct {
	clock   clockwork.Clock
	timeout time.Duration

	devices []core.Device
	hash    uint64
	active  *core.Device

	pendingID string
	pendingAt time.Time
}

// NewDeviceCoordinator creates a coordinator. timeout <= 0 uses DefaultTransferTimeout.
func NewDeviceCoordinator(clock clockwork.Clock, timeout time.Duration) *DeviceCoordinator {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if timeout <= 0 {
		timeout = DefaultTransferTimeout
	}
	return &DeviceCoordinator{clock: clock, timeout: timeout}
}

// OnDevices replaces the device list and drops a pending transfer whose
// target is gone or has timed out. It reports whether anything changed.
func (c *DeviceCoordinator) OnDevices(list []core.Device) bool {
	list = core.DedupeDevices(list)

	hash, err := hashstructure.Hash(list, hashstructure.FormatV2, nil)
	changed := err != nil || hash != c.hash || len(list) != len(c.devices)
	c.devices = list
	c.hash = hash

	if c.active != nil {
		if resolved := c.resolve(*c.active); resolved != nil {
			c.active = resolved
		} else {
			c.active = nil
			changed = true
		}
	}

	if c.pendingID != "" && core.FindDevice(c.devices, c.pendingID) == nil {
		c.pendingID = ""
		changed = true
	}
	if c.expirePending() {
		changed = true
	}
	return changed
}

// OnSnapshot adopts the snapshot's device as the active one and settles any
// pending transfer it confirms. A nil snapshot clears the active device.
func (c *DeviceCoordinator) OnSnapshot(snap *core.PlaybackSnapshot) {
	if snap == nil || snap.Device == nil {
		c.active = nil
		c.expirePending()
		return
	}

	d := *snap.Device
	if resolved := c.resolve(d); resolved != nil {
		// The snapshot carries fresher volume than the list.
		resolved.VolumePercent = d.VolumePercent
		d = *resolved
	}
	d.IsActive = true
	c.active = &d

	if c.pendingID != "" && d.ID == c.pendingID {
		c.pendingID = ""
		return
	}
	c.expirePending()
}

// RequestTransfer records a pending transfer to id. The active device is
// left unchanged.
func (c *DeviceCoordinator) RequestTransfer(id string) error {
	if core.FindDevice(c.devices, id) == nil {
		return fmt.Errorf("device %q: %w", id, apperrors.ErrDeviceNotFound)
	}
	if c.active != nil && c.active.ID == id {
		c.pendingID = ""
		return nil
	}
	c.pendingID = id
	c.pendingAt = c.clock.Now()
	return nil
}

// Devices returns a copy of the device list.
func (c *DeviceCoordinator) Devices() []core.Device {
	if len(c.devices) == 0 {
		return nil
	}
	out := make([]core.Device, len(c.devices))
	copy(out, c.devices)
	return out
}

// Active returns a copy of the active device, or nil.
func (c *DeviceCoordinator) Active() *core.Device {
	if c.active == nil {
		return nil
	}
	d := *c.active
	return &d
}

// Pending returns the ID of an unconfirmed transfer target, or "".
func (c *DeviceCoordinator) Pending() string {
	return c.pendingID
}

// resolve finds d in the list by ID, or by name when the backend omitted the ID.
func (c *DeviceCoordinator) resolve(d core.Device) *core.Device {
	if d.ID != "" {
		return core.FindDevice(c.devices, d.ID)
	}
	for i := range c.devices {
		if c.devices[i].Name == d.Name {
			found := c.devices[i]
			return &found
		}
	}
	return nil
}

// expirePending drops a transfer that has waited past the timeout and
// reports whether it did.
func (c *DeviceCoordinator) expirePending() bool {
	if c.pendingID != "" && c.clock.Since(c.pendingAt) > c.timeout {
		c.pendingID = ""
		return true
	}
	return false
}
