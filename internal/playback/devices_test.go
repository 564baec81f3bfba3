package playback

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tessro/startify/internal/core"
	apperrors "github.com/tessro/startify/internal/errors"
)

var (
	laptop = core.Device{ID: "laptop", Name: "Laptop", Type: core.DeviceTypeComputer, VolumePercent: 50}
	phone  = core.Device{ID: "phone", Name: "Phone", Type: core.DeviceTypePhone, VolumePercent: 80}
)

func snapshotOn(d core.Device) *core.PlaybackSnapshot {
	s := snapshotAt(0, time.Minute, true)
	s.Device = &d
	return s
}

func TestDevicesDedupeKeepLast(t *testing.T) {
	c := NewDeviceCoordinator(clockwork.NewFakeClock(), 0)

	renamed := laptop
	renamed.Name = "Laptop (renamed)"
	assert.True(t, c.OnDevices([]core.Device{laptop, phone, renamed}))

	devices := c.Devices()
	require.Len(t, devices, 2)
	assert.Equal(t, "Laptop (renamed)", devices[0].Name)
	assert.Equal(t, "phone", devices[1].ID)

	assert.False(t, c.OnDevices([]core.Device{renamed, phone}), "identical list should not report a change")
}

func TestTransferHeldUntilConfirmed(t *testing.T) {
	c := NewDeviceCoordinator(clockwork.NewFakeClock(), 0)
	c.OnDevices([]core.Device{laptop, phone})
	c.OnSnapshot(snapshotOn(laptop))

	require.NoError(t, c.RequestTransfer("phone"))
	assert.Equal(t, "laptop", c.Active().ID, "transfer must not change the active device optimistically")
	assert.Equal(t, "phone", c.Pending())

	// A snapshot still reporting the old device leaves everything unchanged.
	c.OnSnapshot(snapshotOn(laptop))
	assert.Equal(t, "laptop", c.Active().ID)
	assert.Equal(t, "phone", c.Pending())

	c.OnSnapshot(snapshotOn(phone))
	assert.Equal(t, "phone", c.Active().ID)
	assert.Equal(t, "", c.Pending())
}

func TestTransferUnknownDeviceRejected(t *testing.T) {
	c := NewDeviceCoordinator(clockwork.NewFakeClock(), 0)
	c.OnDevices([]core.Device{laptop})

	err := c.RequestTransfer("toaster")
	assert.ErrorIs(t, err, apperrors.ErrDeviceNotFound)
	assert.Equal(t, "", c.Pending())
}

func TestTransferToActiveDeviceIsNoop(t *testing.T) {
	c := NewDeviceCoordinator(clockwork.NewFakeClock(), 0)
	c.OnDevices([]core.Device{laptop, phone})
	c.OnSnapshot(snapshotOn(laptop))

	require.NoError(t, c.RequestTransfer("laptop"))
	assert.Equal(t, "", c.Pending())
}

func TestPendingTransferExpires(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := NewDeviceCoordinator(clock, 5*time.Second)
	c.OnDevices([]core.Device{laptop, phone})
	c.OnSnapshot(snapshotOn(laptop))
	require.NoError(t, c.RequestTransfer("phone"))

	clock.Advance(4 * time.Second)
	c.OnSnapshot(snapshotOn(laptop))
	assert.Equal(t, "phone", c.Pending())

	clock.Advance(2 * time.Second)
	c.OnSnapshot(snapshotOn(laptop))
	assert.Equal(t, "", c.Pending())
	assert.Equal(t, "laptop", c.Active().ID)
}

func TestPendingTransferExpiresOnDeviceList(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := NewDeviceCoordinator(clock, 5*time.Second)
	c.OnDevices([]core.Device{laptop, phone})
	c.OnSnapshot(snapshotOn(laptop))
	require.NoError(t, c.RequestTransfer("phone"))

	clock.Advance(4 * time.Second)
	assert.False(t, c.OnDevices([]core.Device{laptop, phone}))
	assert.Equal(t, "phone", c.Pending())

	clock.Advance(2 * time.Second)
	assert.True(t, c.OnDevices([]core.Device{laptop, phone}))
	assert.Equal(t, "", c.Pending())
}

func TestPendingTransferDroppedWhenTargetGone(t *testing.T) {
	c := NewDeviceCoordinator(clockwork.NewFakeClock(), time.Minute)
	c.OnDevices([]core.Device{laptop, phone})
	c.OnSnapshot(snapshotOn(laptop))
	require.NoError(t, c.RequestTransfer("phone"))

	assert.True(t, c.OnDevices([]core.Device{laptop}))
	assert.Equal(t, "", c.Pending())
}

func TestActiveDeviceVanishes(t *testing.T) {
	c := NewDeviceCoordinator(clockwork.NewFakeClock(), 0)
	c.OnDevices([]core.Device{laptop, phone})
	c.OnSnapshot(snapshotOn(phone))
	require.NotNil(t, c.Active())

	assert.True(t, c.OnDevices([]core.Device{laptop}))
	assert.Nil(t, c.Active())

	c.OnSnapshot(snapshotOn(laptop))
	assert.Equal(t, "laptop", c.Active().ID)
}

func TestEmptySnapshotClearsActive(t *testing.T) {
	c := NewDeviceCoordinator(clockwork.NewFakeClock(), 0)
	c.OnDevices([]core.Device{laptop})
	c.OnSnapshot(snapshotOn(laptop))

	c.OnSnapshot(nil)
	assert.Nil(t, c.Active())
	assert.Len(t, c.Devices(), 1)
}

func TestSnapshotDeviceResolvedByName(t *testing.T) {
	c := NewDeviceCoordinator(clockwork.NewFakeClock(), 0)
	c.OnDevices([]core.Device{laptop, phone})

	c.OnSnapshot(snapshotOn(core.Device{Name: "Phone", VolumePercent: 12}))
	active := c.Active()
	require.NotNil(t, active)
	assert.Equal(t, "phone", active.ID)
	assert.Equal(t, 12, active.VolumePercent)
	assert.True(t, active.IsActive)
}
