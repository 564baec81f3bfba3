package core

// DeviceType indicates the kind of playback device.
type DeviceType string

const (
	DeviceTypeComputer DeviceType = "computer"
	DeviceTypePhone    DeviceType = "phone"
	DeviceTypeSpeaker  DeviceType = "speaker"
	DeviceTypeOther    DeviceType = "other"
)

// Device represents a playback target known to the backend.
type Device struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Type          DeviceType `json:"type"`
	IsActive      bool       `json:"is_active"`
	VolumePercent int        `json:"volume_percent"`
}

// DedupeDevices removes entries sharing an ID. The last occurrence wins but
// keeps the position of the first.
func DedupeDevices(devices []Device) []Device {
	if len(devices) == 0 {
		return nil
	}
	out := make([]Device, 0, len(devices))
	index := make(map[string]int, len(devices))
	for _, d := range devices {
		if i, ok := index[d.ID]; ok {
			out[i] = d
			continue
		}
		index[d.ID] = len(out)
		out = append(out, d)
	}
	return out
}

// FindDevice returns the device with the given ID, or nil.
func FindDevice(devices []Device, id string) *Device {
	if id == "" {
		return nil
	}
	for i := range devices {
		if devices[i].ID == id {
			d := devices[i]
			return &d
		}
	}
	return nil
}
