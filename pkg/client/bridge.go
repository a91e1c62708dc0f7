// Package client talks to Android devices through a device bridge.
package client

import (
	"context"
	"fmt"

	"github.com/huanfeng/apkset-cli/internal/errors"
	"github.com/huanfeng/apkset-cli/pkg/models"
	"github.com/huanfeng/apkset-cli/pkg/probe"
)

// DeviceState represents device connection status
type DeviceState string

const (
	StateOnline       DeviceState = "online"
	StateOffline      DeviceState = "offline"
	StateUnauthorized DeviceState = "unauthorized"
	StateUnknown      DeviceState = "unknown"
)

// stateFromADB maps the state column of `adb devices`.
func stateFromADB(s string) DeviceState {
	switch s {
	case "device":
		return StateOnline
	case "offline":
		return StateOffline
	case "unauthorized":
		return StateUnauthorized
	default:
		return StateUnknown
	}
}

// InstallOptions contains install options
type InstallOptions struct {
	Reinstall        bool // Replace existing app
	Downgrade        bool // Allow version downgrade
	GrantPermissions bool // Grant all runtime permissions
}

// Bridge lists the devices connected to the host.
type Bridge interface {
	Devices(ctx context.Context) ([]Device, error)
}

// Device is one connected device.
type Device interface {
	Serial() string
	State() DeviceState
	Model() string
	Shell(ctx context.Context, args ...string) (string, error)
	// InstallApks installs all paths in one session: all of them or none.
	InstallApks(ctx context.Context, paths []string, opts InstallOptions) error
}

// BySerial returns the device whose serial equals serial exactly.
func BySerial(ctx context.Context, b Bridge, serial string) (Device, error) {
	devices, err := b.Devices(ctx)
	if err != nil {
		return nil, err
	}
	for _, d := range devices {
		if d.Serial() == serial {
			return d, nil
		}
	}
	return nil, errors.NewDeviceError(errors.KindDeviceNotFound, "DEVICE_NOT_FOUND",
		"Unable to find the requested device.").WithContext("serial", serial)
}

// SelectDevice picks the target device. A non-empty serial is looked up
// strictly; otherwise exactly one device must be connected. The chosen
// device must be online.
func SelectDevice(ctx context.Context, b Bridge, serial string) (Device, error) {
	var device Device
	if serial != "" {
		d, err := BySerial(ctx, b, serial)
		if err != nil {
			return nil, err
		}
		device = d
	} else {
		devices, err := b.Devices(ctx)
		if err != nil {
			return nil, err
		}
		switch len(devices) {
		case 0:
			return nil, errors.NewDeviceError(errors.KindNoDevices, "NO_DEVICES", "No connected devices.")
		case 1:
			device = devices[0]
		default:
			return nil, errors.New(errors.KindMultipleDevices, "MULTIPLE_DEVICES",
				"More than one device connected, please provide --device-id.").
				WithSuggestion("Set ANDROID_SERIAL or pass --device-id=<serial>")
		}
	}

	if device.State() != StateOnline {
		return nil, errors.NewDeviceError(errors.KindDeviceNotFound, "DEVICE_NOT_ONLINE",
			fmt.Sprintf("Unable to connect to the device (device state: %s).", device.State())).
			WithContext("serial", device.Serial())
	}
	return device, nil
}

// Capabilities probes the device and returns its spec.
func Capabilities(ctx context.Context, d Device) (*models.DeviceSpec, error) {
	return probe.Capabilities(ctx, d)
}
