package client

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/huanfeng/apkset-cli/internal/errors"
	"github.com/huanfeng/apkset-cli/pkg/utils"
)

// ADBBridge runs the adb binary.
type ADBBridge struct {
	path   string
	logger utils.Logger
}

// NewADBBridge creates a bridge for the adb binary at path.
func NewADBBridge(path string) *ADBBridge {
	return &ADBBridge{
		path:   path,
		logger: utils.GetGlobalLogger().WithField("component", "adb"),
	}
}

// Path returns the adb binary path.
func (b *ADBBridge) Path() string {
	return b.path
}

// DeviceInfo is one line of `adb devices -l`.
type DeviceInfo struct {
	Serial      string      `json:"serial" yaml:"serial"`
	State       DeviceState `json:"state" yaml:"state"`
	Model       string      `json:"model,omitempty" yaml:"model,omitempty"`
	Product     string      `json:"product,omitempty" yaml:"product,omitempty"`
	Device      string      `json:"device,omitempty" yaml:"device,omitempty"`
	TransportID string      `json:"transportId,omitempty" yaml:"transportId,omitempty"`
	IsEmulator  bool        `json:"isEmulator,omitempty" yaml:"isEmulator,omitempty"`
}

// Devices returns the connected devices
func (b *ADBBridge) Devices(ctx context.Context) ([]Device, error) {
	stdout, stderr, err := b.run(ctx, "devices", "-l")
	if err != nil {
		return nil, errors.Wrap(commandError(err, stderr), errors.KindInternal, "ADB_FAILED",
			"failed to run adb devices").
			WithSuggestions([]string{
				"Check if ADB is properly installed",
				"Try running 'adb kill-server && adb start-server'",
			})
	}

	var devices []Device
	for _, info := range ParseDevices(stdout) {
		devices = append(devices, &adbDevice{bridge: b, info: info})
	}
	return devices, nil
}

// ParseDevices parses the output of `adb devices -l`.
func ParseDevices(output string) []DeviceInfo {
	var devices []DeviceInfo
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "List of devices") || strings.HasPrefix(line, "*") {
			continue
		}

		parts := strings.Fields(line)
		if len(parts) < 2 {
			continue
		}

		info := DeviceInfo{
			Serial: parts[0],
			State:  stateFromADB(parts[1]),
		}
		info.IsEmulator = strings.HasPrefix(info.Serial, "emulator-")

		for _, part := range parts[2:] {
			key, value, ok := strings.Cut(part, ":")
			if !ok {
				continue
			}
			switch key {
			case "model":
				info.Model = value
			case "product":
				info.Product = value
			case "device":
				info.Device = value
			case "transport_id":
				info.TransportID = value
			}
		}
		devices = append(devices, info)
	}
	return devices
}

func (b *ADBBridge) run(ctx context.Context, args ...string) (string, string, error) {
	b.logger.Debug("running %s %s", b.path, strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, b.path, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return stdout.String(), stderr.String(), ctxErr
	}
	return stdout.String(), stderr.String(), err
}

func commandError(err error, stderr string) error {
	if msg := strings.TrimSpace(stderr); msg != "" {
		return fmt.Errorf("%w: %s", err, msg)
	}
	return err
}

type adbDevice struct {
	bridge *ADBBridge
	info   DeviceInfo
}

func (d *adbDevice) Serial() string     { return d.info.Serial }
func (d *adbDevice) State() DeviceState { return d.info.State }
func (d *adbDevice) Model() string      { return d.info.Model }

func (d *adbDevice) Shell(ctx context.Context, args ...string) (string, error) {
	full := append([]string{"-s", d.info.Serial, "shell"}, args...)
	stdout, stderr, err := d.bridge.run(ctx, full...)
	if err != nil {
		return "", commandError(err, stderr)
	}
	return stdout, nil
}

// InstallApks runs `adb install-multiple`, which streams every APK into a
// single install session and commits it only when all writes succeed.
func (d *adbDevice) InstallApks(ctx context.Context, paths []string, opts InstallOptions) error {
	if len(paths) == 0 {
		return errors.NewInstallationError("No APKs to install.", nil)
	}

	args := []string{"-s", d.info.Serial}
	if len(paths) == 1 {
		args = append(args, "install")
	} else {
		args = append(args, "install-multiple")
	}
	if opts.Reinstall {
		args = append(args, "-r")
	}
	if opts.Downgrade {
		args = append(args, "-d")
	}
	if opts.GrantPermissions {
		args = append(args, "-g")
	}
	args = append(args, paths...)

	stdout, stderr, err := d.bridge.run(ctx, args...)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	output := stdout + stderr
	if err == nil && strings.Contains(output, "Success") {
		return nil
	}
	return InstallFailure(output, err)
}
