package client

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/huanfeng/apkset-cli/pkg/models"
	"github.com/huanfeng/apkset-cli/pkg/probe"
)

// FakeBridge is a memory-backed Bridge.
type FakeBridge struct {
	devices []*FakeDevice
	err     error
}

// NewFakeBridge returns a bridge reporting devices in order.
func NewFakeBridge(devices ...*FakeDevice) *FakeBridge {
	return &FakeBridge{devices: devices}
}

// FailWith makes Devices return err.
func (b *FakeBridge) FailWith(err error) {
	b.err = err
}

// Devices returns the configured devices.
func (b *FakeBridge) Devices(ctx context.Context) ([]Device, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if b.err != nil {
		return nil, b.err
	}
	devices := make([]Device, 0, len(b.devices))
	for _, d := range b.devices {
		devices = append(devices, d)
	}
	return devices, nil
}

// InstallFunc is called by FakeDevice.InstallApks.
type InstallFunc func(paths []string, opts InstallOptions) error

// FakeDevice answers the probe commands from canned output.
type FakeDevice struct {
	serial string
	state  DeviceState
	model  string

	mu        sync.Mutex
	outputs   map[string]string
	onInstall InstallFunc
	installs  [][]string
}

// NewFakeDevice returns a device whose probe output is generated from spec.
// A nil spec leaves the probe commands unanswered.
func NewFakeDevice(serial string, state DeviceState, spec *models.DeviceSpec) *FakeDevice {
	d := &FakeDevice{
		serial:  serial,
		state:   state,
		model:   "Fake_Device",
		outputs: make(map[string]string),
	}
	if spec != nil {
		sdkOutput, configOutput := probe.Emit(spec)
		d.outputs[strings.Join(probe.SdkCommand, " ")] = sdkOutput
		d.outputs[strings.Join(probe.ConfigCommand, " ")] = configOutput
	}
	return d
}

func (d *FakeDevice) Serial() string     { return d.serial }
func (d *FakeDevice) State() DeviceState { return d.state }
func (d *FakeDevice) Model() string      { return d.model }

// SetShellOutput overrides the output of a shell command.
func (d *FakeDevice) SetShellOutput(command, output string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.outputs[command] = output
}

// OnInstall sets the install side effect. A nil func succeeds.
func (d *FakeDevice) OnInstall(fn InstallFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onInstall = fn
}

// Installs returns the path lists of successful installs.
func (d *FakeDevice) Installs() [][]string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([][]string(nil), d.installs...)
}

func (d *FakeDevice) Shell(ctx context.Context, args ...string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	command := strings.Join(args, " ")
	output, ok := d.outputs[command]
	if !ok {
		return "", fmt.Errorf("/system/bin/sh: %s: not found", command)
	}
	return output, nil
}

func (d *FakeDevice) InstallApks(ctx context.Context, paths []string, opts InstallOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	fn := d.onInstall
	d.mu.Unlock()

	if fn != nil {
		if err := fn(paths, opts); err != nil {
			return err
		}
	}

	d.mu.Lock()
	d.installs = append(d.installs, append([]string(nil), paths...))
	d.mu.Unlock()
	return nil
}
