// Package installer drives the install of an APK set onto a device.
package installer

import (
	"context"
	"os"
	"path/filepath"

	"github.com/huanfeng/apkset-cli/internal/errors"
	"github.com/huanfeng/apkset-cli/pkg/apk"
	"github.com/huanfeng/apkset-cli/pkg/client"
	"github.com/huanfeng/apkset-cli/pkg/models"
	"github.com/huanfeng/apkset-cli/pkg/selector"
	"github.com/huanfeng/apkset-cli/pkg/system"
	"github.com/huanfeng/apkset-cli/pkg/utils"
)

// State is a step of the install state machine.
type State int

const (
	StateInit State = iota
	StateDeviceSelected
	StateCapabilitiesKnown
	StatePlanComputed
	StateExtracted
	StateInstalled
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "Init"
	case StateDeviceSelected:
		return "DeviceSelected"
	case StateCapabilitiesKnown:
		return "CapabilitiesKnown"
	case StatePlanComputed:
		return "PlanComputed"
	case StateExtracted:
		return "Extracted"
	case StateInstalled:
		return "Installed"
	case StateFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// MarshalText encodes the state by name in JSON and YAML output.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Request describes one install-apks invocation.
type Request struct {
	ApksPath string
	ADBPath  string
	// DeviceID is the serial to target; empty means the only connected device.
	DeviceID string
	// Modules restricts the installed modules; empty installs the defaults.
	Modules []string
	// DryRun stops once the plan is computed.
	DryRun bool
}

// Result records how far a run got and what it decided.
type Result struct {
	State      State               `json:"state" yaml:"state"`
	FailedKind errors.Kind         `json:"-" yaml:"-"`
	Device     string              `json:"device,omitempty" yaml:"device,omitempty"`
	Spec       *models.DeviceSpec  `json:"deviceSpec,omitempty" yaml:"deviceSpec,omitempty"`
	Plan       *models.InstallPlan `json:"plan,omitempty" yaml:"plan,omitempty"`
	Manifest   *apk.ManifestInfo   `json:"manifest,omitempty" yaml:"manifest,omitempty"`
}

// BridgeFactory creates the device bridge for an adb binary.
type BridgeFactory func(adbPath string) client.Bridge

// Installer runs install requests.
type Installer struct {
	newBridge BridgeFactory
	logger    utils.Logger
	progress  apk.ProgressFunc
}

// Option configures an Installer.
type Option func(*Installer)

// WithBridge makes every run use b regardless of the adb path.
func WithBridge(b client.Bridge) Option {
	return func(i *Installer) {
		i.newBridge = func(string) client.Bridge { return b }
	}
}

// WithBridgeFactory sets how the bridge is created from the adb path.
func WithBridgeFactory(f BridgeFactory) Option {
	return func(i *Installer) {
		i.newBridge = f
	}
}

// WithLogger sets the logger.
func WithLogger(l utils.Logger) Option {
	return func(i *Installer) {
		i.logger = l
	}
}

// WithProgress reports extraction progress.
func WithProgress(fn apk.ProgressFunc) Option {
	return func(i *Installer) {
		i.progress = fn
	}
}

// New creates an Installer that talks to devices through adb.
func New(opts ...Option) *Installer {
	i := &Installer{
		newBridge: func(path string) client.Bridge { return client.NewADBBridge(path) },
		logger:    utils.GetGlobalLogger(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Run executes req. The returned Result is never nil; on failure its State
// is StateFailed and the error carries the failure kind.
func (i *Installer) Run(ctx context.Context, req Request) (*Result, error) {
	res := &Result{State: StateInit}
	err := i.run(ctx, req, res)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.KindOf(err) == errors.KindInternal {
			err = errors.Wrap(ctxErr, errors.KindCanceled, "CANCELED", "Operation canceled.")
		}
		i.logger.Debug("install failed after state %s: %v", res.State, err)
		res.State = StateFailed
		res.FailedKind = errors.KindOf(err)
	}
	return res, err
}

func (i *Installer) advance(res *Result, s State) {
	res.State = s
	i.logger.Debug("state -> %s", s)
}

func (i *Installer) run(ctx context.Context, req Request, res *Result) error {
	if req.ApksPath == "" {
		return errors.NewIllegalInputError("MISSING_FLAG", "Missing the required --apks flag.")
	}
	if _, err := os.Stat(req.ApksPath); err != nil {
		return errors.NewFileNotFoundError(req.ApksPath)
	}
	if err := system.CheckExecutable(req.ADBPath); err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	device, err := client.SelectDevice(ctx, i.newBridge(req.ADBPath), req.DeviceID)
	if err != nil {
		return err
	}
	res.Device = device.Serial()
	i.advance(res, StateDeviceSelected)

	if err := ctx.Err(); err != nil {
		return err
	}
	spec, err := client.Capabilities(ctx, device)
	if err != nil {
		return err
	}
	res.Spec = spec
	i.advance(res, StateCapabilitiesKnown)
	i.logger.Debug("device %s: sdk=%d abis=%v density=%d locales=%v",
		res.Device, spec.SdkVersion, spec.SupportedAbis, spec.ScreenDensity, spec.SupportedLocales)

	if err := ctx.Err(); err != nil {
		return err
	}
	archive, err := apk.Open(req.ApksPath)
	if err != nil {
		return err
	}
	defer archive.Close()

	toc, err := archive.TOC()
	if err != nil {
		return err
	}
	plan, err := selector.Select(toc, spec, req.Modules)
	if err != nil {
		return err
	}
	res.Plan = plan
	i.advance(res, StatePlanComputed)
	i.logger.Debug("variant %d, modules %v, %d APKs", plan.Variant, plan.Modules, len(plan.Apks))

	if req.DryRun {
		return nil
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	work, err := apk.NewWorkDir("apkset-*")
	if err != nil {
		return err
	}
	defer func() {
		if err := work.Close(); err != nil {
			i.logger.Warn("failed to remove %s: %v", work.Path, err)
		}
	}()

	if need := archive.UncompressedSize(plan.Apks); need > 0 {
		if err := system.EnsureFreeSpace(work.Path, need); err != nil {
			i.logger.Warn("%v", err)
		}
	}

	paths, err := archive.ExtractWithProgress(ctx, plan.Apks, work.Path, i.progress)
	if err != nil {
		return err
	}
	i.advance(res, StateExtracted)
	res.Manifest = i.inspect(paths[0])

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := device.InstallApks(ctx, paths, client.InstallOptions{Reinstall: true}); err != nil {
		if errors.KindOf(err) == errors.KindInstallation || ctx.Err() != nil {
			return err
		}
		return errors.NewInstallationError(err.Error(), nil)
	}
	i.advance(res, StateInstalled)
	return nil
}

// inspect reads the manifest of the first APK of the plan, which is the
// base master split or the standalone APK. Failure is not fatal.
func (i *Installer) inspect(path string) *apk.ManifestInfo {
	info, err := apk.InspectManifest(path)
	if err != nil {
		i.logger.Debug("could not read manifest of %s: %v", filepath.Base(path), err)
		return nil
	}
	return info
}
