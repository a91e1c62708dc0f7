package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/huanfeng/apkset-cli/internal/errors"
	"github.com/huanfeng/apkset-cli/pkg/apk/apktest"
	"github.com/huanfeng/apkset-cli/pkg/client"
	"github.com/huanfeng/apkset-cli/pkg/models"
)

var pixel = &models.DeviceSpec{
	SdkVersion:       30,
	SupportedAbis:    []string{"arm64-v8a", "armeabi-v7a"},
	ScreenDensity:    440,
	SupportedLocales: []string{"en-US", "de-DE"},
}

type testEnv struct {
	dir    string
	bridge *client.FakeBridge
}

// newTestEnv isolates the command from the user's environment: a fresh home,
// an SDK with an executable adb, and a fake bridge behind it.
func newTestEnv(t *testing.T, devices ...*client.FakeDevice) *testEnv {
	t.Helper()
	dir := t.TempDir()

	for _, key := range []string{"APKSET_ADB_PATH", "APKSET_ADB_DEFAULT_DEVICE", "APKSET_LOG_LEVEL",
		"APKSET_LOG_FORMAT", "APKSET_LANG", "ANDROID_SERIAL", "LC_ALL", "LC_MESSAGES", "LANG"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	t.Setenv("HOME", dir)
	t.Setenv("USERPROFILE", dir)
	t.Setenv("NO_COLOR", "1")
	t.Setenv("ANDROID_HOME", filepath.Join(dir, "android-sdk"))
	homedir.DisableCache = true

	adb := filepath.Join(dir, "android-sdk", "platform-tools", "adb")
	require.NoError(t, os.MkdirAll(filepath.Dir(adb), 0755))
	require.NoError(t, os.WriteFile(adb, nil, 0755))

	env := &testEnv{dir: dir, bridge: client.NewFakeBridge(devices...)}
	orig := newBridge
	newBridge = func(string) client.Bridge { return env.bridge }
	t.Cleanup(func() { newBridge = orig })
	return env
}

func (e *testEnv) archive(t *testing.T, toc *models.BuildApksResult) string {
	return apktest.Write(t, e.dir, toc)
}

func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func execute(t *testing.T, args ...string) (string, string, int) {
	t.Helper()
	resetFlags(rootCmd)
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return stdout.String(), stderr.String(), code
}

func baseTOC(minSdk int) *models.BuildApksResult {
	return apktest.TOC(apktest.Variant(0, minSdk,
		apktest.Module("base", nil,
			apktest.Master("splits/base-master.apk"),
			apktest.AbiSplit("splits/base-arm64_v8a.apk", models.AbiArm64V8a, models.AbiArmeabiV7a),
			apktest.AbiSplit("splits/base-armeabi_v7a.apk", models.AbiArmeabiV7a, models.AbiArm64V8a),
		),
		apktest.OnDemand("feature", []string{"base"}, apktest.Master("splits/feature-master.apk")),
	))
}

func TestInstallApks(t *testing.T) {
	device := client.NewFakeDevice("id1", client.StateOnline, pixel)
	env := newTestEnv(t, device)

	stdout, stderr, code := execute(t, "install-apks", "--apks", env.archive(t, baseTOC(21)))
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "Installed 2 APK(s) on id1")

	installs := device.Installs()
	require.Len(t, installs, 1)
	require.Len(t, installs[0], 2)
	assert.Equal(t, "base-master.apk", filepath.Base(installs[0][0]))
	assert.Equal(t, "base-arm64_v8a.apk", filepath.Base(installs[0][1]))
}

func TestInstallApksModules(t *testing.T) {
	device := client.NewFakeDevice("id1", client.StateOnline, pixel)
	env := newTestEnv(t, device)
	apks := env.archive(t, baseTOC(21))

	_, _, code := execute(t, "install-apks", "--apks", apks, "--modules", "feature")
	require.Equal(t, 0, code)
	require.Len(t, device.Installs(), 1)
	assert.Len(t, device.Installs()[0], 3)

	_, stderr, code := execute(t, "install-apks", "--apks", apks, "--modules", "nope")
	assert.Equal(t, errors.ExitUnknownModule, code)
	assert.NotEmpty(t, stderr)
}

func TestInstallApksErrors(t *testing.T) {
	tests := []struct {
		name     string
		devices  []*client.FakeDevice
		args     func(apks string) []string
		code     int
		contains string
	}{
		{
			name:     "missing apks flag",
			devices:  []*client.FakeDevice{client.NewFakeDevice("id1", client.StateOnline, pixel)},
			args:     func(string) []string { return []string{"install-apks"} },
			code:     errors.ExitIllegalInput,
			contains: "Missing the required --apks flag.",
		},
		{
			name:     "archive not found",
			devices:  []*client.FakeDevice{client.NewFakeDevice("id1", client.StateOnline, pixel)},
			args:     func(string) []string { return []string{"install-apks", "--apks", "/nope.apks"} },
			code:     errors.ExitIllegalInput,
			contains: "File '/nope.apks' was not found.",
		},
		{
			name:     "no devices",
			args:     func(apks string) []string { return []string{"install-apks", "--apks", apks} },
			code:     errors.ExitDeviceSelection,
			contains: "No connected devices.",
		},
		{
			name: "multiple devices",
			devices: []*client.FakeDevice{
				client.NewFakeDevice("id1", client.StateOnline, pixel),
				client.NewFakeDevice("id2", client.StateOnline, pixel),
			},
			args:     func(apks string) []string { return []string{"install-apks", "--apks", apks} },
			code:     errors.ExitDeviceSelection,
			contains: "More than one device connected, please provide --device-id.",
		},
		{
			name: "sdk too old",
			devices: []*client.FakeDevice{client.NewFakeDevice("id1", client.StateOnline, &models.DeviceSpec{
				SdkVersion: 19, SupportedAbis: []string{"arm64-v8a"}, ScreenDensity: 440, SupportedLocales: []string{"en-US"},
			})},
			args: func(apks string) []string { return []string{"install-apks", "--apks", apks} },
			code: errors.ExitIncompatible,
		},
		{
			name:     "bad dry run format",
			devices:  []*client.FakeDevice{client.NewFakeDevice("id1", client.StateOnline, pixel)},
			args:     func(apks string) []string { return []string{"install-apks", "--apks", apks, "--dry-run", "--output", "xml"} },
			code:     errors.ExitIllegalInput,
			contains: "Unsupported output format 'xml'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, tt.devices...)
			_, stderr, code := execute(t, tt.args(env.archive(t, baseTOC(21)))...)
			assert.Equal(t, tt.code, code, stderr)
			assert.Contains(t, stderr, "Error:")
			if tt.contains != "" {
				assert.Contains(t, stderr, tt.contains)
			}
		})
	}
}

func TestInstallApksSerialFromEnvironment(t *testing.T) {
	id1 := client.NewFakeDevice("id1", client.StateOnline, pixel)
	id2 := client.NewFakeDevice("id2", client.StateOnline, pixel)
	env := newTestEnv(t, id1, id2)
	t.Setenv("ANDROID_SERIAL", "id2")

	_, stderr, code := execute(t, "install-apks", "--apks", env.archive(t, baseTOC(21)))
	require.Equal(t, 0, code, stderr)
	assert.Empty(t, id1.Installs())
	assert.Len(t, id2.Installs(), 1)

	_, _, code = execute(t, "install-apks", "--apks", env.archive(t, baseTOC(21)), "--device-id", "id1")
	require.Equal(t, 0, code)
	assert.Len(t, id1.Installs(), 1)
}

func TestInstallApksInstallFailure(t *testing.T) {
	device := client.NewFakeDevice("id1", client.StateOnline, pixel)
	device.OnInstall(func([]string, client.InstallOptions) error {
		return client.InstallFailure("Failure [INSTALL_FAILED_INSUFFICIENT_STORAGE]", nil)
	})
	env := newTestEnv(t, device)

	_, stderr, code := execute(t, "install-apks", "--apks", env.archive(t, baseTOC(21)))
	assert.Equal(t, errors.ExitInstallationError, code)
	assert.Contains(t, stderr, "Failure [INSTALL_FAILED_INSUFFICIENT_STORAGE]")
	assert.Contains(t, stderr, "Suggestions:")
}

func TestInstallApksDryRun(t *testing.T) {
	device := client.NewFakeDevice("id1", client.StateOnline, pixel)
	env := newTestEnv(t, device)

	stdout, stderr, code := execute(t, "install-apks", "--apks", env.archive(t, baseTOC(21)), "--dry-run", "--output", "json")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stderr, "Dry run: 2 APK(s) would be installed on id1")
	assert.Empty(t, device.Installs())

	var res struct {
		State  string             `json:"state"`
		Device string             `json:"device"`
		Plan   models.InstallPlan `json:"plan"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &res))
	assert.Equal(t, "PlanComputed", res.State)
	assert.Equal(t, "id1", res.Device)
	assert.Equal(t, []string{"splits/base-master.apk", "splits/base-arm64_v8a.apk"}, res.Plan.Paths())
}

func TestVerboseErrors(t *testing.T) {
	newTestEnv(t)
	_, stderr, code := execute(t, "-v", "install-apks")
	assert.Equal(t, errors.ExitIllegalInput, code)
	assert.Contains(t, stderr, "ILLEGAL_INPUT [MISSING_FLAG]: Missing the required --apks flag.")
}

func TestGetDeviceSpec(t *testing.T) {
	env := newTestEnv(t, client.NewFakeDevice("id1", client.StateOnline, pixel))

	stdout, stderr, code := execute(t, "get-device-spec")
	require.Equal(t, 0, code, stderr)
	var spec models.DeviceSpec
	require.NoError(t, json.Unmarshal([]byte(stdout), &spec))
	assert.Equal(t, *pixel, spec)

	out := filepath.Join(env.dir, "specs", "pixel.yaml")
	stdout, stderr, code = execute(t, "get-device-spec", "--output", out)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "Device spec written to "+out)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	spec = models.DeviceSpec{}
	require.NoError(t, yaml.Unmarshal(data, &spec))
	assert.Equal(t, *pixel, spec)
}

func TestGetDeviceSpecProbeFailure(t *testing.T) {
	device := client.NewFakeDevice("id1", client.StateOnline, pixel)
	device.SetShellOutput("getprop ro.build.version.sdk", "not a number")
	newTestEnv(t, device)

	_, stderr, code := execute(t, "get-device-spec")
	assert.Equal(t, errors.ExitProbeFailure, code)
	assert.Contains(t, stderr, "SDK version")
}

func TestExtractApks(t *testing.T) {
	env := newTestEnv(t)
	specPath := filepath.Join(env.dir, "pixel.json")
	data, err := json.Marshal(pixel)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(specPath, data, 0644))
	outDir := filepath.Join(env.dir, "out")

	stdout, stderr, code := execute(t, "extract-apks",
		"--apks", env.archive(t, baseTOC(21)),
		"--device-spec", specPath,
		"--output-dir", outDir,
		"--modules", "base,feature")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stderr, "Extracted 3 APK(s) to "+outDir)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 3)
	for _, line := range lines {
		assert.FileExists(t, line)
	}
	content, err := os.ReadFile(filepath.Join(outDir, "splits", "feature-master.apk"))
	require.NoError(t, err)
	assert.Equal(t, "apk:splits/feature-master.apk", string(content))
}

func TestExtractApksInvalidSpec(t *testing.T) {
	env := newTestEnv(t)
	specPath := filepath.Join(env.dir, "bad.yaml")
	require.NoError(t, os.WriteFile(specPath, []byte("sdkVersion: 30\nsupportedAbis: []\n"), 0644))

	_, stderr, code := execute(t, "extract-apks",
		"--apks", env.archive(t, baseTOC(21)),
		"--device-spec", specPath,
		"--output-dir", filepath.Join(env.dir, "out"))
	assert.Equal(t, errors.ExitIllegalInput, code)
	assert.Contains(t, stderr, "Invalid device spec")

	_, stderr, code = execute(t, "extract-apks", "--apks", "x.apks", "--output-dir", "out")
	assert.Equal(t, errors.ExitIllegalInput, code)
	assert.Contains(t, stderr, "Missing the required --device-spec flag.")
}

func TestDevices(t *testing.T) {
	broken := client.NewFakeDevice("id3", client.StateOnline, pixel)
	broken.SetShellOutput("am get-config", "garbage")
	newTestEnv(t,
		client.NewFakeDevice("id1", client.StateOnline, pixel),
		client.NewFakeDevice("id2", client.StateUnauthorized, nil),
		broken,
	)

	stdout, stderr, code := execute(t, "devices", "--format", "json")
	require.Equal(t, 0, code, stderr)

	var rows []deviceRow
	require.NoError(t, json.Unmarshal([]byte(stdout), &rows))
	require.Len(t, rows, 3)
	assert.Equal(t, "id1", rows[0].Serial)
	assert.Equal(t, pixel, rows[0].Spec)
	assert.Equal(t, client.StateUnauthorized, rows[1].State)
	assert.Nil(t, rows[1].Spec)
	assert.Empty(t, rows[1].Error)
	assert.Nil(t, rows[2].Spec)
	assert.NotEmpty(t, rows[2].Error)

	stdout, _, code = execute(t, "devices")
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "SERIAL")
	assert.Contains(t, stdout, "arm64-v8a,armeabi-v7a")
	assert.Contains(t, stdout, "unauthorized")
}

func TestDevicesNone(t *testing.T) {
	newTestEnv(t)

	stdout, _, code := execute(t, "devices")
	require.Equal(t, 0, code)
	assert.Equal(t, "No connected devices.\n", stdout)

	stdout, _, code = execute(t, "--lang", "zh", "devices")
	require.Equal(t, 0, code)
	assert.Equal(t, "没有已连接的设备。\n", stdout)
}

func TestConfigCommands(t *testing.T) {
	env := newTestEnv(t)
	path := filepath.Join(env.dir, "conf", "config.yaml")

	stdout, stderr, code := execute(t, "--config", path, "config", "init")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "Config file created at "+path)
	assert.FileExists(t, path)

	_, stderr, code = execute(t, "--config", path, "config", "init")
	assert.Equal(t, errors.ExitIllegalInput, code)
	assert.Contains(t, stderr, "--force")

	_, _, code = execute(t, "--config", path, "config", "init", "--force")
	assert.Equal(t, 0, code)

	stdout, stderr, code = execute(t, "--config", path, "config", "show", "--format", "json")
	require.Equal(t, 0, code, stderr)
	var shown map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(stdout), &shown))
	assert.Equal(t, path, shown["file"])
	assert.Equal(t, filepath.Join(env.dir, "android-sdk"), shown["android_home"])
}

func TestBrokenConfig(t *testing.T) {
	env := newTestEnv(t)
	path := filepath.Join(env.dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log: [unclosed"), 0644))

	_, stderr, code := execute(t, "--config", path, "devices")
	assert.Equal(t, errors.ExitIllegalInput, code)
	assert.Contains(t, stderr, "Unable to load the configuration file.")
}

func TestVersion(t *testing.T) {
	newTestEnv(t)
	stdout, _, code := execute(t, "version")
	require.Equal(t, 0, code)
	assert.True(t, strings.HasPrefix(stdout, "apkset "), stdout)
}

func TestDoctorReportsBrokenADB(t *testing.T) {
	newTestEnv(t)
	stdout, stderr, code := execute(t, "doctor")
	assert.Equal(t, errors.ExitInternal, code)
	assert.Contains(t, stdout, "adb:")
	assert.Contains(t, stderr, "System diagnostics found")
}

func TestLangFromArgs(t *testing.T) {
	assert.Equal(t, "zh", langFromArgs([]string{"--lang", "zh", "devices"}))
	assert.Equal(t, "en", langFromArgs([]string{"devices", "--lang=en"}))
	assert.Equal(t, "", langFromArgs([]string{"devices", "--", "--lang=zh"}))
	assert.Equal(t, "", langFromArgs([]string{"--lang"}))
}

func TestFormatFromPath(t *testing.T) {
	assert.Equal(t, "yaml", formatFromPath("a/spec.yml", "json"))
	assert.Equal(t, "json", formatFromPath("spec.json", "yaml"))
	assert.Equal(t, "json", formatFromPath("spec", "json"))
}
