package probe

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huanfeng/apkset-cli/internal/errors"
	"github.com/huanfeng/apkset-cli/pkg/models"
)

const pixelConfig = `abi: arm64-v8a,armeabi-v7a,armeabi
config: mcc310-mnc260-en-rUS,fr-rFR,b+sr+Latn-ldltr-sw411dp-w411dp-h659dp-normal-long-notround-lowdr-nowidecg-port-notnight-420dpi-finger-keysexposed-nokeys-navhidden-nonav-v28
`

func TestParseSdk(t *testing.T) {
	sdk, err := ParseSdk(" 28\r\n")
	require.NoError(t, err)
	assert.Equal(t, 28, sdk)

	tests := []struct {
		input  string
		reason Reason
	}{
		{"", MissingField},
		{"  \n", MissingField},
		{"abc", MalformedField},
		{"0", MalformedField},
		{"-4", MalformedField},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.input), func(t *testing.T) {
			_, err := ParseSdk(tt.input)
			var pe *Error
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.reason, pe.Reason)
			assert.Equal(t, models.FieldSdkVersion, pe.Field)
		})
	}
}

func TestParseAbiLine(t *testing.T) {
	abis, err := ParseAbiLine("abi: x86_64, x86 ,arm64-v8a")
	require.NoError(t, err)
	assert.Equal(t, []string{"x86_64", "x86", "arm64-v8a"}, abis)

	_, err = ParseAbiLine("abi: arm64-v8a,riscv64")
	var pe *Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, UnknownAbi, pe.Reason)
	assert.Equal(t, "Unknown ABI 'riscv64' encountered while parsing activity manager config.", err.Error())

	_, err = ParseAbiLine("abi: ")
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, MissingField, pe.Reason)

	_, err = ParseAbiLine("abi: x86,,arm64-v8a")
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, UnknownAbi, pe.Reason)
	assert.Equal(t, "Unknown ABI '' encountered while parsing activity manager config.", err.Error())

	_, err = ParseAbiLine("config: nope")
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, MalformedField, pe.Reason)
}

func TestParseConfigLine(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		density int
		locales []string
	}{
		{
			name:    "pixel",
			line:    strings.Split(pixelConfig, "\n")[1],
			density: 420,
			locales: []string{"en-US", "fr-FR", "sr-Latn"},
		},
		{
			name:    "alias density without mcc",
			line:    "config: de-ldltr-sw360dp-w360dp-h640dp-normal-notlong-port-notnight-xhdpi-finger-v23",
			density: 320,
			locales: []string{"de"},
		},
		{
			name:    "numeric region",
			line:    "config: mcc334-es-r419-ldltr-480dpi-v30",
			density: 480,
			locales: []string{"es-419"},
		},
		{
			name:    "script and region",
			line:    "config: b+zh+Hant+TW,en-rGB-ldltr-hdpi-v29",
			density: 240,
			locales: []string{"zh-Hant-TW", "en-GB"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			density, locales, err := ParseConfigLine(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.density, density)
			assert.Equal(t, tt.locales, locales)
		})
	}
}

func TestParseConfigLineMissing(t *testing.T) {
	var pe *Error

	_, _, err := ParseConfigLine("config: mcc310-mnc260-en-rUS-ldltr-port-v28")
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, MissingField, pe.Reason)
	assert.Equal(t, models.FieldDensity, pe.Field)

	_, _, err = ParseConfigLine("config: mcc310-mnc260-ldltr-port-420dpi-v28")
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, MissingField, pe.Reason)
	assert.Equal(t, models.FieldLocales, pe.Field)
}

func TestParse(t *testing.T) {
	spec, err := Parse("28\n", pixelConfig)
	require.NoError(t, err)
	assert.Equal(t, &models.DeviceSpec{
		SdkVersion:       28,
		SupportedAbis:    []string{"arm64-v8a", "armeabi-v7a", "armeabi"},
		ScreenDensity:    420,
		SupportedLocales: []string{"en-US", "fr-FR", "sr-Latn"},
	}, spec)

	_, err = Parse("28", "config: en-420dpi")
	var pe *Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, models.FieldAbis, pe.Field)

	_, err = Parse("28", "abi: x86")
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, models.FieldDensity, pe.Field)
}

func TestParseEmitRoundTrip(t *testing.T) {
	specs := []models.DeviceSpec{
		{SdkVersion: 21, SupportedAbis: []string{"arm64-v8a"}, ScreenDensity: 240, SupportedLocales: []string{"en-US"}},
		{SdkVersion: 19, SupportedAbis: []string{"x86_64", "x86"}, ScreenDensity: 480, SupportedLocales: []string{"en-US", "de"}},
		{SdkVersion: 33, SupportedAbis: []string{"armeabi-v7a", "armeabi"}, ScreenDensity: 213, SupportedLocales: []string{"sr-Latn", "pt-BR"}},
		{SdkVersion: 1, SupportedAbis: []string{"mips64", "mips"}, ScreenDensity: 120, SupportedLocales: []string{"zh-Hant-TW"}},
		{SdkVersion: 30, SupportedAbis: []string{"x86"}, ScreenDensity: 640, SupportedLocales: []string{"es-419", "fr-CA", "ja"}},
		{SdkVersion: 31, SupportedAbis: []string{"arm64-v8a"}, ScreenDensity: 420, SupportedLocales: []string{"de-DE-u-co-phonebk", "ca-ES-valencia"}},
		{SdkVersion: 29, SupportedAbis: []string{"x86_64"}, ScreenDensity: 320, SupportedLocales: []string{"sl-rozaj", "en-US"}},
	}
	for _, spec := range specs {
		t.Run(fmt.Sprintf("sdk%d-%ddpi", spec.SdkVersion, spec.ScreenDensity), func(t *testing.T) {
			require.NoError(t, spec.Validate())
			sdkOutput, configOutput := Emit(&spec)
			parsed, err := Parse(sdkOutput, configOutput)
			require.NoError(t, err)
			assert.Equal(t, spec, *parsed)
		})
	}
}

type scriptedShell struct {
	outputs map[string]string
	errs    map[string]error
	calls   []string
}

func (s *scriptedShell) Shell(_ context.Context, args ...string) (string, error) {
	cmd := strings.Join(args, " ")
	s.calls = append(s.calls, cmd)
	if err, ok := s.errs[cmd]; ok {
		return "", err
	}
	return s.outputs[cmd], nil
}

func TestCapabilities(t *testing.T) {
	spec := models.DeviceSpec{SdkVersion: 28, SupportedAbis: []string{"arm64-v8a"}, ScreenDensity: 420, SupportedLocales: []string{"en-US"}}
	sdkOutput, configOutput := Emit(&spec)
	sh := &scriptedShell{outputs: map[string]string{
		"getprop ro.build.version.sdk": sdkOutput,
		"am get-config":                configOutput,
	}}

	got, err := Capabilities(context.Background(), sh)
	require.NoError(t, err)
	assert.Equal(t, &spec, got)
	assert.Equal(t, []string{"getprop ro.build.version.sdk", "am get-config"}, sh.calls)
}

func TestCapabilitiesFailures(t *testing.T) {
	tests := []struct {
		name string
		spec models.DeviceSpec
		want string
	}{
		{"sdk", models.DeviceSpec{SdkVersion: -1, SupportedAbis: []string{"x86"}, ScreenDensity: 480, SupportedLocales: []string{"en-US"}}, "Error retrieving device SDK version"},
		{"density", models.DeviceSpec{SdkVersion: 21, SupportedAbis: []string{"x86"}, ScreenDensity: -1, SupportedLocales: []string{"en-US"}}, "Error retrieving device density"},
		{"abis", models.DeviceSpec{SdkVersion: 21, ScreenDensity: 480, SupportedLocales: []string{"en-US"}}, "Error retrieving device ABIs"},
		{"locales", models.DeviceSpec{SdkVersion: 21, SupportedAbis: []string{"x86"}, ScreenDensity: 480}, "Error retrieving device locales"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sdkOutput, configOutput := Emit(&tt.spec)
			sh := &scriptedShell{outputs: map[string]string{
				"getprop ro.build.version.sdk": sdkOutput,
				"am get-config":                configOutput,
			}}
			_, err := Capabilities(context.Background(), sh)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.Equal(t, errors.KindProbeFailure, errors.KindOf(err))
		})
	}
}

func TestCapabilitiesShellError(t *testing.T) {
	sh := &scriptedShell{errs: map[string]error{"getprop ro.build.version.sdk": fmt.Errorf("device offline")}}
	_, err := Capabilities(context.Background(), sh)
	require.Error(t, err)
	assert.Equal(t, errors.KindProbeFailure, errors.KindOf(err))
	assert.Contains(t, err.Error(), "device offline")
}

func TestCapabilitiesCanceled(t *testing.T) {
	for _, cmd := range []string{"getprop ro.build.version.sdk", "am get-config"} {
		t.Run(cmd, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			spec := models.DeviceSpec{SdkVersion: 28, SupportedAbis: []string{"x86"}, ScreenDensity: 420, SupportedLocales: []string{"en-US"}}
			sdkOutput, configOutput := Emit(&spec)
			sh := &cancelingShell{
				scriptedShell: scriptedShell{outputs: map[string]string{
					"getprop ro.build.version.sdk": sdkOutput,
					"am get-config":                configOutput,
				}},
				failOn: cmd,
				cancel: cancel,
			}

			_, err := Capabilities(ctx, sh)
			require.ErrorIs(t, err, context.Canceled)
			assert.Equal(t, errors.KindInternal, errors.KindOf(err))
		})
	}
}

// cancelingShell cancels the context while running failOn, the way an
// interrupted adb process dies.
type cancelingShell struct {
	scriptedShell
	failOn string
	cancel context.CancelFunc
}

func (s *cancelingShell) Shell(ctx context.Context, args ...string) (string, error) {
	if strings.Join(args, " ") == s.failOn {
		s.cancel()
		return "", fmt.Errorf("signal: killed")
	}
	return s.scriptedShell.Shell(ctx, args...)
}
