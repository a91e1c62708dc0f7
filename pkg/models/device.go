package models

import (
	"fmt"

	"golang.org/x/text/language"
)

// DeviceSpec describes the capabilities of a device that matter for APK
// selection. The JSON keys match bundletool's device-spec files.
type DeviceSpec struct {
	SdkVersion       int      `json:"sdkVersion" yaml:"sdkVersion"`
	SupportedAbis    []string `json:"supportedAbis" yaml:"supportedAbis"`       // Preference order
	ScreenDensity    int      `json:"screenDensity" yaml:"screenDensity"`       // dpi
	SupportedLocales []string `json:"supportedLocales" yaml:"supportedLocales"` // BCP-47
}

// SpecField names a DeviceSpec dimension in user-facing messages.
type SpecField string

const (
	FieldSdkVersion SpecField = "SDK version"
	FieldAbis       SpecField = "ABIs"
	FieldDensity    SpecField = "density"
	FieldLocales    SpecField = "locales"
)

// FieldError reports a missing or invalid DeviceSpec dimension.
type FieldError struct {
	Field   SpecField
	Missing bool
	Value   string
}

func (e *FieldError) Error() string {
	if e.Missing {
		return fmt.Sprintf("device %s is missing", e.Field)
	}
	return fmt.Sprintf("device %s is invalid: %q", e.Field, e.Value)
}

// Validate checks that every dimension is present and well formed.
func (s *DeviceSpec) Validate() error {
	if s.SdkVersion <= 0 {
		if s.SdkVersion == 0 {
			return &FieldError{Field: FieldSdkVersion, Missing: true}
		}
		return &FieldError{Field: FieldSdkVersion, Value: fmt.Sprint(s.SdkVersion)}
	}
	if len(s.SupportedAbis) == 0 {
		return &FieldError{Field: FieldAbis, Missing: true}
	}
	seen := make(map[string]bool, len(s.SupportedAbis))
	for _, abi := range s.SupportedAbis {
		if _, ok := AbiFromPlatformName(abi); !ok || seen[abi] {
			return &FieldError{Field: FieldAbis, Value: abi}
		}
		seen[abi] = true
	}
	if s.ScreenDensity <= 0 {
		if s.ScreenDensity == 0 {
			return &FieldError{Field: FieldDensity, Missing: true}
		}
		return &FieldError{Field: FieldDensity, Value: fmt.Sprint(s.ScreenDensity)}
	}
	if len(s.SupportedLocales) == 0 {
		return &FieldError{Field: FieldLocales, Missing: true}
	}
	for _, l := range s.SupportedLocales {
		if _, err := language.Parse(l); l == "" || err != nil {
			return &FieldError{Field: FieldLocales, Value: l}
		}
	}
	return nil
}

// AbiAliases returns the device ABIs as aliases, preserving order and
// skipping unknown names.
func (s *DeviceSpec) AbiAliases() []AbiAlias {
	aliases := make([]AbiAlias, 0, len(s.SupportedAbis))
	for _, name := range s.SupportedAbis {
		if a, ok := AbiFromPlatformName(name); ok {
			aliases = append(aliases, a)
		}
	}
	return aliases
}

// AbiIndex returns the preference index of alias on the device, or -1.
func (s *DeviceSpec) AbiIndex(alias AbiAlias) int {
	name := alias.PlatformName()
	for i, abi := range s.SupportedAbis {
		if abi == name {
			return i
		}
	}
	return -1
}
