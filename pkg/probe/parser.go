// Package probe turns the text reported by a device shell into a DeviceSpec
// and back.
package probe

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/language"

	"github.com/huanfeng/apkset-cli/pkg/models"
)

// Reason classifies a parse failure.
type Reason int

const (
	MissingField Reason = iota + 1
	MalformedField
	UnknownAbi
)

func (r Reason) String() string {
	switch r {
	case MissingField:
		return "missing field"
	case MalformedField:
		return "malformed field"
	case UnknownAbi:
		return "unknown abi"
	default:
		return "unknown"
	}
}

// Error is returned by every parser in this package.
type Error struct {
	Reason Reason
	Field  models.SpecField
	Value  string
}

func (e *Error) Error() string {
	switch e.Reason {
	case UnknownAbi:
		return fmt.Sprintf("Unknown ABI '%s' encountered while parsing activity manager config.", e.Value)
	case MissingField:
		return fmt.Sprintf("device %s not reported", e.Field)
	default:
		return fmt.Sprintf("unable to parse device %s from %q", e.Field, e.Value)
	}
}

const (
	abiPrefix    = "abi:"
	configPrefix = "config:"
)

var (
	dpiPattern    = regexp.MustCompile(`^(\d+)dpi$`)
	mccMncPattern = regexp.MustCompile(`^(mcc|mnc)\d+$`)
	// A locale list sits right after mcc/mnc: en-rUS,fr-rFR or b+sr+Latn.
	localeListPattern = regexp.MustCompile(
		`^((?:[a-z]{2,3}(?:-r(?:[A-Z]{2}|[0-9]{3}))?|b\+[A-Za-z0-9+]+)` +
			`(?:,(?:[a-z]{2,3}(?:-r(?:[A-Z]{2}|[0-9]{3}))?|b\+[A-Za-z0-9+]+))*)(?:-|$)`)
)

// ParseSdk parses the output of getprop ro.build.version.sdk.
func ParseSdk(output string) (int, error) {
	value := strings.TrimSpace(output)
	if value == "" {
		return 0, &Error{Reason: MissingField, Field: models.FieldSdkVersion}
	}
	sdk, err := strconv.Atoi(value)
	if err != nil || sdk <= 0 {
		return 0, &Error{Reason: MalformedField, Field: models.FieldSdkVersion, Value: value}
	}
	return sdk, nil
}

// ParseAbiLine parses an "abi: a,b,c" line into platform ABI names in
// device preference order.
func ParseAbiLine(line string) ([]string, error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, abiPrefix) {
		return nil, &Error{Reason: MalformedField, Field: models.FieldAbis, Value: line}
	}

	list := strings.TrimSpace(strings.TrimPrefix(line, abiPrefix))
	if list == "" {
		return nil, &Error{Reason: MissingField, Field: models.FieldAbis}
	}

	var abis []string
	for _, token := range strings.Split(list, ",") {
		token = strings.TrimSpace(token)
		if _, ok := models.AbiFromPlatformName(token); !ok {
			return nil, &Error{Reason: UnknownAbi, Field: models.FieldAbis, Value: token}
		}
		abis = append(abis, token)
	}
	return abis, nil
}

// ParseConfigLine extracts the density and locales from a "config:" line.
func ParseConfigLine(line string) (int, []string, error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, configPrefix) {
		return 0, nil, &Error{Reason: MalformedField, Field: models.FieldDensity, Value: line}
	}
	config := strings.TrimSpace(strings.TrimPrefix(line, configPrefix))

	rest := config
	for {
		head, tail, _ := strings.Cut(rest, "-")
		if !mccMncPattern.MatchString(head) {
			break
		}
		rest = tail
	}

	var locales []string
	if m := localeListPattern.FindStringSubmatch(rest); m != nil {
		for _, qualifier := range strings.Split(m[1], ",") {
			tag, err := localeFromQualifier(qualifier)
			if err != nil {
				return 0, nil, &Error{Reason: MalformedField, Field: models.FieldLocales, Value: qualifier}
			}
			locales = append(locales, tag)
		}
	}

	density := 0
	for _, token := range strings.Split(config, "-") {
		if m := dpiPattern.FindStringSubmatch(token); m != nil {
			dpi, err := strconv.Atoi(m[1])
			if err != nil || dpi <= 0 {
				return 0, nil, &Error{Reason: MalformedField, Field: models.FieldDensity, Value: token}
			}
			density = dpi
			break
		}
		if alias, ok := models.DensityFromQualifier(token); ok && alias != models.DensityNoDpi {
			density = alias.DPI()
			break
		}
	}

	if density == 0 {
		return 0, nil, &Error{Reason: MissingField, Field: models.FieldDensity}
	}
	if len(locales) == 0 {
		return 0, nil, &Error{Reason: MissingField, Field: models.FieldLocales}
	}
	return density, locales, nil
}

// Parse builds a DeviceSpec from the getprop output and the multi-line
// am get-config output.
func Parse(sdkOutput, configOutput string) (*models.DeviceSpec, error) {
	sdk, err := ParseSdk(sdkOutput)
	if err != nil {
		return nil, err
	}

	var abiLine, configLine string
	for _, line := range strings.Split(configOutput, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, abiPrefix) && abiLine == "":
			abiLine = line
		case strings.HasPrefix(line, configPrefix) && configLine == "":
			configLine = line
		}
	}
	if abiLine == "" {
		return nil, &Error{Reason: MissingField, Field: models.FieldAbis}
	}
	if configLine == "" {
		return nil, &Error{Reason: MissingField, Field: models.FieldDensity}
	}

	abis, err := ParseAbiLine(abiLine)
	if err != nil {
		return nil, err
	}
	density, locales, err := ParseConfigLine(configLine)
	if err != nil {
		return nil, err
	}

	return &models.DeviceSpec{
		SdkVersion:       sdk,
		SupportedAbis:    abis,
		ScreenDensity:    density,
		SupportedLocales: locales,
	}, nil
}

// localeFromQualifier converts a resource locale qualifier to a canonical
// BCP-47 tag: en-rUS -> en-US, b+sr+Latn -> sr-Latn.
func localeFromQualifier(q string) (string, error) {
	var raw string
	switch {
	case strings.HasPrefix(q, "b+"):
		raw = strings.ReplaceAll(strings.TrimPrefix(q, "b+"), "+", "-")
	case strings.Contains(q, "-r"):
		lang, region, _ := strings.Cut(q, "-r")
		raw = lang + "-" + region
	default:
		raw = q
	}
	return CanonicalLocale(raw)
}

// CanonicalLocale returns the canonical BCP-47 form of tag.
func CanonicalLocale(tag string) (string, error) {
	t, err := language.Parse(tag)
	if err != nil {
		return "", err
	}
	return t.String(), nil
}
