// Package targeting evaluates APK and variant targeting predicates against
// a DeviceSpec. Every function here is pure.
package targeting

import (
	"math"
	"strings"

	"golang.org/x/text/language"

	"github.com/huanfeng/apkset-cli/pkg/models"
)

// Matches reports whether every predicate present on t holds for spec.
// A nil targeting, as carried by master splits, always matches.
func Matches(t *models.ApkTargeting, spec *models.DeviceSpec) bool {
	if t == nil {
		return true
	}
	return MatchesAbi(t.Abi, spec) &&
		MatchesDensity(t.ScreenDensity, spec) &&
		MatchesLanguage(t.Language, spec) &&
		MatchesMultiAbi(t.MultiAbi, spec, false) &&
		MatchesSdk(t.SdkVersion, spec)
}

// MatchesAbi reports whether one of the values is supported by the device
// and no alternative ranks earlier in the device preference list.
func MatchesAbi(t *models.AbiTargeting, spec *models.DeviceSpec) bool {
	if t == nil {
		return true
	}
	idx := AbiRank(t.Values, spec)
	if idx < 0 {
		return false
	}
	for _, alt := range t.Alternatives {
		if i := spec.AbiIndex(alt); i >= 0 && i < idx {
			return false
		}
	}
	return true
}

// AbiRank returns the lowest device preference index among abis, or -1
// when the device supports none of them.
func AbiRank(abis []models.AbiAlias, spec *models.DeviceSpec) int {
	best := -1
	for _, abi := range abis {
		if i := spec.AbiIndex(abi); i >= 0 && (best < 0 || i < best) {
			best = i
		}
	}
	return best
}

// MatchesDensity reports whether the best value is closer to the device
// dpi than every alternative.
func MatchesDensity(t *models.ScreenDensityTargeting, spec *models.DeviceSpec) bool {
	if t == nil {
		return true
	}
	best, ok := BestDensity(t.Values, spec.ScreenDensity)
	if !ok {
		return false
	}
	for _, alt := range t.Alternatives {
		if !DensityCloser(best, alt.DPI(), spec.ScreenDensity) {
			return false
		}
	}
	return true
}

// DensityDistance is |log2(device/candidate)|.
func DensityDistance(deviceDpi, candidateDpi int) float64 {
	return math.Abs(math.Log2(float64(deviceDpi) / float64(candidateDpi)))
}

// DensityCloser reports whether candidate a is strictly preferred over b for
// a device of deviceDpi. Equal distances prefer the larger dpi. The ratio
// comparison is done on integers so that symmetric ratios tie exactly.
func DensityCloser(a, b, deviceDpi int) bool {
	if a <= 0 {
		return false
	}
	if b <= 0 {
		return true
	}
	// |log2(d/a)| < |log2(d/b)|  <=>  max(d,a)*min(d,b) < max(d,b)*min(d,a)
	lhs := int64(max(deviceDpi, a)) * int64(min(deviceDpi, b))
	rhs := int64(max(deviceDpi, b)) * int64(min(deviceDpi, a))
	if lhs != rhs {
		return lhs < rhs
	}
	return a > b
}

// BestDensity returns the dpi among values closest to deviceDpi.
func BestDensity(values []models.ScreenDensity, deviceDpi int) (int, bool) {
	best, found := 0, false
	for _, v := range values {
		dpi := v.DPI()
		if dpi <= 0 {
			continue
		}
		if !found || DensityCloser(dpi, best, deviceDpi) {
			best, found = dpi, true
		}
	}
	return best, found
}

// MatchesLanguage reports whether one of the values shares its base
// language with a device locale. Regions are ignored.
func MatchesLanguage(t *models.LanguageTargeting, spec *models.DeviceSpec) bool {
	if t == nil {
		return true
	}
	for _, value := range t.Values {
		for _, locale := range spec.SupportedLocales {
			if SameLanguage(value, locale) {
				return true
			}
		}
	}
	return false
}

// SameLanguage compares the base language subtags of two BCP-47 tags.
func SameLanguage(a, b string) bool {
	return baseLanguage(a) == baseLanguage(b) && baseLanguage(a) != ""
}

func baseLanguage(tag string) string {
	if t, err := language.Parse(tag); err == nil {
		if base, conf := t.Base(); conf != language.No {
			return base.String()
		}
	}
	head, _, _ := strings.Cut(strings.ReplaceAll(tag, "_", "-"), "-")
	return strings.ToLower(head)
}

// MatchesSdk reports whether the device SDK reaches the minimum of the
// first value. A missing minimum means 1.
func MatchesSdk(t *models.SdkVersionTargeting, spec *models.DeviceSpec) bool {
	if t == nil {
		return true
	}
	return spec.SdkVersion >= t.MinSdk()
}

// MatchesVariant evaluates the variant-level predicates.
func MatchesVariant(t models.VariantTargeting, spec *models.DeviceSpec, allAbisMustMatch bool) bool {
	return MatchesSdk(t.SdkVersion, spec) &&
		MatchesAbi(t.Abi, spec) &&
		MatchesDensity(t.ScreenDensity, spec) &&
		MatchesMultiAbi(t.MultiAbi, spec, allAbisMustMatch)
}
