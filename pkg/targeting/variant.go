package targeting

import (
	"fmt"
	"math"
	"strings"

	"github.com/huanfeng/apkset-cli/internal/errors"
	"github.com/huanfeng/apkset-cli/pkg/models"
)

// SdkIncompatible is returned when no variant accepts the device SDK.
func SdkIncompatible(sdk int) *errors.Error {
	return errors.Newf(errors.KindSdkIncompatible, "SDK_INCOMPATIBLE",
		"The app doesn't support SDK version of the device: (%d).", sdk).
		WithContext("deviceSdk", fmt.Sprint(sdk))
}

// AbiIncompatible is returned when no ABI split or variant fits the device.
func AbiIncompatible(deviceAbis []string, appAbis []string) *errors.Error {
	return errors.Newf(errors.KindAbiIncompatible, "ABI_INCOMPATIBLE",
		"The app doesn't support ABI architectures of the device. Device ABIs: %s, app ABIs: %s",
		formatList(deviceAbis), formatList(appAbis))
}

func formatList(items []string) string {
	return "[" + strings.Join(items, ", ") + "]"
}

// SelectVariant picks the matching variant with the largest minimum SDK.
// Equal minimums are ordered by ABI preference, then density closeness,
// then multi-ABI priority; a remaining tie is a malformed archive. Instant
// variants are never selected.
func SelectVariant(toc *models.BuildApksResult, spec *models.DeviceSpec) (*models.Variant, error) {
	var installable []*models.Variant
	for i := range toc.Variants {
		if !toc.Variants[i].Instant() {
			installable = append(installable, &toc.Variants[i])
		}
	}
	if len(installable) == 0 {
		return nil, errors.NewMalformedArchiveError("The archive contains no installable variants.")
	}

	var sdkMatches []*models.Variant
	for _, v := range installable {
		if MatchesSdk(v.Targeting.SdkVersion, spec) {
			sdkMatches = append(sdkMatches, v)
		}
	}
	if len(sdkMatches) == 0 {
		return nil, SdkIncompatible(spec.SdkVersion)
	}

	// Multi-ABI variants are first matched requiring every ABI of the tuple.
	var matches []*models.Variant
	for _, strict := range []bool{true, false} {
		for _, v := range sdkMatches {
			if MatchesVariant(v.Targeting, spec, strict) {
				matches = append(matches, v)
			}
		}
		if len(matches) > 0 {
			break
		}
	}
	if len(matches) == 0 {
		if appAbis := variantAbis(sdkMatches); len(appAbis) > 0 {
			return nil, AbiIncompatible(spec.SupportedAbis, appAbis)
		}
		return nil, SdkIncompatible(spec.SdkVersion)
	}

	best := matches[0]
	ambiguous := false
	for _, v := range matches[1:] {
		switch c := compareVariants(v, best, spec); {
		case c > 0:
			best, ambiguous = v, false
		case c == 0:
			ambiguous = true
		}
	}
	if ambiguous {
		return nil, errors.NewMalformedArchiveError(
			"More than one variant matches the device with min SDK %d.", best.Targeting.MinSdk())
	}
	return best, nil
}

// compareVariants returns a positive number when a is a better fit than b.
func compareVariants(a, b *models.Variant, spec *models.DeviceSpec) int {
	if d := a.Targeting.MinSdk() - b.Targeting.MinSdk(); d != 0 {
		return d
	}

	ra, rb := variantAbiRank(a, spec), variantAbiRank(b, spec)
	if ra != rb {
		return rb - ra
	}

	da, okA := variantDensity(a, spec)
	db, okB := variantDensity(b, spec)
	if okA && okB && da != db {
		if DensityCloser(da, db, spec.ScreenDensity) {
			return 1
		}
		return -1
	}

	ma, okA := variantMultiAbi(a, spec)
	mb, okB := variantMultiAbi(b, spec)
	if okA && okB {
		return CompareMultiAbi(ma, mb)
	}
	return 0
}

func variantAbiRank(v *models.Variant, spec *models.DeviceSpec) int {
	if v.Targeting.Abi == nil {
		return math.MaxInt32
	}
	return AbiRank(v.Targeting.Abi.Values, spec)
}

func variantDensity(v *models.Variant, spec *models.DeviceSpec) (int, bool) {
	if v.Targeting.ScreenDensity == nil {
		return 0, false
	}
	return BestDensity(v.Targeting.ScreenDensity.Values, spec.ScreenDensity)
}

func variantMultiAbi(v *models.Variant, spec *models.DeviceSpec) (models.MultiAbi, bool) {
	if v.Targeting.MultiAbi == nil {
		return nil, false
	}
	return BestMultiAbi(v.Targeting.MultiAbi.Values, spec)
}

// variantAbis lists the ABIs targeted at variant level, in archive order.
func variantAbis(variants []*models.Variant) []string {
	var aliases []models.AbiAlias
	for _, v := range variants {
		if v.Targeting.Abi != nil {
			aliases = append(aliases, v.Targeting.Abi.Values...)
		}
		if v.Targeting.MultiAbi != nil {
			for _, tuple := range v.Targeting.MultiAbi.Values {
				aliases = append(aliases, tuple...)
			}
		}
	}
	return uniqueAbiNames(aliases)
}

func uniqueAbiNames(aliases []models.AbiAlias) []string {
	seen := make(map[models.AbiAlias]bool, len(aliases))
	var names []string
	for _, a := range aliases {
		if seen[a] {
			continue
		}
		seen[a] = true
		names = append(names, a.String())
	}
	return names
}
