package targeting

import (
	"github.com/huanfeng/apkset-cli/pkg/models"
)

// SelectSplits returns the APKs of one module to install on the device:
// the master split plus, for each targeted dimension, the best matching
// split(s). Language splits are all kept when they match. Order follows
// the archive.
func SelectSplits(set *models.ApkSet, spec *models.DeviceSpec) ([]models.ApkDescription, error) {
	byDim := make(map[models.Dimension][]int)
	var dims []models.Dimension
	keep := make([]bool, len(set.Apks))

	for i, apk := range set.Apks {
		if apk.IsMasterSplit {
			keep[i] = true
			continue
		}
		dim := apk.Targeting.PrimaryDimension()
		if dim == models.DimensionNone {
			keep[i] = true
			continue
		}
		if _, ok := byDim[dim]; !ok {
			dims = append(dims, dim)
		}
		byDim[dim] = append(byDim[dim], i)
	}

	for _, dim := range dims {
		candidates := byDim[dim]
		var matching []int
		for _, i := range candidates {
			if Matches(set.Apks[i].Targeting, spec) {
				matching = append(matching, i)
			}
		}

		if dim == models.DimensionAbi && len(matching) == 0 {
			return nil, AbiIncompatible(spec.SupportedAbis, splitAbis(set, candidates))
		}

		for _, i := range best(dim, set.Apks, matching, spec) {
			keep[i] = true
		}
	}

	var out []models.ApkDescription
	for i, apk := range set.Apks {
		if keep[i] {
			out = append(out, apk)
		}
	}
	return out, nil
}

// SelectStandalone picks the best matching standalone APK of a set.
func SelectStandalone(set *models.ApkSet, spec *models.DeviceSpec) (models.ApkDescription, bool) {
	var matching []int
	for i, apk := range set.Apks {
		if apk.Standalone && Matches(apk.Targeting, spec) {
			matching = append(matching, i)
		}
	}
	if len(matching) == 0 {
		return models.ApkDescription{}, false
	}
	winner := matching[0]
	for _, i := range matching[1:] {
		if standaloneBetter(set.Apks[i].Targeting, set.Apks[winner].Targeting, spec) {
			winner = i
		}
	}
	return set.Apks[winner], true
}

func standaloneBetter(a, b *models.ApkTargeting, spec *models.DeviceSpec) bool {
	if a == nil || b == nil {
		return false
	}
	if a.Abi != nil && b.Abi != nil {
		if ra, rb := AbiRank(a.Abi.Values, spec), AbiRank(b.Abi.Values, spec); ra != rb {
			return ra < rb
		}
	}
	if a.MultiAbi != nil && b.MultiAbi != nil {
		ma, _ := BestMultiAbi(a.MultiAbi.Values, spec)
		mb, _ := BestMultiAbi(b.MultiAbi.Values, spec)
		if c := CompareMultiAbi(ma, mb); c != 0 {
			return c > 0
		}
	}
	if a.ScreenDensity != nil && b.ScreenDensity != nil {
		da, _ := BestDensity(a.ScreenDensity.Values, spec.ScreenDensity)
		db, _ := BestDensity(b.ScreenDensity.Values, spec.ScreenDensity)
		if da != db {
			return DensityCloser(da, db, spec.ScreenDensity)
		}
	}
	return false
}

// best narrows the matching splits of one dimension to the ones installed.
func best(dim models.Dimension, apks []models.ApkDescription, matching []int, spec *models.DeviceSpec) []int {
	if len(matching) <= 1 || dim == models.DimensionLanguage {
		return matching
	}

	winner := matching[0]
	for _, i := range matching[1:] {
		a, b := apks[i].Targeting, apks[winner].Targeting
		switch dim {
		case models.DimensionAbi:
			if AbiRank(a.Abi.Values, spec) < AbiRank(b.Abi.Values, spec) {
				winner = i
			}
		case models.DimensionDensity:
			da, _ := BestDensity(a.ScreenDensity.Values, spec.ScreenDensity)
			db, _ := BestDensity(b.ScreenDensity.Values, spec.ScreenDensity)
			if DensityCloser(da, db, spec.ScreenDensity) {
				winner = i
			}
		case models.DimensionMultiAbi:
			ma, _ := BestMultiAbi(a.MultiAbi.Values, spec)
			mb, _ := BestMultiAbi(b.MultiAbi.Values, spec)
			if CompareMultiAbi(ma, mb) > 0 {
				winner = i
			}
		case models.DimensionSdk:
			if a.SdkVersion.MinSdk() > b.SdkVersion.MinSdk() {
				winner = i
			}
		}
	}
	return []int{winner}
}

// splitAbis lists the ABIs targeted by the given splits in archive order.
func splitAbis(set *models.ApkSet, idx []int) []string {
	var aliases []models.AbiAlias
	for _, i := range idx {
		if t := set.Apks[i].Targeting; t != nil && t.Abi != nil {
			aliases = append(aliases, t.Abi.Values...)
		}
	}
	return uniqueAbiNames(aliases)
}
