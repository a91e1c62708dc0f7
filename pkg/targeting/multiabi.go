package targeting

import (
	"sort"

	"github.com/huanfeng/apkset-cli/pkg/models"
)

// A higher number means a higher priority. Kept identical to bundletool's
// ordering.
var multiAbiPriorities = map[models.AbiAlias]int{
	models.AbiArmeabi:    1,
	models.AbiArmeabiV7a: 2,
	models.AbiArm64V8a:   3,
	models.AbiX86:        4,
	models.AbiX86_64:     5,
	models.AbiMips:       6,
	models.AbiMips64:     7,
}

// CompareMultiAbi orders two ABI tuples by priority: both are sorted by
// descending priority and compared element-wise, then by length.
func CompareMultiAbi(a, b models.MultiAbi) int {
	sortedA := sortByPriority(a)
	sortedB := sortByPriority(b)

	for i := 0; i < min(len(sortedA), len(sortedB)); i++ {
		pa, pb := multiAbiPriorities[sortedA[i]], multiAbiPriorities[sortedB[i]]
		if pa > pb {
			return 1
		}
		if pa < pb {
			return -1
		}
	}
	return len(sortedA) - len(sortedB)
}

func sortByPriority(abis models.MultiAbi) models.MultiAbi {
	sorted := append(models.MultiAbi{}, abis...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return multiAbiPriorities[sorted[i]] > multiAbiPriorities[sorted[j]]
	})
	return sorted
}

// multiAbiViable reports whether the device supports the tuple: any ABI
// when allAbisMustMatch is false, every ABI otherwise.
func multiAbiViable(abis models.MultiAbi, spec *models.DeviceSpec, allAbisMustMatch bool) bool {
	supported := 0
	for _, abi := range abis {
		if spec.AbiIndex(abi) >= 0 {
			supported++
		}
	}
	if supported == 0 {
		return false
	}
	return !allAbisMustMatch || supported == len(abis)
}

// MatchesMultiAbi reports whether a value tuple is viable on the device and
// no viable alternative has a higher priority.
func MatchesMultiAbi(t *models.MultiAbiTargeting, spec *models.DeviceSpec, allAbisMustMatch bool) bool {
	if t == nil {
		return true
	}

	viable := false
	for _, value := range t.Values {
		if multiAbiViable(value, spec, allAbisMustMatch) {
			viable = true
			break
		}
	}
	if !viable {
		return false
	}

	for _, alt := range t.Alternatives {
		if !multiAbiViable(alt, spec, allAbisMustMatch) {
			continue
		}
		for _, value := range t.Values {
			if CompareMultiAbi(value, alt) < 0 {
				return false
			}
		}
	}
	return true
}

// BestMultiAbi returns the highest priority viable tuple among values.
func BestMultiAbi(values []models.MultiAbi, spec *models.DeviceSpec) (models.MultiAbi, bool) {
	var best models.MultiAbi
	found := false
	for _, value := range values {
		if !multiAbiViable(value, spec, false) {
			continue
		}
		if !found || CompareMultiAbi(value, best) > 0 {
			best, found = value, true
		}
	}
	return best, found
}
