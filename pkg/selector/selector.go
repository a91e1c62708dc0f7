// Package selector computes the APKs of an APK set to install on a device.
package selector

import (
	"github.com/huanfeng/apkset-cli/internal/errors"
	"github.com/huanfeng/apkset-cli/pkg/models"
	"github.com/huanfeng/apkset-cli/pkg/modules"
	"github.com/huanfeng/apkset-cli/pkg/targeting"
)

// Select picks the variant for spec, resolves the requested modules (all
// default modules when requested is empty) and returns the APKs to install,
// unique by path, base first.
func Select(toc *models.BuildApksResult, spec *models.DeviceSpec, requested []string) (*models.InstallPlan, error) {
	variant, err := targeting.SelectVariant(toc, spec)
	if err != nil {
		return nil, err
	}

	graph, err := modules.NewGraph(variant)
	if err != nil {
		return nil, err
	}
	resolved, err := modules.Resolve(graph, requested)
	if err != nil {
		return nil, err
	}

	plan := &models.InstallPlan{
		PackageName: toc.PackageName,
		Variant:     variant.Number,
		Modules:     resolved,
	}
	seen := make(map[string]bool)
	add := func(apks ...models.ApkDescription) {
		for _, apk := range apks {
			if !seen[apk.Path] {
				seen[apk.Path] = true
				plan.Apks = append(plan.Apks, apk)
			}
		}
	}

	for _, name := range resolved {
		set := variant.Module(name)
		if set.Standalone() {
			apk, ok := targeting.SelectStandalone(set, spec)
			if !ok {
				return nil, noStandalone(set, spec)
			}
			add(apk)
			continue
		}

		apks, err := targeting.SelectSplits(set, spec)
		if err != nil {
			return nil, err
		}
		add(apks...)
	}

	if len(plan.Apks) == 0 {
		return nil, errors.NewMalformedArchiveError("No APKs selected for variant %d.", variant.Number)
	}
	return plan, nil
}

// noStandalone reports a standalone module none of whose APKs fit. The
// only predicates standalone APKs carry besides SDK are ABI based.
func noStandalone(set *models.ApkSet, spec *models.DeviceSpec) error {
	var aliases []models.AbiAlias
	seen := make(map[models.AbiAlias]bool)
	for _, apk := range set.Apks {
		if apk.Targeting == nil {
			continue
		}
		var abis []models.AbiAlias
		if apk.Targeting.Abi != nil {
			abis = append(abis, apk.Targeting.Abi.Values...)
		}
		if apk.Targeting.MultiAbi != nil {
			for _, tuple := range apk.Targeting.MultiAbi.Values {
				abis = append(abis, tuple...)
			}
		}
		for _, a := range abis {
			if !seen[a] {
				seen[a] = true
				aliases = append(aliases, a)
			}
		}
	}
	if len(aliases) == 0 {
		return errors.NewMalformedArchiveError("No standalone APK of module '%s' matches the device.", set.ModuleName)
	}
	return targeting.AbiIncompatible(spec.SupportedAbis, models.PlatformNames(aliases))
}
