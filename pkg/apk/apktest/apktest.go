// Package apktest builds APK set archives for tests.
package apktest

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/huanfeng/apkset-cli/pkg/apk"
	"github.com/huanfeng/apkset-cli/pkg/models"
)

// Master returns an untargeted master split.
func Master(path string) models.ApkDescription {
	return models.ApkDescription{Path: path, IsMasterSplit: true}
}

// AbiSplit returns a split targeting a single ABI.
func AbiSplit(path string, abi models.AbiAlias, alternatives ...models.AbiAlias) models.ApkDescription {
	return models.ApkDescription{
		Path:    path,
		SplitID: "config." + abi.String(),
		Targeting: &models.ApkTargeting{
			Abi: &models.AbiTargeting{Values: []models.AbiAlias{abi}, Alternatives: alternatives},
		},
	}
}

// DensitySplit returns a split targeting a density bucket.
func DensitySplit(path string, alias models.DensityAlias, alternatives ...models.DensityAlias) models.ApkDescription {
	t := &models.ScreenDensityTargeting{Values: []models.ScreenDensity{models.DensityOf(alias)}}
	for _, a := range alternatives {
		t.Alternatives = append(t.Alternatives, models.DensityOf(a))
	}
	return models.ApkDescription{
		Path:      path,
		SplitID:   "config." + alias.String(),
		Targeting: &models.ApkTargeting{ScreenDensity: t},
	}
}

// LanguageSplit returns a split targeting a language.
func LanguageSplit(path, lang string) models.ApkDescription {
	return models.ApkDescription{
		Path:      path,
		SplitID:   "config." + lang,
		Targeting: &models.ApkTargeting{Language: &models.LanguageTargeting{Values: []string{lang}}},
	}
}

// Standalone returns a standalone APK targeting one ABI.
func Standalone(path string, abi models.AbiAlias, alternatives ...models.AbiAlias) models.ApkDescription {
	d := AbiSplit(path, abi, alternatives...)
	d.SplitID = ""
	d.Standalone = true
	return d
}

// Module returns an install-time module.
func Module(name string, deps []string, apks ...models.ApkDescription) models.ApkSet {
	return models.ApkSet{ModuleName: name, Dependencies: deps, Apks: apks}
}

// OnDemand returns an on-demand module.
func OnDemand(name string, deps []string, apks ...models.ApkDescription) models.ApkSet {
	set := Module(name, deps, apks...)
	set.OnDemand = true
	set.DeliveryType = models.DeliveryOnDemand
	return set
}

// Variant returns a variant with the given minimum SDK (0 for none).
func Variant(number, minSdk int, sets ...models.ApkSet) models.Variant {
	v := models.Variant{Number: number, ApkSets: sets}
	if minSdk > 0 {
		v.Targeting.SdkVersion = &models.SdkVersionTargeting{Values: []int{minSdk}}
	}
	return v
}

// InstantVariant returns a variant whose APKs are all instant APKs.
func InstantVariant(number, minSdk int, sets ...models.ApkSet) models.Variant {
	v := Variant(number, minSdk, sets...)
	for i := range v.ApkSets {
		v.ApkSets[i].IsInstant = true
		for j := range v.ApkSets[i].Apks {
			v.ApkSets[i].Apks[j].Instant = true
		}
	}
	return v
}

// TOC wraps variants into a table of contents.
func TOC(variants ...models.Variant) *models.BuildApksResult {
	return &models.BuildApksResult{PackageName: "com.example.app", Variants: variants}
}

// Write creates dir/bundle.apks containing toc and a small payload for every
// APK it references, and returns its path.
func Write(t testing.TB, dir string, toc *models.BuildApksResult) string {
	t.Helper()

	path := filepath.Join(dir, "bundle.apks")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create archive: %v", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	write := func(name string, data []byte) {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create entry %s: %v", name, err)
		}
		if _, err := w.Write(data); err != nil {
			t.Fatalf("write entry %s: %v", name, err)
		}
	}

	write(apk.TOCEntry, apk.MarshalTOC(toc))
	seen := make(map[string]bool)
	for _, v := range toc.Variants {
		for _, set := range v.ApkSets {
			for _, d := range set.Apks {
				if seen[d.Path] {
					continue
				}
				seen[d.Path] = true
				write(d.Path, []byte("apk:"+d.Path))
			}
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close archive: %v", err)
	}
	return path
}
