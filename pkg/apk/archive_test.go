package apk_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huanfeng/apkset-cli/internal/errors"
	"github.com/huanfeng/apkset-cli/pkg/apk"
	"github.com/huanfeng/apkset-cli/pkg/apk/apktest"
	"github.com/huanfeng/apkset-cli/pkg/models"
)

func sampleTOC() *models.BuildApksResult {
	standalone := apktest.Variant(1, 15,
		apktest.Module("base", nil, apktest.Standalone("standalones/standalone-x86.apk", models.AbiX86, models.AbiArm64V8a)))
	standalone.Targeting.Abi = &models.AbiTargeting{Values: []models.AbiAlias{models.AbiX86}, Alternatives: []models.AbiAlias{models.AbiArm64V8a}}
	standalone.Targeting.ScreenDensity = &models.ScreenDensityTargeting{Values: []models.ScreenDensity{models.DensityDpi(420)}}
	standalone.Targeting.MultiAbi = &models.MultiAbiTargeting{Values: []models.MultiAbi{{models.AbiX86, models.AbiX86_64}}}

	feature := apktest.OnDemand("feature", []string{"base"},
		apktest.Master("splits/feature-master.apk"),
		apktest.LanguageSplit("splits/feature-fr.apk", "fr"))
	feature.IsInstant = true

	return apktest.TOC(
		apktest.Variant(2, 21,
			apktest.Module("base", nil,
				apktest.Master("splits/base-master.apk"),
				apktest.AbiSplit("splits/base-x86.apk", models.AbiX86, models.AbiArm64V8a),
				apktest.DensitySplit("splits/base-xhdpi.apk", models.DensityXhdpi, models.DensityHdpi),
			),
			feature,
		),
		standalone,
	)
}

func TestTOCWireRoundTrip(t *testing.T) {
	toc := sampleTOC()
	decoded, err := apk.UnmarshalTOC(apk.MarshalTOC(toc))
	require.NoError(t, err)
	assert.Equal(t, toc, decoded)
}

func TestUnmarshalTOCSkipsUnknownFields(t *testing.T) {
	data := apk.MarshalTOC(sampleTOC())
	// Field 15, fixed32 wire type, four bytes of payload.
	data = append(data, 0x7d, 1, 2, 3, 4)
	decoded, err := apk.UnmarshalTOC(data)
	require.NoError(t, err)
	assert.Len(t, decoded.Variants, 2)

	_, err = apk.UnmarshalTOC([]byte{0x0a, 0x05, 0x01})
	assert.Error(t, err)
}

func TestOpenAndExtract(t *testing.T) {
	dir := t.TempDir()
	path := apktest.Write(t, dir, sampleTOC())

	archive, err := apk.Open(path)
	require.NoError(t, err)
	defer archive.Close()

	toc, err := archive.TOC()
	require.NoError(t, err)
	assert.Equal(t, "com.example.app", toc.PackageName)
	assert.True(t, archive.Has("splits/base-master.apk"))

	work, err := apk.NewWorkDir("apkset-test-*")
	require.NoError(t, err)

	apks := toc.Variants[0].ApkSets[0].Apks[:2]
	paths, err := archive.ExtractWithProgress(context.Background(), apks, work.Path, nil)
	require.NoError(t, err)
	require.Len(t, paths, 2)
	assert.Equal(t, filepath.Join(work.Path, "splits", "base-master.apk"), paths[0])

	data, err := os.ReadFile(paths[1])
	require.NoError(t, err)
	assert.Equal(t, "apk:splits/base-x86.apk", string(data))

	require.NoError(t, work.Close())
	_, err = os.Stat(work.Path)
	assert.True(t, os.IsNotExist(err))
	assert.NoError(t, work.Close())
}

func TestExtractErrors(t *testing.T) {
	path := apktest.Write(t, t.TempDir(), sampleTOC())
	archive, err := apk.Open(path)
	require.NoError(t, err)
	defer archive.Close()

	out := t.TempDir()
	_, err = archive.ExtractWithProgress(context.Background(), []models.ApkDescription{{Path: "splits/ghost.apk"}}, out, nil)
	assert.Equal(t, errors.KindMalformedArchive, errors.KindOf(err))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = archive.ExtractWithProgress(ctx, []models.ApkDescription{{Path: "splits/base-master.apk"}}, out, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOpenMissingFile(t *testing.T) {
	_, err := apk.Open("/nope.apks")
	require.Error(t, err)
	assert.Equal(t, errors.KindIllegalInput, errors.KindOf(err))
	assert.Equal(t, "File '/nope.apks' was not found.", err.Error())
}

func TestOpenNotZip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.apks")
	require.NoError(t, os.WriteFile(path, []byte("not a zip"), 0644))
	_, err := apk.Open(path)
	assert.Equal(t, errors.KindMalformedArchive, errors.KindOf(err))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		toc  *models.BuildApksResult
	}{
		{"no variants", &models.BuildApksResult{}},
		{"no base", apktest.TOC(apktest.Variant(0, 0, apktest.Module("f1", nil, apktest.Master("f1.apk"))))},
		{"two masters", apktest.TOC(apktest.Variant(0, 0,
			apktest.Module("base", nil, apktest.Master("a.apk"), apktest.Master("b.apk"))))},
		{"no master", apktest.TOC(apktest.Variant(0, 0,
			apktest.Module("base", nil, apktest.AbiSplit("x86.apk", models.AbiX86))))},
		{"empty module", apktest.TOC(apktest.Variant(0, 0, apktest.Module("base", nil)))},
		{"cycle", apktest.TOC(apktest.Variant(0, 0,
			apktest.Module("base", nil, apktest.Master("base.apk")),
			apktest.Module("a", []string{"b"}, apktest.Master("a.apk")),
			apktest.Module("b", []string{"a"}, apktest.Master("b.apk"))))},
		{"only instant variants", apktest.TOC(apktest.InstantVariant(1, 0,
			apktest.Module("base", nil, apktest.Master("instant/base-master.apk"))))},
		{"texture compression split", textureTOC()},
		{"device tier split", tierTOC()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := apk.Validate(tt.toc)
			require.Error(t, err)
			assert.Equal(t, errors.KindMalformedArchive, errors.KindOf(err))
		})
	}

	assert.NoError(t, apk.Validate(sampleTOC()))
}

func textureTOC() *models.BuildApksResult {
	astc := models.ApkDescription{
		Path:    "splits/base-astc.apk",
		SplitID: "config.astc",
		Targeting: &models.ApkTargeting{
			TextureCompressionFormat: &models.TextureCompressionFormatTargeting{Values: []int{7}, Alternatives: []int{1}},
		},
	}
	return apktest.TOC(apktest.Variant(1, 21,
		apktest.Module("base", nil, apktest.Master("splits/base-master.apk"), astc)))
}

func tierTOC() *models.BuildApksResult {
	tier := models.ApkDescription{
		Path:      "splits/base-tier_1.apk",
		SplitID:   "config.tier_1",
		Targeting: &models.ApkTargeting{DeviceTier: &models.DeviceTierTargeting{Values: []int{1}, Alternatives: []int{0}}},
	}
	return apktest.TOC(apktest.Variant(1, 21,
		apktest.Module("base", nil, apktest.Master("splits/base-master.apk"), tier)))
}

func instantTOC() *models.BuildApksResult {
	return apktest.TOC(
		apktest.Variant(1, 21,
			apktest.Module("base", nil,
				apktest.Master("splits/base-master.apk"),
				apktest.AbiSplit("splits/base-x86.apk", models.AbiX86))),
		apktest.InstantVariant(2, 21,
			apktest.Module("base", nil,
				apktest.Master("instant/instant-base-master.apk"),
				apktest.AbiSplit("instant/instant-base-x86.apk", models.AbiX86))),
	)
}

func TestInstantVariant(t *testing.T) {
	toc := instantTOC()
	data := apk.MarshalTOC(toc)

	decoded, err := apk.UnmarshalTOC(data)
	require.NoError(t, err)
	assert.Equal(t, toc, decoded)
	assert.False(t, decoded.Variants[0].Instant())
	assert.True(t, decoded.Variants[1].Instant())
	assert.True(t, decoded.Variants[1].ApkSets[0].Apks[0].IsMasterSplit)

	path := apktest.Write(t, t.TempDir(), toc)
	archive, err := apk.Open(path)
	require.NoError(t, err)
	defer archive.Close()

	_, err = archive.TOC()
	assert.NoError(t, err)
}

func TestUnsupportedTargetingRoundTrip(t *testing.T) {
	for _, toc := range []*models.BuildApksResult{textureTOC(), tierTOC()} {
		decoded, err := apk.UnmarshalTOC(apk.MarshalTOC(toc))
		require.NoError(t, err)
		assert.Equal(t, toc, decoded)
	}

	err := apk.Validate(textureTOC())
	require.Error(t, err)
	assert.Equal(t, "APK 'splits/base-astc.apk' of module 'base' is targeted on texture compression format, which is not supported.", err.Error())
}
