package apk

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/huanfeng/apkset-cli/pkg/models"
)

// Field numbers of bundletool's BuildApksResult and targeting messages.
const (
	fieldResultVariant     protowire.Number = 1
	fieldResultPackageName protowire.Number = 4

	fieldVariantTargeting protowire.Number = 1
	fieldVariantApkSet    protowire.Number = 2
	fieldVariantNumber    protowire.Number = 3

	fieldApkSetModuleMetadata protowire.Number = 1
	fieldApkSetApkDescription protowire.Number = 2

	fieldModuleName         protowire.Number = 1
	fieldModuleOnDemand     protowire.Number = 2
	fieldModuleDependencies protowire.Number = 3
	fieldModuleIsInstant    protowire.Number = 5
	fieldModuleDelivery     protowire.Number = 6

	fieldApkTargeting  protowire.Number = 1
	fieldApkPath       protowire.Number = 2
	fieldApkSplit      protowire.Number = 3
	fieldApkStandalone protowire.Number = 4
	fieldApkInstant    protowire.Number = 5

	fieldSplitID       protowire.Number = 1
	fieldSplitIsMaster protowire.Number = 2

	fieldVariantTargetingSdk      protowire.Number = 1
	fieldVariantTargetingAbi      protowire.Number = 2
	fieldVariantTargetingDensity  protowire.Number = 3
	fieldVariantTargetingMultiAbi protowire.Number = 4
	fieldVariantTargetingTexture  protowire.Number = 5

	fieldApkTargetingAbi      protowire.Number = 1
	fieldApkTargetingLanguage protowire.Number = 3
	fieldApkTargetingDensity  protowire.Number = 4
	fieldApkTargetingSdk      protowire.Number = 5
	fieldApkTargetingTexture  protowire.Number = 6
	fieldApkTargetingMultiAbi protowire.Number = 7
	fieldApkTargetingTier     protowire.Number = 9

	// Every *Targeting message.
	fieldValue        protowire.Number = 1
	fieldAlternatives protowire.Number = 2

	fieldAbiAlias       protowire.Number = 1
	fieldMultiAbiAbi    protowire.Number = 1
	fieldDensityAlias   protowire.Number = 1
	fieldDensityDpi     protowire.Number = 2
	fieldSdkVersionMin  protowire.Number = 1
	fieldInt32WrapValue protowire.Number = 1
	fieldTextureAlias   protowire.Number = 1

	// DeviceTierTargeting keeps 1 and 2 reserved.
	fieldTierValue        protowire.Number = 3
	fieldTierAlternatives protowire.Number = 4
)

type field struct {
	num    protowire.Number
	typ    protowire.Type
	varint uint64
	bytes  []byte
}

// fields splits a message into its varint and length-delimited fields.
// Other wire types are skipped.
func fields(b []byte) ([]field, error) {
	var out []field
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		b = b[n:]

		f := field{num: num, typ: typ}
		switch typ {
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			f.varint = v
			b = b[n:]
		case protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			f.bytes = v
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			b = b[n:]
			continue
		}
		out = append(out, f)
	}
	return out, nil
}

// UnmarshalTOC decodes a toc.pb payload.
func UnmarshalTOC(b []byte) (*models.BuildApksResult, error) {
	fs, err := fields(b)
	if err != nil {
		return nil, fmt.Errorf("BuildApksResult: %w", err)
	}
	toc := &models.BuildApksResult{}
	for _, f := range fs {
		switch f.num {
		case fieldResultPackageName:
			toc.PackageName = string(f.bytes)
		case fieldResultVariant:
			v, err := decodeVariant(f.bytes)
			if err != nil {
				return nil, fmt.Errorf("variant %d: %w", len(toc.Variants), err)
			}
			toc.Variants = append(toc.Variants, *v)
		}
	}
	return toc, nil
}

func decodeVariant(b []byte) (*models.Variant, error) {
	fs, err := fields(b)
	if err != nil {
		return nil, err
	}
	v := &models.Variant{}
	for _, f := range fs {
		switch f.num {
		case fieldVariantNumber:
			v.Number = int(f.varint)
		case fieldVariantTargeting:
			if v.Targeting, err = decodeVariantTargeting(f.bytes); err != nil {
				return nil, err
			}
		case fieldVariantApkSet:
			set, err := decodeApkSet(f.bytes)
			if err != nil {
				return nil, err
			}
			v.ApkSets = append(v.ApkSets, *set)
		}
	}
	return v, nil
}

func decodeApkSet(b []byte) (*models.ApkSet, error) {
	fs, err := fields(b)
	if err != nil {
		return nil, err
	}
	set := &models.ApkSet{}
	for _, f := range fs {
		switch f.num {
		case fieldApkSetModuleMetadata:
			if err := decodeModuleMetadata(f.bytes, set); err != nil {
				return nil, err
			}
		case fieldApkSetApkDescription:
			apk, err := decodeApkDescription(f.bytes)
			if err != nil {
				return nil, err
			}
			set.Apks = append(set.Apks, *apk)
		}
	}
	return set, nil
}

func decodeModuleMetadata(b []byte, set *models.ApkSet) error {
	fs, err := fields(b)
	if err != nil {
		return err
	}
	for _, f := range fs {
		switch f.num {
		case fieldModuleName:
			set.ModuleName = string(f.bytes)
		case fieldModuleOnDemand:
			set.OnDemand = f.varint != 0
		case fieldModuleDependencies:
			set.Dependencies = append(set.Dependencies, string(f.bytes))
		case fieldModuleIsInstant:
			set.IsInstant = f.varint != 0
		case fieldModuleDelivery:
			set.DeliveryType = models.DeliveryType(f.varint)
		}
	}
	return nil
}

func decodeApkDescription(b []byte) (*models.ApkDescription, error) {
	fs, err := fields(b)
	if err != nil {
		return nil, err
	}
	apk := &models.ApkDescription{}
	for _, f := range fs {
		switch f.num {
		case fieldApkPath:
			apk.Path = string(f.bytes)
		case fieldApkTargeting:
			if apk.Targeting, err = decodeApkTargeting(f.bytes); err != nil {
				return nil, err
			}
		case fieldApkSplit:
			if err := decodeSplitMetadata(f.bytes, apk); err != nil {
				return nil, err
			}
		case fieldApkInstant:
			apk.Instant = true
			if err := decodeSplitMetadata(f.bytes, apk); err != nil {
				return nil, err
			}
		case fieldApkStandalone:
			apk.Standalone = true
		}
	}
	return apk, nil
}

// decodeSplitMetadata reads a SplitApkMetadata, which split and instant
// APKs share.
func decodeSplitMetadata(b []byte, apk *models.ApkDescription) error {
	fs, err := fields(b)
	if err != nil {
		return err
	}
	for _, f := range fs {
		switch f.num {
		case fieldSplitID:
			apk.SplitID = string(f.bytes)
		case fieldSplitIsMaster:
			apk.IsMasterSplit = f.varint != 0
		}
	}
	return nil
}

func decodeVariantTargeting(b []byte) (models.VariantTargeting, error) {
	var t models.VariantTargeting
	fs, err := fields(b)
	if err != nil {
		return t, err
	}
	for _, f := range fs {
		switch f.num {
		case fieldVariantTargetingSdk:
			t.SdkVersion, err = decodeSdkTargeting(f.bytes)
		case fieldVariantTargetingAbi:
			t.Abi, err = decodeAbiTargeting(f.bytes)
		case fieldVariantTargetingDensity:
			t.ScreenDensity, err = decodeDensityTargeting(f.bytes)
		case fieldVariantTargetingMultiAbi:
			t.MultiAbi, err = decodeMultiAbiTargeting(f.bytes)
		case fieldVariantTargetingTexture:
			t.TextureCompressionFormat, err = decodeTextureTargeting(f.bytes)
		}
		if err != nil {
			return t, err
		}
	}
	return t, nil
}

// decodeApkTargeting returns nil for an empty message so master splits
// compare equal to untargeted descriptions.
func decodeApkTargeting(b []byte) (*models.ApkTargeting, error) {
	fs, err := fields(b)
	if err != nil {
		return nil, err
	}
	if len(fs) == 0 {
		return nil, nil
	}
	t := &models.ApkTargeting{}
	for _, f := range fs {
		switch f.num {
		case fieldApkTargetingAbi:
			t.Abi, err = decodeAbiTargeting(f.bytes)
		case fieldApkTargetingLanguage:
			t.Language, err = decodeLanguageTargeting(f.bytes)
		case fieldApkTargetingDensity:
			t.ScreenDensity, err = decodeDensityTargeting(f.bytes)
		case fieldApkTargetingSdk:
			t.SdkVersion, err = decodeSdkTargeting(f.bytes)
		case fieldApkTargetingMultiAbi:
			t.MultiAbi, err = decodeMultiAbiTargeting(f.bytes)
		case fieldApkTargetingTexture:
			t.TextureCompressionFormat, err = decodeTextureTargeting(f.bytes)
		case fieldApkTargetingTier:
			t.DeviceTier, err = decodeTierTargeting(f.bytes)
		}
		if err != nil {
			return nil, err
		}
	}
	if len(t.Dimensions()) == 0 {
		return nil, nil
	}
	return t, nil
}

func decodeAbiTargeting(b []byte) (*models.AbiTargeting, error) {
	fs, err := fields(b)
	if err != nil {
		return nil, err
	}
	t := &models.AbiTargeting{}
	for _, f := range fs {
		alias, err := decodeAbi(f.bytes)
		if err != nil {
			return nil, err
		}
		switch f.num {
		case fieldValue:
			t.Values = append(t.Values, alias)
		case fieldAlternatives:
			t.Alternatives = append(t.Alternatives, alias)
		}
	}
	return t, nil
}

func decodeAbi(b []byte) (models.AbiAlias, error) {
	fs, err := fields(b)
	if err != nil {
		return models.AbiUnspecified, err
	}
	for _, f := range fs {
		if f.num == fieldAbiAlias {
			return models.AbiAlias(f.varint), nil
		}
	}
	return models.AbiUnspecified, nil
}

func decodeMultiAbiTargeting(b []byte) (*models.MultiAbiTargeting, error) {
	fs, err := fields(b)
	if err != nil {
		return nil, err
	}
	t := &models.MultiAbiTargeting{}
	for _, f := range fs {
		tuple, err := decodeMultiAbi(f.bytes)
		if err != nil {
			return nil, err
		}
		switch f.num {
		case fieldValue:
			t.Values = append(t.Values, tuple)
		case fieldAlternatives:
			t.Alternatives = append(t.Alternatives, tuple)
		}
	}
	return t, nil
}

func decodeMultiAbi(b []byte) (models.MultiAbi, error) {
	fs, err := fields(b)
	if err != nil {
		return nil, err
	}
	var tuple models.MultiAbi
	for _, f := range fs {
		if f.num != fieldMultiAbiAbi {
			continue
		}
		alias, err := decodeAbi(f.bytes)
		if err != nil {
			return nil, err
		}
		tuple = append(tuple, alias)
	}
	return tuple, nil
}

func decodeDensityTargeting(b []byte) (*models.ScreenDensityTargeting, error) {
	fs, err := fields(b)
	if err != nil {
		return nil, err
	}
	t := &models.ScreenDensityTargeting{}
	for _, f := range fs {
		d, err := decodeDensity(f.bytes)
		if err != nil {
			return nil, err
		}
		switch f.num {
		case fieldValue:
			t.Values = append(t.Values, d)
		case fieldAlternatives:
			t.Alternatives = append(t.Alternatives, d)
		}
	}
	return t, nil
}

func decodeDensity(b []byte) (models.ScreenDensity, error) {
	var d models.ScreenDensity
	fs, err := fields(b)
	if err != nil {
		return d, err
	}
	for _, f := range fs {
		switch f.num {
		case fieldDensityAlias:
			d.Alias = models.DensityAlias(f.varint)
		case fieldDensityDpi:
			d.Dpi = int(int32(f.varint))
		}
	}
	return d, nil
}

func decodeLanguageTargeting(b []byte) (*models.LanguageTargeting, error) {
	fs, err := fields(b)
	if err != nil {
		return nil, err
	}
	t := &models.LanguageTargeting{}
	for _, f := range fs {
		switch f.num {
		case fieldValue:
			t.Values = append(t.Values, string(f.bytes))
		case fieldAlternatives:
			t.Alternatives = append(t.Alternatives, string(f.bytes))
		}
	}
	return t, nil
}

func decodeSdkTargeting(b []byte) (*models.SdkVersionTargeting, error) {
	fs, err := fields(b)
	if err != nil {
		return nil, err
	}
	t := &models.SdkVersionTargeting{}
	for _, f := range fs {
		minSdk, err := decodeSdkVersion(f.bytes)
		if err != nil {
			return nil, err
		}
		switch f.num {
		case fieldValue:
			t.Values = append(t.Values, minSdk)
		case fieldAlternatives:
			t.Alternatives = append(t.Alternatives, minSdk)
		}
	}
	return t, nil
}

// decodeSdkVersion reads SdkVersion.min, a google.protobuf.Int32Value.
func decodeSdkVersion(b []byte) (int, error) {
	fs, err := fields(b)
	if err != nil {
		return 0, err
	}
	for _, f := range fs {
		if f.num != fieldSdkVersionMin {
			continue
		}
		wfs, err := fields(f.bytes)
		if err != nil {
			return 0, err
		}
		for _, wf := range wfs {
			if wf.num == fieldInt32WrapValue {
				return int(int32(wf.varint)), nil
			}
		}
	}
	return 0, nil
}

func decodeTextureTargeting(b []byte) (*models.TextureCompressionFormatTargeting, error) {
	fs, err := fields(b)
	if err != nil {
		return nil, err
	}
	t := &models.TextureCompressionFormatTargeting{}
	for _, f := range fs {
		ffs, err := fields(f.bytes)
		if err != nil {
			return nil, err
		}
		alias := 0
		for _, ff := range ffs {
			if ff.num == fieldTextureAlias {
				alias = int(ff.varint)
			}
		}
		switch f.num {
		case fieldValue:
			t.Values = append(t.Values, alias)
		case fieldAlternatives:
			t.Alternatives = append(t.Alternatives, alias)
		}
	}
	return t, nil
}

func decodeTierTargeting(b []byte) (*models.DeviceTierTargeting, error) {
	fs, err := fields(b)
	if err != nil {
		return nil, err
	}
	t := &models.DeviceTierTargeting{}
	for _, f := range fs {
		if f.num != fieldTierValue && f.num != fieldTierAlternatives {
			continue
		}
		wfs, err := fields(f.bytes)
		if err != nil {
			return nil, err
		}
		tier := 0
		for _, wf := range wfs {
			if wf.num == fieldInt32WrapValue {
				tier = int(int32(wf.varint))
			}
		}
		if f.num == fieldTierValue {
			t.Values = append(t.Values, tier)
		} else {
			t.Alternatives = append(t.Alternatives, tier)
		}
	}
	return t, nil
}
