package apk

import (
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/huanfeng/apkset-cli/pkg/models"
)

// MarshalTOC encodes toc in the toc.pb wire format read by UnmarshalTOC.
func MarshalTOC(toc *models.BuildApksResult) []byte {
	var b []byte
	for i := range toc.Variants {
		b = appendMessage(b, fieldResultVariant, encodeVariant(&toc.Variants[i]))
	}
	if toc.PackageName != "" {
		b = protowire.AppendTag(b, fieldResultPackageName, protowire.BytesType)
		b = protowire.AppendString(b, toc.PackageName)
	}
	return b
}

func appendMessage(b []byte, num protowire.Number, msg []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, msg)
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendBool(b []byte, num protowire.Number, v bool) []byte {
	if !v {
		return b
	}
	return appendVarint(b, num, 1)
}

func encodeVariant(v *models.Variant) []byte {
	var b []byte
	if t := encodeVariantTargeting(v.Targeting); len(t) > 0 {
		b = appendMessage(b, fieldVariantTargeting, t)
	}
	for i := range v.ApkSets {
		b = appendMessage(b, fieldVariantApkSet, encodeApkSet(&v.ApkSets[i]))
	}
	if v.Number != 0 {
		b = appendVarint(b, fieldVariantNumber, uint64(v.Number))
	}
	return b
}

func encodeApkSet(set *models.ApkSet) []byte {
	var meta []byte
	meta = protowire.AppendTag(meta, fieldModuleName, protowire.BytesType)
	meta = protowire.AppendString(meta, set.ModuleName)
	meta = appendBool(meta, fieldModuleOnDemand, set.OnDemand)
	for _, dep := range set.Dependencies {
		meta = protowire.AppendTag(meta, fieldModuleDependencies, protowire.BytesType)
		meta = protowire.AppendString(meta, dep)
	}
	meta = appendBool(meta, fieldModuleIsInstant, set.IsInstant)
	if set.DeliveryType != models.DeliveryUnknown {
		meta = appendVarint(meta, fieldModuleDelivery, uint64(set.DeliveryType))
	}

	b := appendMessage(nil, fieldApkSetModuleMetadata, meta)
	for i := range set.Apks {
		b = appendMessage(b, fieldApkSetApkDescription, encodeApkDescription(&set.Apks[i]))
	}
	return b
}

func encodeApkDescription(apk *models.ApkDescription) []byte {
	var b []byte
	if apk.Targeting != nil {
		b = appendMessage(b, fieldApkTargeting, encodeApkTargeting(apk.Targeting))
	}
	b = protowire.AppendTag(b, fieldApkPath, protowire.BytesType)
	b = protowire.AppendString(b, apk.Path)
	if apk.Standalone {
		b = appendMessage(b, fieldApkStandalone, nil)
		return b
	}
	var split []byte
	if apk.SplitID != "" {
		split = protowire.AppendTag(split, fieldSplitID, protowire.BytesType)
		split = protowire.AppendString(split, apk.SplitID)
	}
	split = appendBool(split, fieldSplitIsMaster, apk.IsMasterSplit)
	if apk.Instant {
		return appendMessage(b, fieldApkInstant, split)
	}
	return appendMessage(b, fieldApkSplit, split)
}

func encodeVariantTargeting(t models.VariantTargeting) []byte {
	var b []byte
	if t.SdkVersion != nil {
		b = appendMessage(b, fieldVariantTargetingSdk, encodeSdkTargeting(t.SdkVersion))
	}
	if t.Abi != nil {
		b = appendMessage(b, fieldVariantTargetingAbi, encodeAbiTargeting(t.Abi))
	}
	if t.ScreenDensity != nil {
		b = appendMessage(b, fieldVariantTargetingDensity, encodeDensityTargeting(t.ScreenDensity))
	}
	if t.MultiAbi != nil {
		b = appendMessage(b, fieldVariantTargetingMultiAbi, encodeMultiAbiTargeting(t.MultiAbi))
	}
	if t.TextureCompressionFormat != nil {
		b = appendMessage(b, fieldVariantTargetingTexture, encodeTextureTargeting(t.TextureCompressionFormat))
	}
	return b
}

func encodeApkTargeting(t *models.ApkTargeting) []byte {
	var b []byte
	if t.Abi != nil {
		b = appendMessage(b, fieldApkTargetingAbi, encodeAbiTargeting(t.Abi))
	}
	if t.Language != nil {
		b = appendMessage(b, fieldApkTargetingLanguage, encodeLanguageTargeting(t.Language))
	}
	if t.ScreenDensity != nil {
		b = appendMessage(b, fieldApkTargetingDensity, encodeDensityTargeting(t.ScreenDensity))
	}
	if t.SdkVersion != nil {
		b = appendMessage(b, fieldApkTargetingSdk, encodeSdkTargeting(t.SdkVersion))
	}
	if t.MultiAbi != nil {
		b = appendMessage(b, fieldApkTargetingMultiAbi, encodeMultiAbiTargeting(t.MultiAbi))
	}
	if t.TextureCompressionFormat != nil {
		b = appendMessage(b, fieldApkTargetingTexture, encodeTextureTargeting(t.TextureCompressionFormat))
	}
	if t.DeviceTier != nil {
		b = appendMessage(b, fieldApkTargetingTier, encodeTierTargeting(t.DeviceTier))
	}
	return b
}

func encodeAbi(a models.AbiAlias) []byte {
	return appendVarint(nil, fieldAbiAlias, uint64(a))
}

func encodeAbiTargeting(t *models.AbiTargeting) []byte {
	var b []byte
	for _, a := range t.Values {
		b = appendMessage(b, fieldValue, encodeAbi(a))
	}
	for _, a := range t.Alternatives {
		b = appendMessage(b, fieldAlternatives, encodeAbi(a))
	}
	return b
}

func encodeMultiAbi(tuple models.MultiAbi) []byte {
	var b []byte
	for _, a := range tuple {
		b = appendMessage(b, fieldMultiAbiAbi, encodeAbi(a))
	}
	return b
}

func encodeMultiAbiTargeting(t *models.MultiAbiTargeting) []byte {
	var b []byte
	for _, tuple := range t.Values {
		b = appendMessage(b, fieldValue, encodeMultiAbi(tuple))
	}
	for _, tuple := range t.Alternatives {
		b = appendMessage(b, fieldAlternatives, encodeMultiAbi(tuple))
	}
	return b
}

func encodeDensity(d models.ScreenDensity) []byte {
	if d.Alias != models.DensityUnspecified {
		return appendVarint(nil, fieldDensityAlias, uint64(d.Alias))
	}
	return appendVarint(nil, fieldDensityDpi, uint64(d.Dpi))
}

func encodeDensityTargeting(t *models.ScreenDensityTargeting) []byte {
	var b []byte
	for _, d := range t.Values {
		b = appendMessage(b, fieldValue, encodeDensity(d))
	}
	for _, d := range t.Alternatives {
		b = appendMessage(b, fieldAlternatives, encodeDensity(d))
	}
	return b
}

func encodeLanguageTargeting(t *models.LanguageTargeting) []byte {
	var b []byte
	for _, l := range t.Values {
		b = protowire.AppendTag(b, fieldValue, protowire.BytesType)
		b = protowire.AppendString(b, l)
	}
	for _, l := range t.Alternatives {
		b = protowire.AppendTag(b, fieldAlternatives, protowire.BytesType)
		b = protowire.AppendString(b, l)
	}
	return b
}

func encodeSdkVersion(minSdk int) []byte {
	if minSdk <= 0 {
		return nil
	}
	wrapped := appendVarint(nil, fieldInt32WrapValue, uint64(minSdk))
	return appendMessage(nil, fieldSdkVersionMin, wrapped)
}

func encodeSdkTargeting(t *models.SdkVersionTargeting) []byte {
	var b []byte
	for _, v := range t.Values {
		b = appendMessage(b, fieldValue, encodeSdkVersion(v))
	}
	for _, v := range t.Alternatives {
		b = appendMessage(b, fieldAlternatives, encodeSdkVersion(v))
	}
	return b
}

func encodeTextureTargeting(t *models.TextureCompressionFormatTargeting) []byte {
	var b []byte
	for _, alias := range t.Values {
		b = appendMessage(b, fieldValue, appendVarint(nil, fieldTextureAlias, uint64(alias)))
	}
	for _, alias := range t.Alternatives {
		b = appendMessage(b, fieldAlternatives, appendVarint(nil, fieldTextureAlias, uint64(alias)))
	}
	return b
}

func encodeTierTargeting(t *models.DeviceTierTargeting) []byte {
	var b []byte
	for _, tier := range t.Values {
		b = appendMessage(b, fieldTierValue, appendVarint(nil, fieldInt32WrapValue, uint64(tier)))
	}
	for _, tier := range t.Alternatives {
		b = appendMessage(b, fieldTierAlternatives, appendVarint(nil, fieldInt32WrapValue, uint64(tier)))
	}
	return b
}
