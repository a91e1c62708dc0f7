package models

// Dimension tags the kind of predicate a split is targeted on.
type Dimension int

const (
	DimensionNone Dimension = iota
	DimensionAbi
	DimensionDensity
	DimensionLanguage
	DimensionMultiAbi
	DimensionSdk
	DimensionTextureCompression
	DimensionDeviceTier
)

func (d Dimension) String() string {
	switch d {
	case DimensionAbi:
		return "abi"
	case DimensionDensity:
		return "density"
	case DimensionLanguage:
		return "language"
	case DimensionMultiAbi:
		return "multi-abi"
	case DimensionSdk:
		return "sdk"
	case DimensionTextureCompression:
		return "texture compression format"
	case DimensionDeviceTier:
		return "device tier"
	default:
		return "none"
	}
}

// AbiTargeting selects on the device ABI list.
type AbiTargeting struct {
	Values       []AbiAlias `json:"values,omitempty" yaml:"values,omitempty"`
	Alternatives []AbiAlias `json:"alternatives,omitempty" yaml:"alternatives,omitempty"`
}

// ScreenDensityTargeting selects on the device dpi.
type ScreenDensityTargeting struct {
	Values       []ScreenDensity `json:"values,omitempty" yaml:"values,omitempty"`
	Alternatives []ScreenDensity `json:"alternatives,omitempty" yaml:"alternatives,omitempty"`
}

// LanguageTargeting selects on the device locales.
type LanguageTargeting struct {
	Values       []string `json:"values,omitempty" yaml:"values,omitempty"`
	Alternatives []string `json:"alternatives,omitempty" yaml:"alternatives,omitempty"`
}

// MultiAbi is an ordered ABI tuple carried by a standalone APK.
type MultiAbi []AbiAlias

// MultiAbiTargeting selects standalone APKs built for several ABIs.
type MultiAbiTargeting struct {
	Values       []MultiAbi `json:"values,omitempty" yaml:"values,omitempty"`
	Alternatives []MultiAbi `json:"alternatives,omitempty" yaml:"alternatives,omitempty"`
}

// SdkVersionTargeting carries minimum SDK levels; 0 means no minimum.
type SdkVersionTargeting struct {
	Values       []int `json:"values,omitempty" yaml:"values,omitempty"`
	Alternatives []int `json:"alternatives,omitempty" yaml:"alternatives,omitempty"`
}

// MinSdk returns the minimum SDK of the first value, defaulting to 1.
func (t *SdkVersionTargeting) MinSdk() int {
	if t == nil || len(t.Values) == 0 || t.Values[0] <= 0 {
		return 1
	}
	return t.Values[0]
}

// Selectable reports whether a DeviceSpec carries what is needed to choose
// between splits of this dimension. Texture formats and device tiers are
// not probed.
func (d Dimension) Selectable() bool {
	return d != DimensionTextureCompression && d != DimensionDeviceTier
}

// TextureCompressionFormatTargeting selects on the GPU texture formats.
// Values are bundletool format alias numbers.
type TextureCompressionFormatTargeting struct {
	Values       []int `json:"values,omitempty" yaml:"values,omitempty"`
	Alternatives []int `json:"alternatives,omitempty" yaml:"alternatives,omitempty"`
}

// DeviceTierTargeting selects on the tier the developer assigned to the device.
type DeviceTierTargeting struct {
	Values       []int `json:"values,omitempty" yaml:"values,omitempty"`
	Alternatives []int `json:"alternatives,omitempty" yaml:"alternatives,omitempty"`
}

// ApkTargeting is a conjunction of optional predicates. A nil predicate
// matches every device on that dimension.
type ApkTargeting struct {
	Abi           *AbiTargeting           `json:"abi,omitempty" yaml:"abi,omitempty"`
	ScreenDensity *ScreenDensityTargeting `json:"screenDensity,omitempty" yaml:"screenDensity,omitempty"`
	Language      *LanguageTargeting      `json:"language,omitempty" yaml:"language,omitempty"`
	MultiAbi      *MultiAbiTargeting      `json:"multiAbi,omitempty" yaml:"multiAbi,omitempty"`
	SdkVersion    *SdkVersionTargeting    `json:"sdkVersion,omitempty" yaml:"sdkVersion,omitempty"`

	TextureCompressionFormat *TextureCompressionFormatTargeting `json:"textureCompressionFormat,omitempty" yaml:"textureCompressionFormat,omitempty"`
	DeviceTier               *DeviceTierTargeting               `json:"deviceTier,omitempty" yaml:"deviceTier,omitempty"`
}

// Dimensions lists the predicates present on t in a fixed order.
func (t *ApkTargeting) Dimensions() []Dimension {
	if t == nil {
		return nil
	}
	var dims []Dimension
	if t.Abi != nil {
		dims = append(dims, DimensionAbi)
	}
	if t.ScreenDensity != nil {
		dims = append(dims, DimensionDensity)
	}
	if t.Language != nil {
		dims = append(dims, DimensionLanguage)
	}
	if t.MultiAbi != nil {
		dims = append(dims, DimensionMultiAbi)
	}
	if t.SdkVersion != nil {
		dims = append(dims, DimensionSdk)
	}
	if t.TextureCompressionFormat != nil {
		dims = append(dims, DimensionTextureCompression)
	}
	if t.DeviceTier != nil {
		dims = append(dims, DimensionDeviceTier)
	}
	return dims
}

// PrimaryDimension returns the dimension a split is selected on. Splits
// produced by bundletool carry a single dimension; when several are present
// the first in Dimensions order wins.
func (t *ApkTargeting) PrimaryDimension() Dimension {
	dims := t.Dimensions()
	if len(dims) == 0 {
		return DimensionNone
	}
	return dims[0]
}

// VariantTargeting is the variant-level predicate. SdkVersion is always
// consulted; the other fields are set on standalone variants.
type VariantTargeting struct {
	SdkVersion    *SdkVersionTargeting    `json:"sdkVersion,omitempty" yaml:"sdkVersion,omitempty"`
	Abi           *AbiTargeting           `json:"abi,omitempty" yaml:"abi,omitempty"`
	ScreenDensity *ScreenDensityTargeting `json:"screenDensity,omitempty" yaml:"screenDensity,omitempty"`
	MultiAbi      *MultiAbiTargeting      `json:"multiAbi,omitempty" yaml:"multiAbi,omitempty"`

	TextureCompressionFormat *TextureCompressionFormatTargeting `json:"textureCompressionFormat,omitempty" yaml:"textureCompressionFormat,omitempty"`
}

// MinSdk returns the inclusive minimum SDK level of the variant.
func (t VariantTargeting) MinSdk() int {
	return t.SdkVersion.MinSdk()
}
