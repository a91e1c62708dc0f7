package models

// BaseModule is the name of the module every installable archive carries.
const BaseModule = "base"

// DeliveryType mirrors the bundle's module delivery setting.
type DeliveryType int

const (
	DeliveryUnknown DeliveryType = iota
	DeliveryInstallTime
	DeliveryOnDemand
	DeliveryFastFollow
)

// ApkDescription is one APK entry of the archive.
type ApkDescription struct {
	Path          string        `json:"path" yaml:"path"`
	Targeting     *ApkTargeting `json:"targeting,omitempty" yaml:"targeting,omitempty"`
	SplitID       string        `json:"splitId,omitempty" yaml:"splitId,omitempty"`
	IsMasterSplit bool          `json:"isMasterSplit,omitempty" yaml:"isMasterSplit,omitempty"`
	Standalone    bool          `json:"standalone,omitempty" yaml:"standalone,omitempty"`
	// Instant marks APKs built for instant apps. They share the split
	// layout but are never installed by apkset.
	Instant bool `json:"instant,omitempty" yaml:"instant,omitempty"`
}

// ApkSet groups the APKs of one module within a variant.
type ApkSet struct {
	ModuleName   string           `json:"moduleName" yaml:"moduleName"`
	OnDemand     bool             `json:"onDemand,omitempty" yaml:"onDemand,omitempty"`
	DeliveryType DeliveryType     `json:"deliveryType,omitempty" yaml:"deliveryType,omitempty"`
	IsInstant    bool             `json:"isInstant,omitempty" yaml:"isInstant,omitempty"`
	Dependencies []string         `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	Apks         []ApkDescription `json:"apks" yaml:"apks"`
}

// InstalledByDefault reports whether the module belongs to the default
// install set when no modules are requested.
func (s *ApkSet) InstalledByDefault() bool {
	return !s.OnDemand && s.DeliveryType != DeliveryOnDemand
}

// Standalone reports whether every APK in the set is standalone.
func (s *ApkSet) Standalone() bool {
	if len(s.Apks) == 0 {
		return false
	}
	for _, apk := range s.Apks {
		if !apk.Standalone {
			return false
		}
	}
	return true
}

// Instant reports whether every APK in the set is an instant APK.
func (s *ApkSet) Instant() bool {
	if len(s.Apks) == 0 {
		return false
	}
	for _, apk := range s.Apks {
		if !apk.Instant {
			return false
		}
	}
	return true
}

// MasterSplits returns the master split entries of the set.
func (s *ApkSet) MasterSplits() []ApkDescription {
	var masters []ApkDescription
	for _, apk := range s.Apks {
		if apk.IsMasterSplit {
			masters = append(masters, apk)
		}
	}
	return masters
}

// Variant is a group of module APK sets sharing a variant predicate.
type Variant struct {
	Number    int              `json:"number" yaml:"number"`
	Targeting VariantTargeting `json:"targeting" yaml:"targeting"`
	ApkSets   []ApkSet         `json:"apkSets" yaml:"apkSets"`
}

// Module returns the APK set for the named module, or nil.
func (v *Variant) Module(name string) *ApkSet {
	for i := range v.ApkSets {
		if v.ApkSets[i].ModuleName == name {
			return &v.ApkSets[i]
		}
	}
	return nil
}

// Instant reports whether the variant only carries instant APKs, as the
// instant variant of a bundle built in default mode does.
func (v *Variant) Instant() bool {
	if len(v.ApkSets) == 0 {
		return false
	}
	for i := range v.ApkSets {
		if !v.ApkSets[i].Instant() {
			return false
		}
	}
	return true
}

// ModuleNames returns module names in archive order.
func (v *Variant) ModuleNames() []string {
	names := make([]string, 0, len(v.ApkSets))
	for _, s := range v.ApkSets {
		names = append(names, s.ModuleName)
	}
	return names
}

// BuildApksResult is the archive table of contents.
type BuildApksResult struct {
	PackageName string    `json:"packageName,omitempty" yaml:"packageName,omitempty"`
	Variants    []Variant `json:"variants" yaml:"variants"`
}

// InstallPlan is the outcome of APK selection for one device.
type InstallPlan struct {
	PackageName string           `json:"packageName,omitempty" yaml:"packageName,omitempty"`
	Variant     int              `json:"variant" yaml:"variant"`
	Modules     []string         `json:"modules" yaml:"modules"`
	Apks        []ApkDescription `json:"apks" yaml:"apks"`
}

// Paths returns the archive-relative APK paths in install order.
func (p *InstallPlan) Paths() []string {
	paths := make([]string, 0, len(p.Apks))
	for _, apk := range p.Apks {
		paths = append(paths, apk.Path)
	}
	return paths
}
