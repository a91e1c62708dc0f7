package models

import "fmt"

// DensityAlias is a named screen density bucket.
type DensityAlias int

const (
	DensityUnspecified DensityAlias = iota
	DensityNoDpi
	DensityLdpi
	DensityMdpi
	DensityTvdpi
	DensityHdpi
	DensityXhdpi
	DensityXxhdpi
	DensityXxxhdpi
)

// NoDpiValue is the dpi used for resources that must never be scaled.
const NoDpiValue = 0xFFFF

var densityInfo = map[DensityAlias]struct {
	qualifier string
	dpi       int
}{
	DensityNoDpi:   {"nodpi", NoDpiValue},
	DensityLdpi:    {"ldpi", 120},
	DensityMdpi:    {"mdpi", 160},
	DensityTvdpi:   {"tvdpi", 213},
	DensityHdpi:    {"hdpi", 240},
	DensityXhdpi:   {"xhdpi", 320},
	DensityXxhdpi:  {"xxhdpi", 480},
	DensityXxxhdpi: {"xxxhdpi", 640},
}

// DPI returns the dpi of the bucket, or 0 when unspecified.
func (d DensityAlias) DPI() int {
	return densityInfo[d].dpi
}

// Qualifier returns the resource qualifier name, e.g. "xhdpi".
func (d DensityAlias) Qualifier() string {
	return densityInfo[d].qualifier
}

func (d DensityAlias) String() string {
	if q := d.Qualifier(); q != "" {
		return q
	}
	return "unspecified"
}

// DensityFromQualifier resolves a resource qualifier such as "hdpi".
func DensityFromQualifier(q string) (DensityAlias, bool) {
	for alias, info := range densityInfo {
		if info.qualifier == q {
			return alias, true
		}
	}
	return DensityUnspecified, false
}

// ScreenDensity is either a named bucket or an absolute dpi.
type ScreenDensity struct {
	Alias DensityAlias `json:"alias,omitempty" yaml:"alias,omitempty"`
	Dpi   int          `json:"dpi,omitempty" yaml:"dpi,omitempty"`
}

// DensityOf returns a ScreenDensity for a named bucket.
func DensityOf(alias DensityAlias) ScreenDensity {
	return ScreenDensity{Alias: alias}
}

// DensityDpi returns a ScreenDensity for an absolute dpi.
func DensityDpi(dpi int) ScreenDensity {
	return ScreenDensity{Dpi: dpi}
}

// DPI resolves the density to an absolute dpi.
func (s ScreenDensity) DPI() int {
	if s.Alias != DensityUnspecified {
		return s.Alias.DPI()
	}
	return s.Dpi
}

func (s ScreenDensity) String() string {
	if s.Alias != DensityUnspecified {
		return s.Alias.String()
	}
	return fmt.Sprintf("%ddpi", s.Dpi)
}
