package models

// AbiAlias identifies an ABI family. Numeric values follow the bundle
// protobuf enum so decoded archives map onto it directly.
type AbiAlias int

const (
	AbiUnspecified AbiAlias = iota
	AbiArmeabi
	AbiArmeabiV7a
	AbiArm64V8a
	AbiX86
	AbiX86_64
	AbiMips
	AbiMips64
)

var abiPlatformNames = map[AbiAlias]string{
	AbiArmeabi:    "armeabi",
	AbiArmeabiV7a: "armeabi-v7a",
	AbiArm64V8a:   "arm64-v8a",
	AbiX86:        "x86",
	AbiX86_64:     "x86_64",
	AbiMips:       "mips",
	AbiMips64:     "mips64",
}

var abiByPlatformName = func() map[string]AbiAlias {
	m := make(map[string]AbiAlias, len(abiPlatformNames))
	for alias, name := range abiPlatformNames {
		m[name] = alias
	}
	return m
}()

// AbiFromPlatformName returns the alias for a platform ABI string such as
// "arm64-v8a".
func AbiFromPlatformName(name string) (AbiAlias, bool) {
	alias, ok := abiByPlatformName[name]
	return alias, ok
}

// PlatformName returns the platform ABI string, or "" for unknown aliases.
func (a AbiAlias) PlatformName() string {
	return abiPlatformNames[a]
}

// Known reports whether a is one of the closed set of ABIs.
func (a AbiAlias) Known() bool {
	_, ok := abiPlatformNames[a]
	return ok
}

func (a AbiAlias) String() string {
	if name, ok := abiPlatformNames[a]; ok {
		return name
	}
	return "unspecified"
}

// PlatformNames returns the platform strings of the given aliases.
func PlatformNames(aliases []AbiAlias) []string {
	names := make([]string, 0, len(aliases))
	for _, a := range aliases {
		names = append(names, a.String())
	}
	return names
}
