package apk

import (
	"archive/zip"
	"sort"
	"strings"

	"github.com/shogo82148/androidbinary/apk"
)

// ManifestInfo is what the install driver reports about an extracted base APK.
type ManifestInfo struct {
	PackageName string   `json:"packageName" yaml:"packageName"`
	VersionName string   `json:"versionName,omitempty" yaml:"versionName,omitempty"`
	VersionCode int64    `json:"versionCode,omitempty" yaml:"versionCode,omitempty"`
	MinSDK      int      `json:"minSdk,omitempty" yaml:"minSdk,omitempty"`
	TargetSDK   int      `json:"targetSdk,omitempty" yaml:"targetSdk,omitempty"`
	NativeAbis  []string `json:"nativeAbis,omitempty" yaml:"nativeAbis,omitempty"`
}

// InspectManifest reads the binary manifest of an APK on disk.
func InspectManifest(apkPath string) (*ManifestInfo, error) {
	pkg, err := apk.OpenFile(apkPath)
	if err != nil {
		return nil, err
	}
	defer pkg.Close()

	manifest := pkg.Manifest()
	info := &ManifestInfo{
		PackageName: pkg.PackageName(),
		NativeAbis:  nativeAbis(apkPath),
	}
	if name, err := manifest.VersionName.String(); err == nil {
		info.VersionName = name
	}
	if code, err := manifest.VersionCode.Int32(); err == nil {
		info.VersionCode = int64(code)
	}
	info.MinSDK = 1
	if minSDK, err := manifest.SDK.Min.Int32(); err == nil {
		info.MinSDK = int(minSDK)
	}
	if targetSDK, err := manifest.SDK.Target.Int32(); err == nil {
		info.TargetSDK = int(targetSDK)
	}
	return info, nil
}

// nativeAbis lists the lib/<abi>/ directories of an APK.
func nativeAbis(apkPath string) []string {
	reader, err := zip.OpenReader(apkPath)
	if err != nil {
		return nil
	}
	defer reader.Close()

	seen := make(map[string]bool)
	for _, file := range reader.File {
		if !strings.HasPrefix(file.Name, "lib/") {
			continue
		}
		parts := strings.Split(file.Name, "/")
		if len(parts) >= 3 && parts[1] != "" {
			seen[parts[1]] = true
		}
	}

	abis := make([]string, 0, len(seen))
	for abi := range seen {
		abis = append(abis, abi)
	}
	sort.Strings(abis)
	return abis
}
