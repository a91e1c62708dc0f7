package system

import (
	"fmt"
	"path/filepath"
)

// DiskUsage contains disk usage information
type DiskUsage struct {
	Total     uint64 `json:"total"`
	Free      uint64 `json:"free"`
	Available uint64 `json:"available"`
}

// CheckDiskSpace returns the usage of the file system holding path.
func CheckDiskSpace(path string) (*DiskUsage, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}
	return getDiskUsage(absPath)
}

// EnsureFreeSpace fails when fewer than need bytes are available at path.
func EnsureFreeSpace(path string, need uint64) error {
	usage, err := CheckDiskSpace(path)
	if err != nil {
		return err
	}
	if usage.Available < need {
		return fmt.Errorf("insufficient disk space in %s: need %s, available %s",
			path, FormatBytes(need), FormatBytes(usage.Available))
	}
	return nil
}

// FormatBytes renders a byte count with a binary unit.
func FormatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
