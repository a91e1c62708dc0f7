// Package system locates host tools and checks host resources.
package system

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/huanfeng/apkset-cli/internal/errors"
)

// InstallStep represents a single installation step
type InstallStep struct {
	Description string `json:"description"`
	Command     string `json:"command,omitempty"`
	Manual      bool   `json:"manual"`
	Platform    string `json:"platform"`
}

func adbBinaryName() string {
	if runtime.GOOS == "windows" {
		return "adb.exe"
	}
	return "adb"
}

// DefaultADBPath returns <androidHome>/platform-tools/adb.
func DefaultADBPath(androidHome string) string {
	return filepath.Join(androidHome, "platform-tools", adbBinaryName())
}

// ResolveADB picks the adb binary: the explicit path, else the one under
// androidHome, else adb found on PATH.
func ResolveADB(explicit, androidHome string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if androidHome != "" {
		return DefaultADBPath(androidHome), nil
	}
	if path, err := exec.LookPath(adbBinaryName()); err == nil {
		return path, nil
	}
	return "", errors.NewIllegalInputError("ADB_NOT_LOCATED",
		"Unable to determine the location of ADB. Please set the --adb flag or define ANDROID_HOME environment variable.").
		WithSuggestions(ADBSuggestions())
}

// CheckExecutable verifies that path exists and can be executed.
func CheckExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return errors.NewFileNotFoundError(path).WithSuggestions(ADBSuggestions())
	}
	if !isExecutable(path) {
		return errors.Newf(errors.KindIllegalInput, "FILE_NOT_EXECUTABLE", "File '%s' is not executable.", path).
			WithContext("path", path)
	}
	return nil
}

// ADBVersion returns the first line of `adb version`.
func ADBVersion(ctx context.Context, path string) (string, error) {
	output, err := exec.CommandContext(ctx, path, "version").CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("adb version: %w", err)
	}
	line, _, _ := strings.Cut(string(output), "\n")
	return strings.TrimSpace(line), nil
}

// ADBInstallSteps returns platform-specific ways to get adb.
func ADBInstallSteps() []InstallStep {
	var steps []InstallStep

	switch runtime.GOOS {
	case "linux":
		for _, pm := range detectPackageManagers() {
			switch pm {
			case "apt":
				steps = append(steps, InstallStep{
					Description: "Install via APT (Ubuntu/Debian)",
					Command:     "sudo apt-get update && sudo apt-get install -y adb",
					Platform:    "linux",
				})
			case "dnf":
				steps = append(steps, InstallStep{
					Description: "Install via DNF (Fedora)",
					Command:     "sudo dnf install -y android-tools",
					Platform:    "linux",
				})
			case "pacman":
				steps = append(steps, InstallStep{
					Description: "Install via Pacman (Arch Linux)",
					Command:     "sudo pacman -S --noconfirm android-tools",
					Platform:    "linux",
				})
			}
		}

	case "darwin":
		if hasCommand("brew") {
			steps = append(steps, InstallStep{
				Description: "Install via Homebrew",
				Command:     "brew install android-platform-tools",
				Platform:    "darwin",
			})
		}
	}

	steps = append(steps, InstallStep{
		Description: "Download Android SDK Platform Tools from https://developer.android.com/studio/releases/platform-tools",
		Manual:      true,
		Platform:    runtime.GOOS,
	})
	return steps
}

// ADBSuggestions flattens ADBInstallSteps into error suggestions.
func ADBSuggestions() []string {
	var suggestions []string
	for _, step := range ADBInstallSteps() {
		if step.Command != "" {
			suggestions = append(suggestions, fmt.Sprintf("%s: %s", step.Description, step.Command))
		} else {
			suggestions = append(suggestions, step.Description)
		}
	}
	return append(suggestions, "Point --adb or ANDROID_HOME at an existing SDK")
}

func detectPackageManagers() []string {
	var managers []string
	for _, pm := range []string{"apt-get", "dnf", "pacman"} {
		if hasCommand(pm) {
			managers = append(managers, strings.TrimSuffix(pm, "-get"))
		}
	}
	return managers
}

func hasCommand(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
