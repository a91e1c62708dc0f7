package client

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/huanfeng/apkset-cli/internal/errors"
)

type installErrorPattern struct {
	pattern     string
	code        string
	suggestions []string
}

var installErrorPatterns = []installErrorPattern{
	{
		"INSTALL_FAILED_ALREADY_EXISTS",
		"ALREADY_EXISTS",
		[]string{"Uninstall the existing app first"},
	},
	{
		"INSTALL_FAILED_VERSION_DOWNGRADE",
		"VERSION_DOWNGRADE",
		[]string{
			"Uninstall the existing app first",
			"Install a newer version instead",
		},
	},
	{
		"INSTALL_FAILED_UPDATE_INCOMPATIBLE",
		"UPDATE_INCOMPATIBLE",
		[]string{"The installed app is signed with a different key; uninstall it first"},
	},
	{
		"INSTALL_FAILED_INSUFFICIENT_STORAGE",
		"INSUFFICIENT_STORAGE",
		[]string{
			"Free up storage space on the device",
			"Clear app caches and data",
		},
	},
	{
		"INSTALL_FAILED_INVALID_APK",
		"INVALID_APK",
		[]string{
			"Rebuild the APK set",
			"Check that every split of the set was produced by the same build",
		},
	},
	{
		"INSTALL_FAILED_OLDER_SDK",
		"OLDER_SDK",
		[]string{"Find a version compatible with your Android version"},
	},
	{
		"INSTALL_FAILED_MISSING_SHARED_LIBRARY",
		"MISSING_LIBRARY",
		[]string{
			"Install required system libraries",
			"Check device compatibility",
		},
	},
	{
		"INSTALL_FAILED_NO_MATCHING_ABIS",
		"NO_MATCHING_ABIS",
		[]string{"Check the ABIs reported by 'apkset get-device-spec'"},
	},
	{
		"INSTALL_FAILED_MISSING_SPLIT",
		"MISSING_SPLIT",
		[]string{"Request the missing module with --modules"},
	},
	{
		"INSTALL_FAILED_USER_RESTRICTED",
		"USER_RESTRICTED",
		[]string{"Allow installation over USB in the device developer options"},
	},
}

var installFailedRe = regexp.MustCompile(`INSTALL_(?:FAILED|PARSE_FAILED)_([A-Z_]+)`)

// InstallFailure builds the InstallationError for a failed install. The
// bridge output is kept verbatim as the message.
func InstallFailure(output string, cause error) *errors.Error {
	message := strings.TrimSpace(output)
	if message == "" && cause != nil {
		message = cause.Error()
		cause = nil
	}
	if message == "" {
		message = "Installation failed."
	}

	e := errors.NewInstallationError(message, cause)
	code, suggestions := classifyInstallError(output)
	e.Code = code
	return e.WithSuggestions(suggestions)
}

func classifyInstallError(output string) (string, []string) {
	upper := strings.ToUpper(output)
	for _, p := range installErrorPatterns {
		if strings.Contains(upper, p.pattern) {
			return p.code, p.suggestions
		}
	}

	if matches := installFailedRe.FindStringSubmatch(upper); len(matches) > 1 {
		return matches[1], []string{
			"Check device logs for more details",
			fmt.Sprintf("Look up %s in the package manager documentation", matches[0]),
		}
	}

	return "INSTALL_FAILED", []string{
		"Check ADB connection",
		"Try restarting ADB server",
		"Check device logs for more information",
	}
}
