package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/huanfeng/apkset-cli/internal/errors"
	"github.com/huanfeng/apkset-cli/pkg/client"
	"github.com/huanfeng/apkset-cli/pkg/system"
	"github.com/huanfeng/apkset-cli/pkg/utils"
	"github.com/spf13/cobra"
)

// minTempSpace is the free space wanted in the temp dir for extracted APKs.
const minTempSpace = 100 * 1024 * 1024

var doctorADB string

// diagnosis collects the outcome of the doctor checks.
type diagnosis struct {
	out         io.Writer
	issues      []string
	suggestions []string
}

func (d *diagnosis) pass(format string, args ...interface{}) {
	fmt.Fprintf(d.out, "   %s\n", checkmark(fmt.Sprintf(format, args...)))
}

func (d *diagnosis) warn(format string, args ...interface{}) {
	fmt.Fprintf(d.out, "   %s %s\n", render(styleWarn, "!"), fmt.Sprintf(format, args...))
}

func (d *diagnosis) fail(issue string, suggestions ...string) {
	fmt.Fprintf(d.out, "   %s %s\n", render(styleError, "✘"), issue)
	d.issues = append(d.issues, issue)
	d.suggestions = append(d.suggestions, suggestions...)
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that adb and the host are ready to install APK sets",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := utils.GetGlobalLogger()
		logger.Debug("Starting system diagnostics...")

		d := &diagnosis{out: cmd.OutOrStdout()}

		fmt.Fprintln(d.out, render(styleHeader, "ADB"))
		adbPath := checkADB(cmd.Context(), d)

		fmt.Fprintln(d.out, render(styleHeader, "Configuration"))
		checkConfiguration(d)

		fmt.Fprintln(d.out, render(styleHeader, "Resources"))
		checkTempSpace(d)

		if adbPath != "" {
			fmt.Fprintln(d.out, render(styleHeader, "Devices"))
			checkDevices(cmd.Context(), d, adbPath)
		}

		fmt.Fprintln(d.out)
		if len(d.issues) == 0 {
			fmt.Fprintln(d.out, checkmark("All checks passed."))
			return nil
		}
		return errors.Newf(errors.KindInternal, "DOCTOR_ISSUES",
			"System diagnostics found %d issue(s).", len(d.issues)).WithSuggestions(d.suggestions)
	},
}

func checkADB(ctx context.Context, d *diagnosis) string {
	path, err := cfg.ADBPath(doctorADB)
	if err != nil {
		d.fail("adb: not located", system.ADBSuggestions()...)
		return ""
	}
	if err := system.CheckExecutable(path); err != nil {
		d.fail(fmt.Sprintf("adb: %v", err), system.ADBSuggestions()...)
		return ""
	}
	v, err := system.ADBVersion(ctx, path)
	if err != nil {
		d.fail(fmt.Sprintf("adb: %s does not run: %v", path, err), system.ADBSuggestions()...)
		return ""
	}
	d.pass("adb: %s (%s)", path, v)
	return path
}

func checkConfiguration(d *diagnosis) {
	if cfg.File == "" {
		d.pass("config: defaults (no config file)")
	} else {
		d.pass("config: %s", cfg.File)
	}
	if cfg.AndroidHome != "" {
		if info, err := os.Stat(cfg.AndroidHome); err != nil || !info.IsDir() {
			d.fail(fmt.Sprintf("ANDROID_HOME: %s is not a directory", cfg.AndroidHome),
				"Point ANDROID_HOME at the Android SDK root")
		} else {
			d.pass("ANDROID_HOME: %s", cfg.AndroidHome)
		}
	}
	if serial := cfg.DeviceSerial(""); serial != "" {
		d.pass("default device: %s", serial)
	}
}

func checkTempSpace(d *diagnosis) {
	tmp := os.TempDir()
	usage, err := system.CheckDiskSpace(tmp)
	if err != nil {
		d.warn("disk %s: %v", tmp, err)
		return
	}
	if usage.Available < minTempSpace {
		d.fail(fmt.Sprintf("disk %s: only %s available", tmp, system.FormatBytes(usage.Available)),
			"Free up space in the temporary directory or set TMPDIR")
		return
	}
	d.pass("disk %s: %s available", tmp, system.FormatBytes(usage.Available))
}

func checkDevices(ctx context.Context, d *diagnosis, adbPath string) {
	devices, err := newBridge(adbPath).Devices(ctx)
	if err != nil {
		d.fail(fmt.Sprintf("devices: %v", err), "Run 'adb kill-server' and try again")
		return
	}
	if len(devices) == 0 {
		d.warn("devices: none connected")
		return
	}
	for _, dev := range devices {
		switch dev.State() {
		case client.StateOnline:
			d.pass("%s: online", dev.Serial())
		case client.StateUnauthorized:
			d.fail(fmt.Sprintf("%s: unauthorized", dev.Serial()),
				"Accept the USB debugging prompt on the device")
		default:
			d.fail(fmt.Sprintf("%s: %s", dev.Serial(), dev.State()),
				"Reconnect the device or restart it")
		}
	}
}

func init() {
	rootCmd.AddCommand(doctorCmd)

	doctorCmd.Flags().StringVar(&doctorADB, "adb", "", "path to the adb binary (default $ANDROID_HOME/platform-tools/adb)")
}
