package cmd

import (
	"fmt"
	"os"

	"github.com/huanfeng/apkset-cli/internal/errors"
	"github.com/huanfeng/apkset-cli/internal/i18n"
	"github.com/huanfeng/apkset-cli/pkg/installer"
	"github.com/huanfeng/apkset-cli/pkg/utils"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

var (
	installApksPath string
	installADB      string
	installDeviceID string
	installModules  []string
	installDryRun   bool
	installOutput   string
)

var installApksCmd = &cobra.Command{
	Use:   "install-apks",
	Short: "Install the APKs of an APK set that match a device",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if installApksPath == "" {
			return errors.NewIllegalInputError("MISSING_FLAG", "Missing the required --apks flag.")
		}
		if _, err := os.Stat(installApksPath); err != nil {
			return errors.NewFileNotFoundError(installApksPath)
		}
		if installDryRun && installOutput != "yaml" && installOutput != "json" {
			return unsupportedFormat(installOutput)
		}

		adbPath, err := cfg.ADBPath(installADB)
		if err != nil {
			return err
		}

		opts := []installer.Option{
			installer.WithBridgeFactory(newBridge),
			installer.WithLogger(utils.GetGlobalLogger()),
		}
		if bar := progressBar(cmd, i18n.T("install.extracting")); bar != nil {
			opts = append(opts, installer.WithProgress(bar.Update))
		}

		res, err := installer.New(opts...).Run(cmd.Context(), installer.Request{
			ApksPath: installApksPath,
			ADBPath:  adbPath,
			DeviceID: cfg.DeviceSerial(installDeviceID),
			Modules:  installModules,
			DryRun:   installDryRun,
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if installDryRun {
			fmt.Fprintln(cmd.ErrOrStderr(), i18n.T("install.dryRun", map[string]interface{}{
				"count":  len(res.Plan.Apks),
				"device": res.Device,
			}))
			return writeStructured(out, installOutput, res)
		}

		data := map[string]interface{}{
			"count":  len(res.Plan.Apks),
			"device": render(styleNoun, res.Device),
		}
		msg := i18n.T("install.success", data)
		if res.Manifest != nil && res.Manifest.PackageName != "" {
			data["package"] = render(styleNoun, res.Manifest.PackageName)
			msg = i18n.T("install.successPackage", data)
		}
		fmt.Fprintln(out, checkmark(msg))
		return nil
	},
}

// progressBar returns a bar on stderr when it is a terminal and debug logs
// are off.
func progressBar(cmd *cobra.Command, description string) *utils.ProgressBar {
	if verbose {
		return nil
	}
	f, ok := cmd.ErrOrStderr().(*os.File)
	if !ok || !(isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		return nil
	}
	return utils.NewProgressBar(f, 0, description)
}

func init() {
	rootCmd.AddCommand(installApksCmd)

	installApksCmd.Flags().StringVar(&installApksPath, "apks", "", "path to the .apks archive")
	installApksCmd.Flags().StringVar(&installADB, "adb", "", "path to the adb binary (default $ANDROID_HOME/platform-tools/adb)")
	installApksCmd.Flags().StringVar(&installDeviceID, "device-id", "", "serial of the target device (default $ANDROID_SERIAL)")
	installApksCmd.Flags().StringSliceVar(&installModules, "modules", nil, "comma-separated modules to install (default: install-time modules)")
	installApksCmd.Flags().BoolVar(&installDryRun, "dry-run", false, "print the install plan without installing")
	installApksCmd.Flags().StringVar(&installOutput, "output", "yaml", "plan output format for --dry-run (yaml, json)")
}
