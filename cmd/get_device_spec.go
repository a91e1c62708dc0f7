package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/huanfeng/apkset-cli/internal/errors"
	"github.com/huanfeng/apkset-cli/internal/i18n"
	"github.com/huanfeng/apkset-cli/pkg/client"
	"github.com/huanfeng/apkset-cli/pkg/system"
	"github.com/huanfeng/apkset-cli/pkg/utils"
	"github.com/spf13/cobra"
)

var (
	specADB      string
	specDeviceID string
	specOutput   string
	specFormat   string
)

var getDeviceSpecCmd = &cobra.Command{
	Use:   "get-device-spec",
	Short: "Print the capabilities of a connected device",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format := specFormat
		if format == "" {
			format = formatFromPath(specOutput, "json")
		}
		if format != "json" && format != "yaml" {
			return unsupportedFormat(format)
		}

		device, err := connect(cmd.Context(), specADB, specDeviceID)
		if err != nil {
			return err
		}
		utils.Debug("%s", i18n.T("install.probing", map[string]interface{}{"device": device.Serial()}))
		spec, err := client.Capabilities(cmd.Context(), device)
		if err != nil {
			return err
		}

		if specOutput == "" {
			return writeStructured(cmd.OutOrStdout(), format, spec)
		}

		var buf bytes.Buffer
		if err := writeStructured(&buf, format, spec); err != nil {
			return err
		}
		if dir := filepath.Dir(specOutput); dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return errors.Wrap(err, errors.KindIllegalInput, "OUTPUT_NOT_WRITABLE",
					fmt.Sprintf("Unable to create directory '%s'.", dir))
			}
		}
		if err := os.WriteFile(specOutput, buf.Bytes(), 0644); err != nil {
			return errors.Wrap(err, errors.KindIllegalInput, "OUTPUT_NOT_WRITABLE",
				fmt.Sprintf("Unable to write '%s'.", specOutput))
		}
		fmt.Fprintln(cmd.OutOrStdout(), checkmark(i18n.T("spec.written", map[string]interface{}{
			"path": render(styleNoun, specOutput),
		})))
		return nil
	},
}

// connect resolves adb, then selects the target device.
func connect(ctx context.Context, adbFlag, deviceFlag string) (client.Device, error) {
	adbPath, err := cfg.ADBPath(adbFlag)
	if err != nil {
		return nil, err
	}
	if err := system.CheckExecutable(adbPath); err != nil {
		return nil, err
	}
	return client.SelectDevice(ctx, newBridge(adbPath), cfg.DeviceSerial(deviceFlag))
}

// formatFromPath guesses json or yaml from a file extension.
func formatFromPath(path, fallback string) string {
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		return "yaml"
	case ".json":
		return "json"
	default:
		return fallback
	}
}

func init() {
	rootCmd.AddCommand(getDeviceSpecCmd)

	getDeviceSpecCmd.Flags().StringVar(&specADB, "adb", "", "path to the adb binary (default $ANDROID_HOME/platform-tools/adb)")
	getDeviceSpecCmd.Flags().StringVar(&specDeviceID, "device-id", "", "serial of the target device (default $ANDROID_SERIAL)")
	getDeviceSpecCmd.Flags().StringVarP(&specOutput, "output", "o", "", "write the device spec to this file instead of stdout")
	getDeviceSpecCmd.Flags().StringVar(&specFormat, "format", "", "device spec format (json, yaml)")
}
