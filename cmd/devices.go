package cmd

import (
	"context"
	"fmt"

	"github.com/huanfeng/apkset-cli/internal/device"
	"github.com/huanfeng/apkset-cli/internal/i18n"
	"github.com/huanfeng/apkset-cli/pkg/client"
	"github.com/huanfeng/apkset-cli/pkg/models"
	"github.com/huanfeng/apkset-cli/pkg/system"
	"github.com/huanfeng/apkset-cli/pkg/utils"
	"github.com/spf13/cobra"
)

var (
	devicesADB     string
	devicesFormat  string
	devicesWorkers int
)

// deviceRow is one line of the devices listing.
type deviceRow struct {
	Serial string             `json:"serial" yaml:"serial"`
	State  client.DeviceState `json:"state" yaml:"state"`
	Model  string             `json:"model,omitempty" yaml:"model,omitempty"`
	Spec   *models.DeviceSpec `json:"deviceSpec,omitempty" yaml:"deviceSpec,omitempty"`
	Error  string             `json:"error,omitempty" yaml:"error,omitempty"`
}

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List connected devices and their capabilities",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if devicesFormat != "table" && devicesFormat != "json" && devicesFormat != "yaml" {
			return unsupportedFormat(devicesFormat)
		}

		adbPath, err := cfg.ADBPath(devicesADB)
		if err != nil {
			return err
		}
		if err := system.CheckExecutable(adbPath); err != nil {
			return err
		}

		devices, err := newBridge(adbPath).Devices(cmd.Context())
		if err != nil {
			return err
		}
		rows := probeDevices(cmd.Context(), devices, devicesWorkers)

		out := cmd.OutOrStdout()
		if devicesFormat != "table" {
			return writeStructured(out, devicesFormat, rows)
		}
		if len(rows) == 0 {
			fmt.Fprintln(out, i18n.T("devices.none"))
			return nil
		}
		fmt.Fprintln(out, renderDevices(rows))
		return nil
	},
}

// probeDevices reads the capabilities of every online device, several at a
// time. Devices that are not online are listed without a spec.
func probeDevices(ctx context.Context, devices []client.Device, workers int) []deviceRow {
	rows := make([]deviceRow, len(devices))
	bySerial := make(map[string]client.Device, len(devices))
	var online []string
	for i, d := range devices {
		rows[i] = deviceRow{Serial: d.Serial(), State: d.State(), Model: d.Model()}
		if d.State() == client.StateOnline {
			bySerial[d.Serial()] = d
			online = append(online, d.Serial())
		}
	}

	mgr := device.NewManager[*models.DeviceSpec](device.WithWorkerLimit[*models.DeviceSpec](workers))
	results := mgr.Run(ctx, online, func(ctx context.Context, serial string) (*models.DeviceSpec, error) {
		return client.Capabilities(ctx, bySerial[serial])
	})

	specs := make(map[string]device.Result[*models.DeviceSpec], len(results))
	for _, res := range results {
		specs[res.Serial] = res
	}
	for i := range rows {
		res, ok := specs[rows[i].Serial]
		if !ok {
			continue
		}
		if res.Err != nil {
			utils.Debug("probe of %s failed: %v", res.Serial, res.Err)
			rows[i].Error = res.Err.Error()
			continue
		}
		rows[i].Spec = res.Value
	}
	return rows
}

func renderDevices(rows []deviceRow) string {
	headers := []string{
		i18n.T("devices.header.serial"),
		i18n.T("devices.header.state"),
		i18n.T("devices.header.model"),
		i18n.T("devices.header.sdk"),
		i18n.T("devices.header.abis"),
		i18n.T("devices.header.density"),
		i18n.T("devices.header.locales"),
	}

	cells := make([][]string, 0, len(rows))
	for _, r := range rows {
		row := []string{
			render(styleNoun, r.Serial),
			render(stateStyle(string(r.State)), string(r.State)),
			orDash(r.Model),
		}
		switch {
		case r.Spec != nil:
			row = append(row,
				intOrDash(r.Spec.SdkVersion),
				joinOrDash(r.Spec.SupportedAbis),
				intOrDash(r.Spec.ScreenDensity),
				joinOrDash(r.Spec.SupportedLocales),
			)
		case r.Error != "":
			row = append(row, render(styleError, i18n.T("devices.probeFailed", map[string]interface{}{"error": r.Error})), "", "", "")
		default:
			row = append(row, "-", "-", "-", "-")
		}
		cells = append(cells, row)
	}
	return renderTable(headers, cells)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func init() {
	rootCmd.AddCommand(devicesCmd)

	devicesCmd.Flags().StringVar(&devicesADB, "adb", "", "path to the adb binary (default $ANDROID_HOME/platform-tools/adb)")
	devicesCmd.Flags().StringVar(&devicesFormat, "format", "table", "output format (table, json, yaml)")
	devicesCmd.Flags().IntVar(&devicesWorkers, "workers", 4, "number of devices probed at once")
}
