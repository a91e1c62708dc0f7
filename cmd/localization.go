package cmd

import (
	"github.com/huanfeng/apkset-cli/internal/i18n"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// flagMessages maps flag names to their message IDs. Flags shared by several
// commands use the same message.
var flagMessages = map[string]string{
	"config":      "flags.config",
	"verbose":     "flags.verbose",
	"no-color":    "flags.noColor",
	"lang":        "flags.lang",
	"apks":        "flags.apks",
	"adb":         "flags.adb",
	"device-id":   "flags.deviceId",
	"modules":     "flags.modules",
	"dry-run":     "flags.dryRun",
	"device-spec": "flags.deviceSpec",
	"output-dir":  "flags.outputDir",
	"force":       "flags.force",
	"workers":     "flags.workers",
}

// applyCommandLocalization updates command and flag descriptions after i18n is initialized.
func applyCommandLocalization() {
	localize(rootCmd, "cmd.root")
	localize(installApksCmd, "cmd.installApks")
	localize(getDeviceSpecCmd, "cmd.getDeviceSpec")
	localize(extractApksCmd, "cmd.extractApks")
	localize(devicesCmd, "cmd.devices")
	localize(doctorCmd, "cmd.doctor")
	localize(configCmd, "cmd.config")
	localize(configInitCmd, "cmd.configInit")
	localize(configShowCmd, "cmd.configShow")
	localize(versionCmd, "cmd.version")

	// Same flag names with different meanings per command.
	setUsage(installApksCmd.Flags(), "output", "flags.output")
	setUsage(getDeviceSpecCmd.Flags(), "output", "flags.specOutput")
	setUsage(getDeviceSpecCmd.Flags(), "format", "flags.format")
	setUsage(devicesCmd.Flags(), "format", "flags.devicesFormat")
	setUsage(configShowCmd.Flags(), "format", "flags.format")
}

func localize(cmd *cobra.Command, prefix string) {
	cmd.Short = i18n.T(prefix + ".short")
	cmd.Long = i18n.T(prefix + ".long")

	for _, flags := range []*pflag.FlagSet{cmd.PersistentFlags(), cmd.LocalNonPersistentFlags()} {
		flags.VisitAll(func(f *pflag.Flag) {
			if id, ok := flagMessages[f.Name]; ok {
				f.Usage = i18n.T(id)
			}
		})
	}
}

func setUsage(flags *pflag.FlagSet, name, id string) {
	if f := flags.Lookup(name); f != nil {
		f.Usage = i18n.T(id)
	}
}
