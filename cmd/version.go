package cmd

import (
	"fmt"

	"github.com/huanfeng/apkset-cli/internal/version"
	"github.com/huanfeng/apkset-cli/pkg/system"
	"github.com/huanfeng/apkset-cli/pkg/utils"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		var adbVersion string
		if path, err := cfg.ADBPath(""); err == nil {
			if v, err := system.ADBVersion(cmd.Context(), path); err == nil {
				adbVersion = v
			} else {
				utils.Debug("%v", err)
			}
		}
		fmt.Fprintln(cmd.OutOrStdout(), version.Info(adbVersion))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
