package cmd

import (
	"fmt"
	"os"

	"github.com/huanfeng/apkset-cli/internal/config"
	"github.com/huanfeng/apkset-cli/internal/errors"
	"github.com/huanfeng/apkset-cli/internal/i18n"
	"github.com/spf13/cobra"
)

var (
	configForce  bool
	configFormat string
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration template",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfgFile
		if path == "" {
			var err error
			if path, err = config.DefaultConfigPath(); err != nil {
				return errors.Wrap(err, errors.KindInternal, "NO_HOME", "Unable to determine the home directory.")
			}
		}

		if _, err := os.Stat(path); err == nil && !configForce {
			return errors.NewIllegalInputError("CONFIG_EXISTS",
				i18n.T("config.exists", map[string]interface{}{"path": path}))
		}
		if err := config.SaveTemplate(path); err != nil {
			return errors.Wrap(err, errors.KindIllegalInput, "OUTPUT_NOT_WRITABLE",
				fmt.Sprintf("Unable to write '%s'.", path))
		}
		fmt.Fprintln(cmd.OutOrStdout(), checkmark(i18n.T("config.created", map[string]interface{}{
			"path": render(styleNoun, path),
		})))
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.File == "" {
			fmt.Fprintln(cmd.ErrOrStderr(), i18n.T("config.none"))
		}
		return writeStructured(cmd.OutOrStdout(), configFormat, cfg)
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)

	configInitCmd.Flags().BoolVar(&configForce, "force", false, "overwrite an existing file")
	configShowCmd.Flags().StringVar(&configFormat, "format", "yaml", "output format (json, yaml)")
}
