package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/huanfeng/apkset-cli/internal/errors"
	"github.com/huanfeng/apkset-cli/internal/i18n"
	"github.com/huanfeng/apkset-cli/pkg/apk"
	"github.com/huanfeng/apkset-cli/pkg/models"
	"github.com/huanfeng/apkset-cli/pkg/selector"
	"github.com/huanfeng/apkset-cli/pkg/system"
	"github.com/huanfeng/apkset-cli/pkg/utils"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	extractApksPath   string
	extractDeviceSpec string
	extractOutputDir  string
	extractModules    []string
)

var extractApksCmd = &cobra.Command{
	Use:   "extract-apks",
	Short: "Extract the APKs of an APK set that match a device spec",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		switch {
		case extractApksPath == "":
			return errors.NewIllegalInputError("MISSING_FLAG", "Missing the required --apks flag.")
		case extractDeviceSpec == "":
			return errors.NewIllegalInputError("MISSING_FLAG", "Missing the required --device-spec flag.")
		case extractOutputDir == "":
			return errors.NewIllegalInputError("MISSING_FLAG", "Missing the required --output-dir flag.")
		}

		spec, err := readDeviceSpec(extractDeviceSpec)
		if err != nil {
			return err
		}

		archive, err := apk.Open(extractApksPath)
		if err != nil {
			return err
		}
		defer archive.Close()

		toc, err := archive.TOC()
		if err != nil {
			return err
		}
		plan, err := selector.Select(toc, spec, extractModules)
		if err != nil {
			return err
		}
		utils.Debug("variant %d, modules %v, %d APKs", plan.Variant, plan.Modules, len(plan.Apks))

		if err := os.MkdirAll(extractOutputDir, 0755); err != nil {
			return errors.Wrap(err, errors.KindIllegalInput, "OUTPUT_NOT_WRITABLE",
				fmt.Sprintf("Unable to create directory '%s'.", extractOutputDir))
		}
		if err := system.EnsureFreeSpace(extractOutputDir, archive.UncompressedSize(plan.Apks)); err != nil {
			utils.Warn("%v", err)
		}

		var progress apk.ProgressFunc
		if bar := progressBar(cmd, i18n.T("install.extracting")); bar != nil {
			progress = bar.Update
		}
		paths, err := archive.ExtractWithProgress(cmd.Context(), plan.Apks, extractOutputDir, progress)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, p := range paths {
			fmt.Fprintln(out, p)
		}
		fmt.Fprintln(cmd.ErrOrStderr(), checkmark(i18n.T("extract.success", map[string]interface{}{
			"count": len(paths),
			"dir":   render(styleNoun, extractOutputDir),
		})))
		return nil
	},
}

// readDeviceSpec loads a JSON or YAML device spec file and validates it.
func readDeviceSpec(path string) (*models.DeviceSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewFileNotFoundError(path)
	}

	var spec models.DeviceSpec
	if formatFromPath(path, "json") == "yaml" {
		err = yaml.Unmarshal(data, &spec)
	} else {
		err = json.Unmarshal(data, &spec)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.KindIllegalInput, "INVALID_DEVICE_SPEC",
			fmt.Sprintf("Unable to parse device spec '%s'.", path))
	}
	if err := spec.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.KindIllegalInput, "INVALID_DEVICE_SPEC",
			fmt.Sprintf("Invalid device spec '%s'.", path))
	}
	return &spec, nil
}

func init() {
	rootCmd.AddCommand(extractApksCmd)

	extractApksCmd.Flags().StringVar(&extractApksPath, "apks", "", "path to the .apks archive")
	extractApksCmd.Flags().StringVar(&extractDeviceSpec, "device-spec", "", "device spec file (json or yaml)")
	extractApksCmd.Flags().StringVar(&extractOutputDir, "output-dir", "", "directory to extract the APKs to")
	extractApksCmd.Flags().StringSliceVar(&extractModules, "modules", nil, "comma-separated modules to install (default: install-time modules)")
}
