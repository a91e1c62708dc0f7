package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/huanfeng/apkset-cli/internal/config"
	"github.com/huanfeng/apkset-cli/internal/errors"
	"github.com/huanfeng/apkset-cli/internal/i18n"
	"github.com/huanfeng/apkset-cli/internal/version"
	"github.com/huanfeng/apkset-cli/pkg/client"
	"github.com/huanfeng/apkset-cli/pkg/installer"
	"github.com/huanfeng/apkset-cli/pkg/utils"
	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	verbose  bool
	noColor  bool
	langCode string

	cfg *config.Config

	// newBridge creates the device bridge for an adb binary.
	newBridge installer.BridgeFactory = func(adbPath string) client.Bridge {
		return client.NewADBBridge(adbPath)
	}
)

var rootCmd = &cobra.Command{
	Use:           "apkset",
	Short:         "Install APK sets onto connected Android devices",
	Version:       version.Short(),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup(cmd)
	},
}

// Execute runs the root command and exits with the code of the failure kind.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if err := i18n.Init(langFromArgs(args)); err != nil {
		fmt.Fprintf(stderr, "Warning: %v\n", err)
	}
	applyCommandLocalization()

	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return errors.ExitSuccess
	}
	printError(stderr, err)
	return errors.ExitCode(errors.KindOf(err))
}

// setup loads the configuration and the global logger before any command runs.
func setup(cmd *cobra.Command) error {
	loaded, err := config.Load(cfgFile)
	if err != nil {
		// config init is how a missing --config file gets created.
		if cmd != configInitCmd {
			return errors.Wrap(err, errors.KindIllegalInput, "INVALID_CONFIG", "Unable to load the configuration file.")
		}
		loaded = &config.Config{}
	}
	cfg = loaded

	if os.Getenv("NO_COLOR") != "" {
		noColor = true
	}

	logConfig := utils.DefaultLoggerConfig()
	logConfig.Output = cmd.ErrOrStderr()
	logConfig.Timestamps = cfg.Log.Timestamps

	var warnings []string
	if level, err := utils.ParseLogLevel(cfg.Log.Level); err == nil {
		logConfig.Level = level
	} else {
		warnings = append(warnings, err.Error())
	}
	if format, err := utils.ParseLogFormat(cfg.Log.Format); err == nil {
		logConfig.Format = format
	} else {
		warnings = append(warnings, err.Error())
	}
	if verbose {
		logConfig.Level = utils.LogLevelDebug
	}
	utils.InitGlobalLogger(logConfig)

	for _, w := range warnings {
		utils.Warn("config: %s", w)
	}
	if cfg.File != "" {
		utils.Debug("using config file %s", cfg.File)
	}
	return nil
}

// langFromArgs finds --lang before cobra parses flags, so help text is
// localized too.
func langFromArgs(args []string) string {
	for i, arg := range args {
		if arg == "--" {
			break
		}
		if value, ok := strings.CutPrefix(arg, "--lang="); ok {
			return value
		}
		if arg == "--lang" && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

func printError(w io.Writer, err error) {
	var e *errors.Error
	if verbose && errors.As(err, &e) {
		fmt.Fprint(w, e.FormatDetailed())
		return
	}

	fmt.Fprintf(w, "%s %s\n", render(styleError, "Error:"), err.Error())
	if errors.As(err, &e) && len(e.Suggestions) > 0 {
		fmt.Fprintln(w, i18n.T("errors.suggestions"))
		for _, s := range e.Suggestions {
			fmt.Fprintf(w, "  • %s\n", s)
		}
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.config/apkset/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging and detailed errors")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().StringVar(&langCode, "lang", "", "language for messages (en, zh)")
}
