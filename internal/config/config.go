package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"

	"github.com/huanfeng/apkset-cli/pkg/system"
)

// Config is the merged configuration: defaults, config file, environment.
type Config struct {
	ADB ADBConfig `mapstructure:"adb" json:"adb" yaml:"adb"`
	Log LogConfig `mapstructure:"log" json:"log" yaml:"log"`

	// AndroidHome and AndroidSerial come from ANDROID_HOME and ANDROID_SERIAL.
	AndroidHome   string `mapstructure:"android_home" json:"android_home" yaml:"android_home"`
	AndroidSerial string `mapstructure:"android_serial" json:"android_serial" yaml:"android_serial"`

	// File is the config file that was read, if any.
	File string `mapstructure:"-" json:"file,omitempty" yaml:"file,omitempty"`
}

// ADBConfig configures the device bridge.
type ADBConfig struct {
	Path          string `mapstructure:"path" json:"path" yaml:"path"`
	DefaultDevice string `mapstructure:"default_device" json:"default_device" yaml:"default_device"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level      string `mapstructure:"level" json:"level" yaml:"level"`
	Format     string `mapstructure:"format" json:"format" yaml:"format"`
	Timestamps bool   `mapstructure:"timestamps" json:"timestamps" yaml:"timestamps"`
}

// DefaultConfigPath returns ~/.config/apkset/config.yaml.
func DefaultConfigPath() (string, error) {
	return homedir.Expand(filepath.Join("~", ".config", "apkset", "config.yaml"))
}

// Load loads configuration from file and environment. An empty configPath
// looks for config.yaml in ~/.config/apkset and tolerates its absence.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	v.SetDefault("adb.path", "")
	v.SetDefault("adb.default_device", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.timestamps", false)

	if configPath != "" {
		expanded, err := homedir.Expand(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to expand config path: %w", err)
		}
		v.SetConfigFile(expanded)
	} else {
		v.SetConfigName("config")
		if home, err := homedir.Dir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "apkset"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("APKSET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range map[string]string{
		"android_home":   "ANDROID_HOME",
		"android_serial": "ANDROID_SERIAL",
	} {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	config.File = v.ConfigFileUsed()

	if config.ADB.Path != "" {
		expanded, err := homedir.Expand(config.ADB.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to expand adb.path: %w", err)
		}
		config.ADB.Path = expanded
	}
	return &config, nil
}

// ADBPath returns the adb binary to use: the flag, then adb.path, then
// ANDROID_HOME, then PATH.
func (c *Config) ADBPath(flag string) (string, error) {
	if flag != "" {
		return homedir.Expand(flag)
	}
	return system.ResolveADB(c.ADB.Path, c.AndroidHome)
}

// DeviceSerial returns the device to target: the flag, then ANDROID_SERIAL,
// then adb.default_device. Empty means the only connected device.
func (c *Config) DeviceSerial(flag string) string {
	switch {
	case flag != "":
		return flag
	case c.AndroidSerial != "":
		return c.AndroidSerial
	default:
		return c.ADB.DefaultDevice
	}
}

// SaveTemplate saves a configuration template
func SaveTemplate(path string) error {
	templateContent := `# apkset configuration file

adb:
  # Path to the adb binary. Defaults to $ANDROID_HOME/platform-tools/adb,
  # then adb on PATH.
  path: ""

  # Serial of the device to use when --device-id and ANDROID_SERIAL are unset.
  default_device: ""

log:
  # debug, info, warn or error
  level: "info"

  # text, json or logfmt
  format: "text"

  # Prefix log lines with the time
  timestamps: false
`

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return os.WriteFile(path, []byte(templateContent), 0644)
}
