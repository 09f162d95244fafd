package config

import (
	"path/filepath"

	"github.com/spf13/viper"
)

// DefaultSettingsDir is used when no settings file has been read.
const DefaultSettingsDir = "./.qwen-chat"

// BaseSettingsDir returns the directory holding the active settings file.
func BaseSettingsDir() string {
	// Check if config.path is explicitly set (for testing)
	if configPath := viper.GetString("config.path"); configPath != "" {
		return configPath
	}

	currentConfig := viper.ConfigFileUsed()
	if currentConfig == "" {
		return DefaultSettingsDir
	}
	return filepath.Dir(currentConfig)
}

// BuildSettingsPath joins target onto the settings directory.
func BuildSettingsPath(target string) string {
	return filepath.Join(BaseSettingsDir(), target)
}

// ResolvePath leaves absolute paths alone and places relative ones
// under the settings directory by file name.
func ResolvePath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return BuildSettingsPath(filepath.Base(path))
}
