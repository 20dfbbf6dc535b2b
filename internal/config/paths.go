package config

import (
	"os"
	"path/filepath"
)

const appName = "swiftme"

func defaultDataDir() string {
	dir := os.Getenv("XDG_DATA_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return appName + "-data"
		}
		dir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dir, appName)
}

// FilePath returns the YAML config file location: $SWIFTME_CONFIG when
// set, otherwise config.yaml under the XDG config directory.
func FilePath() string {
	if p := os.Getenv(ConfigPathEnv); p != "" {
		return p
	}
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(".", appName+".yaml")
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, appName, "config.yaml")
}
