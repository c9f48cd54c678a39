package config

import (
	"os"
	"path/filepath"
)

const (
	defaultConfigDirName = "mbxreport"
	defaultConfigFile    = "config.yaml"
)

func DefaultConfigPath() string {
	if env := os.Getenv("MBXREPORT_CONFIG"); env != "" {
		return env
	}
	base, err := os.UserConfigDir()
	if err == nil {
		return filepath.Join(base, defaultConfigDirName, defaultConfigFile)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".mbxreport", defaultConfigFile)
}
