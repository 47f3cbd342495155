package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// ConfigEnvVar names the environment variable holding a config path.
const ConfigEnvVar = "DABOPS_CONFIG"

// Discover returns the configuration file to load. Priority order: the
// --config flag, $DABOPS_CONFIG, ~/.config/dabops/config.yaml,
// /etc/dabops/config.yaml, ./config.yaml. An explicit path that does not
// exist is an error; when no standard location exists Discover returns "".
func Discover(flagPath string) (string, error) {
	if flagPath != "" {
		if _, err := os.Stat(flagPath); err != nil {
			return "", fmt.Errorf("config file not found: %s", flagPath)
		}
		return flagPath, nil
	}
	if p := os.Getenv(ConfigEnvVar); p != "" {
		if _, err := os.Stat(p); err != nil {
			return "", fmt.Errorf("$%s points to a missing file: %s", ConfigEnvVar, p)
		}
		return p, nil
	}
	for _, p := range searchPaths() {
		if fileExists(p) {
			return p, nil
		}
	}
	return "", nil
}

func searchPaths() []string {
	var paths []string
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "dabops", "config.yaml"))
	}
	return append(paths, "/etc/dabops/config.yaml", "config.yaml")
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
