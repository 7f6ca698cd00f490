package config

import (
	"os"
	"path/filepath"
)

// DefaultFileName is the definition looked up in the working directory.
const DefaultFileName = "modrel.yaml"

// ConfigEnvVar overrides the definition path.
const ConfigEnvVar = "MODREL_CONFIG"

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	if len(path) == 0 || path[0] != '~' {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	if len(path) == 1 {
		return homeDir, nil
	}
	if path[1] == '/' || path[1] == filepath.Separator {
		return filepath.Join(homeDir, path[2:]), nil
	}

	// ~username is not supported
	return path, nil
}

// InDir resolves p against dir unless p is absolute or dir is empty.
func InDir(dir, p string) string {
	if dir == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}
