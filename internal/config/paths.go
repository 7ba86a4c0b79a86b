package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

const (
	// appDirName is the per-user application directory name.
	appDirName = "chatgpt-cli"
	// FileName is the configuration file name inside the application directory.
	FileName = ".config"
	// DotEnvFileName is an optional environment file inside the application directory.
	DotEnvFileName = ".env"
)

// AppDir returns the default per-user application directory.
func AppDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	if runtime.GOOS == "windows" {
		return filepath.Join(home, "AppData", "Local", appDirName), nil
	}
	return filepath.Join(home, "."+appDirName), nil
}

// FilePath returns the configuration file path inside appDir.
func FilePath(appDir string) string {
	return filepath.Join(appDir, FileName)
}
