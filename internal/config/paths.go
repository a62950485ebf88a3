package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// DataDir returns the per-user data directory used for logs and the
// fallback results store.
//
// Platform paths:
//   - macOS:   ~/Library/Application Support/statlearn/
//   - Linux:   $XDG_DATA_HOME/statlearn/ or ~/.local/share/statlearn/
//   - Windows: %APPDATA%\statlearn\
//
// STATLEARN_DATA_DIR overrides all of them.
func DataDir() string {
	if v := os.Getenv("STATLEARN_DATA_DIR"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "statlearn")
	}

	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "statlearn")
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "statlearn")
		}
		return filepath.Join(home, "AppData", "Roaming", "statlearn")
	default:
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			return filepath.Join(xdg, "statlearn")
		}
		return filepath.Join(home, ".local", "share", "statlearn")
	}
}

// SupportedConfigFormats returns the list of supported config file formats.
func SupportedConfigFormats() []string {
	return []string{"toml", "json", "yaml", "yml"}
}

// FindConfigFile searches the working directory, then the data directory,
// for statlearn.<ext>. Returns "" when none exists.
func FindConfigFile() string {
	for _, dir := range []string{".", DataDir()} {
		for _, ext := range SupportedConfigFormats() {
			path := filepath.Join(dir, "statlearn."+ext)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}
