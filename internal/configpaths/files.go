// Package configpaths resolves where bb configuration files live on each
// platform.
package configpaths

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
)

const appDir = "bitbabbler"

// DefaultConfigDir returns the platform configuration directory for bb.
func DefaultConfigDir() (string, error) {
	switch runtime.GOOS {
	case "windows":
		if appdata := os.Getenv("AppData"); appdata != "" {
			return filepath.Join(appdata, appDir), nil
		}
		return "", errors.New("AppData not set")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, appDir), nil
		}
		if home := os.Getenv("HOME"); home != "" {
			return filepath.Join(home, ".config", appDir), nil
		}
		return "", errors.New("HOME not set")
	}
}

// DefaultConfigPath returns the default config file path for the given
// format, using base name "bb".
func DefaultConfigPath(format string) (string, error) {
	dir, err := DefaultConfigDir()
	if err != nil {
		return "", err
	}
	ext := "json"
	switch format {
	case "yaml", "yml":
		ext = "yaml"
	case "toml":
		ext = "toml"
	}
	return filepath.Join(dir, "bb."+ext), nil
}

// EnsureDir creates the directory that would hold filePath.
func EnsureDir(filePath string) error {
	return os.MkdirAll(filepath.Dir(filePath), 0o755)
}

// ConfigCandidatePaths builds the per-format candidate lists consulted at
// startup, highest priority first. A userPath is routed to the loader
// matching its extension and searched before everything else.
func ConfigCandidatePaths(userPath string) (jsonPaths, yamlPaths, tomlPaths []string) {
	add := func(slice *[]string, p string) { *slice = append(*slice, p) }

	if userPath != "" {
		switch filepath.Ext(userPath) {
		case ".yaml", ".yml":
			add(&yamlPaths, userPath)
		case ".toml":
			add(&tomlPaths, userPath)
		default:
			add(&jsonPaths, userPath)
		}
	}

	wd, _ := os.Getwd()
	for _, base := range []string{"bb", "config"} {
		add(&jsonPaths, filepath.Join(wd, base+".json"))
		add(&yamlPaths, filepath.Join(wd, base+".yaml"))
		add(&yamlPaths, filepath.Join(wd, base+".yml"))
		add(&tomlPaths, filepath.Join(wd, base+".toml"))
	}

	if dir, err := DefaultConfigDir(); err == nil {
		for _, base := range []string{"bb", "config"} {
			add(&jsonPaths, filepath.Join(dir, base+".json"))
			add(&yamlPaths, filepath.Join(dir, base+".yaml"))
			add(&yamlPaths, filepath.Join(dir, base+".yml"))
			add(&tomlPaths, filepath.Join(dir, base+".toml"))
		}
	}

	if runtime.GOOS != "windows" {
		etc := filepath.Join("/etc", appDir)
		for _, base := range []string{"bb", "config"} {
			add(&jsonPaths, filepath.Join(etc, base+".json"))
			add(&yamlPaths, filepath.Join(etc, base+".yaml"))
			add(&yamlPaths, filepath.Join(etc, base+".yml"))
			add(&tomlPaths, filepath.Join(etc, base+".toml"))
		}
	}

	return
}
