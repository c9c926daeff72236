package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"
)

const (
	DefaultConfigDir  = ".config/vmcli"
	DefaultConfigFile = "config.json"
	FilePermissions   = os.FileMode(0600)
	DirPermissions    = os.FileMode(0700)
)

// Paths resolves the config directory and file path.
// An explicit override wins, then VMCLI_CONFIG, then ~/.config/vmcli/config.json.
func Paths(override string) (dir string, filePath string, err error) {
	if override != "" {
		expanded, err := ExpandTilde(override)
		if err != nil {
			return "", "", err
		}
		return filepath.Dir(expanded), expanded, nil
	}

	if envPath := os.Getenv("VMCLI_CONFIG"); envPath != "" {
		expanded, err := ExpandTilde(envPath)
		if err != nil {
			return "", "", err
		}
		return filepath.Dir(expanded), expanded, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", "", fmt.Errorf("cannot determine home directory: %w", err)
	}

	dir = filepath.Join(home, DefaultConfigDir)
	filePath = filepath.Join(dir, DefaultConfigFile)
	return dir, filePath, nil
}

// Load reads the config file. A missing file yields an empty Config; VMCLI_*
// environment overrides are applied either way.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(cfg)
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// Save writes cfg to path as indented JSON.
func Save(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return WriteFileLocked(path, append(data, '\n'))
}

// WriteFileLocked replaces path with data while holding an exclusive flock on
// path.lock. The directory is created 0700, the file written 0600 through a
// temp file and rename so readers never see a partial file.
func WriteFileLocked(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, DirPermissions); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	lockPath := path + ".lock"
	lockFile, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, FilePermissions)
	if err != nil {
		return fmt.Errorf("creating lock file: %w", err)
	}
	defer func() {
		syscall.Flock(int(lockFile.Fd()), syscall.LOCK_UN)
		lockFile.Close()
		os.Remove(lockPath)
	}()
	if err := syscall.Flock(int(lockFile.Fd()), syscall.LOCK_EX); err != nil {
		return fmt.Errorf("acquiring lock: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	cleanup := func(err error) error {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}

	if err := tmp.Chmod(FilePermissions); err != nil {
		return cleanup(fmt.Errorf("setting file permissions: %w", err))
	}
	if _, err := tmp.Write(data); err != nil {
		return cleanup(fmt.Errorf("writing temp file: %w", err))
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming %s: %w", filepath.Base(path), err)
	}
	return nil
}

// EnsureDir creates the config directory if it does not exist.
func EnsureDir(override string) (string, error) {
	dir, _, err := Paths(override)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, DirPermissions); err != nil {
		return "", fmt.Errorf("creating config directory: %w", err)
	}
	return dir, nil
}

// ExpandTilde replaces a leading "~" in a path with the user's home directory.
func ExpandTilde(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, path[1:]), nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("VMCLI_CLIENT_ID"); v != "" {
		cfg.ClientID = v
	}
	if v := os.Getenv("VMCLI_CLIENT_SECRET"); v != "" {
		cfg.ClientSecret = v
	}
	if v := os.Getenv("VMCLI_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
}
