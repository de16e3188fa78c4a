package config

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// EnsureUserConfig returns dataDir/config.yml, creating it on first start
// from defaultPath, or from Default() when defaultPath does not exist either.
// A default file that does not parse is rejected instead of copied.
func EnsureUserConfig(dataDir, defaultPath string) (string, error) {
	userPath := filepath.Join(dataDir, "config.yml")
	switch _, err := os.Stat(userPath); {
	case err == nil:
		return userPath, nil
	case !errors.Is(err, os.ErrNotExist):
		return "", eris.Wrapf(err, "stat %s", userPath)
	}

	b, err := os.ReadFile(defaultPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return userPath, SaveAtomic(userPath, Default())
	case err != nil:
		return "", eris.Wrapf(err, "read %s", defaultPath)
	}
	var probe Config
	if err := yaml.Unmarshal(b, &probe); err != nil {
		return "", eris.Wrapf(err, "parse %s", defaultPath)
	}
	return userPath, writeAtomic(userPath, b)
}

// SaveAtomic marshals cfg and swaps it into place at path.
func SaveAtomic(path string, cfg Config) error {
	b, err := yaml.Marshal(&cfg)
	if err != nil {
		return eris.Wrap(err, "marshal config")
	}
	return writeAtomic(path, b)
}

// writeAtomic renames a synced temp file over path. A previous file survives
// as path.bak.
func writeAtomic(path string, b []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "mkdir %s", dir)
	}

	f, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return eris.Wrap(err, "create temp config")
	}
	tmp := f.Name()
	_, err = f.Write(b)
	if err == nil {
		err = f.Sync()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp)
		return eris.Wrapf(err, "write %s", tmp)
	}

	if _, err := os.Stat(path); err == nil {
		_ = os.Remove(path + ".bak")
		_ = os.Rename(path, path+".bak")
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return eris.Wrapf(err, "rename into %s", path)
	}
	return nil
}
