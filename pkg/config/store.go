package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/tr181-tools/tr181-go/pkg/faults"
	"github.com/tr181-tools/tr181-go/pkg/hook"
)

// AppDirName is the store directory under the user configuration root.
const AppDirName = "tr181-audit"

const (
	fileExt = ".yaml"
	altExt  = ".yml"
)

// DefaultDir returns the default store directory for this user.
func DefaultDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", faults.Configuration("cannot resolve the user configuration directory", err)
	}
	return filepath.Join(base, AppDirName), nil
}

// Store manages named device configurations in a single directory.
type Store struct {
	mu  sync.Mutex
	dir string
}

// NewStore creates a store over the given directory. The directory is
// created on the first Save.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the store directory.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the file a configuration with the given name is saved to.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, name+fileExt)
}

// Save writes the configuration under its Name, replacing any previous
// version.
func (s *Store) Save(cfg hook.DeviceConfig) error {
	if err := validName(cfg.Name); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Configuration files hold credentials, so no group or world access.
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return faults.Configuration(fmt.Sprintf("cannot create configuration directory %s", s.dir), err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return faults.DataFormat(fmt.Sprintf("cannot encode configuration %q", cfg.Name), err)
	}

	if err := os.WriteFile(s.Path(cfg.Name), data, 0600); err != nil {
		return faults.Configuration(fmt.Sprintf("cannot write configuration %q", cfg.Name), err)
	}
	return nil
}

// Load reads the configuration with the given name. A missing Name field
// in the file defaults to the store name.
func (s *Store) Load(name string) (hook.DeviceConfig, error) {
	if err := validName(name); err != nil {
		return hook.DeviceConfig{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.Path(name))
	if os.IsNotExist(err) {
		data, err = os.ReadFile(filepath.Join(s.dir, name+altExt))
	}
	if os.IsNotExist(err) {
		return hook.DeviceConfig{}, notFound(name, err)
	}
	if err != nil {
		return hook.DeviceConfig{}, faults.Configuration(fmt.Sprintf("cannot read configuration %q", name), err)
	}

	var cfg hook.DeviceConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return hook.DeviceConfig{}, faults.DataFormat(fmt.Sprintf("cannot parse configuration %q", name), err)
	}
	if cfg.Name == "" {
		cfg.Name = name
	}
	return cfg, nil
}

// List returns all stored configurations sorted by name. Files that do
// not parse are skipped so one broken file does not hide the rest.
func (s *Store) List() ([]hook.DeviceConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, faults.Configuration(fmt.Sprintf("cannot read configuration directory %s", s.dir), err)
	}

	var configs []hook.DeviceConfig
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != fileExt && ext != altExt {
			continue
		}

		data, err := os.ReadFile(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			continue
		}
		var cfg hook.DeviceConfig
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			continue
		}
		if cfg.Name == "" {
			cfg.Name = strings.TrimSuffix(entry.Name(), ext)
		}
		configs = append(configs, cfg)
	}

	sort.Slice(configs, func(i, j int) bool { return configs[i].Name < configs[j].Name })
	return configs, nil
}

// Delete removes the configuration with the given name.
func (s *Store) Delete(name string) error {
	if err := validName(name); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.Path(name))
	if os.IsNotExist(err) {
		err = os.Remove(filepath.Join(s.dir, name+altExt))
	}
	if os.IsNotExist(err) {
		return notFound(name, err)
	}
	if err != nil {
		return faults.Configuration(fmt.Sprintf("cannot delete configuration %q", name), err)
	}
	return nil
}

// validName rejects names that would escape the store directory.
func validName(name string) error {
	if name == "" {
		return faults.Validation("configuration name is empty", nil)
	}
	if name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return faults.Validation(fmt.Sprintf("configuration name %q must not contain path separators", name), nil)
	}
	return nil
}

func notFound(name string, err error) error {
	return faults.Configuration(fmt.Sprintf("no device configuration named %q", name), err).
		WithSuggestions(
			"run \"tr181-audit list-configs\" to see the stored names",
			"create it with \"tr181-audit create-config\"",
		)
}
