package manager

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/hoppxi/adjust-brightness/config"
	"github.com/hoppxi/adjust-brightness/pkg/displayinfo"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

type DisplayLevel struct {
	Name  string `mapstructure:"name" yaml:"name"`
	Level int    `mapstructure:"level" yaml:"level"`
}

type Settings struct {
	Tool     string         `mapstructure:"tool" yaml:"tool"`
	Timeout  int            `mapstructure:"timeout" yaml:"timeout"`
	MinLevel int            `mapstructure:"min_level" yaml:"min_level"`
	Notify   bool           `mapstructure:"notify" yaml:"notify"`
	Verbose  bool           `mapstructure:"verbose" yaml:"verbose"`
	Displays []DisplayLevel `mapstructure:"displays" yaml:"displays"`
}

func (s Settings) TimeoutDuration() time.Duration {
	return time.Duration(s.Timeout) * time.Second
}

func (s Settings) Validate() error {
	if s.Tool == "" {
		return errors.New("tool must not be empty")
	}
	if s.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %d", s.Timeout)
	}
	if s.MinLevel < 0 || s.MinLevel > displayinfo.Steps {
		return fmt.Errorf("min_level must be within [0, %d], got %d", displayinfo.Steps, s.MinLevel)
	}
	for _, d := range s.Displays {
		if d.Name == "" {
			return errors.New("displays: entry without a name")
		}
		if d.Level < 0 || d.Level > displayinfo.Steps {
			return fmt.Errorf("displays: %s: level must be within [0, %d], got %d", d.Name, displayinfo.Steps, d.Level)
		}
	}
	return nil
}

// DefaultSettings decodes the embedded default configuration.
func DefaultSettings() Settings {
	var s Settings
	if err := yaml.Unmarshal(config.DefaultConfig(), &s); err != nil {
		panic(fmt.Errorf("embedded default config is invalid: %w", err))
	}
	return s
}

// DefaultPath is $XDG_CONFIG_HOME/adjust-brightness/config.yaml.
func DefaultPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(configDir, "adjust-brightness", "config.yaml")
}

// ConfigManager owns the viper instance for one config file. mu guards every
// use of v after Load.
type ConfigManager struct {
	once sync.Once
	path string
	v    *viper.Viper
	err  error

	mu        sync.Mutex
	reloadErr error
}

func NewConfigManager(path string) *ConfigManager {
	if path == "" {
		path = DefaultPath()
	}
	return &ConfigManager{path: path}
}

func (c *ConfigManager) Path() string {
	return c.path
}

// Load reads the config file over the embedded defaults. A missing file is
// not an error.
func (c *ConfigManager) Load() (*viper.Viper, error) {
	c.once.Do(func() {
		v := viper.New()

		var defaults map[string]any
		if err := yaml.Unmarshal(config.DefaultConfig(), &defaults); err != nil {
			c.err = fmt.Errorf("failed to decode default config: %w", err)
			return
		}
		for key, value := range defaults {
			v.SetDefault(key, value)
		}

		v.SetConfigFile(c.path)
		v.SetConfigType("yaml")

		if _, err := os.Stat(c.path); err == nil {
			if err := v.ReadInConfig(); err != nil {
				c.err = fmt.Errorf("failed to read config: %w", err)
				return
			}
		} else if os.IsNotExist(err) {
			log.Printf("No config at %s, using defaults", c.path)
		} else {
			c.err = fmt.Errorf("failed to stat config: %w", err)
			return
		}

		c.v = v
	})

	return c.v, c.err
}

func (c *ConfigManager) Settings() (Settings, error) {
	v, err := c.Load()
	if err != nil {
		return Settings{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.reloadErr != nil {
		return Settings{}, c.reloadErr
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, fmt.Errorf("invalid config %s: %w", c.path, err)
	}
	return s, nil
}

// Watch calls onChange after every write to the config file, once the new
// contents have been read. A separate viper instance receives the fsnotify
// events so the shared one is only touched under mu.
func (c *ConfigManager) Watch(onChange func()) error {
	v, err := c.Load()
	if err != nil {
		return err
	}

	w := viper.New()
	w.SetConfigFile(c.path)
	w.SetConfigType("yaml")
	w.OnConfigChange(func(e fsnotify.Event) {
		log.Printf("Config changed: %s (%s)", e.Name, e.Op)

		c.mu.Lock()
		c.reloadErr = nil
		if err := v.ReadInConfig(); err != nil {
			c.reloadErr = fmt.Errorf("failed to read config: %w", err)
		}
		c.mu.Unlock()

		onChange()
	})
	w.WatchConfig()
	return nil
}

// Write stores s at the manager's path, creating parent directories.
func (c *ConfigManager) Write(s Settings) error {
	data, err := yaml.Marshal(&s)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return os.WriteFile(c.path, data, 0644)
}
