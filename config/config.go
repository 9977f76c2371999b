package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/creasty/defaults"
	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

var validate = validator.New()

// DefaultOptions reads from $CONFIG_PATH (default "config") with FRESSON_ env overrides.
func DefaultOptions() Options {
	basePath := os.Getenv("CONFIG_PATH")
	if basePath == "" {
		basePath = "config"
	}

	return Options{
		BasePath:  basePath,
		FileName:  "config",
		FileType:  "yaml",
		EnvPrefix: "FRESSON",
	}
}

// DevOptions is DefaultOptions with file watching enabled.
func DevOptions() Options {
	opts := DefaultOptions()
	opts.WatchAble = true
	return opts
}

// New loads all configuration layers for opts.
func New(opts Options) (*Config, error) {
	instance, files, err := load(opts)
	if err != nil {
		return nil, err
	}

	return &Config{
		instance: instance,
		opts:     opts,
		files:    files,
	}, nil
}

// Files returns the configuration files that were merged, lowest priority first.
func (c *Config) Files() []string {
	return c.files
}

// Bind unmarshals the configuration into instance. With WatchAble set the
// target is re-bound on every file change.
func (c *Config) Bind(instance any) error {
	if c == nil || c.instance == nil {
		return fmt.Errorf("config instance is nil")
	}
	if instance == nil {
		return fmt.Errorf("target instance is nil")
	}

	c.watchMutex.Lock()
	defer c.watchMutex.Unlock()

	if err := c.instance.Unmarshal(instance); err != nil {
		return fmt.Errorf("failed to unmarshal config (path: %s, file: %s.%s): %w",
			c.opts.BasePath, c.opts.FileName, c.opts.FileType, err)
	}

	if c.opts.WatchAble && len(c.files) > 0 {
		c.watchOnce.Do(func() {
			watcher := c.instance
			watcher.OnConfigChange(func(e fsnotify.Event) {
				// Reload every layer, not only the watched file.
				fresh, files, err := load(c.opts)
				if err != nil {
					return
				}

				c.watchMutex.Lock()
				defer c.watchMutex.Unlock()
				if err := fresh.Unmarshal(instance); err != nil {
					return
				}
				c.instance = fresh
				c.files = files
				if c.opts.OnChange != nil {
					c.opts.OnChange(e)
				}
			})
			watcher.WatchConfig()
		})
	}

	return nil
}

// BindWithDefaults applies `default` tags, binds, then validates `validate`
// tags and any Validator implementation.
func (c *Config) BindWithDefaults(instance any) error {
	if err := defaults.Set(instance); err != nil {
		return fmt.Errorf("failed to set defaults: %w", err)
	}
	if err := c.Bind(instance); err != nil {
		return err
	}
	if err := validate.Struct(instance); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	if v, ok := instance.(Validator); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("config validation failed: %w", err)
		}
	}
	return nil
}

// Get returns a raw value.
func (c *Config) Get(key string) any {
	c.watchMutex.RLock()
	defer c.watchMutex.RUnlock()

	return c.instance.Get(key)
}

// Set overrides a value for the lifetime of the process.
func (c *Config) Set(key string, value any) {
	c.watchMutex.Lock()
	defer c.watchMutex.Unlock()

	c.instance.Set(key, value)
}

// load merges every existing layer into one viper instance. The last file
// found (the most specific one) is also set as the watched config file.
func load(opts Options) (*viper.Viper, []string, error) {
	files := filePaths(opts, CurrentMode())
	if len(files) == 0 && opts.Required {
		return nil, nil, fmt.Errorf("no configuration files found in path: %s", opts.BasePath)
	}

	v := viper.New()
	v.SetConfigType(opts.FileType)

	for _, path := range files {
		layer := viper.New()
		layer.SetConfigFile(path)
		if err := layer.ReadInConfig(); err != nil {
			return nil, nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
		if err := v.MergeConfigMap(layer.AllSettings()); err != nil {
			return nil, nil, fmt.Errorf("error merging config file %s: %w", path, err)
		}
	}
	if len(files) > 0 {
		v.SetConfigFile(files[len(files)-1])
	}

	replacer := strings.NewReplacer(".", "_", "-", "_")
	v.SetEnvKeyReplacer(replacer)
	if opts.EnvPrefix != "" {
		v.SetEnvPrefix(opts.EnvPrefix)
	}
	v.AutomaticEnv()
	applyEnvOverrides(v, opts.EnvPrefix, replacer)

	return v, files, nil
}

// applyEnvOverrides lets environment variables win over file values even for
// keys viper only learned about from a file. server.addr -> FRESSON_SERVER_ADDR.
func applyEnvOverrides(v *viper.Viper, envPrefix string, replacer *strings.Replacer) {
	for _, key := range v.AllKeys() {
		envKey := strings.ToUpper(replacer.Replace(key))
		if envPrefix != "" {
			envKey = envPrefix + "_" + envKey
		}
		if envValue, ok := os.LookupEnv(envKey); ok && envValue != "" {
			v.Set(key, envValue)
		}
	}
}

// filePaths lists the existing layers for mode, lowest priority first:
// config, config.local, config.<mode>, config.<mode>.local.
func filePaths(opts Options, mode Mode) []string {
	names := []string{opts.FileName, opts.FileName + ".local"}
	for _, suffix := range mode.suffixes() {
		names = append(names, opts.FileName+"."+suffix, opts.FileName+"."+suffix+".local")
	}

	var files []string
	for _, name := range names {
		path := filepath.Join(opts.BasePath, name+"."+opts.FileType)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			files = append(files, path)
		}
	}
	return files
}
