package config

import (
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Validator is implemented by configuration structs that check themselves after binding.
type Validator interface {
	Validate() error
}

// Config is a layered viper configuration bound to one set of options.
type Config struct {
	instance   *viper.Viper
	opts       Options
	files      []string
	watchOnce  sync.Once
	watchMutex sync.RWMutex
}

// Options controls where configuration files are looked up and how they are merged.
type Options struct {
	// BasePath is the directory holding the configuration files.
	BasePath string
	// FileName is the base name without extension ("config").
	FileName string
	// FileType is the viper format and file extension ("yaml").
	FileType string
	// EnvPrefix scopes environment overrides, e.g. FRESSON_SERVER_ADDR.
	EnvPrefix string
	// Required fails loading when no file exists.
	Required bool
	// WatchAble re-binds targets whenever a file changes.
	WatchAble bool
	OnChange  func(e fsnotify.Event)
}
