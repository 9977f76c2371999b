package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
)

// Provider stores and serves texture assets by name.
type Provider interface {
	// Open returns the asset content. Missing assets yield ErrNotExist.
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	// Upload stores content under name and returns its public URL.
	Upload(ctx context.Context, file io.Reader, name string) (string, error)
	// Exists reports whether name is stored.
	Exists(ctx context.Context, name string) (bool, error)
	// List returns assets whose names start with prefix.
	List(ctx context.Context, prefix string) ([]FileInfo, error)
	// Delete removes an asset; deleting a missing asset is not an error.
	Delete(ctx context.Context, name string) error
	Name() string
}

// FileInfo describes one stored asset.
type FileInfo struct {
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ErrNotExist is returned by Open for unknown names.
var ErrNotExist = fmt.Errorf("storage: asset does not exist")

// Config selects and configures a provider.
type Config struct {
	Type  string      `mapstructure:"type" yaml:"type" default:"local" validate:"oneof=local oss"`
	Local LocalConfig `mapstructure:"local" yaml:"local"`
	OSS   OSSConfig   `mapstructure:"oss" yaml:"oss"`
}

// LocalConfig configures the filesystem provider.
type LocalConfig struct {
	BasePath string `mapstructure:"base-path" yaml:"base-path" default:"textures"`
	BaseURL  string `mapstructure:"base-url" yaml:"base-url" default:"/textures"`
}

// OSSConfig configures the Aliyun OSS provider.
type OSSConfig struct {
	Endpoint        string `mapstructure:"endpoint" yaml:"endpoint"`
	AccessKeyID     string `mapstructure:"access-key-id" yaml:"access-key-id"`
	AccessKeySecret string `mapstructure:"access-key-secret" yaml:"access-key-secret"`
	Bucket          string `mapstructure:"bucket" yaml:"bucket"`
	Domain          string `mapstructure:"domain" yaml:"domain"`
	Prefix          string `mapstructure:"prefix" yaml:"prefix" default:"textures"`
}

// New creates the provider selected by config.Type.
func New(config Config) (Provider, error) {
	switch config.Type {
	case "", "local":
		return NewLocalProvider(config.Local.BasePath, config.Local.BaseURL)
	case "oss":
		o := config.OSS
		return NewOSSProvider(o.Endpoint, o.AccessKeyID, o.AccessKeySecret, o.Bucket, o.Domain, o.Prefix)
	default:
		return nil, fmt.Errorf("unsupported provider type: %s", config.Type)
	}
}

// CleanName validates an asset name: a relative slash separated path
// without traversal, e.g. "paper/linen.png".
func CleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("asset name is empty")
	}
	if strings.Contains(name, "\\") {
		return "", fmt.Errorf("asset name %q contains a backslash", name)
	}
	cleaned := path.Clean("/" + name)[1:]
	if cleaned == "" || cleaned != strings.TrimPrefix(name, "/") {
		return "", fmt.Errorf("invalid asset name %q", name)
	}
	return cleaned, nil
}
