package config

import (
	"github.com/garyjia/approval-center/internal/container"
)

// ToContainerConfig converts the application Config to a container.Config.
// This provides a bridge between the file-based config loaded by viper
// and the container's configuration structure.
func (c *Config) ToContainerConfig() *container.Config {
	return &container.Config{
		Database: container.DatabaseConfig{
			Path:            c.Database.Path,
			MaxOpenConns:    c.Database.MaxOpenConns,
			MaxIdleConns:    c.Database.MaxIdleConns,
			ConnMaxLifetime: c.Database.ConnMaxLifetime,
		},
		Lark: container.LarkConfig{
			Enabled:   c.Lark.Enabled,
			AppID:     c.Lark.AppID,
			AppSecret: c.Lark.AppSecret,
		},
		Storage: container.StorageConfig{
			AttachmentDir:     c.Storage.AttachmentDir,
			MaxUploadSize:     c.Storage.MaxUploadSize,
			AllowedExtensions: c.Storage.AllowedExtensions,
		},
	}
}
