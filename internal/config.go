package internal

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/roomify/roomify_server/internal/project"
	"github.com/roomify/roomify_server/internal/storage"
	"github.com/roomify/roomify_server/internal/upload"
	"github.com/roomify/roomify_server/internal/user"
	"github.com/roomify/roomify_server/internal/websocket"
	"github.com/spf13/viper"
)

const envPrefix = "ROOMIFY"

type Config struct {
	Server   ServerConfig     `mapstructure:"server"`
	Log      LogConfig        `mapstructure:"log"`
	Database DatabaseConfig   `mapstructure:"database"`
	Users    user.Config      `mapstructure:"users"`
	Storage  storage.Config   `mapstructure:"storage"`
	Projects project.Config   `mapstructure:"projects"`
	Sessions websocket.Config `mapstructure:"sessions"`
}

type ServerConfig struct {
	Addr               string        `mapstructure:"addr"`
	AllowedOrigins     []string      `mapstructure:"allowed_origins"`
	MaxRequestBodySize int           `mapstructure:"max_request_body_size"`
	ShutdownTimeout    time.Duration `mapstructure:"shutdown_timeout"`
}

// LoadConfig reads path, or files/config.yaml when path is empty, on top of
// the defaults. ROOMIFY_* environment variables override both, e.g.
// ROOMIFY_USERS_SECRET for users.secret.
func LoadConfig(path string) (*Config, error) {
	return loadConfig(viper.GetViper(), path)
}

func loadConfig(v *viper.Viper, path string) (*Config, error) {
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("files")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := config.Sessions.Upload.Validate(); err != nil {
		return nil, fmt.Errorf("invalid sessions.upload: %w", err)
	}
	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.allowed_origins", []string{})
	v.SetDefault("server.max_request_body_size", 64*1024*1024)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("database.url", "")
	v.SetDefault("database.max_open_conns", 10)

	v.SetDefault("users.secret", "")
	v.SetDefault("users.issuer", "")
	v.SetDefault("users.jwt_expiration_hours", 24)

	v.SetDefault("storage.type", string(storage.TypeLocal))
	v.SetDefault("storage.local_path", "./files/storage")
	v.SetDefault("storage.s3_endpoint", "")
	v.SetDefault("storage.s3_bucket", "")
	v.SetDefault("storage.s3_access_key", "")
	v.SetDefault("storage.s3_secret_key", "")
	v.SetDefault("storage.s3_region", "")
	v.SetDefault("storage.s3_use_ssl", true)

	v.SetDefault("projects.external_url", "http://localhost:8080")
	v.SetDefault("projects.thumbnail_size", project.DefaultThumbnailSize)
	v.SetDefault("projects.max_source_bytes", project.DefaultMaxSourceBytes)

	v.SetDefault("sessions.upload.tick_period", upload.DefaultTickPeriod)
	v.SetDefault("sessions.upload.tick_step", upload.DefaultTickStep)
	v.SetDefault("sessions.upload.completion_delay", upload.DefaultCompletionDelay)
	v.SetDefault("sessions.max_file_bytes", websocket.DefaultMaxFileBytes)
}
