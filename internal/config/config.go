// Package config loads and validates service configuration.
package config

// Config holds all application configuration, shared by the four
// service binaries. Each binary reads the sections it needs.
type Config struct {
	Server     ServerConfig     `mapstructure:"server" validate:"required"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	Gateway    GatewayConfig    `mapstructure:"gateway"`
	UserDir    UserDirConfig    `mapstructure:"userdir"`
	Statistics StatisticsConfig `mapstructure:"statistics"`
}

// ServerConfig contains the HTTP listener settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains the record-store connection settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"omitempty,url"`
}

// AuthConfig contains token signing settings for the token service.
type AuthConfig struct {
	JWTSecret            string `mapstructure:"jwt_secret" validate:"omitempty,min=32"`
	TokenLifetimeMinutes int    `mapstructure:"token_lifetime_minutes" validate:"omitempty,gt=0"`
}

// KafkaConfig contains the event bus connection settings.
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	GroupID string   `mapstructure:"group_id"`
}

// GatewayConfig contains the authorization gateway settings: the backend
// each path prefix forwards to and the explicit open-route allow-list.
type GatewayConfig struct {
	AuthServiceURL string   `mapstructure:"auth_service_url" validate:"omitempty,url"`
	TaskServiceURL string   `mapstructure:"task_service_url" validate:"omitempty,url"`
	StatServiceURL string   `mapstructure:"stat_service_url" validate:"omitempty,url"`
	OpenRoutes     []string `mapstructure:"open_routes"`
}

// UserDirConfig points the task authority at the identity directory.
type UserDirConfig struct {
	BaseURL string `mapstructure:"base_url" validate:"omitempty,url"`
}

// StatisticsConfig contains consumer-side settings of the statistics
// replica.
type StatisticsConfig struct {
	GroupID string `mapstructure:"group_id"`
}
