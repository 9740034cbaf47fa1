package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth"     validate:"required"`
	LLM      LLMConfig      `mapstructure:"llm"      validate:"required"`
	Task     TaskConfig     `mapstructure:"task"     validate:"required"`
	Storage  StorageConfig  `mapstructure:"storage"  validate:"required"`
	Mail     MailConfig     `mapstructure:"mail"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret            string `mapstructure:"jwt_secret"             validate:"required,min=32"`
	TokenLifetimeMinutes int    `mapstructure:"token_lifetime_minutes" validate:"required,gt=0"`
	BcryptCost           int    `mapstructure:"bcrypt_cost"            validate:"required,gte=4,lte=31"`
}

// LLMConfig contains all model integration related settings. The Gemini
// API key is required for every backend because image model discovery
// always goes through the Gemini API.
type LLMConfig struct {
	Backend           string        `mapstructure:"backend"             validate:"required,oneof=gemini vertex"`
	GeminiAPIKey      string        `mapstructure:"gemini_api_key"      validate:"required"`
	VertexEndpoint    string        `mapstructure:"vertex_endpoint"`
	VertexProjectID   string        `mapstructure:"vertex_project_id"   validate:"required_if=Backend vertex"`
	VertexLocation    string        `mapstructure:"vertex_location"     validate:"required_if=Backend vertex"`
	VertexAccessToken string        `mapstructure:"vertex_access_token"`
	MaxOutputTokens   int32         `mapstructure:"max_output_tokens"   validate:"required,gt=0"`
	CallPoolSize      int           `mapstructure:"call_pool_size"      validate:"required,gt=0"`
	DiscoveryTTL      time.Duration `mapstructure:"discovery_ttl"       validate:"required,gt=0"`
}

// TaskConfig contains the worker pool and task lifecycle settings.
type TaskConfig struct {
	WorkerCount        int           `mapstructure:"worker_count"         validate:"required,gt=0"`
	QueueSize          int           `mapstructure:"queue_size"           validate:"required,gt=0"`
	SoftTimeLimit      time.Duration `mapstructure:"soft_time_limit"      validate:"required,gt=0"`
	HardTimeLimit      time.Duration `mapstructure:"hard_time_limit"      validate:"required,gt=0,gtefield=SoftTimeLimit"`
	MaxTasksPerWorker  int           `mapstructure:"max_tasks_per_worker" validate:"required,gt=0"`
	StuckAge           time.Duration `mapstructure:"stuck_age"            validate:"required,gt=0"`
	StuckCheckInterval time.Duration `mapstructure:"stuck_check_interval" validate:"required,gt=0"`
}

// StorageConfig contains the object storage settings for document bytes.
// Endpoint is only set for S3-compatible services like MinIO; empty means
// the standard AWS endpoint for the region.
type StorageConfig struct {
	Bucket          string `mapstructure:"bucket" validate:"required"`
	Region          string `mapstructure:"region" validate:"required"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UsePathStyle    bool   `mapstructure:"use_path_style"`
}

// MailConfig contains the SMTP settings for task outcome notifications.
// When Enabled is false the rest of the group is ignored and no mail is
// ever sent.
type MailConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Host        string `mapstructure:"host"         validate:"required_if=Enabled true"`
	Port        int    `mapstructure:"port"         validate:"required_if=Enabled true"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	FromAddress string `mapstructure:"from_address" validate:"required_if=Enabled true,omitempty,email"`
}
