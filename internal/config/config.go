package config

import (
	"net"
	"strconv"
	"time"
)

// Config is the root application configuration.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	DataDir       string              `yaml:"data_dir" env:"NOTEFLOW_DATA_DIR" env-default:"data"`
	Store         StoreConfig         `yaml:"store"`
	Session       SessionConfig       `yaml:"session"`
	Auth          AuthConfig          `yaml:"auth"`
	Log           LogConfig           `yaml:"log"`
	Media         MediaConfig         `yaml:"media"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	AI            AIConfig            `yaml:"ai"`
	Backup        BackupConfig        `yaml:"backup"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `yaml:"host"             env:"SERVER_HOST"             env-default:"0.0.0.0"`
	Port            int           `yaml:"port"             env:"PORT"                    env-default:"8080"`
	BodyLimit       string        `yaml:"body_limit"       env:"SERVER_BODY_LIMIT"       env-default:"32M"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"10s"`
}

// StoreConfig selects the document store.
type StoreConfig struct {
	Driver string `yaml:"driver" env:"STORE_DRIVER" env-default:"sqlite"`
	// File is the SQLite database file inside the data directory.
	File string `yaml:"file" env:"STORE_FILE" env-default:"noteflow.db"`
}

// SessionConfig controls how long a user's live session outlives its last
// request.
type SessionConfig struct {
	IdleTimeout time.Duration `yaml:"idle_timeout" env:"SESSION_IDLE_TIMEOUT" env-default:"30m"`
}

// AuthConfig holds bearer token verification settings. Tokens are issued by
// the external identity provider.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret" env:"AUTH_JWT_SECRET"`
	JWTIssuer string `yaml:"jwt_issuer" env:"AUTH_JWT_ISSUER"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level      string `yaml:"level"       env:"LOG_LEVEL"       env-default:"info"`
	Debug      bool   `yaml:"debug"       env:"DEBUG"`
	File       string `yaml:"file"        env:"LOG_FILE"        env-default:"noteflow.log"`
	MaxSizeMB  int    `yaml:"max_size_mb" env:"LOG_MAX_SIZE_MB" env-default:"5"`
	MaxBackups int    `yaml:"max_backups" env:"LOG_MAX_BACKUPS" env-default:"7"`
	MaxAgeDays int    `yaml:"max_age_days" env:"LOG_MAX_AGE_DAYS" env-default:"30"`
	Compress   bool   `yaml:"compress"    env:"LOG_COMPRESS"    env-default:"true"`
}

// MediaConfig selects where note attachments are stored.
type MediaConfig struct {
	Backend   string   `yaml:"backend"    env:"MEDIA_BACKEND"    env-default:"local"`
	URLPrefix string   `yaml:"url_prefix" env:"MEDIA_URL_PREFIX" env-default:"/uploads"`
	S3        S3Config `yaml:"s3"         env-prefix:"MEDIA_"`
}

// S3Config is shared by the media and backup S3 targets.
type S3Config struct {
	Endpoint  string `yaml:"endpoint"   env:"S3_ENDPOINT"`
	Region    string `yaml:"region"     env:"S3_REGION" env-default:"us-east-1"`
	Bucket    string `yaml:"bucket"     env:"S3_BUCKET"`
	AccessKey string `yaml:"access_key" env:"S3_ACCESS_KEY"`
	SecretKey string `yaml:"secret_key" env:"S3_SECRET_KEY"`
	PublicURL string `yaml:"public_url" env:"S3_PUBLIC_URL"`
	Prefix    string `yaml:"prefix"     env:"S3_PREFIX"`
}

// TranscriptionConfig points at the speech-to-text service.
type TranscriptionConfig struct {
	URL     string        `yaml:"url"     env:"TRANSCRIBE_URL"`
	Timeout time.Duration `yaml:"timeout" env:"TRANSCRIBE_TIMEOUT" env-default:"30s"`
}

// AIConfig holds the chat backends, one per prompt delimiter.
type AIConfig struct {
	OpenAIURL     string        `yaml:"openai_url"     env:"AI_OPENAI_URL"`
	AnthropicURL  string        `yaml:"anthropic_url"  env:"AI_ANTHROPIC_URL"`
	PerplexityURL string        `yaml:"perplexity_url" env:"AI_PERPLEXITY_URL"`
	Timeout       time.Duration `yaml:"timeout"        env:"AI_TIMEOUT" env-default:"30s"`
}

// BackupConfig holds scheduled backup settings. An empty Schedule disables
// the scheduler.
type BackupConfig struct {
	Schedule string       `yaml:"schedule" env:"BACKUP_SCHEDULE"`
	Keep     int          `yaml:"keep"     env:"BACKUP_KEEP" env-default:"7"`
	WebDAV   WebDAVConfig `yaml:"webdav"`
	S3       S3Config     `yaml:"s3"       env-prefix:"BACKUP_"`
}

type WebDAVConfig struct {
	URL      string `yaml:"url"      env:"BACKUP_WEBDAV_URL"`
	User     string `yaml:"user"     env:"BACKUP_WEBDAV_USER"`
	Password string `yaml:"password" env:"BACKUP_WEBDAV_PASSWORD"`
	Path     string `yaml:"path"     env:"BACKUP_WEBDAV_PATH" env-default:"/noteflow"`
}

// Address returns host:port for the HTTP listener.
func (s ServerConfig) Address() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// Enabled reports whether the S3 target has enough settings to be used.
func (s S3Config) Enabled() bool {
	return s.Bucket != "" && s.AccessKey != "" && s.SecretKey != ""
}

// Enabled reports whether a WebDAV target is configured.
func (w WebDAVConfig) Enabled() bool { return w.URL != "" }
