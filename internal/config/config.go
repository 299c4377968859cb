package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"readhub/internal/auth"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	OAuth    OAuthConfig    `yaml:"oauth"`
}

type ServerConfig struct {
	Name string `yaml:"name"`
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type AuthConfig struct {
	JWTSecret       string        `yaml:"jwt_secret"`
	AccessTokenTTL  time.Duration `yaml:"access_token_ttl"`
	RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl"`
}

type OAuthConfig struct {
	GoogleClientID string        `yaml:"google_client_id"`
	AppleClientID  string        `yaml:"apple_client_id"`
	KakaoClientID  string        `yaml:"kakao_client_id"`
	VerifyTimeout  time.Duration `yaml:"verify_timeout"`
}

// ClientIDs maps provider names to their configured token audiences.
// Providers without a client id are left unconfigured and rejected at login.
func (o OAuthConfig) ClientIDs() map[string]string {
	return map[string]string{
		auth.ProviderGoogle: o.GoogleClientID,
		auth.ProviderApple:  o.AppleClientID,
		auth.ProviderKakao:  o.KakaoClientID,
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	cfg.setDefaults()

	return &cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("READHUB_JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := os.Getenv("READHUB_DATABASE_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("READHUB_OAUTH_GOOGLE_CLIENT_ID"); v != "" {
		c.OAuth.GoogleClientID = v
	}
	if v := os.Getenv("READHUB_OAUTH_APPLE_CLIENT_ID"); v != "" {
		c.OAuth.AppleClientID = v
	}
	if v := os.Getenv("READHUB_OAUTH_KAKAO_CLIENT_ID"); v != "" {
		c.OAuth.KakaoClientID = v
	}
}

func (c *Config) validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("auth.jwt_secret must be at least 32 characters")
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.Name == "" {
		c.Server.Name = "ReadHub API"
	}
	if c.Database.Path == "" {
		c.Database.Path = "./data/readhub.db"
	}
	if c.Auth.AccessTokenTTL == 0 {
		c.Auth.AccessTokenTTL = 1 * time.Hour
	}
	if c.Auth.RefreshTokenTTL == 0 {
		c.Auth.RefreshTokenTTL = 14 * 24 * time.Hour
	}
	if c.OAuth.VerifyTimeout == 0 {
		c.OAuth.VerifyTimeout = 10 * time.Second
	}
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
