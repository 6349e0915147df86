package db

import (
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	_ "github.com/go-sql-driver/mysql"
	"gopkg.in/yaml.v3"
)

const (
	driverName     = "mysql"
	configFilePath = "config/config.yaml"
)

type DatabaseConfig struct {
	Host     string `yaml:"host" env:"DB_HOST"`
	Port     int    `yaml:"port" env:"DB_PORT"`
	Username string `yaml:"user" env:"DB_USER"`
	Password string `yaml:"password" env:"DB_PASSWORD"`
	DBName   string `yaml:"dbname" env:"DB_NAME"`
}

type ServerConfig struct {
	Addr        string   `yaml:"addr" env:"SERVER_ADDR"`
	TLS         bool     `yaml:"tls" env:"SERVER_TLS"`
	CORSOrigins []string `yaml:"cors_origins" env:"CORS_ORIGINS"`
}

// 出欠表のバックエンド（mysql / memory）
type SheetConfig struct {
	Driver   string `yaml:"driver" env:"SHEET_DRIVER"`
	Name     string `yaml:"name" env:"SHEET_NAME"`
	SeedFile string `yaml:"seed_file" env:"SHEET_SEED_FILE"`
}

type AuthConfig struct {
	JWTSecret       string        `yaml:"jwt_secret" env:"JWT_SECRET"`
	TokenTTL        time.Duration `yaml:"token_ttl" env:"TOKEN_TTL"`
	WhitelistTTL    time.Duration `yaml:"whitelist_ttl" env:"WHITELIST_TTL"`
	WhitelistDriver string        `yaml:"whitelist_driver" env:"WHITELIST_DRIVER"`
	BootstrapEmails []string      `yaml:"bootstrap_emails" env:"BOOTSTRAP_EMAILS"`
}

type Certs struct {
	Cert string `yaml:"cert"`
	Key  string `yaml:"key"`
}

type Config struct {
	Version     string         `yaml:"version"`
	Mode        string         `yaml:"mode" env:"MODE"`
	Server      ServerConfig   `yaml:"server"`
	DB          DatabaseConfig `yaml:"database"`
	Sheet       SheetConfig    `yaml:"sheet"`
	Auth        AuthConfig     `yaml:"auth"`
	Certificate Certs          `yaml:"certificate"`
}

// 未指定項目の既定値
func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8443"
	}
	if c.Sheet.Driver == "" {
		c.Sheet.Driver = "mysql"
	}
	if c.Sheet.Name == "" {
		c.Sheet.Name = "Attendance"
	}
	if c.Auth.TokenTTL <= 0 {
		c.Auth.TokenTTL = 24 * time.Hour
	}
	if c.Auth.WhitelistTTL <= 0 {
		c.Auth.WhitelistTTL = 10 * time.Minute
	}
	if c.Auth.WhitelistDriver == "" {
		c.Auth.WhitelistDriver = "mysql"
	}
}

func (c *Config) Validate() error {
	if c.Mode != "dev" && c.Mode != "release" {
		return fmt.Errorf("mode must be dev or release, got %q", c.Mode)
	}
	if c.Sheet.Driver != "mysql" && c.Sheet.Driver != "memory" {
		return fmt.Errorf("sheet.driver must be mysql or memory, got %q", c.Sheet.Driver)
	}
	if c.Auth.WhitelistDriver != "mysql" && c.Auth.WhitelistDriver != "memory" {
		return fmt.Errorf("auth.whitelist_driver must be mysql or memory, got %q", c.Auth.WhitelistDriver)
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	return nil
}

// NeedsMySQL: どちらかのストアが mysql なら接続が必要
func (c *Config) NeedsMySQL() bool {
	return c.Sheet.Driver == "mysql" || c.Auth.WhitelistDriver == "mysql"
}

// LoadConfig: YAML を読み込み、ROLLCALL_* 環境変数で上書きする
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = configFilePath
	}
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("設定ファイルの読み込み失敗: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return nil, fmt.Errorf("設定ファイルのパース失敗: %w", err)
	}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "ROLLCALL_"}); err != nil {
		return nil, fmt.Errorf("環境変数のパース失敗: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func Connect(c DatabaseConfig) (*sql.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&tls=false&timeout=3s&readTimeout=5s&writeTimeout=5s&loc=UTC",
		c.Username, c.Password, c.Host, c.Port, c.DBName)

	return Open(dsn)
}

func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("接続準備に失敗: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("DB接続に失敗: %w", err)
	}

	// 接続プール（出欠表は小規模なので控えめ）
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return db, nil
}
