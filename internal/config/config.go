package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server ServerConfig
	Log    LogConfig
	Parser ParserConfig
	Store  StoreConfig
	DB     DBConfig
	Mongo  MongoConfig
	S3     S3Config
	JWT    JWTConfig
	CORS   CORSConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port           string        `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	Environment    string        `mapstructure:"environment"`
	MaxBodyBytes   int64         `mapstructure:"max_body_bytes"`
	MetricsEnabled bool          `mapstructure:"metrics_enabled"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ParserConfig holds settings for the contract extraction provider.
type ParserConfig struct {
	Provider    string `mapstructure:"provider"`
	Endpoint    string `mapstructure:"endpoint"`
	APIKey      string `mapstructure:"api_key"`
	APIVersion  string `mapstructure:"api_version"`
	Model       string `mapstructure:"model"` // deployment name for azure; empty selects the provider default
	MaxRetries  int    `mapstructure:"max_retries"`
	TimeoutSecs int    `mapstructure:"timeout_secs"`
}

// Timeout returns the per-request timeout, defaulting to 120s.
func (p *ParserConfig) Timeout() time.Duration {
	if p.TimeoutSecs <= 0 {
		return 120 * time.Second
	}
	return time.Duration(p.TimeoutSecs) * time.Second
}

// StoreConfig selects where output records are persisted.
type StoreConfig struct {
	Driver string `mapstructure:"driver"`
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxOpen  int    `mapstructure:"max_open"`
	MaxIdle  int    `mapstructure:"max_idle"`
}

// DSN returns the PostgreSQL connection string.
func (d *DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// MongoConfig holds document database settings. Works against MongoDB and
// the Cosmos DB Mongo API.
type MongoConfig struct {
	URI            string        `mapstructure:"uri"`
	Database       string        `mapstructure:"database"`
	Collection     string        `mapstructure:"collection"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

// S3Config holds object storage settings.
type S3Config struct {
	Region        string `mapstructure:"region"`
	Bucket        string `mapstructure:"bucket"`
	Endpoint      string `mapstructure:"endpoint"`
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
	ArchivePrefix string `mapstructure:"archive_prefix"`
}

// Enabled reports whether object storage is configured.
func (s *S3Config) Enabled() bool {
	return s.Bucket != ""
}

// JWTConfig holds bearer token settings. An empty secret disables auth.
type JWTConfig struct {
	Secret      string        `mapstructure:"secret"`
	Issuer      string        `mapstructure:"issuer"`
	TokenExpiry time.Duration `mapstructure:"token_expiry"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Load reads configuration from environment variables with the LOANTERMS_
// prefix. Variables in the given .env files (default ".env") are loaded first
// and never override the process environment.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading env file: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("LOANTERMS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "180s")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.max_body_bytes", 10<<20)
	v.SetDefault("server.metrics_enabled", true)

	// Log defaults
	v.SetDefault("log.level", "debug")
	v.SetDefault("log.format", "console")

	// Parser defaults
	v.SetDefault("parser.provider", "azure")
	v.SetDefault("parser.endpoint", "")
	v.SetDefault("parser.api_key", "")
	v.SetDefault("parser.api_version", "2024-08-01-preview")
	v.SetDefault("parser.model", "")
	v.SetDefault("parser.max_retries", 0)
	v.SetDefault("parser.timeout_secs", 120)

	// Store defaults
	v.SetDefault("store.driver", "none")

	// DB defaults
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "loanterms")
	v.SetDefault("db.password", "loanterms_secret")
	v.SetDefault("db.name", "loanterms_db")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open", 10)
	v.SetDefault("db.max_idle", 5)

	// Mongo defaults
	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "loanterms")
	v.SetDefault("mongo.collection", "termsandconditions")
	v.SetDefault("mongo.connect_timeout", "10s")

	// S3 defaults
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.bucket", "")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.archive_prefix", "")

	// JWT defaults
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.issuer", "loanterms")
	v.SetDefault("jwt.token_expiry", "24h")

	v.SetDefault("cors.allowed_origins", "http://localhost:3000,http://127.0.0.1:3000")

	// Bind environment variables explicitly for nested keys. The parser
	// endpoint and key also accept the Azure OpenAI variable names.
	envBindings := map[string][]string{
		"server.port":            {"LOANTERMS_SERVER_PORT"},
		"server.read_timeout":    {"LOANTERMS_SERVER_READ_TIMEOUT"},
		"server.write_timeout":   {"LOANTERMS_SERVER_WRITE_TIMEOUT"},
		"server.environment":     {"LOANTERMS_SERVER_ENVIRONMENT"},
		"server.max_body_bytes":  {"LOANTERMS_SERVER_MAX_BODY_BYTES"},
		"server.metrics_enabled": {"LOANTERMS_SERVER_METRICS_ENABLED"},
		"log.level":              {"LOANTERMS_LOG_LEVEL"},
		"log.format":             {"LOANTERMS_LOG_FORMAT"},
		"parser.provider":        {"LOANTERMS_PARSER_PROVIDER"},
		"parser.endpoint":        {"LOANTERMS_PARSER_ENDPOINT", "AZURE_OPENAI_ENDPOINT"},
		"parser.api_key":         {"LOANTERMS_PARSER_API_KEY", "AZURE_OPENAI_KEY"},
		"parser.api_version":     {"LOANTERMS_PARSER_API_VERSION"},
		"parser.model":           {"LOANTERMS_PARSER_MODEL"},
		"parser.max_retries":     {"LOANTERMS_PARSER_MAX_RETRIES"},
		"parser.timeout_secs":    {"LOANTERMS_PARSER_TIMEOUT_SECS"},
		"store.driver":           {"LOANTERMS_STORE_DRIVER"},
		"db.host":                {"LOANTERMS_DB_HOST"},
		"db.port":                {"LOANTERMS_DB_PORT"},
		"db.user":                {"LOANTERMS_DB_USER"},
		"db.password":            {"LOANTERMS_DB_PASSWORD"},
		"db.name":                {"LOANTERMS_DB_NAME"},
		"db.sslmode":             {"LOANTERMS_DB_SSLMODE"},
		"db.max_open":            {"LOANTERMS_DB_MAX_OPEN"},
		"db.max_idle":            {"LOANTERMS_DB_MAX_IDLE"},
		"mongo.uri":              {"LOANTERMS_MONGO_URI"},
		"mongo.database":         {"LOANTERMS_MONGO_DATABASE"},
		"mongo.collection":       {"LOANTERMS_MONGO_COLLECTION"},
		"mongo.connect_timeout":  {"LOANTERMS_MONGO_CONNECT_TIMEOUT"},
		"s3.region":              {"LOANTERMS_S3_REGION"},
		"s3.bucket":              {"LOANTERMS_S3_BUCKET"},
		"s3.endpoint":            {"LOANTERMS_S3_ENDPOINT"},
		"s3.access_key":          {"LOANTERMS_S3_ACCESS_KEY"},
		"s3.secret_key":          {"LOANTERMS_S3_SECRET_KEY"},
		"s3.archive_prefix":      {"LOANTERMS_S3_ARCHIVE_PREFIX"},
		"jwt.secret":             {"LOANTERMS_JWT_SECRET"},
		"jwt.issuer":             {"LOANTERMS_JWT_ISSUER"},
		"jwt.token_expiry":       {"LOANTERMS_JWT_TOKEN_EXPIRY"},
		"cors.allowed_origins":   {"LOANTERMS_CORS_ALLOWED_ORIGINS"},
	}
	for key, envs := range envBindings {
		_ = v.BindEnv(append([]string{key}, envs...)...)
	}

	cfg := &Config{}

	// Container platforms set PORT. Use it if LOANTERMS_SERVER_PORT is not explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("LOANTERMS_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:           serverPort,
		ReadTimeout:    v.GetDuration("server.read_timeout"),
		WriteTimeout:   v.GetDuration("server.write_timeout"),
		Environment:    v.GetString("server.environment"),
		MaxBodyBytes:   v.GetInt64("server.max_body_bytes"),
		MetricsEnabled: v.GetBool("server.metrics_enabled"),
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}
	cfg.Parser = ParserConfig{
		Provider:    strings.ToLower(v.GetString("parser.provider")),
		Endpoint:    v.GetString("parser.endpoint"),
		APIKey:      v.GetString("parser.api_key"),
		APIVersion:  v.GetString("parser.api_version"),
		Model:       v.GetString("parser.model"),
		MaxRetries:  v.GetInt("parser.max_retries"),
		TimeoutSecs: v.GetInt("parser.timeout_secs"),
	}
	cfg.Store = StoreConfig{
		Driver: strings.ToLower(v.GetString("store.driver")),
	}
	cfg.DB = DBConfig{
		Host:     v.GetString("db.host"),
		Port:     v.GetInt("db.port"),
		User:     v.GetString("db.user"),
		Password: v.GetString("db.password"),
		Name:     v.GetString("db.name"),
		SSLMode:  v.GetString("db.sslmode"),
		MaxOpen:  v.GetInt("db.max_open"),
		MaxIdle:  v.GetInt("db.max_idle"),
	}
	cfg.Mongo = MongoConfig{
		URI:            v.GetString("mongo.uri"),
		Database:       v.GetString("mongo.database"),
		Collection:     v.GetString("mongo.collection"),
		ConnectTimeout: v.GetDuration("mongo.connect_timeout"),
	}
	cfg.S3 = S3Config{
		Region:        v.GetString("s3.region"),
		Bucket:        v.GetString("s3.bucket"),
		Endpoint:      v.GetString("s3.endpoint"),
		AccessKey:     v.GetString("s3.access_key"),
		SecretKey:     v.GetString("s3.secret_key"),
		ArchivePrefix: strings.Trim(v.GetString("s3.archive_prefix"), "/"),
	}
	cfg.JWT = JWTConfig{
		Secret:      v.GetString("jwt.secret"),
		Issuer:      v.GetString("jwt.issuer"),
		TokenExpiry: v.GetDuration("jwt.token_expiry"),
	}

	// Parse CORS allowed origins from comma-separated string
	var corsOrigins []string
	for _, o := range strings.Split(v.GetString("cors.allowed_origins"), ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			corsOrigins = append(corsOrigins, o)
		}
	}
	cfg.CORS = CORSConfig{AllowedOrigins: corsOrigins}

	return cfg, nil
}

// Validate checks the settings the selected components depend on.
func (c *Config) Validate() error {
	switch c.Parser.Provider {
	case "azure":
		if c.Parser.Endpoint == "" {
			return errors.New("parser.endpoint is required for the azure provider")
		}
	case "openai", "claude", "gemini":
	default:
		return fmt.Errorf("unknown parser provider: %q", c.Parser.Provider)
	}
	if c.Parser.APIKey == "" {
		return errors.New("parser.api_key is required")
	}

	switch c.Store.Driver {
	case "postgres", "none":
	case "mongo":
		if c.Mongo.URI == "" {
			return errors.New("mongo.uri is required for the mongo store")
		}
	default:
		return fmt.Errorf("unknown store driver: %q", c.Store.Driver)
	}

	if c.S3.ArchivePrefix != "" && !c.S3.Enabled() {
		return errors.New("s3.archive_prefix requires s3.bucket")
	}
	return nil
}
