package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Qdrant     QdrantConfig     `mapstructure:"qdrant"`
	Embedding  EmbeddingConfig  `mapstructure:"embedding"`
	Scoring    ScoringConfig    `mapstructure:"scoring"`
	Reputation ReputationConfig `mapstructure:"reputation"`
	Dedupe     DedupeConfig     `mapstructure:"dedupe"`
	Sources    SourcesConfig    `mapstructure:"sources"`
	Criteria   CriteriaConfig   `mapstructure:"criteria"`
	Report     ReportConfig     `mapstructure:"report"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Email      EmailConfig      `mapstructure:"email"`
	Pipeline   PipelineConfig   `mapstructure:"pipeline"`
}

type ServerConfig struct {
	Port int        `mapstructure:"port"`
	Mode string     `mapstructure:"mode"`
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	AllowAllOrigins bool     `mapstructure:"allow_all_origins"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // sqlite, postgres
	Path            string        `mapstructure:"path"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
	LogLevel        string        `mapstructure:"log_level"` // silent, error, warn, info
}

// DSN returns the connection string for the configured driver.
func (c *DatabaseConfig) DSN() string {
	if c.Driver == "postgres" {
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
	}
	return c.Path
}

type QdrantConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Collection string `mapstructure:"collection"`
	APIKey     string `mapstructure:"api_key"`
	UseTLS     bool   `mapstructure:"use_tls"`
}

type ScoringConfig struct {
	Provider      string        `mapstructure:"provider"` // ollama, gemini
	BaseURL       string        `mapstructure:"base_url"`
	Model         string        `mapstructure:"model"`
	APIKey        string        `mapstructure:"api_key"`
	Timeout       time.Duration `mapstructure:"timeout"`
	Temperature   float64       `mapstructure:"temperature"`
	MaxTokens     int           `mapstructure:"max_tokens"`
	MaxCandidates int           `mapstructure:"max_candidates"`
	Concurrency   int           `mapstructure:"concurrency"`
}

type ReputationConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	SearxngURL string        `mapstructure:"searxng_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxResults int           `mapstructure:"max_results"`
}

type DedupeConfig struct {
	SemanticThreshold float32 `mapstructure:"semantic_threshold"`
}

type SourcesConfig struct {
	Path      string        `mapstructure:"path"`
	Timeout   time.Duration `mapstructure:"timeout"`
	RateLimit float64       `mapstructure:"rate_limit"` // requests per second per host
	Burst     int           `mapstructure:"burst"`
	UserAgent string        `mapstructure:"user_agent"`
}

type CriteriaConfig struct {
	Path string `mapstructure:"path"`
}

type ReportConfig struct {
	Dir string `mapstructure:"dir"`
}

type StorageConfig struct {
	Type      string `mapstructure:"type"` // local, s3, r2, s3compatible
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	PublicURL string `mapstructure:"public_url"`
	Prefix    string `mapstructure:"prefix"`
}

type EmailConfig struct {
	SMTPHost       string `mapstructure:"smtp_host"`
	SMTPPort       int    `mapstructure:"smtp_port"`
	Address        string `mapstructure:"address"`
	Password       string `mapstructure:"password"`
	Recipient      string `mapstructure:"recipient"`
	KeyringAccount string `mapstructure:"keyring_account"`
}

type PipelineConfig struct {
	LockPath string `mapstructure:"lock_path"`
}

func Load(configPath string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	bindEnv(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Embedding.ResolveEnvVars()
	if err := cfg.Embedding.Validate(); err != nil {
		return nil, err
	}
	if cfg.Email.Recipient == "" {
		cfg.Email.Recipient = cfg.Email.Address
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.cors.allow_all_origins", true)
	v.SetDefault("server.cors.allowed_origins", []string{})

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "jobs.db")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.max_open_conns", 4)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("database.log_level", "warn")

	v.SetDefault("qdrant.enabled", false)
	v.SetDefault("qdrant.host", "localhost")
	v.SetDefault("qdrant.port", 6334)
	v.SetDefault("qdrant.collection", "job_descriptions")

	v.SetDefault("embedding.provider", "ollama")
	v.SetDefault("embedding.model", "nomic-embed-text")
	v.SetDefault("embedding.dimensions", 768)
	v.SetDefault("embedding.timeout", 30*time.Second)

	v.SetDefault("scoring.provider", "ollama")
	v.SetDefault("scoring.base_url", "http://localhost:11434")
	v.SetDefault("scoring.model", "llama3")
	v.SetDefault("scoring.timeout", 120*time.Second)
	v.SetDefault("scoring.temperature", 0.1)
	v.SetDefault("scoring.max_tokens", 512)
	v.SetDefault("scoring.max_candidates", 100)
	v.SetDefault("scoring.concurrency", 1)

	v.SetDefault("reputation.enabled", false)
	v.SetDefault("reputation.searxng_url", "http://localhost:8888")
	v.SetDefault("reputation.timeout", 10*time.Second)
	v.SetDefault("reputation.max_results", 3)

	v.SetDefault("dedupe.semantic_threshold", 0.92)

	v.SetDefault("sources.path", "sources.yaml")
	v.SetDefault("sources.timeout", 30*time.Second)
	v.SetDefault("sources.rate_limit", 1.0)
	v.SetDefault("sources.burst", 2)
	v.SetDefault("sources.user_agent", "JobSearchAgent/1.0")

	v.SetDefault("criteria.path", "criteria.md")
	v.SetDefault("report.dir", "reports")

	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.prefix", "reports")

	v.SetDefault("email.smtp_host", "smtp.gmail.com")
	v.SetDefault("email.smtp_port", 587)

	v.SetDefault("pipeline.lock_path", "jobscout.lock")
}

// bindEnv keeps the environment variable names operators already use.
func bindEnv(v *viper.Viper) {
	v.BindEnv("database.path", "DB_PATH")
	v.BindEnv("database.driver", "DB_DRIVER")
	v.BindEnv("database.host", "DB_HOST")
	v.BindEnv("database.user", "DB_USER")
	v.BindEnv("database.password", "DB_PASSWORD")
	v.BindEnv("database.dbname", "DB_NAME")
	v.BindEnv("qdrant.enabled", "QDRANT_ENABLED")
	v.BindEnv("qdrant.host", "QDRANT_HOST")
	v.BindEnv("qdrant.port", "QDRANT_PORT")
	v.BindEnv("qdrant.api_key", "QDRANT_API_KEY")
	v.BindEnv("embedding.api_key", "JINA_API_KEY")
	v.BindEnv("scoring.base_url", "OLLAMA_BASE_URL")
	v.BindEnv("scoring.model", "OLLAMA_MODEL")
	v.BindEnv("scoring.api_key", "GEMINI_API_KEY")
	v.BindEnv("reputation.searxng_url", "SEARXNG_URL")
	v.BindEnv("reputation.enabled", "SEARXNG_ENABLED")
	v.BindEnv("storage.access_key", "STORAGE_ACCESS_KEY")
	v.BindEnv("storage.secret_key", "STORAGE_SECRET_KEY")
	v.BindEnv("email.address", "GMAIL_ADDRESS")
	v.BindEnv("email.password", "GMAIL_APP_PASSWORD")
	v.BindEnv("email.recipient", "RECIPIENT_EMAIL")
}
