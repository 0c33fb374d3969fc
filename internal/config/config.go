package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/bryanwahyu/reqverify/internal/logging"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       logging.Config  `yaml:"log"`
	Output    OutputConfig    `yaml:"output"`
	Providers ProvidersConfig `yaml:"providers"`
	Database  DatabaseConfig  `yaml:"database"`
	Minio     MinioConfig     `yaml:"minio"`
}

type ServerConfig struct {
	Port        int      `yaml:"port"`
	APIKeys     []string `yaml:"apiKeys"`
	CORSOrigins []string `yaml:"corsOrigins"`
	MaxUploadMB int      `yaml:"maxUploadMB"`
	// SourceRoots restricts which directories may be analyzed. Empty allows any.
	SourceRoots []string `yaml:"sourceRoots"`
}

type OutputConfig struct {
	Dir string `yaml:"dir"`
}

// Endpoint describes one model backend.
type Endpoint struct {
	BaseURL string        `yaml:"baseURL"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
	// MaxTokens caps the completion length. Zero means the backend default.
	MaxTokens int `yaml:"maxTokens"`
}

type ProvidersConfig struct {
	// APITimeout applies to hosted backends that leave Timeout unset.
	APITimeout time.Duration `yaml:"apiTimeout"`
	OpenAI     Endpoint      `yaml:"openai"`
	Anthropic  Endpoint      `yaml:"anthropic"`
	Gemini     Endpoint      `yaml:"gemini"`
	Ollama     Endpoint      `yaml:"ollama"`
}

// Database drivers understood by cmd/api.
const (
	DriverMemory   = "memory"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverPgx      = "pgx"
)

type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"sslMode"`
	// CacheSize bounds the in-memory history.
	CacheSize int `yaml:"cacheSize"`
}

type MinioConfig struct {
	Endpoint   string `yaml:"endpoint"`
	AccessKey  string `yaml:"accessKey"`
	SecretKey  string `yaml:"secretKey"`
	BucketName string `yaml:"bucketName"`
	Region     string `yaml:"region"`
	UseSSL     bool   `yaml:"useSSL"`
}

// Enabled reports whether report upload is configured.
func (m MinioConfig) Enabled() bool {
	return m.Endpoint != "" && m.BucketName != ""
}

func Defaults() Config {
	return Config{
		Server: ServerConfig{Port: 8080, MaxUploadMB: 20},
		Log: logging.Config{
			Path:       "output/app.log",
			MaxSizeMB:  2,
			MaxBackups: 2,
			Level:      "info",
		},
		Output: OutputConfig{Dir: "output"},
		Providers: ProvidersConfig{
			APITimeout: 60 * time.Second,
			OpenAI:     Endpoint{Model: "gpt-4o"},
			Anthropic:  Endpoint{BaseURL: "https://api.anthropic.com", Model: "claude-3-5-sonnet-20241022"},
			Gemini:     Endpoint{Model: "gemini-2.5-flash"},
			Ollama:     Endpoint{BaseURL: "http://localhost:11434", Model: "llama3", Timeout: 120 * time.Second},
		},
		Database: DatabaseConfig{Driver: DriverMemory, SSLMode: "disable", CacheSize: 256},
	}
}

// LoadDotEnv loads KEY=VALUE files into the process environment. Missing
// files are skipped; variables already set win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("config: load %s: %w", p, err)
		}
	}
	return nil
}

// Load applies defaults, then the YAML file at path (skipped when empty),
// then REQVERIFY_* environment overrides.
func Load(path string) (*Config, error) {
	cfg := Defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse yaml: %w", err)
		}
	}
	if err := applyEnv(&cfg, os.Getenv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: invalid server port %d", c.Server.Port)
	}
	switch c.Database.Driver {
	case DriverMemory, DriverMySQL, DriverPostgres, DriverPgx:
	default:
		return fmt.Errorf("config: unknown database driver %q", c.Database.Driver)
	}
	if c.Providers.Ollama.BaseURL != "" {
		if _, err := url.ParseRequestURI(c.Providers.Ollama.BaseURL); err != nil {
			return fmt.Errorf("config: invalid ollama baseURL: %w", err)
		}
	}
	return nil
}

func applyEnv(cfg *Config, getenv func(string) string) error {
	str := map[string]*string{
		"REQVERIFY_LOG_PATH":         &cfg.Log.Path,
		"REQVERIFY_LOG_LEVEL":        &cfg.Log.Level,
		"REQVERIFY_OUTPUT_DIR":       &cfg.Output.Dir,
		"REQVERIFY_OPENAI_BASE_URL":  &cfg.Providers.OpenAI.BaseURL,
		"REQVERIFY_OPENAI_MODEL":     &cfg.Providers.OpenAI.Model,
		"REQVERIFY_ANTHROPIC_MODEL":  &cfg.Providers.Anthropic.Model,
		"REQVERIFY_GEMINI_MODEL":     &cfg.Providers.Gemini.Model,
		"REQVERIFY_OLLAMA_URL":       &cfg.Providers.Ollama.BaseURL,
		"REQVERIFY_OLLAMA_MODEL":     &cfg.Providers.Ollama.Model,
		"REQVERIFY_DB_DRIVER":        &cfg.Database.Driver,
		"REQVERIFY_DB_HOST":          &cfg.Database.Host,
		"REQVERIFY_DB_USER":          &cfg.Database.User,
		"REQVERIFY_DB_PASSWORD":      &cfg.Database.Password,
		"REQVERIFY_DB_NAME":          &cfg.Database.Name,
		"REQVERIFY_MINIO_ENDPOINT":   &cfg.Minio.Endpoint,
		"REQVERIFY_MINIO_ACCESS_KEY": &cfg.Minio.AccessKey,
		"REQVERIFY_MINIO_SECRET_KEY": &cfg.Minio.SecretKey,
		"REQVERIFY_MINIO_BUCKET":     &cfg.Minio.BucketName,
	}
	for name, dst := range str {
		if v := getenv(name); v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"REQVERIFY_PORT":    &cfg.Server.Port,
		"REQVERIFY_DB_PORT": &cfg.Database.Port,
	}
	for name, dst := range ints {
		if v := getenv(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("config: invalid %s %q: %w", name, v, err)
			}
			*dst = n
		}
	}

	if v := getenv("REQVERIFY_API_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: invalid REQVERIFY_API_TIMEOUT %q: %w", v, err)
		}
		cfg.Providers.APITimeout = d
	}
	if v := getenv("REQVERIFY_API_KEYS"); v != "" {
		cfg.Server.APIKeys = splitList(v)
	}
	if v := getenv("REQVERIFY_SOURCE_ROOTS"); v != "" {
		cfg.Server.SourceRoots = splitList(v)
	}
	if v := getenv("REQVERIFY_CORS_ORIGINS"); v != "" {
		cfg.Server.CORSOrigins = splitList(v)
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Helper untuk build DSN MySQL
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}

// PostgresDSN builds a URL understood by both lib/pq and pgx.
func (c *Config) PostgresDSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.Database.User, c.Database.Password),
		Host:     fmt.Sprintf("%s:%d", c.Database.Host, c.Database.Port),
		Path:     "/" + c.Database.Name,
		RawQuery: "sslmode=" + url.QueryEscape(c.Database.SSLMode),
	}
	return u.String()
}
