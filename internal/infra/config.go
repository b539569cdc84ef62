package infra

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Виды источников данных.
const (
	SourceFile     = "file"
	SourceURL      = "url"
	SourcePostgres = "postgres"
)

// Config: корневая структура конфигурации дашборда.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Source   SourceConfig   `mapstructure:"source"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Charts   ChartsConfig   `mapstructure:"charts"`
	Audit    AuditConfig    `mapstructure:"audit"`
	Logger   LoggerConfig   `mapstructure:"logger"`
}

// ServerConfig описывает настройки HTTP-сервера.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Addr возвращает адрес для http.Server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// MetricsConfig: отдельный порт для Prometheus.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// SourceConfig описывает, откуда загружается таблица доступов.
type SourceConfig struct {
	Kind  string `mapstructure:"kind" validate:"oneof=file url postgres"`
	Path  string `mapstructure:"path" validate:"required_if=Kind file"`
	URL   string `mapstructure:"url" validate:"required_if=Kind url"`
	Sheet string `mapstructure:"sheet"` // пусто: первый лист

	// Только для url
	Timeout       time.Duration `mapstructure:"timeout"`
	RetryAttempts uint          `mapstructure:"retry_attempts"`
	RateLimit     float64       `mapstructure:"rate_limit"`

	// 0: данные загружаются один раз при старте
	ReloadInterval time.Duration `mapstructure:"reload_interval"`
}

// DatabaseConfig описывает подключение к PostgreSQL.
type DatabaseConfig struct {
	URL         string `mapstructure:"url"`
	MaxConns    int32  `mapstructure:"max_conns"`
	MinConns    int32  `mapstructure:"min_conns"`
	RecordTable string `mapstructure:"record_table" validate:"required"`
}

// RedisConfig описывает подключение к Redis (кэш представлений и Pub/Sub).
type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Addr     string        `mapstructure:"addr" validate:"required_if=Enabled true"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// UserConfig: оператор, которому разрешена перезагрузка данных.
type UserConfig struct {
	Username     string   `mapstructure:"username" validate:"required"`
	PasswordHash string   `mapstructure:"password_hash" validate:"required"`
	Scopes       []string `mapstructure:"scopes"`
}

// AuthConfig содержит пути к RSA ключам и настройки JWT.
type AuthConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	PublicKeyPath  string        `mapstructure:"public_key_path"`
	PrivateKeyPath string        `mapstructure:"private_key_path"`
	TokenTTL       time.Duration `mapstructure:"token_ttl"`
	Users          []UserConfig  `mapstructure:"users" validate:"dive"`
	PublicKey      []byte
	PrivateKey     []byte
}

// ChartsConfig: размеры SVG и число интервалов гистограммы.
type ChartsConfig struct {
	Width  int `mapstructure:"width" validate:"min=200"`
	Height int `mapstructure:"height" validate:"min=150"`
	Bins   int `mapstructure:"bins" validate:"min=1,max=500"`
}

// AuditConfig настраивает журнал просмотров дашборда.
type AuditConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	BufferSize    int           `mapstructure:"buffer_size" validate:"min=1"`
	BatchSize     int           `mapstructure:"batch_size" validate:"min=1"`
	FlushInterval time.Duration `mapstructure:"flush_interval"`
}

// LoggerConfig настраивает поведение zap логгера.
type LoggerConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json console"`
}

// LoadConfig инициализирует конфигурацию, объединяя значения из файла и ENV.
// configFile может быть пустым: тогда ищем config.yaml в . и ./configs.
func LoadConfig(configFile string) (*Config, error) {
	v := viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
	}

	// SOURCE_PATH=/data/x.xlsx перекроет source.path
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Файла нет: работаем на ENV и дефолтах
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// PEM-ключ может лежать прямо в ENV (Docker/K8s), иначе читаем файл
	cfg.Auth.PublicKey = loadKeyResource(cfg.Auth.PublicKeyPath, "AUTH_PUBLIC_KEY_DATA")
	cfg.Auth.PrivateKey = loadKeyResource(cfg.Auth.PrivateKeyPath, "AUTH_PRIVATE_KEY_DATA")

	return &cfg, nil
}

// Validate проверяет теги validate и связки между секциями.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Source.Kind == SourcePostgres && c.Database.URL == "" {
		return errors.New("invalid config: database.url is required for postgres source")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "")
	v.SetDefault("server.port", 8501)
	v.SetDefault("server.read_timeout", 5*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.addr", ":9090")

	v.SetDefault("source.kind", SourceFile)
	v.SetDefault("source.path", "data/cargarap.xlsx")
	v.SetDefault("source.url", "")
	v.SetDefault("source.sheet", "")
	v.SetDefault("source.timeout", 30*time.Second)
	v.SetDefault("source.retry_attempts", 3)
	v.SetDefault("source.rate_limit", 1.0)
	v.SetDefault("source.reload_interval", 0)

	v.SetDefault("database.url", "")
	v.SetDefault("database.max_conns", 15)
	v.SetDefault("database.min_conns", 1)
	v.SetDefault("database.record_table", "access_records")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.cache_ttl", 10*time.Minute)

	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.token_ttl", 12*time.Hour)

	v.SetDefault("charts.width", 960)
	v.SetDefault("charts.height", 480)
	v.SetDefault("charts.bins", 20)

	v.SetDefault("audit.enabled", true)
	v.SetDefault("audit.buffer_size", 1000)
	v.SetDefault("audit.batch_size", 100)
	v.SetDefault("audit.flush_interval", 1*time.Second)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
}

// loadKeyResource читает ключ из ENV (PEM целиком) или из файла по пути.
func loadKeyResource(path string, envDataKey string) []byte {
	if data := os.Getenv(envDataKey); data != "" {
		return []byte(data)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			return data
		}
	}
	return nil
}
