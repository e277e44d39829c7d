package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// Config is the API and worker configuration, read from the environment.
type Config struct {
	App struct {
		Name string
		Env  string
	}

	API struct {
		Host string
		Port string
	}

	Log struct {
		Level  string
		Format string
	}

	DB struct {
		Host     string
		Port     int
		User     string
		Password string
		Name     string
		SSLMode  string
	}

	Redis struct {
		Addr     string
		Password string
		DB       int
	}

	// Elk holds the 46elks gateway credentials.
	Elk struct {
		Username   string
		Password   string
		BaseDomain string
		Timeout    time.Duration
	}

	SMS struct {
		// Sender is the default "from" for messages enqueued without one.
		Sender        string
		WhenDelivered string
	}

	Scheduler struct {
		Interval     time.Duration
		BatchTimeout time.Duration
		AutoStart    bool
	}

	Worker struct {
		BatchSize         int
		MaxWorkers        int
		PerMessageTimeout time.Duration
		StaleAfter        time.Duration
	}
}

// defaults lists every recognised environment variable with its fallback.
// Empty variables count as unset.
var defaults = map[string]any{
	"APP_NAME": "elk-messaging",
	"APP_ENV":  "development",

	"API_HOST": "0.0.0.0",
	"API_PORT": "8080",

	"LOG_LEVEL": "info",

	"DB_HOST":     "db",
	"DB_PORT":     5432,
	"DB_USER":     "root",
	"DB_PASSWORD": "123456",
	"DB_NAME":     "db_elk_message",
	"DB_SSLMODE":  "disable",

	"REDIS_ADDR":     "redis:6379",
	"REDIS_PASSWORD": "",
	"REDIS_DB":       0,

	"ELK_USERNAME":    "",
	"ELK_PASSWORD":    "",
	"ELK_BASE_DOMAIN": "",
	"ELK_TIMEOUT":     "10s",
	"ELK_SENDER":      "",

	"SMS_WHEN_DELIVERED": "",

	"SCHEDULER_INTERVAL":      "5s",
	"SCHEDULER_BATCH_TIMEOUT": "30s",
	"SCHEDULER_AUTOSTART":     "true",

	"MESSAGE_BATCH_SIZE":          100,
	"MESSAGE_MAX_WORKERS":         4,
	"MESSAGE_PER_MESSAGE_TIMEOUT": "5s",
	"MESSAGE_STALE_AFTER":         "10m",
}

// New reads the configuration from the environment, after loading a .env
// file from the working directory when one exists.
func New() *Config {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	for key, def := range defaults {
		v.SetDefault(key, def)
	}
	return load(v)
}

func load(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.App.Name = v.GetString("APP_NAME")
	cfg.App.Env = v.GetString("APP_ENV")

	cfg.API.Host = v.GetString("API_HOST")
	cfg.API.Port = v.GetString("API_PORT")

	cfg.Log.Level = v.GetString("LOG_LEVEL")
	cfg.Log.Format = v.GetString("LOG_FORMAT")
	if cfg.Log.Format == "" {
		cfg.Log.Format = defaultLogFormat(cfg.App.Env)
	}

	cfg.DB.Host = v.GetString("DB_HOST")
	cfg.DB.Port = intOr(v, "DB_PORT")
	cfg.DB.User = v.GetString("DB_USER")
	cfg.DB.Password = v.GetString("DB_PASSWORD")
	cfg.DB.Name = v.GetString("DB_NAME")
	cfg.DB.SSLMode = v.GetString("DB_SSLMODE")

	cfg.Redis.Addr = v.GetString("REDIS_ADDR")
	cfg.Redis.Password = v.GetString("REDIS_PASSWORD")
	cfg.Redis.DB = intOr(v, "REDIS_DB")

	cfg.Elk.Username = v.GetString("ELK_USERNAME")
	cfg.Elk.Password = v.GetString("ELK_PASSWORD")
	cfg.Elk.BaseDomain = v.GetString("ELK_BASE_DOMAIN")
	cfg.Elk.Timeout = durationOr(v, "ELK_TIMEOUT")

	cfg.SMS.Sender = v.GetString("ELK_SENDER")
	cfg.SMS.WhenDelivered = v.GetString("SMS_WHEN_DELIVERED")

	cfg.Scheduler.Interval = durationOr(v, "SCHEDULER_INTERVAL")
	cfg.Scheduler.BatchTimeout = durationOr(v, "SCHEDULER_BATCH_TIMEOUT")
	cfg.Scheduler.AutoStart = isTruthy(v.GetString("SCHEDULER_AUTOSTART"))

	cfg.Worker.BatchSize = intOr(v, "MESSAGE_BATCH_SIZE")
	cfg.Worker.MaxWorkers = intOr(v, "MESSAGE_MAX_WORKERS")
	cfg.Worker.PerMessageTimeout = durationOr(v, "MESSAGE_PER_MESSAGE_TIMEOUT")
	cfg.Worker.StaleAfter = durationOr(v, "MESSAGE_STALE_AFTER")

	return cfg
}

// Validate reports settings the API cannot run without.
func (c *Config) Validate() error {
	var errs []error

	if c.Elk.Username == "" || c.Elk.Password == "" {
		errs = append(errs, errors.New("ELK_USERNAME and ELK_PASSWORD are required"))
	}
	if c.Worker.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("MESSAGE_BATCH_SIZE must be positive, got %d", c.Worker.BatchSize))
	}
	if c.Worker.MaxWorkers <= 0 {
		errs = append(errs, fmt.Errorf("MESSAGE_MAX_WORKERS must be positive, got %d", c.Worker.MaxWorkers))
	}
	if c.Scheduler.Interval <= 0 {
		errs = append(errs, fmt.Errorf("SCHEDULER_INTERVAL must be positive, got %s", c.Scheduler.Interval))
	}

	return errors.Join(errs...)
}

// Addr is the host:port the HTTP API listens on.
func (c *Config) Addr() string {
	return c.API.Host + ":" + c.API.Port
}

func defaultLogFormat(env string) string {
	if env == "development" {
		return "console"
	}
	return "json"
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true
	default:
		return false
	}
}

// intOr parses key, falling back to its default when the value is malformed.
func intOr(v *viper.Viper, key string) int {
	i, err := cast.ToIntE(strings.TrimSpace(v.GetString(key)))
	if err != nil {
		return cast.ToInt(defaults[key])
	}
	return i
}

func durationOr(v *viper.Viper, key string) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(v.GetString(key)))
	if err != nil {
		return cast.ToDuration(defaults[key])
	}
	return d
}

func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}
