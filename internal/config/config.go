package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers supported by the persistence layer.
const (
	StoreDriverPostgres = "postgres"
	StoreDriverSQLite   = "sqlite"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Store        StoreConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Notification NotificationConfig
	LLM          LLMConfig
	Workflow     WorkflowConfig
	Catalog      CatalogConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
	// PublicBaseURL is the externally reachable address used in approval links.
	PublicBaseURL string
}

// StoreConfig selects the durable store backing tickets and approvals.
type StoreConfig struct {
	Driver     string
	SQLitePath string
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr            string
	Password        string
	DB              int
	DialTimeout     time.Duration
	CatalogCacheTTL time.Duration
	SessionTTL      time.Duration
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level       string
	Service     string
	Development bool
}

// AuthConfig defines approver authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
}

// NotificationConfig holds approval delivery settings.
type NotificationConfig struct {
	ApproverEmail string
	EmailFrom     string
	SMTPHost      string
	SMTPPort      int
	SMTPUser      string
	SMTPPassword  string

	SlackWebhookURL string

	ServiceNowInstance string
	ServiceNowUser     string
	ServiceNowPassword string

	RatePerSecond float64
	Burst         int
}

// LLMConfig points at an OpenAI compatible chat completion endpoint.
type LLMConfig struct {
	Endpoint       string
	APIKey         string
	Model          string
	TimeoutSeconds int
}

// WorkflowConfig tunes the request workflow.
type WorkflowConfig struct {
	TicketPrefix        string
	InstallStepDelay    time.Duration
	MaxParallelInstalls int
}

// CatalogConfig locates the optional catalog seed file.
type CatalogConfig struct {
	SeedPath        string
	SuggestionLimit int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	driver := strings.ToLower(getEnv("STORE_DRIVER", StoreDriverSQLite))
	if driver != StoreDriverPostgres && driver != StoreDriverSQLite {
		return nil, fmt.Errorf("invalid STORE_DRIVER: %q", driver)
	}

	rate, err := strconv.ParseFloat(getEnv("NOTIFY_RATE_PER_SECOND", "5"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid NOTIFY_RATE_PER_SECOND: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "provisioning-assistant"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
			PublicBaseURL:         strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),
		},
		Store: StoreConfig{
			Driver:     driver,
			SQLitePath: getEnv("SQLITE_PATH", "requests.db"),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:            getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password:        os.Getenv("REDIS_PASSWORD"),
			DB:              redisDB,
			DialTimeout:     getEnvAsDuration("REDIS_DIAL_TIMEOUT", 2*time.Second),
			CatalogCacheTTL: getEnvAsDuration("REDIS_CATALOG_CACHE_TTL", 5*time.Minute),
			SessionTTL:      getEnvAsDuration("REDIS_SESSION_TTL", 72*time.Hour),
		},
		Logger: LoggerConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Service:     getEnv("APP_NAME", "provisioning-assistant"),
			Development: getEnv("APP_ENV", "development") == "development",
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		Notification: NotificationConfig{
			ApproverEmail:      getEnv("NOTIFY_APPROVER_EMAIL", "admin@example.com"),
			EmailFrom:          getEnv("NOTIFY_EMAIL_FROM", os.Getenv("SMTP_USER")),
			SMTPHost:           os.Getenv("SMTP_HOST"),
			SMTPPort:           getEnvAsInt("SMTP_PORT", 587),
			SMTPUser:           os.Getenv("SMTP_USER"),
			SMTPPassword:       os.Getenv("SMTP_PASSWORD"),
			SlackWebhookURL:    os.Getenv("NOTIFY_SLACK_WEBHOOK_URL"),
			ServiceNowInstance: strings.TrimRight(os.Getenv("SN_INSTANCE"), "/"),
			ServiceNowUser:     os.Getenv("SN_USER"),
			ServiceNowPassword: os.Getenv("SN_PASS"),
			RatePerSecond:      rate,
			Burst:              getEnvAsInt("NOTIFY_BURST", 5),
		},
		LLM: LLMConfig{
			Endpoint:       strings.TrimRight(getEnv("LLM_ENDPOINT", "https://api.openai.com/v1"), "/"),
			APIKey:         os.Getenv("LLM_API_KEY"),
			Model:          getEnv("LLM_MODEL", "gpt-4o-mini"),
			TimeoutSeconds: getEnvAsInt("LLM_TIMEOUT_SECONDS", 20),
		},
		Workflow: WorkflowConfig{
			TicketPrefix:        getEnv("TICKET_PREFIX", "SNW"),
			InstallStepDelay:    getEnvAsDuration("INSTALL_STEP_DELAY", 700*time.Millisecond),
			MaxParallelInstalls: getEnvAsInt("WORKFLOW_MAX_PARALLEL_INSTALLS", 4),
		},
		Catalog: CatalogConfig{
			SeedPath:        os.Getenv("CATALOG_SEED_PATH"),
			SuggestionLimit: getEnvAsInt("CATALOG_SUGGESTION_LIMIT", 10),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Enabled reports whether an LLM endpoint can be called.
func (l LLMConfig) Enabled() bool {
	return strings.TrimSpace(l.APIKey) != "" && strings.TrimSpace(l.Endpoint) != ""
}

// Timeout returns the per call LLM timeout.
func (l LLMConfig) Timeout() time.Duration {
	if l.TimeoutSeconds <= 0 {
		return 20 * time.Second
	}
	return time.Duration(l.TimeoutSeconds) * time.Second
}

// SMTPEnabled reports whether email credentials are configured.
func (n NotificationConfig) SMTPEnabled() bool {
	return n.SMTPHost != "" && n.SMTPUser != "" && n.SMTPPassword != ""
}

// ServiceNowEnabled reports whether incident mirroring is configured.
func (n NotificationConfig) ServiceNowEnabled() bool {
	return n.ServiceNowInstance != "" && n.ServiceNowUser != ""
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(val)
	if err != nil {
		return fallback
	}
	return parsed
}
