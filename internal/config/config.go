package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// ErrInvalidConfig marks configuration that cannot start the reconciler.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config aggregates runtime configuration grouped by concern.
type Config struct {
	ServiceName string          `yaml:"service_name" env:"SERVICE_NAME" env-default:"order-payment-reconciler"`
	Log         LogConfig       `yaml:"log"`
	HTTP        HTTPConfig      `yaml:"http"`
	Restate     RestateConfig   `yaml:"restate"`
	Shopify     ShopifyConfig   `yaml:"shopify"`
	PayPal      PayPalConfig    `yaml:"paypal"`
	Slack       SlackConfig     `yaml:"slack"`
	Kafka       KafkaConfig     `yaml:"kafka"`
	Report      ReportConfig    `yaml:"report"`
	Metrics     MetricsConfig   `yaml:"metrics"`
	Telemetry   TelemetryConfig `yaml:"telemetry"`
	Authz       AuthzConfig     `yaml:"authz"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr" env:"HTTP_LISTEN_ADDR" env-default:":3000"`
}

type RestateConfig struct {
	ListenAddr string `yaml:"listen_addr" env:"RESTATE_LISTEN_ADDR" env-default:":9081"`
}

type ShopifyConfig struct {
	APIKey      string `yaml:"api_key" env:"SHOPIFY_API_KEY" env-required:"true"`
	StoreDomain string `yaml:"store_domain" env:"SHOPIFY_STORE_DOMAIN" env-required:"true"`
	APIVersion  string `yaml:"api_version" env:"SHOPIFY_API_VERSION" env-default:"2024-07"`
	// Lookback bounds the created_at filter of the order queries.
	Lookback            time.Duration `yaml:"lookback" env:"SHOPIFY_LOOKBACK" env-default:"720h"`
	PageSize            int           `yaml:"page_size" env:"SHOPIFY_PAGE_SIZE" env-default:"50"`
	MaxRateLimitRetries int           `yaml:"max_rate_limit_retries" env:"SHOPIFY_MAX_RATE_LIMIT_RETRIES" env-default:"20"`
	Timeout             time.Duration `yaml:"timeout" env:"SHOPIFY_HTTP_TIMEOUT" env-default:"30s"`
}

// Endpoint returns the Admin GraphQL endpoint of the configured store.
func (c ShopifyConfig) Endpoint() string {
	domain := strings.TrimSuffix(strings.TrimPrefix(c.StoreDomain, "https://"), "/")
	return fmt.Sprintf("https://%s/admin/api/%s/graphql.json", domain, c.APIVersion)
}

type PayPalConfig struct {
	ClientID     string        `yaml:"client_id" env:"PAYPAL_CLIENT_ID" env-required:"true"`
	ClientSecret string        `yaml:"client_secret" env:"PAYPAL_CLIENT_SECRET" env-required:"true"`
	BaseURL      string        `yaml:"base_url" env:"PAYPAL_CLIENT_URL" env-required:"true"`
	Timeout      time.Duration `yaml:"timeout" env:"PAYPAL_HTTP_TIMEOUT" env-default:"30s"`
}

type SlackConfig struct {
	Token   string `yaml:"token" env:"SLACK_TOKEN" env-required:"true"`
	Channel string `yaml:"channel" env:"BOT_CHANNEL" env-required:"true"`
	User    string `yaml:"user" env:"BOT_USER" env-default:"reconciler"`
	// Mention is prepended to the CSV upload comment, e.g. "<!subteam^S123>".
	Mention string `yaml:"mention" env:"SLACK_REPORT_MENTION"`
}

type KafkaConfig struct {
	Brokers             []string `yaml:"brokers" env:"KAFKA_BROKERS" env-default:"localhost:9092"`
	ReconciliationTopic string   `yaml:"reconciliation_topic" env:"KAFKA_RECONCILIATION_TOPIC" env-default:"reconciliation.v1"`
	AlertGroup          string   `yaml:"alert_group" env:"KAFKA_ALERT_GROUP_ID" env-default:"reconcile-alerts"`
	Enabled             bool     `yaml:"enabled" env:"KAFKA_ENABLED" env-default:"true"`
}

type ReportConfig struct {
	Dir string `yaml:"dir" env:"REPORTS_DIR" env-default:"reports"`
}

type MetricsConfig struct {
	PushgatewayURL string `yaml:"pushgateway_url" env:"PUSHGATEWAY_URL"`
}

type TelemetryConfig struct {
	Enabled bool `yaml:"enabled" env:"OTEL_ENABLED" env-default:"true"`
	// Endpoint accepts a full URL or host:port.
	Endpoint string `yaml:"endpoint" env:"OTEL_EXPORTER_OTLP_TRACES_ENDPOINT" env-default:"http://localhost:4318/v1/traces"`
}

// AuthzConfig points at an OpenFGA store. Leaving either field empty disables
// authorization checks.
type AuthzConfig struct {
	APIURL  string        `yaml:"api_url" env:"OPENFGA_API_URL"`
	StoreID string        `yaml:"store_id" env:"OPENFGA_STORE_ID"`
	Timeout time.Duration `yaml:"timeout" env:"OPENFGA_TIMEOUT" env-default:"3s"`
}

type SMTPConfig struct {
	Host     string `yaml:"host" env:"SMTP_HOST"`
	Port     string `yaml:"port" env:"SMTP_PORT" env-default:"1025"`
	From     string `yaml:"from" env:"SMTP_FROM" env-default:"reconciler@example.local"`
	Username string `yaml:"username" env:"SMTP_USERNAME"`
	Password string `yaml:"password" env:"SMTP_PASSWORD"`
	// To receives every alert.
	To []string `yaml:"to" env:"ALERT_EMAIL_TO" env-default:"payments-ops@example.local"`
}

// AlertWorkerConfig is the configuration of the alert worker, which needs
// neither platform nor processor credentials.
type AlertWorkerConfig struct {
	ServiceName string      `yaml:"service_name" env:"SERVICE_NAME" env-default:"reconciler-alertworker"`
	Log         LogConfig   `yaml:"log"`
	Kafka       KafkaConfig `yaml:"kafka"`
	SMTP        SMTPConfig  `yaml:"smtp"`
}

// LoadAlertWorker reads the alert worker configuration from the environment.
func LoadAlertWorker() (AlertWorkerConfig, error) {
	var cfg AlertWorkerConfig
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return AlertWorkerConfig{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if len(cfg.Kafka.Brokers) == 0 {
		return AlertWorkerConfig{}, fmt.Errorf("%w: KAFKA_BROKERS is empty", ErrInvalidConfig)
	}
	return cfg, nil
}

// Load reads configuration from the optional YAML file named by
// RECONCILER_CONFIG_PATH and from environment variables. Missing credentials
// are reported as ErrInvalidConfig.
func Load() (Config, error) {
	var cfg Config
	var err error
	if path := strings.TrimSpace(os.Getenv("RECONCILER_CONFIG_PATH")); path != "" {
		if _, statErr := os.Stat(path); statErr != nil {
			return Config{}, fmt.Errorf("%w: config file: %v", ErrInvalidConfig, statErr)
		}
		err = cleanenv.ReadConfig(path, &cfg)
	} else {
		err = cleanenv.ReadEnv(&cfg)
	}
	if err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Shopify.PageSize < 1 || c.Shopify.PageSize > 250 {
		return fmt.Errorf("%w: SHOPIFY_PAGE_SIZE must be within 1..250, got %d", ErrInvalidConfig, c.Shopify.PageSize)
	}
	if c.Shopify.MaxRateLimitRetries < 1 {
		return fmt.Errorf("%w: SHOPIFY_MAX_RATE_LIMIT_RETRIES must be positive", ErrInvalidConfig)
	}
	if !strings.HasPrefix(c.PayPal.BaseURL, "http://") && !strings.HasPrefix(c.PayPal.BaseURL, "https://") {
		return fmt.Errorf("%w: PAYPAL_CLIENT_URL must be an absolute URL", ErrInvalidConfig)
	}
	return nil
}
