// Package config loads the inbound service configuration: defaults, then an
// optional YAML file named by CONFIG_FILE, then environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wms-platform/inbound-service/internal/application"
	"github.com/wms-platform/inbound-service/internal/infrastructure/fulfillment"
	"github.com/wms-platform/inbound-service/internal/infrastructure/sandbox"
	"github.com/wms-platform/inbound-service/pkg/kafka"
	"github.com/wms-platform/inbound-service/pkg/mongodb"
	"github.com/wms-platform/inbound-service/pkg/outbox"
	"github.com/wms-platform/inbound-service/pkg/temporal"
	"github.com/wms-platform/inbound-service/pkg/tracing"
)

// ServiceName is the name the service reports in logs, metrics and traces
const ServiceName = "inbound-service"

// Fulfillment network modes
const (
	NetworkHTTP    = "http"
	NetworkSandbox = "sandbox"
)

// Storage backends
const (
	StorageMongoDB = "mongodb"
	StorageMemory  = "memory"
)

// Config holds application configuration
type Config struct {
	ServerAddr  string `yaml:"serverAddr"`
	MetricsAddr string `yaml:"metricsAddr"`
	LogLevel    string `yaml:"logLevel"`
	Network     string `yaml:"network"`
	Storage     string `yaml:"storage"`

	// CORSOrigins are the browser origins allowed to call the API
	CORSOrigins []string `yaml:"corsOrigins"`

	MongoDB      *mongodb.Config                 `yaml:"mongodb"`
	Kafka        *kafka.Config                   `yaml:"kafka"`
	Outbox       *outbox.PublisherConfig         `yaml:"outbox"`
	Temporal     *temporal.Config                `yaml:"temporal"`
	Tracing      *tracing.Config                 `yaml:"tracing"`
	Fulfillment  *fulfillment.Config             `yaml:"fulfillment"`
	Sandbox      sandbox.Config                  `yaml:"sandbox"`
	Poller       *application.PollerConfig       `yaml:"poller"`
	Orchestrator *application.OrchestratorConfig `yaml:"orchestrator"`
	Executor     *application.ExecutorConfig     `yaml:"executor"`
}

// Default returns the configuration used when nothing is overridden
func Default() *Config {
	mongo := mongodb.DefaultConfig()
	mongo.Database = "inbound_db"

	kafkaCfg := kafka.DefaultConfig()
	kafkaCfg.ClientID = ServiceName

	return &Config{
		ServerAddr:   ":8020",
		MetricsAddr:  ":9464",
		LogLevel:     "info",
		Network:      NetworkHTTP,
		Storage:      StorageMongoDB,
		CORSOrigins:  []string{"http://localhost:3000", "http://localhost:5173"},
		MongoDB:      mongo,
		Kafka:        kafkaCfg,
		Outbox:       outbox.DefaultPublisherConfig(),
		Temporal:     temporal.DefaultConfig(),
		Tracing:      tracing.DefaultConfig(ServiceName),
		Fulfillment:  fulfillment.DefaultConfig(),
		Sandbox:      sandbox.DefaultConfig(),
		Poller:       application.DefaultPollerConfig(),
		Orchestrator: application.DefaultOrchestratorConfig(),
		Executor:     application.DefaultExecutorConfig(),
	}
}

// Load builds the configuration and validates it
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := cfg.overlayYAML(data); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) overlayYAML(data []byte) error {
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.ServerAddr = getEnv("SERVER_ADDR", c.ServerAddr)
	c.MetricsAddr = getEnv("METRICS_ADDR", c.MetricsAddr)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.Network = getEnv("FULFILLMENT_NETWORK", c.Network)
	c.Storage = getEnv("STORAGE", c.Storage)

	c.MongoDB.URI = getEnv("MONGODB_URI", c.MongoDB.URI)
	c.MongoDB.Database = getEnv("MONGODB_DATABASE", c.MongoDB.Database)

	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		c.CORSOrigins = strings.Split(origins, ",")
	}
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		c.Kafka.Brokers = strings.Split(brokers, ",")
	}

	c.Temporal.HostPort = getEnv("TEMPORAL_HOST", c.Temporal.HostPort)
	c.Temporal.Namespace = getEnv("TEMPORAL_NAMESPACE", c.Temporal.Namespace)

	c.Tracing.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", c.Tracing.OTLPEndpoint)
	c.Tracing.Environment = getEnv("ENVIRONMENT", c.Tracing.Environment)
	c.Tracing.Enabled = getBool("TRACING_ENABLED", c.Tracing.Enabled)

	c.Fulfillment.BaseURL = getEnv("FULFILLMENT_BASE_URL", c.Fulfillment.BaseURL)
	c.Fulfillment.AccessToken = getEnv("FULFILLMENT_ACCESS_TOKEN", c.Fulfillment.AccessToken)
	c.Fulfillment.Marketplace = getEnv("FULFILLMENT_MARKETPLACE", c.Fulfillment.Marketplace)
	c.Fulfillment.Timeout = getDuration("FULFILLMENT_TIMEOUT", c.Fulfillment.Timeout)

	c.Poller.Interval = getDuration("POLL_INTERVAL", c.Poller.Interval)
	c.Poller.MaxInterval = getDuration("POLL_MAX_INTERVAL", c.Poller.MaxInterval)
	c.Poller.Timeout = getDuration("POLL_TIMEOUT", c.Poller.Timeout)
	c.Orchestrator.LeaseTTL = getDuration("RUN_LEASE_TTL", c.Orchestrator.LeaseTTL)
	c.Executor.ReadyToShipLeadTime = getDuration("READY_TO_SHIP_LEAD_TIME", c.Executor.ReadyToShipLeadTime)
}

// Validate checks the settings that would otherwise fail late
func (c *Config) Validate() error {
	var problems []string

	switch c.Network {
	case NetworkHTTP:
		if c.Fulfillment.BaseURL == "" {
			problems = append(problems, "fulfillment.baseUrl is required in http mode")
		}
	case NetworkSandbox:
	default:
		problems = append(problems, fmt.Sprintf("network must be %q or %q", NetworkHTTP, NetworkSandbox))
	}

	switch c.Storage {
	case StorageMongoDB:
		if c.MongoDB.URI == "" {
			problems = append(problems, "mongodb.uri is required")
		}
	case StorageMemory:
	default:
		problems = append(problems, fmt.Sprintf("storage must be %q or %q", StorageMongoDB, StorageMemory))
	}

	if c.Poller.Interval <= 0 || c.Poller.Timeout <= 0 {
		problems = append(problems, "poller interval and timeout must be positive")
	}
	if c.Poller.MaxInterval < c.Poller.Interval {
		problems = append(problems, "poller.maxInterval must not be below poller.interval")
	}
	if c.Poller.BackoffFactor < 1 {
		problems = append(problems, "poller.backoffFactor must be at least 1")
	}
	if len(c.CORSOrigins) == 0 {
		problems = append(problems, "corsOrigins must name at least one origin")
	}
	if c.Orchestrator.LeaseTTL <= 0 {
		problems = append(problems, "orchestrator.leaseTtl must be positive")
	} else if bound := application.MaxAwaitsPerLease * c.Poller.Timeout; c.Orchestrator.LeaseTTL <= bound {
		problems = append(problems, fmt.Sprintf("orchestrator.leaseTtl must exceed %s (%d poll timeouts)", bound, application.MaxAwaitsPerLease))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return defaultValue
}
