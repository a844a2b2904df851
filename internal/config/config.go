package config

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers
const (
	StorePostgres = "postgres"
	StoreMongo    = "mongo"
	StoreMemory   = "memory"
)

// Config holds all configuration for the floor service
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Store    StoreConfig    `yaml:"store"`
	Database DatabaseConfig `yaml:"database"`
	Mongo    MongoConfig    `yaml:"mongo"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
	Auth     AuthConfig     `yaml:"auth"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port           int           `yaml:"port"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// StoreConfig selects the persistence backend
type StoreConfig struct {
	Driver       string `yaml:"driver"`
	SnapshotPath string `yaml:"snapshot_path"`
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// MongoConfig holds MongoDB connection configuration
type MongoConfig struct {
	URI      string        `yaml:"uri"`
	Database string        `yaml:"database"`
	Timeout  time.Duration `yaml:"timeout"`
}

// RabbitMQConfig holds RabbitMQ connection configuration
type RabbitMQConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// AuthConfig holds bearer token validation settings
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
	Issuer    string `yaml:"issuer"`
}

// Default returns the configuration used when a key is absent from the file
func Default() *Config {
	return &Config{
		Server:   ServerConfig{Port: 3000, RequestTimeout: 30 * time.Second},
		Store:    StoreConfig{Driver: StoreMemory},
		Database: DatabaseConfig{Host: "localhost", Port: 5432},
		Mongo:    MongoConfig{URI: "mongodb://localhost:27017", Database: "floor", Timeout: 10 * time.Second},
		RabbitMQ: RabbitMQConfig{Host: "localhost", Port: 5672},
	}
}

// Load reads configuration from a YAML file, then applies .env and environment overrides
func Load(filename string) (*Config, error) {
	cfg, err := LoadFile(filename)
	if err != nil {
		return nil, err
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads configuration from a YAML file without environment overrides
func LoadFile(filename string) (*Config, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	config := Default()
	scanner := bufio.NewScanner(file)

	var currentSection string

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip comments and empty lines
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Check for section headers
		if strings.HasSuffix(line, ":") && !strings.Contains(line, " ") {
			currentSection = strings.TrimSuffix(line, ":")
			continue
		}

		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.Trim(strings.TrimSpace(parts[1]), `"'`)

		if err := config.setValue(currentSection, key, value); err != nil {
			return nil, fmt.Errorf("failed to set config value %s.%s: %w", currentSection, key, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return config, nil
}

// Validate checks the settings the selected driver depends on
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case StoreMemory:
	case StorePostgres:
		if c.Database.Host == "" || c.Database.Database == "" {
			return fmt.Errorf("database.host and database.database are required for the postgres store")
		}
	case StoreMongo:
		if c.Mongo.URI == "" || c.Mongo.Database == "" {
			return fmt.Errorf("mongo.uri and mongo.database are required for the mongo store")
		}
	default:
		return fmt.Errorf("unknown store driver: %s", c.Store.Driver)
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be positive")
	}
	return nil
}

// applyEnv overrides file values with FLOOR_* and JWT_SECRET variables
func (c *Config) applyEnv(getenv func(string) string) error {
	overrides := []struct {
		env, section, key string
	}{
		{"FLOOR_PORT", "server", "port"},
		{"FLOOR_STORE_DRIVER", "store", "driver"},
		{"FLOOR_SNAPSHOT_PATH", "store", "snapshot_path"},
		{"FLOOR_DB_HOST", "database", "host"},
		{"FLOOR_DB_PORT", "database", "port"},
		{"FLOOR_DB_USER", "database", "user"},
		{"FLOOR_DB_PASSWORD", "database", "password"},
		{"FLOOR_DB_NAME", "database", "database"},
		{"MONGO_URI", "mongo", "uri"},
		{"MONGO_DATABASE", "mongo", "database"},
		{"FLOOR_RABBITMQ_ENABLED", "rabbitmq", "enabled"},
		{"FLOOR_RABBITMQ_HOST", "rabbitmq", "host"},
		{"FLOOR_RABBITMQ_USER", "rabbitmq", "user"},
		{"FLOOR_RABBITMQ_PASSWORD", "rabbitmq", "password"},
		{"JWT_SECRET", "auth", "jwt_secret"},
	}
	for _, o := range overrides {
		value := getenv(o.env)
		if value == "" {
			continue
		}
		if err := c.setValue(o.section, o.key, value); err != nil {
			return fmt.Errorf("invalid %s: %w", o.env, err)
		}
	}
	return nil
}

// setValue sets a configuration value based on section and key
func (c *Config) setValue(section, key, value string) error {
	switch section {
	case "server":
		return c.setServerValue(key, value)
	case "store":
		return c.setStoreValue(key, value)
	case "database":
		return c.setDatabaseValue(key, value)
	case "mongo":
		return c.setMongoValue(key, value)
	case "rabbitmq":
		return c.setRabbitMQValue(key, value)
	case "auth":
		return c.setAuthValue(key, value)
	default:
		return fmt.Errorf("unknown section: %s", section)
	}
}

func (c *Config) setServerValue(key, value string) error {
	switch key {
	case "port":
		return setInt(&c.Server.Port, value)
	case "request_timeout":
		return setDuration(&c.Server.RequestTimeout, value)
	default:
		return fmt.Errorf("unknown server key: %s", key)
	}
}

func (c *Config) setStoreValue(key, value string) error {
	switch key {
	case "driver":
		c.Store.Driver = value
	case "snapshot_path":
		c.Store.SnapshotPath = value
	default:
		return fmt.Errorf("unknown store key: %s", key)
	}
	return nil
}

// setDatabaseValue sets database configuration values
func (c *Config) setDatabaseValue(key, value string) error {
	switch key {
	case "host":
		c.Database.Host = value
	case "port":
		return setInt(&c.Database.Port, value)
	case "user":
		c.Database.User = value
	case "password":
		c.Database.Password = value
	case "database":
		c.Database.Database = value
	default:
		return fmt.Errorf("unknown database key: %s", key)
	}
	return nil
}

func (c *Config) setMongoValue(key, value string) error {
	switch key {
	case "uri":
		c.Mongo.URI = value
	case "database":
		c.Mongo.Database = value
	case "timeout":
		return setDuration(&c.Mongo.Timeout, value)
	default:
		return fmt.Errorf("unknown mongo key: %s", key)
	}
	return nil
}

// setRabbitMQValue sets RabbitMQ configuration values
func (c *Config) setRabbitMQValue(key, value string) error {
	switch key {
	case "enabled":
		enabled, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid enabled value: %w", err)
		}
		c.RabbitMQ.Enabled = enabled
	case "host":
		c.RabbitMQ.Host = value
	case "port":
		return setInt(&c.RabbitMQ.Port, value)
	case "user":
		c.RabbitMQ.User = value
	case "password":
		c.RabbitMQ.Password = value
	default:
		return fmt.Errorf("unknown rabbitmq key: %s", key)
	}
	return nil
}

func (c *Config) setAuthValue(key, value string) error {
	switch key {
	case "jwt_secret":
		c.Auth.JWTSecret = value
	case "issuer":
		c.Auth.Issuer = value
	default:
		return fmt.Errorf("unknown auth key: %s", key)
	}
	return nil
}

func setInt(dst *int, value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid integer value: %w", err)
	}
	*dst = n
	return nil
}

func setDuration(dst *time.Duration, value string) error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("invalid duration value: %w", err)
	}
	*dst = d
	return nil
}

// DatabaseURL returns a PostgreSQL connection URL
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.Database.User, c.Database.Password, c.Database.Host, c.Database.Port, c.Database.Database)
}

// RabbitMQURL returns an AMQP connection URL
func (c *Config) RabbitMQURL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%d/",
		c.RabbitMQ.User, c.RabbitMQ.Password, c.RabbitMQ.Host, c.RabbitMQ.Port)
}
