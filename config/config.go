package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gopkg.in/yaml.v3"
)

const (
	CONFIG_PATH = "./res/config.yaml"

	// ENV_PREFIX marks environment variables that override the config file.
	// Nested keys are joined with ENV_SEPARATOR, e.g.
	// SCHOOLADMIN_DATABASE__POSTGRES_CONFIG__DSN.
	ENV_PREFIX    = "SCHOOLADMIN_"
	ENV_SEPARATOR = "__"

	// ENV_CONFIG_PATH points at an alternative config file.
	ENV_CONFIG_PATH = "SCHOOLADMIN_CONFIG_PATH"

	DefaultPasswordCost = 10

	DatabaseTypePostgres = "postgres"
	DatabaseTypeMongo    = "mongo"
	DatabaseTypeSQLite   = "sqlite"
)

// ServiceConfig holds the configuration for the service.
type ServiceConfig struct {
	ServiceName       string     `yaml:"service_name" validate:"required"`
	LogLevel          string     `yaml:"loglevel" validate:"required"`
	Host              string     `yaml:"host"`
	Port              string     `yaml:"port" validate:"required"`
	PasswordCost      int        `yaml:"password_cost" validate:"omitempty,min=4,max=31"`
	RevealMissingUser bool       `yaml:"reveal_missing_user"`
	CORS              CORSConfig `yaml:"cors"`
	Database          Database   `yaml:"database" validate:"required"`
}

// CORSConfig drives the cross-origin headers sent on every route.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

type Database struct {
	Type string `yaml:"type" validate:"required,oneof=postgres mongo sqlite"`
	// For MongoDB
	MongoDB MongoDBConfig `yaml:"mongodb_config" validate:"-"`
	// For PostgreSQL
	Postgres PostgresConfig `yaml:"postgres_config" validate:"-"`
	// For SQLite
	SQLite SQLiteConfig `yaml:"sqlite_config" validate:"-"`
}

type MongoDBConfig struct {
	DSN              string             `yaml:"dsn" validate:"required"`
	DatabaseName     string             `yaml:"database_name" validate:"required"`
	Timeout          time.Duration      `yaml:"timeout"`
	Options          MongoServerOptions `yaml:"mongo_server_options"`
	ValidCollections []string           `yaml:"valid_collections" validate:"required"`
	ValidFields      []string           `yaml:"valid_fields" validate:"required"`
}

type PostgresConfig struct {
	DSN     string                `yaml:"dsn" validate:"required"`
	Options PostgresServerOptions `yaml:"postgres_server_options"`
}

type SQLiteConfig struct {
	Path string `yaml:"path" validate:"required"`
}

type MongoServerOptions struct {
	APIVersion           string `yaml:"api_version"`
	SetStrict            bool   `yaml:"set_strict"`
	SetDeprecationErrors bool   `yaml:"set_deprecation_errors"`
}

type PostgresServerOptions struct {
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// ConfigPath returns ENV_CONFIG_PATH if set, else CONFIG_PATH.
func ConfigPath() string {
	if p := os.Getenv(ENV_CONFIG_PATH); p != "" {
		return p
	}
	return CONFIG_PATH
}

// Load reads the config file at configPath, then applies environment overrides
// and defaults. The result is not validated.
func Load(configPath string) (*ServiceConfig, error) {
	cfg, err := ReadLocalConfig(configPath)
	if err != nil {
		return nil, err
	}

	if err := ApplyEnvOverrides(cfg, os.Environ()); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

// ReadLocalConfig reads the service configuration from a YAML file at the specified path.
// It unmarshals the YAML content into a ServiceConfig struct and returns it.
// If there is an error reading the file or unmarshaling the content, it returns an error.
func ReadLocalConfig(configPath string) (*ServiceConfig, error) {
	config := &ServiceConfig{}

	yamlFile, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	err = yaml.Unmarshal(yamlFile, config)
	if err != nil {
		return nil, err
	}

	return config, nil
}

// ApplyEnvOverrides overlays every KEY=value pair in environ that carries
// ENV_PREFIX onto cfg. Keys are matched against the yaml tags.
func ApplyEnvOverrides(cfg *ServiceConfig, environ []string) error {
	overrides := map[string]interface{}{}
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, ENV_PREFIX) || key == ENV_CONFIG_PATH {
			continue
		}

		path := strings.Split(strings.ToLower(strings.TrimPrefix(key, ENV_PREFIX)), ENV_SEPARATOR)
		setPath(overrides, path, value)
	}

	if len(overrides) == 0 {
		return nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "yaml",
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		Result: cfg,
	})
	if err != nil {
		return err
	}

	return decoder.Decode(overrides)
}

func setPath(m map[string]interface{}, path []string, value string) {
	for i, segment := range path {
		if i == len(path)-1 {
			m[segment] = value
			return
		}
		next, ok := m[segment].(map[string]interface{})
		if !ok {
			next = map[string]interface{}{}
			m[segment] = next
		}
		m = next
	}
}

func (c *ServiceConfig) applyDefaults() {
	if c.PasswordCost == 0 {
		c.PasswordCost = DefaultPasswordCost
	}
	if len(c.CORS.AllowedOrigins) == 0 {
		c.CORS.AllowedOrigins = []string{"*"}
	}
	if len(c.CORS.AllowedMethods) == 0 {
		c.CORS.AllowedMethods = []string{"POST", "OPTIONS"}
	}
	if len(c.CORS.AllowedHeaders) == 0 {
		c.CORS.AllowedHeaders = []string{"Content-Type"}
	}
}

// SelectedDatabase returns the sub-config chosen by Database.Type so it can be
// validated on its own.
func (c *ServiceConfig) SelectedDatabase() (interface{}, error) {
	switch c.Database.Type {
	case DatabaseTypePostgres:
		return &c.Database.Postgres, nil
	case DatabaseTypeMongo:
		return &c.Database.MongoDB, nil
	case DatabaseTypeSQLite:
		return &c.Database.SQLite, nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", c.Database.Type)
	}
}

func BuildServerAPIOptions(cfg MongoServerOptions) *options.ServerAPIOptions {
	opts := options.ServerAPI(options.ServerAPIVersion(cfg.APIVersion))
	opts.SetStrict(cfg.SetStrict)
	opts.SetDeprecationErrors(cfg.SetDeprecationErrors)

	return opts
}

func ListToMap(list []string) map[string]bool {
	result := make(map[string]bool)
	for _, item := range list {
		result[item] = true
	}
	return result
}
