// Package config holds the database connection settings and builds the
// driver data source name for each dialect.
package config

import (
	"fmt"
	"maps"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"gopkg.in/yaml.v3"

	"github.com/syssam/pgoose/dialect"
)

// EnvPrefix prefixes the environment variables read by FromEnv.
const EnvPrefix = "PGOOSE_"

// Config holds the connection settings.
type Config struct {
	Dialect  string            `yaml:"dialect"`
	Host     string            `yaml:"host"`
	Port     int               `yaml:"port"`
	Database string            `yaml:"database"`
	User     string            `yaml:"user"`
	Password string            `yaml:"password"`
	SSLMode  string            `yaml:"sslmode"`
	Params   map[string]string `yaml:"params"`
	// Debug logs every statement at debug level.
	Debug bool `yaml:"debug"`
	// SlowQuery enables statement statistics and logs statements running
	// longer than the threshold at warn level. Zero disables both.
	SlowQuery time.Duration `yaml:"slow_query"`
}

// Default returns the configuration of a local PostgreSQL server.
func Default() Config {
	return Config{
		Dialect: dialect.Postgres,
		Host:    "localhost",
		Port:    5432,
		SSLMode: "disable",
	}
}

// Load reads a YAML configuration file and applies environment overrides.
func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return Parse(b)
}

// Parse parses a YAML configuration over the defaults and applies
// environment overrides.
func Parse(b []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse: %w", err)
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// FromEnv returns the defaults with environment overrides applied.
func FromEnv() (Config, error) {
	cfg := Default()
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// ApplyEnv overrides fields from PGOOSE_DIALECT, PGOOSE_HOST, PGOOSE_PORT,
// PGOOSE_DATABASE, PGOOSE_USER, PGOOSE_PASSWORD, PGOOSE_SSLMODE,
// PGOOSE_DEBUG and PGOOSE_SLOW_QUERY.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := map[string]*string{
		"DIALECT":  &c.Dialect,
		"HOST":     &c.Host,
		"DATABASE": &c.Database,
		"USER":     &c.User,
		"PASSWORD": &c.Password,
		"SSLMODE":  &c.SSLMode,
	}
	for name, dst := range str {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}
	if v, ok := lookup(EnvPrefix + "PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: %sPORT: %w", EnvPrefix, err)
		}
		c.Port = port
	}
	if v, ok := lookup(EnvPrefix + "DEBUG"); ok {
		debug, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: %sDEBUG: %w", EnvPrefix, err)
		}
		c.Debug = debug
	}
	if v, ok := lookup(EnvPrefix + "SLOW_QUERY"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: %sSLOW_QUERY: %w", EnvPrefix, err)
		}
		c.SlowQuery = d
	}
	return nil
}

// Validate normalizes the dialect name and checks required fields.
func (c *Config) Validate() error {
	d, err := dialect.Normalize(c.Dialect)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	c.Dialect = d
	if c.Database == "" {
		return fmt.Errorf("config: database is required")
	}
	return nil
}

// DSN returns the data source name for the configured dialect.
func (c Config) DSN() string {
	switch c.Dialect {
	case dialect.MySQL:
		return c.mysqlDSN()
	case dialect.SQLite:
		return c.sqliteDSN()
	default:
		return c.postgresDSN()
	}
}

func (c Config) postgresDSN() string {
	kv := map[string]string{"dbname": c.Database}
	if c.Host != "" {
		kv["host"] = c.Host
	}
	if c.Port != 0 {
		kv["port"] = strconv.Itoa(c.Port)
	}
	if c.User != "" {
		kv["user"] = c.User
	}
	if c.Password != "" {
		kv["password"] = c.Password
	}
	if c.SSLMode != "" {
		kv["sslmode"] = c.SSLMode
	}
	maps.Copy(kv, c.Params)
	parts := make([]string, 0, len(kv))
	for _, k := range slices.Sorted(maps.Keys(kv)) {
		parts = append(parts, k+"="+quoteValue(kv[k]))
	}
	return strings.Join(parts, " ")
}

// quoteValue quotes a lib/pq key/value connection string value.
func quoteValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(v) + "'"
}

func (c Config) mysqlDSN() string {
	mc := mysql.NewConfig()
	mc.User = c.User
	mc.Passwd = c.Password
	mc.DBName = c.Database
	if c.Host != "" {
		mc.Net = "tcp"
		port := c.Port
		// Default carries the PostgreSQL port.
		if port == 0 || port == 5432 {
			port = 3306
		}
		mc.Addr = c.Host + ":" + strconv.Itoa(port)
	}
	mc.ParseTime = true
	if len(c.Params) > 0 {
		mc.Params = maps.Clone(c.Params)
	}
	return mc.FormatDSN()
}

func (c Config) sqliteDSN() string {
	if c.Database == ":memory:" || strings.HasPrefix(c.Database, "file:") {
		return c.Database
	}
	q := url.Values{}
	for k, v := range c.Params {
		q.Set(k, v)
	}
	dsn := "file:" + c.Database
	if len(q) > 0 {
		dsn += "?" + q.Encode()
	}
	return dsn
}
