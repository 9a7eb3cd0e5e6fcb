// Package appconf holds the process-wide configuration for the commute service.
package appconf

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Environment int

const (
	Development Environment = iota
	Test
	Production
)

func (e Environment) String() string {
	switch e {
	case Test:
		return "test"
	case Production:
		return "production"
	default:
		return "development"
	}
}

// ParseEnvironment accepts the names produced by String plus the usual short forms.
func ParseEnvironment(s string) (Environment, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "dev", "development":
		return Development, nil
	case "test":
		return Test, nil
	case "prod", "production":
		return Production, nil
	}
	return Development, fmt.Errorf("unknown environment %q", s)
}

func (e Environment) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.String())
}

func (e *Environment) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseEnvironment(s)
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}

// Supported database drivers.
const (
	DriverSQLite3  = "sqlite3" // mattn/go-sqlite3, cgo
	DriverSQLite   = "sqlite"  // modernc.org/sqlite, pure Go
	DriverPostgres = "pgx"     // jackc/pgx/v5 stdlib
)

const (
	DefaultMatchRadiusMeters         = 200.0
	DefaultStopPassedThresholdMeters = 100.0
	DefaultNearbySearchRadiusMeters  = 500.0
	DefaultTrackingSessionTTL        = 3 * time.Hour
)

type Config struct {
	Port      int         `json:"port"`
	Env       Environment `json:"env"`
	Verbose   bool        `json:"verbose"`
	ApiKeys   []string    `json:"api_keys"`
	RateLimit int         `json:"rate_limit"`

	// RateLimitExemptKeys are API keys that bypass rate limiting.
	RateLimitExemptKeys []string `json:"rate_limit_exempt_keys"`

	DatabaseDriver string `json:"database_driver"`
	DatabaseDSN    string `json:"database_dsn"`

	// Timezone names the zone used to bucket trips by hour and weekday.
	Timezone string `json:"timezone"`

	MatchRadiusMeters         float64 `json:"match_radius_meters"`
	StopPassedThresholdMeters float64 `json:"stop_passed_threshold_meters"`
	NearbySearchRadiusMeters  float64 `json:"nearby_search_radius_meters"`
	RankByRecency             bool    `json:"rank_by_recency"`

	TrackingSessionTTL time.Duration `json:"-"`

	GTFSStaticPath string `json:"gtfs_static_path"`

	NATSURL           string `json:"nats_url"`
	NATSSubjectPrefix string `json:"nats_subject_prefix"`
	RedisURL          string `json:"redis_url"`
	RedisChannel      string `json:"redis_channel"`
}

// Defaults returns the configuration used when nothing else is supplied.
func Defaults() Config {
	return Config{
		Port:                      4000,
		Env:                       Development,
		RateLimit:                 100,
		DatabaseDriver:            DriverSQLite3,
		DatabaseDSN:               "commute.db",
		Timezone:                  "America/New_York",
		MatchRadiusMeters:         DefaultMatchRadiusMeters,
		StopPassedThresholdMeters: DefaultStopPassedThresholdMeters,
		NearbySearchRadiusMeters:  DefaultNearbySearchRadiusMeters,
		TrackingSessionTTL:        DefaultTrackingSessionTTL,
		NATSSubjectPrefix:         "commute",
		RedisChannel:              "commute.events",
	}
}

// LoadFromFile reads a JSON settings file on top of Defaults. Keys missing
// from the file keep their default values.
func LoadFromFile(path string) (Config, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv loads a .env file when present and overrides cfg with any
// COMMUTE_* variables that are set.
func ApplyEnv(cfg Config) (Config, error) {
	_ = godotenv.Load()

	var errs []error
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setFloat := func(key string, dst *float64) {
		if v := os.Getenv(key); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("invalid %s: %q", key, v))
				return
			}
			*dst = f
		}
	}
	setInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("invalid %s: %q", key, v))
				return
			}
			*dst = n
		}
	}
	setBool := func(key string, dst *bool) {
		if v := os.Getenv(key); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("invalid %s: %q", key, v))
				return
			}
			*dst = b
		}
	}

	if v := os.Getenv("COMMUTE_ENV"); v != "" {
		env, err := ParseEnvironment(v)
		if err != nil {
			errs = append(errs, err)
		} else {
			cfg.Env = env
		}
	}
	if v := os.Getenv("COMMUTE_API_KEYS"); v != "" {
		cfg.ApiKeys = ParseAPIKeys(v)
	}
	if v := os.Getenv("COMMUTE_RATE_LIMIT_EXEMPT_KEYS"); v != "" {
		cfg.RateLimitExemptKeys = ParseAPIKeys(v)
	}
	setInt("COMMUTE_PORT", &cfg.Port)
	setInt("COMMUTE_RATE_LIMIT", &cfg.RateLimit)
	setBool("COMMUTE_VERBOSE", &cfg.Verbose)
	setString("COMMUTE_DB_DRIVER", &cfg.DatabaseDriver)
	setString("COMMUTE_DB_DSN", &cfg.DatabaseDSN)
	setString("COMMUTE_TIMEZONE", &cfg.Timezone)
	setFloat("COMMUTE_MATCH_RADIUS_METERS", &cfg.MatchRadiusMeters)
	setFloat("COMMUTE_STOP_PASSED_THRESHOLD_METERS", &cfg.StopPassedThresholdMeters)
	setFloat("COMMUTE_NEARBY_RADIUS_METERS", &cfg.NearbySearchRadiusMeters)
	setBool("COMMUTE_RANK_BY_RECENCY", &cfg.RankByRecency)
	setString("COMMUTE_GTFS_STATIC_PATH", &cfg.GTFSStaticPath)
	setString("COMMUTE_NATS_URL", &cfg.NATSURL)
	setString("COMMUTE_NATS_SUBJECT_PREFIX", &cfg.NATSSubjectPrefix)
	setString("COMMUTE_REDIS_URL", &cfg.RedisURL)
	setString("COMMUTE_REDIS_CHANNEL", &cfg.RedisChannel)

	if len(errs) > 0 {
		return cfg, errors.Join(errs...)
	}
	return cfg, nil
}

// ParseAPIKeys splits a comma separated key list, dropping blanks.
func ParseAPIKeys(s string) []string {
	keys := []string{}
	for _, k := range strings.Split(s, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

// Location resolves Timezone. An empty name means UTC.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port out of range: %d", c.Port))
	}
	if c.MatchRadiusMeters <= 0 {
		errs = append(errs, fmt.Errorf("match_radius_meters must be positive, got %v", c.MatchRadiusMeters))
	}
	if c.StopPassedThresholdMeters <= 0 {
		errs = append(errs, fmt.Errorf("stop_passed_threshold_meters must be positive, got %v", c.StopPassedThresholdMeters))
	}
	if c.NearbySearchRadiusMeters <= 0 {
		errs = append(errs, fmt.Errorf("nearby_search_radius_meters must be positive, got %v", c.NearbySearchRadiusMeters))
	}
	switch c.DatabaseDriver {
	case DriverSQLite3, DriverSQLite, DriverPostgres:
	default:
		errs = append(errs, fmt.Errorf("unsupported database_driver %q", c.DatabaseDriver))
	}
	if c.DatabaseDSN == "" {
		errs = append(errs, errors.New("database_dsn is required"))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
