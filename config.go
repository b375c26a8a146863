package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Config holds the TOML-driven connection and behaviour configuration.
type Config struct {
	Engine        string              `toml:"engine"` // mysql|postgres|sqlite
	DSN           string              `toml:"dsn"`
	Workers       int                 `toml:"workers"`
	Metadata      MetadataConfig      `toml:"metadata"`
	TableDefaults TableDefaultsConfig `toml:"table_defaults"`
	Hooks         HooksConfig         `toml:"hooks"`

	// configDir is the directory containing the TOML file, used to resolve
	// relative hook paths and to locate .env.
	configDir string
}

// MetadataConfig locates the column transformation store.
type MetadataConfig struct {
	Enabled     bool   `toml:"enabled"`
	Database    string `toml:"database"`
	Table       string `toml:"table"`
	CreateStore bool   `toml:"create_store"`
}

func (m MetadataConfig) target() TableTarget {
	return TableTarget{Database: m.Database, Table: m.Table}
}

// TableDefaultsConfig fills CREATE TABLE options the request leaves empty.
type TableDefaultsConfig struct {
	Engine    string `toml:"engine"`
	Charset   string `toml:"charset"`
	Collation string `toml:"collation"`
}

// HooksConfig lists SQL files run around a successful schema change.
type HooksConfig struct {
	BeforeDDL []string `toml:"before_ddl"`
	AfterDDL  []string `toml:"after_ddl"`
}

var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// loadConfig reads a TOML config file and returns a Config with defaults applied.
func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Config{
		Metadata: MetadataConfig{Table: "pma__column_info"},
	}
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if unknown := md.Undecoded(); len(unknown) > 0 {
		keys := make([]string, len(unknown))
		for i, k := range unknown {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}
	cfg.configDir = filepath.Dir(absPath)

	// Variables already set in the environment win over .env.
	if err := godotenv.Load(filepath.Join(cfg.configDir, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	dsn, err := expandEnv(cfg.DSN)
	if err != nil {
		return nil, err
	}
	cfg.DSN = dsn

	if cfg.Engine == "" {
		return nil, fmt.Errorf("engine is required (must be mysql, postgres or sqlite)")
	}
	eng, err := newEngine(cfg.Engine)
	if err != nil {
		return nil, err
	}
	if cfg.DSN == "" {
		return nil, fmt.Errorf("dsn is required")
	}

	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers()
	}
	if max := eng.MaxWorkers(); max > 0 && cfg.Workers > max {
		cfg.Workers = max
	}

	cfg.Metadata.Database = strings.TrimSpace(cfg.Metadata.Database)
	if cfg.Metadata.Database == "" {
		cfg.Metadata.Database = eng.DefaultMetadataDatabase()
	}
	cfg.Metadata.Table = strings.TrimSpace(cfg.Metadata.Table)
	if cfg.Metadata.Table == "" {
		return nil, fmt.Errorf("metadata.table must not be empty")
	}

	if err := eng.ValidateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// expandEnv replaces ${VAR} references. An unset variable is an error.
func expandEnv(s string) (string, error) {
	var missing []string
	out := envRef.ReplaceAllStringFunc(s, func(ref string) string {
		name := envRef.FindStringSubmatch(ref)[1]
		v, ok := os.LookupEnv(name)
		if !ok {
			missing = append(missing, name)
		}
		return v
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("dsn references unset environment variables: %s", strings.Join(missing, ", "))
	}
	return out, nil
}

// resolvePath resolves a path relative to the config file directory.
func (c *Config) resolvePath(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.configDir, p)
}

func defaultWorkers() int {
	n := runtime.NumCPU()
	if n < 1 {
		return 1
	}
	if n > 8 {
		return 8
	}
	return n
}
