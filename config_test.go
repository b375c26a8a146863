package main

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "ddlferry.toml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
engine = "mysql"
dsn = "root:root@tcp(127.0.0.1:3306)/"
workers = 3

[metadata]
enabled = true
database = "pma"
create_store = true

[table_defaults]
engine = "InnoDB"
charset = "utf8mb4"

[hooks]
after_ddl = ["grants.sql"]
`)

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig() error: %v", err)
	}
	if cfg.Engine != "mysql" || cfg.DSN != "root:root@tcp(127.0.0.1:3306)/" {
		t.Errorf("Engine = %q, DSN = %q", cfg.Engine, cfg.DSN)
	}
	if cfg.Workers != 3 {
		t.Errorf("Workers = %d, want 3", cfg.Workers)
	}
	if !cfg.Metadata.Enabled || !cfg.Metadata.CreateStore || cfg.Metadata.Database != "pma" {
		t.Errorf("Metadata = %+v", cfg.Metadata)
	}
	if cfg.Metadata.Table != "pma__column_info" {
		t.Errorf("Metadata.Table = %q, want pma__column_info", cfg.Metadata.Table)
	}
	if cfg.TableDefaults.Engine != "InnoDB" || cfg.TableDefaults.Charset != "utf8mb4" {
		t.Errorf("TableDefaults = %+v", cfg.TableDefaults)
	}
	if cfg.configDir != dir {
		t.Errorf("configDir = %q, want %q", cfg.configDir, dir)
	}
	if got := cfg.resolvePath(cfg.Hooks.AfterDDL[0]); got != filepath.Join(dir, "grants.sql") {
		t.Errorf("resolvePath() = %q", got)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	tests := []struct {
		engine     string
		metadataDB string
		maxWorkers int
	}{
		{"mysql", "phpmyadmin", 0},
		{"postgres", "public", 0},
		{"sqlite", "main", 1},
	}

	for _, tt := range tests {
		t.Run(tt.engine, func(t *testing.T) {
			path := writeConfig(t, t.TempDir(), `
engine = "`+tt.engine+`"
dsn = "x"
`)
			cfg, err := loadConfig(path)
			if err != nil {
				t.Fatalf("loadConfig() error: %v", err)
			}
			if cfg.Metadata.Database != tt.metadataDB {
				t.Errorf("Metadata.Database = %q, want %q", cfg.Metadata.Database, tt.metadataDB)
			}
			if cfg.Metadata.Enabled {
				t.Error("Metadata.Enabled should default to false")
			}
			want := defaultWorkers()
			if tt.maxWorkers > 0 && want > tt.maxWorkers {
				want = tt.maxWorkers
			}
			if cfg.Workers != want {
				t.Errorf("Workers = %d, want %d", cfg.Workers, want)
			}
		})
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"missing engine", `dsn = "x"`, "engine is required"},
		{"unknown engine", "engine = \"oracle\"\ndsn = \"x\"", "unsupported engine"},
		{"missing dsn", `engine = "mysql"`, "dsn is required"},
		{"unknown key", "engine = \"mysql\"\ndsn = \"x\"\nschema = \"s\"", "unknown config keys: schema"},
		{"unknown nested key", "engine = \"mysql\"\ndsn = \"x\"\n[metadata]\nbrowse = true", "metadata.browse"},
		{"table defaults on sqlite", "engine = \"sqlite\"\ndsn = \"x\"\n[table_defaults]\nengine = \"InnoDB\"", "MySQL-only"},
		{"table defaults on postgres", "engine = \"postgres\"\ndsn = \"x\"\n[table_defaults]\ncharset = \"utf8\"", "MySQL-only"},
		{"empty metadata table", "engine = \"mysql\"\ndsn = \"x\"\n[metadata]\ntable = \" \"", "metadata.table"},
		{"unset variable", "engine = \"mysql\"\ndsn = \"u:${DDLFERRY_TEST_SURELY_UNSET}@tcp(h)/\"", "DDLFERRY_TEST_SURELY_UNSET"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, t.TempDir(), tt.content)
			_, err := loadConfig(path)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("loadConfig() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadConfig_EnvExpansion(t *testing.T) {
	t.Setenv("DDLFERRY_TEST_USER", "app")

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("DDLFERRY_TEST_DOTENV_PW=s3cret\nDDLFERRY_TEST_USER=ignored\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("DDLFERRY_TEST_DOTENV_PW") })

	path := writeConfig(t, dir, `
engine = "mysql"
dsn = "${DDLFERRY_TEST_USER}:${DDLFERRY_TEST_DOTENV_PW}@tcp(127.0.0.1:3306)/"
`)
	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig() error: %v", err)
	}
	// The process environment wins over .env.
	if cfg.DSN != "app:s3cret@tcp(127.0.0.1:3306)/" {
		t.Errorf("DSN = %q", cfg.DSN)
	}
}

func TestDefaultWorkers(t *testing.T) {
	w := defaultWorkers()
	if w < 1 || w > 8 {
		t.Errorf("defaultWorkers() = %d, want 1-8", w)
	}
	if runtime.NumCPU() <= 8 && w != runtime.NumCPU() {
		t.Errorf("defaultWorkers() = %d, want NumCPU %d", w, runtime.NumCPU())
	}
}
