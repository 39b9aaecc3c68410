/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package config loads the user-editable comicsnet configuration.
// Values come from built-in defaults, then a YAML file, then CN_* environment
// variables. The Postgres password is never written to the file; it lives in
// the OS keyring.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"

	"comicsnet/internal/credits"
	applog "comicsnet/internal/log"
)

type ParserConfig struct {
	// PatternsFile replaces the built-in disambiguation table when set.
	PatternsFile  string   `yaml:"patterns_file"`
	ExtraPatterns []string `yaml:"extra_patterns"`
}

type StorageConfig struct {
	IndexPath string `yaml:"index_path" validate:"required"`
}

type BackendConfig struct {
	DSN       string `yaml:"dsn"`
	User      string `yaml:"user"`
	TimeoutMs int    `yaml:"timeout_ms" validate:"gte=0"`
}

type ExportConfig struct {
	CellSeparator string `yaml:"cell_separator" validate:"required"`
}

type DatasetConfig struct {
	Width  int   `yaml:"width" validate:"gt=0"`
	Height int   `yaml:"height" validate:"gt=0"`
	Seed   int64 `yaml:"seed"`
}

type IngestConfig struct {
	// Workers bounds concurrent parsing; 0 means one per CPU.
	Workers int `yaml:"workers" validate:"gte=0,lte=256"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=debug info warn warning error"`
	Format string `yaml:"format" validate:"omitempty,oneof=console json"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

// AppConfig is the configuration persisted as YAML.
// config_version: bump when the structure changes incompatibly.
type AppConfig struct {
	ConfigVersion int           `yaml:"config_version" validate:"gte=1"`
	Parser        ParserConfig  `yaml:"parser"`
	Storage       StorageConfig `yaml:"storage"`
	Backend       BackendConfig `yaml:"backend"`
	Export        ExportConfig  `yaml:"export"`
	Dataset       DatasetConfig `yaml:"dataset"`
	Ingest        IngestConfig  `yaml:"ingest"`
	Logging       LoggingConfig `yaml:"logging"`
}

// Env var names used as overrides.
const (
	EnvConfigPath    = "CN_CONFIG"
	EnvPatternsFile  = "CN_PATTERNS_FILE"
	EnvIndexPath     = "CN_INDEX_PATH"
	EnvPGDSN         = "CN_PG_DSN"
	EnvPGUser        = "CN_PG_USER"
	EnvCellSeparator = "CN_CELL_SEPARATOR"
	EnvWorkers       = "CN_INGEST_WORKERS"
	EnvLogLevel      = "CN_LOG_LEVEL"
	EnvLogFormat     = "CN_LOG_FORMAT"
	EnvLogSource     = "CN_LOG_SOURCE"
	EnvLogFile       = "CN_LOG_FILE"
)

const (
	keyringService = "comicsnet"
	appDirName     = "comicsnet"
)

// Defaults returns the application defaults.
func Defaults() AppConfig {
	dir, _ := Dir()
	return AppConfig{
		ConfigVersion: 1,
		Storage:       StorageConfig{IndexPath: filepath.Join(dir, "index.sqlite")},
		Backend:       BackendConfig{TimeoutMs: 10000},
		Export:        ExportConfig{CellSeparator: "|"},
		Dataset:       DatasetConfig{Width: 400, Height: 600, Seed: 1},
		Logging:       LoggingConfig{Level: "info", Format: "console"},
	}
}

// Dir returns the per-user configuration directory.
func Dir() (string, error) {
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support")
	default:
		base = os.Getenv("XDG_CONFIG_HOME")
		if base == "" {
			base = filepath.Join(os.Getenv("HOME"), ".config")
		}
	}
	if strings.TrimSpace(base) == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, appDirName), nil
}

// Path returns the config file path, honoring CN_CONFIG.
func Path() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads the default config file (a missing file is fine).
func Load() (AppConfig, error) {
	path, err := Path()
	if err != nil {
		return Defaults(), err
	}
	return LoadFrom(path)
}

// LoadFrom reads the config file at path, merges it over the defaults, applies
// environment overrides and validates the result. A missing file is not an
// error; an unreadable or malformed one is.
func LoadFrom(path string) (AppConfig, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
		mergeInto(&cfg, &fileCfg)
	case !errors.Is(err, os.ErrNotExist):
		return cfg, fmt.Errorf("read %s: %w", path, err)
	}
	applyEnvOverrides(&cfg)
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Save writes cfg as YAML to path.
func Save(path string, cfg AppConfig) error {
	if err := Validate(cfg); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints.
func Validate(cfg AppConfig) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func mergeInto(dst, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	if s := strings.TrimSpace(src.Parser.PatternsFile); s != "" {
		dst.Parser.PatternsFile = s
	}
	dst.Parser.ExtraPatterns = append(dst.Parser.ExtraPatterns, src.Parser.ExtraPatterns...)
	if s := strings.TrimSpace(src.Storage.IndexPath); s != "" {
		dst.Storage.IndexPath = s
	}
	if s := strings.TrimSpace(src.Backend.DSN); s != "" {
		dst.Backend.DSN = s
	}
	if s := strings.TrimSpace(src.Backend.User); s != "" {
		dst.Backend.User = s
	}
	if src.Backend.TimeoutMs != 0 {
		dst.Backend.TimeoutMs = src.Backend.TimeoutMs
	}
	if src.Export.CellSeparator != "" {
		dst.Export.CellSeparator = src.Export.CellSeparator
	}
	if src.Dataset.Width != 0 {
		dst.Dataset.Width = src.Dataset.Width
	}
	if src.Dataset.Height != 0 {
		dst.Dataset.Height = src.Dataset.Height
	}
	if src.Dataset.Seed != 0 {
		dst.Dataset.Seed = src.Dataset.Seed
	}
	if src.Ingest.Workers != 0 {
		dst.Ingest.Workers = src.Ingest.Workers
	}
	if s := strings.TrimSpace(src.Logging.Level); s != "" {
		dst.Logging.Level = strings.ToLower(s)
	}
	if s := strings.TrimSpace(src.Logging.Format); s != "" {
		dst.Logging.Format = strings.ToLower(s)
	}
	dst.Logging.Source = src.Logging.Source
	if s := strings.TrimSpace(src.Logging.File); s != "" {
		dst.Logging.File = s
	}
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvPatternsFile)); v != "" {
		cfg.Parser.PatternsFile = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvIndexPath)); v != "" {
		cfg.Storage.IndexPath = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvPGDSN)); v != "" {
		cfg.Backend.DSN = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvPGUser)); v != "" {
		cfg.Backend.User = v
	}
	if v := os.Getenv(EnvCellSeparator); v != "" {
		cfg.Export.CellSeparator = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvWorkers)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Ingest.Workers = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		lv := strings.ToLower(v)
		cfg.Logging.Source = lv == "1" || lv == "true" || lv == "on" || lv == "yes"
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

// EnvOverrideFor returns the env var overriding a dotted config key, if set.
func EnvOverrideFor(key string) (string, bool) {
	env, ok := map[string]string{
		"parser.patterns_file":  EnvPatternsFile,
		"storage.index_path":    EnvIndexPath,
		"backend.dsn":           EnvPGDSN,
		"backend.user":          EnvPGUser,
		"export.cell_separator": EnvCellSeparator,
		"ingest.workers":        EnvWorkers,
		"logging.level":         EnvLogLevel,
		"logging.format":        EnvLogFormat,
		"logging.source":        EnvLogSource,
		"logging.file":          EnvLogFile,
	}[key]
	if !ok || os.Getenv(env) == "" {
		return "", false
	}
	return env, true
}

// LogOptions maps the logging section onto logger options.
func (l LoggingConfig) LogOptions() applog.Options {
	return applog.Options{Level: l.Level, Format: l.Format, AddSource: l.Source, File: l.File}
}

// Table builds the disambiguation table: the patterns file (or the built-in
// table) followed by the extra patterns.
func (p ParserConfig) Table() (*credits.Table, error) {
	tbl := credits.DefaultTable()
	if p.PatternsFile != "" {
		t, err := credits.LoadTableFile(p.PatternsFile)
		if err != nil {
			return nil, err
		}
		tbl = t
	}
	if len(p.ExtraPatterns) > 0 {
		tbl = tbl.With(p.ExtraPatterns...)
	}
	return tbl, nil
}

// ConnString returns the DSN with the configured user and password applied.
// DSNs that are not URLs are returned unchanged.
func (b BackendConfig) ConnString(password string) (string, error) {
	if strings.TrimSpace(b.DSN) == "" {
		return "", errors.New("backend dsn is not configured")
	}
	u, err := url.Parse(b.DSN)
	if err != nil || u.Scheme == "" {
		return b.DSN, nil
	}
	user := b.User
	if user == "" && u.User != nil {
		user = u.User.Username()
	}
	if user != "" {
		if password != "" {
			u.User = url.UserPassword(user, password)
		} else {
			u.User = url.User(user)
		}
	}
	return u.String(), nil
}

// SecretStore abstracts the OS keyring so tests can substitute it.
type SecretStore interface {
	Get(service, user string) (string, error)
	Set(service, user, password string) error
	Delete(service, user string) error
}

type osKeyring struct{}

func (osKeyring) Get(service, user string) (string, error) { return keyring.Get(service, user) }
func (osKeyring) Set(service, user, password string) error { return keyring.Set(service, user, password) }
func (osKeyring) Delete(service, user string) error { return keyring.Delete(service, user) }

var secrets SecretStore = osKeyring{}

// BackendPassword reads the Postgres password for user from the keyring.
// A missing entry yields "" and no error.
func BackendPassword(user string) (string, error) {
	pw, err := secrets.Get(keyringService, user)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", nil
	}
	return pw, err
}

// SetBackendPassword stores the Postgres password; an empty password deletes it.
func SetBackendPassword(user, password string) error {
	if strings.TrimSpace(user) == "" {
		return errors.New("backend user is required")
	}
	if password == "" {
		err := secrets.Delete(keyringService, user)
		if errors.Is(err, keyring.ErrNotFound) {
			return nil
		}
		return err
	}
	return secrets.Set(keyringService, user, password)
}
