// Package config loads the settings of projcheck from a YAML file and
// PROJCHECK_* environment variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

const (
	BackendNative = "native"
	BackendWASM   = "wasm"
)

// Prefix of the environment variables that override the file
const EnvPrefix = "PROJCHECK_"

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or console
	Output string `yaml:"output"` // stdout, stderr or a file
}

type Config struct {
	Backend  string `yaml:"backend"`
	WASMPath string `yaml:"wasm_path"`
	// Directory with proj.db and grids, mounted into the wasm module
	DataDir     string   `yaml:"data_dir"`
	SearchPaths []string `yaml:"search_paths"`
	ProjDB      string   `yaml:"proj_db"`
	Log         Log      `yaml:"log"`

	Cases       []string `yaml:"cases"`
	Tolerance   float64  `yaml:"tolerance"`
	KeeperDebug bool     `yaml:"keeper_debug"`
}

func Default() Config {
	return Config{
		Backend: BackendNative,
		Log: Log{
			Level:  "info",
			Format: "console",
			Output: "stderr",
		},
		Tolerance: 1e-3,
	}
}

// Error is a failure to load or validate a configuration
type Error struct {
	Op   string
	Path string // empty if not about a file
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	s := "config: " + e.Op
	if e.Path != "" {
		s += " (path=" + e.Path + ")"
	}
	return s + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Load reads the file at path over the defaults, then applies the
// environment. An empty path skips the file. The result is validated.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, &Error{Op: "load", Path: path, Err: err}
		}
		dec := yaml.NewDecoder(bytes.NewReader(b))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, &Error{Op: "decode", Path: path, Err: err}
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}
	list := func(name string, split func(string) []string, dst *[]string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = nil
			for _, s := range split(v) {
				if s = strings.TrimSpace(s); s != "" {
					*dst = append(*dst, s)
				}
			}
		}
	}

	str("BACKEND", &c.Backend)
	str("WASM", &c.WASMPath)
	str("DATA_DIR", &c.DataDir)
	list("SEARCH_PATHS", filepath.SplitList, &c.SearchPaths)
	str("PROJ_DB", &c.ProjDB)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)
	str("LOG_OUTPUT", &c.Log.Output)
	list("CASES", func(s string) []string { return strings.Split(s, ",") }, &c.Cases)

	if v, ok := lookup(EnvPrefix + "TOLERANCE"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return &Error{Op: "env", Err: fmt.Errorf("%sTOLERANCE: %w", EnvPrefix, err)}
		}
		c.Tolerance = f
	}
	if v, ok := lookup(EnvPrefix + "KEEPER_DEBUG"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return &Error{Op: "env", Err: fmt.Errorf("%sKEEPER_DEBUG: %w", EnvPrefix, err)}
		}
		c.KeeperDebug = b
	}
	return nil
}

func (c Config) Validate() error {
	invalid := func(format string, a ...any) error {
		return &Error{Op: "validate", Err: fmt.Errorf(format, a...)}
	}
	switch c.Backend {
	case BackendNative:
	case BackendWASM:
		if c.WASMPath == "" {
			return invalid("backend %s needs wasm_path", BackendWASM)
		}
	default:
		return invalid("unknown backend %q", c.Backend)
	}
	if !(c.Tolerance > 0) {
		return invalid("tolerance must be positive, got %g", c.Tolerance)
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return invalid("log level: %v", err)
	}
	if c.Log.Format != "json" && c.Log.Format != "console" {
		return invalid("unknown log format %q", c.Log.Format)
	}
	return nil
}

// SearchPath joins the search paths the way PROJ lists them
func (c Config) SearchPath() string {
	return strings.Join(c.SearchPaths, string(os.PathListSeparator))
}
