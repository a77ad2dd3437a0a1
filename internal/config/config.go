package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const (
	envDataDir   = "INSIGHTVIEW_DATA_DIR"
	envDataFile  = "INSIGHTVIEW_DATA_FILE"
	envServerURL = "INSIGHTVIEW_SERVER_URL"

	dataFileName = "jsondata.json"
	dbFileName   = "insights.db"
)

// Config holds all application configuration.
type Config struct {
	Host          string        `json:"host"`
	Port          int           `json:"port"`
	DataDir       string        `json:"data_dir"`
	DBPath        string        `json:"-"`
	DataFile      string        `json:"data_file"`
	ServerURL     string        `json:"server_url"`
	NoWatch       bool          `json:"no_watch"`
	WriteTimeout  time.Duration `json:"-"`
	WatchDebounce time.Duration `json:"-"`
}

// Default returns a Config with default values.
func Default() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, fmt.Errorf(
			"determining home directory: %w", err,
		)
	}
	dataDir := filepath.Join(home, ".insightview")
	return Config{
		Host:          "127.0.0.1",
		Port:          8080,
		DataDir:       dataDir,
		DBPath:        filepath.Join(dataDir, dbFileName),
		DataFile:      filepath.Join(dataDir, dataFileName),
		ServerURL:     "http://127.0.0.1:8080",
		WriteTimeout:  30 * time.Second,
		WatchDebounce: 500 * time.Millisecond,
	}, nil
}

// Load builds a Config by layering: defaults < config file < env < flags.
// The provided FlagSet must already be parsed by the caller.
// Only flags that were explicitly set override the lower layers.
func Load(fs *flag.FlagSet) (Config, error) {
	cfg, err := LoadMinimal()
	if err != nil {
		return cfg, err
	}
	applyFlags(&cfg, fs)
	return cfg, nil
}

// LoadMinimal builds a Config from defaults, config file, and
// env, without parsing CLI flags. Use this for subcommands that
// manage their own flag sets.
func LoadMinimal() (Config, error) {
	cfg, err := Default()
	if err != nil {
		return cfg, err
	}
	// The data dir locates config.json, so its env override
	// applies before the file is read.
	if v := os.Getenv(envDataDir); v != "" {
		cfg.DataDir = v
		cfg.DataFile = filepath.Join(v, dataFileName)
	}
	if err := cfg.loadFile(); err != nil {
		return cfg, fmt.Errorf("loading config file: %w", err)
	}
	cfg.loadEnv()
	cfg.DBPath = filepath.Join(cfg.DataDir, dbFileName)
	return cfg, nil
}

func (c *Config) configPath() string {
	return filepath.Join(c.DataDir, "config.json")
}

func (c *Config) loadFile() error {
	data, err := os.ReadFile(c.configPath())
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	var file struct {
		Host         string `json:"host"`
		Port         int    `json:"port"`
		DataFile     string `json:"data_file"`
		ServerURL    string `json:"server_url"`
		NoWatch      bool   `json:"no_watch"`
		WriteTimeout string `json:"write_timeout"`
	}
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parsing config: %w", err)
	}
	if file.Host != "" {
		c.Host = file.Host
	}
	if file.Port != 0 {
		c.Port = file.Port
	}
	if file.DataFile != "" {
		c.DataFile = c.resolvePath(file.DataFile)
	}
	if file.ServerURL != "" {
		c.ServerURL = file.ServerURL
	}
	if file.NoWatch {
		c.NoWatch = true
	}
	if file.WriteTimeout != "" {
		d, err := time.ParseDuration(file.WriteTimeout)
		if err != nil {
			return fmt.Errorf("parsing write_timeout: %w", err)
		}
		c.WriteTimeout = d
	}
	return nil
}

// resolvePath makes a relative path relative to the data dir.
func (c *Config) resolvePath(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.DataDir, p)
}

func (c *Config) loadEnv() {
	if v := os.Getenv(envDataFile); v != "" {
		c.DataFile = v
	}
	if v := os.Getenv(envServerURL); v != "" {
		c.ServerURL = v
	}
}

// RegisterServeFlags registers serve-command flags on fs.
// The caller must call fs.Parse before passing fs to Load.
func RegisterServeFlags(fs *flag.FlagSet) {
	fs.String("host", "127.0.0.1", "Host to bind to")
	fs.Int("port", 8080, "Port to listen on")
	fs.String("data-file", "", "Dataset JSON file to load and watch")
	fs.Bool(
		"no-watch", false,
		"Don't reload the dataset file when it changes",
	)
}

// applyFlags copies explicitly-set flags from fs into cfg.
func applyFlags(cfg *Config, fs *flag.FlagSet) {
	if fs == nil {
		return
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "host":
			cfg.Host = f.Value.String()
		case "port":
			// flag already validated the int; ignore parse error
			cfg.Port, _ = strconv.Atoi(f.Value.String())
		case "data-file":
			cfg.DataFile = f.Value.String()
		case "no-watch":
			cfg.NoWatch = f.Value.String() == "true"
		case "server":
			cfg.ServerURL = f.Value.String()
		}
	})
}

// ResolveDataDir returns the effective data directory by applying
// defaults and environment overrides, without reading any files.
func ResolveDataDir() (string, error) {
	cfg, err := Default()
	if err != nil {
		return "", err
	}
	if v := os.Getenv(envDataDir); v != "" {
		cfg.DataDir = v
	}
	return cfg.DataDir, nil
}

// SaveDataFile persists path as the default dataset file,
// keeping any other keys already in the config file.
func (c *Config) SaveDataFile(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", path, err)
	}
	if err := os.MkdirAll(c.DataDir, 0o700); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}

	existing := make(map[string]any)
	data, err := os.ReadFile(c.configPath())
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err == nil {
		if err := json.Unmarshal(data, &existing); err != nil {
			return fmt.Errorf(
				"existing config is invalid, cannot update: %w",
				err,
			)
		}
	}

	existing["data_file"] = abs
	out, err := json.MarshalIndent(existing, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(c.configPath(), out, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	c.DataFile = abs
	return nil
}
