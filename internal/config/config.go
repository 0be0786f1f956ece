package config

import (
	"flag"
	"log"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/MicroPhone1/App-HelpPeople/internal/model"
)

// Config holds the application configuration, shared by the relay server
// and the sender/watch client subcommands.
type Config struct {
	// Server side
	Listen      string   `yaml:"listen" env:"HELPPEOPLE_LISTEN"`
	Origins     []string `yaml:"origins" env:"HELPPEOPLE_ORIGINS" envSeparator:","`
	HistorySize int      `yaml:"history_size" env:"HELPPEOPLE_HISTORY_SIZE"`
	Production  bool     `yaml:"production" env:"HELPPEOPLE_PRODUCTION"`
	PidFile     string   `yaml:"pid_file" env:"HELPPEOPLE_PID_FILE"`
	LogFile     string   `yaml:"log_file" env:"HELPPEOPLE_LOG_FILE"`

	// Client side
	ServerURL         string `yaml:"server_url" env:"HELPPEOPLE_SERVER_URL"`
	ReconnectAttempts int    `yaml:"reconnect_attempts" env:"HELPPEOPLE_RECONNECT_ATTEMPTS"`
	ReconnectDelayMS  int    `yaml:"reconnect_delay_ms" env:"HELPPEOPLE_RECONNECT_DELAY_MS"`

	// Trigger table for the sender session (YAML only; empty = built-in).
	Triggers []model.Trigger `yaml:"triggers" env:"-"`

	// Parsed from command line (not YAML)
	ConfigPath string `yaml:"-" env:"-"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:            ":4000",
		Origins:           []string{"http://localhost:3000"},
		HistorySize:       100,
		Production:        false,
		PidFile:           "helppeople.pid",
		LogFile:           "helppeople.log",
		ServerURL:         "ws://localhost:4000/ws",
		ReconnectAttempts: 5,
		ReconnectDelayMS:  1000,
		ConfigPath:        "config.yaml",
	}
}

// ReconnectDelay returns the inter-attempt reconnect delay as a Duration.
func (c *Config) ReconnectDelay() time.Duration {
	return time.Duration(c.ReconnectDelayMS) * time.Millisecond
}

// Load reads configuration with priority: defaults < config.yaml < env vars
// < flags. It expects os.Args to already have the subcommand stripped.
func Load() *Config {
	cfg := DefaultConfig()

	// 1) Pre-scan for -config flag before parsing (so we know which file to read)
	configPath := cfg.ConfigPath
	for i, arg := range os.Args[1:] {
		if arg == "-config" || arg == "--config" {
			if i+1 < len(os.Args)-1 {
				configPath = os.Args[i+2]
			}
		} else if strings.HasPrefix(arg, "-config=") || strings.HasPrefix(arg, "--config=") {
			configPath = strings.SplitN(arg, "=", 2)[1]
		}
	}

	// 2) Load YAML config file
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			log.Printf("[config] warning: failed to parse %s: %v", configPath, err)
		} else {
			log.Printf("[config] loaded %s", configPath)
		}
	}
	cfg.ConfigPath = configPath

	// 3) Environment variables override YAML (.env honored when present)
	if err := godotenv.Load(); err == nil {
		log.Printf("[config] loaded .env")
	}
	if err := env.Parse(cfg); err != nil {
		log.Printf("[config] warning: failed to parse environment: %v", err)
	}

	// 4) Flags override everything
	var origins string
	flag.StringVar(&cfg.ConfigPath, "config", cfg.ConfigPath, "Path to config.yaml")
	flag.StringVar(&cfg.Listen, "listen", cfg.Listen, "HTTP listen address (host:port)")
	flag.StringVar(&origins, "origins", "", "Comma-separated allowed origins")
	flag.IntVar(&cfg.HistorySize, "history", cfg.HistorySize, "Alert history capacity")
	flag.BoolVar(&cfg.Production, "production", cfg.Production, "Disable destructive dev endpoints")
	flag.StringVar(&cfg.PidFile, "pid-file", cfg.PidFile, "PID file path")
	flag.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "Log file path")
	flag.StringVar(&cfg.ServerURL, "server", cfg.ServerURL, "Relay server websocket URL")
	flag.Parse()

	if origins != "" {
		cfg.Origins = splitOrigins(origins)
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = DefaultConfig().HistorySize
	}

	return cfg
}

func splitOrigins(s string) []string {
	var out []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
