// Package config содержит логику чтения конфигурации сервиса сверки наличных.
package config

import (
	"flag"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const (
	defaultRunAddress   = "localhost:8080"
	defaultSMTPPort     = 587
	defaultMailFromName = "EAGLE 3.0"
)

// Config содержит параметры конфигурации сервиса сверки наличных.
type Config struct {
	RunAddress    string `env:"RUN_ADDRESS" yaml:"run_address"`
	DatabaseURI   string `env:"DATABASE_URI" yaml:"database_uri"`
	SessionSecret string `env:"SESSION_SECRET" yaml:"session_secret"`
	ConfigFile    string `env:"CONFIG_FILE" yaml:"-"`

	SMTPHost     string `env:"SMTP_HOST" yaml:"smtp_host"`
	SMTPPort     int    `env:"SMTP_PORT" yaml:"smtp_port"`
	SMTPUsername string `env:"SMTP_USERNAME" yaml:"smtp_username"`
	SMTPPassword string `env:"SMTP_PASSWORD" yaml:"smtp_password"`
	MailFrom     string `env:"MAIL_FROM" yaml:"mail_from"`
	MailFromName string `env:"MAIL_FROM_NAME" yaml:"mail_from_name"`

	EnsureStatusColumn bool `env:"ENSURE_STATUS_COLUMN" yaml:"ensure_status_column"`
}

// MailEnabled сообщает, настроена ли отправка писем.
func (c *Config) MailEnabled() bool {
	return c.SMTPHost != ""
}

func defaultConfig() *Config {
	return &Config{
		RunAddress:         defaultRunAddress,
		SMTPPort:           defaultSMTPPort,
		MailFromName:       defaultMailFromName,
		EnsureStatusColumn: true,
	}
}

// Parse считывает конфигурацию. Приоритет по возрастанию: значения по умолчанию,
// YAML-файл (-c или CONFIG_FILE), флаги командной строки, переменные окружения.
func Parse() (*Config, error) {
	cfg := defaultConfig()

	var flagRunAddress, flagDatabaseURI, flagSessionSecret, flagConfigFile string

	flag.StringVar(&flagRunAddress, "a", defaultRunAddress, "address and port for HTTP server")
	flag.StringVar(&flagDatabaseURI, "d", "", "database URI")
	flag.StringVar(&flagSessionSecret, "s", "", "session signing secret")
	flag.StringVar(&flagConfigFile, "c", "", "path to YAML config file")

	flag.Parse()

	setFlags := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) {
		setFlags[f.Name] = true
	})

	configFile := flagConfigFile
	if v := os.Getenv("CONFIG_FILE"); v != "" {
		configFile = v
	}
	if configFile != "" {
		if err := loadFile(configFile, cfg); err != nil {
			return nil, err
		}
	}

	if setFlags["a"] {
		cfg.RunAddress = flagRunAddress
	}
	if setFlags["d"] {
		cfg.DatabaseURI = flagDatabaseURI
	}
	if setFlags["s"] {
		cfg.SessionSecret = flagSessionSecret
	}
	cfg.ConfigFile = configFile

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = defaultRunAddress
	}

	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}
