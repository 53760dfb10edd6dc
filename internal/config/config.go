package config

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// MustLoad resolves the config path from flags or env and loads it.
// With -dump-config the effective config is printed as YAML and the process exits.
func MustLoad() *Config {
	op := "config.MustLoad()"
	log := slog.With(
		slog.String("op", op),
	)
	defaultConfigPath := "config.yml"

	if err := godotenv.Load(); err == nil {
		log.Info("loaded environment from .env")
	}

	configPath, dump := fetchFlags()

	if configPath == "" {
		log.Warn("config path is empty. Loading default config path",
			slog.String("defaultConfigPath", defaultConfigPath))
		configPath = defaultConfigPath
	}

	cfg := MustLoadPath(configPath)

	if dump {
		out, err := cfg.Dump()
		if err != nil {
			log.Error("cannot dump config", slog.String("error", err.Error()))
			os.Exit(1)
		}
		fmt.Print(string(out))
		os.Exit(0)
	}

	return cfg
}

func MustLoadPath(configPath string) *Config {
	cfg, err := LoadPath(configPath)
	if err != nil {
		log.Fatalf("%s", err.Error())
	}
	return cfg
}

// LoadPath reads the YAML file at configPath and applies environment overrides.
func LoadPath(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("cannot read config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	cfg.configPath = configPath
	return &cfg, nil
}

func (cfg *Config) validate() error {
	switch cfg.DBConfig.Driver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("db.driver must be postgres or memory, got %q", cfg.DBConfig.Driver)
	}
	switch cfg.JudgingConfig.CompletionPolicy {
	case "any_judge", "all_judges":
	case "quorum":
		if cfg.JudgingConfig.Quorum < 1 {
			return fmt.Errorf("judging.quorum must be at least 1")
		}
	default:
		return fmt.Errorf("unknown judging.completionPolicy %q", cfg.JudgingConfig.CompletionPolicy)
	}
	return nil
}

func fetchFlags() (string, bool) {
	op := "config.fetchFlags()"
	log := slog.With(
		slog.String("op", op),
	)

	var res string
	var dump bool

	flag.StringVar(&res, "config", "", "path to config file")
	flag.BoolVar(&dump, "dump-config", false, "print the effective config as YAML and exit")
	flag.Parse()

	if res != "" {
		log.Info("load config path from command line.",
			slog.String("path", res))
		return res, dump
	}
	res = fmt.Sprintf("%s%s",
		os.Getenv("CONFIG_FILEPATH"),
		os.Getenv("CONFIG_FILENAME"))
	log.Info(
		"load config path from env",
		slog.String("CONFIG_FILEPATH", os.Getenv("CONFIG_FILEPATH")),
		slog.String("CONFIG_FILENAME", os.Getenv("CONFIG_FILENAME")),
	)
	return res, dump
}

// Dump renders the config as YAML with secrets masked.
func (cfg *Config) Dump() ([]byte, error) {
	masked := *cfg
	if masked.DBConfig.Password != "" {
		masked.DBConfig.Password = "***"
	}
	if masked.RedisConfig.Password != "" {
		masked.RedisConfig.Password = "***"
	}
	masked.AuthConfig.JWTSecret = "***"
	if masked.NotifyConfig.TelegramToken != "" {
		masked.NotifyConfig.TelegramToken = "***"
	}

	out, err := yaml.Marshal(&masked)
	if err != nil {
		return nil, fmt.Errorf("error config.Dump() marshal: %w", err)
	}
	return out, nil
}

// Path returns the file the config was loaded from.
func (cfg *Config) Path() string {
	return cfg.configPath
}
