package config

import "time"

type Config struct {
	Env            string           `yaml:"env" env:"ENV" env-default:"local"`
	HttpServer     HttpServerConfig `yaml:"httpServer"`
	DBConfig       DBConfig         `yaml:"db" env-required:"true"`
	RedisConfig    RedisConfig      `yaml:"redis"`
	AuthConfig     AuthConfig       `yaml:"auth" env-required:"true"`
	JudgingConfig  JudgingConfig    `yaml:"judging"`
	NotifyConfig   NotifyConfig     `yaml:"notify"`
	ConfigFilePath string           `yaml:"configFilePath" env:"CONFIG_FILEPATH" env-default:""`
	ConfigFileName string           `yaml:"configFileName" env:"CONFIG_FILENAME" env-default:""`
	configPath     string
}

type HttpServerConfig struct {
	Address string        `yaml:"address" env:"HTTP_ADDRESS" env-default:"0.0.0.0"`
	Port    string        `yaml:"port" env:"HTTP_PORT" env-default:"8080"`
	Timeout time.Duration `yaml:"timeout" env-default:"5s"`
}

type DBConfig struct {
	// Driver is "postgres" or "memory".
	Driver   string `yaml:"driver" env:"DB_DRIVER" env-default:"postgres"`
	Host     string `yaml:"host" env:"DB_HOST" env-default:"localhost"`
	Port     string `yaml:"port" env:"DB_PORT" env-default:"5432"`
	Name     string `yaml:"name" env:"DB_NAME" env-default:"postgres"`
	User     string `yaml:"user" env:"DB_USER" env-default:"user"`
	Password string `yaml:"password" env:"DB_PASSWORD" env-default:"password"`
	Schema   string `yaml:"schema" env:"DB_SCHEMA" env-default:"contest_score"`
}

type RedisConfig struct {
	Enabled    bool          `yaml:"enabled" env:"REDIS_ENABLED" env-default:"false"`
	Addr       string        `yaml:"addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	Password   string        `yaml:"password" env:"REDIS_PASSWORD" env-default:""`
	DB         int           `yaml:"db" env:"REDIS_DB" env-default:"0"`
	ResultsTTL time.Duration `yaml:"resultsTTL" env:"REDIS_RESULTS_TTL" env-default:"30s"`
}

type AuthConfig struct {
	JWTSecret string        `yaml:"jwtSecret" env:"JWT_SECRET" env-required:"true"`
	TokenTTL  time.Duration `yaml:"tokenTTL" env:"JWT_TOKEN_TTL" env-default:"24h"`
	// Admins are user IDs holding every capability on every contest.
	Admins []string `yaml:"admins" env:"PLATFORM_ADMINS" env-separator:","`
}

type JudgingConfig struct {
	// CompletionPolicy is one of any_judge, all_judges, quorum.
	CompletionPolicy string `yaml:"completionPolicy" env:"JUDGING_COMPLETION_POLICY" env-default:"any_judge"`
	Quorum           int    `yaml:"quorum" env:"JUDGING_QUORUM" env-default:"1"`
}

type NotifyConfig struct {
	TelegramToken  string `yaml:"telegramToken" env:"TGBOT_APITOKEN" env-default:""`
	TelegramChatID int64  `yaml:"telegramChatID" env:"TGBOT_CHAT_ID" env-default:"0"`
}
