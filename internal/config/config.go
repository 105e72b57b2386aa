package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application level configuration aggregated from env/config files.
type Config struct {
	Database struct {
		Path string `validate:"required"`
	}
	Backup struct {
		Enabled bool
		Dir     string `validate:"required_if=Enabled true"`
		Keep    int    `validate:"min=0"`
	}
	Storage struct {
		Bucket    string
		KeyPrefix string
		Region    string `validate:"required_with=Bucket"`
		Endpoint  string `validate:"omitempty,url"`
	}
	AWS struct {
		Profile string
	}
	Log struct {
		Level string
	}
	Auth struct {
		KDFIterations int `validate:"gte=0"`
	}
}

// Load reads configuration from environment variables and optional config files.
// Existing environment variables win over values from a .env file.
func Load() (Config, error) {
	_ = godotenv.Load() // optional file

	v := viper.New()
	v.SetEnvPrefix("NOTEKEEPER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	v.SetConfigName("config")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	return unmarshal(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.path", "data/users.db")
	v.SetDefault("backup.enabled", true)
	v.SetDefault("backup.dir", "data/backups")
	v.SetDefault("backup.keep", 10)
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.keyprefix", "notekeeper-backups")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("aws.profile", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("auth.kdfiterations", 100000)
}

func unmarshal(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Database.Path = strings.TrimSpace(cfg.Database.Path)
	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
