package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

type ServerConfig struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Icon        string `yaml:"icon,omitempty"`
	Port        string `yaml:"port,omitempty"` // Server port, e.g. ":8080"
	Domain      string `yaml:"domain,omitempty"`

	DatabasePath string `yaml:"database_path,omitempty"`
	UploadsDir   string `yaml:"uploads_dir,omitempty"`

	MaxFileSize int64 `yaml:"max_file_size"` // Max avatar upload size in MB

	// Waiting list policy. Joins against a full post whose start time is
	// within TimeWaitWindow are queued as TIME_WAITING; the status updater
	// promotes TIME_WAITING entries older than TimeWaitPromoteAfter into
	// reserve slots.
	TimeWaitWindow       time.Duration `yaml:"time_wait_window"`
	TimeWaitPromoteAfter time.Duration `yaml:"time_wait_promote_after"`

	// Optional in-process schedule for the status updater, robfig/cron
	// syntax. Empty disables the internal scheduler; an external trigger
	// can always hit the cron endpoint instead.
	CronSpec string `yaml:"cron_spec,omitempty"`

	// Secrets come from the environment, never from the yaml file.
	JWTSecret  string `yaml:"-"`
	CronSecret string `yaml:"-"`
}

var Conf ServerConfig

// LoadConfig reads the yaml config and environment secrets into Conf. A
// missing config file is fine (defaults apply); a malformed one is an error,
// running on silent defaults would mask it.
func LoadConfig(path string) error {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	if f, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(f, &Conf); err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	if Conf.Name == "" {
		Conf.Name = "gamemate"
	}
	if Conf.Port == "" {
		Conf.Port = ":8080"
	}
	if Conf.DatabasePath == "" {
		Conf.DatabasePath = "data/gamemate.db"
	}
	if Conf.UploadsDir == "" {
		Conf.UploadsDir = "uploads"
	}

	// Set default max file size if not specified (10MB)
	if Conf.MaxFileSize == 0 {
		Conf.MaxFileSize = 10
	}
	// Convert MB to bytes for internal use
	Conf.MaxFileSize = Conf.MaxFileSize * 1024 * 1024

	if Conf.TimeWaitWindow == 0 {
		Conf.TimeWaitWindow = 24 * time.Hour
	}
	if Conf.TimeWaitPromoteAfter == 0 {
		Conf.TimeWaitPromoteAfter = 30 * time.Minute
	}

	Conf.JWTSecret = os.Getenv("JWT_SECRET")
	Conf.CronSecret = os.Getenv("CRON_SECRET")

	return nil
}

// SaveConfig saves the current configuration to file
func SaveConfig(path string) error {
	// Durations and byte counts are normalized back before writing
	configCopy := Conf
	configCopy.MaxFileSize = configCopy.MaxFileSize / (1024 * 1024)

	data, err := yaml.Marshal(&configCopy)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
