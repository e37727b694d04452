package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const appDirName = "ResumeDriveAgent"

// Config holds application configuration
type Config struct {
	// Gemini backend: "gemini" uses an API key, "vertex" uses a Google Cloud project
	LLMBackend          string  `json:"llm_backend" yaml:"llm_backend"`
	GeminiAPIKey        string  `json:"gemini_api_key,omitempty" yaml:"gemini_api_key,omitempty"`
	GeminiModel         string  `json:"gemini_model" yaml:"gemini_model"`
	GoogleCloudProject  string  `json:"google_cloud_project" yaml:"google_cloud_project"`
	GoogleCloudLocation string  `json:"google_cloud_location" yaml:"google_cloud_location"`
	Temperature         float32 `json:"temperature" yaml:"temperature"`
	RequestDelaySeconds int     `json:"request_delay_seconds" yaml:"request_delay_seconds"`

	// Google Drive credentials
	DriveCredentialsPath string `json:"drive_credentials_path" yaml:"drive_credentials_path"`
	DriveTokenPath       string `json:"drive_token_path" yaml:"drive_token_path"`
	UseServiceAccount    bool   `json:"use_service_account" yaml:"use_service_account"`

	DatabasePath    string `json:"database_path" yaml:"database_path"`
	UploadsDir      string `json:"uploads_dir" yaml:"uploads_dir"`
	SyncDir         string `json:"sync_dir" yaml:"sync_dir"`
	Port            int    `json:"port" yaml:"port"`
	PollIntervalSec int    `json:"poll_interval_seconds" yaml:"poll_interval_seconds"`
	Verbose         bool   `json:"verbose" yaml:"verbose"`
}

// DefaultConfig returns a new config with default values
func DefaultConfig() *Config {
	return &Config{
		LLMBackend:           "gemini",
		GeminiModel:          "gemini-2.5-flash",
		GoogleCloudLocation:  "us-central1",
		Temperature:          0.7,
		RequestDelaySeconds:  4,
		DriveCredentialsPath: "credentials/google_drive_credentials.json",
		DriveTokenPath:       "credentials/token.json",
		UseServiceAccount:    true,
		DatabasePath:         "resume_agent.db",
		UploadsDir:           "uploads",
		SyncDir:              "excel_sync",
		Port:                 8080,
		PollIntervalSec:      60,
	}
}

// GetConfigPath returns the path to the configuration file
// On Windows: %APPDATA%/ResumeDriveAgent/config.json
// On Unix: ~/.config/ResumeDriveAgent/config.json
func GetConfigPath() (string, error) {
	var configDir string

	if os.Getenv("APPDATA") != "" {
		configDir = filepath.Join(os.Getenv("APPDATA"), appDirName)
	} else {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get user home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config", appDirName)
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return filepath.Join(configDir, "config.json"), nil
}

// Load loads configuration from the default config path, then applies .env and environment overrides
func Load() (*Config, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	return LoadFrom(configPath)
}

// LoadFrom loads configuration from a specific path. A missing file yields defaults.
func LoadFrom(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	config := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if isYAML(path) {
			err = yaml.Unmarshal(data, config)
		} else {
			err = json.Unmarshal(data, config)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config.applyEnv()
	return config, nil
}

// Save saves the configuration to the default config path
func (c *Config) Save() error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	return c.SaveTo(configPath)
}

// SaveTo saves the configuration to a specific path
func (c *Config) SaveTo(path string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.LLMBackend {
	case "gemini":
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("gemini_api_key is required for the gemini backend")
		}
	case "vertex":
		if c.GoogleCloudProject == "" {
			return fmt.Errorf("google_cloud_project is required for the vertex backend")
		}
		if c.GoogleCloudLocation == "" {
			return fmt.Errorf("google_cloud_location is required for the vertex backend")
		}
	default:
		return fmt.Errorf("unknown llm_backend %q", c.LLMBackend)
	}

	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.PollIntervalSec <= 0 {
		return fmt.Errorf("poll_interval_seconds must be positive")
	}
	if c.DatabasePath == "" {
		return fmt.Errorf("database_path is required")
	}

	return nil
}

// ValidateDrive checks that Drive credentials are available
func (c *Config) ValidateDrive() error {
	if c.DriveCredentialsPath == "" {
		return fmt.Errorf("drive_credentials_path is required")
	}
	if _, err := os.Stat(c.DriveCredentialsPath); err != nil {
		return fmt.Errorf("google drive credentials file not found: %w", err)
	}
	return nil
}

// PollInterval returns the monitor interval
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSec) * time.Second
}

// RequestDelay returns the minimum spacing between LLM requests
func (c *Config) RequestDelay() time.Duration {
	return time.Duration(c.RequestDelaySeconds) * time.Second
}

// ApplyToEnv applies configuration values to environment variables
func (c *Config) ApplyToEnv() {
	if c.GoogleCloudProject != "" {
		os.Setenv("GOOGLE_CLOUD_PROJECT", c.GoogleCloudProject)
	}
	if c.GoogleCloudLocation != "" {
		os.Setenv("GOOGLE_CLOUD_LOCATION", c.GoogleCloudLocation)
	}
	if c.UseServiceAccount && c.DriveCredentialsPath != "" {
		os.Setenv("GOOGLE_APPLICATION_CREDENTIALS", c.DriveCredentialsPath)
	}
}

func (c *Config) applyEnv() {
	setString(&c.GeminiAPIKey, "GEMINI_API_KEY")
	setString(&c.GeminiModel, "GEMINI_MODEL")
	setString(&c.LLMBackend, "LLM_BACKEND")
	setString(&c.GoogleCloudProject, "GOOGLE_CLOUD_PROJECT")
	setString(&c.GoogleCloudLocation, "GOOGLE_CLOUD_LOCATION")
	setString(&c.DriveCredentialsPath, "GOOGLE_DRIVE_CREDENTIALS_FILE")
	setString(&c.DriveTokenPath, "GOOGLE_DRIVE_TOKEN_FILE")
	setString(&c.DatabasePath, "DATABASE_PATH")
	setString(&c.UploadsDir, "UPLOADS_DIR")
	setString(&c.SyncDir, "SYNC_DIR")

	if v := os.Getenv("GOOGLE_DRIVE_USE_SERVICE_ACCOUNT"); v != "" {
		c.UseServiceAccount = strings.EqualFold(v, "true") || v == "1"
	}
	if v, err := strconv.Atoi(os.Getenv("PORT")); err == nil {
		c.Port = v
	}
	if v, err := strconv.Atoi(os.Getenv("POLL_INTERVAL_SECONDS")); err == nil {
		c.PollIntervalSec = v
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}
