package config

import (
	"errors"
	"os"
	"strings"
)

// Config is read once at startup from the environment. The storage and
// speech-to-text backends are chosen by which credentials are present and
// never switched mid-process.
type Config struct {
	DatabaseURL   string
	Port          string
	AllowedOrigin string

	UploadsDir string

	AzureStorageAccount   string
	AzureStorageAccessKey string
	AzureStorageContainer string

	OpenAIAPIKey       string
	PicovoiceAccessKey string
	LeopardLanguages   []string
	LeopardModelDir    string
}

func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		Port:          getenv("PORT", "8080"),
		AllowedOrigin: getenv("ALLOWED_ORIGIN", "*"),
		UploadsDir:    getenv("UPLOADS_DIR", "uploads"),

		AzureStorageAccount:   os.Getenv("AZURE_STORAGE_ACCOUNT"),
		AzureStorageAccessKey: os.Getenv("AZURE_STORAGE_ACCESS_KEY"),
		AzureStorageContainer: os.Getenv("AZURE_STORAGE_CONTAINER"),

		OpenAIAPIKey:       os.Getenv("OPENAI_API_KEY"),
		PicovoiceAccessKey: os.Getenv("PICOVOICE_ACCESS_KEY"),
		LeopardModelDir:    getenv("LEOPARD_MODEL_DIR", "models"),
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is not set")
	}
	if cfg.AzureStorageAccount != "" &&
		(cfg.AzureStorageAccessKey == "" || cfg.AzureStorageContainer == "") {
		return nil, errors.New("AZURE_STORAGE_ACCESS_KEY and AZURE_STORAGE_CONTAINER must be set together with AZURE_STORAGE_ACCOUNT")
	}

	for _, language := range strings.Split(getenv("LEOPARD_LANGUAGES", "es"), ",") {
		if language = strings.TrimSpace(language); language != "" {
			cfg.LeopardLanguages = append(cfg.LeopardLanguages, language)
		}
	}

	return cfg, nil
}

func (c *Config) UseAzureStorage() bool { return c.AzureStorageAccount != "" }

func (c *Config) UseWhisperAPI() bool { return c.OpenAIAPIKey != "" }

func (c *Config) UseLeopard() bool { return c.PicovoiceAccessKey != "" }

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
