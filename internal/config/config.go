// Package config reads docscan settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"docscan/internal/extract"
	"docscan/internal/logger"
	"docscan/internal/ocr"
)

type Config struct {
	// Extraction Configuration
	Rules                  string
	Engine                 string
	TieBand                float64
	LowConfidenceThreshold float64
	MissingRequiredCeiling float64
	HandwrittenThreshold   float64
	RescanThreshold        float64
	Workers                int
	Timeout                time.Duration

	// Google Cloud Configuration
	GoogleCredentials            string
	GoogleApplicationCredentials string
	GoogleCloudProject           string
	GoogleCloudLocation          string
	DocumentAIProcessorID        string
	DocumentAIProcessorVersion   string

	// Tesseract Configuration
	TesseractLanguages []string

	// Logging Configuration
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
	LogNoColor    bool
}

func Load() (*Config, error) {
	defaults := extract.DefaultOptions()

	config := &Config{
		Rules:                        getEnv("DOCSCAN_RULES", "invoice"),
		Engine:                       getEnv("OCR_ENGINE", ocr.EngineSpans),
		GoogleCredentials:            getEnv("GOOGLE_CREDENTIALS", ""),
		GoogleApplicationCredentials: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
		GoogleCloudProject:           getEnv("GOOGLE_CLOUD_PROJECT", getEnv("GOOGLE_PROJECT_ID", "")),
		GoogleCloudLocation:          getEnv("GOOGLE_CLOUD_LOCATION", getEnv("GOOGLE_LOCATION", "us")),
		DocumentAIProcessorID:        getEnv("DOCUMENT_AI_PROCESSOR_ID", getEnv("GOOGLE_PROCESSOR_ID", "")),
		DocumentAIProcessorVersion:   getEnv("DOCUMENT_AI_PROCESSOR_VERSION", ""),
		TesseractLanguages:           splitList(getEnv("TESSERACT_LANG", "eng")),
		LogLevel:                     getEnv("LOG_LEVEL", "info"),
		LogFormat:                    getEnv("LOG_FORMAT", "console"),
		LogTimeFormat:                getEnv("LOG_TIME_FORMAT", "2006-01-02T15:04:05Z07:00"),
		LogOutput:                    getEnv("LOG_OUTPUT", "stderr"),
	}

	var err error
	floats := []struct {
		key string
		def float64
		dst *float64
	}{
		{"DOCSCAN_TIE_BAND", defaults.Resolve.TieBand, &config.TieBand},
		{"DOCSCAN_LOW_CONFIDENCE", defaults.Record.LowConfidenceThreshold, &config.LowConfidenceThreshold},
		{"DOCSCAN_MISSING_CEILING", defaults.Record.MissingRequiredCeiling, &config.MissingRequiredCeiling},
		{"DOCSCAN_HANDWRITTEN_THRESHOLD", defaults.Normalize.HandwrittenThreshold, &config.HandwrittenThreshold},
		{"DOCSCAN_RESCAN_THRESHOLD", defaults.RescanThreshold, &config.RescanThreshold},
	}
	for _, f := range floats {
		if *f.dst, err = getFloat(f.key, f.def); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}
	if config.Workers, err = getInt("DOCSCAN_WORKERS", 4); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	if config.Timeout, err = getDuration("DOCSCAN_TIMEOUT", 2*time.Minute); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	if config.LogNoColor, err = getBool("NO_COLOR", false); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func (c *Config) validate() error {
	thresholds := map[string]float64{
		"DOCSCAN_TIE_BAND":              c.TieBand,
		"DOCSCAN_LOW_CONFIDENCE":        c.LowConfidenceThreshold,
		"DOCSCAN_MISSING_CEILING":       c.MissingRequiredCeiling,
		"DOCSCAN_HANDWRITTEN_THRESHOLD": c.HandwrittenThreshold,
		"DOCSCAN_RESCAN_THRESHOLD":      c.RescanThreshold,
	}
	for key, v := range thresholds {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be between 0 and 1, got %g", key, v)
		}
	}
	if c.Workers < 1 {
		return fmt.Errorf("DOCSCAN_WORKERS must be at least 1, got %d", c.Workers)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("DOCSCAN_TIMEOUT must be positive, got %s", c.Timeout)
	}
	if !validEngine(c.Engine) {
		return fmt.Errorf("OCR_ENGINE must be one of %s, got %q", strings.Join(ocr.Engines, ", "), c.Engine)
	}
	return nil
}

func validEngine(engine string) bool {
	for _, e := range ocr.Engines {
		if e == engine {
			return true
		}
	}
	return false
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
		NoColor:    c.LogNoColor,
	}
}

// ExtractOptions returns the pipeline tunables.
func (c *Config) ExtractOptions() extract.Options {
	opts := extract.DefaultOptions()
	opts.Resolve.TieBand = c.TieBand
	opts.Record.LowConfidenceThreshold = c.LowConfidenceThreshold
	opts.Record.MissingRequiredCeiling = c.MissingRequiredCeiling
	opts.Normalize.HandwrittenThreshold = c.HandwrittenThreshold
	opts.RescanThreshold = c.RescanThreshold
	return opts
}

// OCRConfig returns the engine settings.
func (c *Config) OCRConfig() ocr.Config {
	return ocr.Config{
		Credentials: ocr.Credentials{
			JSON: c.GoogleCredentials,
			File: c.GoogleApplicationCredentials,
		},
		DocumentAI: ocr.DocumentAIConfig{
			ProjectID:        c.GoogleCloudProject,
			Location:         c.GoogleCloudLocation,
			ProcessorID:      c.DocumentAIProcessorID,
			ProcessorVersion: c.DocumentAIProcessorVersion,
		},
		TesseractLanguages: c.TesseractLanguages,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not a number", key, value)
	}
	return f, nil
}

func getInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not an integer", key, value)
	}
	return n, nil
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not a duration", key, value)
	}
	return d, nil
}

func getBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s: %q is not a boolean", key, value)
	}
	return b, nil
}

func splitList(value string) []string {
	return strings.FieldsFunc(value, func(r rune) bool { return r == ',' || r == '+' || r == ' ' })
}
