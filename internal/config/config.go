// Package config provides environment-based configuration for the Agente B
// backend.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds the configuration for the server
type Config struct {
	OpenAIAPIKey string // Optional: without it the AI paths degrade to fixed replies
	Port         int
	Locale       string

	ChatModel       string
	MaxOutputTokens int
	Temperature     float32
	WindowTurns     int // How many recent turns are sent to the model

	TTSModel string
	TTSVoice string
	STTModel string

	SummaryInputLimit int  // Characters of document text fed to summarization
	DocumentCharLimit int  // Cap on document text injected into the history
	ResetOnUpload     bool // Whether an upload discards prior chat history
	MaxUploadBytes    int64

	TelemetryEnabled bool
	OTLPEndpoint     string
}

// Load loads configuration from environment variables, applying defaults for
// anything unset.
func Load() Config {
	config := Config{
		OpenAIAPIKey: os.Getenv("OPENAI_API_KEY"),
		Port:         5000,
		Locale:       "pt-BR",

		ChatModel:       "gpt-4o-mini",
		MaxOutputTokens: 800,
		Temperature:     0.3,
		WindowTurns:     10,

		TTSModel: "gpt-4o-mini-tts",
		TTSVoice: "alloy",
		STTModel: "whisper-1",

		SummaryInputLimit: 8000,
		DocumentCharLimit: 200000,
		MaxUploadBytes:    32 << 20,

		OTLPEndpoint: os.Getenv("OTLP_ENDPOINT"),
	}

	overrideString(&config.Locale, "LOCALE")
	overrideString(&config.ChatModel, "CHAT_MODEL")
	overrideString(&config.TTSModel, "TTS_MODEL")
	overrideString(&config.TTSVoice, "TTS_VOICE")
	overrideString(&config.STTModel, "STT_MODEL")

	overrideInt(&config.Port, "PORT")
	overrideInt(&config.MaxOutputTokens, "MAX_OUTPUT_TOKENS")
	overrideInt(&config.WindowTurns, "WINDOW_TURNS")
	overrideInt(&config.SummaryInputLimit, "SUMMARY_INPUT_LIMIT")
	overrideInt(&config.DocumentCharLimit, "DOCUMENT_CHAR_LIMIT")

	if v := os.Getenv("TEMPERATURE"); v != "" {
		if f, err := strconv.ParseFloat(v, 32); err == nil {
			config.Temperature = float32(f)
		}
	}
	if v := os.Getenv("MAX_UPLOAD_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			config.MaxUploadBytes = n
		}
	}
	if v := os.Getenv("RESET_ON_UPLOAD"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			config.ResetOnUpload = b
		}
	}
	if v := os.Getenv("TELEMETRY_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			config.TelemetryEnabled = b
		}
	}

	return config
}

func overrideString(dest *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dest = v
	}
}

func overrideInt(dest *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dest = n
		}
	}
}

// Validate checks that the configuration is usable. A missing API key is not
// an error: the process still starts and serves the static page and text
// extraction, with AI-dependent paths degraded.
func (c Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.WindowTurns < 1 {
		return fmt.Errorf("window turns must be positive, got %d", c.WindowTurns)
	}
	if c.SummaryInputLimit < 1 {
		return fmt.Errorf("summary input limit must be positive, got %d", c.SummaryInputLimit)
	}
	if c.DocumentCharLimit < 1 {
		return fmt.Errorf("document char limit must be positive, got %d", c.DocumentCharLimit)
	}
	if c.MaxUploadBytes < 1 {
		return fmt.Errorf("max upload bytes must be positive, got %d", c.MaxUploadBytes)
	}
	return nil
}
