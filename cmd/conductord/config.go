package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the server configuration. Environment variables supply
// credentials and tuning; command-line flags override the addresses and
// paths (see main).
type Config struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string

	// StoreDir persists conversations as JSON files when set; empty
	// keeps them in memory.
	StoreDir string

	// Model is the provider-qualified default model, e.g.
	// "anthropic/claude-sonnet-4-5".
	Model string

	// Workspace roots the built-in file tools.
	Workspace string

	// LogLevel is one of debug, info, warn, error.
	LogLevel string

	// API keys per provider.
	AnthropicKey string
	OpenAIKey    string
	GoogleKey    string

	// SystemPrompt seeds new conversations, when set.
	SystemPrompt string

	// MaxSteps bounds LLM rounds per turn.
	MaxSteps int

	// Timeout bounds a whole turn.
	Timeout time.Duration

	// ApprovalTimeout bounds how long a gated call waits for a decision.
	ApprovalTimeout time.Duration
}

// LoadConfig reads configuration from the environment, loading a .env
// file first when present.
func LoadConfig() *Config {
	godotenv.Load()

	return &Config{
		Addr:            getEnvOrDefault("CONDUCTOR_ADDR", ":8080"),
		StoreDir:        os.Getenv("CONDUCTOR_STORE"),
		Model:           getEnvOrDefault("CONDUCTOR_MODEL", "anthropic/claude-sonnet-4-5"),
		Workspace:       getEnvOrDefault("CONDUCTOR_WORKSPACE", "."),
		LogLevel:        getEnvOrDefault("CONDUCTOR_LOG_LEVEL", "info"),
		AnthropicKey:    os.Getenv("ANTHROPIC_API_KEY"),
		OpenAIKey:       os.Getenv("OPENAI_API_KEY"),
		GoogleKey:       os.Getenv("GEMINI_API_KEY"),
		SystemPrompt:    os.Getenv("CONDUCTOR_SYSTEM_PROMPT"),
		MaxSteps:        getEnvIntOrDefault("CONDUCTOR_MAX_STEPS", 10),
		Timeout:         getEnvDurationOrDefault("CONDUCTOR_TIMEOUT", 5*time.Minute),
		ApprovalTimeout: getEnvDurationOrDefault("CONDUCTOR_APPROVAL_TIMEOUT", 5*time.Minute),
	}
}

// Validate checks that at least one provider key matches the configured
// model's needs.
func (c *Config) Validate() error {
	if c.AnthropicKey == "" && c.OpenAIKey == "" && c.GoogleKey == "" {
		return fmt.Errorf("no API key configured: set ANTHROPIC_API_KEY, OPENAI_API_KEY, or GEMINI_API_KEY")
	}
	if c.Model == "" {
		return fmt.Errorf("CONDUCTOR_MODEL (or -model) is required")
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
