// Package integrations groups the clients for third-party data providers:
// weather, FAO statistics, geocoding and the language models behind the chat
// assistant.
package integrations

import (
	"fmt"
	"os"
	"time"
)

// AI provider names.
const (
	ProviderHuggingFace = "huggingface"
	ProviderGemini      = "gemini"
	ProviderRules       = "rules"
)

type Config struct {
	// Timeout bounds every outbound request.
	Timeout time.Duration `yaml:"timeout"`
	// RequestsPerSecond throttles each provider client; zero disables throttling.
	RequestsPerSecond float64 `yaml:"requests_per_second"`

	Weather WeatherConfig `yaml:"weather"`
	FAO     FAOConfig     `yaml:"fao"`
	Geocode GeocodeConfig `yaml:"geocode"`
	AI      AIConfig      `yaml:"ai"`
}

type WeatherConfig struct {
	APIKey  string  `yaml:"api_key"`
	BaseURL string  `yaml:"base_url"`
	Lat     float64 `yaml:"lat"`
	Lon     float64 `yaml:"lon"`
}

type FAOConfig struct {
	BaseURL  string `yaml:"base_url"`
	AreaCode int    `yaml:"area_code"`
	Items    string `yaml:"items"`
	Years    string `yaml:"years"`
}

type GeocodeConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

type AIConfig struct {
	Provider       string  `yaml:"provider"`
	HuggingFaceKey string  `yaml:"hugging_face_key"`
	HuggingFaceURL string  `yaml:"hugging_face_url"`
	GeminiKey      string  `yaml:"gemini_key"`
	GeminiModel    string  `yaml:"gemini_model"`
	MaxTokens      int     `yaml:"max_tokens"`
	Temperature    float32 `yaml:"temperature"`
}

func DefaultConfig() Config {
	return Config{
		Timeout:           10 * time.Second,
		RequestsPerSecond: 5,
		Weather: WeatherConfig{
			BaseURL: "https://api.openweathermap.org/data/2.5/weather",
			Lat:     -1.2921,
			Lon:     36.8219,
		},
		FAO: FAOConfig{
			BaseURL:  "https://fenixservices.fao.org/faostat/api/v1/en/data/core",
			AreaCode: 114,
			Items:    "388,571,490",
			Years:    "2020,2021,2022,2023,2024,2025",
		},
		Geocode: GeocodeConfig{
			BaseURL: "https://maps.googleapis.com/maps/api/geocode/json",
		},
		AI: AIConfig{
			Provider:       ProviderHuggingFace,
			HuggingFaceURL: "https://api-inference.huggingface.co/models/mistralai/Mistral-7B-Instruct-v0.2",
			GeminiModel:    "gemini-2.0-flash",
			MaxTokens:      250,
			Temperature:    0.7,
		},
	}
}

// ApplyDefaults fills in zero values with defaults.
func (c *Config) ApplyDefaults() {
	d := DefaultConfig()
	if c.Timeout == 0 {
		c.Timeout = d.Timeout
	}
	if c.Weather.BaseURL == "" {
		c.Weather.BaseURL = d.Weather.BaseURL
	}
	if c.Weather.Lat == 0 && c.Weather.Lon == 0 {
		c.Weather.Lat, c.Weather.Lon = d.Weather.Lat, d.Weather.Lon
	}
	if c.FAO.BaseURL == "" {
		c.FAO.BaseURL = d.FAO.BaseURL
	}
	if c.FAO.AreaCode == 0 {
		c.FAO.AreaCode = d.FAO.AreaCode
	}
	if c.FAO.Items == "" {
		c.FAO.Items = d.FAO.Items
	}
	if c.FAO.Years == "" {
		c.FAO.Years = d.FAO.Years
	}
	if c.Geocode.BaseURL == "" {
		c.Geocode.BaseURL = d.Geocode.BaseURL
	}
	if c.AI.Provider == "" {
		c.AI.Provider = d.AI.Provider
	}
	if c.AI.HuggingFaceURL == "" {
		c.AI.HuggingFaceURL = d.AI.HuggingFaceURL
	}
	if c.AI.GeminiModel == "" {
		c.AI.GeminiModel = d.AI.GeminiModel
	}
	if c.AI.MaxTokens == 0 {
		c.AI.MaxTokens = d.AI.MaxTokens
	}
	if c.AI.Temperature == 0 {
		c.AI.Temperature = d.AI.Temperature
	}
}

// ApplyEnvOverrides reads provider keys from the environment.
func (c *Config) ApplyEnvOverrides() {
	if val := os.Getenv("OPEN_WEATHER_API_KEY"); val != "" {
		c.Weather.APIKey = val
	}
	if val := os.Getenv("GOOGLE_API_KEY"); val != "" {
		c.Geocode.APIKey = val
	}
	if val := os.Getenv("HUGGING_FACE_API_KEY"); val != "" {
		c.AI.HuggingFaceKey = val
	}
	if val := os.Getenv("GEMINI_API_KEY"); val != "" {
		c.AI.GeminiKey = val
	}
	if val := os.Getenv("AI_PROVIDER"); val != "" {
		c.AI.Provider = val
	}
}

func (c *Config) ResolvePaths(_ string) {}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("integrations.timeout must be positive")
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("integrations.requests_per_second must not be negative")
	}
	switch c.AI.Provider {
	case ProviderHuggingFace, ProviderGemini, ProviderRules:
	default:
		return fmt.Errorf("integrations.ai.provider %q is not one of %s, %s, %s",
			c.AI.Provider, ProviderHuggingFace, ProviderGemini, ProviderRules)
	}
	return nil
}
