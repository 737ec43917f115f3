package config

import "time"

// DefaultConfig returns a configuration that runs standalone: fake
// model, degraded classifier, in-memory store.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			HTTPPort:        8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    120 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			RateLimitRPS:    50,
			RateLimitBurst:  100,
		},
		Auth: AuthConfig{
			Mode: "none",
		},
		Agent: AgentConfig{
			MaxToolRounds: 10,
			MaxTokens:     4096,
			Temperature:   0.5,
		},
		LLM: LLMConfig{
			BaseURL: "https://api.openai.com/v1",
			Model:   "gpt-4o-mini",
			Timeout: 60 * time.Second,
		},
		Guard: GuardConfig{
			BaseURL: "https://api.groq.com/openai/v1",
			Model:   "meta-llama/llama-guard-4-12b",
		},
		Store: StoreConfig{
			Backend: "memory",
			Database: DatabaseConfig{
				Driver: "sqlite",
				DSN:    "file:agentd.db?cache=shared",
			},
			Redis: RedisConfig{
				Addr: "localhost:6379",
			},
			Mongo: MongoConfig{
				URI:      "mongodb://localhost:27017",
				Database: "agentd",
			},
		},
		Search: SearchConfig{
			Provider:   "duckduckgo",
			MaxResults: 10,
			Timeout:    15 * time.Second,
			RateLimit:  0.5,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Telemetry: TelemetryConfig{
			Enabled:     false,
			Endpoint:    "localhost:4317",
			ServiceName: "agentd",
			SampleRatio: 1.0,
		},
	}
}
