package config

import "time"

// Config is the complete service configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server" env:"SERVER"`
	Auth      AuthConfig      `yaml:"auth" env:"AUTH"`
	Agent     AgentConfig     `yaml:"agent" env:"AGENT"`
	LLM       LLMConfig       `yaml:"llm" env:"LLM"`
	Guard     GuardConfig     `yaml:"guard" env:"GUARD"`
	Store     StoreConfig     `yaml:"store" env:"STORE"`
	Search    SearchConfig    `yaml:"search" env:"SEARCH"`
	Log       LogConfig       `yaml:"log" env:"LOG"`
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host            string        `yaml:"host" env:"HOST"`
	HTTPPort        int           `yaml:"http_port" env:"HTTP_PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	RateLimitRPS    float64       `yaml:"rate_limit_rps" env:"RATE_LIMIT_RPS"`
	RateLimitBurst  int           `yaml:"rate_limit_burst" env:"RATE_LIMIT_BURST"`
}

// AuthConfig configures request authentication.
// Mode none disables auth; bearer compares a static secret; jwt
// verifies HS256 tokens signed with the secret.
type AuthConfig struct {
	Mode   string `yaml:"mode" env:"MODE"`
	Secret string `yaml:"secret" env:"SECRET"`
}

// AgentConfig tunes the conversation engine.
type AgentConfig struct {
	Model         string  `yaml:"model" env:"MODEL"`
	MaxToolRounds int     `yaml:"max_tool_rounds" env:"MAX_TOOL_ROUNDS"`
	MaxTokens     int     `yaml:"max_tokens" env:"MAX_TOKENS"`
	Temperature   float64 `yaml:"temperature" env:"TEMPERATURE"`
}

// LLMConfig configures the generation backend. An empty APIKey selects
// the built-in fake provider so the service runs without credentials.
type LLMConfig struct {
	BaseURL string        `yaml:"base_url" env:"BASE_URL"`
	APIKey  string        `yaml:"api_key" env:"API_KEY"`
	Model   string        `yaml:"model" env:"MODEL"`
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// GuardConfig configures the safety classifier backend. An empty APIKey
// runs the classifier in degraded mode, where every input passes.
type GuardConfig struct {
	BaseURL string `yaml:"base_url" env:"BASE_URL"`
	APIKey  string `yaml:"api_key" env:"API_KEY"`
	Model   string `yaml:"model" env:"MODEL"`
}

// StoreConfig selects the thread state backend.
type StoreConfig struct {
	// Backend: memory, database, redis, mongo.
	Backend  string         `yaml:"backend" env:"BACKEND"`
	Database DatabaseConfig `yaml:"database" env:"DATABASE"`
	Redis    RedisConfig    `yaml:"redis" env:"REDIS"`
	Mongo    MongoConfig    `yaml:"mongo" env:"MONGO"`
}

// DatabaseConfig configures the SQL backend.
type DatabaseConfig struct {
	// Driver: sqlite, postgres, mysql.
	Driver string `yaml:"driver" env:"DRIVER"`
	DSN    string `yaml:"dsn" env:"DSN"`
}

// RedisConfig configures the Redis backend.
type RedisConfig struct {
	Addr     string `yaml:"addr" env:"ADDR"`
	Password string `yaml:"password" env:"PASSWORD"`
	DB       int    `yaml:"db" env:"DB"`
}

// MongoConfig configures the MongoDB backend.
type MongoConfig struct {
	URI      string `yaml:"uri" env:"URI"`
	Database string `yaml:"database" env:"DATABASE"`
}

// SearchConfig configures the web search tool.
type SearchConfig struct {
	// Provider: duckduckgo, none.
	Provider   string        `yaml:"provider" env:"PROVIDER"`
	MaxResults int           `yaml:"max_results" env:"MAX_RESULTS"`
	Timeout    time.Duration `yaml:"timeout" env:"TIMEOUT"`
	RateLimit  float64       `yaml:"rate_limit" env:"RATE_LIMIT"`
}

// LogConfig configures zap.
type LogConfig struct {
	// Level: debug, info, warn, error.
	Level string `yaml:"level" env:"LEVEL"`
	// Format: json, console.
	Format string `yaml:"format" env:"FORMAT"`
}

// TelemetryConfig configures OTLP trace export.
type TelemetryConfig struct {
	Enabled     bool    `yaml:"enabled" env:"ENABLED"`
	Endpoint    string  `yaml:"endpoint" env:"ENDPOINT"`
	ServiceName string  `yaml:"service_name" env:"SERVICE_NAME"`
	SampleRatio float64 `yaml:"sample_ratio" env:"SAMPLE_RATIO"`
}
