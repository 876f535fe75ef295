package config

import "github.com/caarlos0/env/v10"

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort             string `env:"HTTP_PORT" envDefault:"8080"`
	DatabaseURL          string `env:"DATABASE_URL,required"`
	JWTSecret            string `env:"JWT_SECRET,required"`
	JWTAccessTTLMinutes  int    `env:"JWT_ACCESS_TTL_MINUTES" envDefault:"60"`
	JWTRefreshTTLMinutes int    `env:"JWT_REFRESH_TTL_MINUTES" envDefault:"43200"`
	LLMAPIKey            string `env:"LLM_API_KEY,required"`
	LLMBaseURL           string `env:"LLM_BASE_URL" envDefault:"https://api.openai.com/v1"`
	LLMModel             string `env:"LLM_MODEL" envDefault:"gpt-4o-mini"`
	AITimeoutSeconds     int    `env:"AI_TIMEOUT_SECONDS" envDefault:"30"`
	AIRateWindowSeconds  int    `env:"AI_RATE_WINDOW_SECONDS" envDefault:"60"`
	AIRateMaxRequests    int    `env:"AI_RATE_MAX_REQUESTS" envDefault:"10"`
	RedisAddr            string `env:"REDIS_ADDR"`
	RedisPassword        string `env:"REDIS_PASSWORD"`
	RedisDB              int    `env:"REDIS_DB" envDefault:"0"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
