package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/titanous/json5"
)

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			RateLimitRPM: 30,
		},
		Agents: AgentsConfig{
			Model:             "gpt-4o",
			Temperature:       0.3,
			MaxTokens:         1024,
			MaxToolIterations: 3,
			BusinessName:      "TechVentas",
		},
		Channels: ChannelsConfig{
			WhatsAppProvider: "twilio",
		},
		Providers: ProvidersConfig{
			OpenAI: OpenAIConfig{
				APIBase:        "https://api.openai.com/v1",
				EmbeddingModel: "text-embedding-3-small",
			},
		},
		Queue: QueueConfig{
			Workers:    4,
			JobTimeout: 120,
			MaxRetries: 3,
			ResultTTL:  3600,
			FailureTTL: 86400,
		},
		Store: StoreConfig{
			WindowTurns: 10,
			TTL:         7200,
		},
		Knowledge: KnowledgeConfig{
			Path:         "ventabot.db",
			TopK:         4,
			MinScore:     0.3,
			ChunkSize:    512,
			ChunkOverlap: 64,
		},
		Env: "development",
	}
}

// Load reads config from a JSON file, then overlays env vars.
// A missing file is not an error: defaults plus env are enough to run.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := json5.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides overlays env vars onto the config.
// Env vars take precedence over file values; secrets are env-only.
func (c *Config) applyEnvOverrides() {
	envStr := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	envStr("VENTABOT_OPENAI_API_KEY", &c.Providers.OpenAI.APIKey)
	envStr("VENTABOT_OPENAI_API_BASE", &c.Providers.OpenAI.APIBase)
	envStr("VENTABOT_MODEL", &c.Agents.Model)

	envStr("VENTABOT_WEBHOOK_VERIFY_TOKEN", &c.Server.VerifyToken)
	envStr("VENTABOT_HOST", &c.Server.Host)
	if v := os.Getenv("VENTABOT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			c.Server.Port = port
		}
	}

	envStr("VENTABOT_WHATSAPP_PROVIDER", &c.Channels.WhatsAppProvider)
	envStr("VENTABOT_TWILIO_ACCOUNT_SID", &c.Channels.Twilio.AccountSID)
	envStr("VENTABOT_TWILIO_AUTH_TOKEN", &c.Channels.Twilio.AuthToken)
	envStr("VENTABOT_TWILIO_FROM_NUMBER", &c.Channels.Twilio.FromNumber)
	envStr("VENTABOT_EVOLUTION_BASE_URL", &c.Channels.Evolution.BaseURL)
	envStr("VENTABOT_EVOLUTION_INSTANCE", &c.Channels.Evolution.Instance)
	envStr("VENTABOT_EVOLUTION_API_KEY", &c.Channels.Evolution.APIKey)
	envStr("VENTABOT_TELEGRAM_TOKEN", &c.Channels.Telegram.Token)

	// Auto-enable Telegram when credentials come via env.
	if c.Channels.Telegram.Token != "" {
		c.Channels.Telegram.Enabled = true
	}

	envStr("VENTABOT_POSTGRES_DSN", &c.Queue.PostgresDSN)
	if v := os.Getenv("VENTABOT_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Queue.Workers = n
		}
	}

	envStr("VENTABOT_KNOWLEDGE_PATH", &c.Knowledge.Path)

	envStr("VENTABOT_CRM_API_URL", &c.CRM.APIURL)
	envStr("VENTABOT_CRM_API_KEY", &c.CRM.APIKey)

	envStr("VENTABOT_ENV", &c.Env)
}
