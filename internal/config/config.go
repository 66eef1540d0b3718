package config

// Config is the root configuration for the Ventabot suite.
type Config struct {
	Server    ServerConfig    `json:"server"`
	Agents    AgentsConfig    `json:"agents"`
	Channels  ChannelsConfig  `json:"channels"`
	Providers ProvidersConfig `json:"providers"`
	Queue     QueueConfig     `json:"queue"`
	Store     StoreConfig     `json:"store"`
	Knowledge KnowledgeConfig `json:"knowledge"`
	CRM       CRMConfig       `json:"crm"`
	Env       string          `json:"env,omitempty"` // "development" (default) or "production"
}

// ServerConfig configures the webhook HTTP server.
type ServerConfig struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	RateLimitRPM int    `json:"rate_limit_rpm"` // per-sender webhook rate limit
	// VerifyToken validates Meta-style GET webhook verification.
	// From env VENTABOT_WEBHOOK_VERIFY_TOKEN only.
	VerifyToken string `json:"-"`
}

// AgentsConfig contains pipeline-wide agent settings.
type AgentsConfig struct {
	Model             string  `json:"model"`
	Temperature       float64 `json:"temperature"`
	MaxTokens         int     `json:"max_tokens"`
	MaxToolIterations int     `json:"max_tool_iterations"`
	BusinessName      string  `json:"business_name,omitempty"`
}

// ChannelsConfig configures the messaging channels.
type ChannelsConfig struct {
	// WhatsAppProvider selects the outbound WhatsApp transport:
	// "twilio" or "evolution".
	WhatsAppProvider string          `json:"whatsapp_provider"`
	Twilio           TwilioConfig    `json:"twilio"`
	Evolution        EvolutionConfig `json:"evolution"`
	Telegram         TelegramConfig  `json:"telegram"`
}

// TwilioConfig holds Twilio WhatsApp credentials. All secrets from env only.
type TwilioConfig struct {
	AccountSID string `json:"-"` // VENTABOT_TWILIO_ACCOUNT_SID
	AuthToken  string `json:"-"` // VENTABOT_TWILIO_AUTH_TOKEN
	FromNumber string `json:"from_number,omitempty"`
	// ValidateSignature enables X-Twilio-Signature checks on inbound webhooks.
	ValidateSignature bool `json:"validate_signature,omitempty"`
}

// EvolutionConfig holds Evolution API connection settings.
type EvolutionConfig struct {
	BaseURL  string `json:"base_url,omitempty"`
	Instance string `json:"instance,omitempty"`
	APIKey   string `json:"-"` // VENTABOT_EVOLUTION_API_KEY
}

// TelegramConfig holds Telegram Bot API settings.
type TelegramConfig struct {
	Enabled bool   `json:"enabled"`
	Token   string `json:"-"` // VENTABOT_TELEGRAM_TOKEN
}

// ProvidersConfig holds LLM provider settings.
type ProvidersConfig struct {
	OpenAI OpenAIConfig `json:"openai"`
}

// OpenAIConfig configures the OpenAI-compatible chat/embeddings API.
type OpenAIConfig struct {
	APIKey         string `json:"-"` // VENTABOT_OPENAI_API_KEY
	APIBase        string `json:"api_base,omitempty"`
	EmbeddingModel string `json:"embedding_model"`
}

// QueueConfig configures the job queue.
// PostgresDSN is NEVER read from config.json (secret) — only from env
// VENTABOT_POSTGRES_DSN. Empty DSN means the in-memory queue (standalone).
type QueueConfig struct {
	PostgresDSN string `json:"-"`
	Workers     int    `json:"workers"`
	JobTimeout  int    `json:"job_timeout_sec"`
	MaxRetries  int    `json:"max_retries"`
	ResultTTL   int    `json:"result_ttl_sec"`
	FailureTTL  int    `json:"failure_ttl_sec"`
}

// StoreConfig configures the conversation history store.
type StoreConfig struct {
	// WindowTurns is the max turns kept per conversation.
	WindowTurns int `json:"window_turns"`
	// TTL is the conversation expiry in seconds.
	TTL int `json:"ttl_sec"`
}

// KnowledgeConfig configures the retrieval store.
type KnowledgeConfig struct {
	// Path is the SQLite database file for catalog and docs embeddings.
	Path string `json:"path"`
	// TopK is the default number of search results.
	TopK int `json:"top_k"`
	// MinScore filters results below this cosine similarity.
	MinScore     float64 `json:"min_score"`
	ChunkSize    int     `json:"chunk_size"`
	ChunkOverlap int     `json:"chunk_overlap"`
}

// CRMConfig configures the lead registration endpoint.
// Unset APIURL puts the CRM tool in simulation mode (log only).
type CRMConfig struct {
	APIURL string `json:"api_url,omitempty"`
	APIKey string `json:"-"` // VENTABOT_CRM_API_KEY
}

// UsesPostgres reports whether a shared Postgres backend is configured.
func (c *Config) UsesPostgres() bool {
	return c.Queue.PostgresDSN != ""
}
