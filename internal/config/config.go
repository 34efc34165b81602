package config

// Config represents the full service configuration.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	GitHub        GitHubConfig        `yaml:"github"`
	AI            AIConfig            `yaml:"ai"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Queue         QueueConfig         `yaml:"queue"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// ServerConfig holds the inbound HTTP transport settings.
type ServerConfig struct {
	Addr          string `yaml:"addr"`
	WebhookSecret string `yaml:"webhookSecret"`
}

// GitHubConfig configures App authentication and the host API client.
type GitHubConfig struct {
	AppID string `yaml:"appId"`

	// PrivateKey is the App's RSA private key in PEM form. Literal \n
	// sequences (the dotenv convention) are accepted.
	PrivateKey string `yaml:"privateKey"`

	BaseURL string `yaml:"baseUrl"`

	// StatusContext is the label shown next to the commit status in the PR UI.
	StatusContext string `yaml:"statusContext"`
}

// AIConfig selects and configures the review backend.
type AIConfig struct {
	Provider string `yaml:"provider"` // anthropic, openai, gemini, groq, ollama, static
	Model    string `yaml:"model"`    // empty selects the provider default

	AnthropicAPIKey string `yaml:"anthropicApiKey"`
	OpenAIAPIKey    string `yaml:"openaiApiKey"`
	GeminiAPIKey    string `yaml:"geminiApiKey"`
	GroqAPIKey      string `yaml:"groqApiKey"`
	OllamaBaseURL   string `yaml:"ollamaBaseUrl"`

	// Timeout bounds a single review call. Self-hosted inference can be
	// slow, so the default is generous.
	Timeout string `yaml:"timeout"`
}

// NotificationsConfig configures the outbound notification backends.
// A backend with empty credentials is disabled.
type NotificationsConfig struct {
	Discord DiscordConfig `yaml:"discord"`
	Slack   SlackConfig   `yaml:"slack"`
}

// DiscordConfig holds Discord bot credentials.
type DiscordConfig struct {
	BotToken  string `yaml:"botToken"`
	ChannelID string `yaml:"channelId"`
	RoleID    string `yaml:"roleId"`
}

// SlackConfig holds Slack bot credentials.
type SlackConfig struct {
	BotToken string `yaml:"botToken"`
	Channel  string `yaml:"channel"`
}

// QueueConfig configures the durable review task queue.
type QueueConfig struct {
	DatabasePath string `yaml:"databasePath"`
	MaxAttempts  int    `yaml:"maxAttempts"`
	SoftTimeout  string `yaml:"softTimeout"`
	HardTimeout  string `yaml:"hardTimeout"`
}

// LoggingConfig configures logrus output.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}
