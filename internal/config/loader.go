package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// LoaderOptions describes how configuration should be discovered.
type LoaderOptions struct {
	ConfigPaths []string
	FileName    string
	EnvPrefix   string
}

// Load returns the merged configuration from files and environment variables.
func Load(opts LoaderOptions) (Config, error) {
	v := viper.New()

	name := opts.FileName
	if name == "" {
		name = "reviewerd"
	}

	configFile := locateConfigFile(name, opts.ConfigPaths)
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(name)
	}

	prefix := opts.EnvPrefix
	if prefix == "" {
		prefix = "REVIEWER"
	}
	v.SetEnvPrefix(prefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AllowEmptyEnv(true)

	setDefaults(v)

	if configFile != "" {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg = expandEnvVars(cfg)

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("github.baseUrl", "https://api.github.com")
	v.SetDefault("github.statusContext", "AI Code Review")
	v.SetDefault("ai.provider", "anthropic")
	v.SetDefault("ai.ollamaBaseUrl", "http://localhost:11434")
	v.SetDefault("ai.timeout", "120s")
	v.SetDefault("queue.databasePath", "review_tasks.db")
	v.SetDefault("queue.maxAttempts", 3)
	v.SetDefault("queue.softTimeout", "5m")
	v.SetDefault("queue.hardTimeout", "6m")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// expandEnvVars expands ${VAR} and $VAR syntax in secret-bearing values so a
// config file can reference the environment instead of embedding credentials.
func expandEnvVars(cfg Config) Config {
	cfg.Server.WebhookSecret = os.ExpandEnv(cfg.Server.WebhookSecret)
	cfg.GitHub.AppID = os.ExpandEnv(cfg.GitHub.AppID)
	cfg.GitHub.PrivateKey = os.ExpandEnv(cfg.GitHub.PrivateKey)
	cfg.AI.AnthropicAPIKey = os.ExpandEnv(cfg.AI.AnthropicAPIKey)
	cfg.AI.OpenAIAPIKey = os.ExpandEnv(cfg.AI.OpenAIAPIKey)
	cfg.AI.GeminiAPIKey = os.ExpandEnv(cfg.AI.GeminiAPIKey)
	cfg.AI.GroqAPIKey = os.ExpandEnv(cfg.AI.GroqAPIKey)
	cfg.Notifications.Discord.BotToken = os.ExpandEnv(cfg.Notifications.Discord.BotToken)
	cfg.Notifications.Slack.BotToken = os.ExpandEnv(cfg.Notifications.Slack.BotToken)
	return cfg
}

func locateConfigFile(name string, paths []string) string {
	for _, dir := range paths {
		for _, ext := range []string{"yaml", "yml"} {
			candidate := filepath.Join(dir, fmt.Sprintf("%s.%s", name, ext))
			if _, err := os.Stat(candidate); err == nil {
				return candidate
			}
		}
	}
	return ""
}
