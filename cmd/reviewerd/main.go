package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/go-github/v71/github"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/chiefai/reviewer/internal/adapter/githubapp"
	"github.com/chiefai/reviewer/internal/adapter/llm/anthropic"
	"github.com/chiefai/reviewer/internal/adapter/llm/gemini"
	"github.com/chiefai/reviewer/internal/adapter/llm/groq"
	"github.com/chiefai/reviewer/internal/adapter/llm/ollama"
	"github.com/chiefai/reviewer/internal/adapter/llm/openai"
	"github.com/chiefai/reviewer/internal/adapter/llm/static"
	"github.com/chiefai/reviewer/internal/adapter/notify"
	"github.com/chiefai/reviewer/internal/adapter/queue"
	"github.com/chiefai/reviewer/internal/config"
	"github.com/chiefai/reviewer/internal/server"
	"github.com/chiefai/reviewer/internal/usecase/events"
	"github.com/chiefai/reviewer/internal/usecase/review"
)

// version is stamped at build time through -ldflags.
var version = "dev"

// defaultModels mirrors the per-provider fallbacks used when ai.model is
// left empty.
var defaultModels = map[string]string{
	"anthropic": "claude-3-5-sonnet-20241022",
	"openai":    "gpt-4o",
	"gemini":    "gemini-2.5-pro",
	"groq":      "llama-3.1-70b-versatile",
	"ollama":    "codellama",
	"static":    "static",
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.WithError(err).Fatal("reviewerd exited")
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:          "reviewerd",
		Short:        "GitHub App that runs AI code reviews on pull requests",
		Version:      version,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(configPath)
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "directory containing reviewerd.yaml")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the webhook server and review worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(configPath)
		},
	}
	root.AddCommand(serveCmd)
	return root
}

func serve(configPath string) error {
	// A missing .env file is fine; environment variables still apply.
	_ = godotenv.Load()

	cfg, err := config.Load(config.LoaderOptions{
		ConfigPaths: configPaths(configPath),
	})
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	setupLogging(cfg.Logging)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	auth := githubapp.NewAppAuth(cfg.GitHub.AppID, cfg.GitHub.PrivateKey, cfg.GitHub.BaseURL)
	ghClient := githubapp.NewClient(auth, cfg.GitHub.BaseURL)

	provider, err := buildProvider(cfg.AI)
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"provider": provider.Name(),
		"model":    provider.Model(),
	}).Info("AI provider configured")

	notifier := notify.NewFanout(
		notify.NewDiscordNotifier(
			cfg.Notifications.Discord.BotToken,
			cfg.Notifications.Discord.ChannelID,
			cfg.Notifications.Discord.RoleID,
		),
		notify.NewSlackNotifier(
			cfg.Notifications.Slack.BotToken,
			cfg.Notifications.Slack.Channel,
		),
	)

	orchestrator := review.NewOrchestrator(ghClient, provider, notifier, cfg.GitHub.StatusContext)

	router := newEventRouter(orchestrator, notifier)

	q, err := queue.Open(cfg.Queue.DatabasePath, func(ctx context.Context, task queue.Task) error {
		event, err := github.ParseWebHook(task.Kind, task.Payload)
		if err != nil {
			return fmt.Errorf("parse queued %s payload: %w", task.Kind, err)
		}
		return router.Dispatch(ctx, task.Kind, event)
	}, queueOptions(cfg.Queue))
	if err != nil {
		return err
	}

	go func() {
		if err := q.Run(ctx); err != nil && ctx.Err() == nil {
			log.WithError(err).Error("queue worker stopped")
			cancel()
		}
	}()

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := server.New(cfg.Server.WebhookSecret, q, router)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Run(cfg.Server.Addr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
		return nil
	case err := <-errCh:
		return err
	}
}

// newEventRouter builds the closed event dispatch table. Every kind the
// webhook transport accepts, queued or inline, has an arm here; anything
// else falls through to the router's logging default.
func newEventRouter(orchestrator *review.Orchestrator, notifier events.Notifier) *events.Router {
	return events.NewRouter(map[string]events.Handler{
		"push": func(ctx context.Context, event any) error {
			e, ok := event.(*github.PushEvent)
			if !ok {
				return fmt.Errorf("unexpected payload type %T for push event", event)
			}
			return events.NewPushHandler(notifier).Handle(ctx, e)
		},
		"issues": func(ctx context.Context, event any) error {
			e, ok := event.(*github.IssuesEvent)
			if !ok {
				return fmt.Errorf("unexpected payload type %T for issues event", event)
			}
			return events.NewIssuesHandler(notifier).Handle(ctx, e)
		},
		"pull_request": func(ctx context.Context, event any) error {
			e, ok := event.(*github.PullRequestEvent)
			if !ok {
				return fmt.Errorf("unexpected payload type %T for pull_request event", event)
			}
			return orchestrator.HandlePullRequest(ctx, e)
		},
		"pull_request_review": func(ctx context.Context, event any) error {
			e, ok := event.(*github.PullRequestReviewEvent)
			if !ok {
				return fmt.Errorf("unexpected payload type %T for pull_request_review event", event)
			}
			return events.NewReviewSubmittedHandler(notifier).Handle(ctx, e)
		},
	})
}

func buildProvider(cfg config.AIConfig) (review.Provider, error) {
	model := cfg.Model
	if model == "" {
		model = defaultModels[cfg.Provider]
	}

	timeout, err := time.ParseDuration(cfg.Timeout)
	if err != nil || timeout <= 0 {
		timeout = 120 * time.Second
	}

	switch cfg.Provider {
	case "anthropic":
		if cfg.AnthropicAPIKey == "" {
			log.Warn("anthropic selected but no API key configured, falling back to static provider")
			return static.NewProvider(defaultModels["static"]), nil
		}
		return anthropic.NewProvider(cfg.AnthropicAPIKey, model), nil
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			log.Warn("openai selected but no API key configured, falling back to static provider")
			return static.NewProvider(defaultModels["static"]), nil
		}
		p := openai.NewProvider(cfg.OpenAIAPIKey, model)
		p.SetTimeout(timeout)
		return p, nil
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			log.Warn("gemini selected but no API key configured, falling back to static provider")
			return static.NewProvider(defaultModels["static"]), nil
		}
		p := gemini.NewProvider(cfg.GeminiAPIKey, model)
		p.SetTimeout(timeout)
		return p, nil
	case "groq":
		if cfg.GroqAPIKey == "" {
			log.Warn("groq selected but no API key configured, falling back to static provider")
			return static.NewProvider(defaultModels["static"]), nil
		}
		p := groq.NewProvider(cfg.GroqAPIKey, model)
		p.SetTimeout(timeout)
		return p, nil
	case "ollama":
		p := ollama.NewProvider(cfg.OllamaBaseURL, model)
		p.SetTimeout(timeout)
		return p, nil
	case "static":
		return static.NewProvider(model), nil
	default:
		return nil, fmt.Errorf("unsupported AI provider %q (supported: anthropic, openai, gemini, groq, ollama, static)", cfg.Provider)
	}
}

func queueOptions(cfg config.QueueConfig) queue.Options {
	opts := queue.Options{MaxAttempts: cfg.MaxAttempts}
	if d, err := time.ParseDuration(cfg.SoftTimeout); err == nil {
		opts.SoftTimeout = d
	}
	if d, err := time.ParseDuration(cfg.HardTimeout); err == nil {
		opts.HardTimeout = d
	}
	return opts
}

func configPaths(flagPath string) []string {
	if flagPath != "" {
		return []string{flagPath}
	}
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, home+"/.config/reviewerd")
	}
	paths = append(paths, "/etc/reviewerd")
	return paths
}

func setupLogging(cfg config.LoggingConfig) {
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if cfg.Format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}
