package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/totalhomes/lead-qualifier/internal/config"
	"github.com/totalhomes/lead-qualifier/internal/conversation"
	"github.com/totalhomes/lead-qualifier/internal/observability/metrics"
	"github.com/totalhomes/lead-qualifier/internal/qualify"
	"github.com/totalhomes/lead-qualifier/pkg/logging"
)

// BuildQualifyConfig returns the built-in qualification rules, or the ones in
// QUALIFY_CONFIG_FILE when set.
func BuildQualifyConfig(cfg *appconfig.Config) (qualify.Config, error) {
	if cfg == nil || strings.TrimSpace(cfg.QualifyConfigFile) == "" {
		return qualify.DefaultConfig(), nil
	}
	qcfg, err := qualify.LoadConfigFile(cfg.QualifyConfigFile)
	if err != nil {
		return qualify.Config{}, fmt.Errorf("bootstrap: %w", err)
	}
	return qcfg, nil
}

// BuildBackend picks the remote completion backend when a provider is
// configured and the local deterministic one otherwise. awsCfg is only read
// for Bedrock.
func BuildBackend(ctx context.Context, cfg *appconfig.Config, awsCfg aws.Config, m *metrics.QualifierMetrics, logger *logging.Logger) (conversation.Backend, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if !cfg.RemoteEnabled() {
		logger.Info("using local dialogue backend")
		return conversation.NewLocalBackend(), nil
	}

	provider := cfg.LLMProvider
	if provider == "" {
		provider = conversation.ProviderOpenAI
	}
	client, model, err := conversation.ClientFor(ctx, conversation.ProviderConfig{
		Provider:       provider,
		OpenAIAPIKey:   cfg.OpenAIAPIKey,
		OpenAIModel:    cfg.OpenAIModel,
		OpenAIBaseURL:  cfg.OpenAIBaseURL,
		BedrockModelID: cfg.BedrockModelID,
		GeminiAPIKey:   cfg.GeminiAPIKey,
		GeminiModel:    cfg.GeminiModel,
		AWS:            awsCfg,
	})
	if err != nil {
		return nil, fmt.Errorf("bootstrap: build llm client: %w", err)
	}
	logger.Info("using remote dialogue backend", "provider", provider, "model", model)
	return conversation.NewRemoteBackend(client, conversation.RemoteOptions{
		Provider:    provider,
		Model:       model,
		Timeout:     cfg.LLMTimeout,
		Temperature: cfg.LLMTemperature,
		MaxTokens:   int32(cfg.LLMMaxTokens),
		Logger:      logger.Logger,
		Metrics:     m,
	}), nil
}

// ManagerDeps are the collaborators of the session manager.
type ManagerDeps struct {
	Backend    conversation.Backend
	Qualify    qualify.Config
	Redis      *redis.Client
	OnComplete conversation.CompletionHandler
	Metrics    *metrics.QualifierMetrics
}

// BuildSessionManager wires the session manager. Sessions persist to Redis
// when a client is given.
func BuildSessionManager(cfg *appconfig.Config, deps ManagerDeps, logger *logging.Logger) *conversation.Manager {
	if logger == nil {
		logger = logging.Default()
	}
	var store conversation.SessionStore
	if deps.Redis != nil {
		store = conversation.NewRedisSessionStore(deps.Redis, nil, cfg.SessionTTL)
		logger.Info("session persistence enabled", "ttl", cfg.SessionTTL.String())
	}
	return conversation.NewManager(conversation.SessionOptions{
		Backend:    deps.Backend,
		Config:     deps.Qualify,
		Cooldown:   cfg.ChatCooldown,
		OnComplete: deps.OnComplete,
		Logger:     logger.Logger,
		Metrics:    deps.Metrics,
	}, store)
}
